package models

// Nullable is a comparable stand-in for a pointer field, used to build map keys
// over rows whose columns may be null.
type Nullable[T comparable] struct {
	Value T
	Valid bool
}

// NullableOf dereferences p, keeping nil distinct from the zero value.
func NullableOf[T comparable](p *T) Nullable[T] {
	if p == nil {
		return Nullable[T]{}
	}
	return Nullable[T]{Value: *p, Valid: true}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// ArtistKey is the full attribute tuple of an Artist.
type ArtistKey struct {
	ArtistID  string
	Name      Nullable[string]
	Location  Nullable[string]
	Latitude  Nullable[float64]
	Longitude Nullable[float64]
}

// Key returns the tuple used for artist deduplication.
func (a Artist) Key() ArtistKey {
	return ArtistKey{
		ArtistID:  a.ArtistID,
		Name:      NullableOf(a.Name),
		Location:  NullableOf(a.Location),
		Latitude:  NullableOf(a.Latitude),
		Longitude: NullableOf(a.Longitude),
	}
}

// UserKey is the full attribute tuple of a User.
type UserKey struct {
	UserID    int64
	FirstName Nullable[string]
	LastName  Nullable[string]
	Gender    Nullable[string]
	Level     Nullable[string]
}

// Key returns the tuple used for user deduplication.
func (u User) Key() UserKey {
	return UserKey{
		UserID:    u.UserID,
		FirstName: NullableOf(u.FirstName),
		LastName:  NullableOf(u.LastName),
		Gender:    NullableOf(u.Gender),
		Level:     NullableOf(u.Level),
	}
}
