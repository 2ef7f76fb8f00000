package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var null = []byte("null")

// IsNull reports whether raw is absent or a JSON null.
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), null)
}

// FlexibleString converts raw to a string, accepting numbers and booleans as well.
// Returns nil for null/absent values.
func FlexibleString(raw json.RawMessage) *string {
	if IsNull(raw) {
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return &strVal
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		s := numVal.String()
		return &s
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		s := fmt.Sprintf("%t", boolVal)
		return &s
	}

	s := string(raw)
	return &s
}

// FlexibleInt64 converts raw to an int64. Numeric strings are accepted since
// usage logs carry userId as a string. Empty strings, null and values that are
// not integral numbers return nil.
func FlexibleInt64(raw json.RawMessage) *int64 {
	if IsNull(raw) {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
	} else {
		text = string(bytes.TrimSpace(raw))
	}
	if text == "" {
		return nil
	}

	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	v := int64(f)
	return &v
}

// FlexibleInt32 is FlexibleInt64 narrowed to int32; out of range values return nil.
func FlexibleInt32(raw json.RawMessage) *int32 {
	v := FlexibleInt64(raw)
	if v == nil || *v < math.MinInt32 || *v > math.MaxInt32 {
		return nil
	}
	n := int32(*v)
	return &n
}

// FlexibleFloat64 converts raw to a float64, accepting numeric strings.
func FlexibleFloat64(raw json.RawMessage) *float64 {
	if IsNull(raw) {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
	} else {
		text = string(bytes.TrimSpace(raw))
	}
	if text == "" {
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
