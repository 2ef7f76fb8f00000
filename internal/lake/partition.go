package lake

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPartition is the directory value used for a null partition column.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// Partition is one column=value directory level.
type Partition struct {
	Column string
	Value  *string
}

// StringPartition partitions on a non-null string column.
func StringPartition(column, value string) Partition {
	return Partition{Column: column, Value: &value}
}

// Int32Partition partitions on a nullable integer column.
func Int32Partition(column string, value *int32) Partition {
	if value == nil {
		return Partition{Column: column}
	}
	s := strconv.FormatInt(int64(*value), 10)
	return Partition{Column: column, Value: &s}
}

// Dir renders the partition as an escaped column=value path segment.
func (p Partition) Dir() string {
	if p.Value == nil || *p.Value == "" {
		return escapePathName(p.Column) + "=" + DefaultPartition
	}
	return escapePathName(p.Column) + "=" + escapePathName(*p.Value)
}

// PartitionPath joins the partition directories of a row.
func PartitionPath(parts []Partition) string {
	dirs := make([]string, len(parts))
	for i, p := range parts {
		dirs[i] = p.Dir()
	}
	return strings.Join(dirs, "/")
}

// escapePathName percent-encodes the characters Hive-style readers escape in
// partition directory names.
func escapePathName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if needsEscape(r) {
			fmt.Fprintf(&b, "%%%02X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func needsEscape(r rune) bool {
	if r < 0x20 || r == 0x7F {
		return true
	}
	switch r {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
