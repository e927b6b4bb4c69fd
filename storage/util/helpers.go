package util

import (
	"fmt"
	"strings"
)

// NormalizePrefix ensures a root-relative URL prefix has a leading slash and no
// trailing slash.
func NormalizePrefix(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	return "/" + trimmed
}

// DeriveTableName constructs a venue table name from the configured prefix, if any.
func DeriveTableName(prefix string, table string) string {
	if prefix == "" {
		return table
	}

	return fmt.Sprintf("%s_%s", prefix, table)
}
