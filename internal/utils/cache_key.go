package utils

import (
	"strconv"
	"strings"
)

// BuildListCacheKey produces a stable cache key for a paged public listing.
func BuildListCacheKey(prefix string, from, size int, extras ...string) string {
	parts := []string{
		prefix + ":v1",
		"from=" + strconv.Itoa(from),
		"size=" + strconv.Itoa(size),
	}
	parts = append(parts, extras...)

	return strings.Join(parts, ":")
}
