package utils

import (
	"errors"
	"strconv"
)

var ErrBadPaging = errors.New("from must be >= 0 and size must be > 0")

// ParseFromSize reads offset pagination query params with the usual
// defaults (from=0, size=10).
func ParseFromSize(fromRaw, sizeRaw string) (int, int, error) {
	from := 0
	size := 10

	if fromRaw != "" {
		v, err := strconv.Atoi(fromRaw)
		if err != nil || v < 0 {
			return 0, 0, ErrBadPaging
		}
		from = v
	}

	if sizeRaw != "" {
		v, err := strconv.Atoi(sizeRaw)
		if err != nil || v <= 0 {
			return 0, 0, ErrBadPaging
		}
		size = v
	}

	return from, size, nil
}
