package workers

import (
	"runtime"
	"strconv"
	"strings"
)

// Count returns a crawler pool size scaled from GOMAXPROCS, which respects
// container CPU limits (Go 1.19+).
//
// The limit parameter caps the result. Use 0 for no limit. The result is
// never below 1.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns a pool size for I/O-bound work (2 per CPU).
// Directory listing is dominated by syscalls, so crawlers size with this.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Parse interprets a configured pool size. "auto" sizes with ForIO(limit);
// a positive integer is used as is, capped by limit when limit > 0.
// Anything else returns ok=false.
func Parse(value string, limit int) (n int, ok bool) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "auto") {
		return ForIO(limit), true
	}

	count, err := strconv.Atoi(value)
	if err != nil || count <= 0 {
		return 0, false
	}
	if limit > 0 && count > limit {
		return limit, true
	}
	return count, true
}
