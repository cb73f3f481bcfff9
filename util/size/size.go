// Package size parses and formats byte sizes written the way operators write
// them in compaction configuration, e.g. "32M" or "1G".
package size

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
)

// Single letter suffixes are binary multiples.
var shortUnits = map[byte]string{
	'k': "KiB",
	'm': "MiB",
	'g': "GiB",
	't': "TiB",
}

// Parse returns the number of bytes described by s. A bare number is a byte
// count, a single K, M, G or T suffix (any case) is a binary multiple and
// anything longer ("32MiB", "1 GB") is handed to humanize.
func Parse(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}
	if strings.HasPrefix(trimmed, "-") {
		return 0, fmt.Errorf("negative size %q", s)
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}

	last := trimmed[len(trimmed)-1] | 0x20 // lower case for ASCII letters
	if unit, ok := shortUnits[last]; ok && isNumeric(trimmed[:len(trimmed)-1]) {
		trimmed = trimmed[:len(trimmed)-1] + unit
	}

	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows int64", s)
	}
	return int64(n), nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) int64 {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Format renders n with binary units, e.g. "32 MiB".
func Format(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
