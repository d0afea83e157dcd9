package form

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	unit string
	size float64
}{
	{"B", 1},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"TB", 1 << 40},
	{"PB", 1 << 50},
	{"EB", 1 << 60},
	{"ZB", 1 << 70},
	{"YB", 1 << 80},
}

var sizeRe = regexp.MustCompile(`(?i)^([0-9.,]+?)\s*([KMGTPEZY]?B?)$`)

// FormatSize formats a byte count as a human readable size, e.g. 13.0KB or
// 4.1MB.
func FormatSize(bytes int64) string {
	b := float64(bytes)
	for idx := 1; idx < len(sizeUnits); idx++ {
		if b < sizeUnits[idx].size {
			prev := sizeUnits[idx-1]
			return fmt.Sprintf("%.1f%s", b/prev.size, prev.unit)
		}
	}
	last := sizeUnits[len(sizeUnits)-1]
	return fmt.Sprintf("%.1f%s", b/last.size, last.unit)
}

// ParseSize parses sizes like "300", "2.5 MB", "1,5kb" or "10G" into a byte
// count.
func ParseSize(size string) (int64, error) {
	m := sizeRe.FindStringSubmatch(strings.TrimSpace(size))
	if m == nil {
		return 0, fmt.Errorf("size %q has incorrect format", size)
	}
	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("size %q has incorrect format", size)
	}
	unit := strings.ToUpper(m[2])
	if !strings.HasSuffix(unit, "B") {
		unit += "B"
	}
	for _, u := range sizeUnits {
		if u.unit == unit {
			bytes := value * u.size
			if bytes >= math.MaxInt64 {
				return 0, fmt.Errorf("size %q is too large", size)
			}
			return int64(bytes), nil
		}
	}
	return 0, fmt.Errorf("size %q has incorrect format", size)
}
