// ABOUTME: Date decoding for feed items: permissive for RSS pubDate, strict RFC 3339 for Atom
// ABOUTME: Both return epoch milliseconds and 0 on anything they cannot read

package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var atomDatePattern = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)T(\d+):(\d+):(\d+)(?:\.(\d+))?(Z|([+-])(\d+):(\d+))$`)

// ParseRSSDate reads the calendar formats feeds use in pubDate, such as RFC 1123,
// RFC 822 with numeric or named zones, ISO 8601 and plain "2006-01-02 15:04".
// Zone-less values are taken as UTC.
func ParseRSSDate(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// ParseAtomDate reads YYYY-MM-DDTHH:MM:SS[.fraction](Z|±HH:MM), ignoring the fraction.
func ParseAtomDate(s string) int64 {
	m := atomDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n := make([]int, 7)
	for i := 1; i <= 6; i++ {
		v, err := strconv.Atoi(m[i])
		if err != nil {
			return 0
		}
		n[i] = v
	}
	ms := time.Date(n[1], time.Month(n[2]), n[3], n[4], n[5], n[6], 0, time.UTC).UnixMilli()
	if m[8] == "Z" {
		return ms
	}

	hours, _ := strconv.Atoi(m[10])
	minutes, _ := strconv.Atoi(m[11])
	offset := int64(hours*60+minutes) * int64(time.Minute/time.Millisecond)
	if m[9] == "+" {
		return ms - offset
	}
	return ms + offset
}
