// ABOUTME: Tests for RSS and Atom date decoding
// ABOUTME: Covers offsets, fractions and the zero result for unreadable input

package parse

import (
	"testing"
	"time"
)

func TestParseRSSDate(t *testing.T) {
	newYear := millis(2024, time.January, 1, 0, 0, 0)

	tests := []struct {
		input string
		want  int64
	}{
		{"Mon, 01 Jan 2024 00:00:00 GMT", newYear},
		{"  Mon, 01 Jan 2024 00:00:00 GMT\n", newYear},
		{"Mon, 01 Jan 2024 02:00:00 +0200", newYear},
		{"2024-01-01T00:00:00Z", newYear},
		{"2024-01-01 00:00:00", newYear},
		{"", 0},
		{"not a date", 0},
	}

	for _, tt := range tests {
		if got := ParseRSSDate(tt.input); got != tt.want {
			t.Errorf("ParseRSSDate(%q): expected %d, got %d", tt.input, tt.want, got)
		}
	}
}

func TestParseAtomDate(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"2024-01-01T00:00:00Z", millis(2024, time.January, 1, 0, 0, 0)},
		{"2024-01-01T00:00:00+02:00", millis(2023, time.December, 31, 22, 0, 0)},
		{"2024-01-01T00:00:00-05:30", millis(2024, time.January, 1, 5, 30, 0)},
		{"2024-01-01T00:00:00.123Z", millis(2024, time.January, 1, 0, 0, 0)},
		{" 2024-01-01T00:00:00Z ", millis(2024, time.January, 1, 0, 0, 0)},
		{"2024-01-01T00:00:00", 0},
		{"2024-01-01", 0},
		{"Mon, 01 Jan 2024 00:00:00 GMT", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ParseAtomDate(tt.input); got != tt.want {
			t.Errorf("ParseAtomDate(%q): expected %d, got %d", tt.input, tt.want, got)
		}
	}
}
