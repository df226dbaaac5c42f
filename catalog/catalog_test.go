package catalog

import (
	"testing"
	"time"
)

func TestParseReleaseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2023-09-28T14:30:00":       time.Date(2023, 9, 28, 14, 30, 0, 0, time.UTC),
		"2023-09-28T14:30":          time.Date(2023, 9, 28, 14, 30, 0, 0, time.UTC),
		"2023-09-28 14:30:00":       time.Date(2023, 9, 28, 14, 30, 0, 0, time.UTC),
		"2023-09-28":                time.Date(2023, 9, 28, 0, 0, 0, 0, time.UTC),
		"2023-09-28T16:30:00+02:00": time.Date(2023, 9, 28, 14, 30, 0, 0, time.UTC),
		" 2023-09-28T14:30:00.5 ":   time.Date(2023, 9, 28, 14, 30, 0, 500_000_000, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseReleaseDate(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "yesterday", "28/09/2023", "2023-13-01"} {
		if _, err := ParseReleaseDate(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}
