package core

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		f    Frequency
		want time.Time
	}{
		{"weekly", date(2024, 1, 1), Weekly, date(2024, 1, 8)},
		{"weekly across month", date(2024, 1, 29), Weekly, date(2024, 2, 5)},
		{"monthly", date(2024, 1, 1), Monthly, date(2024, 2, 1)},
		{"monthly clamps to feb", date(2024, 1, 31), Monthly, date(2024, 2, 29)},
		{"monthly clamps non-leap", date(2023, 1, 31), Monthly, date(2023, 2, 28)},
		{"yearly", date(2024, 3, 15), Yearly, date(2025, 3, 15)},
		{"yearly clamps leap day", date(2024, 2, 29), Yearly, date(2025, 2, 28)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Advance(tc.in, tc.f)
			if !got.Equal(tc.want) {
				t.Fatalf("Advance(%v, %s) = %v, want %v", tc.in, tc.f, got, tc.want)
			}
		})
	}
}

func TestOccurrenceAt(t *testing.T) {
	start := date(2024, 1, 1)

	if got := OccurrenceAt(start, Weekly, 0); !got.Equal(start) {
		t.Fatalf("zero periods should return start, got %v", got)
	}
	if got, want := OccurrenceAt(start, Weekly, 2), date(2024, 1, 15); !got.Equal(want) {
		t.Fatalf("two weekly periods = %v, want %v", got, want)
	}
	if got, want := OccurrenceAt(start, Monthly, 13), date(2025, 2, 1); !got.Equal(want) {
		t.Fatalf("thirteen monthly periods = %v, want %v", got, want)
	}
}

// Replaying from the start date must give the same result as advancing the
// previous occurrence once, for schedules whose day survives every month.
func TestOccurrenceAtMatchesIterativeAdvance(t *testing.T) {
	start := date(2024, 1, 15)
	prev := start
	for n := int64(1); n <= 24; n++ {
		prev = Advance(prev, Monthly)
		if got := OccurrenceAt(start, Monthly, n); !got.Equal(prev) {
			t.Fatalf("occurrence %d: replay %v != iterative %v", n, got, prev)
		}
	}
}

func TestPeriodEnd(t *testing.T) {
	if got, want := PeriodEnd(date(2024, 1, 1), Monthly), date(2024, 2, 1); !got.Equal(want) {
		t.Fatalf("monthly period end = %v, want %v", got, want)
	}
	if got, want := PeriodEnd(date(2024, 1, 1), Weekly), date(2024, 1, 8); !got.Equal(want) {
		t.Fatalf("weekly period end = %v, want %v", got, want)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 6, 3, 17, 45, 12, 999, time.UTC)
	if got, want := DateOnly(in), date(2024, 6, 3); !got.Equal(want) {
		t.Fatalf("DateOnly = %v, want %v", got, want)
	}
}
