package calc

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDateWeekdayStaysPut(t *testing.T) {
	// Friday + 3 days lands on Monday, no adjustment needed.
	due, ok := DueDate(date(2025, 10, 24), 3)
	if !ok {
		t.Fatalf("expected computable due date")
	}
	if want := date(2025, 10, 27); !due.Equal(want) {
		t.Fatalf("expected %s got %s", want, due)
	}
}

func TestDueDateSaturdayRollsToMonday(t *testing.T) {
	// 2025-10-24 is a Friday; one day later is Saturday 2025-10-25,
	// which rolls forward to Monday 2025-10-27.
	due, ok := DueDate(date(2025, 10, 24), 1)
	if !ok {
		t.Fatalf("expected computable due date")
	}
	if want := date(2025, 10, 27); !due.Equal(want) {
		t.Fatalf("expected %s got %s", want, due)
	}
	if due.Weekday() != time.Monday {
		t.Fatalf("expected Monday got %s", due.Weekday())
	}
}

func TestDueDateSundayRollsToMonday(t *testing.T) {
	// Friday + 2 days lands on Sunday 2025-10-26 → Monday 2025-10-27.
	due, ok := DueDate(date(2025, 10, 24), 2)
	if !ok {
		t.Fatalf("expected computable due date")
	}
	if want := date(2025, 10, 27); !due.Equal(want) {
		t.Fatalf("expected %s got %s", want, due)
	}
}

func TestDueDateTermBelowOneIsNotComputable(t *testing.T) {
	for _, term := range []int{0, -1, -30} {
		if _, ok := DueDate(date(2025, 10, 25), term); ok {
			t.Fatalf("term %d must not produce a due date", term)
		}
	}
}

func TestDueDateLongTerm(t *testing.T) {
	// 2025-10-24 + 45 days = 2025-12-08, a Monday.
	due, ok := DueDate(date(2025, 10, 24), 45)
	if !ok {
		t.Fatalf("expected computable due date")
	}
	if want := date(2025, 12, 8); !due.Equal(want) {
		t.Fatalf("expected %s got %s", want, due)
	}
}
