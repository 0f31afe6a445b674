package runlog

import (
	"fmt"
	"testing"
	"time"
)

func TestAppendAndRecent(t *testing.T) {
	l := New(10)

	l.Append(Record{ID: "a", Outcome: "created", Duration: 1500 * time.Millisecond})
	l.Append(Record{ID: "b", Outcome: "ignored"})

	recent := l.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("Recent() = %d records, want 2", len(recent))
	}
	// Newest first.
	if recent[0].ID != "b" || recent[1].ID != "a" {
		t.Errorf("Recent() order = [%s %s], want [b a]", recent[0].ID, recent[1].ID)
	}
	if recent[1].DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", recent[1].DurationMS)
	}
}

func TestRecentLimit(t *testing.T) {
	l := New(10)
	for i := 0; i < 5; i++ {
		l.Append(Record{ID: fmt.Sprintf("r%d", i)})
	}

	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d records, want 2", len(recent))
	}
	if recent[0].ID != "r4" {
		t.Errorf("Recent(2)[0] = %s, want r4", recent[0].ID)
	}
}

func TestRingEviction(t *testing.T) {
	l := New(3)
	for i := 0; i < 5; i++ {
		l.Append(Record{ID: fmt.Sprintf("r%d", i)})
	}

	recent := l.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent() = %d records, want capacity 3", len(recent))
	}
	if recent[0].ID != "r4" || recent[2].ID != "r2" {
		t.Errorf("ring contents = %v, want r4..r2", recent)
	}
}

func TestZeroCapacityDefaults(t *testing.T) {
	l := New(0)
	l.Append(Record{ID: "x"})
	if len(l.Recent(0)) != 1 {
		t.Error("default-capacity log dropped a record")
	}
}
