package trainlog

import (
	"context"
	"testing"
	"time"

	"github.com/readyrun/readyrun/internal/store"
	"github.com/readyrun/readyrun/pkg/training"
)

func newTestStore(t *testing.T) *LogStore {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background(), ModuleName, migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLogStore(s.DB())
}

func entry(day string, rhr int, distance, rpe float64, session training.SessionType) training.LogEntry {
	date, err := time.ParseInLocation(training.DateLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	return training.LogEntry{
		Date:              date,
		RestingHR:         rhr,
		DistanceKm:        distance,
		PerceivedExertion: rpe,
		Session:           session,
	}
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert out of order; List must come back sorted by day.
	for _, e := range []training.LogEntry{
		entry("2026-03-03", 46, 12, 6, training.SessionTempo),
		entry("2026-03-01", 44, 8, 4, training.SessionJog),
		entry("2026-03-02", 45, 0, 1, training.SessionRest),
	} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s): %v", e.Day(), err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		if entries[i].Day() != want {
			t.Errorf("entries[%d].Day() = %s, want %s", i, entries[i].Day(), want)
		}
	}
	if entries[2].Session != training.SessionTempo || entries[2].PerceivedExertion != 6 {
		t.Errorf("round-trip mismatch: %+v", entries[2])
	}
}

func TestAppendReplacesSameDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, entry("2026-03-01", 44, 8, 4, training.SessionJog)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append(ctx, entry("2026-03-01", 50, 15, 8, training.SessionInterval)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (last write wins)", len(entries))
	}
	if entries[0].RestingHR != 50 || entries[0].Session != training.SessionInterval {
		t.Errorf("replacement did not win: %+v", entries[0])
	}
}

func TestListRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for d := 1; d <= 10; d++ {
		e := entry(time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC).Format(training.DateLayout),
			45, 10, 5, training.SessionJog)
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	entries, err := s.ListRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4 (bounds inclusive)", len(entries))
	}
	if entries[0].Day() != "2026-03-04" || entries[3].Day() != "2026-03-07" {
		t.Errorf("range = %s..%s, want 2026-03-04..2026-03-07", entries[0].Day(), entries[3].Day())
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from empty store", len(entries))
	}
}

func TestAppendBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []training.LogEntry{
		entry("2026-03-01", 44, 8, 4, training.SessionJog),
		entry("2026-03-02", 45, 20, 6, training.SessionLong),
		entry("2026-03-02", 46, 5, 3, training.SessionJog), // same day, last wins
	}
	if err := s.AppendBatch(ctx, batch); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2 after same-day dedup", n)
	}
}
