package settlement

import (
	"context"
	"errors"
	"testing"
	"time"
)

type staticCandidates struct {
	ids   []string
	err   error
	limit int
}

func (s *staticCandidates) ListSettlementCandidates(_ context.Context, limit int) ([]string, error) {
	s.limit = limit
	return s.ids, s.err
}

func TestSweepOnceSettlesEachCandidate(t *testing.T) {
	st := newMemStore()
	seedCompleted(st, "t1")
	seedCompleted(st, "t2")
	seedCompleted(st, "t3")
	// t2 is broken and must not block t3.
	st.matches["t2"][0].WinnerAgentID = ""

	src := &staticCandidates{ids: []string{"t1", "t2", "t3", "missing"}}
	sw := NewSweeper(NewService(st, testSettings(t)), src)

	if got := sw.SweepOnce(context.Background(), testSettleAt); got != 2 {
		t.Fatalf("applied = %d, want 2", got)
	}
	if src.limit != defaultSweepBatch {
		t.Fatalf("limit = %d, want %d", src.limit, defaultSweepBatch)
	}
	if st.ledgerRows("t2")[0].SettledAt != nil {
		t.Fatal("broken tournament must stay unsettled")
	}
	if st.ledgerRows("t3")[0].SettledAt == nil {
		t.Fatal("t3 should be settled")
	}

	if got := sw.SweepOnce(context.Background(), testSettleAt); got != 0 {
		t.Fatalf("second sweep applied = %d, want 0", got)
	}
}

func TestSweepOnceListError(t *testing.T) {
	sw := NewSweeper(NewService(newMemStore(), testSettings(t)), &staticCandidates{err: errors.New("db down")})
	if got := sw.SweepOnce(context.Background(), testSettleAt); got != 0 {
		t.Fatalf("applied = %d, want 0", got)
	}
}

func TestSweepOnceStopsWhenContextDone(t *testing.T) {
	st := newMemStore()
	seedCompleted(st, "t1")
	sw := NewSweeper(NewService(st, testSettings(t)), &staticCandidates{ids: []string{"t1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := sw.SweepOnce(ctx, testSettleAt); got != 0 {
		t.Fatalf("applied = %d, want 0", got)
	}
}

type countingSettler struct {
	next  settler
	calls map[string]int
}

func (c *countingSettler) SettleTournamentIfCompleted(ctx context.Context, id string, now time.Time) (Result, error) {
	c.calls[id]++
	return c.next.SettleTournamentIfCompleted(ctx, id, now)
}

func TestSweepOnceSkipsInconsistentTournamentAfterFirstFailure(t *testing.T) {
	st := newMemStore()
	seedCompleted(st, "t1")
	st.matches["t1"][0].WinnerAgentID = ""

	sw := NewSweeper(NewService(st, testSettings(t)), &staticCandidates{ids: []string{"t1"}})
	counter := &countingSettler{next: sw.settler, calls: map[string]int{}}
	sw.settler = counter

	for i := 0; i < 3; i++ {
		sw.SweepOnce(context.Background(), testSettleAt)
	}
	if counter.calls["t1"] != 1 {
		t.Fatalf("settle calls = %d, want 1", counter.calls["t1"])
	}
}
