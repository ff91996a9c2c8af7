package httptransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tournament-settlement/internal/settlement"
	"tournament-settlement/internal/store"
	"tournament-settlement/internal/x402"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	mu          sync.Mutex
	pingErr     error
	tournaments map[string]*settlement.Tournament
	entries     map[string]*settlement.Entry
	ledgers     []settlement.Ledger
	attempts    []x402.Attempt
	matches     []settlement.Match
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments: map[string]*settlement.Tournament{},
		entries:     map[string]*settlement.Entry{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreateTournament(_ context.Context, title string, fee decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("t-%d", len(f.tournaments)+1)
	f.tournaments[id] = &settlement.Tournament{ID: id, Title: title, Status: settlement.TournamentScheduled, EntryFee: fee}
	return id, nil
}

func (f *fakeStore) GetTournament(_ context.Context, id string) (*settlement.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) StartTournament(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != settlement.TournamentScheduled {
		return store.ErrInvalidTournamentState
	}
	t.Status = settlement.TournamentInProgress
	t.StartedAt = &now
	return nil
}

func (f *fakeStore) CompleteTournament(_ context.Context, id, winner string, matches int, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status == settlement.TournamentCompleted {
		return store.ErrInvalidTournamentState
	}
	t.Status = settlement.TournamentCompleted
	t.WinnerAgentID = winner
	t.MatchesCompleted = matches
	t.CompletedAt = &now
	return nil
}

func (f *fakeStore) CreateMatch(_ context.Context, m settlement.Match, _, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[m.TournamentID]; !ok {
		return "", store.ErrNotFound
	}
	m.ID = fmt.Sprintf("m-%d", len(f.matches)+1)
	f.matches = append(f.matches, m)
	return m.ID, nil
}

func (f *fakeStore) ConfirmEntry(_ context.Context, in store.ConfirmEntryInput) (*settlement.Entry, *settlement.Ledger, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[in.TournamentID]
	if !ok {
		return nil, nil, false, store.ErrNotFound
	}
	if t.Status == settlement.TournamentCompleted {
		return nil, nil, false, store.ErrInvalidTournamentState
	}
	key := in.TournamentID + "/" + in.AgentID
	if e, ok := f.entries[key]; ok {
		for i := range f.ledgers {
			if f.ledgers[i].TournamentID == in.TournamentID && f.ledgers[i].AgentID == in.AgentID {
				l := f.ledgers[i]
				return e, &l, false, nil
			}
		}
	}
	e := &settlement.Entry{
		ID:            fmt.Sprintf("e-%d", len(f.entries)+1),
		TournamentID:  in.TournamentID,
		AgentID:       in.AgentID,
		WalletAddress: in.WalletAddress,
		Status:        settlement.EntryConfirmed,
		UpdatedAt:     in.Now,
	}
	f.entries[key] = e
	l := settlement.Ledger{
		StakeID:       fmt.Sprintf("s-%d", len(f.ledgers)+1),
		TournamentID:  in.TournamentID,
		AgentID:       in.AgentID,
		WalletAddress: in.WalletAddress,
		AmountStaked:  in.Amount,
		Status:        settlement.LedgerEntered,
	}
	f.ledgers = append(f.ledgers, l)
	return e, &l, true, nil
}

func (f *fakeStore) GetEntry(_ context.Context, tournamentID, agentID string) (*settlement.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[tournamentID+"/"+agentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ListLedgers(_ context.Context, tournamentID string, limit, offset int) ([]settlement.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []settlement.Ledger
	for _, l := range f.ledgers {
		if l.TournamentID == tournamentID {
			out = append(out, l)
		}
	}
	return window(out, limit, offset), nil
}

func (f *fakeStore) ListPaymentAttempts(_ context.Context, tournamentID string, limit, offset int) ([]x402.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []x402.Attempt
	for _, a := range f.attempts {
		if a.TournamentID == tournamentID {
			out = append(out, a)
		}
	}
	return window(out, limit, offset), nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	return items[offset:min(offset+limit, len(items))]
}

func (f *fakeStore) PaymentAttemptExistsByRequestNonce(_ context.Context, wallet, nonce string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.WalletAddress == wallet && a.RequestNonce == nonce {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) PaymentAttemptExistsByIdempotencyKey(_ context.Context, wallet, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.WalletAddress == wallet && a.IdempotencyKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertPaymentAttempt(_ context.Context, a x402.Attempt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.attempts {
		if r.WalletAddress == a.WalletAddress && (r.RequestNonce == a.RequestNonce || r.IdempotencyKey == a.IdempotencyKey) {
			return "", fmt.Errorf("insert payment attempt: %w", x402.ErrDuplicateAttempt)
		}
	}
	a.ID = fmt.Sprintf("pa-%d", len(f.attempts)+1)
	f.attempts = append(f.attempts, a)
	return a.ID, nil
}

func (f *fakeStore) MarkPaymentAttempt(_ context.Context, a x402.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.attempts {
		if f.attempts[i].ID == a.ID {
			f.attempts[i] = a
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) addTournament(id, fee string, status settlement.TournamentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tournaments[id] = &settlement.Tournament{ID: id, Title: id, Status: status, EntryFee: decimal.RequireFromString(fee)}
}

type fakeSettler struct {
	calls  int
	result settlement.Result
	err    error
}

func (f *fakeSettler) SettleTournamentIfCompleted(_ context.Context, id string, _ time.Time) (settlement.Result, error) {
	f.calls++
	r := f.result
	r.TournamentID = id
	return r, f.err
}
