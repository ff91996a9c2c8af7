package settlement

import (
	"context"
	"sync"
)

// memStore serializes transactions with one mutex, which is what row locks
// give a single tournament, and commits staged writes only on success.
type memStore struct {
	mu          sync.Mutex
	tournaments map[string]Tournament
	ledgers     map[string][]Ledger
	matches     map[string][]Match
	entries     map[string][]Entry
	commits     int
}

func newMemStore() *memStore {
	return &memStore{
		tournaments: map[string]Tournament{},
		ledgers:     map[string][]Ledger{},
		matches:     map[string][]Match{},
		entries:     map[string][]Entry{},
	}
}

func (m *memStore) InSettlementTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, ledgers: map[string]Ledger{}, entries: map[string]Entry{}}
	if err := fn(tx); err != nil {
		return err
	}
	for _, l := range tx.ledgers {
		rows := m.ledgers[l.TournamentID]
		for i := range rows {
			if rows[i].StakeID == l.StakeID {
				rows[i] = l
			}
		}
	}
	for _, e := range tx.entries {
		rows := m.entries[e.TournamentID]
		for i := range rows {
			if rows[i].ID == e.ID {
				rows[i] = e
			}
		}
	}
	m.commits++
	return nil
}

func (m *memStore) ledgerRows(tournamentID string) []Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Ledger(nil), m.ledgers[tournamentID]...)
}

func (m *memStore) entryRows(tournamentID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries[tournamentID]...)
}

type memTx struct {
	store   *memStore
	ledgers map[string]Ledger
	entries map[string]Entry
}

func (t *memTx) LockTournament(_ context.Context, id string) (*Tournament, error) {
	tour, ok := t.store.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return &tour, nil
}

func (t *memTx) LockLedgers(_ context.Context, id string) ([]Ledger, error) {
	return append([]Ledger(nil), t.store.ledgers[id]...), nil
}

func (t *memTx) ListMatches(_ context.Context, id string) ([]Match, error) {
	return append([]Match(nil), t.store.matches[id]...), nil
}

func (t *memTx) ListEntries(_ context.Context, id string) ([]Entry, error) {
	return append([]Entry(nil), t.store.entries[id]...), nil
}

func (t *memTx) UpdateLedgers(_ context.Context, ledgers []Ledger) error {
	for _, l := range ledgers {
		t.ledgers[l.StakeID] = l
	}
	return nil
}

func (t *memTx) UpdateEntries(_ context.Context, entries []Entry) error {
	for _, e := range entries {
		t.entries[e.ID] = e
	}
	return nil
}
