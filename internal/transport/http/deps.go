package httptransport

import (
	"context"
	"time"

	"tournament-settlement/internal/settlement"
	"tournament-settlement/internal/store"
	"tournament-settlement/internal/x402"

	"github.com/shopspring/decimal"
)

// Store is the persistence the HTTP layer needs; *store.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	CreateTournament(ctx context.Context, title string, entryFee decimal.Decimal) (string, error)
	GetTournament(ctx context.Context, id string) (*settlement.Tournament, error)
	StartTournament(ctx context.Context, id string, now time.Time) error
	CompleteTournament(ctx context.Context, id, winnerAgentID string, matchesCompleted int, now time.Time) error
	CreateMatch(ctx context.Context, m settlement.Match, round, position int) (string, error)
	ConfirmEntry(ctx context.Context, in store.ConfirmEntryInput) (*settlement.Entry, *settlement.Ledger, bool, error)
	GetEntry(ctx context.Context, tournamentID, agentID string) (*settlement.Entry, error)
	ListLedgers(ctx context.Context, tournamentID string, limit, offset int) ([]settlement.Ledger, error)
	ListPaymentAttempts(ctx context.Context, tournamentID string, limit, offset int) ([]x402.Attempt, error)
}

type Settler interface {
	SettleTournamentIfCompleted(ctx context.Context, tournamentID string, now time.Time) (settlement.Result, error)
}

type Deps struct {
	Store       Store
	Settler     Settler
	Recorder    *x402.Recorder
	Verifier    *x402.Verifier
	Payments    x402.Settings
	AdminAPIKey string
	MetricsPath string
	Now         func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
