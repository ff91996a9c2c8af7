package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultSweepBatch = 50

// CandidateSource lists completed tournaments that still have unsettled
// ledger rows.
type CandidateSource interface {
	ListSettlementCandidates(ctx context.Context, limit int) ([]string, error)
}

type settler interface {
	SettleTournamentIfCompleted(ctx context.Context, tournamentID string, now time.Time) (Result, error)
}

// Sweeper settles completed tournaments on a timer. A tournament that fails
// with a consistency violation is skipped until the process restarts.
type Sweeper struct {
	settler settler
	source  CandidateSource
	batch   int

	mu          sync.Mutex
	quarantined map[string]struct{}
}

func NewSweeper(svc *Service, source CandidateSource) *Sweeper {
	return &Sweeper{
		settler:     svc,
		source:      source,
		batch:       defaultSweepBatch,
		quarantined: make(map[string]struct{}),
	}
}

// Start runs SweepOnce every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.SweepOnce(ctx, now)
			}
		}
	}()
}

// SweepOnce settles each candidate independently and returns how many were
// applied. A consistency violation on one tournament does not stop the rest.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) int {
	ids, err := s.source.ListSettlementCandidates(ctx, s.batch)
	if err != nil {
		log.Error().Err(err).Msg("list settlement candidates")
		return 0
	}
	applied := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if s.isQuarantined(id) {
			continue
		}
		res, err := s.settler.SettleTournamentIfCompleted(ctx, id, now)
		if err != nil {
			if errors.Is(err, ErrConsistencyViolation) {
				s.quarantine(id)
				log.Warn().Str("tournament_id", id).Msg("tournament excluded from automatic settlement")
			} else {
				log.Error().Err(err).Str("tournament_id", id).Msg("settle tournament")
			}
			continue
		}
		if res.Applied() {
			applied++
		}
	}
	return applied
}

func (s *Sweeper) isQuarantined(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.quarantined[id]
	return ok
}

func (s *Sweeper) quarantine(id string) {
	s.mu.Lock()
	s.quarantined[id] = struct{}{}
	s.mu.Unlock()
}
