package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tournament-settlement/internal/usdc"

	"github.com/rs/zerolog/log"
)

// Tx is the view of storage inside one settlement transaction. Lock* calls
// hold their rows until the transaction ends.
type Tx interface {
	// LockTournament returns ErrTournamentNotFound when no row exists.
	LockTournament(ctx context.Context, tournamentID string) (*Tournament, error)
	// LockLedgers returns the tournament's ledger rows in creation order.
	LockLedgers(ctx context.Context, tournamentID string) ([]Ledger, error)
	ListMatches(ctx context.Context, tournamentID string) ([]Match, error)
	ListEntries(ctx context.Context, tournamentID string) ([]Entry, error)
	UpdateLedgers(ctx context.Context, ledgers []Ledger) error
	UpdateEntries(ctx context.Context, entries []Entry) error
}

// Store runs fn in a single transaction, committing only when fn returns nil.
type Store interface {
	InSettlementTx(ctx context.Context, fn func(tx Tx) error) error
}

type Service struct {
	store    Store
	settings Settings
}

func NewService(st Store, settings Settings) *Service {
	return &Service{store: st, settings: settings}
}

// SettleTournamentIfCompleted applies the settlement plan of a completed
// tournament at most once. Repeated or concurrent calls observe
// ALREADY_SETTLED once the first has committed.
func (s *Service) SettleTournamentIfCompleted(ctx context.Context, tournamentID string, now time.Time) (Result, error) {
	var res Result
	err := s.store.InSettlementTx(ctx, func(tx Tx) error {
		r, err := s.settleLocked(ctx, tx, tournamentID, now)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConsistencyViolation) {
			consistencyViolations.Inc()
			log.Error().Err(err).Str("tournament_id", tournamentID).Msg("settlement aborted")
		}
		return Result{}, err
	}
	observeResult(res)

	switch res.Outcome {
	case OutcomeApplied:
		log.Info().
			Str("tournament_id", tournamentID).
			Str("pool", usdc.String(*res.TotalPool)).
			Str("judge_fee", usdc.String(*res.TotalJudgeFee)).
			Str("system_retention", usdc.String(*res.TotalSystemRetention)).
			Str("reward_pool", usdc.String(*res.TotalRewardPayout)).
			Msg("tournament settled")
	case OutcomeAlreadySettled:
		log.Info().Str("tournament_id", tournamentID).Msg("tournament already settled")
	case OutcomeNotApplied:
		if res.Reason == ReasonNoLedgerRows {
			log.Warn().Str("tournament_id", tournamentID).Msg("completed tournament has no ledger rows; skipping settlement")
		} else {
			log.Debug().Str("tournament_id", tournamentID).Str("reason", res.Reason).Msg("settlement not applied")
		}
	}
	return res, nil
}

func (s *Service) settleLocked(ctx context.Context, tx Tx, tournamentID string, now time.Time) (Result, error) {
	t, err := tx.LockTournament(ctx, tournamentID)
	if errors.Is(err, ErrTournamentNotFound) {
		return notApplied(tournamentID, ReasonTournamentNotFound), nil
	}
	if err != nil {
		return Result{}, err
	}
	if t.Status != TournamentCompleted {
		return notApplied(tournamentID, ReasonTournamentNotCompleted), nil
	}

	ledgers, err := tx.LockLedgers(ctx, tournamentID)
	if err != nil {
		return Result{}, err
	}
	if len(ledgers) == 0 {
		return notApplied(tournamentID, ReasonNoLedgerRows), nil
	}
	settled := 0
	for _, l := range ledgers {
		if l.SettledAt != nil {
			settled++
		}
	}
	if settled == len(ledgers) {
		return alreadySettled(tournamentID), nil
	}
	if settled > 0 {
		return Result{}, fmt.Errorf("%w: tournament %s has %d of %d ledger rows settled",
			ErrConsistencyViolation, tournamentID, settled, len(ledgers))
	}
	if t.WinnerAgentID == "" {
		return Result{}, fmt.Errorf("%w: tournament %s has no winner", ErrConsistencyViolation, tournamentID)
	}

	matches, err := tx.ListMatches(ctx, tournamentID)
	if err != nil {
		return Result{}, err
	}
	forfeited, err := forfeitedAgents(tournamentID, matches)
	if err != nil {
		return Result{}, err
	}

	plan, err := PlanSettlement(
		ledgers,
		t.WinnerAgentID,
		forfeited,
		s.settings.requestedJudgeFee(t.MatchesCompleted),
		s.settings.SystemRetentionRate,
	)
	if err != nil {
		return Result{}, fmt.Errorf("tournament %s: %w", tournamentID, err)
	}

	lockedAt := now
	if t.StartedAt != nil {
		lockedAt = *t.StartedAt
	}
	byStake := make(map[string]Allocation, len(plan.Allocations))
	for _, a := range plan.Allocations {
		byStake[a.StakeID] = a
	}
	forfeitedAgentsSeen := make(map[string]struct{})
	for i := range ledgers {
		l := &ledgers[i]
		a, ok := byStake[l.StakeID]
		if !ok {
			return Result{}, fmt.Errorf("%w: no allocation for stake %s", ErrConsistencyViolation, l.StakeID)
		}
		applyAllocation(l, a, plan, lockedAt, now)
		if a.Forfeited {
			forfeitedAgentsSeen[a.AgentID] = struct{}{}
		}
	}
	if err := tx.UpdateLedgers(ctx, ledgers); err != nil {
		return Result{}, err
	}

	if len(forfeitedAgentsSeen) > 0 {
		entries, err := tx.ListEntries(ctx, tournamentID)
		if err != nil {
			return Result{}, err
		}
		var changed []Entry
		for _, e := range entries {
			if _, ok := forfeitedAgentsSeen[e.AgentID]; !ok || e.Status == EntryForfeited {
				continue
			}
			e.Status = EntryForfeited
			e.UpdatedAt = now
			changed = append(changed, e)
		}
		if len(changed) > 0 {
			if err := tx.UpdateEntries(ctx, changed); err != nil {
				return Result{}, err
			}
		}
	}
	return appliedResult(tournamentID, plan), nil
}

// applyAllocation writes the plan into l. LockedAt and ForfeitedAt keep any
// earlier value.
func applyAllocation(l *Ledger, a Allocation, plan *Plan, lockedAt, now time.Time) {
	l.JudgeFeeDeducted = a.JudgeFeeDeducted
	l.SystemRetention = a.SystemRetention
	l.RewardPayout = a.RewardPayout
	l.Status = a.Status
	if l.LockedAt == nil {
		t := lockedAt
		l.LockedAt = &t
	}
	settledAt := now
	l.SettledAt = &settledAt
	if a.Forfeited && l.ForfeitedAt == nil {
		t := now
		l.ForfeitedAt = &t
	}
	l.SettlementNote = settlementNote(a, plan)
	l.UpdatedAt = now
}

func settlementNote(a Allocation, plan *Plan) string {
	outcome := "SETTLED_NO_PAYOUT"
	switch {
	case a.Forfeited:
		outcome = "FORFEITED"
	case a.Winner:
		outcome = "WINNER"
	}
	return fmt.Sprintf("SETTLEMENT_%s pool=%s judge_fee=%s system_retention=%s reward_pool=%s",
		outcome,
		usdc.String(plan.TotalPool),
		usdc.String(plan.JudgeFeeTotal),
		usdc.String(plan.SystemRetentionTotal),
		usdc.String(plan.RewardPool),
	)
}

// forfeitedAgents maps each forfeited match to its non-winning participant.
func forfeitedAgents(tournamentID string, matches []Match) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, m := range matches {
		if m.Status != MatchForfeited {
			continue
		}
		loser := forfeitedAgent(m)
		if loser == "" {
			return nil, fmt.Errorf("%w: tournament %s forfeited match %s does not identify a forfeited agent",
				ErrConsistencyViolation, tournamentID, m.ID)
		}
		out[loser] = struct{}{}
	}
	return out, nil
}

func forfeitedAgent(m Match) string {
	if m.Agent1ID == "" || m.Agent2ID == "" || m.WinnerAgentID == "" {
		return ""
	}
	switch m.WinnerAgentID {
	case m.Agent1ID:
		return m.Agent2ID
	case m.Agent2ID:
		return m.Agent1ID
	}
	return ""
}
