package settlement

import "github.com/shopspring/decimal"

type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadySettled Outcome = "already_settled"
	OutcomeNotApplied     Outcome = "not_applied"
)

const (
	ReasonApplied                = "APPLIED"
	ReasonAlreadySettled         = "ALREADY_SETTLED"
	ReasonTournamentNotFound     = "TOURNAMENT_NOT_FOUND"
	ReasonTournamentNotCompleted = "TOURNAMENT_NOT_COMPLETED"
	ReasonNoLedgerRows           = "NO_LEDGER_ROWS"
)

// Result reports what one settlement call did. Totals are set only when
// Outcome is OutcomeApplied.
type Result struct {
	TournamentID         string           `json:"tournament_id"`
	Outcome              Outcome          `json:"outcome"`
	Reason               string           `json:"reason"`
	TotalPool            *decimal.Decimal `json:"total_pool,omitempty"`
	TotalJudgeFee        *decimal.Decimal `json:"total_judge_fee,omitempty"`
	TotalSystemRetention *decimal.Decimal `json:"total_system_retention,omitempty"`
	TotalRewardPayout    *decimal.Decimal `json:"total_reward_payout,omitempty"`
}

func (r Result) Applied() bool {
	return r.Outcome == OutcomeApplied
}

func appliedResult(tournamentID string, p *Plan) Result {
	pool, fee, retention, reward := p.TotalPool, p.JudgeFeeTotal, p.SystemRetentionTotal, p.RewardPool
	return Result{
		TournamentID:         tournamentID,
		Outcome:              OutcomeApplied,
		Reason:               ReasonApplied,
		TotalPool:            &pool,
		TotalJudgeFee:        &fee,
		TotalSystemRetention: &retention,
		TotalRewardPayout:    &reward,
	}
}

func alreadySettled(tournamentID string) Result {
	return Result{TournamentID: tournamentID, Outcome: OutcomeAlreadySettled, Reason: ReasonAlreadySettled}
}

func notApplied(tournamentID, reason string) Result {
	return Result{TournamentID: tournamentID, Outcome: OutcomeNotApplied, Reason: reason}
}
