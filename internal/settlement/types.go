package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerStatus string

const (
	LedgerEntered   LedgerStatus = "ENTERED"
	LedgerSettled   LedgerStatus = "SETTLED"
	LedgerForfeited LedgerStatus = "FORFEITED"
)

type TournamentStatus string

const (
	TournamentScheduled  TournamentStatus = "SCHEDULED"
	TournamentInProgress TournamentStatus = "IN_PROGRESS"
	TournamentCompleted  TournamentStatus = "COMPLETED"
)

type EntryStatus string

const (
	EntryPendingPayment EntryStatus = "PENDING_PAYMENT"
	EntryConfirmed      EntryStatus = "CONFIRMED"
	EntryForfeited      EntryStatus = "FORFEITED"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "PENDING"
	MatchCompleted MatchStatus = "COMPLETED"
	MatchForfeited MatchStatus = "FORFEITED"
)

type Tournament struct {
	ID               string           `json:"tournament_id"`
	Title            string           `json:"title"`
	Status           TournamentStatus `json:"status"`
	EntryFee         decimal.Decimal  `json:"entry_fee_usdc"`
	WinnerAgentID    string           `json:"winner_agent_id,omitempty"`
	MatchesCompleted int              `json:"matches_completed"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

type Match struct {
	ID            string      `json:"match_id"`
	TournamentID  string      `json:"tournament_id"`
	Agent1ID      string      `json:"agent1_id,omitempty"`
	Agent2ID      string      `json:"agent2_id,omitempty"`
	WinnerAgentID string      `json:"winner_agent_id,omitempty"`
	Status        MatchStatus `json:"status"`
}

type Entry struct {
	ID            string      `json:"entry_id"`
	TournamentID  string      `json:"tournament_id"`
	AgentID       string      `json:"agent_id"`
	WalletAddress string      `json:"wallet_address"`
	Status        EntryStatus `json:"status"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Ledger is one participant's stake. Amount columns other than AmountStaked
// and the timestamps are written only by settlement.
type Ledger struct {
	StakeID          string          `json:"stake_id"`
	TournamentID     string          `json:"tournament_id"`
	AgentID          string          `json:"agent_id"`
	WalletAddress    string          `json:"wallet_address"`
	AmountStaked     decimal.Decimal `json:"amount_staked"`
	JudgeFeeDeducted decimal.Decimal `json:"judge_fee_deducted"`
	SystemRetention  decimal.Decimal `json:"system_retention"`
	RewardPayout     decimal.Decimal `json:"reward_payout"`
	Status           LedgerStatus    `json:"status"`
	LockedAt         *time.Time      `json:"locked_at,omitempty"`
	ForfeitedAt      *time.Time      `json:"forfeited_at,omitempty"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
	SettlementNote   string          `json:"settlement_note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
