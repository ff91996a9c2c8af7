package store

import (
	"context"
	"errors"
	"time"

	"tournament-settlement/internal/settlement"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var ErrInvalidTournamentState = errors.New("invalid_tournament_state")

const tournamentColumns = `id, title, status, entry_fee_usdc::text, winner_agent_id, matches_completed, started_at, completed_at`

func scanTournament(row pgx.Row) (*settlement.Tournament, error) {
	var (
		t         settlement.Tournament
		fee       string
		winner    pgtype.Text
		started   pgtype.Timestamptz
		completed pgtype.Timestamptz
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &fee, &winner, &t.MatchesCompleted, &started, &completed); err != nil {
		return nil, err
	}
	var err error
	if t.EntryFee, err = numericVal("entry_fee_usdc", fee); err != nil {
		return nil, err
	}
	t.WinnerAgentID = textVal(winner)
	t.StartedAt = timePtrVal(started)
	t.CompletedAt = timePtrVal(completed)
	return &t, nil
}

func (s *Store) CreateTournament(ctx context.Context, title string, entryFee decimal.Decimal) (string, error) {
	id := NewID()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tournaments (id, title, status, entry_fee_usdc) VALUES ($1, $2, $3, $4::numeric)`,
		id, title, settlement.TournamentScheduled, numericParam(entryFee),
	)
	return id, err
}

func (s *Store) GetTournament(ctx context.Context, id string) (*settlement.Tournament, error) {
	t, err := scanTournament(s.Pool.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return t, nil
}

func (s *Store) StartTournament(ctx context.Context, id string, now time.Time) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, err := lockTournamentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != settlement.TournamentScheduled {
			return ErrInvalidTournamentState
		}
		_, err = tx.Exec(ctx, `
			UPDATE tournaments SET status = $2, started_at = COALESCE(started_at, $3), updated_at = $3
			WHERE id = $1`,
			id, settlement.TournamentInProgress, now,
		)
		return err
	})
}

// CompleteTournament records the bracket outcome that settlement reads.
func (s *Store) CompleteTournament(ctx context.Context, id, winnerAgentID string, matchesCompleted int, now time.Time) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		status, err := lockTournamentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status == settlement.TournamentCompleted {
			return ErrInvalidTournamentState
		}
		_, err = tx.Exec(ctx, `
			UPDATE tournaments
			SET status = $2, winner_agent_id = $3, matches_completed = $4, completed_at = $5, updated_at = $5
			WHERE id = $1`,
			id, settlement.TournamentCompleted, textParam(winnerAgentID), matchesCompleted, now,
		)
		return err
	})
}

// lockTournamentStatus returns ErrNotFound for an unknown id.
func lockTournamentStatus(ctx context.Context, tx pgx.Tx, id string) (settlement.TournamentStatus, error) {
	var status string
	if err := tx.QueryRow(ctx, `SELECT status FROM tournaments WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		return "", mapNotFound(err)
	}
	return settlement.TournamentStatus(status), nil
}

func (s *Store) CreateMatch(ctx context.Context, m settlement.Match, round, position int) (string, error) {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Status == "" {
		m.Status = settlement.MatchPending
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO matches (id, tournament_id, agent1_id, agent2_id, winner_agent_id, status, bracket_round, bracket_position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.TournamentID, textParam(m.Agent1ID), textParam(m.Agent2ID), textParam(m.WinnerAgentID), m.Status, round, position,
	)
	if isForeignKeyViolation(err) {
		return "", ErrNotFound
	}
	return m.ID, err
}

type ConfirmEntryInput struct {
	TournamentID  string
	AgentID       string
	WalletAddress string
	Amount        decimal.Decimal
	Now           time.Time
}

// ConfirmEntry marks the agent's entry CONFIRMED and opens its stake ledger
// row. Repeating it for the same agent returns the existing rows with
// created=false.
func (s *Store) ConfirmEntry(ctx context.Context, in ConfirmEntryInput) (entry *settlement.Entry, ledger *settlement.Ledger, created bool, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		status, err := lockTournamentStatus(ctx, tx, in.TournamentID)
		if err != nil {
			return err
		}
		if status == settlement.TournamentCompleted {
			return ErrInvalidTournamentState
		}

		e := settlement.Entry{TournamentID: in.TournamentID, AgentID: in.AgentID}
		if err := tx.QueryRow(ctx, `
			INSERT INTO tournament_entries (id, tournament_id, agent_id, wallet_address, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			ON CONFLICT (tournament_id, agent_id) DO UPDATE
			SET status = CASE WHEN tournament_entries.status = $7 THEN EXCLUDED.status ELSE tournament_entries.status END,
			    updated_at = EXCLUDED.updated_at
			RETURNING id, wallet_address, status, updated_at`,
			NewID(), in.TournamentID, in.AgentID, in.WalletAddress, settlement.EntryConfirmed, in.Now, settlement.EntryPendingPayment,
		).Scan(&e.ID, &e.WalletAddress, &e.Status, &e.UpdatedAt); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO stake_ledgers (stake_id, tournament_id, entry_id, agent_id, wallet_address, amount_staked, status)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
			ON CONFLICT (entry_id) DO NOTHING`,
			NewID(), in.TournamentID, e.ID, in.AgentID, e.WalletAddress, numericParam(in.Amount), settlement.LedgerEntered,
		)
		if err != nil {
			return err
		}
		created = tag.RowsAffected() == 1

		l, err := scanLedger(tx.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM stake_ledgers WHERE entry_id = $1`, e.ID))
		if err != nil {
			return err
		}
		entry, ledger = &e, l
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return entry, ledger, created, nil
}

func (s *Store) ListLedgers(ctx context.Context, tournamentID string, limit, offset int) ([]settlement.Ledger, error) {
	return queryLedgers(ctx, s.Pool, `
		SELECT `+ledgerColumns+`
		FROM stake_ledgers
		WHERE tournament_id = $1
		ORDER BY created_at, stake_id
		LIMIT $2 OFFSET $3`, tournamentID, limit, offset)
}

// GetEntry returns ErrNotFound when the agent has not entered.
func (s *Store) GetEntry(ctx context.Context, tournamentID, agentID string) (*settlement.Entry, error) {
	var e settlement.Entry
	err := s.Pool.QueryRow(ctx, `
		SELECT id, tournament_id, agent_id, wallet_address, status, updated_at
		FROM tournament_entries
		WHERE tournament_id = $1 AND agent_id = $2`, tournamentID, agentID,
	).Scan(&e.ID, &e.TournamentID, &e.AgentID, &e.WalletAddress, &e.Status, &e.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

// ListSettlementCandidates returns completed tournaments that still have
// unsettled ledger rows, oldest completion first.
func (s *Store) ListSettlementCandidates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT t.id
		FROM tournaments t
		WHERE t.status = $1
		  AND EXISTS (SELECT 1 FROM stake_ledgers l WHERE l.tournament_id = t.id AND l.settled_at IS NULL)
		ORDER BY t.completed_at NULLS FIRST, t.id
		LIMIT $2`, settlement.TournamentCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
