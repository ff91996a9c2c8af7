package store

import (
	"context"
	"errors"

	"tournament-settlement/internal/settlement"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ledgerColumns = `stake_id, tournament_id, agent_id, wallet_address,
	amount_staked::text, judge_fee_deducted::text, system_retention::text, reward_payout::text,
	status, locked_at, forfeited_at, settled_at, settlement_note, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanLedger(row pgx.Row) (*settlement.Ledger, error) {
	var (
		l                                settlement.Ledger
		staked, fee, retention, payout   string
		lockedAt, forfeitedAt, settledAt pgtype.Timestamptz
		note                             pgtype.Text
	)
	if err := row.Scan(
		&l.StakeID, &l.TournamentID, &l.AgentID, &l.WalletAddress,
		&staked, &fee, &retention, &payout,
		&l.Status, &lockedAt, &forfeitedAt, &settledAt, &note, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if l.AmountStaked, err = numericVal("amount_staked", staked); err != nil {
		return nil, err
	}
	if l.JudgeFeeDeducted, err = numericVal("judge_fee_deducted", fee); err != nil {
		return nil, err
	}
	if l.SystemRetention, err = numericVal("system_retention", retention); err != nil {
		return nil, err
	}
	if l.RewardPayout, err = numericVal("reward_payout", payout); err != nil {
		return nil, err
	}
	l.LockedAt = timePtrVal(lockedAt)
	l.ForfeitedAt = timePtrVal(forfeitedAt)
	l.SettledAt = timePtrVal(settledAt)
	l.SettlementNote = textVal(note)
	return &l, nil
}

func queryLedgers(ctx context.Context, q querier, sql string, args ...any) ([]settlement.Ledger, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []settlement.Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// InSettlementTx runs fn in one transaction. Rows locked through the Tx stay
// locked until commit or rollback.
func (s *Store) InSettlementTx(ctx context.Context, fn func(tx settlement.Tx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&settlementTx{tx: tx})
	})
}

type settlementTx struct {
	tx pgx.Tx
}

func (t *settlementTx) LockTournament(ctx context.Context, tournamentID string) (*settlement.Tournament, error) {
	tour, err := scanTournament(t.tx.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, settlement.ErrTournamentNotFound
	}
	return tour, err
}

func (t *settlementTx) LockLedgers(ctx context.Context, tournamentID string) ([]settlement.Ledger, error) {
	return queryLedgers(ctx, t.tx,
		`SELECT `+ledgerColumns+` FROM stake_ledgers WHERE tournament_id = $1 ORDER BY created_at, stake_id FOR UPDATE`,
		tournamentID)
}

func (t *settlementTx) ListMatches(ctx context.Context, tournamentID string) ([]settlement.Match, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, tournament_id, agent1_id, agent2_id, winner_agent_id, status
		FROM matches
		WHERE tournament_id = $1
		ORDER BY bracket_round, bracket_position, created_at`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []settlement.Match
	for rows.Next() {
		var (
			m                      settlement.Match
			agent1, agent2, winner pgtype.Text
		)
		if err := rows.Scan(&m.ID, &m.TournamentID, &agent1, &agent2, &winner, &m.Status); err != nil {
			return nil, err
		}
		m.Agent1ID, m.Agent2ID, m.WinnerAgentID = textVal(agent1), textVal(agent2), textVal(winner)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *settlementTx) ListEntries(ctx context.Context, tournamentID string) ([]settlement.Entry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, tournament_id, agent_id, wallet_address, status, updated_at
		FROM tournament_entries
		WHERE tournament_id = $1
		ORDER BY created_at, id`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []settlement.Entry
	for rows.Next() {
		var e settlement.Entry
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.AgentID, &e.WalletAddress, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *settlementTx) UpdateLedgers(ctx context.Context, ledgers []settlement.Ledger) error {
	batch := &pgx.Batch{}
	for _, l := range ledgers {
		batch.Queue(`
			UPDATE stake_ledgers
			SET judge_fee_deducted = $2::numeric, system_retention = $3::numeric, reward_payout = $4::numeric,
			    status = $5, locked_at = $6, forfeited_at = $7, settled_at = $8, settlement_note = $9, updated_at = $10
			WHERE stake_id = $1`,
			l.StakeID, numericParam(l.JudgeFeeDeducted), numericParam(l.SystemRetention), numericParam(l.RewardPayout),
			l.Status, timeParam(l.LockedAt), timeParam(l.ForfeitedAt), timeParam(l.SettledAt), textParam(l.SettlementNote), l.UpdatedAt,
		)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *settlementTx) UpdateEntries(ctx context.Context, entries []settlement.Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`UPDATE tournament_entries SET status = $2, updated_at = $3 WHERE id = $1`, e.ID, e.Status, e.UpdatedAt)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}
