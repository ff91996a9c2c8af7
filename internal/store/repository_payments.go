package store

import (
	"context"
	"fmt"

	"tournament-settlement/internal/x402"

	"github.com/jackc/pgx/v5/pgtype"
)

const paymentAttemptColumns = `id, tournament_id, agent_id, wallet_address, request_nonce, idempotency_key,
	authorization_nonce, status, payment_header_json::text, amount_authorized::text, chain_id,
	recipient_address, challenge_expires_at, received_at, failure_reason, verified_at, updated_at`

func (s *Store) PaymentAttemptExistsByRequestNonce(ctx context.Context, wallet, requestNonce string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_authorizations WHERE wallet_address = $1 AND request_nonce = $2)`,
		wallet, requestNonce,
	).Scan(&exists)
	return exists, err
}

func (s *Store) PaymentAttemptExistsByIdempotencyKey(ctx context.Context, wallet, idempotencyKey string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_authorizations WHERE wallet_address = $1 AND idempotency_key = $2)`,
		wallet, idempotencyKey,
	).Scan(&exists)
	return exists, err
}

// InsertPaymentAttempt stores a new attempt. A hit on either replay index is
// reported as x402.ErrDuplicateAttempt.
func (s *Store) InsertPaymentAttempt(ctx context.Context, a x402.Attempt) (string, error) {
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.ReceivedAt
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_authorizations (
			id, tournament_id, agent_id, wallet_address, request_nonce, idempotency_key,
			authorization_nonce, status, payment_header_json, amount_authorized, chain_id,
			recipient_address, challenge_expires_at, received_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10::numeric,$11,$12,$13,$14,$14,$15)`,
		a.ID, a.TournamentID, a.AgentID, a.WalletAddress, a.RequestNonce, a.IdempotencyKey,
		textParam(a.AuthorizationNonce), a.Status, string(a.ClaimJSON), numericParam(a.AmountAuthorized), a.ChainID,
		a.RecipientAddress, a.ChallengeExpiresAt, a.ReceivedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert payment attempt: %w", x402.ErrDuplicateAttempt)
		}
		return "", err
	}
	return a.ID, nil
}

// MarkPaymentAttempt records a verification outcome. Replay keys and the raw
// claim are never rewritten.
func (s *Store) MarkPaymentAttempt(ctx context.Context, a x402.Attempt) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE payment_authorizations
		SET status = $2, amount_authorized = $3::numeric, chain_id = $4, recipient_address = $5,
		    authorization_nonce = $6, failure_reason = $7, verified_at = $8, updated_at = $9
		WHERE id = $1`,
		a.ID, a.Status, numericParam(a.AmountAuthorized), a.ChainID, a.RecipientAddress,
		textParam(a.AuthorizationNonce), textParam(a.FailureReason), timeParam(a.VerifiedAt), a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListPaymentAttempts(ctx context.Context, tournamentID string, limit, offset int) ([]x402.Attempt, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+paymentAttemptColumns+`
		FROM payment_authorizations
		WHERE tournament_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, tournamentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []x402.Attempt
	for rows.Next() {
		var (
			a         x402.Attempt
			authNonce pgtype.Text
			failure   pgtype.Text
			verified  pgtype.Timestamptz
			claim     string
			amount    string
		)
		if err := rows.Scan(
			&a.ID, &a.TournamentID, &a.AgentID, &a.WalletAddress, &a.RequestNonce, &a.IdempotencyKey,
			&authNonce, &a.Status, &claim, &amount, &a.ChainID,
			&a.RecipientAddress, &a.ChallengeExpiresAt, &a.ReceivedAt, &failure, &verified, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.AuthorizationNonce = textVal(authNonce)
		a.FailureReason = textVal(failure)
		a.VerifiedAt = timePtrVal(verified)
		a.ClaimJSON = []byte(claim)
		if a.AmountAuthorized, err = numericVal("amount_authorized", amount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
