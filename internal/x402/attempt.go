package x402

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tournament-settlement/internal/usdc"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	StatusPendingVerification = "PENDING_VERIFICATION"
	StatusAuthorized          = "AUTHORIZED"
	StatusRejected            = "REJECTED"
)

// Attempt is one submitted payment claim, kept for audit and replay checks.
type Attempt struct {
	ID                 string          `json:"id"`
	TournamentID       string          `json:"tournament_id"`
	AgentID            string          `json:"agent_id"`
	WalletAddress      string          `json:"wallet_address"`
	RequestNonce       string          `json:"request_nonce"`
	IdempotencyKey     string          `json:"idempotency_key"`
	AuthorizationNonce string          `json:"authorization_nonce,omitempty"`
	Status             string          `json:"status"`
	ClaimJSON          json.RawMessage `json:"payment_header_json"`
	AmountAuthorized   decimal.Decimal `json:"amount_authorized"`
	ChainID            int64           `json:"chain_id"`
	RecipientAddress   string          `json:"recipient_address"`
	ChallengeExpiresAt time.Time       `json:"challenge_expires_at"`
	ReceivedAt         time.Time       `json:"received_at"`
	FailureReason      string          `json:"failure_reason,omitempty"`
	VerifiedAt         *time.Time      `json:"verified_at,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AttemptStore persists attempts. InsertPaymentAttempt must return an error
// wrapping ErrDuplicateAttempt when a uniqueness constraint rejects the row.
type AttemptStore interface {
	PaymentAttemptExistsByRequestNonce(ctx context.Context, wallet, requestNonce string) (bool, error)
	PaymentAttemptExistsByIdempotencyKey(ctx context.Context, wallet, idempotencyKey string) (bool, error)
	InsertPaymentAttempt(ctx context.Context, a Attempt) (string, error)
	// MarkPaymentAttempt writes the verification outcome columns of a.
	MarkPaymentAttempt(ctx context.Context, a Attempt) error
}

type AttemptInput struct {
	TournamentID   string
	AgentID        string
	WalletAddress  string
	FallbackAmount decimal.Decimal
	RawClaim       string
}

type Recorder struct {
	store    AttemptStore
	settings Settings
	now      func() time.Time
}

func NewRecorder(st AttemptStore, settings Settings) *Recorder {
	return &Recorder{store: st, settings: settings, now: time.Now}
}

// RecordPendingAttempt parses the claim and stores it as PENDING_VERIFICATION.
// The pre-checks only save a write; the store's unique constraints decide
// concurrent duplicates.
func (r *Recorder) RecordPendingAttempt(ctx context.Context, in AttemptInput) (*Attempt, *Claim, error) {
	claim, err := ParseClaim(in.RawClaim)
	if err != nil {
		return nil, nil, err
	}
	walletAddr, err := normalizeAddress(in.WalletAddress, "walletAddress")
	if err != nil {
		return nil, nil, err
	}
	wallet := HexAddress(walletAddr)

	exists, err := r.store.PaymentAttemptExistsByRequestNonce(ctx, wallet, claim.RequestNonce)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		log.Info().Str("wallet", wallet).Str("request_nonce", claim.RequestNonce).Msg("payment replay rejected")
		return nil, nil, replayRejected("duplicate request nonce for wallet: %s", claim.RequestNonce)
	}
	exists, err = r.store.PaymentAttemptExistsByIdempotencyKey(ctx, wallet, claim.IdempotencyKey)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		log.Info().Str("wallet", wallet).Str("idempotency_key", claim.IdempotencyKey).Msg("payment replay rejected")
		return nil, nil, replayRejected("duplicate idempotency key for wallet: %s", claim.IdempotencyKey)
	}

	now := r.now()
	amount := in.FallbackAmount
	if claim.Amount != nil {
		amount = *claim.Amount
	}
	chainID := r.settings.ChainID
	if claim.ChainID != nil {
		chainID = *claim.ChainID
	}
	recipient := HexAddress(r.settings.SettlementAddress)
	if claim.Recipient != "" {
		recipient = claim.Recipient
	}

	attempt := Attempt{
		TournamentID:       in.TournamentID,
		AgentID:            in.AgentID,
		WalletAddress:      wallet,
		RequestNonce:       claim.RequestNonce,
		IdempotencyKey:     claim.IdempotencyKey,
		AuthorizationNonce: claim.AuthorizationNonce,
		Status:             StatusPendingVerification,
		ClaimJSON:          compactRaw(claim.Raw),
		AmountAuthorized:   usdc.Round(amount),
		ChainID:            chainID,
		RecipientAddress:   recipient,
		ChallengeExpiresAt: now.Add(r.settings.ChallengeTTL()),
		ReceivedAt:         now,
		UpdatedAt:          now,
	}
	id, err := r.store.InsertPaymentAttempt(ctx, attempt)
	if err != nil {
		if errors.Is(err, ErrDuplicateAttempt) {
			log.Info().Str("wallet", wallet).Str("request_nonce", claim.RequestNonce).Msg("payment replay rejected on insert")
			return nil, nil, replayRejected("duplicate payment authorization replay key for wallet")
		}
		return nil, nil, err
	}
	attempt.ID = id
	return &attempt, claim, nil
}

// RecordOutcome moves a pending attempt to AUTHORIZED with the verified
// amount, chain, recipient and nonce, or to REJECTED with the verification
// message. Errors other than *Error leave the row pending. The attempt row
// keeps its replay keys either way.
func (r *Recorder) RecordOutcome(ctx context.Context, attempt *Attempt, verified *VerifiedAuthorization, verifyErr error) (*Attempt, error) {
	if attempt == nil {
		return nil, errors.New("record outcome: nil attempt")
	}
	out := *attempt
	now := r.now()
	switch {
	case verifyErr == nil && verified != nil:
		verifiedAt := now
		out.Status = StatusAuthorized
		out.AmountAuthorized = usdc.Round(verified.Amount)
		out.ChainID = verified.ChainID
		out.RecipientAddress = HexAddress(verified.To)
		out.AuthorizationNonce = verified.Nonce
		out.FailureReason = ""
		out.VerifiedAt = &verifiedAt
	case verifyErr != nil:
		var xerr *Error
		if !errors.As(verifyErr, &xerr) {
			return attempt, nil
		}
		out.Status = StatusRejected
		out.FailureReason = xerr.Message
	default:
		return attempt, nil
	}
	out.UpdatedAt = now
	if err := r.store.MarkPaymentAttempt(ctx, out); err != nil {
		return nil, err
	}
	log.Info().
		Str("payment_attempt_id", out.ID).
		Str("status", out.Status).
		Str("failure_reason", out.FailureReason).
		Msg("payment attempt verified")
	return &out, nil
}
