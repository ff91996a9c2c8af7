package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tournament-settlement/internal/settlement"
	"tournament-settlement/internal/store"
	"tournament-settlement/internal/x402"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type EntryHandlers struct {
	deps Deps
}

func NewEntryHandlers(d Deps) *EntryHandlers {
	return &EntryHandlers{deps: d}
}

type entryResponse struct {
	Entry            *settlement.Entry           `json:"entry"`
	Ledger           *settlement.Ledger          `json:"ledger"`
	Created          bool                        `json:"created"`
	PaymentAttemptID string                      `json:"payment_attempt_id,omitempty"`
	Authorization    *x402.VerifiedAuthorization `json:"authorization,omitempty"`
}

// EntryPrice resolves the tournament's entry fee for the 402 challenge.
func (h *EntryHandlers) EntryPrice(r *http.Request) (decimal.Decimal, bool) {
	t, err := h.deps.Store.GetTournament(r.Context(), chi.URLParam(r, "tournament_id"))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return t.EntryFee, true
}

// Enter records the payment claim, verifies it against the entry fee, stores
// the verification outcome and confirms the entry. An agent that already
// holds an entry gets 409 before any claim is recorded. Without x402 enabled
// the entry is confirmed unpaid and repeat calls return the existing entry.
func (h *EntryHandlers) Enter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tournamentID := chi.URLParam(r, "tournament_id")
		tournament, err := h.deps.Store.GetTournament(ctx, tournamentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		var body struct {
			AgentID       string `json:"agent_id"`
			WalletAddress string `json:"wallet_address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		body.AgentID = strings.TrimSpace(body.AgentID)
		body.WalletAddress = strings.TrimSpace(body.WalletAddress)
		if body.AgentID == "" || body.WalletAddress == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		resp := entryResponse{}
		wallet := strings.ToLower(body.WalletAddress)
		if h.deps.Payments.Enabled {
			if entered, err := h.alreadyEntered(ctx, tournamentID, body.AgentID); err != nil {
				log.Error().Err(err).Str("tournament_id", tournamentID).Msg("lookup entry")
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
				return
			} else if entered {
				WriteHTTPError(w, http.StatusConflict, "already_entered")
				return
			}
			attempt, claim, err := h.deps.Recorder.RecordPendingAttempt(ctx, x402.AttemptInput{
				TournamentID:   tournamentID,
				AgentID:        body.AgentID,
				WalletAddress:  body.WalletAddress,
				FallbackAmount: tournament.EntryFee,
				RawClaim:       r.Header.Get(h.deps.Payments.PaymentHeader),
			})
			if err != nil {
				h.writePaymentError(w, err)
				return
			}
			verified, verifyErr := h.deps.Verifier.Verify(claim, body.WalletAddress, tournament.EntryFee)
			if attempt, err = h.deps.Recorder.RecordOutcome(ctx, attempt, verified, verifyErr); err != nil {
				log.Error().Err(err).Str("tournament_id", tournamentID).Msg("record payment outcome")
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			if verifyErr != nil {
				log.Info().Err(verifyErr).Str("tournament_id", tournamentID).Str("agent_id", body.AgentID).
					Str("payment_attempt_id", attempt.ID).Msg("payment verification failed")
				h.writePaymentError(w, verifyErr)
				return
			}
			resp.PaymentAttemptID = attempt.ID
			resp.Authorization = verified
			wallet = attempt.WalletAddress
		}

		entry, ledger, created, err := h.deps.Store.ConfirmEntry(ctx, store.ConfirmEntryInput{
			TournamentID:  tournamentID,
			AgentID:       body.AgentID,
			WalletAddress: wallet,
			Amount:        tournament.EntryFee,
			Now:           h.deps.now(),
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
			case errors.Is(err, store.ErrInvalidTournamentState):
				WriteHTTPError(w, http.StatusConflict, "tournament_closed")
			default:
				log.Error().Err(err).Str("tournament_id", tournamentID).Msg("confirm entry")
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		if h.deps.Payments.Enabled && !created {
			// A concurrent paid entry for the same agent committed first.
			WriteHTTPError(w, http.StatusConflict, "already_entered")
			return
		}
		paymentAttempts.WithLabelValues("accepted").Inc()
		if created {
			entriesConfirmed.Inc()
		}
		resp.Entry, resp.Ledger, resp.Created = entry, ledger, created

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, resp)
	}
}

func (h *EntryHandlers) alreadyEntered(ctx context.Context, tournamentID, agentID string) (bool, error) {
	e, err := h.deps.Store.GetEntry(ctx, tournamentID, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status != settlement.EntryPendingPayment, nil
}

func (h *EntryHandlers) writePaymentError(w http.ResponseWriter, err error) {
	var xerr *x402.Error
	if errors.As(err, &xerr) {
		paymentAttempts.WithLabelValues(xerr.Code()).Inc()
		writeX402Error(w, xerr)
		return
	}
	paymentAttempts.WithLabelValues("internal_error").Inc()
	log.Error().Err(err).Msg("record payment attempt")
	WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
}

func (h *EntryHandlers) Tournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.deps.Store.GetTournament(r.Context(), chi.URLParam(r, "tournament_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
