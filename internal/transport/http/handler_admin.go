package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tournament-settlement/internal/settlement"
	"tournament-settlement/internal/store"
	"tournament-settlement/internal/usdc"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type AdminHandlers struct {
	deps Deps
}

func NewAdminHandlers(d Deps) *AdminHandlers {
	return &AdminHandlers{deps: d}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.deps.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) CreateTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title        string `json:"title"`
			EntryFeeUSDC string `json:"entry_fee_usdc"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		fee := h.deps.Payments.DefaultEntryFee
		if v := strings.TrimSpace(body.EntryFeeUSDC); v != "" {
			parsed, err := usdc.Parse(v)
			if err != nil || parsed.Sign() < 0 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			fee = parsed
		}
		id, err := h.deps.Store.CreateTournament(r.Context(), strings.TrimSpace(body.Title), usdc.Round(fee))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "tournament_id": id, "entry_fee_usdc": usdc.String(fee)})
	}
}

func (h *AdminHandlers) StartTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h.deps.Store.StartTournament(r.Context(), chi.URLParam(r, "tournament_id"), h.deps.now())
		if err != nil {
			writeTournamentStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) RecordMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Agent1ID        string `json:"agent1_id"`
			Agent2ID        string `json:"agent2_id"`
			WinnerAgentID   string `json:"winner_agent_id"`
			Status          string `json:"status"`
			BracketRound    int    `json:"bracket_round"`
			BracketPosition int    `json:"bracket_position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		status := settlement.MatchStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
		switch status {
		case settlement.MatchPending, settlement.MatchCompleted, settlement.MatchForfeited:
		default:
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		id, err := h.deps.Store.CreateMatch(r.Context(), settlement.Match{
			TournamentID:  chi.URLParam(r, "tournament_id"),
			Agent1ID:      body.Agent1ID,
			Agent2ID:      body.Agent2ID,
			WinnerAgentID: body.WinnerAgentID,
			Status:        status,
		}, body.BracketRound, body.BracketPosition)
		if err != nil {
			writeTournamentStateError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "match_id": id})
	}
}

func (h *AdminHandlers) CompleteTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WinnerAgentID    string `json:"winner_agent_id"`
			MatchesCompleted int    `json:"matches_completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(body.WinnerAgentID) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		err := h.deps.Store.CompleteTournament(r.Context(), chi.URLParam(r, "tournament_id"),
			strings.TrimSpace(body.WinnerAgentID), body.MatchesCompleted, h.deps.now())
		if err != nil {
			writeTournamentStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// Settle is the manual trigger; it is safe to call repeatedly.
func (h *AdminHandlers) Settle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID := chi.URLParam(r, "tournament_id")
		res, err := h.deps.Settler.SettleTournamentIfCompleted(r.Context(), tournamentID, h.deps.now())
		if err != nil {
			if errors.Is(err, settlement.ErrConsistencyViolation) {
				writeJSON(w, http.StatusConflict, map[string]any{"error": "settlement_consistency_violation", "message": err.Error()})
				return
			}
			log.Error().Err(err).Str("tournament_id", tournamentID).Msg("manual settlement")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.deps.Store.ListLedgers(r.Context(), chi.URLParam(r, "tournament_id"), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items), "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Payments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.deps.Store.ListPaymentAttempts(r.Context(), chi.URLParam(r, "tournament_id"), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items), "limit": limit, "offset": offset})
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeTournamentStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
	case errors.Is(err, store.ErrInvalidTournamentState):
		WriteHTTPError(w, http.StatusConflict, "invalid_tournament_state")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
