package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
	"notes-credit-ledger/internal/infra/metrics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps ledger errors onto HTTP statuses. Raw error text only
// goes to the client for expected domain errors; everything else is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientCredit):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrRefundExceedsDeduction), errors.Is(err, domain.ErrSubscriptionNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrLockTimeout):
		http.Error(w, "Service busy, retry shortly", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// ---- admin session ----

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.apiKey == "" || req.Key != s.apiKey {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("failed to mint admin session")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logoutHandler(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ---- user routes ----

func (s *Server) balanceHandler(w http.ResponseWriter, r *http.Request) {
	bal, err := s.balanceUC.Balance(r.Context(), userIDFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}

	txns, err := s.ledgerUC.Transactions(r.Context(), userIDFrom(r), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []*model.CreditTransaction `json:"data"`
		Limit  int                        `json:"limit"`
		Offset int                        `json:"offset"`
	}{Data: txns, Limit: limit, Offset: offset})
}

type noteResponse struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Status         string        `json:"status"`
	ChargedMinutes model.Minutes `json:"charged_minutes"`
	Content        string        `json:"content,omitempty"`
	FailureMessage string        `json:"failure_message,omitempty"`
}

func (s *Server) noteGetHandler(w http.ResponseWriter, r *http.Request) {
	note, err := s.noteRepo.FindByID(r.Context(), repository.NoTX, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if note.UserID != userIDFrom(r) {
		// Hide other users' notes entirely.
		http.NotFound(w, r)
		return
	}

	resp := noteResponse{
		ID:             note.ID,
		Title:          note.Title,
		Status:         string(note.Status),
		ChargedMinutes: note.ChargedMinutes,
	}
	if note.Status == model.NoteStatusCompleted && note.Content != "" {
		plain, err := s.enc.Decrypt(note.Content)
		if err != nil {
			s.log.Error().Err(err).Str("note_id", note.ID).Msg("stored note content failed to decrypt")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		resp.Content = plain
	}
	if note.Status == model.NoteStatusFailed && note.FailureCategory != model.FailureNone {
		resp.FailureMessage = s.translator.T(string(note.FailureCategory))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) creditCheckHandler(w http.ResponseWriter, r *http.Request) {
	check, err := s.ledgerUC.CheckRequiredCredit(r.Context(), userIDFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// ---- public ----

func (s *Server) plansListHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planRepo.ListActive(r.Context(), repository.NoTX)
	if err != nil {
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Plan `json:"data"`
	}{Data: plans})
}

// ---- admin routes ----

func (s *Server) activateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		PlanID string `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := s.subUC.Activate(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.ObserveLedgerEntry(string(model.TransactionTypePurchase), sub.MaxMinutes.Float64())
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.subUC.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bonusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string        `json:"user_id"`
		SubscriptionID string        `json:"subscription_id"`
		Minutes        model.Minutes `json:"minutes"`
		Description    string        `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	txn, err := s.ledgerUC.GrantBonus(r.Context(), req.UserID, req.SubscriptionID, req.Minutes, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.ObserveLedgerEntry(string(txn.Type), txn.Amount.Float64())
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) planCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string        `json:"name"`
		DurationDays int           `json:"duration_days"`
		MaxMinutes   model.Minutes `json:"max_minutes"`
		MaxNotebooks int           `json:"max_notebooks"`
		PriceIRR     int64         `json:"price_irr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan, err := model.NewPlan(uuid.NewString(), req.Name, req.DurationDays, req.MaxMinutes, req.MaxNotebooks, req.PriceIRR)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.planRepo.Save(r.Context(), repository.NoTX, plan); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}
