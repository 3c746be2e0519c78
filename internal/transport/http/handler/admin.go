package handler

import (
	"encoding/json"
	"net/http"

	"github.com/election-trust-api/internal/application/account"
	"github.com/election-trust-api/internal/application/analytics"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the administrative review endpoints: logs, verification
// summaries, population stats, tally entry and account deactivation.
type AdminHandler struct {
	analytics analytics.Service
	accounts  account.Service
}

func NewAdminHandler(analyticsSvc analytics.Service, accountSvc account.Service) *AdminHandler {
	return &AdminHandler{analytics: analyticsSvc, accounts: accountSvc}
}

func (h *AdminHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.UserStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ActivityLog(w http.ResponseWriter, r *http.Request) {
	events, err := h.analytics.ActivityLog(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": events})
}

func (h *AdminHandler) SecurityLog(w http.ResponseWriter, r *http.Request) {
	events, err := h.analytics.SecurityLog(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": events})
}

func (h *AdminHandler) IdentityVerifications(w http.ResponseWriter, r *http.Request) {
	records, err := h.analytics.VerificationSummaries(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"verifications": records})
}

func (h *AdminHandler) EnterTally(w http.ResponseWriter, r *http.Request) {
	var req domain.TallyEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tally, err := h.analytics.EnterTally(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tally)
}

func (h *AdminHandler) ListTallies(w http.ResponseWriter, r *http.Request) {
	tallies, err := h.analytics.Tallies(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tallies": tallies})
}

func (h *AdminHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account id required")
		return
	}
	if err := h.accounts.Deactivate(r.Context(), accountID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deactivated"})
}
