package handler

import (
	"encoding/json"
	"net/http"

	"github.com/election-trust-api/internal/application/voting"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/pkg/validate"
	"github.com/election-trust-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// VoteHandler handles ballot casting and receipt verification.
type VoteHandler struct {
	svc voting.Service
}

func NewVoteHandler(svc voting.Service) *VoteHandler {
	return &VoteHandler{svc: svc}
}

func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := voting.Caller{AccountID: claims.AccountID, Role: claims.Role, Verified: claims.Verified}
	result, err := h.svc.CastVote(r.Context(), caller, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *VoteHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction id required")
		return
	}
	vote, err := h.svc.VerifyReceipt(r.Context(), transactionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (h *VoteHandler) ElectionData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ElectionData(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
