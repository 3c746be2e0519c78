package handler

import (
	"encoding/json"
	"net/http"

	"github.com/election-trust-api/internal/application/proofing"
	"github.com/election-trust-api/internal/pkg/validate"
	"github.com/election-trust-api/internal/transport/http/middleware"
)

// IdentityHandler handles biometric identity proofing.
type IdentityHandler struct {
	svc proofing.Service
}

func NewIdentityHandler(svc proofing.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

func (h *IdentityHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req proofing.VerifyIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.VerifyIdentity(r.Context(), claims.AccountID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
