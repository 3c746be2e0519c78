package handler

import (
	"encoding/json"
	"net/http"

	"github.com/election-trust-api/internal/application/authn"
	"github.com/election-trust-api/internal/application/mfa"
	"github.com/election-trust-api/internal/pkg/validate"
)

// AuthHandler handles credential login and the MFA challenge round-trip.
type AuthHandler struct {
	authn authn.Service
	mfa   mfa.Service
}

func NewAuthHandler(authnSvc authn.Service, mfaSvc mfa.Service) *AuthHandler {
	return &AuthHandler{authn: authnSvc, mfa: mfaSvc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authn.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.authn.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req mfa.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.mfa.Verify(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req mfa.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.mfa.Resend(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}
