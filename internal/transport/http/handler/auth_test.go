package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/election-trust-api/internal/application/authn"
	"github.com/election-trust-api/internal/application/mfa"
	"github.com/election-trust-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAuthnService struct{ mock.Mock }

func (m *mockAuthnService) Login(ctx context.Context, req authn.LoginRequest) (*authn.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*authn.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMfaService struct{ mock.Mock }

func (m *mockMfaService) Issue(ctx context.Context, account *domain.Account) error {
	return m.Called(ctx, account).Error(0)
}
func (m *mockMfaService) Verify(ctx context.Context, req mfa.VerifyRequest) (*mfa.VerifyResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*mfa.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMfaService) Resend(ctx context.Context, req mfa.ResendRequest) error {
	return m.Called(ctx, req).Error(0)
}

func TestLoginHandler_OK(t *testing.T) {
	svc := &mockAuthnService{}
	svc.On("Login", mock.Anything, authn.LoginRequest{Username: "alice", Password: "pw"}).
		Return(&authn.LoginResult{MfaRequired: true, MfaType: "email", AccountID: "acc-1"}, nil)

	h := NewAuthHandler(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"alice","password":"pw"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"mfa_required":true`)
	assert.NotContains(t, rr.Body.String(), "access_token")
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := &mockAuthnService{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidCredentials)

	h := NewAuthHandler(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginHandler_LockedMapsToForbidden(t *testing.T) {
	svc := &mockAuthnService{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrAccountLocked)

	h := NewAuthHandler(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"alice","password":"pw"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoginHandler_BadBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthnService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{broken"))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h := NewAuthHandler(&mockAuthnService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"alice"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyOTPHandler_OK(t *testing.T) {
	svc := &mockMfaService{}
	svc.On("Verify", mock.Anything, mfa.VerifyRequest{AccountID: "acc-1", Code: "4321"}).
		Return(&mfa.VerifyResult{AccessToken: "tok", Role: "voter"}, nil)

	h := NewAuthHandler(nil, svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/verify-otp", strings.NewReader(`{"user_id":"acc-1","otp":"4321"}`))
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"access_token":"tok"`)
}

func TestVerifyOTPHandler_Expired(t *testing.T) {
	svc := &mockMfaService{}
	svc.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrCodeExpired)

	h := NewAuthHandler(nil, svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/verify-otp", strings.NewReader(`{"user_id":"acc-1","otp":"0000"}`))
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestResendOTPHandler_Cooldown(t *testing.T) {
	svc := &mockMfaService{}
	svc.On("Resend", mock.Anything, mfa.ResendRequest{AccountID: "acc-1"}).Return(domain.ErrResendCooldown)

	h := NewAuthHandler(nil, svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/resend-otp", strings.NewReader(`{"user_id":"acc-1"}`))
	rr := httptest.NewRecorder()
	h.ResendOTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}
