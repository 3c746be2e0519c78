package proofing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/biometric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) SetVerified(ctx context.Context, accountID string, verified bool) error {
	return m.Called(ctx, accountID, verified).Error(0)
}

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, rec *domain.IdentityVerificationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mockEvaluator struct{ mock.Mock }

func (m *mockEvaluator) Evaluate(ctx context.Context, accountID string, img []byte) (*biometric.Evaluation, error) {
	args := m.Called(ctx, accountID, img)
	if e, _ := args.Get(0).(*biometric.Evaluation); e != nil {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokenSigner struct{ mock.Mock }

func (m *mockTokenSigner) Sign(accountID, role string, verified bool) (string, error) {
	args := m.Called(accountID, role, verified)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newService(as *mockAccountStore, vs *mockVerificationStore, ev *mockEvaluator, ts *mockTokenSigner) Service {
	return NewService(ServiceDeps{
		Accounts:       as,
		Verifications:  vs,
		Evaluator:      ev,
		Tokens:         ts,
		MaxImageBytes:  5 * 1024 * 1024,
		MinImageWidth:  200,
		MinImageHeight: 200,
	})
}

func voterAccount() *domain.Account {
	return &domain.Account{AccountID: "acc-1", Role: domain.RoleVoter, Enable: true}
}

// --- VerifyIdentity ---

func TestVerifyIdentity_Genuine(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	ts := &mockTokenSigner{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	ev.On("Evaluate", mock.Anything, "acc-1", mock.Anything).Return(&biometric.Evaluation{
		Genuine: true, LivenessScore: 0.95, FaceConfidence: 0.92,
	}, nil)
	var stored *domain.IdentityVerificationRecord
	vs.On("Put", mock.Anything, mock.AnythingOfType("*domain.IdentityVerificationRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.IdentityVerificationRecord) }).
		Return(nil)
	as.On("SetVerified", mock.Anything, "acc-1", true).Return(nil)
	ts.On("Sign", "acc-1", domain.RoleVoter, true).Return("verified-token", nil)

	svc := newService(as, vs, ev, ts)
	res, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 320, 240),
	})

	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "verified-token", res.AccessToken)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OutcomeGenuine, stored.Outcome)
	assert.InDelta(t, 0.95, stored.LivenessScore, 1e-9)
	as.AssertExpectations(t)
}

func TestVerifyIdentity_RejectedDoesNotVerify(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	ev.On("Evaluate", mock.Anything, "acc-1", mock.Anything).Return(&biometric.Evaluation{
		Genuine: false, LivenessScore: 0.31, FaceConfidence: 0.4,
		Indicators: []string{domain.IndicatorLowLiveness},
	}, nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := newService(as, vs, ev, nil)
	res, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 320, 240),
	})

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Empty(t, res.AccessToken)
	assert.Contains(t, res.Indicators, domain.IndicatorLowLiveness)
	as.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyIdentity_ScoresAreBanded(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	ev.On("Evaluate", mock.Anything, "acc-1", mock.Anything).Return(&biometric.Evaluation{
		Genuine: false, LivenessScore: 0.4372, FaceConfidence: 0.6218,
		Indicators: []string{domain.IndicatorFaceMismatch},
	}, nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := newService(as, vs, ev, nil)
	res, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 320, 240),
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.40, res.LivenessScore, 1e-9)
	assert.InDelta(t, 0.60, res.FaceConfidence, 1e-9)
}

func TestVerifyIdentity_UndersizedImageRejectedWithoutEvaluator(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	var stored *domain.IdentityVerificationRecord
	vs.On("Put", mock.Anything, mock.AnythingOfType("*domain.IdentityVerificationRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.IdentityVerificationRecord) }).
		Return(nil)

	svc := newService(as, vs, ev, nil)
	res, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 100, 100),
	})

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Contains(t, res.Indicators, domain.IndicatorImageTooSmall)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OutcomeRejected, stored.Outcome)
	ev.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyIdentity_OversizedImage(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)

	svc := NewService(ServiceDeps{
		Accounts:       as,
		MaxImageBytes:  64,
		MinImageWidth:  200,
		MinImageHeight: 200,
	})
	_, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 320, 240),
	})

	require.ErrorIs(t, err, domain.ErrImageTooLarge)
}

func TestVerifyIdentity_GarbageImage(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)

	svc := newService(as, nil, nil, nil)
	_, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: "not base64 at all!!!",
	})

	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyIdentity_DataURLAccepted(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	ts := &mockTokenSigner{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	ev.On("Evaluate", mock.Anything, "acc-1", mock.Anything).Return(&biometric.Evaluation{
		Genuine: true, LivenessScore: 1, FaceConfidence: 1,
	}, nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	as.On("SetVerified", mock.Anything, "acc-1", true).Return(nil)
	ts.On("Sign", "acc-1", domain.RoleVoter, true).Return("tok", nil)

	svc := newService(as, vs, ev, ts)
	res, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: "data:image/png;base64," + pngBase64(t, 320, 240),
	})

	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestVerifyIdentity_EvaluatorUnavailable(t *testing.T) {
	as := &mockAccountStore{}
	vs := &mockVerificationStore{}
	ev := &mockEvaluator{}
	as.On("Get", mock.Anything, "acc-1").Return(voterAccount(), nil)
	ev.On("Evaluate", mock.Anything, "acc-1", mock.Anything).Return(nil, domain.ErrEvaluatorUnavailable)

	svc := newService(as, vs, ev, nil)
	_, err := svc.VerifyIdentity(context.Background(), "acc-1", VerifyIdentityRequest{
		LivePhoto: pngBase64(t, 320, 240),
	})

	require.ErrorIs(t, err, domain.ErrEvaluatorUnavailable)
	// No record without an evaluation.
	vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestBand(t *testing.T) {
	assert.InDelta(t, 0.95, band(0.97), 1e-9)
	assert.InDelta(t, 0.90, band(0.9499), 1e-9)
	assert.InDelta(t, 0.0, band(-0.2), 1e-9)
	assert.InDelta(t, 1.0, band(1.3), 1e-9)
}
