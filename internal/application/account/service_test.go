package account

import (
	"context"
	"testing"

	"github.com/election-trust-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Put(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Deactivate(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}
func (m *mockAccountStore) CountByRole(ctx context.Context, role string) (int, int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Int(1), args.Error(2)
}

type mockRollStore struct{ mock.Mock }

func (m *mockRollStore) Get(ctx context.Context, voterID string) (*domain.RollEntry, error) {
	args := m.Called(ctx, voterID)
	if e, _ := args.Get(0).(*domain.RollEntry); e != nil {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockChallengeIssuer struct{ mock.Mock }

func (m *mockChallengeIssuer) Issue(ctx context.Context, account *domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

// --- helpers ---

func newService(as *mockAccountStore, rs *mockRollStore, ci *mockChallengeIssuer) Service {
	return NewService(ServiceDeps{
		Accounts:   as,
		Roll:       rs,
		Challenges: ci,
		BcryptCost: bcrypt.MinCost,
	})
}

func voterRequest() domain.RegisterVoterRequest {
	return domain.RegisterVoterRequest{
		Username: "alice",
		Password: "correct horse battery",
		Email:    "alice@example.com",
		VoterID:  "V-100",
	}
}

// --- RegisterVoter ---

func TestRegisterVoter_OK(t *testing.T) {
	as := &mockAccountStore{}
	rs := &mockRollStore{}
	ci := &mockChallengeIssuer{}
	rs.On("Get", mock.Anything, "V-100").Return(&domain.RollEntry{VoterID: "V-100", Eligible: true}, nil)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	var stored *domain.Account
	as.On("Put", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Account) }).
		Return(nil)
	ci.On("Issue", mock.Anything, mock.Anything).Return(nil)

	svc := newService(as, rs, ci)
	res, err := svc.RegisterVoter(context.Background(), voterRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.RoleVoter, res.Role)
	assert.True(t, res.CodeSent)
	require.NotNil(t, stored)
	assert.False(t, stored.Verified)
	assert.False(t, stored.Voted)
	assert.True(t, stored.Enable)
	assert.Equal(t, "V-100", stored.VoterID)
	assert.NotEqual(t, "correct horse battery", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse battery")))
}

func TestRegisterVoter_NotOnRoll(t *testing.T) {
	rs := &mockRollStore{}
	rs.On("Get", mock.Anything, "V-100").Return(nil, domain.ErrNotFound)

	svc := newService(nil, rs, nil)
	_, err := svc.RegisterVoter(context.Background(), voterRequest())

	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegisterVoter_Ineligible(t *testing.T) {
	rs := &mockRollStore{}
	rs.On("Get", mock.Anything, "V-100").Return(&domain.RollEntry{VoterID: "V-100", Eligible: false}, nil)

	svc := newService(nil, rs, nil)
	_, err := svc.RegisterVoter(context.Background(), voterRequest())

	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegisterVoter_UsernameTaken(t *testing.T) {
	as := &mockAccountStore{}
	rs := &mockRollStore{}
	rs.On("Get", mock.Anything, "V-100").Return(&domain.RollEntry{VoterID: "V-100", Eligible: true}, nil)
	as.On("GetByUsername", mock.Anything, "alice").Return(&domain.Account{AccountID: "other"}, nil)

	svc := newService(as, rs, nil)
	_, err := svc.RegisterVoter(context.Background(), voterRequest())

	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterVoter_PhonePrefersSMS(t *testing.T) {
	phone := "+15550001111"
	req := voterRequest()
	req.Phone = &phone

	as := &mockAccountStore{}
	rs := &mockRollStore{}
	ci := &mockChallengeIssuer{}
	rs.On("Get", mock.Anything, "V-100").Return(&domain.RollEntry{VoterID: "V-100", Eligible: true}, nil)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	as.On("Put", mock.Anything, mock.Anything).Return(nil)
	ci.On("Issue", mock.Anything, mock.Anything).Return(nil)

	svc := newService(as, rs, ci)
	res, err := svc.RegisterVoter(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, domain.MfaSMS, res.MfaType)
}

func TestRegisterVoter_DeliveryFailureDoesNotFailRegistration(t *testing.T) {
	as := &mockAccountStore{}
	rs := &mockRollStore{}
	ci := &mockChallengeIssuer{}
	rs.On("Get", mock.Anything, "V-100").Return(&domain.RollEntry{VoterID: "V-100", Eligible: true}, nil)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	as.On("Put", mock.Anything, mock.Anything).Return(nil)
	ci.On("Issue", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := newService(as, rs, ci)
	res, err := svc.RegisterVoter(context.Background(), voterRequest())

	require.NoError(t, err)
	assert.False(t, res.CodeSent)
}

// --- RegisterAdmin ---

func TestRegisterAdmin_FirstIsAuthorized(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByUsername", mock.Anything, "root").Return(nil, domain.ErrNotFound)
	as.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(0, 0, nil)
	var stored *domain.Account
	as.On("Put", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Account) }).
		Return(nil)

	svc := newService(as, nil, nil)
	res, err := svc.RegisterAdmin(context.Background(), domain.RegisterAdminRequest{
		Username: "root", Password: "super-secret-pw", Email: "root@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Role)
	assert.False(t, res.CodeSent)
	require.NotNil(t, stored)
	assert.True(t, stored.AuthorizedAdmin)
	assert.Equal(t, domain.MfaNone, stored.MfaType)
}

func TestRegisterAdmin_SecondIsUnauthorized(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByUsername", mock.Anything, "root2").Return(nil, domain.ErrNotFound)
	as.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(1, 0, nil)
	var stored *domain.Account
	as.On("Put", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Account) }).
		Return(nil)

	svc := newService(as, nil, nil)
	_, err := svc.RegisterAdmin(context.Background(), domain.RegisterAdminRequest{
		Username: "root2", Password: "super-secret-pw", Email: "root2@example.com",
	})

	require.NoError(t, err)
	assert.False(t, stored.AuthorizedAdmin)
}

// --- Deactivate ---

func TestDeactivate_OK(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc-1").Return(&domain.Account{AccountID: "acc-1", Enable: true}, nil)
	as.On("Deactivate", mock.Anything, "acc-1").Return(nil)

	svc := newService(as, nil, nil)
	require.NoError(t, svc.Deactivate(context.Background(), "acc-1"))
	as.AssertExpectations(t)
}

func TestDeactivate_NotFound(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newService(as, nil, nil)
	require.ErrorIs(t, svc.Deactivate(context.Background(), "ghost"), domain.ErrNotFound)
}
