package domain

import "time"

// Roles. Voters and candidates authenticate with MFA; admins are exempt.
const (
	RoleVoter     = "voter"
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// MFA delivery channels.
const (
	MfaNone  = "none"
	MfaEmail = "email"
	MfaSMS   = "sms"
)

// Account is an authenticated identity. Accounts are retained for audit and
// never deleted, only deactivated via Enable.
type Account struct {
	AccountID       string     `json:"id" dynamodbav:"account_id"`
	Username        string     `json:"username" dynamodbav:"username"`
	Email           string     `json:"email" dynamodbav:"email"`
	Phone           *string    `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash"`
	Role            string     `json:"role" dynamodbav:"role"`
	MfaType         string     `json:"mfa_type" dynamodbav:"mfa_type"`
	VoterID         string     `json:"voter_id,omitempty" dynamodbav:"voter_id"`
	Verified        bool       `json:"verified" dynamodbav:"verified"`
	Voted           bool       `json:"voted" dynamodbav:"voted"`
	FailedLogins    int        `json:"-" dynamodbav:"failed_logins"`
	LockedUntil     *time.Time `json:"-" dynamodbav:"locked_until"`
	AuthorizedAdmin bool       `json:"-" dynamodbav:"authorized_admin"`
	Enable          bool       `json:"enable" dynamodbav:"enable"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Locked reports whether the account is under an active lockout at now.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// MfaRequired reports whether login must go through a challenge.
func (a *Account) MfaRequired() bool {
	return a.MfaType != "" && a.MfaType != MfaNone
}

type RegisterVoterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email"`
	VoterID  string `json:"voter_id" validate:"required"`
	Phone    *string `json:"phone"`
}

type RegisterCandidateRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email"`
}

type RegisterAdminRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email"`
}

// RollEntry is a row in the master voter roll used to gate voter registration.
type RollEntry struct {
	VoterID    string `json:"voter_id" dynamodbav:"voter_id"`
	NationalID string `json:"national_id" dynamodbav:"national_id"`
	Name       string `json:"name" dynamodbav:"name"`
	Eligible   bool   `json:"eligible" dynamodbav:"eligible"`
}
