// Package models defines the investor/issuer user aggregate and the account
// states the eligibility policy reads.
package models

import (
	"time"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Status is the account lifecycle state. Only active accounts may invest.
type Status string

const (
	StatusActive  Status = "active"
	StatusDormant Status = "dormant"
	StatusClosed  Status = "closed"
)

var validStatuses = map[Status]bool{
	StatusActive:  true,
	StatusDormant: true,
	StatusClosed:  true,
}

// ParseStatus validates an account status at trust boundaries.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !validStatuses[status] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown account status: %s", s)
	}
	return status, nil
}

// User is a platform account. Investors carry no company association;
// issuer-side users carry the company they represent.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	CompanyID    id.CompanyID
	Roles        []string

	KYCVerified   bool
	KYCReviewedBy id.UserID
	KYCReviewedAt *time.Time

	Status    Status
	IsBlocked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active, unverified account.
func New(email string, now time.Time) (*User, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email cannot be empty")
	}
	return &User{
		ID:        id.NewUserID(),
		Email:     email,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Principal builds the request principal for this account.
func (u *User) Principal() id.Principal {
	return id.Principal{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		Roles:     append([]string(nil), u.Roles...),
	}
}

// MarkKYCVerified records a passed verification with its reviewer.
func (u *User) MarkKYCVerified(reviewer id.UserID, now time.Time) {
	u.KYCVerified = true
	u.KYCReviewedBy = reviewer
	u.KYCReviewedAt = &now
	u.UpdatedAt = now
}

// Block flags the account. Blocked accounts keep platform access but every
// investment attempt is denied and recorded as a security event.
func (u *User) Block(now time.Time) {
	u.IsBlocked = true
	u.UpdatedAt = now
}

// Unblock clears the flag.
func (u *User) Unblock(now time.Time) {
	u.IsBlocked = false
	u.UpdatedAt = now
}
