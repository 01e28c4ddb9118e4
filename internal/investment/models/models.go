// Package models defines investment orders and the eligibility decision
// type.
package models

import (
	"time"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Kind is the order type.
type Kind string

const (
	// KindSubscription opens a recurring investment into one company.
	KindSubscription Kind = "subscription"
	// KindBuyShares is a one-off share purchase.
	KindBuyShares Kind = "buy_shares"
	// KindTopUp adds funds to an existing active subscription.
	KindTopUp Kind = "top_up"
)

var validKinds = map[Kind]bool{
	KindSubscription: true,
	KindBuyShares:    true,
	KindTopUp:        true,
}

// ParseKind validates an order kind at trust boundaries.
func ParseKind(s string) (Kind, error) {
	kind := Kind(s)
	if !validKinds[kind] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown investment kind: %s", s)
	}
	return kind, nil
}

// Status of an investment record.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Investment is one accepted order.
type Investment struct {
	ID          id.InvestmentID
	UserID      id.UserID
	CompanyID   id.CompanyID
	Kind        Kind
	AmountCents int64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates an active investment record.
func New(userID id.UserID, companyID id.CompanyID, kind Kind, amountCents int64, now time.Time) (*Investment, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "company id is required")
	}
	if !validKinds[kind] {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown investment kind: %s", kind)
	}
	if amountCents <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return &Investment{
		ID:          id.NewInvestmentID(),
		UserID:      userID,
		CompanyID:   companyID,
		Kind:        kind,
		AmountCents: amountCents,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Decision is an eligibility outcome. A denial is ordinary data, not an
// error: callers branch on Allowed and surface Reason to the investor.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Denial reason codes, ordered by evaluation stage. The first failing check
// wins; later checks never run.
const (
	ReasonCompanyNotOpen        = "company_not_open"
	ReasonCompanyBuyingDisabled = "company_buying_disabled"
	ReasonCompanySuspended      = "company_suspended"
	ReasonKYCRequired           = "kyc_required"
	ReasonAccountNotActive      = "account_not_active"
	ReasonUserBlocked           = "user_blocked"
	ReasonNoActiveSubscription  = "no_active_subscription"
)

// Allow is the single positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a denial with its reason code.
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }
