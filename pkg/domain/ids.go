// Package domain holds shared domain primitives: typed identifiers and the
// parse functions that enforce their invariants at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "equitygate/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types prevent cross-entity assignment at
// compile time; a CompanyID can never be passed where a UserID is expected.
type (
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	DisclosureID uuid.UUID
	VersionID    uuid.UUID
	InvestmentID uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Construct ids via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be empty", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company id")
	return CompanyID(u), err
}

func ParseDisclosureID(s string) (DisclosureID, error) {
	u, err := parseUUID(s, "disclosure id")
	return DisclosureID(u), err
}

func ParseVersionID(s string) (VersionID, error) {
	u, err := parseUUID(s, "version id")
	return VersionID(u), err
}

func ParseInvestmentID(s string) (InvestmentID, error) {
	u, err := parseUUID(s, "investment id")
	return InvestmentID(u), err
}

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewCompanyID() CompanyID       { return CompanyID(uuid.New()) }
func NewDisclosureID() DisclosureID { return DisclosureID(uuid.New()) }
func NewVersionID() VersionID       { return VersionID(uuid.New()) }
func NewInvestmentID() InvestmentID { return InvestmentID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CompanyID) String() string    { return uuid.UUID(id).String() }
func (id DisclosureID) String() string { return uuid.UUID(id).String() }
func (id VersionID) String() string    { return uuid.UUID(id).String() }
func (id InvestmentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DisclosureID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id InvestmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
