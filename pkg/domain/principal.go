package domain

import "slices"

// RoleAdmin marks platform staff. Admin principals must not carry a company
// association; the actor guard enforces that separation.
const RoleAdmin = "admin"

// RoleIssuer marks users acting on behalf of a listed company.
const RoleIssuer = "issuer"

// Principal is the authenticated caller, resolved by the auth layer and
// passed explicitly through context. Guards never consult ambient session
// state; everything they need about the caller lives here.
type Principal struct {
	UserID    UserID
	CompanyID CompanyID // nil when the user has no company association
	Roles     []string
}

// HasCompany reports whether the principal is associated with a company.
func (p Principal) HasCompany() bool { return !p.CompanyID.IsNil() }

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool { return slices.Contains(p.Roles, RoleAdmin) }

// IsZero reports whether no authenticated principal is present.
func (p Principal) IsZero() bool {
	return p.UserID.IsNil() && p.CompanyID.IsNil() && len(p.Roles) == 0
}
