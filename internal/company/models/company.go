package models

import (
	"time"

	"equitygate/internal/governance/tier"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// LifecycleState is a company's investability status, distinct from its
// governance tier. The tier says how much the company has disclosed; the
// lifecycle state says whether the platform is taking orders for it.
type LifecycleState string

const (
	LifecycleOnboarding         LifecycleState = "onboarding"
	LifecyclePendingReview      LifecycleState = "pending_review"
	LifecycleLiveInvestable     LifecycleState = "live_investable"
	LifecycleLiveFullyDisclosed LifecycleState = "live_fully_disclosed"
	LifecycleClosed             LifecycleState = "closed"
)

var validLifecycles = map[LifecycleState]bool{
	LifecycleOnboarding:         true,
	LifecyclePendingReview:      true,
	LifecycleLiveInvestable:     true,
	LifecycleLiveFullyDisclosed: true,
	LifecycleClosed:             true,
}

// ParseLifecycleState validates a lifecycle state at trust boundaries.
func ParseLifecycleState(s string) (LifecycleState, error) {
	state := LifecycleState(s)
	if !validLifecycles[state] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown lifecycle state: %s", s)
	}
	return state, nil
}

// AcceptsOrders reports whether this lifecycle state permits order placement
// at all. The investment policy layers buying flags and suspension on top.
func (s LifecycleState) AcceptsOrders() bool {
	return s == LifecycleLiveInvestable || s == LifecycleLiveFullyDisclosed
}

// TrailEntry is one append-only line of a company's on-row audit trail.
// The full audit record lives in the outbox; this column keeps the recent
// history readable next to the entity.
type TrailEntry struct {
	At        time.Time `json:"at"`
	Action    string    `json:"action"`
	ActorType string    `json:"actor_type"`
	ActorID   string    `json:"actor_id"`
	Summary   string    `json:"summary,omitempty"`
}

// Company is the aggregate root for a listed issuer.
//
// Its mutable attributes partition into three mutually exclusive ownership
// domains whose union covers every mutable field:
//   - issuer truth: identity fields the issuer maintains
//   - governance state: lifecycle, tier, buying and suspension flags,
//     written only by the platform
//   - platform assertions: derived scores and notes, written only by the
//     platform
//
// A write touching a field outside the caller's domain is rejected before
// persistence; the ownership guard enforces this on every save.
type Company struct {
	ID id.CompanyID

	// Issuer truth
	Name        string
	LegalName   string
	Description string
	Website     string
	Sector      string
	Country     string
	FoundedYear int
	LogoURL     string

	// Governance state (platform-only)
	LifecycleState   LifecycleState
	Tier             tier.Tier
	BuyingEnabled    bool
	SuspendedAt      *time.Time
	SuspensionReason string
	TierAdvancedAt   *time.Time

	// Platform assertions (platform-only)
	RiskScore     int
	QualityScore  int
	PlatformNotes string

	AuditTrail []TrailEntry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New creates a company at the bottom of the governance ladder: tier
// pending, onboarding lifecycle, buying disabled.
func New(name string, now time.Time) (*Company, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "company name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "company name must be 128 characters or less")
	}
	return &Company{
		ID:             id.NewCompanyID(),
		Name:           name,
		LifecycleState: LifecycleOnboarding,
		Tier:           tier.Tier0Pending,
		BuyingEnabled:  false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsSuspended reports whether the company is currently suspended.
func (c *Company) IsSuspended() bool { return c.SuspendedAt != nil }

// AppendTrail adds an entry to the company's append-only audit trail.
func (c *Company) AppendTrail(entry TrailEntry) {
	c.AuditTrail = append(c.AuditTrail, entry)
}

// RecordTrail satisfies the actor guard's trail carrier interface.
func (c *Company) RecordTrail(at time.Time, action, actorType, actorID, summary string) {
	c.AppendTrail(TrailEntry{
		At:        at,
		Action:    action,
		ActorType: actorType,
		ActorID:   actorID,
		Summary:   summary,
	})
}

// CanPromote checks that target is the single next tier step.
func (c *Company) CanPromote(target tier.Tier) error {
	if !tier.CanPromoteTo(c.Tier, target) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"cannot promote from %s to %s: promotions advance exactly one tier", c.Tier, target)
	}
	return nil
}

// ApplyPromotion advances the company one tier. Call CanPromote first; the
// promotion service re-validates disclosure eligibility at call time.
func (c *Company) ApplyPromotion(target tier.Tier, now time.Time) {
	c.Tier = target
	c.TierAdvancedAt = &now
	c.UpdatedAt = now
}

// CanSuspend checks the company is not already suspended.
func (c *Company) CanSuspend() error {
	if c.IsSuspended() {
		return dErrors.New(dErrors.CodeInvariantViolation, "company is already suspended")
	}
	return nil
}

// ApplySuspension marks the company suspended.
func (c *Company) ApplySuspension(reason string, now time.Time) {
	c.SuspendedAt = &now
	c.SuspensionReason = reason
	c.UpdatedAt = now
}

// CanReinstate checks the company is currently suspended.
func (c *Company) CanReinstate() error {
	if !c.IsSuspended() {
		return dErrors.New(dErrors.CodeInvariantViolation, "company is not suspended")
	}
	return nil
}

// ApplyReinstatement clears the suspension.
func (c *Company) ApplyReinstatement(now time.Time) {
	c.SuspendedAt = nil
	c.SuspensionReason = ""
	c.UpdatedAt = now
}
