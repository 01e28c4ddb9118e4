package audit

import (
	"time"

	"github.com/mssola/useragent"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: disclosure approvals, tier promotions, investment decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics. Examples: actor violations, impersonation attempts,
	// field-ownership violations, blocked-user investment attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for security-relevant events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from the guards to capture governance actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category       EventCategory
	Severity       Severity
	Timestamp      time.Time
	Action         string
	ActorType      string
	ActorID        string
	ActorAuthority []string
	EntityKind     string
	EntityID       string
	IP             string
	UserAgent      string
	DeviceSummary  string
	RequestID      string
	Decision       string
	Reason         string
	Payload        map[string]any
}

// Action is the catalog of governance-affecting actions. The actor guard's
// three disjoint allow-lists are built from these.
type Action string

const (
	// Issuer actions
	ActionDisclosureSubmitted    Action = "disclosure_submitted"
	ActionClarificationResponded Action = "clarification_responded"
	ActionCompanyProfileUpdated  Action = "company_profile_updated"

	// Admin actions
	ActionDisclosureApproved     Action = "disclosure_approved"
	ActionDisclosureRejected     Action = "disclosure_rejected"
	ActionClarificationRequested Action = "clarification_requested"
	ActionTierPromoted           Action = "tier_promoted"
	ActionCompanySuspended       Action = "company_suspended"
	ActionCompanyReinstated      Action = "company_reinstated"
	ActionBuyingToggled          Action = "buying_toggled"

	// System actions
	ActionGovernanceStateUpdated    Action = "governance_state_updated"
	ActionPlatformAssertionsUpdated Action = "platform_assertions_updated"
	ActionAuditExported             Action = "audit_exported"

	// Investment outcomes (policy decisions, not actor-guarded actions)
	ActionInvestmentAllowed Action = "investment_allowed"
	ActionInvestmentDenied  Action = "investment_denied"

	// Guard violations
	ActionActorViolation          Action = "actor_violation"
	ActionFieldOwnershipViolation Action = "field_ownership_violation"
	ActionBlockedUserAttempt      Action = "blocked_user_investment_attempt"
)

// eventCategories maps each action to its category.
var eventCategories = map[Action]EventCategory{
	ActionDisclosureSubmitted:    CategoryCompliance,
	ActionDisclosureApproved:     CategoryCompliance,
	ActionDisclosureRejected:     CategoryCompliance,
	ActionClarificationRequested: CategoryOperations,
	ActionClarificationResponded: CategoryOperations,
	ActionCompanyProfileUpdated:  CategoryOperations,
	ActionTierPromoted:           CategoryCompliance,
	ActionCompanySuspended:       CategorySecurity,
	ActionCompanyReinstated:      CategoryOperations,
	ActionBuyingToggled:          CategoryOperations,

	ActionGovernanceStateUpdated:    CategoryOperations,
	ActionPlatformAssertionsUpdated: CategoryOperations,
	ActionAuditExported:             CategoryCompliance,

	ActionInvestmentAllowed: CategoryCompliance,
	ActionInvestmentDenied:  CategoryCompliance,

	ActionActorViolation:          CategorySecurity,
	ActionFieldOwnershipViolation: CategorySecurity,
	ActionBlockedUserAttempt:      CategorySecurity,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := eventCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// DeviceSummary renders a short human-readable device description from a raw
// User-Agent string, for the audit trail. Empty input yields empty output.
func DeviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		if summary != "" {
			summary += " on "
		}
		summary += os
	}
	if ua.Bot() {
		summary += " (bot)"
	}
	return summary
}
