// Package actor enforces actor separation on governance-affecting actions.
//
// Every action declares who is performing it: the issuer, a platform admin,
// or the system itself. The guard checks the declaration against the action
// catalog and against the authenticated principal before anything is
// persisted. This is a security boundary: every failure is fatal,
// non-retryable, and logged at critical severity.
package actor

import (
	"context"
	"log/slog"
	"time"

	"equitygate/pkg/attrs"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/requestcontext"
)

// Type declares who performs an action.
type Type string

const (
	TypeIssuer Type = "issuer"
	TypeAdmin  Type = "admin"
	TypeSystem Type = "system"
)

var validTypes = map[Type]bool{
	TypeIssuer: true,
	TypeAdmin:  true,
	TypeSystem: true,
}

// The three disjoint action allow-lists. An action restricted to one actor
// type can never be recorded under another, regardless of the caller's
// roles.
var (
	issuerActions = map[audit.Action]bool{
		audit.ActionDisclosureSubmitted:    true,
		audit.ActionClarificationResponded: true,
		audit.ActionCompanyProfileUpdated:  true,
	}
	adminActions = map[audit.Action]bool{
		audit.ActionDisclosureApproved:     true,
		audit.ActionDisclosureRejected:     true,
		audit.ActionClarificationRequested: true,
		audit.ActionTierPromoted:           true,
		audit.ActionCompanySuspended:       true,
		audit.ActionCompanyReinstated:      true,
		audit.ActionBuyingToggled:          true,
	}
	systemActions = map[audit.Action]bool{
		audit.ActionGovernanceStateUpdated:    true,
		audit.ActionPlatformAssertionsUpdated: true,
		audit.ActionAuditExported:             true,
	}
)

// requiredType returns the actor type an action is restricted to, if any.
func requiredType(action audit.Action) (Type, bool) {
	switch {
	case issuerActions[action]:
		return TypeIssuer, true
	case adminActions[action]:
		return TypeAdmin, true
	case systemActions[action]:
		return TypeSystem, true
	}
	return "", false
}

// TrailCarrier is implemented by entities that keep an on-row append-only
// audit trail next to their other columns.
type TrailCarrier interface {
	RecordTrail(at time.Time, action, actorType, actorID, summary string)
}

// RecordRequest describes a governance action about to be recorded.
type RecordRequest struct {
	Action     audit.Action
	ActorType  Type
	ActorID    string
	EntityKind string
	EntityID   string
	Payload    map[string]any

	// Target optionally receives an on-row trail entry on success.
	Target TrailCarrier
}

// Guard validates actor declarations and records accepted actions.
type Guard struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
	metrics   *Metrics
}

func NewGuard(pub *publisher.Publisher, logger *slog.Logger, metrics *Metrics) *Guard {
	return &Guard{publisher: pub, logger: logger, metrics: metrics}
}

// RecordAction validates the declared actor against the action catalog and
// the authenticated principal, then writes the audit record. Validation
// steps run in order and short-circuit with a distinct error; the principal
// and request metadata come from context, never from ambient state.
func (g *Guard) RecordAction(ctx context.Context, req RecordRequest) error {
	// 1. Required fields.
	if req.Action == "" {
		return g.reject(ctx, req, dErrors.New(dErrors.CodeValidation, "action_type is required"))
	}
	if req.ActorType == "" {
		return g.reject(ctx, req, dErrors.New(dErrors.CodeValidation, "actor_type is required"))
	}
	if req.ActorType != TypeSystem && req.ActorID == "" {
		return g.reject(ctx, req, dErrors.New(dErrors.CodeValidation, "actor_id is required"))
	}

	// 2. Actor type is one of the three valid values.
	if !validTypes[req.ActorType] {
		return g.reject(ctx, req, dErrors.Newf(dErrors.CodeValidation, "invalid actor_type: %s", req.ActorType))
	}

	// 3. Action not restricted to a different actor type.
	if required, restricted := requiredType(req.Action); restricted && required != req.ActorType {
		return g.reject(ctx, req, dErrors.Newf(dErrors.CodeSecurityViolation,
			"action %s is restricted to actor type %s, declared %s", req.Action, required, req.ActorType))
	}

	// 4. Principal consistency with the declared actor type.
	principal, authenticated := requestcontext.Principal(ctx)
	switch req.ActorType {
	case TypeSystem:
		if authenticated {
			return g.reject(ctx, req, dErrors.New(dErrors.CodeSecurityViolation,
				"system actions must not carry an authenticated principal"))
		}
	case TypeIssuer:
		if !authenticated || !principal.HasCompany() || principal.IsAdmin() {
			return g.reject(ctx, req, dErrors.New(dErrors.CodeSecurityViolation,
				"issuer actions require a company-associated, non-admin principal"))
		}
	case TypeAdmin:
		if !authenticated || !principal.IsAdmin() || principal.HasCompany() {
			return g.reject(ctx, req, dErrors.New(dErrors.CodeSecurityViolation,
				"admin actions require an admin principal with no company association"))
		}
	}

	// 5. Anti-impersonation: declared actor id must be the principal's own.
	if req.ActorType != TypeSystem && req.ActorID != principal.UserID.String() {
		return g.reject(ctx, req, dErrors.New(dErrors.CodeSecurityViolation,
			"declared actor_id does not match the authenticated principal"))
	}

	return g.accept(ctx, req, principal)
}

func (g *Guard) accept(ctx context.Context, req RecordRequest, principal id.Principal) error {
	now := requestcontext.Now(ctx)

	event := audit.Event{
		Action:         string(req.Action),
		ActorType:      string(req.ActorType),
		ActorID:        req.ActorID,
		ActorAuthority: principal.Roles,
		EntityKind:     req.EntityKind,
		EntityID:       req.EntityID,
		Payload:        req.Payload,
		Timestamp:      now,
	}
	if err := g.publisher.Emit(ctx, event); err != nil {
		return err
	}

	if req.Target != nil {
		req.Target.RecordTrail(now, string(req.Action), string(req.ActorType), req.ActorID, "")
	}
	if g.metrics != nil {
		g.metrics.actionsRecorded.WithLabelValues(string(req.ActorType)).Inc()
	}
	return nil
}

// reject logs the violation at critical severity and emits a security audit
// event before surfacing the error. There is no downgrade path: actor
// mismatches are treated as attack signals even in development. The log
// attribute list is the single source for the event's subject and reason.
func (g *Guard) reject(ctx context.Context, req RecordRequest, cause error) error {
	attrList := []any{
		"severity", "critical",
		"action", string(req.Action),
		"actor_type", string(req.ActorType),
		"actor_id", req.ActorID,
		"entity_kind", req.EntityKind,
		"entity_id", req.EntityID,
		"ip", requestcontext.ClientIP(ctx),
		"reason", cause.Error(),
	}
	if g.logger != nil {
		g.logger.ErrorContext(ctx, "actor separation violation", attrList...)
	}
	if g.metrics != nil {
		g.metrics.violations.WithLabelValues(string(dErrors.CodeOf(cause))).Inc()
	}
	if g.publisher != nil {
		// Best effort alongside the rejection; the action itself never runs.
		_ = g.publisher.Emit(ctx, audit.Event{
			Action:     string(audit.ActionActorViolation),
			Severity:   audit.SeverityCritical,
			ActorType:  string(req.ActorType),
			ActorID:    attrs.ExtractString(attrList, "actor_id"),
			EntityKind: req.EntityKind,
			EntityID:   req.EntityID,
			Reason:     attrs.ExtractString(attrList, "reason"),
			Payload:    map[string]any{"attempted_action": string(req.Action)},
		})
	}
	return cause
}
