// Package publisher provides the audit emit paths used by the guards.
//
// Compliance events use fail-closed semantics: the caller blocks until the
// outbox write succeeds, and if it fails the calling operation MUST fail.
// Security events are best-effort for warning severity but fail-closed at
// critical severity, since a lost critical finding is itself a security
// incident.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/requestcontext"
)

// Publisher routes audit events to the store with category-appropriate
// delivery semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting and the structured audit line.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an audit event. Returns an error when the event's delivery
// semantics are fail-closed (compliance category, or critical severity) and
// persistence failed; the caller must then fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.Action(event.Action).Category()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	if event.DeviceSummary == "" {
		event.DeviceSummary = audit.DeviceSummary(event.UserAgent)
	}

	p.logLine(ctx, event)

	start := time.Now()
	err := p.store.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.observeAppend(string(event.Category), err == nil, time.Since(start))
	}
	if err == nil {
		return nil
	}

	failClosed := event.Category == audit.CategoryCompliance || event.Severity == audit.SeverityCritical
	if !failClosed {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed, event dropped",
				"action", event.Action,
				"category", event.Category,
				"error", err,
			)
		}
		return nil
	}
	return fmt.Errorf("audit append failed for fail-closed event %q: %w", event.Action, err)
}

func (p *Publisher) logLine(ctx context.Context, event audit.Event) {
	if p.logger == nil {
		return
	}
	attrs := []any{
		"log_type", "audit",
		"action", event.Action,
		"category", event.Category,
		"actor_type", event.ActorType,
		"actor_id", event.ActorID,
		"entity_kind", event.EntityKind,
		"entity_id", event.EntityID,
		"ip", event.IP,
		"request_id", event.RequestID,
	}
	if event.Decision != "" {
		attrs = append(attrs, "decision", event.Decision)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	switch event.Severity {
	case audit.SeverityCritical:
		p.logger.ErrorContext(ctx, event.Action, attrs...)
	case audit.SeverityWarning:
		p.logger.WarnContext(ctx, event.Action, attrs...)
	default:
		p.logger.InfoContext(ctx, event.Action, attrs...)
	}
}
