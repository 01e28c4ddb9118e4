// Package service evaluates investment eligibility and places orders.
//
// Evidence for a decision (company, user, any existing subscription) is
// fetched concurrently; the decision itself runs the policy chain over the
// complete evidence, in order. Denials are returned as data and recorded as
// compliance events; a blocked user's attempt is additionally recorded as a
// critical security event.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	cmodels "equitygate/internal/company/models"
	"equitygate/internal/investment/models"
	"equitygate/internal/investment/policy"
	umodels "equitygate/internal/user/models"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/platform/sentinel"
	"equitygate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

// CompanyReader loads the company side of the evidence.
type CompanyReader interface {
	FindByID(ctx context.Context, companyID id.CompanyID) (*cmodels.Company, error)
}

// UserReader loads the investor side of the evidence.
type UserReader interface {
	FindByID(ctx context.Context, userID id.UserID) (*umodels.User, error)
}

// Store persists accepted orders.
type Store interface {
	Create(ctx context.Context, inv *models.Investment) error
	FindByID(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Investment, error)
	FindActiveSubscription(ctx context.Context, userID id.UserID, companyID id.CompanyID) (*models.Investment, error)
}

// Service is the investment entry point.
type Service struct {
	companies CompanyReader
	users     UserReader
	store     Store
	publisher *publisher.Publisher
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

func New(companies CompanyReader, users UserReader, store Store, pub *publisher.Publisher, logger *slog.Logger, metrics *Metrics) *Service {
	return &Service{
		companies: companies,
		users:     users,
		store:     store,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("equitygate/investment"),
	}
}

// evidence is everything a decision needs, gathered up front.
type evidence struct {
	company      *cmodels.Company
	user         *umodels.User
	subscription *models.Investment
}

// gather fetches the decision evidence concurrently. The subscription lookup
// only runs for top-ups.
func (s *Service) gather(ctx context.Context, userID id.UserID, companyID id.CompanyID, withSubscription bool) (evidence, error) {
	var ev evidence
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		company, err := s.companies.FindByID(ctx, companyID)
		if err != nil {
			return fmt.Errorf("load company: %w", err)
		}
		ev.company = company
		return nil
	})
	g.Go(func() error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		ev.user = user
		return nil
	})
	if withSubscription {
		g.Go(func() error {
			sub, err := s.store.FindActiveSubscription(ctx, userID, companyID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return fmt.Errorf("load subscription: %w", err)
			}
			ev.subscription = sub
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return evidence{}, err
	}
	return ev, nil
}

// Check evaluates eligibility without placing anything.
func (s *Service) Check(ctx context.Context, companyID id.CompanyID) (models.Decision, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return models.Decision{}, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}

	ctx, span := s.tracer.Start(ctx, "investment.check", trace.WithAttributes(
		attribute.String("company.id", companyID.String()),
	))
	defer span.End()

	ev, err := s.gather(ctx, principal.UserID, companyID, false)
	if err != nil {
		return models.Decision{}, err
	}
	decision := policy.Evaluate(ev.company, ev.user)
	if err := s.observe(ctx, ev, decision); err != nil {
		return models.Decision{}, err
	}
	span.SetAttributes(
		attribute.Bool("decision.allowed", decision.Allowed),
		attribute.String("decision.reason", decision.Reason),
	)
	return decision, nil
}

// Subscribe opens a recurring investment into a company.
func (s *Service) Subscribe(ctx context.Context, companyID id.CompanyID, amountCents int64) (*models.Investment, models.Decision, error) {
	return s.place(ctx, companyID, models.KindSubscription, amountCents)
}

// BuyShares places a one-off purchase.
func (s *Service) BuyShares(ctx context.Context, companyID id.CompanyID, amountCents int64) (*models.Investment, models.Decision, error) {
	return s.place(ctx, companyID, models.KindBuyShares, amountCents)
}

// TopUp adds funds to an existing active subscription. The eligibility chain
// runs first; the subscription requirement applies on top of it.
func (s *Service) TopUp(ctx context.Context, companyID id.CompanyID, amountCents int64) (*models.Investment, models.Decision, error) {
	return s.place(ctx, companyID, models.KindTopUp, amountCents)
}

// ListByUser returns the caller's investment history.
func (s *Service) ListByUser(ctx context.Context) ([]*models.Investment, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}
	return s.store.ListByUser(ctx, principal.UserID)
}

func (s *Service) place(ctx context.Context, companyID id.CompanyID, kind models.Kind, amountCents int64) (*models.Investment, models.Decision, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, models.Decision{}, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}
	if amountCents <= 0 {
		return nil, models.Decision{}, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}

	ctx, span := s.tracer.Start(ctx, "investment.place", trace.WithAttributes(
		attribute.String("company.id", companyID.String()),
		attribute.String("order.kind", string(kind)),
	))
	defer span.End()

	ev, err := s.gather(ctx, principal.UserID, companyID, kind == models.KindTopUp)
	if err != nil {
		return nil, models.Decision{}, err
	}

	decision := policy.Evaluate(ev.company, ev.user)
	if decision.Allowed && kind == models.KindTopUp && ev.subscription == nil {
		decision = models.Deny(models.ReasonNoActiveSubscription)
	}
	if err := s.observe(ctx, ev, decision); err != nil {
		return nil, models.Decision{}, err
	}
	span.SetAttributes(
		attribute.Bool("decision.allowed", decision.Allowed),
		attribute.String("decision.reason", decision.Reason),
	)
	if !decision.Allowed {
		return nil, decision, nil
	}

	inv, err := models.New(principal.UserID, companyID, kind, amountCents, requestcontext.Now(ctx))
	if err != nil {
		return nil, models.Decision{}, err
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, models.Decision{}, fmt.Errorf("create investment: %w", err)
	}
	if s.metrics != nil {
		s.metrics.observeOrder(string(kind))
	}
	return inv, decision, nil
}

// observe records the decision in metrics and the audit trail. Decision
// events are compliance-grade: if the append fails the operation fails with
// it. Blocked-user denials additionally get a critical log line and a
// critical security event.
func (s *Service) observe(ctx context.Context, ev evidence, decision models.Decision) error {
	if s.metrics != nil {
		s.metrics.observeDecision(decision.Allowed, decision.Reason)
	}

	action := audit.ActionInvestmentDenied
	outcome := "denied"
	if decision.Allowed {
		action = audit.ActionInvestmentAllowed
		outcome = "allowed"
	}

	if decision.Reason == models.ReasonUserBlocked {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "blocked user attempted to invest",
				"severity", "critical",
				"user_id", ev.user.ID.String(),
				"company_id", ev.company.ID.String(),
			)
		}
		if s.publisher != nil {
			if err := s.publisher.Emit(ctx, audit.Event{
				Action:     string(audit.ActionBlockedUserAttempt),
				Severity:   audit.SeverityCritical,
				ActorType:  "investor",
				ActorID:    ev.user.ID.String(),
				EntityKind: "company",
				EntityID:   ev.company.ID.String(),
				Decision:   outcome,
				Reason:     decision.Reason,
			}); err != nil {
				return err
			}
		}
	}

	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, audit.Event{
		Action:     string(action),
		ActorType:  "investor",
		ActorID:    ev.user.ID.String(),
		EntityKind: "company",
		EntityID:   ev.company.ID.String(),
		Decision:   outcome,
		Reason:     decision.Reason,
	})
}
