// Package service implements company governance operations: profile writes
// under field ownership, suspension and buying controls, and tier promotion.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"equitygate/internal/company/models"
	dmodels "equitygate/internal/disclosure/models"
	"equitygate/internal/governance/actor"
	"equitygate/internal/governance/ownership"
	"equitygate/internal/governance/requirements"
	"equitygate/internal/governance/tier"
	"equitygate/internal/platform/lockorder"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/requestcontext"
)

// Store persists company aggregates.
type Store interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	Save(ctx context.Context, company *models.Company) error
	List(ctx context.Context) ([]*models.Company, error)
}

// DisclosureLister exposes the disclosure records the promotion check reads.
type DisclosureLister interface {
	ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*dmodels.Disclosure, error)
}

// Service coordinates company writes through the governance guards.
type Service struct {
	store       Store
	disclosures DisclosureLister
	guard       *actor.Guard
	locker      lockorder.Locker
	publisher   *publisher.Publisher
	logger      *slog.Logger
}

func New(store Store, disclosures DisclosureLister, guard *actor.Guard, locker lockorder.Locker, pub *publisher.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		disclosures: disclosures,
		guard:       guard,
		locker:      locker,
		publisher:   pub,
		logger:      logger,
	}
}

// Create registers a new company at the bottom of the governance ladder.
func (s *Service) Create(ctx context.Context, name string) (*models.Company, error) {
	company, err := models.New(name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return company, nil
}

// Get returns a company by id.
func (s *Service) Get(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	return s.store.FindByID(ctx, companyID)
}

// List returns all companies.
func (s *Service) List(ctx context.Context) ([]*models.Company, error) {
	return s.store.List(ctx)
}

// UpdateProfile applies issuer-truth changes to a company on behalf of the
// authenticated principal. Every dirty field is checked against the ownership
// partition before anything is written; one out-of-domain field rejects the
// whole write, and the rejection is logged and audited as a security event.
func (s *Service) UpdateProfile(ctx context.Context, companyID id.CompanyID, changes map[string]any) (*models.Company, error) {
	if len(changes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}

	company, err := s.store.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if err := ownership.ValidateFieldOwnership(changes, principal, companyID); err != nil {
		s.rejectOwnership(ctx, principal, companyID, changes, err)
		return nil, err
	}
	if err := applyProfileChanges(company, changes); err != nil {
		return nil, err
	}
	company.UpdatedAt = requestcontext.Now(ctx)

	if err := s.guard.RecordAction(ctx, actor.RecordRequest{
		Action:     audit.ActionCompanyProfileUpdated,
		ActorType:  actor.TypeIssuer,
		ActorID:    principal.UserID.String(),
		EntityKind: "company",
		EntityID:   companyID.String(),
		Payload:    map[string]any{"fields": fieldNames(changes)},
		Target:     company,
	}); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, company); err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}
	return company, nil
}

// UpdatePlatformAssertions is the system escape hatch for the derived-score
// domain. Changes must stay inside platform_assertions; the ownership check
// for the calling principal is bypassed because the writer is the platform
// itself.
func (s *Service) UpdatePlatformAssertions(ctx context.Context, companyID id.CompanyID, changes map[string]any) (*models.Company, error) {
	return s.systemUpdate(ctx, companyID, changes, ownership.DomainPlatformAssertions, audit.ActionPlatformAssertionsUpdated)
}

// UpdateGovernanceState is the system escape hatch for governance-state
// fields written outside the dedicated admin operations, such as lifecycle
// transitions driven by scheduled jobs.
func (s *Service) UpdateGovernanceState(ctx context.Context, companyID id.CompanyID, changes map[string]any) (*models.Company, error) {
	return s.systemUpdate(ctx, companyID, changes, ownership.DomainGovernanceState, audit.ActionGovernanceStateUpdated)
}

func (s *Service) systemUpdate(ctx context.Context, companyID id.CompanyID, changes map[string]any, domain ownership.Domain, action audit.Action) (*models.Company, error) {
	if len(changes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	for field := range changes {
		d, classified := ownership.DomainOf(field)
		if !classified || d != domain {
			return nil, dErrors.Newf(dErrors.CodeSecurityViolation,
				"field %q is outside the %s domain", field, domain)
		}
	}

	company, err := s.store.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := applySystemChanges(company, changes); err != nil {
		return nil, err
	}
	company.UpdatedAt = requestcontext.Now(ctx)

	if err := s.guard.RecordAction(ctx, actor.RecordRequest{
		Action:     action,
		ActorType:  actor.TypeSystem,
		EntityKind: "company",
		EntityID:   companyID.String(),
		Payload:    map[string]any{"fields": fieldNames(changes)},
		Target:     company,
	}); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, company); err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}
	return company, nil
}

// Suspend halts all investment activity for the company.
func (s *Service) Suspend(ctx context.Context, companyID id.CompanyID, reason string) (*models.Company, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "suspension reason is required")
	}
	return s.adminMutation(ctx, companyID, audit.ActionCompanySuspended,
		map[string]any{"reason": reason},
		func(c *models.Company) error {
			if err := c.CanSuspend(); err != nil {
				return err
			}
			c.ApplySuspension(reason, requestcontext.Now(ctx))
			return nil
		})
}

// Reinstate lifts a suspension.
func (s *Service) Reinstate(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	return s.adminMutation(ctx, companyID, audit.ActionCompanyReinstated, nil,
		func(c *models.Company) error {
			if err := c.CanReinstate(); err != nil {
				return err
			}
			c.ApplyReinstatement(requestcontext.Now(ctx))
			return nil
		})
}

// ToggleBuying flips the per-company buying flag.
func (s *Service) ToggleBuying(ctx context.Context, companyID id.CompanyID, enabled bool) (*models.Company, error) {
	return s.adminMutation(ctx, companyID, audit.ActionBuyingToggled,
		map[string]any{"enabled": enabled},
		func(c *models.Company) error {
			c.BuyingEnabled = enabled
			c.UpdatedAt = requestcontext.Now(ctx)
			return nil
		})
}

// CheckPromotion reports whether the company is eligible to advance to the
// next tier, without changing anything.
func (s *Service) CheckPromotion(ctx context.Context, companyID id.CompanyID) (requirements.EligibilityReport, error) {
	company, err := s.store.FindByID(ctx, companyID)
	if err != nil {
		return requirements.EligibilityReport{}, err
	}
	target, ok := tier.Next(company.Tier)
	if !ok {
		return requirements.EligibilityReport{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"company is already at the top tier %s", company.Tier)
	}
	disclosures, err := s.disclosures.ListByCompany(ctx, companyID)
	if err != nil {
		return requirements.EligibilityReport{}, err
	}
	return requirements.CheckEligibility(disclosures, target), nil
}

// Promote advances the company to the target tier. The eligibility check is
// re-run against the disclosure records inside the locked transaction, so a
// disclosure slipping back to rejected between check and promote cannot be
// raced past.
func (s *Service) Promote(ctx context.Context, companyID id.CompanyID, target tier.Tier) (*models.Company, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}

	var promoted *models.Company
	err := s.locker.WithLockOrder(ctx, []lockorder.Ref{
		{Kind: lockorder.KindCompany, ID: companyID.String()},
	}, func(ctx context.Context) error {
		company, err := s.store.FindByID(ctx, companyID)
		if err != nil {
			return err
		}
		if err := company.CanPromote(target); err != nil {
			return err
		}

		disclosures, err := s.disclosures.ListByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		report := requirements.CheckEligibility(disclosures, target)
		if !report.Eligible {
			return dErrors.Newf(dErrors.CodeAuthorizationDenied,
				"company is not eligible for %s: %d missing, %d pending modules",
				target, len(report.Missing), len(report.Pending))
		}

		company.ApplyPromotion(target, requestcontext.Now(ctx))

		if err := s.guard.RecordAction(ctx, actor.RecordRequest{
			Action:     audit.ActionTierPromoted,
			ActorType:  actor.TypeAdmin,
			ActorID:    principal.UserID.String(),
			EntityKind: "company",
			EntityID:   companyID.String(),
			Payload: map[string]any{
				"target":   string(target),
				"approved": report.Approved,
			},
			Target: company,
		}); err != nil {
			return err
		}
		if err := s.store.Save(ctx, company); err != nil {
			return fmt.Errorf("save company: %w", err)
		}
		promoted = company
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// adminMutation fetches, mutates, records the admin action, and saves.
func (s *Service) adminMutation(ctx context.Context, companyID id.CompanyID, action audit.Action, payload map[string]any, mutate func(*models.Company) error) (*models.Company, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}

	company, err := s.store.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := mutate(company); err != nil {
		return nil, err
	}

	if err := s.guard.RecordAction(ctx, actor.RecordRequest{
		Action:     action,
		ActorType:  actor.TypeAdmin,
		ActorID:    principal.UserID.String(),
		EntityKind: "company",
		EntityID:   companyID.String(),
		Payload:    payload,
		Target:     company,
	}); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, company); err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}
	return company, nil
}

// rejectOwnership logs and audits a field-ownership violation. The write
// itself has already been rejected; this records the attempt.
func (s *Service) rejectOwnership(ctx context.Context, principal id.Principal, companyID id.CompanyID, changes map[string]any, cause error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "field ownership violation",
			"severity", "critical",
			"company_id", companyID.String(),
			"actor_id", principal.UserID.String(),
			"fields", fieldNames(changes),
			"error", cause,
		)
	}
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, audit.Event{
			Action:     string(audit.ActionFieldOwnershipViolation),
			Severity:   audit.SeverityCritical,
			ActorType:  string(actor.TypeIssuer),
			ActorID:    principal.UserID.String(),
			EntityKind: "company",
			EntityID:   companyID.String(),
			Reason:     cause.Error(),
			Payload:    map[string]any{"fields": fieldNames(changes)},
		})
	}
}

func fieldNames(changes map[string]any) []string {
	out := make([]string, 0, len(changes))
	for field := range changes {
		out = append(out, field)
	}
	return out
}
