// Package service implements the disclosure review workflow: issuer
// submissions with immutable versioning, and the admin review verbs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"equitygate/internal/disclosure/models"
	"equitygate/internal/governance/actor"
	"equitygate/internal/platform/lockorder"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/platform/sentinel"
	"equitygate/pkg/requestcontext"
)

// Store persists disclosures and their versions.
type Store interface {
	Create(ctx context.Context, d *models.Disclosure) error
	FindByID(ctx context.Context, disclosureID id.DisclosureID) (*models.Disclosure, error)
	FindByCompanyModule(ctx context.Context, companyID id.CompanyID, module models.ModuleCode) (*models.Disclosure, error)
	Save(ctx context.Context, d *models.Disclosure) error
	ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.Disclosure, error)
	CreateVersion(ctx context.Context, v *models.Version) error
	ListVersions(ctx context.Context, disclosureID id.DisclosureID) ([]*models.Version, error)
	FindVersion(ctx context.Context, disclosureID id.DisclosureID, version int) (*models.Version, error)
}

// Service coordinates disclosure writes through the actor guard and the
// lock-order discipline.
type Service struct {
	store  Store
	guard  *actor.Guard
	locker lockorder.Locker
	logger *slog.Logger
}

func New(store Store, guard *actor.Guard, locker lockorder.Locker, logger *slog.Logger) *Service {
	return &Service{store: store, guard: guard, locker: locker, logger: logger}
}

// Get returns a disclosure by id.
func (s *Service) Get(ctx context.Context, disclosureID id.DisclosureID) (*models.Disclosure, error) {
	return s.store.FindByID(ctx, disclosureID)
}

// ListByCompany returns a company's disclosure records.
func (s *Service) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.Disclosure, error) {
	return s.store.ListByCompany(ctx, companyID)
}

// ListVersions returns the immutable version history of a disclosure.
func (s *Service) ListVersions(ctx context.Context, disclosureID id.DisclosureID) ([]*models.Version, error) {
	return s.store.ListVersions(ctx, disclosureID)
}

// GetVersion returns one point-in-time capture.
func (s *Service) GetVersion(ctx context.Context, disclosureID id.DisclosureID, version int) (*models.Version, error) {
	return s.store.FindVersion(ctx, disclosureID, version)
}

// Submit records a new submission for a company/module pair on behalf of the
// issuer. The first submission creates the disclosure record; later ones
// move it back through the workflow. Content is captured as a new immutable
// version and the version counter advances with it.
func (s *Service) Submit(ctx context.Context, companyID id.CompanyID, module models.ModuleCode, content map[string]any) (*models.Disclosure, error) {
	principal, err := s.requireIssuerFor(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "submission content cannot be empty")
	}

	existing, err := s.store.FindByCompanyModule(ctx, companyID, module)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	var submitted *models.Disclosure
	refs := []lockorder.Ref{{Kind: lockorder.KindCompany, ID: companyID.String()}}
	if existing != nil {
		refs = append(refs, lockorder.Ref{Kind: lockorder.KindDisclosure, ID: existing.ID.String()})
	}

	err = s.locker.WithLockOrder(ctx, refs, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)

		d := existing
		created := false
		if d == nil {
			d, err = models.NewDisclosure(companyID, module, now)
			if err != nil {
				return err
			}
			created = true
		} else {
			// Re-read under the lock; the pre-lock copy may be stale.
			d, err = s.store.FindByID(ctx, d.ID)
			if err != nil {
				return err
			}
		}

		if err := d.CanTransition(models.StatusSubmitted); err != nil {
			return err
		}
		d.Status = models.StatusSubmitted
		d.CurrentVersion++
		d.UpdatedAt = now

		version := &models.Version{
			ID:           id.NewVersionID(),
			DisclosureID: d.ID,
			Version:      d.CurrentVersion,
			Content:      content,
			SubmittedBy:  principal.UserID,
			CreatedAt:    now,
		}

		if err := s.guard.RecordAction(ctx, actor.RecordRequest{
			Action:     audit.ActionDisclosureSubmitted,
			ActorType:  actor.TypeIssuer,
			ActorID:    principal.UserID.String(),
			EntityKind: "disclosure",
			EntityID:   d.ID.String(),
			Payload: map[string]any{
				"company_id": companyID.String(),
				"module":     string(module),
				"version":    d.CurrentVersion,
			},
		}); err != nil {
			return err
		}

		if created {
			if err := s.store.Create(ctx, d); err != nil {
				return fmt.Errorf("create disclosure: %w", err)
			}
		} else if err := s.store.Save(ctx, d); err != nil {
			return fmt.Errorf("save disclosure: %w", err)
		}
		if err := s.store.CreateVersion(ctx, version); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		submitted = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// RespondClarification moves a clarification_required disclosure back to
// submitted with a fresh version carrying the issuer's response.
func (s *Service) RespondClarification(ctx context.Context, disclosureID id.DisclosureID, content map[string]any) (*models.Disclosure, error) {
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "response content cannot be empty")
	}
	d, err := s.store.FindByID(ctx, disclosureID)
	if err != nil {
		return nil, err
	}
	principal, err := s.requireIssuerFor(ctx, d.CompanyID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusClarificationRequired {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"disclosure %s is %s, not awaiting clarification", d.Module, d.Status)
	}

	var responded *models.Disclosure
	err = s.locker.WithLockOrder(ctx, []lockorder.Ref{
		{Kind: lockorder.KindCompany, ID: d.CompanyID.String()},
		{Kind: lockorder.KindDisclosure, ID: d.ID.String()},
	}, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		d, err := s.store.FindByID(ctx, disclosureID)
		if err != nil {
			return err
		}
		if err := d.CanTransition(models.StatusSubmitted); err != nil {
			return err
		}
		d.Status = models.StatusSubmitted
		d.CurrentVersion++
		d.UpdatedAt = now

		version := &models.Version{
			ID:           id.NewVersionID(),
			DisclosureID: d.ID,
			Version:      d.CurrentVersion,
			Content:      content,
			SubmittedBy:  principal.UserID,
			CreatedAt:    now,
		}

		if err := s.guard.RecordAction(ctx, actor.RecordRequest{
			Action:     audit.ActionClarificationResponded,
			ActorType:  actor.TypeIssuer,
			ActorID:    principal.UserID.String(),
			EntityKind: "disclosure",
			EntityID:   d.ID.String(),
			Payload:    map[string]any{"version": d.CurrentVersion},
		}); err != nil {
			return err
		}
		if err := s.store.Save(ctx, d); err != nil {
			return fmt.Errorf("save disclosure: %w", err)
		}
		if err := s.store.CreateVersion(ctx, version); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		responded = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responded, nil
}

// Approve marks a submitted disclosure approved.
func (s *Service) Approve(ctx context.Context, disclosureID id.DisclosureID, note string) (*models.Disclosure, error) {
	return s.review(ctx, disclosureID, models.StatusApproved, audit.ActionDisclosureApproved, note)
}

// Reject marks a submitted disclosure rejected. The issuer may resubmit.
func (s *Service) Reject(ctx context.Context, disclosureID id.DisclosureID, note string) (*models.Disclosure, error) {
	if note == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection requires a review note")
	}
	return s.review(ctx, disclosureID, models.StatusRejected, audit.ActionDisclosureRejected, note)
}

// RequestClarification sends a submitted disclosure back to the issuer with
// questions.
func (s *Service) RequestClarification(ctx context.Context, disclosureID id.DisclosureID, note string) (*models.Disclosure, error) {
	if note == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a clarification request requires a review note")
	}
	return s.review(ctx, disclosureID, models.StatusClarificationRequired, audit.ActionClarificationRequested, note)
}

// review applies an admin review verb under the lock-order discipline.
func (s *Service) review(ctx context.Context, disclosureID id.DisclosureID, next models.Status, action audit.Action, note string) (*models.Disclosure, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}
	d, err := s.store.FindByID(ctx, disclosureID)
	if err != nil {
		return nil, err
	}

	var reviewed *models.Disclosure
	err = s.locker.WithLockOrder(ctx, []lockorder.Ref{
		{Kind: lockorder.KindCompany, ID: d.CompanyID.String()},
		{Kind: lockorder.KindDisclosure, ID: d.ID.String()},
	}, func(ctx context.Context) error {
		d, err := s.store.FindByID(ctx, disclosureID)
		if err != nil {
			return err
		}
		if err := d.CanTransition(next); err != nil {
			return err
		}
		d.ApplyTransition(next, principal.UserID, note, requestcontext.Now(ctx))

		if err := s.guard.RecordAction(ctx, actor.RecordRequest{
			Action:     action,
			ActorType:  actor.TypeAdmin,
			ActorID:    principal.UserID.String(),
			EntityKind: "disclosure",
			EntityID:   d.ID.String(),
			Payload: map[string]any{
				"company_id": d.CompanyID.String(),
				"module":     string(d.Module),
				"status":     string(next),
			},
		}); err != nil {
			return err
		}
		if err := s.store.Save(ctx, d); err != nil {
			return fmt.Errorf("save disclosure: %w", err)
		}
		reviewed = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

// requireIssuerFor checks that the authenticated principal is the issuer of
// the given company. A principal acting on another company's disclosures is
// a security violation, not a routine authorization miss.
func (s *Service) requireIssuerFor(ctx context.Context, companyID id.CompanyID) (id.Principal, error) {
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		return id.Principal{}, dErrors.New(dErrors.CodeAuthorizationDenied, "authentication required")
	}
	if !principal.HasCompany() || principal.CompanyID != companyID {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "cross-company disclosure access attempt",
				"severity", "critical",
				"actor_id", principal.UserID.String(),
				"actor_company", principal.CompanyID.String(),
				"target_company", companyID.String(),
			)
		}
		return id.Principal{}, dErrors.New(dErrors.CodeSecurityViolation,
			"principal is not the issuer of the target company")
	}
	return principal, nil
}
