package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"equitygate/internal/company/models"
	"equitygate/internal/company/store"
	dmodels "equitygate/internal/disclosure/models"
	"equitygate/internal/governance/actor"
	"equitygate/internal/governance/tier"
	"equitygate/internal/platform/lockorder"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	auditmem "equitygate/pkg/platform/audit/store/memory"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/requestcontext"
)

// disclosureStub returns canned disclosure records for the promotion checks.
type disclosureStub struct {
	byCompany map[id.CompanyID][]*dmodels.Disclosure
}

func (s *disclosureStub) ListByCompany(_ context.Context, companyID id.CompanyID) ([]*dmodels.Disclosure, error) {
	return s.byCompany[companyID], nil
}

func (s *disclosureStub) set(companyID id.CompanyID, statuses map[dmodels.ModuleCode]dmodels.Status) {
	var out []*dmodels.Disclosure
	for module, status := range statuses {
		out = append(out, &dmodels.Disclosure{
			ID:        id.NewDisclosureID(),
			CompanyID: companyID,
			Module:    module,
			Status:    status,
		})
	}
	s.byCompany[companyID] = out
}

type ServiceSuite struct {
	suite.Suite
	svc         *Service
	companies   *store.InMemory
	disclosures *disclosureStub
	auditStore  *auditmem.Store

	adminID  id.UserID
	issuerID id.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.companies = store.NewInMemory()
	s.disclosures = &disclosureStub{byCompany: make(map[id.CompanyID][]*dmodels.Disclosure)}
	s.auditStore = auditmem.New()
	pub := publisher.New(s.auditStore)
	guard := actor.NewGuard(pub, nil, nil)
	s.svc = New(s.companies, s.disclosures, guard, lockorder.Noop{}, pub, nil)

	s.adminID = id.NewUserID()
	s.issuerID = id.NewUserID()
}

func (s *ServiceSuite) adminCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID: s.adminID,
		Roles:  []string{id.RoleAdmin},
	})
}

func (s *ServiceSuite) issuerCtx(companyID id.CompanyID) context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID:    s.issuerID,
		CompanyID: companyID,
		Roles:     []string{id.RoleIssuer},
	})
}

func (s *ServiceSuite) createCompany() *models.Company {
	company, err := s.svc.Create(context.Background(), "Northwind Robotics")
	s.Require().NoError(err)
	return company
}

func (s *ServiceSuite) allApproved(companyID id.CompanyID) {
	statuses := make(map[dmodels.ModuleCode]dmodels.Status)
	for _, module := range dmodels.Catalog() {
		statuses[module] = dmodels.StatusApproved
	}
	s.disclosures.set(companyID, statuses)
}

func (s *ServiceSuite) TestCreateStartsAtBottomTier() {
	company := s.createCompany()
	s.Equal(tier.Tier0Pending, company.Tier)
	s.Equal(models.LifecycleOnboarding, company.LifecycleState)
	s.False(company.BuyingEnabled)
}

func (s *ServiceSuite) TestUpdateProfileByIssuer() {
	company := s.createCompany()
	ctx := s.issuerCtx(company.ID)

	updated, err := s.svc.UpdateProfile(ctx, company.ID, map[string]any{
		"description": "Autonomous warehouse robots",
		"website":     "https://northwind.example",
	})
	s.Require().NoError(err)
	s.Equal("Autonomous warehouse robots", updated.Description)

	stored, err := s.companies.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Equal("https://northwind.example", stored.Website)
	s.Require().Len(stored.AuditTrail, 1)
	s.Equal(string(audit.ActionCompanyProfileUpdated), stored.AuditTrail[0].Action)
}

func (s *ServiceSuite) TestUpdateProfileRejectsGovernanceFields() {
	company := s.createCompany()
	ctx := s.issuerCtx(company.ID)

	_, err := s.svc.UpdateProfile(ctx, company.ID, map[string]any{
		"description": "legit change",
		"tier":        string(tier.Tier3Featured),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))

	// Whole write rejected, including the in-domain field.
	stored, findErr := s.companies.FindByID(ctx, company.ID)
	s.Require().NoError(findErr)
	s.Empty(stored.Description)
	s.Equal(tier.Tier0Pending, stored.Tier)

	events := s.auditStore.All()
	s.Require().NotEmpty(events)
	last := events[len(events)-1]
	s.Equal(string(audit.ActionFieldOwnershipViolation), last.Action)
	s.Equal(audit.SeverityCritical, last.Severity)
}

func (s *ServiceSuite) TestUpdateProfileRejectsForeignIssuer() {
	company := s.createCompany()
	other := s.createCompany()
	ctx := s.issuerCtx(other.ID)

	_, err := s.svc.UpdateProfile(ctx, company.ID, map[string]any{"description": "hijack"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestUpdateProfileRejectsUnclassifiedField() {
	company := s.createCompany()
	ctx := s.issuerCtx(company.ID)

	_, err := s.svc.UpdateProfile(ctx, company.ID, map[string]any{"secret_flag": true})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestUpdateProfileRequiresAuthentication() {
	company := s.createCompany()
	_, err := s.svc.UpdateProfile(context.Background(), company.ID, map[string]any{"description": "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}

func (s *ServiceSuite) TestUpdatePlatformAssertions() {
	company := s.createCompany()

	updated, err := s.svc.UpdatePlatformAssertions(context.Background(), company.ID, map[string]any{
		"risk_score":     42,
		"platform_notes": "strong governance responses",
	})
	s.Require().NoError(err)
	s.Equal(42, updated.RiskScore)
	s.Equal("strong governance responses", updated.PlatformNotes)
}

func (s *ServiceSuite) TestUpdatePlatformAssertionsRejectsOutOfDomainField() {
	company := s.createCompany()

	_, err := s.svc.UpdatePlatformAssertions(context.Background(), company.ID, map[string]any{
		"risk_score": 42,
		"name":       "renamed",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestUpdateGovernanceState() {
	company := s.createCompany()

	updated, err := s.svc.UpdateGovernanceState(context.Background(), company.ID, map[string]any{
		"lifecycle_state": string(models.LifecyclePendingReview),
	})
	s.Require().NoError(err)
	s.Equal(models.LifecyclePendingReview, updated.LifecycleState)
}

func (s *ServiceSuite) TestSystemActionsRejectAuthenticatedPrincipal() {
	company := s.createCompany()

	_, err := s.svc.UpdateGovernanceState(s.adminCtx(), company.ID, map[string]any{
		"lifecycle_state": string(models.LifecyclePendingReview),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestSuspendAndReinstate() {
	company := s.createCompany()
	ctx := s.adminCtx()

	suspended, err := s.svc.Suspend(ctx, company.ID, "ongoing investigation")
	s.Require().NoError(err)
	s.True(suspended.IsSuspended())
	s.Equal("ongoing investigation", suspended.SuspensionReason)

	_, err = s.svc.Suspend(ctx, company.ID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	reinstated, err := s.svc.Reinstate(ctx, company.ID)
	s.Require().NoError(err)
	s.False(reinstated.IsSuspended())
	s.Empty(reinstated.SuspensionReason)
}

func (s *ServiceSuite) TestSuspendRequiresReason() {
	company := s.createCompany()
	_, err := s.svc.Suspend(s.adminCtx(), company.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSuspendRejectsIssuerPrincipal() {
	company := s.createCompany()
	_, err := s.svc.Suspend(s.issuerCtx(company.ID), company.ID, "self-serve")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestToggleBuying() {
	company := s.createCompany()
	ctx := s.adminCtx()

	enabled, err := s.svc.ToggleBuying(ctx, company.ID, true)
	s.Require().NoError(err)
	s.True(enabled.BuyingEnabled)

	disabled, err := s.svc.ToggleBuying(ctx, company.ID, false)
	s.Require().NoError(err)
	s.False(disabled.BuyingEnabled)
}

func (s *ServiceSuite) TestCheckPromotionReportsMissingModules() {
	company := s.createCompany()

	report, err := s.svc.CheckPromotion(context.Background(), company.ID)
	s.Require().NoError(err)
	s.False(report.Eligible)
	s.Equal(tier.Tier1Upcoming, report.Target)
	s.ElementsMatch(
		[]dmodels.ModuleCode{dmodels.ModuleCompanyOverview, dmodels.ModuleBusinessModel},
		report.Missing,
	)
}

func (s *ServiceSuite) TestPromoteWalksTheLadder() {
	company := s.createCompany()
	s.allApproved(company.ID)
	ctx := s.adminCtx()

	for _, target := range []tier.Tier{tier.Tier1Upcoming, tier.Tier2Live, tier.Tier3Featured} {
		promoted, err := s.svc.Promote(ctx, company.ID, target)
		s.Require().NoError(err)
		s.Equal(target, promoted.Tier)
		s.NotNil(promoted.TierAdvancedAt)
	}

	stored, err := s.companies.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Equal(tier.Tier3Featured, stored.Tier)
	s.Len(stored.AuditTrail, 3)
}

func (s *ServiceSuite) TestPromoteRejectsTierSkip() {
	company := s.createCompany()
	s.allApproved(company.ID)

	_, err := s.svc.Promote(s.adminCtx(), company.ID, tier.Tier2Live)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestPromoteDeniedWhenModulesPending() {
	company := s.createCompany()
	s.disclosures.set(company.ID, map[dmodels.ModuleCode]dmodels.Status{
		dmodels.ModuleCompanyOverview: dmodels.StatusApproved,
		dmodels.ModuleBusinessModel:   dmodels.StatusSubmitted,
	})

	_, err := s.svc.Promote(s.adminCtx(), company.ID, tier.Tier1Upcoming)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))

	stored, findErr := s.companies.FindByID(context.Background(), company.ID)
	s.Require().NoError(findErr)
	s.Equal(tier.Tier0Pending, stored.Tier)
}

func (s *ServiceSuite) TestPromoteToFeaturedNeedsNoDisclosures() {
	company := s.createCompany()
	s.allApproved(company.ID)
	ctx := s.adminCtx()

	for _, target := range []tier.Tier{tier.Tier1Upcoming, tier.Tier2Live} {
		_, err := s.svc.Promote(ctx, company.ID, target)
		s.Require().NoError(err)
	}

	// Editorial step: no disclosure records needed at all.
	s.disclosures.set(company.ID, nil)
	promoted, err := s.svc.Promote(ctx, company.ID, tier.Tier3Featured)
	s.Require().NoError(err)
	s.Equal(tier.Tier3Featured, promoted.Tier)
}

func (s *ServiceSuite) TestPromoteRejectsIssuerPrincipal() {
	company := s.createCompany()
	s.allApproved(company.ID)

	_, err := s.svc.Promote(s.issuerCtx(company.ID), company.ID, tier.Tier1Upcoming)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestPromotionEmitsComplianceAudit() {
	company := s.createCompany()
	s.allApproved(company.ID)

	_, err := s.svc.Promote(s.adminCtx(), company.ID, tier.Tier1Upcoming)
	s.Require().NoError(err)

	events, err := s.auditStore.ListByEntity(context.Background(), "company", company.ID.String())
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	last := events[len(events)-1]
	s.Equal(string(audit.ActionTierPromoted), last.Action)
	s.Equal(audit.CategoryCompliance, last.Category)
	s.Equal(s.adminID.String(), last.ActorID)
}

func (s *ServiceSuite) TestClockComesFromContext() {
	company := s.createCompany()
	s.allApproved(company.ID)
	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ctx := requestcontext.WithTime(s.adminCtx(), frozen)

	promoted, err := s.svc.Promote(ctx, company.ID, tier.Tier1Upcoming)
	s.Require().NoError(err)
	s.Require().NotNil(promoted.TierAdvancedAt)
	s.True(promoted.TierAdvancedAt.Equal(frozen))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
