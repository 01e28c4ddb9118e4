package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"equitygate/internal/disclosure/models"
	"equitygate/internal/disclosure/store"
	"equitygate/internal/governance/actor"
	"equitygate/internal/platform/lockorder"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	auditmem "equitygate/pkg/platform/audit/store/memory"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	svc        *Service
	store      *store.InMemory
	auditStore *auditmem.Store

	companyID id.CompanyID
	issuerID  id.UserID
	adminID   id.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = auditmem.New()
	pub := publisher.New(s.auditStore)
	guard := actor.NewGuard(pub, nil, nil)
	s.svc = New(s.store, guard, lockorder.Noop{}, nil)

	s.companyID = id.NewCompanyID()
	s.issuerID = id.NewUserID()
	s.adminID = id.NewUserID()
}

func (s *ServiceSuite) issuerCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID:    s.issuerID,
		CompanyID: s.companyID,
		Roles:     []string{id.RoleIssuer},
	})
}

func (s *ServiceSuite) adminCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID: s.adminID,
		Roles:  []string{id.RoleAdmin},
	})
}

func (s *ServiceSuite) submit(module models.ModuleCode) *models.Disclosure {
	d, err := s.svc.Submit(s.issuerCtx(), s.companyID, module, map[string]any{"summary": "initial"})
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestFirstSubmissionCreatesRecordAndVersion() {
	d := s.submit(models.ModuleFinancials)

	s.Equal(models.StatusSubmitted, d.Status)
	s.Equal(1, d.CurrentVersion)

	versions, err := s.svc.ListVersions(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Require().Len(versions, 1)
	s.Equal("initial", versions[0].Content["summary"])
	s.Equal(s.issuerID, versions[0].SubmittedBy)
}

func (s *ServiceSuite) TestResubmissionAfterRejectionAdvancesVersion() {
	d := s.submit(models.ModuleFinancials)

	_, err := s.svc.Reject(s.adminCtx(), d.ID, "numbers do not reconcile")
	s.Require().NoError(err)

	resubmitted, err := s.svc.Submit(s.issuerCtx(), s.companyID, models.ModuleFinancials,
		map[string]any{"summary": "reconciled"})
	s.Require().NoError(err)
	s.Equal(d.ID, resubmitted.ID)
	s.Equal(models.StatusSubmitted, resubmitted.Status)
	s.Equal(2, resubmitted.CurrentVersion)

	versions, err := s.svc.ListVersions(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Len(versions, 2)
}

func (s *ServiceSuite) TestSubmitRejectsWhileUnderReview() {
	s.submit(models.ModuleFinancials)

	_, err := s.svc.Submit(s.issuerCtx(), s.companyID, models.ModuleFinancials,
		map[string]any{"summary": "impatient"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestSubmitRejectsApprovedModule() {
	d := s.submit(models.ModuleFinancials)
	_, err := s.svc.Approve(s.adminCtx(), d.ID, "")
	s.Require().NoError(err)

	_, err = s.svc.Submit(s.issuerCtx(), s.companyID, models.ModuleFinancials,
		map[string]any{"summary": "rewrite history"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestSubmitRequiresContent() {
	_, err := s.svc.Submit(s.issuerCtx(), s.companyID, models.ModuleFinancials, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSubmitRejectsForeignIssuer() {
	foreign := requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		Roles:     []string{id.RoleIssuer},
	})
	_, err := s.svc.Submit(foreign, s.companyID, models.ModuleFinancials,
		map[string]any{"summary": "hijack"})
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestSubmitRejectsAdminPrincipal() {
	_, err := s.svc.Submit(s.adminCtx(), s.companyID, models.ModuleFinancials,
		map[string]any{"summary": "on behalf of"})
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))
}

func (s *ServiceSuite) TestApproveRecordsReviewer() {
	d := s.submit(models.ModuleGovernance)

	approved, err := s.svc.Approve(s.adminCtx(), d.ID, "board structure verified")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Equal(s.adminID, approved.ReviewedBy)
	s.NotNil(approved.ReviewedAt)
	s.Equal("board structure verified", approved.ReviewNote)
}

func (s *ServiceSuite) TestApproveRejectsIssuerPrincipal() {
	d := s.submit(models.ModuleGovernance)

	_, err := s.svc.Approve(s.issuerCtx(), d.ID, "self approval")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityViolation))

	stored, findErr := s.svc.Get(context.Background(), d.ID)
	s.Require().NoError(findErr)
	s.Equal(models.StatusSubmitted, stored.Status)
}

func (s *ServiceSuite) TestRejectRequiresNote() {
	d := s.submit(models.ModuleGovernance)
	_, err := s.svc.Reject(s.adminCtx(), d.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestReviewVerbsRequireSubmittedStatus() {
	d := s.submit(models.ModuleGovernance)
	_, err := s.svc.Approve(s.adminCtx(), d.ID, "")
	s.Require().NoError(err)

	_, err = s.svc.Reject(s.adminCtx(), d.ID, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestClarificationRoundTrip() {
	d := s.submit(models.ModuleRisks)

	asked, err := s.svc.RequestClarification(s.adminCtx(), d.ID, "quantify the churn risk")
	s.Require().NoError(err)
	s.Equal(models.StatusClarificationRequired, asked.Status)

	responded, err := s.svc.RespondClarification(s.issuerCtx(), d.ID,
		map[string]any{"churn": "4% monthly"})
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, responded.Status)
	s.Equal(2, responded.CurrentVersion)
}

func (s *ServiceSuite) TestRespondClarificationRequiresAwaitingStatus() {
	d := s.submit(models.ModuleRisks)

	_, err := s.svc.RespondClarification(s.issuerCtx(), d.ID,
		map[string]any{"unprompted": true})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestSubmissionEmitsComplianceAudit() {
	d := s.submit(models.ModuleFinancials)

	events, err := s.auditStore.ListByEntity(context.Background(), "disclosure", d.ID.String())
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	s.Equal(string(audit.ActionDisclosureSubmitted), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal(s.issuerID.String(), events[0].ActorID)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
