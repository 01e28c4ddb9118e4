package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	cmodels "equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	"equitygate/internal/investment/models"
	"equitygate/internal/investment/service/mocks"
	umodels "equitygate/internal/user/models"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	auditmem "equitygate/pkg/platform/audit/store/memory"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/platform/sentinel"
	"equitygate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	companies  *mocks.MockCompanyReader
	users      *mocks.MockUserReader
	store      *mocks.MockStore
	auditStore *auditmem.Store
	svc        *Service

	userID    id.UserID
	companyID id.CompanyID
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.companies = mocks.NewMockCompanyReader(s.ctrl)
	s.users = mocks.NewMockUserReader(s.ctrl)
	s.store = mocks.NewMockStore(s.ctrl)
	s.auditStore = auditmem.New()
	pub := publisher.New(s.auditStore)
	s.svc = New(s.companies, s.users, s.store, pub, nil, nil)

	s.userID = id.NewUserID()
	s.companyID = id.NewCompanyID()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.Principal{
		UserID: s.userID,
		Roles:  []string{"investor"},
	})
}

func (s *ServiceSuite) openCompany() *cmodels.Company {
	company, err := cmodels.New("Northwind Robotics", time.Now().UTC())
	s.Require().NoError(err)
	company.ID = s.companyID
	company.Tier = tier.Tier2Live
	company.LifecycleState = cmodels.LifecycleLiveInvestable
	company.BuyingEnabled = true
	return company
}

func (s *ServiceSuite) eligibleUser() *umodels.User {
	user, err := umodels.New("investor@example.com", time.Now().UTC())
	s.Require().NoError(err)
	user.ID = s.userID
	user.KYCVerified = true
	return user
}

func (s *ServiceSuite) expectEvidence(company *cmodels.Company, user *umodels.User) {
	s.companies.EXPECT().FindByID(gomock.Any(), s.companyID).Return(company, nil)
	s.users.EXPECT().FindByID(gomock.Any(), s.userID).Return(user, nil)
}

func (s *ServiceSuite) TestSubscribeAllowed() {
	s.expectEvidence(s.openCompany(), s.eligibleUser())
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	inv, decision, err := s.svc.Subscribe(s.ctx(), s.companyID, 50_00)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Require().NotNil(inv)
	s.Equal(models.KindSubscription, inv.Kind)
	s.Equal(int64(50_00), inv.AmountCents)
	s.Equal(s.userID, inv.UserID)

	events := s.auditStore.All()
	s.Require().Len(events, 1)
	s.Equal(string(audit.ActionInvestmentAllowed), events[0].Action)
	s.Equal("allowed", events[0].Decision)
}

func (s *ServiceSuite) TestBuySharesDeniedWhenBuyingDisabled() {
	company := s.openCompany()
	company.BuyingEnabled = false
	s.expectEvidence(company, s.eligibleUser())

	inv, decision, err := s.svc.BuyShares(s.ctx(), s.companyID, 100_00)
	s.Require().NoError(err)
	s.Nil(inv)
	s.False(decision.Allowed)
	s.Equal(models.ReasonCompanyBuyingDisabled, decision.Reason)

	events := s.auditStore.All()
	s.Require().Len(events, 1)
	s.Equal(string(audit.ActionInvestmentDenied), events[0].Action)
}

func (s *ServiceSuite) TestDenialIsDataNotError() {
	company := s.openCompany()
	company.LifecycleState = cmodels.LifecycleClosed
	s.expectEvidence(company, s.eligibleUser())

	_, decision, err := s.svc.BuyShares(s.ctx(), s.companyID, 100_00)
	s.NoError(err)
	s.Equal(models.ReasonCompanyNotOpen, decision.Reason)
}

func (s *ServiceSuite) TestBlockedUserDenialRaisesSecurityEvent() {
	user := s.eligibleUser()
	user.IsBlocked = true
	s.expectEvidence(s.openCompany(), user)

	inv, decision, err := s.svc.BuyShares(s.ctx(), s.companyID, 100_00)
	s.Require().NoError(err)
	s.Nil(inv)
	s.Equal(models.ReasonUserBlocked, decision.Reason)

	events := s.auditStore.All()
	s.Require().Len(events, 2)
	s.Equal(string(audit.ActionBlockedUserAttempt), events[0].Action)
	s.Equal(audit.SeverityCritical, events[0].Severity)
	s.Equal(string(audit.ActionInvestmentDenied), events[1].Action)
}

func (s *ServiceSuite) TestTopUpRequiresActiveSubscription() {
	s.expectEvidence(s.openCompany(), s.eligibleUser())
	s.store.EXPECT().FindActiveSubscription(gomock.Any(), s.userID, s.companyID).
		Return(nil, sentinel.ErrNotFound)

	inv, decision, err := s.svc.TopUp(s.ctx(), s.companyID, 25_00)
	s.Require().NoError(err)
	s.Nil(inv)
	s.False(decision.Allowed)
	s.Equal(models.ReasonNoActiveSubscription, decision.Reason)
}

func (s *ServiceSuite) TestTopUpWithActiveSubscription() {
	s.expectEvidence(s.openCompany(), s.eligibleUser())
	subscription, err := models.New(s.userID, s.companyID, models.KindSubscription, 50_00, time.Now().UTC())
	s.Require().NoError(err)
	s.store.EXPECT().FindActiveSubscription(gomock.Any(), s.userID, s.companyID).
		Return(subscription, nil)
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	inv, decision, err := s.svc.TopUp(s.ctx(), s.companyID, 25_00)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(models.KindTopUp, inv.Kind)
}

func (s *ServiceSuite) TestPolicyDenialShortCircuitsSubscriptionLookupResult() {
	// The blocked check still wins over the missing subscription: the policy
	// chain runs before the top-up requirement.
	user := s.eligibleUser()
	user.IsBlocked = true
	s.expectEvidence(s.openCompany(), user)
	s.store.EXPECT().FindActiveSubscription(gomock.Any(), s.userID, s.companyID).
		Return(nil, sentinel.ErrNotFound)

	_, decision, err := s.svc.TopUp(s.ctx(), s.companyID, 25_00)
	s.Require().NoError(err)
	s.Equal(models.ReasonUserBlocked, decision.Reason)
}

func (s *ServiceSuite) TestCheckDoesNotWrite() {
	s.expectEvidence(s.openCompany(), s.eligibleUser())

	decision, err := s.svc.Check(s.ctx(), s.companyID)
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *ServiceSuite) TestPlaceRequiresAuthentication() {
	_, _, err := s.svc.Subscribe(context.Background(), s.companyID, 50_00)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}

func (s *ServiceSuite) TestPlaceRejectsNonPositiveAmount() {
	_, _, err := s.svc.Subscribe(s.ctx(), s.companyID, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
