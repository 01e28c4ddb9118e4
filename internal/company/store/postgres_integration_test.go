//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"equitygate/internal/company/models"
	"equitygate/internal/company/store"
	"equitygate/internal/governance/tier"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
	"equitygate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func newTestCompany(s *PostgresStoreSuite, name string) *models.Company {
	company, err := models.New(name, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return company
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()

	company := newTestCompany(s, "Acme Robotics "+uuid.NewString())
	company.LegalName = "Acme Robotics Ltd"
	company.Sector = "industrial"
	company.Country = "DE"
	company.FoundedYear = 2014
	company.RiskScore = 42
	company.AppendTrail(models.TrailEntry{
		At:        company.CreatedAt,
		Action:    "company_created",
		ActorType: "admin",
		ActorID:   uuid.NewString(),
	})
	s.Require().NoError(s.store.Create(ctx, company))

	found, err := s.store.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Equal(company.ID, found.ID)
	s.Equal(company.Name, found.Name)
	s.Equal(company.LegalName, found.LegalName)
	s.Equal(models.LifecycleOnboarding, found.LifecycleState)
	s.Equal(tier.Tier0Pending, found.Tier)
	s.False(found.BuyingEnabled)
	s.Nil(found.SuspendedAt)
	s.Equal(42, found.RiskScore)
	s.Require().Len(found.AuditTrail, 1)
	s.Equal("company_created", found.AuditTrail[0].Action)
}

func (s *PostgresStoreSuite) TestSuspensionFieldsRoundTrip() {
	ctx := context.Background()

	company := newTestCompany(s, "Suspended Co "+uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, company))

	now := time.Now().UTC().Truncate(time.Microsecond)
	company.ApplySuspension("regulatory inquiry", now)
	s.Require().NoError(s.store.Save(ctx, company))

	found, err := s.store.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.SuspendedAt)
	s.True(found.SuspendedAt.Equal(now))
	s.Equal("regulatory inquiry", found.SuspensionReason)

	company.ApplyReinstatement(now.Add(time.Hour))
	s.Require().NoError(s.store.Save(ctx, company))

	found, err = s.store.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Nil(found.SuspendedAt)
	s.Empty(found.SuspensionReason)
}

func (s *PostgresStoreSuite) TestTierPersistsAcrossPromotions() {
	ctx := context.Background()

	company := newTestCompany(s, "Ladder Co "+uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, company))

	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, target := range []tier.Tier{tier.Tier1Upcoming, tier.Tier2Live, tier.Tier3Featured} {
		company.ApplyPromotion(target, now)
		s.Require().NoError(s.store.Save(ctx, company))

		found, err := s.store.FindByID(ctx, company.ID)
		s.Require().NoError(err)
		s.Equal(target, found.Tier)
		s.Require().NotNil(found.TierAdvancedAt)
	}
}

func (s *PostgresStoreSuite) TestNotFoundError() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewCompanyID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost := newTestCompany(s, "Ghost Co")
	s.ErrorIs(s.store.Save(ctx, ghost), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdersByCreation() {
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	names := []string{"First", "Second", "Third"}
	for i, name := range names {
		company := newTestCompany(s, name)
		company.CreatedAt = base.Add(time.Duration(i) * time.Second)
		company.UpdatedAt = company.CreatedAt
		s.Require().NoError(s.store.Create(ctx, company))
	}

	listed, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, len(names))
	for i, name := range names {
		s.Equal(name, listed[i].Name)
	}
}

func (s *PostgresStoreSuite) TestConcurrentSavesSameCompany() {
	ctx := context.Background()

	company := newTestCompany(s, "Race Co "+uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, company))

	const goroutines = 30
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			updated := *company
			updated.QualityScore = idx
			updated.UpdatedAt = time.Now().UTC()
			if err := s.store.Save(ctx, &updated); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "all saves should succeed, last write wins")

	found, err := s.store.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Equal(company.Name, found.Name)
}
