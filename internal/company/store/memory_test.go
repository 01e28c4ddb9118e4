package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) newCompany(name string) *models.Company {
	company, err := models.New(name, time.Now().UTC())
	s.Require().NoError(err)
	return company
}

func (s *InMemorySuite) TestCreateAndFind() {
	company := s.newCompany("Northwind Robotics")
	s.Require().NoError(s.store.Create(s.ctx, company))

	found, err := s.store.FindByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal(company.ID, found.ID)
	s.Equal("Northwind Robotics", found.Name)
	s.Equal(tier.Tier0Pending, found.Tier)
}

func (s *InMemorySuite) TestCreateDuplicateConflicts() {
	company := s.newCompany("Northwind Robotics")
	s.Require().NoError(s.store.Create(s.ctx, company))
	s.ErrorIs(s.store.Create(s.ctx, company), sentinel.ErrConflict)
}

func (s *InMemorySuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewCompanyID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestSaveMissing() {
	s.ErrorIs(s.store.Save(s.ctx, s.newCompany("Ghost")), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestSavePersistsChanges() {
	company := s.newCompany("Northwind Robotics")
	s.Require().NoError(s.store.Create(s.ctx, company))

	company.Description = "Autonomous warehouse robots"
	company.BuyingEnabled = true
	s.Require().NoError(s.store.Save(s.ctx, company))

	found, err := s.store.FindByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal("Autonomous warehouse robots", found.Description)
	s.True(found.BuyingEnabled)
}

func (s *InMemorySuite) TestCallersNeverShareState() {
	company := s.newCompany("Northwind Robotics")
	s.Require().NoError(s.store.Create(s.ctx, company))

	found, err := s.store.FindByID(s.ctx, company.ID)
	s.Require().NoError(err)
	found.Name = "mutated"
	found.AppendTrail(models.TrailEntry{Action: "mutated"})

	again, err := s.store.FindByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal("Northwind Robotics", again.Name)
	s.Empty(again.AuditTrail)
}

func (s *InMemorySuite) TestList() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCompany("Alpha")))
	s.Require().NoError(s.store.Create(s.ctx, s.newCompany("Beta")))

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}
