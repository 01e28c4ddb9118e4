package store

import (
	"context"
	"sync"

	"equitygate/internal/company/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
)

// InMemory keeps companies in a map for unit tests and local runs.
type InMemory struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]*models.Company
}

func NewInMemory() *InMemory {
	return &InMemory{companies: make(map[id.CompanyID]*models.Company)}
}

func (s *InMemory) Create(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companies[company.ID]; exists {
		return sentinel.ErrConflict
	}
	s.companies[company.ID] = clone(company)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	company, exists := s.companies[companyID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(company), nil
}

func (s *InMemory) Save(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companies[company.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.companies[company.ID] = clone(company)
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Company, 0, len(s.companies))
	for _, company := range s.companies {
		out = append(out, clone(company))
	}
	return out, nil
}

// clone copies the aggregate so callers never share mutable state with the
// store's own copy.
func clone(c *models.Company) *models.Company {
	copied := *c
	copied.AuditTrail = append([]models.TrailEntry(nil), c.AuditTrail...)
	return &copied
}
