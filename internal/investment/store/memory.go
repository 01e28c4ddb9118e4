package store

import (
	"context"
	"sort"
	"sync"

	"equitygate/internal/investment/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
)

// InMemory keeps investments in a map for unit tests and local runs.
type InMemory struct {
	mu          sync.RWMutex
	investments map[id.InvestmentID]*models.Investment
}

func NewInMemory() *InMemory {
	return &InMemory{investments: make(map[id.InvestmentID]*models.Investment)}
}

func (s *InMemory) Create(_ context.Context, inv *models.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.investments[inv.ID]; exists {
		return sentinel.ErrConflict
	}
	s.investments[inv.ID] = cloneInvestment(inv)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, investmentID id.InvestmentID) (*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, exists := s.investments[investmentID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneInvestment(inv), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Investment
	for _, inv := range s.investments {
		if inv.UserID == userID {
			out = append(out, cloneInvestment(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindActiveSubscription returns the user's active subscription into the
// company, if any.
func (s *InMemory) FindActiveSubscription(_ context.Context, userID id.UserID, companyID id.CompanyID) (*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.investments {
		if inv.UserID == userID && inv.CompanyID == companyID &&
			inv.Kind == models.KindSubscription && inv.Status == models.StatusActive {
			return cloneInvestment(inv), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func cloneInvestment(inv *models.Investment) *models.Investment {
	copied := *inv
	return &copied
}
