package store

import (
	"context"
	"sort"
	"sync"

	"equitygate/internal/disclosure/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
)

// InMemory keeps disclosures and their versions in maps for unit tests and
// local runs. The (company, module) uniqueness constraint is enforced here
// the same way the schema does.
type InMemory struct {
	mu          sync.RWMutex
	disclosures map[id.DisclosureID]*models.Disclosure
	byPair      map[pairKey]id.DisclosureID
	versions    map[id.DisclosureID][]*models.Version
}

type pairKey struct {
	company id.CompanyID
	module  models.ModuleCode
}

func NewInMemory() *InMemory {
	return &InMemory{
		disclosures: make(map[id.DisclosureID]*models.Disclosure),
		byPair:      make(map[pairKey]id.DisclosureID),
		versions:    make(map[id.DisclosureID][]*models.Version),
	}
}

func (s *InMemory) Create(_ context.Context, d *models.Disclosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{company: d.CompanyID, module: d.Module}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrConflict
	}
	s.disclosures[d.ID] = cloneDisclosure(d)
	s.byPair[key] = d.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, disclosureID id.DisclosureID) (*models.Disclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, exists := s.disclosures[disclosureID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneDisclosure(d), nil
}

func (s *InMemory) FindByCompanyModule(_ context.Context, companyID id.CompanyID, module models.ModuleCode) (*models.Disclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	disclosureID, exists := s.byPair[pairKey{company: companyID, module: module}]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneDisclosure(s.disclosures[disclosureID]), nil
}

func (s *InMemory) Save(_ context.Context, d *models.Disclosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.disclosures[d.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.disclosures[d.ID] = cloneDisclosure(d)
	return nil
}

func (s *InMemory) ListByCompany(_ context.Context, companyID id.CompanyID) ([]*models.Disclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Disclosure
	for _, d := range s.disclosures {
		if d.CompanyID == companyID {
			out = append(out, cloneDisclosure(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

func (s *InMemory) CreateVersion(_ context.Context, v *models.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.versions[v.DisclosureID] {
		if existing.Version == v.Version {
			return sentinel.ErrConflict
		}
	}
	s.versions[v.DisclosureID] = append(s.versions[v.DisclosureID], cloneVersion(v))
	return nil
}

func (s *InMemory) ListVersions(_ context.Context, disclosureID id.DisclosureID) ([]*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[disclosureID]
	out := make([]*models.Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, cloneVersion(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *InMemory) FindVersion(_ context.Context, disclosureID id.DisclosureID, version int) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions[disclosureID] {
		if v.Version == version {
			return cloneVersion(v), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func cloneDisclosure(d *models.Disclosure) *models.Disclosure {
	copied := *d
	return &copied
}

func cloneVersion(v *models.Version) *models.Version {
	copied := *v
	copied.Content = make(map[string]any, len(v.Content))
	for k, val := range v.Content {
		copied.Content[k] = val
	}
	return &copied
}
