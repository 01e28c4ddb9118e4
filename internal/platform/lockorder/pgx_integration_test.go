//go:build integration

package lockorder_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	companymodels "equitygate/internal/company/models"
	companystore "equitygate/internal/company/store"
	disclosuremodels "equitygate/internal/disclosure/models"
	disclosurestore "equitygate/internal/disclosure/store"
	"equitygate/internal/platform/lockorder"
	"equitygate/pkg/testutil/containers"
)

type PgxLockerSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	locker      *lockorder.Pgx
	companies   *companystore.Postgres
	disclosures *disclosurestore.Postgres
}

func TestPgxLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PgxLockerSuite))
}

func (s *PgxLockerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.locker = lockorder.NewPgx(s.postgres.Pool, nil)
	s.companies = companystore.NewPostgres(s.postgres.Pool)
	s.disclosures = disclosurestore.NewPostgres(s.postgres.Pool)
}

func (s *PgxLockerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PgxLockerSuite) createCompany(name string) *companymodels.Company {
	company, err := companymodels.New(name, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.companies.Create(context.Background(), company))
	return company
}

// TestRowLockSerializesReadModifyWrite runs concurrent read-modify-write
// cycles on one company row. Without the FOR UPDATE lock the increments would
// race and lose updates; with it every increment lands.
func (s *PgxLockerSuite) TestRowLockSerializesReadModifyWrite() {
	ctx := context.Background()
	company := s.createCompany("Serialized Co")
	refs := []lockorder.Ref{{Kind: lockorder.KindCompany, ID: company.ID.String()}}

	const goroutines = 20
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.locker.WithLockOrder(ctx, refs, func(ctx context.Context) error {
				current, err := s.companies.FindByID(ctx, company.ID)
				if err != nil {
					return err
				}
				current.QualityScore++
				current.UpdatedAt = time.Now().UTC()
				return s.companies.Save(ctx, current)
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())

	found, err := s.companies.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Equal(goroutines, found.QualityScore, "every locked increment should land")
}

// TestOppositeInputOrdersDoNotDeadlock hands the same lock set to concurrent
// callers in reversed input orders. The fixed total order must make them
// queue instead of deadlocking.
func (s *PgxLockerSuite) TestOppositeInputOrdersDoNotDeadlock() {
	ctx := context.Background()
	company := s.createCompany("Deadlock Co")

	d, err := disclosuremodels.NewDisclosure(company.ID, disclosuremodels.ModuleFinancials, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.disclosures.Create(ctx, d))

	forward := []lockorder.Ref{
		{Kind: lockorder.KindCompany, ID: company.ID.String()},
		{Kind: lockorder.KindDisclosure, ID: d.ID.String()},
	}
	reversed := []lockorder.Ref{
		{Kind: lockorder.KindDisclosure, ID: d.ID.String()},
		{Kind: lockorder.KindCompany, ID: company.ID.String()},
	}

	const rounds = 25
	var wg sync.WaitGroup
	var failures atomic.Int32

	for _, refs := range [][]lockorder.Ref{forward, reversed} {
		wg.Add(1)
		go func(refs []lockorder.Ref) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				err := s.locker.WithLockOrder(ctx, refs, func(ctx context.Context) error {
					time.Sleep(time.Millisecond)
					return nil
				})
				if err != nil {
					failures.Add(1)
				}
			}
		}(refs)
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "sorted acquisition should never deadlock")
}

// TestCallbackErrorRollsBack verifies writes inside a failed callback never
// become visible.
func (s *PgxLockerSuite) TestCallbackErrorRollsBack() {
	ctx := context.Background()
	company := s.createCompany("Rollback Co")
	refs := []lockorder.Ref{{Kind: lockorder.KindCompany, ID: company.ID.String()}}

	boom := errors.New("downstream validation failed")
	err := s.locker.WithLockOrder(ctx, refs, func(ctx context.Context) error {
		current, err := s.companies.FindByID(ctx, company.ID)
		if err != nil {
			return err
		}
		current.PlatformNotes = "should never persist"
		if err := s.companies.Save(ctx, current); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.companies.FindByID(ctx, company.ID)
	s.Require().NoError(err)
	s.Empty(found.PlatformNotes)
}
