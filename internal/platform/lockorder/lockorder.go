// Package lockorder enforces a fixed row-lock acquisition order across the
// company/disclosure/version hierarchy.
//
// Two requests touching the same hierarchy from different entry points (one
// approving a disclosure while another edits the parent company) deadlock if
// each locks in its own order. The discipline here is a fixed total order:
// Company < Disclosure < DisclosureVersion, ties broken by id. Locks are
// acquired in that order inside a single transaction, so circular wait is
// impossible. Lock acquisition failures roll back and surface as concurrency
// errors; retry is the caller's decision.
package lockorder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	dErrors "equitygate/pkg/domain-errors"
	txcontext "equitygate/pkg/platform/tx"
)

// Kind positions an entity type in the lock order. Lower locks first.
type Kind int

const (
	KindCompany Kind = iota
	KindDisclosure
	KindDisclosureVersion
)

func (k Kind) String() string {
	switch k {
	case KindCompany:
		return "company"
	case KindDisclosure:
		return "disclosure"
	case KindDisclosureVersion:
		return "disclosure_version"
	}
	return "unknown"
}

// lockStatements maps each kind to its row-lock statement.
var lockStatements = map[Kind]string{
	KindCompany:           `SELECT id FROM companies WHERE id = $1 FOR UPDATE`,
	KindDisclosure:        `SELECT id FROM disclosures WHERE id = $1 FOR UPDATE`,
	KindDisclosureVersion: `SELECT id FROM disclosure_versions WHERE id = $1 FOR UPDATE`,
}

// Ref names one row to lock.
type Ref struct {
	Kind Kind
	ID   string
}

// Locker runs a callback under the lock-order discipline. The pgx
// implementation locks real rows; Noop serves memory-backed tests.
type Locker interface {
	WithLockOrder(ctx context.Context, refs []Ref, fn func(ctx context.Context) error) error
}

// Sort orders refs by the fixed total order, ties broken by id bytes so two
// transactions locking the same set always agree.
func Sort(refs []Ref) []Ref {
	sorted := append([]Ref(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// Pgx acquires row locks through a pgx pool.
type Pgx struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPgx(pool *pgxpool.Pool, logger *slog.Logger) *Pgx {
	return &Pgx{pool: pool, logger: logger}
}

// WithLockOrder opens one transaction, locks the given rows in the fixed
// order, runs fn with the transaction in context, and commits. Any failure
// rolls back, logs the attempted lock set, and surfaces as a concurrency
// error with the cause attached.
func (l *Pgx) WithLockOrder(ctx context.Context, refs []Ref, fn func(ctx context.Context) error) error {
	sorted := Sort(refs)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConcurrency, "begin locked transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ref := range sorted {
		stmt, ok := lockStatements[ref.Kind]
		if !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown lock kind %d", ref.Kind)
		}
		if _, err := tx.Exec(ctx, stmt, ref.ID); err != nil {
			l.logFailure(ctx, sorted, ref, err)
			return dErrors.Wrap(err, dErrors.CodeConcurrency,
				fmt.Sprintf("acquire %s lock on %s", ref.Kind, ref.ID))
		}
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		l.logFailure(ctx, sorted, Ref{}, err)
		return dErrors.Wrap(err, dErrors.CodeConcurrency, "commit locked transaction")
	}
	return nil
}

func (l *Pgx) logFailure(ctx context.Context, attempted []Ref, failed Ref, err error) {
	if l.logger == nil {
		return
	}
	set := make([]string, 0, len(attempted))
	for _, ref := range attempted {
		set = append(set, ref.Kind.String()+":"+ref.ID)
	}
	l.logger.ErrorContext(ctx, "lock acquisition failed",
		"lock_set", set,
		"failed_on", failed.Kind.String()+":"+failed.ID,
		"error", err,
	)
}

// Noop runs the callback directly. Memory-backed stores serialize through
// their own mutexes, so there are no rows to lock.
type Noop struct{}

func (Noop) WithLockOrder(ctx context.Context, _ []Ref, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
