package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"equitygate/internal/investment/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
	txcontext "equitygate/pkg/platform/tx"
)

// Postgres persists investments.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const investmentColumns = `
	id, user_id, company_id, kind, amount_cents, status, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, inv *models.Investment) error {
	var err error
	query := `INSERT INTO investments (` + investmentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	args := []any{
		inv.ID.String(), inv.UserID.String(), inv.CompanyID.String(),
		string(inv.Kind), inv.AmountCents, string(inv.Status), inv.CreatedAt, inv.UpdatedAt,
	}
	if tx, ok := txcontext.From(ctx); ok {
		_, err = tx.Exec(ctx, query, args...)
	} else {
		_, err = s.pool.Exec(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("create investment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error) {
	row := s.queryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, investmentID.String())
	return scanInvestment(row)
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Investment, error) {
	var rows pgx.Rows
	var err error
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = $1 ORDER BY created_at`
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.Query(ctx, query, userID.String())
	} else {
		rows, err = s.pool.Query(ctx, query, userID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []*models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Postgres) FindActiveSubscription(ctx context.Context, userID id.UserID, companyID id.CompanyID) (*models.Investment, error) {
	row := s.queryRow(ctx, `
		SELECT `+investmentColumns+` FROM investments
		WHERE user_id = $1 AND company_id = $2 AND kind = $3 AND status = $4
		ORDER BY created_at DESC LIMIT 1`,
		userID.String(), companyID.String(),
		string(models.KindSubscription), string(models.StatusActive))
	return scanInvestment(row)
}

func (s *Postgres) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx, ok := txcontext.From(ctx); ok {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func scanInvestment(row pgx.Row) (*models.Investment, error) {
	var (
		inv          models.Investment
		investmentID string
		userID       string
		companyID    string
		kind         string
		status       string
	)
	err := row.Scan(&investmentID, &userID, &companyID, &kind, &inv.AmountCents, &status, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan investment: %w", err)
	}
	if inv.ID, err = id.ParseInvestmentID(investmentID); err != nil {
		return nil, fmt.Errorf("parse stored investment id: %w", err)
	}
	if inv.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("parse stored user id: %w", err)
	}
	if inv.CompanyID, err = id.ParseCompanyID(companyID); err != nil {
		return nil, fmt.Errorf("parse stored company id: %w", err)
	}
	if inv.Kind, err = models.ParseKind(kind); err != nil {
		return nil, fmt.Errorf("parse stored kind: %w", err)
	}
	inv.Status = models.Status(status)
	return &inv, nil
}
