package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
	txcontext "equitygate/pkg/platform/tx"
)

// Postgres persists companies. Statements run inside a transaction when one
// is present in context (the lock-order helper puts it there).
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// commandTag narrows pgconn.CommandTag so exec stays backend-agnostic.
type commandTag = interface{ RowsAffected() int64 }

const companyColumns = `
	id, name, legal_name, description, website, sector, country, founded_year, logo_url,
	lifecycle_state, tier, buying_enabled, suspended_at, suspension_reason, tier_advanced_at,
	risk_score, quality_score, platform_notes, audit_trail, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, company *models.Company) error {
	trail, err := json.Marshal(company.AuditTrail)
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}
	_, err = s.exec(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		company.ID.String(), company.Name, company.LegalName, company.Description,
		company.Website, company.Sector, company.Country, company.FoundedYear, company.LogoURL,
		string(company.LifecycleState), company.Tier.String(), company.BuyingEnabled,
		company.SuspendedAt, company.SuspensionReason, company.TierAdvancedAt,
		company.RiskScore, company.QualityScore, company.PlatformNotes,
		trail, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	row := s.queryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, companyID.String())
	return scanCompany(row)
}

func (s *Postgres) Save(ctx context.Context, company *models.Company) error {
	trail, err := json.Marshal(company.AuditTrail)
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}
	tag, err := s.exec(ctx, `
		UPDATE companies SET
			name=$2, legal_name=$3, description=$4, website=$5, sector=$6, country=$7,
			founded_year=$8, logo_url=$9, lifecycle_state=$10, tier=$11, buying_enabled=$12,
			suspended_at=$13, suspension_reason=$14, tier_advanced_at=$15,
			risk_score=$16, quality_score=$17, platform_notes=$18, audit_trail=$19, updated_at=$20
		WHERE id=$1`,
		company.ID.String(), company.Name, company.LegalName, company.Description,
		company.Website, company.Sector, company.Country, company.FoundedYear, company.LogoURL,
		string(company.LifecycleState), company.Tier.String(), company.BuyingEnabled,
		company.SuspendedAt, company.SuspensionReason, company.TierAdvancedAt,
		company.RiskScore, company.QualityScore, company.PlatformNotes, trail, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Company, error) {
	var rows pgx.Rows
	var err error
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at`)
	}
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []*models.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, company)
	}
	return out, rows.Err()
}

func (s *Postgres) exec(ctx context.Context, sql string, args ...any) (commandTag, error) {
	if tx, ok := txcontext.From(ctx); ok {
		tag, err := tx.Exec(ctx, sql, args...)
		return tag, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	return tag, err
}

func (s *Postgres) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx, ok := txcontext.From(ctx); ok {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var (
		c          models.Company
		companyID  string
		lifecycle  string
		tierValue  string
		trailBytes []byte
	)
	err := row.Scan(
		&companyID, &c.Name, &c.LegalName, &c.Description, &c.Website, &c.Sector,
		&c.Country, &c.FoundedYear, &c.LogoURL, &lifecycle, &tierValue, &c.BuyingEnabled,
		&c.SuspendedAt, &c.SuspensionReason, &c.TierAdvancedAt,
		&c.RiskScore, &c.QualityScore, &c.PlatformNotes, &trailBytes, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan company: %w", err)
	}
	parsedID, err := id.ParseCompanyID(companyID)
	if err != nil {
		return nil, fmt.Errorf("parse stored company id: %w", err)
	}
	c.ID = parsedID
	c.LifecycleState = models.LifecycleState(lifecycle)
	parsedTier, err := tier.Parse(tierValue)
	if err != nil {
		return nil, fmt.Errorf("parse stored tier: %w", err)
	}
	c.Tier = parsedTier
	if len(trailBytes) > 0 {
		if err := json.Unmarshal(trailBytes, &c.AuditTrail); err != nil {
			return nil, fmt.Errorf("unmarshal audit trail: %w", err)
		}
	}
	return &c, nil
}
