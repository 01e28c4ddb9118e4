package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"equitygate/internal/disclosure/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
	txcontext "equitygate/pkg/platform/tx"
)

// Postgres persists disclosures and their immutable versions. Statements run
// inside a transaction when one is present in context.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const disclosureColumns = `
	id, company_id, module_code, status, current_version,
	reviewed_by, reviewed_at, review_note, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, d *models.Disclosure) error {
	_, err := s.exec(ctx, `
		INSERT INTO disclosures (`+disclosureColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID.String(), d.CompanyID.String(), string(d.Module), string(d.Status),
		d.CurrentVersion, nullableID(d.ReviewedBy), d.ReviewedAt, d.ReviewNote,
		d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create disclosure: %w", err)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique constraint failure, which maps
// to the same conflict the memory store detects up front.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Postgres) FindByID(ctx context.Context, disclosureID id.DisclosureID) (*models.Disclosure, error) {
	row := s.queryRow(ctx, `SELECT `+disclosureColumns+` FROM disclosures WHERE id = $1`, disclosureID.String())
	return scanDisclosure(row)
}

func (s *Postgres) FindByCompanyModule(ctx context.Context, companyID id.CompanyID, module models.ModuleCode) (*models.Disclosure, error) {
	row := s.queryRow(ctx, `
		SELECT `+disclosureColumns+` FROM disclosures
		WHERE company_id = $1 AND module_code = $2`,
		companyID.String(), string(module))
	return scanDisclosure(row)
}

func (s *Postgres) Save(ctx context.Context, d *models.Disclosure) error {
	tag, err := s.exec(ctx, `
		UPDATE disclosures SET
			status=$2, current_version=$3, reviewed_by=$4, reviewed_at=$5,
			review_note=$6, updated_at=$7
		WHERE id=$1`,
		d.ID.String(), string(d.Status), d.CurrentVersion,
		nullableID(d.ReviewedBy), d.ReviewedAt, d.ReviewNote, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save disclosure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.Disclosure, error) {
	var rows pgx.Rows
	var err error
	query := `SELECT ` + disclosureColumns + ` FROM disclosures WHERE company_id = $1 ORDER BY module_code`
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.Query(ctx, query, companyID.String())
	} else {
		rows, err = s.pool.Query(ctx, query, companyID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("list disclosures: %w", err)
	}
	defer rows.Close()

	var out []*models.Disclosure
	for rows.Next() {
		d, err := scanDisclosure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateVersion(ctx context.Context, v *models.Version) error {
	content, err := json.Marshal(v.Content)
	if err != nil {
		return fmt.Errorf("marshal version content: %w", err)
	}
	_, err = s.exec(ctx, `
		INSERT INTO disclosure_versions (id, disclosure_id, version, content, submitted_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		v.ID.String(), v.DisclosureID.String(), v.Version, content, v.SubmittedBy.String(), v.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create disclosure version: %w", err)
	}
	return nil
}

func (s *Postgres) ListVersions(ctx context.Context, disclosureID id.DisclosureID) ([]*models.Version, error) {
	var rows pgx.Rows
	var err error
	query := `
		SELECT id, disclosure_id, version, content, submitted_by, created_at
		FROM disclosure_versions WHERE disclosure_id = $1 ORDER BY version`
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.Query(ctx, query, disclosureID.String())
	} else {
		rows, err = s.pool.Query(ctx, query, disclosureID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("list disclosure versions: %w", err)
	}
	defer rows.Close()

	var out []*models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Postgres) FindVersion(ctx context.Context, disclosureID id.DisclosureID, version int) (*models.Version, error) {
	row := s.queryRow(ctx, `
		SELECT id, disclosure_id, version, content, submitted_by, created_at
		FROM disclosure_versions WHERE disclosure_id = $1 AND version = $2`,
		disclosureID.String(), version)
	return scanVersion(row)
}

type commandTag = interface{ RowsAffected() int64 }

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

// nullableID maps a nil typed id to SQL NULL.
func nullableID(userID id.UserID) *string {
	if userID.IsNil() {
		return nil
	}
	s := userID.String()
	return &s
}

func scanDisclosure(row pgx.Row) (*models.Disclosure, error) {
	var (
		d            models.Disclosure
		disclosureID string
		companyID    string
		module       string
		status       string
		reviewedBy   *string
	)
	err := row.Scan(
		&disclosureID, &companyID, &module, &status, &d.CurrentVersion,
		&reviewedBy, &d.ReviewedAt, &d.ReviewNote, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan disclosure: %w", err)
	}
	if d.ID, err = id.ParseDisclosureID(disclosureID); err != nil {
		return nil, fmt.Errorf("parse stored disclosure id: %w", err)
	}
	if d.CompanyID, err = id.ParseCompanyID(companyID); err != nil {
		return nil, fmt.Errorf("parse stored company id: %w", err)
	}
	if d.Module, err = models.ParseModuleCode(module); err != nil {
		return nil, fmt.Errorf("parse stored module code: %w", err)
	}
	if d.Status, err = models.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("parse stored status: %w", err)
	}
	if reviewedBy != nil {
		if d.ReviewedBy, err = id.ParseUserID(*reviewedBy); err != nil {
			return nil, fmt.Errorf("parse stored reviewer id: %w", err)
		}
	}
	return &d, nil
}

func scanVersion(row pgx.Row) (*models.Version, error) {
	var (
		v            models.Version
		versionID    string
		disclosureID string
		submittedBy  string
		content      []byte
	)
	err := row.Scan(&versionID, &disclosureID, &v.Version, &content, &submittedBy, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan disclosure version: %w", err)
	}
	if v.ID, err = id.ParseVersionID(versionID); err != nil {
		return nil, fmt.Errorf("parse stored version id: %w", err)
	}
	if v.DisclosureID, err = id.ParseDisclosureID(disclosureID); err != nil {
		return nil, fmt.Errorf("parse stored disclosure id: %w", err)
	}
	if v.SubmittedBy, err = id.ParseUserID(submittedBy); err != nil {
		return nil, fmt.Errorf("parse stored submitter id: %w", err)
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &v.Content); err != nil {
			return nil, fmt.Errorf("unmarshal version content: %w", err)
		}
	}
	return &v, nil
}
