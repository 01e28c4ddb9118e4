package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"equitygate/internal/user/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
	txcontext "equitygate/pkg/platform/tx"
)

// Postgres persists users.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = `
	id, email, password_hash, company_id, roles, kyc_verified, kyc_reviewed_by, kyc_reviewed_at,
	status, is_blocked, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		user.ID.String(), user.Email, user.PasswordHash, nullableCompanyID(user.CompanyID), user.Roles,
		user.KYCVerified, nullableUserID(user.KYCReviewedBy), user.KYCReviewedAt,
		string(user.Status), user.IsBlocked, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique constraint failure. The email
// column carries the only unique constraint on users.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID.String())
	return scanUser(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *Postgres) Save(ctx context.Context, user *models.User) error {
	tag, err := s.exec(ctx, `
		UPDATE users SET
			email=$2, password_hash=$3, company_id=$4, roles=$5, kyc_verified=$6,
			kyc_reviewed_by=$7, kyc_reviewed_at=$8, status=$9, is_blocked=$10, updated_at=$11
		WHERE id=$1`,
		user.ID.String(), user.Email, user.PasswordHash, nullableCompanyID(user.CompanyID), user.Roles,
		user.KYCVerified, nullableUserID(user.KYCReviewedBy), user.KYCReviewedAt,
		string(user.Status), user.IsBlocked, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
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

func nullableCompanyID(companyID id.CompanyID) *string {
	if companyID.IsNil() {
		return nil
	}
	s := companyID.String()
	return &s
}

func nullableUserID(userID id.UserID) *string {
	if userID.IsNil() {
		return nil
	}
	s := userID.String()
	return &s
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u         models.User
		userID    string
		companyID *string
		reviewer  *string
		status    string
	)
	err := row.Scan(
		&userID, &u.Email, &u.PasswordHash, &companyID, &u.Roles, &u.KYCVerified, &reviewer,
		&u.KYCReviewedAt, &status, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.ID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("parse stored user id: %w", err)
	}
	if companyID != nil {
		if u.CompanyID, err = id.ParseCompanyID(*companyID); err != nil {
			return nil, fmt.Errorf("parse stored company id: %w", err)
		}
	}
	if reviewer != nil {
		if u.KYCReviewedBy, err = id.ParseUserID(*reviewer); err != nil {
			return nil, fmt.Errorf("parse stored reviewer id: %w", err)
		}
	}
	if u.Status, err = models.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("parse stored status: %w", err)
	}
	return &u, nil
}
