// Package service implements account registration, credential login and
// token revocation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"equitygate/internal/auth/jwt"
	"equitygate/internal/auth/revocation"
	"equitygate/internal/auth/secrets"
	"equitygate/internal/user/models"
	dErrors "equitygate/pkg/domain-errors"
	"equitygate/pkg/platform/sentinel"
	"equitygate/pkg/requestcontext"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = time.Hour

const minPasswordLength = 12

// UserStore is the slice of the user store the auth flows need.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service handles registration, login and logout.
type Service struct {
	users       UserStore
	tokens      *jwt.Service
	revocations revocation.List
	logger      *slog.Logger
	tokenTTL    time.Duration
}

func New(users UserStore, tokens *jwt.Service, revocations revocation.List, logger *slog.Logger) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		tokenTTL:    DefaultTokenTTL,
	}
}

// Register creates an investor account with a hashed credential.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"password must be at least %d characters", minPasswordLength)
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := models.New(email, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "account registered", "user_id", user.ID.String())
	}
	return user, nil
}

// Token is an issued access token with its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords produce the same denial so the endpoint cannot be used to
// enumerate accounts. Closed accounts cannot log in; blocked accounts can,
// because blocking only gates investment operations.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	denied := dErrors.New(dErrors.CodeAuthorizationDenied, "invalid credentials")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, denied
		}
		return nil, err
	}
	if user.PasswordHash == "" || secrets.Verify(password, user.PasswordHash) != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed login attempt",
				"user_id", user.ID.String(),
				"ip", requestcontext.ClientIP(ctx),
			)
		}
		return nil, denied
	}
	if user.Status == models.StatusClosed {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "account is closed")
	}

	signed, err := s.tokens.Generate(user.Principal(), s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		ExpiresAt:   requestcontext.Now(ctx).Add(s.tokenTTL),
	}, nil
}

// Logout revokes the presented token for its remaining lifetime. Revoking an
// already invalid token is not an error.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Validate(rawToken)
	if err != nil {
		return nil
	}
	if s.revocations == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.TTL())
}
