// Package jwt issues and validates the platform's access tokens.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Claims carries the principal inside an access token. CompanyID is empty
// for investors and admins; Roles drive the actor separation checks
// downstream.
type Claims struct {
	UserID    string   `json:"user_id"`
	CompanyID string   `json:"company_id,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and validates access tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Generate signs an access token for the given principal.
func (s *Service) Generate(principal id.Principal, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: principal.UserID.String(),
		Roles:  principal.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !principal.CompanyID.IsNil() {
		claims.CompanyID = principal.CompanyID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate parses and verifies a token string.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "invalid token claims")
	}
	return claims, nil
}

// Principal rebuilds the typed principal from validated claims. Ids are
// re-parsed here because the token crossed a trust boundary.
func (c *Claims) Principal() (id.Principal, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return id.Principal{}, dErrors.New(dErrors.CodeAuthorizationDenied, "invalid user id in token")
	}
	principal := id.Principal{UserID: userID, Roles: c.Roles}
	if c.CompanyID != "" {
		companyID, err := id.ParseCompanyID(c.CompanyID)
		if err != nil {
			return id.Principal{}, dErrors.New(dErrors.CodeAuthorizationDenied, "invalid company id in token")
		}
		principal.CompanyID = companyID
	}
	return principal, nil
}

// TTL returns the remaining lifetime of the claims, for revocation entries.
func (c *Claims) TTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}
