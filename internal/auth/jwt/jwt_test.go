package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

func newService() *Service {
	return NewService("test-signing-key", "equitygate", "equitygate-api")
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newService()
	principal := id.Principal{
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		Roles:     []string{id.RoleIssuer},
	}

	token, err := svc.Generate(principal, time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, principal.UserID.String(), claims.UserID)
	assert.Equal(t, principal.CompanyID.String(), claims.CompanyID)
	assert.Equal(t, []string{id.RoleIssuer}, claims.Roles)
	assert.NotEmpty(t, claims.ID)

	rebuilt, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, principal.UserID, rebuilt.UserID)
	assert.Equal(t, principal.CompanyID, rebuilt.CompanyID)
}

func TestInvestorTokenOmitsCompany(t *testing.T) {
	svc := newService()
	token, err := svc.Generate(id.Principal{UserID: id.NewUserID()}, time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Empty(t, claims.CompanyID)

	rebuilt, err := claims.Principal()
	require.NoError(t, err)
	assert.True(t, rebuilt.CompanyID.IsNil())
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newService()
	token, err := svc.Generate(id.Principal{UserID: id.NewUserID()}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}

func TestWrongKeyRejected(t *testing.T) {
	token, err := newService().Generate(id.Principal{UserID: id.NewUserID()}, time.Minute)
	require.NoError(t, err)

	other := NewService("different-key", "equitygate", "equitygate-api")
	_, err = other.Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}

func TestGarbageRejected(t *testing.T) {
	_, err := newService().Validate("not.a.token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}
