package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmodels "equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	"equitygate/internal/investment/models"
	umodels "equitygate/internal/user/models"
)

func openCompany(t *testing.T) *cmodels.Company {
	t.Helper()
	company, err := cmodels.New("Northwind Robotics", time.Now().UTC())
	require.NoError(t, err)
	company.Tier = tier.Tier2Live
	company.LifecycleState = cmodels.LifecycleLiveInvestable
	company.BuyingEnabled = true
	return company
}

func eligibleUser(t *testing.T) *umodels.User {
	t.Helper()
	user, err := umodels.New("investor@example.com", time.Now().UTC())
	require.NoError(t, err)
	user.KYCVerified = true
	return user
}

func TestAllowedWhenEverythingPasses(t *testing.T) {
	decision := Evaluate(openCompany(t), eligibleUser(t))
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestDenialReasons(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name    string
		company func(*cmodels.Company)
		user    func(*umodels.User)
		reason  string
	}{
		{
			name:    "tier below live",
			company: func(c *cmodels.Company) { c.Tier = tier.Tier1Upcoming },
			reason:  models.ReasonCompanyNotOpen,
		},
		{
			name:    "lifecycle not taking orders",
			company: func(c *cmodels.Company) { c.LifecycleState = cmodels.LifecyclePendingReview },
			reason:  models.ReasonCompanyNotOpen,
		},
		{
			name:    "lifecycle closed",
			company: func(c *cmodels.Company) { c.LifecycleState = cmodels.LifecycleClosed },
			reason:  models.ReasonCompanyNotOpen,
		},
		{
			name:    "buying disabled",
			company: func(c *cmodels.Company) { c.BuyingEnabled = false },
			reason:  models.ReasonCompanyBuyingDisabled,
		},
		{
			name:    "suspended",
			company: func(c *cmodels.Company) { c.ApplySuspension("investigation", now) },
			reason:  models.ReasonCompanySuspended,
		},
		{
			name:   "kyc missing",
			user:   func(u *umodels.User) { u.KYCVerified = false },
			reason: models.ReasonKYCRequired,
		},
		{
			name:   "dormant account",
			user:   func(u *umodels.User) { u.Status = umodels.StatusDormant },
			reason: models.ReasonAccountNotActive,
		},
		{
			name:   "closed account",
			user:   func(u *umodels.User) { u.Status = umodels.StatusClosed },
			reason: models.ReasonAccountNotActive,
		},
		{
			name:   "blocked",
			user:   func(u *umodels.User) { u.IsBlocked = true },
			reason: models.ReasonUserBlocked,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			company := openCompany(t)
			user := eligibleUser(t)
			if tc.company != nil {
				tc.company(company)
			}
			if tc.user != nil {
				tc.user(user)
			}
			decision := Evaluate(company, user)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

// Company denials win over user denials, and earlier user checks win over
// later ones, so a blocked user never learns more than a healthy one would.
func TestCheckOrderShortCircuits(t *testing.T) {
	company := openCompany(t)
	company.BuyingEnabled = false

	user := eligibleUser(t)
	user.KYCVerified = false
	user.Status = umodels.StatusDormant
	user.IsBlocked = true

	decision := Evaluate(company, user)
	assert.Equal(t, models.ReasonCompanyBuyingDisabled, decision.Reason)

	company.BuyingEnabled = true
	decision = Evaluate(company, user)
	assert.Equal(t, models.ReasonKYCRequired, decision.Reason)

	user.KYCVerified = true
	decision = Evaluate(company, user)
	assert.Equal(t, models.ReasonAccountNotActive, decision.Reason)

	user.Status = umodels.StatusActive
	decision = Evaluate(company, user)
	assert.Equal(t, models.ReasonUserBlocked, decision.Reason)
}
