// Package policy evaluates investment eligibility.
//
// The checks run in a fixed order and short-circuit on the first failure:
// company availability first, then KYC, then account status, then the
// blocked flag. The order is part of the contract: a blocked user probing a
// closed company learns only that the company is closed, and the expensive
// trailing checks never run for the common early denials. A denial is data,
// not an error.
package policy

import (
	cmodels "equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	"equitygate/internal/investment/models"
	umodels "equitygate/internal/user/models"
)

// Evaluate runs the ordered eligibility chain for a user investing into a
// company. It is pure: evidence in, decision out.
func Evaluate(company *cmodels.Company, user *umodels.User) models.Decision {
	// 1. Company availability: tier, lifecycle, buying flag, suspension.
	if !tier.IsInvestable(company.Tier) || !company.LifecycleState.AcceptsOrders() {
		return models.Deny(models.ReasonCompanyNotOpen)
	}
	if !company.BuyingEnabled {
		return models.Deny(models.ReasonCompanyBuyingDisabled)
	}
	if company.IsSuspended() {
		return models.Deny(models.ReasonCompanySuspended)
	}

	// 2. Identity verification.
	if !user.KYCVerified {
		return models.Deny(models.ReasonKYCRequired)
	}

	// 3. Account status.
	if user.Status != umodels.StatusActive {
		return models.Deny(models.ReasonAccountNotActive)
	}

	// 4. Blocked flag, last. The caller records this denial as a security
	// event; the earlier checks keep routine denials off that channel.
	if user.IsBlocked {
		return models.Deny(models.ReasonUserBlocked)
	}

	return models.Allow()
}
