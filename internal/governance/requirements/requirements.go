// Package requirements maps governance tiers to the disclosure modules a
// company must have approved before it can leave that tier.
package requirements

import (
	dmodels "equitygate/internal/disclosure/models"
	"equitygate/internal/governance/tier"
)

// promotionRequirements lists the module codes needed to leave each tier.
// The top two tiers carry empty lists: live→featured is an editorial,
// admin-judgment promotion that is deliberately ungated by disclosures.
var promotionRequirements = map[tier.Tier][]dmodels.ModuleCode{
	tier.Tier0Pending: {
		dmodels.ModuleCompanyOverview,
		dmodels.ModuleBusinessModel,
	},
	tier.Tier1Upcoming: {
		dmodels.ModuleCompanyOverview,
		dmodels.ModuleBusinessModel,
		dmodels.ModuleFinancials,
		dmodels.ModuleRisks,
		dmodels.ModuleGovernance,
		dmodels.ModuleLegalCompliance,
	},
	tier.Tier2Live:     {},
	tier.Tier3Featured: {},
}

// ForPromotion returns the fixed module list required to leave current.
// The returned slice must not be mutated.
func ForPromotion(current tier.Tier) []dmodels.ModuleCode {
	return promotionRequirements[current]
}

// PendingModule is a required module whose disclosure exists but is not yet
// approved.
type PendingModule struct {
	Code   dmodels.ModuleCode `json:"code"`
	Status dmodels.Status     `json:"status"`
}

// EligibilityReport is the result of a promotion eligibility check. The
// three lists partition the required module set: Approved has an approved
// disclosure, Missing has no disclosure record at all, Pending has a record
// in any non-approved status.
type EligibilityReport struct {
	Eligible bool                 `json:"eligible"`
	Target   tier.Tier            `json:"target"`
	Approved []dmodels.ModuleCode `json:"approved"`
	Missing  []dmodels.ModuleCode `json:"missing"`
	Pending  []PendingModule      `json:"pending"`
}

// CheckEligibility classifies a company's disclosures against the
// requirement list for the tier below target. Eligible iff Missing and
// Pending are both empty.
//
// Edge case: when that requirement list is empty (the live→featured
// editorial step), the check short-circuits to eligible with empty lists
// regardless of disclosure state.
func CheckEligibility(disclosures []*dmodels.Disclosure, target tier.Tier) EligibilityReport {
	report := EligibilityReport{Target: target}

	previous, ok := previousTier(target)
	if !ok {
		// Unreachable for valid targets; tier_0 is never a promotion target.
		return report
	}

	required := promotionRequirements[previous]
	if len(required) == 0 {
		report.Eligible = true
		return report
	}

	byModule := make(map[dmodels.ModuleCode]*dmodels.Disclosure, len(disclosures))
	for _, d := range disclosures {
		byModule[d.Module] = d
	}

	for _, code := range required {
		d, exists := byModule[code]
		switch {
		case !exists:
			report.Missing = append(report.Missing, code)
		case d.Status == dmodels.StatusApproved:
			report.Approved = append(report.Approved, code)
		default:
			report.Pending = append(report.Pending, PendingModule{Code: code, Status: d.Status})
		}
	}

	report.Eligible = len(report.Missing) == 0 && len(report.Pending) == 0
	return report
}

func previousTier(target tier.Tier) (tier.Tier, bool) {
	targetRank := tier.Rank(target)
	if targetRank <= 0 {
		return "", false
	}
	for _, t := range tier.All() {
		if tier.Rank(t) == targetRank-1 {
			return t, true
		}
	}
	return "", false
}
