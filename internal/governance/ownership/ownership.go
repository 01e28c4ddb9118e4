// Package ownership partitions a company's mutable fields into ownership
// domains and rejects writes outside the caller's domain.
//
// The partition is a static map: every mutable company field belongs to
// exactly one domain. Unclassified fields are denied for everyone — a newly
// added column stays unwritable until it is registered here, so a forgotten
// classification fails loudly instead of silently granting write access.
package ownership

import (
	"sort"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Domain names one ownership partition of company fields.
type Domain string

const (
	// DomainIssuerTruth covers identity fields the issuer maintains.
	DomainIssuerTruth Domain = "issuer_truth"
	// DomainGovernanceState covers lifecycle, tier, buying and suspension
	// fields. Platform-only.
	DomainGovernanceState Domain = "governance_state"
	// DomainPlatformAssertions covers derived scores and notes. Platform-only.
	DomainPlatformAssertions Domain = "platform_assertions"
)

// fieldDomains is the single registration point for mutable company fields.
// The three domains are mutually exclusive and their union covers every
// mutable attribute of the company row.
var fieldDomains = map[string]Domain{
	"name":         DomainIssuerTruth,
	"legal_name":   DomainIssuerTruth,
	"description":  DomainIssuerTruth,
	"website":      DomainIssuerTruth,
	"sector":       DomainIssuerTruth,
	"country":      DomainIssuerTruth,
	"founded_year": DomainIssuerTruth,
	"logo_url":     DomainIssuerTruth,

	"lifecycle_state":   DomainGovernanceState,
	"tier":              DomainGovernanceState,
	"buying_enabled":    DomainGovernanceState,
	"suspended_at":      DomainGovernanceState,
	"suspension_reason": DomainGovernanceState,
	"tier_advanced_at":  DomainGovernanceState,

	"risk_score":     DomainPlatformAssertions,
	"quality_score":  DomainPlatformAssertions,
	"platform_notes": DomainPlatformAssertions,
}

// DomainOf returns the owning domain for a field name.
func DomainOf(field string) (Domain, bool) {
	d, ok := fieldDomains[field]
	return d, ok
}

// FieldsOf returns the registered field names of a domain, sorted.
func FieldsOf(domain Domain) []string {
	var out []string
	for field, d := range fieldDomains {
		if d == domain {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// CanWrite reports whether the principal may write the named field of the
// target company. Admins may write any classified field; a principal
// associated with the target company may write issuer-truth fields only;
// everyone else is denied. Unclassified fields are denied for all callers.
func CanWrite(field string, p id.Principal, target id.CompanyID) bool {
	domain, classified := fieldDomains[field]
	if !classified {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if domain == DomainIssuerTruth && p.HasCompany() && p.CompanyID == target {
		return true
	}
	return false
}

// ValidateFieldOwnership checks every dirty field of a pending save against
// the caller's domain. The first out-of-domain field rejects the entire
// write with a security violation; partial writes are never allowed.
// Fields are checked in sorted order so the reported violation is
// deterministic.
func ValidateFieldOwnership(dirty map[string]any, p id.Principal, target id.CompanyID) error {
	fields := make([]string, 0, len(dirty))
	for field := range dirty {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if CanWrite(field, p, target) {
			continue
		}
		if _, classified := fieldDomains[field]; !classified {
			return dErrors.Newf(dErrors.CodeSecurityViolation,
				"field %q is not classified in any ownership domain; write denied", field)
		}
		return dErrors.Newf(dErrors.CodeSecurityViolation,
			"field %q belongs to domain %q and is outside the caller's write authority", field, fieldDomains[field])
	}
	return nil
}
