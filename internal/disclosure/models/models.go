package models

import (
	"time"

	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// ModuleCode identifies a fixed topic category of company information.
type ModuleCode string

const (
	ModuleCompanyOverview ModuleCode = "company_overview"
	ModuleBusinessModel   ModuleCode = "business_model"
	ModuleFinancials      ModuleCode = "financials"
	ModuleRisks           ModuleCode = "risks"
	ModuleGovernance      ModuleCode = "governance"
	ModuleLegalCompliance ModuleCode = "legal_compliance"
)

// Catalog returns every module code in display order.
func Catalog() []ModuleCode {
	return []ModuleCode{
		ModuleCompanyOverview,
		ModuleBusinessModel,
		ModuleFinancials,
		ModuleRisks,
		ModuleGovernance,
		ModuleLegalCompliance,
	}
}

var validModules = map[ModuleCode]bool{
	ModuleCompanyOverview: true,
	ModuleBusinessModel:   true,
	ModuleFinancials:      true,
	ModuleRisks:           true,
	ModuleGovernance:      true,
	ModuleLegalCompliance: true,
}

// ParseModuleCode validates a module code at trust boundaries.
func ParseModuleCode(s string) (ModuleCode, error) {
	code := ModuleCode(s)
	if !validModules[code] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown disclosure module: %s", s)
	}
	return code, nil
}

// Status is the review state of a disclosure.
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusSubmitted             Status = "submitted"
	StatusApproved              Status = "approved"
	StatusRejected              Status = "rejected"
	StatusClarificationRequired Status = "clarification_required"
)

var validStatuses = map[Status]bool{
	StatusDraft:                 true,
	StatusSubmitted:             true,
	StatusApproved:              true,
	StatusRejected:              true,
	StatusClarificationRequired: true,
}

// ParseStatus validates a disclosure status at trust boundaries.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !validStatuses[status] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown disclosure status: %s", s)
	}
	return status, nil
}

// statusTransitions captures the review workflow. Submissions come from the
// issuer; approval, rejection and clarification requests from platform
// admins; clarification responses return the disclosure to submitted.
var statusTransitions = map[Status][]Status{
	StatusDraft:                 {StatusSubmitted},
	StatusSubmitted:             {StatusApproved, StatusRejected, StatusClarificationRequired},
	StatusClarificationRequired: {StatusSubmitted},
	StatusRejected:              {StatusSubmitted},
	StatusApproved:              {},
}

// CanTransitionTo reports whether the workflow permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Disclosure ties one company to one module with a review status.
//
// Invariants:
//   - (CompanyID, Module) is unique per company
//   - Status moves only along the workflow transitions
//   - CurrentVersion increments with each submission; versions are immutable
type Disclosure struct {
	ID             id.DisclosureID
	CompanyID      id.CompanyID
	Module         ModuleCode
	Status         Status
	CurrentVersion int
	ReviewedBy     id.UserID
	ReviewedAt     *time.Time
	ReviewNote     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Version is an immutable point-in-time capture of disclosure content.
type Version struct {
	ID           id.VersionID
	DisclosureID id.DisclosureID
	Version      int
	Content      map[string]any
	SubmittedBy  id.UserID
	CreatedAt    time.Time
}

// NewDisclosure creates a draft disclosure for a company/module pair.
func NewDisclosure(companyID id.CompanyID, module ModuleCode, now time.Time) (*Disclosure, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "company id is required")
	}
	if !validModules[module] {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown disclosure module: %s", module)
	}
	return &Disclosure{
		ID:        id.NewDisclosureID(),
		CompanyID: companyID,
		Module:    module,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition checks a status change against the workflow.
func (d *Disclosure) CanTransition(next Status) error {
	if !d.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"disclosure %s cannot move from %s to %s", d.Module, d.Status, next)
	}
	return nil
}

// ApplyTransition moves the disclosure to next. Call CanTransition first.
func (d *Disclosure) ApplyTransition(next Status, reviewer id.UserID, note string, now time.Time) {
	d.Status = next
	d.UpdatedAt = now
	switch next {
	case StatusApproved, StatusRejected, StatusClarificationRequired:
		d.ReviewedBy = reviewer
		d.ReviewedAt = &now
		d.ReviewNote = note
	}
}
