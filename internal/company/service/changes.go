package service

import (
	"time"

	"equitygate/internal/company/models"
	"equitygate/internal/governance/tier"
	dErrors "equitygate/pkg/domain-errors"
)

// applyProfileChanges writes issuer-truth fields from a dirty-field map onto
// the aggregate. Ownership has already been validated; this only checks
// value types.
func applyProfileChanges(c *models.Company, changes map[string]any) error {
	for field, value := range changes {
		switch field {
		case "name":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			if s == "" {
				return dErrors.New(dErrors.CodeValidation, "company name cannot be empty")
			}
			c.Name = s
		case "legal_name":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.LegalName = s
		case "description":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.Description = s
		case "website":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.Website = s
		case "sector":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.Sector = s
		case "country":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.Country = s
		case "founded_year":
			n, err := intValue(field, value)
			if err != nil {
				return err
			}
			c.FoundedYear = n
		case "logo_url":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.LogoURL = s
		default:
			return dErrors.Newf(dErrors.CodeValidation, "field %q is not an issuer profile field", field)
		}
	}
	return nil
}

// applySystemChanges writes governance-state or platform-assertion fields
// from a dirty-field map. Domain membership has already been checked.
func applySystemChanges(c *models.Company, changes map[string]any) error {
	for field, value := range changes {
		switch field {
		case "lifecycle_state":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			state, err := models.ParseLifecycleState(s)
			if err != nil {
				return err
			}
			c.LifecycleState = state
		case "tier":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			t, err := tier.Parse(s)
			if err != nil {
				return err
			}
			c.Tier = t
		case "buying_enabled":
			b, ok := value.(bool)
			if !ok {
				return dErrors.Newf(dErrors.CodeValidation, "field %q requires a boolean value", field)
			}
			c.BuyingEnabled = b
		case "suspended_at":
			if value == nil {
				c.SuspendedAt = nil
				break
			}
			t, ok := value.(time.Time)
			if !ok {
				return dErrors.Newf(dErrors.CodeValidation, "field %q requires a timestamp value", field)
			}
			c.SuspendedAt = &t
		case "suspension_reason":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.SuspensionReason = s
		case "tier_advanced_at":
			if value == nil {
				c.TierAdvancedAt = nil
				break
			}
			t, ok := value.(time.Time)
			if !ok {
				return dErrors.Newf(dErrors.CodeValidation, "field %q requires a timestamp value", field)
			}
			c.TierAdvancedAt = &t
		case "risk_score":
			n, err := intValue(field, value)
			if err != nil {
				return err
			}
			c.RiskScore = n
		case "quality_score":
			n, err := intValue(field, value)
			if err != nil {
				return err
			}
			c.QualityScore = n
		case "platform_notes":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			c.PlatformNotes = s
		default:
			return dErrors.Newf(dErrors.CodeValidation, "field %q is not a platform-managed field", field)
		}
	}
	return nil
}

func stringValue(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "field %q requires a string value", field)
	}
	return s, nil
}

// intValue accepts both int and float64 so JSON-decoded payloads work.
func intValue(field string, value any) (int, error) {
	switch n := value.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, dErrors.Newf(dErrors.CodeValidation, "field %q requires an integer value", field)
}
