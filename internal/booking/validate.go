package booking

import (
	"strings"
	"time"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/model"
)

// ValidateApplicant checks the required fields of an application form and
// reports every missing or malformed field at once.
func ValidateApplicant(d model.ApplicantDetails) error {
	var bad []string
	required := []struct {
		name  string
		value string
	}{
		{"full_name", d.FullName},
		{"email", d.Email},
		{"phone", d.Phone},
		{"current_address", d.CurrentAddress},
		{"occupation", d.Occupation},
		{"emergency_contact_name", d.EmergencyContactName},
		{"emergency_contact_phone", d.EmergencyContactPhone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			bad = append(bad, f.name)
		}
	}
	if s := strings.TrimSpace(d.Email); s != "" && !strings.Contains(s, "@") {
		bad = append(bad, "email")
	}
	if !d.MonthlyIncome.IsPositive() {
		bad = append(bad, "monthly_income")
	}
	if d.MoveInDate.IsZero() {
		bad = append(bad, "move_in_date")
	}
	if d.FamilySize <= 0 {
		bad = append(bad, "family_size")
	}
	if len(bad) > 0 {
		return apperr.Validation("missing or invalid applicant fields: %s", strings.Join(bad, ", "))
	}
	return nil
}

// LeaseTerms is the tenant's lease proposal.
type LeaseTerms struct {
	Duration        string
	StartDate       time.Time
	AdditionalTerms string
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
