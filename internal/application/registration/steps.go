package registration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seller-onboarding/internal/domain"
	"github.com/seller-onboarding/internal/pkg/validate"
)

// Step is a position in the registration wizard.
type Step int

const (
	StepBusiness Step = iota + 1
	StepContact
	StepShipping
	StepVisibility
	StepSubmitted
)

// Field names reported by MissingFields besides the struct's own JSON names.
const (
	FieldEmailVerification = "email_verification"
	FieldPartners          = "partners"
)

var stepNames = map[Step]string{
	StepBusiness:   "business",
	StepContact:    "contact",
	StepShipping:   "shipping",
	StepVisibility: "visibility",
	StepSubmitted:  "submitted",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

// ParseStep accepts a step name ("contact") or its number ("2").
// Only the four editable steps parse.
func ParseStep(v string) (Step, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, err := strconv.Atoi(v); err == nil {
		if s := Step(n); s >= StepBusiness && s <= StepVisibility {
			return s, nil
		}
	}
	for s, name := range stepNames {
		if name == v && s != StepSubmitted {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q: %w", v, domain.ErrBadRequest)
}

// CanAdvance reports whether the draft satisfies the guard of step.
func CanAdvance(d *domain.RegistrationDraft, step Step) bool {
	return len(MissingFields(d, step)) == 0
}

// MissingFields lists what keeps step from being complete, using request
// field names. Contact also requires the entered address to be the one the
// OTP state says was verified.
func MissingFields(d *domain.RegistrationDraft, step Step) []string {
	switch step {
	case StepBusiness:
		return validate.Missing(trimBusiness(d.Business))
	case StepContact:
		missing := validate.Missing(trimContact(d.Contact))
		if !emailVerified(d) {
			missing = append(missing, FieldEmailVerification)
		}
		return missing
	case StepShipping:
		sh := trimShipping(d.Shipping)
		missing := validate.Missing(sh)
		if sh.Method == domain.ShippingIntegratedPartner && len(sh.Partners) == 0 {
			missing = append(missing, FieldPartners)
		}
		return missing
	case StepVisibility:
		return nil
	default:
		return []string{"step"}
	}
}

func emailVerified(d *domain.RegistrationDraft) bool {
	entered := domain.NormalizeEmail(d.Contact.Email)
	return d.OTP.Verified && entered != "" && d.OTP.Email == entered
}

func trimBusiness(b domain.BusinessInfo) domain.BusinessInfo {
	return domain.BusinessInfo{
		BusinessName:   strings.TrimSpace(b.BusinessName),
		AccountType:    strings.TrimSpace(b.AccountType),
		TaxID:          strings.TrimSpace(b.TaxID),
		ReferralSource: strings.TrimSpace(b.ReferralSource),
	}
}

func trimContact(c domain.ContactInfo) domain.ContactInfo {
	return domain.ContactInfo{
		FirstName:  strings.TrimSpace(c.FirstName),
		LastName:   strings.TrimSpace(c.LastName),
		Email:      strings.TrimSpace(c.Email),
		Phone:      strings.TrimSpace(c.Phone),
		Address:    strings.TrimSpace(c.Address),
		City:       strings.TrimSpace(c.City),
		PostalCode: strings.TrimSpace(c.PostalCode),
	}
}

func trimShipping(s domain.ShippingInfo) domain.ShippingInfo {
	out := domain.ShippingInfo{Method: strings.TrimSpace(s.Method)}
	for _, p := range s.Partners {
		if p = strings.TrimSpace(p); p != "" {
			out.Partners = append(out.Partners, p)
		}
	}
	return out
}
