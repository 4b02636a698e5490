package domain

import "time"

const (
	AccountTypeIndividual = "individual"
	AccountTypeBusiness   = "business"
)

const (
	ShippingSelf              = "self"
	ShippingIntegratedPartner = "integrated_partner"
	ShippingPickup            = "pickup"
)

const SellerStatusPendingReview = "pending_review"

// Seller is the persisted outcome of a completed registration.
// PK: seller_id. GSI: email-index.
type Seller struct {
	SellerID       string    `json:"id" dynamodbav:"seller_id"`
	BusinessName   string    `json:"business_name" dynamodbav:"business_name"`
	AccountType    string    `json:"account_type" dynamodbav:"account_type"`
	TaxID          string    `json:"tax_id,omitempty" dynamodbav:"tax_id"`
	ReferralSource string    `json:"referral_source" dynamodbav:"referral_source"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          string    `json:"phone" dynamodbav:"phone"`
	Address        string    `json:"address" dynamodbav:"address"`
	City           string    `json:"city" dynamodbav:"city"`
	PostalCode     string    `json:"postal_code" dynamodbav:"postal_code"`
	ShippingMethod string    `json:"shipping_method" dynamodbav:"shipping_method"`
	Partners       []string  `json:"partners,omitempty" dynamodbav:"partners,omitempty"`
	ListPublicly   bool      `json:"list_publicly" dynamodbav:"list_publicly"`
	AdsOptIn       bool      `json:"ads_opt_in" dynamodbav:"ads_opt_in"`
	Status         string    `json:"status" dynamodbav:"status"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// BusinessInfo is collected on the first wizard step.
type BusinessInfo struct {
	BusinessName   string `json:"business_name" validate:"required"`
	AccountType    string `json:"account_type" validate:"required,oneof=individual business"`
	TaxID          string `json:"tax_id" validate:"required_if=AccountType business"`
	ReferralSource string `json:"referral_source" validate:"required"`
}

// ContactInfo is collected on the second wizard step, together with email verification.
type ContactInfo struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
}

// ShippingInfo is collected on the third wizard step. Partners only matter for
// the integrated_partner method.
type ShippingInfo struct {
	Method   string   `json:"method" validate:"required,oneof=self integrated_partner pickup"`
	Partners []string `json:"partners"`
}

// VisibilityInfo is collected on the last step; both toggles have defaults.
type VisibilityInfo struct {
	ListPublicly bool `json:"list_publicly"`
	AdsOptIn     bool `json:"ads_opt_in"`
}

// OTPState mirrors the OTP service's answers for the address currently entered.
// Email is the address the verification is bound to.
type OTPState struct {
	Sent         bool    `json:"sent"`
	Verified     bool    `json:"verified"`
	Email        string  `json:"email,omitempty"`
	SessionToken *string `json:"session_token"`
	LastError    *string `json:"last_error"`
}

// RegistrationDraft is the in-progress wizard state. It is never persisted as-is.
type RegistrationDraft struct {
	Business   BusinessInfo   `json:"business"`
	Contact    ContactInfo    `json:"contact"`
	Shipping   ShippingInfo   `json:"shipping"`
	Visibility VisibilityInfo `json:"visibility"`
	OTP        OTPState       `json:"otp_state"`
}

// NewRegistrationDraft returns an empty draft with visibility defaults applied.
func NewRegistrationDraft() *RegistrationDraft {
	return &RegistrationDraft{
		Visibility: VisibilityInfo{ListPublicly: true, AdsOptIn: false},
	}
}
