package domain

import (
	"errors"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// OTP workflow outcomes. Every failure returned by the OTP service matches exactly one of these.
var (
	ErrInvalidFormat    = errors.New("invalid email format")
	ErrCooldownActive   = errors.New("resend cooldown active")
	ErrConfiguration    = errors.New("email provider misconfigured")
	ErrDeliveryFailed   = errors.New("email delivery failed")
	ErrExpired          = errors.New("code expired")
	ErrAlreadyUsed      = errors.New("code already used")
	ErrAttemptsExceeded = errors.New("too many attempts")
	ErrInvalidCode      = errors.New("invalid code")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DeliveryReason classifies a failed email delivery for operators.
type DeliveryReason string

const (
	DeliveryReasonConfiguration DeliveryReason = "configuration"
	DeliveryReasonBadParameters DeliveryReason = "bad_parameters"
	DeliveryReasonAuth          DeliveryReason = "auth"
	DeliveryReasonGeneric       DeliveryReason = "generic"
)

// OTPError is the failure half of every OTP operation result. Code is one of the
// sentinels above; Message is safe to show to the person filling in the form.
type OTPError struct {
	Code       error
	Message    string
	RetryAfter time.Duration  // set for ErrCooldownActive
	Remaining  int            // set for ErrInvalidCode
	Reason     DeliveryReason // set for ErrConfiguration / ErrDeliveryFailed
	Err        error          // underlying cause, never shown to users
}

func (e *OTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is lets errors.Is(err, domain.ErrExpired) match on the outcome code.
func (e *OTPError) Is(target error) bool { return e.Code == target }

func (e *OTPError) Unwrap() error { return e.Err }

// AsOTPError extracts the OTPError from err, if any.
func AsOTPError(err error) (*OTPError, bool) {
	var oe *OTPError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
