package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/seller-onboarding/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// OTPErrorEnvelope carries a failed OTP operation. Code is a stable
// machine-readable name; Error is safe to show to the user.
type OTPErrorEnvelope struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// OTPSendEnvelope wraps a successful send.
type OTPSendEnvelope struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

// OTPStatusEnvelope answers whether an address is currently verified.
type OTPStatusEnvelope struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// StepEnvelope reports whether a wizard step may be left.
type StepEnvelope struct {
	Step       string   `json:"step"`
	CanAdvance bool     `json:"can_advance"`
	Missing    []string `json:"missing"`
}

// RegistrationEnvelope wraps a completed registration.
type RegistrationEnvelope struct {
	Bearer string         `json:"Bearer,omitempty"`
	Seller *domain.Seller `json:"seller"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

var otpStatuses = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrInvalidFormat, http.StatusBadRequest, "invalid_format"},
	{domain.ErrCooldownActive, http.StatusTooManyRequests, "cooldown_active"},
	{domain.ErrInvalidCode, http.StatusUnauthorized, "invalid_code"},
	{domain.ErrExpired, http.StatusGone, "expired"},
	{domain.ErrAlreadyUsed, http.StatusGone, "already_used"},
	{domain.ErrAttemptsExceeded, http.StatusGone, "attempts_exceeded"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrConfiguration, http.StatusServiceUnavailable, "configuration"},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

// writeServiceError maps a service error onto a status code. Unexpected errors
// are reported generically so infrastructure details stay server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	if oe, ok := domain.AsOTPError(err); ok {
		for _, s := range otpStatuses {
			if oe.Code != s.target {
				continue
			}
			env := OTPErrorEnvelope{Error: oe.Message, Code: s.code}
			if oe.Code == domain.ErrInvalidCode {
				remaining := oe.Remaining
				env.RemainingAttempts = &remaining
			}
			if oe.RetryAfter > 0 {
				secs := int(oe.RetryAfter / time.Second)
				env.RetryAfterSeconds = secs
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			writeJSON(w, s.status, env)
			return
		}
	}
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "email address is not verified")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "a seller with this email already exists")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
