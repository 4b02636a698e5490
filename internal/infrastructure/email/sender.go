// Package email delivers one-time passcodes through a transactional email provider.
package email

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/domain"
	"go.uber.org/zap"
)

// ErrMissingCredentials is returned before any network call when the provider
// is selected but its keys or template are not configured.
var ErrMissingCredentials = errors.New("email provider credentials not configured")

// Message is everything a passcode email needs. Providers render it through
// Params, so every template sees the same variable names.
type Message struct {
	ToEmail     string
	ToName      string
	Passcode    string
	ExpiresAt   time.Time
	TTL         time.Duration
	CompanyName string
}

// Params is the template variable contract shared by all providers:
// to_email, to_name, passcode, expires_in_minutes, expires_at, company_name.
func (m Message) Params() map[string]string {
	return map[string]string{
		"to_email":           m.ToEmail,
		"to_name":            m.ToName,
		"passcode":           m.Passcode,
		"expires_in_minutes": strconv.Itoa(int(m.TTL / time.Minute)),
		"expires_at":         m.ExpiresAt.UTC().Format(time.RFC3339),
		"company_name":       m.CompanyName,
	}
}

// Sender delivers a passcode email in a single attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ProviderError carries the provider's rejection so it can be classified.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Classify maps a delivery error to the reason reported to operators.
func Classify(err error) domain.DeliveryReason {
	if errors.Is(err, ErrMissingCredentials) {
		return domain.DeliveryReasonConfiguration
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return domain.DeliveryReasonGeneric
	}
	switch code := pe.StatusCode; {
	case code == 400:
		return domain.DeliveryReasonConfiguration
	case code == 422, code >= 550 && code <= 553:
		return domain.DeliveryReasonBadParameters
	case code == 401, code == 403, code == 530, code == 535:
		return domain.DeliveryReasonAuth
	default:
		return domain.DeliveryReasonGeneric
	}
}

// New builds the sender selected by cfg.Provider.
func New(cfg config.EmailConfig, log *zap.Logger) (Sender, error) {
	switch cfg.Provider {
	case "emailjs":
		return NewEmailJSSender(cfg, nil, log), nil
	case "sendgrid":
		return NewSendGridSender(cfg, log), nil
	case "smtp":
		return NewSMTPSender(cfg, log)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
