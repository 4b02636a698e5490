package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seller-onboarding/internal/config"
	"go.uber.org/zap"
)

// EmailJSSender posts template sends to the EmailJS REST API.
type EmailJSSender struct {
	endpoint   string
	serviceID  string
	templateID string
	publicKey  string
	privateKey string
	client     *http.Client
	log        *zap.Logger
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// NewEmailJSSender builds the sender. A nil client gets a 10s timeout client.
func NewEmailJSSender(cfg config.EmailConfig, client *http.Client, log *zap.Logger) *EmailJSSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EmailJSSender{
		endpoint:   cfg.EmailJSEndpoint,
		serviceID:  cfg.EmailJSServiceID,
		templateID: cfg.EmailJSTemplateID,
		publicKey:  cfg.EmailJSPublicKey,
		privateKey: cfg.EmailJSPrivateKey,
		client:     client,
		log:        log,
	}
}

func (s *EmailJSSender) Send(ctx context.Context, msg Message) error {
	if s.serviceID == "" || s.templateID == "" || s.publicKey == "" {
		return ErrMissingCredentials
	}
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      s.serviceID,
		TemplateID:     s.templateID,
		UserID:         s.publicKey,
		AccessToken:    s.privateKey,
		TemplateParams: msg.Params(),
	})
	if err != nil {
		return fmt.Errorf("marshal emailjs request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ProviderError{Provider: "emailjs", StatusCode: resp.StatusCode, Body: string(text)}
	}
	s.log.Debug("emailjs accepted passcode email", zap.String("to", msg.ToEmail))
	return nil
}
