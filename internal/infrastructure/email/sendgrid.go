package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/seller-onboarding/internal/config"
	"go.uber.org/zap"
)

// SendGridSender sends passcodes with a SendGrid dynamic template.
type SendGridSender struct {
	apiKey     string
	templateID string
	fromEmail  string
	fromName   string
	baseURL    string
	log        *zap.Logger
}

func NewSendGridSender(cfg config.EmailConfig, log *zap.Logger) *SendGridSender {
	return &SendGridSender{
		apiKey:     cfg.SendGridAPIKey,
		templateID: cfg.SendGridTemplateID,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		log:        log,
	}
}

// withBaseURL points the sender at another host, used by tests.
func (s *SendGridSender) withBaseURL(host string) *SendGridSender {
	s.baseURL = host + "/v3/mail/send"
	return s
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" || s.templateID == "" {
		return ErrMissingCredentials
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	m.SetTemplateID(s.templateID)
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.ToEmail))
	for k, v := range msg.Params() {
		p.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(p)

	// sendgrid.Client stores the request body on itself, so one per send.
	client := sendgrid.NewSendClient(s.apiKey)
	if s.baseURL != "" {
		client.BaseURL = s.baseURL
	}
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &ProviderError{Provider: "sendgrid", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	s.log.Debug("sendgrid accepted passcode email",
		zap.String("to", msg.ToEmail),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}
