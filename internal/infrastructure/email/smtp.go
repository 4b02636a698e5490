package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"net/textproto"

	"github.com/seller-onboarding/internal/config"
	"go.uber.org/zap"
)

const smtpBody = `<p>Hello {{.to_name}},</p>
<p>Your verification code is <strong>{{.passcode}}</strong>.</p>
<p>It expires in {{.expires_in_minutes}} minutes ({{.expires_at}}).</p>
<p>{{.company_name}}</p>
`

// SMTPSender renders the passcode email locally and relays it over SMTP.
// Intended for development against a local catcher such as MailHog.
type SMTPSender struct {
	host     string
	port     string
	from     string
	username string
	password string
	body     *template.Template
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log      *zap.Logger
}

func NewSMTPSender(cfg config.EmailConfig, log *zap.Logger) (*SMTPSender, error) {
	body, err := template.New("body").Parse(smtpBody)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.FromEmail,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		body:     body,
		send:     smtp.SendMail,
		log:      log,
	}, nil
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if s.host == "" || s.from == "" {
		return ErrMissingCredentials
	}
	params := msg.Params()
	var body bytes.Buffer
	if err := s.body.Execute(&body, params); err != nil {
		return fmt.Errorf("render body: %w", err)
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, msg.ToEmail, fmt.Sprintf("Your %s verification code", msg.CompanyName), body.String())
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := s.send(addr, auth, s.from, []string{msg.ToEmail}, []byte(raw)); err != nil {
		var te *textproto.Error
		if errors.As(err, &te) {
			return &ProviderError{Provider: "smtp", StatusCode: te.Code, Body: te.Msg}
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.Debug("smtp relayed passcode email", zap.String("to", msg.ToEmail))
	return nil
}
