package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/domain"
	"github.com/seller-onboarding/internal/infrastructure/email"
	"github.com/seller-onboarding/internal/pkg/keylock"
	pkgtoken "github.com/seller-onboarding/internal/pkg/token"
	"github.com/seller-onboarding/internal/pkg/validate"
	"go.uber.org/zap"
)

// OTP record attributes touched by partial updates.
const (
	fieldAttempts = "attempts"
	fieldVerified = "verified"
)

// Outcome labels reported to the metrics recorder.
const (
	OutcomeSent             = "sent"
	OutcomeVerified         = "verified"
	OutcomeInvalidFormat    = "invalid_format"
	OutcomeCooldownActive   = "cooldown_active"
	OutcomeConfiguration    = "configuration"
	OutcomeDeliveryFailed   = "delivery_failed"
	OutcomeNotFound         = "not_found"
	OutcomeExpired          = "expired"
	OutcomeAlreadyUsed      = "already_used"
	OutcomeAttemptsExceeded = "attempts_exceeded"
	OutcomeInvalidCode      = "invalid_code"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeError            = "error"
)

// Service issues and checks one-time email codes. Expected failures are
// returned as *domain.OTPError; match them with errors.Is against the
// domain sentinels.
type Service interface {
	SendOTP(ctx context.Context, email string) (*SendResult, error)
	VerifyOTP(ctx context.Context, email, code string) error
	IsEmailVerified(ctx context.Context, email string) (bool, error)
	CleanupOTP(ctx context.Context, email string) error
}

// SendResult is returned when a code was stored and handed to the provider.
type SendResult struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type otpStore interface {
	Get(ctx context.Context, key string) (*domain.OTPRecord, error)
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Update(ctx context.Context, key string, createdAt int64, updates map[string]interface{}) error
	Delete(ctx context.Context, key string) error
}

type mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

type outcomeRecorder interface {
	SendOutcome(outcome string)
	VerifyOutcome(outcome string)
}

type service struct {
	store        otpStore
	mailer       mailer
	locker       keylock.Locker
	metrics      outcomeRecorder
	log          *zap.Logger
	cfg          config.OTPConfig
	companyName  string
	now          func() time.Time
	generateCode func() (string, error)
}

type ServiceDeps struct {
	Store       otpStore
	Mailer      mailer
	Locker      keylock.Locker
	Metrics     outcomeRecorder
	Log         *zap.Logger
	Config      config.OTPConfig
	CompanyName string

	// Now and GenerateCode default to the wall clock and a crypto/rand code.
	Now          func() time.Time
	GenerateCode func() (string, error)
}

// NewService fails only when a required collaborator is missing.
func NewService(deps ServiceDeps) (Service, error) {
	if deps.Store == nil {
		return nil, errors.New("otp: store not initialized")
	}
	if deps.Mailer == nil {
		return nil, errors.New("otp: mailer not initialized")
	}
	s := &service{
		store:        deps.Store,
		mailer:       deps.Mailer,
		locker:       deps.Locker,
		metrics:      deps.Metrics,
		log:          deps.Log,
		cfg:          deps.Config,
		companyName:  deps.CompanyName,
		now:          deps.Now,
		generateCode: deps.GenerateCode,
	}
	if s.locker == nil {
		s.locker = keylock.New()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateCode == nil {
		s.generateCode = GenerateCode
	}
	return s, nil
}

func (s *service) SendOTP(ctx context.Context, addr string) (*SendResult, error) {
	res, err := s.sendOTP(ctx, addr)
	s.metrics.SendOutcome(outcome(err, OutcomeSent))
	return res, err
}

func (s *service) sendOTP(ctx context.Context, addr string) (*SendResult, error) {
	addr = domain.NormalizeEmail(addr)
	if !validEmail(addr) {
		return nil, &domain.OTPError{Code: domain.ErrInvalidFormat, Message: "Please enter a valid email address."}
	}
	key := domain.EmailKey(addr)

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	defer unlock()

	now := s.now()
	existing, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, storeUnavailable(err)
	}
	if existing != nil && existing.BelongsTo(addr) && !existing.Verified && !existing.Expired(now) {
		if age := existing.Age(now); age < s.cfg.Cooldown {
			wait := s.cfg.Cooldown - age
			secs := int(math.Ceil(wait.Seconds()))
			return nil, &domain.OTPError{
				Code:       domain.ErrCooldownActive,
				Message:    fmt.Sprintf("Please wait %d seconds before requesting a new code.", secs),
				RetryAfter: time.Duration(secs) * time.Second,
			}
		}
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	sessionID, err := pkgtoken.NewSessionID()
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.cfg.TTL)
	rec := &domain.OTPRecord{
		Key:       key,
		Email:     addr,
		Code:      code,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
		Attempts:  0,
		Verified:  false,
		TTL:       expiresAt.Add(s.cfg.TTLGrace).Unix(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, storeUnavailable(err)
	}

	msg := email.Message{
		ToEmail:     addr,
		ToName:      localPart(addr),
		Passcode:    code,
		ExpiresAt:   expiresAt,
		TTL:         s.cfg.TTL,
		CompanyName: s.companyName,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// The record is written but was never delivered; remove it so the code cannot be used.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error("rollback otp after failed delivery",
				zap.String("email_key", key), zap.Error(delErr))
		}
		return nil, s.deliveryError(key, err)
	}

	s.log.Info("otp sent", zap.String("email_key", key), zap.Time("expires_at", expiresAt))
	return &SendResult{SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

func (s *service) deliveryError(key string, err error) *domain.OTPError {
	reason := email.Classify(err)
	s.log.Error("otp delivery failed",
		zap.String("email_key", key),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	if errors.Is(err, email.ErrMissingCredentials) {
		return &domain.OTPError{
			Code:    domain.ErrConfiguration,
			Message: "Email service is not configured. Please contact support.",
			Reason:  reason,
			Err:     err,
		}
	}
	msg := "Failed to send verification email. Please try again."
	switch reason {
	case domain.DeliveryReasonBadParameters:
		msg = "We could not send a code to this address. Please check it and try again."
	case domain.DeliveryReasonAuth:
		msg = "Email service is temporarily unavailable. Please try again later."
	}
	return &domain.OTPError{Code: domain.ErrDeliveryFailed, Message: msg, Reason: reason, Err: err}
}

func (s *service) VerifyOTP(ctx context.Context, addr, code string) error {
	err := s.verifyOTP(ctx, addr, code)
	s.metrics.VerifyOutcome(outcome(err, OutcomeVerified))
	return err
}

func (s *service) verifyOTP(ctx context.Context, addr, code string) error {
	addr = domain.NormalizeEmail(addr)
	if !validEmail(addr) {
		return &domain.OTPError{Code: domain.ErrInvalidFormat, Message: "Please enter a valid email address."}
	}
	key := domain.EmailKey(addr)
	code = strings.TrimSpace(code)

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return storeUnavailable(err)
	}
	defer unlock()

	rec, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return storeUnavailable(err)
	}
	if rec == nil || !rec.BelongsTo(addr) {
		return &domain.OTPError{Code: domain.ErrNotFound, Message: "No verification code found. Please request a new code."}
	}

	now := s.now()
	if rec.Expired(now) {
		s.discard(ctx, key, "expired")
		return &domain.OTPError{Code: domain.ErrExpired, Message: "Verification code has expired. Please request a new code."}
	}
	if rec.Verified {
		return &domain.OTPError{Code: domain.ErrAlreadyUsed, Message: "This code has already been used."}
	}
	if rec.Attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, key, "attempts exceeded")
		return attemptsExceeded()
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(rec.Code)) != 1 {
		attempts := rec.Attempts + 1
		if attempts >= s.cfg.MaxAttempts {
			s.discard(ctx, key, "attempts exceeded")
			return attemptsExceeded()
		}
		if err := s.store.Update(ctx, key, rec.CreatedAt, map[string]interface{}{fieldAttempts: attempts}); err != nil {
			return s.updateError(err)
		}
		remaining := s.cfg.MaxAttempts - attempts
		return &domain.OTPError{
			Code:      domain.ErrInvalidCode,
			Message:   fmt.Sprintf("Invalid code. %d %s remaining", remaining, plural(remaining, "attempt")),
			Remaining: remaining,
		}
	}

	if err := s.store.Update(ctx, key, rec.CreatedAt, map[string]interface{}{fieldVerified: true}); err != nil {
		return s.updateError(err)
	}
	s.log.Info("otp verified", zap.String("email_key", key))
	return nil
}

// updateError maps a failed conditional update. A conflict means a newer code
// replaced the record between our read and write.
func (s *service) updateError(err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return &domain.OTPError{
			Code:      domain.ErrInvalidCode,
			Message:   "A newer code was sent. Please enter the latest code.",
			Remaining: s.cfg.MaxAttempts,
			Err:       err,
		}
	}
	return storeUnavailable(err)
}

// discard deletes a dead record. Failures are logged; the caller already has its answer.
func (s *service) discard(ctx context.Context, key, why string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("delete otp record", zap.String("email_key", key), zap.String("cause", why), zap.Error(err))
	}
}

func (s *service) IsEmailVerified(ctx context.Context, addr string) (bool, error) {
	addr = domain.NormalizeEmail(addr)
	if !validEmail(addr) {
		return false, nil
	}
	rec, err := s.store.Get(ctx, domain.EmailKey(addr))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeUnavailable(err)
	}
	if !rec.BelongsTo(addr) {
		return false, nil
	}
	return rec.Verified && s.now().UnixMilli() < rec.ExpiresAt, nil
}

func (s *service) CleanupOTP(ctx context.Context, addr string) error {
	addr = domain.NormalizeEmail(addr)
	if !validEmail(addr) {
		return &domain.OTPError{Code: domain.ErrInvalidFormat, Message: "Please enter a valid email address."}
	}
	key := domain.EmailKey(addr)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return storeUnavailable(err)
	}
	defer unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		return storeUnavailable(err)
	}
	return nil
}

// GenerateCode returns a 6-digit code drawn uniformly from 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// validEmail accepts local@domain.tld shapes.
func validEmail(addr string) bool {
	if validate.Var(addr, "required,email") != nil {
		return false
	}
	at := strings.LastIndexByte(addr, '@')
	return strings.Contains(addr[at+1:], ".")
}

func localPart(addr string) string {
	if i := strings.IndexByte(addr, '@'); i > 0 {
		return addr[:i]
	}
	return addr
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func attemptsExceeded() *domain.OTPError {
	return &domain.OTPError{
		Code:    domain.ErrAttemptsExceeded,
		Message: "Too many failed attempts. Please request a new code.",
	}
}

func storeUnavailable(err error) *domain.OTPError {
	return &domain.OTPError{
		Code:    domain.ErrStoreUnavailable,
		Message: "Verification is temporarily unavailable. Please try again.",
		Err:     err,
	}
}

var outcomeLabels = []struct {
	target error
	label  string
}{
	{domain.ErrInvalidFormat, OutcomeInvalidFormat},
	{domain.ErrCooldownActive, OutcomeCooldownActive},
	{domain.ErrConfiguration, OutcomeConfiguration},
	{domain.ErrDeliveryFailed, OutcomeDeliveryFailed},
	{domain.ErrNotFound, OutcomeNotFound},
	{domain.ErrExpired, OutcomeExpired},
	{domain.ErrAlreadyUsed, OutcomeAlreadyUsed},
	{domain.ErrAttemptsExceeded, OutcomeAttemptsExceeded},
	{domain.ErrInvalidCode, OutcomeInvalidCode},
	{domain.ErrStoreUnavailable, OutcomeStoreUnavailable},
}

func outcome(err error, success string) string {
	if err == nil {
		return success
	}
	for _, o := range outcomeLabels {
		if errors.Is(err, o.target) {
			return o.label
		}
	}
	return OutcomeError
}

type nopRecorder struct{}

func (nopRecorder) SendOutcome(string)   {}
func (nopRecorder) VerifyOutcome(string) {}
