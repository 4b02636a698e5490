package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seller-onboarding/internal/domain"
	"github.com/seller-onboarding/internal/pkg/id"
	"github.com/seller-onboarding/internal/pkg/keylock"
	"go.uber.org/zap"
)

// EventSellerRegistered is published after a seller has been written.
const EventSellerRegistered = "seller.registered"

// Outcome labels reported to the metrics recorder.
const (
	OutcomeCreated    = "created"
	OutcomeIncomplete = "incomplete"
	OutcomeUnverified = "unverified"
	OutcomeDuplicate  = "duplicate"
	OutcomeError      = "error"
)

// SubmitResult is the persisted seller plus a bearer token when signing is configured.
type SubmitResult struct {
	Seller *domain.Seller `json:"seller"`
	Token  string         `json:"token,omitempty"`
}

// Service is the server-side end of the wizard.
type Service interface {
	Submit(ctx context.Context, d *domain.RegistrationDraft) (*SubmitResult, error)
	GetSeller(ctx context.Context, sellerID string) (*domain.Seller, error)
}

type sellerStore interface {
	Create(ctx context.Context, s *domain.Seller) error
	Get(ctx context.Context, sellerID string) (*domain.Seller, error)
	GetByEmail(ctx context.Context, email string) (*domain.Seller, error)
}

type otpChecker interface {
	IsEmailVerified(ctx context.Context, email string) (bool, error)
	CleanupOTP(ctx context.Context, email string) error
}

type archiver interface {
	PutJSON(ctx context.Context, key string, v interface{}) (string, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

type tokenSigner interface {
	Sign(sellerID, email string) (string, error)
}

type outcomeRecorder interface {
	RegistrationOutcome(outcome string)
}

type service struct {
	sellers   sellerStore
	otp       otpChecker
	archive   archiver
	publisher eventPublisher
	signer    tokenSigner
	locker    keylock.Locker
	metrics   outcomeRecorder
	log       *zap.Logger
	now       func() time.Time
}

// ServiceDeps wires the submit path. Archive, Publisher, Signer and Metrics are
// optional; Locker defaults to an in-process keylock.Mutex.
type ServiceDeps struct {
	Sellers   sellerStore
	OTP       otpChecker
	Archive   archiver
	Publisher eventPublisher
	Signer    tokenSigner
	Locker    keylock.Locker
	Metrics   outcomeRecorder
	Log       *zap.Logger
	Now       func() time.Time
}

func NewService(deps ServiceDeps) (Service, error) {
	if deps.Sellers == nil || deps.OTP == nil {
		return nil, errors.New("registration: seller store and otp service are required")
	}
	s := &service{
		sellers:   deps.Sellers,
		otp:       deps.OTP,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		signer:    deps.Signer,
		locker:    deps.Locker,
		metrics:   deps.Metrics,
		log:       deps.Log,
		now:       deps.Now,
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
	return s, nil
}

func (s *service) Submit(ctx context.Context, d *domain.RegistrationDraft) (*SubmitResult, error) {
	res, err := s.submit(ctx, d)
	s.metrics.RegistrationOutcome(submitOutcome(err))
	return res, err
}

func (s *service) submit(ctx context.Context, d *domain.RegistrationDraft) (*SubmitResult, error) {
	if d == nil {
		return nil, fmt.Errorf("empty registration: %w", domain.ErrBadRequest)
	}
	for _, step := range []Step{StepBusiness, StepContact, StepShipping} {
		missing := MissingFields(d, step)
		if step == StepContact {
			// Verification is checked against the OTP store below, not the client's claim.
			missing = withoutVerification(missing)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%s step missing %s: %w", step, strings.Join(missing, ", "), domain.ErrBadRequest)
		}
	}

	addr := domain.NormalizeEmail(d.Contact.Email)

	// One submit per address at a time, from the verification re-check through OTP cleanup.
	unlock, err := s.locker.Lock(ctx, lockKey(addr))
	if err != nil {
		return nil, fmt.Errorf("lock registration for %s: %w", addr, err)
	}
	defer unlock()

	verified, err := s.otp.IsEmailVerified(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, fmt.Errorf("email %s not verified: %w", addr, domain.ErrUnauthorized)
	}

	existing, err := s.sellers.GetByEmail(ctx, addr)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup seller by email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("seller with email %s: %w", addr, domain.ErrConflict)
	}

	seller := newSeller(d, addr, s.now().UTC())
	if err := s.sellers.Create(ctx, seller); err != nil {
		return nil, fmt.Errorf("create seller: %w", err)
	}
	s.log.Info("seller registered", zap.String("seller_id", seller.SellerID))

	// The seller is durable from here on; remaining steps only log failures.
	if err := s.otp.CleanupOTP(ctx, addr); err != nil {
		s.log.Warn("cleanup otp after registration", zap.String("seller_id", seller.SellerID), zap.Error(err))
	}
	s.sideEffects(ctx, d, seller)

	res := &SubmitResult{Seller: seller}
	if s.signer != nil {
		tok, err := s.signer.Sign(seller.SellerID, seller.Email)
		if err != nil {
			s.log.Warn("sign seller token", zap.String("seller_id", seller.SellerID), zap.Error(err))
		} else {
			res.Token = tok
		}
	}
	return res, nil
}

func (s *service) sideEffects(ctx context.Context, d *domain.RegistrationDraft, seller *domain.Seller) {
	if s.archive != nil {
		snapshot := struct {
			Seller *domain.Seller            `json:"seller"`
			Draft  *domain.RegistrationDraft `json:"draft"`
		}{seller, d}
		if _, err := s.archive.PutJSON(ctx, archiveKey(seller.SellerID), snapshot); err != nil {
			s.log.Warn("archive registration", zap.String("seller_id", seller.SellerID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, EventSellerRegistered, seller); err != nil {
			s.log.Warn("publish seller event", zap.String("seller_id", seller.SellerID), zap.Error(err))
		}
	}
}

func (s *service) GetSeller(ctx context.Context, sellerID string) (*domain.Seller, error) {
	return s.sellers.Get(ctx, sellerID)
}

// lockKey is distinct from the OTP service's key so CleanupOTP can lock while Submit holds this one.
func lockKey(addr string) string {
	return "registration:" + domain.EmailKey(addr)
}

func archiveKey(sellerID string) string {
	return fmt.Sprintf("registrations/%s.json", sellerID)
}

func newSeller(d *domain.RegistrationDraft, addr string, now time.Time) *domain.Seller {
	b := trimBusiness(d.Business)
	c := trimContact(d.Contact)
	sh := trimShipping(d.Shipping)
	seller := &domain.Seller{
		SellerID:       id.New(),
		BusinessName:   b.BusinessName,
		AccountType:    b.AccountType,
		ReferralSource: b.ReferralSource,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          addr,
		Phone:          c.Phone,
		Address:        c.Address,
		City:           c.City,
		PostalCode:     c.PostalCode,
		ShippingMethod: sh.Method,
		ListPublicly:   d.Visibility.ListPublicly,
		AdsOptIn:       d.Visibility.AdsOptIn,
		Status:         domain.SellerStatusPendingReview,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if b.AccountType == domain.AccountTypeBusiness {
		seller.TaxID = b.TaxID
	}
	if sh.Method == domain.ShippingIntegratedPartner {
		seller.Partners = sh.Partners
	}
	return seller
}

func withoutVerification(missing []string) []string {
	out := missing[:0]
	for _, f := range missing {
		if f != FieldEmailVerification {
			out = append(out, f)
		}
	}
	return out
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCreated
	case errors.Is(err, domain.ErrBadRequest):
		return OutcomeIncomplete
	case errors.Is(err, domain.ErrUnauthorized):
		return OutcomeUnverified
	case errors.Is(err, domain.ErrConflict):
		return OutcomeDuplicate
	default:
		return OutcomeError
	}
}

type nopRecorder struct{}

func (nopRecorder) RegistrationOutcome(string) {}
