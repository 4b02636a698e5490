package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/domain"
)

var (
	// ErrSubmitted is returned by every mutation once the draft has been submitted.
	ErrSubmitted = errors.New("registration already submitted")
	// ErrStepIncomplete is returned when Next or Submit is called on an unfinished step.
	ErrStepIncomplete = errors.New("step incomplete")
	// ErrInvalidStep is returned by Back for the current or a later step.
	ErrInvalidStep = errors.New("invalid step")
)

// OTPClient is the part of the OTP service the wizard drives.
type OTPClient interface {
	SendOTP(ctx context.Context, email string) (*otp.SendResult, error)
	VerifyOTP(ctx context.Context, email, code string) error
}

// Submitter persists a completed draft.
type Submitter interface {
	Submit(ctx context.Context, d *domain.RegistrationDraft) (*SubmitResult, error)
}

// Wizard walks one draft through the four registration steps. It is not safe
// for concurrent use; each person filling in the form owns one Wizard.
type Wizard struct {
	draft     *domain.RegistrationDraft
	step      Step
	otp       OTPClient
	submitter Submitter
	lastError string
	result    *SubmitResult
}

func NewWizard(otpClient OTPClient, submitter Submitter) *Wizard {
	return &Wizard{
		draft:     domain.NewRegistrationDraft(),
		step:      StepBusiness,
		otp:       otpClient,
		submitter: submitter,
	}
}

func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() domain.RegistrationDraft { return *w.draft }

// LastError is the user-facing message of the most recent failed action.
func (w *Wizard) LastError() string { return w.lastError }

// Result is set once Submit succeeded.
func (w *Wizard) Result() *SubmitResult { return w.result }

func (w *Wizard) CanAdvance(step Step) bool { return CanAdvance(w.draft, step) }

func (w *Wizard) MissingFields(step Step) []string { return MissingFields(w.draft, step) }

// Next moves one step forward if the current step is complete.
func (w *Wizard) Next() error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	if w.step == StepVisibility {
		return fmt.Errorf("use Submit on the last step: %w", ErrInvalidStep)
	}
	if !w.CanAdvance(w.step) {
		return fmt.Errorf("%s: %w", w.step, ErrStepIncomplete)
	}
	w.step++
	return nil
}

// Back returns to any earlier step. Entered data is kept.
func (w *Wizard) Back(step Step) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	if step < StepBusiness || step >= w.step {
		return fmt.Errorf("cannot go back to %s from %s: %w", step, w.step, ErrInvalidStep)
	}
	w.step = step
	return nil
}

func (w *Wizard) SetBusiness(b domain.BusinessInfo) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	w.draft.Business = b
	return nil
}

// SetContact stores the contact details. Changing the email drops any
// verification bound to the previous address.
func (w *Wizard) SetContact(c domain.ContactInfo) error {
	if err := w.SetEmail(c.Email); err != nil {
		return err
	}
	c.Email = w.draft.Contact.Email
	w.draft.Contact = c
	return nil
}

// SetEmail updates the address. A different address resets the OTP state.
func (w *Wizard) SetEmail(addr string) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	if domain.NormalizeEmail(addr) != domain.NormalizeEmail(w.draft.Contact.Email) {
		w.draft.OTP = domain.OTPState{}
	}
	w.draft.Contact.Email = addr
	return nil
}

func (w *Wizard) SetShipping(s domain.ShippingInfo) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	w.draft.Shipping = s
	return nil
}

func (w *Wizard) SetVisibility(v domain.VisibilityInfo) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	w.draft.Visibility = v
	return nil
}

// SendCode asks the OTP service for a code for the entered address.
func (w *Wizard) SendCode(ctx context.Context) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	addr := domain.NormalizeEmail(w.draft.Contact.Email)
	res, err := w.otp.SendOTP(ctx, addr)
	if err != nil {
		w.fail(err)
		return err
	}
	sid := res.SessionID
	w.draft.OTP = domain.OTPState{Sent: true, Verified: false, Email: addr, SessionToken: &sid}
	w.lastError = ""
	return nil
}

// VerifyCode checks code for the address the last code was sent to.
func (w *Wizard) VerifyCode(ctx context.Context, code string) error {
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	addr := domain.NormalizeEmail(w.draft.Contact.Email)
	if !w.draft.OTP.Sent || w.draft.OTP.Email != addr {
		err := &domain.OTPError{Code: domain.ErrNotFound, Message: "Please request a code for this email first."}
		w.fail(err)
		return err
	}
	if err := w.otp.VerifyOTP(ctx, addr, code); err != nil {
		w.fail(err)
		return err
	}
	w.draft.OTP.Verified = true
	w.draft.OTP.LastError = nil
	w.lastError = ""
	return nil
}

// Submit hands the draft to the submitter. Success is terminal; on failure the
// wizard stays on the last step.
func (w *Wizard) Submit(ctx context.Context) (*SubmitResult, error) {
	if w.step == StepSubmitted {
		return nil, ErrSubmitted
	}
	if w.step != StepVisibility {
		return nil, fmt.Errorf("submit from %s: %w", w.step, ErrStepIncomplete)
	}
	// Earlier steps may have been edited after they were left.
	for _, step := range []Step{StepBusiness, StepContact, StepShipping} {
		if missing := MissingFields(w.draft, step); len(missing) > 0 {
			w.lastError = "Please complete the " + step.String() + " step."
			return nil, fmt.Errorf("%s step missing %s: %w", step, strings.Join(missing, ", "), ErrStepIncomplete)
		}
	}
	res, err := w.submitter.Submit(ctx, w.draft)
	if err != nil {
		w.lastError = userMessage(err)
		return nil, err
	}
	w.step = StepSubmitted
	w.result = res
	w.lastError = ""
	return res, nil
}

func (w *Wizard) fail(err error) {
	msg := userMessage(err)
	w.lastError = msg
	w.draft.OTP.LastError = &msg
}

func userMessage(err error) string {
	if oe, ok := domain.AsOTPError(err); ok {
		return oe.Message
	}
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "Please verify your email address before submitting."
	case errors.Is(err, domain.ErrConflict):
		return "A seller account with this email already exists."
	case errors.Is(err, domain.ErrBadRequest):
		return "Some required information is missing."
	default:
		return "Something went wrong. Please try again."
	}
}
