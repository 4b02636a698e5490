package registration

import (
	"context"
	"testing"

	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOTPClient struct{ mock.Mock }

func (m *mockOTPClient) SendOTP(ctx context.Context, email string) (*otp.SendResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*otp.SendResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPClient) VerifyOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type mockSubmitter struct{ mock.Mock }

func (m *mockSubmitter) Submit(ctx context.Context, d *domain.RegistrationDraft) (*SubmitResult, error) {
	args := m.Called(ctx, d)
	if r, _ := args.Get(0).(*SubmitResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// wizardAtContact returns a wizard on the contact step with a verified address.
func wizardAtContact(t *testing.T, otpClient *mockOTPClient, sub *mockSubmitter) *Wizard {
	t.Helper()
	w := NewWizard(otpClient, sub)
	full := completeDraft()
	require.NoError(t, w.SetBusiness(full.Business))
	require.NoError(t, w.Next())

	c := full.Contact
	require.NoError(t, w.SetContact(c))
	otpClient.On("SendOTP", mock.Anything, "a@b.com").Return(&otp.SendResult{SessionID: "sid-1"}, nil).Once()
	otpClient.On("VerifyOTP", mock.Anything, "a@b.com", "123456").Return(nil).Once()
	require.NoError(t, w.SendCode(context.Background()))
	require.NoError(t, w.VerifyCode(context.Background(), "123456"))
	return w
}

func TestWizard_StartsAtBusinessWithDefaults(t *testing.T) {
	w := NewWizard(new(mockOTPClient), new(mockSubmitter))

	assert.Equal(t, StepBusiness, w.Step())
	d := w.Draft()
	assert.True(t, d.Visibility.ListPublicly)
	assert.False(t, d.Visibility.AdsOptIn)
	assert.False(t, d.OTP.Sent)
}

func TestWizard_NextIsGuarded(t *testing.T) {
	w := NewWizard(new(mockOTPClient), new(mockSubmitter))

	err := w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)
	assert.Equal(t, StepBusiness, w.Step())

	require.NoError(t, w.SetBusiness(completeDraft().Business))
	require.NoError(t, w.Next())
	assert.Equal(t, StepContact, w.Step())

	require.NoError(t, w.SetContact(completeDraft().Contact))
	assert.ErrorIs(t, w.Next(), ErrStepIncomplete, "email not verified yet")
	assert.Equal(t, StepContact, w.Step())
}

func TestWizard_SendAndVerifyUpdateOTPState(t *testing.T) {
	otpClient := new(mockOTPClient)
	w := wizardAtContact(t, otpClient, new(mockSubmitter))

	d := w.Draft()
	assert.True(t, d.OTP.Sent)
	assert.True(t, d.OTP.Verified)
	assert.Equal(t, "a@b.com", d.OTP.Email)
	require.NotNil(t, d.OTP.SessionToken)
	assert.Equal(t, "sid-1", *d.OTP.SessionToken)
	assert.Nil(t, d.OTP.LastError)

	require.NoError(t, w.Next())
	assert.Equal(t, StepShipping, w.Step())
	otpClient.AssertExpectations(t)
}

func TestWizard_VerifyFailureSetsLastError(t *testing.T) {
	otpClient := new(mockOTPClient)
	w := NewWizard(otpClient, new(mockSubmitter))
	require.NoError(t, w.SetEmail("a@b.com"))
	otpClient.On("SendOTP", mock.Anything, "a@b.com").Return(&otp.SendResult{SessionID: "sid"}, nil)
	otpClient.On("VerifyOTP", mock.Anything, "a@b.com", "000000").Return(&domain.OTPError{
		Code: domain.ErrInvalidCode, Message: "Invalid code. 2 attempts remaining", Remaining: 2,
	})
	require.NoError(t, w.SendCode(context.Background()))

	err := w.VerifyCode(context.Background(), "000000")

	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	d := w.Draft()
	assert.False(t, d.OTP.Verified)
	require.NotNil(t, d.OTP.LastError)
	assert.Equal(t, "Invalid code. 2 attempts remaining", *d.OTP.LastError)
	assert.Equal(t, "Invalid code. 2 attempts remaining", w.LastError())
}

func TestWizard_VerifyWithoutSendForThisAddress(t *testing.T) {
	otpClient := new(mockOTPClient)
	w := NewWizard(otpClient, new(mockSubmitter))
	require.NoError(t, w.SetEmail("a@b.com"))

	err := w.VerifyCode(context.Background(), "123456")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	otpClient.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_EmailEditResetsVerification(t *testing.T) {
	w := wizardAtContact(t, new(mockOTPClient), new(mockSubmitter))
	require.True(t, w.CanAdvance(StepContact))

	require.NoError(t, w.SetEmail("other@b.com"))

	d := w.Draft()
	assert.False(t, d.OTP.Sent)
	assert.False(t, d.OTP.Verified)
	assert.Nil(t, d.OTP.SessionToken)
	assert.False(t, w.CanAdvance(StepContact))
	assert.Contains(t, w.MissingFields(StepContact), FieldEmailVerification)
}

func TestWizard_SameEmailKeepsVerification(t *testing.T) {
	w := wizardAtContact(t, new(mockOTPClient), new(mockSubmitter))

	require.NoError(t, w.SetEmail("  A@b.com"))

	assert.True(t, w.Draft().OTP.Verified)
	assert.True(t, w.CanAdvance(StepContact))
}

func TestWizard_BackKeepsData(t *testing.T) {
	w := wizardAtContact(t, new(mockOTPClient), new(mockSubmitter))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetShipping(domain.ShippingInfo{Method: domain.ShippingPickup}))
	require.NoError(t, w.Next())
	assert.Equal(t, StepVisibility, w.Step())

	require.NoError(t, w.Back(StepBusiness))
	assert.Equal(t, StepBusiness, w.Step())
	assert.Equal(t, "Acme Crafts", w.Draft().Business.BusinessName)
	assert.Equal(t, domain.ShippingPickup, w.Draft().Shipping.Method)

	assert.ErrorIs(t, w.Back(StepBusiness), ErrInvalidStep)
	assert.ErrorIs(t, w.Back(StepShipping), ErrInvalidStep, "no skipping forward")
}

func advanceToVisibility(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Next())
	require.NoError(t, w.SetShipping(domain.ShippingInfo{Method: domain.ShippingSelf}))
	require.NoError(t, w.Next())
	require.Equal(t, StepVisibility, w.Step())
}

func TestWizard_SubmitSuccessIsTerminal(t *testing.T) {
	sub := new(mockSubmitter)
	w := wizardAtContact(t, new(mockOTPClient), sub)
	advanceToVisibility(t, w)
	want := &SubmitResult{Seller: &domain.Seller{SellerID: "01J"}}
	sub.On("Submit", mock.Anything, mock.AnythingOfType("*domain.RegistrationDraft")).Return(want, nil).Once()

	res, err := w.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, res)
	assert.Equal(t, want, w.Result())
	assert.Equal(t, StepSubmitted, w.Step())
	assert.ErrorIs(t, w.Next(), ErrSubmitted)
	assert.ErrorIs(t, w.Back(StepBusiness), ErrSubmitted)
	assert.ErrorIs(t, w.SetEmail("x@y.com"), ErrSubmitted)
	assert.ErrorIs(t, w.SendCode(context.Background()), ErrSubmitted)
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitted)
	sub.AssertNumberOfCalls(t, "Submit", 1)
}

func TestWizard_SubmitFailureStaysOnLastStep(t *testing.T) {
	sub := new(mockSubmitter)
	w := wizardAtContact(t, new(mockOTPClient), sub)
	advanceToVisibility(t, w)
	sub.On("Submit", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized).Once()

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, StepVisibility, w.Step())
	assert.Equal(t, "Please verify your email address before submitting.", w.LastError())
	assert.Nil(t, w.Result())
}

func TestWizard_SubmitOnlyFromLastStep(t *testing.T) {
	sub := new(mockSubmitter)
	w := wizardAtContact(t, new(mockOTPClient), sub)

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, ErrStepIncomplete)
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestWizard_SubmitRechecksEarlierSteps(t *testing.T) {
	sub := new(mockSubmitter)
	w := wizardAtContact(t, new(mockOTPClient), sub)
	advanceToVisibility(t, w)
	require.NoError(t, w.SetBusiness(domain.BusinessInfo{BusinessName: "Acme Crafts", AccountType: domain.AccountTypeBusiness, ReferralSource: "search"}))

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, ErrStepIncomplete)
	assert.Contains(t, err.Error(), "tax_id")
	assert.Equal(t, StepVisibility, w.Step())
	assert.Equal(t, "Please complete the business step.", w.LastError())
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestWizard_SubmitBlockedAfterEmailEditOnLastStep(t *testing.T) {
	sub := new(mockSubmitter)
	w := wizardAtContact(t, new(mockOTPClient), sub)
	advanceToVisibility(t, w)
	require.NoError(t, w.SetEmail("other@b.com"))

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, ErrStepIncomplete)
	assert.Contains(t, err.Error(), FieldEmailVerification)
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}
