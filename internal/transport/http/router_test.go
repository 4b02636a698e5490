package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/application/registration"
	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/domain"
	"github.com/seller-onboarding/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOTP struct{ sent []string }

func (s *stubOTP) SendOTP(_ context.Context, email string) (*otp.SendResult, error) {
	s.sent = append(s.sent, email)
	return &otp.SendResult{SessionID: "sess", ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}
func (s *stubOTP) VerifyOTP(context.Context, string, string) error { return nil }
func (s *stubOTP) IsEmailVerified(context.Context, string) (bool, error) { return false, nil }
func (s *stubOTP) CleanupOTP(context.Context, string) error { return nil }

type stubRegistration struct{}

func (stubRegistration) Submit(context.Context, *domain.RegistrationDraft) (*registration.SubmitResult, error) {
	return nil, domain.ErrUnauthorized
}
func (stubRegistration) GetSeller(context.Context, string) (*domain.Seller, error) {
	return nil, domain.ErrNotFound
}

func newTestRouter(t *testing.T) (http.Handler, *stubOTP) {
	t.Helper()
	o := &stubOTP{}
	h, stop := NewRouter(config.Load(), &Deps{OTP: o, Registration: stubRegistration{}, Metrics: metrics.New()})
	t.Cleanup(stop)
	return h, o
}

func TestRouter_OTPSend(t *testing.T) {
	h, o := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/send", strings.NewReader(`{"email":"a@b.com"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"a@b.com"}, o.sent)
}

func TestRouter_SellersMeNotMountedWithoutJWT(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sellers/me", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_MetricsExposeRequestCounts(t *testing.T) {
	h, _ := newTestRouter(t)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `/v1/health-check/{action}`)
}

func sendFrom(h http.Handler, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/v1/otp/send", strings.NewReader(`{"email":"a@b.com"}`))
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRouter_OTPLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	h, _ := newTestRouter(t)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, sendFrom(h, fmt.Sprintf("203.0.113.%d", i)))
	}
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "203.0.113.99"))
}

func TestRouter_TrustedProxyKeysLimiterOnForwardedFor(t *testing.T) {
	cfg := config.Load()
	cfg.TrustProxyHeaders = true
	h, stop := NewRouter(cfg, &Deps{OTP: &stubOTP{}, Registration: stubRegistration{}})
	t.Cleanup(stop)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, sendFrom(h, "203.0.113.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, sendFrom(h, "203.0.113.2"))
}
