package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func emailJSConfig(endpoint string) config.EmailConfig {
	return config.EmailConfig{
		EmailJSEndpoint:   endpoint,
		EmailJSServiceID:  "service_1",
		EmailJSTemplateID: "template_1",
		EmailJSPublicKey:  "pub",
		EmailJSPrivateKey: "priv",
	}
}

func testMessage() Message {
	return Message{
		ToEmail:     "a@b.com",
		ToName:      "a",
		Passcode:    "123456",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		TTL:         10 * time.Minute,
		CompanyName: "Seller Hub",
	}
}

func TestEmailJSSender_Send_PostsTemplateParams(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	s := NewEmailJSSender(emailJSConfig(srv.URL), srv.Client(), zap.NewNop())
	require.NoError(t, s.Send(context.Background(), testMessage()))

	assert.Equal(t, "service_1", got.ServiceID)
	assert.Equal(t, "template_1", got.TemplateID)
	assert.Equal(t, "pub", got.UserID)
	assert.Equal(t, "priv", got.AccessToken)
	assert.Equal(t, "123456", got.TemplateParams["passcode"])
	assert.Equal(t, "a@b.com", got.TemplateParams["to_email"])
}

func TestEmailJSSender_Send_RejectedParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("The recipients address is empty"))
	}))
	defer srv.Close()

	s := NewEmailJSSender(emailJSConfig(srv.URL), srv.Client(), zap.NewNop())
	err := s.Send(context.Background(), testMessage())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
	assert.Contains(t, pe.Body, "recipients address is empty")
	assert.Equal(t, domain.DeliveryReasonBadParameters, Classify(err))
}

func TestEmailJSSender_Send_MissingCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := emailJSConfig(srv.URL)
	cfg.EmailJSTemplateID = ""
	s := NewEmailJSSender(cfg, srv.Client(), zap.NewNop())

	err := s.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, called)
}
