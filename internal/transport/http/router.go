package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/transport/http/handler"
	appmiddleware "github.com/seller-onboarding/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned stop func releases
// the rate limiter's background cleanup.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.RequestLogger(log))
	if deps.Metrics != nil {
		r.Use(appmiddleware.Metrics(deps.Metrics.RequestsTotal, deps.Metrics.RequestDuration))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Code sends and checks go out by email or are brute-forceable; 5 req/s per IP, burst 10.
	otpRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(deps.OTP)
	regH := handler.NewRegistrationHandler(deps.Registration)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(otpRL.Limit).Post("/otp/send", otpH.Send)
		r.With(otpRL.Limit).Post("/otp/verify", otpH.Verify)
		r.Get("/otp/status", otpH.Status)

		r.Post("/registrations/steps/{step}", regH.CheckStep)
		r.Post("/registrations", regH.Submit)

		if deps.JWTProvider != nil {
			r.With(appmiddleware.Auth(deps.JWTProvider)).Get("/sellers/me", regH.Me)
		}
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r, otpRL.Stop
}
