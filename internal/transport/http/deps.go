package http

import (
	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/application/registration"
	jwtinfra "github.com/seller-onboarding/internal/infrastructure/jwt"
	"github.com/seller-onboarding/internal/metrics"
	"go.uber.org/zap"
)

// Deps holds everything the router needs. JWTProvider may be nil, in which
// case /sellers/me is not mounted.
type Deps struct {
	OTP          otp.Service
	Registration registration.Service
	JWTProvider  *jwtinfra.Provider
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}
