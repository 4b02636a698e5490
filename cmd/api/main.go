package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/application/registration"
	"github.com/seller-onboarding/internal/config"
	"github.com/seller-onboarding/internal/infrastructure/dynamo"
	"github.com/seller-onboarding/internal/infrastructure/email"
	jwtinfra "github.com/seller-onboarding/internal/infrastructure/jwt"
	redisinfra "github.com/seller-onboarding/internal/infrastructure/redis"
	s3infra "github.com/seller-onboarding/internal/infrastructure/s3"
	"github.com/seller-onboarding/internal/infrastructure/sns"
	"github.com/seller-onboarding/internal/logger"
	"github.com/seller-onboarding/internal/metrics"
	"github.com/seller-onboarding/internal/pkg/keylock"
	transporthttp "github.com/seller-onboarding/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl := logger.New(cfg.Log)
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("dynamodb client", zap.Error(err))
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)

	sender, err := email.New(cfg.Email, zl)
	if err != nil {
		zl.Fatal("email sender", zap.Error(err))
	}

	var locker keylock.Locker = keylock.New()
	if cfg.Lock.Backend == "redis" {
		rc, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			zl.Fatal("redis", zap.Error(err))
		}
		defer rc.Close()
		locker = redisinfra.NewLocker(rc, cfg.Lock.TTL, cfg.Lock.Wait, zl)
	}

	m := metrics.New()

	otpSvc, err := otp.NewService(otp.ServiceDeps{
		Store:       dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPs),
		Mailer:      sender,
		Locker:      locker,
		Metrics:     m,
		Log:         zl.Named("otp"),
		Config:      cfg.OTP,
		CompanyName: cfg.Email.CompanyName,
	})
	if err != nil {
		zl.Fatal("otp service", zap.Error(err))
	}

	regDeps := registration.ServiceDeps{
		Sellers: dynamo.NewSellerRepo(dynamoClient, cfg.DynamoTables.Sellers),
		OTP:     otpSvc,
		Locker:  locker,
		Metrics: m,
		Log:     zl.Named("registration"),
	}

	// Archive, events and tokens are optional; the service skips whatever is unset.
	if cfg.S3BucketName != "" {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			zl.Warn("registration archive disabled", zap.Error(err))
		} else {
			regDeps.Archive = s3infra.NewArchive(s3Client, cfg.S3BucketName)
		}
	}
	if cfg.SNSTopicARN != "" {
		if pub, err := sns.NewPublisher(ctx, cfg); err == nil {
			regDeps.Publisher = pub
		} else {
			zl.Warn("registration events disabled", zap.Error(err))
		}
	}
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
		regDeps.Signer = p
	} else {
		zl.Warn("JWT provider not available", zap.Error(err))
	}

	regSvc, err := registration.NewService(regDeps)
	if err != nil {
		zl.Fatal("registration service", zap.Error(err))
	}

	router, stopRouter := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		OTP:          otpSvc,
		Registration: regSvc,
		JWTProvider:  jwtProvider,
		Metrics:      m,
		Log:          zl.Named("http"),
	})
	defer stopRouter()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}
