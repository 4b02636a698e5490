package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string // registration archive; empty disables archiving
	SNSRegion      string
	SNSTopicARN    string // seller.registered events; empty disables publishing

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	OTP   OTPConfig
	Email EmailConfig
	Lock  LockConfig
	Redis RedisConfig
	Log   LogConfig

	AllowedOrigins []string // CORS allowed origins

	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only when every request passes through a proxy that sets them.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPs    string
	Sellers string
}

// OTPConfig carries the verification timing policy.
type OTPConfig struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
	TTLGrace    time.Duration // extra lifetime before DynamoDB sweeps an expired record
}

// EmailConfig selects and configures the transactional email provider.
type EmailConfig struct {
	Provider    string // "emailjs" | "sendgrid" | "smtp"
	CompanyName string
	FromEmail   string
	FromName    string

	EmailJSEndpoint   string
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSPublicKey  string
	EmailJSPrivateKey string

	SendGridAPIKey     string
	SendGridTemplateID string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
}

// LockConfig selects the per-email single-writer backend.
type LockConfig struct {
	Backend string // "memory" | "redis"
	TTL     time.Duration
	Wait    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Mode       string // "debug" logs to the console, anything else to a rotated file
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads all configuration from environment variables.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		AppPort:        v.GetString("APP_PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		AWSRegion:      v.GetString("AWS_REGION"),
		AWSEndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		DynamoTables: DynamoTables{
			OTPs:    v.GetString("DYNAMO_TABLE_OTPS"),
			Sellers: v.GetString("DYNAMO_TABLE_SELLERS"),
		},
		S3BucketName:      v.GetString("S3_BUCKET_NAME"),
		SNSRegion:         v.GetString("SNS_REGION"),
		SNSTopicARN:       v.GetString("SNS_TOPIC_ARN"),
		JWTPrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
		JWTExpiry:         time.Duration(v.GetInt("JWT_EXPIRY_DAYS")) * 24 * time.Hour,
		OTP: OTPConfig{
			TTL:         v.GetDuration("OTP_TTL"),
			Cooldown:    v.GetDuration("OTP_COOLDOWN"),
			MaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
			TTLGrace:    v.GetDuration("OTP_TTL_GRACE"),
		},
		Email: EmailConfig{
			Provider:           strings.ToLower(v.GetString("EMAIL_PROVIDER")),
			CompanyName:        v.GetString("EMAIL_COMPANY_NAME"),
			FromEmail:          v.GetString("EMAIL_FROM"),
			FromName:           v.GetString("EMAIL_FROM_NAME"),
			EmailJSEndpoint:    v.GetString("EMAILJS_ENDPOINT"),
			EmailJSServiceID:   v.GetString("EMAILJS_SERVICE_ID"),
			EmailJSTemplateID:  v.GetString("EMAILJS_TEMPLATE_ID"),
			EmailJSPublicKey:   v.GetString("EMAILJS_PUBLIC_KEY"),
			EmailJSPrivateKey:  v.GetString("EMAILJS_PRIVATE_KEY"),
			SendGridAPIKey:     v.GetString("SENDGRID_API_KEY"),
			SendGridTemplateID: v.GetString("SENDGRID_TEMPLATE_ID"),
			SMTPHost:           v.GetString("SMTP_HOST"),
			SMTPPort:           v.GetString("SMTP_PORT"),
			SMTPUsername:       v.GetString("SMTP_USERNAME"),
			SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		},
		Lock: LockConfig{
			Backend: strings.ToLower(v.GetString("LOCK_BACKEND")),
			TTL:     v.GetDuration("LOCK_TTL"),
			Wait:    v.GetDuration("LOCK_WAIT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Mode:       v.GetString("LOG_MODE"),
			Dir:        v.GetString("LOG_DIR"),
			Filename:   v.GetString("LOG_FILENAME"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		AllowedOrigins:    strings.Split(v.GetString("ALLOWED_ORIGINS"), ","),
		TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT_URL", "")
	v.SetDefault("DYNAMO_TABLE_OTPS", "otps")
	v.SetDefault("DYNAMO_TABLE_SELLERS", "sellers")
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("SNS_REGION", "us-east-1")
	v.SetDefault("SNS_TOPIC_ARN", "")
	v.SetDefault("JWT_PRIVATE_KEY_PATH", "./private_key.pem")
	v.SetDefault("JWT_PUBLIC_KEY_PATH", "./public_key.pem")
	v.SetDefault("JWT_EXPIRY_DAYS", 7)

	v.SetDefault("OTP_TTL", 10*time.Minute)
	v.SetDefault("OTP_COOLDOWN", 60*time.Second)
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_TTL_GRACE", time.Hour)

	v.SetDefault("EMAIL_PROVIDER", "smtp")
	v.SetDefault("EMAIL_COMPANY_NAME", "Seller Hub")
	v.SetDefault("EMAIL_FROM", "noreply@example.com")
	v.SetDefault("EMAIL_FROM_NAME", "Seller Hub")
	v.SetDefault("EMAILJS_ENDPOINT", "https://api.emailjs.com/api/v1.0/email/send")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", "1025")

	v.SetDefault("LOCK_BACKEND", "memory")
	v.SetDefault("LOCK_TTL", 15*time.Second)
	v.SetDefault("LOCK_WAIT", 5*time.Second)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_MODE", "debug")
	v.SetDefault("LOG_FILENAME", "app.log")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 7)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_COMPRESS", true)

	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("TRUST_PROXY_HEADERS", false)
}

// Validate rejects settings the OTP workflow cannot honour.
func (c *Config) Validate() error {
	var errs []error
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP.Cooldown < 0 || c.OTP.Cooldown >= c.OTP.TTL {
		errs = append(errs, fmt.Errorf("OTP_COOLDOWN must be within [0, %s)", c.OTP.TTL))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	switch c.Email.Provider {
	case "emailjs", "sendgrid", "smtp":
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider))
	}
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_BACKEND %q", c.Lock.Backend))
	}
	return errors.Join(errs...)
}
