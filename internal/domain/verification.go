package domain

import (
	"strings"
	"time"
)

// OTPRecord is the single outstanding verification challenge for an email address.
// Keyed by the normalized address. Timestamps are Unix milliseconds; TTL is Unix
// seconds and only drives DynamoDB's background expiry sweep.
type OTPRecord struct {
	Key       string `json:"-" dynamodbav:"email_key"`
	Email     string `json:"email" dynamodbav:"email"`
	Code      string `json:"-" dynamodbav:"code"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
	Verified  bool   `json:"verified" dynamodbav:"verified"`
	TTL       int64  `json:"-" dynamodbav:"ttl"`
}

// Expired reports whether the record is past its expiry at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.UnixMilli() > r.ExpiresAt
}

// Age is the time elapsed since the code was generated.
func (r *OTPRecord) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-r.CreatedAt) * time.Millisecond
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailKey is the store key for an address. Distinct normalized addresses
// always get distinct keys.
func EmailKey(email string) string {
	return NormalizeEmail(email)
}

// BelongsTo reports whether the record was issued for addr.
func (r *OTPRecord) BelongsTo(addr string) bool {
	return r.Email == NormalizeEmail(addr)
}
