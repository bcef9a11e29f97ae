package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OTPConfig controls one-time code generation. In bypass mode every code is
// BypassCode and accounts are verified at signup.
type OTPConfig struct {
	Bypass     bool
	BypassCode string
	TTL        time.Duration
}

const defaultOTPTTL = 10 * time.Minute

// Generate returns a six digit code, or the bypass code in bypass mode.
func (c OTPConfig) Generate() (string, error) {
	if c.Bypass {
		return c.BypassCode, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Lifetime returns TTL, or ten minutes when unset.
func (c OTPConfig) Lifetime() time.Duration {
	if c.TTL <= 0 {
		return defaultOTPTTL
	}
	return c.TTL
}

// ExpiresAt returns when a code issued at now stops being valid.
func (c OTPConfig) ExpiresAt(now time.Time) time.Time {
	return now.Add(c.Lifetime())
}

// HashOTP hashes a code for storage.
func HashOTP(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	return string(h), nil
}

// CompareOTP reports whether code matches the stored hash.
func CompareOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
