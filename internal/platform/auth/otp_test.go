package auth

import (
	"testing"
	"time"
)

func TestOTPConfig_GenerateBypass(t *testing.T) {
	cfg := OTPConfig{Bypass: true, BypassCode: "123456"}
	code, err := cfg.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "123456" {
		t.Errorf("expected bypass code, got %s", code)
	}
}

func TestOTPConfig_GenerateRandom(t *testing.T) {
	cfg := OTPConfig{}
	for i := 0; i < 50; i++ {
		code, err := cfg.Generate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("code should not start with zero: %q", code)
		}
	}
}

func TestOTPConfig_ExpiresAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := (OTPConfig{}).ExpiresAt(now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("expected default 10m expiry, got %v", got)
	}
	if got := (OTPConfig{TTL: time.Minute}).ExpiresAt(now); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("expected 1m expiry, got %v", got)
	}
}

func TestHashAndCompareOTP(t *testing.T) {
	hash, err := HashOTP("482910")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "482910" {
		t.Fatal("hash must not equal the code")
	}
	if !CompareOTP(hash, "482910") {
		t.Error("expected matching code to compare true")
	}
	if CompareOTP(hash, "000000") {
		t.Error("expected wrong code to compare false")
	}
}
