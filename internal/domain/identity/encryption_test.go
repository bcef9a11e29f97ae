package identity

import (
	"strings"
	"testing"

	"github.com/ankandalui/med-ai-sub001/internal/platform/phi"
)

func strPtr(s string) *string { return &s }

func newTestCipher(t *testing.T) phi.Cipher {
	t.Helper()
	c, err := phi.NewAESCipher([]byte("01234567890123456789012345678901"))
	if err != nil {
		t.Fatalf("failed to create test cipher: %v", err)
	}
	return c
}

func TestEncryptField_NilCipher(t *testing.T) {
	val := "1234-5678-9012"
	result, err := encryptField(nil, &val)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || *result != val {
		t.Errorf("expected value unchanged without a cipher, got %v", result)
	}
}

func TestEncryptField_NilAndEmpty(t *testing.T) {
	c := newTestCipher(t)
	result, err := encryptField(c, nil)
	if err != nil || result != nil {
		t.Errorf("expected nil passthrough, got %v %v", result, err)
	}
	empty := ""
	result, err = encryptField(c, &empty)
	if err != nil || result == nil || *result != "" {
		t.Errorf("expected empty passthrough, got %v %v", result, err)
	}
}

func TestEncryptField_RoundTrip(t *testing.T) {
	c := newTestCipher(t)
	original := "1234-5678-9012"

	encrypted, err := encryptField(c, strPtr(original))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *encrypted == original || strings.Contains(*encrypted, original) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}

	decrypted, err := decryptField(c, encrypted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *decrypted != original {
		t.Errorf("expected %q, got %q", original, *decrypted)
	}
}

func TestDecryptField_LegacyPlaintext(t *testing.T) {
	c := newTestCipher(t)
	decrypted, err := decryptField(c, strPtr("1234-5678-9012"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *decrypted != "1234-5678-9012" {
		t.Errorf("expected plaintext rows to read back unchanged, got %q", *decrypted)
	}
}

func TestNewPatientRepoWithEncryption(t *testing.T) {
	repo := NewPatientRepoWithEncryption(nil, newTestCipher(t)).(*patientRepoPG)
	if repo.cipher == nil {
		t.Error("expected cipher to be attached")
	}
}
