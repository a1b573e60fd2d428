package config

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestAESGCMRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}

	plaintext := []byte(`{"backend":"secret-token"}`)
	ciphertext, err := encryptAESGCM(plaintext, key)
	if err != nil {
		t.Fatalf("encryptAESGCM() error = %v", err)
	}
	if bytes.Contains(ciphertext, []byte("secret-token")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	got, err := decryptAESGCM(ciphertext, key)
	if err != nil {
		t.Fatalf("decryptAESGCM() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}

	// Tampering must fail authentication.
	ciphertext[len(ciphertext)-1] ^= 0x01
	if _, err := decryptAESGCM(ciphertext, key); err == nil {
		t.Error("decryptAESGCM() accepted tampered ciphertext")
	}
}

func TestEncryptionNonePassthrough(t *testing.T) {
	m := NewEncryptionManager(EncryptionNone, "")
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	data := []byte("plain")
	enc, err := m.Encrypt(data)
	if err != nil || !bytes.Equal(enc, data) {
		t.Errorf("Encrypt() = %q, %v; want passthrough", enc, err)
	}
	dec, err := m.Decrypt(data)
	if err != nil || !bytes.Equal(dec, data) {
		t.Errorf("Decrypt() = %q, %v; want passthrough", dec, err)
	}
}

func TestCredentialStorePlainTextRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(dir); err != nil {
		t.Fatalf("Load() on empty dir error = %v", err)
	}
	if err := store.SetBackendToken("tok-123"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dir); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reloaded.BackendToken(); got != "tok-123" {
		t.Errorf("BackendToken() = %q, want %q", got, "tok-123")
	}
}
