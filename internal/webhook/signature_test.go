package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSignMatchesReferenceHMAC(t *testing.T) {
	payload := []byte(`{"id":"abc","event":"reminder.triggered"}`)
	secret := "topsecret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign(payload, secret); got != want {
		t.Fatalf("Sign = %q, want %q", got, want)
	}
}

func TestSignEmptySecret(t *testing.T) {
	if got := Sign([]byte("payload"), ""); got != "" {
		t.Fatalf("Sign with empty secret = %q, want empty", got)
	}
}

func TestVerifyRoundtrip(t *testing.T) {
	payload := []byte("hello world")
	sig := Sign(payload, "k1")

	if !Verify(payload, sig, "k1") {
		t.Fatal("Verify rejected a valid signature")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	sig := Sign(payload, "k1")

	tampered := []byte(`{"amount":900}`)
	if Verify(tampered, sig, "k1") {
		t.Fatal("Verify accepted a signature for different bytes")
	}
	if Verify(payload, sig, "other-key") {
		t.Fatal("Verify accepted a signature with the wrong secret")
	}

	// Flip one hex character.
	broken := []byte(sig)
	if broken[0] == 'a' {
		broken[0] = 'b'
	} else {
		broken[0] = 'a'
	}
	if Verify(payload, string(broken), "k1") {
		t.Fatal("Verify accepted a mutated signature")
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	if Verify([]byte("x"), "", "k1") {
		t.Fatal("Verify accepted an empty signature")
	}
	if Verify([]byte("x"), "deadbeef", "") {
		t.Fatal("Verify accepted an empty secret")
	}
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(s1) != 64 {
		t.Fatalf("secret length = %d, want 64 hex chars", len(s1))
	}
	if _, err := hex.DecodeString(s1); err != nil {
		t.Fatalf("secret is not hex: %v", err)
	}

	s2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if s1 == s2 {
		t.Fatal("two generated secrets are identical")
	}
}
