package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret")

	signed, err := tokens.Issue(42, "partner", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, role, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if userID != 42 || role != "partner" {
		t.Errorf("claims = (%d, %s), want (42, partner)", userID, role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a").Issue(42, "client", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := NewTokens("secret-b").Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("test-secret")
	signed, err := tokens.Issue(42, "client", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := tokens.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("12345")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !VerifySecret("12345", hash) {
		t.Error("correct secret rejected")
	}
	if VerifySecret("54321", hash) {
		t.Error("wrong secret accepted")
	}
}

func TestGeneratedCodes(t *testing.T) {
	if pin := GeneratePIN(); len(pin) != 5 {
		t.Errorf("pin %q is not 5 digits", pin)
	}
	if code := GenerateMerchantCode(); len(code) != 6 {
		t.Errorf("merchant code %q is not 6 digits", code)
	}
}
