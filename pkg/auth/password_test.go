package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q does not carry the argon2id prefix", hash)
	}
	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	for _, hash := range []string{"", "not-a-hash", "$argon2id$v=19$m=65536"} {
		if VerifyPassword("anything", hash) {
			t.Errorf("VerifyPassword against %q should fail", hash)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("five characters should be rejected")
	}
	if err := ValidatePassword("sixchr"); err != nil {
		t.Errorf("six characters should pass, got %v", err)
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("empty password should be rejected")
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"admin@school.edu", false},
		{"Name Surname <admin@school.edu>", true},
		{"not-an-email", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@School.EDU "); got != "admin@school.edu" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
