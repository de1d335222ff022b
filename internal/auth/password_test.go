package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d", len(parts))
	}
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashPassword_Empty(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Errorf("HashPassword(\"\") error = %v, want ErrEmptyPassword", err)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	password := "the_same_password_12345"

	hash1, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("Same password should produce different hashes due to random salt")
	}
	if len(hash1) != len(hash2) {
		t.Errorf("Hash length should be fixed, got %d and %d", len(hash1), len(hash2))
	}

	for _, h := range []string{hash1, hash2} {
		match, err := VerifyPassword(password, h)
		if err != nil || !match {
			t.Errorf("VerifyPassword(%q) = %v, %v; want true, nil", h, match, err)
		}
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Sup3r-secret!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "Sup3r-secret!", true},
		{"wrong last char", "Sup3r-secret?", false},
		{"wrong case", "sup3r-secret!", false},
		{"empty", "", false},
		{"prefix", "Sup3r", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword should not return error for a well-formed hash: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong format", "not-a-hash"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash"},
		{"missing parts", "$argon2id$v=19$m=65536"},
		{"bad params", "$argon2id$v=19$m=x,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g"},
		{"zero memory", "$argon2id$v=19$m=0,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g"},
		{"excessive memory", "$argon2id$v=19$m=4194304,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$c29tZWhhc2g"},
		{"empty key", "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHQ$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := VerifyPassword("password", tt.hash)
			if err != ErrInvalidHash {
				t.Errorf("VerifyPassword with %q error = %v, want %v", tt.name, err, ErrInvalidHash)
			}
		})
	}
}

func TestVerifyPassword_WrongVersion(t *testing.T) {
	t.Parallel()

	invalidVersionHash := "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJl"

	match, err := VerifyPassword("password", invalidVersionHash)
	if err != ErrIncompatibleVersion {
		t.Errorf("Expected ErrIncompatibleVersion, got: %v", err)
	}
	if match {
		t.Error("Should not match with incompatible version")
	}
}
