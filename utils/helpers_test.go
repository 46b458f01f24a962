package utils

import (
	"strings"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := CheckPassword("s3cret-pass", hash); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := CheckPassword("wrong-pass", hash); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(16)
	if err != nil {
		t.Fatalf("GenerateRandomString failed: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 chars, got %d", len(a))
	}
	b, _ := GenerateRandomString(16)
	if a == b {
		t.Fatal("two random strings collided")
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	n := GenerateOrderNumber()

	parts := strings.Split(n, "-")
	if len(parts) != 3 {
		t.Fatalf("expected RK-<date>-<tail>, got %q", n)
	}
	if parts[0] != "RK" {
		t.Fatalf("expected RK prefix, got %q", parts[0])
	}
	if parts[1] != time.Now().Format("20060102") {
		t.Fatalf("expected today's date, got %q", parts[1])
	}
	if len(parts[2]) != 6 {
		t.Fatalf("expected 6-char tail, got %q", parts[2])
	}
	if parts[2] != strings.ToUpper(parts[2]) {
		t.Fatalf("tail should be uppercase, got %q", parts[2])
	}
}

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role  string
		valid bool
	}{
		{"admin", true},
		{"class_teacher", true},
		{"branch_teacher", true},
		{"guidance", true},
		{"parent", true},
		{"superadmin", false},
		{"Admin", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsValidRole(tc.role); got != tc.valid {
			t.Errorf("IsValidRole(%q) = %v, want %v", tc.role, got, tc.valid)
		}
	}
}

func TestIsValidAccountStatus(t *testing.T) {
	for _, s := range []string{"pending", "active", "inactive", "suspended"} {
		if !IsValidAccountStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "deleted", "ACTIVE"} {
		if IsValidAccountStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestIsValidFileExtension(t *testing.T) {
	images := []string{"jpg", "jpeg", "png", "gif"}

	tests := []struct {
		name     string
		filename string
		valid    bool
	}{
		{"jpg", "photo.jpg", true},
		{"uppercase ext", "photo.JPG", true},
		{"double extension", "archive.tar.png", true},
		{"no extension", "photo", false},
		{"empty", "", false},
		{"disallowed", "script.exe", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidFileExtension(tc.filename, images); got != tc.valid {
				t.Fatalf("IsValidFileExtension(%q) = %v, want %v", tc.filename, got, tc.valid)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"null\x00byte", "nullbyte"},
		{"\x00", ""},
		{"clean", "clean"},
	}

	for _, tc := range tests {
		if got := SanitizeString(tc.in); got != tc.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
