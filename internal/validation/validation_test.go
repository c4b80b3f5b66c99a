package validation

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"plain address", "dana@example.com", false},
		{"subdomain", "dana@mail.example.co.uk", false},
		{"plus tag", "dana+kids@example.com", false},
		{"surrounding whitespace", "  dana@example.com  ", false},
		{"empty", "", true},
		{"missing at", "dana.example.com", true},
		{"missing domain", "dana@", true},
		{"missing tld", "dana@example", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"minimum length", "12345678", false},
		{"typical", "correct horse battery", false},
		{"too short", "1234567", true},
		{"empty", "", true},
		{"over bcrypt limit", strings.Repeat("x", 73), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "Feed the cat", false},
		{"only whitespace", "   ", true},
		{"empty", "", true},
		{"too long", strings.Repeat("n", 101), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePointsAndCost(t *testing.T) {
	if err := ValidatePoints(0); err != nil {
		t.Errorf("ValidatePoints(0) error = %v, want nil", err)
	}
	if err := ValidatePoints(-1); err == nil {
		t.Error("ValidatePoints(-1) = nil, want error")
	}
	if err := ValidatePoints(10001); err == nil {
		t.Error("ValidatePoints(10001) = nil, want error")
	}
	if err := ValidateCost(1); err != nil {
		t.Errorf("ValidateCost(1) error = %v, want nil", err)
	}
	if err := ValidateCost(0); err == nil {
		t.Error("ValidateCost(0) = nil, want error")
	}
}
