package errors

import (
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Checkout", false},
		{"unicode", "Inscription · étape 2", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", 201), true},
		{"max length", strings.Repeat("a", 200), false},
		{"newline", "Sign\nup", true},
		{"null byte", "Sign\x00up", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTitle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want INVALID_INPUT", GetCode(err))
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"screen asset", "checkout-1-3.png", false},
		{"spaces", "sign up-2-1.jpg", false},
		{"empty", "", true},
		{"slash", "a/b.png", true},
		{"backslash", `a\b.png`, true},
		{"traversal", "../x.png", true},
		{"hidden", ".x.png", true},
		{"null byte", "a\x00.png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"http", "http://localhost:8000", false},
		{"https with path", "https://oracle.example.com/v1", false},
		{"empty", "", true},
		{"no scheme", "localhost:8000", true},
		{"ftp", "ftp://example.com", true},
		{"no host", "http://", true},
		{"unparseable", "http://[::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
