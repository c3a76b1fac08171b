package dto

import (
	"testing"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

func TestSendOTPRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"valid indian number", "+919800000001", false},
		{"valid short number", "+4712345678", false},
		{"missing plus", "919800000001", true},
		{"leading zero", "+0919800000001", true},
		{"letters", "+91abc0000001", true},
		{"too short", "+9198", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SendOTPRequest{Phone: tt.phone}
			err := r.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerifyOTPRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		code    string
		wantErr error
	}{
		{"valid", "+919800000001", "123456", nil},
		{"bad phone", "12345", "123456", ErrInvalidPhone},
		{"short code", "+919800000001", "123", ErrInvalidCode},
		{"alpha code", "+919800000001", "12345a", ErrInvalidCode},
		{"empty code", "+919800000001", "", ErrInvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &VerifyOTPRequest{Phone: tt.phone, Code: tt.code}
			if err := r.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewIdentityResponse(t *testing.T) {
	id := &domain.Identity{
		ID:        "u1",
		FirstName: "Asha",
		LastName:  "Patel",
		Role:      domain.RoleFarmer,
		Phone:     "+919800000001",
	}

	resp := NewIdentityResponse(id)
	if resp.Role != "farmer" {
		t.Errorf("expected role 'farmer', got %q", resp.Role)
	}
	if resp.Phone != id.Phone {
		t.Errorf("phone mismatch: %q", resp.Phone)
	}
}
