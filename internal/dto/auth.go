package dto

import (
	"errors"
	"regexp"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

// Validation errors
var (
	ErrInvalidPhone = errors.New("phone number must be in E.164 format")
	ErrInvalidCode  = errors.New("code must be 6 digits")
)

var (
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)
	codePattern  = regexp.MustCompile(`^\d{6}$`)
)

// SendOTPRequest asks for a one-time code.
type SendOTPRequest struct {
	Phone string `json:"phone_number" binding:"required"`
}

// Validate checks the phone format.
func (r *SendOTPRequest) Validate() error {
	if !phonePattern.MatchString(r.Phone) {
		return ErrInvalidPhone
	}
	return nil
}

// VerifyOTPRequest submits a received code.
type VerifyOTPRequest struct {
	Phone string `json:"phone_number" binding:"required"`
	Code  string `json:"otp" binding:"required"`
}

// Validate checks phone and code formats.
func (r *VerifyOTPRequest) Validate() error {
	if !phonePattern.MatchString(r.Phone) {
		return ErrInvalidPhone
	}
	if !codePattern.MatchString(r.Code) {
		return ErrInvalidCode
	}
	return nil
}

// IdentityResponse is the user profile exposed to the client.
type IdentityResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone_number"`
}

// NewIdentityResponse maps a domain identity onto the wire shape.
func NewIdentityResponse(id *domain.Identity) *IdentityResponse {
	return &IdentityResponse{
		ID:        id.ID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Role:      string(id.Role),
		Email:     id.Email,
		Phone:     id.Phone,
	}
}

// VerifyOTPResponse is returned after a successful login.
type VerifyOTPResponse struct {
	User        *IdentityResponse `json:"user"`
	RedirectTo  string            `json:"redirect_to"`
	SessionType string            `json:"session_type"`
}

// SendOTPResponse acknowledges code delivery.
type SendOTPResponse struct {
	Sent  bool   `json:"sent"`
	State string `json:"state"`
}
