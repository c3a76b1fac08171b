package upstream

import (
	"context"
	"errors"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

// Common errors
var (
	// ErrUnauthorized means the remote service rejected the credential. The
	// caller's session must be cleared and the client sent back to login.
	ErrUnauthorized = errors.New("upstream rejected credential")
	// ErrInvalidCode means the submitted one-time code was wrong or expired.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrUserNotFound means no account exists for the phone number.
	ErrUserNotFound = errors.New("no account for phone number")
	// ErrUnavailable means the remote service could not be reached.
	ErrUnavailable = errors.New("upstream unavailable")
)

// AuthResult is the outcome of a successful code verification.
type AuthResult struct {
	Token    string
	Identity *domain.Identity
}

// AuthGateway runs the phone + one-time-code exchange against the remote
// service. The gateway treats it as an opaque collaborator: it never
// inspects the returned token.
type AuthGateway interface {
	// SendOTP asks the remote service to deliver a code to the phone.
	SendOTP(ctx context.Context, phone string) error
	// VerifyOTP exchanges phone + code for a credential and identity.
	VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error)
}
