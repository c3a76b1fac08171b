package session

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	// ErrBoxUnavailable means the backend could not be reached. Callers must
	// treat the session as undetermined, not as logged out.
	ErrBoxUnavailable = errors.New("session box unavailable")
)

// Slots is the raw two-slot content of a session box: the upstream
// credential and the serialized identity. Either may be empty.
type Slots struct {
	Credential string
	Identity   string
}

// Empty reports whether both slots are blank.
func (s *Slots) Empty() bool {
	return s == nil || (s.Credential == "" && s.Identity == "")
}

// Complete reports whether both slots are filled.
func (s *Slots) Complete() bool {
	return s != nil && s.Credential != "" && s.Identity != ""
}

// Box persists the two session slots keyed by session id.
// Load returns (nil, nil) when no slots exist for the id.
type Box interface {
	Load(ctx context.Context, sid string) (*Slots, error)
	Save(ctx context.Context, sid string, slots *Slots, ttl time.Duration) error
	Clear(ctx context.Context, sid string) error
}
