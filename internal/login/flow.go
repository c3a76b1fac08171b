package login

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/upstream"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
)

// Common errors
var (
	// ErrActionInProgress means the same action for the same phone is
	// already running; duplicate submissions are rejected, not queued.
	ErrActionInProgress = errors.New("action already in progress")
	// ErrNoPendingCode means Verify was called before a code was sent.
	ErrNoPendingCode = errors.New("no code pending for phone")
)

// State is the position of a phone number in the login flow.
type State string

const (
	// StateAwaitingPhone is the initial state, no code sent yet.
	StateAwaitingPhone State = "awaiting_phone"
	// StateAwaitingCode means a code was delivered and may be verified.
	StateAwaitingCode State = "awaiting_code"
)

const (
	actionSend   = "send"
	actionVerify = "verify"
)

// Flow runs the two-state login machine per phone number. Transitions only
// happen on explicit user actions; failures keep the current state and are
// never retried automatically.
type Flow struct {
	gateway upstream.AuthGateway
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*flowEntry

	log *logger.Logger
}

type flowEntry struct {
	state     State
	updatedAt time.Time
	inflight  map[string]bool
}

// NewFlow creates a login flow over the given auth gateway. Entries idle
// longer than ttl are dropped by the cleanup loop.
func NewFlow(gateway upstream.AuthGateway, ttl time.Duration) *Flow {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Flow{
		gateway: gateway,
		ttl:     ttl,
		entries: make(map[string]*flowEntry),
		log:     logger.Get().With(zap.String("component", "login_flow")),
	}
}

// State returns the current state for a phone.
func (f *Flow) State(phone string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[phone]
	if !ok {
		return StateAwaitingPhone
	}
	return entry.state
}

// SendCode asks the gateway to deliver a code. On success the phone moves to
// awaiting_code; re-sending while awaiting_code keeps the state. On failure
// the state is unchanged and the error is surfaced to the user.
func (f *Flow) SendCode(ctx context.Context, phone string) error {
	release, err := f.acquire(phone, actionSend)
	if err != nil {
		return err
	}
	defer release()

	if err := f.gateway.SendOTP(ctx, phone); err != nil {
		f.log.Info("code delivery failed",
			zap.String("phone", phone),
			zap.Error(err))
		return err
	}

	// The entry can vanish while the gateway call is in flight: a concurrent
	// Verify success deletes it. A deleted entry stays deleted.
	f.mu.Lock()
	if e, ok := f.entries[phone]; ok {
		e.state = StateAwaitingCode
		e.updatedAt = time.Now()
	}
	f.mu.Unlock()
	return nil
}

// Verify exchanges the submitted code. Success is terminal: the entry is
// dropped and the credential handed back for the session store. A wrong
// code keeps the phone in awaiting_code so the user can retype it.
func (f *Flow) Verify(ctx context.Context, phone, code string) (*upstream.AuthResult, error) {
	f.mu.Lock()
	entry, ok := f.entries[phone]
	if !ok || entry.state != StateAwaitingCode {
		f.mu.Unlock()
		return nil, ErrNoPendingCode
	}
	f.mu.Unlock()

	release, err := f.acquire(phone, actionVerify)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := f.gateway.VerifyOTP(ctx, phone, code)
	if err != nil {
		f.mu.Lock()
		if e, ok := f.entries[phone]; ok {
			e.updatedAt = time.Now()
		}
		f.mu.Unlock()
		return nil, err
	}

	f.mu.Lock()
	delete(f.entries, phone)
	f.mu.Unlock()

	f.log.Info("login verified", zap.String("phone", phone))
	return result, nil
}

// acquire takes the per-(phone, action) in-flight flag, rejecting duplicate
// concurrent submissions.
func (f *Flow) acquire(phone, action string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[phone]
	if !ok {
		entry = &flowEntry{
			state:    StateAwaitingPhone,
			inflight: make(map[string]bool),
		}
		f.entries[phone] = entry
	}

	if entry.inflight[action] {
		return nil, ErrActionInProgress
	}
	entry.inflight[action] = true
	entry.updatedAt = time.Now()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if e, ok := f.entries[phone]; ok {
			delete(e.inflight, action)
		}
	}, nil
}

// Run prunes idle entries until the context is canceled. Expiry is memory
// hygiene only, not a state transition the user observes.
func (f *Flow) Run(ctx context.Context) {
	ticker := time.NewTicker(f.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.prune()
		}
	}
}

func (f *Flow) prune() {
	cutoff := time.Now().Add(-f.ttl)

	f.mu.Lock()
	defer f.mu.Unlock()
	for phone, entry := range f.entries {
		if len(entry.inflight) == 0 && entry.updatedAt.Before(cutoff) {
			delete(f.entries, phone)
		}
	}
}
