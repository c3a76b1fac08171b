package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
)

// Common errors
var (
	ErrInvalidLogin = errors.New("login requires both credential and identity")
)

// Store resolves, persists and clears sessions over a Box. It holds no
// per-session state of its own; every request reads the box fresh.
type Store struct {
	box Box
	ttl time.Duration
	log *logger.Logger
}

// NewStore creates a session store over the given box.
func NewStore(box Box, ttl time.Duration) *Store {
	return &Store{
		box: box,
		ttl: ttl,
		log: logger.Get().With(zap.String("component", "session_store")),
	}
}

// Resolve restores the session for a request. It never returns an error:
//   - empty sid or empty box        -> anonymous
//   - partial or malformed slots    -> box wiped, anonymous
//   - box unreachable               -> status unknown (caller must not treat
//     this as logged out)
//   - both slots restored           -> authenticated
func (s *Store) Resolve(ctx context.Context, sid string) *domain.Session {
	if sid == "" {
		return domain.Anonymous("")
	}

	slots, err := s.box.Load(ctx, sid)
	if err != nil {
		s.log.Warn("session box unreachable, status unknown",
			zap.String("sid", sid),
			zap.Error(err))
		return domain.Undetermined(sid)
	}

	if slots.Empty() {
		return domain.Anonymous(sid)
	}

	if !slots.Complete() {
		// One slot without the other is a corrupt login, start over
		s.wipe(ctx, sid, "partial session slots")
		return domain.Anonymous(sid)
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(slots.Identity), &identity); err != nil {
		s.wipe(ctx, sid, "malformed identity payload")
		return domain.Anonymous(sid)
	}

	return &domain.Session{
		ID:         sid,
		Credential: slots.Credential,
		Identity:   &identity,
		Status:     domain.StatusAuthenticated,
	}
}

// Login persists the credential and identity, making subsequent resolves
// authenticated.
func (s *Store) Login(ctx context.Context, sid, credential string, identity *domain.Identity) error {
	if credential == "" || identity == nil {
		return ErrInvalidLogin
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to serialize identity: %w", err)
	}

	slots := &Slots{
		Credential: credential,
		Identity:   string(payload),
	}
	if err := s.box.Save(ctx, sid, slots, s.ttl); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.log.Info("session established",
		zap.String("sid", sid),
		zap.String("user_id", identity.ID),
		zap.String("role", string(identity.Role)))
	return nil
}

// Logout clears both slots. Subsequent protected navigations redirect to
// login.
func (s *Store) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.box.Clear(ctx, sid); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.log.Info("session cleared", zap.String("sid", sid))
	return nil
}

func (s *Store) wipe(ctx context.Context, sid, reason string) {
	if err := s.box.Clear(ctx, sid); err != nil {
		s.log.Warn("failed to wipe corrupt session",
			zap.String("sid", sid),
			zap.Error(err))
		return
	}
	s.log.Warn("wiped corrupt session",
		zap.String("sid", sid),
		zap.String("reason", reason))
}
