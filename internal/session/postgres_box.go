package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anasy333/krishisat-gateway/pkg/database"
)

// PostgresBox stores the session slots as a durable row, for deployments
// without Redis.
type PostgresBox struct {
	db *database.PostgresDB
}

// NewPostgresBox creates a Postgres-backed session box.
func NewPostgresBox(db *database.PostgresDB) *PostgresBox {
	return &PostgresBox{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (b *PostgresBox) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			sid        TEXT PRIMARY KEY,
			credential TEXT NOT NULL,
			identity   TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := b.db.Pool().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure sessions schema: %w", err)
	}
	return nil
}

// Load restores the slots, (nil, nil) when no live row exists.
func (b *PostgresBox) Load(ctx context.Context, sid string) (*Slots, error) {
	query := `
		SELECT credential, identity
		FROM sessions
		WHERE sid = $1 AND expires_at > NOW()`

	var slots Slots
	err := b.db.Pool().QueryRow(ctx, query, sid).Scan(&slots.Credential, &slots.Identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	return &slots, nil
}

// Save upserts both slots and slides the expiry.
func (b *PostgresBox) Save(ctx context.Context, sid string, slots *Slots, ttl time.Duration) error {
	query := `
		INSERT INTO sessions (sid, credential, identity, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (sid) DO UPDATE SET
			credential = EXCLUDED.credential,
			identity   = EXCLUDED.identity,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`

	expiresAt := time.Now().Add(ttl)
	if _, err := b.db.Pool().Exec(ctx, query, sid, slots.Credential, slots.Identity, expiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	return nil
}

// Clear deletes the session row.
func (b *PostgresBox) Clear(ctx context.Context, sid string) error {
	if _, err := b.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	return nil
}

// PurgeExpired deletes rows past their expiry. Run periodically; reads
// already filter on expires_at so this is housekeeping only.
func (b *PostgresBox) PurgeExpired(ctx context.Context) error {
	if _, err := b.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`); err != nil {
		return fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return nil
}

// HealthCheck reports whether the backend answers, used by the readiness
// probe.
func (b *PostgresBox) HealthCheck(ctx context.Context) error {
	return b.db.HealthCheck(ctx)
}
