package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBox keeps the session slots in process memory. Dev and test only.
type MemoryBox struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// FailNext makes the next operation return ErrBoxUnavailable, letting
	// tests exercise the undetermined-session path.
	FailNext bool
}

type memoryEntry struct {
	slots     Slots
	expiresAt time.Time
}

// NewMemoryBox creates an in-memory session box.
func NewMemoryBox() *MemoryBox {
	return &MemoryBox{entries: make(map[string]memoryEntry)}
}

func (b *MemoryBox) failNext() bool {
	if b.FailNext {
		b.FailNext = false
		return true
	}
	return false
}

// Load restores the slots, (nil, nil) when absent or expired.
func (b *MemoryBox) Load(ctx context.Context, sid string) (*Slots, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext() {
		return nil, ErrBoxUnavailable
	}
	entry, ok := b.entries[sid]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	slots := entry.slots
	return &slots, nil
}

// Save writes both slots with the given TTL.
func (b *MemoryBox) Save(ctx context.Context, sid string, slots *Slots, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext() {
		return ErrBoxUnavailable
	}
	b.entries[sid] = memoryEntry{
		slots:     *slots,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Clear removes the session entry.
func (b *MemoryBox) Clear(ctx context.Context, sid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext() {
		return ErrBoxUnavailable
	}
	delete(b.entries, sid)
	return nil
}

// HealthCheck always succeeds for the in-memory box.
func (b *MemoryBox) HealthCheck(ctx context.Context) error {
	return nil
}
