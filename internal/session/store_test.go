package session

import (
	"context"
	"testing"
	"time"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

func newTestStore() (*Store, *MemoryBox) {
	box := NewMemoryBox()
	return NewStore(box, time.Hour), box
}

func farmerIdentity() *domain.Identity {
	return &domain.Identity{
		ID:        "u1",
		FirstName: "Asha",
		LastName:  "Patel",
		Role:      domain.RoleFarmer,
		Phone:     "+919800000001",
	}
}

func TestStore_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty sid is anonymous", func(t *testing.T) {
		store, _ := newTestStore()
		s := store.Resolve(ctx, "")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous, got %q", s.Status)
		}
	})

	t.Run("unknown sid is anonymous", func(t *testing.T) {
		store, _ := newTestStore()
		s := store.Resolve(ctx, "never-seen")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous, got %q", s.Status)
		}
	})

	t.Run("login then resolve is authenticated", func(t *testing.T) {
		store, _ := newTestStore()
		if err := store.Login(ctx, "sid-1", "tok-1", farmerIdentity()); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		s := store.Resolve(ctx, "sid-1")
		if s.Status != domain.StatusAuthenticated {
			t.Fatalf("expected authenticated, got %q", s.Status)
		}
		if s.Credential != "tok-1" {
			t.Errorf("expected credential 'tok-1', got %q", s.Credential)
		}
		if s.Identity == nil || s.Identity.Role != domain.RoleFarmer {
			t.Errorf("expected farmer identity, got %+v", s.Identity)
		}
	})

	t.Run("logout then resolve is anonymous", func(t *testing.T) {
		store, _ := newTestStore()
		if err := store.Login(ctx, "sid-2", "tok-2", farmerIdentity()); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if err := store.Logout(ctx, "sid-2"); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}

		s := store.Resolve(ctx, "sid-2")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous after logout, got %q", s.Status)
		}
	})

	t.Run("malformed identity wipes the box", func(t *testing.T) {
		store, box := newTestStore()
		err := box.Save(ctx, "sid-3", &Slots{Credential: "tok", Identity: "{broken"}, time.Hour)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		s := store.Resolve(ctx, "sid-3")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous for malformed identity, got %q", s.Status)
		}

		// Box must now be empty
		slots, err := box.Load(ctx, "sid-3")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if slots != nil {
			t.Error("expected box wiped after malformed identity")
		}
	})

	t.Run("partial slots wipe the box", func(t *testing.T) {
		store, box := newTestStore()
		err := box.Save(ctx, "sid-4", &Slots{Credential: "tok", Identity: ""}, time.Hour)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		s := store.Resolve(ctx, "sid-4")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous for partial slots, got %q", s.Status)
		}

		slots, _ := box.Load(ctx, "sid-4")
		if slots != nil {
			t.Error("expected box wiped after partial slots")
		}
	})

	t.Run("unreachable box is unknown, not anonymous", func(t *testing.T) {
		store, box := newTestStore()
		if err := store.Login(ctx, "sid-5", "tok-5", farmerIdentity()); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		box.FailNext = true
		s := store.Resolve(ctx, "sid-5")
		if s.Status != domain.StatusUnknown {
			t.Errorf("expected unknown when box unreachable, got %q", s.Status)
		}

		// Session must survive the outage
		s = store.Resolve(ctx, "sid-5")
		if s.Status != domain.StatusAuthenticated {
			t.Errorf("expected authenticated after box recovers, got %q", s.Status)
		}
	})

	t.Run("expired entry is anonymous", func(t *testing.T) {
		box := NewMemoryBox()
		store := NewStore(box, -time.Second)
		if err := store.Login(ctx, "sid-6", "tok-6", farmerIdentity()); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		s := store.Resolve(ctx, "sid-6")
		if s.Status != domain.StatusAnonymous {
			t.Errorf("expected anonymous for expired session, got %q", s.Status)
		}
	})
}

func TestStore_Login_Validation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	if err := store.Login(ctx, "sid", "", farmerIdentity()); err != ErrInvalidLogin {
		t.Errorf("expected ErrInvalidLogin for empty credential, got %v", err)
	}
	if err := store.Login(ctx, "sid", "tok", nil); err != ErrInvalidLogin {
		t.Errorf("expected ErrInvalidLogin for nil identity, got %v", err)
	}
}

func TestStore_Logout_EmptySID(t *testing.T) {
	store, _ := newTestStore()
	if err := store.Logout(context.Background(), ""); err != nil {
		t.Errorf("logout with empty sid should be a no-op, got %v", err)
	}
}

func TestMemoryBox_RoundTrip(t *testing.T) {
	ctx := context.Background()
	box := NewMemoryBox()

	slots := &Slots{Credential: "tok", Identity: `{"id":"u1"}`}
	if err := box.Save(ctx, "s1", slots, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := box.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Credential != "tok" || got.Identity != `{"id":"u1"}` {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := box.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, _ = box.Load(ctx, "s1")
	if got != nil {
		t.Error("expected nil slots after Clear")
	}
}
