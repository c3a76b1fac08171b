package login

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
)

// stubGateway is a controllable AuthGateway for flow tests.
type stubGateway struct {
	mu         sync.Mutex
	sendErr    error
	verifyErr  error
	sendCalls  int
	verifyGate chan struct{} // when set, VerifyOTP blocks until closed
	sendGate   chan struct{} // when set, SendOTP blocks until closed
}

func (s *stubGateway) SendOTP(ctx context.Context, phone string) error {
	s.mu.Lock()
	s.sendCalls++
	gate := s.sendGate
	err := s.sendErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (s *stubGateway) VerifyOTP(ctx context.Context, phone, code string) (*upstream.AuthResult, error) {
	s.mu.Lock()
	gate := s.verifyGate
	err := s.verifyErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &upstream.AuthResult{
		Token:    "tok-" + code,
		Identity: &domain.Identity{ID: "u1", Role: domain.RoleFarmer, Phone: phone},
	}, nil
}

const phone = "+919800000001"

func TestFlow_SendCode(t *testing.T) {
	ctx := context.Background()

	t.Run("success moves to awaiting_code", func(t *testing.T) {
		flow := NewFlow(&stubGateway{}, time.Minute)

		if got := flow.State(phone); got != StateAwaitingPhone {
			t.Fatalf("fresh phone must be awaiting_phone, got %q", got)
		}
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := flow.State(phone); got != StateAwaitingCode {
			t.Errorf("expected awaiting_code, got %q", got)
		}
	})

	t.Run("failure keeps state and does not retry", func(t *testing.T) {
		gw := &stubGateway{sendErr: upstream.ErrUnavailable}
		flow := NewFlow(gw, time.Minute)

		if err := flow.SendCode(ctx, phone); !errors.Is(err, upstream.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if got := flow.State(phone); got != StateAwaitingPhone {
			t.Errorf("failed send must keep awaiting_phone, got %q", got)
		}
		if gw.sendCalls != 1 {
			t.Errorf("expected exactly 1 send attempt, got %d", gw.sendCalls)
		}
	})

	t.Run("resend keeps awaiting_code", func(t *testing.T) {
		flow := NewFlow(&stubGateway{}, time.Minute)

		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatal(err)
		}
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatalf("resend failed: %v", err)
		}
		if got := flow.State(phone); got != StateAwaitingCode {
			t.Errorf("expected awaiting_code after resend, got %q", got)
		}
	})
}

func TestFlow_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("success is terminal", func(t *testing.T) {
		flow := NewFlow(&stubGateway{}, time.Minute)
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatal(err)
		}

		result, err := flow.Verify(ctx, phone, "123456")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Token != "tok-123456" {
			t.Errorf("unexpected token %q", result.Token)
		}
		// Entry dropped, phone back at the start
		if got := flow.State(phone); got != StateAwaitingPhone {
			t.Errorf("expected awaiting_phone after success, got %q", got)
		}
	})

	t.Run("wrong code keeps awaiting_code", func(t *testing.T) {
		gw := &stubGateway{}
		flow := NewFlow(gw, time.Minute)
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatal(err)
		}

		gw.mu.Lock()
		gw.verifyErr = upstream.ErrInvalidCode
		gw.mu.Unlock()

		if _, err := flow.Verify(ctx, phone, "000000"); !errors.Is(err, upstream.ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
		if got := flow.State(phone); got != StateAwaitingCode {
			t.Errorf("wrong code must keep awaiting_code, got %q", got)
		}

		// Retyping the right code succeeds
		gw.mu.Lock()
		gw.verifyErr = nil
		gw.mu.Unlock()
		if _, err := flow.Verify(ctx, phone, "123456"); err != nil {
			t.Errorf("expected success on retype, got %v", err)
		}
	})

	t.Run("verify without a sent code is rejected", func(t *testing.T) {
		flow := NewFlow(&stubGateway{}, time.Minute)
		if _, err := flow.Verify(ctx, phone, "123456"); !errors.Is(err, ErrNoPendingCode) {
			t.Errorf("expected ErrNoPendingCode, got %v", err)
		}
	})
}

func TestFlow_InFlightDedup(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent send rejected", func(t *testing.T) {
		gate := make(chan struct{})
		gw := &stubGateway{sendGate: gate}
		flow := NewFlow(gw, time.Minute)

		done := make(chan error, 1)
		go func() { done <- flow.SendCode(ctx, phone) }()

		// Wait for the first send to be in flight
		deadline := time.After(time.Second)
		for {
			gw.mu.Lock()
			started := gw.sendCalls > 0
			gw.mu.Unlock()
			if started {
				break
			}
			select {
			case <-deadline:
				t.Fatal("first send never started")
			default:
				time.Sleep(time.Millisecond)
			}
		}

		if err := flow.SendCode(ctx, phone); !errors.Is(err, ErrActionInProgress) {
			t.Errorf("expected ErrActionInProgress, got %v", err)
		}

		close(gate)
		if err := <-done; err != nil {
			t.Errorf("first send failed: %v", err)
		}

		// Flag released, next send allowed
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Errorf("send after release failed: %v", err)
		}
	})

	t.Run("send and verify flags are independent", func(t *testing.T) {
		gw := &stubGateway{}
		flow := NewFlow(gw, time.Minute)
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatal(err)
		}

		gate := make(chan struct{})
		gw.mu.Lock()
		gw.verifyGate = gate
		gw.mu.Unlock()

		done := make(chan struct{})
		go func() {
			flow.Verify(ctx, phone, "123456")
			close(done)
		}()
		time.Sleep(10 * time.Millisecond)

		// A resend is a different action and must not be blocked
		gw.mu.Lock()
		gw.sendGate = nil
		gw.mu.Unlock()
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Errorf("resend during verify failed: %v", err)
		}

		// But a second verify is
		if _, err := flow.Verify(ctx, phone, "123456"); !errors.Is(err, ErrActionInProgress) {
			t.Errorf("expected ErrActionInProgress for concurrent verify, got %v", err)
		}

		close(gate)
		<-done
	})

	t.Run("verify success during a blocked resend", func(t *testing.T) {
		gw := &stubGateway{}
		flow := NewFlow(gw, time.Minute)
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Fatal(err)
		}

		// Block the resend inside the gateway call
		gate := make(chan struct{})
		gw.mu.Lock()
		gw.sendGate = gate
		gw.mu.Unlock()

		resent := make(chan error, 1)
		go func() { resent <- flow.SendCode(ctx, phone) }()

		deadline := time.After(time.Second)
		for {
			gw.mu.Lock()
			started := gw.sendCalls > 1
			gw.mu.Unlock()
			if started {
				break
			}
			select {
			case <-deadline:
				t.Fatal("resend never reached the gateway")
			default:
				time.Sleep(time.Millisecond)
			}
		}

		// Verify wins the race and drops the entry
		gw.mu.Lock()
		gw.verifyGate = nil
		gw.mu.Unlock()
		if _, err := flow.Verify(ctx, phone, "123456"); err != nil {
			t.Fatalf("verify failed: %v", err)
		}

		// The unblocked resend must complete without reviving the entry
		close(gate)
		if err := <-resent; err != nil {
			t.Errorf("resend after verify failed: %v", err)
		}
		if got := flow.State(phone); got != StateAwaitingPhone {
			t.Errorf("expected awaiting_phone after verify success, got %q", got)
		}

		// The flow still serves the phone afterwards
		gw.mu.Lock()
		gw.sendGate = nil
		gw.mu.Unlock()
		if err := flow.SendCode(ctx, phone); err != nil {
			t.Errorf("fresh send after race failed: %v", err)
		}
	})
}

func TestFlow_Prune(t *testing.T) {
	flow := NewFlow(&stubGateway{}, 10*time.Millisecond)
	ctx := context.Background()

	if err := flow.SendCode(ctx, phone); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	flow.prune()

	if got := flow.State(phone); got != StateAwaitingPhone {
		t.Errorf("expected pruned entry to read awaiting_phone, got %q", got)
	}
}
