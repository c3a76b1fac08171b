package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEvent_Encoding(t *testing.T) {
	event := Event{
		Type:      EventLoginSucceeded,
		SessionID: "sid-1",
		UserID:    "u1",
		Role:      "farmer",
		At:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["type"] != EventLoginSucceeded {
		t.Errorf("expected type %q, got %v", EventLoginSucceeded, decoded["type"])
	}
	if _, ok := decoded["phone"]; ok {
		t.Error("empty phone must be omitted")
	}
}

func TestNopPublisher(t *testing.T) {
	// Must be safe to call without setup
	p := NopPublisher{}
	p.Publish(context.Background(), Event{Type: EventLogout})
	p.Close()
}

func TestRecordingPublisher(t *testing.T) {
	p := NewRecordingPublisher()
	p.Publish(context.Background(), Event{Type: EventLoginFailed, Phone: "+91"})

	events := p.Captured()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventLoginFailed {
		t.Errorf("unexpected type %q", events[0].Type)
	}
}
