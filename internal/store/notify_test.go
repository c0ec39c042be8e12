package store

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mediate-project/mediate/internal/models"
)

func TestNotifyPayload_DropsSnapshot(t *testing.T) {
	rec := &models.ModerationRecord{
		ID:      "r1",
		State:   models.StatePending,
		Payload: json.RawMessage(`{"type":"place","version":1,"fields":{"name":"Leiden"}}`),
	}

	payload, err := notifyPayload(models.ModerationEvent{Type: models.EventSubmitted, Record: rec})
	if err != nil {
		t.Fatalf("notifyPayload: %v", err)
	}
	if strings.Contains(string(payload), "Leiden") {
		t.Errorf("payload carries the snapshot: %s", payload)
	}
	if rec.Payload == nil {
		t.Error("caller's record was modified")
	}
}

func TestNotifyPayload_ShortensLongReason(t *testing.T) {
	tests := []struct {
		name   string
		reason string
	}{
		// Control characters encode as six-byte escapes.
		{"escaped", strings.Repeat("\x01", 2000)},
		{"multi-byte", strings.Repeat("☃", 2000)},
		{"plain", strings.Repeat("x", 9000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.ModerationRecord{ID: "r1", State: models.StateRejected, Reason: tt.reason}

			payload, err := notifyPayload(models.ModerationEvent{Type: models.EventRejected, Record: rec})
			if err != nil {
				t.Fatalf("notifyPayload: %v", err)
			}
			if len(payload) >= maxNotifyPayload {
				t.Fatalf("payload is %d bytes", len(payload))
			}

			var evt models.ModerationEvent
			if err := json.Unmarshal(payload, &evt); err != nil {
				t.Fatalf("decoding payload: %v", err)
			}
			if evt.Record.ID != "r1" || evt.Record.Reason == "" || !strings.HasPrefix(tt.reason, evt.Record.Reason) {
				t.Errorf("unexpected record %+v", evt.Record)
			}
			if rec.Reason != tt.reason {
				t.Error("caller's reason was modified")
			}
		})
	}
}

func TestNotifyPayload_ShortReasonUntouched(t *testing.T) {
	rec := &models.ModerationRecord{ID: "r1", State: models.StateRejected, Reason: "duplicate of Leiden"}

	payload, err := notifyPayload(models.ModerationEvent{Type: models.EventRejected, Record: rec})
	if err != nil {
		t.Fatalf("notifyPayload: %v", err)
	}

	var evt models.ModerationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if evt.Record.Reason != rec.Reason {
		t.Errorf("reason = %q", evt.Record.Reason)
	}
}
