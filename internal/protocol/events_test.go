package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseServerEventChatMessage(t *testing.T) {
	raw := []byte(`{
		"type": "message",
		"data": {"room": "room-a", "message": "hello"},
		"user": {"id": 7, "name": "ana", "avatar": "http://cdn/a.png"}
	}`)

	eventType, msg, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if eventType != TypeChatMessage {
		t.Errorf("expected type %q, got %q", TypeChatMessage, eventType)
	}

	ev, ok := msg.(ChatMessageEvent)
	if !ok {
		t.Fatalf("expected ChatMessageEvent, got %T", msg)
	}
	if ev.Data.Room != "room-a" || ev.Data.Text != "hello" {
		t.Errorf("unexpected payload: %+v", ev.Data)
	}
	if ev.User.ID != 7 || ev.User.Name != "ana" {
		t.Errorf("unexpected sender: %+v", ev.User)
	}
}

func TestParseServerEventInternalKeepsRawData(t *testing.T) {
	raw := []byte(`{
		"type": "internal",
		"action": "status_update",
		"data": {"user": {"id": 3}, "status": "away"}
	}`)

	_, msg, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ev, ok := msg.(InternalEvent)
	if !ok {
		t.Fatalf("expected InternalEvent, got %T", msg)
	}
	if ev.Action != ActionStatusUpdate {
		t.Errorf("unexpected action: %q", ev.Action)
	}

	// The payload stays raw for action-specific decoding.
	var data StatusUpdateData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("decode deferred payload: %v", err)
	}
	if data.User.ID != 3 || data.Status != "away" {
		t.Errorf("unexpected data: %+v", data)
	}
}

func TestParseServerEventRoomUpdate(t *testing.T) {
	raw := []byte(`{
		"type": "room_update",
		"action": "new_member",
		"room": {"name": "room-b", "type": "dm"}
	}`)

	_, msg, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ev, ok := msg.(RoomUpdateEvent)
	if !ok {
		t.Fatalf("expected RoomUpdateEvent, got %T", msg)
	}
	if ev.Action != ActionNewMember || ev.Room.Name != "room-b" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !ev.Room.IsDM() {
		t.Error("expected DM room")
	}
}

func TestParseServerEventUnknownType(t *testing.T) {
	_, _, err := ParseServerEvent([]byte(`{"type": "telemetry"}`))
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseServerEventMissingType(t *testing.T) {
	_, _, err := ParseServerEvent([]byte(`{"data": {}}`))
	if err == nil {
		t.Fatal("expected error for missing type field")
	}
}

func TestParseServerEventInvalidJSON(t *testing.T) {
	_, _, err := ParseServerEvent([]byte(`{"type": "message"`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNewClientFrameInjectsType(t *testing.T) {
	data, err := NewClientFrame(TypeStatusUpdate, StatusUpdateFrame{
		Status: "online",
		Game:   "chess",
	})
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if m["type"] != TypeStatusUpdate {
		t.Errorf("expected type %q, got %v", TypeStatusUpdate, m["type"])
	}
	if m["status"] != "online" || m["game"] != "chess" {
		t.Errorf("unexpected frame fields: %v", m)
	}
	if _, present := m["room"]; present {
		t.Error("empty room should be omitted")
	}
}

func TestMatchResponseDecoding(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"interval": 5000,
		"room": {"name": "lfg-1", "type": "lfg"},
		"group": {"created_at": "2026-08-28T10:00:00Z"}
	}`)

	var resp MatchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Interval != 5000 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Room == nil || resp.Room.Name != "lfg-1" {
		t.Errorf("unexpected room: %+v", resp.Room)
	}
	if resp.Group == nil || resp.Group.CreatedAt != "2026-08-28T10:00:00Z" {
		t.Errorf("unexpected group: %+v", resp.Group)
	}
}

func TestMatchResponseAbsentFields(t *testing.T) {
	var resp MatchResponse
	if err := json.Unmarshal([]byte(`{"success": false}`), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Room != nil || resp.Group != nil || resp.Interval != 0 {
		t.Errorf("absent fields should stay zero: %+v", resp)
	}
}
