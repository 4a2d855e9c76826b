// Package protocol defines the event and message types exchanged between the
// hub client and the chat relay, plus the matchmaking request/response shapes.
// All traffic is JSON with a "type" discriminator on the outer envelope; event
// payloads are decoded in a second pass so unknown fields never fail the
// envelope parse.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Event type constants
// ---------------------------------------------------------------------------

// Server -> client event types.
const (
	TypeChatMessage = "message"
	TypeInternal    = "internal"
	TypeRoomUpdate  = "room_update"
)

// Client -> server frame types.
const (
	TypeJoinRoom     = "join_room"
	TypeSendMessage  = "message"
	TypeStatusUpdate = "status_update"
)

// Internal event action tags.
const (
	ActionStatusUpdate          = "status_update"
	ActionNewFriendRequest      = "new_friend_request"
	ActionFriendRequestAccepted = "friend_request_accepted"
	ActionAddedToDM             = "added_to_dm"
)

// Room update action tags.
const (
	ActionNewMember = "new_member"
)

// Room types.
const (
	RoomTypeDM  = "dm"
	RoomTypeLFG = "lfg"
)

// ---------------------------------------------------------------------------
// Core data types
// ---------------------------------------------------------------------------

// Friend is a hub user as seen by this client: identity plus presence.
type Friend struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Avatar    string   `json:"avatar,omitempty"`
	Status    string   `json:"status,omitempty"`
	IsFriend  bool     `json:"is_friend,omitempty"`
	ChatNames []string `json:"chat_names,omitempty"`
}

// Message is a single chat message as stored in room history. PostedAt is
// stamped by the receiving client (unix milliseconds), not by the server.
type Message struct {
	UserID      int64  `json:"user_id"`
	Room        string `json:"room"`
	Text        string `json:"message"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	PostedAt    int64  `json:"date_posted,omitempty"`
}

// MessagePayload is the partial message carried by an inbound chat event.
// Sender identity fields are filled in from the accompanying Friend.
type MessagePayload struct {
	Room string `json:"room"`
	Text string `json:"message"`
}

// ChatRoom describes a room the client can join: a DM or a matchmaking (LFG)
// group room. Name is the stable identifier; Title is display-only.
type ChatRoom struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type"`
	Avatar      string `json:"avatar,omitempty"`
	Game        string `json:"game,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
}

// IsDM reports whether the room is a direct-message room.
func (r *ChatRoom) IsDM() bool {
	return r.Type == RoomTypeDM
}

// FriendRequest is a pending friend request delivered as an internal event.
type FriendRequest struct {
	ID   int64  `json:"id"`
	From Friend `json:"from"`
}

// ---------------------------------------------------------------------------
// Server -> client events
// ---------------------------------------------------------------------------

// ChatMessageEvent carries an inbound chat message together with the sender.
type ChatMessageEvent struct {
	Type string         `json:"type"`
	Data MessagePayload `json:"data"`
	User Friend         `json:"user"`
}

// InternalEvent is a non-chat notification (presence, friend requests, room
// assignment). Data is kept raw; the payload shape depends on Action and is
// decoded by the consumer.
type InternalEvent struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// StatusUpdateData is the payload for the status_update internal action.
type StatusUpdateData struct {
	User   Friend `json:"user"`
	Status string `json:"status"`
}

// FriendRequestData is the payload for the new_friend_request internal action.
type FriendRequestData struct {
	Request FriendRequest `json:"request"`
}

// FriendAcceptedData is the payload for the friend_request_accepted action.
type FriendAcceptedData struct {
	User Friend `json:"user"`
}

// RoomUpdateEvent notifies the client of a membership change in a room it is
// already part of.
type RoomUpdateEvent struct {
	Type   string   `json:"type"`
	Action string   `json:"action"`
	Room   ChatRoom `json:"room"`
}

// ---------------------------------------------------------------------------
// Client -> server frames
// ---------------------------------------------------------------------------

// JoinRoomFrame asks the relay to add this client to a room's delivery set.
type JoinRoomFrame struct {
	Type string   `json:"type"`
	Room ChatRoom `json:"room"`
}

// SendMessageFrame posts a chat message to a room.
type SendMessageFrame struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Text string `json:"message"`
}

// StatusUpdateFrame broadcasts this client's presence. Game and Room are
// optional; an empty Room means the update applies to all of the user's rooms.
type StatusUpdateFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Game   string `json:"game,omitempty"`
	Room   string `json:"room,omitempty"`
}

// ---------------------------------------------------------------------------
// Matchmaking
// ---------------------------------------------------------------------------

// MatchRequest is the body posted to the lfg endpoint.
type MatchRequest struct {
	Game string   `json:"game"`
	Size int      `json:"size"`
	Tags []string `json:"tags"`
}

// MatchGroup describes a formed group returned by the matchmaker.
type MatchGroup struct {
	CreatedAt string   `json:"created_at"`
	Members   []Friend `json:"members,omitempty"`
}

// MatchResponse is the lfg endpoint's reply. Interval is the server-directed
// poll delay in milliseconds; zero means stop polling. Room and Group are set
// only when a group has been formed.
type MatchResponse struct {
	Success  bool        `json:"success"`
	Interval int         `json:"interval"`
	Room     *ChatRoom   `json:"room,omitempty"`
	Group    *MatchGroup `json:"group,omitempty"`
}

// ---------------------------------------------------------------------------
// Envelope parsing
// ---------------------------------------------------------------------------

// Envelope holds the event type and the raw JSON payload for deferred parsing
// into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ParseServerEvent parses raw transport bytes into a typed server event. It
// returns the event type string, the decoded struct, and any error
// encountered during parsing. Unknown event types return an error so the
// transport can log and drop them.
func ParseServerEvent(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse event: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeChatMessage:
		var m ChatMessageEvent
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeInternal:
		var m InternalEvent
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRoomUpdate:
		var m RoomUpdateEvent
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown event type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewClientFrame creates a JSON-encoded byte slice for a client frame. The
// frameType is injected into the payload under the "type" key.
func NewClientFrame(frameType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = frameType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal client frame: %w", err)
	}
	return out, nil
}
