// Package livechat implements the hub chat client core: per-room message
// history, internal event dispatch, and the looking-for-group matchmaking
// polling loop. It owns no transport or storage of its own; collaborators are
// passed in through the Service constructor.
package livechat

import (
	"sync"
	"time"

	"github.com/huddle/chat-hub/internal/protocol"
)

// State holds the client-side chat state: room histories plus the matchmaking
// fields. All access is mutex-guarded so the transport read loop, the
// matchmaking timer, and API callers can touch it concurrently.
type State struct {
	mu           sync.RWMutex
	messages     map[string][]protocol.Message
	pollInterval time.Duration
	matchFound   string // group creation timestamp, empty until a match
}

// NewState creates an empty State with no histories and polling disabled.
func NewState() *State {
	return &State{
		messages: make(map[string][]protocol.Message),
	}
}

// Record appends a message to the room's history, creating the room entry on
// first message. Any room string is accepted; no existence check is made.
func (s *State) Record(room string, msg protocol.Message) {
	s.mu.Lock()
	s.messages[room] = append(s.messages[room], msg)
	s.mu.Unlock()
}

// Load replaces all room histories wholesale with the given snapshot. Rooms
// present before but absent from the snapshot are gone afterwards. The
// snapshot is deep-copied so the caller keeps no handle into internal state.
func (s *State) Load(snapshot map[string][]protocol.Message) {
	messages := make(map[string][]protocol.Message, len(snapshot))
	for room, msgs := range snapshot {
		messages[room] = append([]protocol.Message(nil), msgs...)
	}

	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()
}

// Destroy removes a room's history entirely. Destroying an unknown room is a
// no-op.
func (s *State) Destroy(room string) {
	s.mu.Lock()
	delete(s.messages, room)
	s.mu.Unlock()
}

// History returns the room's messages in arrival order. The returned slice is
// a copy; mutating it does not affect the engine. An unknown room yields an
// empty, non-nil slice.
func (s *State) History(room string) []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[room]
	out := make([]protocol.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Snapshot returns a deep copy of all room histories, suitable for
// persistence.
func (s *State) Snapshot() map[string][]protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]protocol.Message, len(s.messages))
	for room, msgs := range s.messages {
		out[room] = append([]protocol.Message(nil), msgs...)
	}
	return out
}

// Rooms returns the number of rooms with at least one recorded message.
func (s *State) Rooms() int {
	s.mu.RLock()
	n := len(s.messages)
	s.mu.RUnlock()
	return n
}

// SetPollInterval stores the server-directed matchmaking poll delay. Zero
// disables further polling.
func (s *State) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	s.pollInterval = d
	s.mu.Unlock()
}

// PollInterval returns the current matchmaking poll delay.
func (s *State) PollInterval() time.Duration {
	s.mu.RLock()
	d := s.pollInterval
	s.mu.RUnlock()
	return d
}

// SetMatchFound records the formed group's creation timestamp. The field is
// never cleared by this subsystem.
func (s *State) SetMatchFound(ts string) {
	s.mu.Lock()
	s.matchFound = ts
	s.mu.Unlock()
}

// MatchFound returns the recorded match timestamp, or an empty string if no
// match has been found.
func (s *State) MatchFound() string {
	s.mu.RLock()
	ts := s.matchFound
	s.mu.RUnlock()
	return ts
}
