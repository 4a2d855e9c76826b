package livechat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/huddle/chat-hub/internal/metrics"
	"github.com/huddle/chat-hub/internal/protocol"
)

// Subscription is a handle to an active event stream registration. Releasing
// it stops delivery into this service.
type Subscription interface {
	Unsubscribe() error
}

// Transport is the event transport collaborator: an ordered, already-decoded
// event stream per connection plus the outbound send operations.
type Transport interface {
	JoinRoom(ctx context.Context, room protocol.ChatRoom) error
	SendMessage(ctx context.Context, room, text string) error
	SendStatusUpdate(ctx context.Context, status, game, room string) error

	SubscribeChatMessages(handler func(protocol.ChatMessageEvent)) (Subscription, error)
	SubscribeInternalEvents(handler func(protocol.InternalEvent)) (Subscription, error)
	SubscribeRoomUpdates(handler func(protocol.RoomUpdateEvent)) (Subscription, error)
}

// Hub is the room membership store collaborator: the set of known rooms and
// their member lists. FetchMembers suspends on network I/O; everything else
// is a local read or write.
type Hub interface {
	UsersInRoom(room string) []protocol.Friend
	FindRoomByName(name string) *protocol.ChatRoom
	AddRoomEntry(room protocol.ChatRoom, isLfg bool)
	SetGroupRoomEntry(room protocol.ChatRoom)
	UpdateUsers(users []protocol.Friend)
	AddFriendRequest(req protocol.FriendRequest)
	FetchMembers(ctx context.Context, room string) ([]protocol.Friend, error)
}

// Requester issues matchmaking requests against the hub API.
type Requester interface {
	PostMatchmaking(ctx context.Context, req protocol.MatchRequest) (*protocol.MatchResponse, error)
}

// Service is the live chat core. It folds inbound events into room state,
// routes internal events to the hub store, and drives the matchmaking polling
// loop.
type Service struct {
	state     *State
	transport Transport
	hub       Hub
	requester Requester

	// afterFunc schedules the next matchmaking poll. Tests replace it to run
	// scheduled polls synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer

	subsMu sync.Mutex
	subs   []Subscription
}

// NewService creates a Service with an empty state and the given
// collaborators.
func NewService(transport Transport, hub Hub, requester Requester) *Service {
	return &Service{
		state:     NewState(),
		transport: transport,
		hub:       hub,
		requester: requester,
		afterFunc: time.AfterFunc,
	}
}

// State returns the service's chat state for direct inspection.
func (s *Service) State() *State {
	return s.state
}

// Start subscribes to the transport's three event streams. Events are
// processed in delivery order; each handler's synchronous work completes
// before the transport delivers the next event.
func (s *Service) Start() error {
	msgSub, err := s.transport.SubscribeChatMessages(func(ev protocol.ChatMessageEvent) {
		s.ReceiveMessage(ev.Data, ev.User)
	})
	if err != nil {
		return err
	}

	internalSub, err := s.transport.SubscribeInternalEvents(func(ev protocol.InternalEvent) {
		if err := s.HandleInternalEvent(context.Background(), ev); err != nil {
			log.Printf("[livechat] internal event %q: %v", ev.Action, err)
		}
	})
	if err != nil {
		msgSub.Unsubscribe()
		return err
	}

	roomSub, err := s.transport.SubscribeRoomUpdates(func(ev protocol.RoomUpdateEvent) {
		s.handleRoomUpdate(context.Background(), ev)
	})
	if err != nil {
		msgSub.Unsubscribe()
		internalSub.Unsubscribe()
		return err
	}

	s.subsMu.Lock()
	s.subs = append(s.subs, msgSub, internalSub, roomSub)
	s.subsMu.Unlock()
	return nil
}

// Stop releases all event stream subscriptions. The matchmaking loop has no
// cancellation primitive; it goes dormant once the server stops returning a
// poll interval.
func (s *Service) Stop() {
	s.subsMu.Lock()
	subs := s.subs
	s.subs = nil
	s.subsMu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[livechat] unsubscribe: %v", err)
		}
	}
}

// ReceiveMessage folds an inbound chat message into room state. The sender's
// identity is merged with the partial payload and the arrival time is stamped
// as the posted time. Malformed input is accepted as-is.
func (s *Service) ReceiveMessage(payload protocol.MessagePayload, sender protocol.Friend) {
	msg := protocol.Message{
		UserID:      sender.ID,
		DisplayName: sender.Name,
		Avatar:      sender.Avatar,
		Room:        payload.Room,
		Text:        payload.Text,
		PostedAt:    time.Now().UnixMilli(),
	}

	s.state.Record(payload.Room, msg)
	metrics.MessagesRecorded.Inc()
	metrics.RoomsTracked.Set(float64(s.state.Rooms()))
}

// SendChatMessage posts a chat message to a room via the transport.
func (s *Service) SendChatMessage(ctx context.Context, room, text string) error {
	return s.transport.SendMessage(ctx, room, text)
}

// SendPresence broadcasts this user's status, optionally tagged with the game
// being played.
func (s *Service) SendPresence(ctx context.Context, status, game string) error {
	return s.transport.SendStatusUpdate(ctx, status, game, "")
}

// History returns the ordered message history for a room.
func (s *Service) History(room string) []protocol.Message {
	return s.state.History(room)
}

// LoadHistory replaces all room histories with the given snapshot.
func (s *Service) LoadHistory(snapshot map[string][]protocol.Message) {
	s.state.Load(snapshot)
	metrics.RoomsTracked.Set(float64(s.state.Rooms()))
}

// DestroyRoom drops a room's history entirely.
func (s *Service) DestroyRoom(room string) {
	s.state.Destroy(room)
	metrics.RoomsTracked.Set(float64(s.state.Rooms()))
}

// handleRoomUpdate reacts to membership changes in rooms this client already
// belongs to: a new member triggers a room-scoped presence announcement and a
// member list refresh.
func (s *Service) handleRoomUpdate(ctx context.Context, ev protocol.RoomUpdateEvent) {
	if ev.Action != protocol.ActionNewMember {
		return
	}

	if err := s.transport.SendStatusUpdate(ctx, "online", "", ev.Room.Name); err != nil {
		log.Printf("[livechat] room update status for %q: %v", ev.Room.Name, err)
	}
	if _, err := s.hub.FetchMembers(ctx, ev.Room.Name); err != nil {
		log.Printf("[livechat] room update member fetch for %q: %v", ev.Room.Name, err)
	}
}
