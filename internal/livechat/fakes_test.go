package livechat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huddle/chat-hub/internal/protocol"
)

var errFetch = errors.New("member fetch failed")

// fakeSub counts Unsubscribe calls and removes the handler it guards.
type fakeSub struct {
	remove func()
	calls  int
}

func (f *fakeSub) Unsubscribe() error {
	f.calls++
	if f.remove != nil {
		f.remove()
		f.remove = nil
	}
	return nil
}

// fakeTransport records outbound operations and lets tests emit events into
// the registered handlers.
type fakeTransport struct {
	mu sync.Mutex

	joined  []protocol.ChatRoom
	sent    []protocol.SendMessageFrame
	status  []protocol.StatusUpdateFrame
	joinErr error

	chatHandler     func(protocol.ChatMessageEvent)
	internalHandler func(protocol.InternalEvent)
	roomHandler     func(protocol.RoomUpdateEvent)

	subs []*fakeSub
}

func (f *fakeTransport) JoinRoom(_ context.Context, room protocol.ChatRoom) error {
	if f.joinErr != nil {
		return f.joinErr
	}
	f.mu.Lock()
	f.joined = append(f.joined, room)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, room, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, protocol.SendMessageFrame{Room: room, Text: text})
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SendStatusUpdate(_ context.Context, status, game, room string) error {
	f.mu.Lock()
	f.status = append(f.status, protocol.StatusUpdateFrame{Status: status, Game: game, Room: room})
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SubscribeChatMessages(handler func(protocol.ChatMessageEvent)) (Subscription, error) {
	f.chatHandler = handler
	sub := &fakeSub{remove: func() { f.chatHandler = nil }}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeTransport) SubscribeInternalEvents(handler func(protocol.InternalEvent)) (Subscription, error) {
	f.internalHandler = handler
	sub := &fakeSub{remove: func() { f.internalHandler = nil }}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeTransport) SubscribeRoomUpdates(handler func(protocol.RoomUpdateEvent)) (Subscription, error) {
	f.roomHandler = handler
	sub := &fakeSub{remove: func() { f.roomHandler = nil }}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeTransport) emitChat(ev protocol.ChatMessageEvent) {
	if f.chatHandler != nil {
		f.chatHandler(ev)
	}
}

func (f *fakeTransport) emitInternal(ev protocol.InternalEvent) {
	if f.internalHandler != nil {
		f.internalHandler(ev)
	}
}

func (f *fakeTransport) emitRoomUpdate(ev protocol.RoomUpdateEvent) {
	if f.roomHandler != nil {
		f.roomHandler(ev)
	}
}

// fakeHub records store mutations and serves canned member lists.
type fakeHub struct {
	rooms   map[string]*protocol.ChatRoom
	members map[string][]protocol.Friend

	fetchCalls    []string
	fetchErr      error
	addRoomCalls  []protocol.ChatRoom
	setGroupCalls []protocol.ChatRoom
	updated       [][]protocol.Friend
	requests      []protocol.FriendRequest
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		rooms:   make(map[string]*protocol.ChatRoom),
		members: make(map[string][]protocol.Friend),
	}
}

func (f *fakeHub) UsersInRoom(room string) []protocol.Friend {
	return f.members[room]
}

func (f *fakeHub) FindRoomByName(name string) *protocol.ChatRoom {
	return f.rooms[name]
}

func (f *fakeHub) AddRoomEntry(room protocol.ChatRoom, isLfg bool) {
	f.addRoomCalls = append(f.addRoomCalls, room)
	f.rooms[room.Name] = &room
}

func (f *fakeHub) SetGroupRoomEntry(room protocol.ChatRoom) {
	f.setGroupCalls = append(f.setGroupCalls, room)
	f.rooms[room.Name] = &room
}

func (f *fakeHub) UpdateUsers(users []protocol.Friend) {
	f.updated = append(f.updated, users)
}

func (f *fakeHub) AddFriendRequest(req protocol.FriendRequest) {
	f.requests = append(f.requests, req)
}

func (f *fakeHub) FetchMembers(_ context.Context, room string) ([]protocol.Friend, error) {
	f.fetchCalls = append(f.fetchCalls, room)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.members[room], nil
}

// fakeRequester returns queued responses in order, then errors.
type fakeRequester struct {
	responses []*protocol.MatchResponse
	errs      []error
	requests  []protocol.MatchRequest
}

func (f *fakeRequester) PostMatchmaking(_ context.Context, req protocol.MatchRequest) (*protocol.MatchResponse, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, fmt.Errorf("no response queued for request %d", i)
}

// newTestService wires a Service with fresh fakes.
func newTestService() (*Service, *fakeTransport, *fakeHub, *fakeRequester) {
	transport := &fakeTransport{}
	hub := newFakeHub()
	requester := &fakeRequester{}
	svc := NewService(transport, hub, requester)
	return svc, transport, hub, requester
}
