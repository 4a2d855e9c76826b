// Package hub implements the room membership store: the client's registry of
// known rooms, their member lists, the user directory, and pending friend
// requests. It is the local mirror of the hub API's social state; FetchMembers
// refreshes a room's member list over the network.
package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/huddle/chat-hub/internal/protocol"
)

// MembersFetcher retrieves a room's member list from the hub API.
type MembersFetcher interface {
	ChatMembers(ctx context.Context, room string) ([]protocol.Friend, error)
}

// Store is a thread-safe registry mapping room names to room descriptors and
// member lists, plus the user directory and pending friend request queue.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*protocol.ChatRoom
	members  map[string][]protocol.Friend
	users    map[int64]protocol.Friend
	requests []protocol.FriendRequest

	fetcher MembersFetcher
}

// NewStore creates an empty Store that refreshes member lists through the
// given fetcher.
func NewStore(fetcher MembersFetcher) *Store {
	return &Store{
		rooms:   make(map[string]*protocol.ChatRoom),
		members: make(map[string][]protocol.Friend),
		users:   make(map[int64]protocol.Friend),
		fetcher: fetcher,
	}
}

// UsersInRoom returns the last fetched member list for a room. The returned
// slice is a copy.
func (s *Store) UsersInRoom(room string) []protocol.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.Friend(nil), s.members[room]...)
}

// FindRoomByName returns a copy of the tracked room descriptor, or nil if the
// room is not tracked.
func (s *Store) FindRoomByName(name string) *protocol.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[name]
	if !ok {
		return nil
	}
	out := *room
	return &out
}

// AddRoomEntry registers a room. The isLfg flag marks matchmaking rooms so
// callers can distinguish them from DMs when listing.
func (s *Store) AddRoomEntry(room protocol.ChatRoom, isLfg bool) {
	if isLfg {
		room.Type = protocol.RoomTypeLFG
	}
	s.mu.Lock()
	s.rooms[room.Name] = &room
	s.mu.Unlock()
}

// SetGroupRoomEntry registers or overwrites a matchmaking group room.
// Unlike AddRoomEntry for DMs, this always replaces the existing descriptor:
// group metadata changes across matchmaking polls.
func (s *Store) SetGroupRoomEntry(room protocol.ChatRoom) {
	s.mu.Lock()
	s.rooms[room.Name] = &room
	s.mu.Unlock()
}

// UpdateUsers upserts users into the directory, keyed by user ID.
func (s *Store) UpdateUsers(users []protocol.Friend) {
	s.mu.Lock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	s.mu.Unlock()
}

// User returns the directory entry for a user ID, or false if unknown.
func (s *Store) User(id int64) (protocol.Friend, bool) {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	return u, ok
}

// AddFriendRequest appends a request to the pending queue.
func (s *Store) AddFriendRequest(req protocol.FriendRequest) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
}

// PendingRequests returns a copy of the pending friend request queue.
func (s *Store) PendingRequests() []protocol.FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.FriendRequest(nil), s.requests...)
}

// Rooms returns copies of all tracked room descriptors.
func (s *Store) Rooms() []protocol.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]protocol.ChatRoom, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	return out
}

// FetchMembers refreshes a room's member list from the hub API and stores it.
// The fetched users are also upserted into the directory.
func (s *Store) FetchMembers(ctx context.Context, room string) ([]protocol.Friend, error) {
	members, err := s.fetcher.ChatMembers(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("hub: fetch members for %q: %w", room, err)
	}

	s.mu.Lock()
	s.members[room] = append([]protocol.Friend(nil), members...)
	for _, m := range members {
		s.users[m.ID] = m
	}
	s.mu.Unlock()

	return append([]protocol.Friend(nil), members...), nil
}
