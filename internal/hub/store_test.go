package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/huddle/chat-hub/internal/protocol"
)

// fakeFetcher serves canned member lists per room.
type fakeFetcher struct {
	members map[string][]protocol.Friend
	err     error
	calls   int
}

func (f *fakeFetcher) ChatMembers(_ context.Context, room string) ([]protocol.Friend, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.members[room], nil
}

func TestFindRoomByNameUnknown(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	if got := s.FindRoomByName("nope"); got != nil {
		t.Fatalf("expected nil for unknown room, got %+v", got)
	}
}

func TestAddRoomEntryAndFind(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	s.AddRoomEntry(protocol.ChatRoom{Name: "dm-1", Type: protocol.RoomTypeDM, Title: "ana"}, false)

	got := s.FindRoomByName("dm-1")
	if got == nil {
		t.Fatal("expected room to be tracked")
	}
	if got.Title != "ana" || got.Type != protocol.RoomTypeDM {
		t.Errorf("unexpected descriptor: %+v", got)
	}

	// The returned descriptor is a copy.
	got.Title = "mutated"
	if s.FindRoomByName("dm-1").Title != "ana" {
		t.Error("external mutation leaked into store")
	}
}

func TestAddRoomEntryLfgFlagSetsType(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	s.AddRoomEntry(protocol.ChatRoom{Name: "group-1"}, true)

	if got := s.FindRoomByName("group-1"); got == nil || got.Type != protocol.RoomTypeLFG {
		t.Errorf("lfg flag should mark the room type, got %+v", got)
	}
}

func TestSetGroupRoomEntryOverwrites(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	s.SetGroupRoomEntry(protocol.ChatRoom{Name: "lfg-1", Type: protocol.RoomTypeLFG, MemberCount: 2})
	s.SetGroupRoomEntry(protocol.ChatRoom{Name: "lfg-1", Type: protocol.RoomTypeLFG, MemberCount: 4})

	got := s.FindRoomByName("lfg-1")
	if got == nil || got.MemberCount != 4 {
		t.Errorf("expected overwritten descriptor, got %+v", got)
	}
	if len(s.Rooms()) != 1 {
		t.Errorf("expected single tracked room, got %d", len(s.Rooms()))
	}
}

func TestUpdateUsersUpserts(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	s.UpdateUsers([]protocol.Friend{{ID: 1, Name: "ana", Status: "online"}})
	s.UpdateUsers([]protocol.Friend{{ID: 1, Name: "ana", Status: "away"}})

	u, ok := s.User(1)
	if !ok {
		t.Fatal("expected user to exist")
	}
	if u.Status != "away" {
		t.Errorf("expected latest status, got %q", u.Status)
	}
}

func TestAddFriendRequestQueues(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	s.AddFriendRequest(protocol.FriendRequest{ID: 1})
	s.AddFriendRequest(protocol.FriendRequest{ID: 2})

	pending := s.PendingRequests()
	if len(pending) != 2 || pending[0].ID != 1 || pending[1].ID != 2 {
		t.Errorf("unexpected pending queue: %+v", pending)
	}
}

func TestFetchMembersStoresResult(t *testing.T) {
	fetcher := &fakeFetcher{members: map[string][]protocol.Friend{
		"room-a": {{ID: 1, Name: "ana"}, {ID: 2, Name: "bo"}},
	}}
	s := NewStore(fetcher)

	members, err := s.FetchMembers(context.Background(), "room-a")
	if err != nil {
		t.Fatalf("fetch members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	if got := s.UsersInRoom("room-a"); len(got) != 2 || got[0].Name != "ana" {
		t.Errorf("member list not stored: %+v", got)
	}

	// Fetched members also land in the user directory.
	if _, ok := s.User(2); !ok {
		t.Error("fetched member missing from directory")
	}
}

func TestFetchMembersError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("api down")}
	s := NewStore(fetcher)

	if _, err := s.FetchMembers(context.Background(), "room-a"); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if got := s.UsersInRoom("room-a"); len(got) != 0 {
		t.Errorf("failed fetch must not store members, got %+v", got)
	}
}

func TestUsersInRoomUnknown(t *testing.T) {
	s := NewStore(&fakeFetcher{})

	if got := s.UsersInRoom("nope"); len(got) != 0 {
		t.Errorf("expected empty member list, got %+v", got)
	}
}
