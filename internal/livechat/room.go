package livechat

import (
	"context"
	"fmt"

	"github.com/huddle/chat-hub/internal/protocol"
)

// addRoomToState materializes a room in the hub store, refreshing its member
// list first. DM rooms get a computed display title and are registered only
// if not already tracked. Group rooms are registered or overwritten
// unconditionally, since their metadata (member count, game) changes across
// polls.
func (s *Service) addRoomToState(ctx context.Context, room protocol.ChatRoom) error {
	if _, err := s.hub.FetchMembers(ctx, room.Name); err != nil {
		return fmt.Errorf("livechat: fetch members for %q: %w", room.Name, err)
	}

	if room.IsDM() {
		title := room.Title
		if title == "" {
			if members := s.hub.UsersInRoom(room.Name); len(members) > 0 {
				title = members[0].Name
			}
		}
		if existing := s.hub.FindRoomByName(room.Name); existing == nil {
			room.Title = title
			s.hub.AddRoomEntry(room, false)
		}
		return nil
	}

	s.hub.SetGroupRoomEntry(room)
	return nil
}
