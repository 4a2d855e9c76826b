package livechat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huddle/chat-hub/internal/protocol"
)

// HandleInternalEvent routes one internal event to the matching state
// mutation or hub store call. Events match at most one action tag; unknown
// tags are silently ignored. A downstream error aborts processing of that
// single event only; the next event is still handled.
func (s *Service) HandleInternalEvent(ctx context.Context, ev protocol.InternalEvent) error {
	switch ev.Action {
	case protocol.ActionStatusUpdate:
		var data protocol.StatusUpdateData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("livechat: decode status_update: %w", err)
		}
		s.updateStatus(data.User, data.Status)

	case protocol.ActionNewFriendRequest:
		var data protocol.FriendRequestData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("livechat: decode new_friend_request: %w", err)
		}
		s.hub.AddFriendRequest(data.Request)

	case protocol.ActionFriendRequestAccepted:
		var data protocol.FriendAcceptedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("livechat: decode friend_request_accepted: %w", err)
		}
		user := data.User
		user.IsFriend = true
		if user.Status == "" {
			user.Status = "online"
		}
		if user.ChatNames == nil {
			user.ChatNames = []string{}
		}
		s.hub.UpdateUsers([]protocol.Friend{user})

	case protocol.ActionAddedToDM:
		var room protocol.ChatRoom
		if err := json.Unmarshal(ev.Data, &room); err != nil {
			return fmt.Errorf("livechat: decode added_to_dm: %w", err)
		}
		if err := s.addRoomToState(ctx, room); err != nil {
			return fmt.Errorf("livechat: added_to_dm %q: %w", room.Name, err)
		}
	}

	return nil
}

// updateStatus forwards a presence change to the hub store.
func (s *Service) updateStatus(user protocol.Friend, status string) {
	user.Status = status
	s.hub.UpdateUsers([]protocol.Friend{user})
}
