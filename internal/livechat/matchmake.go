package livechat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/huddle/chat-hub/internal/metrics"
	"github.com/huddle/chat-hub/internal/protocol"
)

// Matchmake issues one looking-for-group request and, depending on the
// response, either records the formed group or schedules the next poll after
// the server-directed interval.
//
// The reschedule decision is made independently of the match decision, from
// the same response: a reply that carries both a formed room and a non-zero
// interval joins the room and still schedules one more poll. That mirrors the
// hub API contract as deployed today; see DESIGN.md before changing it.
//
// A failed request or a zero interval leaves the loop dormant; resuming
// requires a fresh Matchmake call. There is no cancellation primitive and no
// guard against overlapping attempts.
func (s *Service) Matchmake(ctx context.Context, game string, tags []string, size int) error {
	start := time.Now()
	resp, err := s.requester.PostMatchmaking(ctx, protocol.MatchRequest{
		Game: game,
		Size: size,
		Tags: tags,
	})
	metrics.MatchmakingPolls.Inc()
	if err != nil {
		return fmt.Errorf("livechat: matchmake request: %w", err)
	}
	metrics.MatchRequestLatency.Observe(time.Since(start).Seconds())

	interval := time.Duration(resp.Interval) * time.Millisecond
	s.state.SetPollInterval(interval)

	if resp.Success && resp.Room != nil {
		if err := s.transport.JoinRoom(ctx, *resp.Room); err != nil {
			return fmt.Errorf("livechat: join matched room %q: %w", resp.Room.Name, err)
		}
		if err := s.addRoomToState(ctx, *resp.Room); err != nil {
			return err
		}
		if resp.Group != nil {
			s.state.SetMatchFound(resp.Group.CreatedAt)
		}
		metrics.MatchesFound.Inc()
	}

	if resp.Success && s.state.PollInterval() > 0 {
		s.afterFunc(s.state.PollInterval(), func() {
			if err := s.Matchmake(context.Background(), game, tags, size); err != nil {
				// No retry; the next attempt needs a fresh Matchmake call.
				log.Printf("[livechat] matchmake %q: %v", game, err)
			}
		})
	}

	return nil
}
