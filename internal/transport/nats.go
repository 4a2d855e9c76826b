package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/huddle/chat-hub/internal/livechat"
	"github.com/huddle/chat-hub/internal/protocol"
)

// NATS subject patterns used between the hub relay and clients. Inbound
// subjects are suffixed with the user ID; outbound subjects are shared.
const (
	SubjectChatPrefix   = "hub.chat."   // + <user_id>, chat message events
	SubjectEventsPrefix = "hub.events." // + <user_id>, internal events
	SubjectRoomsPrefix  = "hub.rooms."  // + <user_id>, room update events

	SubjectChatWildcard = "hub.chat.>" // all chat traffic, for the archiver

	SubjectSendJoin    = "hub.send.join"
	SubjectSendMessage = "hub.send.message"
	SubjectSendStatus  = "hub.send.status"
)

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	UserID        string        // hub user ID, selects the inbound subjects
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "hub-client",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NATSTransport is the NATS-backed event transport, used where the hub relay
// speaks NATS instead of WebSocket (co-located services, the history
// archiver, load tests). It implements the same contract as WSTransport.
type NATSTransport struct {
	conn   *nats.Conn
	userID string
}

// DialNATS connects to NATS with the given config and returns a ready
// transport. It returns an error if the initial connection fails.
func DialNATS(config NATSConfig) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSTransport{conn: nc, userID: config.UserID}, nil
}

// Close drains and closes the NATS connection, releasing all subscriptions.
func (t *NATSTransport) Close() error {
	if err := t.conn.Drain(); err != nil {
		return fmt.Errorf("transport: nats drain: %w", err)
	}
	return nil
}

// JoinRoom publishes a join request for this user.
func (t *NATSTransport) JoinRoom(ctx context.Context, room protocol.ChatRoom) error {
	return t.publish(ctx, SubjectSendJoin, protocol.JoinRoomFrame{
		Type: protocol.TypeJoinRoom,
		Room: room,
	})
}

// SendMessage publishes a chat message to a room.
func (t *NATSTransport) SendMessage(ctx context.Context, room, text string) error {
	return t.publish(ctx, SubjectSendMessage, protocol.SendMessageFrame{
		Type: protocol.TypeSendMessage,
		Room: room,
		Text: text,
	})
}

// SendStatusUpdate publishes this user's presence.
func (t *NATSTransport) SendStatusUpdate(ctx context.Context, status, game, room string) error {
	return t.publish(ctx, SubjectSendStatus, protocol.StatusUpdateFrame{
		Type:   protocol.TypeStatusUpdate,
		Status: status,
		Game:   game,
		Room:   room,
	})
}

// SubscribeChatMessages subscribes to this user's chat message subject.
func (t *NATSTransport) SubscribeChatMessages(handler func(protocol.ChatMessageEvent)) (livechat.Subscription, error) {
	subject := SubjectChatPrefix + t.userID
	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev protocol.ChatMessageEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] drop %s: %v", subject, err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("transport: nats subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// SubscribeInternalEvents subscribes to this user's internal event subject.
func (t *NATSTransport) SubscribeInternalEvents(handler func(protocol.InternalEvent)) (livechat.Subscription, error) {
	subject := SubjectEventsPrefix + t.userID
	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev protocol.InternalEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] drop %s: %v", subject, err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("transport: nats subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// SubscribeRoomUpdates subscribes to this user's room update subject.
func (t *NATSTransport) SubscribeRoomUpdates(handler func(protocol.RoomUpdateEvent)) (livechat.Subscription, error) {
	subject := SubjectRoomsPrefix + t.userID
	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev protocol.RoomUpdateEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] drop %s: %v", subject, err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("transport: nats subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// SubscribeAllChatMessages subscribes to chat message events for every user,
// used by the history archiver. The handler receives the recipient user ID
// extracted from the subject.
func (t *NATSTransport) SubscribeAllChatMessages(handler func(userID string, ev protocol.ChatMessageEvent)) (livechat.Subscription, error) {
	sub, err := t.conn.Subscribe(SubjectChatWildcard, func(msg *nats.Msg) {
		var ev protocol.ChatMessageEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] drop %s: %v", msg.Subject, err)
			return
		}
		handler(strings.TrimPrefix(msg.Subject, SubjectChatPrefix), ev)
	})
	if err != nil {
		return nil, fmt.Errorf("transport: nats subscribe %s: %w", SubjectChatWildcard, err)
	}
	return sub, nil
}

func (t *NATSTransport) publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: marshal %s: %w", subject, err)
	}
	if err := t.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("transport: publish %s: %w", subject, err)
	}
	return nil
}
