// Package transport provides event transport implementations for the hub
// chat client. Both carriers deliver the same decoded event streams: an
// ordered chat-message stream, an internal-event stream, and a room-update
// stream, plus the outbound join/message/status operations.
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/huddle/chat-hub/internal/livechat"
	"github.com/huddle/chat-hub/internal/protocol"
)

// WSTransport is the WebSocket event transport. It holds a single connection
// to the chat relay, reads frames on a background goroutine, and dispatches
// decoded events to subscribed handlers in arrival order.
type WSTransport struct {
	conn     net.Conn
	clientID string

	writeMu sync.Mutex

	subs *subscriberSet

	done      chan struct{}
	closeOnce sync.Once
}

// DialWS connects to the chat relay at the given WebSocket URL and starts the
// read loop. Each connection identifies itself with a generated client ID.
func DialWS(ctx context.Context, url string) (*WSTransport, error) {
	clientID := uuid.NewString()

	dialer := ws.Dialer{
		Header: ws.HandshakeHeaderHTTP(http.Header{
			"X-Client-ID": []string{clientID},
		}),
	}
	conn, _, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}

	t := &WSTransport{
		conn:     conn,
		clientID: clientID,
		subs:     newSubscriberSet(),
		done:     make(chan struct{}),
	}

	go t.readLoop()

	return t, nil
}

// ClientID returns the generated identifier sent during the handshake.
func (t *WSTransport) ClientID() string {
	return t.clientID
}

// Close closes the connection and stops the read loop. It is safe to call
// multiple times.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

// JoinRoom asks the relay to add this client to the room's delivery set.
func (t *WSTransport) JoinRoom(ctx context.Context, room protocol.ChatRoom) error {
	return t.send(ctx, protocol.TypeJoinRoom, protocol.JoinRoomFrame{Room: room})
}

// SendMessage posts a chat message to a room.
func (t *WSTransport) SendMessage(ctx context.Context, room, text string) error {
	return t.send(ctx, protocol.TypeSendMessage, protocol.SendMessageFrame{Room: room, Text: text})
}

// SendStatusUpdate broadcasts this client's presence. An empty room applies
// the update to all of the user's rooms.
func (t *WSTransport) SendStatusUpdate(ctx context.Context, status, game, room string) error {
	return t.send(ctx, protocol.TypeStatusUpdate, protocol.StatusUpdateFrame{
		Status: status,
		Game:   game,
		Room:   room,
	})
}

// SubscribeChatMessages registers a handler for inbound chat messages.
func (t *WSTransport) SubscribeChatMessages(handler func(protocol.ChatMessageEvent)) (livechat.Subscription, error) {
	return t.subs.addChatMessage(handler), nil
}

// SubscribeInternalEvents registers a handler for internal events.
func (t *WSTransport) SubscribeInternalEvents(handler func(protocol.InternalEvent)) (livechat.Subscription, error) {
	return t.subs.addInternal(handler), nil
}

// SubscribeRoomUpdates registers a handler for room membership updates.
func (t *WSTransport) SubscribeRoomUpdates(handler func(protocol.RoomUpdateEvent)) (livechat.Subscription, error) {
	return t.subs.addRoomUpdate(handler), nil
}

// send marshals and writes a client frame. The write mutex serializes
// concurrent senders onto the single connection.
func (t *WSTransport) send(ctx context.Context, frameType string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := protocol.NewClientFrame(frameType, payload)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(t.conn, ws.OpText, data); err != nil {
		return fmt.Errorf("transport: write %s: %w", frameType, err)
	}
	return nil
}

// readLoop reads frames until the connection closes and dispatches each
// decoded event synchronously, preserving arrival order.
func (t *WSTransport) readLoop() {
	for {
		select {
		case <-t.done:
			return
		default:
		}

		data, err := wsutil.ReadServerText(t.conn)
		if err != nil {
			select {
			case <-t.done:
				// Intentional close.
			default:
				log.Printf("[transport] read: %v", err)
			}
			return
		}

		eventType, ev, err := protocol.ParseServerEvent(data)
		if err != nil {
			log.Printf("[transport] drop frame type=%q: %v", eventType, err)
			continue
		}

		t.subs.dispatch(ev)
	}
}
