package transport

import (
	"sync"

	"github.com/huddle/chat-hub/internal/livechat"
	"github.com/huddle/chat-hub/internal/protocol"
)

// subscriberSet is the shared handler registry for both transports. Handlers
// for a stream are invoked synchronously with event delivery.
type subscriberSet struct {
	mu     sync.RWMutex
	nextID int

	chatMessage map[int]func(protocol.ChatMessageEvent)
	internal    map[int]func(protocol.InternalEvent)
	roomUpdate  map[int]func(protocol.RoomUpdateEvent)
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{
		chatMessage: make(map[int]func(protocol.ChatMessageEvent)),
		internal:    make(map[int]func(protocol.InternalEvent)),
		roomUpdate:  make(map[int]func(protocol.RoomUpdateEvent)),
	}
}

// handlerSub removes one handler from its stream map on Unsubscribe.
type handlerSub struct {
	remove func()
	once   sync.Once
}

func (h *handlerSub) Unsubscribe() error {
	h.once.Do(h.remove)
	return nil
}

func (s *subscriberSet) addChatMessage(handler func(protocol.ChatMessageEvent)) livechat.Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.chatMessage[id] = handler
	s.mu.Unlock()

	return &handlerSub{remove: func() {
		s.mu.Lock()
		delete(s.chatMessage, id)
		s.mu.Unlock()
	}}
}

func (s *subscriberSet) addInternal(handler func(protocol.InternalEvent)) livechat.Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.internal[id] = handler
	s.mu.Unlock()

	return &handlerSub{remove: func() {
		s.mu.Lock()
		delete(s.internal, id)
		s.mu.Unlock()
	}}
}

func (s *subscriberSet) addRoomUpdate(handler func(protocol.RoomUpdateEvent)) livechat.Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.roomUpdate[id] = handler
	s.mu.Unlock()

	return &handlerSub{remove: func() {
		s.mu.Lock()
		delete(s.roomUpdate, id)
		s.mu.Unlock()
	}}
}

// dispatch routes a decoded event to every handler registered for its stream.
func (s *subscriberSet) dispatch(ev interface{}) {
	switch ev := ev.(type) {
	case protocol.ChatMessageEvent:
		s.mu.RLock()
		handlers := make([]func(protocol.ChatMessageEvent), 0, len(s.chatMessage))
		for _, h := range s.chatMessage {
			handlers = append(handlers, h)
		}
		s.mu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	case protocol.InternalEvent:
		s.mu.RLock()
		handlers := make([]func(protocol.InternalEvent), 0, len(s.internal))
		for _, h := range s.internal {
			handlers = append(handlers, h)
		}
		s.mu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	case protocol.RoomUpdateEvent:
		s.mu.RLock()
		handlers := make([]func(protocol.RoomUpdateEvent), 0, len(s.roomUpdate))
		for _, h := range s.roomUpdate {
			handlers = append(handlers, h)
		}
		s.mu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	}
}
