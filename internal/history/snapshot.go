// Package history persists chat room histories: a Redis snapshot used to
// hydrate the client's state engine on startup, and a PostgreSQL archive for
// long-term retention.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/huddle/chat-hub/internal/protocol"
)

// SnapshotKey is the Redis hash holding one field per room, each a JSON array
// of messages.
const SnapshotKey = "hub:history"

// SnapshotStore reads and writes the room-history snapshot in Redis.
type SnapshotStore struct {
	rdb *redis.Client
}

// NewSnapshotStore creates a snapshot store backed by the given Redis client.
func NewSnapshotStore(rdb *redis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

// Save replaces the stored snapshot with the given histories. Rooms absent
// from the map are removed, matching the state engine's full-replace load
// semantics on the way back in.
func (s *SnapshotStore) Save(ctx context.Context, histories map[string][]protocol.Message) error {
	fields := make(map[string]interface{}, len(histories))
	for room, msgs := range histories {
		data, err := json.Marshal(msgs)
		if err != nil {
			return fmt.Errorf("history: marshal room %q: %w", room, err)
		}
		fields[room] = data
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, SnapshotKey)
	if len(fields) > 0 {
		pipe.HSet(ctx, SnapshotKey, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: save snapshot: %w", err)
	}
	return nil
}

// Load reads the full snapshot. A missing key yields an empty, non-nil map.
func (s *SnapshotStore) Load(ctx context.Context) (map[string][]protocol.Message, error) {
	result, err := s.rdb.HGetAll(ctx, SnapshotKey).Result()
	if err != nil {
		return nil, fmt.Errorf("history: load snapshot: %w", err)
	}

	histories := make(map[string][]protocol.Message, len(result))
	for room, raw := range result {
		var msgs []protocol.Message
		if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
			return nil, fmt.Errorf("history: decode room %q: %w", room, err)
		}
		histories[room] = msgs
	}
	return histories, nil
}

// AppendRoom appends messages to a single room's stored history, used by the
// archiver to keep the snapshot current without rewriting every room.
func (s *SnapshotStore) AppendRoom(ctx context.Context, room string, msgs []protocol.Message) error {
	raw, err := s.rdb.HGet(ctx, SnapshotKey, room).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("history: read room %q: %w", room, err)
	}

	var existing []protocol.Message
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("history: decode room %q: %w", room, err)
		}
	}

	data, err := json.Marshal(append(existing, msgs...))
	if err != nil {
		return fmt.Errorf("history: marshal room %q: %w", room, err)
	}
	if err := s.rdb.HSet(ctx, SnapshotKey, room, data).Err(); err != nil {
		return fmt.Errorf("history: write room %q: %w", room, err)
	}
	return nil
}

// Clear removes the stored snapshot entirely.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, SnapshotKey).Err(); err != nil {
		return fmt.Errorf("history: clear snapshot: %w", err)
	}
	return nil
}
