// Package typing tracks the ephemeral per-room "is typing" flags. The
// websocket layer arms a one second idle timer per client and room; the Redis
// TTL is a safety net that clears entries even if the owning client vanishes
// mid-keystroke.
package typing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix; full keys are typing:<roomID>:<uid>.
	KeyPrefix = "typing:"

	// IdleTimeout is how long after the last keystroke an entry survives
	// without a refresh.
	IdleTimeout = time.Second

	// EntryTTL is the server-side expiry for a typing entry.
	EntryTTL = 5 * time.Second
)

// Entry is one user's typing record within a room.
type Entry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Timestamp   int64  `json:"timestamp"`
}

// Tracker reads and writes typing entries in Redis.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func key(roomID, uid string) string {
	return KeyPrefix + roomID + ":" + uid
}

// Set writes the typing entry for (roomID, uid) with the default TTL.
func (t *Tracker) Set(ctx context.Context, roomID, uid, displayName string) error {
	return t.SetWithTTL(ctx, roomID, uid, displayName, EntryTTL)
}

// SetWithTTL writes a typing entry with an explicit expiry.
func (t *Tracker) SetWithTTL(ctx context.Context, roomID, uid, displayName string, ttl time.Duration) error {
	pipe := t.rdb.Pipeline()
	pipe.HSet(ctx, key(roomID, uid), map[string]interface{}{
		"uid":          uid,
		"display_name": displayName,
		"timestamp":    time.Now().Unix(),
	})
	pipe.Expire(ctx, key(roomID, uid), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear deletes the typing entry for (roomID, uid). Clearing an absent entry
// is a no-op.
func (t *Tracker) Clear(ctx context.Context, roomID, uid string) error {
	return t.rdb.Del(ctx, key(roomID, uid)).Err()
}

// IsTyping reports whether a typing entry exists for (roomID, uid).
func (t *Tracker) IsTyping(ctx context.Context, roomID, uid string) (bool, error) {
	n, err := t.rdb.Exists(ctx, key(roomID, uid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Room returns every live typing entry for a room.
func (t *Tracker) Room(ctx context.Context, roomID string) ([]Entry, error) {
	prefix := KeyPrefix + roomID + ":"
	var entries []Entry

	iter := t.rdb.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		fields, err := t.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		ts, _ := strconv.ParseInt(fields["timestamp"], 10, 64)
		uid := fields["uid"]
		if uid == "" {
			uid = strings.TrimPrefix(iter.Val(), prefix)
		}
		entries = append(entries, Entry{
			UID:         uid,
			DisplayName: fields["display_name"],
			Timestamp:   ts,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
