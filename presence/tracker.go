// Package presence maintains the best-effort online/offline signal per user.
// State lives in Redis so every server instance sees the same view. Writes
// are fire-and-forget: a failed write leaves the prior state visible to other
// clients, which is stale but safe.
package presence

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for presence hashes.
	KeyPrefix = "presence:"

	StateOnline  = "online"
	StateOffline = "offline"

	// entryTTL bounds how long a presence hash can outlive its last write,
	// so users of long-gone clients eventually disappear from the roster.
	entryTTL = 24 * time.Hour
)

// Entry is one user's presence record.
type Entry struct {
	UID         string `redis:"uid" json:"uid"`
	State       string `redis:"state" json:"state"`
	LastChanged int64  `redis:"last_changed" json:"last_changed"`
}

// Tracker reads and writes presence entries in Redis.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// SetOnline marks uid online and stamps the transition time.
func (t *Tracker) SetOnline(ctx context.Context, uid string) error {
	return t.write(ctx, uid, StateOnline)
}

// SetOffline marks uid offline. Used both for graceful teardown and by the
// deferred disconnect write.
func (t *Tracker) SetOffline(ctx context.Context, uid string) error {
	return t.write(ctx, uid, StateOffline)
}

func (t *Tracker) write(ctx context.Context, uid, state string) error {
	key := KeyPrefix + uid
	pipe := t.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"uid":          uid,
		"state":        state,
		"last_changed": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Guard returns the deferred "set offline" write for uid. The hub registers
// this before announcing the user online, so a crash between the two steps
// can never leave the user permanently marked online. The returned func is
// safe to call from any goroutine and swallows write failures after logging.
func (t *Tracker) Guard(uid string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.SetOffline(ctx, uid); err != nil {
			log.Printf("[presence] offline write for %s failed: %v", uid, err)
		}
	}
}

// IsOnline reports whether uid is currently marked online.
func (t *Tracker) IsOnline(ctx context.Context, uid string) (bool, error) {
	state, err := t.rdb.HGet(ctx, KeyPrefix+uid, "state").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state == StateOnline, nil
}

// Snapshot returns the uid -> isOnline mapping for every known user.
func (t *Tracker) Snapshot(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool)

	iter := t.rdb.Scan(ctx, 0, KeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		state, err := t.rdb.HGet(ctx, key, "state").Result()
		if err != nil {
			continue
		}
		out[key[len(KeyPrefix):]] = state == StateOnline
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
