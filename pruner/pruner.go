// Package pruner deletes chat messages older than the retention window. The
// sweep is idempotent and safe to run concurrently or repeatedly, so it can
// be triggered opportunistically when a client opens a chat view, by the
// background ticker, or by an external scheduler.
package pruner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/models"
	"gorm.io/gorm"
)

const (
	// DefaultRetentionDays is how long messages are kept.
	DefaultRetentionDays = 30

	// openDelay is how long after a room's history is first served before
	// the opportunistic sweep fires.
	openDelay = 5 * time.Second
)

// Sweep deletes every message in every room older than now minus retention
// and returns the number of rows removed. Re-running with the same cutoff
// deletes nothing new.
func Sweep(db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	res := db.Where("created_at < ?", cutoff).Delete(&models.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.MessagesPruned.Add(float64(res.RowsAffected))
		log.Printf("[pruner] deleted %d messages older than %s", res.RowsAffected, cutoff.Format(time.RFC3339))
	}
	return res.RowsAffected, nil
}

// Scheduler fires one opportunistic sweep per room per process, a fixed delay
// after that room's message history is first served.
type Scheduler struct {
	db        *gorm.DB
	retention time.Duration

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewScheduler(db *gorm.DB, retention time.Duration) *Scheduler {
	return &Scheduler{
		db:        db,
		retention: retention,
		seen:      make(map[string]struct{}),
	}
}

// RoomOpened notes that a client began following roomID and arms the delayed
// sweep if this is the first open of that room in this process.
func (s *Scheduler) RoomOpened(roomID string) {
	s.mu.Lock()
	if _, ok := s.seen[roomID]; ok {
		s.mu.Unlock()
		return
	}
	s.seen[roomID] = struct{}{}
	s.mu.Unlock()

	time.AfterFunc(openDelay, func() {
		if _, err := Sweep(s.db, s.retention); err != nil {
			log.Printf("[pruner] opportunistic sweep failed: %v", err)
		}
	})
}

// Run sweeps on a fixed interval until ctx is cancelled. Intended for
// deployments that want retention enforced even when no client opens a chat.
func Run(ctx context.Context, db *gorm.DB, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[pruner] sweep loop stopped")
			return
		case <-ticker.C:
			if _, err := Sweep(db, retention); err != nil {
				log.Printf("[pruner] sweep failed: %v", err)
			}
		}
	}
}
