package jobs

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
)

const (
	sweepInterval = 1 * time.Hour
	sessionMaxAge = 24 * time.Hour
)

// SessionCleanupJob sweeps stale session records out of the in-memory
// store. Sessions only matter for the day the customer plays; the ledger
// keeps everything that needs to persist.
type SessionCleanupJob struct {
	store   storage.Store
	running atomic.Bool
	quit    chan struct{}
}

// NewSessionCleanupJob creates a new session cleanup job
func NewSessionCleanupJob(store storage.Store) *SessionCleanupJob {
	return &SessionCleanupJob{
		store: store,
	}
}

// Start begins the hourly cleanup sweep
func (j *SessionCleanupJob) Start() {
	if !j.running.CompareAndSwap(false, true) {
		log.Println("Session cleanup job already running")
		return
	}

	log.Println("Starting session cleanup job...")
	j.quit = make(chan struct{})
	go j.run(j.quit)
}

// Stop halts the cleanup sweep. A sweep in flight finishes; a sleeping
// sweeper exits immediately.
func (j *SessionCleanupJob) Stop() {
	if !j.running.CompareAndSwap(true, false) {
		return
	}
	log.Println("Stopping session cleanup job...")
	close(j.quit)
}

func (j *SessionCleanupJob) run(quit chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SessionCleanupJob) sweep() {
	removed, err := j.store.DeleteExpired(sessionMaxAge)
	if err != nil {
		log.Printf("Error cleaning up sessions: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 Removed %d expired customer sessions", removed)
	}
}
