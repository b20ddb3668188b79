// Package storage holds the process-local display state: the last good
// snapshot, the sync status and the last successful sync time.
package storage

import (
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/models"
)

// Reader is the read-only handle display surfaces hold.
type Reader interface {
	View() models.View
	// Subscribe returns a channel that receives a signal after every state
	// change, and a func that releases the subscription.
	Subscribe() (<-chan struct{}, func())
}

// Writer is the update surface used by the synchronizer and the submitter.
type Writer interface {
	ReplaceSnapshot(snap models.Snapshot)
	Degrade(reason string)
}

// MemoryStore is the single owner of the display state.
type MemoryStore struct {
	mu        sync.RWMutex
	sessionID string
	snapshot  models.Snapshot
	status    models.SyncStatus
	lastSync  time.Time
	revision  uint64

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// NewMemoryStore creates an empty, healthy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshot: models.Snapshot{Entities: []models.Fish{}},
		status:   models.Healthy(),
		subs:     make(map[int]chan struct{}),
	}
}

// Reset empties the snapshot and clears the status for a new view session.
func (s *MemoryStore) Reset(sessionID string, startedAt time.Time) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.snapshot = models.Snapshot{Entities: []models.Fish{}}
	s.status = models.Healthy()
	s.lastSync = startedAt
	s.revision++
	s.mu.Unlock()

	s.notify()
}

// ReplaceSnapshot installs snap wholesale and marks the status healthy.
func (s *MemoryStore) ReplaceSnapshot(snap models.Snapshot) {
	snap = snap.Clone()
	if snap.Entities == nil {
		snap.Entities = []models.Fish{}
	}

	s.mu.Lock()
	s.snapshot = snap
	s.status = models.Healthy()
	s.lastSync = snap.CapturedAt
	s.revision++
	s.mu.Unlock()

	s.notify()
}

// Degrade records a failure. The snapshot is left untouched.
func (s *MemoryStore) Degrade(reason string) {
	next := models.Degraded(reason)

	s.mu.Lock()
	if s.status == next {
		s.mu.Unlock()
		return
	}
	s.status = next
	s.revision++
	s.mu.Unlock()

	s.notify()
}

// View returns a consistent copy of the current state.
func (s *MemoryStore) View() models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.View{
		SessionID: s.sessionID,
		Snapshot:  s.snapshot.Clone(),
		Status:    s.status,
		LastSync:  s.lastSync,
		Revision:  s.revision,
	}
}

// Subscribe registers a change listener. Signals are coalesced: a slow
// listener sees at most one pending signal and never blocks writers.
func (s *MemoryStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (s *MemoryStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
