package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/poller"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// MaxHistory limits how many ended sessions are remembered.
const MaxHistory = 10

// ErrActive is returned by Start when a session is already running.
var ErrActive = errors.New("session: a view session is already active")

// ErrNoSession is returned by End when nothing is running.
var ErrNoSession = errors.New("session: no active view session")

// State is the part of the store a session owns: it resets it on start and
// the poller writes into it.
type State interface {
	storage.Writer
	Reset(sessionID string, startedAt time.Time)
}

// Config wires the manager to the tracking client and the shared state.
type Config struct {
	Fetcher  poller.Fetcher
	State    State
	Recorder poller.Recorder
	// Interval is only overridden by tests; zero means poller.DefaultInterval.
	Interval time.Duration
}

// Manager owns the lifecycle of the single active view session.
type Manager struct {
	cfg Config
	log *log.Logger
	now func() time.Time

	mu      sync.RWMutex
	current *models.ViewSession
	handle  *poller.Handle
	history []models.ViewSession
}

// NewManager creates a manager with no active session.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("session: fetcher required")
	}
	if cfg.State == nil {
		return nil, errors.New("session: state required")
	}
	return &Manager{
		cfg: cfg,
		log: logging.New("session"),
		now: time.Now,
	}, nil
}

// Start resets the shared state to empty/healthy and starts polling
// immediately. parent bounds the lifetime of the poller.
func (m *Manager) Start(parent context.Context) (models.ViewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return models.ViewSession{}, ErrActive
	}
	return m.startLocked(parent)
}

func (m *Manager) startLocked(parent context.Context) (models.ViewSession, error) {
	id := uuid.New().String()
	startedAt := m.now()

	p, err := poller.New(poller.Config{
		SessionID: id,
		Interval:  m.cfg.Interval,
		Recorder:  m.cfg.Recorder,
	}, m.cfg.Fetcher, m.cfg.State)
	if err != nil {
		return models.ViewSession{}, fmt.Errorf("session: %w", err)
	}

	m.cfg.State.Reset(id, startedAt)
	m.current = models.NewViewSession(id, startedAt)
	m.handle = p.Start(parent)

	m.log.Infof("[%s] view session started", id[:8])
	return *m.current, nil
}

// End stops the active session. When it returns no further poll fires and
// any in-flight result has been discarded.
func (m *Manager) End() (models.ViewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked()
}

func (m *Manager) endLocked() (models.ViewSession, error) {
	if m.current == nil {
		return models.ViewSession{}, ErrNoSession
	}

	m.handle.Cancel()

	ended := m.now()
	sess := *m.current
	sess.Status = models.SessionStatusEnded
	sess.EndedAt = &ended

	m.history = append(m.history, sess)
	if len(m.history) > MaxHistory {
		m.history = m.history[len(m.history)-MaxHistory:]
	}
	m.current = nil
	m.handle = nil

	m.log.Infof("[%s] view session ended after %s", sess.ID[:8], ended.Sub(sess.StartedAt).Round(time.Millisecond))
	return sess, nil
}

// Restart ends the active session, if any, and starts a fresh one.
func (m *Manager) Restart(parent context.Context) (models.ViewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if _, err := m.endLocked(); err != nil {
			return models.ViewSession{}, err
		}
	}
	return m.startLocked(parent)
}

// Current returns the active session.
func (m *Manager) Current() (models.ViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return models.ViewSession{}, false
	}
	return *m.current, true
}

// CurrentID returns the active session id, or "" between sessions.
func (m *Manager) CurrentID() string {
	s, _ := m.Current()
	return s.ID
}

// History returns ended sessions, oldest first.
func (m *Manager) History() []models.ViewSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ViewSession, len(m.history))
	copy(out, m.history)
	return out
}
