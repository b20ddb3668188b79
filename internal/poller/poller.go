// Package poller keeps the display state in step with the tracking service.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/fish-tracker/backend/internal/tracker"
	"github.com/labstack/gommon/log"
)

// DefaultInterval is the fixed refresh period.
const DefaultInterval = 5 * time.Second

// Fetcher is the read path of the tracking client.
type Fetcher interface {
	FetchAll(ctx context.Context) (models.Snapshot, error)
}

// Recorder receives one event per poll outcome. It must not block for long.
type Recorder interface {
	Record(ev models.SyncEvent)
}

// Config is the runtime config the poller needs.
type Config struct {
	SessionID string
	Interval  time.Duration
	// Recorder is optional.
	Recorder Recorder
}

// Outcome describes what happened to one issued poll.
type Outcome struct {
	Seq      uint64
	Kind     models.SyncEventKind
	Entities int
	Err      error
}

// Applied reports whether the outcome reached the store.
func (o Outcome) Applied() bool {
	return o.Kind != models.SyncEventSuperseded && o.Kind != models.SyncEventDiscarded
}

// Poller fetches on a clock and reconciles results in issue order.
// A result is applied only if no later-issued poll has been applied already,
// and never after the poller is closed.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	store   storage.Writer
	log     *log.Logger
	now     func() time.Time

	mu      sync.Mutex
	issued  uint64
	applied uint64
	closed  bool
}

// New creates a poller. A zero interval means DefaultInterval.
func New(cfg Config, fetcher Fetcher, store storage.Writer) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("poller: fetcher required")
	}
	if store == nil {
		return nil, errors.New("poller: store required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		log:     logging.New("poller"),
		now:     time.Now,
	}, nil
}

// Poll performs exactly one fetch and reduces its outcome into the store.
// Concurrent calls are safe; a response to a superseded request is dropped.
func (p *Poller) Poll(ctx context.Context) Outcome {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Outcome{Kind: models.SyncEventDiscarded}
	}
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	start := p.now()
	snap, err := p.fetcher.FetchAll(ctx)
	elapsed := p.now().Sub(start)

	out := Outcome{Seq: seq, Err: err}

	p.mu.Lock()
	switch {
	case p.closed || ctx.Err() != nil:
		out.Kind = models.SyncEventDiscarded
	case seq <= p.applied:
		out.Kind = models.SyncEventSuperseded
	default:
		p.applied = seq
		if err != nil {
			out.Kind = classify(err)
			p.store.Degrade(tracker.Describe(err))
		} else {
			out.Kind = models.SyncEventOK
			out.Entities = snap.Len()
			p.store.ReplaceSnapshot(snap)
		}
	}
	p.mu.Unlock()

	switch out.Kind {
	case models.SyncEventOK:
		p.log.Debugf("poll #%d ok: %d fish in %s", seq, out.Entities, elapsed)
	case models.SyncEventSuperseded, models.SyncEventDiscarded:
		p.log.Debugf("poll #%d %s after %s", seq, out.Kind, elapsed)
	default:
		p.log.Warnf("poll #%d failed (%s): %v", seq, out.Kind, err)
	}

	p.record(out, elapsed)
	return out
}

// Start polls immediately and then every interval until the handle is
// cancelled. A Poller can be started once.
func (p *Poller) Start(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		p:      p,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ctx, h.done)
	return h
}

// run is the single polling goroutine. Polls never overlap: a tick that
// fires while a poll is in flight is dropped.
func (p *Poller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Poll(ctx)
	p.dropMissedTick(ticker)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
			p.dropMissedTick(ticker)
		}
	}
}

func (p *Poller) dropMissedTick(t *time.Ticker) {
	select {
	case <-t.C:
		p.log.Debugf("poll overran the %s interval, skipping one tick", p.cfg.Interval)
	default:
	}
}

func (p *Poller) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Poller) record(out Outcome, elapsed time.Duration) {
	if p.cfg.Recorder == nil {
		return
	}
	ev := models.SyncEvent{
		SessionID:  p.cfg.SessionID,
		Op:         models.SyncOpPoll,
		Seq:        out.Seq,
		Kind:       out.Kind,
		Entities:   out.Entities,
		DurationMs: elapsed.Milliseconds(),
		At:         p.now(),
	}
	if out.Err != nil {
		ev.Reason = out.Err.Error()
	}
	p.cfg.Recorder.Record(ev)
}

func classify(err error) models.SyncEventKind {
	if tracker.IsProtocol(err) {
		return models.SyncEventProtocol
	}
	return models.SyncEventNetwork
}

// Handle controls a started poller.
type Handle struct {
	p      *Poller
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the schedule. When it returns no further poll will start and
// no result, including one already in flight, will reach the store.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.p.close()
		h.cancel()
		<-h.done
	})
}

// Done is closed when the polling goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
