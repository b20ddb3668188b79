// Package submit registers new fish with the tracking service.
//
// A successful submission does not touch the local snapshot; the new fish
// shows up once a later poll observes it.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/fish-tracker/backend/internal/tracker"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// FailedMessage is the Degraded reason shown after a rejected or failed creation.
const FailedMessage = "Failed to add new fish. Please try again."

// Field names reported by ValidationError.
const (
	FieldSpecies      = "species"
	FieldTrackingInfo = "trackingInfo"
)

// ValidationError is returned before any network call when a required
// field is blank.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Creator is the write path of the tracking client.
type Creator interface {
	Create(ctx context.Context, f models.NewFish) error
}

// Recorder receives one event per submission.
type Recorder interface {
	Record(ev models.SyncEvent)
}

// Form holds the user-entered fields.
type Form struct {
	Species      string `json:"species"`
	TrackingInfo string `json:"trackingInfo"`
}

// Normalize trims both fields and checks they are non-empty.
func (f Form) Normalize() (Form, error) {
	out := Form{
		Species:      strings.TrimSpace(f.Species),
		TrackingInfo: strings.TrimSpace(f.TrackingInfo),
	}
	if out.Species == "" {
		return out, &ValidationError{Field: FieldSpecies}
	}
	if out.TrackingInfo == "" {
		return out, &ValidationError{Field: FieldTrackingInfo}
	}
	return out, nil
}

// Receipt identifies one submission in logs and the journal.
type Receipt struct {
	CorrelationID string `json:"correlationId"`
}

// Submitter validates a form and forwards it to the tracking service.
type Submitter struct {
	creator   Creator
	store     storage.Writer
	recorder  Recorder
	sessionID func() string
	log       *log.Logger
	now       func() time.Time
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithRecorder sends creation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Submitter) { s.recorder = r }
}

// WithSession tags journal events with the current session id.
func WithSession(id func() string) Option {
	return func(s *Submitter) { s.sessionID = id }
}

// New creates a Submitter.
func New(creator Creator, store storage.Writer, opts ...Option) *Submitter {
	s := &Submitter{
		creator:   creator,
		store:     store,
		sessionID: func() string { return "" },
		log:       logging.New("submit"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the form and issues exactly one create call.
// Every failure also degrades the shared status; the snapshot is left alone
// and nothing is retried.
func (s *Submitter) Submit(ctx context.Context, form Form) (Receipt, error) {
	rcpt := Receipt{CorrelationID: uuid.NewString()}
	start := s.now()

	clean, err := form.Normalize()
	if err != nil {
		s.log.Infof("[%s] rejected: %v", rcpt.CorrelationID, err)
		s.store.Degrade(FailedMessage)
		s.record(rcpt, models.SyncEventValidation, err, start)
		return rcpt, err
	}

	err = s.creator.Create(ctx, models.NewFish{
		Species:      clean.Species,
		TrackingInfo: clean.TrackingInfo,
		WeightKG:     tracker.PlaceholderWeightKG,
	})
	if err != nil {
		kind := models.SyncEventNetwork
		if tracker.IsProtocol(err) {
			kind = models.SyncEventProtocol
		}
		s.log.Warnf("[%s] create failed (%s): %v", rcpt.CorrelationID, kind, err)
		s.store.Degrade(FailedMessage)
		s.record(rcpt, kind, err, start)
		return rcpt, err
	}

	s.log.Infof("[%s] created species=%q, waiting for next poll", rcpt.CorrelationID, clean.Species)
	s.record(rcpt, models.SyncEventOK, nil, start)
	return rcpt, nil
}

func (s *Submitter) record(rcpt Receipt, kind models.SyncEventKind, err error, start time.Time) {
	if s.recorder == nil {
		return
	}
	ev := models.SyncEvent{
		SessionID:  s.sessionID(),
		Op:         models.SyncOpCreate,
		Kind:       kind,
		DurationMs: s.now().Sub(start).Milliseconds(),
		Reason:     rcpt.CorrelationID,
		At:         s.now(),
	}
	if err != nil {
		ev.Reason = rcpt.CorrelationID + ": " + err.Error()
	}
	s.recorder.Record(ev)
}
