// Package journal keeps an in-memory DuckDB log of sync outcomes for the
// running process. Nothing is written to disk.
package journal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"
)

// DefaultMaxRows bounds the journal when no limit is configured.
const DefaultMaxRows = 5000

// DefaultLimit is the page size of Recent when limit <= 0.
const DefaultLimit = 50

const recordTimeout = 2 * time.Second

// Journal is an append-only, bounded table of models.SyncEvent.
type Journal struct {
	db      *sql.DB
	maxRows int
	log     *log.Logger

	mu     sync.Mutex
	nextID int64
	closed bool

	// limits concurrent readers
	querySem chan struct{}
}

// Open creates the in-memory database and its table.
func Open(maxRows int) (*Journal, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='64MB'",
			"PRAGMA threads=1",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE sync_events (
			id          BIGINT PRIMARY KEY,
			session_id  VARCHAR NOT NULL,
			op          VARCHAR NOT NULL,
			seq         BIGINT NOT NULL,
			kind        VARCHAR NOT NULL,
			entities    INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			reason      VARCHAR,
			at_ms       BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Journal{
		db:       db,
		maxRows:  maxRows,
		log:      logging.New("journal"),
		querySem: make(chan struct{}, 3),
	}, nil
}

// MaxRows is the retention bound.
func (j *Journal) MaxRows() int {
	return j.maxRows
}

// Record appends ev and logs failures. It satisfies poller.Recorder and
// submit.Recorder.
func (j *Journal) Record(ev models.SyncEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if _, err := j.Append(ctx, ev); err != nil {
		j.log.Warnf("dropping %s/%s event: %v", ev.Op, ev.Kind, err)
	}
}

// Append inserts ev, prunes the oldest rows beyond MaxRows and returns the
// assigned id.
func (j *Journal) Append(ctx context.Context, ev models.SyncEvent) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, sql.ErrConnDone
	}

	j.nextID++
	id := j.nextID
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_events (id, session_id, op, seq, kind, entities, duration_ms, reason, at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ev.SessionID, string(ev.Op), int64(ev.Seq), string(ev.Kind),
		ev.Entities, ev.DurationMs, ev.Reason, ev.At.UnixMilli())
	if err != nil {
		j.nextID--
		return 0, fmt.Errorf("insert sync event: %w", err)
	}

	if cutoff := id - int64(j.maxRows); cutoff > 0 {
		if _, err := j.db.ExecContext(ctx, `DELETE FROM sync_events WHERE id <= ?`, cutoff); err != nil {
			return id, fmt.Errorf("prune sync events: %w", err)
		}
	}
	return id, nil
}

// Recent returns the newest events first. An empty sessionID matches all
// sessions.
func (j *Journal) Recent(ctx context.Context, sessionID string, limit int) ([]models.SyncEvent, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	select {
	case j.querySem <- struct{}{}:
		defer func() { <-j.querySem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	query := `SELECT id, session_id, op, seq, kind, entities, duration_ms, reason, at_ms
		FROM sync_events`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync events: %w", err)
	}
	defer rows.Close()

	events := make([]models.SyncEvent, 0, limit)
	for rows.Next() {
		var (
			ev     models.SyncEvent
			op     string
			kind   string
			seq    int64
			reason sql.NullString
			atMs   int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &op, &seq, &kind, &ev.Entities, &ev.DurationMs, &reason, &atMs); err != nil {
			return nil, err
		}
		ev.Op = models.SyncOp(op)
		ev.Kind = models.SyncEventKind(kind)
		ev.Seq = uint64(seq)
		ev.Reason = reason.String
		ev.At = time.UnixMilli(atMs)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Counts tallies events per kind for one session, or all sessions when
// sessionID is empty.
func (j *Journal) Counts(ctx context.Context, sessionID string) (map[models.SyncEventKind]int, error) {
	query := `SELECT kind, COUNT(*) FROM sync_events`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY kind`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count sync events: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SyncEventKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[models.SyncEventKind(kind)] = n
	}
	return counts, rows.Err()
}

// Len returns the number of retained rows.
func (j *Journal) Len(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_events`).Scan(&n)
	return n, err
}

// Close releases the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
