// Package journal provides the SQLite-backed audit trail and durable mirror
// of the vault.
//
// The journal is append-only for events: every state transition the vault
// commits lands here with a monotonic seq, and the external
// operator/notification service drives user alerts by reading the stream
// (polling ReadEvents, or blocking on the in-process Feed). Alongside the
// stream it mirrors actions, balances, and the operator set so a restarted
// process rehydrates where it left off.
//
// All ordering uses the logical seq column, never wall time; reads order by
// seq ASC, id ASC so traces are deterministic.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Journal is the durable audit log. It implements vault.Recorder.
type Journal struct {
	db    *sql.DB
	clock *seqClock
	ids   EventIDGenerator
	feed  *Feed
}

// Option configures Open.
type Option func(*Journal)

// WithIDGenerator overrides the event id generator. Production uses UUIDv7;
// golden-trace tests substitute a sequential generator.
func WithIDGenerator(g EventIDGenerator) Option {
	return func(j *Journal) { j.ids = g }
}

// Open creates or opens a journal database at path. ":memory:" gives a
// throwaway in-memory journal. The seq clock resumes after the highest
// recorded seq, so appends across restarts stay monotonic.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY churn and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(seq) FROM events`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("read last seq: %w", err)
	}

	j := &Journal{
		db:    db,
		clock: newSeqClockAt(last.Int64),
		ids:   UUIDv7Generator{},
		feed:  NewFeed(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database and the feed.
func (j *Journal) Close() error {
	j.feed.Close()
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Feed returns the in-process subscription feed. Every recorded event is
// published to it.
func (j *Journal) Feed() *Feed { return j.feed }

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// seqClock issues the strictly increasing seq numbers events are ordered
// by. Linearizable via atomic increment.
type seqClock struct {
	seq atomic.Int64
}

func newSeqClockAt(start int64) *seqClock {
	c := &seqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *seqClock) Next() int64 { return c.seq.Add(1) }

// Current returns the last issued sequence number.
func (c *seqClock) Current() int64 { return c.seq.Load() }

// EventIDGenerator produces event ids.
type EventIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 event ids.
type UUIDv7Generator struct{}

// Generate implements EventIDGenerator.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialIDGenerator issues "evt-000001"-style ids for deterministic
// golden traces.
type SequentialIDGenerator struct {
	mu sync.Mutex
	n  int64
}

// Generate implements EventIDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("evt-%06d", g.n)
}
