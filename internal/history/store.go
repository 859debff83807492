package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rewindhq/rewind/pkg/replaylib"
	_ "modernc.org/sqlite"
)

// ErrOutOfOrder is returned by Append when a record is older than the last
// stored event.
var ErrOutOfOrder = errors.New("record is older than the last stored event")

const schema = `
CREATE TABLE IF NOT EXISTS events (
    idx      INTEGER PRIMARY KEY,
    epoch_ms INTEGER NOT NULL,
    target   TEXT NOT NULL,
    label    TEXT NOT NULL,
    action   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_epoch ON events(epoch_ms);
`

// Store is a SQLite-backed timeline. Indices are dense and follow time
// order.
type Store struct {
	db     *sql.DB
	policy replaylib.FindPolicy
	now    func() time.Time
}

// Open opens or creates the timeline database at path.
func Open(path string, policy replaylib.FindPolicy) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open history database: %w", err)
	}
	// one writer; readers share the same connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot create history schema: %w", err)
	}
	return &Store{db: db, policy: policy, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Policy returns the seek-past-end policy of the store.
func (s *Store) Policy() replaylib.FindPolicy {
	return s.policy
}

func unreachable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", replaylib.ErrUnreachable, op, err)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, unreachable("count events", err)
	}
	return n, nil
}

func (s *Store) Fetch(ctx context.Context, index int) (*replaylib.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT idx, epoch_ms, target, label, action
        FROM events
        WHERE idx IN (?, ?)
        ORDER BY idx ASC
    `, index, index+1)
	if err != nil {
		return nil, unreachable("query event", err)
	}
	defer rows.Close()

	var ev *replaylib.TimelineEvent
	for rows.Next() {
		var (
			idx                   int
			epochMs               int64
			target, label, action string
		)
		if err := rows.Scan(&idx, &epochMs, &target, &label, &action); err != nil {
			return nil, unreachable("scan event", err)
		}
		if idx == index {
			ev = &replaylib.TimelineEvent{
				Index:        idx,
				DueAtEpochMs: epochMs,
				Label:        label,
				Target:       target,
				Action:       action,
			}
			continue
		}
		if ev != nil {
			ev.NextDueAtEpochMs = replaylib.OptionalMs(epochMs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unreachable("iterate events", err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: index %d", replaylib.ErrNotFound, index)
	}
	return ev, nil
}

func (s *Store) FindIndexAtOrAfter(ctx context.Context, remote time.Time) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx, `
        SELECT idx FROM events WHERE epoch_ms >= ? ORDER BY epoch_ms ASC, idx ASC LIMIT 1
    `, remote.UnixMilli()).Scan(&idx)
	switch {
	case err == nil:
		return idx, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, unreachable("find event", err)
	}
	if s.policy == replaylib.FindClampToEnd {
		var last sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(idx) FROM events`).Scan(&last); err != nil {
			return 0, unreachable("find last event", err)
		}
		if last.Valid {
			return int(last.Int64), nil
		}
	}
	return 0, fmt.Errorf("%w: no event at or after %d", replaylib.ErrNotFound, remote.UnixMilli())
}

// ServerTime reports the store's clock. The daemon serves it on /api/time.
func (s *Store) ServerTime(ctx context.Context) (time.Time, error) {
	return s.now(), nil
}

// Records returns the whole timeline in index order.
func (s *Store) Records(ctx context.Context) ([]replaylib.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT epoch_ms, target, label, action FROM events ORDER BY idx ASC`)
	if err != nil {
		return nil, unreachable("query events", err)
	}
	defer rows.Close()
	var out []replaylib.Record
	for rows.Next() {
		var r replaylib.Record
		if err := rows.Scan(&r.EpochMs, &r.Target, &r.Label, &r.Action); err != nil {
			return nil, unreachable("scan event", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unreachable("iterate events", err)
	}
	return out, nil
}

// Import replaces the timeline with records, sorted by time and indexed
// from zero.
func (s *Store) Import(ctx context.Context, records []replaylib.Record) (int, error) {
	rs := append([]replaylib.Record(nil), records...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].EpochMs < rs[j].EpochMs })
	for i, r := range rs {
		if r.Target == "" {
			return 0, fmt.Errorf("error: record %d has no target", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error: failed to begin import: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return 0, fmt.Errorf("error: failed to clear events: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (idx, epoch_ms, target, label, action) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error: failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range rs {
		if _, err := stmt.ExecContext(ctx, i, r.EpochMs, r.Target, r.Label, r.Action); err != nil {
			return 0, fmt.Errorf("error: failed to insert event %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error: failed to commit import: %w", err)
	}
	return len(rs), nil
}

// Append adds records after the last stored event. Records must not be
// older than the current last event.
func (s *Store) Append(ctx context.Context, records ...replaylib.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error: failed to begin append: %w", err)
	}
	defer tx.Rollback()

	var (
		lastIdx   sql.NullInt64
		lastEpoch sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `SELECT idx, epoch_ms FROM events ORDER BY idx DESC LIMIT 1`).Scan(&lastIdx, &lastEpoch)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error: failed to read last event: %w", err)
	}
	next := 0
	if lastIdx.Valid {
		next = int(lastIdx.Int64) + 1
	}
	for _, r := range records {
		if r.Target == "" {
			return fmt.Errorf("error: record at %d has no target", r.EpochMs)
		}
		if lastEpoch.Valid && r.EpochMs < lastEpoch.Int64 {
			return fmt.Errorf("%w: %d < %d", ErrOutOfOrder, r.EpochMs, lastEpoch.Int64)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (idx, epoch_ms, target, label, action) VALUES (?, ?, ?, ?, ?)`,
			next, r.EpochMs, r.Target, r.Label, r.Action); err != nil {
			return fmt.Errorf("error: failed to append event %d: %w", next, err)
		}
		lastEpoch = sql.NullInt64{Int64: r.EpochMs, Valid: true}
		next++
	}
	return tx.Commit()
}

var (
	_ replaylib.HistorySource = (*Store)(nil)
	_ replaylib.TimeSource    = (*Store)(nil)
)
