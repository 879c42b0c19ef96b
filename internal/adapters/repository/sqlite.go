package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id            TEXT    NOT NULL,
	user_id       TEXT    NOT NULL,
	start_ns      INTEGER NOT NULL,
	end_ns        INTEGER,
	cycle_length  INTEGER NOT NULL DEFAULT 0,
	period_length INTEGER NOT NULL DEFAULT 0,
	ovulation_ns  INTEGER,
	complete      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_cycles_user_start ON cycles(user_id, start_ns);

CREATE TABLE IF NOT EXISTS samples (
	id         TEXT    NOT NULL,
	user_id    TEXT    NOT NULL,
	type       TEXT    NOT NULL,
	value      REAL    NOT NULL,
	unit       TEXT    NOT NULL DEFAULT '',
	confidence REAL    NOT NULL DEFAULT 0,
	source     TEXT    NOT NULL DEFAULT '',
	ts_ns      INTEGER NOT NULL,
	PRIMARY KEY (user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_samples_user_ts ON samples(user_id, ts_ns);

CREATE TABLE IF NOT EXISTS user_versions (
	user_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL
);
`

const bumpVersion = `
INSERT INTO user_versions (user_id, version) VALUES (?, 1)
ON CONFLICT(user_id) DO UPDATE SET version = version + 1`

// SQLiteStore is a Store backed by an embedded sqlite database. Times are
// stored as UTC unix nanoseconds.
type SQLiteStore struct {
	db           *sql.DB
	path         string
	journalMode  string
	maxOpenConns int
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{path: path, journalMode: "WAL", maxOpenConns: 1}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode="+s.journalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s.db = db
	return s, nil
}

// CyclesInRange returns the user's cycles starting within [start, end].
func (s *SQLiteStore) CyclesInRange(ctx context.Context, userID string, start, end time.Time) ([]model.CycleRecord, error) {
	if err := checkQuery(userID, start, end); err != nil {
		return nil, err
	}
	began := time.Now()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, start_ns, end_ns, cycle_length, period_length, ovulation_ns, complete
		FROM cycles
		WHERE user_id = ? AND start_ns BETWEEN ? AND ?
		ORDER BY start_ns, id`,
		userID, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	out := make([]model.CycleRecord, 0)
	for rows.Next() {
		var (
			rec                model.CycleRecord
			startNS            int64
			endNS, ovulationNS sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &startNS, &endNS, &rec.CycleLength, &rec.PeriodLength, &ovulationNS, &rec.Complete); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.StartDate = fromNanos(startNS)
		rec.EndDate = fromNullNanos(endNS)
		rec.OvulationDate = fromNullNanos(ovulationNS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	metrics.RecordStoreQueryLatency("cycles_in_range", msSince(began))
	return out, nil
}

// BiometricSamples returns the user's samples timestamped within
// [start, end], limited to types when any are given.
func (s *SQLiteStore) BiometricSamples(ctx context.Context, userID string, start, end time.Time, types ...model.BiometricType) ([]model.BiometricSample, error) {
	if err := checkQuery(userID, start, end); err != nil {
		return nil, err
	}
	began := time.Now()

	query := `
		SELECT id, user_id, type, value, unit, confidence, source, ts_ns
		FROM samples
		WHERE user_id = ? AND ts_ns BETWEEN ? AND ?`
	args := []any{userID, start.UnixNano(), end.UnixNano()}
	if len(types) > 0 {
		query += " AND type IN (?" + strings.Repeat(",?", len(types)-1) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += " ORDER BY ts_ns, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	out := make([]model.BiometricSample, 0)
	for rows.Next() {
		var (
			smp  model.BiometricSample
			typ  string
			tsNS int64
		)
		if err := rows.Scan(&smp.ID, &smp.UserID, &typ, &smp.Value, &smp.Unit, &smp.Confidence, &smp.Source, &tsNS); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Type = model.BiometricType(typ)
		smp.Timestamp = fromNanos(tsNS)
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	metrics.RecordStoreQueryLatency("biometric_samples", msSince(began))
	return out, nil
}

// Version returns the user's data version; 0 for unknown users.
func (s *SQLiteStore) Version(ctx context.Context, userID string) (uint64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "SELECT version FROM user_versions WHERE user_id = ?", userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return uint64(v), nil
}

// SaveCycle upserts rec and bumps the user's version in one transaction.
func (s *SQLiteStore) SaveCycle(ctx context.Context, rec model.CycleRecord) (model.CycleRecord, error) {
	rec, err := prepareCycle(rec)
	if err != nil {
		return model.CycleRecord{}, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cycles (id, user_id, start_ns, end_ns, cycle_length, period_length, ovulation_ns, complete)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, id) DO UPDATE SET
				start_ns = excluded.start_ns,
				end_ns = excluded.end_ns,
				cycle_length = excluded.cycle_length,
				period_length = excluded.period_length,
				ovulation_ns = excluded.ovulation_ns,
				complete = excluded.complete`,
			rec.ID, rec.UserID, rec.StartDate.UnixNano(), toNullNanos(rec.EndDate),
			rec.CycleLength, rec.PeriodLength, toNullNanos(rec.OvulationDate), rec.Complete,
		); err != nil {
			return fmt.Errorf("upsert cycle: %w", err)
		}
		_, err := tx.ExecContext(ctx, bumpVersion, rec.UserID)
		return err
	})
	if err != nil {
		return model.CycleRecord{}, err
	}
	s.publishCount(ctx, "cycle", "cycles")
	return rec, nil
}

// SaveSamples upserts samples for userID in one transaction.
func (s *SQLiteStore) SaveSamples(ctx context.Context, userID string, samples []model.BiometricSample) ([]model.BiometricSample, error) {
	prepared, err := prepareSamples(userID, samples)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return prepared, nil
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO samples (id, user_id, type, value, unit, confidence, source, ts_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, id) DO UPDATE SET
				type = excluded.type,
				value = excluded.value,
				unit = excluded.unit,
				confidence = excluded.confidence,
				source = excluded.source,
				ts_ns = excluded.ts_ns`)
		if err != nil {
			return fmt.Errorf("prepare sample upsert: %w", err)
		}
		defer stmt.Close()

		for _, smp := range prepared {
			if _, err := stmt.ExecContext(ctx, smp.ID, smp.UserID, string(smp.Type), smp.Value,
				smp.Unit, smp.Confidence, smp.Source, smp.Timestamp.UnixNano()); err != nil {
				return fmt.Errorf("upsert sample %s: %w", smp.ID, err)
			}
		}
		_, err = tx.ExecContext(ctx, bumpVersion, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishCount(ctx, "sample", "samples")
	return prepared, nil
}

// Users returns every user id with data, sorted.
func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM user_versions ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Counts returns the number of users, cycles and samples held.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM user_versions),
			(SELECT COUNT(*) FROM cycles),
			(SELECT COUNT(*) FROM samples)`).Scan(&c.Users, &c.Cycles, &c.Samples)
	if err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	return c, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) publishCount(ctx context.Context, kind, table string) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err == nil {
		metrics.UpdateStoreRecords(kind, n)
	}
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func fromNullNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromNanos(v.Int64)
	return &t
}

func toNullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
