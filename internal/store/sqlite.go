package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/tracking"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrations string

// SQLite is the quote and schedule store. It also implements tracking.Log.
type SQLite struct {
	db     *sql.DB
	logger *logger.Logger
}

var _ tracking.Log = (*SQLite)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string, log *logger.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// The CLI and the running bot may share the file; one connection per
	// process keeps writers serialized inside it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	if log == nil {
		log = logger.Nop()
	}
	log.Debug("store opened", logger.Field{Key: "path", Value: path})

	return &SQLite{db: db, logger: log}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddQuote inserts a quote. If the normalized text already exists the given
// tags are merged into the existing quote, which is returned.
func (s *SQLite) AddQuote(ctx context.Context, text string, tags []string) (Quote, error) {
	text = NormalizeText(text)
	if text == "" {
		return Quote{}, ErrEmptyText
	}
	tags = NormalizeTags(tags)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quotes(text, created_at) VALUES(?, ?) ON CONFLICT(text) DO NOTHING`,
		text, now())
	if err != nil {
		return Quote{}, fmt.Errorf("failed to insert quote: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM quotes WHERE text = ?`, text).Scan(&id); err != nil {
		return Quote{}, fmt.Errorf("failed to read quote id: %w", err)
	}

	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quote_tags(quote_id, tag) VALUES(?, ?) ON CONFLICT DO NOTHING`, id, tag); err != nil {
			return Quote{}, fmt.Errorf("failed to tag quote: %w", err)
		}
	}

	allTags, err := quoteTags(ctx, tx, id)
	if err != nil {
		return Quote{}, err
	}

	if err := tx.Commit(); err != nil {
		return Quote{}, err
	}

	return Quote{ID: id, Text: text, Tags: allTags}, nil
}

// ListQuotes returns every quote ordered by id.
func (s *SQLite) ListQuotes(ctx context.Context) ([]Quote, error) {
	return s.queryQuotes(ctx, `SELECT id, text FROM quotes ORDER BY id`)
}

// ListQuotesByTags returns the quotes carrying at least one of tags, ordered
// by id. No tags selects nothing.
func (s *SQLite) ListQuotesByTags(ctx context.Context, tags []string) ([]Quote, error) {
	tags = NormalizeTags(tags)
	if len(tags) == 0 {
		return nil, nil
	}

	args := make([]any, len(tags))
	for i, tag := range tags {
		args[i] = tag
	}
	query := `SELECT q.id, q.text FROM quotes q
		WHERE q.id IN (SELECT quote_id FROM quote_tags WHERE tag IN (` + placeholders(len(tags)) + `))
		ORDER BY q.id`

	return s.queryQuotes(ctx, query, args...)
}

func (s *SQLite) queryQuotes(ctx context.Context, query string, args ...any) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			rows.Close()
			return nil, err
		}
		quotes = append(quotes, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Tags are loaded after the cursor is closed: the pool holds one connection.
	for i := range quotes {
		tags, err := quoteTags(ctx, s.db, quotes[i].ID)
		if err != nil {
			return nil, err
		}
		quotes[i].Tags = tags
	}

	return quotes, nil
}

// UpsertSchedule creates or replaces the schedule with the same name.
func (s *SQLite) UpsertSchedule(ctx context.Context, sched Schedule) error {
	sched.Name = strings.TrimSpace(sched.Name)
	sched.Cron = strings.TrimSpace(sched.Cron)
	if sched.Name == "" || sched.Cron == "" {
		return ErrInvalidSchedule
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedules(name, cron, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET cron = excluded.cron, updated_at = excluded.updated_at`,
		sched.Name, sched.Cron, now()); err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_tags WHERE schedule = ?`, sched.Name); err != nil {
		return fmt.Errorf("failed to reset schedule tags: %w", err)
	}
	for _, tag := range NormalizeTags(sched.Tags) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_tags(schedule, tag) VALUES(?, ?)`, sched.Name, tag); err != nil {
			return fmt.Errorf("failed to tag schedule: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteSchedule removes a schedule and its tags. The tracking record is
// kept: it is cleared only by a cycle reset, for every tracking driver, so a
// schedule removed and added again resumes its cycle.
func (s *SQLite) DeleteSchedule(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %q: %w", name, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_tags WHERE schedule = ?`, name); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	return tx.Commit()
}

// ListSchedules returns every schedule ordered by name.
func (s *SQLite) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, cron FROM schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	var schedules []Schedule
	for rows.Next() {
		var sched Schedule
		if err := rows.Scan(&sched.Name, &sched.Cron); err != nil {
			rows.Close()
			return nil, err
		}
		schedules = append(schedules, sched)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range schedules {
		tags, err := queryStrings(ctx, s.db,
			`SELECT tag FROM schedule_tags WHERE schedule = ? ORDER BY tag`, schedules[i].Name)
		if err != nil {
			return nil, err
		}
		schedules[i].Tags = tags
	}

	return schedules, nil
}

// Load implements tracking.Log.
func (s *SQLite) Load(ctx context.Context, schedule string) (tracking.Record, error) {
	if schedule == "" {
		return tracking.Record{}, tracking.ErrInvalidSchedule
	}

	rows, err := s.db.QueryContext(ctx, `SELECT quote_id FROM tracking WHERE schedule = ?`, schedule)
	if err != nil {
		return tracking.Record{}, fmt.Errorf("failed to load tracking record: %w", err)
	}
	defer rows.Close()

	record := tracking.NewRecord(schedule)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return tracking.Record{}, err
		}
		record.IDs[id] = struct{}{}
	}

	return record, rows.Err()
}

// Append implements tracking.Log.
func (s *SQLite) Append(ctx context.Context, schedule string, quoteID int64) error {
	if schedule == "" {
		return tracking.ErrInvalidSchedule
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracking(schedule, quote_id, added_at) VALUES(?, ?, ?) ON CONFLICT DO NOTHING`,
		schedule, quoteID, now())
	if err != nil {
		return fmt.Errorf("failed to append tracking record: %w", err)
	}
	return nil
}

// Clear implements tracking.Log.
func (s *SQLite) Clear(ctx context.Context, schedule string) error {
	if schedule == "" {
		return tracking.ErrInvalidSchedule
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracking WHERE schedule = ?`, schedule); err != nil {
		return fmt.Errorf("failed to clear tracking record: %w", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func quoteTags(ctx context.Context, q queryer, id int64) ([]string, error) {
	return queryStrings(ctx, q, `SELECT tag FROM quote_tags WHERE quote_id = ? ORDER BY tag`, id)
}

func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
