// Package store handles SQLite persistence of the practice journal.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/keydrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			profile TEXT NOT NULL,
			line TEXT NOT NULL,
			total_chars INTEGER NOT NULL,
			correct_chars INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			avg_wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			unlocked_key TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_key_stats (
			session_id TEXT NOT NULL,
			key TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			delay_sum_ms INTEGER NOT NULL,
			delay_count INTEGER NOT NULL,
			PRIMARY KEY (session_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS session_pair_stats (
			session_id TEXT NOT NULL,
			pair TEXT NOT NULL,
			hits INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			PRIMARY KEY (session_id, pair)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_profile ON sessions(profile);`,
		`CREATE INDEX IF NOT EXISTS idx_session_key_stats_key ON session_key_stats(key);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed line with its per-key and per-pair stats.
// An empty ID is replaced by a new UUID. It returns the stored ID.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats, keys []model.KeyStats, pairs []model.PairStats) (id string, err error) {
	id = stats.ID
	if id == "" {
		id = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, profile, line, total_chars, correct_chars, errors, avg_wpm, accuracy, unlocked_key, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		stats.StartedAt.Format(time.RFC3339Nano),
		stats.EndedAt.Format(time.RFC3339Nano),
		stats.Profile,
		stats.Line,
		stats.TotalChars,
		stats.CorrectChars,
		stats.Errors,
		stats.AvgWPM,
		stats.Accuracy,
		stats.UnlockedKey,
		stats.DurationMs,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	if len(keys) > 0 {
		if err = execEach(ctx, tx,
			`INSERT INTO session_key_stats (session_id, key, attempts, hits, errors, delay_sum_ms, delay_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			len(keys), func(i int) []any {
				k := keys[i]
				return []any{id, k.Key, k.Attempts, k.Hits, k.Errors, k.DelaySumMs, k.DelayCount}
			}); err != nil {
			return "", fmt.Errorf("insert key stats: %w", err)
		}
	}
	if len(pairs) > 0 {
		if err = execEach(ctx, tx,
			`INSERT INTO session_pair_stats (session_id, pair, hits, errors) VALUES (?, ?, ?, ?)`,
			len(pairs), func(i int) []any {
				p := pairs[i]
				return []any{id, p.Pair, p.Hits, p.Errors}
			}); err != nil {
			return "", fmt.Errorf("insert pair stats: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func execEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

// GetWeakKeys aggregates key stats over the most recent sessions of a profile.
// An empty profile matches every session.
func (s *Store) GetWeakKeys(ctx context.Context, window int, profile string) ([]model.KeyAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		WHERE (? = '' OR profile = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT ks.key, SUM(ks.attempts), SUM(ks.hits), SUM(ks.errors),
		SUM(ks.delay_sum_ms), SUM(ks.delay_count)
	FROM session_key_stats ks
	JOIN recent_sessions r ON r.id = ks.session_id
	GROUP BY ks.key`
	return s.queryKeyAggregates(ctx, query, profile, profile, window)
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Profile != "" {
		clauses = append(clauses, "profile = ?")
		args = append(args, cfg.Profile)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, profile, correct_chars, errors, avg_wpm, unlocked_key, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Profile, &agg.Correct, &agg.Incorrect, &agg.AvgWPM, &agg.UnlockedKey, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at %q: %w", endedAt, err)
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListKeyAggregatesForSessions aggregates per-key stats across sessions.
func (s *Store) ListKeyAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.KeyAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT key, SUM(attempts), SUM(hits), SUM(errors),
		SUM(delay_sum_ms), SUM(delay_count)
		FROM session_key_stats
		WHERE session_id IN (%s)
		GROUP BY key`, in)
	return s.queryKeyAggregates(ctx, query, args...)
}

// ListPairAggregatesForSessions aggregates per-pair stats across sessions.
func (s *Store) ListPairAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.PairAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT pair, SUM(hits), SUM(errors)
		FROM session_pair_stats
		WHERE session_id IN (%s)
		GROUP BY pair`, in)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pair aggregates: %w", err)
	}
	defer closeRows(rows)

	var result []model.PairAggregate
	for rows.Next() {
		var agg model.PairAggregate
		if err := rows.Scan(&agg.Pair, &agg.Hits, &agg.Errors); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListKeyStatsForSessions returns per-session stats for selected keys.
func (s *Store) ListKeyStatsForSessions(ctx context.Context, sessionIDs []string, keys []string) (map[string]map[string]model.KeyAggregate, error) {
	if len(sessionIDs) == 0 || len(keys) == 0 {
		return map[string]map[string]model.KeyAggregate{}, nil
	}
	idIn, args := inClause(sessionIDs)
	keyIn, keyArgs := inClause(keys)
	args = append(args, keyArgs...)

	query := fmt.Sprintf(`SELECT session_id, key, attempts, hits, errors, delay_sum_ms, delay_count
		FROM session_key_stats
		WHERE session_id IN (%s) AND key IN (%s)`, idIn, keyIn)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list key stats: %w", err)
	}
	defer closeRows(rows)

	result := map[string]map[string]model.KeyAggregate{}
	for rows.Next() {
		var sessionID string
		var agg model.KeyAggregate
		if err := rows.Scan(&sessionID, &agg.Key, &agg.Attempts, &agg.Hits, &agg.Errors, &agg.DelaySumMs, &agg.DelayCount); err != nil {
			return nil, err
		}
		if _, ok := result[sessionID]; !ok {
			result[sessionID] = map[string]model.KeyAggregate{}
		}
		result[sessionID][agg.Key] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) queryKeyAggregates(ctx context.Context, query string, args ...any) ([]model.KeyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list key aggregates: %w", err)
	}
	defer closeRows(rows)

	var result []model.KeyAggregate
	for rows.Next() {
		var agg model.KeyAggregate
		if err := rows.Scan(&agg.Key, &agg.Attempts, &agg.Hits, &agg.Errors, &agg.DelaySumMs, &agg.DelayCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func inClause(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}
