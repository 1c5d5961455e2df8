package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/314clay/claude-dashboard/internal/model"
)

// matchBatchSize keeps IN-clause parameter counts under SQLite's
// variable limit (~999).
const matchBatchSize = 900

// placeholders returns "?,?,...,?" with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// inBatches runs fn over ids in chunks of size so callers never exceed
// the store's per-query parameter ceiling. Batching is invisible to
// callers: results accumulate across chunks.
func inBatches(ids []int64, size int, fn func(batch []int64) error) error {
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// CreateFilter inserts a new filter and returns it. Names are unique.
func (s *SQLiteStore) CreateFilter(ctx context.Context, name, queryText string) (*model.Filter, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO semantic_filters (name, query_text, created_at, is_active)
		 VALUES (?, ?, ?, 1)`,
		name, queryText, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create filter %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Filter{
		ID:        id,
		Name:      name,
		QueryText: queryText,
		CreatedAt: now,
		IsActive:  true,
	}, nil
}

// Filter returns one filter by id, or sql.ErrNoRows.
func (s *SQLiteStore) Filter(ctx context.Context, id int64) (*model.Filter, error) {
	var f model.Filter
	var createdAt string
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, query_text, created_at, is_active
		 FROM semantic_filters WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.QueryText, &createdAt, &active)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(createdAt)
	f.IsActive = active != 0
	return &f, nil
}

// Filters lists all filters with scored/match counts, newest first.
func (s *SQLiteStore) Filters(ctx context.Context) ([]model.Filter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
		    f.id,
		    f.name,
		    f.query_text,
		    f.created_at,
		    f.is_active,
		    COUNT(r.id) AS total_scored,
		    SUM(CASE WHEN r.matches = 1 THEN 1 ELSE 0 END) AS matches
		FROM semantic_filters f
		LEFT JOIN semantic_filter_results r ON f.id = r.filter_id
		GROUP BY f.id, f.name, f.query_text, f.created_at, f.is_active
		ORDER BY f.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var filters []model.Filter
	for rows.Next() {
		var f model.Filter
		var createdAt string
		var active int
		var matches sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &f.QueryText, &createdAt, &active,
			&f.TotalScored, &matches); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(createdAt)
		f.IsActive = active != 0
		f.Matches = int(matches.Int64)
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// DeleteFilter removes a filter and its results. Returns false when the
// filter did not exist.
func (s *SQLiteStore) DeleteFilter(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM semantic_filter_results WHERE filter_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete filter results: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM semantic_filters WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FilterStatus reports scoring progress for one filter, or nil when the
// filter does not exist.
func (s *SQLiteStore) FilterStatus(ctx context.Context, id int64) (*model.FilterStatus, error) {
	f, err := s.Filter(ctx, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filter status: %w", err)
	}

	st := &model.FilterStatus{
		FilterID:  f.ID,
		Name:      f.Name,
		QueryText: f.QueryText,
		IsActive:  f.IsActive,
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages`).Scan(&st.Total); err != nil {
		return nil, err
	}

	var matches sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN matches = 1 THEN 1 ELSE 0 END)
		 FROM semantic_filter_results WHERE filter_id = ?`, id).
		Scan(&st.Scored, &matches); err != nil {
		return nil, err
	}
	st.Matches = int(matches.Int64)
	st.Pending = st.Total - st.Scored
	return st, nil
}

// FilterMatches returns, per filter id, the set of message ids with a
// positive match. Unknown filter ids simply produce no entries. Reads
// are paged at matchBatchSize ids per round-trip.
func (s *SQLiteStore) FilterMatches(ctx context.Context, filterIDs []int64) (map[int64]map[int64]struct{}, error) {
	matches := make(map[int64]map[int64]struct{})
	err := inBatches(filterIDs, matchBatchSize, func(batch []int64) error {
		query := fmt.Sprintf(
			`SELECT filter_id, message_id
			 FROM semantic_filter_results
			 WHERE filter_id IN (%s) AND matches = 1`, placeholders(len(batch)))
		rows, err := s.db.QueryContext(ctx, query, int64Args(batch)...)
		if err != nil {
			return fmt.Errorf("filter matches: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var filterID, messageID int64
			if err := rows.Scan(&filterID, &messageID); err != nil {
				return err
			}
			set := matches[filterID]
			if set == nil {
				set = make(map[int64]struct{})
				matches[filterID] = set
			}
			set[messageID] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// MessageFilterMatches returns, per message id, the active filters that
// matched it. Reads are paged at matchBatchSize ids per round-trip.
func (s *SQLiteStore) MessageFilterMatches(ctx context.Context, messageIDs []int64) (map[int64][]int64, error) {
	result := make(map[int64][]int64)
	err := inBatches(messageIDs, matchBatchSize, func(batch []int64) error {
		query := fmt.Sprintf(
			`SELECT r.message_id, r.filter_id
			 FROM semantic_filter_results r
			 JOIN semantic_filters f ON r.filter_id = f.id
			 WHERE r.message_id IN (%s) AND r.matches = 1 AND f.is_active = 1`,
			placeholders(len(batch)))
		rows, err := s.db.QueryContext(ctx, query, int64Args(batch)...)
		if err != nil {
			return fmt.Errorf("message filter matches: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var messageID, filterID int64
			if err := rows.Scan(&messageID, &filterID); err != nil {
				return err
			}
			result[messageID] = append(result[messageID], filterID)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnscoredMessage is a message not yet scored for some filter, with
// just enough context for rule evaluation.
type UnscoredMessage struct {
	ID         int64
	Role       string
	ContentLen int
}

// UnscoredMessages returns messages that have no result row for the
// given filter.
func (s *SQLiteStore) UnscoredMessages(ctx context.Context, filterID int64) ([]UnscoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.role, COALESCE(LENGTH(m.content), 0)
		FROM messages m
		WHERE m.id NOT IN (
		    SELECT r.message_id FROM semantic_filter_results r WHERE r.filter_id = ?
		)`, filterID)
	if err != nil {
		return nil, fmt.Errorf("unscored messages: %w", err)
	}
	defer rows.Close()

	var out []UnscoredMessage
	for rows.Next() {
		var m UnscoredMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.ContentLen); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ToolMessageIDs returns which of the given messages invoked a tool.
// An empty toolName matches any tool. Reads are paged.
func (s *SQLiteStore) ToolMessageIDs(ctx context.Context, messageIDs []int64, toolName string) (map[int64]struct{}, error) {
	result := make(map[int64]struct{})
	err := inBatches(messageIDs, matchBatchSize, func(batch []int64) error {
		query := fmt.Sprintf(
			`SELECT DISTINCT message_id FROM tool_usages WHERE message_id IN (%s)`,
			placeholders(len(batch)))
		args := int64Args(batch)
		if toolName != "" {
			query += ` AND tool_name = ?`
			args = append(args, toolName)
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("tool message ids: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			result[id] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FilterResult is one scored (filter, message) outcome.
type FilterResult struct {
	MessageID int64
	Matched   bool
}

// InsertFilterResults bulk-inserts scoring outcomes for a filter.
// Existing rows are left untouched.
func (s *SQLiteStore) InsertFilterResults(ctx context.Context, filterID int64, results []FilterResult, confidence float64) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO semantic_filter_results
		     (filter_id, message_id, matches, confidence, scored_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare filter results: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, r := range results {
		matched := 0
		if r.Matched {
			matched = 1
		}
		if _, err := stmt.ExecContext(ctx, filterID, r.MessageID, matched, confidence, now); err != nil {
			return fmt.Errorf("insert filter result: %w", err)
		}
	}

	return tx.Commit()
}
