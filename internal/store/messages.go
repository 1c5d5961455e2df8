package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/314clay/claude-dashboard/internal/model"
)

// UpsertSession inserts a session or refreshes its end time. A cwd of
// "unknown" is upgraded when a later ingest learns the real path.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sess model.Session) error {
	var endTime *string
	if sess.EndTime != nil {
		e := formatTime(*sess.EndTime)
		endTime = &e
	}
	var transcript *string
	if sess.TranscriptPath != "" {
		transcript = &sess.TranscriptPath
	}

	cwd := sess.CWD
	if cwd == "" {
		cwd = "unknown"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, cwd, start_time, end_time, source, transcript_path)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		     cwd = CASE WHEN sessions.cwd = 'unknown' AND excluded.cwd != 'unknown' THEN excluded.cwd ELSE sessions.cwd END,
		     end_time = COALESCE(excluded.end_time, sessions.end_time),
		     updated_at = datetime('now')`,
		sess.SessionID, cwd, formatTime(sess.StartTime), endTime, sess.Source, transcript)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.SessionID, err)
	}
	return nil
}

// UpsertMessage inserts or updates a message keyed on
// (session_id, sequence_num) and returns its rowid.
func (s *SQLiteStore) UpsertMessage(ctx context.Context, m model.Message) (int64, error) {
	var ts *string
	if !m.Timestamp.IsZero() {
		t := formatTime(m.Timestamp)
		ts = &t
	}
	var mdl *string
	if m.Model != "" {
		mdl = &m.Model
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages
		     (session_id, role, content, sequence_num, timestamp,
		      model, input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, sequence_num) DO UPDATE SET
		     role = excluded.role,
		     content = excluded.content,
		     model = COALESCE(excluded.model, messages.model),
		     input_tokens = COALESCE(excluded.input_tokens, messages.input_tokens),
		     output_tokens = COALESCE(excluded.output_tokens, messages.output_tokens)
		 RETURNING id`,
		m.SessionID, m.Role, m.Content, m.SequenceNum, ts,
		mdl, m.InputTokens, m.OutputTokens, m.CacheReadTokens, m.CacheCreationTokens).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert message %s/%d: %w", m.SessionID, m.SequenceNum, err)
	}
	return id, nil
}

// InsertToolUsage records one tool invocation for a message.
func (s *SQLiteStore) InsertToolUsage(ctx context.Context, tu model.ToolUsage, ts time.Time) error {
	var tsStr *string
	if !ts.IsZero() {
		t := formatTime(ts)
		tsStr = &t
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_usages (message_id, tool_name, tool_input, sequence_num, timestamp)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		tu.MessageID, tu.ToolName, tu.ToolInput, tu.SequenceNum, tsStr)
	if err != nil {
		return fmt.Errorf("insert tool usage: %w", err)
	}
	return nil
}

// RecordIngestRun persists a completed ingest run and returns its ULID.
func (s *SQLiteStore) RecordIngestRun(ctx context.Context, started, finished time.Time, sessions, messages, tools int) (string, error) {
	id := s.newRunID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, started_at, finished_at, sessions, messages, tools)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, formatTime(started), formatTime(finished), sessions, messages, tools)
	if err != nil {
		return "", fmt.Errorf("record ingest run: %w", err)
	}
	return id, nil
}

// Sessions lists sessions started after since with message aggregates,
// newest first.
func (s *SQLiteStore) Sessions(ctx context.Context, since time.Time, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
		    s.session_id,
		    s.cwd,
		    s.start_time,
		    s.end_time,
		    COUNT(m.id) AS total_messages,
		    SUM(CASE WHEN m.role = 'user' THEN 1 ELSE 0 END) AS user_messages,
		    SUM(CASE WHEN m.role = 'assistant' THEN 1 ELSE 0 END) AS assistant_messages,
		    (strftime('%s', COALESCE(s.end_time, datetime('now'))) - strftime('%s', s.start_time)) / 60.0 AS duration_mins
		FROM sessions s
		LEFT JOIN messages m ON s.session_id = m.session_id
		WHERE s.start_time >= ?
		GROUP BY s.session_id, s.cwd, s.start_time, s.end_time
		ORDER BY s.start_time DESC
		LIMIT ?`, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var startTime string
		var endTime sql.NullString
		var userMsgs, assistantMsgs sql.NullInt64
		var duration sql.NullFloat64
		if err := rows.Scan(&sess.SessionID, &sess.CWD, &startTime, &endTime,
			&sess.TotalMessages, &userMsgs, &assistantMsgs, &duration); err != nil {
			return nil, err
		}
		sess.StartTime = parseTime(startTime)
		if endTime.Valid {
			t := parseTime(endTime.String)
			sess.EndTime = &t
		}
		sess.UserMessages = int(userMsgs.Int64)
		sess.AssistantMessages = int(assistantMsgs.Int64)
		sess.DurationMins = duration.Float64
		sess.Project = normalizePath(sess.CWD)
		sess.IsActive = sess.EndTime == nil
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionMessages returns every message of one session in sequence order.
func (s *SQLiteStore) SessionMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, sequence_num, timestamp, model,
		       input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence_num`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// OverviewMetrics returns the headline counters for a time window.
func (s *SQLiteStore) OverviewMetrics(ctx context.Context, since time.Time) (*model.OverviewMetrics, error) {
	sinceStr := formatTime(since)
	var m model.OverviewMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM sessions WHERE start_time >= ?) AS session_count,
		    (SELECT COUNT(*) FROM messages WHERE timestamp >= ?) AS message_count,
		    (SELECT COUNT(*) FROM messages WHERE timestamp >= ? AND role = 'user') AS user_messages,
		    (SELECT COUNT(*) FROM messages WHERE timestamp >= ? AND role = 'assistant') AS assistant_messages,
		    (SELECT COUNT(*) FROM tool_usages WHERE timestamp >= ?) AS tool_count`,
		sinceStr, sinceStr, sinceStr, sinceStr, sinceStr).
		Scan(&m.SessionCount, &m.MessageCount, &m.UserMessages, &m.AssistantMessages, &m.ToolCount)
	if err != nil {
		return nil, fmt.Errorf("overview metrics: %w", err)
	}
	return &m, nil
}

// ToolUsageStats aggregates tool call counts for a time window.
func (s *SQLiteStore) ToolUsageStats(ctx context.Context, since time.Time) ([]model.ToolStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, COUNT(*) AS count
		FROM tool_usages
		WHERE timestamp >= ?
		GROUP BY tool_name
		ORDER BY count DESC`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("tool usage stats: %w", err)
	}
	defer rows.Close()

	var stats []model.ToolStat
	for rows.Next() {
		var t model.ToolStat
		if err := rows.Scan(&t.ToolName, &t.Count); err != nil {
			return nil, err
		}
		stats = append(stats, t)
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row scanner) (model.Message, error) {
	var m model.Message
	var content, ts, mdl sql.NullString

	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &content, &m.SequenceNum, &ts, &mdl,
		&m.InputTokens, &m.OutputTokens, &m.CacheReadTokens, &m.CacheCreationTokens)
	if err != nil {
		return m, err
	}

	m.Content = content.String
	if ts.Valid {
		m.Timestamp = parseTime(ts.String)
	}
	m.Model = mdl.String
	return m, nil
}

// normalizePath shortens a working-directory path to its last two
// segments for display.
func normalizePath(path string) string {
	if path == "" || path == "unknown" {
		return ""
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
