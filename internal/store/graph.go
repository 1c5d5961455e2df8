package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/314clay/claude-dashboard/internal/model"
)

// NodesInWindow returns the ids of all messages with a timestamp at or
// after since.
func (s *SQLiteStore) NodesInWindow(ctx context.Context, since time.Time) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id
		 FROM messages m
		 JOIN sessions s ON m.session_id = s.session_id
		 WHERE m.timestamp >= ?`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("nodes in window: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// StructuralRows returns (id, session, sequence) tuples for the window,
// ordered by (session_id, sequence_num) so consecutive rows of one
// session are adjacent.
func (s *SQLiteStore) StructuralRows(ctx context.Context, since time.Time) ([]model.StructuralRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.sequence_num
		 FROM messages m
		 JOIN sessions s ON m.session_id = s.session_id
		 WHERE m.timestamp >= ?
		 ORDER BY m.session_id, m.sequence_num`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("structural rows: %w", err)
	}
	defer rows.Close()

	var out []model.StructuralRow
	for rows.Next() {
		var r model.StructuralRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.SequenceNum); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GraphData returns rendering-ready nodes and structural links for the
// window, optionally restricted to a single session. Each node carries
// the ids of the active filters that matched it.
func (s *SQLiteStore) GraphData(ctx context.Context, since time.Time, sessionID string) ([]model.GraphNode, []model.GraphLink, error) {
	query := `
		SELECT m.id, m.session_id, m.role, m.content, m.timestamp, m.sequence_num,
		       m.output_tokens, m.input_tokens, m.cache_read_tokens, m.cache_creation_tokens,
		       s.cwd
		FROM messages m
		JOIN sessions s ON m.session_id = s.session_id
		WHERE `
	var args []interface{}
	if sessionID != "" {
		query += `m.session_id = ?`
		args = append(args, sessionID)
	} else {
		query += `m.timestamp >= ?`
		args = append(args, formatTime(since))
	}
	query += ` ORDER BY m.session_id, m.sequence_num`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("graph data: %w", err)
	}
	defer rows.Close()

	var nodes []model.GraphNode
	var links []model.GraphLink
	var ids []int64
	prevNode := make(map[string]int64)

	for rows.Next() {
		var n model.GraphNode
		var content, ts, cwd sql.NullString
		var seq int
		if err := rows.Scan(&n.ID, &n.SessionID, &n.Role, &content, &ts, &seq,
			&n.OutputTokens, &n.InputTokens, &n.CacheReadTokens, &n.CacheCreationTokens,
			&cwd); err != nil {
			return nil, nil, err
		}

		n.FullContent = content.String
		n.ContentPreview = preview(content.String, 100)
		if len(n.SessionID) >= 8 {
			n.SessionShort = n.SessionID[:8]
		} else {
			n.SessionShort = n.SessionID
		}
		n.Project = normalizePath(cwd.String)
		if ts.Valid {
			n.Timestamp = parseTime(ts.String)
		}

		if prev, ok := prevNode[n.SessionID]; ok {
			links = append(links, model.GraphLink{
				Source:    prev,
				Target:    n.ID,
				SessionID: n.SessionID,
				Timestamp: n.Timestamp,
			})
		}
		prevNode[n.SessionID] = n.ID

		ids = append(ids, n.ID)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	matches, err := s.MessageFilterMatches(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range nodes {
		nodes[i].FilterMatches = matches[nodes[i].ID]
	}

	return nodes, links, nil
}

func preview(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
