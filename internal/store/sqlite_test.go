package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/314clay/claude-dashboard/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedSession inserts a session plus count messages with timestamps
// spaced one minute apart starting at start. Returns message ids in
// sequence order.
func seedSession(t *testing.T, s *SQLiteStore, sessionID string, start time.Time, count int) []int64 {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertSession(ctx, model.Session{
		SessionID: sessionID,
		CWD:       "/home/user/project",
		StartTime: start,
	}); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	ids := make([]int64, count)
	for i := 0; i < count; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		id, err := s.UpsertMessage(ctx, model.Message{
			SessionID:   sessionID,
			Role:        role,
			Content:     "message content",
			SequenceNum: i,
			Timestamp:   start.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("upsert message %d: %v", i, err)
		}
		ids[i] = id
	}
	return ids
}

func TestUpsertMessageIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Now().UTC().Add(-time.Hour)
	ids := seedSession(t, s, "sess-1", start, 3)

	// Re-upserting the same (session, sequence) keeps the rowid.
	id, err := s.UpsertMessage(ctx, model.Message{
		SessionID:   "sess-1",
		Role:        "user",
		Content:     "updated content",
		SequenceNum: 0,
		Timestamp:   start,
	})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if id != ids[0] {
		t.Errorf("expected id %d on re-upsert, got %d", ids[0], id)
	}

	msgs, err := s.SessionMessages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("session messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "updated content" {
		t.Errorf("expected updated content, got %q", msgs[0].Content)
	}
}

func TestUpsertSessionUpgradesUnknownCwd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Now().UTC().Add(-time.Hour)

	if err := s.UpsertSession(ctx, model.Session{SessionID: "sess-1", StartTime: start}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertSession(ctx, model.Session{
		SessionID: "sess-1", CWD: "/home/user/real-path", StartTime: start,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	sessions, err := s.Sessions(ctx, start.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].CWD != "/home/user/real-path" {
		t.Errorf("expected upgraded cwd, got %q", sessions[0].CWD)
	}
	if sessions[0].Project != "user/real-path" {
		t.Errorf("expected project 'user/real-path', got %q", sessions[0].Project)
	}
}

func TestNodesInWindowRespectsCutoff(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)

	seedSession(t, s, "old", old, 2)
	recentIDs := seedSession(t, s, "recent", recent, 2)

	nodes, err := s.NodesInWindow(ctx, time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("nodes in window: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	for _, id := range recentIDs {
		if _, ok := nodes[id]; !ok {
			t.Errorf("expected node %d in window", id)
		}
	}
}

func TestStructuralRowsOrderedBySessionAndSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Now().UTC().Add(-time.Hour)

	seedSession(t, s, "b-session", start, 3)
	seedSession(t, s, "a-session", start, 2)

	rows, err := s.StructuralRows(ctx, start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("structural rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.SessionID > cur.SessionID {
			t.Errorf("rows out of session order at %d", i)
		}
		if prev.SessionID == cur.SessionID && prev.SequenceNum >= cur.SequenceNum {
			t.Errorf("rows out of sequence order at %d", i)
		}
	}
}

func TestOverviewMetrics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Now().UTC().Add(-time.Hour)
	ids := seedSession(t, s, "sess-1", start, 4)

	if err := s.InsertToolUsage(ctx, model.ToolUsage{
		MessageID: ids[1], ToolName: "Bash", SequenceNum: 0,
	}, start); err != nil {
		t.Fatalf("insert tool usage: %v", err)
	}

	m, err := s.OverviewMetrics(ctx, start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.SessionCount != 1 || m.MessageCount != 4 {
		t.Errorf("expected 1 session / 4 messages, got %d / %d", m.SessionCount, m.MessageCount)
	}
	if m.UserMessages != 2 || m.AssistantMessages != 2 {
		t.Errorf("expected 2/2 role split, got %d/%d", m.UserMessages, m.AssistantMessages)
	}
	if m.ToolCount != 1 {
		t.Errorf("expected 1 tool usage, got %d", m.ToolCount)
	}
}

func TestRecordIngestRunReturnsULID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	id, err := s.RecordIngestRun(ctx, now.Add(-time.Minute), now, 2, 10, 3)
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("expected 26-char ULID, got %q", id)
	}
}
