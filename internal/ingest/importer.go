package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/314clay/claude-dashboard/internal/model"
)

// Store is the persistence surface the importer writes through.
type Store interface {
	UpsertSession(ctx context.Context, sess model.Session) error
	UpsertMessage(ctx context.Context, m model.Message) (int64, error)
	InsertToolUsage(ctx context.Context, tu model.ToolUsage, ts time.Time) error
	RecordIngestRun(ctx context.Context, started, finished time.Time, sessions, messages, tools int) (string, error)
}

// Result summarizes one ingest run.
type Result struct {
	RunID    string `json:"run_id"`
	Sessions int    `json:"sessions"`
	Messages int    `json:"messages"`
	Tools    int    `json:"tools"`
	Skipped  int    `json:"skipped"`
}

// Importer discovers sessions under a Claude directory and imports
// their transcripts.
type Importer struct {
	store  Store
	logger *zap.Logger
}

func NewImporter(st Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: st, logger: logger}
}

// Run imports every session under claudeDir started at or after since
// (zero since means all). Broken sessions are skipped, not fatal.
func (im *Importer) Run(ctx context.Context, claudeDir string, since time.Time) (*Result, error) {
	started := time.Now().UTC()

	sessions, err := DiscoverSessions(claudeDir, since)
	if err != nil {
		return nil, fmt.Errorf("discover sessions: %w", err)
	}
	im.logger.Info("discovered sessions",
		zap.String("claude_dir", claudeDir),
		zap.Int("count", len(sessions)))

	res := &Result{}
	for _, info := range sessions {
		msgs, tools, err := im.importSession(ctx, info)
		if err != nil {
			im.logger.Warn("session import failed",
				zap.String("session_id", info.SessionID),
				zap.Error(err))
			res.Skipped++
			continue
		}
		res.Sessions++
		res.Messages += msgs
		res.Tools += tools
	}

	runID, err := im.store.RecordIngestRun(ctx, started, time.Now().UTC(), res.Sessions, res.Messages, res.Tools)
	if err != nil {
		return nil, err
	}
	res.RunID = runID

	im.logger.Info("ingest complete",
		zap.String("run_id", runID),
		zap.Int("sessions", res.Sessions),
		zap.Int("messages", res.Messages),
		zap.Int("tools", res.Tools),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (im *Importer) importSession(ctx context.Context, info SessionInfo) (int, int, error) {
	if info.SessionID == "" {
		return 0, 0, fmt.Errorf("missing session id")
	}

	startTime := info.Created
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}
	sess := model.Session{
		SessionID: info.SessionID,
		CWD:       info.ProjectPath,
		StartTime: startTime,
		Source:    "ingest",
	}
	if !info.Modified.IsZero() {
		end := info.Modified
		sess.EndTime = &end
	}
	if _, err := os.Stat(info.TranscriptPath); err == nil {
		sess.TranscriptPath = info.TranscriptPath
	}
	if err := im.store.UpsertSession(ctx, sess); err != nil {
		return 0, 0, err
	}

	transcript, err := ParseTranscript(info.TranscriptPath)
	if err != nil {
		return 0, 0, fmt.Errorf("parse transcript: %w", err)
	}

	// Map each message's sequence number to its rowid so tool usages
	// can reference it.
	idBySeq := make(map[int]int64, len(transcript.Messages))
	tsBySeq := make(map[int]time.Time, len(transcript.Messages))
	msgCount := 0
	for _, pm := range transcript.Messages {
		m := model.Message{
			SessionID:           info.SessionID,
			Role:                pm.Role,
			Content:             pm.Content,
			SequenceNum:         pm.SequenceNum,
			Timestamp:           pm.Timestamp,
			Model:               pm.Model,
			InputTokens:         pm.InputTokens,
			OutputTokens:        pm.OutputTokens,
			CacheReadTokens:     pm.CacheReadTokens,
			CacheCreationTokens: pm.CacheCreationTokens,
		}
		id, err := im.store.UpsertMessage(ctx, m)
		if err != nil {
			return 0, 0, err
		}
		idBySeq[pm.SequenceNum] = id
		tsBySeq[pm.SequenceNum] = pm.Timestamp
		msgCount++
	}

	toolCount := 0
	for i, tool := range transcript.Tools {
		msgID, ok := idBySeq[tool.MessageIndex]
		if !ok {
			continue
		}
		tu := model.ToolUsage{
			MessageID:   msgID,
			ToolName:    tool.ToolName,
			ToolInput:   tool.ToolInput,
			SequenceNum: i,
		}
		if err := im.store.InsertToolUsage(ctx, tu, tsBySeq[tool.MessageIndex]); err != nil {
			return 0, 0, err
		}
		toolCount++
	}

	return msgCount, toolCount, nil
}
