// Package model defines the core dashboard data types.
package model

import "time"

// Session represents one recorded conversation transcript.
type Session struct {
	SessionID      string     `json:"session_id"`
	CWD            string     `json:"cwd"`
	Project        string     `json:"project,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Source         string     `json:"source,omitempty"`
	TranscriptPath string     `json:"transcript_path,omitempty"`

	// Aggregates populated by list queries.
	TotalMessages     int     `json:"total_messages"`
	UserMessages      int     `json:"user_messages"`
	AssistantMessages int     `json:"assistant_messages"`
	DurationMins      float64 `json:"duration_mins"`
	IsActive          bool    `json:"is_active"`
}

// Message is a single transcript message. Identity is the SQLite rowid;
// (SessionID, SequenceNum) is unique per session.
type Message struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	SequenceNum int       `json:"sequence_num"`
	Timestamp   time.Time `json:"timestamp"`
	Model       string    `json:"model,omitempty"`

	InputTokens         *int64 `json:"input_tokens,omitempty"`
	OutputTokens        *int64 `json:"output_tokens,omitempty"`
	CacheReadTokens     *int64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens *int64 `json:"cache_creation_tokens,omitempty"`
}

// ToolUsage records one tool invocation inside a message.
type ToolUsage struct {
	ID          int64  `json:"id"`
	MessageID   int64  `json:"message_id"`
	ToolName    string `json:"tool_name"`
	ToolInput   string `json:"tool_input,omitempty"`
	SequenceNum int    `json:"sequence_num"`
}

// OverviewMetrics holds the high-level counters for a time window.
type OverviewMetrics struct {
	SessionCount      int `json:"session_count"`
	MessageCount      int `json:"message_count"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	ToolCount         int `json:"tool_count"`
}

// ToolStat is an aggregated tool usage count.
type ToolStat struct {
	ToolName string `json:"tool_name"`
	Count    int    `json:"count"`
}
