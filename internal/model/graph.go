package model

import "time"

// StructuralRow is the (id, session, sequence) tuple used to derive
// structural edges. Rows are always ordered by (session_id, sequence_num).
type StructuralRow struct {
	ID          int64
	SessionID   string
	SequenceNum int
}

// VisibleSet is the result of a visibility computation. A nil
// VisibleMessageIDs means no filtering was applied, which is distinct
// from an empty slice (every node filtered out); JSON preserves the
// distinction as null vs [].
type VisibleSet struct {
	VisibleMessageIDs []int64 `json:"visible_message_ids"`
	TotalNodes        int     `json:"total_nodes"`
	VisibleCount      int     `json:"visible_count"`
}

// ProximityEdge links two nodes whose relevance scores are within delta
// of each other. Undirected; Source < Target by id.
type ProximityEdge struct {
	Source   int64   `json:"source"`
	Target   int64   `json:"target"`
	Strength float64 `json:"strength"`
}

// ProximityResult is the full proximity-edge response for one query.
type ProximityResult struct {
	Edges  []ProximityEdge   `json:"edges"`
	Scores map[int64]float64 `json:"scores"`
	Count  int               `json:"count"`
}

// GraphNode is a message node shaped for the rendering layer.
type GraphNode struct {
	ID             int64     `json:"id"`
	Role           string    `json:"role"`
	ContentPreview string    `json:"content_preview"`
	FullContent    string    `json:"full_content"`
	SessionID      string    `json:"session_id"`
	SessionShort   string    `json:"session_short"`
	Project        string    `json:"project,omitempty"`
	Timestamp      time.Time `json:"timestamp"`

	OutputTokens        *int64 `json:"output_tokens,omitempty"`
	InputTokens         *int64 `json:"input_tokens,omitempty"`
	CacheReadTokens     *int64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens *int64 `json:"cache_creation_tokens,omitempty"`

	FilterMatches []int64 `json:"semantic_filter_matches"`
}

// GraphLink is a structural edge between consecutive messages of one
// session, shaped for the rendering layer.
type GraphLink struct {
	Source    int64     `json:"source"`
	Target    int64     `json:"target"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}
