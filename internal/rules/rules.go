// Package rules scores filters against messages with pure rules, no
// LLM calls.
//
// Supported query_text patterns:
//
//	role:user       matches messages where role == "user"
//	role:assistant  matches messages where role == "assistant"
//	has_tools       matches messages with at least one tool usage
//	tool:<name>     matches messages that used a specific tool
//	long            matches messages with content > 500 chars
//	short           matches messages with content < 100 chars
//
// Anything else matches nothing.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/314clay/claude-dashboard/internal/store"
)

const (
	longThreshold  = 500
	shortThreshold = 100
)

// Store is the persistence surface the scorer needs.
type Store interface {
	UnscoredMessages(ctx context.Context, filterID int64) ([]store.UnscoredMessage, error)
	ToolMessageIDs(ctx context.Context, messageIDs []int64, toolName string) (map[int64]struct{}, error)
	InsertFilterResults(ctx context.Context, filterID int64, results []store.FilterResult, confidence float64) error
}

// Result summarizes one scoring run.
type Result struct {
	FilterID int64 `json:"filter_id"`
	Scored   int   `json:"scored"`
	Matches  int   `json:"matches"`
}

// Score evaluates queryText against every message not yet scored for
// the filter and persists the outcomes with confidence 1.0.
func Score(ctx context.Context, st Store, filterID int64, queryText string) (*Result, error) {
	query := strings.TrimSpace(queryText)
	queryLower := strings.ToLower(query)

	unscored, err := st.UnscoredMessages(ctx, filterID)
	if err != nil {
		return nil, fmt.Errorf("load unscored: %w", err)
	}
	if len(unscored) == 0 {
		return &Result{FilterID: filterID}, nil
	}

	// Tool rules need the tool usage rows up front.
	var toolIDs map[int64]struct{}
	if queryLower == "has_tools" || strings.HasPrefix(queryLower, "tool:") {
		ids := make([]int64, len(unscored))
		for i, m := range unscored {
			ids[i] = m.ID
		}
		toolName := ""
		if strings.HasPrefix(queryLower, "tool:") {
			// Preserve the original case of the tool name.
			toolName = query[len("tool:"):]
		}
		toolIDs, err = st.ToolMessageIDs(ctx, ids, toolName)
		if err != nil {
			return nil, fmt.Errorf("load tool usages: %w", err)
		}
	}

	results := make([]store.FilterResult, 0, len(unscored))
	matches := 0
	for _, m := range unscored {
		matched := evaluate(queryLower, m, toolIDs)
		if matched {
			matches++
		}
		results = append(results, store.FilterResult{MessageID: m.ID, Matched: matched})
	}

	if err := st.InsertFilterResults(ctx, filterID, results, 1.0); err != nil {
		return nil, fmt.Errorf("persist results: %w", err)
	}

	return &Result{FilterID: filterID, Scored: len(results), Matches: matches}, nil
}

func evaluate(queryLower string, m store.UnscoredMessage, toolIDs map[int64]struct{}) bool {
	switch {
	case queryLower == "role:user":
		return m.Role == "user"
	case queryLower == "role:assistant":
		return m.Role == "assistant"
	case queryLower == "has_tools" || strings.HasPrefix(queryLower, "tool:"):
		_, ok := toolIDs[m.ID]
		return ok
	case queryLower == "long":
		return m.ContentLen > longThreshold
	case queryLower == "short":
		return m.ContentLen < shortThreshold
	}
	return false
}
