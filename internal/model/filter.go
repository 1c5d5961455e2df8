package model

import "time"

// FilterMode controls how a filter's matches contribute to visibility.
type FilterMode string

const (
	FilterOff          FilterMode = "off"
	FilterExclude      FilterMode = "exclude"
	FilterInclude      FilterMode = "include"
	FilterIncludePlus1 FilterMode = "include_plus_1"
	FilterIncludePlus2 FilterMode = "include_plus_2"
)

// Valid reports whether m is one of the known modes.
func (m FilterMode) Valid() bool {
	switch m {
	case FilterOff, FilterExclude, FilterInclude, FilterIncludePlus1, FilterIncludePlus2:
		return true
	}
	return false
}

// IsInclude reports whether m is in the include family.
func (m FilterMode) IsInclude() bool {
	return m == FilterInclude || m == FilterIncludePlus1 || m == FilterIncludePlus2
}

// ExpandDepth returns the BFS expansion depth for include-family modes.
func (m FilterMode) ExpandDepth() int {
	switch m {
	case FilterIncludePlus1:
		return 1
	case FilterIncludePlus2:
		return 2
	}
	return 0
}

// Filter is a user-defined content filter. Matches are precomputed into
// filter result rows by a scorer (rule-based here, LLM-based upstream).
type Filter struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	QueryText string    `json:"query_text"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`

	// Aggregates populated by list queries.
	TotalScored int `json:"total_scored"`
	Matches     int `json:"matches"`
}

// FilterStatus reports scoring progress for one filter.
type FilterStatus struct {
	FilterID  int64  `json:"filter_id"`
	Name      string `json:"name"`
	QueryText string `json:"query_text"`
	IsActive  bool   `json:"is_active"`
	Total     int    `json:"total"`
	Scored    int    `json:"scored"`
	Pending   int    `json:"pending"`
	Matches   int    `json:"matches"`
}
