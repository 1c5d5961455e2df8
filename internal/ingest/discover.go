// Package ingest imports Claude Code transcripts into the store.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SessionInfo describes one discovered session before import.
type SessionInfo struct {
	SessionID      string
	ProjectPath    string
	Created        time.Time
	Modified       time.Time
	TranscriptPath string
}

type indexFile struct {
	OriginalPath string       `json:"originalPath"`
	Entries      []indexEntry `json:"entries"`
}

type indexEntry struct {
	SessionID   string `json:"sessionId"`
	Created     string `json:"created"`
	Modified    string `json:"modified"`
	ProjectPath string `json:"projectPath"`
	FullPath    string `json:"fullPath"`
}

var sinceRe = regexp.MustCompile(`^(\d+)([dhm])$`)

// ParseSince converts a duration shorthand like "7d", "24h" or "30m"
// into a cutoff time relative to now.
func ParseSince(s string) (time.Time, error) {
	m := sinceRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid since format %q: use e.g. 7d, 24h, 30m", s)
	}
	n, _ := strconv.Atoi(m[1])
	var d time.Duration
	switch m[2] {
	case "d":
		d = time.Duration(n) * 24 * time.Hour
	case "h":
		d = time.Duration(n) * time.Hour
	case "m":
		d = time.Duration(n) * time.Minute
	}
	return time.Now().UTC().Add(-d), nil
}

// DiscoverSessions walks <claudeDir>/projects and returns every session
// found in sessions-index.json files plus any *.jsonl transcripts the
// indexes missed. A zero since imports everything.
func DiscoverSessions(claudeDir string, since time.Time) ([]SessionInfo, error) {
	projectsDir := filepath.Join(claudeDir, "projects")
	dirs, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var sessions []SessionInfo
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, d.Name())
		indexed := make(map[string]struct{})

		var idx indexFile
		if data, err := os.ReadFile(filepath.Join(projectDir, "sessions-index.json")); err == nil {
			// A corrupt index is ignored; the JSONL scan below still
			// finds its sessions.
			_ = json.Unmarshal(data, &idx)
		}

		projectPath := idx.OriginalPath
		if projectPath == "" {
			projectPath = decodeProjectDir(d.Name())
		}

		for _, e := range idx.Entries {
			if e.SessionID == "" {
				continue
			}
			created := parseISOTime(e.Created)
			if !since.IsZero() && !created.IsZero() && created.Before(since) {
				continue
			}
			indexed[e.SessionID] = struct{}{}

			path := e.ProjectPath
			if path == "" {
				path = projectPath
			}
			transcript := e.FullPath
			if transcript == "" {
				transcript = filepath.Join(projectDir, e.SessionID+".jsonl")
			}
			sessions = append(sessions, SessionInfo{
				SessionID:      e.SessionID,
				ProjectPath:    path,
				Created:        created,
				Modified:       parseISOTime(e.Modified),
				TranscriptPath: transcript,
			})
		}

		entries, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, f := range entries {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			sessionID := strings.TrimSuffix(name, ".jsonl")
			if _, ok := indexed[sessionID]; ok {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			mtime := info.ModTime().UTC()
			if !since.IsZero() && mtime.Before(since) {
				continue
			}
			sessions = append(sessions, SessionInfo{
				SessionID:      sessionID,
				ProjectPath:    projectPath,
				Created:        mtime,
				Modified:       mtime,
				TranscriptPath: filepath.Join(projectDir, name),
			})
		}
	}
	return sessions, nil
}

// decodeProjectDir recovers a working-directory path from a project
// directory name. Names use '-' as the path separator, but real
// directories may themselves contain hyphens, so segments are resolved
// greedily left to right against the filesystem.
func decodeProjectDir(name string) string {
	parts := strings.Split(strings.TrimLeft(name, "-"), "-")
	built := "/"
	i := 0
	for i < len(parts) {
		matched := false
		for j := len(parts); j > i; j-- {
			candidate := filepath.Join(built, strings.Join(parts[i:j], "-"))
			if _, err := os.Stat(candidate); err == nil {
				built = candidate
				i = j
				matched = true
				break
			}
		}
		if !matched {
			built = filepath.Join(built, strings.Join(parts[i:], "-"))
			break
		}
	}
	if built == "/" {
		return ""
	}
	return built
}

func parseISOTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
