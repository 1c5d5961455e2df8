package ingest

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// ParsedMessage is one transcript message with its position in the
// conversation.
type ParsedMessage struct {
	Role                string
	Content             string
	Timestamp           time.Time
	Model               string
	InputTokens         *int64
	OutputTokens        *int64
	CacheReadTokens     *int64
	CacheCreationTokens *int64
	SequenceNum         int
}

// ParsedTool is one tool invocation, keyed to its message by
// MessageIndex (the message's SequenceNum).
type ParsedTool struct {
	ToolName     string
	ToolInput    string
	MessageIndex int
}

// Transcript holds the parsed contents of one session JSONL file.
type Transcript struct {
	Messages []ParsedMessage
	Tools    []ParsedTool
}

type transcriptEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type transcriptMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *usageBlock     `json:"usage"`
}

type usageBlock struct {
	InputTokens         *int64 `json:"input_tokens"`
	OutputTokens        *int64 `json:"output_tokens"`
	CacheReadTokens     *int64 `json:"cache_read_input_tokens"`
	CacheCreationTokens *int64 `json:"cache_creation_input_tokens"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ParseTranscript reads a session JSONL transcript. Malformed lines and
// entry types other than user/assistant are skipped. Messages that are
// only tool calls get a synthesized "[Used tools: ...]" content line so
// they still show up in the graph. A missing file yields an empty
// transcript, not an error.
func ParseTranscript(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Transcript{}, nil
		}
		return nil, err
	}
	defer f.Close()

	t := &Transcript{}
	seq := 0

	scanner := bufio.NewScanner(f)
	// Transcript lines with large tool inputs can exceed the default
	// 64K token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry transcriptEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}

		var msg transcriptMessage
		if err := json.Unmarshal(entry.Message, &msg); err != nil {
			continue
		}
		role := msg.Role
		if role == "" {
			role = entry.Type
		}

		content, msgTools := extractContent(msg.Content, seq)
		if content == "" && len(msgTools) == 0 {
			continue // pure thinking block
		}
		if content == "" {
			names := make([]string, len(msgTools))
			for i, mt := range msgTools {
				names[i] = mt.ToolName
			}
			content = "[Used tools: " + strings.Join(names, ", ") + "]"
		}

		pm := ParsedMessage{
			Role:        role,
			Content:     content,
			Timestamp:   parseISOTime(entry.Timestamp),
			Model:       msg.Model,
			SequenceNum: seq,
		}
		if msg.Usage != nil {
			pm.InputTokens = msg.Usage.InputTokens
			pm.OutputTokens = msg.Usage.OutputTokens
			pm.CacheReadTokens = msg.Usage.CacheReadTokens
			pm.CacheCreationTokens = msg.Usage.CacheCreationTokens
		}
		t.Messages = append(t.Messages, pm)
		t.Tools = append(t.Tools, msgTools...)
		seq++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// extractContent joins text blocks and collects tool_use blocks.
// Content may be a plain string or a list of typed blocks; thinking and
// tool_result blocks are dropped.
func extractContent(raw json.RawMessage, seq int) (string, []ParsedTool) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil
	}

	var parts []string
	var tools []ParsedTool
	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, b.Text)
		case "tool_use":
			input := "{}"
			if len(b.Input) > 0 {
				input = string(b.Input)
			}
			tools = append(tools, ParsedTool{
				ToolName:     b.Name,
				ToolInput:    input,
				MessageIndex: seq,
			})
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), tools
}
