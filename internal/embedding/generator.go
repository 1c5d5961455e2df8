package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/314clay/claude-dashboard/internal/store"
)

// maxTextLen truncates long message content before embedding to stay
// under provider token limits.
const maxTextLen = 8000

// GenerateParams controls a batch embedding run.
type GenerateParams struct {
	// BatchSize is the number of texts per provider call.
	BatchSize int
	// MaxMessages bounds the messages processed in one run.
	MaxMessages int
	// MessageIDs, when set, restricts the run to those messages
	// (only unembedded ones are processed).
	MessageIDs []int64
}

// GenerateResult summarizes a batch embedding run.
type GenerateResult struct {
	Generated  int      `json:"generated"`
	Model      string   `json:"model,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// EmbeddingStore is the persistence surface the generator needs.
type EmbeddingStore interface {
	UnembeddedMessages(ctx context.Context, limit int) ([]store.UnembeddedMessage, error)
	UnembeddedFromIDs(ctx context.Context, ids []int64, limit int) ([]store.UnembeddedMessage, error)
	SaveEmbeddings(ctx context.Context, rows []store.EmbeddingRow, model string, dims int) error
}

// Generator embeds unembedded messages in batches and keeps the
// scorer's matrix cache coherent with the store.
type Generator struct {
	store    EmbeddingStore
	embedder Embedder
	scorer   *Scorer
	logger   *zap.Logger
}

// NewGenerator creates a generator. scorer may be nil when no scorer
// cache needs invalidation (e.g. one-shot CLI runs).
func NewGenerator(st EmbeddingStore, embedder Embedder, scorer *Scorer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: st, embedder: embedder, scorer: scorer, logger: logger}
}

// Generate embeds pending messages. Individual batch failures are
// recorded and skipped; the run continues with the next batch.
func (g *Generator) Generate(ctx context.Context, p GenerateParams) (*GenerateResult, error) {
	if g.embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxMessages := p.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 1000
	}

	var pending []store.UnembeddedMessage
	var err error
	if p.MessageIDs != nil {
		pending, err = g.store.UnembeddedFromIDs(ctx, p.MessageIDs, maxMessages)
	} else {
		pending, err = g.store.UnembeddedMessages(ctx, maxMessages)
	}
	if err != nil {
		return nil, fmt.Errorf("load unembedded messages: %w", err)
	}

	result := &GenerateResult{Model: g.embedder.Model()}
	if len(pending) == 0 {
		return result, nil
	}

	invalidate := false
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, m := range batch {
			content := m.Content
			if len(content) > maxTextLen {
				content = content[:maxTextLen]
			}
			texts[i] = content
		}

		vectors, err := g.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			g.logger.Warn("embedding batch failed",
				zap.Int("batch", start/batchSize),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", start/batchSize, err))
			continue
		}
		if len(vectors) == 0 {
			continue
		}

		dims := len(vectors[0])
		rows := make([]store.EmbeddingRow, len(batch))
		for i := range batch {
			rows[i] = store.EmbeddingRow{MessageID: batch[i].ID, Vector: vectors[i]}
		}
		if err := g.store.SaveEmbeddings(ctx, rows, g.embedder.Model(), dims); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", start/batchSize, err))
			continue
		}

		result.Generated += len(rows)
		result.Dimensions = dims
		invalidate = true
	}

	if invalidate && g.scorer != nil {
		g.scorer.Invalidate()
	}

	return result, nil
}
