package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// EmbeddingRow pairs a message id with its stored vector.
type EmbeddingRow struct {
	MessageID int64
	Vector    []float32
}

// EmbeddingStats reports embedding coverage.
type EmbeddingStats struct {
	Total      int    `json:"total"`
	Embedded   int    `json:"embedded"`
	Unembedded int    `json:"unembedded"`
	Model      string `json:"model,omitempty"`
}

// UnembeddedMessage is a message with content but no stored vector.
type UnembeddedMessage struct {
	ID      int64
	Content string
}

// SaveEmbeddings stores vectors as little-endian float32 blobs,
// replacing any previous vector for the same message.
func (s *SQLiteStore) SaveEmbeddings(ctx context.Context, rows []EmbeddingRow, model string, dims int) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO message_embeddings (message_id, model, dimensions, embedding)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare embeddings: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.MessageID, model, dims, encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("save embedding %d: %w", r.MessageID, err)
		}
	}

	return tx.Commit()
}

// AllEmbeddings returns every stored vector ordered by message id.
func (s *SQLiteStore) AllEmbeddings(ctx context.Context) ([]EmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, dimensions, embedding
		 FROM message_embeddings
		 ORDER BY message_id`)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		var dims int
		var blob []byte
		if err := rows.Scan(&r.MessageID, &dims, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", r.MessageID, err)
		}
		r.Vector = vec
		out = append(out, r)
	}
	return out, rows.Err()
}

// UnembeddedMessages returns up to limit messages with non-empty
// content and no stored vector, newest first.
func (s *SQLiteStore) UnembeddedMessages(ctx context.Context, limit int) ([]UnembeddedMessage, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content
		FROM messages m
		WHERE NOT EXISTS (
		    SELECT 1 FROM message_embeddings me WHERE me.message_id = m.id
		)
		AND m.content IS NOT NULL
		AND LENGTH(m.content) > 0
		ORDER BY m.timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unembedded messages: %w", err)
	}
	return collectUnembedded(rows)
}

// UnembeddedFromIDs restricts the unembedded scan to a caller-supplied
// id set. Reads are paged at matchBatchSize ids per round-trip.
func (s *SQLiteStore) UnembeddedFromIDs(ctx context.Context, ids []int64, limit int) ([]UnembeddedMessage, error) {
	if limit <= 0 {
		limit = 50000
	}
	var out []UnembeddedMessage
	err := inBatches(ids, matchBatchSize, func(batch []int64) error {
		if len(out) >= limit {
			return nil
		}
		query := fmt.Sprintf(`
			SELECT m.id, m.content
			FROM messages m
			WHERE m.id IN (%s)
			AND NOT EXISTS (
			    SELECT 1 FROM message_embeddings me WHERE me.message_id = m.id
			)
			AND m.content IS NOT NULL
			AND LENGTH(m.content) > 0
			LIMIT ?`, placeholders(len(batch)))
		args := append(int64Args(batch), limit-len(out))
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("unembedded from ids: %w", err)
		}
		batch2, err := collectUnembedded(rows)
		if err != nil {
			return err
		}
		out = append(out, batch2...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbeddingStats reports embedding coverage across all messages.
func (s *SQLiteStore) EmbeddingStats(ctx context.Context) (*EmbeddingStats, error) {
	var st EmbeddingStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM messages),
		    (SELECT COUNT(*) FROM message_embeddings)`).
		Scan(&st.Total, &st.Embedded)
	if err != nil {
		return nil, fmt.Errorf("embedding stats: %w", err)
	}
	st.Unembedded = st.Total - st.Embedded

	var mdl sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT model FROM message_embeddings LIMIT 1`).Scan(&mdl)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	st.Model = mdl.String
	return &st, nil
}

func collectUnembedded(rows *sql.Rows) ([]UnembeddedMessage, error) {
	defer rows.Close()
	var out []UnembeddedMessage
	for rows.Next() {
		var m UnembeddedMessage
		var content sql.NullString
		if err := rows.Scan(&m.ID, &content); err != nil {
			return nil, err
		}
		m.Content = content.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("blob length %d does not match %d dimensions", len(blob), dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
