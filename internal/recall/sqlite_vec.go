package recall

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"
)

// SQLiteVecStore implements VectorStore on sqlite. Embeddings are stored
// as BLOBs (little-endian float32 arrays); cosine similarity is computed
// in Go — at the corpus sizes a single deployment carries this is
// sub-millisecond.
type SQLiteVecStore struct {
	db        *sql.DB
	dimension int
}

const vecSchema = `
CREATE TABLE IF NOT EXISTS recall_chunks (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding BLOB,
	source TEXT NOT NULL DEFAULT 'call',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens (and migrates) a sqlite-backed vector store.
func Open(path string, dimension int) (*SQLiteVecStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open recall db: %w", err)
	}
	if _, err := db.Exec(vecSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply recall schema: %w", err)
	}
	return &SQLiteVecStore{db: db, dimension: dimension}, nil
}

// NewSQLiteVecStore wraps an existing database connection.
func NewSQLiteVecStore(db *sql.DB, dimension int) *SQLiteVecStore {
	return &SQLiteVecStore{db: db, dimension: dimension}
}

// Close closes the underlying connection.
func (s *SQLiteVecStore) Close() error { return s.db.Close() }

// EnsureCollection creates the table when it is missing.
func (s *SQLiteVecStore) EnsureCollection(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, vecSchema)
	return err
}

// Upsert stores or updates a chunk with its embedding.
func (s *SQLiteVecStore) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	content, _ := payload["content"].(string)
	source, _ := payload["source"].(string)
	if source == "" {
		source = "call"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recall_chunks (id, content, embedding, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			source = excluded.source`,
		id, content, encodeFloat32s(vector), source)
	return err
}

// Search finds the top-k most similar chunks by cosine similarity.
func (s *SQLiteVecStore) Search(ctx context.Context, vector []float32, limit int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, embedding, source
		FROM recall_chunks
		WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Result
	for rows.Next() {
		var id, content, source string
		var blob []byte
		if err := rows.Scan(&id, &content, &blob, &source); err != nil {
			continue
		}
		stored := decodeFloat32s(blob)
		if len(stored) != len(vector) {
			continue // dimension mismatch, skip
		}
		candidates = append(candidates, Result{
			ID:    id,
			Score: cosineSimilarity(vector, stored),
			Payload: map[string]any{
				"content": content,
				"source":  source,
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, rows.Err()
}

// encodeFloat32s converts a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s converts little-endian bytes back to a float32 slice.
func decodeFloat32s(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
