// Package sqlite implements C2 (semantic store) and C3 (structured store)
// over an embedded modernc.org/sqlite database — a local-first, pure-Go
// replacement for the teacher's managed-cloud DynamoDB backend (see
// DESIGN.md for why DynamoDB itself was not kept) and for the original
// Python predecessor's ChromaDB/KùzuDB pair. The mutex-guarded *sql.DB
// idiom and JSON-metadata-blob shape are grounded on
// theRebelliousNerd-codenerd's internal/store/local_vector.go; the
// brute-force top-K cosine scan is grounded on
// dpama-dev-mcp-memory-system/memory_store.go's heap-based similarity
// search, since modernc.org/sqlite has no native vector index.
package sqlite

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/elefante-ai/elefante/domain/memory"
	"github.com/elefante-ai/elefante/infrastructure/embedding"
)

// SemanticRow is the persisted shape of one memory row: {memory_id →
// (vector, content, metadata)} per spec.md §2's Semantic store.
type SemanticRow struct {
	ID           string
	Content      string
	Vector       []float32
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KNNResult is one candidate returned by SemanticStore.KNN.
type KNNResult struct {
	ID         string
	Distance   float64 // 2 * (1 - similarity), the inverse of the Similarity mapping
	Similarity float64 // 1 - distance/2, clamped to [0,1] per spec.md §4.7
	Content    string
	Metadata   map[string]string
}

// SemanticStore is C2: the adapter serializes writes internally; readers
// proceed concurrently (spec.md §5's shared-resource policy).
type SemanticStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenSemanticStore opens (creating if absent) the sqlite-backed semantic
// store at path.
func OpenSemanticStore(path string) (*SemanticStore, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open semantic store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer file; the store's own mutex also guards callers

	s := &SemanticStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *SemanticStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	content_normalized TEXT NOT NULL,
	vector BLOB NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_content_normalized ON memories(content_normalized);
`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SemanticStore) Close() error { return s.db.Close() }

// Upsert writes or replaces a memory row.
func (s *SemanticStore) Upsert(ctx context.Context, row SemanticRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vecBytes, err := encodeVector(row.Vector)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(row.Metadata)
	if err != nil {
		return err
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
INSERT INTO memories (id, content, content_normalized, vector, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	content_normalized = excluded.content_normalized,
	vector = excluded.vector,
	metadata = excluded.metadata,
	updated_at = excluded.updated_at
`, row.ID, row.Content, memory.NormalizeContent(row.Content), vecBytes, string(metaJSON),
		row.CreatedAt.UTC().Format(time.RFC3339Nano), row.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// Get fetches a single row by id, or (zero, false, nil) if absent.
func (s *SemanticStore) Get(ctx context.Context, id string) (SemanticRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, vector, metadata, created_at, updated_at FROM memories WHERE id = ?`, id)
	return scanRow(row)
}

// FindByNormalizedContent implements the write coordinator's exact-
// duplicate check (§4.2 step 2): look up a row whose normalized content
// is byte-equal to the candidate's.
func (s *SemanticStore) FindByNormalizedContent(ctx context.Context, normalized string) (SemanticRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, vector, metadata, created_at, updated_at FROM memories WHERE content_normalized = ? LIMIT 1`,
		normalized)
	return scanRow(row)
}

func scanRow(row *sql.Row) (SemanticRow, bool, error) {
	var (
		id, content, metaJSON, createdAt, updatedAt string
		vecBytes                                    []byte
	)
	if err := row.Scan(&id, &content, &vecBytes, &metaJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return SemanticRow{}, false, nil
		}
		return SemanticRow{}, false, err
	}
	vec, err := decodeVector(vecBytes)
	if err != nil {
		return SemanticRow{}, false, err
	}
	meta := map[string]string{}
	_ = json.Unmarshal([]byte(metaJSON), &meta)
	created, _ := time.Parse(time.RFC3339Nano, createdAt)
	updated, _ := time.Parse(time.RFC3339Nano, updatedAt)
	return SemanticRow{
		ID: id, Content: content, Vector: vec, Metadata: meta,
		CreatedAt: created, UpdatedAt: updated,
	}, true, nil
}

// Delete removes a row by id.
func (s *SemanticStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	return err
}

// AllIDs returns every persisted memory's id alongside its metadata's
// domain field, for the reconciler's structured-mirror scan (spec.md §9).
func (s *SemanticStore) AllIDs(ctx context.Context) ([]IDDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, metadata FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IDDomain
	for rows.Next() {
		var id, metaJSON string
		if err := rows.Scan(&id, &metaJSON); err != nil {
			return nil, err
		}
		meta := map[string]string{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		out = append(out, IDDomain{ID: id, Domain: meta["domain"]})
	}
	return out, rows.Err()
}

// IDDomain is a lightweight projection of a semantic-store row, used by scans
// that don't need the full vector and content.
type IDDomain struct {
	ID     string
	Domain string
}

// All returns every persisted memory row in full, for the health analyzer's
// (C8) and proactive surfacer's (C9) whole-corpus scans — both need the
// full content/metadata, unlike the reconciler's lighter AllIDs.
func (s *SemanticStore) All(ctx context.Context) ([]SemanticRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, vector, metadata, created_at, updated_at FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SemanticRow
	for rows.Next() {
		var (
			id, content, metaJSON, createdAt, updatedAt string
			vecBytes                                    []byte
		)
		if err := rows.Scan(&id, &content, &vecBytes, &metaJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		vec, err := decodeVector(vecBytes)
		if err != nil {
			return nil, err
		}
		meta := map[string]string{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		created, _ := time.Parse(time.RFC3339Nano, createdAt)
		updated, _ := time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, SemanticRow{
			ID: id, Content: content, Vector: vec, Metadata: meta,
			CreatedAt: created, UpdatedAt: updated,
		})
	}
	return out, rows.Err()
}

// Count returns the number of persisted memories.
func (s *SemanticStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

// UpdateMetadata merges patch into the stored metadata for id — the
// retrieval engine's batched access-tracking write (§4.3 step 8) goes
// through here, at-least-once, duplicate-write tolerant.
func (s *SemanticStore) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM memories WHERE id = ?`, id).Scan(&metaJSON)
	if err != nil {
		return err
	}
	meta := map[string]string{}
	_ = json.Unmarshal([]byte(metaJSON), &meta)
	for k, v := range patch {
		meta[k] = v
	}
	updated, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE memories SET metadata = ?, updated_at = ? WHERE id = ?`,
		string(updated), time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// KNNFilter narrows a k-NN scan to rows whose metadata satisfies every
// key/value pair (e.g. domain, archived).
type KNNFilter map[string]string

// KNN performs a brute-force top-K cosine similarity scan using a
// min-heap, matching dpama-dev-mcp-memory-system's findSimilar shape.
func (s *SemanticStore) KNN(ctx context.Context, query []float32, k int, filter KNNFilter) ([]KNNResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, vector, metadata FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h := &scoredHeap{}
	heap.Init(h)

	for rows.Next() {
		var id, content, metaJSON string
		var vecBytes []byte
		if err := rows.Scan(&id, &content, &vecBytes, &metaJSON); err != nil {
			continue
		}
		meta := map[string]string{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		if !matchesFilter(meta, filter) {
			continue
		}
		vec, err := decodeVector(vecBytes)
		if err != nil {
			continue
		}
		sim := embedding.CosineSimilarity(query, vec)
		cand := &scoredCandidate{id: id, content: content, metadata: meta, similarity: sim}
		if h.Len() < k {
			heap.Push(h, cand)
		} else if sim > (*h)[0].similarity {
			heap.Pop(h)
			heap.Push(h, cand)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]KNNResult, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		c := heap.Pop(h).(*scoredCandidate)
		results[i] = KNNResult{
			ID: c.id, Content: c.content, Metadata: c.metadata,
			Similarity: c.similarity, Distance: distanceFromSimilarity(c.similarity),
		}
	}
	return results, nil
}

func matchesFilter(meta map[string]string, filter KNNFilter) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

// distanceFromSimilarity inverts spec.md §4.7's "similarity = 1 -
// distance/2" mapping so KNN always returns both fields consistently.
func distanceFromSimilarity(similarity float64) float64 {
	return (1 - similarity) * 2
}

type scoredCandidate struct {
	id         string
	content    string
	metadata   map[string]string
	similarity float64
}

type scoredHeap []*scoredCandidate

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].similarity < h[j].similarity }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(*scoredCandidate)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func encodeVector(v []float32) ([]byte, error) {
	return json.Marshal(v)
}

func decodeVector(b []byte) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

