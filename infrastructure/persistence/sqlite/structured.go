package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// EntityRow is the persisted shape of one structured-store node.
type EntityRow struct {
	ID          string
	Name        string
	NameNorm    string
	Type        string
	Description string
	Properties  map[string]string
	CreatedAt   time.Time
}

// EdgeRow is the persisted shape of one directed, typed relationship.
type EdgeRow struct {
	ID        string
	FromID    string
	ToID      string
	Type      string
	Strength  float64
	CreatedAt time.Time
}

// PatternRow is one row returned by RunPattern's join-based query shape.
type PatternRow map[string]string

// StructuredStore is C3: spec.md §5 treats it as single-writer per
// process — a write mutex inside the adapter guards UpsertEntity,
// UpsertEdge, and DeleteEntity; queries proceed concurrently with other
// queries but not with writes. Query shape is grounded on
// original_source/src/core/graph_store.py's Cypher-pattern queries,
// translated here to SQL joins (no Cypher engine is introduced).
type StructuredStore struct {
	mu sync.Mutex // guards writes only; reads use the db's own connection pool
	db *sql.DB
}

// OpenStructuredStore opens (creating if absent) the sqlite-backed
// structured store at path.
func OpenStructuredStore(path string) (*StructuredStore, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open structured store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &StructuredStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *StructuredStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	name_norm TEXT NOT NULL,
	type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	properties TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	UNIQUE(name_norm, type)
);
CREATE TABLE IF NOT EXISTS edges (
	id TEXT PRIMARY KEY,
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	type TEXT NOT NULL,
	strength REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
CREATE TABLE IF NOT EXISTS memory_nodes (
	id TEXT PRIMARY KEY,
	domain TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *StructuredStore) Close() error { return s.db.Close() }

// UpsertEntity implements spec.md §3's uniqueness invariant: a second write
// with the same (normalized name, type) pair returns the existing id
// rather than creating a duplicate. candidateID is the id the caller
// generated (domain/memory.NewEntityID) to use only if this turns out to
// be a genuinely new entity; an existing match wins over it.
func (s *StructuredStore) UpsertEntity(ctx context.Context, candidateID, name, nameNorm, entityType, description string, properties map[string]string) (id string, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE name_norm = ? AND type = ?`, nameNorm, entityType).Scan(&existingID)
	if err == nil {
		return existingID, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, err
	}

	if properties == nil {
		properties = map[string]string{}
	}
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return "", false, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, name_norm, type, description, properties, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		candidateID, name, nameNorm, entityType, description, string(propsJSON), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		// A concurrent insert may have won the race on the UNIQUE(name_norm, type)
		// index; re-fetch rather than surface a constraint error to the caller
		// (spec.md §7: "constraint violated" resolves internally, never surfaced).
		var raceID string
		if lookupErr := s.db.QueryRowContext(ctx,
			`SELECT id FROM entities WHERE name_norm = ? AND type = ?`, nameNorm, entityType).Scan(&raceID); lookupErr == nil {
			return raceID, false, nil
		}
		return "", false, err
	}
	return candidateID, true, nil
}

// GetEntity fetches a single entity by id.
func (s *StructuredStore) GetEntity(ctx context.Context, id string) (EntityRow, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, name_norm, type, description, properties, created_at FROM entities WHERE id = ?`, id)
	return scanEntity(row)
}

func scanEntity(row *sql.Row) (EntityRow, bool, error) {
	var (
		id, name, nameNorm, entityType, description, propsJSON, createdAt string
	)
	if err := row.Scan(&id, &name, &nameNorm, &entityType, &description, &propsJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return EntityRow{}, false, nil
		}
		return EntityRow{}, false, err
	}
	props := map[string]string{}
	_ = json.Unmarshal([]byte(propsJSON), &props)
	created, _ := time.Parse(time.RFC3339Nano, createdAt)
	return EntityRow{
		ID: id, Name: name, NameNorm: nameNorm, Type: entityType,
		Description: description, Properties: props, CreatedAt: created,
	}, true, nil
}

// DeleteEntity removes an entity and every edge touching it.
func (s *StructuredStore) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertEdge creates a new directed, typed relationship under the
// caller-supplied id (domain/memory.NewRelationshipID). Relationships are
// not deduplicated by spec.md — repeated calls create distinct edges.
func (s *StructuredStore) UpsertEdge(ctx context.Context, id, fromID, toID, relType string, strength float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (id, from_id, to_id, type, strength, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, fromID, toID, relType, strength, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// UpsertMemoryNode records the structured-store mirror of a semantic-store
// memory row, keyed by the same id, satisfying spec.md §3's invariant that
// every memory has a corresponding structured-store node.
func (s *StructuredStore) UpsertMemoryNode(ctx context.Context, id, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_nodes (id, domain, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET domain = excluded.domain`,
		id, domain, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// HasMemoryNode reports whether a structured-store mirror exists for id —
// used by the reconciler's idempotent re-upsert scan.
func (s *StructuredStore) HasMemoryNode(ctx context.Context, id string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM memory_nodes WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Neighbors returns every entity directly connected to id (either
// direction) up to depth hops, used by the retrieval engine's structured
// (C3) candidate gathering over concept-name matches.
func (s *StructuredStore) Neighbors(ctx context.Context, id string, depth int) ([]EntityRow, error) {
	if depth <= 0 {
		depth = 1
	}
	frontier := []string{id}
	visited := map[string]bool{id: true}
	var out []EntityRow

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		placeholders, args := inClause(frontier)
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT DISTINCT to_id FROM edges WHERE from_id IN (%s)
			 UNION
			 SELECT DISTINCT from_id FROM edges WHERE to_id IN (%s)`, placeholders, placeholders),
			append(append([]interface{}{}, args...), args...)...)
		if err != nil {
			return nil, err
		}
		var next []string
		for rows.Next() {
			var nid string
			if err := rows.Scan(&nid); err != nil {
				rows.Close()
				return nil, err
			}
			if !visited[nid] {
				visited[nid] = true
				next = append(next, nid)
			}
		}
		rows.Close()
		frontier = next
	}

	for nid := range visited {
		if nid == id {
			continue
		}
		row := s.db.QueryRowContext(ctx,
			`SELECT id, name, name_norm, type, description, properties, created_at FROM entities WHERE id = ?`, nid)
		entity, ok, err := scanEntity(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindEntitiesByNameSubstring implements the retrieval engine's concept-name
// neighborhood expansion (§4.3 step 2): entities whose normalized name
// contains any of the given concept labels.
func (s *StructuredStore) FindEntitiesByNameSubstring(ctx context.Context, concepts []string, limit int) ([]EntityRow, error) {
	if len(concepts) == 0 || limit <= 0 {
		return nil, nil
	}
	seen := map[string]bool{}
	var out []EntityRow
	for _, concept := range concepts {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, name, name_norm, type, description, properties, created_at FROM entities WHERE name_norm LIKE ? LIMIT ?`,
			"%"+concept+"%", limit)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, name, nameNorm, entityType, description, propsJSON, createdAt string
			if err := rows.Scan(&id, &name, &nameNorm, &entityType, &description, &propsJSON, &createdAt); err != nil {
				rows.Close()
				return nil, err
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			props := map[string]string{}
			_ = json.Unmarshal([]byte(propsJSON), &props)
			created, _ := time.Parse(time.RFC3339Nano, createdAt)
			out = append(out, EntityRow{ID: id, Name: name, NameNorm: nameNorm, Type: entityType, Description: description, Properties: props, CreatedAt: created})
		}
		rows.Close()
		if len(out) >= limit {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoriesRelatedTo returns the ids of memories whose RELATES_TO edges
// touch any of the given entity ids — the other half of neighborhood
// expansion: entity match -> back to candidate memories.
func (s *StructuredStore) MemoriesRelatedTo(ctx context.Context, entityIDs []string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(entityIDs)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT from_id FROM edges WHERE to_id IN (%s) AND type = 'RELATES_TO'`, placeholders),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ConnectionCount returns how many edges touch id, used by the health
// analyzer's orphan check (§4.5: connection_count == 0).
func (s *StructuredStore) ConnectionCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE from_id = ? OR to_id = ?`, id, id).Scan(&n)
	return n, err
}

// CountEntities returns the number of persisted entities, for the
// get_stats operation (spec.md §6.1).
func (s *StructuredStore) CountEntities(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n)
	return n, err
}

// CountRelationships returns the number of persisted edges, for get_stats.
func (s *StructuredStore) CountRelationships(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n)
	return n, err
}

// CountMemoryNodes returns the number of structured-store memory mirrors,
// for the get_stats schema-status check (spec.md §3's invariant that every
// memory has a corresponding structured-store node).
func (s *StructuredStore) CountMemoryNodes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_nodes`).Scan(&n)
	return n, err
}

// RunPattern executes a parameterized SQL join query against the
// entities/edges schema — the structured-store's general pattern-query
// surface (spec.md §6.1 query_graph). No Cypher engine is introduced
// (Non-goal: full graph query language); callers supply plain SQL against
// the entities/edges/memory_nodes tables.
func (s *StructuredStore) RunPattern(ctx context.Context, query string, params ...interface{}) ([]PatternRow, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []PatternRow
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(PatternRow, len(cols))
		for i, col := range cols {
			record[col] = fmt.Sprintf("%v", raw[i])
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func inClause(items []string) (string, []interface{}) {
	placeholders := ""
	args := make([]interface{}, len(items))
	for i, it := range items {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = it
	}
	return placeholders, args
}

