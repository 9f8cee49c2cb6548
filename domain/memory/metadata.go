package memory

import (
	"encoding/json"
	"strconv"
	"time"
)

// Metadata keys for the semantic store's flat string map. Source metadata
// in the teacher lineage is a loose dictionary with heterogeneous fields;
// per SPEC_FULL.md's dynamic-enrichment-metadata design note, the known
// keys are promoted into these fixed names and everything else rides in
// the "custom" escape hatch, serialized as one nested JSON value.
const (
	metaTitle        = "title"
	metaSummary      = "summary"
	metaConcepts     = "concepts"
	metaSurfacesWhen = "surfaces_when"
	metaLayer        = "layer"
	metaSublayer     = "sublayer"
	metaMemoryType   = "memory_type"
	metaDomain       = "domain"
	metaImportance   = "importance"
	metaAuthority    = "authority"
	metaTags         = "tags"
	metaEntities     = "entities"
	metaCreatedAt    = "created_at"
	metaLastAccessed = "last_accessed"
	metaAccessCount  = "access_count"
	metaSupersededBy = "superseded_by_id"
	metaConflicts    = "potential_conflicts"
	metaVersion      = "version"
	metaCustom       = "custom"
)

// ToMetadata flattens a Memory into the string-keyed map the semantic
// store persists alongside its vector and content. List-valued fields are
// always written as canonical JSON (spec.md §9's open question on schema
// direction: tolerate both JSON strings and native lists on read, write
// canonical JSON on update — this store's adapter only has a string map,
// so every write here is already canonical).
func (m *Memory) ToMetadata() map[string]string {
	entityIDs := make([]string, 0, len(m.entities))
	for _, e := range m.entities {
		entityIDs = append(entityIDs, e.String())
	}
	conflictIDs := make([]string, 0, len(m.potentialConflicts))
	for _, c := range m.potentialConflicts {
		conflictIDs = append(conflictIDs, c.String())
	}
	supersededBy := ""
	if m.supersededByID != nil {
		supersededBy = m.supersededByID.String()
	}

	meta := map[string]string{
		metaTitle:        m.title,
		metaSummary:      m.summary,
		metaConcepts:     mustJSON(m.concepts),
		metaSurfacesWhen: mustJSON(m.surfacesWhen),
		metaLayer:        string(m.layer),
		metaSublayer:     string(m.sublayer),
		metaMemoryType:   string(m.memoryType),
		metaDomain:       m.domain,
		metaImportance:   strconv.Itoa(m.importance),
		metaAuthority:    strconv.FormatFloat(m.authority, 'f', -1, 64),
		metaTags:         mustJSON(m.tags),
		metaEntities:     mustJSON(entityIDs),
		metaCreatedAt:    m.createdAt.UTC().Format(time.RFC3339Nano),
		metaLastAccessed: m.lastAccessed.UTC().Format(time.RFC3339Nano),
		metaAccessCount:  strconv.Itoa(m.accessCount),
		metaSupersededBy: supersededBy,
		metaConflicts:    mustJSON(conflictIDs),
		metaVersion:      strconv.Itoa(m.version),
	}
	if len(m.custom) > 0 {
		meta[metaCustom] = mustJSON(m.custom)
	}
	return meta
}

// FromMetadata reconstructs a Memory from a persisted semantic-store row.
// It re-canonicalizes list fields on every read (parsing JSON when present,
// tolerating a bare comma-joined string written by an older schema
// direction) so the domain model survives schema drift.
func FromMetadata(id MemoryID, content string, meta map[string]string) (*Memory, error) {
	importance, _ := strconv.Atoi(meta[metaImportance])
	authority, _ := strconv.ParseFloat(meta[metaAuthority], 64)
	accessCount, _ := strconv.Atoi(meta[metaAccessCount])
	version, _ := strconv.Atoi(meta[metaVersion])
	if version == 0 {
		version = 1
	}

	createdAt := parseTimeOrZero(meta[metaCreatedAt])
	lastAccessed := parseTimeOrZero(meta[metaLastAccessed])
	if lastAccessed.IsZero() {
		lastAccessed = createdAt
	}

	var supersededByID *MemoryID
	if raw := meta[metaSupersededBy]; raw != "" {
		parsed, err := NewMemoryIDFromString(raw)
		if err == nil {
			supersededByID = &parsed
		}
	}

	entityIDs := parseStringList(meta[metaEntities])
	entities := make([]EntityID, 0, len(entityIDs))
	for _, raw := range entityIDs {
		if parsed, err := NewEntityIDFromString(raw); err == nil {
			entities = append(entities, parsed)
		}
	}

	conflictIDStrs := parseStringList(meta[metaConflicts])
	conflicts := make([]MemoryID, 0, len(conflictIDStrs))
	for _, raw := range conflictIDStrs {
		if parsed, err := NewMemoryIDFromString(raw); err == nil {
			conflicts = append(conflicts, parsed)
		}
	}

	custom := map[string]string{}
	if raw := meta[metaCustom]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &custom)
	}

	m := ReconstructMemory(
		id, content,
		meta[metaTitle], meta[metaSummary],
		parseStringList(meta[metaConcepts]), parseStringList(meta[metaSurfacesWhen]),
		Layer(meta[metaLayer]), Sublayer(meta[metaSublayer]), Type(meta[metaMemoryType]),
		meta[metaDomain], importance, authority,
		parseStringList(meta[metaTags]), entities, custom,
		createdAt, lastAccessed, accessCount,
		supersededByID, conflicts,
		version,
	)
	return m, nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// parseStringList tolerates both a canonical JSON array (the only form
// this store ever writes) and a legacy comma-joined string, per spec.md
// §9's open question about a prior schema that wrote native lists in one
// store and JSON strings in another.
func parseStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return splitNonEmpty(raw, ",")
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + len(sep)
		}
	}
	if part := s[start:]; part != "" {
		out = append(out, part)
	}
	return out
}

func parseTimeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
