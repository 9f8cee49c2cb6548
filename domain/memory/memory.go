package memory

import (
	"math"
	"time"

	"github.com/elefante-ai/elefante/domain/events"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

// Layer classifies which part of the user's world a memory describes.
type Layer string

const (
	LayerSelf   Layer = "self"
	LayerWorld  Layer = "world"
	LayerIntent Layer = "intent"
)

// Sublayer refines Layer.
type Sublayer string

const (
	SublayerIdentity    Sublayer = "identity"
	SublayerPreference  Sublayer = "preference"
	SublayerConstraint  Sublayer = "constraint"
	SublayerFact        Sublayer = "fact"
	SublayerFailure     Sublayer = "failure"
	SublayerMethod      Sublayer = "method"
	SublayerRule        Sublayer = "rule"
	SublayerGoal        Sublayer = "goal"
	SublayerAntiPattern Sublayer = "anti-pattern"
)

// Type is the memory's surface kind, independent of Layer/Sublayer.
type Type string

const (
	TypeFact       Type = "fact"
	TypeRule       Type = "rule"
	TypePreference Type = "preference"
	TypeDecision   Type = "decision"
)

// HealthStatus is the per-memory status computed by the health analyzer (C8).
// Priority order when more than one condition holds: AtRisk > Stale > Orphan > Healthy.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthStale   HealthStatus = "stale"
	HealthAtRisk  HealthStatus = "at_risk"
	HealthOrphan  HealthStatus = "orphan"
)

// Classification is the outcome of an add_memory call when the content is
// not genuinely new.
type Classification string

const (
	ClassificationNew           Classification = "NEW"
	ClassificationRedundant     Classification = "REDUNDANT"
	ClassificationContradictory Classification = "CONTRADICTORY"
)

// Memory is the central entity of the core: a stored unit of text plus the
// metadata the curator (C4) attaches at ingestion. Every mutation after
// construction passes through the write coordinator (C5) or, for access
// tracking, the retrieval engine's batched update — never directly.
type Memory struct {
	id      MemoryID
	content string

	title        string
	summary      string
	concepts     []string
	surfacesWhen []string
	layer        Layer
	sublayer     Sublayer
	memoryType   Type
	domain       string
	importance   int
	authority    float64

	tags     []string
	entities []EntityID
	custom   map[string]string

	createdAt        time.Time
	lastAccessed     time.Time
	accessCount      int
	supersededByID   *MemoryID
	potentialConflicts []MemoryID

	version int
	events  []events.DomainEvent
}

// NewMemory constructs a brand-new memory shell prior to curation. The
// write coordinator fills in the curated fields via Curate before the first
// persist.
func NewMemory(content string) (*Memory, error) {
	if content == "" {
		return nil, elefanteerr.NewValidation("memory content cannot be empty")
	}
	if len(content) > 10_000 {
		return nil, elefanteerr.NewValidationf("memory content too long: %d chars (max 10000)", len(content))
	}

	m := &Memory{
		id:          NewMemoryID(),
		content:     content,
		domain:      "general",
		importance:  1,
		createdAt:   time.Now(),
		custom:      make(map[string]string),
		version:     1,
	}
	m.lastAccessed = m.createdAt
	m.addEvent(events.NewMemoryIngested(m.id.String(), m.domain))
	return m, nil
}

// ReconstructMemory rebuilds a Memory from persisted fields without raising
// domain events — used when loading from the semantic store.
func ReconstructMemory(
	id MemoryID,
	content, title, summary string,
	concepts, surfacesWhen []string,
	layer Layer, sublayer Sublayer, memoryType Type,
	domain string, importance int, authority float64,
	tags []string, entities []EntityID, custom map[string]string,
	createdAt, lastAccessed time.Time, accessCount int,
	supersededByID *MemoryID, potentialConflicts []MemoryID,
	version int,
) *Memory {
	if custom == nil {
		custom = make(map[string]string)
	}
	return &Memory{
		id: id, content: content, title: title, summary: summary,
		concepts: concepts, surfacesWhen: surfacesWhen,
		layer: layer, sublayer: sublayer, memoryType: memoryType,
		domain: domain, importance: importance, authority: authority,
		tags: tags, entities: entities, custom: custom,
		createdAt: createdAt, lastAccessed: lastAccessed, accessCount: accessCount,
		supersededByID: supersededByID, potentialConflicts: potentialConflicts,
		version: version,
	}
}

func (m *Memory) ID() MemoryID      { return m.id }
func (m *Memory) Content() string   { return m.content }
func (m *Memory) Title() string     { return m.title }
func (m *Memory) Summary() string   { return m.summary }
func (m *Memory) Concepts() []string { return append([]string(nil), m.concepts...) }
func (m *Memory) SurfacesWhen() []string { return append([]string(nil), m.surfacesWhen...) }
func (m *Memory) Layer() Layer       { return m.layer }
func (m *Memory) Sublayer() Sublayer { return m.sublayer }
func (m *Memory) MemoryType() Type   { return m.memoryType }
func (m *Memory) Domain() string     { return m.domain }
func (m *Memory) Importance() int    { return m.importance }
func (m *Memory) Authority() float64 { return m.authority }
func (m *Memory) Tags() []string     { return append([]string(nil), m.tags...) }
func (m *Memory) Entities() []EntityID { return append([]EntityID(nil), m.entities...) }
func (m *Memory) CreatedAt() time.Time     { return m.createdAt }
func (m *Memory) LastAccessed() time.Time  { return m.lastAccessed }
func (m *Memory) AccessCount() int         { return m.accessCount }
func (m *Memory) SupersededByID() *MemoryID { return m.supersededByID }
func (m *Memory) PotentialConflicts() []MemoryID {
	return append([]MemoryID(nil), m.potentialConflicts...)
}
func (m *Memory) Version() int { return m.version }

func (m *Memory) CustomValue(key string) (string, bool) {
	v, ok := m.custom[key]
	return v, ok
}

func (m *Memory) SetCustomValue(key, value string) {
	m.custom[key] = value
}

// Curate applies the curator's (C4) deterministic enrichment. It is called
// exactly once, during add_memory, before the first persist.
func (m *Memory) Curate(
	title, summary string,
	concepts, surfacesWhen []string,
	layer Layer, sublayer Sublayer, memoryType Type,
	domain string, importance int, authority float64,
) error {
	if importance < 1 || importance > 10 {
		return elefanteerr.NewInternalInvariant("importance outside [1,10]")
	}
	if authority < 0 || authority > 1 {
		return elefanteerr.NewInternalInvariant("authority_score outside [0,1]")
	}
	m.title = title
	m.summary = summary
	m.concepts = concepts
	m.surfacesWhen = surfacesWhen
	m.layer = layer
	m.sublayer = sublayer
	m.memoryType = memoryType
	if domain != "" {
		m.domain = domain
	}
	m.importance = importance
	m.authority = authority
	return nil
}

// AttachTags merges additional tags supplied at ingestion.
func (m *Memory) AttachTags(tags []string) {
	seen := make(map[string]bool, len(m.tags))
	for _, t := range m.tags {
		seen[t] = true
	}
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		m.tags = append(m.tags, t)
	}
}

// AttachEntities records which structured-store entities this memory
// RELATES_TO, as discovered by the write coordinator's entity upsert step.
func (m *Memory) AttachEntities(ids []EntityID) {
	m.entities = append(m.entities, ids...)
}

// RecordAccess increments the access counter and bumps last_accessed on the
// in-memory aggregate. The retrieval engine's access-tracking step (§4.3
// step 8) does not call it; it patches the stored metadata directly.
// It never raises a domain event: access tracking is explicitly excepted
// from the "mutated only by the write coordinator" rule.
func (m *Memory) RecordAccess(at time.Time) {
	m.accessCount++
	m.lastAccessed = at
}

// MarkSuperseded records that another memory replaces this one.
func (m *Memory) MarkSuperseded(by MemoryID) {
	m.supersededByID = &by
	m.version++
	m.addEvent(events.NewMemorySuperseded(m.id.String(), by.String()))
}

// FlagConflict appends a pairwise conflict if not already present.
func (m *Memory) FlagConflict(other MemoryID) {
	for _, c := range m.potentialConflicts {
		if c.Equals(other) {
			return
		}
	}
	m.potentialConflicts = append(m.potentialConflicts, other)
	m.version++
}

// Archive transitions the memory out of default search results. Archival is
// a metadata transition, never a row removal.
func (m *Memory) Archive() {
	m.SetCustomValue("archived", "true")
	m.version++
	m.addEvent(events.NewMemoryArchived(m.id.String()))
}

func (m *Memory) IsArchived() bool {
	v, _ := m.CustomValue("archived")
	return v == "true"
}

// DaysSince returns the (fractional) number of days between t and now,
// clamped at 0.
func DaysSince(t time.Time) float64 {
	d := time.Since(t).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// ComputeAuthority implements §4.1's authority formula. It is called at
// ingestion only; access tracking does not re-score authority.
func ComputeAuthority(importance, accessCount int, daysSinceCreated, daysSinceAccessed float64) float64 {
	importanceTerm := 0.35 * (float64(importance) / 10.0)
	usageTerm := 0.25 * math.Min(1, math.Log(float64(accessCount)+1)/math.Log(50))
	freshCreated := 0.20 * math.Exp(-0.007*daysSinceCreated)
	freshAccessed := 0.20 * math.Exp(-0.05*daysSinceAccessed)
	score := importanceTerm + usageTerm + freshCreated + freshAccessed
	return clamp01(round3(score))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// GetUncommittedEvents returns domain events raised since construction or
// the last MarkEventsAsCommitted call.
func (m *Memory) GetUncommittedEvents() []events.DomainEvent {
	return append([]events.DomainEvent(nil), m.events...)
}

// MarkEventsAsCommitted clears the pending event buffer after publication.
func (m *Memory) MarkEventsAsCommitted() {
	m.events = nil
}

func (m *Memory) addEvent(e events.DomainEvent) {
	m.events = append(m.events, e)
}
