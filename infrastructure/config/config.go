// Package config loads the single structured YAML document spec.md §6.3
// describes: vector_store, graph_store, temporal_decay, retrieval, health,
// and proactive sections. Unknown keys are ignored; missing keys take
// defaults, applied the way the teacher's LoadConfig layers getEnv defaults
// before validating.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// VectorStoreConfig controls the semantic store (C2).
type VectorStoreConfig struct {
	PersistDirectory string `yaml:"persist_directory"`
	CollectionName   string `yaml:"collection_name"`
	EmbeddingDim     int    `yaml:"embedding_dim"`
}

// GraphStoreConfig controls the structured store (C3).
type GraphStoreConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BufferPoolSize string `yaml:"buffer_pool_size"`
}

// BufferPoolBytes parses the "<int><B|KB|MB|GB>" shape into bytes.
func (g GraphStoreConfig) BufferPoolBytes() (int64, error) {
	s := strings.TrimSpace(strings.ToUpper(g.BufferPoolSize))
	if s == "" {
		return 64 * 1024 * 1024, nil
	}
	units := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSuffix(s, u.suffix)
			n, err := strconv.ParseInt(strings.TrimSpace(numPart), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid buffer_pool_size %q: %w", g.BufferPoolSize, err)
			}
			return n * u.mult, nil
		}
	}
	return 0, fmt.Errorf("invalid buffer_pool_size %q: missing unit suffix", g.BufferPoolSize)
}

// TemporalDecayConfig enables §4.3's temporal signal and §4.5's staleness.
type TemporalDecayConfig struct {
	Enabled                    bool    `yaml:"enabled"`
	DefaultDecayRate           float64 `yaml:"default_decay_rate"`
	DefaultReinforcementFactor float64 `yaml:"default_reinforcement_factor"`
}

// RetrievalWeights are the six composite-score weights of §4.3 step 3.
// They must sum to 1.0 after normalization.
type RetrievalWeights struct {
	Vector       float64 `yaml:"vector"`
	Concept      float64 `yaml:"concept"`
	Domain       float64 `yaml:"domain"`
	Coactivation float64 `yaml:"coactivation"`
	Authority    float64 `yaml:"authority"`
	Temporal     float64 `yaml:"temporal"`
}

// Sum returns the raw (pre-normalization) total of the six weights.
func (w RetrievalWeights) Sum() float64 {
	return w.Vector + w.Concept + w.Domain + w.Coactivation + w.Authority + w.Temporal
}

// Normalized returns the weights rescaled so they sum to exactly 1.0.
func (w RetrievalWeights) Normalized() RetrievalWeights {
	sum := w.Sum()
	if sum <= 0 {
		return DefaultRetrievalWeights()
	}
	return RetrievalWeights{
		Vector:       w.Vector / sum,
		Concept:      w.Concept / sum,
		Domain:       w.Domain / sum,
		Coactivation: w.Coactivation / sum,
		Authority:    w.Authority / sum,
		Temporal:     w.Temporal / sum,
	}
}

func DefaultRetrievalWeights() RetrievalWeights {
	return RetrievalWeights{
		Vector: 0.30, Concept: 0.20, Domain: 0.15,
		Coactivation: 0.15, Authority: 0.10, Temporal: 0.10,
	}
}

// RetrievalConfig holds §6.3's retrieval section.
type RetrievalConfig struct {
	Weights RetrievalWeights `yaml:"weights"`
}

// HealthConfig tunes §4.5.
type HealthConfig struct {
	StaleDays         int     `yaml:"stale_days"`
	ConflictThreshold float64 `yaml:"conflict_threshold"`
}

// ProactiveConfig tunes §4.6's default confidences.
type ProactiveConfig struct {
	TemporalConfidence float64 `yaml:"temporal_confidence"`
	DomainConfidence   float64 `yaml:"domain_confidence"`
	ConceptConfidence  float64 `yaml:"concept_confidence"`
}

// Config is the single structured document spec.md §6.3 names.
type Config struct {
	HomeDir       string              `yaml:"-"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store"`
	GraphStore    GraphStoreConfig    `yaml:"graph_store"`
	TemporalDecay TemporalDecayConfig `yaml:"temporal_decay"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Health        HealthConfig        `yaml:"health"`
	Proactive     ProactiveConfig     `yaml:"proactive"`

	// LogLevel is not part of spec.md §6.3's table but is carried the way
	// the teacher's config always threads a log level through: the ambient
	// stack (logging) is never scoped out by a functional Non-goal.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with every default spec.md names, rooted at
// the default home directory unless ELEFANTE_HOME overrides it.
func Default() *Config {
	home := getEnv("ELEFANTE_HOME", defaultHomeDir())
	return &Config{
		HomeDir: home,
		VectorStore: VectorStoreConfig{
			PersistDirectory: home + "/data/semantic",
			CollectionName:   "memories",
			EmbeddingDim:     256,
		},
		GraphStore: GraphStoreConfig{
			DatabasePath:   home + "/data/graph/graph.db",
			BufferPoolSize: "64MB",
		},
		TemporalDecay: TemporalDecayConfig{
			Enabled:                    true,
			DefaultDecayRate:           0.05,
			DefaultReinforcementFactor: 1.1,
		},
		Retrieval: RetrievalConfig{Weights: DefaultRetrievalWeights()},
		Health: HealthConfig{
			StaleDays:         90,
			ConflictThreshold: 0.60,
		},
		Proactive: ProactiveConfig{
			TemporalConfidence: 0.7,
			DomainConfidence:   0.6,
			ConceptConfidence:  0.5,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func defaultHomeDir() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h + "/.elefante"
	}
	return "./.elefante"
}

// Load reads the YAML document at path, overlaying it onto Default() so
// missing keys keep their default value. A missing file is not an error —
// Default() is returned as-is, matching the teacher's env-default posture.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants spec.md §7's Validation taxonomy names:
// weight sum, positive stale_days, a sane conflict threshold.
func (c *Config) Validate() error {
	if c.VectorStore.EmbeddingDim <= 0 {
		return fmt.Errorf("vector_store.embedding_dim must be positive")
	}
	sum := c.Retrieval.Weights.Sum()
	if sum <= 0 {
		return fmt.Errorf("retrieval.weights must not all be zero")
	}
	if math.Abs(sum-1.0) > 1e-6 {
		// spec.md §7 treats "weight sum != 1 after normalization attempt"
		// as the validation failure, implying normalization runs first.
		c.Retrieval.Weights = c.Retrieval.Weights.Normalized()
	}
	if c.Health.StaleDays <= 0 {
		return fmt.Errorf("health.stale_days must be positive")
	}
	if c.Health.ConflictThreshold < 0 || c.Health.ConflictThreshold > 1 {
		return fmt.Errorf("health.conflict_threshold must be in [0,1]")
	}
	if _, err := c.GraphStore.BufferPoolBytes(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
