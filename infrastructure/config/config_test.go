package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0, cfg.Retrieval.Weights.Sum(), 1e-9)
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Health.StaleDays)
}

func TestLoad_OverridesAndNormalizesWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
health:
  stale_days: 30
  conflict_threshold: 0.5
retrieval:
  weights:
    vector: 3
    concept: 2
    domain: 1.5
    coactivation: 1.5
    authority: 1
    temporal: 1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Health.StaleDays)
	assert.InDelta(t, 1.0, cfg.Retrieval.Weights.Sum(), 1e-9)
	assert.InDelta(t, 0.3, cfg.Retrieval.Weights.Vector, 1e-9)
}

func TestGraphStoreConfig_BufferPoolBytes(t *testing.T) {
	g := GraphStoreConfig{BufferPoolSize: "128MB"}
	n, err := g.BufferPoolBytes()
	require.NoError(t, err)
	assert.EqualValues(t, 128*1024*1024, n)

	bad := GraphStoreConfig{BufferPoolSize: "notanumber"}
	_, err = bad.BufferPoolBytes()
	assert.Error(t, err)
}
