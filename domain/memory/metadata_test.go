package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMetadata_FromMetadata_RoundTrip(t *testing.T) {
	m, err := NewMemory("NEVER commit secrets to the repository")
	require.NoError(t, err)

	entityID := NewEntityID()
	require.NoError(t, m.Curate(
		"intent.rule: secrets", "Never commit secrets.",
		[]string{"secrets", "repository"}, []string{"contains secrets"},
		LayerIntent, SublayerRule, TypeRule,
		"work", 9, 0.812,
	))
	m.AttachTags([]string{"security"})
	m.AttachEntities([]EntityID{entityID})
	m.RecordAccess(m.CreatedAt())
	m.SetCustomValue("source", "cli")

	meta := m.ToMetadata()
	restored, err := FromMetadata(m.ID(), m.Content(), meta)
	require.NoError(t, err)

	assert.Equal(t, m.Title(), restored.Title())
	assert.Equal(t, m.Summary(), restored.Summary())
	assert.Equal(t, m.Concepts(), restored.Concepts())
	assert.Equal(t, m.SurfacesWhen(), restored.SurfacesWhen())
	assert.Equal(t, m.Layer(), restored.Layer())
	assert.Equal(t, m.Sublayer(), restored.Sublayer())
	assert.Equal(t, m.MemoryType(), restored.MemoryType())
	assert.Equal(t, m.Domain(), restored.Domain())
	assert.Equal(t, m.Importance(), restored.Importance())
	assert.Equal(t, m.Authority(), restored.Authority())
	assert.Equal(t, m.Tags(), restored.Tags())
	assert.Equal(t, m.Entities(), restored.Entities())
	assert.Equal(t, m.AccessCount(), restored.AccessCount())
	v, ok := restored.CustomValue("source")
	assert.True(t, ok)
	assert.Equal(t, "cli", v)
}

func TestFromMetadata_ToleratesLegacyCommaJoinedList(t *testing.T) {
	id := NewMemoryID()
	meta := map[string]string{
		metaConcepts:  "python,testing,api",
		metaImportance: "5",
		metaDomain:    "work",
	}
	m, err := FromMetadata(id, "content", meta)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "testing", "api"}, m.Concepts())
}

func TestFromMetadata_DefaultsVersionToOne(t *testing.T) {
	id := NewMemoryID()
	m, err := FromMetadata(id, "content", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version())
}

func TestToMetadata_OmitsEmptyCustomMap(t *testing.T) {
	m, err := NewMemory("content without custom fields")
	require.NoError(t, err)
	meta := m.ToMetadata()
	_, ok := meta[metaCustom]
	assert.False(t, ok)
}
