package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.QdrantHost)
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, "experiences", cfg.CollectionName)
	assert.Equal(t, 10, cfg.MaxExperiences)
	assert.Equal(t, 0.3, cfg.MinRelevanceScore)
	assert.Equal(t, 8, cfg.MaxQueries)
	assert.Equal(t, "job_specific", cfg.RefinementType)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"qdrant_host": "qdrant.internal",
		"max_experiences": 5,
		"min_relevance_score": 0.5,
		"disable_refinement": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.QdrantHost)
	assert.Equal(t, 5, cfg.MaxExperiences)
	assert.Equal(t, 0.5, cfg.MinRelevanceScore)
	assert.True(t, cfg.DisableRefinement)
	// Untouched fields keep their defaults.
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, "experiences", cfg.CollectionName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"qdrant_host": "from-file"}`), 0o644))

	t.Setenv("QDRANT_HOST", "from-env")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.QdrantHost)
	assert.Equal(t, 7000, cfg.QdrantPort)
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.QdrantHost)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRelevanceScore = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RefinementType = "aggressive"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.QdrantPort = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxExperiences = -1
	assert.Error(t, cfg.Validate())
}
