package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendReplicate, cfg.Generation.Backend)
	assert.Equal(t, "9:16", cfg.Generation.AspectRatio)
	assert.Equal(t, 1, cfg.Generation.NumOutputs)
	assert.NotEmpty(t, cfg.Projects)
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
content_dir: /tmp/kestrel-test
generation:
  backend: local
ollama:
  enabled: true
  model: mistral:latest
projects:
  birds:
    name: Birds
    description: Birds of prey
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, cfg.Generation.Backend)
	assert.True(t, cfg.Ollama.Enabled)
	assert.Equal(t, "mistral:latest", cfg.Ollama.Model)
	// Unset fields keep their defaults.
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, 15, cfg.Local.InferenceSteps)

	p, ok := cfg.Project("birds")
	require.True(t, ok)
	assert.Equal(t, "birds", p.Slug)
	assert.Equal(t, filepath.Join("/tmp/kestrel-test", "birds", "images"), p.ImagesDir())
}

func TestLoadFileRejectsInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  backend: cloud\n"), 0600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "invalid generation backend")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  backend: replicate\n"), 0600))

	t.Setenv("KESTREL_BACKEND", "local")
	t.Setenv("REPLICATE_API_TOKEN", "r8_secret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Generation.Backend)
	assert.Equal(t, "r8_secret", cfg.Replicate.APIToken)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := NewTestConfig(dir)
	cfg.Ollama.Enabled = true
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, dir, loaded.ContentDir)
	assert.True(t, loaded.Ollama.Enabled)
	_, ok := loaded.Project("test-project")
	assert.True(t, ok)
}

func TestEnsureDirs(t *testing.T) {
	cfg := NewTestConfig(t.TempDir())
	p, _ := cfg.Project("test-project")
	require.NoError(t, p.EnsureDirs())

	for _, dir := range []string{p.ImagesDir(), p.AudioDir(), p.ExportsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestProjectSlugsStableOrder(t *testing.T) {
	cfg := New()
	first := cfg.ProjectSlugs()
	second := cfg.ProjectSlugs()
	assert.Equal(t, first, second)
	assert.IsIncreasing(t, first)
}
