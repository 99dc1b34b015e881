package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 0.7, cfg.ConfidenceThreshold)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sessions", cfg.SessionDir)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: 9000\nconfidence_threshold: 0.5\nprovider: groq\napi_keys:\n  groq: gk-test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, "gk-test", cfg.APIKey("groq"))
	assert.Empty(t, cfg.APIKey("openai"))
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("confidence_threshold: 1.5\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestModelFor(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "gpt-4o-mini", cfg.ModelFor("openai", NodeClassifier))
	assert.Equal(t, "llama3-70b-8192", cfg.ModelFor("groq", NodeAgent))
	// Unknown providers fall back to the openai defaults.
	assert.Equal(t, "gpt-4o", cfg.ModelFor("mystery", NodePlanner))

	cfg.Models = map[string]string{"agent": "custom-model"}
	assert.Equal(t, "custom-model", cfg.ModelFor("openai", NodeAgent))
}
