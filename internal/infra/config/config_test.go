package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "moonshotai/kimi-k2:free", cfg.LLM.DefaultModel)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, time.Second, cfg.LLM.BaseRetryDelay)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "noop", cfg.Tracer.Exporter)
	assert.NotEmpty(t, cfg.Workflow.Dir)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "moonshotai/kimi-k2:free", cfg.LLM.DefaultModel)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
llm:
  default_model: "groq/llama-3.3-70b-versatile"
  max_retries: 5
logger:
  level: debug
tools:
  search_max_results: 9
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "groq/llama-3.3-70b-versatile", cfg.LLM.DefaultModel)
	assert.Equal(t, 5, cfg.LLM.MaxRetries)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 9, cfg.Tools.SearchMaxResults)
	// Untouched fields keep their defaults.
	assert.Equal(t, time.Second, cfg.LLM.BaseRetryDelay)
	assert.Equal(t, "noop", cfg.Tracer.Exporter)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentKeysWin(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-env-key")
	t.Setenv("GROQ_API_KEY", "groq-env-key")
	t.Setenv("GITHUB_TOKEN", "gh-env-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "or-env-key", cfg.LLM.OpenRouter.APIKey)
	assert.Equal(t, "groq-env-key", cfg.LLM.Groq.APIKey)
	assert.Equal(t, "gh-env-token", cfg.Tools.GitHubToken)
}
