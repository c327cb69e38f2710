package tool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model8cli/internal/infra/config"
)

func TestKnowledgeStoreAddAndSearch(t *testing.T) {
	store, err := OpenKnowledgeStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Add(ctx, "go", "errgroup coordinates goroutine lifecycles")
	require.NoError(t, err)
	_, err = store.Add(ctx, "go", "context carries deadlines across API boundaries")
	require.NoError(t, err)
	_, err = store.Add(ctx, "cooking", "rest the dough for an hour")
	require.NoError(t, err)

	entries, err := store.Search(ctx, "goroutine", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "go", entries[0].Topic)

	entries, err = store.Search(ctx, "go", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "topic matches count too")

	entries, err = store.Search(ctx, "nothing matches this", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKnowledgeToolsThroughRegistry(t *testing.T) {
	cfg := config.ToolsConfig{KnowledgeDBPath: filepath.Join(t.TempDir(), "knowledge.db")}
	tools, store, err := NewKnowledgeTools(cfg)
	require.NoError(t, err)
	defer store.Close()

	reg := NewRegistry(nil)
	for _, tl := range tools {
		reg.Register(tl)
	}

	ctx := context.Background()
	res := reg.Execute(ctx, "add_knowledge", map[string]any{
		"topic":   "testing",
		"content": "httptest fakes avoid real network calls",
	})
	require.True(t, res.Success, res.Error)

	res = reg.Execute(ctx, "knowledge_search", map[string]any{"query": "httptest"})
	require.True(t, res.Success, res.Error)
	payload := res.Result.(map[string]any)
	entries := payload["entries"].([]KnowledgeEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, "testing", entries[0].Topic)

	// Empty strings violate the minLength constraint.
	res = reg.Execute(ctx, "add_knowledge", map[string]any{"topic": "", "content": ""})
	require.False(t, res.Success)
	assert.Equal(t, "parameter validation failed", res.Error)
}
