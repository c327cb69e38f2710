package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model8cli/internal/domain"
)

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	wf := domain.NewWorkflow("my-flow", "My Flow", "demo workflow")
	wf.Tags = []string{"demo"}
	wf.Variables["target"] = "prod"
	wf.Steps = []*domain.WorkflowStep{
		{
			ID:         "s1",
			Name:       "First",
			Tool:       "read_file",
			Parameters: map[string]any{"path": "{{target}}.txt"},
			Condition:  "{{target}} == prod",
			MaxRetries: 2,
			OnFailure:  domain.FailureRetry,
		},
	}
	// Runtime state must not survive persistence.
	wf.Status = domain.WorkflowFailed
	wf.Steps[0].Status = domain.StepFailed
	wf.Steps[0].Error = "transient"

	require.NoError(t, store.Save(wf))

	loaded, err := store.Load("my-flow")
	require.NoError(t, err)

	assert.Equal(t, "My Flow", loaded.Name)
	assert.Equal(t, []string{"demo"}, loaded.Tags)
	assert.Equal(t, "prod", loaded.Variables["target"])
	require.Len(t, loaded.Steps, 1)

	s := loaded.Steps[0]
	assert.Equal(t, "read_file", s.Tool)
	assert.Equal(t, "{{target}}.txt", s.Parameters["path"])
	assert.Equal(t, "{{target}} == prod", s.Condition)
	assert.Equal(t, 2, s.MaxRetries)
	assert.Equal(t, domain.FailureRetry, s.OnFailure)

	assert.Equal(t, domain.WorkflowPending, loaded.Status)
	assert.Equal(t, domain.StepPending, s.Status)
	assert.Empty(t, s.Error)
}

func TestFileStoreListAndDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"zeta", "alpha"} {
		require.NoError(t, store.Save(domain.NewWorkflow(id, id, "")))
	}

	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	require.NoError(t, store.Delete("zeta"))
	ids, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, ids)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("ghost")
	assert.Error(t, err)
}
