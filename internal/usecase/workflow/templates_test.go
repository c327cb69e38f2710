package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateNames(t *testing.T) {
	names := TemplateNames()
	assert.Equal(t, []string{
		"code_review",
		"deployment",
		"git_feature_workflow",
		"project_setup",
		"research_workflow",
	}, names)
}

func TestFromTemplateUnknown(t *testing.T) {
	_, err := FromTemplate("does_not_exist", nil)
	assert.Error(t, err)
}

func TestFromTemplateVariableOverride(t *testing.T) {
	wf, err := FromTemplate("git_feature_workflow", map[string]any{"feature_name": "login"})
	require.NoError(t, err)

	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "login", wf.Variables["feature_name"])
	assert.Equal(t, "Add new feature", wf.Variables["commit_message"], "unset variables keep template defaults")
	assert.Len(t, wf.Steps, 5)
}

func TestFromTemplateInstancesAreIndependent(t *testing.T) {
	a, err := FromTemplate("project_setup", nil)
	require.NoError(t, err)
	b, err := FromTemplate("project_setup", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "each instantiation gets a fresh id")

	a.Steps[0].Parameters["path"] = "mutated"
	assert.NotEqual(t, "mutated", b.Steps[0].Parameters["path"], "step parameters must be deep-copied")

	a.Variables["project_name"] = "changed"
	assert.NotEqual(t, "changed", b.Variables["project_name"])
}
