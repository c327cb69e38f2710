package workflow

import (
	"context"
	"fmt"

	"model8cli/internal/adapter/tool"
	"model8cli/internal/domain"
)

// NewWorkflowTools exposes the engine and store to the model as
// workflow_tools, so a conversation can launch and inspect workflows.
func NewWorkflowTools(engine *Engine, store *FileStore) []domain.Tool {
	runWorkflow := tool.New(tool.Options{
		Name:        "run_workflow",
		Description: "Run a saved workflow or a built-in template by name",
		Category:    domain.CategoryWorkflow,
		Parameters: []domain.ToolParameter{
			{Name: "name", Type: "string", Description: "Workflow id or template name", Required: true},
			{Name: "variables", Type: "object", Description: "Variables passed to the workflow"},
		},
		RequiresConfirmation: true,
		Run: func(ctx context.Context, args tool.Args) (any, error) {
			name, err := args.String("name")
			if err != nil {
				return nil, err
			}
			variables, _ := args["variables"].(map[string]any)

			wf, err := resolveWorkflow(store, name, variables)
			if err != nil {
				return nil, err
			}

			wf = engine.Execute(ctx, wf, variables)

			steps := make([]map[string]any, 0, len(wf.Steps))
			for _, step := range wf.Steps {
				s := map[string]any{
					"id":     step.ID,
					"name":   step.Name,
					"status": string(step.Status),
				}
				if step.Error != "" {
					s["error"] = step.Error
				}
				steps = append(steps, s)
			}
			out := map[string]any{
				"workflow_id": wf.ID,
				"status":      string(wf.Status),
				"steps":       steps,
			}
			if wf.Error != "" {
				out["error"] = wf.Error
			}
			return out, nil
		},
	})

	listWorkflows := tool.New(tool.Options{
		Name:        "list_workflows",
		Description: "List saved workflows and built-in templates",
		Category:    domain.CategoryWorkflow,
		Run: func(ctx context.Context, args tool.Args) (any, error) {
			saved, err := store.List()
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"saved":     saved,
				"templates": TemplateNames(),
			}, nil
		},
	})

	return []domain.Tool{runWorkflow, listWorkflows}
}

// resolveWorkflow loads a saved workflow by id, falling back to the
// template catalog.
func resolveWorkflow(store *FileStore, name string, variables map[string]any) (*domain.Workflow, error) {
	if wf, err := store.Load(name); err == nil {
		return wf, nil
	}
	wf, err := FromTemplate(name, variables)
	if err != nil {
		return nil, fmt.Errorf("no saved workflow or template named %q", name)
	}
	return wf, nil
}
