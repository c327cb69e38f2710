package workflow

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"model8cli/internal/domain"
)

// Built-in workflow templates. Instantiating a template deep-copies its
// steps so runs never share mutable state.

func templateCatalog() map[string]*domain.Workflow {
	return map[string]*domain.Workflow{
		"git_feature_workflow": {
			Name:        "Git Feature Workflow",
			Description: "Complete feature development workflow with Git",
			Version:     "1.0.0",
			Tags:        []string{"git", "development"},
			Steps: []*domain.WorkflowStep{
				{
					ID:         "check_status",
					Name:       "Check Git Status",
					Tool:       "git_status",
					Parameters: map[string]any{"repo_path": "."},
				},
				{
					ID:         "create_branch",
					Name:       "Create Feature Branch",
					Tool:       "git_branch",
					Parameters: map[string]any{"name": "feature/{{feature_name}}"},
				},
				{
					ID:         "add_changes",
					Name:       "Add Changes",
					Tool:       "git_add",
					Parameters: map[string]any{"paths": []any{"."}},
				},
				{
					ID:         "commit_changes",
					Name:       "Commit Changes",
					Tool:       "git_commit",
					Parameters: map[string]any{"message": "{{commit_message}}"},
				},
				{
					ID:         "push_branch",
					Name:       "Push Branch",
					Tool:       "git_push",
					Parameters: map[string]any{"branch": "feature/{{feature_name}}"},
					OnFailure:  domain.FailureRetry,
					MaxRetries: 2,
				},
			},
			Variables: map[string]any{
				"feature_name":   "new-feature",
				"commit_message": "Add new feature",
			},
		},
		"project_setup": {
			Name:        "Project Setup Workflow",
			Description: "Initialize a new project with common structure",
			Version:     "1.0.0",
			Tags:        []string{"setup"},
			Steps: []*domain.WorkflowStep{
				{
					ID:         "create_directories",
					Name:       "Create Project Directories",
					Tool:       "create_directory",
					Parameters: map[string]any{"path": "{{project_name}}/src"},
				},
				{
					ID:   "create_readme",
					Name: "Create README",
					Tool: "write_file",
					Parameters: map[string]any{
						"path":    "{{project_name}}/README.md",
						"content": "# {{project_name}}\n\n{{project_description}}",
					},
				},
				{
					ID:   "create_gitignore",
					Name: "Create .gitignore",
					Tool: "write_file",
					Parameters: map[string]any{
						"path":    "{{project_name}}/.gitignore",
						"content": "*.exe\n*.out\nbin/\n.env\nnode_modules/\n.DS_Store",
					},
				},
				{
					ID:         "init_git",
					Name:       "Initialize Git",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "git", "args": []any{"init", "{{project_name}}"}},
				},
			},
			Variables: map[string]any{
				"project_name":        "my-project",
				"project_description": "A new project",
			},
		},
		"code_review": {
			Name:        "Code Review Workflow",
			Description: "Automated code review and analysis",
			Version:     "1.0.0",
			Tags:        []string{"review", "quality"},
			Steps: []*domain.WorkflowStep{
				{
					ID:         "show_diff",
					Name:       "Show Changes",
					Tool:       "git_diff",
					Parameters: map[string]any{"repo_path": "{{code_path}}"},
				},
				{
					ID:         "vet_code",
					Name:       "Vet Code",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "go", "args": []any{"vet", "./..."}, "working_dir": "{{code_path}}"},
					OnFailure:  domain.FailureContinue,
				},
				{
					ID:         "run_tests",
					Name:       "Run Tests",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "{{test_command}}", "args": []any{"test", "./..."}, "working_dir": "{{code_path}}"},
				},
			},
			Variables: map[string]any{
				"code_path":    ".",
				"test_command": "go",
			},
		},
		"deployment": {
			Name:        "Deployment Workflow",
			Description: "Deploy application with checks",
			Version:     "1.0.0",
			Tags:        []string{"deploy"},
			Steps: []*domain.WorkflowStep{
				{
					ID:         "run_tests",
					Name:       "Run Tests",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "{{test_command}}"},
					OnFailure:  domain.FailureStop,
				},
				{
					ID:         "build_app",
					Name:       "Build Application",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "{{build_command}}"},
					OnFailure:  domain.FailureStop,
				},
				{
					ID:         "deploy_app",
					Name:       "Deploy Application",
					Tool:       "execute_command",
					Parameters: map[string]any{"command": "{{deploy_command}}"},
					OnFailure:  domain.FailureRetry,
					MaxRetries: 2,
				},
				{
					ID:         "health_check",
					Name:       "Health Check",
					Tool:       "web_fetch",
					Parameters: map[string]any{"url": "{{health_check_url}}"},
					OnFailure:  domain.FailureRetry,
					MaxRetries: 3,
				},
			},
			Variables: map[string]any{
				"test_command":     "make",
				"build_command":    "make",
				"deploy_command":   "make",
				"health_check_url": "https://myapp.com/health",
			},
		},
		"research_workflow": {
			Name:        "Research Workflow",
			Description: "Comprehensive research and documentation",
			Version:     "1.0.0",
			Tags:        []string{"research"},
			Steps: []*domain.WorkflowStep{
				{
					ID:         "web_search",
					Name:       "Web Search",
					Tool:       "web_search",
					Parameters: map[string]any{"query": "{{research_topic}}"},
				},
				{
					ID:         "knowledge_search",
					Name:       "Search Knowledge Base",
					Tool:       "knowledge_search",
					Parameters: map[string]any{"query": "{{research_topic}}"},
				},
				{
					ID:   "create_summary",
					Name: "Create Research Summary",
					Tool: "write_file",
					Parameters: map[string]any{
						"path":    "research_{{timestamp}}.md",
						"content": "# Research: {{research_topic}}\n\nDate: {{timestamp}}\n\n## Findings\n\n{{findings}}",
					},
				},
				{
					ID:   "add_to_knowledge",
					Name: "Add to Knowledge Base",
					Tool: "add_knowledge",
					Parameters: map[string]any{
						"topic":   "Research: {{research_topic}}",
						"content": "{{findings}}",
					},
				},
			},
			Variables: map[string]any{
				"research_topic": "AI development",
				"findings":       "Research findings will be populated here",
			},
		},
	}
}

// TemplateNames returns the built-in template names, sorted.
func TemplateNames() []string {
	catalog := templateCatalog()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromTemplate instantiates a built-in template as a runnable workflow with
// a fresh id. Caller-supplied variables override the template defaults.
func FromTemplate(name string, variables map[string]any) (*domain.Workflow, error) {
	tmpl, ok := templateCatalog()[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow template %q", name)
	}

	wf := domain.NewWorkflow(newWorkflowID(), tmpl.Name, tmpl.Description)
	wf.Version = tmpl.Version
	wf.Tags = append([]string(nil), tmpl.Tags...)

	wf.Steps = make([]*domain.WorkflowStep, len(tmpl.Steps))
	for i, step := range tmpl.Steps {
		copied := *step
		copied.Parameters = deepCopyMap(step.Parameters)
		wf.Steps[i] = &copied
	}

	for k, v := range tmpl.Variables {
		wf.Variables[k] = v
	}
	for k, v := range variables {
		wf.Variables[k] = v
	}
	return wf, nil
}

func newWorkflowID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
