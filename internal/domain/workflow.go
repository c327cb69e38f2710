package domain

import (
	"time"
)

// WorkflowStatus is the lifecycle state of a workflow run.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// StepStatus is the lifecycle state of a single step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// FailurePolicy selects how the engine reacts when a step fails.
type FailurePolicy string

const (
	FailureStop     FailurePolicy = "stop"
	FailureContinue FailurePolicy = "continue"
	FailureRetry    FailurePolicy = "retry"
)

// WorkflowStep is a single tool invocation inside a workflow. Parameter
// values may contain {{variable}} placeholders resolved at execution time.
// A step's identity is its ID, unique within the owning workflow.
type WorkflowStep struct {
	ID         string         `yaml:"id" json:"id"`
	Name       string         `yaml:"name" json:"name"`
	Tool       string         `yaml:"tool" json:"tool"`
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
	Condition  string         `yaml:"condition,omitempty" json:"condition,omitempty"`
	MaxRetries int            `yaml:"max_retries" json:"max_retries"`
	Timeout    time.Duration  `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	OnFailure  FailurePolicy  `yaml:"on_failure" json:"on_failure"`

	// Mutable per-run fields, populated by the engine.
	Status      StepStatus  `yaml:"-" json:"status"`
	Result      *ToolResult `yaml:"-" json:"result,omitempty"`
	Error       string      `yaml:"-" json:"error,omitempty"`
	StartedAt   time.Time   `yaml:"-" json:"started_at,omitzero"`
	CompletedAt time.Time   `yaml:"-" json:"completed_at,omitzero"`
	RetryCount  int         `yaml:"-" json:"retry_count"`
}

// Workflow is an ordered list of steps sharing a variable bag. It is
// mutated in place during execution and persisted only before/after a run.
type Workflow struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Version     string          `yaml:"version" json:"version"`
	Tags        []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
	Steps       []*WorkflowStep `yaml:"steps" json:"steps"`
	Variables   map[string]any  `yaml:"variables,omitempty" json:"variables,omitempty"`

	Status      WorkflowStatus `yaml:"-" json:"status"`
	CreatedAt   time.Time      `yaml:"-" json:"created_at"`
	StartedAt   time.Time      `yaml:"-" json:"started_at,omitzero"`
	CompletedAt time.Time      `yaml:"-" json:"completed_at,omitzero"`
	Error       string         `yaml:"-" json:"error,omitempty"`
}

// NewWorkflow constructs a pending workflow with initialized maps.
func NewWorkflow(id, name, description string) *Workflow {
	return &Workflow{
		ID:          id,
		Name:        name,
		Description: description,
		Version:     "1.0.0",
		Variables:   make(map[string]any),
		Status:      WorkflowPending,
		CreatedAt:   time.Now(),
	}
}

// Cancel marks the workflow cancelled. The engine checks this only at step
// boundaries, so an in-flight step finishes before cancellation takes
// effect.
func (w *Workflow) Cancel() {
	w.Status = WorkflowCancelled
}
