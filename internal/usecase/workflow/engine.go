package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"model8cli/internal/domain"
	"model8cli/internal/infra/tracer"
)

// Engine runs workflows sequentially against the tool registry. Steps share
// the workflow's variable bag: each completed step publishes its result
// payload under "<step id>_result" for later steps to reference.
type Engine struct {
	tools       domain.ToolExecutor
	stepTimeout time.Duration
	logger      *slog.Logger
}

// NewEngine builds a workflow engine. stepTimeout is the default per-step
// timeout, overridden by a step's own Timeout when set; zero disables it.
func NewEngine(tools domain.ToolExecutor, stepTimeout time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tools: tools, stepTimeout: stepTimeout, logger: logger}
}

// Execute runs wf to completion, mutating it in place and returning it.
// Caller-supplied variables override the workflow's own defaults.
// Cancellation (via wf.Cancel or ctx) takes effect at step boundaries.
func (e *Engine) Execute(ctx context.Context, wf *domain.Workflow, variables map[string]any) *domain.Workflow {
	ctx, span := tracer.StartSpan(ctx, "workflow.execute",
		tracer.StringAttr("workflow_id", wf.ID),
		tracer.IntAttr("steps", len(wf.Steps)),
	)
	defer span.End()

	e.logger.Info("starting workflow", "workflow_id", wf.ID, "name", wf.Name)

	wf.Status = domain.WorkflowRunning
	wf.StartedAt = time.Now()
	if wf.Variables == nil {
		wf.Variables = make(map[string]any)
	}
	for k, v := range variables {
		wf.Variables[k] = v
	}
	for _, step := range wf.Steps {
		if step.Status == "" {
			step.Status = domain.StepPending
		}
	}

	for _, step := range wf.Steps {
		if wf.Status == domain.WorkflowCancelled {
			break
		}
		if ctx.Err() != nil {
			wf.Status = domain.WorkflowCancelled
			break
		}

		if step.Condition != "" && !e.evaluateCondition(step.Condition, wf.Variables) {
			step.Status = domain.StepSkipped
			e.logger.Debug("step skipped", "workflow_id", wf.ID, "step", step.ID, "condition", step.Condition)
			continue
		}

		e.runStep(ctx, step, wf.Variables)

		if step.Status == domain.StepFailed && step.OnFailure == domain.FailureRetry {
			for step.Status == domain.StepFailed && step.RetryCount < step.MaxRetries {
				step.RetryCount++
				step.Status = domain.StepPending
				step.Error = ""
				e.logger.Info("retrying step",
					"workflow_id", wf.ID, "step", step.ID, "attempt", step.RetryCount)
				e.runStep(ctx, step, wf.Variables)
			}
		}

		if step.Status == domain.StepFailed && step.OnFailure == domain.FailureStop {
			wf.Status = domain.WorkflowFailed
			wf.Error = step.Error
			break
		}
	}

	if wf.Status == domain.WorkflowRunning {
		var failed []string
		for _, step := range wf.Steps {
			if step.Status == domain.StepFailed {
				failed = append(failed, step.Name)
			}
		}
		if len(failed) > 0 {
			wf.Status = domain.WorkflowFailed
			wf.Error = fmt.Sprintf("Failed steps: [%s]", strings.Join(failed, ", "))
		} else {
			wf.Status = domain.WorkflowCompleted
		}
	}
	wf.CompletedAt = time.Now()

	if wf.Status == domain.WorkflowFailed {
		tracer.RecordError(span, fmt.Errorf("%s", wf.Error))
	} else {
		tracer.SetOK(span)
	}
	e.logger.Info("workflow finished", "workflow_id", wf.ID, "status", string(wf.Status))
	return wf
}

// runStep resolves the step's parameters against the variable bag and
// executes its tool. Completed steps publish any non-nil result payload
// back into the bag.
func (e *Engine) runStep(ctx context.Context, step *domain.WorkflowStep, variables map[string]any) {
	e.logger.Info("executing step", "step", step.ID, "tool", step.Tool)

	step.Status = domain.StepRunning
	step.StartedAt = time.Now()
	defer func() { step.CompletedAt = time.Now() }()

	params, ok := Substitute(step.Parameters, variables).(map[string]any)
	if !ok {
		params = map[string]any{}
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.stepTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := e.tools.Execute(ctx, step.Tool, params)
	step.Result = result

	if result.Success {
		step.Status = domain.StepCompleted
		if result.Result != nil {
			variables[step.ID+"_result"] = result.Result
		}
	} else {
		step.Status = domain.StepFailed
		step.Error = result.Error
		e.logger.Error("step failed", "step", step.ID, "error", step.Error)
	}
}

// evaluateCondition resolves placeholders in the condition and evaluates a
// single comparison. A condition that cannot be evaluated (unknown
// variables, malformed expression) defaults to true so an imperfect
// condition never silently drops a step.
func (e *Engine) evaluateCondition(condition string, variables map[string]any) bool {
	resolved := substituteString(condition, variables)
	ok, err := evalComparison(resolved)
	if err != nil {
		e.logger.Warn("condition could not be evaluated, treating as true",
			"condition", condition, "error", err)
		return true
	}
	return ok
}
