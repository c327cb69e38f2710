package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"model8cli/internal/domain"
)

const gitTimeout = 60 * time.Second

// runGit executes git with the given arguments in dir and returns trimmed
// stdout. Failures include stderr in the error message.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// NewGitTools builds the git_tools set wrapping the git CLI.
func NewGitTools() []domain.Tool {
	repoParam := domain.ToolParameter{Name: "repo_path", Type: "string", Description: "Path to the repository", Default: "."}

	gitStatus := New(Options{
		Name:        "git_status",
		Description: "Show the working tree status of a repository",
		Category:    domain.CategoryGitTools,
		Parameters:  []domain.ToolParameter{repoParam},
		Run: func(ctx context.Context, args Args) (any, error) {
			out, err := runGit(ctx, args.StringOr("repo_path", "."), "status", "--porcelain", "--branch")
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": out}, nil
		},
	})

	gitLog := New(Options{
		Name:        "git_log",
		Description: "Show recent commits of a repository",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "limit", Type: "integer", Description: "Maximum commits to show", Default: 10, Minimum: floatPtr(1), Maximum: floatPtr(100)},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			limit := args.Int("limit", 10)
			out, err := runGit(ctx, args.StringOr("repo_path", "."),
				"log", fmt.Sprintf("-%d", limit), "--oneline", "--no-decorate")
			if err != nil {
				return nil, err
			}
			return map[string]any{"log": out}, nil
		},
	})

	gitDiff := New(Options{
		Name:        "git_diff",
		Description: "Show uncommitted changes in a repository",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "staged", Type: "boolean", Description: "Show staged changes instead of unstaged", Default: false},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			gitArgs := []string{"diff"}
			if args.Bool("staged", false) {
				gitArgs = append(gitArgs, "--cached")
			}
			out, err := runGit(ctx, args.StringOr("repo_path", "."), gitArgs...)
			if err != nil {
				return nil, err
			}
			return map[string]any{"diff": out}, nil
		},
	})

	gitAdd := New(Options{
		Name:        "git_add",
		Description: "Stage files for commit",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "paths", Type: "array", Description: "Paths to stage; defaults to all changes"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			paths := args.StringSlice("paths")
			if len(paths) == 0 {
				paths = []string{"-A"}
			}
			if _, err := runGit(ctx, args.StringOr("repo_path", "."), append([]string{"add"}, paths...)...); err != nil {
				return nil, err
			}
			return map[string]any{"staged": paths}, nil
		},
	})

	gitCommit := New(Options{
		Name:        "git_commit",
		Description: "Create a commit from staged changes",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "message", Type: "string", Description: "Commit message", Required: true, MinLength: intPtr(1)},
		},
		RequiresConfirmation: true,
		Run: func(ctx context.Context, args Args) (any, error) {
			message, err := args.String("message")
			if err != nil {
				return nil, err
			}
			out, err := runGit(ctx, args.StringOr("repo_path", "."), "commit", "-m", message)
			if err != nil {
				return nil, err
			}
			return map[string]any{"output": out}, nil
		},
	})

	gitPush := New(Options{
		Name:        "git_push",
		Description: "Push commits to a remote",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "remote", Type: "string", Description: "Remote name", Default: "origin"},
			{Name: "branch", Type: "string", Description: "Branch to push; defaults to the current branch"},
		},
		RequiresConfirmation: true,
		Dangerous:            true,
		Run: func(ctx context.Context, args Args) (any, error) {
			gitArgs := []string{"push", args.StringOr("remote", "origin")}
			if branch := args.StringOr("branch", ""); branch != "" {
				gitArgs = append(gitArgs, branch)
			}
			out, err := runGit(ctx, args.StringOr("repo_path", "."), gitArgs...)
			if err != nil {
				return nil, err
			}
			return map[string]any{"output": out}, nil
		},
	})

	gitBranch := New(Options{
		Name:        "git_branch",
		Description: "Create and switch to a branch",
		Category:    domain.CategoryGitTools,
		Parameters: []domain.ToolParameter{
			repoParam,
			{Name: "name", Type: "string", Description: "Branch name", Required: true, Pattern: `^[\w./-]+$`},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			name, err := args.String("name")
			if err != nil {
				return nil, err
			}
			if _, err := runGit(ctx, args.StringOr("repo_path", "."), "checkout", "-b", name); err != nil {
				return nil, err
			}
			return map[string]any{"branch": name}, nil
		},
	})

	return []domain.Tool{gitStatus, gitLog, gitDiff, gitAdd, gitCommit, gitPush, gitBranch}
}

func floatPtr(v float64) *float64 { return &v }
