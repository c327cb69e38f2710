package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
)

const defaultShellTimeout = 30 * time.Second

// defaultAllowedCommands is the baseline allowlist when the configuration
// does not supply one.
var defaultAllowedCommands = []string{
	"ls", "cat", "head", "tail", "wc", "grep", "find",
	"pwd", "whoami", "date", "uname", "df", "du", "ps",
	"go", "git", "make", "python3", "node", "npm",
}

// NewSystemTools builds the system_tools set: command execution against a
// configurable allowlist, plus a system info probe.
func NewSystemTools(cfg config.ToolsConfig) []domain.Tool {
	allowed := cfg.AllowedCommands
	if len(allowed) == 0 {
		allowed = defaultAllowedCommands
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, cmd := range allowed {
		allowedSet[cmd] = true
	}

	timeout := cfg.ShellTimeout
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}

	executeCommand := New(Options{
		Name:        "execute_command",
		Description: "Execute an allowed shell command and return its output",
		Category:    domain.CategorySystemTools,
		Parameters: []domain.ToolParameter{
			{Name: "command", Type: "string", Description: "Command to execute", Required: true},
			{Name: "args", Type: "array", Description: "Command arguments"},
			{Name: "working_dir", Type: "string", Description: "Working directory for the command"},
		},
		RequiresConfirmation: true,
		Dangerous:            true,
		Run: func(ctx context.Context, args Args) (any, error) {
			command, err := args.String("command")
			if err != nil {
				return nil, err
			}
			if !allowedSet[command] {
				return nil, fmt.Errorf("command %q is not in the allowed list", command)
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, command, args.StringSlice("args")...)
			if dir := args.StringOr("working_dir", ""); dir != "" {
				cmd.Dir = dir
			}

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			runErr := cmd.Run()
			exitCode := 0
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if runErr != nil {
				return nil, runErr
			}

			return map[string]any{
				"command":   command,
				"exit_code": exitCode,
				"stdout":    strings.TrimRight(stdout.String(), "\n"),
				"stderr":    strings.TrimRight(stderr.String(), "\n"),
			}, nil
		},
	})

	systemInfo := New(Options{
		Name:        "system_info",
		Description: "Report basic information about the host system",
		Category:    domain.CategorySystemTools,
		Parameters:  nil,
		Run: func(ctx context.Context, args Args) (any, error) {
			return map[string]any{
				"os":         runtime.GOOS,
				"arch":       runtime.GOARCH,
				"cpus":       runtime.NumCPU(),
				"go_version": runtime.Version(),
			}, nil
		},
	})

	return []domain.Tool{executeCommand, systemInfo}
}
