package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
)

const maxReadFileSize = 10 * 1024 * 1024 // 10 MB

// sandbox confines file tools to a root directory. All paths are resolved
// relative to the root; escapes via ".." or absolute paths outside it are
// rejected.
type sandbox struct {
	root string
}

func newSandbox(root string) (*sandbox, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &sandbox{root: abs}, nil
}

// resolve maps a user-supplied path into the sandbox.
func (s *sandbox) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the working directory", path)
	}
	return abs, nil
}

// NewFileTools builds the file_operations tool set rooted at the configured
// sandbox directory.
func NewFileTools(cfg config.ToolsConfig) ([]domain.Tool, error) {
	sb, err := newSandbox(cfg.SandboxRoot)
	if err != nil {
		return nil, err
	}

	pathParam := func(desc string) domain.ToolParameter {
		return domain.ToolParameter{Name: "path", Type: "string", Description: desc, Required: true}
	}

	readFile := New(Options{
		Name:        "read_file",
		Description: "Read the contents of a text file",
		Category:    domain.CategoryFileOperations,
		Parameters:  []domain.ToolParameter{pathParam("Path to the file to read")},
		Run: func(ctx context.Context, args Args) (any, error) {
			path, err := args.String("path")
			if err != nil {
				return nil, err
			}
			resolved, err := sb.resolve(path)
			if err != nil {
				return nil, err
			}
			info, err := os.Stat(resolved)
			if err != nil {
				return nil, err
			}
			if info.Size() > maxReadFileSize {
				return nil, fmt.Errorf("file too large: %d bytes", info.Size())
			}
			data, err := os.ReadFile(resolved)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"path":    path,
				"content": string(data),
				"size":    info.Size(),
			}, nil
		},
	})

	writeFile := New(Options{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories as needed",
		Category:    domain.CategoryFileOperations,
		Parameters: []domain.ToolParameter{
			pathParam("Path to the file to write"),
			{Name: "content", Type: "string", Description: "Content to write", Required: true},
			{Name: "append", Type: "boolean", Description: "Append instead of overwrite", Default: false},
		},
		RequiresConfirmation: true,
		Run: func(ctx context.Context, args Args) (any, error) {
			path, err := args.String("path")
			if err != nil {
				return nil, err
			}
			content, err := args.String("content")
			if err != nil {
				return nil, err
			}
			resolved, err := sb.resolve(path)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, err
			}
			if args.Bool("append", false) {
				f, err := os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					return nil, err
				}
				defer f.Close()
				if _, err := f.WriteString(content); err != nil {
					return nil, err
				}
			} else if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "bytes_written": len(content)}, nil
		},
	})

	listDirectory := New(Options{
		Name:        "list_directory",
		Description: "List the entries of a directory",
		Category:    domain.CategoryFileOperations,
		Parameters: []domain.ToolParameter{
			{Name: "path", Type: "string", Description: "Directory to list", Default: "."},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			resolved, err := sb.resolve(args.StringOr("path", "."))
			if err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(resolved)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				info, err := e.Info()
				if err != nil {
					continue
				}
				out = append(out, map[string]any{
					"name":   e.Name(),
					"is_dir": e.IsDir(),
					"size":   info.Size(),
				})
			}
			sort.Slice(out, func(i, j int) bool {
				return out[i]["name"].(string) < out[j]["name"].(string)
			})
			return map[string]any{"path": args.StringOr("path", "."), "entries": out}, nil
		},
	})

	copyFile := New(Options{
		Name:        "copy_file",
		Description: "Copy a file to a new location",
		Category:    domain.CategoryFileOperations,
		Parameters: []domain.ToolParameter{
			{Name: "source", Type: "string", Description: "Source file path", Required: true},
			{Name: "destination", Type: "string", Description: "Destination file path", Required: true},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			src, err := args.String("source")
			if err != nil {
				return nil, err
			}
			dst, err := args.String("destination")
			if err != nil {
				return nil, err
			}
			srcResolved, err := sb.resolve(src)
			if err != nil {
				return nil, err
			}
			dstResolved, err := sb.resolve(dst)
			if err != nil {
				return nil, err
			}

			in, err := os.Open(srcResolved)
			if err != nil {
				return nil, err
			}
			defer in.Close()

			if err := os.MkdirAll(filepath.Dir(dstResolved), 0o755); err != nil {
				return nil, err
			}
			out, err := os.Create(dstResolved)
			if err != nil {
				return nil, err
			}
			defer out.Close()

			n, err := io.Copy(out, in)
			if err != nil {
				return nil, err
			}
			return map[string]any{"source": src, "destination": dst, "bytes_copied": n}, nil
		},
	})

	deleteFile := New(Options{
		Name:        "delete_file",
		Description: "Delete a file or empty directory",
		Category:    domain.CategoryFileOperations,
		Parameters: []domain.ToolParameter{
			pathParam("Path to delete"),
		},
		RequiresConfirmation: true,
		Dangerous:            true,
		Run: func(ctx context.Context, args Args) (any, error) {
			path, err := args.String("path")
			if err != nil {
				return nil, err
			}
			resolved, err := sb.resolve(path)
			if err != nil {
				return nil, err
			}
			if resolved == sb.root {
				return nil, fmt.Errorf("refusing to delete the working directory root")
			}
			if err := os.Remove(resolved); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "deleted": true}, nil
		},
	})

	createDirectory := New(Options{
		Name:        "create_directory",
		Description: "Create a directory, including parents",
		Category:    domain.CategoryFileOperations,
		Parameters:  []domain.ToolParameter{pathParam("Directory path to create")},
		Run: func(ctx context.Context, args Args) (any, error) {
			path, err := args.String("path")
			if err != nil {
				return nil, err
			}
			resolved, err := sb.resolve(path)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "created": true}, nil
		},
	})

	return []domain.Tool{readFile, writeFile, listDirectory, copyFile, deleteFile, createDirectory}, nil
}
