package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model8cli/internal/infra/config"
)

func fileRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	root := t.TempDir()
	tools, err := NewFileTools(config.ToolsConfig{SandboxRoot: root})
	require.NoError(t, err)

	reg := NewRegistry(nil)
	for _, tl := range tools {
		reg.Register(tl)
	}
	return reg, root
}

func TestFileToolsWriteReadRoundTrip(t *testing.T) {
	reg, root := fileRegistry(t)
	ctx := context.Background()

	res := reg.Execute(ctx, "write_file", map[string]any{
		"path":    "notes/hello.txt",
		"content": "hello world",
	})
	require.True(t, res.Success, res.Error)

	onDisk, err := os.ReadFile(filepath.Join(root, "notes", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(onDisk))

	res = reg.Execute(ctx, "read_file", map[string]any{"path": "notes/hello.txt"})
	require.True(t, res.Success, res.Error)
	payload := res.Result.(map[string]any)
	assert.Equal(t, "hello world", payload["content"])
}

func TestFileToolsAppend(t *testing.T) {
	reg, root := fileRegistry(t)
	ctx := context.Background()

	reg.Execute(ctx, "write_file", map[string]any{"path": "log.txt", "content": "one\n"})
	res := reg.Execute(ctx, "write_file", map[string]any{"path": "log.txt", "content": "two\n", "append": true})
	require.True(t, res.Success, res.Error)

	onDisk, err := os.ReadFile(filepath.Join(root, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(onDisk))
}

func TestFileToolsSandboxEscapeRejected(t *testing.T) {
	reg, _ := fileRegistry(t)
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "../../etc/passwd", "/etc/passwd"} {
		res := reg.Execute(ctx, "read_file", map[string]any{"path": path})
		require.False(t, res.Success, "path %q must be rejected", path)
		assert.Contains(t, res.Error, "outside the working directory")
	}
}

func TestFileToolsListDirectory(t *testing.T) {
	reg, root := fileRegistry(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	res := reg.Execute(ctx, "list_directory", map[string]any{"path": "."})
	require.True(t, res.Success, res.Error)

	payload := res.Result.(map[string]any)
	entries := payload["entries"].([]map[string]any)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0]["name"])
	assert.Equal(t, "b.txt", entries[1]["name"])
	assert.Equal(t, "sub", entries[2]["name"])
	assert.Equal(t, true, entries[2]["is_dir"])
}

func TestFileToolsCopyAndDelete(t *testing.T) {
	reg, root := fileRegistry(t)
	ctx := context.Background()

	reg.Execute(ctx, "write_file", map[string]any{"path": "src.txt", "content": "data"})

	res := reg.Execute(ctx, "copy_file", map[string]any{"source": "src.txt", "destination": "copies/dst.txt"})
	require.True(t, res.Success, res.Error)

	copied, err := os.ReadFile(filepath.Join(root, "copies", "dst.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(copied))

	res = reg.Execute(ctx, "delete_file", map[string]any{"path": "src.txt"})
	require.True(t, res.Success, res.Error)
	_, err = os.Stat(filepath.Join(root, "src.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileToolsDeleteRootRefused(t *testing.T) {
	reg, _ := fileRegistry(t)

	res := reg.Execute(context.Background(), "delete_file", map[string]any{"path": "."})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "refusing")
}
