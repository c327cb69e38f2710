package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"model8cli/internal/domain"
)

// FileStore persists workflow definitions as YAML files, one per workflow,
// named <id>.yaml under the store directory. Only definition fields are
// saved; per-run state never hits disk.
type FileStore struct {
	dir string
}

// NewFileStore creates the store directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("workflow store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workflow directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the workflow definition to <dir>/<id>.yaml.
func (s *FileStore) Save(wf *domain.Workflow) error {
	if wf.ID == "" {
		return fmt.Errorf("workflow id cannot be empty")
	}
	data, err := yaml.Marshal(wf)
	if err != nil {
		return fmt.Errorf("encode workflow %s: %w", wf.ID, err)
	}
	path := filepath.Join(s.dir, wf.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workflow %s: %w", wf.ID, err)
	}
	return nil
}

// Load reads a saved workflow by id and resets it to a runnable pending
// state.
func (s *FileStore) Load(id string) (*domain.Workflow, error) {
	path := filepath.Join(s.dir, id+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", id, err)
	}

	var wf domain.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", id, err)
	}

	wf.Status = domain.WorkflowPending
	if wf.Variables == nil {
		wf.Variables = make(map[string]any)
	}
	for _, step := range wf.Steps {
		step.Status = domain.StepPending
	}
	return &wf, nil
}

// Delete removes a saved workflow.
func (s *FileStore) Delete(id string) error {
	return os.Remove(filepath.Join(s.dir, id+".yaml"))
}

// List returns the ids of all saved workflows, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
