package tool

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
)

// KnowledgeStore persists notes in a local SQLite database so the model can
// save and recall facts across sessions.
type KnowledgeStore struct {
	db *sql.DB
}

// OpenKnowledgeStore opens (or creates) the knowledge database at path.
func OpenKnowledgeStore(path string) (*KnowledgeStore, error) {
	if path == "" {
		path = "knowledge.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	const schema = `
CREATE TABLE IF NOT EXISTS knowledge (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_knowledge_topic ON knowledge(topic);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &KnowledgeStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *KnowledgeStore) Close() error { return s.db.Close() }

// Add inserts a note under a topic and returns its id.
func (s *KnowledgeStore) Add(ctx context.Context, topic, content string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO knowledge (topic, content, created_at) VALUES (?, ?, ?)",
		topic, content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// KnowledgeEntry is one stored note.
type KnowledgeEntry struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Search returns notes whose topic or content contains the query.
func (s *KnowledgeStore) Search(ctx context.Context, query string, limit int) ([]KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, topic, content, created_at FROM knowledge WHERE topic LIKE ? OR content LIKE ? ORDER BY id DESC LIMIT ?",
		pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		var e KnowledgeEntry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NewKnowledgeTools builds the knowledge_tools set backed by the store.
func NewKnowledgeTools(cfg config.ToolsConfig) ([]domain.Tool, *KnowledgeStore, error) {
	store, err := OpenKnowledgeStore(cfg.KnowledgeDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge store: %w", err)
	}

	addKnowledge := New(Options{
		Name:        "add_knowledge",
		Description: "Save a note under a topic for later recall",
		Category:    domain.CategoryKnowledge,
		Parameters: []domain.ToolParameter{
			{Name: "topic", Type: "string", Description: "Topic to file the note under", Required: true, MinLength: intPtr(1)},
			{Name: "content", Type: "string", Description: "Note content", Required: true, MinLength: intPtr(1)},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			topic, err := args.String("topic")
			if err != nil {
				return nil, err
			}
			content, err := args.String("content")
			if err != nil {
				return nil, err
			}
			id, err := store.Add(ctx, topic, content)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "topic": topic}, nil
		},
	})

	knowledgeSearch := New(Options{
		Name:        "knowledge_search",
		Description: "Search saved notes by topic or content",
		Category:    domain.CategoryKnowledge,
		Parameters: []domain.ToolParameter{
			{Name: "query", Type: "string", Description: "Search text", Required: true, MinLength: intPtr(1)},
			{Name: "limit", Type: "integer", Description: "Maximum results", Default: 10, Minimum: floatPtr(1), Maximum: floatPtr(100)},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			query, err := args.String("query")
			if err != nil {
				return nil, err
			}
			entries, err := store.Search(ctx, query, args.Int("limit", 10))
			if err != nil {
				return nil, err
			}
			return map[string]any{"query": query, "entries": entries}, nil
		},
	})

	return []domain.Tool{addKnowledge, knowledgeSearch}, store, nil
}
