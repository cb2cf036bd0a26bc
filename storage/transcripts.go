// Package storage records finished CLI runs in a local sqlite database.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentflow/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load and Delete for an unknown transcript id.
var ErrNotFound = errors.New("transcript not found")

// Transcript is one recorded conversation in wire form.
type Transcript struct {
	ID        string
	Title     string
	Agent     string
	Model     string
	CreatedAt time.Time
	Usage     model.Usage
	Messages  []model.Message
}

// Summary is a Transcript without its messages, for listing.
type Summary struct {
	ID           string
	Title        string
	Agent        string
	Model        string
	CreatedAt    time.Time
	Usage        model.Usage
	MessageCount int
}

type TranscriptStore struct {
	db *sql.DB
}

// Open opens (creating if needed) transcripts.db under dataDir.
func Open(dataDir string) (*TranscriptStore, error) {
	// 0700 - transcripts contain conversation history
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "transcripts.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &TranscriptStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *TranscriptStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		agent TEXT NOT NULL,
		model TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL,
		messages TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces t. An empty ID gets a new uuid, an empty Title is
// derived from the first user message, and a zero CreatedAt becomes now.
func (s *TranscriptStore) Save(t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Title == "" {
		t.Title = Title(t.Messages)
	}

	data, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO transcripts (id, title, agent, model, created_at, prompt_tokens, completion_tokens, message_count, messages)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		t.ID,
		t.Title,
		t.Agent,
		t.Model,
		t.CreatedAt.UTC(),
		t.Usage.PromptTokens,
		t.Usage.CompletionTokens,
		len(t.Messages),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	query := `
	SELECT id, title, agent, model, created_at, prompt_tokens, completion_tokens, messages
	FROM transcripts
	WHERE id = ?
	`

	var t Transcript
	var data string
	err := s.db.QueryRow(query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Agent,
		&t.Model,
		&t.CreatedAt,
		&t.Usage.PromptTokens,
		&t.Usage.CompletionTokens,
		&data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &t.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages of %s: %w", id, err)
	}
	return &t, nil
}

// List returns summaries, newest first. A positive limit caps the count.
func (s *TranscriptStore) List(limit int) ([]Summary, error) {
	query := `
	SELECT id, title, agent, model, created_at, prompt_tokens, completion_tokens, message_count
	FROM transcripts
	ORDER BY created_at DESC
	`
	var args []any
	if limit > 0 {
		query += "LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		err := rows.Scan(
			&sum.ID,
			&sum.Title,
			&sum.Agent,
			&sum.Model,
			&sum.CreatedAt,
			&sum.Usage.PromptTokens,
			&sum.Usage.CompletionTokens,
			&sum.MessageCount,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *TranscriptStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *TranscriptStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Match is a message that contains a search query.
type Match struct {
	TranscriptID string
	Title        string
	MessageIndex int
	Role         model.Role
	Preview      string
}

// Search returns the non-system messages of every transcript whose content
// contains query, case-insensitively.
func (s *TranscriptStore) Search(query string) ([]Match, error) {
	if query == "" {
		return nil, nil
	}
	list, err := s.List(0)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []Match
	for _, sum := range list {
		t, err := s.Load(sum.ID)
		if err != nil {
			continue
		}
		for i, msg := range t.Messages {
			if msg.Role == model.RoleSystem {
				continue
			}
			if strings.Contains(strings.ToLower(msg.Content), queryLower) {
				matches = append(matches, Match{
					TranscriptID: t.ID,
					Title:        t.Title,
					MessageIndex: i,
					Role:         msg.Role,
					Preview:      preview(msg.Content, 100),
				})
			}
		}
	}
	return matches, nil
}

// Title derives a short title from the first user message.
func Title(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role != model.RoleUser {
			continue
		}
		name := strings.Join(strings.Fields(m.Content), " ")
		if name != "" {
			return preview(name, 30)
		}
	}
	return fmt.Sprintf("Run %s", time.Now().Format("Jan 2, 3:04 PM"))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
