package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// UpsertSystemPrompt inserts a system prompt if its key is unseen, or
// overwrites it if already present — used both by StartupReconciler (seed
// defaults, leaving any operator edit untouched) and by the admin edit
// endpoint (explicit overwrite).
func (s *Store) UpsertSystemPrompt(ctx context.Context, p models.SystemPrompt) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal system prompt: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO system_prompts (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(p.Key), data, p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert system prompt: %w", err)
	}
	return nil
}

// EnsureSystemPromptDefault inserts p only if its key does not already
// exist, leaving any existing (possibly operator-edited) row untouched.
// Used by StartupReconciler so that restarts never clobber edits (§4.7).
func (s *Store) EnsureSystemPromptDefault(ctx context.Context, p models.SystemPrompt) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal system prompt: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO system_prompts (key, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		string(p.Key), data, p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert default system prompt: %w", err)
	}
	return nil
}

func (s *Store) GetSystemPrompt(ctx context.Context, key models.SystemPromptKey) (models.SystemPrompt, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM system_prompts WHERE key = ?`, string(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SystemPrompt{}, fmt.Errorf("system prompt %s: %w", key, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.SystemPrompt{}, fmt.Errorf("query system prompt: %w", err)
	}
	var p models.SystemPrompt
	if err := json.Unmarshal(data, &p); err != nil {
		return models.SystemPrompt{}, fmt.Errorf("unmarshal system prompt: %w", err)
	}
	return p, nil
}
