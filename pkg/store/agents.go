package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// CreateAgent inserts a new agent. Returns evalerrors.ErrAlreadyExists if the
// id is already in use.
func (s *Store) CreateAgent(ctx context.Context, a models.Agent) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO agents (id, data) VALUES (?, ?)`, a.ID, data)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("agent %s: %w", a.ID, evalerrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent fetches one agent by id.
func (s *Store) GetAgent(ctx context.Context, id string) (models.Agent, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM agents WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Agent{}, fmt.Errorf("agent %s: %w", id, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.Agent{}, fmt.Errorf("query agent: %w", err)
	}
	var a models.Agent
	if err := json.Unmarshal(data, &a); err != nil {
		return models.Agent{}, fmt.Errorf("unmarshal agent: %w", err)
	}
	return a, nil
}

// ListAgents returns every agent, ordered by id for stable pagination-free
// listing (§3 scale: agents are expected to number in the dozens, not
// thousands).
func (s *Store) ListAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		var a models.Agent
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAgent overwrites an existing agent's row.
func (s *Store) UpdateAgent(ctx context.Context, a models.Agent) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET data = ? WHERE id = ?`, data, a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return requireRowsAffected(res, "agent", a.ID)
}

// DeleteAgent removes an agent along with every prompt version and prompt
// proposal that references it (§3 cascade). Evaluation runs are left intact
// as historical record; they retain a denormalized agent_id for lookup even
// after the agent itself is gone.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if err := requireRowsAffected(res, "agent", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prompt_versions WHERE agent_id = ?`, id); err != nil {
		return fmt.Errorf("delete prompt versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prompt_proposals WHERE agent_id = ?`, id); err != nil {
		return fmt.Errorf("delete prompt proposals: %w", err)
	}
	return tx.Commit()
}

// CreatePromptVersion inserts a new prompt version at the next available
// version number for v.AgentID (starting at 1), ignoring any version number
// the caller set. If activate is true, it atomically deactivates every
// other version for the agent first.
func (s *Store) CreatePromptVersion(ctx context.Context, v models.PromptVersion, activate bool) (models.PromptVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT MAX(version) FROM prompt_versions WHERE agent_id = ?`, v.AgentID).Scan(&maxVersion)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("query max version: %w", err)
	}
	v.Version = int(maxVersion.Int64) + 1
	v.IsActive = activate || maxVersion.Int64 == 0

	if v.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE prompt_versions SET data = json_set(data, '$.prompt_is_active', json('false')) WHERE agent_id = ?`, v.AgentID); err != nil {
			return models.PromptVersion{}, fmt.Errorf("deactivate prior versions: %w", err)
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("marshal prompt version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO prompt_versions (agent_id, version, data) VALUES (?, ?, ?)`, v.AgentID, v.Version, data); err != nil {
		return models.PromptVersion{}, fmt.Errorf("insert prompt version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.PromptVersion{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// ActivatePromptVersion makes (agentID, version) the single active prompt
// for agentID, deactivating every other version for that agent.
func (s *Store) ActivatePromptVersion(ctx context.Context, agentID string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE prompt_versions SET data = json_set(data, '$.prompt_is_active', json('true')) WHERE agent_id = ? AND version = ?`, agentID, version)
	if err != nil {
		return fmt.Errorf("activate prompt version: %w", err)
	}
	if err := requireRowsAffected(res, "prompt version", fmt.Sprintf("%s/%d", agentID, version)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE prompt_versions SET data = json_set(data, '$.prompt_is_active', json('false')) WHERE agent_id = ? AND version != ?`, agentID, version); err != nil {
		return fmt.Errorf("deactivate other versions: %w", err)
	}
	return tx.Commit()
}

// GetActivePromptVersion returns the single active prompt version for an
// agent, or evalerrors.ErrNotFound if the agent has no prompt versions yet.
func (s *Store) GetActivePromptVersion(ctx context.Context, agentID string) (models.PromptVersion, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM prompt_versions WHERE agent_id = ? AND json_extract(data, '$.prompt_is_active') = 1`, agentID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PromptVersion{}, fmt.Errorf("active prompt for agent %s: %w", agentID, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("query active prompt version: %w", err)
	}
	var v models.PromptVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return models.PromptVersion{}, fmt.Errorf("unmarshal prompt version: %w", err)
	}
	return v, nil
}

// ListPromptVersions returns every prompt version for an agent, newest first.
func (s *Store) ListPromptVersions(ctx context.Context, agentID string) ([]models.PromptVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM prompt_versions WHERE agent_id = ? ORDER BY version DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query prompt versions: %w", err)
	}
	defer rows.Close()

	var out []models.PromptVersion
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan prompt version: %w", err)
		}
		var v models.PromptVersion
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal prompt version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
