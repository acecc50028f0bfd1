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

func (s *Store) CreateProposal(ctx context.Context, p models.PromptProposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO prompt_proposals (id, agent_id, status, data) VALUES (?, ?, ?, ?)`,
		p.ID, p.AgentID, string(p.Status), data)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (models.PromptProposal, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM prompt_proposals WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PromptProposal{}, fmt.Errorf("proposal %s: %w", id, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.PromptProposal{}, fmt.Errorf("query proposal: %w", err)
	}
	var p models.PromptProposal
	if err := json.Unmarshal(data, &p); err != nil {
		return models.PromptProposal{}, fmt.Errorf("unmarshal proposal: %w", err)
	}
	return p, nil
}

// ListProposalsByAgent returns every proposal for an agent, optionally
// filtered to a single status; pass "" for status to return all.
func (s *Store) ListProposalsByAgent(ctx context.Context, agentID string, status models.ProposalStatus) ([]models.PromptProposal, error) {
	query := `SELECT data FROM prompt_proposals WHERE agent_id = ?`
	args := []any{agentID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var out []models.PromptProposal
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		var p models.PromptProposal
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProposal(ctx context.Context, p models.PromptProposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE prompt_proposals SET status = ?, data = ? WHERE id = ?`, string(p.Status), data, p.ID)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	return requireRowsAffected(res, "proposal", p.ID)
}
