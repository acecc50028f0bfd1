package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Store) CreateRunAnnotation(ctx context.Context, a models.RunAnnotation) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal annotation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO run_annotations (id, run_id, data) VALUES (?, ?, ?)`, a.ID, a.RunID, data)
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

// ListRunAnnotations returns every annotation for one run, used by
// ProposalGenerator to group failures by tag (§4.6 step 1).
func (s *Store) ListRunAnnotations(ctx context.Context, runID string) ([]models.RunAnnotation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM run_annotations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var out []models.RunAnnotation
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		var a models.RunAnnotation
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateActionAnnotation(ctx context.Context, a models.ActionAnnotation) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action annotation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO action_annotations (id, run_id, testcase_id, data) VALUES (?, ?, ?, ?)`, a.ID, a.RunID, a.TestCaseID, data)
	if err != nil {
		return fmt.Errorf("insert action annotation: %w", err)
	}
	return nil
}

// ListActionAnnotations returns every per-tool-call annotation for one run,
// used by ProposalGenerator to sample action-level correction text (§4.6 step 2).
func (s *Store) ListActionAnnotations(ctx context.Context, runID string) ([]models.ActionAnnotation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM action_annotations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query action annotations: %w", err)
	}
	defer rows.Close()

	var out []models.ActionAnnotation
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan action annotation: %w", err)
		}
		var a models.ActionAnnotation
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal action annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
