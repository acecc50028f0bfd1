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

// runTimeLayout is a fixed-width, zero-padded RFC3339 variant: unlike
// time.RFC3339Nano (which trims trailing fractional zeros), every
// timestamp formatted with this layout has the same length, so ORDER BY
// created_at on the stored TEXT column sorts identically to chronological
// order.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) CreateRun(ctx context.Context, r models.EvaluationRun) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs (id, agent_id, dataset_id, status, created_at, data) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgentID, r.DatasetID, string(r.Status), r.CreatedAt.UTC().Format(runTimeLayout), data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %s: %w", r.ID, evalerrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (models.EvaluationRun, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM evaluation_runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EvaluationRun{}, fmt.Errorf("run %s: %w", id, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("query run: %w", err)
	}
	var r models.EvaluationRun
	if err := json.Unmarshal(data, &r); err != nil {
		return models.EvaluationRun{}, fmt.Errorf("unmarshal run: %w", err)
	}
	return r, nil
}

// UpdateRun overwrites a run's row, keeping the denormalized status column
// in sync so ListRunsByStatus stays cheap without decoding every row.
func (s *Store) UpdateRun(ctx context.Context, r models.EvaluationRun) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE evaluation_runs SET status = ?, data = ? WHERE id = ?`, string(r.Status), data, r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return requireRowsAffected(res, "run", r.ID)
}

// ListRunsByAgent returns every run for an agent, most recently created
// first, ordered by the created_at column rather than id — run IDs are
// random UUIDs and carry no creation-order information.
func (s *Store) ListRunsByAgent(ctx context.Context, agentID string) ([]models.EvaluationRun, error) {
	return s.queryRuns(ctx, `SELECT data FROM evaluation_runs WHERE agent_id = ? ORDER BY created_at DESC`, agentID)
}

// ListRuns returns every run in the store, most recently created first. Used
// by the HTTP API's unfiltered GET /api/evaluations listing.
func (s *Store) ListRuns(ctx context.Context) ([]models.EvaluationRun, error) {
	return s.queryRuns(ctx, `SELECT data FROM evaluation_runs ORDER BY created_at DESC`)
}

// ListRunsByStatus returns every run currently in the given status, used by
// StartupReconciler's orphan sweep (§4.7).
func (s *Store) ListRunsByStatus(ctx context.Context, status models.RunStatus) ([]models.EvaluationRun, error) {
	return s.queryRuns(ctx, `SELECT data FROM evaluation_runs WHERE status = ? ORDER BY created_at`, string(status))
}

// LastCompletedRun returns the most recent completed run for (agentID,
// datasetID) other than excludeRunID, used for regression detection (§4.5).
// Returns evalerrors.ErrNotFound if there is none.
func (s *Store) LastCompletedRun(ctx context.Context, agentID, datasetID, excludeRunID string) (models.EvaluationRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM evaluation_runs WHERE agent_id = ? AND dataset_id = ? AND status = ? AND id != ? ORDER BY created_at DESC LIMIT 1`,
		agentID, datasetID, string(models.RunStatusCompleted), excludeRunID,
	)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("query last completed run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return models.EvaluationRun{}, fmt.Errorf("no prior completed run for agent %s dataset %s: %w", agentID, datasetID, evalerrors.ErrNotFound)
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return models.EvaluationRun{}, fmt.Errorf("scan run: %w", err)
	}
	var r models.EvaluationRun
	if err := json.Unmarshal(data, &r); err != nil {
		return models.EvaluationRun{}, fmt.Errorf("unmarshal run: %w", err)
	}
	return r, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]models.EvaluationRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []models.EvaluationRun
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var r models.EvaluationRun
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
