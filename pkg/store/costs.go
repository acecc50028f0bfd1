package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// CreateCostRecord appends one billing ledger line. Cost records are
// immutable and never updated or deleted outside of an admin reset (§3, §7).
func (s *Store) CreateCostRecord(ctx context.Context, c models.CostRecord) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cost record: %w", err)
	}
	var runID any
	if c.RunID != "" {
		runID = c.RunID
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO cost_records (id, run_id, data) VALUES (?, ?, ?)`, c.ID, runID, data)
	if err != nil {
		return fmt.Errorf("insert cost record: %w", err)
	}
	return nil
}

// ListCostRecordsByRun returns every cost record billed against a run.
func (s *Store) ListCostRecordsByRun(ctx context.Context, runID string) ([]models.CostRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM cost_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cost records: %w", err)
	}
	defer rows.Close()

	var out []models.CostRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan cost record: %w", err)
		}
		var c models.CostRecord
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshal cost record: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SumCostByRun aggregates token and cost totals for one run, grouped by
// call_type and model (SPEC_FULL §C, grounded on sqlite_service.py's
// cost-records indexing).
func (s *Store) SumCostByRun(ctx context.Context, runID string) ([]models.CostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			json_extract(data, '$.cost_call_type') AS call_type,
			COALESCE(json_extract(data, '$.cost_model'), '') AS model,
			COALESCE(SUM(json_extract(data, '$.cost_tokens_in')), 0),
			COALESCE(SUM(json_extract(data, '$.cost_tokens_out')), 0),
			COALESCE(SUM(json_extract(data, '$.cost_usd')), 0),
			COUNT(*)
		FROM cost_records
		WHERE run_id = ?
		GROUP BY call_type, model
		ORDER BY call_type, model
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sum cost by run: %w", err)
	}
	defer rows.Close()

	var out []models.CostSummary
	for rows.Next() {
		var c models.CostSummary
		if err := rows.Scan(&c.CallType, &c.Model, &c.TokensIn, &c.TokensOut, &c.CostUSD, &c.Count); err != nil {
			return nil, fmt.Errorf("scan cost summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
