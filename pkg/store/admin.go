package store

import (
	"context"
	"fmt"
)

// resettableTables is the closed whitelist of tables ResetAllData is allowed
// to truncate. Declared once, by literal name, so that a future migration
// adding a table can't silently get wiped by a reset call that was never
// updated to know about it — and so nothing outside this package can widen
// a reset's blast radius by constructing a table name at runtime (§4.7, admin
// reset).
var resettableTables = []string{
	"cost_records",
	"action_annotations",
	"run_annotations",
	"evaluation_runs",
	"prompt_proposals",
	"testcases",
	"datasets",
	"prompt_versions",
	"agents",
	"judge_configs",
	"system_prompts",
}

// ResetAllData truncates every table in resettableTables inside a single
// transaction. Intended for local development and test fixtures only; the
// HTTP surface gates this behind an explicit confirmation (§6).
func (s *Store) ResetAllData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range resettableTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("reset table %s: %w", table, err)
		}
	}
	return tx.Commit()
}
