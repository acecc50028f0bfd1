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

func (s *Store) CreateDataset(ctx context.Context, d models.Dataset) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO datasets (id, data) VALUES (?, ?)`, d.ID, data); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("dataset %s: %w", d.ID, evalerrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (models.Dataset, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM datasets WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Dataset{}, fmt.Errorf("dataset %s: %w", id, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.Dataset{}, fmt.Errorf("query dataset: %w", err)
	}
	var d models.Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return models.Dataset{}, fmt.Errorf("unmarshal dataset: %w", err)
	}
	return d, nil
}

func (s *Store) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM datasets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var out []models.Dataset
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		var d models.Dataset
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("unmarshal dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDataset(ctx context.Context, d models.Dataset) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE datasets SET data = ? WHERE id = ?`, data, d.ID)
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	return requireRowsAffected(res, "dataset", d.ID)
}

// DeleteDataset removes a dataset and every test case it owns (§3 cascade).
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if err := requireRowsAffected(res, "dataset", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM testcases WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("delete testcases: %w", err)
	}
	return tx.Commit()
}

func (s *Store) CreateTestCase(ctx context.Context, tc models.TestCase) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("marshal testcase: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO testcases (id, dataset_id, data) VALUES (?, ?, ?)`, tc.ID, tc.DatasetID, data); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("testcase %s: %w", tc.ID, evalerrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert testcase: %w", err)
	}
	return nil
}

func (s *Store) GetTestCase(ctx context.Context, id string) (models.TestCase, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM testcases WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TestCase{}, fmt.Errorf("testcase %s: %w", id, evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.TestCase{}, fmt.Errorf("query testcase: %w", err)
	}
	var tc models.TestCase
	if err := json.Unmarshal(data, &tc); err != nil {
		return models.TestCase{}, fmt.Errorf("unmarshal testcase: %w", err)
	}
	return tc, nil
}

// ListTestCasesByDataset returns every test case belonging to a dataset,
// ordered by id.
func (s *Store) ListTestCasesByDataset(ctx context.Context, datasetID string) ([]models.TestCase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM testcases WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query testcases: %w", err)
	}
	defer rows.Close()

	var out []models.TestCase
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan testcase: %w", err)
		}
		var tc models.TestCase
		if err := json.Unmarshal(data, &tc); err != nil {
			return nil, fmt.Errorf("unmarshal testcase: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTestCase(ctx context.Context, tc models.TestCase) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("marshal testcase: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE testcases SET data = ? WHERE id = ?`, data, tc.ID)
	if err != nil {
		return fmt.Errorf("update testcase: %w", err)
	}
	return requireRowsAffected(res, "testcase", tc.ID)
}

func (s *Store) DeleteTestCase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM testcases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete testcase: %w", err)
	}
	return requireRowsAffected(res, "testcase", id)
}
