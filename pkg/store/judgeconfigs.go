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

// CreateJudgeConfig inserts a new judge config version at the next available
// version number for jc.ID (starting at 1). If activate is true, or this is
// the judge config's first version, it becomes the sole globally active
// config (§3: exactly one active version across the whole store).
func (s *Store) CreateJudgeConfig(ctx context.Context, jc models.JudgeConfig, activate bool) (models.JudgeConfig, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.JudgeConfig{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(version) FROM judge_configs WHERE id = ?`, jc.ID).Scan(&maxVersion); err != nil {
		return models.JudgeConfig{}, fmt.Errorf("query max version: %w", err)
	}
	jc.Version = int(maxVersion.Int64) + 1
	jc.IsActive = activate || maxVersion.Int64 == 0

	if jc.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE judge_configs SET data = json_set(data, '$.judge_config_is_active', json('false'))`); err != nil {
			return models.JudgeConfig{}, fmt.Errorf("deactivate prior judge configs: %w", err)
		}
	}

	data, err := json.Marshal(jc)
	if err != nil {
		return models.JudgeConfig{}, fmt.Errorf("marshal judge config: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO judge_configs (id, version, data) VALUES (?, ?, ?)`, jc.ID, jc.Version, data); err != nil {
		return models.JudgeConfig{}, fmt.Errorf("insert judge config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.JudgeConfig{}, fmt.Errorf("commit: %w", err)
	}
	return jc, nil
}

// ActivateJudgeConfig makes (id, version) the single globally active judge
// config, deactivating every other (id, version) pair.
func (s *Store) ActivateJudgeConfig(ctx context.Context, id string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE judge_configs SET data = json_set(data, '$.judge_config_is_active', json('true')) WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("activate judge config: %w", err)
	}
	if err := requireRowsAffected(res, "judge config", fmt.Sprintf("%s/%d", id, version)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE judge_configs SET data = json_set(data, '$.judge_config_is_active', json('false')) WHERE NOT (id = ? AND version = ?)`, id, version); err != nil {
		return fmt.Errorf("deactivate other judge configs: %w", err)
	}
	return tx.Commit()
}

// GetActiveJudgeConfig returns the single globally active judge config.
func (s *Store) GetActiveJudgeConfig(ctx context.Context) (models.JudgeConfig, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM judge_configs WHERE json_extract(data, '$.judge_config_is_active') = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JudgeConfig{}, fmt.Errorf("active judge config: %w", evalerrors.ErrNotFound)
	}
	if err != nil {
		return models.JudgeConfig{}, fmt.Errorf("query active judge config: %w", err)
	}
	var jc models.JudgeConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return models.JudgeConfig{}, fmt.Errorf("unmarshal judge config: %w", err)
	}
	return jc, nil
}

func (s *Store) ListJudgeConfigs(ctx context.Context) ([]models.JudgeConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM judge_configs ORDER BY id, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("query judge configs: %w", err)
	}
	defer rows.Close()

	var out []models.JudgeConfig
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan judge config: %w", err)
		}
		var jc models.JudgeConfig
		if err := json.Unmarshal(data, &jc); err != nil {
			return nil, fmt.Errorf("unmarshal judge config: %w", err)
		}
		out = append(out, jc)
	}
	return out, rows.Err()
}
