package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Metadata is provenance for synthetically generated datasets, carried over
// from the Python prototype's generator envelope (SPEC_FULL §C).
type Metadata struct {
	GeneratorID string    `json:"generator_id,omitempty"`
	SuiteID     string    `json:"suite_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Version     string    `json:"version,omitempty"`
	// SchemaHash is the SHA-256 of the canonical JSON encoding of the
	// dataset's seed fields, stamped at creation (SPEC_FULL §C).
	SchemaHash string `json:"schema_hash,omitempty"`
}

// SeedScenario is the human-readable description of what a dataset exercises.
type SeedScenario struct {
	Name            string `json:"name,omitempty"`
	Goal            string `json:"goal"`
	SyntheticDomain string `json:"synthetic_domain,omitempty"`
}

// Dataset is a named collection of test cases exercising one scenario.
type Dataset struct {
	ID          string       `json:"dataset_id"`
	Seed        SeedScenario `json:"dataset_seed"`
	RiskTier    string       `json:"dataset_risk_tier,omitempty"`
	TestCaseIDs []string     `json:"dataset_testcase_ids"`
	Metadata    *Metadata    `json:"dataset_metadata,omitempty"`
	CreatedAt   time.Time    `json:"dataset_created_at"`
	UpdatedAt   time.Time    `json:"dataset_updated_at"`
}

// ComputeSchemaHash returns the SHA-256, hex-encoded, of the canonical
// (sorted-key) JSON encoding of a dataset's seed fields (SPEC_FULL §C).
// Canonicalization round-trips through a generic map, since encoding/json
// sorts map keys alphabetically but preserves struct field declaration
// order.
func ComputeSchemaHash(seed SeedScenario) (string, error) {
	raw, err := json.Marshal(seed)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
