package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

// seedDemoDataset adds one small dataset so a freshly reset install has
// something to launch an evaluation against right away.
func seedDemoDataset(ctx context.Context, s *store.Store) error {
	now := time.Now()
	seed := models.SeedScenario{Name: "Greeting smoke test", Goal: "Agent greets the user and offers help"}
	schemaHash, err := models.ComputeSchemaHash(seed)
	if err != nil {
		return fmt.Errorf("hash demo dataset seed: %w", err)
	}
	dataset := models.Dataset{
		ID:          "demo",
		Seed:        seed,
		TestCaseIDs: []string{"demo-tc-1", "demo-tc-2"},
		Metadata:    &models.Metadata{GeneratorID: "demo-seed", CreatedAt: now, SchemaHash: schemaHash},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.CreateDataset(ctx, dataset); err != nil {
		return fmt.Errorf("seed demo dataset: %w", err)
	}

	mailMock, _ := json.Marshal(map[string]string{"to": "demo@example.com", "subject": "Welcome"})
	testCases := []models.TestCase{
		models.NewTestCase(models.TestCase{
			ID: "demo-tc-1", DatasetID: dataset.ID, Input: "Hi there, can you help me?",
			ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "The response greets the user and offers assistance"},
			ReferenceSeeds:        map[string]json.RawMessage{"mail_inbox": mailMock},
		}),
		models.NewTestCase(models.TestCase{
			ID: "demo-tc-2", DatasetID: dataset.ID, Input: "What can you do?",
			ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "The response describes the agent's capabilities"},
		}),
	}
	for _, tc := range testCases {
		if err := s.CreateTestCase(ctx, tc); err != nil {
			return fmt.Errorf("seed demo test case %s: %w", tc.ID, err)
		}
	}
	return nil
}
