package api

import (
	"encoding/json"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// createDatasetRequest is the POST /api/datasets body. GeneratorID, SuiteID,
// and Version are only meaningful for synthetically generated datasets; the
// schema_hash stamp is always computed server-side regardless (SPEC_FULL §C).
type createDatasetRequest struct {
	ID          string              `json:"id"`
	Seed        models.SeedScenario `json:"seed"`
	RiskTier    string              `json:"risk_tier"`
	GeneratorID string              `json:"generator_id"`
	SuiteID     string              `json:"suite_id"`
	Version     string              `json:"version"`
}

// createTestCaseRequest is the POST /api/datasets/:id/testcases body.
type createTestCaseRequest struct {
	ID                    string                            `json:"id"`
	Name                  string                            `json:"name"`
	Description           string                            `json:"description"`
	Input                 string                            `json:"input"`
	ExpectedResponse      string                            `json:"expected_response"`
	MinimalToolSet        []string                          `json:"minimal_tool_set"`
	ToolExpectations      []models.ToolExpectation          `json:"tool_expectations"`
	BehaviorAssertions    []models.BehaviorAssertion        `json:"behavior_assertions"`
	ResponseQualityExpect *models.ResponseQualityAssertion  `json:"response_quality_expectation"`
	ReferenceSeeds        map[string]json.RawMessage        `json:"reference_seeds"`
	AssertionMode         models.AssertionMode              `json:"assertion_mode"`
	IsHoldout             bool                              `json:"is_holdout"`
}

// createAgentRequest is the POST /api/agents body.
type createAgentRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Endpoint    string   `json:"endpoint"`
	Model       string   `json:"model"`
	Team        string   `json:"team"`
	Tags        []string `json:"tags"`
	RiskTier    string   `json:"risk_tier"`
}

// createPromptVersionRequest is the POST /api/agents/:id/prompts body.
type createPromptVersionRequest struct {
	Text     string `json:"text"`
	Notes    string `json:"notes"`
	Activate bool   `json:"activate"`
}

// createJudgeConfigRequest is the POST /api/judge-configs body.
type createJudgeConfigRequest struct {
	ID                        string                    `json:"id"`
	ScoringMode               models.ScoringMode        `json:"scoring_mode"`
	Criteria                  []models.RubricCriterion  `json:"criteria"`
	SystemPrompt              string                    `json:"system_prompt"`
	UserPromptTemplateSingle  string                    `json:"user_prompt_template_single"`
	UserPromptTemplateBatched string                    `json:"user_prompt_template_batched"`
	Notes                     string                    `json:"notes"`
	Activate                  bool                      `json:"activate"`
}

// launchEvaluationRequest is the POST /api/evaluations body.
type launchEvaluationRequest struct {
	AgentID            string `json:"agent_id"`
	DatasetID          string `json:"dataset_id"`
	PromptVersion      int    `json:"prompt_version"`
	JudgeConfigID      string `json:"judge_config_id"`
	JudgeConfigVersion int    `json:"judge_config_version"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	VerboseLogging     bool   `json:"verbose_logging"`
}

// createRunAnnotationRequest is the POST /api/evaluations/:id/annotations body.
type createRunAnnotationRequest struct {
	TestCaseID string             `json:"test_case_id"`
	Outcome    int                `json:"outcome"`
	Efficiency models.Efficiency  `json:"efficiency"`
	Issues     []string           `json:"issues"`
	Notes      string             `json:"notes"`
}

// createActionAnnotationRequest is the POST /api/evaluations/:id/action-annotations body.
type createActionAnnotationRequest struct {
	TestCaseID       string                   `json:"test_case_id"`
	StepNumber       int                      `json:"step_number"`
	Correctness      int                      `json:"correctness"`
	ParameterQuality int                      `json:"parameter_quality"`
	InfoUtilization  int                      `json:"info_utilization"`
	ErrorContributor models.ErrorContributor  `json:"error_contributor"`
	Correction       string                   `json:"correction"`
}

// generateProposalsRequest is the POST /api/agents/:id/proposals/generate body.
type generateProposalsRequest struct {
	PromptVersion int `json:"prompt_version"`
}
