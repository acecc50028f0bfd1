package models

import "time"

// RunStatus is the EvaluationRun lifecycle state (§3, §4.5). Transitions:
// pending → running → (completed | failed | cancelled). Terminal states
// never reopen.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether status is one that never transitions further.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// FailureMode is a heuristic (non-authoritative) label on a failed result (§4.4 step 8).
type FailureMode string

const (
	FailureModeToolNotCalled FailureMode = "tool_not_called"
	FailureModeWrongTool     FailureMode = "wrong_tool"
	FailureModeWrongArgs     FailureMode = "wrong_args"
	FailureModeHallucination FailureMode = "hallucination"
	FailureModePartialMatch  FailureMode = "partial_match"
)

// StatusHistoryEntry is one append-only, timestamped run-history line (§3, §5).
type StatusHistoryEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
	IsRateLimit   bool      `json:"is_rate_limit,omitempty"`
	AttemptNumber int       `json:"attempt_number,omitempty"`
	WaitSeconds   float64   `json:"wait_seconds,omitempty"`
}

// ToolCall is the agent's normalized record of one tool invocation (§6).
type ToolCall struct {
	Name            string          `json:"name"`
	Arguments       map[string]any  `json:"arguments"`
	Result          any             `json:"result,omitempty"`
	Success         *bool           `json:"success,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
	StepNumber      int             `json:"step_number,omitempty"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
}

// AgentMetadata is the telemetry block the agent-under-test may return
// alongside its response (§6).
type AgentMetadata struct {
	Model       string  `json:"model,omitempty"`
	TokensIn    int     `json:"tokens_in,omitempty"`
	TokensOut   int     `json:"tokens_out,omitempty"`
	CostUSD     float64 `json:"cost_usd,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// AgentResponse is AgentDispatcher's normalized output (§4.2).
type AgentResponse struct {
	ResponseText string        `json:"response_text"`
	ToolCalls    []ToolCall    `json:"tool_calls"`
	Metadata     AgentMetadata `json:"metadata"`
}

// ExpectedToolResult records whether one of minimal_tool_set's tools was
// actually called — pure string membership, no LLM involved (§4.4 step 3).
type ExpectedToolResult struct {
	ToolName   string `json:"tool_name"`
	WasCalled  bool   `json:"was_called"`
}

// AssertionResult is one judge verdict on one natural-language assertion (§3, §4.3).
type AssertionResult struct {
	Passed         bool   `json:"passed"`
	LLMJudgeOutput string `json:"llm_judge_output"`
}

// ArgumentAssertionResult groups AssertionResults for one tool argument.
type ArgumentAssertionResult struct {
	ArgName string            `json:"arg_name"`
	Results []AssertionResult `json:"results"`
}

// ToolExpectationResult is the graded outcome for one declared ToolExpectation.
type ToolExpectationResult struct {
	ToolName  string                    `json:"tool_name"`
	Arguments []ArgumentAssertionResult `json:"arguments"`
}

// ResponseQualityResult is the graded outcome of the single response-quality claim.
type ResponseQualityResult struct {
	AssertionResult
}

// BehaviorAssertionResult is the graded outcome of one hybrid-mode behavior assertion.
type BehaviorAssertionResult struct {
	Assertion string `json:"assertion"`
	AssertionResult
}

// TestCaseResult is the embedded per-case outcome inside an EvaluationRun (§3).
type TestCaseResult struct {
	TestCaseID      string        `json:"testcase_id"`
	Passed          bool          `json:"passed"`
	ResponseText    string        `json:"response_text"`
	ToolCalls       []ToolCall    `json:"tool_calls"`
	AssertionMode   AssertionMode `json:"assertion_mode"`

	ExpectedTools       []ExpectedToolResult    `json:"expected_tools,omitempty"`
	ToolExpectations    []ToolExpectationResult `json:"tool_expectations,omitempty"`
	ResponseQuality     *ResponseQualityResult  `json:"response_quality,omitempty"`
	BehaviorAssertions  []BehaviorAssertionResult `json:"behavior_assertions,omitempty"`

	ExecutionError string      `json:"execution_error,omitempty"`
	FailureMode    FailureMode `json:"failure_mode,omitempty"`
	RetryCount     int         `json:"retry_count"`

	AgentCallDurationSeconds float64   `json:"agent_call_duration_seconds"`
	JudgeCallDurationSeconds float64   `json:"judge_call_duration_seconds"`
	TotalDurationSeconds     float64   `json:"total_duration_seconds"`
	CompletedAt              time.Time `json:"completed_at"`
}

// Regression is one testcase that passed in the agent's prior completed run
// on the same dataset and failed in the current one (§3, §4.5, §8 S6).
type Regression struct {
	TestCaseID      string `json:"testcase_id"`
	PreviousResult  string `json:"previous_result"` // "passed"
	CurrentResult   string `json:"current_result"`  // "failed"
}

// EvaluationRun is one execution of a dataset against an agent (§3).
type EvaluationRun struct {
	ID                  string    `json:"eval_id"`
	DatasetID           string    `json:"eval_dataset_id"`
	AgentID             string    `json:"eval_agent_id"`
	PromptVersion       int       `json:"eval_prompt_version"`
	JudgeConfigID       string    `json:"eval_judge_config_id"`
	JudgeConfigVersion  int       `json:"eval_judge_config_version"`
	AgentEndpoint       string    `json:"eval_agent_endpoint"`
	Timeout             time.Duration `json:"eval_timeout"`
	VerboseLogging      bool      `json:"eval_verbose_logging"`
	Status              RunStatus `json:"eval_status"`
	StatusMessage       string    `json:"eval_status_message"`
	StatusHistory       []StatusHistoryEntry `json:"eval_status_history"`

	TotalTests        int `json:"eval_total_tests"`
	CompletedTests    int `json:"eval_completed_tests"`
	PassedCount       int `json:"eval_passed_count"`
	FailedTests       int `json:"eval_failed_tests"`
	InProgressTests   int `json:"eval_in_progress_tests"`

	TestCases []TestCaseResult `json:"eval_test_cases"`

	RateLimitHits      int     `json:"eval_rate_limit_hits"`
	RetryWaitSeconds    float64 `json:"eval_retry_wait_seconds"`

	Regressions []Regression `json:"eval_regressions"`
	Warnings    []string     `json:"eval_warnings,omitempty"`

	CreatedAt   time.Time  `json:"eval_created_at"`
	StartedAt   *time.Time `json:"eval_started_at,omitempty"`
	CompletedAt *time.Time `json:"eval_completed_at,omitempty"`
}
