package models

import "encoding/json"

// AssertionMode selects which grading sections TestCaseEvaluator runs for a
// test case (§3, §4.4). This is the sum type the REDESIGN FLAGS call for:
// the source's string-keyed map of mode → behavior flags becomes this
// closed set of constructors plus an exhaustive Behaviors() table.
type AssertionMode string

const (
	AssertionModeResponseOnly AssertionMode = "response_only"
	AssertionModeToolLevel    AssertionMode = "tool_level"
	AssertionModeHybrid       AssertionMode = "hybrid"
)

// IsValid reports whether m is one of the three declared modes.
func (m AssertionMode) IsValid() bool {
	switch m {
	case AssertionModeResponseOnly, AssertionModeToolLevel, AssertionModeHybrid:
		return true
	default:
		return false
	}
}

// AssertionBehaviors is the exhaustive mode → behavior-flags table from §4.4 step 1.
type AssertionBehaviors struct {
	EvaluateExpectedTools     bool
	EvaluateToolExpectations  bool
	EvaluateBehaviorAssertions bool
	EvaluateResponseQuality   bool
}

// Behaviors returns the evaluation behavior vector for mode. Unknown modes
// (should not occur once TestCase construction has run auto-detection)
// fall back to response_only's vector.
func (m AssertionMode) Behaviors() AssertionBehaviors {
	switch m {
	case AssertionModeToolLevel:
		return AssertionBehaviors{
			EvaluateExpectedTools:    true,
			EvaluateToolExpectations: true,
			EvaluateResponseQuality:  true,
		}
	case AssertionModeHybrid:
		return AssertionBehaviors{
			EvaluateBehaviorAssertions: true,
			EvaluateResponseQuality:    true,
		}
	case AssertionModeResponseOnly:
		fallthrough
	default:
		return AssertionBehaviors{EvaluateResponseQuality: true}
	}
}

// ArgumentAssertion is a natural-language claim about one tool-call argument.
type ArgumentAssertion struct {
	ArgName    string   `json:"arg_name"`
	Assertions []string `json:"assertions"`
}

// ToolExpectation declares an expected tool call and the per-argument claims
// the judge should check against the agent's actual call.
type ToolExpectation struct {
	ToolName  string              `json:"tool_name"`
	Arguments []ArgumentAssertion `json:"arguments"`
}

// BehaviorAssertion is a free-form claim addressing both tool use and
// response content jointly (hybrid mode).
type BehaviorAssertion struct {
	Assertion string `json:"assertion"`
}

// ResponseQualityAssertion is a single natural-language claim about the
// response text.
type ResponseQualityAssertion struct {
	Assertion string `json:"assertion"`
}

// ReferenceSeedItem is an inline mock payload (email/docx/teams/...) a test
// case may carry for datasets whose tool calls are simulated rather than
// live (SPEC_FULL §C). The engine treats these as opaque; only the kind
// discriminator is inspected by generic tooling.
type ReferenceSeedItem struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// TestCase is one input + grading payload belonging to a Dataset (§3).
type TestCase struct {
	ID                     string                    `json:"tc_id"`
	DatasetID              string                    `json:"tc_dataset_id"`
	Name                   string                    `json:"tc_name,omitempty"`
	Description            string                    `json:"tc_description,omitempty"`
	Input                  string                    `json:"tc_input"`
	ExpectedResponse       string                    `json:"tc_expected_response"`
	MinimalToolSet         []string                  `json:"tc_minimal_tool_set,omitempty"`
	ToolExpectations       []ToolExpectation         `json:"tc_tool_expectations,omitempty"`
	BehaviorAssertions     []BehaviorAssertion       `json:"tc_behavior_assertions,omitempty"`
	ResponseQualityExpect  *ResponseQualityAssertion `json:"tc_response_quality_expectation,omitempty"`
	AssertionMode          AssertionMode             `json:"tc_assertion_mode"`
	IsHoldout              bool                      `json:"tc_is_holdout"`
	ReferenceSeeds         map[string]json.RawMessage `json:"tc_reference_seeds,omitempty"`
}

// NewTestCase constructs a TestCase and auto-detects AssertionMode when the
// caller leaves it unset, per §3: tool_expectations populated ⇒ tool_level;
// else behavior_assertions populated ⇒ hybrid; else response_only.
// tool_expectations wins over behavior_assertions when both are present
// (§8 boundary behavior).
func NewTestCase(tc TestCase) TestCase {
	if tc.AssertionMode == "" {
		switch {
		case len(tc.ToolExpectations) > 0:
			tc.AssertionMode = AssertionModeToolLevel
		case len(tc.BehaviorAssertions) > 0:
			tc.AssertionMode = AssertionModeHybrid
		default:
			tc.AssertionMode = AssertionModeResponseOnly
		}
	}
	return tc
}
