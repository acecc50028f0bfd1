package models

import "time"

// ScoringMode selects whether the Judge grades via a plain binary verdict or
// inserts rubric criteria into the prompt (§3, §4.3).
type ScoringMode string

const (
	ScoringModeBinary ScoringMode = "binary"
	ScoringModeRubric ScoringMode = "rubric"
)

// IsValid reports whether m is a declared scoring mode.
func (m ScoringMode) IsValid() bool {
	return m == ScoringModeBinary || m == ScoringModeRubric
}

// RubricLevel is a single 1-5 descriptor within a rubric criterion.
type RubricLevel struct {
	Level       int    `json:"level"`
	Descriptor  string `json:"descriptor"`
}

// RubricCriterion is one named axis of a rubric, with ordered level
// descriptors and a pass threshold on the per-criterion average.
type RubricCriterion struct {
	Name          string        `json:"name"`
	Levels        []RubricLevel `json:"levels"`
	// PassThreshold defaults to 3.5 when zero (§3). Per Open Question
	// decision D.2, this field exists for a future numeric-aggregate
	// extension; today's Judge still emits per-assertion booleans only.
	PassThreshold float64 `json:"pass_threshold,omitempty"`
}

// JudgeConfig is a versioned bundle of prompt templates, scoring mode, and
// (for rubric mode) criteria. (id, version) is the composite key; exactly
// one version across the whole store is globally active (§3).
type JudgeConfig struct {
	ID          string            `json:"judge_config_id"`
	Version     int               `json:"judge_config_version"`
	ScoringMode ScoringMode       `json:"judge_config_scoring_mode"`
	Criteria    []RubricCriterion `json:"judge_config_criteria,omitempty"`
	SystemPrompt string           `json:"judge_config_system_prompt"`
	// UserPromptTemplateSingle renders one assertion's grading prompt.
	UserPromptTemplateSingle string `json:"judge_config_user_prompt_template_single"`
	// UserPromptTemplateBatched renders a batched prompt covering every
	// assertion for one tool (or one behavior block). Must reference
	// {{assertions_block}}, {{tool_name}}, {{tool_calls_json}},
	// {{actual_tools}}, {{test_input}}, {{test_description}}, and for
	// rubric mode {{rubric}} (§4.3).
	UserPromptTemplateBatched string `json:"judge_config_user_prompt_template_batched"`
	Notes      string    `json:"judge_config_notes,omitempty"`
	IsActive   bool      `json:"judge_config_is_active"`
	CreatedAt  time.Time `json:"judge_config_created_at"`
}
