package models

import "time"

// Efficiency is a human reviewer's judgment of how directly an agent reached
// its result (§3 RunAnnotation).
type Efficiency string

const (
	EfficiencyEfficient  Efficiency = "efficient"
	EfficiencyAcceptable Efficiency = "acceptable"
	EfficiencyWasteful   Efficiency = "wasteful"
)

// RunAnnotation is a human reviewer's run-level label on one completed test
// case result (§3). Outcome is a 1-5 rating; Issues is the tag list
// ProposalGenerator groups by (§4.6 step 1).
type RunAnnotation struct {
	ID         string     `json:"annotation_id"`
	RunID      string     `json:"annotation_eval_id"`
	TestCaseID string     `json:"annotation_testcase_id"`
	Outcome    int        `json:"annotation_outcome"`
	Efficiency Efficiency `json:"annotation_efficiency,omitempty"`
	Issues     []string   `json:"annotation_issues,omitempty"`
	Notes      string     `json:"annotation_notes,omitempty"`
	CreatedAt  time.Time  `json:"annotation_created_at"`
}

// ErrorContributor classifies whether one tool call was itself a cause of
// the case's failure (§3 ActionAnnotation).
type ErrorContributor string

const (
	ErrorContributorNone      ErrorContributor = "none"
	ErrorContributorPartial   ErrorContributor = "partial"
	ErrorContributorPrimary   ErrorContributor = "primary"
)

// ActionAnnotation is a human reviewer's per-tool-call label within an
// annotated result (§3). Correction, when set, is the reviewer's proposed
// fix for that specific call — ProposalGenerator samples these as
// "action-level correction samples" (§4.6 step 2).
type ActionAnnotation struct {
	ID               string           `json:"action_annotation_id"`
	RunID            string           `json:"action_annotation_eval_id"`
	TestCaseID       string           `json:"action_annotation_testcase_id"`
	StepNumber       int              `json:"action_annotation_step_number"`
	Correctness      int              `json:"action_annotation_correctness"`
	ParameterQuality int              `json:"action_annotation_parameter_quality"`
	InfoUtilization  int              `json:"action_annotation_info_utilization"`
	ErrorContributor ErrorContributor `json:"action_annotation_error_contributor,omitempty"`
	Correction       string           `json:"action_annotation_correction,omitempty"`
	CreatedAt        time.Time        `json:"action_annotation_created_at"`
}
