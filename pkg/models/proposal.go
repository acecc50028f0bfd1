package models

import "time"

// ProposalCategory classifies what kind of prompt change a proposal makes (§3).
type ProposalCategory string

const (
	ProposalCategoryCapability ProposalCategory = "capability"
	ProposalCategoryQuality    ProposalCategory = "quality"
	ProposalCategoryGuardrails ProposalCategory = "guardrails"
)

// ProposalPriority is the operator-facing urgency of a proposal (§3).
type ProposalPriority string

const (
	ProposalPriorityHigh   ProposalPriority = "high"
	ProposalPriorityMedium ProposalPriority = "medium"
	ProposalPriorityLow    ProposalPriority = "low"
)

// ProposalStatus tracks a PromptProposal through the review workflow (§3, §4.6).
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusApplied   ProposalStatus = "applied"
	ProposalStatusDismissed ProposalStatus = "dismissed"
)

// PromptDiff is a line-level, best-effort remove-then-add edit applied to a
// prompt version's text when a proposal is accepted (§4.6 Apply operation).
type PromptDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// PromptProposal is a judge-generated suggestion for a new prompt version,
// derived from one or more annotation groups on an agent's recent runs
// (§3, §4.6).
type PromptProposal struct {
	ID                string           `json:"proposal_id"`
	AgentID           string           `json:"proposal_agent_id"`
	BasePromptVersion int              `json:"proposal_base_prompt_version"`
	Title             string           `json:"proposal_title"`
	Category          ProposalCategory `json:"proposal_category"`
	Confidence        float64          `json:"proposal_confidence"`
	Priority          ProposalPriority `json:"proposal_priority"`
	PatternSource     string           `json:"proposal_pattern_source"`
	Impact            string           `json:"proposal_impact"`
	Diff              PromptDiff       `json:"proposal_diff"`
	Reasoning         string           `json:"proposal_reasoning"`
	Status            ProposalStatus   `json:"proposal_status"`
	CreatedAt         time.Time        `json:"proposal_created_at"`
	ResolvedAt        *time.Time       `json:"proposal_resolved_at,omitempty"`
}
