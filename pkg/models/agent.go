// Package models defines the data model shared by the evaluation run engine:
// agents under test, prompt versions, datasets, test cases, judge configs,
// evaluation runs, annotations, prompt proposals, and cost records (§3).
package models

import "time"

// Agent identifies an HTTP-reachable agent under test.
type Agent struct {
	ID          string   `json:"agent_id"`
	Name        string   `json:"agent_name"`
	Description string   `json:"agent_description,omitempty"`
	Endpoint    string   `json:"agent_endpoint"`
	Model       string   `json:"agent_model,omitempty"`
	Team        string   `json:"agent_team,omitempty"`
	Tags        []string `json:"agent_tags,omitempty"`
	// RiskTier is an optional default risk classification for datasets/runs
	// launched without an explicit override.
	RiskTier string `json:"agent_risk_tier,omitempty"`
	// SamplingRate, if set, is in [0,1] and is consulted by external callers
	// deciding whether to trace this agent's production traffic. The engine
	// itself does not sample — it is a declared property of the agent.
	SamplingRate *float64  `json:"agent_sampling_rate,omitempty"`
	CreatedAt    time.Time `json:"agent_created_at"`
	UpdatedAt    time.Time `json:"agent_updated_at"`
}

// PromptVersion is one immutable version of an agent's system prompt.
// (agent_id, version) is the composite key; version is a per-agent
// monotonically increasing integer starting at 1 (§3).
type PromptVersion struct {
	AgentID    string    `json:"agent_id"`
	Version    int       `json:"prompt_version"`
	Text       string    `json:"prompt_text"`
	Notes      string    `json:"prompt_notes,omitempty"`
	IsActive   bool      `json:"prompt_is_active"`
	CreatedAt  time.Time `json:"prompt_created_at"`
}
