package models

import "time"

// CallType distinguishes which external LLM call a CostRecord bills (§3, §7).
type CallType string

const (
	CallTypeAgentInvocation    CallType = "agent_invocation"
	CallTypeJudgeLLM           CallType = "judge_llm"
	CallTypeProposalGeneration CallType = "proposal_generation"
)

// CostRecord is an append-only ledger line for one billable external call,
// emitted by AgentDispatcher, Judge, and ProposalGenerator alike (§3, §7).
type CostRecord struct {
	ID         string   `json:"cost_id"`
	RunID      string   `json:"cost_eval_id,omitempty"`
	TestCaseID string   `json:"cost_testcase_id,omitempty"`
	AgentID    string   `json:"cost_agent_id,omitempty"`
	CallType   CallType `json:"cost_call_type"`
	Model      string   `json:"cost_model,omitempty"`
	TokensIn   int      `json:"cost_tokens_in"`
	TokensOut  int      `json:"cost_tokens_out"`
	CostUSD    float64  `json:"cost_usd"`
	CreatedAt  time.Time `json:"cost_created_at"`
}

// CostSummary aggregates token/cost totals for one call type, used by
// Store.SumCostByRun's per-model rollup (SPEC_FULL §C).
type CostSummary struct {
	CallType  CallType `json:"call_type"`
	Model     string   `json:"model,omitempty"`
	TokensIn  int      `json:"tokens_in"`
	TokensOut int      `json:"tokens_out"`
	CostUSD   float64  `json:"cost_usd"`
	Count     int      `json:"count"`
}
