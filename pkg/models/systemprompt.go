package models

import "time"

// SystemPromptKey identifies one of the engine's built-in prompt templates
// that StartupReconciler seeds on first boot and operators may subsequently
// edit (grounded on the Python prototype's configurable-prompts feature).
type SystemPromptKey string

const (
	SystemPromptKeyProposalGenerationSystem SystemPromptKey = "proposal_generation_system"
	SystemPromptKeyProposalGenerationUser   SystemPromptKey = "proposal_generation_user"
	SystemPromptKeyComparisonExplanation    SystemPromptKey = "comparison_explanation"
)

// SystemPrompt is one operator-editable built-in prompt template.
type SystemPrompt struct {
	Key       SystemPromptKey `json:"key"`
	Name      string          `json:"name"`
	Content   string          `json:"content"`
	UpdatedAt time.Time       `json:"updated_at"`
}
