package startup

// These are the engine's built-in defaults, seeded once by
// ensureDefaultJudgeConfigs / ensureDefaultSystemPrompts and freely editable
// by operators afterward. Placeholder names must match what judge.renderSingle
// / judge.renderBatched and proposals.renderContextBlock substitute.

const defaultJudgeSystemPrompt = `You are grading a single interaction between an AI agent and a user. ` +
	`You are given the agent's input, its final response, and any tool calls it made. ` +
	`Judge each assertion strictly against only the evidence provided. Reply with JSON only.`

const improvedJudgeSystemPrompt = defaultJudgeSystemPrompt + ` Pay particular attention to whether ` +
	`the tool the agent called actually matches what the assertion expects, not just whether a tool was called.`

const defaultJudgeUserTemplateSingle = `Test input: {{test_input}}
Test description: {{test_description}}
Agent response: {{actual_response}}
Tools called: {{actual_tools}}
Tool call detail: {{tool_calls_json}}
{{rubric}}
Assertion to grade: {{assertion}}

Reply with JSON: {"passed": true|false, "reasoning": "..."}`

const defaultJudgeUserTemplateBatched = `Test input: {{test_input}}
Test description: {{test_description}}
Tool under evaluation: {{tool_name}}
Tools called: {{actual_tools}}
Tool call detail: {{tool_calls_json}}
{{rubric}}
Assertions (grade each by index):
{{assertions_block}}

Reply with JSON: {"results": [{"index": 0, "passed": true|false, "reasoning": "..."}]}`

const defaultProposalSystemPrompt = `You analyze an AI agent's system prompt together with a recurring ` +
	`failure pattern drawn from its evaluation history, and propose a minimal, targeted edit to the prompt ` +
	`that would address the pattern without disturbing unrelated behavior. Reply with JSON only.`

const defaultProposalUserTemplate = `Current system prompt:
{{current_prompt}}

Recurring issue tag: {{tag}}
Occurrences: {{occurrence_count}} of {{total_runs}} completed runs
Reviewer notes:
{{sample_notes}}
Reviewer corrections:
{{corrections}}
Tool outcome summary:
{{tool_summary}}
Example transcripts:
{{excerpts}}

Reply with JSON: {"title": "...", "category": "capability|quality|guardrails", ` +
	`"confidence": 0.0-1.0, "priority": "low|medium|high", "pattern_source": "...", "impact": "...", ` +
	`"diff": {"added": ["..."], "removed": ["..."]}, "reasoning": "..."}`

const defaultComparisonExplanationPrompt = `You are given two evaluation runs of the same agent against the ` +
	`same dataset, run at different prompt versions. Summarize in plain language what changed between the ` +
	`two runs: which test cases newly passed, which newly failed (regressions), and whether the overall ` +
	`trend supports keeping the newer prompt version active.`
