package config

// KeySource identifies where an LLM API key was resolved from, for
// ResolveAPIKey's cascade (see §6: "explicit judge key → explicit agent key →
// fallback placeholder").
type KeySource string

const (
	KeySourceJudgeExplicit KeySource = "judge_explicit"
	KeySourceAgentExplicit KeySource = "agent_explicit"
	KeySourcePlaceholder   KeySource = "placeholder"
)
