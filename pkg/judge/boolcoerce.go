package judge

import "strings"

// coerceBool implements the tolerant boolean coercion §4.3/§9 requires:
// LLMs sporadically reply with "passed": "false" or similar string-typed
// verdicts. Strings "true", "yes", "pass", "passed", "1" (case-insensitive,
// trimmed) coerce to true; every other string, and null/missing, coerce to
// false. Shared by both the single and batched response parsers so the
// two never drift (§9).
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "pass", "passed", "1":
			return true
		default:
			return false
		}
	case float64:
		return t != 0
	default:
		return false
	}
}
