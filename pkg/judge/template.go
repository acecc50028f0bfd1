package judge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// GradeContext carries the test-case fields the rendered prompt may
// reference regardless of grading shape (§4.3: "assertion_context block").
type GradeContext struct {
	TestInput       string
	TestDescription string
	ActualResponse  string
	ActualToolNames []string
	ToolCallsJSON   string
	Rubric          string
}

func renderRubric(jc models.JudgeConfig) string {
	if jc.ScoringMode != models.ScoringModeRubric || len(jc.Criteria) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range jc.Criteria {
		fmt.Fprintf(&b, "Criterion: %s\n", c.Name)
		for _, lvl := range c.Levels {
			fmt.Fprintf(&b, "  %d - %s\n", lvl.Level, lvl.Descriptor)
		}
	}
	return b.String()
}

// renderSingle fills a single-assertion grading template. Placeholders:
// {{assertion}}, {{test_input}}, {{test_description}}, {{actual_response}},
// {{tool_calls_json}}, {{actual_tools}}, and for rubric mode {{rubric}}.
func renderSingle(tmpl string, assertion string, gctx GradeContext, jc models.JudgeConfig) string {
	r := strings.NewReplacer(
		"{{assertion}}", assertion,
		"{{test_input}}", gctx.TestInput,
		"{{test_description}}", gctx.TestDescription,
		"{{actual_response}}", gctx.ActualResponse,
		"{{tool_calls_json}}", gctx.ToolCallsJSON,
		"{{actual_tools}}", strings.Join(gctx.ActualToolNames, ", "),
		"{{rubric}}", renderRubric(jc),
	)
	return r.Replace(tmpl)
}

// renderBatched fills the batched-assertion grading template (§4.3). The
// assertions block is a numbered, indexed list so the model can key its
// reply by index.
func renderBatched(tmpl string, toolName string, assertions []string, gctx GradeContext, jc models.JudgeConfig) string {
	var block strings.Builder
	for i, a := range assertions {
		block.WriteString(strconv.Itoa(i))
		block.WriteString(". ")
		block.WriteString(a)
		block.WriteString("\n")
	}

	r := strings.NewReplacer(
		"{{assertions_block}}", block.String(),
		"{{tool_name}}", toolName,
		"{{tool_calls_json}}", gctx.ToolCallsJSON,
		"{{actual_tools}}", strings.Join(gctx.ActualToolNames, ", "),
		"{{test_input}}", gctx.TestInput,
		"{{test_description}}", gctx.TestDescription,
		"{{rubric}}", renderRubric(jc),
	)
	return r.Replace(tmpl)
}
