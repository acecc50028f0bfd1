// Package evaluator implements TestCaseEvaluator (§4.4): it dispatches one
// test case to the agent under test, grades the result against the test
// case's assertion payloads via the Judge, and classifies the outcome.
package evaluator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/dispatch"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// Params are the per-run inputs held constant across every test case in
// that run.
type Params struct {
	RunID         string
	DatasetID     string
	AgentID       string
	AgentEndpoint string
	SystemPrompt  string
	Timeout       time.Duration
	Verbose       bool
}

// Callbacks let the caller (RunCoordinator) observe rate-limit events and
// cost records without the Evaluator depending on the Store directly.
type Callbacks struct {
	OnRateLimit func(attempt int, wait time.Duration)
	OnCost      func(models.CostRecord)
}

// Evaluator ties AgentDispatcher and Judge together per test case.
type Evaluator struct {
	dispatcher *dispatch.Dispatcher
	judge      *judge.Client
	logger     *slog.Logger
}

// New builds an Evaluator from an already-constructed dispatcher and judge
// client; both are shared, long-lived collaborators (§5).
func New(d *dispatch.Dispatcher, j *judge.Client, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{dispatcher: d, judge: j, logger: logger}
}

// Evaluate runs the full algorithm of §4.4 for one test case and returns a
// fully-shaped TestCaseResult. Only fatal infrastructure errors (none occur
// within this function; persistence is the caller's concern) are not
// recovered here — every dispatch/judge fault degrades into the result
// instead of propagating (§4.4, §7).
func (e *Evaluator) Evaluate(ctx context.Context, tc models.TestCase, jc models.JudgeConfig, p Params, cb Callbacks) models.TestCaseResult {
	start := time.Now()
	behaviors := tc.AssertionMode.Behaviors()

	result := models.TestCaseResult{
		TestCaseID:    tc.ID,
		AssertionMode: tc.AssertionMode,
	}

	onRateLimit := func(attempt int, wait time.Duration) {
		if cb.OnRateLimit != nil {
			cb.OnRateLimit(attempt, wait)
		}
	}
	emitCost := func(callType models.CallType, u judge.Usage) {
		if cb.OnCost == nil {
			return
		}
		cb.OnCost(models.CostRecord{
			RunID:      p.RunID,
			TestCaseID: tc.ID,
			AgentID:    p.AgentID,
			CallType:   callType,
			Model:      u.Model,
			TokensIn:   u.TokensIn,
			TokensOut:  u.TokensOut,
			CreatedAt:  time.Now(),
		})
	}

	// Step 2: dispatch.
	agentStart := time.Now()
	resp, attempts, err := e.dispatcher.Dispatch(ctx, dispatch.Request{
		Endpoint:        p.AgentEndpoint,
		Input:           tc.Input,
		DatasetID:       p.DatasetID,
		TestCaseID:      tc.ID,
		AgentID:         p.AgentID,
		EvaluationRunID: p.RunID,
		SystemPrompt:    p.SystemPrompt,
		Timeout:         p.Timeout,
	}, onRateLimit)
	result.AgentCallDurationSeconds = time.Since(agentStart).Seconds()
	result.RetryCount = attempts - 1
	if result.RetryCount < 0 {
		result.RetryCount = 0
	}

	if err != nil {
		result.ExecutionError = err.Error()
		result.Passed = false
		result.TotalDurationSeconds = time.Since(start).Seconds()
		result.CompletedAt = time.Now()
		if p.Verbose {
			e.logger.Debug("testcase dispatch failed", "testcase_id", tc.ID, "error", err)
		}
		return result
	}

	result.ResponseText = resp.ResponseText
	result.ToolCalls = resp.ToolCalls
	if resp.Metadata.TokensIn > 0 || resp.Metadata.TokensOut > 0 {
		emitCost(models.CallTypeAgentInvocation, judge.Usage{
			TokensIn:  resp.Metadata.TokensIn,
			TokensOut: resp.Metadata.TokensOut,
			Model:     resp.Metadata.Model,
		})
	}

	calledTools := make(map[string]bool, len(resp.ToolCalls))
	for _, tcall := range resp.ToolCalls {
		calledTools[tcall.Name] = true
	}

	gctx := judge.GradeContext{
		TestInput:       tc.Input,
		TestDescription: tc.Description,
		ActualResponse:  resp.ResponseText,
		ActualToolNames: toolNames(resp.ToolCalls),
		ToolCallsJSON:   marshalToolCalls(resp.ToolCalls),
	}

	var judgeDuration time.Duration

	// Step 3: expected_tools check (pure string membership, no LLM).
	allExpectedCalled := true
	if behaviors.EvaluateExpectedTools {
		for _, name := range tc.MinimalToolSet {
			wasCalled := calledTools[name]
			result.ExpectedTools = append(result.ExpectedTools, models.ExpectedToolResult{ToolName: name, WasCalled: wasCalled})
			if !wasCalled {
				allExpectedCalled = false
			}
		}
	}

	// Step 4: tool_expectations grading.
	allToolExpectationsPassed := true
	if behaviors.EvaluateToolExpectations {
		for _, te := range tc.ToolExpectations {
			jstart := time.Now()
			ter, passed := e.gradeToolExpectation(ctx, jc, te, resp.ToolCalls, gctx, onRateLimit, func(u judge.Usage) { emitCost(models.CallTypeJudgeLLM, u) })
			judgeDuration += time.Since(jstart)
			result.ToolExpectations = append(result.ToolExpectations, ter)
			if p.Verbose {
				e.logger.Debug("tool expectation graded", "testcase_id", tc.ID, "tool_name", te.ToolName, "passed", passed)
			}
			if !passed {
				allToolExpectationsPassed = false
			}
		}
	}

	// Step 5: behavior_assertions grading.
	allBehaviorAssertionsPassed := true
	if behaviors.EvaluateBehaviorAssertions && len(tc.BehaviorAssertions) > 0 {
		texts := make([]string, len(tc.BehaviorAssertions))
		for i, ba := range tc.BehaviorAssertions {
			texts[i] = ba.Assertion
		}
		jstart := time.Now()
		results, usage, err := e.judge.GradeBatch(ctx, jc, "", texts, gctx, onRateLimit)
		judgeDuration += time.Since(jstart)
		if err != nil {
			results = failClosed(len(texts), err.Error())
		} else {
			emitCost(models.CallTypeJudgeLLM, usage)
		}
		for i, r := range results {
			result.BehaviorAssertions = append(result.BehaviorAssertions, models.BehaviorAssertionResult{Assertion: texts[i], AssertionResult: r})
			if p.Verbose {
				e.logger.Debug("behavior assertion graded", "testcase_id", tc.ID, "assertion", texts[i], "passed", r.Passed)
			}
			if !r.Passed {
				allBehaviorAssertionsPassed = false
			}
		}
	}

	// Step 6: response_quality grading.
	responseQualityPassed := true
	if behaviors.EvaluateResponseQuality && tc.ResponseQualityExpect != nil {
		jstart := time.Now()
		r, usage, err := e.judge.GradeSingle(ctx, jc, tc.ResponseQualityExpect.Assertion, gctx, onRateLimit)
		judgeDuration += time.Since(jstart)
		if err != nil {
			r = models.AssertionResult{Passed: false, LLMJudgeOutput: err.Error()}
		} else {
			emitCost(models.CallTypeJudgeLLM, usage)
		}
		result.ResponseQuality = &models.ResponseQualityResult{AssertionResult: r}
		responseQualityPassed = r.Passed
		if p.Verbose {
			e.logger.Debug("response quality graded", "testcase_id", tc.ID, "assertion", tc.ResponseQualityExpect.Assertion, "passed", r.Passed)
		}
	}

	// Step 7: pass criterion.
	result.Passed = allExpectedCalled && allToolExpectationsPassed && allBehaviorAssertionsPassed && responseQualityPassed

	// Step 8: failure-mode classification.
	if !result.Passed {
		result.FailureMode = classifyFailure(allExpectedCalled, allToolExpectationsPassed, allBehaviorAssertionsPassed, responseQualityPassed, calledTools, tc.MinimalToolSet, tc.ToolExpectations)
	}

	// Step 9: timing.
	result.JudgeCallDurationSeconds = judgeDuration.Seconds()
	result.TotalDurationSeconds = time.Since(start).Seconds()
	result.CompletedAt = time.Now()

	if p.Verbose {
		e.logger.Debug("testcase graded", "testcase_id", tc.ID, "passed", result.Passed, "failure_mode", result.FailureMode)
	}
	return result
}

// gradeToolExpectation grades one declared ToolExpectation, returning
// whether every argument assertion for it passed.
func (e *Evaluator) gradeToolExpectation(
	ctx context.Context,
	jc models.JudgeConfig,
	te models.ToolExpectation,
	actualCalls []models.ToolCall,
	gctx judge.GradeContext,
	onRateLimit judge.RateLimitCallback,
	onCost func(judge.Usage),
) (models.ToolExpectationResult, bool) {
	matching := filterCallsByName(actualCalls, te.ToolName)
	ter := models.ToolExpectationResult{ToolName: te.ToolName}
	passed := true

	if len(matching) == 0 {
		for _, arg := range te.Arguments {
			results := failClosed(len(arg.Assertions), "tool not called")
			ter.Arguments = append(ter.Arguments, models.ArgumentAssertionResult{ArgName: arg.ArgName, Results: results})
			if len(arg.Assertions) > 0 {
				passed = false
			}
		}
		return ter, passed
	}

	toolGCtx := gctx
	toolGCtx.ToolCallsJSON = marshalToolCalls(matching)

	var flat []string
	var argIndex []int
	for i, arg := range te.Arguments {
		for _, a := range arg.Assertions {
			flat = append(flat, a)
			argIndex = append(argIndex, i)
		}
	}
	if len(flat) == 0 {
		return ter, true
	}

	results, usage, err := e.judge.GradeBatch(ctx, jc, te.ToolName, flat, toolGCtx, onRateLimit)
	if err != nil {
		results = failClosed(len(flat), err.Error())
	} else if onCost != nil {
		onCost(usage)
	}

	perArg := make([][]models.AssertionResult, len(te.Arguments))
	for i, r := range results {
		ai := argIndex[i]
		perArg[ai] = append(perArg[ai], r)
		if !r.Passed {
			passed = false
		}
	}
	for i, arg := range te.Arguments {
		ter.Arguments = append(ter.Arguments, models.ArgumentAssertionResult{ArgName: arg.ArgName, Results: perArg[i]})
	}
	return ter, passed
}

func classifyFailure(allExpectedCalled, allToolExpectationsPassed, allBehaviorPassed, responseQualityPassed bool, calledTools map[string]bool, minimalToolSet []string, toolExpectations []models.ToolExpectation) models.FailureMode {
	switch {
	case !allExpectedCalled:
		return classifyMissingTool(calledTools, minimalToolSet, toolExpectations)
	case !allToolExpectationsPassed:
		return models.FailureModeWrongArgs
	case !responseQualityPassed && allExpectedCalled && allToolExpectationsPassed:
		return models.FailureModeHallucination
	case !allBehaviorPassed:
		return models.FailureModePartialMatch
	default:
		return models.FailureModePartialMatch
	}
}

// classifyMissingTool distinguishes "required tool missing" (tool_not_called)
// from "required tool missing, but something unexpected was called instead,
// and we have no declared expectation for the missing one" (wrong_tool).
// A missing tool that carries its own ToolExpectation always classifies as
// tool_not_called (§8 S2: minimal_tool_set=["sendMail"] with a ToolExpectation
// on sendMail, agent calls sendTeams instead, expected failure_mode is
// tool_not_called even though a different tool was called) — wrong_tool is
// reserved for a minimal_tool_set entry with no corresponding ToolExpectation,
// where there's no finer-grained signal to report than "something else ran".
func classifyMissingTool(calledTools map[string]bool, minimalToolSet []string, toolExpectations []models.ToolExpectation) models.FailureMode {
	required := make(map[string]bool, len(minimalToolSet))
	for _, name := range minimalToolSet {
		required[name] = true
	}
	expected := make(map[string]bool, len(toolExpectations))
	for _, te := range toolExpectations {
		expected[te.ToolName] = true
	}
	for name := range required {
		if !calledTools[name] && expected[name] {
			return models.FailureModeToolNotCalled
		}
	}
	for name := range calledTools {
		if !required[name] {
			return models.FailureModeWrongTool
		}
	}
	return models.FailureModeToolNotCalled
}

func filterCallsByName(calls []models.ToolCall, name string) []models.ToolCall {
	var out []models.ToolCall
	for _, c := range calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func toolNames(calls []models.ToolCall) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

func marshalToolCalls(calls []models.ToolCall) string {
	if len(calls) == 0 {
		return "[]"
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func failClosed(n int, reason string) []models.AssertionResult {
	out := make([]models.AssertionResult, n)
	for i := range out {
		out[i] = models.AssertionResult{Passed: false, LLMJudgeOutput: reason}
	}
	return out
}
