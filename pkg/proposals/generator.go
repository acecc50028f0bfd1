// Package proposals implements ProposalGenerator (§4.6): it mines recent
// annotated runs for recurring issue tags and asks the judge LLM to draft a
// prompt-edit suggestion for each one, then applies accepted suggestions as
// new prompt versions.
package proposals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

// DefaultOccurrenceThreshold is how many times an issue tag must occur
// across an agent's annotated runs before it earns a proposal (§4.6 step 2,
// "implementer choice, e.g. 2").
const DefaultOccurrenceThreshold = 2

// Generator drafts PromptProposals from annotated run history.
type Generator struct {
	store     *store.Store
	judge     *judge.Client
	logger    *slog.Logger
	threshold int
}

// New builds a Generator. threshold <= 0 falls back to DefaultOccurrenceThreshold.
func New(s *store.Store, j *judge.Client, logger *slog.Logger, threshold int) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = DefaultOccurrenceThreshold
	}
	return &Generator{store: s, judge: j, logger: logger, threshold: threshold}
}

// tagGroup accumulates everything Generate needs about one recurring issue
// tag before rendering the context block.
type tagGroup struct {
	tag          string
	count        int
	notes        []string
	corrections  []string
	excerpts     []excerpt
	toolOutcomes map[string]*toolOutcome
}

type excerpt struct {
	input  string
	output string
}

type toolOutcome struct {
	passed int
	failed int
}

// Generate drafts proposals for agentID from its annotated run history
// (§4.6 steps 1-3). promptVersionOverride pins the base prompt version the
// proposals are drafted against; 0 uses the agent's current active version.
func (g *Generator) Generate(ctx context.Context, agentID string, promptVersionOverride int) ([]models.PromptProposal, error) {
	basePrompt, err := g.resolveBasePrompt(ctx, agentID, promptVersionOverride)
	if err != nil {
		return nil, fmt.Errorf("resolve base prompt: %w", err)
	}

	runs, err := g.store.ListRunsByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	testCaseCache := make(map[string]models.TestCase)
	groups := make(map[string]*tagGroup)
	totalRuns := 0

	for _, run := range runs {
		if run.Status != models.RunStatusCompleted {
			continue
		}
		totalRuns++

		resultByTestCase := make(map[string]models.TestCaseResult, len(run.TestCases))
		for _, r := range run.TestCases {
			resultByTestCase[r.TestCaseID] = r
		}

		annotations, err := g.store.ListRunAnnotations(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("list annotations for run %s: %w", run.ID, err)
		}
		actions, err := g.store.ListActionAnnotations(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("list action annotations for run %s: %w", run.ID, err)
		}
		correctionsByTestCase := make(map[string][]string)
		for _, a := range actions {
			if a.Correction != "" {
				correctionsByTestCase[a.TestCaseID] = append(correctionsByTestCase[a.TestCaseID], a.Correction)
			}
		}

		for _, a := range annotations {
			tc, err := g.lookupTestCase(ctx, testCaseCache, a.TestCaseID)
			if err != nil {
				continue
			}
			if tc.IsHoldout {
				continue
			}

			result, ok := resultByTestCase[a.TestCaseID]
			for _, tag := range a.Issues {
				grp, ok2 := groups[tag]
				if !ok2 {
					grp = &tagGroup{tag: tag, toolOutcomes: make(map[string]*toolOutcome)}
					groups[tag] = grp
				}
				grp.count++
				if a.Notes != "" {
					grp.notes = append(grp.notes, a.Notes)
				}
				grp.corrections = append(grp.corrections, correctionsByTestCase[a.TestCaseID]...)
				if ok && len(grp.excerpts) < 5 {
					grp.excerpts = append(grp.excerpts, excerpt{input: tc.Input, output: result.ResponseText})
				}
				if ok {
					recordToolOutcomes(grp, result)
				}
			}
		}
	}

	var proposals []models.PromptProposal
	for _, tag := range sortedKeys(groups) {
		grp := groups[tag]
		if grp.count < g.threshold {
			continue
		}
		proposal, err := g.draftProposal(ctx, agentID, basePrompt, grp, totalRuns)
		if err != nil {
			g.logger.Warn("failed to draft proposal for tag", "agent_id", agentID, "tag", tag, "error", err)
			continue
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

func (g *Generator) resolveBasePrompt(ctx context.Context, agentID string, version int) (models.PromptVersion, error) {
	if version != 0 {
		versions, err := g.store.ListPromptVersions(ctx, agentID)
		if err != nil {
			return models.PromptVersion{}, err
		}
		for _, v := range versions {
			if v.Version == version {
				return v, nil
			}
		}
		return models.PromptVersion{}, fmt.Errorf("prompt version %d for agent %s: %w", version, agentID, evalerrors.ErrNotFound)
	}
	return g.store.GetActivePromptVersion(ctx, agentID)
}

func (g *Generator) lookupTestCase(ctx context.Context, cache map[string]models.TestCase, id string) (models.TestCase, error) {
	if tc, ok := cache[id]; ok {
		return tc, nil
	}
	tc, err := g.store.GetTestCase(ctx, id)
	if err != nil {
		return models.TestCase{}, err
	}
	cache[id] = tc
	return tc, nil
}

func recordToolOutcomes(grp *tagGroup, result models.TestCaseResult) {
	for _, te := range result.ToolExpectations {
		o, ok := grp.toolOutcomes[te.ToolName]
		if !ok {
			o = &toolOutcome{}
			grp.toolOutcomes[te.ToolName] = o
		}
		passed := true
		for _, arg := range te.Arguments {
			for _, r := range arg.Results {
				if !r.Passed {
					passed = false
				}
			}
		}
		if passed {
			o.passed++
		} else {
			o.failed++
		}
	}
}

// draftProposal renders the context block, calls the judge LLM, and
// persists the result as a pending PromptProposal (§4.6 step 2-3).
func (g *Generator) draftProposal(ctx context.Context, agentID string, basePrompt models.PromptVersion, grp *tagGroup, totalRuns int) (models.PromptProposal, error) {
	systemTmpl, err := g.store.GetSystemPrompt(ctx, models.SystemPromptKeyProposalGenerationSystem)
	if err != nil {
		return models.PromptProposal{}, fmt.Errorf("load system prompt: %w", err)
	}
	userTmpl, err := g.store.GetSystemPrompt(ctx, models.SystemPromptKeyProposalGenerationUser)
	if err != nil {
		return models.PromptProposal{}, fmt.Errorf("load user prompt: %w", err)
	}

	userPrompt := renderContextBlock(userTmpl.Content, basePrompt, grp, totalRuns)
	content, _, err := g.judge.Complete(ctx, systemTmpl.Content, userPrompt, nil)
	if err != nil {
		return models.PromptProposal{}, fmt.Errorf("judge call: %w", err)
	}

	var reply proposalReply
	if err := json.Unmarshal(extractJSON(content), &reply); err != nil {
		return models.PromptProposal{}, fmt.Errorf("parse judge reply: %w (body: %s)", err, trim(content))
	}

	proposal := models.PromptProposal{
		ID:                uuid.NewString(),
		AgentID:           agentID,
		BasePromptVersion: basePrompt.Version,
		Title:             reply.Title,
		Category:          models.ProposalCategory(reply.Category),
		Confidence:        reply.Confidence,
		Priority:          models.ProposalPriority(reply.Priority),
		PatternSource:     reply.PatternSource,
		Impact:            reply.Impact,
		Diff:              models.PromptDiff{Added: reply.Diff.Added, Removed: reply.Diff.Removed},
		Reasoning:         reply.Reasoning,
		Status:            models.ProposalStatusPending,
		CreatedAt:         time.Now(),
	}
	if err := g.store.CreateProposal(ctx, proposal); err != nil {
		return models.PromptProposal{}, fmt.Errorf("persist proposal: %w", err)
	}
	return proposal, nil
}

type proposalDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

type proposalReply struct {
	Title         string        `json:"title"`
	Category      string        `json:"category"`
	Confidence    float64       `json:"confidence"`
	Priority      string        `json:"priority"`
	PatternSource string        `json:"pattern_source"`
	Impact        string        `json:"impact"`
	Diff          proposalDiff  `json:"diff"`
	Reasoning     string        `json:"reasoning"`
}

// renderContextBlock fills the proposal_generation_user template (§4.6
// step 2). Placeholders: {{current_prompt}}, {{tag}}, {{occurrence_count}},
// {{total_runs}}, {{sample_notes}}, {{corrections}}, {{tool_summary}},
// {{excerpts}}.
func renderContextBlock(tmpl string, basePrompt models.PromptVersion, grp *tagGroup, totalRuns int) string {
	r := strings.NewReplacer(
		"{{current_prompt}}", basePrompt.Text,
		"{{tag}}", grp.tag,
		"{{occurrence_count}}", fmt.Sprintf("%d", grp.count),
		"{{total_runs}}", fmt.Sprintf("%d", totalRuns),
		"{{sample_notes}}", joinSample(grp.notes, 5),
		"{{corrections}}", joinSample(grp.corrections, 5),
		"{{tool_summary}}", renderToolSummary(grp.toolOutcomes),
		"{{excerpts}}", renderExcerpts(grp.excerpts),
	)
	return r.Replace(tmpl)
}

func joinSample(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, "\n")
}

func renderToolSummary(outcomes map[string]*toolOutcome) string {
	var names []string
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		o := outcomes[name]
		fmt.Fprintf(&b, "%s: %d passed / %d failed\n", name, o.passed, o.failed)
	}
	return b.String()
}

func renderExcerpts(excerpts []excerpt) string {
	var b strings.Builder
	for i, e := range excerpts {
		fmt.Fprintf(&b, "%d. input: %s\n   output: %s\n", i+1, e.input, e.output)
	}
	return b.String()
}

func sortedKeys(groups map[string]*tagGroup) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extractJSON(content string) []byte {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return []byte(strings.TrimSpace(trimmed))
}

func trim(s string) string {
	const max = 300
	if len(s) > max {
		return s[:max] + "...(truncated)"
	}
	return s
}
