package proposals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// Apply accepts a pending proposal: it allocates the next prompt version for
// the proposal's agent, builds its text by applying the proposal's diff to
// the referenced base version (line-level remove-then-add, best-effort),
// stores the result as a new active PromptVersion, and marks the proposal
// applied (§4.6 "Apply operation").
func (g *Generator) Apply(ctx context.Context, proposalID string) (models.PromptVersion, error) {
	proposal, err := g.store.GetProposal(ctx, proposalID)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("load proposal: %w", err)
	}

	versions, err := g.store.ListPromptVersions(ctx, proposal.AgentID)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("list prompt versions: %w", err)
	}
	var base models.PromptVersion
	found := false
	for _, v := range versions {
		if v.Version == proposal.BasePromptVersion {
			base = v
			found = true
			break
		}
	}
	if !found {
		return models.PromptVersion{}, fmt.Errorf("base prompt version %d for agent %s no longer exists", proposal.BasePromptVersion, proposal.AgentID)
	}

	newText := applyDiff(base.Text, proposal.Diff)
	newVersion, err := g.store.CreatePromptVersion(ctx, models.PromptVersion{
		AgentID:   proposal.AgentID,
		Text:      newText,
		Notes:     fmt.Sprintf("applied proposal %s: %s", proposal.ID, proposal.Title),
		CreatedAt: time.Now(),
	}, true)
	if err != nil {
		return models.PromptVersion{}, fmt.Errorf("create prompt version: %w", err)
	}

	resolvedAt := time.Now()
	proposal.Status = models.ProposalStatusApplied
	proposal.ResolvedAt = &resolvedAt
	if err := g.store.UpdateProposal(ctx, proposal); err != nil {
		return models.PromptVersion{}, fmt.Errorf("mark proposal applied: %w", err)
	}
	return newVersion, nil
}

// Dismiss marks a pending proposal dismissed without touching prompt versions.
func (g *Generator) Dismiss(ctx context.Context, proposalID string) error {
	proposal, err := g.store.GetProposal(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("load proposal: %w", err)
	}
	resolvedAt := time.Now()
	proposal.Status = models.ProposalStatusDismissed
	proposal.ResolvedAt = &resolvedAt
	return g.store.UpdateProposal(ctx, proposal)
}

// applyDiff removes every line in diff.Removed (first matching occurrence
// each) then appends every line in diff.Added, a line-level best-effort
// edit matching §4.6's "remove-then-add" contract.
func applyDiff(text string, diff models.PromptDiff) string {
	lines := strings.Split(text, "\n")
	for _, toRemove := range diff.Removed {
		for i, line := range lines {
			if line == toRemove {
				lines = append(lines[:i], lines[i+1:]...)
				break
			}
		}
	}
	lines = append(lines, diff.Added...)
	return strings.Join(lines, "\n")
}
