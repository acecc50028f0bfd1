// Package runs implements RunCoordinator (§4.5): it orchestrates one
// EvaluationRun end-to-end, driving TestCaseEvaluator sequentially over a
// dataset's test cases, checkpointing after every case, and detecting
// regressions against the agent's prior completed run on the same dataset.
package runs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evaluator"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

// LaunchRequest names what to run. An unset PromptVersion pins to the
// agent's active prompt version. With JudgeConfigID and JudgeConfigVersion
// both unset the globally active judge config is used; with only
// JudgeConfigID set, the highest version of that id is used.
type LaunchRequest struct {
	AgentID            string
	DatasetID          string
	PromptVersion      int
	JudgeConfigID      string
	JudgeConfigVersion int
	Timeout            time.Duration
	VerboseLogging     bool
}

// Coordinator orchestrates EvaluationRuns. One Coordinator is shared by the
// whole process; it holds the per-run cancel registry (§B.3, grounded on
// the teacher's WorkerPool.activeSessions) and serializes writes to any one
// run (§5: "a process-wide mutual-exclusion guard around each run id is
// sufficient").
type Coordinator struct {
	store     *store.Store
	evaluator *evaluator.Evaluator
	logger    *slog.Logger

	mu             sync.RWMutex
	activeRuns     map[string]context.CancelFunc
	runLocks       map[string]*sync.Mutex
}

// New builds a Coordinator.
func New(s *store.Store, e *evaluator.Evaluator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:      s,
		evaluator:  e,
		logger:     logger,
		activeRuns: make(map[string]context.CancelFunc),
		runLocks:   make(map[string]*sync.Mutex),
	}
}

// registerRun stores a cancel function for manual cancellation, mirroring
// the teacher's RegisterSession/UnregisterSession/CancelSession shape.
func (c *Coordinator) registerRun(runID string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeRuns[runID] = cancel
}

func (c *Coordinator) unregisterRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeRuns, runID)
}

// Cancel triggers cooperative cancellation for a run on this process.
// Returns true if the run was found and cancelled here.
func (c *Coordinator) Cancel(runID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cancel, ok := c.activeRuns[runID]; ok {
		cancel()
		return true
	}
	return false
}

func (c *Coordinator) lockFor(runID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.runLocks[runID]
	if !ok {
		l = &sync.Mutex{}
		c.runLocks[runID] = l
	}
	return l
}

func (c *Coordinator) dropLock(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runLocks, runID)
}

// Launch resolves a run's inputs, persists it in pending, then runs it to
// completion synchronously (§4.5 "Run launch (synchronous path)"). The
// caller (the thin HTTP layer) is expected to invoke this from a goroutine
// if an async response is desired; Launch itself blocks until the run
// reaches a terminal state.
func (c *Coordinator) Launch(ctx context.Context, req LaunchRequest) (models.EvaluationRun, error) {
	agent, err := c.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("resolve agent: %w", err)
	}
	dataset, err := c.store.GetDataset(ctx, req.DatasetID)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("resolve dataset: %w", err)
	}
	testCases, err := c.store.ListTestCasesByDataset(ctx, req.DatasetID)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("list testcases: %w", err)
	}
	testCases = orderByDataset(dataset, testCases)

	promptVersion := req.PromptVersion
	if promptVersion == 0 {
		active, err := c.store.GetActivePromptVersion(ctx, req.AgentID)
		if err != nil {
			return models.EvaluationRun{}, fmt.Errorf("resolve active prompt version: %w", err)
		}
		promptVersion = active.Version
	}
	pv, err := findPromptVersion(ctx, c.store, req.AgentID, promptVersion)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("resolve prompt version: %w", err)
	}

	judgeConfigID := req.JudgeConfigID
	judgeConfigVersion := req.JudgeConfigVersion
	jc, err := c.resolveJudgeConfig(ctx, judgeConfigID, judgeConfigVersion)
	if err != nil {
		return models.EvaluationRun{}, fmt.Errorf("resolve judge config: %w", err)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	now := time.Now()
	run := models.EvaluationRun{
		ID:                 uuid.NewString(),
		DatasetID:          dataset.ID,
		AgentID:            agent.ID,
		PromptVersion:      pv.Version,
		JudgeConfigID:      jc.ID,
		JudgeConfigVersion: jc.Version,
		AgentEndpoint:      agent.Endpoint,
		Timeout:            timeout,
		VerboseLogging:     req.VerboseLogging,
		Status:             models.RunStatusPending,
		TotalTests:         len(testCases),
		CreatedAt:          now,
	}
	run = appendHistory(run, "run created")

	if err := c.store.CreateRun(ctx, run); err != nil {
		return models.EvaluationRun{}, fmt.Errorf("persist run: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.registerRun(run.ID, cancel)
	defer func() {
		cancel()
		c.unregisterRun(run.ID)
		c.dropLock(run.ID)
	}()

	run, err = c.execute(runCtx, run, pv, jc, testCases)
	if err != nil {
		c.logger.Error("run execution failed", "run_id", run.ID, "error", err)
	}
	return run, nil
}

// execute drives the execution loop and completion/failure transitions.
// It never returns an error upward that leaves the run in a non-terminal
// state: an unrecoverable exception transitions the run to failed and is
// persisted before the error is surfaced to the caller (§4.5).
func (c *Coordinator) execute(ctx context.Context, run models.EvaluationRun, pv models.PromptVersion, jc models.JudgeConfig, testCases []models.TestCase) (models.EvaluationRun, error) {
	lock := c.lockFor(run.ID)
	// Checkpoints use a context that cancellation does not reach, so the
	// cancelled or failed state of a run is still written to the store.
	storeCtx := context.WithoutCancel(ctx)

	started := time.Now()
	run.StartedAt = &started
	run.Status = models.RunStatusRunning
	run = appendHistory(run, "run started")
	if err := c.persist(storeCtx, lock, run); err != nil {
		return c.fail(storeCtx, lock, run, err)
	}

	baseline, _ := c.baselineFor(ctx, run)

	for i, tc := range testCases {
		select {
		case <-ctx.Done():
			run.Status = models.RunStatusCancelled
			run = appendHistory(run, "run cancelled")
			_ = c.persist(storeCtx, lock, run)
			return run, nil
		default:
		}

		result := c.evaluator.Evaluate(ctx, tc, jc, evaluator.Params{
			RunID:         run.ID,
			DatasetID:     run.DatasetID,
			AgentID:       run.AgentID,
			AgentEndpoint: run.AgentEndpoint,
			SystemPrompt:  pv.Text,
			Timeout:       run.Timeout,
			Verbose:       run.VerboseLogging,
		}, evaluatorCallbacks(c, &run))

		run.TestCases = append(run.TestCases, result)
		run.CompletedTests++
		if result.Passed {
			run.PassedCount++
		} else {
			run.FailedTests++
		}
		run.InProgressTests = len(testCases) - run.CompletedTests
		run.StatusMessage = fmt.Sprintf("case %d/%d: %s; %.0f%% complete",
			i+1, len(testCases), passedWord(result.Passed), 100*float64(run.CompletedTests)/float64(len(testCases)))

		if err := c.persist(storeCtx, lock, run); err != nil {
			return c.fail(storeCtx, lock, run, err)
		}

		if ctx.Err() != nil {
			run.Status = models.RunStatusCancelled
			run = appendHistory(run, "run cancelled")
			_ = c.persist(storeCtx, lock, run)
			return run, nil
		}
	}

	run.Regressions = computeRegressions(baseline, run.TestCases)
	completed := time.Now()
	run.CompletedAt = &completed
	run.Status = models.RunStatusCompleted
	run = appendHistory(run, "run completed")
	if err := c.persist(storeCtx, lock, run); err != nil {
		return c.fail(storeCtx, lock, run, err)
	}
	return run, nil
}

func (c *Coordinator) fail(ctx context.Context, lock *sync.Mutex, run models.EvaluationRun, cause error) (models.EvaluationRun, error) {
	run.Status = models.RunStatusFailed
	run.StatusMessage = cause.Error()
	run = appendHistory(run, "run failed: "+cause.Error())
	_ = c.persist(ctx, lock, run)
	return run, cause
}

func (c *Coordinator) persist(ctx context.Context, lock *sync.Mutex, run models.EvaluationRun) error {
	lock.Lock()
	defer lock.Unlock()
	return c.store.UpdateRun(ctx, run)
}

// baselineFor returns the agent's prior completed run on the same dataset
// as a tc_id → passed map, or an empty map if there is none (§4.5 step 3).
func (c *Coordinator) baselineFor(ctx context.Context, run models.EvaluationRun) (map[string]bool, error) {
	prior, err := c.store.LastCompletedRun(ctx, run.AgentID, run.DatasetID, run.ID)
	if err != nil {
		return map[string]bool{}, err
	}
	baseline := make(map[string]bool, len(prior.TestCases))
	for _, tcr := range prior.TestCases {
		baseline[tcr.TestCaseID] = tcr.Passed
	}
	return baseline, nil
}

func computeRegressions(baseline map[string]bool, results []models.TestCaseResult) []models.Regression {
	var out []models.Regression
	for _, r := range results {
		wasPassed, known := baseline[r.TestCaseID]
		if known && wasPassed && !r.Passed {
			out = append(out, models.Regression{
				TestCaseID:     r.TestCaseID,
				PreviousResult: "passed",
				CurrentResult:  "failed",
			})
		}
	}
	return out
}

// evaluatorCallbacks wires rate-limit and cost events from the Evaluator
// back into the run's status_history / counters / cost ledger.
func evaluatorCallbacks(c *Coordinator, run *models.EvaluationRun) evaluator.Callbacks {
	return evaluator.Callbacks{
		OnRateLimit: func(attempt int, wait time.Duration) {
			run.RateLimitHits++
			run.RetryWaitSeconds += wait.Seconds()
			*run = appendHistoryEntry(*run, models.StatusHistoryEntry{
				Timestamp:     time.Now(),
				Message:       fmt.Sprintf("rate limited, retrying (attempt %d)", attempt),
				IsRateLimit:   true,
				AttemptNumber: attempt,
				WaitSeconds:   wait.Seconds(),
			})
			run.Warnings = append(run.Warnings, fmt.Sprintf("rate limit hit on attempt %d, waited %.1fs", attempt, wait.Seconds()))
		},
		OnCost: func(rec models.CostRecord) {
			rec.ID = uuid.NewString()
			rec.CreatedAt = time.Now()
			if err := c.store.CreateCostRecord(context.Background(), rec); err != nil {
				c.logger.Warn("failed to persist cost record", "run_id", run.ID, "error", err)
			}
		},
	}
}

func appendHistory(run models.EvaluationRun, message string) models.EvaluationRun {
	return appendHistoryEntry(run, models.StatusHistoryEntry{Timestamp: time.Now(), Message: message})
}

func appendHistoryEntry(run models.EvaluationRun, entry models.StatusHistoryEntry) models.EvaluationRun {
	run.StatusHistory = append(run.StatusHistory, entry)
	return run
}

func passedWord(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// orderByDataset reorders testCases to match dataset.TestCaseIDs, the
// canonical dataset iteration order (§5). Test cases not listed in
// TestCaseIDs (should not normally happen) are appended at the end in
// their store-query order rather than dropped.
func orderByDataset(dataset models.Dataset, testCases []models.TestCase) []models.TestCase {
	byID := make(map[string]models.TestCase, len(testCases))
	for _, tc := range testCases {
		byID[tc.ID] = tc
	}
	ordered := make([]models.TestCase, 0, len(testCases))
	seen := make(map[string]bool, len(testCases))
	for _, id := range dataset.TestCaseIDs {
		if tc, ok := byID[id]; ok {
			ordered = append(ordered, tc)
			seen[id] = true
		}
	}
	for _, tc := range testCases {
		if !seen[tc.ID] {
			ordered = append(ordered, tc)
		}
	}
	return ordered
}

func findPromptVersion(ctx context.Context, s *store.Store, agentID string, version int) (models.PromptVersion, error) {
	versions, err := s.ListPromptVersions(ctx, agentID)
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

func (c *Coordinator) resolveJudgeConfig(ctx context.Context, id string, version int) (models.JudgeConfig, error) {
	if id == "" && version == 0 {
		return c.store.GetActiveJudgeConfig(ctx)
	}
	configs, err := c.store.ListJudgeConfigs(ctx)
	if err != nil {
		return models.JudgeConfig{}, err
	}
	for _, jc := range configs {
		if (id == "" || jc.ID == id) && (version == 0 || jc.Version == version) {
			return jc, nil
		}
	}
	return models.JudgeConfig{}, fmt.Errorf("judge config %s/%d: %w", id, version, evalerrors.ErrNotFound)
}
