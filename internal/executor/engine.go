package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TaskRunner executes a single task's enhanced content and returns its
// exit code, output, and error, if any. It is the executor's only
// dependency on how a task is actually carried out — in production this
// drives a supervised subprocess session; in tests it can be a stub.
type TaskRunner func(ctx context.Context, task ExecutableTask, enhancedContent string) (exitCode int, output string, err error)

// EngineConfig configures an Engine run.
type EngineConfig struct {
	Retry         RetryConfig
	Concurrency   ConcurrencyConfig
	Processors    []TaskProcessor
	Renderer      Renderer
	Logger        *slog.Logger
	AvailableCPUs int
	now           func() time.Time
}

// Engine runs a validated TaskGraph stage by stage, retrying failed
// tasks and bounding per-stage parallelism.
type Engine struct {
	graph  *TaskGraph
	cfg    EngineConfig
	runner TaskRunner
}

// NewEngine builds an Engine for the given graph and runner.
func NewEngine(graph *TaskGraph, runner TaskRunner, cfg EngineConfig) *Engine {
	if cfg.Retry.Strategy == "" {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Concurrency.Strategy == "" {
		cfg.Concurrency = DefaultConcurrencyConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "executor")
	}
	if cfg.AvailableCPUs <= 0 {
		cfg.AvailableCPUs = 1
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Engine{graph: graph, cfg: cfg, runner: runner}
}

// Run executes every stage of the graph in order, returning the
// aggregate result. A renderer, if configured, receives the full
// lifecycle event stream.
func (e *Engine) Run(ctx context.Context, runID string) ExecutionResult {
	start := e.cfg.now()
	stages := e.graph.Stages()

	e.emit(RenderEvent{Kind: EventRunStart, RunID: runID, TotalTasks: len(e.graph.tasks), TotalStages: len(stages)})
	e.emit(RenderEvent{Kind: EventPlan, RunID: runID, Stages: stages})

	results := make(map[string]TaskResult, len(e.graph.tasks))
	skipped := make(map[string]bool)
	concurrency := NewConcurrencyStrategy(e.cfg.Concurrency)

	for stageID, stageTasks := range stages {
		e.emit(RenderEvent{Kind: EventStageStart, RunID: runID, StageID: stageID, TaskIDs: stageTasks})

		runnable, skippedHere := e.partitionStage(stageTasks, results, skipped)
		for _, id := range skippedHere {
			skipped[id] = true
		}

		n := concurrency.Calculate(ConcurrencyContext{
			AvailableCPUs:   e.cfg.AvailableCPUs,
			ActiveTasks:     len(runnable),
			BaseConcurrency: e.cfg.Concurrency.BaseConcurrency,
		})
		if n < 1 {
			n = 1
		}

		stageResults := e.runStage(ctx, runID, stageID, runnable, n)
		for id, res := range stageResults {
			results[id] = res
		}

		e.emit(RenderEvent{Kind: EventStageEnd, RunID: runID, StageID: stageID})
	}

	completed, failed := 0, 0
	for _, r := range results {
		if r.Success() {
			completed++
		} else {
			failed++
		}
	}

	result := ExecutionResult{
		TotalTasks:  len(e.graph.tasks),
		Completed:   completed,
		Failed:      failed,
		Skipped:     len(skipped),
		DurationMS:  e.cfg.now().Sub(start).Milliseconds(),
		TaskResults: results,
		Stages:      stages,
	}

	e.emit(RenderEvent{Kind: EventRunEnd, RunID: runID, ExecutionResult: result})
	return result
}

// partitionStage splits a stage's task ids into those runnable now and
// those that must be skipped because a dependency failed or was itself
// skipped.
func (e *Engine) partitionStage(stageTasks []string, results map[string]TaskResult, skipped map[string]bool) (runnable, toSkip []string) {
	for _, id := range stageTasks {
		blocked := false
		for _, dep := range e.graph.dependencies[id] {
			if skipped[dep] {
				blocked = true
				break
			}
			if r, ok := results[dep]; ok && !r.Success() {
				blocked = true
				break
			}
		}
		if blocked {
			toSkip = append(toSkip, id)
		} else {
			runnable = append(runnable, id)
		}
	}
	return runnable, toSkip
}

// runStage executes runnable task ids concurrently, bounded by n, with
// per-task retry according to the engine's RetryConfig.
func (e *Engine) runStage(ctx context.Context, runID string, stageID int, taskIDs []string, n int) map[string]TaskResult {
	results := make(map[string]TaskResult, len(taskIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, n)

	for _, id := range taskIDs {
		id := id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			res := e.runTaskWithRetry(ctx, runID, stageID, id)

			mu.Lock()
			results[id] = res
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// runTaskWithRetry executes one task, retrying per the engine's
// RetryStrategy until it succeeds or the strategy gives up. The
// ProcessContext handed to the processors carries only the run and
// stage ids; its dependency outputs and results are left empty.
func (e *Engine) runTaskWithRetry(ctx context.Context, runID string, stageID int, taskID string) TaskResult {
	task, _ := e.graph.Task(taskID)

	processed, err := RunProcessors(e.cfg.Processors, task, ProcessContext{RunID: runID, StageID: stageID})
	content := task.Content
	if err == nil {
		content = processed.EnhancedContent
	} else {
		e.cfg.Logger.Warn("task processing failed, running unenhanced content", "task_id", taskID, "error", err)
	}

	strategy := e.resolveRetryStrategy(task)
	e.emit(RenderEvent{Kind: EventTaskStart, RunID: runID, TaskID: taskID, StageID: stageID})

	start := e.cfg.now()
	attempt := 0
	var last TaskResult

	for {
		exitCode, output, runErr := e.runner(ctx, task, content)
		errStr := ""
		if runErr != nil {
			errStr = runErr.Error()
		}
		last = TaskResult{
			TaskID:      taskID,
			ExitCode:    exitCode,
			DurationMS:  e.cfg.now().Sub(start).Milliseconds(),
			Output:      output,
			Error:       errStr,
			RetriesUsed: attempt,
		}

		if last.Success() || ctx.Err() != nil {
			break
		}

		delay, ok := strategy.NextDelay(attempt)
		if !ok {
			break
		}

		select {
		case <-ctx.Done():
			last.Error = ctx.Err().Error()
			e.emit(RenderEvent{Kind: EventTaskComplete, RunID: runID, TaskID: taskID, Result: last})
			return last
		case <-time.After(delay):
		}
		attempt++
	}

	e.emit(RenderEvent{Kind: EventTaskComplete, RunID: runID, TaskID: taskID, Result: last})
	return last
}

func (e *Engine) resolveRetryStrategy(task ExecutableTask) RetryStrategy {
	cfg := e.cfg.Retry
	if task.Metadata.Retry != nil {
		cfg = *task.Metadata.Retry
	}
	return NewRetryStrategy(cfg)
}

func (e *Engine) emit(event RenderEvent) {
	if e.cfg.Renderer == nil {
		return
	}
	if err := e.cfg.Renderer.Render(event); err != nil {
		e.cfg.Logger.Warn("render event failed", "kind", event.Kind, "error", err)
	}
}
