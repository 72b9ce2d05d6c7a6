// Package executor runs a DAG of executable tasks in dependency-ordered
// stages, retrying failed tasks per a configurable strategy and bounding
// per-stage concurrency per a configurable strategy. It reports progress
// through a stream of RenderEvent values that a renderer turns into text
// or JSONL output.
package executor

import "time"

// TaskMetadata carries optional per-task execution hints. Every field is
// a zero-value-means-unset override of the run-level defaults.
type TaskMetadata struct {
	Backend       string            `json:"backend,omitempty"`
	Workdir       string            `json:"workdir,omitempty"`
	Model         string            `json:"model,omitempty"`
	ModelProvider string            `json:"model_provider,omitempty"`
	StreamFormat  string            `json:"stream_format,omitempty"`
	Timeout       time.Duration     `json:"timeout,omitempty"`
	Retry         *RetryConfig      `json:"retry,omitempty"`
	Files         []string          `json:"files,omitempty"`
	FilesMode     string            `json:"files_mode,omitempty"`
	FilesEncoding string            `json:"files_encoding,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// ExecutableTask is one node in the task graph: an id, the prompt content
// sent to the backend, the ids of tasks it depends on, and metadata
// overrides.
type ExecutableTask struct {
	ID           string       `json:"id"`
	Content      string       `json:"content"`
	Dependencies []string     `json:"dependencies,omitempty"`
	Metadata     TaskMetadata `json:"metadata,omitempty"`
}

// NewTask builds a dependency-free task with the given id and content.
func NewTask(id, content string) ExecutableTask {
	return ExecutableTask{ID: id, Content: content}
}

// WithDependencies returns a copy of the task with its dependency list
// replaced.
func (t ExecutableTask) WithDependencies(deps ...string) ExecutableTask {
	t.Dependencies = deps
	return t
}

// TaskResult is the outcome of running a single task, including retries.
type TaskResult struct {
	TaskID      string `json:"task_id"`
	ExitCode    int    `json:"exit_code"`
	DurationMS  int64  `json:"duration_ms"`
	Output      string `json:"output"`
	Error       string `json:"error,omitempty"`
	RetriesUsed int    `json:"retries_used"`
}

// Success reports whether the task completed with exit code 0.
func (r TaskResult) Success() bool {
	return r.ExitCode == 0
}

// ExecutionResult summarizes a full run across all stages.
type ExecutionResult struct {
	TotalTasks  int                   `json:"total_tasks"`
	Completed   int                   `json:"completed"`
	Failed      int                   `json:"failed"`
	Skipped     int                   `json:"skipped"`
	DurationMS  int64                 `json:"duration_ms"`
	TaskResults map[string]TaskResult `json:"task_results"`
	Stages      [][]string            `json:"stages"`
}
