package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RenderEventKind identifies which of the 8 lifecycle events a
// RenderEvent carries.
type RenderEventKind string

const (
	EventRunStart     RenderEventKind = "run_start"
	EventPlan         RenderEventKind = "plan"
	EventStageStart   RenderEventKind = "stage_start"
	EventTaskStart    RenderEventKind = "task_start"
	EventTaskProgress RenderEventKind = "task_progress"
	EventTaskComplete RenderEventKind = "task_complete"
	EventStageEnd     RenderEventKind = "stage_end"
	EventRunEnd       RenderEventKind = "run_end"
)

// RenderEvent is one lifecycle event emitted during a run. Exactly the
// fields relevant to Kind are populated; the rest are zero values.
type RenderEvent struct {
	Kind RenderEventKind

	RunID string

	// RunStart
	TotalTasks  int
	TotalStages int

	// Plan
	Stages [][]string

	// StageStart / StageEnd
	StageID  int
	TaskIDs  []string

	// TaskStart / TaskProgress / TaskComplete
	TaskID   string
	Progress float64
	Message  string
	Result   TaskResult

	// RunEnd
	ExecutionResult ExecutionResult
}

// Renderer turns a RenderEvent into output on its underlying writer.
type Renderer interface {
	Name() string
	Format() string
	SupportsStreaming() bool
	Render(event RenderEvent) error
}

// TextRenderer writes human-readable lines, one per event.
type TextRenderer struct {
	w         io.Writer
	asciiOnly bool
}

func NewTextRenderer(w io.Writer, asciiOnly bool) *TextRenderer {
	return &TextRenderer{w: w, asciiOnly: asciiOnly}
}

func (r *TextRenderer) Name() string           { return "text-renderer" }
func (r *TextRenderer) Format() string         { return "text" }
func (r *TextRenderer) SupportsStreaming() bool { return false }

func (r *TextRenderer) Render(event RenderEvent) error {
	line, err := r.formatEvent(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, line)
	return err
}

func (r *TextRenderer) formatEvent(event RenderEvent) (string, error) {
	switch event.Kind {
	case EventRunStart:
		return fmt.Sprintf("RUN START %s (tasks: %d, stages: %d)", event.RunID, event.TotalTasks, event.TotalStages), nil
	case EventPlan:
		out := fmt.Sprintf("PLAN %s:", event.RunID)
		for idx, stage := range event.Stages {
			out += fmt.Sprintf("\n  stage %d: %s", idx, joinComma(stage))
		}
		return out, nil
	case EventStageStart:
		return fmt.Sprintf("STAGE START %s (stage %d, tasks: %d)", event.RunID, event.StageID, len(event.TaskIDs)), nil
	case EventTaskStart:
		return fmt.Sprintf("TASK START %s (stage %d, task %s)", event.RunID, event.StageID, event.TaskID), nil
	case EventTaskProgress:
		line := fmt.Sprintf("TASK PROGRESS %s (task %s, %d%%)", event.RunID, event.TaskID, int(event.Progress*100))
		if event.Message != "" {
			line += ": " + event.Message
		}
		return line, nil
	case EventTaskComplete:
		status := "SUCCESS"
		if r.asciiOnly {
			status = "OK"
		}
		if event.Result.ExitCode != 0 {
			status = "FAILED"
			if r.asciiOnly {
				status = "FAIL"
			}
		}
		return fmt.Sprintf("TASK END %s (task %s, status %s, exit %d, duration %dms, retries %d)",
			event.RunID, event.TaskID, status, event.Result.ExitCode, event.Result.DurationMS, event.Result.RetriesUsed), nil
	case EventStageEnd:
		return fmt.Sprintf("STAGE END %s (stage %d)", event.RunID, event.StageID), nil
	case EventRunEnd:
		res := event.ExecutionResult
		return fmt.Sprintf("RUN END %s (completed %d, failed %d, duration %dms)",
			event.RunID, res.Completed, res.Failed, res.DurationMS), nil
	default:
		return "", fmt.Errorf("executor: unknown render event kind %q", event.Kind)
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// JSONLRenderer writes one JSON object per line per spec.md's §6
// machine-integration contract.
type JSONLRenderer struct {
	w           io.Writer
	prettyPrint bool
	now         func() time.Time
}

func NewJSONLRenderer(w io.Writer, prettyPrint bool) *JSONLRenderer {
	return &JSONLRenderer{w: w, prettyPrint: prettyPrint, now: time.Now}
}

func (r *JSONLRenderer) Name() string           { return "jsonl-renderer" }
func (r *JSONLRenderer) Format() string         { return "jsonl" }
func (r *JSONLRenderer) SupportsStreaming() bool { return true }

func (r *JSONLRenderer) Render(event RenderEvent) error {
	value := r.eventToJSON(event)
	var data []byte
	var err error
	if r.prettyPrint {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}

func (r *JSONLRenderer) eventToJSON(event RenderEvent) map[string]any {
	ts := r.now().Format(time.RFC3339)
	base := map[string]any{"v": 1, "ts": ts, "run_id": event.RunID}

	switch event.Kind {
	case EventRunStart:
		base["event_type"] = "run.start"
		base["metadata"] = map[string]any{"total_tasks": event.TotalTasks, "total_stages": event.TotalStages}
	case EventPlan:
		total := 0
		for _, s := range event.Stages {
			total += len(s)
		}
		base["event_type"] = "executor.plan"
		base["metadata"] = map[string]any{"stages": event.Stages, "total_tasks": total}
	case EventStageStart:
		base["event_type"] = "stage.start"
		base["metadata"] = map[string]any{"stage_id": event.StageID, "tasks": event.TaskIDs}
	case EventTaskStart:
		base["event_type"] = "task.start"
		base["task_id"] = event.TaskID
		base["metadata"] = map[string]any{"stage_id": event.StageID}
	case EventTaskProgress:
		base["event_type"] = "executor.progress"
		base["task_id"] = event.TaskID
		base["progress"] = event.Progress
		base["metadata"] = map[string]any{"message": event.Message}
	case EventTaskComplete:
		base["event_type"] = "task.end"
		base["task_id"] = event.TaskID
		base["code"] = event.Result.ExitCode
		base["metadata"] = map[string]any{
			"duration_ms":  event.Result.DurationMS,
			"retries_used": event.Result.RetriesUsed,
			"success":      event.Result.ExitCode == 0,
		}
	case EventStageEnd:
		base["event_type"] = "stage.end"
		base["metadata"] = map[string]any{"stage_id": event.StageID}
	case EventRunEnd:
		res := event.ExecutionResult
		base["event_type"] = "run.end"
		base["metadata"] = map[string]any{
			"total_tasks": res.TotalTasks,
			"completed":   res.Completed,
			"failed":      res.Failed,
			"duration_ms": res.DurationMS,
		}
	}

	return base
}
