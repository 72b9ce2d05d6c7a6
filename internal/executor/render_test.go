package executor

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestJSONLRendererRunStartEventType(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONLRenderer(&buf, false)
	r.now = fixedNow

	if err := r.Render(RenderEvent{Kind: EventRunStart, RunID: "run", TotalTasks: 2, TotalStages: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["event_type"] != "run.start" {
		t.Fatalf("expected run.start, got %v", decoded["event_type"])
	}
}

func TestJSONLRendererTaskCompleteIncludesRetries(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONLRenderer(&buf, false)
	r.now = fixedNow

	event := RenderEvent{
		Kind:   EventTaskComplete,
		RunID:  "run",
		TaskID: "task",
		Result: TaskResult{TaskID: "task", ExitCode: 0, DurationMS: 12, Output: "ok", RetriesUsed: 1},
	}
	if err := r.Render(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["event_type"] != "task.end" {
		t.Fatalf("expected task.end, got %v", decoded["event_type"])
	}
	meta, ok := decoded["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected metadata object, got %v", decoded["metadata"])
	}
	if meta["retries_used"].(float64) != 1 {
		t.Fatalf("expected retries_used 1, got %v", meta["retries_used"])
	}
}

func TestTextRendererFormatsTaskEndWithExitCode(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, true)

	event := RenderEvent{
		Kind:   EventTaskComplete,
		RunID:  "run",
		TaskID: "task",
		Result: TaskResult{TaskID: "task", ExitCode: 1, DurationMS: 5, Output: "oops", RetriesUsed: 2},
	}
	if err := r.Render(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "TASK END") {
		t.Fatalf("expected TASK END line, got %q", out)
	}
	if !strings.Contains(out, "exit 1") {
		t.Fatalf("expected exit 1 in line, got %q", out)
	}
}

func TestTextRendererFormatsPlanWithStages(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, false)

	event := RenderEvent{Kind: EventPlan, RunID: "run", Stages: [][]string{{"c"}, {"b"}, {"a"}}}
	if err := r.Render(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "stage 0: c") || !strings.Contains(out, "stage 2: a") {
		t.Fatalf("expected stage lines, got %q", out)
	}
}
