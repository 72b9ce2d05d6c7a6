package replay

import (
	"strings"
	"testing"
)

func sampleStream() string {
	lines := []string{
		`{"event_type":"runner.start","run_id":"run-1","ts":"2026-01-01T00:00:00Z"}`,
		`@@MEM_TOOL_EVENT@@ {"v":1,"type":"tool.request","run_id":"run-1","tool":"shell","action":"run"}`,
		`@@MEM_TOOL_EVENT@@ {"v":1,"type":"tool.result","run_id":"run-1","ok":true}`,
		`{"event_type":"memory.search.result","run_id":"run-1","matches":3}`,
		`{"event_type":"gatekeeper.decision","run_id":"run-1","should_write_candidate":true}`,
		`{"event_type":"runner.exit","run_id":"run-1","exit_code":0}`,
		`{"event_type":"runner.start","run_id":"run-2"}`,
		`{"event_type":"tee.drop","run_id":"run-2","dropped":5}`,
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestParseEventsGroupsByRunID(t *testing.T) {
	runs, err := ParseEvents(strings.NewReader(sampleStream()), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-1" || runs[1].RunID != "run-2" {
		t.Fatalf("expected run order [run-1 run-2], got [%s %s]", runs[0].RunID, runs[1].RunID)
	}

	r1 := runs[0]
	if r1.RunnerStart == nil || r1.RunnerExit == nil {
		t.Fatalf("expected runner start/exit markers on run-1, got %+v", r1)
	}
	if r1.SearchResult == nil || r1.GatekeeperDecision == nil {
		t.Fatalf("expected search result and gatekeeper decision on run-1, got %+v", r1)
	}
	if len(r1.ToolEvents) != 2 {
		t.Fatalf("expected 2 tool events on run-1, got %d", len(r1.ToolEvents))
	}

	r2 := runs[1]
	if r2.TeeDrop == nil {
		t.Fatalf("expected tee.drop marker on run-2, got %+v", r2)
	}
}

func TestParseEventsFiltersByRunID(t *testing.T) {
	runs, err := ParseEvents(strings.NewReader(sampleStream()), "run-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-2" {
		t.Fatalf("expected only run-2, got %+v", runs)
	}
}

func TestParseEventsIgnoresBlankAndMalformedLines(t *testing.T) {
	stream := "\n   \nnot json at all\n{\"event_type\":\"runner.start\",\"run_id\":\"run-x\"}\n"
	runs, err := ParseEvents(strings.NewReader(stream), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-x" {
		t.Fatalf("expected single run-x, got %+v", runs)
	}
}
