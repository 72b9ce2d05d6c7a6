package toolevent

import (
	"encoding/json"
	"testing"
)

func TestParsePrefixedRoundTrip(t *testing.T) {
	ok := true
	ev := Event{V: 1, Kind: KindToolResult, ID: "t1", Tool: "shell", Ok: &ok}
	line := FormatPrefixed(ev)

	got := ParsePrefixed(line)
	if got == nil {
		t.Fatalf("expected event, got nil")
	}
	if got.ID != ev.ID || got.Tool != ev.Tool || got.Kind != ev.Kind {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, ev)
	}
}

func TestParsePrefixedIgnoresOtherLines(t *testing.T) {
	if ParsePrefixed("just some log output") != nil {
		t.Fatal("expected nil for non-sentinel line")
	}
	if ParsePrefixed(`{"v":1,"type":"tool.request"}`) != nil {
		t.Fatal("expected nil for raw schema without sentinel")
	}
}

func TestCompositeParserGeminiDialectStitching(t *testing.T) {
	p := NewCompositeParser()

	lines := []string{
		`{"type":"init","session_id":"S"}`,
		`{"type":"tool_use","tool_id":"x","tool_name":"shell","parameters":{"command":"echo"}}`,
		`{"type":"tool_result","tool_id":"x","status":"success","output":"ok"}`,
	}

	var all []Event
	for _, l := range lines {
		all = append(all, p.ParseLine(l)...)
	}

	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	req, res := all[0], all[1]
	if req.Kind != KindToolRequest || req.ID != "x" || req.Tool != "shell" {
		t.Fatalf("unexpected request event: %+v", req)
	}
	if res.Kind != KindToolResult || res.ID != "x" || res.Tool != "shell" {
		t.Fatalf("unexpected result event: %+v", res)
	}
	if res.Ok == nil || !*res.Ok {
		t.Fatalf("expected ok=true result, got %+v", res)
	}
}

func TestCompositeParserEarlyExitOnNonJSON(t *testing.T) {
	p := NewCompositeParser()
	if events := p.ParseLine("this is not json at all"); events != nil {
		t.Fatalf("expected nil for non-JSON line, got %+v", events)
	}
}

func TestCorrelateMatchedPairs(t *testing.T) {
	ok := true
	events := []Event{
		{Kind: KindToolRequest, ID: "a", Tool: "fs"},
		{Kind: KindToolResult, ID: "a", Tool: "fs", Ok: &ok},
		{Kind: KindToolRequest, ID: "b", Tool: "net"},
		{Kind: KindToolResult, ID: "b", Tool: "net", Ok: &ok},
	}
	stats := Correlate(events)
	if stats.MatchedPairs != 2 || stats.RequestCount != 2 || stats.ResultCount != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.UnmatchedRequests != 0 || stats.UnmatchedResults != 0 {
		t.Fatalf("expected zero unmatched, got %+v", stats)
	}
}

func TestCorrelateUnmatchedAndDuplicates(t *testing.T) {
	events := []Event{
		{Kind: KindToolRequest, ID: "a", Tool: "fs"},
		{Kind: KindToolRequest, ID: "a", Tool: "fs"},
		{Kind: KindToolResult, ID: "missing", Tool: "fs"},
	}
	stats := Correlate(events)
	if stats.DuplicateRequestIDs != 1 {
		t.Fatalf("expected 1 duplicate request id, got %d", stats.DuplicateRequestIDs)
	}
	if stats.UnmatchedRequests != 1 {
		t.Fatalf("expected 1 unmatched request, got %d", stats.UnmatchedRequests)
	}
	if stats.UnmatchedResults != 1 {
		t.Fatalf("expected 1 unmatched result, got %d", stats.UnmatchedResults)
	}
}

func TestExtractRunIDPriority(t *testing.T) {
	if got := ExtractRunID(`{"sessionId":"s1","run_id":"r1"}`); got != "s1" {
		t.Fatalf("expected session_id-family precedence, got %q", got)
	}
	if got := ExtractRunID(`{"thread_id":"th1"}`); got != "th1" {
		t.Fatalf("expected thread_id fallback, got %q", got)
	}
	if got := ExtractRunID("not json"); got != "" {
		t.Fatalf("expected empty for non-json, got %q", got)
	}
}

func TestEventOutputString(t *testing.T) {
	raw, _ := json.Marshal("hello")
	e := Event{Output: raw}
	if e.OutputString() != "hello" {
		t.Fatalf("expected hello, got %q", e.OutputString())
	}
}
