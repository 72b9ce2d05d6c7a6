package gatekeeper

import "testing"

func TestRenderMemoryContextEmptyWithNoItems(t *testing.T) {
	if got := RenderMemoryContext(nil, DefaultInjectConfig()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRenderMemoryContextIncludesAnchorAndMeta(t *testing.T) {
	items := []InjectItem{
		{QAID: "m1", Question: "how  do\nI deploy?", Answer: "use the deploy script", Trust: 0.8, ValidationLevel: 2, Score: 0.91, Tags: []string{"ops"}},
	}
	out := RenderMemoryContext(items, DefaultInjectConfig())

	if !contains(out, "[QA_REF m1]") {
		t.Fatalf("expected anchor, got %q", out)
	}
	if !contains(out, "Q: how do I deploy?") {
		t.Fatalf("expected collapsed whitespace question, got %q", out)
	}
	if !contains(out, "Meta: level=2 trust=0.80 score=0.91 tags=ops") {
		t.Fatalf("expected meta line, got %q", out)
	}
}

func TestRenderMemoryContextPrefersSummaryOverAnswer(t *testing.T) {
	items := []InjectItem{{QAID: "m1", Summary: "short summary", Answer: "full long answer"}}
	out := RenderMemoryContext(items, DefaultInjectConfig())
	if !contains(out, "A: short summary") {
		t.Fatalf("expected summary preferred over answer, got %q", out)
	}
}

func TestRenderMemoryContextTruncatesLongAnswers(t *testing.T) {
	long := make([]byte, 50)
	for i := range long {
		long[i] = 'a'
	}
	items := []InjectItem{{QAID: "m1", Answer: string(long)}}
	out := RenderMemoryContext(items, InjectConfig{MaxItems: 1, MaxAnswerChars: 10, IncludeMetaLine: false})
	if !contains(out, "aaaaaaaaaa ...") {
		t.Fatalf("expected truncated answer, got %q", out)
	}
}

func TestRenderMemoryContextRespectsMaxItems(t *testing.T) {
	items := []InjectItem{{QAID: "m1"}, {QAID: "m2"}, {QAID: "m3"}}
	out := RenderMemoryContext(items, InjectConfig{MaxItems: 2, MaxAnswerChars: 100})
	if contains(out, "[QA_REF m3]") {
		t.Fatalf("expected only first 2 items rendered, got %q", out)
	}
}

func TestMergePromptPrependsContext(t *testing.T) {
	got := MergePrompt("what's next?", "[MEMORY_CONTEXT v1]\n...\n[/MEMORY_CONTEXT]\n")
	if !contains(got, "what's next?") || !contains(got, "[MEMORY_CONTEXT v1]") {
		t.Fatalf("expected merged prompt, got %q", got)
	}
}

func TestMergePromptReturnsQueryUnchangedWhenContextBlank(t *testing.T) {
	if got := MergePrompt("hello", "   "); got != "hello" {
		t.Fatalf("expected unchanged query, got %q", got)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
