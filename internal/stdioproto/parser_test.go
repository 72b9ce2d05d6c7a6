package stdioproto

import (
	"testing"

	"github.com/haasonsaas/memex-cli/internal/kernelerr"
)

func TestParseTasksSingleBlock(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp/proj
---CONTENT---
fix the bug
---END---
`
	tasks, err := ParseTasks(input)
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].ID != "t1" || tasks[0].Content != "fix the bug" {
		t.Fatalf("unexpected task: %+v", tasks[0])
	}
	if tasks[0].Metadata.Backend != "claude-code" || tasks[0].Metadata.Workdir != "/tmp/proj" {
		t.Fatalf("unexpected metadata: %+v", tasks[0].Metadata)
	}
}

func TestParseTasksMultipleBlocksWithDependencies(t *testing.T) {
	input := `---TASK---
id: a
backend: claude-code
workdir: /tmp
dependencies: b,c
---CONTENT---
task a
---END---
---TASK---
id: b
backend: claude-code
workdir: /tmp
dependencies: c
---CONTENT---
task b
---END---
---TASK---
id: c
backend: claude-code
workdir: /tmp
---CONTENT---
task c
---END---
`
	tasks, err := ParseTasks(input)
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if got := tasks[0].Dependencies; len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected dependencies for a: %+v", got)
	}
}

func TestParseTasksUnknownKeysIgnored(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp
future_field: whatever
---CONTENT---
content
---END---
`
	tasks, err := ParseTasks(input)
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
}

func TestParseTasksNoBlocksIsNoTasks(t *testing.T) {
	_, err := ParseTasks("nothing to see here\n")
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.NoTasks {
		t.Fatalf("expected NoTasks, got %v %v", reason, ok)
	}
}

func TestParseTasksMissingContentMarkerIsError(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.MissingContentMarker {
		t.Fatalf("expected MissingContentMarker, got %v %v", reason, ok)
	}
}

func TestParseTasksMissingEndMarkerIsError(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp
---CONTENT---
content with no terminator
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.MissingEndMarker {
		t.Fatalf("expected MissingEndMarker, got %v %v", reason, ok)
	}
}

func TestParseTasksInvalidIdIsError(t *testing.T) {
	input := `---TASK---
id: not a valid id!
backend: claude-code
workdir: /tmp
---CONTENT---
content
---END---
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.InvalidId {
		t.Fatalf("expected InvalidId, got %v %v", reason, ok)
	}
}

func TestParseTasksDuplicateIdIsError(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp
---CONTENT---
first
---END---
---TASK---
id: t1
backend: claude-code
workdir: /tmp
---CONTENT---
second
---END---
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.DuplicateId {
		t.Fatalf("expected DuplicateId, got %v %v", reason, ok)
	}
}

func TestParseTasksUnknownDependencyIsError(t *testing.T) {
	input := `---TASK---
id: t1
backend: claude-code
workdir: /tmp
dependencies: ghost
---CONTENT---
content
---END---
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.UnknownDependency {
		t.Fatalf("expected UnknownDependency, got %v %v", reason, ok)
	}
}

func TestParseTasksCircularDependencyIsError(t *testing.T) {
	input := `---TASK---
id: a
backend: claude-code
workdir: /tmp
dependencies: b
---CONTENT---
a
---END---
---TASK---
id: b
backend: claude-code
workdir: /tmp
dependencies: a
---CONTENT---
b
---END---
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.StdioCircularDependency {
		t.Fatalf("expected StdioCircularDependency, got %v %v", reason, ok)
	}
}

func TestParseTasksMissingIdIsMissingField(t *testing.T) {
	input := `---TASK---
backend: claude-code
workdir: /tmp
---CONTENT---
content
---END---
`
	_, err := ParseTasks(input)
	reason, ok := kernelerr.StdioReasonOf(err)
	if !ok || reason != kernelerr.MissingField {
		t.Fatalf("expected MissingField, got %v %v", reason, ok)
	}
}
