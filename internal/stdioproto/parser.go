// Package stdioproto implements the STDIO multi-task block format from
// spec.md §6 — a sequence of
//
//	---TASK---
//	id: <token>
//	backend: <name>
//	workdir: <path>
//	[model: ...] [dependencies: a,b] [stream_format: text|jsonl] ...
//	---CONTENT---
//	<free-form task content>
//	---END---
//
// blocks, parsed into internal/executor.ExecutableTask values ready to
// feed the Task-DAG Executor. Recovered from
// original_source/cli/src/commands/stdio.rs and
// original_source/core/src/stdio/types.rs.
package stdioproto

import (
	"regexp"
	"strings"

	"github.com/haasonsaas/memex-cli/internal/executor"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
)

const (
	taskMarker    = "---TASK---"
	contentMarker = "---CONTENT---"
	endMarker     = "---END---"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseTasks parses a full STDIO input document into an ordered slice of
// ExecutableTask. It returns a *kernelerr.Error with Kind StdioProtocol on
// any grammar violation, duplicate id, or unresolved dependency.
func ParseTasks(input string) ([]executor.ExecutableTask, error) {
	blocks, err := splitBlocks(input)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, kernelerr.NewStdioError(kernelerr.NoTasks, "input contained no %s blocks", taskMarker)
	}

	tasks := make([]executor.ExecutableTask, 0, len(blocks))
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		task, err := b.toTask()
		if err != nil {
			return nil, err
		}
		if !idPattern.MatchString(task.ID) {
			return nil, kernelerr.NewStdioError(kernelerr.InvalidId, "%q", task.ID)
		}
		if seen[task.ID] {
			return nil, kernelerr.NewStdioError(kernelerr.DuplicateId, "%q", task.ID)
		}
		seen[task.ID] = true
		tasks = append(tasks, task)
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if !seen[dep] {
				return nil, kernelerr.NewStdioError(kernelerr.UnknownDependency, "task %q depends on unknown %q", t.ID, dep)
			}
		}
	}
	if err := checkAcyclic(tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// rawBlock is one ---TASK---/---CONTENT---/---END--- block before its
// header lines have been validated against required fields.
type rawBlock struct {
	headers map[string]string
	content string
}

func splitBlocks(input string) ([]rawBlock, error) {
	lines := strings.Split(input, "\n")
	var blocks []rawBlock

	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != taskMarker {
			i++
			continue
		}
		i++

		headers := map[string]string{}
		for i < len(lines) {
			trimmed := strings.TrimRight(lines[i], "\r")
			if strings.TrimSpace(trimmed) == contentMarker {
				i++
				break
			}
			if i == len(lines)-1 {
				return nil, kernelerr.NewStdioError(kernelerr.MissingContentMarker, "block starting near line %d", i)
			}
			if key, value, ok := splitHeaderLine(trimmed); ok {
				headers[key] = value
			}
			i++
		}
		var contentLines []string
		found := false
		for i < len(lines) {
			trimmed := strings.TrimRight(lines[i], "\r")
			if strings.TrimSpace(trimmed) == endMarker {
				found = true
				i++
				break
			}
			contentLines = append(contentLines, lines[i])
			i++
		}
		if !found {
			return nil, kernelerr.NewStdioError(kernelerr.MissingEndMarker, "block for id %q", headers["id"])
		}

		blocks = append(blocks, rawBlock{
			headers: headers,
			content: strings.Join(contentLines, "\n"),
		})
	}

	return blocks, nil
}

func splitHeaderLine(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

func (b rawBlock) toTask() (executor.ExecutableTask, error) {
	id := b.headers["id"]
	if id == "" {
		return executor.ExecutableTask{}, kernelerr.NewStdioError(kernelerr.MissingField, "field %q", "id")
	}

	task := executor.NewTask(id, b.content)
	if deps := b.headers["dependencies"]; deps != "" {
		parts := strings.Split(deps, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				list = append(list, p)
			}
		}
		task.Dependencies = list
	}

	task.Metadata = executor.TaskMetadata{
		Backend:       b.headers["backend"],
		Workdir:       b.headers["workdir"],
		Model:         b.headers["model"],
		ModelProvider: b.headers["model_provider"],
		StreamFormat:  b.headers["stream_format"],
	}
	return task, nil
}

// checkAcyclic runs the same DFS the Executor's graph builder uses, so a
// cycle in STDIO input is reported as a StdioProtocol error before ever
// reaching the Executor (which would otherwise report it as an Executor
// CircularDependency error one layer down).
func checkAcyclic(tasks []executor.ExecutableTask) error {
	byID := make(map[string]executor.ExecutableTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(tasks))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case gray:
			return kernelerr.NewStdioError(kernelerr.StdioCircularDependency, "cycle reached %q", id)
		case black:
			return nil
		}
		state[id] = gray
		for _, dep := range byID[id].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = black
		return nil
	}
	for _, t := range tasks {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}
