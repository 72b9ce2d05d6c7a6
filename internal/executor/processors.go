package executor

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyResult is the subset of a completed dependency's outcome
// that a processor may inject into a downstream task's content.
type DependencyResult struct {
	ExitCode int
	Output   string
}

// ProcessContext carries the information a TaskProcessor needs: the
// outputs (and, when available, richer results) of a task's completed
// dependencies, plus the run/stage it belongs to.
type ProcessContext struct {
	DependencyOutputs map[string]string
	DependencyResults map[string]DependencyResult
	RunID             string
	StageID           int
}

// ProcessedTask is a task after enhancement: the original task plus the
// content that should actually be sent to the backend.
type ProcessedTask struct {
	Original        ExecutableTask
	EnhancedContent string
}

// TaskProcessor rewrites a task's content before it runs. Processors run
// in descending priority order: higher priority runs first, so
// ContextInjector(20) runs before PromptEnhancer(10).
type TaskProcessor interface {
	Name() string
	Priority() int
	Process(task ExecutableTask, ctx ProcessContext) (ProcessedTask, error)
}

// RunProcessors applies processors in descending priority order,
// threading each one's enhanced content into the next.
func RunProcessors(processors []TaskProcessor, task ExecutableTask, ctx ProcessContext) (ProcessedTask, error) {
	ordered := append([]TaskProcessor(nil), processors...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority() > ordered[j].Priority() })

	current := task
	result := ProcessedTask{Original: task, EnhancedContent: task.Content}
	for _, p := range ordered {
		next, err := p.Process(current, ctx)
		if err != nil {
			return ProcessedTask{}, fmt.Errorf("executor: processor %s: %w", p.Name(), err)
		}
		result = next
		current.Content = next.EnhancedContent
	}
	return result, nil
}

// ContextInjectorPlugin prepends a "Dependency Outputs" block built from
// a task's completed dependencies. When per-dependency exit codes are
// available it prefers those (richer: shows exit code per task),
// otherwise it falls back to raw output strings, skipping empty ones.
type ContextInjectorPlugin struct{}

func NewContextInjectorPlugin() *ContextInjectorPlugin { return &ContextInjectorPlugin{} }

func (p *ContextInjectorPlugin) Name() string { return "context-injector" }

func (p *ContextInjectorPlugin) Priority() int { return 20 }

func (p *ContextInjectorPlugin) Process(task ExecutableTask, ctx ProcessContext) (ProcessedTask, error) {
	if len(ctx.DependencyOutputs) == 0 && len(ctx.DependencyResults) == 0 {
		return ProcessedTask{Original: task, EnhancedContent: task.Content}, nil
	}

	var b strings.Builder
	b.WriteString("=== Dependency Outputs ===\n\n")
	added := false

	if len(ctx.DependencyResults) > 0 {
		ids := make([]string, 0, len(ctx.DependencyResults))
		for id := range ctx.DependencyResults {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			result := ctx.DependencyResults[id]
			fmt.Fprintf(&b, "# Task: %s\n", id)
			fmt.Fprintf(&b, "Exit Code: %d\n", result.ExitCode)
			if result.Output != "" {
				b.WriteString("Output:\n")
				b.WriteString(result.Output)
				if !strings.HasSuffix(result.Output, "\n") {
					b.WriteByte('\n')
				}
				b.WriteByte('\n')
			}
			added = true
		}
	} else {
		ids := make([]string, 0, len(ctx.DependencyOutputs))
		for id := range ctx.DependencyOutputs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			output := ctx.DependencyOutputs[id]
			if output == "" {
				continue
			}
			fmt.Fprintf(&b, "# Task: %s\n", id)
			b.WriteString("Output:\n")
			b.WriteString(output)
			if !strings.HasSuffix(output, "\n") {
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
			added = true
		}
	}

	if !added {
		return ProcessedTask{Original: task, EnhancedContent: task.Content}, nil
	}

	b.WriteString("=== End Dependency Outputs ===\n")
	enhanced := fmt.Sprintf("%s\n\n%s", b.String(), task.Content)

	return ProcessedTask{Original: task, EnhancedContent: enhanced}, nil
}

// PromptEnhancerPlugin wraps a task's content with a fixed prefix and/or
// suffix. With neither set it is a no-op.
type PromptEnhancerPlugin struct {
	Prefix string
	Suffix string
}

func NewPromptEnhancerPlugin(prefix, suffix string) *PromptEnhancerPlugin {
	return &PromptEnhancerPlugin{Prefix: prefix, Suffix: suffix}
}

func (p *PromptEnhancerPlugin) Name() string { return "prompt-enhancer" }

func (p *PromptEnhancerPlugin) Priority() int { return 10 }

func (p *PromptEnhancerPlugin) Process(task ExecutableTask, _ ProcessContext) (ProcessedTask, error) {
	var b strings.Builder

	if p.Prefix != "" {
		b.WriteString(p.Prefix)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	b.WriteString(task.Content)

	if p.Suffix != "" {
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(p.Suffix)
	}

	return ProcessedTask{Original: task, EnhancedContent: b.String()}, nil
}
