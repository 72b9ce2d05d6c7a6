package executor

import "testing"

func TestContextInjectorPrefersResultsOverRawOutputs(t *testing.T) {
	p := NewContextInjectorPlugin()
	task := NewTask("t1", "body")

	ctx := ProcessContext{
		DependencyOutputs: map[string]string{"a": "out-a", "b": ""},
		DependencyResults: map[string]DependencyResult{"a": {ExitCode: 0, Output: "out-a"}},
	}

	result, err := p.Process(task, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(result.EnhancedContent, "=== Dependency Outputs ===") {
		t.Fatalf("missing header: %q", result.EnhancedContent)
	}
	if !contains(result.EnhancedContent, "# Task: a") {
		t.Fatalf("missing task a block: %q", result.EnhancedContent)
	}
	if contains(result.EnhancedContent, "# Task: b") {
		t.Fatalf("did not expect task b block: %q", result.EnhancedContent)
	}
	if result.EnhancedContent[len(result.EnhancedContent)-len("body"):] != "body" {
		t.Fatalf("expected content to end with original body: %q", result.EnhancedContent)
	}
}

func TestContextInjectorNoopWithoutDependencies(t *testing.T) {
	p := NewContextInjectorPlugin()
	task := NewTask("t1", "body")
	result, err := p.Process(task, ProcessContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EnhancedContent != "body" {
		t.Fatalf("expected unchanged content, got %q", result.EnhancedContent)
	}
}

func TestPromptEnhancerNoopByDefault(t *testing.T) {
	p := NewPromptEnhancerPlugin("", "")
	result, err := p.Process(NewTask("t1", "hello"), ProcessContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EnhancedContent != "hello" {
		t.Fatalf("expected noop, got %q", result.EnhancedContent)
	}
}

func TestPromptEnhancerWrapsPrefixAndSuffix(t *testing.T) {
	p := NewPromptEnhancerPlugin("prefix", "suffix")
	result, err := p.Process(NewTask("t1", "body"), ProcessContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EnhancedContent != "prefix\nbody\nsuffix" {
		t.Fatalf("expected %q, got %q", "prefix\nbody\nsuffix", result.EnhancedContent)
	}
}

func TestRunProcessorsAppliesContextInjectorBeforePromptEnhancer(t *testing.T) {
	processors := []TaskProcessor{
		NewPromptEnhancerPlugin("PRE", ""),
		NewContextInjectorPlugin(),
	}
	ctx := ProcessContext{DependencyOutputs: map[string]string{"a": "out-a"}}
	result, err := RunProcessors(processors, NewTask("t1", "body"), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// context-injector (priority 20) runs first, prepending the dependency
	// block around "body"; prompt-enhancer (priority 10) then wraps the
	// already-enhanced content with its own prefix.
	if !contains(result.EnhancedContent, "PRE\n=== Dependency Outputs ===") {
		t.Fatalf("expected prompt-enhancer to wrap context-injector output, got %q", result.EnhancedContent)
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
