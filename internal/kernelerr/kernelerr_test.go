package kernelerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	base := New(Config, "missing db_path", nil)
	wrapped := errors.New("outer: " + base.Error())
	if _, ok := KindOf(wrapped); ok {
		t.Fatal("expected plain errors.New to not carry a Kind")
	}

	err := fmt.Errorf("outer: %w", base)
	if kind, ok := KindOf(err); !ok || kind != Config {
		t.Fatalf("expected Config kind, got %v %v", kind, ok)
	}
}

func TestExitCodeMapsKindsPerSpec(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Config, 11},
		{Spawn, 20},
		{Io, 20},
		{Plugin, 50},
		{Replay, 50},
		{Executor, 50},
		{StdioProtocol, 50},
		{Command, 50},
	}
	for _, c := range cases {
		got := ExitCode(New(c.kind, "", nil))
		if got != c.want {
			t.Errorf("ExitCode(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("untyped")); got != 50 {
		t.Errorf("ExitCode(untyped) = %d, want 50", got)
	}
}

func TestWrapReturnsNilForNilCause(t *testing.T) {
	if Wrap(Io, nil) != nil {
		t.Fatal("expected Wrap(kind, nil) to return nil")
	}
	wrapped := Wrap(Io, errors.New("disk full"))
	if wrapped == nil || wrapped.Kind != Io {
		t.Fatalf("expected Io-kind error, got %+v", wrapped)
	}
}

func TestExecutorReasonRoundTrips(t *testing.T) {
	err := NewExecutorError(CircularDependency, "a -> b -> a")
	kind, ok := KindOf(err)
	if !ok || kind != Executor {
		t.Fatalf("expected Executor kind, got %v %v", kind, ok)
	}
	reason, ok := ExecutorReasonOf(err)
	if !ok || reason != CircularDependency {
		t.Fatalf("expected CircularDependency reason, got %v %v", reason, ok)
	}
}

func TestStdioReasonRoundTrips(t *testing.T) {
	err := NewStdioError(DuplicateId, "task %q repeated", "t1")
	reason, ok := StdioReasonOf(err)
	if !ok || reason != DuplicateId {
		t.Fatalf("expected DuplicateId reason, got %v %v", reason, ok)
	}
	if _, ok := StdioReasonOf(NewExecutorError(StageTimeout, "stage 0")); ok {
		t.Fatal("expected StdioReasonOf to reject an Executor-kind error")
	}
}

func TestErrorIsComparesKindOnly(t *testing.T) {
	a := New(Config, "first", nil)
	b := New(Config, "second", nil)
	c := New(Io, "third", nil)
	if !errors.Is(a, b) {
		t.Fatal("expected two Config errors to satisfy errors.Is")
	}
	if errors.Is(a, c) {
		t.Fatal("expected Config and Io errors to not satisfy errors.Is")
	}
}
