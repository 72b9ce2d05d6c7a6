package kernelerr

import "fmt"

// Executor reasons. These are the concrete failures the Task-DAG
// Executor (internal/executor) raises, each reported as an Error with
// Kind Executor so a caller only needs one errors.As to learn both "this
// was an executor failure" and which one via Reason.
type ExecutorReason string

const (
	DuplicateTaskId     ExecutorReason = "duplicate_task_id"
	DependencyNotFound  ExecutorReason = "dependency_not_found"
	CircularDependency  ExecutorReason = "circular_dependency"
	TaskExecutionFailed ExecutorReason = "task_execution_failed"
	StageTimeout        ExecutorReason = "stage_timeout"
)

// NewExecutorError builds an Executor-kind Error carrying reason and the
// formatted detail, mirroring the one-variant-per-failure shape of the
// original Rust ExecutorError enum.
func NewExecutorError(reason ExecutorReason, format string, args ...any) *Error {
	return &Error{
		Kind:    Executor,
		Message: fmt.Sprintf("%s: %s", reason, fmt.Sprintf(format, args...)),
		Cause:   reasonError{reason: string(reason)},
	}
}

// reasonError lets errors.Is distinguish executor failure reasons without
// exporting a sentinel var per reason.
type reasonError struct{ reason string }

func (r reasonError) Error() string { return r.reason }

// ExecutorReasonOf extracts the ExecutorReason from err if it is an
// Executor-kind Error built by NewExecutorError.
func ExecutorReasonOf(err error) (ExecutorReason, bool) {
	kind, ok := KindOf(err)
	if !ok || kind != Executor {
		return "", false
	}
	var kerr *Error
	if kerr, ok = asKernelErr(err); !ok {
		return "", false
	}
	if re, ok := kerr.Cause.(reasonError); ok {
		return ExecutorReason(re.reason), true
	}
	return "", false
}

func asKernelErr(err error) (*Error, bool) {
	kerr, ok := err.(*Error)
	if ok {
		return kerr, true
	}
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
		if kerr, ok = err.(*Error); ok {
			return kerr, true
		}
		if err == nil {
			return nil, false
		}
	}
}
