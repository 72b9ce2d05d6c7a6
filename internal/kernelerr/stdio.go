package kernelerr

import "fmt"

// StdioReason enumerates the STDIO multi-task block format failures from
// spec.md §7, recovered from original_source/core/src/error/stdio.rs's
// StdioError variants.
type StdioReason string

const (
	NoTasks               StdioReason = "no_tasks"
	MissingField          StdioReason = "missing_field"
	InvalidMetadataLine   StdioReason = "invalid_metadata_line"
	MissingContentMarker  StdioReason = "missing_content_marker"
	MissingEndMarker      StdioReason = "missing_end_marker"
	InvalidId             StdioReason = "invalid_id"
	DuplicateId            StdioReason = "duplicate_id"
	UnknownDependency      StdioReason = "unknown_dependency"
	StdioCircularDependency StdioReason = "circular_dependency"
)

// NewStdioError builds a StdioProtocol-kind Error for reason with a
// formatted detail message.
func NewStdioError(reason StdioReason, format string, args ...any) *Error {
	return &Error{
		Kind:    StdioProtocol,
		Message: fmt.Sprintf("%s: %s", reason, fmt.Sprintf(format, args...)),
		Cause:   reasonError{reason: string(reason)},
	}
}

// StdioReasonOf extracts the StdioReason from err if it is a
// StdioProtocol-kind Error built by NewStdioError.
func StdioReasonOf(err error) (StdioReason, bool) {
	kind, ok := KindOf(err)
	if !ok || kind != StdioProtocol {
		return "", false
	}
	kerr, ok := asKernelErr(err)
	if !ok {
		return "", false
	}
	if re, ok := kerr.Cause.(reasonError); ok {
		return StdioReason(re.reason), true
	}
	return "", false
}
