// Package kernelerr provides the session execution kernel's typed error
// taxonomy: one Kind per failure domain (config, spawn, policy plugin,
// malformed CLI/STDIO input, filesystem, replay, executor, STDIO protocol),
// wrapped as a single *Error carrying the underlying cause.
package kernelerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a kernel failure for CLI exit-code mapping and logging.
type Kind string

const (
	Config       Kind = "config"
	Spawn        Kind = "spawn"
	Plugin       Kind = "plugin"
	Command      Kind = "command"
	Io           Kind = "io"
	Replay       Kind = "replay"
	Executor     Kind = "executor"
	StdioProtocol Kind = "stdio_protocol"
)

// Error is the kernel's single structured error type. Every component
// that needs to signal a typed failure wraps its cause with New rather
// than returning ad hoc sentinel values, so a caller five layers up
// (the CLI's exit-code mapper, the Gatekeeper's jsonl error line) can
// recover the Kind with errors.As regardless of how deep it was wrapped.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an *Error of the given kind. message may be empty, in
// which case Error() falls back to the cause's own message.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error of the same Kind, so callers can
// write errors.Is(err, kernelerr.New(kernelerr.Config, "", nil)) or, more
// idiomatically, use KindOf below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Kind, true
	}
	return "", false
}

// Wrap is a convenience for New(kind, "", cause); it returns nil if cause
// is nil so call sites can write `return kernelerr.Wrap(kernelerr.Io, err)`
// unconditionally after an operation that may or may not have failed.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return nil
	}
	return New(kind, "", cause)
}

// ExitCode maps a Kind to the CLI exit code named in spec.md §6: 0
// success, 11 config error, 20 runner/IO, 40 policy deny, 50 internal.
// Kinds with no dedicated code (Replay, Command, StdioProtocol) map to
// 50, matching the "internal" catch-all the CLI uses for anything that
// isn't a config problem, an IO/spawn problem, or a policy deny.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 50
	}
	switch kind {
	case Config:
		return 11
	case Spawn, Io:
		return 20
	case Plugin:
		return 50
	default:
		return 50
	}
}

// PolicyDenyExitCode is the exit code a run exits with when the
// Coordinator aborts a session for a policy deny, per spec.md §6's exit
// code table. It is not derived from a Kind because a policy abort is
// not itself an error value — the session still completes.
const PolicyDenyExitCode = 40
