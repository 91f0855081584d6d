// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package fnerrors defines the closed taxonomy of errors this repository
// surfaces across component boundaries (compiler, runner, orchestrator,
// plugin runtime), per spec §7. Every exported constructor attaches a
// stack trace at the point of invocation so `Format` can render a
// reproducible report: command line, captured stderr, and cause.
package fnerrors

import (
	"errors"
	"fmt"
	"io"

	"github.com/kr/text"
	"github.com/morikuni/aec"
	"pluginhost.dev/core/internal/fnerrors/stacktrace"
)

// fnError is the common embed for every error in this package; it carries
// a stack trace captured at construction time.
type fnError struct {
	Err   error
	stack stacktrace.StackTrace
}

func (f *fnError) Error() string                       { return f.Err.Error() }
func (f *fnError) Unwrap() error                        { return f.Err }
func (f *fnError) StackTrace() stacktrace.StackTrace { return f.stack }

func wrap(err error) fnError {
	return fnError{Err: err, stack: stacktrace.NewWithSkip(2)}
}

// New returns a generic error with a captured stack trace, for situations
// that don't fit the taxonomy below (e.g. invariant violations inside the
// graph serializer).
func New(format string, args ...interface{}) error {
	return &internalError{wrap(fmt.Errorf(format, args...))}
}

// InternalError signals an unexpected situation not attributable to user
// input or a subprocess.
func InternalError(format string, args ...interface{}) error {
	return &internalError{wrap(fmt.Errorf(format, args...))}
}

type internalError struct{ fnError }

func (e *internalError) Error() string { return "internal error: " + e.fnError.Error() }

// WorkDirectoryCreationFailed — the per-invocation work directory
// (outputDir/package/target/plugin) could not be created.
type WorkDirectoryCreationFailedError struct {
	fnError
	Path string
}

func WorkDirectoryCreationFailed(path string, cause error) error {
	return &WorkDirectoryCreationFailedError{wrap(fmt.Errorf("creating work directory %s: %w", path, cause)), path}
}

func (e *WorkDirectoryCreationFailedError) Error() string {
	return fmt.Sprintf("could not create work directory %s: %v", e.Path, e.fnError.Err)
}

// CompilationResulter is satisfied by compiler.CompilationResult without
// this package importing the compiler package (which itself imports
// fnerrors); it's the minimal surface Format needs to render a
// reproducible compilation failure.
type CompilationResulter interface {
	CommandLine() []string
	RawOutput() string
}

// CompilationFailed — the compiler ran to completion but did not produce
// an executable (compiler diagnostics are preserved separately).
type CompilationFailedError struct {
	fnError
	Result CompilationResulter
}

func CompilationFailed(result CompilationResulter) error {
	return &CompilationFailedError{wrap(fmt.Errorf("compilation failed")), result}
}

func (e *CompilationFailedError) Error() string {
	if e.Result == nil {
		return "compilation failed"
	}
	return fmt.Sprintf("compilation failed (command: %v)", e.Result.CommandLine())
}

// SubprocessDidNotStart — the plugin executable could not even be
// spawned (e.g. exec format error, missing file, permission denied).
type SubprocessDidNotStartError struct {
	fnError
	Command []string
}

func SubprocessDidNotStart(message string, command []string) error {
	return &SubprocessDidNotStartError{wrap(fmt.Errorf("%s", message)), command}
}

func (e *SubprocessDidNotStartError) Error() string {
	return fmt.Sprintf("subprocess did not start: %s (command: %v)", e.fnError.Err, e.Command)
}

// SubprocessFailed — the plugin process exited with a non-zero code.
type SubprocessFailedError struct {
	fnError
	ExitInfo string
	Command  []string
	Stderr   string
}

func SubprocessFailed(exitInfo string, command []string, stderrText string) error {
	return &SubprocessFailedError{wrap(fmt.Errorf("subprocess failed: %s", exitInfo)), exitInfo, command, stderrText}
}

func (e *SubprocessFailedError) Error() string {
	return fmt.Sprintf("subprocess failed: %s (command: %v)", e.ExitInfo, e.Command)
}

// MissingPluginOutput — the process exited 0 but never sent a terminal
// ActionComplete message.
type MissingPluginOutputError struct {
	fnError
	Command []string
	Stderr  string
}

func MissingPluginOutput(message string, command []string, stderrText string) error {
	return &MissingPluginOutputError{wrap(fmt.Errorf("%s", message)), command, stderrText}
}

func (e *MissingPluginOutputError) Error() string {
	return fmt.Sprintf("plugin produced no output: %s (command: %v)", e.fnError.Err, e.Command)
}

// ActionReportedFailure — the plugin ran to completion and sent
// ActionComplete{success: false}; distinct from MissingPluginOutput (no
// terminal message at all). Diagnostics accumulated before the terminal
// message are not carried: the runner returns no Output alongside this
// error, since per spec §4.D the invocation as a whole did not succeed,
// so the orchestrator treats it as a failed invocation rather than a
// successful one with failure diagnostics riding along.
type ActionReportedFailureError struct {
	fnError
	Command []string
	Stderr  string
}

func ActionReportedFailure(command []string, stderrText string) error {
	return &ActionReportedFailureError{wrap(fmt.Errorf("plugin reported action failure")), command, stderrText}
}

func (e *ActionReportedFailureError) Error() string {
	return fmt.Sprintf("plugin reported action failure (command: %v)", e.Command)
}

// Cancelled — the host closed stdin to cancel the invocation; distinct
// from SubprocessFailed per spec §5.
type CancelledError struct{ fnError }

func Cancelled() error {
	return &CancelledError{wrap(fmt.Errorf("invocation cancelled"))}
}

func (e *CancelledError) Error() string { return "invocation cancelled" }

// Framing errors (spec §4.D).

type MalformedMessageError struct{ fnError }

func MalformedMessage(cause error) error {
	return &MalformedMessageError{wrap(fmt.Errorf("malformed message: %w", cause))}
}

type TruncatedHeaderError struct{ fnError }

func TruncatedHeader() error {
	return &TruncatedHeaderError{wrap(fmt.Errorf("truncated frame header"))}
}

type TruncatedPayloadError struct{ fnError }

func TruncatedPayload() error {
	return &TruncatedPayloadError{wrap(fmt.Errorf("truncated frame payload"))}
}

type InvalidPayloadSizeError struct {
	fnError
	Size int64
}

func InvalidPayloadSize(size int64) error {
	return &InvalidPayloadSizeError{wrap(fmt.Errorf("invalid payload size %d", size)), size}
}

// DecodingPluginOutputFailed — a frame was received intact but its JSON
// payload didn't decode into a recognized message.
type DecodingPluginOutputFailedError struct {
	fnError
	Payload []byte
}

func DecodingPluginOutputFailed(payload []byte, cause error) error {
	return &DecodingPluginOutputFailedError{wrap(fmt.Errorf("decoding plugin output: %w", cause)), payload}
}

// ToolNotFound — raised plugin-side when a capability requests a tool
// name absent from the invocation's tool map.
type ToolNotFoundError struct {
	fnError
	Name string
}

func ToolNotFound(name string) error {
	return &ToolNotFoundError{wrap(fmt.Errorf("tool not found: %s", name)), name}
}

func (e *ToolNotFoundError) Error() string { return fmt.Sprintf("tool not found: %s", e.Name) }

// MalformedInputJSON — raised plugin-side when the host's Input fails to
// decode, or when the requested action doesn't match the plugin's
// declared capability.
type MalformedInputJSONError struct{ fnError }

func MalformedInputJSON(message string) error {
	return &MalformedInputJSONError{wrap(fmt.Errorf("%s", message))}
}

// IsCancelled reports whether err (or something it wraps) is a
// CancelledError.
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}

// FormatOptions controls how Format renders an error.
type FormatOptions struct {
	colors  bool
	tracing bool
}

type FormatOption func(*FormatOptions)

func WithColors(v bool) FormatOption  { return func(o *FormatOptions) { o.colors = v } }
func WithTracing(v bool) FormatOption { return func(o *FormatOptions) { o.tracing = v } }

// Format writes a human-readable, reproducible report for err: when err
// itself is one of the typed errors below, its command line and any
// captured stderr are included, per spec §7's "user-visible behavior"
// requirement. A typed error wrapped inside another error is not
// unwrapped; only its message is printed.
func Format(w io.Writer, err error, opts ...FormatOption) {
	o := &FormatOptions{}
	for _, apply := range opts {
		apply(o)
	}

	label := "Failed: "
	if o.colors {
		label = aec.RedF.With(aec.Bold).Apply(label)
	}
	fmt.Fprint(w, label)
	fmt.Fprintln(w, err.Error())

	switch x := err.(type) {
	case *SubprocessFailedError:
		printCommandAndStderr(w, x.Command, x.Stderr, o)
	case *MissingPluginOutputError:
		printCommandAndStderr(w, x.Command, x.Stderr, o)
	case *ActionReportedFailureError:
		printCommandAndStderr(w, x.Command, x.Stderr, o)
	case *SubprocessDidNotStartError:
		printCommand(w, x.Command, o)
	case *CompilationFailedError:
		if x.Result != nil {
			printCommand(w, x.Result.CommandLine(), o)
			printIndented(w, x.Result.RawOutput(), o)
		}
	}

	if o.tracing {
		if st, ok := err.(interface{ StackTrace() stacktrace.StackTrace }); ok {
			fmt.Fprintf(w, "%+v\n", st.StackTrace())
		}
	}
}

func printCommand(w io.Writer, command []string, o *FormatOptions) {
	if len(command) == 0 {
		return
	}
	label := "command: "
	if o.colors {
		label = aec.CyanF.Apply(label)
	}
	fmt.Fprintf(w, "%s%v\n", label, command)
}

func printCommandAndStderr(w io.Writer, command []string, stderrText string, o *FormatOptions) {
	printCommand(w, command, o)
	if stderrText != "" {
		label := "stderr: "
		if o.colors {
			label = aec.CyanF.Apply(label)
		}
		fmt.Fprint(w, label)
		printIndented(w, stderrText, o)
	}
}

func printIndented(w io.Writer, s string, _ *FormatOptions) {
	iw := text.NewIndentWriter(w, []byte("  "))
	fmt.Fprintln(iw, s)
}
