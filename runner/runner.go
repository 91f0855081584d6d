// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package runner spawns a compiled plugin executable under a sandbox
// profile, owns stdin/stdout/stderr plumbing and the framed-message I/O,
// and enforces termination semantics — Component D (spec §4.D). Grounded
// on the teacher's runtime/tools/lowlevel.go (os.Pipe wiring, an
// executor-based barrier wait, stderr routed to a sink), with the
// grpc-over-stdio transport swapped for the spec-normative raw
// length-prefixed JSON framing.
package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"pluginhost.dev/core/internal/executor"
	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/sandbox"
	"pluginhost.dev/core/internal/tasks"
	"pluginhost.dev/core/internal/textsink"
	"pluginhost.dev/core/schema"
)

// EnvPrefix names the environment variables reserved for host/runner
// coordination; they are unset before exec so the plugin can never
// observe them (spec §6 "Environment").
const EnvPrefix = "PLUGINHOST_"

// GracePeriod is how long a cancellation waits after closing stdin before
// escalating to a more forceful termination signal (spec §5
// "Cancellation").
var GracePeriod = 2 * time.Second

// Invoke spawns executable, feeds it input framed over stdin, forwards
// stderr to textSink, and accumulates everything it sends back into an
// Output, per the session loop in spec §4.D.
func Invoke(ctx context.Context, executable string, writableDirs []string, input schema.Input, textSink textsink.Sink) (*schema.Output, error) {
	var output *schema.Output

	err := tasks.Action("runner.invoke").Arg("executable", executable).Run(ctx, func(ctx context.Context) error {
		out, err := invoke(ctx, executable, writableDirs, input, textSink)
		output = out
		return err
	})

	return output, err
}

func invoke(ctx context.Context, executable string, writableDirs []string, input schema.Input, textSink textsink.Sink) (*schema.Output, error) {
	cacheDir := cacheDirOf(writableDirs)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	defer stdinR.Close()
	defer stdinW.Close()

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	defer stdoutR.Close()
	defer stdoutW.Close()

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	defer stderrR.Close()
	defer stderrW.Close()

	cmd := exec.Command(executable)
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.Dir = cacheDir
	cmd.Env = sanitizeEnv(os.Environ())

	if !sandbox.Supported() {
		textSink.WriteLine("sandboxing is not supported on this platform; running without confinement")
	} else if err := sandbox.New(writableDirs...).Apply(cmd); err != nil {
		return nil, fnerrors.SubprocessDidNotStart(err.Error(), []string{executable})
	}

	if err := cmd.Start(); err != nil {
		return nil, fnerrors.SubprocessDidNotStart(err.Error(), []string{executable})
	}
	// The child holds its own dup of these fds from fork; close the
	// parent's copies of the child-owned ends so EOF propagates once the
	// child exits.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	sess := newSession(stdinW, stdoutR, input)

	queue := textsink.NewQueue(textSink)
	lineWriter := textsink.NewLineWriter(queue)
	var stderrCapture bytes.Buffer
	stderrDest := io.MultiWriter(lineWriter, &stderrCapture)

	eg, wait := executor.New(ctx, "runner.invoke")

	eg.Go(func(context.Context) error {
		_, err := io.Copy(stderrDest, stderrR)
		lineWriter.Flush()
		return err
	})

	eg.Go(func(context.Context) error {
		return runCancelable(ctx, stdinW, cmd)
	})

	eg.Go(func(ctx context.Context) error {
		return sess.run(ctx)
	})

	waitErr := wait()
	queue.Close()

	stderrText := stderrCapture.String()

	// ctx being done covers both cancellation paths: the grace period
	// expiring and the process getting killed (runCancelable's wrapped
	// fnerrors.Cancelled, no longer the bare context.Canceled sentinel
	// once it passes through the executor), and the process exiting
	// cleanly inside the grace period (runCancelable returns nil, which
	// would otherwise fall through to a misleading MissingPluginOutput).
	if ctx.Err() != nil || fnerrors.IsCancelled(waitErr) {
		return nil, fnerrors.Cancelled()
	}

	if waitErr != nil {
		return nil, fnerrors.SubprocessFailed(exitInfo(cmd, waitErr), []string{executable}, stderrText)
	}

	done, success := sess.terminalState()
	switch {
	case !done:
		return nil, fnerrors.MissingPluginOutput("plugin exited without an ActionComplete message", []string{executable}, stderrText)
	case !success:
		return nil, fnerrors.ActionReportedFailure([]string{executable}, stderrText)
	}

	return sess.output(), nil
}

// runCancelable waits for the process to exit, or for ctx to be done, in
// which case it closes stdin and escalates to Kill after GracePeriod if
// the process hasn't exited by itself (spec §5 "Cancellation").
func runCancelable(ctx context.Context, stdinW *os.File, cmd *exec.Cmd) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		stdinW.Close()
		select {
		case err := <-done:
			return err
		case <-time.After(GracePeriod):
			_ = cmd.Process.Kill()
			<-done
			return fnerrors.Cancelled()
		}
	}
}

func exitInfo(cmd *exec.Cmd, waitErr error) string {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.String()
	}
	return waitErr.Error()
}

// cacheDirOf returns the last of writableDirs, which by convention is the
// cache directory the subprocess's working directory is set to (spec
// §4.D "Spawn" — "the subprocess working directory to the cache
// directory").
func cacheDirOf(writableDirs []string) string {
	if len(writableDirs) == 0 {
		return ""
	}
	return writableDirs[len(writableDirs)-1]
}

func sanitizeEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}
