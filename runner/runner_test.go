// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package runner_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/runner"
	"pluginhost.dev/core/schema"
)

// TestMain implements the os/exec help-process idiom (spec SPEC_FULL.md
// §1's "Test tooling"): when GO_WANT_HELPER_PROCESS is set, this test
// binary behaves as a fake plugin instead of running the test suite, so
// runner.Invoke can be exercised against a real subprocess without the
// Go toolchain building a separate fixture binary.
func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Exit(runHelperPlugin())
	}
	os.Exit(m.Run())
}

// runHelperPlugin reads one PerformAction frame from stdin and responds
// according to PLUGIN_BEHAVIOR, emulating the handful of scenarios the
// properties below need.
func runHelperPlugin() int {
	frame, err := framing.Read(os.Stdin)
	if err != nil {
		return 1
	}
	if _, err := schema.DecodeMessage(frame); err != nil {
		return 1
	}

	switch os.Getenv("PLUGIN_BEHAVIOR") {
	case "success":
		send(schema.DefineBuildCommandMessage(schema.BuildCommand{
			Command: schema.Command{DisplayName: "step one", Executable: "/bin/true"},
		}))
		send(schema.EmitDiagnosticMessage(schema.Diagnostic{Severity: schema.SeverityRemark, Message: "ok"}))
		send(schema.DefineBuildCommandMessage(schema.BuildCommand{
			Command: schema.Command{DisplayName: "step two", Executable: "/bin/true"},
		}))
		send(schema.ActionCompleteMessage(true))
		return 0
	case "reported-failure":
		send(schema.EmitDiagnosticMessage(schema.Diagnostic{Severity: schema.SeverityError, Message: "boom"}))
		send(schema.ActionCompleteMessage(false))
		return 0
	case "crash-no-output":
		return 17
	case "exit-without-complete":
		return 0
	case "hang":
		fmt.Fprintln(os.Stderr, "hanging")
		time.Sleep(time.Hour)
		return 0
	case "exit-during-grace":
		// Exits cleanly, without ever sending ActionComplete, shortly after
		// stdin closes (which is what cancellation does first) but still
		// inside the grace period — this must still be reported as
		// Cancelled, not MissingPluginOutput.
		io.Copy(io.Discard, os.Stdin)
		time.Sleep(20 * time.Millisecond)
		return 0
	default:
		return 1
	}
}

func send(m schema.Message) {
	payload, err := schema.Encode(m)
	if err != nil {
		return
	}
	framing.Write(os.Stdout, payload)
}

// fakeSink collects every line posted to it.
type fakeSink struct{ lines []string }

func (s *fakeSink) WriteLine(line string) { s.lines = append(s.lines, line) }

// helperExecutable returns a tiny shell script that re-execs this test
// binary as the helper process with the given PLUGIN_BEHAVIOR, letting
// runner.Invoke spawn it with no in-band arguments (spec §4.D "Spawn" —
// argv is the executable alone), same pattern as compiler_test.go's
// fake-compiler.sh.
func helperExecutable(t *testing.T, behavior string) string {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)

	dir := t.TempDir()
	script := filepath.Join(dir, "plugin.sh")
	contents := fmt.Sprintf("#!/bin/sh\nexport GO_WANT_HELPER_PROCESS=1\nexport PLUGIN_BEHAVIOR=%s\nexec %q -test.run=TestMain\n", behavior, self)
	require.NoError(t, os.WriteFile(script, []byte(contents), 0o755))
	return script
}

func testInput() schema.Input {
	return schema.Input{Action: schema.CreateBuildToolCommands(0)}
}

func TestInvokeSuccessOrdersCommandsAndDiagnostics(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	out, err := runner.Invoke(context.Background(), helperExecutable(t, "success"), []string{dir}, testInput(), sink)
	require.NoError(t, err)
	require.Len(t, out.BuildCommands, 2)
	require.Equal(t, "step one", out.BuildCommands[0].Command.DisplayName)
	require.Equal(t, "step two", out.BuildCommands[1].Command.DisplayName)
	require.Len(t, out.Diagnostics, 1)
}

func TestInvokeReportedFailureIsDistinctFromMissingOutput(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	// ActionComplete{success=false} is a clean protocol completion — the
	// plugin ran and explicitly said the action failed — which spec §4.D
	// still treats as an unsuccessful invocation, but it must be reported
	// as ActionReportedFailure, not MissingPluginOutput (which means no
	// terminal message arrived at all).
	_, err := runner.Invoke(context.Background(), helperExecutable(t, "reported-failure"), []string{dir}, testInput(), sink)
	require.Error(t, err)
	var reported *fnerrors.ActionReportedFailureError
	require.ErrorAs(t, err, &reported)
}

func TestInvokeCrashWithoutOutputIsSubprocessFailed(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	_, err := runner.Invoke(context.Background(), helperExecutable(t, "crash-no-output"), []string{dir}, testInput(), sink)
	require.Error(t, err)
	var failed *fnerrors.SubprocessFailedError
	require.ErrorAs(t, err, &failed)
}

func TestInvokeExitWithoutActionCompleteIsMissingPluginOutput(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	_, err := runner.Invoke(context.Background(), helperExecutable(t, "exit-without-complete"), []string{dir}, testInput(), sink)
	require.Error(t, err)
	var missing *fnerrors.MissingPluginOutputError
	require.ErrorAs(t, err, &missing)
}

func TestInvokeCancellationTerminatesHangingPlugin(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	orig := runner.GracePeriod
	runner.GracePeriod = 50 * time.Millisecond
	defer func() { runner.GracePeriod = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := runner.Invoke(ctx, helperExecutable(t, "hang"), []string{dir}, testInput(), sink)
	require.Error(t, err)

	var cancelled *fnerrors.CancelledError
	require.ErrorAs(t, err, &cancelled)
}

func TestInvokeCancellationDuringGracePeriodIsStillCancelled(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	orig := runner.GracePeriod
	runner.GracePeriod = time.Second
	defer func() { runner.GracePeriod = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// The plugin exits cleanly (without ever sending ActionComplete)
	// shortly after cancellation closes its stdin, well inside the grace
	// period, so the process-exit path never escalates to Kill; the
	// invocation must still be reported as Cancelled, not
	// MissingPluginOutput.
	_, err := runner.Invoke(ctx, helperExecutable(t, "exit-during-grace"), []string{dir}, testInput(), sink)
	require.Error(t, err)

	var cancelled *fnerrors.CancelledError
	require.ErrorAs(t, err, &cancelled)
}

func TestInvokeRunsInCacheDirWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}

	self, err := os.Executable()
	require.NoError(t, err)
	script := filepath.Join(dir, "pwd-check.sh")
	contents := fmt.Sprintf("#!/bin/sh\n[ \"$(pwd)\" = %q ] && export PLUGIN_BEHAVIOR=success || export PLUGIN_BEHAVIOR=crash-no-output\nexport GO_WANT_HELPER_PROCESS=1\nexec %q -test.run=TestMain\n", dir, self)
	require.NoError(t, os.WriteFile(script, []byte(contents), 0o755))

	out, err := runner.Invoke(context.Background(), script, []string{dir}, testInput(), sink)
	require.NoError(t, err)
	require.NotEmpty(t, out.BuildCommands)
}

