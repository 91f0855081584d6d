// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package localexec runs a local subprocess to completion, wrapping it in
// a tasks.Action so every shell-out is logged and traced uniformly.
// Adapted from the teacher's internal/localexec/command.go, dropping the
// interactive-console output routing (no interactive terminal UI in this
// subsystem) in favor of plain buffered output capture.
package localexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"pluginhost.dev/core/internal/tasks"
)

// Command describes one subprocess invocation.
type Command struct {
	Label         string
	Command       string
	Dir           string
	Args          []string
	AdditionalEnv []string
}

// Result carries everything the caller needs to build a structured error
// if the subprocess fails: exit status and the captured combined output.
type Result struct {
	ExitCode int
	Output   string
}

// Run executes the command to completion and returns its captured output
// regardless of exit status; a non-nil error means the process could not
// be started, matching fnerrors.SubprocessDidNotStart's contract at the
// caller. A non-zero exit, including death by a signal (ExitCode -1), is
// reported through Result.ExitCode with a nil error.
func (c Command) Run(ctx context.Context) (Result, error) {
	var result Result

	err := tasks.Action("local.exec").Arg("label", c.label()).Arg("command", c.Command).Arg("args", c.Args).Run(ctx, func(ctx context.Context) error {
		var buf bytes.Buffer

		cmd := exec.CommandContext(ctx, c.Command, c.Args...)
		cmd.Dir = c.Dir
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		cmd.Env = append(os.Environ(), c.AdditionalEnv...)

		runErr := cmd.Run()
		result.Output = buf.String()
		if cmd.ProcessState != nil {
			result.ExitCode = cmd.ProcessState.ExitCode()
		}

		if _, ok := runErr.(*exec.ExitError); ok {
			// Ordinary non-zero exit: not an error at this layer, the
			// caller inspects ExitCode.
			return nil
		}
		return runErr
	})

	return result, err
}

func (c Command) label() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Command
}
