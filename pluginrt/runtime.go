// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package pluginrt is linked into every compiled plugin executable: it
// owns the entry point that redirects stdio, reads framed host messages,
// dispatches by capability, and emits framed responses — Component F
// (spec §4.F). Grounded on the teacher's runtime/tools glue (a small
// fixed protocol loop reading one request, dispatching to a handler,
// writing one response) adapted to the host/plugin framing this repo
// defines (internal/framing, schema).
package pluginrt

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/schema"
)

// Main redirects stdio, then loops reading and dispatching framed host
// messages against p until EOF (spec §4.F). It never returns; process
// exit code reflects whether the invocation completed without error.
func Main(p Plugin) {
	hostIn, hostOut, err := redirectStdio()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pluginrt: stdio redirection failed:", err)
		os.Exit(1)
	}

	if err := run(p, hostIn, hostOut); err != nil {
		fmt.Fprintln(os.Stderr, "pluginrt:", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// redirectStdio implements spec §4.F steps 1-3: the original stdin fd is
// duplicated for host-message input and the original closed (so an
// accidental read from os.Stdin in user code fails immediately); the
// original stdout fd is duplicated for host-message output and fd 1 is
// then redirected onto fd 2, so print-style writes by user code become
// free-form stderr text rather than corrupting the framed stream. Go's
// os.File writes are unbuffered at the syscall layer, so there is no
// separate buffering step to disable.
func redirectStdio() (hostIn *os.File, hostOut *os.File, err error) {
	inFd, err := unix.Dup(int(os.Stdin.Fd()))
	if err != nil {
		return nil, nil, fmt.Errorf("duplicating stdin: %w", err)
	}
	hostIn = os.NewFile(uintptr(inFd), "host-input")

	outFd, err := unix.Dup(int(os.Stdout.Fd()))
	if err != nil {
		return nil, nil, fmt.Errorf("duplicating stdout: %w", err)
	}
	hostOut = os.NewFile(uintptr(outFd), "host-output")

	if err := os.Stdin.Close(); err != nil {
		return nil, nil, fmt.Errorf("closing original stdin: %w", err)
	}
	if err := unix.Dup2(int(os.Stderr.Fd()), int(os.Stdout.Fd())); err != nil {
		return nil, nil, fmt.Errorf("redirecting stdout to stderr: %w", err)
	}

	return hostIn, hostOut, nil
}

// run is the read-dispatch loop, factored out of Main so tests can drive
// it over in-memory pipes instead of real process stdio.
func run(p Plugin, hostIn io.Reader, hostOut io.Writer) error {
	for {
		frame, err := framing.Read(hostIn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading host message: %w", err)
		}

		m, err := schema.DecodeMessage(frame)
		if err != nil {
			return fmt.Errorf("decoding host message: %w", err)
		}

		switch m.Kind {
		case schema.MsgPerformAction:
			if m.Input == nil {
				return fnerrors.MalformedInputJSON("performAction message carried no input")
			}
			if err := dispatchAction(p, *m.Input, hostIn, hostOut); err != nil {
				return err
			}
		default:
			// Any other message here would be a response to a request the
			// plugin never made (SymbolGraph round trips are consumed
			// directly by Context.SymbolGraph, not by this loop).
			return fnerrors.MalformedInputJSON("unexpected message outside of a pending request: " + string(m.Kind))
		}
	}
}

// dispatchAction handles one PerformAction message end to end: resolve
// the capability the action needs, run it, and send the command/
// diagnostic/ActionComplete sequence (spec §4.F step 5).
func dispatchAction(p Plugin, input schema.Input, hostIn io.Reader, hostOut io.Writer) error {
	ctx := newContext(input, hostIn, hostOut)

	var commands []PlanCommand
	var actionErr error

	switch input.Action.Kind {
	case schema.ActionCreateBuildToolCommands:
		cap, ok := p.(BuildToolCapability)
		if !ok || input.Action.Target == nil {
			return reportMalformedInput(ctx, "plugin does not implement the build-tool capability requested")
		}
		commands, actionErr = cap.CreateBuildCommands(ctx, ctx.Target(*input.Action.Target))

	case schema.ActionPerformUserCommand:
		cap, ok := p.(UserCommandCapability)
		if !ok {
			return reportMalformedInput(ctx, "plugin does not implement the user-command capability requested")
		}
		targets := make([]schema.Target, len(input.Action.Targets))
		for i, id := range input.Action.Targets {
			targets[i] = ctx.Target(id)
		}
		actionErr = cap.PerformCommand(ctx, targets, input.Action.Arguments)

	default:
		return reportMalformedInput(ctx, "unrecognized action kind: "+string(input.Action.Kind))
	}

	if actionErr != nil {
		ctx.Diagnostic(schema.Diagnostic{Severity: schema.SeverityError, Message: actionErr.Error()})
		return finishAction(ctx, nil, false)
	}

	return finishAction(ctx, commands, true)
}

// reportMalformedInput sends a malformed-input diagnostic and a failed
// ActionComplete, then lets the read loop continue (spec §4.F step 5
// "emit a malformed-input error ... Continue the loop").
func reportMalformedInput(ctx *Context, message string) error {
	ctx.Diagnostic(schema.Diagnostic{Severity: schema.SeverityError, Message: fnerrors.MalformedInputJSON(message).Error()})
	return finishAction(ctx, nil, false)
}

func finishAction(ctx *Context, commands []PlanCommand, success bool) error {
	for _, c := range commands {
		switch c.Kind {
		case CommandKindBuild:
			if c.Build != nil {
				if err := ctx.send(schema.DefineBuildCommandMessage(*c.Build)); err != nil {
					return err
				}
			}
		case CommandKindPrebuild:
			if c.Prebuild != nil {
				if err := ctx.send(schema.DefinePrebuildCommandMessage(*c.Prebuild)); err != nil {
					return err
				}
			}
		}
	}

	if err := ctx.flushDiagnostics(); err != nil {
		return err
	}

	return ctx.send(schema.ActionCompleteMessage(success))
}
