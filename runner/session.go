// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/schema"
)

// session implements the host side of the PerformAction message loop
// (spec §4.D "Session loop"): send PerformAction once, then read
// messages until ActionComplete or EOF, accumulating commands and
// diagnostics in emission order.
type session struct {
	stdinW *os.File
	stdoutR *os.File
	input  schema.Input

	mu      sync.Mutex
	out     schema.Output
	success bool
	done    bool
}

func newSession(stdinW, stdoutR *os.File, input schema.Input) *session {
	return &session{stdinW: stdinW, stdoutR: stdoutR, input: input}
}

// run sends the PerformAction message, then reads and dispatches
// messages until the plugin signals ActionComplete or closes its stdout.
// After the terminal message, no further messages are sent and stdin is
// closed (spec §4.D).
func (s *session) run(ctx context.Context) error {
	msg := schema.PerformActionMessage(s.input)
	payload, err := schema.Encode(msg)
	if err != nil {
		return err
	}
	if err := framing.Write(s.stdinW, payload); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, err := framing.Read(s.stdoutR)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.stdinW.Close()
				return nil
			}
			return err
		}

		m, err := schema.DecodeMessage(frame)
		if err != nil {
			return fnerrors.DecodingPluginOutputFailed(frame, err)
		}

		terminal, err := s.dispatch(m)
		if err != nil {
			return err
		}
		if terminal {
			s.stdinW.Close()
			return nil
		}
	}
}

// dispatch accumulates one inbound message and reports whether it was
// the terminal ActionComplete.
func (s *session) dispatch(m schema.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.Kind {
	case schema.MsgEmitDiagnostic:
		if m.Diagnostic != nil {
			s.out.Diagnostics = append(s.out.Diagnostics, *m.Diagnostic)
		}
		return false, nil
	case schema.MsgDefineBuildCommand:
		if m.BuildCommand != nil {
			s.out.BuildCommands = append(s.out.BuildCommands, *m.BuildCommand)
		}
		return false, nil
	case schema.MsgDefinePrebuildCommand:
		if m.PrebuildCommand != nil {
			s.out.PrebuildCommands = append(s.out.PrebuildCommands, *m.PrebuildCommand)
		}
		return false, nil
	case schema.MsgDefineUserCommand:
		if m.UserCommand != nil {
			s.out.UserCommands = append(s.out.UserCommands, *m.UserCommand)
		}
		return false, nil
	case schema.MsgSymbolGraphRequest:
		// Unsupported on the host side today; answer with ErrorResponse so
		// the plugin isn't left waiting (spec §4.D).
		resp := schema.ErrorResponseMessage("symbol graph requests are not supported")
		payload, err := schema.Encode(resp)
		if err != nil {
			return false, err
		}
		return false, framing.Write(s.stdinW, payload)
	case schema.MsgActionComplete:
		s.done = true
		if m.Success != nil {
			s.success = *m.Success
		}
		return true, nil
	default:
		return false, fnerrors.MalformedMessage(errors.New("unexpected message kind from plugin: " + string(m.Kind)))
	}
}

// terminalState reports whether the plugin ever sent ActionComplete, and
// if so, what success value it carried — letting the caller distinguish
// "no terminal message" (MissingPluginOutput) from "terminal message,
// reported failure" (ActionReportedFailure), per spec §4.D.
func (s *session) terminalState() (done, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.success
}

func (s *session) output() *schema.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	return &out
}
