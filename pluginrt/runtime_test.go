// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pluginrt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/schema"
)

func encodeFrame(t *testing.T, m schema.Message) []byte {
	t.Helper()
	payload, err := schema.Encode(m)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, framing.Write(&buf, payload))
	return buf.Bytes()
}

func readMessages(t *testing.T, r *bytes.Reader) []schema.Message {
	t.Helper()
	var msgs []schema.Message
	for {
		frame, err := framing.Read(r)
		if err != nil {
			break
		}
		m, err := schema.DecodeMessage(frame)
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	return msgs
}

func buildToolInput(targetID schema.TargetID) schema.Input {
	id := targetID
	return schema.Input{
		Paths:   []schema.Path{{Subpath: "/"}, {Subpath: "work", Base: ptr(schema.PathID(0))}},
		Targets: []schema.Target{{Name: "App", Info: schema.TargetInfo{Kind: schema.TargetInfoSourceModule}}},
		RootPackage:      0,
		Packages:         []schema.Package{{Name: "Root"}},
		PluginWorkDir:    1,
		BuiltProductsDir: 0,
		Action:           schema.CreateBuildToolCommands(id),
	}
}

func ptr[T any](v T) *T { return &v }

type buildToolPlugin struct {
	commands []PlanCommand
	err      error
}

func (p *buildToolPlugin) CreateBuildCommands(ctx *Context, target schema.Target) ([]PlanCommand, error) {
	if p.err != nil {
		return nil, p.err
	}
	_ = ctx.WorkDirectory()
	return p.commands, nil
}

type userCommandPlugin struct {
	emit func(ctx *Context) error
}

func (p *userCommandPlugin) PerformCommand(ctx *Context, targets []schema.Target, arguments []string) error {
	return p.emit(ctx)
}

func TestRunBuildToolCapabilitySendsCommandsThenComplete(t *testing.T) {
	input := buildToolInput(0)
	in := bytes.NewReader(encodeFrame(t, schema.PerformActionMessage(input)))

	plugin := &buildToolPlugin{commands: []PlanCommand{
		NewBuildCommand(schema.BuildCommand{Command: schema.Command{DisplayName: "step"}}),
	}}

	var out bytes.Buffer
	require.NoError(t, run(plugin, in, &out))

	msgs := readMessages(t, bytes.NewReader(out.Bytes()))
	require.Len(t, msgs, 2)
	require.Equal(t, schema.MsgDefineBuildCommand, msgs[0].Kind)
	require.Equal(t, schema.MsgActionComplete, msgs[1].Kind)
	require.True(t, *msgs[1].Success)
}

func TestRunCapabilityErrorReportsFailedCompletion(t *testing.T) {
	input := buildToolInput(0)
	in := bytes.NewReader(encodeFrame(t, schema.PerformActionMessage(input)))

	plugin := &buildToolPlugin{err: errSentinel()}

	var out bytes.Buffer
	require.NoError(t, run(plugin, in, &out))

	msgs := readMessages(t, bytes.NewReader(out.Bytes()))
	require.Len(t, msgs, 2)
	require.Equal(t, schema.MsgEmitDiagnostic, msgs[0].Kind)
	require.Equal(t, schema.SeverityError, msgs[0].Diagnostic.Severity)
	require.Equal(t, schema.MsgActionComplete, msgs[1].Kind)
	require.False(t, *msgs[1].Success)
}

func TestRunCapabilityMismatchIsMalformedInput(t *testing.T) {
	input := buildToolInput(0)
	in := bytes.NewReader(encodeFrame(t, schema.PerformActionMessage(input)))

	// plugin implements neither capability
	plugin := struct{ Plugin }{}

	var out bytes.Buffer
	require.NoError(t, run(plugin, in, &out))

	msgs := readMessages(t, bytes.NewReader(out.Bytes()))
	require.Len(t, msgs, 2)
	require.Equal(t, schema.MsgEmitDiagnostic, msgs[0].Kind)
	require.Equal(t, schema.MsgActionComplete, msgs[1].Kind)
	require.False(t, *msgs[1].Success)
}

func TestRunUserCommandCapabilityEmitsCommandBySideEffect(t *testing.T) {
	input := schema.Input{
		Paths:            []schema.Path{{Subpath: "/"}},
		Targets:          []schema.Target{{Name: "App"}},
		Packages:         []schema.Package{{Name: "Root"}},
		RootPackage:      0,
		PluginWorkDir:    0,
		BuiltProductsDir: 0,
		Action:           schema.PerformUserCommand([]schema.TargetID{0}, []string{"--flag"}),
	}
	in := bytes.NewReader(encodeFrame(t, schema.PerformActionMessage(input)))

	plugin := &userCommandPlugin{emit: func(ctx *Context) error {
		return ctx.EmitUserCommand(schema.Command{DisplayName: "run"})
	}}

	var out bytes.Buffer
	require.NoError(t, run(plugin, in, &out))

	msgs := readMessages(t, bytes.NewReader(out.Bytes()))
	require.Len(t, msgs, 2)
	require.Equal(t, schema.MsgDefineUserCommand, msgs[0].Kind)
	require.Equal(t, schema.MsgActionComplete, msgs[1].Kind)
	require.True(t, *msgs[1].Success)
}

func errSentinel() error { return bytes.ErrTooLarge }
