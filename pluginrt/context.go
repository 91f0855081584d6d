// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pluginrt

import (
	"io"
	"path/filepath"

	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/schema"
)

// Context is the in-process view of one PerformAction invocation handed
// to the user plugin's capability method: resolved filesystem paths, the
// tool map, and the side-effecting emitters a capability uses to talk
// back to the host (spec §4.F step 5 "construct an in-process context").
type Context struct {
	input schema.Input

	hostIn  io.Reader
	hostOut io.Writer

	diagnostics []schema.Diagnostic
}

func newContext(input schema.Input, hostIn io.Reader, hostOut io.Writer) *Context {
	return &Context{input: input, hostIn: hostIn, hostOut: hostOut}
}

// WorkDirectory is the plugin's own per-invocation scratch directory.
func (c *Context) WorkDirectory() string { return c.ResolvePath(c.input.PluginWorkDir) }

// BuiltProductsDir is where already-built executable products land.
func (c *Context) BuiltProductsDir() string { return c.ResolvePath(c.input.BuiltProductsDir) }

// Target resolves a wire TargetID into its full record.
func (c *Context) Target(id schema.TargetID) schema.Target { return c.input.Targets[id] }

// Product resolves a wire ProductID into its full record.
func (c *Context) Product(id schema.ProductID) schema.Product { return c.input.Products[id] }

// Package resolves a wire PackageID into its full record.
func (c *Context) Package(id schema.PackageID) schema.Package { return c.input.Packages[id] }

// RootPackage is the package the invoking target belongs to (transitively).
func (c *Context) RootPackage() schema.Package { return c.Package(c.input.RootPackage) }

// Tool resolves a declared tool name to its absolute filesystem path
// (spec GLOSSARY "Vended tool"/"Built tool"); ToolNotFound if the plugin
// asks for a tool the host didn't grant it.
func (c *Context) Tool(name string) (string, error) {
	id, ok := c.input.ToolNamesToPaths[name]
	if !ok {
		return "", fnerrors.ToolNotFound(name)
	}
	return c.ResolvePath(id), nil
}

// ResolvePath reconstructs the absolute filesystem path a wire PathID
// stands for by walking its Base chain. A nil Base means "this entry's
// parent is the filesystem root": either the root itself (Subpath "/")
// or a direct child of it (spec §3 "Paths ... share a common scheme").
func (c *Context) ResolvePath(id schema.PathID) string {
	p := c.input.Paths[id]
	if p.Base == nil {
		if p.Subpath == "/" {
			return "/"
		}
		return "/" + p.Subpath
	}
	return filepath.Join(c.ResolvePath(*p.Base), p.Subpath)
}

// Diagnostic buffers a plugin-authored diagnostic; buffered ones are
// flushed after the capability's return value has been translated into
// commands, immediately before ActionComplete (spec §4.F step 5 "then
// one framed message per emitted diagnostic, then ActionComplete").
func (c *Context) Diagnostic(d schema.Diagnostic) { c.diagnostics = append(c.diagnostics, d) }

// EmitUserCommand sends a DefineUserCommand message immediately: a
// user-command capability "returns unit (commands are emitted by side
// effect)" (spec §4.F step 5).
func (c *Context) EmitUserCommand(cmd schema.Command) error {
	return c.send(schema.DefineUserCommandMessage(schema.UserCommand{Command: cmd}))
}

// SymbolGraph asks the host to compute targetName's symbol graph and
// blocks for the answer — the one optional request/response pair spec
// §4.D names explicitly. Since the plugin runtime is single-threaded per
// invocation, the response frame is simply the next frame on hostIn.
func (c *Context) SymbolGraph(targetName string) (string, error) {
	if err := c.send(schema.SymbolGraphRequestMessage(targetName)); err != nil {
		return "", err
	}

	frame, err := framing.Read(c.hostIn)
	if err != nil {
		return "", err
	}
	m, err := schema.DecodeMessage(frame)
	if err != nil {
		return "", fnerrors.MalformedInputJSON(err.Error())
	}

	switch m.Kind {
	case schema.MsgSymbolGraphResponse:
		return m.SymbolGraphResponse.DirectoryPath, nil
	case schema.MsgErrorResponse:
		return "", fnerrors.New("symbol graph request denied: %s", m.Error)
	default:
		return "", fnerrors.MalformedInputJSON("unexpected response to symbol graph request")
	}
}

func (c *Context) send(m schema.Message) error {
	payload, err := schema.Encode(m)
	if err != nil {
		return err
	}
	return framing.Write(c.hostOut, payload)
}

func (c *Context) flushDiagnostics() error {
	for _, d := range c.diagnostics {
		if err := c.send(schema.EmitDiagnosticMessage(d)); err != nil {
			return err
		}
	}
	c.diagnostics = nil
	return nil
}
