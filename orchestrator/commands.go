// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestrator

import (
	"path/filepath"

	"pluginhost.dev/core/schema"
)

// Command is a build-plan record with every path already promoted to
// absolute, ready for the build engine to consume (spec §4.E "Convert
// each output command to a build-plan record, promoting path strings to
// absolute paths").
type Command struct {
	DisplayName      string
	Executable       string
	Arguments        []string
	Environment      map[string]string
	WorkingDirectory string
}

type BuildCommand struct {
	Command Command
	Inputs  []string
	Outputs []string
}

type PrebuildCommand struct {
	Command              Command
	OutputFilesDirectory string
}

type UserCommand struct {
	Command Command
}

// InvocationResult is one plugin invocation's contribution to the build
// plan: its commands, with paths absolutized against workDir, plus its
// own diagnostics (kept separate from the host's top-level sink per spec
// §4.E step 6).
type InvocationResult struct {
	PluginName       string
	BuildCommands    []BuildCommand
	PrebuildCommands []PrebuildCommand
	UserCommands     []UserCommand
	Diagnostics      []schema.Diagnostic
}

func toAbsoluteCommands(out *schema.Output, workDir string) InvocationResult {
	res := InvocationResult{Diagnostics: out.Diagnostics}

	for _, bc := range out.BuildCommands {
		res.BuildCommands = append(res.BuildCommands, BuildCommand{
			Command: absolutizeCommand(bc.Command, workDir),
			Inputs:  absolutizeAll(bc.Inputs, workDir),
			Outputs: absolutizeAll(bc.Outputs, workDir),
		})
	}
	for _, pc := range out.PrebuildCommands {
		res.PrebuildCommands = append(res.PrebuildCommands, PrebuildCommand{
			Command:              absolutizeCommand(pc.Command, workDir),
			OutputFilesDirectory: absolutize(pc.OutputFilesDirectory, workDir),
		})
	}
	for _, uc := range out.UserCommands {
		res.UserCommands = append(res.UserCommands, UserCommand{Command: absolutizeCommand(uc.Command, workDir)})
	}

	return res
}

func absolutizeCommand(c schema.Command, workDir string) Command {
	// An unset working directory stays unset (spec scenario S6: "a
	// command without it has workingDirectory = ∅"); only a relative
	// path gets resolved against workDir.
	wd := c.WorkingDirectory
	if wd != "" {
		wd = absolutize(wd, workDir)
	}
	return Command{
		DisplayName:      c.DisplayName,
		Executable:       absolutize(c.Executable, workDir),
		Arguments:        c.Arguments,
		Environment:      c.Environment,
		WorkingDirectory: wd,
	}
}

func absolutizeAll(paths []string, workDir string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = absolutize(p, workDir)
	}
	return out
}

func absolutize(p, workDir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}
