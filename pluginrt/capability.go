// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pluginrt

import "pluginhost.dev/core/schema"

// Plugin is the user-defined type linked into a compiled plugin
// executable; it carries no required methods of its own — Main
// type-asserts it against whichever capability interface the requested
// action needs (spec §4.F step 4 "no constructor parameters").
type Plugin interface{}

// CommandKind discriminates a PlanCommand.
type CommandKind int

const (
	CommandKindBuild CommandKind = iota
	CommandKindPrebuild
)

// PlanCommand is one entry of the ordered command list a build-tool
// capability returns; exactly one of Build/Prebuild is set (spec §4.F
// step 5 "Send a framed DefineBuildCommand/DefinePrebuildCommand per
// command").
type PlanCommand struct {
	Kind     CommandKind
	Build    *schema.BuildCommand
	Prebuild *schema.PrebuildCommand
}

func NewBuildCommand(c schema.BuildCommand) PlanCommand {
	return PlanCommand{Kind: CommandKindBuild, Build: &c}
}

func NewPrebuildCommand(c schema.PrebuildCommand) PlanCommand {
	return PlanCommand{Kind: CommandKindPrebuild, Prebuild: &c}
}

// BuildToolCapability is implemented by a Plugin that answers
// CreateBuildToolCommands actions: given the invoking target, return the
// ordered list of commands the build engine should run (spec §4.F "A
// build-tool capability returns an ordered list of commands").
type BuildToolCapability interface {
	CreateBuildCommands(ctx *Context, target schema.Target) ([]PlanCommand, error)
}

// UserCommandCapability is implemented by a Plugin that answers
// PerformUserCommand actions: it emits commands itself via
// Context.EmitUserCommand as a side effect, returning only an error
// (spec §4.F "a user-command capability returns unit").
type UserCommandCapability interface {
	PerformCommand(ctx *Context, targets []schema.Target, arguments []string) error
}
