// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

// MessageKind discriminates every message exchanged over the framed
// stdio pipes between host and plugin (spec §4.D, §6). Host→plugin:
// PerformAction and any requested response. Plugin→host: EmitDiagnostic,
// DefineBuildCommand, DefinePrebuildCommand, DefineUserCommand, any
// request, ActionComplete. An unrecognized Kind is a protocol violation
// (spec §6).
type MessageKind string

const (
	MsgPerformAction         MessageKind = "performAction"
	MsgEmitDiagnostic        MessageKind = "emitDiagnostic"
	MsgDefineBuildCommand    MessageKind = "defineBuildCommand"
	MsgDefinePrebuildCommand MessageKind = "definePrebuildCommand"
	MsgDefineUserCommand     MessageKind = "defineUserCommand"
	MsgActionComplete        MessageKind = "actionComplete"
	MsgSymbolGraphRequest    MessageKind = "symbolGraphRequest"
	MsgSymbolGraphResponse   MessageKind = "symbolGraphResponse"
	MsgErrorResponse         MessageKind = "errorResponse"
)

// SymbolGraphRequest is the one optional request/response pair spec §4.D
// calls out by name: the plugin asks the host to compute a target's
// symbol graph and blocks for the answer.
type SymbolGraphRequest struct {
	TargetName string `json:"targetName"`
}

type SymbolGraphResponse struct {
	DirectoryPath string `json:"directoryPath"`
}

// Message is the tagged union of every wire message. Exactly the field
// matching Kind is populated; the rest are zero.
type Message struct {
	Kind MessageKind `json:"kind"`

	Input *Input `json:"input,omitempty"`

	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`

	BuildCommand *BuildCommand `json:"buildCommand,omitempty"`

	PrebuildCommand *PrebuildCommand `json:"prebuildCommand,omitempty"`

	UserCommand *UserCommand `json:"userCommand,omitempty"`

	Success *bool `json:"success,omitempty"`

	SymbolGraphRequest *SymbolGraphRequest `json:"symbolGraphRequest,omitempty"`

	SymbolGraphResponse *SymbolGraphResponse `json:"symbolGraphResponse,omitempty"`

	Error string `json:"error,omitempty"`
}

func PerformActionMessage(input Input) Message {
	return Message{Kind: MsgPerformAction, Input: &input}
}

func EmitDiagnosticMessage(d Diagnostic) Message {
	return Message{Kind: MsgEmitDiagnostic, Diagnostic: &d}
}

func DefineBuildCommandMessage(c BuildCommand) Message {
	return Message{Kind: MsgDefineBuildCommand, BuildCommand: &c}
}

func DefinePrebuildCommandMessage(c PrebuildCommand) Message {
	return Message{Kind: MsgDefinePrebuildCommand, PrebuildCommand: &c}
}

func DefineUserCommandMessage(c UserCommand) Message {
	return Message{Kind: MsgDefineUserCommand, UserCommand: &c}
}

func ActionCompleteMessage(success bool) Message {
	return Message{Kind: MsgActionComplete, Success: &success}
}

func SymbolGraphRequestMessage(targetName string) Message {
	return Message{Kind: MsgSymbolGraphRequest, SymbolGraphRequest: &SymbolGraphRequest{TargetName: targetName}}
}

func SymbolGraphResponseMessage(dir string) Message {
	return Message{Kind: MsgSymbolGraphResponse, SymbolGraphResponse: &SymbolGraphResponse{DirectoryPath: dir}}
}

func ErrorResponseMessage(err string) Message {
	return Message{Kind: MsgErrorResponse, Error: err}
}
