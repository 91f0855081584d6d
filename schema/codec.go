// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pluginhost.dev/core/internal/fnerrors"
)

var validMessageKinds = map[MessageKind]bool{
	MsgPerformAction:         true,
	MsgEmitDiagnostic:        true,
	MsgDefineBuildCommand:    true,
	MsgDefinePrebuildCommand: true,
	MsgDefineUserCommand:     true,
	MsgActionComplete:        true,
	MsgSymbolGraphRequest:    true,
	MsgSymbolGraphResponse:   true,
	MsgErrorResponse:         true,
}

var validActionKinds = map[ActionKind]bool{
	ActionCreateBuildToolCommands: true,
	ActionPerformUserCommand:      true,
}

// Encode renders v as UTF-8 JSON without HTML escaping (spec §4.A
// "without slash escaping"). encoding/json already emits struct fields
// in declaration order and map keys in sorted byte order, which
// satisfies "sorted keys" for this model's one map-typed field
// (Input.ToolNamesToPaths).
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; frames carry exactly
	// one JSON value, so trim it rather than teach every reader to skip it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeMessage parses one wire Message and rejects an unrecognized Kind
// discriminator, per spec §4.A/§6.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Message{}, fnerrors.MalformedMessage(err)
	}
	if !validMessageKinds[m.Kind] {
		return Message{}, fnerrors.MalformedMessage(fmt.Errorf("unrecognized message kind %q", m.Kind))
	}
	return m, nil
}

// DecodeInput parses a top-level Input object, rejecting any field
// outside those spec §6 lists; a missing field is not rejected and
// decodes as its zero value.
func DecodeInput(data []byte) (Input, error) {
	var in Input
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Input{}, fnerrors.MalformedInputJSON(err.Error())
	}
	if !validActionKinds[in.Action.Kind] {
		return Input{}, fnerrors.MalformedInputJSON(fmt.Sprintf("unrecognized action kind %q", in.Action.Kind))
	}
	return in, nil
}
