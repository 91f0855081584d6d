// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package tasks wraps a unit of work ("action") in both a structured log
// line and an OpenTelemetry span, condensed from the teacher's
// workspace/tasks action/event system to what this subsystem needs: a
// named, attributed, timed operation, with no interactive console
// renderer (out of scope here).
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pluginhost.dev/core")

// ActionEvent describes a named operation and its structured arguments,
// built up with Arg before Run executes it.
type ActionEvent struct {
	name string
	args []arg
}

type arg struct {
	key   string
	value interface{}
}

// Action starts building a new named action.
func Action(name string) *ActionEvent {
	return &ActionEvent{name: name}
}

// Arg attaches a structured argument, surfaced on both the log line and
// the span.
func (e *ActionEvent) Arg(key string, value interface{}) *ActionEvent {
	e.args = append(e.args, arg{key, value})
	return e
}

// Run executes f inside a span named e.name and logs its start/end with
// the attached arguments plus duration and error (if any). The error
// returned by f is returned unchanged.
func (e *ActionEvent) Run(ctx context.Context, f func(context.Context) error) error {
	attrs := make([]attribute.KeyValue, 0, len(e.args))
	logCtx := log.With().Str("action", e.name)
	for _, a := range e.args {
		attrs = append(attrs, attribute.String(a.key, toString(a.value)))
		logCtx = logCtx.Interface(a.key, a.value)
	}
	logger := logCtx.Logger()

	ctx, span := tracer.Start(ctx, e.name, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()
	logger.Debug().Msg("start")

	err := f(ctx)

	elapsed := time.Since(started)
	ev := logger.Debug()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ev = logger.Error().Err(err)
	}
	ev.Dur("elapsed", elapsed).Msg("done")

	return err
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
