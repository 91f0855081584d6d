// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package tasks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

// SetupTracing registers a process-wide TracerProvider carrying this
// subsystem's resource attributes, so every Action span produced by Run
// belongs to a real provider rather than otel's no-op default. No
// exporter is attached here: choosing where spans go (stdout, OTLP,
// Jaeger, ...) belongs to the embedding application, not this library.
// The returned func flushes and shuts the provider down; callers should
// defer it.
func SetupTracing(serviceName string) func() {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		res = resource.Default()
	}

	tp := tracesdk.NewTracerProvider(tracesdk.WithResource(res))
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("pluginhost.dev/core")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
}
