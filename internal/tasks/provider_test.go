// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupTracingRegistersProviderAndActionRunUsesIt(t *testing.T) {
	shutdown := SetupTracing("pluginhost-test")
	defer shutdown()

	var ran bool
	err := Action("tasks.test").Arg("k", "v").Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestActionRunPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	err := Action("tasks.test-error").Run(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}
