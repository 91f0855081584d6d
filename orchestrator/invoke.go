// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestrator

import (
	"context"
	"os"

	"pluginhost.dev/core/internal/textsink"
	"pluginhost.dev/core/runner"
	"pluginhost.dev/core/schema"
)

// mkdirAll creates the per-invocation work directory recursively (spec
// §4.E step 1).
func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// invokePlugin runs the compiled plugin with both its per-invocation work
// directory and the shared compile cache directory writable; runner.Invoke
// treats the last entry of writableDirs as the subprocess's working
// directory (spec §4.D "Sets the subprocess working directory to the
// cache directory"), so cacheDir is passed last while workDir remains
// writable for any files the plugin emits there.
func invokePlugin(ctx context.Context, executable, workDir, cacheDir string, input schema.Input, sink textsink.Sink) (*schema.Output, error) {
	return runner.Invoke(ctx, executable, []string{workDir, cacheDir}, input, sink)
}
