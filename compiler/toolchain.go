// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package compiler

import (
	"context"
	"fmt"
	"sync"

	"pluginhost.dev/core/internal/localexec"
)

// Toolchain abstracts the plugin-API compiler so tests can substitute a
// fake without shelling out, per SPEC_FULL.md §4.C.
type Toolchain interface {
	// Path is the compiler executable to invoke.
	Path() string
	// HostTriple is the target triple pinned to the host, computed once
	// and memoized process-wide (spec §5 "Global state").
	HostTriple(ctx context.Context) (string, error)
	// MinimumDeploymentTarget is derived once from the plugin-API binary
	// and memoized process-wide.
	MinimumDeploymentTarget(ctx context.Context) (string, error)
	// Identity is a stable string identifying this toolchain build,
	// folded into the compile-cache fingerprint so a toolchain upgrade
	// invalidates stale cache entries.
	Identity(ctx context.Context) (string, error)
}

// localToolchain shells out to a compiler binary on PATH (or at an
// explicit path), memoizing the three derived values with sync.Once so
// repeated invocations within one host process pay the probe cost once
// (spec §5), without resorting to a package-level global the teacher's
// compute-graph would otherwise provide.
type localToolchain struct {
	path string

	triggerOnce sync.Once
	triple      string
	tripleErr   error

	deployOnce sync.Once
	deploy     string
	deployErr  error

	identOnce sync.Once
	ident     string
	identErr  error
}

// NewLocalToolchain returns a Toolchain backed by the compiler binary at
// path.
func NewLocalToolchain(path string) Toolchain {
	return &localToolchain{path: path}
}

func (t *localToolchain) Path() string { return t.path }

func (t *localToolchain) HostTriple(ctx context.Context) (string, error) {
	t.triggerOnce.Do(func() {
		cmd := localexec.Command{Label: "toolchain.host-triple", Command: t.path, Args: []string{"-print-target-triple"}}
		result, err := cmd.Run(ctx)
		if err != nil {
			t.tripleErr = err
			return
		}
		if result.ExitCode != 0 {
			t.tripleErr = fmt.Errorf("probing host triple: exit %d: %s", result.ExitCode, result.Output)
			return
		}
		t.triple = firstLine(result.Output)
	})
	return t.triple, t.tripleErr
}

func (t *localToolchain) MinimumDeploymentTarget(ctx context.Context) (string, error) {
	t.deployOnce.Do(func() {
		cmd := localexec.Command{Label: "toolchain.min-deployment-target", Command: t.path, Args: []string{"-print-minimum-deployment-target"}}
		result, err := cmd.Run(ctx)
		if err != nil {
			t.deployErr = err
			return
		}
		if result.ExitCode != 0 {
			t.deployErr = fmt.Errorf("probing minimum deployment target: exit %d: %s", result.ExitCode, result.Output)
			return
		}
		t.deploy = firstLine(result.Output)
	})
	return t.deploy, t.deployErr
}

func (t *localToolchain) Identity(ctx context.Context) (string, error) {
	t.identOnce.Do(func() {
		cmd := localexec.Command{Label: "toolchain.identity", Command: t.path, Args: []string{"-version"}}
		result, err := cmd.Run(ctx)
		if err != nil {
			t.identErr = err
			return
		}
		if result.ExitCode != 0 {
			t.identErr = fmt.Errorf("probing toolchain identity: exit %d: %s", result.ExitCode, result.Output)
			return
		}
		t.ident = firstLine(result.Output)
	})
	return t.ident, t.identErr
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
