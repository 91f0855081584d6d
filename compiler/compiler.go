// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package compiler resolves the compiler invocation for a plugin's
// sources, compiles them into a per-plugin executable, caches the
// result, and surfaces compiler diagnostics — Component C (spec §4.C).
// Grounded on the teacher's languages/golang/localbuild.go compile
// pipeline (build an argv + env, shell out via internal/localexec, stage
// output, hash-keyed cache) and workspace/compute/bytecache.go's
// content-digest cache-key pattern.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/localexec"
	"pluginhost.dev/core/internal/tasks"
)

// ModuleCacheEnv is the environment variable honored as a module-cache
// override when set (spec §6 "Compiler invocations honor `module-cache
// override` environment variables when set").
const ModuleCacheEnv = "PLUGINHOST_MODULE_CACHE"

// CompilationResult is the outcome of one compile call. Executable is
// empty unless the compiler exited 0; DiagnosticsFile is always written.
// It satisfies fnerrors.CompilationResulter.
type CompilationResult struct {
	Executable      string
	DiagnosticsFile string
	Raw             string
	commandLine     []string
	exitCode        int
}

func (r *CompilationResult) CommandLine() []string { return r.commandLine }
func (r *CompilationResult) RawOutput() string      { return r.Raw }
func (r *CompilationResult) Succeeded() bool         { return r.Executable != "" }

// Compile builds (or reuses a cached) executable for the plugin whose
// sources are given. It returns an error only if the compiler could not
// be launched at all; ordinary compile failures are signaled through
// CompilationResult.Executable being empty (spec §4.C).
func Compile(ctx context.Context, tc Toolchain, sources []string, toolsVersion string, cacheDir string) (*CompilationResult, error) {
	var result *CompilationResult

	err := tasks.Action("compiler.compile").Arg("sources", sources).Arg("toolsVersion", toolsVersion).Run(ctx, func(ctx context.Context) error {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return fnerrors.WorkDirectoryCreationFailed(cacheDir, err)
		}

		fp, err := fingerprint(ctx, sources, toolsVersion, tc)
		if err != nil {
			return err
		}
		entry := newCacheEntry(cacheDir, fp)
		if err := entry.ensureDir(); err != nil {
			return fnerrors.WorkDirectoryCreationFailed(entry.dir, err)
		}

		if hit, err := entry.hit(sources); err != nil {
			return err
		} else if hit {
			result = &CompilationResult{
				Executable:      entry.executablePath(),
				DiagnosticsFile: entry.diagnosticsPath(),
			}
			return nil
		}

		r, err := compileInto(ctx, tc, sources, toolsVersion, entry)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	return result, err
}

func compileInto(ctx context.Context, tc Toolchain, sources []string, toolsVersion string, entry cacheEntry) (*CompilationResult, error) {
	tmpOut := entry.executablePath() + ".tmp"
	defer os.Remove(tmpOut)

	args, err := buildArgs(ctx, tc, sources, toolsVersion, tmpOut, entry.diagnosticsPath())
	if err != nil {
		return nil, err
	}

	var env []string
	if override := os.Getenv(ModuleCacheEnv); override != "" {
		env = append(env, "MODULE_CACHE_OVERRIDE="+override)
	}

	cmd := localexec.Command{
		Label:         "plugin-compile",
		Command:       tc.Path(),
		Args:          args,
		AdditionalEnv: env,
	}
	commandLine := append([]string{tc.Path()}, args...)

	runResult, err := cmd.Run(ctx)
	if err != nil {
		return nil, fnerrors.SubprocessDidNotStart(err.Error(), commandLine)
	}

	result := &CompilationResult{
		Raw:         runResult.Output,
		commandLine: commandLine,
		exitCode:    runResult.ExitCode,
	}

	if data, readErr := os.ReadFile(entry.diagnosticsPath()); readErr == nil {
		result.DiagnosticsFile = entry.diagnosticsPath()
		_ = data
	} else {
		// The compiler didn't write a diagnostics file; record an empty one
		// so the cache layout is always complete.
		if err := entry.writeDiagnostics(nil); err == nil {
			result.DiagnosticsFile = entry.diagnosticsPath()
		}
	}

	if runResult.ExitCode == 0 {
		if err := entry.replaceExecutable(tmpOut); err != nil {
			return nil, err
		}
		result.Executable = entry.executablePath()
	}

	return result, nil
}

// buildArgs constructs the compiler command line: host-pinned target
// triple, tools-version-derived language/API flags, module-cache
// override, parse-as-library, diagnostics output, executable output
// (spec §4.C).
func buildArgs(ctx context.Context, tc Toolchain, sources []string, toolsVersion string, outExecutable, outDiagnostics string) ([]string, error) {
	triple, err := tc.HostTriple(ctx)
	if err != nil {
		return nil, err
	}
	minDeploy, err := tc.MinimumDeploymentTarget(ctx)
	if err != nil {
		return nil, err
	}

	var args []string
	args = append(args, "-target", triple)
	if minDeploy != "" {
		args = append(args, "-deployment-target", minDeploy)
	}
	args = append(args, "-tools-version", toolsVersion)
	if override := os.Getenv(ModuleCacheEnv); override != "" {
		args = append(args, "-module-cache-path", override)
	}
	args = append(args, "-parse-as-library")
	args = append(args, "-serialize-diagnostics-path", outDiagnostics)
	args = append(args, "-o", outExecutable)
	args = append(args, sources...)

	for _, src := range sources {
		if filepath.Ext(src) == "" {
			return nil, fmt.Errorf("source %q has no recognizable extension", src)
		}
	}

	return args, nil
}

