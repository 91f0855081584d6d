// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestrator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pluginhost.dev/core/compiler"
	"pluginhost.dev/core/internal/framing"
	"pluginhost.dev/core/orchestrator"
	"pluginhost.dev/core/pkggraph"
	"pluginhost.dev/core/schema"
)

// TestMain doubles as a fake plugin executable, same os/exec
// helper-process idiom used by runner/runner_test.go and
// compiler/compiler_test.go.
func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Exit(runHelperPlugin())
	}
	os.Exit(m.Run())
}

func runHelperPlugin() int {
	frame, err := framing.Read(os.Stdin)
	if err != nil {
		return 1
	}
	if _, err := schema.DecodeMessage(frame); err != nil {
		return 1
	}

	send(schema.DefineBuildCommandMessage(schema.BuildCommand{
		Command: schema.Command{DisplayName: "generate", Executable: "/bin/true"},
		Outputs: []string{"generated.swift"},
	}))
	send(schema.DefineBuildCommandMessage(schema.BuildCommand{
		Command: schema.Command{DisplayName: "generate-scoped", Executable: "/bin/true", WorkingDirectory: "scoped"},
		Outputs: []string{"scoped.swift"},
	}))
	send(schema.ActionCompleteMessage(true))
	return 0
}

func send(m schema.Message) {
	payload, err := schema.Encode(m)
	if err != nil {
		return
	}
	framing.Write(os.Stdout, payload)
}

// fakeToolchain skips real compiler/host probing; HostTriple is used by
// resolveTools to pick a vended-tool path, and Identity feeds the compile
// cache fingerprint.
type fakeToolchain struct{ path string }

func (t *fakeToolchain) Path() string { return t.path }
func (t *fakeToolchain) HostTriple(context.Context) (string, error) {
	return "x86_64-unknown-linux-gnu", nil
}
func (t *fakeToolchain) MinimumDeploymentTarget(context.Context) (string, error) { return "", nil }
func (t *fakeToolchain) Identity(context.Context) (string, error)                { return "fake-1", nil }

// fakeCompilerScript stands in for the plugin compiler: whatever args it
// is called with, it copies pluginScript to the requested -o path and
// chmods it executable, so the "compiled" executable is actually the
// fake plugin helper process above.
func fakeCompilerScript(t *testing.T, dir, pluginScript string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-compiler.sh")
	content := fmt.Sprintf(`#!/bin/sh
out=""
diag=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2;;
    -serialize-diagnostics-path) diag="$2"; shift 2;;
    *) shift;;
  esac
done
cp %q "$out"
chmod +x "$out"
: > "$diag"
`, pluginScript)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func fakePluginScript(t *testing.T, dir string) string {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)

	path := filepath.Join(dir, "plugin.sh")
	content := fmt.Sprintf("#!/bin/sh\nexport GO_WANT_HELPER_PROCESS=1\nexec %q -test.run=TestMain\n", self)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

// buildGraph assembles a single package with one SourceModule target that
// uses one build-tool plugin, whose own source file lives under dir.
func buildGraph(t *testing.T, dir string) (*pkggraph.Package, *pkggraph.Target) {
	t.Helper()

	pluginSrc := filepath.Join(dir, "plugin", "main.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(pluginSrc), 0o755))
	require.NoError(t, os.WriteFile(pluginSrc, []byte("package main\n"), 0o644))

	appSrc := filepath.Join(dir, "app", "main.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(appSrc), 0o755))
	require.NoError(t, os.WriteFile(appSrc, []byte("package main\n"), 0o644))

	plugin := &pkggraph.PluginTarget{
		Name:      "CodeGen",
		Directory: pkggraph.Path(filepath.Dir(pluginSrc)),
		Sources:   []pkggraph.Path{pkggraph.Path(pluginSrc)},
	}

	target := &pkggraph.Target{
		Name:       "App",
		Directory:  pkggraph.Path(filepath.Dir(appSrc)),
		Kind:       pkggraph.TargetKindSourceModule,
		ModuleName: "App",
		Files:      []pkggraph.File{{Path: pkggraph.Path(appSrc), Kind: pkggraph.FileKindSource}},
		PluginUses: []*pkggraph.PluginTarget{plugin},
	}

	pkg := &pkggraph.Package{
		Name:      "Root",
		Directory: pkggraph.Path(dir),
		Targets:   []*pkggraph.Target{target},
	}

	return pkg, target
}

func TestRunInvokesPluginAndProducesAbsoluteCommands(t *testing.T) {
	dir := t.TempDir()
	pkg, target := buildGraph(t, dir)

	pluginScript := fakePluginScript(t, dir)
	tc := &fakeToolchain{path: fakeCompilerScript(t, dir, pluginScript)}

	cfg := orchestrator.Config{
		OutputDir:        filepath.Join(dir, "out"),
		BuiltProductsDir: filepath.Join(dir, "built"),
		CacheDir:         filepath.Join(dir, "cache"),
		ToolsVersion:     "1.0",
		Toolchain:        tc,
		Sink:             discardSink{},
	}

	results, err := orchestrator.Run(context.Background(), pkg, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, target, results[0].Target)
	require.Len(t, results[0].Results, 1)

	inv := results[0].Results[0]
	require.Equal(t, "CodeGen", inv.PluginName)
	require.Len(t, inv.BuildCommands, 2)
	require.True(t, filepath.IsAbs(inv.BuildCommands[0].Outputs[0]), "output path should be absolutized against the work dir")

	// A command that never declared a WorkingDirectory keeps it unset
	// (spec scenario S6: "a command without it has workingDirectory =
	// ∅"), it is not defaulted to the invocation's work directory.
	require.Empty(t, inv.BuildCommands[0].Command.WorkingDirectory)

	// A command that did declare one gets it absolutized against the
	// work directory like any other relative path.
	require.True(t, filepath.IsAbs(inv.BuildCommands[1].Command.WorkingDirectory))
}

func TestRunSkipsTargetsWithNoPlugins(t *testing.T) {
	dir := t.TempDir()

	appSrc := filepath.Join(dir, "app", "main.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(appSrc), 0o755))
	require.NoError(t, os.WriteFile(appSrc, []byte("package main\n"), 0o644))

	target := &pkggraph.Target{
		Name:      "Bare",
		Directory: pkggraph.Path(filepath.Dir(appSrc)),
		Kind:      pkggraph.TargetKindSourceModule,
		Files:     []pkggraph.File{{Path: pkggraph.Path(appSrc), Kind: pkggraph.FileKindSource}},
	}
	pkg := &pkggraph.Package{Name: "Root", Directory: pkggraph.Path(dir), Targets: []*pkggraph.Target{target}}

	cfg := orchestrator.Config{
		OutputDir:        filepath.Join(dir, "out"),
		BuiltProductsDir: filepath.Join(dir, "built"),
		CacheDir:         filepath.Join(dir, "cache"),
		ToolsVersion:     "1.0",
		Toolchain:        &fakeToolchain{},
		Sink:             discardSink{},
	}

	results, err := orchestrator.Run(context.Background(), pkg, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Results)
}

type discardSink struct{}

func (discardSink) WriteLine(string) {}

var _ compiler.Toolchain = (*fakeToolchain)(nil)
