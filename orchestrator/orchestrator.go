// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package orchestrator drives, for each (plugin, target) pair reachable
// from a root package: build the wire input (Component B), compile the
// plugin (Component C), invoke it (Component D), and map its response
// into build-plan records — Component E (spec §4.E). Grounded on the
// teacher's runtime/tools/invoke.go overall shape (resolve deps, build a
// request, invoke, map the response), generalized from "one tool
// invocation" to "one plugin invocation per (plugin, target)".
package orchestrator

import (
	"context"
	"path/filepath"
	"sort"

	"pluginhost.dev/core/compiler"
	"pluginhost.dev/core/internal/executor"
	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/internal/tasks"
	"pluginhost.dev/core/internal/textsink"
	"pluginhost.dev/core/pkggraph"
)

// Config bundles the inputs Run needs that are constant across every
// (plugin, target) invocation it performs.
type Config struct {
	OutputDir        string
	BuiltProductsDir string
	CacheDir         string
	ToolsVersion     string
	Toolchain        compiler.Toolchain
	Sink             textsink.Sink
	// Concurrency bounds how many (plugin, target) invocations run at
	// once; defaults to 1 (spec §5 "MAY overlap invocations").
	Concurrency int
}

// TargetResults is the ordered list of invocation results for one
// target's plugins, in declaration order (spec §4.E "Return a mapping
// target → ordered list of invocation results").
type TargetResults struct {
	Target  *pkggraph.Target
	Results []InvocationResult
}

// Run walks every target reachable from root (name-sorted, spec §4.E),
// skips those with no plugin dependencies, and invokes each of a
// target's plugins in declaration order.
func Run(ctx context.Context, root *pkggraph.Package, cfg Config) ([]TargetResults, error) {
	targets := reachableTargets(root)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := executor.NewSemaphore(concurrency)

	results := make([]TargetResults, len(targets))
	eg, wait := executor.New(ctx, "orchestrator.run")

	for i, target := range targets {
		i, target := i, target
		if len(target.PluginUses) == 0 {
			results[i] = TargetResults{Target: target}
			continue
		}

		eg.Go(func(ctx context.Context) error {
			if err := sem.Acquire(ctx); err != nil {
				return err
			}
			defer sem.Release()

			tr, err := runTarget(ctx, root, target, cfg)
			if err != nil {
				return err
			}
			results[i] = *tr
			return nil
		})
	}

	if err := wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runTarget(ctx context.Context, root *pkggraph.Package, target *pkggraph.Target, cfg Config) (*TargetResults, error) {
	tr := &TargetResults{Target: target}

	for _, plugin := range target.PluginUses {
		result, err := runPlugin(ctx, root, target, plugin, cfg)
		if err != nil {
			return nil, err
		}
		tr.Results = append(tr.Results, *result)
	}

	return tr, nil
}

func runPlugin(ctx context.Context, root *pkggraph.Package, target *pkggraph.Target, plugin *pkggraph.PluginTarget, cfg Config) (*InvocationResult, error) {
	var result *InvocationResult

	err := tasks.Action("orchestrator.invoke-plugin").
		Arg("target", target.Name).Arg("plugin", plugin.Name).
		Run(ctx, func(ctx context.Context) error {
			workDir := filepath.Join(cfg.OutputDir, ownerPackage(root, target).Identity(), target.Name, plugin.Name)
			if err := mkdirAll(workDir); err != nil {
				return fnerrors.WorkDirectoryCreationFailed(workDir, err)
			}

			hostTriple, err := cfg.Toolchain.HostTriple(ctx)
			if err != nil {
				return err
			}
			tools, err := resolveTools(plugin, hostTriple, cfg.BuiltProductsDir)
			if err != nil {
				return err
			}

			toolPaths := make(map[string]pkggraph.Path, len(tools))
			for name, path := range tools {
				toolPaths[name] = pkggraph.Path(path)
			}

			action := pkggraph.CreateBuildToolCommands(target)
			input, err := pkggraph.Serialize(root, pkggraph.Path(workDir), pkggraph.Path(cfg.BuiltProductsDir), toolPaths, action)
			if err != nil {
				return err
			}

			sources := make([]string, len(plugin.Sources))
			for i, s := range plugin.Sources {
				sources[i] = string(s)
			}

			compiled, err := compiler.Compile(ctx, cfg.Toolchain, sources, cfg.ToolsVersion, cfg.CacheDir)
			if err != nil {
				return err
			}
			if !compiled.Succeeded() {
				return fnerrors.CompilationFailed(compiled)
			}

			out, err := invokePlugin(ctx, compiled.Executable, workDir, cfg.CacheDir, *input, cfg.Sink)
			if err != nil {
				return err
			}

			r := toAbsoluteCommands(out, workDir)
			r.PluginName = plugin.Name
			result = &r
			return nil
		})

	return result, err
}

// ownerPackage finds the package that directly declares target, walking
// root's dependency closure; used only to build the per-invocation work
// directory path (spec §6 "outputDir/<packageIdentity>/...").
func ownerPackage(root *pkggraph.Package, target *pkggraph.Target) *pkggraph.Package {
	seen := map[*pkggraph.Package]bool{}
	var find func(pkg *pkggraph.Package) *pkggraph.Package
	find = func(pkg *pkggraph.Package) *pkggraph.Package {
		if seen[pkg] {
			return nil
		}
		seen[pkg] = true
		for _, t := range pkg.Targets {
			if t == target {
				return pkg
			}
		}
		for _, dep := range pkg.Dependencies {
			if found := find(dep); found != nil {
				return found
			}
		}
		return nil
	}
	if found := find(root); found != nil {
		return found
	}
	return root
}

// reachableTargets collects every Target reachable from root's package
// dependency closure, deduplicated by identity and returned in stable
// name-sorted order (spec §4.E "iterated in a stable order —
// name-sorted").
func reachableTargets(root *pkggraph.Package) []*pkggraph.Target {
	seenPkg := map[*pkggraph.Package]bool{}
	seenTarget := map[*pkggraph.Target]bool{}
	var targets []*pkggraph.Target

	var walk func(pkg *pkggraph.Package)
	walk = func(pkg *pkggraph.Package) {
		if seenPkg[pkg] {
			return
		}
		seenPkg[pkg] = true

		for _, t := range pkg.Targets {
			if !seenTarget[t] {
				seenTarget[t] = true
				targets = append(targets, t)
			}
		}
		for _, dep := range pkg.Dependencies {
			walk(dep)
		}
	}
	walk(root)

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}
