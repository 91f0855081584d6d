// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestrator

import (
	"fmt"
	"path/filepath"

	"pluginhost.dev/core/internal/fnerrors"
	"pluginhost.dev/core/pkggraph"
)

// resolveTools computes the absolute path for every tool a plugin
// declares a dependency on: a BinaryTarget dependency is a vended tool
// (resolved to <bundle>/<hostTriple>/<name> inside its artifact bundle;
// the bundle's contents are not read or checked), an executable
// Product dependency is a built tool (resolved relative to
// builtProductsDir) — spec §4.E "Determine accessible tools".
func resolveTools(plugin *pkggraph.PluginTarget, hostTriple string, builtProductsDir string) (map[string]string, error) {
	tools := make(map[string]string, len(plugin.Deps))

	for _, dep := range plugin.Deps {
		switch dep.Kind {
		case pkggraph.DepKindBinary:
			path, err := vendedToolPath(dep.Binary, hostTriple)
			if err != nil {
				return nil, err
			}
			tools[dep.Binary.Name] = path
		case pkggraph.DepKindProduct:
			tools[dep.Product.Name] = builtToolPath(dep.Product, builtProductsDir)
		default:
			return nil, fnerrors.InternalError("plugin %q has a tool dependency of unsupported kind %d", plugin.Name, dep.Kind)
		}
	}

	return tools, nil
}

// vendedToolPath resolves bt's per-triple executable inside its artifact
// bundle: <bundle>/<triple>/<name> (spec GLOSSARY "Vended tool" — an
// absolute path inside a binary target's artifact archive).
func vendedToolPath(bt *pkggraph.BinaryTarget, hostTriple string) (string, error) {
	if bt.ArtifactBundlePath == "" {
		return "", fmt.Errorf("binary target %q has no artifact bundle to vend a tool from", bt.Name)
	}
	path := filepath.Join(string(bt.ArtifactBundlePath), hostTriple, bt.Name)
	return path, nil
}

// builtToolPath resolves an executable product's path relative to the
// built-products directory (spec GLOSSARY "Built tool" — a relative path
// under the built-products directory).
func builtToolPath(p *pkggraph.Product, builtProductsDir string) string {
	return filepath.Join(builtProductsDir, p.Name)
}
