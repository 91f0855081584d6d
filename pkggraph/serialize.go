// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pkggraph

import (
	"fmt"
	"path/filepath"
	"sort"

	"pluginhost.dev/core/schema"
)

// serializer holds the identity-memoization tables for one Serialize call.
// Paths are keyed by value (the same absolute path always maps to the same
// ID); Packages/Products/Targets are keyed by pointer identity, since the
// source graph shares nodes along multiple edges.
type serializer struct {
	input schema.Input

	pathIDs    map[Path]schema.PathID
	packageIDs map[*Package]schema.PackageID
	productIDs map[*Product]schema.ProductID
	targetIDs  map[*Target]schema.TargetID
	binaryIDs  map[*BinaryTarget]schema.TargetID

	// inProgress detects cycles in Packages/Targets during the DFS walk.
	inProgress map[any]bool
}

// Serialize flattens the package graph reachable from root into a
// schema.Input for the given action, assigning wire IDs by depth-first
// traversal with identity memoization (spec §4.B).
func Serialize(root *Package, workDir, builtProductsDir Path, toolPaths map[string]Path, action Action) (*schema.Input, error) {
	s := &serializer{
		pathIDs:    make(map[Path]schema.PathID),
		packageIDs: make(map[*Package]schema.PackageID),
		productIDs: make(map[*Product]schema.ProductID),
		targetIDs:  make(map[*Target]schema.TargetID),
		binaryIDs:  make(map[*BinaryTarget]schema.TargetID),
		inProgress: make(map[any]bool),
	}

	rootID, err := s.serializePackage(root)
	if err != nil {
		return nil, err
	}
	s.input.RootPackage = rootID

	s.input.PluginWorkDir = s.serializePath(workDir)
	s.input.BuiltProductsDir = s.serializePath(builtProductsDir)

	// Map iteration order is randomized; assigning PathIDs in that order
	// would make repeated Serialize calls on an identical graph produce
	// different ID orderings (spec §4.B, Testable Property 1). Sort the
	// names first so ID assignment is deterministic.
	names := make([]string, 0, len(toolPaths))
	for name := range toolPaths {
		names = append(names, name)
	}
	sort.Strings(names)

	s.input.ToolNamesToPaths = make(map[string]schema.PathID, len(toolPaths))
	for _, name := range names {
		s.input.ToolNamesToPaths[name] = s.serializePath(toolPaths[name])
	}

	wireAction, err := s.serializeAction(action)
	if err != nil {
		return nil, err
	}
	s.input.Action = wireAction

	return &s.input, nil
}

// Action is the in-memory counterpart of schema.Action, referencing
// Targets directly by pointer rather than by wire ID.
type Action struct {
	Kind      schema.ActionKind
	Target    *Target
	Targets   []*Target
	Arguments []string
}

func CreateBuildToolCommands(target *Target) Action {
	return Action{Kind: schema.ActionCreateBuildToolCommands, Target: target}
}

func PerformUserCommand(targets []*Target, arguments []string) Action {
	return Action{Kind: schema.ActionPerformUserCommand, Targets: targets, Arguments: arguments}
}

func (s *serializer) serializeAction(a Action) (schema.Action, error) {
	switch a.Kind {
	case schema.ActionCreateBuildToolCommands:
		id, err := s.serializeTarget(a.Target)
		if err != nil {
			return schema.Action{}, fmt.Errorf("resolving action target: %w", err)
		}
		return schema.CreateBuildToolCommands(id), nil
	case schema.ActionPerformUserCommand:
		ids := make([]schema.TargetID, 0, len(a.Targets))
		for _, t := range a.Targets {
			id, err := s.serializeTarget(t)
			if err != nil {
				return schema.Action{}, fmt.Errorf("resolving action target %q: %w", t.Name, err)
			}
			ids = append(ids, id)
		}
		return schema.PerformUserCommand(ids, a.Arguments), nil
	default:
		return schema.Action{}, fmt.Errorf("unrecognized action kind %q", a.Kind)
	}
}

// serializePath ID-ifies p, assigning its parent directory first (unless
// the parent is the filesystem root, in which case base is nil) so shared
// prefixes share IDs (spec §4.B).
func (s *serializer) serializePath(p Path) schema.PathID {
	if id, ok := s.pathIDs[p]; ok {
		return id
	}

	dir := filepath.Dir(string(p))
	base := filepath.Base(string(p))

	wire := schema.Path{Subpath: base}
	if dir != string(p) && dir != "." && dir != "/" {
		parentID := s.serializePath(Path(dir))
		wire.Base = &parentID
	} else if dir == "/" && string(p) != "/" {
		// Parent is the filesystem root: no base entry, subpath already set.
	}

	id := schema.PathID(len(s.input.Paths))
	s.input.Paths = append(s.input.Paths, wire)
	s.pathIDs[p] = id
	return id
}

func (s *serializer) serializePackage(pkg *Package) (schema.PackageID, error) {
	if id, ok := s.packageIDs[pkg]; ok {
		return id, nil
	}
	if s.inProgress[pkg] {
		return 0, fmt.Errorf("cycle detected at package %q", pkg.Name)
	}
	s.inProgress[pkg] = true
	defer delete(s.inProgress, pkg)

	deps := make([]schema.PackageID, 0, len(pkg.Dependencies))
	for _, dep := range pkg.Dependencies {
		depID, err := s.serializePackage(dep)
		if err != nil {
			return 0, err
		}
		deps = append(deps, depID)
	}

	products := make([]schema.ProductID, 0, len(pkg.Products))
	for _, prod := range pkg.Products {
		prodID, err := s.serializeProduct(prod)
		if err != nil {
			return 0, err
		}
		products = append(products, prodID)
	}

	targets := make([]schema.TargetID, 0, len(pkg.Targets)+len(pkg.BinaryTargets))
	for _, t := range pkg.Targets {
		tID, err := s.serializeTarget(t)
		if err != nil {
			if _, unsupported := err.(unsupportedTargetError); unsupported {
				continue
			}
			return 0, err
		}
		targets = append(targets, tID)
	}
	for _, b := range pkg.BinaryTargets {
		targets = append(targets, s.serializeBinaryTarget(b))
	}

	wire := schema.Package{
		Name:         pkg.Name,
		Directory:    s.serializePath(pkg.Directory),
		Dependencies: deps,
		Products:     products,
		Targets:      targets,
	}

	id := schema.PackageID(len(s.input.Packages))
	s.input.Packages = append(s.input.Packages, wire)
	s.packageIDs[pkg] = id
	return id, nil
}

// unsupportedTargetError marks a Target of a kind the wire schema cannot
// represent; such targets are dropped from their owning Package's list
// rather than serialized (spec §3 "missing ID").
type unsupportedTargetError struct{ name string }

func (e unsupportedTargetError) Error() string {
	return fmt.Sprintf("target %q has no wire representation", e.name)
}

func (s *serializer) serializeTarget(t *Target) (schema.TargetID, error) {
	if id, ok := s.targetIDs[t]; ok {
		return id, nil
	}
	if s.inProgress[t] {
		return 0, fmt.Errorf("cycle detected at target %q", t.Name)
	}

	info, err := s.serializeTargetInfo(t)
	if err != nil {
		return 0, err
	}

	s.inProgress[t] = true
	defer delete(s.inProgress, t)

	deps := make([]schema.TargetDep, 0, len(t.Deps))
	for _, d := range t.Deps {
		wireDep, ok, err := s.serializeDep(d)
		if err != nil {
			return 0, err
		}
		if !ok {
			// Dependency referenced an unsupported target; drop it (spec §3).
			continue
		}
		deps = append(deps, wireDep)
	}

	wire := schema.Target{
		Name:      t.Name,
		Directory: s.serializePath(t.Directory),
		Deps:      deps,
		Info:      info,
	}

	id := schema.TargetID(len(s.input.Targets))
	s.input.Targets = append(s.input.Targets, wire)
	s.targetIDs[t] = id
	return id, nil
}

func (s *serializer) serializeDep(d Dependency) (schema.TargetDep, bool, error) {
	switch d.Kind {
	case DepKindTarget:
		id, err := s.serializeTarget(d.Target)
		if err != nil {
			if _, unsupported := err.(unsupportedTargetError); unsupported {
				return schema.TargetDep{}, false, nil
			}
			return schema.TargetDep{}, false, err
		}
		return schema.TargetDep{Kind: schema.DepKindTarget, Target: &id}, true, nil
	case DepKindProduct:
		id, err := s.serializeProduct(d.Product)
		if err != nil {
			return schema.TargetDep{}, false, err
		}
		return schema.TargetDep{Kind: schema.DepKindProduct, Product: &id}, true, nil
	case DepKindBinary:
		id := s.serializeBinaryTarget(d.Binary)
		return schema.TargetDep{Kind: schema.DepKindTarget, Target: &id}, true, nil
	default:
		return schema.TargetDep{}, false, fmt.Errorf("unrecognized dependency kind %d", d.Kind)
	}
}

// serializeBinaryTarget assigns b a wire TargetID under the BinaryLibrary
// TargetInfo variant (spec §3's Target.info includes BinaryLibrary{path}
// as a peer of SourceModule/SystemLibrary, so a vended binary shares the
// Targets array rather than getting its own).
func (s *serializer) serializeBinaryTarget(b *BinaryTarget) schema.TargetID {
	if id, ok := s.binaryIDs[b]; ok {
		return id
	}

	wire := schema.Target{
		Name:      b.Name,
		Directory: s.serializePath(b.Directory),
		Info: schema.TargetInfo{
			Kind: schema.TargetInfoBinaryLibrary,
			Path: string(b.LibraryPath),
		},
	}

	id := schema.TargetID(len(s.input.Targets))
	s.input.Targets = append(s.input.Targets, wire)
	s.binaryIDs[b] = id
	return id
}

// serializeTargetInfo builds the kind-specific wire payload for t. Only
// SourceModule and SystemLibrary targets have a wire representation here;
// BinaryLibrary targets are modeled separately as BinaryTarget and
// serialized via serializeBinaryTarget when reached as a dependency.
func (s *serializer) serializeTargetInfo(t *Target) (schema.TargetInfo, error) {
	switch t.Kind {
	case TargetKindSourceModule:
		files := s.serializeFiles(t.Files)
		var headersDir *schema.PathID
		if t.PublicHeadersDir != nil {
			id := s.serializePath(*t.PublicHeadersDir)
			headersDir = &id
		}
		return schema.TargetInfo{
			Kind:             schema.TargetInfoSourceModule,
			ModuleName:       t.ModuleName,
			PublicHeadersDir: headersDir,
			Files:            files,
		}, nil
	case TargetKindSystemLibrary:
		var headersDir *schema.PathID
		if t.PublicHeadersDir != nil {
			id := s.serializePath(*t.PublicHeadersDir)
			headersDir = &id
		}
		return schema.TargetInfo{Kind: schema.TargetInfoSystemLibrary, PublicHeadersDir: headersDir}, nil
	default:
		return schema.TargetInfo{}, unsupportedTargetError{name: t.Name}
	}
}

// serializeFiles concatenates sources (kind=source), resources
// (kind=resource) and everything else (kind=unknown), in that order, per
// spec §4.B; headers are not part of this concatenation (they're located
// via PublicHeadersDir, not enumerated as files).
func (s *serializer) serializeFiles(files []File) []schema.File {
	var sources, resources, other []File
	for _, f := range files {
		switch f.Kind {
		case FileKindSource:
			sources = append(sources, f)
		case FileKindResource:
			resources = append(resources, f)
		default:
			other = append(other, f)
		}
	}

	ordered := make([]File, 0, len(files))
	ordered = append(ordered, sources...)
	ordered = append(ordered, resources...)
	ordered = append(ordered, other...)

	out := make([]schema.File, 0, len(ordered))
	for _, f := range ordered {
		dir := filepath.Dir(string(f.Path))
		name := filepath.Base(string(f.Path))
		out = append(out, schema.File{
			Base: s.serializePath(Path(dir)),
			Name: name,
			Kind: schema.FileKind(f.Kind),
		})
	}
	return out
}

func (s *serializer) serializeProduct(p *Product) (schema.ProductID, error) {
	if id, ok := s.productIDs[p]; ok {
		return id, nil
	}

	targets := make([]schema.TargetID, 0, len(p.Targets))
	for _, t := range p.Targets {
		tID, err := s.serializeTarget(t)
		if err != nil {
			if _, unsupported := err.(unsupportedTargetError); unsupported {
				continue
			}
			return 0, err
		}
		targets = append(targets, tID)
	}

	info, err := s.serializeProductInfo(p)
	if err != nil {
		return 0, err
	}

	wire := schema.Product{Name: p.Name, Targets: targets, Info: info}

	id := schema.ProductID(len(s.input.Products))
	s.input.Products = append(s.input.Products, wire)
	s.productIDs[p] = id
	return id, nil
}

// serializeProductInfo picks the executable product's main target: the
// single SourceModule target among p.Targets. None or many is an
// invariant violation (spec §4.B). Target has no separate executable
// kind, so any SourceModule target counts as a candidate.
func (s *serializer) serializeProductInfo(p *Product) (schema.ProductInfo, error) {
	switch p.Kind {
	case ProductKindExecutable:
		var main *Target
		var count int
		for _, t := range p.Targets {
			if t.Kind == TargetKindSourceModule {
				main = t
				count++
			}
		}
		if count == 0 {
			return schema.ProductInfo{}, fmt.Errorf("executable product %q has no eligible main target", p.Name)
		}
		if count > 1 {
			return schema.ProductInfo{}, fmt.Errorf("executable product %q has %d eligible main targets, want 1", p.Name, count)
		}
		id, err := s.serializeTarget(main)
		if err != nil {
			return schema.ProductInfo{}, err
		}
		return schema.ProductInfo{Kind: schema.ProductInfoExecutable, MainTarget: &id}, nil
	case ProductKindLibrary:
		return schema.ProductInfo{Kind: schema.ProductInfoLibrary, LibraryKind: schema.LibraryKind(p.LibraryKind)}, nil
	default:
		return schema.ProductInfo{}, fmt.Errorf("unrecognized product kind %d", p.Kind)
	}
}

