// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package pkggraph is the in-memory package graph: Packages, Products,
// Targets, Plugin-targets and Binary-targets linked by typed edges,
// forming a DAG with shared nodes (spec §3). Manifest parsing and graph
// construction are out of scope (spec §1, external collaborator); this
// package only defines the Go shape the serializer (serialize.go) walks,
// built directly from SPEC_FULL.md §4.B since no teacher package owns an
// equivalent in-memory model.
package pkggraph

// Path is an absolute filesystem path. Node identity for the serializer
// comes from Go pointer identity on Target/Product/Package/PluginTarget/
// BinaryTarget; Path values are deduplicated by string equality, which is
// exactly "the same absolute path always maps to the same ID" (spec §3).
type Path string

type FileKind string

const (
	FileKindSource   FileKind = "source"
	FileKindHeader   FileKind = "header"
	FileKindResource FileKind = "resource"
	FileKindUnknown  FileKind = "unknown"
)

// File is one file declared under a Target.
type File struct {
	Path Path
	Kind FileKind
}

// TargetKind discriminates what a Target compiles into. Only
// SourceModule and SystemLibrary are Target kinds (BinaryLibrary lives on
// BinaryTarget, spec §3 "Entities (wire form)").
type TargetKind string

const (
	TargetKindSourceModule TargetKind = "sourceModule"
	TargetKindSystemLibrary TargetKind = "systemLibrary"
)

// DepKind discriminates a Target's dependency edges.
type DepKind int

const (
	DepKindTarget DepKind = iota
	DepKindProduct
	DepKindBinary
)

// Dependency is a typed edge out of a Target, to another Target, a
// Product, or a vended BinaryTarget — never more than one of the three
// (spec §3 "deps: [TargetDep | ProductDep]", extended here for binary
// targets which serialize into the same wire Target array under the
// BinaryLibrary TargetInfo variant).
type Dependency struct {
	Kind    DepKind
	Target  *Target
	Product *Product
	Binary  *BinaryTarget
}

func DependsOnTarget(t *Target) Dependency      { return Dependency{Kind: DepKindTarget, Target: t} }
func DependsOnProduct(p *Product) Dependency    { return Dependency{Kind: DepKindProduct, Product: p} }
func DependsOnBinary(b *BinaryTarget) Dependency { return Dependency{Kind: DepKindBinary, Binary: b} }

// Target is a regular (non-plugin, non-binary) node: compiled source or a
// system library shim.
type Target struct {
	Name      string
	Directory Path
	Kind      TargetKind

	// SourceModule
	ModuleName       string
	PublicHeadersDir *Path
	Files            []File

	Deps []Dependency

	// PluginUses lists the build-tool plugins this target invokes. This
	// is a separate relationship from Deps (library dependencies) — the
	// session orchestrator walks it directly (spec §4.E); the graph
	// serializer never follows it (a plugin isn't a linkable wire Target).
	PluginUses []*PluginTarget
}

// BinaryTarget is a vended prebuilt artifact: a library to link against
// and/or an artifact bundle of per-platform-triple tool executables
// (spec GLOSSARY "Vended tool").
type BinaryTarget struct {
	Name      string
	Directory Path

	// LibraryPath is serialized into the wire TargetInfo.BinaryLibrary{path}
	// when this target is reachable as a regular dependency.
	LibraryPath Path

	// ArtifactBundlePath, if set, points at a directory the orchestrator
	// parses for a host-triple-to-executable-path mapping (spec §4.E
	// "parse its artifact archive for the host triple").
	ArtifactBundlePath Path
}

// PluginTarget is a plugin's own source: compiled by the plugin compiler
// (Component C), never serialized into a wire Target (its sources feed
// the compiler directly, not the package-graph wire form). Deps are the
// tools the plugin itself needs at run time: a BinaryTarget dependency is
// a vended tool, an executable Product dependency is a built tool (spec
// §4.E).
type PluginTarget struct {
	Name      string
	Directory Path
	Sources   []Path
	Deps      []Dependency
}

// ProductKind discriminates what a Product is.
type ProductKind int

const (
	ProductKindExecutable ProductKind = iota
	ProductKindLibrary
)

type LibraryKind string

const (
	LibraryKindStatic    LibraryKind = "static"
	LibraryKindDynamic   LibraryKind = "dynamic"
	LibraryKindAutomatic LibraryKind = "automatic"
)

// Product groups Targets into something the build produces.
type Product struct {
	Name    string
	Targets []*Target
	Kind    ProductKind

	// Library
	LibraryKind LibraryKind
}

// Package is a directory's worth of targets/products plus dependencies
// on other packages.
type Package struct {
	Name         string
	Directory    Path
	Dependencies []*Package
	Products     []*Product
	Targets      []*Target
	BinaryTargets []*BinaryTarget
}

// Identity returns a stable per-package path component for on-disk
// layout (spec §6 "outputDir/<packageIdentity>/...").
func (p *Package) Identity() string { return p.Name }
