// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package schema is the wire vocabulary exchanged between the session
// orchestrator (host) and a compiled plugin (subprocess): the flattened
// package graph sent as Input, and the Diagnostic/BuildCommand/
// PrebuildCommand/UserCommand records sent back as Output (spec §3,
// §4.A). IDs are positions into the corresponding array of an Input —
// valid only within that one Input (spec GLOSSARY "Wire ID").
package schema

// PathID, TargetID, ProductID and PackageID are indices into
// Input.Paths/.Targets/.Products/.Packages respectively.
type PathID int
type TargetID int
type ProductID int
type PackageID int

// Path is `(base, subpath)`: a path with no base is a root (spec §3).
type Path struct {
	Base    *PathID `json:"base,omitempty"`
	Subpath string  `json:"subpath"`
}

// FileKind discriminates a Target's declared files.
type FileKind string

const (
	FileKindSource   FileKind = "source"
	FileKindHeader   FileKind = "header"
	FileKindResource FileKind = "resource"
	FileKindUnknown  FileKind = "unknown"
)

// File is one source/header/resource/unknown file under a Target.
type File struct {
	Base PathID   `json:"base"`
	Name string   `json:"name"`
	Kind FileKind `json:"kind"`
}

// DepKind discriminates a Target's dependency edges.
type DepKind string

const (
	DepKindTarget  DepKind = "target"
	DepKindProduct DepKind = "product"
)

// TargetDep is a typed dependency edge out of a Target: either another
// Target or a Product, never both.
type TargetDep struct {
	Kind    DepKind    `json:"kind"`
	Target  *TargetID  `json:"target,omitempty"`
	Product *ProductID `json:"product,omitempty"`
}

// TargetInfoKind discriminates a Target's category-specific payload.
type TargetInfoKind string

const (
	TargetInfoSourceModule  TargetInfoKind = "sourceModule"
	TargetInfoBinaryLibrary TargetInfoKind = "binaryLibrary"
	TargetInfoSystemLibrary TargetInfoKind = "systemLibrary"
)

// TargetInfo is the tagged union of what a Target actually is.
type TargetInfo struct {
	Kind TargetInfoKind `json:"kind"`

	// SourceModule
	ModuleName        string  `json:"moduleName,omitempty"`
	PublicHeadersDir  *PathID `json:"publicHeadersDir,omitempty"`
	Files             []File  `json:"files,omitempty"`

	// BinaryLibrary
	Path string `json:"path,omitempty"`

	// SystemLibrary (reuses PublicHeadersDir above)
}

// Target is a node in the package graph reachable via typed edges from
// its owning Package. A target of an unsupported kind is never assigned
// an ID (spec §3 "missing ID").
type Target struct {
	Name      string      `json:"name"`
	Directory PathID      `json:"directory"`
	Deps      []TargetDep `json:"deps"`
	Info      TargetInfo  `json:"info"`
}

// ProductInfoKind discriminates a Product's category-specific payload.
type ProductInfoKind string

const (
	ProductInfoExecutable ProductInfoKind = "executable"
	ProductInfoLibrary    ProductInfoKind = "library"
)

type LibraryKind string

const (
	LibraryKindStatic    LibraryKind = "static"
	LibraryKindDynamic   LibraryKind = "dynamic"
	LibraryKindAutomatic LibraryKind = "automatic"
)

type ProductInfo struct {
	Kind ProductInfoKind `json:"kind"`

	// Executable
	MainTarget *TargetID `json:"mainTarget,omitempty"`

	// Library
	LibraryKind LibraryKind `json:"libraryKind,omitempty"`
}

// Product groups one or more Targets into something the build produces
// (an executable or a library).
type Product struct {
	Name    string      `json:"name"`
	Targets []TargetID  `json:"targets"`
	Info    ProductInfo `json:"info"`
}

// Package is a directory's worth of Targets/Products plus its
// dependencies on other Packages (by ID, deduplicated by the serializer).
type Package struct {
	Name         string      `json:"name"`
	Directory    PathID      `json:"directory"`
	Dependencies []PackageID `json:"dependencies"`
	Products     []ProductID `json:"products"`
	Targets      []TargetID  `json:"targets"`
}

// Input is the complete flattened wire graph plus the single Action the
// plugin is being asked to perform, built once per plugin invocation
// (spec §3 "Lifetimes & ownership").
type Input struct {
	Paths    []Path    `json:"paths"`
	Targets  []Target  `json:"targets"`
	Products []Product `json:"products"`
	Packages []Package `json:"packages"`

	RootPackage PackageID `json:"rootPackageId"`

	PluginWorkDir    PathID `json:"pluginWorkDirId"`
	BuiltProductsDir PathID `json:"builtProductsDirId"`

	ToolNamesToPaths map[string]PathID `json:"toolNamesToPathIds"`

	Action Action `json:"pluginAction"`
}
