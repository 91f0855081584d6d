// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"pluginhost.dev/core/schema"
)

const (
	compiledPluginName  = "compiled-plugin"
	diagnosticsFileName = "diagnostics.dia"
)

// fingerprint computes the compile-cache key: a digest over the sorted
// source fingerprints, the tools version, and the toolchain identity
// (spec §3 "(source fingerprint, tools version, toolchain identity)").
func fingerprint(ctx context.Context, sources []string, toolsVersion string, tc Toolchain) (schema.Digest, error) {
	ident, err := tc.Identity(ctx)
	if err != nil {
		return schema.Digest{}, err
	}

	sourceDigests, err := sourceFingerprints(sources)
	if err != nil {
		return schema.Digest{}, err
	}
	sort.Strings(sourceDigests)

	vals := make([]string, 0, len(sourceDigests)+2)
	vals = append(vals, sourceDigests...)
	vals = append(vals, toolsVersion, ident)
	return schema.DigestOf(vals...), nil
}

// sourceFingerprints hashes each source file's content (via the fast
// non-cryptographic QuickDigest, since this is a cache key, not a
// security boundary) together with its path, so a rename is
// distinguished from an edit.
func sourceFingerprints(sources []string) ([]string, error) {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		out = append(out, src+"@"+schema.QuickDigest(data))
	}
	return out, nil
}

// cacheEntry is the on-disk layout for one fingerprint:
// cacheDir/<fingerprint>/{compiled-plugin, diagnostics.dia} (spec §6).
type cacheEntry struct {
	dir string
}

func newCacheEntry(cacheDir string, fp schema.Digest) cacheEntry {
	return cacheEntry{dir: filepath.Join(cacheDir, fp.Algorithm+"-"+fp.Hex)}
}

func (c cacheEntry) executablePath() string  { return filepath.Join(c.dir, compiledPluginName) }
func (c cacheEntry) diagnosticsPath() string { return filepath.Join(c.dir, diagnosticsFileName) }

// hit reports whether a previously cached executable exists and predates
// none of the given sources (mtime-based invalidation, spec §4.C
// "Caching"); presence of the recorded fingerprint directory is itself
// sufficient proof the effective command line matched, since the
// directory name IS the fingerprint of (sources, toolsVersion, toolchain).
func (c cacheEntry) hit(sources []string) (bool, error) {
	execInfo, err := os.Stat(c.executablePath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, src := range sources {
		srcInfo, err := os.Stat(src)
		if err != nil {
			return false, err
		}
		if srcInfo.ModTime().After(execInfo.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

// ensureDir creates the cache entry's directory if absent.
func (c cacheEntry) ensureDir() error {
	return os.MkdirAll(c.dir, 0o755)
}

// replaceExecutable atomically installs tmpPath as the cached executable
// via rename-in-same-directory, so a concurrent reader never observes a
// partially-written file (spec §4.C, mirroring the teacher's
// write-to-temp-then-rename cache-replace pattern).
func (c cacheEntry) replaceExecutable(tmpPath string) error {
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		return err
	}
	return os.Rename(tmpPath, c.executablePath())
}

func (c cacheEntry) writeDiagnostics(data []byte) error {
	tmp := c.diagnosticsPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.diagnosticsPath())
}
