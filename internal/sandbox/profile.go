// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package sandbox builds a restricted subprocess environment: no network
// access, and filesystem writes confined to an explicit set of
// directories (spec §6 "Sandbox contract"). Only Linux has an
// implementation (internal/sandbox/profile_linux.go: a network namespace
// plus a Landlock ruleset confining file reads and writes to the
// writable directories, via golang.org/x/sys/unix, without
// cgo); every other platform reports Supported() == false and
// the caller documents that sandboxing is disabled, per §6's explicit
// allowance — there is no teacher analogue since its own sandboxing
// lives deep inside its Kubernetes/container-runtime integration, out of
// scope here.
package sandbox

import "os/exec"

// Profile describes the confinement to apply to a subprocess.
type Profile struct {
	// WritableDirs is the union of writableDirs ∪ {cacheDir} (spec §6).
	WritableDirs []string
}

// New returns a Profile confining writes to dirs.
func New(dirs ...string) Profile {
	return Profile{WritableDirs: dirs}
}

// Apply configures cmd to run under this profile. On an unsupported
// platform it is a no-op; callers must check Supported() and log that
// sandboxing is disabled themselves (spec §6).
func (p Profile) Apply(cmd *exec.Cmd) error {
	if !Supported() {
		return nil
	}
	return apply(cmd, p)
}
