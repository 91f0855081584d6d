// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

//go:build !linux

package sandbox

import "os/exec"

// Supported reports false: this platform has no sandboxing primitive
// wired up, so the runner disables sandboxing and documents it (spec §6
// "If the platform has no native sandbox facility, the flag disables
// sandboxing and the runner documents this explicitly").
func Supported() bool { return false }

func apply(cmd *exec.Cmd, p Profile) error { return nil }
