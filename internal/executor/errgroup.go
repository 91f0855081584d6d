// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package executor provides the errgroup-style fan-out/barrier primitive
// used to wait on the three concurrent completion signals of one
// sandboxed invocation: process exit, stdout EOF, stderr EOF (spec §4.D,
// §5).
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type Executor interface {
	Go(func(context.Context) error)
	GoCancelable(func(context.Context) error) func()
	Wait() error
}

// New returns an Executor bound to ctx, and a Wait function that blocks
// until every goroutine spawned via Go/GoCancelable has returned. The
// first non-nil error wins and cancels the shared context, so siblings
// observe cancellation promptly; a context.Canceled error counts too,
// except from GoCancelable goroutines, which drop it.
func New(ctx context.Context, name string) (Executor, func() error) {
	ctxWithCancel, cancel := context.WithCancel(ctx)
	exec := &errGroupExecutor{ctx: ctxWithCancel, cancel: cancel, name: name, id: uuid.NewString()}
	return exec, exec.Wait
}

// Newf is a convenience wrapper for a formatted name.
func Newf(ctx context.Context, format string, args ...interface{}) (Executor, func() error) {
	return New(ctx, fmt.Sprintf(format, args...))
}

type errGroupExecutor struct {
	ctx    context.Context
	cancel func()
	name   string
	id     string

	wg sync.WaitGroup

	errOnce sync.Once
	err     error
}

func (exec *errGroupExecutor) Wait() error {
	exec.wg.Wait()
	exec.cancel()
	if exec.err == nil {
		return nil
	}
	return fmt.Errorf("%s[%s]: %w", exec.name, exec.id, exec.err)
}

func (exec *errGroupExecutor) lowlevelGo(f func() error) {
	exec.wg.Add(1)

	go func() {
		defer exec.wg.Done()

		if err := f(); err != nil {
			exec.errOnce.Do(func() {
				exec.err = err
				exec.cancel()
			})
		}
	}()
}

func (exec *errGroupExecutor) Go(f func(context.Context) error) {
	exec.lowlevelGo(func() error {
		return f(exec.ctx)
	})
}

// GoCancelable runs f with its own derived, individually cancelable
// context; a context.Canceled error returned by f (e.g. after the
// returned cancel func is called) does not propagate to the group.
func (exec *errGroupExecutor) GoCancelable(f func(context.Context) error) func() {
	ctxWithCancel, cancel := context.WithCancel(exec.ctx)
	exec.lowlevelGo(func() error {
		if err := f(ctxWithCancel); err != nil {
			if !errors.Is(err, context.Canceled) {
				return err
			}
		}
		return nil
	})
	return cancel
}

// Serial runs goroutines one at a time, in submission order, useful in
// tests that want deterministic ordering without real concurrency.
func Serial(ctx context.Context) (Executor, func() error) {
	s := &serial{ctx: ctx}
	return s, s.Wait
}

type serial struct {
	ctx context.Context
	err error
}

func (s *serial) Go(f func(context.Context) error) {
	if s.err == nil {
		s.err = f(s.ctx)
	}
}

func (s *serial) GoCancelable(f func(context.Context) error) func() {
	ctxWithCancel, cancel := context.WithCancel(s.ctx)
	s.Go(func(context.Context) error { return f(ctxWithCancel) })
	return cancel
}

func (s *serial) Wait() error { return s.err }

// Semaphore bounds concurrency for the session orchestrator's per-(plugin,
// target) invocations (spec §5 "MAY overlap invocations ... on parallel
// workers"), implemented with a buffered channel rather than an added
// dependency (see DESIGN.md).
type Semaphore struct {
	slots chan struct{}
}

func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() { <-s.slots }
