// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
//
// Adapted from https://github.com/pkg/errors.

package stacktrace

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"
)

// Frame represents a program counter inside a stack frame.
type Frame uintptr

func (f Frame) pc() uintptr { return uintptr(f) - 1 }

// File returns the full path to the file that contains the function for
// this Frame's pc.
func (f Frame) File() string {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return "unknown"
	}
	file, _ := fn.FileLine(f.pc())
	return file
}

// Line returns the line number of source code of the function for this
// Frame's pc.
func (f Frame) Line() int {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return 0
	}
	_, line := fn.FileLine(f.pc())
	return line
}

// Name returns the name of this function, if known.
func (f Frame) Name() string {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

func (f Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		switch {
		case s.Flag('+'):
			writeString(s, f.Name())
			writeString(s, "\n\t")
			writeString(s, f.File())
		default:
			writeString(s, path.Base(f.File()))
		}
	case 'd':
		writeString(s, strconv.Itoa(f.Line()))
	case 'n':
		writeString(s, funcname(f.Name()))
	case 'v':
		f.Format(s, 's')
		writeString(s, ":")
		f.Format(s, 'd')
	}
}

func writeString(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}

// StackTrace is a stack of Frames from innermost (newest) to outermost (oldest).
type StackTrace []Frame

// New returns a new StackTrace captured at the call site, skipping the
// frames internal to this package.
func New() StackTrace {
	return NewWithSkip(1)
}

func NewWithSkip(k int) StackTrace {
	const depth = 32
	var pcs [depth]uintptr

	n := runtime.Callers(k+2, pcs[:])
	pcslice := pcs[0:n]
	frames := make([]Frame, len(pcslice))
	for i := range frames {
		frames[i] = Frame(pcslice[i])
	}
	return frames
}

func (st StackTrace) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		switch {
		case s.Flag('+'):
			for _, f := range st {
				writeString(s, "\n")
				f.Format(s, verb)
			}
		default:
			st.formatSlice(s, verb)
		}
	case 's':
		st.formatSlice(s, verb)
	}
}

func (st StackTrace) formatSlice(s fmt.State, verb rune) {
	writeString(s, "[")
	for i, f := range st {
		if i > 0 {
			writeString(s, " ")
		}
		f.Format(s, verb)
	}
	writeString(s, "]")
}

func funcname(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}
