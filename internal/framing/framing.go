// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package framing implements the length-prefixed message framing used on
// both ends of the host/plugin stdio pipes (spec §4.D). Of the two
// framings the spec allows, this repo picks the 8-byte little-endian
// unsigned length header (spec §9 "an implementer picks one and uses it
// consistently on both sides"), scoped down from the teacher's
// internal/grpcstdio multiplexed-stream protocol to the single
// fixed-header/JSON-payload shape this spec calls for.
package framing

import (
	"encoding/binary"
	"io"

	"pluginhost.dev/core/internal/fnerrors"
)

// HeaderSize is the length, in bytes, of the frame length header.
const HeaderSize = 8

// MinPayloadSize is the minimum payload length accepted, rejecting
// obviously truncated frames (spec §4.D).
const MinPayloadSize = 2

// Write emits one frame: an 8-byte little-endian length header followed
// by payload.
func Write(w io.Writer, payload []byte) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Read reads one frame from r.
//
// Reading zero bytes on a fresh read (an immediate EOF before any header
// byte arrives) returns io.EOF, signaling the end of the conversation
// per spec §4.D. Any other short read of the header is TruncatedHeader.
// A short read of the payload is TruncatedPayload. A payload shorter
// than MinPayloadSize is InvalidPayloadSize.
func Read(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if n == 0 && err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fnerrors.TruncatedHeader()
	}

	size := binary.LittleEndian.Uint64(header[:])
	if size < MinPayloadSize {
		return nil, fnerrors.InvalidPayloadSize(int64(size))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fnerrors.TruncatedPayload()
	}

	return payload, nil
}
