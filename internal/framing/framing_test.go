// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package framing_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"pluginhost.dev/core/internal/framing"
)

func TestRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte("{}"),
		[]byte(`{"kind":"performAction"}`),
		bytes.Repeat([]byte("x"), 1<<16),
	} {
		var buf bytes.Buffer
		require.NoError(t, framing.Write(&buf, payload))

		got, err := framing.Read(&buf)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}
}

func TestEOFOnFreshRead(t *testing.T) {
	_, err := framing.Read(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestTruncatedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, framing.Write(&buf, []byte("{}")))

	short := buf.Bytes()[:framing.HeaderSize-1]
	_, err := framing.Read(bytes.NewReader(short))
	require.Error(t, err)
	require.Contains(t, err.Error(), "truncated frame header")
}

func TestTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, framing.Write(&buf, []byte("{}}}")))

	full := buf.Bytes()
	truncated := full[:len(full)-1]
	_, err := framing.Read(bytes.NewReader(truncated))
	require.Error(t, err)
	require.Contains(t, err.Error(), "truncated frame payload")
}

func TestInvalidPayloadSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, framing.Write(&buf, []byte("x")))

	_, err := framing.Read(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid payload size")
}
