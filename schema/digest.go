// Copyright 2026 Plugin Host Authors; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Digest identifies content by hash; it is used as the plugin compile
// cache's fingerprint key (source fingerprint + tools version +
// toolchain identity) (spec §3, §4.C). The cached diagnostics file is not
// digested.
type Digest struct {
	Algorithm string
	Hex       string
}

func (d Digest) IsSet() bool { return d.Hex != "" }

func (d Digest) String() string {
	if !d.IsSet() {
		return ""
	}
	return fmt.Sprintf("%s:%s", d.Algorithm, d.Hex)
}

func (d Digest) Equals(rhs Digest) bool {
	return d.Algorithm == rhs.Algorithm && d.Hex == rhs.Hex
}

func ParseDigest(str string) (Digest, error) {
	parts := strings.SplitN(str, ":", 2)
	if len(parts) != 2 {
		return Digest{}, fmt.Errorf("%s: invalid digest", str)
	}
	return Digest{Algorithm: parts[0], Hex: parts[1]}, nil
}

// DigestOf hashes the string representation of each value, in order,
// into a single sha256 digest. Callers control ordering (e.g. sorting
// source fingerprints first) to keep the result deterministic.
func DigestOf(vals ...string) Digest {
	h := sha256.New()
	for _, v := range vals {
		io.WriteString(h, v)
		h.Write([]byte{0}) // separator, avoids "a"+"bc" colliding with "ab"+"c"
	}
	return FromHash("sha256", h)
}

func FromHash(algo string, h hash.Hash) Digest {
	return Digest{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}
}

// QuickDigest hashes data with a fast non-cryptographic hash, for
// fingerprinting large file contents (e.g. plugin source files) where
// sha256's cost isn't worth paying just to detect a cache miss — the
// result is folded into a DigestOf call alongside other fingerprints
// rather than compared across trust boundaries on its own.
func QuickDigest(data []byte) string {
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64(data))
}
