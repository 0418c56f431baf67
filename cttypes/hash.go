// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package cttypes defines the data types persisted and exchanged by a
// certificate transparency log: content hashes, signed tree heads, log
// entries, and the RFC 6962 PreCert structure.
package cttypes

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const HashLen = sha256.Size

// Hash is a SHA-256 content hash.
type Hash [HashLen]byte

func HashOf(data []byte) Hash {
	return sha256.Sum256(data)
}

// IsZero reports whether the hash is unset.  The zero hash is never a valid
// content hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (h Hash) HexString() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.HexString()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	hashBytes, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("hash is not valid hex: %w", err)
	}
	if len(hashBytes) != HashLen {
		return fmt.Errorf("hash has wrong length (should be %d bytes long, not %d)", HashLen, len(hashBytes))
	}
	copy(h[:], hashBytes)
	return nil
}
