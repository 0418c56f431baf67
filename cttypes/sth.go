// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

package cttypes

import (
	"crypto/sha256"
	"time"

	"golang.org/x/crypto/cryptobyte"
)

// SignedTreeHead is a signed summary of the log's Merkle tree at a point in
// time.  Timestamp is in milliseconds since the epoch and is the storage
// key; a timestamp of zero means unset.
type SignedTreeHead struct {
	Timestamp uint64          `json:"timestamp"`
	TreeSize  uint64          `json:"tree_size"`
	RootHash  Hash            `json:"sha256_root_hash"`
	Signature DigitallySigned `json:"tree_head_signature"`
}

func (sth *SignedTreeHead) TimestampTime() time.Time {
	return time.UnixMilli(int64(sth.Timestamp))
}

// Same reports whether two tree heads describe the same tree state,
// ignoring the signature.
func (sth *SignedTreeHead) Same(other *SignedTreeHead) bool {
	return sth.Timestamp == other.Timestamp && sth.TreeSize == other.TreeSize && sth.RootHash == other.RootHash
}

func (sth *SignedTreeHead) Clone() *SignedTreeHead {
	clone := *sth
	clone.Signature.Signature = append([]byte(nil), sth.Signature.Signature...)
	return &clone
}

// SignatureInput returns the digest that is signed to produce the tree head
// signature (the RFC 6962 TreeHeadSignature input).
func (sth *SignedTreeHead) SignatureInput() [sha256.Size]byte {
	var b cryptobyte.Builder
	b.AddUint8(0) // v1
	b.AddUint8(1) // tree_hash
	b.AddUint64(sth.Timestamp)
	b.AddUint64(sth.TreeSize)
	b.AddBytes(sth.RootHash[:])
	return sha256.Sum256(b.BytesOrPanic())
}
