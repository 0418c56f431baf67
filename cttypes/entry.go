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
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// Entry is a log entry.  Hash is the content-derived identity under which
// the entry is stored; Index is the sequence number, assigned exactly once
// by the sequencer and -1 until then.  Timestamp is in milliseconds since
// the epoch.
type Entry struct {
	Hash      Hash
	Index     int64
	Timestamp uint64
	LeafInput []byte
	ExtraData []byte
}

// NewEntry returns an unsequenced entry with its content hash computed.
func NewEntry(timestamp uint64, leafInput, extraData []byte) *Entry {
	entry := &Entry{
		Index:     -1,
		Timestamp: timestamp,
		LeafInput: bytes.Clone(leafInput),
		ExtraData: bytes.Clone(extraData),
	}
	entry.Hash = entry.ContentHash()
	return entry
}

func (e *Entry) HasIndex() bool {
	return e.Index >= 0
}

// ContentHash computes the entry's identity from its content.  The index
// is excluded: the same content sequenced at two positions has the same
// hash.
func (e *Entry) ContentHash() Hash {
	return HashOf(e.encodeContent())
}

func (e *Entry) encodeContent() []byte {
	var b cryptobyte.Builder
	b.AddUint64(e.Timestamp)
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(e.LeafInput) })
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(e.ExtraData) })
	return b.BytesOrPanic()
}

// EncodeContent serializes the entry's content (excluding hash and index)
// for storage.  Storage engines persist the index and hash separately as
// keys.
func (e *Entry) EncodeContent() []byte {
	return e.encodeContent()
}

// DecodeEntryContent parses content bytes produced by EncodeContent into an
// unsequenced entry, recomputing its hash.
func DecodeEntryContent(data []byte) (*Entry, error) {
	entry := &Entry{Index: -1}
	str := cryptobyte.String(data)
	if !str.ReadUint64(&entry.Timestamp) ||
		!str.ReadUint24LengthPrefixed((*cryptobyte.String)(&entry.LeafInput)) ||
		!str.ReadUint24LengthPrefixed((*cryptobyte.String)(&entry.ExtraData)) {
		return nil, fmt.Errorf("entry content bytes are malformed")
	}
	if !str.Empty() {
		return nil, fmt.Errorf("trailing bytes after entry content")
	}
	entry.LeafInput = bytes.Clone(entry.LeafInput)
	entry.ExtraData = bytes.Clone(entry.ExtraData)
	entry.Hash = entry.ContentHash()
	return entry, nil
}

func (e *Entry) Clone() *Entry {
	clone := *e
	clone.LeafInput = bytes.Clone(e.LeafInput)
	clone.ExtraData = bytes.Clone(e.ExtraData)
	return &clone
}
