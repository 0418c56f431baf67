// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package logdb defines the contract a log storage engine must satisfy,
// and provides an in-memory engine implementing it.
//
// Engines MUST allow the same entry content to be sequenced at more than
// one index.  A log server should never create duplicates itself, but a
// mirror of a third-party log must be able to replay whatever that log
// contains, and RFC 6962 does not forbid duplicates.
package logdb

import (
	"fmt"
	"iter"

	"software.sslmate.com/src/ctlog/cttypes"
)

// LookupResult is the outcome of a read operation.
type LookupResult int

const (
	LookupOK LookupResult = iota
	NotFound
)

// WriteResult is the outcome of a write operation.  Write failures are
// expected, reportable conditions that callers branch on; none is fatal.
type WriteResult int

const (
	WriteOK WriteResult = iota
	// The entry's content hash is the primary key and must be set.
	MissingCertificateHash
	// An entry with this hash already occupies this index.
	DuplicateCertificateHash
	// Update failed, entry does not exist.
	EntryNotFound
	// Another entry already occupies this sequence number.
	SequenceNumberAlreadyInUse
	// The tree head timestamp is the primary key and must be unique.
	DuplicateTreeHeadTimestamp
	// The tree head timestamp is the primary key and must be set.
	MissingTreeHeadTimestamp
)

// NotifySTHCallback is invoked when a new tree head becomes available.
// Callbacks must be quick and non-blocking, and must not add or remove
// registrations reentrantly.
type NotifySTHCallback func(*cttypes.SignedTreeHead)

// ReadOnlyDatabase is the read side of the storage contract.  Methods are
// safe to call concurrently with each other and with writes.
type ReadOnlyDatabase interface {
	// Look up an entry by content hash.  Returns NotFound if no entry
	// with the hash has been sequenced.
	LookupByHash(hash cttypes.Hash) (*cttypes.Entry, LookupResult)

	// Look up an entry by sequence number.
	LookupByIndex(index int64) (*cttypes.Entry, LookupResult)

	// Return the tree head with the freshest timestamp.
	LatestTreeHead() (*cttypes.SignedTreeHead, LookupResult)

	// Iterate over entries at increasing contiguous indices beginning at
	// startIndex, bounded by the tree size at the time of the call.
	ScanEntries(startIndex int64) iter.Seq[*cttypes.Entry]

	// Return the number of contiguous sequenced entries (what could be
	// put in a signed tree head).  This can exceed the tree size of the
	// latest stored tree head, since sequencing runs ahead of signing.
	TreeSize() int64

	// Return the identifier of this storage instance, used to tell
	// mirrored instances apart.  Not otherwise interpreted.
	NodeId() (string, LookupResult)

	// Register a callback for new tree heads.  If a current tree head
	// exists, the callback is invoked with it, synchronously, before
	// AddNotifySTHCallback returns, so subscribers never miss the current
	// state.  All subscriptions must be removed before the database is
	// closed; a registration leaked past the database's lifetime is a
	// caller bug and is fatal.
	AddNotifySTHCallback(cb NotifySTHCallback) *Subscription
	RemoveNotifySTHCallback(sub *Subscription)
}

// Database is the full storage contract.  Sequence numbers are assigned by
// an effectively single writer; concurrent attempts to claim the same
// index fail with SequenceNumberAlreadyInUse rather than corrupting state.
type Database interface {
	ReadOnlyDatabase

	// Create a new sequenced entry.  The entry must already carry a
	// non-negative sequence number; that precondition is enforced by the
	// caller layer, and violating it panics.  Duplicate detection is
	// scoped to exact (hash, index) collision: the same hash at a
	// different index is permitted.
	CreateSequencedEntry(entry *cttypes.Entry) WriteResult

	// Write a tree head, keyed by timestamp.  Does not check that the
	// timestamp is newer than previously stored tree heads; that ordering
	// discipline belongs to the sequencer.
	WriteTreeHead(sth *cttypes.SignedTreeHead) WriteResult

	// Persist the identifier returned by NodeId.
	InitializeNode(nodeID string)
}

func (r LookupResult) String() string {
	switch r {
	case LookupOK:
		return "ok"
	case NotFound:
		return "not found"
	default:
		return fmt.Sprintf("LookupResult(%d)", int(r))
	}
}

func (r WriteResult) String() string {
	switch r {
	case WriteOK:
		return "ok"
	case MissingCertificateHash:
		return "missing certificate hash"
	case DuplicateCertificateHash:
		return "duplicate certificate hash"
	case EntryNotFound:
		return "entry not found"
	case SequenceNumberAlreadyInUse:
		return "sequence number already in use"
	case DuplicateTreeHeadTimestamp:
		return "duplicate tree head timestamp"
	case MissingTreeHeadTimestamp:
		return "missing tree head timestamp"
	default:
		return fmt.Sprintf("WriteResult(%d)", int(r))
	}
}
