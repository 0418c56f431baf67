// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package sequencer writes out-of-order streams of sequenced entries into
// a database in index order.  Producers (e.g. parallel fetchers catching a
// mirror up with its source) can deliver entries in any order; the
// sequencer buffers them and stores each contiguous run as soon as it is
// complete, so the database's tree size only ever grows without gaps.
package sequencer

import (
	"container/heap"
	"context"
	"fmt"

	"software.sslmate.com/src/ctlog/cttypes"
	"software.sslmate.com/src/ctlog/logdb"
)

type entryHeap []*cttypes.Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(*cttypes.Entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Buffer holds sequenced entries awaiting their turn, ordered by index.
// Not safe for concurrent use.
type Buffer struct {
	h entryHeap
}

// Push adds an entry to the buffer.  The entry must be sequenced; pushing
// an unsequenced entry is a producer bug and panics.
func (b *Buffer) Push(entry *cttypes.Entry) {
	if !entry.HasIndex() {
		panic("sequencer: Push called with an unsequenced entry")
	}
	heap.Push(&b.h, entry)
}

// Peek returns the buffered entry with the lowest index, without removing
// it.  Returns nil if the buffer is empty.
func (b *Buffer) Peek() *cttypes.Entry {
	if len(b.h) == 0 {
		return nil
	}
	return b.h[0]
}

// Pop removes and returns the buffered entry with the lowest index.
// Returns nil if the buffer is empty.
func (b *Buffer) Pop() *cttypes.Entry {
	if len(b.h) == 0 {
		return nil
	}
	return heap.Pop(&b.h).(*cttypes.Entry)
}

func (b *Buffer) Len() int {
	return len(b.h)
}

// Run consumes entries until the channel is closed or ctx is canceled,
// storing them in db in index order.  Entries below db's tree size, and
// exact duplicates of entries already stored, are skipped, so replaying an
// overlapping range is harmless.
//
// When the channel closes with entries still buffered, the producers
// skipped an index; Run reports the gap as an error rather than storing a
// discontiguous tree.
func Run(ctx context.Context, db logdb.Database, entries <-chan *cttypes.Entry) error {
	var pending Buffer
	nextIndex := db.TreeSize()

	for {
		var entry *cttypes.Entry
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok = <-entries:
		}
		if !ok {
			break
		}
		if entry.Index < nextIndex {
			continue
		}
		pending.Push(entry)

		for pending.Len() > 0 {
			head := pending.Peek()
			if head.Index < nextIndex {
				// A producer delivered the same index twice.
				pending.Pop()
				continue
			}
			if head.Index > nextIndex {
				break
			}
			pending.Pop()
			switch result := db.CreateSequencedEntry(head); result {
			case logdb.WriteOK, logdb.DuplicateCertificateHash:
			default:
				return fmt.Errorf("error storing entry %d: %s", head.Index, result)
			}
			nextIndex++
		}
	}

	if pending.Len() > 0 {
		return fmt.Errorf("entry stream ended with a gap at index %d (%d entries still buffered)", nextIndex, pending.Len())
	}
	return nil
}
