// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

package logdb

import (
	"fmt"
	"iter"
	"sync"

	"software.sslmate.com/src/ctlog/cttypes"
)

// MemoryDatabase is a non-persistent storage engine.  It is safe for
// concurrent use.  Entries and tree heads are cloned on the way in and the
// way out, so callers can't alias the engine's state.
//
// notifyMu is acquired before mu, never the other way around, so tree head
// callbacks run with mu free and may read the database.
type MemoryDatabase struct {
	notifyMu sync.Mutex
	notifier *NotifierHelper

	mu      sync.RWMutex
	byHash  map[cttypes.Hash]*cttypes.Entry
	byIndex map[int64]*cttypes.Entry
	// Number of contiguous entries starting at index 0.
	contiguousSize int64
	treeHeads      map[uint64]*cttypes.SignedTreeHead
	latest         *cttypes.SignedTreeHead
	nodeID         string
	hasNodeID      bool
}

var _ Database = (*MemoryDatabase)(nil)

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		notifier:  NewNotifierHelper(),
		byHash:    make(map[cttypes.Hash]*cttypes.Entry),
		byIndex:   make(map[int64]*cttypes.Entry),
		treeHeads: make(map[uint64]*cttypes.SignedTreeHead),
	}
}

// Close verifies that all tree head callbacks have been removed.  Panics
// if any remain registered.
func (db *MemoryDatabase) Close() {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()
	db.notifier.Close()
}

func (db *MemoryDatabase) CreateSequencedEntry(entry *cttypes.Entry) WriteResult {
	if !entry.HasIndex() {
		panic("logdb: CreateSequencedEntry called with an unsequenced entry")
	}
	if entry.Hash.IsZero() {
		return MissingCertificateHash
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if existing := db.byIndex[entry.Index]; existing != nil {
		if existing.Hash == entry.Hash {
			return DuplicateCertificateHash
		}
		return SequenceNumberAlreadyInUse
	}

	stored := entry.Clone()
	db.byIndex[stored.Index] = stored
	// Keep the first-sequenced occurrence as the hash's canonical entry.
	if _, ok := db.byHash[stored.Hash]; !ok {
		db.byHash[stored.Hash] = stored
	}
	for db.byIndex[db.contiguousSize] != nil {
		db.contiguousSize++
	}
	return WriteOK
}

func (db *MemoryDatabase) WriteTreeHead(sth *cttypes.SignedTreeHead) WriteResult {
	if sth.Timestamp == 0 {
		return MissingTreeHeadTimestamp
	}

	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()

	db.mu.Lock()
	if _, ok := db.treeHeads[sth.Timestamp]; ok {
		db.mu.Unlock()
		return DuplicateTreeHeadTimestamp
	}
	stored := sth.Clone()
	db.treeHeads[stored.Timestamp] = stored
	becameLatest := db.latest == nil || stored.Timestamp > db.latest.Timestamp
	if becameLatest {
		db.latest = stored
	}
	db.mu.Unlock()

	if becameLatest {
		db.notifier.Call(stored.Clone())
	}
	return WriteOK
}

func (db *MemoryDatabase) LookupByHash(hash cttypes.Hash) (*cttypes.Entry, LookupResult) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	entry := db.byHash[hash]
	if entry == nil {
		return nil, NotFound
	}
	return entry.Clone(), LookupOK
}

func (db *MemoryDatabase) LookupByIndex(index int64) (*cttypes.Entry, LookupResult) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	entry := db.byIndex[index]
	if entry == nil {
		return nil, NotFound
	}
	return entry.Clone(), LookupOK
}

func (db *MemoryDatabase) LatestTreeHead() (*cttypes.SignedTreeHead, LookupResult) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.latest == nil {
		return nil, NotFound
	}
	return db.latest.Clone(), LookupOK
}

// ScanEntries iterates over sequenced entries starting at startIndex.  The
// upper bound is the tree size observed when iteration starts; entries
// sequenced later are not picked up by an in-progress scan.
func (db *MemoryDatabase) ScanEntries(startIndex int64) iter.Seq[*cttypes.Entry] {
	return func(yield func(*cttypes.Entry) bool) {
		db.mu.RLock()
		size := db.contiguousSize
		db.mu.RUnlock()
		if startIndex < 0 {
			startIndex = 0
		}
		for index := startIndex; index < size; index++ {
			db.mu.RLock()
			entry := db.byIndex[index]
			db.mu.RUnlock()
			if entry == nil {
				panic(fmt.Sprintf("logdb: entry %d missing below tree size %d", index, size))
			}
			if !yield(entry.Clone()) {
				return
			}
		}
	}
}

func (db *MemoryDatabase) TreeSize() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.contiguousSize
}

func (db *MemoryDatabase) NodeId() (string, LookupResult) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if !db.hasNodeID {
		return "", NotFound
	}
	return db.nodeID, LookupOK
}

func (db *MemoryDatabase) InitializeNode(nodeID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nodeID = nodeID
	db.hasNodeID = true
}

func (db *MemoryDatabase) AddNotifySTHCallback(cb NotifySTHCallback) *Subscription {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()

	sub := db.notifier.Add(cb)

	db.mu.RLock()
	latest := db.latest
	db.mu.RUnlock()
	if latest != nil {
		cb(latest.Clone())
	}
	return sub
}

func (db *MemoryDatabase) RemoveNotifySTHCallback(sub *Subscription) {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()
	db.notifier.Remove(sub)
}
