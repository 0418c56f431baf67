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
	"testing"

	"software.sslmate.com/src/ctlog/cttypes"
)

func testEntry(index int64, content string) *cttypes.Entry {
	entry := cttypes.NewEntry(uint64(1000+index), []byte(content), nil)
	entry.Index = index
	return entry
}

func testSTH(timestamp uint64, treeSize uint64) *cttypes.SignedTreeHead {
	return &cttypes.SignedTreeHead{
		Timestamp: timestamp,
		TreeSize:  treeSize,
		RootHash:  cttypes.HashOf([]byte(fmt.Sprintf("root %d", timestamp))),
	}
}

func TestCreateSequencedEntry(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	entry := testEntry(0, "first")
	if result := db.CreateSequencedEntry(entry); result != WriteOK {
		t.Fatalf("CreateSequencedEntry = %s, want ok", result)
	}

	// Exact replay of the same (hash, index) pair.
	if result := db.CreateSequencedEntry(entry.Clone()); result != DuplicateCertificateHash {
		t.Errorf("exact replay = %s, want duplicate certificate hash", result)
	}

	// A different entry claiming the same index.
	if result := db.CreateSequencedEntry(testEntry(0, "other")); result != SequenceNumberAlreadyInUse {
		t.Errorf("index collision = %s, want sequence number already in use", result)
	}

	// The same content sequenced again at a different index is allowed;
	// mirrored logs may legitimately contain duplicates.
	again := entry.Clone()
	again.Index = 1
	if result := db.CreateSequencedEntry(again); result != WriteOK {
		t.Errorf("same content at new index = %s, want ok", result)
	}
}

func TestCreateSequencedEntryMissingHash(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	entry := &cttypes.Entry{Index: 0, Timestamp: 1000, LeafInput: []byte("x")}
	if result := db.CreateSequencedEntry(entry); result != MissingCertificateHash {
		t.Errorf("entry without hash = %s, want missing certificate hash", result)
	}
}

func TestCreateSequencedEntryPanicsWhenUnsequenced(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()
	defer func() {
		if recover() == nil {
			t.Errorf("storing an unsequenced entry did not panic")
		}
	}()
	db.CreateSequencedEntry(cttypes.NewEntry(1000, []byte("x"), nil))
}

func TestLookup(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	entry := testEntry(0, "first")
	if result := db.CreateSequencedEntry(entry); result != WriteOK {
		t.Fatalf("CreateSequencedEntry = %s, want ok", result)
	}

	byHash, result := db.LookupByHash(entry.Hash)
	if result != LookupOK || byHash.Index != 0 {
		t.Fatalf("LookupByHash = %v, %s", byHash, result)
	}
	byIndex, result := db.LookupByIndex(0)
	if result != LookupOK || byIndex.Hash != entry.Hash {
		t.Fatalf("LookupByIndex = %v, %s", byIndex, result)
	}

	// Returned entries are copies; mutating one must not affect the store.
	byHash.LeafInput[0] = 'X'
	fresh, _ := db.LookupByHash(entry.Hash)
	if fresh.LeafInput[0] == 'X' {
		t.Errorf("mutation of a looked-up entry leaked into the store")
	}

	if _, result := db.LookupByHash(cttypes.HashOf([]byte("missing"))); result != NotFound {
		t.Errorf("lookup of unknown hash = %s, want not found", result)
	}
	if _, result := db.LookupByIndex(99); result != NotFound {
		t.Errorf("lookup of unknown index = %s, want not found", result)
	}
}

func TestTreeSizeCountsContiguousEntries(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	if db.TreeSize() != 0 {
		t.Fatalf("fresh database tree size = %d, want 0", db.TreeSize())
	}
	db.CreateSequencedEntry(testEntry(0, "a"))
	db.CreateSequencedEntry(testEntry(2, "c"))
	if db.TreeSize() != 1 {
		t.Errorf("tree size with gap at 1 = %d, want 1", db.TreeSize())
	}
	db.CreateSequencedEntry(testEntry(1, "b"))
	if db.TreeSize() != 3 {
		t.Errorf("tree size after gap filled = %d, want 3", db.TreeSize())
	}
}

func TestWriteTreeHead(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	if _, result := db.LatestTreeHead(); result != NotFound {
		t.Fatalf("fresh database has a tree head")
	}

	if result := db.WriteTreeHead(testSTH(0, 0)); result != MissingTreeHeadTimestamp {
		t.Errorf("zero timestamp = %s, want missing tree head timestamp", result)
	}
	if result := db.WriteTreeHead(testSTH(2000, 5)); result != WriteOK {
		t.Fatalf("WriteTreeHead = %s, want ok", result)
	}
	if result := db.WriteTreeHead(testSTH(2000, 6)); result != DuplicateTreeHeadTimestamp {
		t.Errorf("duplicate timestamp = %s, want duplicate tree head timestamp", result)
	}

	// An older tree head is stored but does not become latest.
	if result := db.WriteTreeHead(testSTH(1000, 2)); result != WriteOK {
		t.Fatalf("WriteTreeHead = %s, want ok", result)
	}
	latest, result := db.LatestTreeHead()
	if result != LookupOK || latest.Timestamp != 2000 {
		t.Errorf("latest tree head timestamp = %d, want 2000", latest.Timestamp)
	}
}

func TestScanEntries(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()
	for i := int64(0); i < 5; i++ {
		db.CreateSequencedEntry(testEntry(i, fmt.Sprintf("entry %d", i)))
	}

	var indices []int64
	for entry := range db.ScanEntries(2) {
		indices = append(indices, entry.Index)
	}
	if len(indices) != 3 || indices[0] != 2 || indices[2] != 4 {
		t.Errorf("ScanEntries(2) yielded %v, want [2 3 4]", indices)
	}

	// Early break.
	count := 0
	for range db.ScanEntries(0) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("early break did not stop the scan")
	}

	// Past the end.
	for entry := range db.ScanEntries(5) {
		t.Errorf("ScanEntries(5) yielded entry %d", entry.Index)
	}

	// A negative start is clamped to the beginning.
	count = 0
	for range db.ScanEntries(-1) {
		count++
	}
	if count != 5 {
		t.Errorf("ScanEntries(-1) yielded %d entries, want 5", count)
	}
}

func TestNodeId(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	if _, result := db.NodeId(); result != NotFound {
		t.Fatalf("uninitialized node has an id")
	}
	db.InitializeNode("node-1")
	id, result := db.NodeId()
	if result != LookupOK || id != "node-1" {
		t.Errorf("NodeId = %q, %s; want node-1", id, result)
	}
}

func TestNotifySTHCallbacks(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()

	var first []uint64
	sub1 := db.AddNotifySTHCallback(func(sth *cttypes.SignedTreeHead) {
		first = append(first, sth.Timestamp)
	})
	if len(first) != 0 {
		t.Fatalf("callback invoked before any tree head exists")
	}

	db.WriteTreeHead(testSTH(1000, 1))
	if len(first) != 1 || first[0] != 1000 {
		t.Fatalf("callback invocations after first write: %v", first)
	}

	// A subscriber arriving late is caught up immediately, exactly once.
	var second []uint64
	sub2 := db.AddNotifySTHCallback(func(sth *cttypes.SignedTreeHead) {
		second = append(second, sth.Timestamp)
	})
	if len(second) != 1 || second[0] != 1000 {
		t.Fatalf("late subscriber invocations: %v", second)
	}

	// Tree heads that do not become latest are not announced.
	db.WriteTreeHead(testSTH(500, 1))
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("stale tree head was announced (first %v, second %v)", first, second)
	}

	db.WriteTreeHead(testSTH(2000, 2))
	if len(first) != 2 || first[1] != 2000 {
		t.Errorf("first subscriber invocations after newer write: %v", first)
	}
	if len(second) != 2 || second[1] != 2000 {
		t.Errorf("second subscriber invocations after newer write: %v", second)
	}

	db.RemoveNotifySTHCallback(sub1)
	db.WriteTreeHead(testSTH(3000, 3))
	if len(first) != 2 {
		t.Errorf("removed subscriber was still invoked")
	}
	if len(second) != 3 {
		t.Errorf("remaining subscriber missed a notification")
	}
	db.RemoveNotifySTHCallback(sub2)
}

func TestCloseWithRemainingCallbacksPanics(t *testing.T) {
	db := NewMemoryDatabase()
	db.AddNotifySTHCallback(func(*cttypes.SignedTreeHead) {})
	defer func() {
		if recover() == nil {
			t.Errorf("Close with a registered callback did not panic")
		}
	}()
	db.Close()
}

func TestRemoveForeignSubscriptionPanics(t *testing.T) {
	db := NewMemoryDatabase()
	defer db.Close()
	other := NewNotifierHelper()
	sub := other.Add(func(*cttypes.SignedTreeHead) {})
	defer func() {
		if recover() == nil {
			t.Errorf("removing a foreign subscription did not panic")
		}
		other.Remove(sub)
	}()
	db.RemoveNotifySTHCallback(sub)
}
