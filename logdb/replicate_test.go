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
	"context"
	"fmt"
	"testing"

	"golang.org/x/time/rate"
)

func populatedDatabase(t *testing.T, numEntries int64) *MemoryDatabase {
	t.Helper()
	db := NewMemoryDatabase()
	for i := int64(0); i < numEntries; i++ {
		if result := db.CreateSequencedEntry(testEntry(i, fmt.Sprintf("entry %d", i))); result != WriteOK {
			t.Fatalf("seeding entry %d: %s", i, result)
		}
	}
	return db
}

func TestReplicate(t *testing.T) {
	src := populatedDatabase(t, 5)
	defer src.Close()
	src.WriteTreeHead(testSTH(5000, 5))

	dst := NewMemoryDatabase()
	defer dst.Close()

	if err := Replicate(context.Background(), dst, src, nil); err != nil {
		t.Fatalf("Replicate failed: %s", err)
	}
	if dst.TreeSize() != 5 {
		t.Errorf("replica tree size = %d, want 5", dst.TreeSize())
	}
	srcSTH, _ := src.LatestTreeHead()
	dstSTH, result := dst.LatestTreeHead()
	if result != LookupOK || !dstSTH.Same(srcSTH) {
		t.Errorf("replica tree head does not match source")
	}

	// Re-running against an up-to-date replica is a no-op.
	if err := Replicate(context.Background(), dst, src, nil); err != nil {
		t.Errorf("second Replicate failed: %s", err)
	}
}

func TestReplicateResumes(t *testing.T) {
	src := populatedDatabase(t, 8)
	defer src.Close()

	// The replica already holds a prefix of the source.
	dst := populatedDatabase(t, 3)
	defer dst.Close()

	if err := Replicate(context.Background(), dst, src, rate.NewLimiter(rate.Inf, 1)); err != nil {
		t.Fatalf("Replicate failed: %s", err)
	}
	if dst.TreeSize() != 8 {
		t.Errorf("replica tree size = %d, want 8", dst.TreeSize())
	}
}

func TestReplicateDetectsDivergence(t *testing.T) {
	src := populatedDatabase(t, 3)
	defer src.Close()

	// The replica's tree size is 1 (gap at index 1), so replication reads
	// from index 1 onward and collides with the foreign entry at index 2.
	conflicted := NewMemoryDatabase()
	defer conflicted.Close()
	conflicted.CreateSequencedEntry(testEntry(0, "entry 0"))
	conflicted.CreateSequencedEntry(testEntry(2, "not entry 2"))
	if err := Replicate(context.Background(), conflicted, src, nil); err == nil {
		t.Errorf("Replicate did not report divergent replica content")
	}
}

func TestReplicateContextCancellation(t *testing.T) {
	src := populatedDatabase(t, 100)
	defer src.Close()
	dst := NewMemoryDatabase()
	defer dst.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A tight rate limit guarantees the limiter observes the canceled
	// context before the copy completes.
	err := Replicate(ctx, dst, src, rate.NewLimiter(1, 1))
	if err == nil {
		t.Errorf("Replicate with canceled context succeeded")
	}
}
