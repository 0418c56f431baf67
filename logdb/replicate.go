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

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"software.sslmate.com/src/ctlog/cttypes"
)

const replicateBufferSize = 64

// Replicate copies entries and the latest tree head from src into dst,
// starting at dst's current tree size.  It is how a mirror node catches up
// with its source.  Writes are paced by limiter (nil means unlimited).
//
// Entries src already replayed into dst are tolerated: an exact duplicate
// write is a no-op success.  A sequence number conflict means dst holds
// different content at an index src also has, which is unrecoverable
// divergence and reported as an error.
func Replicate(ctx context.Context, dst Database, src ReadOnlyDatabase, limiter *rate.Limiter) error {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	group, ctx := errgroup.WithContext(ctx)
	entries := make(chan *cttypes.Entry, replicateBufferSize)

	startIndex := dst.TreeSize()

	group.Go(func() error {
		defer close(entries)
		for entry := range src.ScanEntries(startIndex) {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	group.Go(func() error {
		for entry := range entries {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			switch result := dst.CreateSequencedEntry(entry); result {
			case WriteOK, DuplicateCertificateHash:
			case SequenceNumberAlreadyInUse:
				return fmt.Errorf("replica diverges from source at index %d", entry.Index)
			default:
				return fmt.Errorf("error replicating entry %d: %s", entry.Index, result)
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	sth, result := src.LatestTreeHead()
	if result == NotFound {
		return nil
	}
	switch result := dst.WriteTreeHead(sth); result {
	case WriteOK, DuplicateTreeHeadTimestamp:
		return nil
	default:
		return fmt.Errorf("error replicating tree head with timestamp %d: %s", sth.Timestamp, result)
	}
}
