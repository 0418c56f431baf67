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
	"container/list"

	"software.sslmate.com/src/ctlog/cttypes"
)

// Subscription is an opaque handle identifying one registered callback.
// The same function may be registered more than once; each registration
// gets its own handle and must be removed with its own handle.
type Subscription struct {
	elem     *list.Element
	notifier *NotifierHelper
}

// NotifierHelper maintains tree head subscriptions for a storage engine.
// It is not safe for concurrent use; the owning engine serializes access.
type NotifierHelper struct {
	subs *list.List
}

func NewNotifierHelper() *NotifierHelper {
	return &NotifierHelper{subs: list.New()}
}

// Add registers cb and returns its handle.  Callbacks are invoked in
// registration order.
func (n *NotifierHelper) Add(cb NotifySTHCallback) *Subscription {
	if cb == nil {
		panic("logdb: nil NotifySTHCallback")
	}
	return &Subscription{elem: n.subs.PushBack(cb), notifier: n}
}

// Remove unregisters the subscription.  Removing a subscription that is
// not registered with this notifier is a caller bug and panics.
func (n *NotifierHelper) Remove(sub *Subscription) {
	if sub == nil || sub.notifier != n {
		panic("logdb: removing a subscription that was not registered here")
	}
	n.subs.Remove(sub.elem)
	sub.notifier = nil
}

// Call invokes every registered callback with sth, in registration order.
func (n *NotifierHelper) Call(sth *cttypes.SignedTreeHead) {
	for e := n.subs.Front(); e != nil; e = e.Next() {
		e.Value.(NotifySTHCallback)(sth)
	}
}

func (n *NotifierHelper) Len() int {
	return n.subs.Len()
}

// Close verifies that every subscription has been removed.  A remaining
// registration would dangle past the engine's lifetime, so it panics.
func (n *NotifierHelper) Close() {
	if n.subs.Len() != 0 {
		panic("logdb: database closed with tree head callbacks still registered")
	}
}
