// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

package ctlog

import "fmt"

// Status is the outcome of a predicate over certificate data.  Predicates
// return a Status rather than a bool because "could not determine" must be
// distinguishable from "determined false".  Signature checks additionally
// distinguish "the algorithm is not supported", which callers treat
// differently from an internal failure.
type Status int

const (
	StatusFalse Status = iota
	StatusTrue
	StatusError
	StatusUnsupportedAlgorithm
)

func (s Status) String() string {
	switch s {
	case StatusFalse:
		return "false"
	case StatusTrue:
		return "true"
	case StatusError:
		return "error"
	case StatusUnsupportedAlgorithm:
		return "unsupported algorithm"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
