// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

package checker

import (
	"errors"
	"fmt"
)

// CertVerifyResult is the verdict of a chain validation step.
type CertVerifyResult int

const (
	OK CertVerifyResult = iota
	InvalidCertificateChain
	PrecertExtensionInCertChain
	UnsupportedAlgorithmInCertChain
	PrecertChainNotWellFormed
	RootNotInLocalStore
	InternalError
)

// Every verdict maps onto one of three error categories.  ErrInvalidChain
// is a client error: the chain was rejected on its merits.  ErrUnknownRoot
// is a failed precondition: the chain might be valid, but this instance's
// trust store lacks the anchor.  ErrInternal signals a logic bug or
// corrupted state and must never be silently swallowed.
var (
	ErrInvalidChain = errors.New("invalid certificate chain")
	ErrUnknownRoot  = errors.New("root not in local store")
	ErrInternal     = errors.New("internal error")
)

func (r CertVerifyResult) String() string {
	switch r {
	case OK:
		return "ok"
	case InvalidCertificateChain:
		return "invalid certificate chain"
	case PrecertExtensionInCertChain:
		return "precert extension in certificate chain"
	case UnsupportedAlgorithmInCertChain:
		return "unsupported algorithm in certificate chain"
	case PrecertChainNotWellFormed:
		return "precert chain not well-formed"
	case RootNotInLocalStore:
		return "root not in local store"
	case InternalError:
		return "internal error"
	default:
		return fmt.Sprintf("CertVerifyResult(%d)", int(r))
	}
}

// Err returns the error category for the verdict, or nil for OK.
func (r CertVerifyResult) Err() error {
	switch r {
	case OK:
		return nil
	case InvalidCertificateChain:
		return ErrInvalidChain
	case PrecertExtensionInCertChain:
		return fmt.Errorf("%w: precert extension in certificate chain", ErrInvalidChain)
	case UnsupportedAlgorithmInCertChain:
		return fmt.Errorf("%w: unsupported algorithm in certificate chain", ErrInvalidChain)
	case PrecertChainNotWellFormed:
		return fmt.Errorf("%w: precert chain not well-formed", ErrInvalidChain)
	case RootNotInLocalStore:
		return ErrUnknownRoot
	case InternalError:
		return ErrInternal
	default:
		panic(fmt.Sprintf("unknown CertVerifyResult %d", int(r)))
	}
}

func verdict(r CertVerifyResult) (CertVerifyResult, error) {
	return r, r.Err()
}

func internalErr(format string, args ...any) (CertVerifyResult, error) {
	return InternalError, fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
