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
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// PreCert corresponds to the PreCert structure in RFC 6962: the SHA-256
// SPKI digest of the certificate that will sign the final certificate,
// plus the canonical TBS bytes that will be hashed into the log once the
// certificate is issued.
type PreCert struct {
	IssuerKeyHash  [32]byte
	TBSCertificate []byte
}

func (v *PreCert) Marshal(b *cryptobyte.Builder) error {
	b.AddBytes(v.IssuerKeyHash[:])
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(v.TBSCertificate) })
	return nil
}

func (v *PreCert) Unmarshal(s *cryptobyte.String) bool {
	return s.CopyBytes(v.IssuerKeyHash[:]) && s.ReadUint24LengthPrefixed((*cryptobyte.String)(&v.TBSCertificate))
}

func (v *PreCert) Bytes() []byte {
	b := cryptobyte.NewBuilder(make([]byte, 0, 32+3+len(v.TBSCertificate)))
	b.AddValue(v)
	return b.BytesOrPanic()
}

func ParsePreCert(data []byte) (*PreCert, error) {
	precert := new(PreCert)
	str := cryptobyte.String(data)
	if !precert.Unmarshal(&str) {
		return nil, fmt.Errorf("PreCert bytes are malformed")
	}
	if !str.Empty() {
		return nil, fmt.Errorf("trailing bytes after PreCert")
	}
	return precert, nil
}
