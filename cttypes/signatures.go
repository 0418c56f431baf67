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
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

type HashAlgorithm uint8

const (
	SHA256 HashAlgorithm = 4
)

type SignatureAlgorithm uint8

const (
	RSA   SignatureAlgorithm = 1
	ECDSA SignatureAlgorithm = 3
)

type SignatureAndHashAlgorithm struct {
	Hash      HashAlgorithm
	Signature SignatureAlgorithm
}

// DigitallySigned is the RFC 5246 structure carrying a tree head or SCT
// signature.
type DigitallySigned struct {
	Algorithm SignatureAndHashAlgorithm
	Signature []byte
}

func (v SignatureAndHashAlgorithm) Marshal(b *cryptobyte.Builder) error {
	b.AddUint8(uint8(v.Hash))
	b.AddUint8(uint8(v.Signature))
	return nil
}

func (v *SignatureAndHashAlgorithm) Unmarshal(s *cryptobyte.String) bool {
	return s.ReadUint8((*uint8)(&v.Hash)) && s.ReadUint8((*uint8)(&v.Signature))
}

func (v DigitallySigned) Marshal(b *cryptobyte.Builder) error {
	b.AddValue(v.Algorithm)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(v.Signature) })
	return nil
}

func (v *DigitallySigned) Unmarshal(s *cryptobyte.String) bool {
	return v.Algorithm.Unmarshal(s) && s.ReadUint16LengthPrefixed((*cryptobyte.String)(&v.Signature))
}

func (v DigitallySigned) Bytes() []byte {
	b := cryptobyte.NewBuilder(make([]byte, 0, 4+len(v.Signature)))
	b.AddValue(v)
	return b.BytesOrPanic()
}

func ParseDigitallySigned(data []byte) (*DigitallySigned, error) {
	ds := new(DigitallySigned)
	str := cryptobyte.String(bytes.Clone(data))
	if !ds.Unmarshal(&str) {
		return nil, fmt.Errorf("DigitallySigned bytes are malformed")
	}
	if !str.Empty() {
		return nil, fmt.Errorf("trailing bytes after DigitallySigned")
	}
	return ds, nil
}
