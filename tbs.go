// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

package ctlog

import (
	"encoding/asn1"
	"slices"
)

// TbsCertificate is a detached, mutable view of a certificate's
// to-be-signed section.  It is used to reconstruct the canonical TBS of a
// pre-certificate: delete the poison extension, optionally rewrite the
// issuer, and re-encode.
type TbsCertificate struct {
	tbs tbsCertificate
}

// TBS returns a detached copy of the certificate's TBS section.
// Modifications to the copy do not affect the certificate.
func (c *Cert) TBS() (*TbsCertificate, error) {
	tbs, err := parseTBSCertificate(c.cert.TBSCertificate.FullBytes)
	if err != nil {
		return nil, err
	}
	view := &TbsCertificate{tbs: *tbs}
	view.tbs.Extensions = slices.Clone(tbs.Extensions)
	return view, nil
}

// ParseTbsCertificate parses a DER-encoded TBSCertificate.
func ParseTbsCertificate(der []byte) (*TbsCertificate, error) {
	tbs, err := parseTBSCertificate(der)
	if err != nil {
		return nil, err
	}
	return &TbsCertificate{tbs: *tbs}, nil
}

func (tbs *TbsCertificate) DerEncodedIssuerName() []byte {
	return tbs.tbs.Issuer.FullBytes
}

func (tbs *TbsCertificate) DerEncodedSubjectName() []byte {
	return tbs.tbs.Subject.FullBytes
}

func (tbs *TbsCertificate) GetExtension(id asn1.ObjectIdentifier) []Extension {
	return tbs.tbs.getExtension(id)
}

// DeleteExtension removes all extensions with the given OID.  Returns
// StatusFalse if no such extension was present.
func (tbs *TbsCertificate) DeleteExtension(id asn1.ObjectIdentifier) Status {
	deleted := false
	kept := tbs.tbs.Extensions[:0:0]
	for _, ext := range tbs.tbs.Extensions {
		if ext.Id.Equal(id) {
			deleted = true
		} else {
			kept = append(kept, ext)
		}
	}
	if !deleted {
		return StatusFalse
	}
	if len(kept) == 0 {
		// An empty extension list must be absent, not encoded as an empty
		// SEQUENCE.
		kept = nil
	}
	tbs.tbs.Extensions = kept
	return StatusTrue
}

// CopyIssuerFrom replaces this TBS's issuer name with cert's issuer name.
// Used when a pre-certificate was issued by a Precertificate Signing
// Certificate: the final certificate will instead be issued by that
// certificate's own issuer.
func (tbs *TbsCertificate) CopyIssuerFrom(cert *Cert) {
	tbs.tbs.Issuer = asn1.RawValue{FullBytes: slices.Clone(cert.tbs.Issuer.FullBytes)}
}

// DerEncoding re-encodes the (possibly modified) TBS to DER.
func (tbs *TbsCertificate) DerEncoding() ([]byte, error) {
	// Raw must be cleared so that asn1.Marshal re-encodes the structure
	// instead of emitting the original bytes.
	reencode := tbs.tbs
	reencode.Raw = nil
	return asn1.Marshal(reencode)
}
