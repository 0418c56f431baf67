// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package ctlog provides the certificate capability layer used by a
// certificate transparency log: lenient X.509 parsing, chain-level
// predicates, and pre-certificate TBS reconstruction.
//
// Parsing is deliberately more tolerant than crypto/x509, which rejects
// many certificates that CAs submit to logs.  Structures are decoded with
// encoding/asn1 and inner fields are kept as raw ASN.1 values so that
// re-encoding preserves the original bytes.
package ctlog

import (
	"encoding/asn1"
	"errors"
	"fmt"
)

var (
	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}

	// OIDExtensionCTPoison marks a pre-certificate (RFC 6962 s3.1).
	OIDExtensionCTPoison = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 3}

	// OIDExtKeyUsagePrecertSigning scopes an intermediate to issuing
	// pre-certificates only (RFC 6962 s3.1).
	OIDExtKeyUsagePrecertSigning = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 4}
)

type Extension struct {
	Id       asn1.ObjectIdentifier
	Critical bool `asn1:"optional"`
	Value    []byte
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type tbsCertificate struct {
	Raw asn1.RawContent

	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       asn1.RawValue
	SignatureAlgorithm asn1.RawValue
	Issuer             asn1.RawValue
	Validity           asn1.RawValue
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	UniqueId           asn1.BitString `asn1:"optional,tag:1"`
	SubjectUniqueId    asn1.BitString `asn1:"optional,tag:2"`
	Extensions         []Extension    `asn1:"optional,explicit,tag:3"`
}

type certificate struct {
	Raw asn1.RawContent

	TBSCertificate     asn1.RawValue
	SignatureAlgorithm asn1.RawValue
	SignatureValue     asn1.BitString
}

func parseCertificate(der []byte) (*certificate, error) {
	cert := new(certificate)
	if rest, err := asn1.Unmarshal(der, cert); err != nil {
		return nil, errors.New("failed to parse certificate: " + err.Error())
	} else if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after certificate: %v", rest)
	}
	return cert, nil
}

func parseTBSCertificate(der []byte) (*tbsCertificate, error) {
	tbs := new(tbsCertificate)
	if rest, err := asn1.Unmarshal(der, tbs); err != nil {
		return nil, errors.New("failed to parse TBS: " + err.Error())
	} else if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after TBS: %v", rest)
	}
	return tbs, nil
}

func (tbs *tbsCertificate) getExtension(id asn1.ObjectIdentifier) []Extension {
	var exts []Extension
	for _, ext := range tbs.Extensions {
		if ext.Id.Equal(id) {
			exts = append(exts, ext)
		}
	}
	return exts
}
