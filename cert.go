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
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
)

// Cert is a parsed certificate.  Certs are immutable after parsing; byte
// slices returned by accessors must not be modified by callers.
type Cert struct {
	der  []byte
	cert *certificate
	tbs  *tbsCertificate
}

// ParseCert parses a single DER-encoded certificate.  Trailing data is an
// error.
func ParseCert(der []byte) (*Cert, error) {
	cert, err := parseCertificate(der)
	if err != nil {
		return nil, err
	}
	tbs, err := parseTBSCertificate(cert.TBSCertificate.FullBytes)
	if err != nil {
		return nil, err
	}
	return &Cert{der: bytes.Clone(der), cert: cert, tbs: tbs}, nil
}

func (c *Cert) IsLoaded() bool {
	return c != nil && len(c.der) > 0
}

// Clone returns a certificate sharing this certificate's backing data.
// Safe because Certs are immutable.
func (c *Cert) Clone() *Cert {
	clone := *c
	return &clone
}

func (c *Cert) DerEncoding() []byte {
	return bytes.Clone(c.der)
}

func (c *Cert) IsIdenticalTo(other *Cert) bool {
	return c.IsLoaded() && other.IsLoaded() && bytes.Equal(c.der, other.der)
}

// DerEncodedSubjectName returns the DER encoding of the subject
// distinguished name.
func (c *Cert) DerEncodedSubjectName() []byte {
	return c.tbs.Subject.FullBytes
}

// DerEncodedIssuerName returns the DER encoding of the issuer distinguished
// name.
func (c *Cert) DerEncodedIssuerName() []byte {
	return c.tbs.Issuer.FullBytes
}

func (c *Cert) IsSelfSigned() bool {
	return bytes.Equal(c.tbs.Subject.FullBytes, c.tbs.Issuer.FullBytes)
}

// SPKISha256Digest returns the SHA-256 digest of the certificate's Subject
// Public Key Info.
func (c *Cert) SPKISha256Digest() [sha256.Size]byte {
	return sha256.Sum256(c.tbs.PublicKey.FullBytes)
}

func (c *Cert) HasCriticalExtension(id asn1.ObjectIdentifier) Status {
	for _, ext := range c.tbs.getExtension(id) {
		if ext.Critical {
			return StatusTrue
		}
	}
	return StatusFalse
}

// HasExtendedKeyUsage reports whether the certificate's Extended Key Usage
// extension contains the given usage OID.  A certificate without the
// extension does not have the usage.
func (c *Cert) HasExtendedKeyUsage(id asn1.ObjectIdentifier) Status {
	exts := c.tbs.getExtension(oidExtensionExtKeyUsage)
	if len(exts) == 0 {
		return StatusFalse
	}
	for _, ext := range exts {
		var usages []asn1.ObjectIdentifier
		if rest, err := asn1.Unmarshal(ext.Value, &usages); err != nil || len(rest) > 0 {
			return StatusError
		}
		for _, usage := range usages {
			if usage.Equal(id) {
				return StatusTrue
			}
		}
	}
	return StatusFalse
}

// IsCA reports whether the certificate asserts CA:true in its Basic
// Constraints extension.  A certificate without the extension is not a CA.
func (c *Cert) IsCA() Status {
	exts := c.tbs.getExtension(oidExtensionBasicConstraints)
	if len(exts) == 0 {
		return StatusFalse
	}
	var constraints basicConstraints
	if rest, err := asn1.Unmarshal(exts[0].Value, &constraints); err != nil || len(rest) > 0 {
		return StatusError
	}
	if constraints.IsCA {
		return StatusTrue
	}
	return StatusFalse
}

type keyKind int

const (
	keyRSA keyKind = iota
	keyECDSA
)

type signatureAlgorithm struct {
	hash crypto.Hash
	kind keyKind
}

// Only the algorithms CT accepts.  Weak algorithms (MD2, MD5, SHA-1) and
// anything unrecognized are classified StatusUnsupportedAlgorithm so that
// chains using them are rejected as invalid rather than erroring out.
var supportedSignatureAlgorithms = map[string]signatureAlgorithm{
	"1.2.840.113549.1.1.11": {crypto.SHA256, keyRSA},
	"1.2.840.113549.1.1.12": {crypto.SHA384, keyRSA},
	"1.2.840.113549.1.1.13": {crypto.SHA512, keyRSA},
	"1.2.840.10045.4.3.2":   {crypto.SHA256, keyECDSA},
	"1.2.840.10045.4.3.3":   {crypto.SHA384, keyECDSA},
	"1.2.840.10045.4.3.4":   {crypto.SHA512, keyECDSA},
}

// IsSignedBy verifies this certificate's signature against issuer's public
// key.  Returns StatusUnsupportedAlgorithm if the signature algorithm is
// not one CT accepts, StatusError if the issuer's key cannot be parsed,
// StatusFalse if the signature does not verify.
func (c *Cert) IsSignedBy(issuer *Cert) Status {
	var sigAlg algorithmIdentifier
	if rest, err := asn1.Unmarshal(c.cert.SignatureAlgorithm.FullBytes, &sigAlg); err != nil || len(rest) > 0 {
		return StatusError
	}
	alg, ok := supportedSignatureAlgorithms[sigAlg.Algorithm.String()]
	if !ok {
		return StatusUnsupportedAlgorithm
	}

	pubkey, err := x509.ParsePKIXPublicKey(issuer.tbs.PublicKey.FullBytes)
	if err != nil {
		return StatusError
	}

	hasher := alg.hash.New()
	hasher.Write(c.cert.TBSCertificate.FullBytes)
	digest := hasher.Sum(nil)
	signature := c.cert.SignatureValue.RightAlign()

	switch key := pubkey.(type) {
	case *rsa.PublicKey:
		if alg.kind != keyRSA {
			return StatusFalse
		}
		if rsa.VerifyPKCS1v15(key, alg.hash, digest, signature) != nil {
			return StatusFalse
		}
		return StatusTrue

	case *ecdsa.PublicKey:
		if alg.kind != keyECDSA {
			return StatusFalse
		}
		if !ecdsa.VerifyASN1(key, digest, signature) {
			return StatusFalse
		}
		return StatusTrue

	default:
		return StatusUnsupportedAlgorithm
	}
}
