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
	"encoding/pem"
	"errors"
	"fmt"
)

// CertChain is an ordered sequence of certificates, leaf first.
type CertChain struct {
	certs []*Cert
}

func NewCertChain(certs []*Cert) *CertChain {
	return &CertChain{certs: certs}
}

// ParseCertChain parses a leaf-first sequence of DER-encoded certificates.
func ParseCertChain(derCerts [][]byte) (*CertChain, error) {
	if len(derCerts) == 0 {
		return nil, errors.New("empty certificate chain")
	}
	chain := new(CertChain)
	for i, der := range derCerts {
		cert, err := ParseCert(der)
		if err != nil {
			return nil, fmt.Errorf("certificate %d in chain: %w", i, err)
		}
		chain.certs = append(chain.certs, cert)
	}
	return chain, nil
}

// ParseCertChainPEM parses a leaf-first sequence of PEM-encoded
// certificates.  Anything in the input other than well-formed CERTIFICATE
// blocks is an error.
func ParseCertChainPEM(pemBytes []byte) (*CertChain, error) {
	derCerts, err := decodeCertificatePEM(pemBytes)
	if err != nil {
		return nil, err
	}
	return ParseCertChain(derCerts)
}

func decodeCertificatePEM(pemBytes []byte) ([][]byte, error) {
	var derCerts [][]byte
	rest := pemBytes
	for {
		rest = bytes.TrimLeft(rest, " \t\r\n")
		if len(rest) == 0 {
			break
		}
		if !bytes.HasPrefix(rest, []byte("-----BEGIN ")) {
			return nil, errors.New("input contains non-PEM data")
		}
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("input contains a malformed PEM block")
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("input contains a %q PEM block, expected CERTIFICATE", block.Type)
		}
		derCerts = append(derCerts, block.Bytes)
	}
	return derCerts, nil
}

func (chain *CertChain) IsLoaded() bool {
	if chain == nil || len(chain.certs) == 0 {
		return false
	}
	for _, cert := range chain.certs {
		if !cert.IsLoaded() {
			return false
		}
	}
	return true
}

func (chain *CertChain) Length() int {
	return len(chain.certs)
}

// CertAt returns the certificate at the given position (0 = leaf), or nil
// if the position is out of range.
func (chain *CertChain) CertAt(i int) *Cert {
	if i < 0 || i >= len(chain.certs) {
		return nil
	}
	return chain.certs[i]
}

func (chain *CertChain) LeafCert() *Cert {
	return chain.CertAt(0)
}

func (chain *CertChain) LastCert() *Cert {
	return chain.CertAt(len(chain.certs) - 1)
}

func (chain *CertChain) AddCert(cert *Cert) {
	chain.certs = append(chain.certs, cert)
}

// RemoveCertsAfterFirstSelfSigned truncates the chain so that it ends at
// the first self-signed certificate.  Certificates beyond it are discarded.
// A chain with no self-signed certificate is left unchanged.
func (chain *CertChain) RemoveCertsAfterFirstSelfSigned() Status {
	for i, cert := range chain.certs {
		if cert.IsSelfSigned() {
			chain.certs = chain.certs[:i+1]
			return StatusTrue
		}
	}
	return StatusTrue
}

// IsValidCaIssuerChainMaybeLegacyRoot checks that each certificate's issuer
// name matches the next certificate's subject name, and that every issuing
// certificate asserts CA:true.  The terminal certificate is exempt from the
// CA check: legacy roots predate Basic Constraints, and trust in the
// terminal certificate is established separately by trust store membership.
func (chain *CertChain) IsValidCaIssuerChainMaybeLegacyRoot() Status {
	for i := 0; i+1 < len(chain.certs); i++ {
		child, issuer := chain.certs[i], chain.certs[i+1]
		if !bytes.Equal(child.DerEncodedIssuerName(), issuer.DerEncodedSubjectName()) {
			return StatusFalse
		}
		if i+2 == len(chain.certs) {
			continue
		}
		switch issuer.IsCA() {
		case StatusTrue:
		case StatusFalse:
			return StatusFalse
		default:
			return StatusError
		}
	}
	return StatusTrue
}

// IsValidSignatureChain verifies each certificate's signature against the
// next certificate in the chain.  An unsupported algorithm anywhere in the
// chain short-circuits the check.
func (chain *CertChain) IsValidSignatureChain() Status {
	for i := 0; i+1 < len(chain.certs); i++ {
		switch status := chain.certs[i].IsSignedBy(chain.certs[i+1]); status {
		case StatusTrue:
		default:
			return status
		}
	}
	return StatusTrue
}

// PreCertChain is a certificate chain whose leaf is a pre-certificate.
type PreCertChain struct {
	CertChain
}

func NewPreCertChain(certs []*Cert) *PreCertChain {
	return &PreCertChain{CertChain{certs: certs}}
}

func ParsePreCertChain(derCerts [][]byte) (*PreCertChain, error) {
	chain, err := ParseCertChain(derCerts)
	if err != nil {
		return nil, err
	}
	return &PreCertChain{*chain}, nil
}

func ParsePreCertChainPEM(pemBytes []byte) (*PreCertChain, error) {
	chain, err := ParseCertChainPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	return &PreCertChain{*chain}, nil
}

// PreCert returns the pre-certificate (the leaf).
func (chain *PreCertChain) PreCert() *Cert {
	return chain.LeafCert()
}

// PrecertIssuingCert returns the certificate that issued the
// pre-certificate, or nil if the chain contains only the pre-certificate.
func (chain *PreCertChain) PrecertIssuingCert() *Cert {
	return chain.CertAt(1)
}

// IsWellFormed checks the structure required of a pre-certificate chain:
// the leaf must carry the critical poison extension.
func (chain *PreCertChain) IsWellFormed() Status {
	if !chain.IsLoaded() {
		return StatusFalse
	}
	return chain.PreCert().HasCriticalExtension(OIDExtensionCTPoison)
}

// UsesPrecertSigningCertificate reports whether the pre-certificate was
// issued by a Precertificate Signing Certificate, identified by its
// Extended Key Usage.  The presence of the EKU does not affect chain
// validity; it only changes which certificate will sign the final
// certificate.
func (chain *PreCertChain) UsesPrecertSigningCertificate() Status {
	issuer := chain.PrecertIssuingCert()
	if issuer == nil {
		return StatusFalse
	}
	return issuer.HasExtendedKeyUsage(OIDExtKeyUsagePrecertSigning)
}
