// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package testcert mints certificates for tests.  Certificates are built
// directly from ASN.1 structures rather than crypto/x509 templates so
// tests can produce shapes the standard library refuses to create, such as
// poisoned precertificates and certificates claiming unsupported signature
// algorithms.
package testcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

var (
	oidSignatureECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidSignatureSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}

	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
	oidExtensionCTPoison         = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 3}
	oidExtKeyUsagePrecertSigning = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 4}
)

// UnsupportedSignatureOID is a signature algorithm the verifier refuses on
// policy grounds (SHA-1 with RSA).
var UnsupportedSignatureOID = oidSignatureSHA1WithRSA

// Identity is a named key pair that can issue certificates.
type Identity struct {
	Key *ecdsa.PrivateKey
	CN  string
}

func NewIdentity(cn string) *Identity {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("testcert: generating key: %s", err))
	}
	return &Identity{Key: key, CN: cn}
}

// Template controls the shape of an issued certificate.
type Template struct {
	SerialNumber      int64
	CA                bool
	Poison            bool
	PrecertSigningEKU bool
	// SignatureOID overrides the algorithm identifier written into the
	// certificate.  The signature bytes remain ECDSA P-256 with SHA-256,
	// which is fine for testing algorithm rejection: the verifier must
	// refuse the certificate before looking at the signature bytes.
	SignatureOID asn1.ObjectIdentifier
}

type extension struct {
	Id       asn1.ObjectIdentifier
	Critical bool `asn1:"optional"`
	Value    []byte
}

type validity struct {
	NotBefore, NotAfter time.Time
}

type tbsCertificate struct {
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm asn1.RawValue
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	Extensions         []extension `asn1:"optional,explicit,tag:3,omitempty"`
}

type certificate struct {
	TBSCertificate     asn1.RawValue
	SignatureAlgorithm asn1.RawValue
	SignatureValue     asn1.BitString
}

func mustMarshal(value any) []byte {
	der, err := asn1.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("testcert: marshaling %T: %s", value, err))
	}
	return der
}

func nameDER(cn string) asn1.RawValue {
	name := pkix.Name{CommonName: cn}
	return asn1.RawValue{FullBytes: mustMarshal(name.ToRDNSequence())}
}

func algorithmDER(oid asn1.ObjectIdentifier) asn1.RawValue {
	return asn1.RawValue{FullBytes: mustMarshal(struct {
		Algorithm asn1.ObjectIdentifier
	}{oid})}
}

func spkiDER(key *ecdsa.PrivateKey) asn1.RawValue {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(fmt.Sprintf("testcert: marshaling public key: %s", err))
	}
	return asn1.RawValue{FullBytes: der}
}

func (tmpl Template) extensions() []extension {
	var exts []extension
	if tmpl.CA {
		exts = append(exts, extension{
			Id:       oidExtensionBasicConstraints,
			Critical: true,
			Value: mustMarshal(struct {
				IsCA bool `asn1:"optional"`
			}{true}),
		})
	}
	if tmpl.Poison {
		exts = append(exts, extension{
			Id:       oidExtensionCTPoison,
			Critical: true,
			Value:    []byte{0x05, 0x00},
		})
	}
	if tmpl.PrecertSigningEKU {
		exts = append(exts, extension{
			Id:    oidExtensionExtKeyUsage,
			Value: mustMarshal([]asn1.ObjectIdentifier{oidExtKeyUsagePrecertSigning}),
		})
	}
	return exts
}

// Issue returns the DER encoding of a certificate for subject, signed by
// issuer's key and naming issuer in the issuer field.  Pass the same
// identity for both to mint a self-signed certificate.
func Issue(tmpl Template, subject, issuer *Identity) []byte {
	serial := tmpl.SerialNumber
	if serial == 0 {
		serial = 1
	}
	sigOID := tmpl.SignatureOID
	if sigOID == nil {
		sigOID = oidSignatureECDSAWithSHA256
	}

	notBefore := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tbs := tbsCertificate{
		Version:            2,
		SerialNumber:       big.NewInt(serial),
		SignatureAlgorithm: algorithmDER(sigOID),
		Issuer:             nameDER(issuer.CN),
		Validity:           validity{NotBefore: notBefore, NotAfter: notBefore.AddDate(10, 0, 0)},
		Subject:            nameDER(subject.CN),
		PublicKey:          spkiDER(subject.Key),
		Extensions:         tmpl.extensions(),
	}
	tbsDER := mustMarshal(tbs)

	digest := sha256.Sum256(tbsDER)
	signature, err := ecdsa.SignASN1(rand.Reader, issuer.Key, digest[:])
	if err != nil {
		panic(fmt.Sprintf("testcert: signing: %s", err))
	}

	return mustMarshal(certificate{
		TBSCertificate:     asn1.RawValue{FullBytes: tbsDER},
		SignatureAlgorithm: algorithmDER(sigOID),
		SignatureValue:     asn1.BitString{Bytes: signature, BitLength: 8 * len(signature)},
	})
}

// PEM wraps DER certificates into a concatenated PEM bundle.
func PEM(ders ...[]byte) []byte {
	var out []byte
	for _, der := range ders {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	return out
}
