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
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/ctlog"
)

// TrustStore is an in-memory index of trusted certificates keyed by DER
// subject name.  Multiple trusted certificates may share a subject name
// (cross-signed roots, rollovers); candidates under a key are kept in
// insertion order and final identity is confirmed by exact byte comparison.
//
// Load and Clear must be externally serialized against all readers.
type TrustStore struct {
	byName map[string][]*ctlog.Cert
	count  int
}

func NewTrustStore() *TrustStore {
	return &TrustStore{byName: make(map[string][]*ctlog.Cert)}
}

func (s *TrustStore) Size() int {
	return s.count
}

func (s *TrustStore) Empty() bool {
	return s.count == 0
}

// Clear releases all trusted certificates.
func (s *TrustStore) Clear() {
	s.byName = make(map[string][]*ctlog.Cert)
	s.count = 0
}

func (s *TrustStore) lookup(name []byte) []*ctlog.Cert {
	return s.byName[string(name)]
}

func (s *TrustStore) add(name []byte, cert *ctlog.Cert) {
	s.byName[string(name)] = append(s.byName[string(name)], cert)
	s.count++
}

// IsTrusted reports whether cert is byte-identical to a trusted entry.
// Returns the certificate's DER subject name alongside the verdict:
// OK if trusted, RootNotInLocalStore if not.
func (s *TrustStore) IsTrusted(cert *ctlog.Cert) (CertVerifyResult, []byte) {
	if !cert.IsLoaded() {
		return InternalError, nil
	}
	name := cert.DerEncodedSubjectName()
	for _, candidate := range s.lookup(name) {
		if cert.IsIdenticalTo(candidate) {
			return OK, name
		}
	}
	return RootNotInLocalStore, name
}

// LoadFile loads trusted certificates from a PEM file.  See Load.
func (s *TrustStore) LoadFile(path string) error {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading trusted certificates: %w", err)
	}
	return s.Load(pemBytes)
}

// Load parses a concatenation of PEM certificates and adds them to the
// store.  The load is all-or-nothing: if the input contains no parseable
// certificates, or anything that is not a well-formed CERTIFICATE block,
// nothing is added.  Certificates already present are skipped, so loading
// an identical set again adds nothing and still succeeds.
func (s *TrustStore) Load(pemBytes []byte) error {
	type staged struct {
		name []byte
		cert *ctlog.Cert
	}
	var toAdd []staged
	certCount := 0

	rest := pemBytes
	for {
		rest = bytes.TrimLeft(rest, " \t\r\n")
		if len(rest) == 0 {
			break
		}
		if !bytes.HasPrefix(rest, []byte("-----BEGIN ")) {
			return errors.New("trusted certificate input contains non-PEM data")
		}
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return errors.New("trusted certificate input contains a malformed PEM block")
		}
		if block.Type != "CERTIFICATE" {
			return fmt.Errorf("trusted certificate input contains a %q PEM block, expected CERTIFICATE", block.Type)
		}
		cert, err := ctlog.ParseCert(block.Bytes)
		if err != nil {
			return fmt.Errorf("unparseable trusted certificate: %w", err)
		}
		result, name := s.IsTrusted(cert)
		if result != OK && result != RootNotInLocalStore {
			return fmt.Errorf("error classifying trusted certificate: %s", result)
		}
		certCount++
		if result != OK {
			toAdd = append(toAdd, staged{name: name, cert: cert})
		}
	}

	if certCount == 0 {
		return errors.New("trusted certificate input contains no certificates")
	}
	for _, entry := range toAdd {
		s.add(entry.name, entry.cert)
	}
	return nil
}
