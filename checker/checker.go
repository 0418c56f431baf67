// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Package checker decides whether a submitted certificate chain is
// acceptable for inclusion in the log.  Chains are attacker-supplied, so
// the verdicts distinguish "the chain is invalid" (client error) from "our
// trust store lacks the anchor" (failed precondition) from "something that
// should never fail did" (internal error).
package checker

import (
	"bytes"

	"software.sslmate.com/src/ctlog"
	"software.sslmate.com/src/ctlog/cttypes"
)

// CertChecker validates ordinary and pre-certificate chains against a
// trust store.  Validation is a pure computation over the store: any
// number of checks may run concurrently provided the store is not mutated
// while they are in flight.
type CertChecker struct {
	roots *TrustStore
}

func New(roots *TrustStore) *CertChecker {
	if roots == nil {
		roots = NewTrustStore()
	}
	return &CertChecker{roots: roots}
}

func (c *CertChecker) TrustStore() *TrustStore {
	return c.roots
}

// CheckCertChain validates an ordinary certificate chain.  On success the
// chain has been trimmed at its first self-signed certificate and extended
// with its trust anchor if the anchor was not already present.
func (c *CertChecker) CheckCertChain(chain *ctlog.CertChain) (CertVerifyResult, error) {
	if chain == nil || !chain.IsLoaded() {
		return verdict(InvalidCertificateChain)
	}

	// Weed out things that should obviously be precert chains instead.
	switch status := chain.LeafCert().HasCriticalExtension(ctlog.OIDExtensionCTPoison); status {
	case ctlog.StatusTrue:
		return verdict(PrecertExtensionInCertChain)
	case ctlog.StatusFalse:
	default:
		return internalErr("failed to check for poison extension: %s", status)
	}

	return c.CheckIssuerChain(chain)
}

// CheckIssuerChain performs the validation shared by ordinary and
// pre-certificate chains: trim at the first self-signed certificate,
// verify the CA-issuer relationships and the signature chain, and resolve
// a trust anchor.
func (c *CertChecker) CheckIssuerChain(chain *ctlog.CertChain) (CertVerifyResult, error) {
	if chain.RemoveCertsAfterFirstSelfSigned() != ctlog.StatusTrue {
		return internalErr("failed to trim chain")
	}

	// A root that is not CA:true is tolerated here because trust in it is
	// established separately, by membership in the trust store.
	switch status := chain.IsValidCaIssuerChainMaybeLegacyRoot(); status {
	case ctlog.StatusTrue:
	case ctlog.StatusFalse:
		return verdict(InvalidCertificateChain)
	default:
		return internalErr("failed to check issuer chain: %s", status)
	}

	switch status := chain.IsValidSignatureChain(); status {
	case ctlog.StatusTrue:
	case ctlog.StatusUnsupportedAlgorithm:
		// Unsupported algorithms are intentionally-rejected weak ones, so
		// the correct verdict is that the chain is invalid.  A broken
		// crypto setup would manifest far more broadly than this.
		return verdict(UnsupportedAlgorithmInCertChain)
	case ctlog.StatusFalse:
		return verdict(InvalidCertificateChain)
	default:
		return internalErr("failed to check signature chain: %s", status)
	}

	return verdict(c.GetTrustedCa(chain))
}

// CheckPreCertChain validates a pre-certificate chain and, on success,
// returns the RFC 6962 PreCert: the SPKI digest of the certificate that
// will sign the final certificate, and the canonical TBS with the poison
// extension removed (and the issuer rewritten, if a Precertificate Signing
// Certificate was used).
func (c *CertChecker) CheckPreCertChain(chain *ctlog.PreCertChain) (*cttypes.PreCert, CertVerifyResult, error) {
	if chain == nil || !chain.IsLoaded() {
		result, err := verdict(InvalidCertificateChain)
		return nil, result, err
	}
	switch status := chain.IsWellFormed(); status {
	case ctlog.StatusTrue:
	case ctlog.StatusFalse:
		result, err := verdict(PrecertChainNotWellFormed)
		return nil, result, err
	default:
		result, err := internalErr("failed to check precert chain format: %s", status)
		return nil, result, err
	}

	if result, err := c.CheckIssuerChain(&chain.CertChain); result != OK {
		return nil, result, err
	}

	// Whether the issuing CA is a Precertificate Signing Certificate does
	// not influence chain validity; it only determines which certificate
	// will sign the final certificate.
	usesPreIssuer := chain.UsesPrecertSigningCertificate()
	if usesPreIssuer != ctlog.StatusTrue && usesPreIssuer != ctlog.StatusFalse {
		result, err := internalErr("failed to check for precert signing certificate: %s", usesPreIssuer)
		return nil, result, err
	}

	// CheckIssuerChain appended the trust anchor if it was missing, so a
	// shorter chain here is a logic-invariant breach, not a user error.
	var issuer *ctlog.Cert
	if usesPreIssuer == ctlog.StatusTrue {
		issuer = chain.CertAt(2)
	} else {
		issuer = chain.CertAt(1)
	}
	if issuer == nil {
		result, err := internalErr("verified precert chain too short (length %d, precert signing certificate: %v)", chain.Length(), usesPreIssuer == ctlog.StatusTrue)
		return nil, result, err
	}

	tbs, err := chain.PreCert().TBS()
	if err != nil {
		result, err := internalErr("failed to detach precert TBS: %s", err)
		return nil, result, err
	}
	if tbs.DeleteExtension(ctlog.OIDExtensionCTPoison) != ctlog.StatusTrue {
		result, err := internalErr("well-formed precert has no poison extension")
		return nil, result, err
	}
	if usesPreIssuer == ctlog.StatusTrue {
		tbs.CopyIssuerFrom(chain.PrecertIssuingCert())
	}

	tbsDer, err := tbs.DerEncoding()
	if err != nil {
		result, err := internalErr("could not DER-encode tbs certificate: %s", err)
		return nil, result, err
	}

	precert := &cttypes.PreCert{
		IssuerKeyHash:  issuer.SPKISha256Digest(),
		TBSCertificate: tbsDer,
	}
	return precert, OK, nil
}

// GetTrustedCa resolves trust for the chain's last certificate.  If the
// last certificate is itself a trusted entry, the chain is left unchanged;
// otherwise, if a trusted certificate verifiably signed it, a clone of
// that certificate is appended so the chain ends with its verified root.
func (c *CertChecker) GetTrustedCa(chain *ctlog.CertChain) CertVerifyResult {
	subject := chain.LastCert()
	if !subject.IsLoaded() {
		return InternalError
	}

	// An empty trust store is a legitimate not-yet-provisioned state, not
	// an error.
	if c.roots.Empty() {
		return RootNotInLocalStore
	}

	isTrusted, subjectName := c.roots.IsTrusted(subject)
	if isTrusted != RootNotInLocalStore {
		// Either OK (the last cert is in our trusted store; it need not
		// be self-signed) or an error.
		return isTrusted
	}

	issuerName := subject.DerEncodedIssuerName()
	if bytes.Equal(subjectName, issuerName) {
		// Self-signed: unresolvable further.
		return RootNotInLocalStore
	}

	for _, candidate := range c.roots.lookup(issuerName) {
		switch status := subject.IsSignedBy(candidate); status {
		case ctlog.StatusTrue:
			chain.AddCert(candidate.Clone())
			return OK
		case ctlog.StatusFalse:
		case ctlog.StatusUnsupportedAlgorithm:
			// No point trying the remaining candidates: the subject's
			// algorithm is unconditionally unacceptable.
			return UnsupportedAlgorithmInCertChain
		default:
			return InternalError
		}
	}

	return RootNotInLocalStore
}
