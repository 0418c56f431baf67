// Copyright (C) 2025 Opsmate, Inc.
//
// This Source Code Form is subject to the terms of the Mozilla
// Public License, v. 2.0. If a copy of the MPL was not distributed
// with this file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// This software is distributed WITHOUT A WARRANTY OF ANY KIND.
// See the Mozilla Public License for details.

// Command ctcheck validates a PEM certificate chain, read from a file or
// standard input, against a store of trusted roots, the same way a log
// front end decides whether to accept a submission.
//
// Exit status: 0 if the chain is acceptable, 1 if the chain is invalid,
// 2 if the chain's root is not in the local store, 3 on internal errors.
package main

import (
	"software.sslmate.com/src/ctlog"
	"software.sslmate.com/src/ctlog/checker"

	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

var (
	rootsPath = flag.String("roots", "", "File path of PEM-encoded trusted root certificates")
	precert   = flag.Bool("precert", false, "Treat the input as a precertificate chain")
	verbose   = flag.Bool("v", false, "Enable verbose output")
)

func exitStatus(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, checker.ErrInvalidChain):
		return 1
	case errors.Is(err, checker.ErrUnknownRoot):
		return 2
	default:
		return 3
	}
}

func readChain() ([]byte, error) {
	if flag.NArg() == 0 {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(flag.Arg(0))
}

func main() {
	flag.Parse()
	log.SetPrefix("ctcheck: ")

	if *rootsPath == "" {
		log.Fatalf("-roots is required")
	}
	if flag.NArg() > 1 {
		log.Fatalf("Usage: ctcheck -roots ROOTS.pem [-precert] [CHAIN.pem]")
	}

	roots := checker.NewTrustStore()
	if err := roots.LoadFile(*rootsPath); err != nil {
		log.Fatalf("Error loading trusted roots: %s", err)
	}
	if *verbose {
		log.Printf("Loaded %d trusted roots", roots.Size())
	}

	chainPem, err := readChain()
	if err != nil {
		log.Fatalf("Error reading chain: %s", err)
	}

	check := checker.New(roots)

	if *precert {
		chain, err := ctlog.ParsePreCertChainPEM(chainPem)
		if err != nil {
			log.Printf("Error parsing precert chain: %s", err)
			os.Exit(1)
		}
		precert, result, err := check.CheckPreCertChain(chain)
		if err != nil {
			log.Printf("Precert chain rejected: %s", err)
			os.Exit(exitStatus(err))
		}
		if *verbose {
			log.Printf("Verified chain length: %d", chain.Length())
		}
		fmt.Printf("%s\n", result)
		fmt.Printf("issuer key hash: %x\n", precert.IssuerKeyHash)
		fmt.Printf("tbs length: %d\n", len(precert.TBSCertificate))
		return
	}

	chain, err := ctlog.ParseCertChainPEM(chainPem)
	if err != nil {
		log.Printf("Error parsing certificate chain: %s", err)
		os.Exit(1)
	}
	result, err := check.CheckCertChain(chain)
	if err != nil {
		log.Printf("Certificate chain rejected: %s", err)
		os.Exit(exitStatus(err))
	}
	if *verbose {
		log.Printf("Verified chain length: %d", chain.Length())
	}
	fmt.Printf("%s\n", result)
}
