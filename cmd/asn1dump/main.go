// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command asn1dump prints the structure of BER, CER and DER encoded data.
//
// Usage:
//
//	asn1dump dump [flags] [file...]
//	asn1dump oid <notation>
//
// The dump command decodes every input without a schema and prints one line
// per value. Universal types are decoded with their respective codec. The oid
// command encodes an object identifier given in dotted or ASN.1 value notation.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"codello.dev/x/asn1/internal/observability"
)

const app = "asn1dump"

var (
	logLevel string
	logger   = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "Inspect ASN.1 BER, CER and DER encodings",
	Long: `Inspect ASN.1 data encoded with the Basic, Canonical or Distinguished
Encoding Rules.

Examples:
  asn1dump dump cert.der                  # Print the structure of a file
  asn1dump dump --bered --with-offsets -  # Read BER from standard input
  asn1dump oid "{ iso(1) member-body(2) us(840) 113549 }"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := observability.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = observability.InitLogger(app, cmd.ErrOrStderr(), level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("ASN1DUMP_LOG_LEVEL"),
		"log level (trace, debug, info, warn, error), defaults to $ASN1DUMP_LOG_LEVEL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
