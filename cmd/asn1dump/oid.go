// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/ber"
)

// wellKnownOIDs are printed with their name by the dump command.
var wellKnownOIDs = []struct {
	oid  asn1.ObjectIdentifier
	name string
}{
	{asn1.MustParseObjectIdentifier("1.2.840.113549.1.1.1"), "rsaEncryption"},
	{asn1.MustParseObjectIdentifier("1.2.840.113549.1.1.11"), "sha256WithRSAEncryption"},
	{asn1.MustParseObjectIdentifier("1.2.840.10045.2.1"), "ecPublicKey"},
	{asn1.MustParseObjectIdentifier("1.2.840.10045.4.3.2"), "ecdsa-with-SHA256"},
	{asn1.MustParseObjectIdentifier("2.5.4.3"), "commonName"},
	{asn1.MustParseObjectIdentifier("2.5.4.6"), "countryName"},
	{asn1.MustParseObjectIdentifier("2.5.4.10"), "organizationName"},
	{asn1.MustParseObjectIdentifier("2.5.29.14"), "subjectKeyIdentifier"},
	{asn1.MustParseObjectIdentifier("2.5.29.15"), "keyUsage"},
	{asn1.MustParseObjectIdentifier("2.5.29.17"), "subjectAltName"},
	{asn1.MustParseObjectIdentifier("2.5.29.19"), "basicConstraints"},
	{asn1.MustParseObjectIdentifier("2.5.29.35"), "authorityKeyIdentifier"},
}

// oidNames maps the dotted notation of every well-known OID to its name.
func oidNames() map[string]string {
	m := make(map[string]string, len(wellKnownOIDs))
	for _, o := range wellKnownOIDs {
		m[o.oid.String()] = o.name
	}
	return m
}

var oidCmd = &cobra.Command{
	Use:   "oid <notation>",
	Short: "Encode an object identifier",
	Long: `Encode an object identifier given in dotted notation or ASN.1 value
notation and print the DER encoding in hex.

Examples:
  asn1dump oid 1.2.840.113549.1.1.11
  asn1dump oid "{ iso(1) member-body(2) us(840) 113549 }"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := encodeOID(strings.Join(args, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
		return err
	},
}

func init() {
	rootCmd.AddCommand(oidCmd)
}

// encodeOID returns the DER encoding of the object identifier s as
// space-separated hex bytes.
func encodeOID(s string) (string, error) {
	oid, err := ber.ParseObjectIdentifier(s)
	if err != nil {
		return "", err
	}
	b, err := oid.Encode()
	if err != nil {
		return "", err
	}
	logger.Debug().Str("oid", oid.String()).Int("len", len(b)).Msg("encoded object identifier")
	return fmt.Sprintf("% x", b), nil
}
