// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"codello.dev/x/asn1/ber"
	"codello.dev/x/asn1/internal/observability"
	"codello.dev/x/asn1/tlv"
)

var (
	dumpOpts    = defaultDumpOptions()
	profilePath string
)

var dumpCmd = &cobra.Command{
	Use:   "dump [file...]",
	Short: "Print the structure of encoded files",
	Long: `Decode each file without a schema and print one line per value. Inputs
are decoded concurrently and printed in the order given. A file name of "-"
or no file at all reads standard input.

Examples:
  asn1dump dump cert.der
  asn1dump dump --hex --with-paths dump.txt
  asn1dump dump --config strict.toml --jobs 8 *.der`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	f := dumpCmd.Flags()
	f.StringVar(&profilePath, "config", "", "TOML profile with default settings")
	f.BoolVar(&dumpOpts.BERed, "bered", dumpOpts.BERed, "accept all BER encodings")
	f.BoolVar(&dumpOpts.AllowUnorderedSet, "allow-unordered-set", dumpOpts.AllowUnorderedSet,
		"accept SET components in any order")
	f.BoolVar(&dumpOpts.AllowDefaultValues, "allow-default-values", dumpOpts.AllowDefaultValues,
		"accept encoded DEFAULT values")
	f.BoolVar(&dumpOpts.AllowExplOOB, "allow-expl-oob", dumpOpts.AllowExplOOB,
		"accept explicit tags longer than their value")
	f.BoolVar(&dumpOpts.WithPaths, "with-paths", dumpOpts.WithPaths, "print the path of every value")
	f.BoolVar(&dumpOpts.WithOffsets, "with-offsets", dumpOpts.WithOffsets, "print offset and length of every value")
	f.BoolVar(&dumpOpts.Hex, "hex", dumpOpts.Hex, "inputs are hex encoded")
	f.IntVarP(&dumpOpts.Jobs, "jobs", "j", dumpOpts.Jobs, "number of inputs decoded concurrently")
}

func runDump(cmd *cobra.Command, args []string) error {
	opts := dumpOpts
	if profilePath != "" {
		level, err := loadProfile(profilePath, &opts, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		if level != "" {
			l, err := observability.ParseLevel(level)
			if err != nil {
				return err
			}
			logger = observability.InitLogger(app, cmd.ErrOrStderr(), l)
		}
	}
	if opts.Jobs < 1 {
		return fmt.Errorf("--jobs must be positive, got %d", opts.Jobs)
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	return dumpAll(cmd.OutOrStdout(), cmd.InOrStdin(), args, &opts, &logger)
}

// dumpAll dumps the named inputs to w. Inputs are processed concurrently, the
// output keeps the order of names. An error is returned if any input failed.
func dumpAll(w io.Writer, stdin io.Reader, names []string, opts *dumpOptions, log *zerolog.Logger) error {
	type result struct {
		out bytes.Buffer
		err error
	}
	results := make([]result, len(names))
	ctx := opts.context(log)

	var g errgroup.Group
	g.SetLimit(opts.Jobs)
	for i, name := range names {
		g.Go(func() error {
			r := &results[i]
			in, err := openInput(name, stdin, opts.Hex)
			if err == nil {
				err = dump(&r.out, in, ctx, opts.prettyOptions()...)
				if c, ok := in.(io.Closer); ok && name != "-" {
					if cerr := c.Close(); err == nil {
						err = cerr
					}
				}
			}
			r.err = err
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	// Wait reports the first failure, all inputs are still processed.
	first := g.Wait()

	failed := 0
	for i := range results {
		r := &results[i]
		if len(names) > 1 {
			fmt.Fprintf(w, "%s:\n", names[i])
		}
		if _, err := r.out.WriteTo(w); err != nil {
			return err
		}
		if r.err != nil {
			failed++
			log.Error().Err(r.err).Str("input", names[i]).Msg("dump failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed: %w", failed, len(names), first)
	}
	return nil
}

// dump prints every top-level value read from r. Output produced before an
// error is kept.
func dump(w io.Writer, r io.Reader, ctx *ber.Context, opts ...ber.PrettyOption) error {
	tr := tlv.NewReader(r)
	for {
		off, raw, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		v, _, err := ber.DecodeAt(new(ber.Any), raw, int(off), nil, ctx)
		if err != nil {
			return err
		}
		if err = ber.Pretty(w, v, opts...); err != nil {
			return err
		}
	}
}

// openInput opens the named file or returns stdin if name is "-". Hex input is
// decoded completely and may contain whitespace.
func openInput(name string, stdin io.Reader, isHex bool) (io.Reader, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		if !isHex {
			return f, nil
		}
		defer f.Close()
		r = f
	}
	if !isHex {
		return r, nil
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(string(text)), ""))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}
