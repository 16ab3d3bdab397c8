// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"codello.dev/x/asn1/ber"
)

// dumpOptions holds the settings of the dump command.
type dumpOptions struct {
	BERed              bool
	AllowUnorderedSet  bool
	AllowDefaultValues bool
	AllowExplOOB       bool
	WithPaths          bool
	WithOffsets        bool
	Hex                bool
	Jobs               int
}

func defaultDumpOptions() dumpOptions {
	return dumpOptions{Jobs: 4}
}

// profile is the TOML representation of a configuration profile.
type profile struct {
	BERed              bool   `toml:"bered"`
	AllowUnorderedSet  bool   `toml:"allow_unordered_set"`
	AllowDefaultValues bool   `toml:"allow_default_values"`
	AllowExplOOB       bool   `toml:"allow_expl_oob"`
	WithPaths          bool   `toml:"with_paths"`
	WithOffsets        bool   `toml:"with_offsets"`
	Hex                bool   `toml:"hex"`
	Jobs               int    `toml:"jobs"`
	LogLevel           string `toml:"log_level"`
}

// loadProfile applies the profile at path to opts. Keys missing from the file
// and keys for which changed reports true keep their current value. The log
// level of the profile is returned if it is set.
func loadProfile(path string, opts *dumpOptions, changed func(flag string) bool) (string, error) {
	var raw profile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return "", fmt.Errorf("load profile: unknown key %q", keys[0].String())
	}

	set := func(key, flag string, dst *bool, v bool) {
		if meta.IsDefined(key) && !changed(flag) {
			*dst = v
		}
	}
	set("bered", "bered", &opts.BERed, raw.BERed)
	set("allow_unordered_set", "allow-unordered-set", &opts.AllowUnorderedSet, raw.AllowUnorderedSet)
	set("allow_default_values", "allow-default-values", &opts.AllowDefaultValues, raw.AllowDefaultValues)
	set("allow_expl_oob", "allow-expl-oob", &opts.AllowExplOOB, raw.AllowExplOOB)
	set("with_paths", "with-paths", &opts.WithPaths, raw.WithPaths)
	set("with_offsets", "with-offsets", &opts.WithOffsets, raw.WithOffsets)
	set("hex", "hex", &opts.Hex, raw.Hex)

	if meta.IsDefined("jobs") && !changed("jobs") {
		if raw.Jobs < 1 {
			return "", fmt.Errorf("load profile: jobs must be positive, got %d", raw.Jobs)
		}
		opts.Jobs = raw.Jobs
	}
	var level string
	if meta.IsDefined("log_level") && !changed("log-level") {
		level = strings.TrimSpace(raw.LogLevel)
	}
	return level, nil
}

// context returns the decoding context described by opts.
func (opts *dumpOptions) context(log *zerolog.Logger) *ber.Context {
	return &ber.Context{
		BERed:              opts.BERed,
		AllowUnorderedSet:  opts.AllowUnorderedSet,
		AllowDefaultValues: opts.AllowDefaultValues,
		AllowExplOOB:       opts.AllowExplOOB,
		Logger:             log,
	}
}

func (opts *dumpOptions) prettyOptions() []ber.PrettyOption {
	p := []ber.PrettyOption{ber.ExpandAny(), ber.WithOIDNames(oidNames())}
	if opts.WithPaths {
		p = append(p, ber.WithPaths())
	}
	if opts.WithOffsets {
		p = append(p, ber.WithOffsets())
	}
	return p
}
