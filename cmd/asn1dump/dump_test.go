// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDumpAll(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.der", []byte{0x30, 0x03, 0x02, 0x01, 0x05})
	b := writeInput(t, dir, "b.der", []byte{0x01, 0x01, 0xff, 0x05, 0x00})
	nop := zerolog.Nop()

	var out bytes.Buffer
	opts := dumpOptions{Jobs: 2}
	require.NoError(t, dumpAll(&out, nil, []string{a, b}, &opts, &nop))
	assert.Equal(t, strings.Join([]string{
		a + ":",
		"SEQUENCE",
		"  0: INTEGER 5",
		b + ":",
		"BOOLEAN true",
		"NULL",
	}, "\n")+"\n", out.String())
}

func TestDumpAll_Missing(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.der", []byte{0x05, 0x00})
	missing := filepath.Join(dir, "missing.der")

	var out, log bytes.Buffer
	logger := zerolog.New(&log)
	opts := dumpOptions{Jobs: 2}
	err := dumpAll(&out, nil, []string{missing, a}, &opts, &logger)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "1 of 2 inputs failed: "+missing)
	assert.Equal(t, missing+":\n"+a+":\nNULL\n", out.String())
	assert.Contains(t, log.String(), "dump failed")
}

func TestDumpAll_Stdin(t *testing.T) {
	tests := map[string]struct {
		input string
		opts  dumpOptions
		want  string
		err   bool
	}{
		"Hex": {
			input: "30 03\n02 01 05\n",
			opts:  dumpOptions{Hex: true, Jobs: 1, WithOffsets: true},
			want:  "     0     5 SEQUENCE\n     2     3   0: INTEGER 5\n",
		},
		"Indefinite": {
			input: "30 80 02 01 05 00 00",
			opts:  dumpOptions{Hex: true, Jobs: 1, BERed: true},
			want:  "SEQUENCE BER\n  0: INTEGER 5\n",
		},
		"OIDName": {
			input: "30 05 06 03 55 1d 13",
			opts:  dumpOptions{Hex: true, Jobs: 1},
			want:  "SEQUENCE\n  0: OBJECT IDENTIFIER 2.5.29.19 (basicConstraints)\n",
		},
		"Strict": {
			input: "30 80 02 01 05 00 00",
			opts:  dumpOptions{Hex: true, Jobs: 1},
			err:   true,
		},
		"BadHex": {
			input: "3g",
			opts:  dumpOptions{Hex: true, Jobs: 1},
			err:   true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out, log bytes.Buffer
			logger := zerolog.New(&log)
			err := dumpAll(&out, strings.NewReader(tt.input), []string{"-"}, &tt.opts, &logger)
			if tt.err {
				assert.ErrorContains(t, err, "1 of 1 inputs failed: -: ")
				assert.Contains(t, log.String(), "dump failed")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestEncodeOID(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
		err  bool
	}{
		"Dotted":   {in: "1.2.840.113549", want: "06 06 2a 86 48 86 f7 0d"},
		"Notation": {in: "{ iso(1) member-body(2) us(840) 113549 }", want: "06 06 2a 86 48 86 f7 0d"},
		"Invalid":  {in: "3.1", err: true},
		"Garbage":  {in: "one.two", err: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := encodeOID(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
