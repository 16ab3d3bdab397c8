// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleParseObjectIdentifier() {
	oid, _ := ParseObjectIdentifier("{ iso(1) member-body(2) us(840) rsadsi(113549) }")
	fmt.Println(oid)
	// Output: 1.2.840.113549
}

func TestParseObjectIdentifier(t *testing.T) {
	tests := map[string]struct {
		s    string
		want ObjectIdentifier
	}{
		"Dotted":      {"1.2.840.133549.1.1.5", ObjectIdentifier{1, 2, 840, 133549, 1, 1, 5}},
		"Braced":      {"{1 2 840}", ObjectIdentifier{1, 2, 840}},
		"Named":       {"{ iso(1) member-body(2) us(840) }", ObjectIdentifier{1, 2, 840}},
		"RootName":    {"{ joint-iso-itu-t 999 1 }", ObjectIdentifier{2, 999, 1}},
		"Whitespace":  {"  2.5.4.3 ", ObjectIdentifier{2, 5, 4, 3}},
		"Mixed":       {"{iso 3 dod(6) 1}", ObjectIdentifier{1, 3, 6, 1}},
		"SecondLarge": {"2.100.3", ObjectIdentifier{2, 100, 3}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseObjectIdentifier(tt.s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectIdentifier_Invalid(t *testing.T) {
	tests := map[string]string{
		"Empty":        "",
		"Negative":     "1.-2.3",
		"SingleArc":    "1",
		"BadRoot":      "3.1.2",
		"SecondTooBig": "1.40.2",
		"TrailingDot":  "1.2.",
		"UnknownName":  "{ iso foo }",
		"Overflow":     "1.2.99999999999999999999999",
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseObjectIdentifier(s)
			assert.ErrorIs(t, err, ErrInvalidOID)
		})
	}
}

func TestMustParseObjectIdentifier(t *testing.T) {
	assert.Equal(t, ObjectIdentifier{2, 5, 29, 19}, MustParseObjectIdentifier("2.5.29.19"))
	assert.Panics(t, func() { MustParseObjectIdentifier("3.1") })
}
