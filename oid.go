// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrInvalidOID is returned by [ParseObjectIdentifier] if the input is not a
// valid object identifier.
var ErrInvalidOID = errors.New("invalid object identifier")

var oidLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-z][A-Za-z0-9]*(-[A-Za-z0-9]+)*`},
	{Name: "Punct", Pattern: `[{}().]`},
})

// oidNotation is either the dotted form 1.2.840 or the value notation
// { iso(1) member-body(2) 840 }.
type oidNotation struct {
	Components []*oidComponent `  "{" @@+ "}"`
	Dotted     []string        `| @Number ( "." @Number )*`
}

type oidComponent struct {
	Named  *namedArc `  @@`
	Number *string   `| @Number`
}

type namedArc struct {
	Name   string  `@Ident`
	Number *string `( "(" @Number ")" )?`
}

// value returns the arc number of c. Named components without a number are
// only valid for the root arcs.
func (c *oidComponent) value(root bool) (string, bool) {
	if c.Number != nil {
		return *c.Number, true
	}
	if c.Named.Number != nil {
		return *c.Named.Number, true
	}
	if !root {
		return "", false
	}
	switch c.Named.Name {
	case "itu-t", "ccitt", "itu-r":
		return "0", true
	case "iso":
		return "1", true
	case "joint-iso-itu-t", "joint-iso-ccitt":
		return "2", true
	}
	return "", false
}

var oidParser = participle.MustBuild[oidNotation](
	participle.Lexer(oidLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseObjectIdentifier parses s as an object identifier. Two notations are
// supported: the dot-separated notation (1.2.840.113549) and the ASN.1 value
// notation ({ iso(1) member-body(2) us(840) 113549 }). In value notation a
// component may be a number, a name followed by a parenthesized number or one
// of the well-known root arc names itu-t, iso and joint-iso-itu-t.
//
// The result is validated using [ObjectIdentifier.IsValid]. All errors wrap
// [ErrInvalidOID].
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	n, err := oidParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOID, err)
	}
	arcs := n.Dotted
	for i, c := range n.Components {
		v, ok := c.value(i == 0)
		if !ok {
			return nil, fmt.Errorf("%w: component %q has no number", ErrInvalidOID, c.Named.Name)
		}
		arcs = append(arcs, v)
	}
	oid := make(ObjectIdentifier, len(arcs))
	for i, a := range arcs {
		v, err := strconv.ParseUint(a, 10, strconv.IntSize)
		if err != nil {
			return nil, fmt.Errorf("%w: arc %d: %w", ErrInvalidOID, i, err)
		}
		oid[i] = uint(v)
	}
	if !oid.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOID, oid)
	}
	return oid, nil
}

// MustParseObjectIdentifier works like [ParseObjectIdentifier] but panics if s
// cannot be parsed. It simplifies the initialization of global variables.
func MustParseObjectIdentifier(s string) ObjectIdentifier {
	oid, err := ParseObjectIdentifier(s)
	if err != nil {
		panic(err)
	}
	return oid
}
