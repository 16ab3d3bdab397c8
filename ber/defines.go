// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"

	"codello.dev/x/asn1"
)

// A Rule resolves the type of an open type value based on the value of an
// OBJECT IDENTIFIER. Target is the path of the open type relative to the
// component containing the OBJECT IDENTIFIER, see [Path.Join]. A single label
// names a sibling field, ".." steps out of the containing component and "/"
// starts at the top-level value. Schemas maps object identifiers in dotted
// notation to the type of the target.
//
// Targets must be of type [*Any], [*OctetString] or [*BitString] and must be
// decoded after the OBJECT IDENTIFIER. An Any is decoded as a whole, the
// contents of an OCTET STRING and the bits of a BIT STRING are decoded as the
// schema. The schema must consume all the data.
type Rule struct {
	Target  Path
	Schemas map[string]Value
}

// PathRules attaches rules to every OBJECT IDENTIFIER whose path matches
// Pattern. See [Path.Match] for the pattern syntax.
type PathRules struct {
	Pattern Path
	Rules   []Rule
}

// Defines attaches rules to an OBJECT IDENTIFIER.
//
// If multiple rules define the same target, the rule with the most literal
// path labels wins. Rules attached using this option count as fully literal.
// Rules with the same number of literals are ordered by declaration, rules of
// this option first. Only rules whose Schemas contain the decoded identifier
// are considered.
func Defines(rules ...Rule) Option {
	return func(v Value) {
		x, ok := v.(*ObjectIdentifier)
		if !ok {
			panic(fmt.Sprintf("ber: %s cannot define other values", v.typeName()))
		}
		x.rules = append(x.rules[:len(x.rules):len(x.rules)], rules...)
	}
}

// definedBy is the result of applying a rule.
type definedBy struct {
	oid   asn1.ObjectIdentifier
	value Value // schema while pending, decoded value afterwards
}

// definable is embedded in values that can be the target of a [Rule].
type definable struct {
	defined    *definedBy
	payloadOff int
}

// Defined returns the value decoded by a [Rule] together with the object
// identifier that selected its type. Both are nil if no rule applied.
func (x *definable) Defined() (asn1.ObjectIdentifier, Value) {
	if x.defined == nil {
		return nil, nil
	}
	return x.defined.oid, x.defined.value
}

func (x *definable) setDefined(d *definedBy) {
	x.defined = d
}

type definesTarget interface {
	Value
	definedData() ([]byte, int)
	setDefined(d *definedBy)
}

// definedByLabel is the path label of a value decoded by a rule.
func definedByLabel(oid asn1.ObjectIdentifier) string {
	return "defined-by(" + oid.String() + ")"
}

// define registers the targets of the rules applicable to x.
func (d *decoder) define(x *ObjectIdentifier, path Path) {
	type candidate struct {
		schema   Value
		literals int
	}
	key := x.val.String()
	parent := path
	if len(parent) > 0 {
		parent = parent[:len(parent)-1]
	}
	found := make(map[string]candidate)
	consider := func(rules []Rule, literals int) {
		for _, r := range rules {
			schema, ok := r.Schemas[key]
			if !ok {
				continue
			}
			target := parent.Join(r.Target).String()
			if c, ok := found[target]; ok && c.literals >= literals {
				continue
			}
			found[target] = candidate{schema, literals}
		}
	}
	consider(x.rules, len(path))
	if d.ctx != nil {
		for _, pr := range d.ctx.DefinesByPath {
			if path.Match(pr.Pattern) {
				consider(pr.Rules, pr.Pattern.literals())
			}
		}
	}
	if len(found) == 0 {
		return
	}
	if d.pending == nil {
		d.pending = make(map[string]definedBy)
	}
	for target, c := range found {
		d.pending[target] = definedBy{x.val, c.schema}
	}
}

// resolve decodes the open type in v if a rule registered it.
func (d *decoder) resolve(v Value, path Path) error {
	t, ok := v.(definesTarget)
	if !ok || len(d.pending) == 0 {
		return nil
	}
	key := path.String()
	def, ok := d.pending[key]
	if !ok {
		return nil
	}
	delete(d.pending, key)
	data, off := t.definedData()
	sub, n, err := d.decodeValue(def.value, data, off, path.Append(definedByLabel(def.oid)))
	if err != nil {
		return err
	}
	if n < len(data) {
		return d.errorAt(KindDecode, v, off+n, path, "remaining data after defined value")
	}
	t.setDefined(&definedBy{def.oid, sub})
	d.log.Trace().
		Int("offset", off).
		Str("path", path.String()).
		Str("oid", def.oid.String()).
		Msg("resolved open type")
	return nil
}
