// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// Sequence implements the ASN.1 SEQUENCE and SET types. The components of a
// Sequence are described by a list of fields. Each field holds the schema of
// the component, including its tag, OPTIONAL and DEFAULT.
//
// Components are encoded in field order for a SEQUENCE and in canonical tag
// order for a SET. Components equal to their DEFAULT are omitted. When
// decoding a SEQUENCE, OPTIONAL components whose tag does not match the input
// are skipped greedily.
type Sequence struct {
	base
	fields []Field
	vals   []Value // nil for absent components
	isSet  bool
}

// NewSequence returns a SEQUENCE with the given fields and no component
// values. Field names must be unique.
func NewSequence(fields []Field) *Sequence {
	return newSequence(fields, false)
}

// NewSet returns a SET with the given fields and no component values. Field
// names must be unique and the tags of the fields must be distinct.
func NewSet(fields []Field) *Sequence {
	s := newSequence(fields, true)
	for i, f := range s.fields {
		t, ok := fixedTag(f.Value)
		if ok && slices.ContainsFunc(s.fields[:i], func(g Field) bool {
			u, ok := fixedTag(g.Value)
			return ok && t == u
		}) {
			panic(fmt.Sprintf("ber: SET field %q reuses tag %s", f.Name, t))
		}
	}
	return s
}

func newSequence(fields []Field, isSet bool) *Sequence {
	s := &Sequence{fields: slices.Clone(fields), vals: make([]Value, len(fields)), isSet: isSet}
	if isSet {
		s.init(asn1.TagSet)
	} else {
		s.init(asn1.TagSequence)
	}
	for i, f := range s.fields {
		if f.Value == nil {
			panic(fmt.Sprintf("ber: field %q has no schema", f.Name))
		}
		s.fields[i].Value = f.Value.clone()
		if s.index(f.Name) != i {
			panic(fmt.Sprintf("ber: duplicate field %q", f.Name))
		}
	}
	return s
}

func (x *Sequence) index(name string) int {
	return slices.IndexFunc(x.fields, func(f Field) bool { return f.Name == name })
}

// Fields returns the fields of x.
func (x *Sequence) Fields() []Field {
	return slices.Clone(x.fields)
}

// Set returns a copy of x with the component called name set to v. v must be
// of the type of the field and is converted to the schema of the field. If v
// equals the DEFAULT of the field, the component becomes absent. A nil v
// removes the component.
func (x *Sequence) Set(name string, v Value) (*Sequence, error) {
	i := x.index(name)
	if i < 0 {
		return nil, newError(KindObjUnknown, x, "unknown field %q", name)
	}
	var nv Value
	if v != nil {
		schema := x.fields[i].Value
		var err error
		if nv, err = schema.adopt(v); err != nil {
			return nil, err
		}
		if def := schema.Default(); def != nil && equalValues(nv, def) {
			nv = nil
		}
	}
	c := x.clone().(*Sequence)
	c.vals[i] = nv
	return c, nil
}

// MustSet works like [Sequence.Set] but panics on error.
func (x *Sequence) MustSet(name string, v Value) *Sequence {
	s, err := x.Set(name, v)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the component called name. If the component is absent, its
// DEFAULT is returned. Get returns nil for absent components without DEFAULT
// and for unknown names.
func (x *Sequence) Get(name string) Value {
	i := x.index(name)
	if i < 0 {
		return nil
	}
	if x.vals[i] != nil {
		return x.vals[i]
	}
	return x.fields[i].Value.Default()
}

// Has reports whether the component called name is present in x.
func (x *Sequence) Has(name string) bool {
	i := x.index(name)
	return i >= 0 && x.vals[i] != nil
}

// All iterates over the present components of x in field order.
func (x *Sequence) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for i, v := range x.vals {
			if v != nil && !yield(x.fields[i].Name, v) {
				return
			}
		}
	}
}

// Get returns the component of s called name as a V. See [Sequence.Get] for
// absent components. An error of kind [KindObjUnknown] is returned for unknown
// names and an error of kind [KindInvalidValueType] if the component is not a
// V.
func Get[V Value](s *Sequence, name string) (V, error) {
	var zero V
	if s.index(name) < 0 {
		return zero, newError(KindObjUnknown, s, "unknown field %q", name)
	}
	v := s.Get(name)
	if v == nil {
		return zero, nil
	}
	ret, ok := v.(V)
	if !ok {
		return zero, newError(KindInvalidValueType, s, "field %q is %s, not %T", name, v.typeName(), zero)
	}
	return ret, nil
}

func (x *Sequence) Ready() bool {
	for i, f := range x.fields {
		if x.vals[i] == nil && !f.Value.Optional() {
			return false
		}
	}
	return true
}

func (x *Sequence) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Sequence) EncodeCER() ([]byte, error) { return encode(x, true) }

func (x *Sequence) typeName() string {
	if x.isSet {
		return "SET"
	}
	return "SEQUENCE"
}

func (x *Sequence) String() string {
	var b strings.Builder
	b.WriteString(x.typeName())
	b.WriteString(" {")
	first := true
	for name, v := range x.All() {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(" " + name + " " + v.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (x *Sequence) clone() Value {
	c := *x
	c.vals = slices.Clone(x.vals)
	if x.isSet {
		c.init(asn1.TagSet)
	} else {
		c.init(asn1.TagSequence)
	}
	return &c
}

func (x *Sequence) adopt(v Value) (Value, error) {
	src, ok := v.(*Sequence)
	if !ok || src.isSet != x.isSet || !src.Ready() {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	c := x.clone().(*Sequence)
	clear(c.vals)
	for name, sv := range src.All() {
		i := c.index(name)
		if i < 0 {
			return nil, newError(KindObjUnknown, x, "unknown field %q", name)
		}
		nv, err := c.fields[i].Value.adopt(sv)
		if err != nil {
			return nil, err
		}
		c.vals[i] = nv
	}
	if !c.Ready() {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return c, nil
}

func (x *Sequence) content(cer bool) (bool, int, io.WriterTo, error) {
	type component struct {
		tag asn1.Tag
		n   int
		wt  io.WriterTo
	}
	var cs []component
	l := 0
	for i, f := range x.fields {
		v := x.vals[i]
		if v == nil {
			if !f.Value.Optional() {
				return false, 0, nil, newError(KindObjNotReady, x, "missing required field %q", f.Name)
			}
			continue
		}
		if def := f.Value.Default(); def != nil && equalValues(v, def) {
			continue
		}
		n, wt, err := encodeValue(v, cer)
		if err != nil {
			return false, 0, nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		cs = append(cs, component{sortTag(v), n, wt})
		l += n
	}
	if x.isSet {
		slices.SortStableFunc(cs, func(a, b component) int { return a.tag.Compare(b.tag) })
	}
	return true, l, writerFunc(func(w io.Writer) (n int64, err error) {
		for _, c := range cs {
			m, err := c.wt.WriteTo(w)
			n += m
			if err != nil {
				return n, err
			}
		}
		return n, nil
	}), nil
}

func (x *Sequence) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.constructed(x, h, path); err != nil {
		return err
	}
	x.vals = make([]Value, len(x.fields))
	var err error
	if x.isSet {
		err = x.decodeSet(d, c, path)
	} else {
		err = x.decodeSequence(d, c, path)
	}
	if err != nil {
		return err
	}
	for i, f := range x.fields {
		if x.vals[i] == nil && !f.Value.Optional() {
			return d.errorAt(KindDecode, x, c.off, path, "missing required field %q", f.Name)
		}
	}
	return nil
}

func (x *Sequence) decodeSequence(d *decoder, c *cursor, path Path) error {
	for i, f := range x.fields {
		if !c.more() {
			break
		}
		t, _, _, err := tlv.DecodeTag(c.data)
		if err != nil {
			return headerError(x, c.off, path.Append(f.Name), err)
		}
		if !matchesTag(f.Value, t) {
			if f.Value.Optional() {
				continue
			}
			return d.errorAt(KindTagMismatch, f.Value, c.off, path.Append(f.Name), "expected %s, got %s", f.Value.Tag(), t)
		}
		if err = x.decodeField(d, c, i, path); err != nil {
			return err
		}
	}
	return nil
}

func (x *Sequence) decodeSet(d *decoder, c *cursor, path Path) error {
	var prev asn1.Tag
	for first := true; c.more(); first = false {
		t, _, _, err := tlv.DecodeTag(c.data)
		if err != nil {
			return headerError(x, c.off, path, err)
		}
		i := slices.IndexFunc(x.fields, func(f Field) bool { return matchesTag(f.Value, t) })
		if i < 0 {
			return d.errorAt(KindDecode, x, c.off, path, "unexpected component %s", t)
		}
		if x.vals[i] != nil {
			return d.errorAt(KindDecode, x, c.off, path.Append(x.fields[i].Name), "duplicate component %s", t)
		}
		if !first {
			switch cmp := t.Compare(prev); {
			case cmp == 0:
				return d.errorAt(KindDecode, x, c.off, path, "duplicate tag %s", t)
			case cmp < 0 && !d.ctx.allowUnorderedSet():
				return d.errorAt(KindDecode, x, c.off, path, "unordered SET")
			case cmp < 0:
				d.lenient(x, path, "unordered SET")
			}
		}
		prev = t
		if err = x.decodeField(d, c, i, path); err != nil {
			return err
		}
	}
	return nil
}

// decodeField decodes the component i from c.
func (x *Sequence) decodeField(d *decoder, c *cursor, i int, path Path) error {
	f := x.fields[i]
	fp := path.Append(f.Name)
	v, n, err := d.decodeValue(f.Value, c.data, c.off, fp)
	if err != nil {
		return err
	}
	if def := f.Value.Default(); def != nil && equalValues(v, def) {
		if !d.ctx.allowDefaultValues() {
			return d.errorAt(KindDecode, v, c.off, fp, "DEFAULT value met")
		}
		d.lenient(v, fp, "DEFAULT value encoded")
	}
	x.vals[i] = v
	c.advance(n)
	return nil
}
