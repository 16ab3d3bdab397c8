// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"
	"io"
	"slices"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// Choice implements the ASN.1 CHOICE type. A Choice holds at most one of its
// alternatives. It has no tag of its own, the encoding of a Choice is the
// encoding of the chosen alternative. The tags of the alternatives must be
// distinct.
//
// A Choice cannot be tagged implicitly. It may be wrapped in an explicit tag.
type Choice struct {
	base
	alts   []Field
	chosen int
	val    Value
}

// NewChoice returns a Choice with the given alternatives and no value.
// NewChoice panics if two alternatives share a tag.
func NewChoice(alts []Field) *Choice {
	alts = slices.Clone(alts)
	for i, a := range alts {
		if a.Value == nil {
			panic(fmt.Sprintf("ber: CHOICE alternative %q has no schema", a.Name))
		}
		alts[i].Value = a.Value.clone()
		a = alts[i]
		t, ok := fixedTag(a.Value)
		if ok && slices.ContainsFunc(alts[:i], func(b Field) bool {
			u, ok := fixedTag(b.Value)
			return ok && t == u
		}) {
			panic(fmt.Sprintf("ber: CHOICE alternative %q reuses tag %s", a.Name, t))
		}
	}
	return &Choice{alts: alts, chosen: -1}
}

// Set returns a copy of x holding v as the alternative called name. v must be
// of the type of the alternative, the schema of the alternative is kept.
func (x *Choice) Set(name string, v Value) (*Choice, error) {
	i := x.index(name)
	if i < 0 {
		return nil, newError(KindObjUnknown, x, "unknown alternative %q", name)
	}
	nv, err := x.alts[i].Value.adopt(v)
	if err != nil {
		return nil, err
	}
	c := x.clone().(*Choice)
	c.chosen, c.val = i, nv
	return c, nil
}

// Chosen returns the name and the value of the chosen alternative. If x has no
// value, Chosen returns "" and nil.
func (x *Choice) Chosen() (string, Value) {
	if x.val == nil {
		return "", nil
	}
	return x.alts[x.chosen].Name, x.val
}

// Alternatives returns the alternatives of x.
func (x *Choice) Alternatives() []Field {
	return slices.Clone(x.alts)
}

// fixedTag returns the tag of the schema v unless it depends on the value.
func fixedTag(v Value) (asn1.Tag, bool) {
	if _, ok := v.(tlvDecoder); ok {
		t, explicit := v.node().expl, v.node().explicit
		return t, explicit
	}
	return v.Tag(), true
}

func (x *Choice) index(name string) int {
	return slices.IndexFunc(x.alts, func(f Field) bool { return f.Name == name })
}

// Tag returns the explicit tag of x if one is used and the tag of the chosen
// alternative otherwise.
func (x *Choice) Tag() asn1.Tag {
	if x.explicit || x.val == nil {
		return x.base.Tag()
	}
	return x.val.Tag()
}

func (x *Choice) Ready() bool                { return x.val != nil && x.val.Ready() }
func (x *Choice) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Choice) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Choice) typeName() string           { return "CHOICE" }

func (x *Choice) String() string {
	name, v := x.Chosen()
	if v == nil {
		return "CHOICE"
	}
	return name + ": " + v.String()
}

func (x *Choice) clone() Value {
	c := *x
	return &c
}

func (x *Choice) adopt(v Value) (Value, error) {
	src, ok := v.(*Choice)
	if !ok || src.val == nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Set(src.alts[src.chosen].Name, src.val)
}

func (x *Choice) content(bool) (bool, int, io.WriterTo, error) {
	panic("ber: CHOICE has no contents")
}

func (x *Choice) decodeContent(*decoder, tlv.Header, *cursor, Path) error {
	panic("ber: CHOICE has no contents")
}

func (x *Choice) encodeTLV(cer bool) (int, io.WriterTo, error) {
	return encodeValue(x.val, cer)
}

func (x *Choice) matchTag(t asn1.Tag) bool {
	return slices.ContainsFunc(x.alts, func(f Field) bool { return matchesTag(f.Value, t) })
}

func (x *Choice) decodeTLV(d *decoder, data []byte, off int, path Path) (int, error) {
	t, _, _, err := tlv.DecodeTag(data)
	if err != nil {
		return 0, headerError(x, off, path, err)
	}
	i := slices.IndexFunc(x.alts, func(f Field) bool { return matchesTag(f.Value, t) })
	if i < 0 {
		return 0, d.errorAt(KindTagMismatch, x, off, path, "no alternative for %s", t)
	}
	v, n, err := d.decodeValue(x.alts[i].Value, data, off, path.Append(x.alts[i].Name))
	if err != nil {
		return 0, err
	}
	x.chosen, x.val = i, v
	// The chosen TLV is the TLV of the Choice.
	vm, m := v.Meta(), &x.meta
	m.Offset = vm.ExplOffset()
	if vm.ExplTagLen > 0 {
		m.TagLen, m.LenLen, m.ValueLen, m.LenIndef = vm.ExplTagLen, vm.ExplLenLen, vm.ExplValueLen, vm.ExplLenIndef
	} else {
		m.TagLen, m.LenLen, m.ValueLen, m.LenIndef = vm.TagLen, vm.LenLen, vm.ValueLen, vm.LenIndef
	}
	return n, nil
}
