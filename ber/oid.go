// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/internal/vlq"
	"codello.dev/x/asn1/tlv"
)

//region [UNIVERSAL 6] OBJECT IDENTIFIER

// ObjectIdentifier implements the ASN.1 OBJECT IDENTIFIER type. The first two
// arcs are encoded into a single subidentifier. An ObjectIdentifier may carry
// [Defines] rules that select the types of other values based on its value.
type ObjectIdentifier struct {
	base
	val   asn1.ObjectIdentifier
	rules []Rule
}

// NewObjectIdentifier returns an OBJECT IDENTIFIER holding oid. An error of
// kind [KindInvalidOID] is returned if oid is not valid.
func NewObjectIdentifier(oid asn1.ObjectIdentifier) (*ObjectIdentifier, error) {
	return (&ObjectIdentifier{}).Of(oid)
}

// ParseObjectIdentifier returns an OBJECT IDENTIFIER holding the value
// represented by s. See [asn1.ParseObjectIdentifier] for the supported
// notations.
func ParseObjectIdentifier(s string) (*ObjectIdentifier, error) {
	oid, err := asn1.ParseObjectIdentifier(s)
	if err != nil {
		return nil, &Error{Kind: KindInvalidOID, Type: "OBJECT IDENTIFIER", Offset: -1, Err: err}
	}
	return NewObjectIdentifier(oid)
}

// Of returns a copy of x holding oid.
func (x *ObjectIdentifier) Of(oid asn1.ObjectIdentifier) (*ObjectIdentifier, error) {
	if !oid.IsValid() {
		return nil, newError(KindInvalidOID, x, "invalid arcs %v", []uint(oid))
	}
	c := x.clone().(*ObjectIdentifier)
	c.val = slices.Clone(oid)
	return c, nil
}

// Value returns the value of x. The result must not be modified.
func (x *ObjectIdentifier) Value() asn1.ObjectIdentifier { return x.val }

func (x *ObjectIdentifier) Ready() bool                { return x.val != nil }
func (x *ObjectIdentifier) Encode() ([]byte, error)    { return encode(x, false) }
func (x *ObjectIdentifier) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *ObjectIdentifier) typeName() string           { return "OBJECT IDENTIFIER" }

func (x *ObjectIdentifier) String() string {
	if x.val == nil {
		return "OBJECT IDENTIFIER"
	}
	return x.val.String()
}

func (x *ObjectIdentifier) clone() Value {
	c := *x
	c.init(asn1.TagOID)
	return &c
}

func (x *ObjectIdentifier) adopt(v Value) (Value, error) {
	src, ok := v.(*ObjectIdentifier)
	if !ok || src.val == nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

func (x *ObjectIdentifier) content(bool) (bool, int, io.WriterTo, error) {
	if !x.val.IsValid() {
		return false, 0, nil, newError(KindInvalidOID, x, "invalid arcs %v", []uint(x.val))
	}
	bs := vlq.Append(nil, x.val[0]*40+x.val[1])
	bs = appendArcs(bs, x.val[2:])
	return false, len(bs), bytesWriter(bs), nil
}

func (x *ObjectIdentifier) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	arcs, minimal, err := parseArcs(c.rest())
	if err != nil {
		return d.errorf(KindDecode, x, path, "%s", err)
	}
	if !minimal {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "non-minimal arc encoding")
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "non-minimal arc encoding")
	}
	// The first arc is 40*arc0 + arc1. arc0 can only take the values 0, 1 and
	// 2 and arc1 is less than 40 unless arc0 is 2.
	first := arcs[0]
	x.val = make(asn1.ObjectIdentifier, len(arcs)+1)
	switch {
	case first < 40:
		x.val[0], x.val[1] = 0, first
	case first < 80:
		x.val[0], x.val[1] = 1, first-40
	default:
		x.val[0], x.val[1] = 2, first-80
	}
	copy(x.val[2:], arcs[1:])
	d.define(x, path)
	return nil
}

//endregion

//region [UNIVERSAL 13] RELATIVE-OID

// RelativeOID implements the ASN.1 RELATIVE-OID type.
type RelativeOID struct {
	base
	val asn1.RelativeOID
}

// NewRelativeOID returns a RELATIVE-OID holding oid.
func NewRelativeOID(oid asn1.RelativeOID) *RelativeOID {
	return &RelativeOID{base: base{tag: asn1.Universal(asn1.TagRelativeOID)}, val: slices.Clone(oid)}
}

// Value returns the value of x. The result must not be modified.
func (x *RelativeOID) Value() asn1.RelativeOID { return x.val }

func (x *RelativeOID) Ready() bool                { return x.val != nil }
func (x *RelativeOID) Encode() ([]byte, error)    { return encode(x, false) }
func (x *RelativeOID) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *RelativeOID) typeName() string           { return "RELATIVE-OID" }

func (x *RelativeOID) String() string {
	if x.val == nil {
		return "RELATIVE-OID"
	}
	return x.val.String()
}

func (x *RelativeOID) clone() Value {
	c := *x
	c.init(asn1.TagRelativeOID)
	return &c
}

func (x *RelativeOID) adopt(v Value) (Value, error) {
	src, ok := v.(*RelativeOID)
	if !ok || src.val == nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	c := x.clone().(*RelativeOID)
	c.val = slices.Clone(src.val)
	return c, nil
}

func (x *RelativeOID) content(bool) (bool, int, io.WriterTo, error) {
	if len(x.val) == 0 {
		return false, 0, nil, newError(KindInvalidOID, x, "no arcs")
	}
	bs := appendArcs(nil, x.val)
	return false, len(bs), bytesWriter(bs), nil
}

func (x *RelativeOID) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	arcs, minimal, err := parseArcs(c.rest())
	if err != nil {
		return d.errorf(KindDecode, x, path, "%s", err)
	}
	if !minimal {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "non-minimal arc encoding")
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "non-minimal arc encoding")
	}
	x.val = asn1.RelativeOID(arcs)
	return nil
}

//endregion

func appendArcs(b []byte, arcs []uint) []byte {
	for _, arc := range arcs {
		b = vlq.Append(b, arc)
	}
	return b
}

// parseArcs decodes a sequence of subidentifiers. minimal reports whether all
// of them are minimally encoded.
func parseArcs(b []byte) (arcs []uint, minimal bool, err error) {
	if len(b) == 0 {
		return nil, false, errors.New("zero length")
	}
	minimal = true
	for len(b) > 0 {
		minimal = minimal && vlq.IsMinimal(b)
		arc, n, err := vlq.Decode[uint](b)
		switch {
		case errors.Is(err, vlq.ErrTruncated):
			return nil, false, errors.New("unfinished arc")
		case err != nil:
			return nil, false, fmt.Errorf("arc %d: %w", len(arcs), err)
		}
		arcs = append(arcs, arc)
		b = b[n:]
	}
	return arcs, minimal, nil
}
