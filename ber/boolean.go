// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"io"
	"strconv"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

//region [UNIVERSAL 1] BOOLEAN

// Boolean implements the ASN.1 BOOLEAN type. The value false is encoded as 0x00
// and true as 0xFF. Under BER any other nonzero byte is decoded as true. The
// zero value is a BOOLEAN without a value.
type Boolean struct {
	base
	val bool
	set bool
}

// NewBoolean returns a BOOLEAN holding b.
func NewBoolean(b bool) *Boolean {
	return &Boolean{base: base{tag: asn1.Universal(asn1.TagBoolean)}, val: b, set: true}
}

// Of returns a copy of x holding b.
func (x *Boolean) Of(b bool) *Boolean {
	c := x.clone().(*Boolean)
	c.val, c.set = b, true
	return c
}

// Bool returns the value of x.
func (x *Boolean) Bool() bool { return x.val }

func (x *Boolean) Ready() bool                { return x.set }
func (x *Boolean) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Boolean) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Boolean) typeName() string           { return "BOOLEAN" }

func (x *Boolean) String() string {
	if !x.set {
		return "BOOLEAN"
	}
	return strconv.FormatBool(x.val)
}

func (x *Boolean) clone() Value {
	c := *x
	c.init(asn1.TagBoolean)
	return &c
}

func (x *Boolean) adopt(v Value) (Value, error) {
	src, ok := v.(*Boolean)
	if !ok || !src.set {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val), nil
}

func (x *Boolean) content(bool) (bool, int, io.WriterTo, error) {
	b := byte(0x00)
	if x.val {
		b = 0xFF
	}
	return false, 1, bytesWriter([]byte{b}), nil
}

func (x *Boolean) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	if len(c.data) != 1 {
		return d.errorf(KindInvalidLength, x, path, "length %d, expected 1", len(c.data))
	}
	b := c.rest()[0]
	switch b {
	case 0x00, 0xFF:
	default:
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "invalid BOOLEAN value 0x%02X", b)
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "non-canonical BOOLEAN")
	}
	x.val, x.set = b != 0, true
	return nil
}

//endregion

//region [UNIVERSAL 5] NULL

// Null implements the ASN.1 NULL type. A NULL is always ready.
type Null struct {
	base
}

// NewNull returns a NULL value.
func NewNull() *Null {
	return &Null{base: base{tag: asn1.Universal(asn1.TagNull)}}
}

func (x *Null) Ready() bool                { return true }
func (x *Null) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Null) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Null) String() string             { return "NULL" }
func (x *Null) typeName() string           { return "NULL" }

func (x *Null) clone() Value {
	c := *x
	c.init(asn1.TagNull)
	return &c
}

func (x *Null) adopt(v Value) (Value, error) {
	if _, ok := v.(*Null); !ok {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.clone(), nil
}

func (x *Null) content(bool) (bool, int, io.WriterTo, error) {
	return false, 0, bytesWriter(), nil
}

func (x *Null) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	if len(c.data) != 0 {
		return d.errorf(KindInvalidLength, x, path, "length %d, expected 0", len(c.data))
	}
	return nil
}

//endregion
