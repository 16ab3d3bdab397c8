// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"fmt"
	"io"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// Any holds a complete encoded TLV of any type. When decoding, an Any accepts
// every tag and keeps the raw encoding. An Any can be the target of
// [Defines], the raw encoding is then decoded as the defined type.
//
// An Any cannot be tagged implicitly. It may be wrapped in an explicit tag.
type Any struct {
	base
	definable
	raw []byte
}

// NewAny returns an Any holding a copy of raw. raw must hold exactly one
// complete TLV encoding, otherwise NewAny panics.
func NewAny(raw []byte) *Any {
	x, err := (&Any{}).Of(raw)
	if err != nil {
		panic(err)
	}
	return x
}

// AnyOf returns an Any holding the DER encoding of v.
func AnyOf(v Value) (*Any, error) {
	b, err := encode(v, false)
	if err != nil {
		return nil, err
	}
	return &Any{raw: b}, nil
}

// Of returns a copy of x holding a copy of raw. An error of kind
// [KindInvalidValueType] is returned if raw is not exactly one TLV.
func (x *Any) Of(raw []byte) (*Any, error) {
	d := newDecoder(&Context{BERed: true})
	n, _, err := d.extent(x, raw, 0, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidValueType, Type: x.typeName(), Offset: -1, Err: err}
	}
	if n != len(raw) {
		return nil, newError(KindInvalidValueType, x, "%d trailing bytes", len(raw)-n)
	}
	c := x.clone().(*Any)
	c.raw, c.defined = bytes.Clone(raw), nil
	return c, nil
}

// Raw returns the complete encoding held by x. The result must not be
// modified.
func (x *Any) Raw() []byte { return x.raw }

// Tag returns the explicit tag of x if one is used and the tag of the held
// encoding otherwise.
func (x *Any) Tag() asn1.Tag {
	if x.explicit || x.raw == nil {
		return x.base.Tag()
	}
	t, _, _, err := tlv.DecodeTag(x.raw)
	if err != nil {
		return asn1.Tag{}
	}
	return t
}

func (x *Any) Ready() bool                { return x.raw != nil }
func (x *Any) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Any) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Any) typeName() string           { return "ANY" }

func (x *Any) String() string {
	if x.raw == nil {
		return "ANY"
	}
	if _, v := x.Defined(); v != nil {
		return v.String()
	}
	return fmt.Sprintf("%s %d bytes", x.Tag(), len(x.raw))
}

func (x *Any) clone() Value {
	c := *x
	return &c
}

func (x *Any) adopt(v Value) (Value, error) {
	src, ok := v.(*Any)
	if !ok || src.raw == nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.raw)
}

func (x *Any) content(bool) (bool, int, io.WriterTo, error) {
	panic("ber: ANY has no contents")
}

func (x *Any) decodeContent(*decoder, tlv.Header, *cursor, Path) error {
	panic("ber: ANY has no contents")
}

func (x *Any) encodeTLV(bool) (int, io.WriterTo, error) {
	return len(x.raw), bytesWriter(x.raw), nil
}

func (x *Any) matchTag(asn1.Tag) bool { return true }

func (x *Any) decodeTLV(d *decoder, data []byte, off int, path Path) (int, error) {
	n, indef, err := d.extent(x, data, off, path)
	if err != nil {
		return 0, err
	}
	h, tl, ll, _ := tlv.DecodeHeader(data)
	m := &x.meta
	m.Offset, m.TagLen, m.LenLen, m.ValueLen = off, tl, ll, n-tl-ll
	m.LenIndef = h.Length == tlv.LengthIndefinite
	if indef {
		d.lenient(x, path, "indefinite length in ANY")
	}
	x.raw, x.payloadOff = bytes.Clone(data[:n]), off
	return n, nil
}

func (x *Any) definedData() ([]byte, int) {
	return x.raw, x.payloadOff
}

// extent returns the length of the TLV at the start of data without decoding
// its contents. Indefinite lengths are followed into nested encodings. indef
// reports whether the TLV or any nested encoding used the indefinite length
// form.
func (d *decoder) extent(v Value, data []byte, off int, path Path) (n int, indef bool, err error) {
	h, tl, ll, err := tlv.DecodeHeader(data)
	if err != nil {
		return 0, false, headerError(v, off, path, err)
	}
	hl := tl + ll
	if h.Length != tlv.LengthIndefinite {
		if len(data)-hl < h.Length {
			return 0, false, d.errorAt(KindNotEnoughData, v, off, path, "need %d bytes, have %d", h.Length, len(data)-hl)
		}
		return hl + h.Length, false, nil
	}
	if !d.ctx.bered() {
		return 0, false, d.errorAt(KindLenIndefForm, v, off, path, "indefinite length")
	}
	for n = hl; ; {
		if len(data)-n < len(tlv.EndOfContents) {
			return 0, false, d.errorAt(KindNotEnoughData, v, off+n, path, "missing end-of-contents")
		}
		if tlv.IsEndOfContents(data[n:]) {
			return n + len(tlv.EndOfContents), true, nil
		}
		m, _, err := d.extent(v, data[n:], off+n, path)
		if err != nil {
			return 0, false, err
		}
		n += m
	}
}
