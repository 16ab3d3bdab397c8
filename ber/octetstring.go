// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// cerChunkSize is the maximum number of content bytes of a primitive string
// encoding in CER. Longer strings use the constructed form.
const cerChunkSize = 1000

//region [UNIVERSAL 4] OCTET STRING

// OctetString implements the ASN.1 OCTET STRING type. The number of bytes may
// be restricted using [Bounds]. An OctetString can be the target of
// [Defines], its contents are then decoded as the defined type.
type OctetString struct {
	base
	definable
	val []byte
	set bool
}

// NewOctetString returns an OCTET STRING holding a copy of b.
func NewOctetString(b []byte) *OctetString {
	return &OctetString{base: base{tag: asn1.Universal(asn1.TagOctetString)}, val: bytes.Clone(b), set: true}
}

// Of returns a copy of x holding a copy of b. An error of kind [KindBounds] is
// returned if the length of b is outside the bounds of x.
func (x *OctetString) Of(b []byte) (*OctetString, error) {
	if !x.bounds.contains(int64(len(b))) {
		return nil, newError(KindBounds, x, "length %d out of bounds [%d, %d]", len(b), x.bounds.lo, x.bounds.hi)
	}
	c := x.clone().(*OctetString)
	c.val, c.set, c.defined = bytes.Clone(b), true, nil
	return c, nil
}

// Bytes returns the value of x. The result must not be modified.
func (x *OctetString) Bytes() []byte { return x.val }

func (x *OctetString) Ready() bool                { return x.set }
func (x *OctetString) Encode() ([]byte, error)    { return encode(x, false) }
func (x *OctetString) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *OctetString) typeName() string           { return "OCTET STRING" }

func (x *OctetString) String() string {
	if !x.set {
		return "OCTET STRING"
	}
	if len(x.val) > 24 {
		return fmt.Sprintf("%d bytes", len(x.val))
	}
	return fmt.Sprintf("% X", x.val)
}

func (x *OctetString) clone() Value {
	c := *x
	c.init(asn1.TagOctetString)
	return &c
}

func (x *OctetString) adopt(v Value) (Value, error) {
	src, ok := v.(*OctetString)
	if !ok || !src.set {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

func (x *OctetString) content(cer bool) (bool, int, io.WriterTo, error) {
	if !x.bounds.contains(int64(len(x.val))) {
		return false, 0, nil, newError(KindBounds, x, "length %d out of bounds [%d, %d]", len(x.val), x.bounds.lo, x.bounds.hi)
	}
	return stringContent(x.val, cer)
}

func (x *OctetString) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	x.payloadOff = c.off
	val, err := d.stringBytes(x, h, c, path)
	if err != nil {
		return err
	}
	if !x.bounds.contains(int64(len(val))) {
		return d.errorf(KindDecode, x, path, "bounds")
	}
	x.val, x.set = val, true
	return nil
}

func (x *OctetString) definedData() ([]byte, int) {
	return x.val, x.payloadOff
}

//endregion

// stringContent returns the contents of an OCTET STRING or a restricted
// character string. In CER strings longer than cerChunkSize bytes are split
// into primitive OCTET STRING chunks.
func stringContent(b []byte, cer bool) (bool, int, io.WriterTo, error) {
	if !cer || len(b) <= cerChunkSize {
		return false, len(b), bytesWriter(b), nil
	}
	var parts [][]byte
	l := 0
	for chunk := range slices.Chunk(b, cerChunkSize) {
		h := tlv.Header{Tag: asn1.Universal(asn1.TagOctetString), Length: len(chunk)}
		hb := h.Append(nil)
		parts = append(parts, hb, chunk)
		l += len(hb) + len(chunk)
	}
	return true, l, bytesWriter(parts...), nil
}

// stringBytes returns the contents of a possibly constructed string
// encoding. Constructed encodings are only accepted under BER and consist of
// OCTET STRING chunks.
func (d *decoder) stringBytes(v Value, h tlv.Header, c *cursor, path Path) ([]byte, error) {
	if !h.Constructed {
		return bytes.Clone(c.rest()), nil
	}
	if !d.ctx.bered() {
		return nil, d.errorf(KindDecode, v, path, "constructed encoding requires BER")
	}
	var buf []byte
	err := d.chunks(v, c, asn1.TagOctetString, path, func(chunk []byte, _ int) error {
		buf = append(buf, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.node().meta.BEREncoded = true
	d.lenient(v, path, "constructed string")
	if buf == nil {
		buf = []byte{}
	}
	return buf, nil
}

// chunks calls fn for the contents of every primitive chunk in c. Chunks must
// be tagged [UNIVERSAL chunkTag] and may be constructed themselves.
func (d *decoder) chunks(v Value, c *cursor, chunkTag uint, path Path, fn func(chunk []byte, off int) error) error {
	for c.more() {
		h, tl, ll, err := tlv.DecodeHeader(c.data)
		if err != nil {
			return headerError(v, c.off, path, err)
		}
		if h.Tag != asn1.Universal(chunkTag) {
			return d.errorAt(KindDecode, v, c.off, path, "expected %s chunk, got %s", asn1.Universal(chunkTag), h.Tag)
		}
		hl := tl + ll
		if h.Length != tlv.LengthIndefinite && len(c.data)-hl < h.Length {
			if c.indef {
				return d.errorAt(KindNotEnoughData, v, c.off, path, "chunk needs %d bytes, have %d", h.Length, len(c.data)-hl)
			}
			return d.errorAt(KindDecode, v, c.off, path, "chunk out of bounds")
		}
		if !h.Constructed {
			if err = fn(c.data[hl:hl+h.Length], c.off+hl); err != nil {
				return err
			}
			c.advance(hl + h.Length)
			continue
		}
		sub := &cursor{off: c.off + hl}
		if h.Length == tlv.LengthIndefinite {
			sub.data, sub.indef = c.data[hl:], true
		} else {
			sub.data = c.data[hl : hl+h.Length]
		}
		if err = d.chunks(v, sub, chunkTag, path, fn); err != nil {
			return err
		}
		if !sub.indef {
			c.advance(hl + h.Length)
			continue
		}
		if len(sub.data) < len(tlv.EndOfContents) {
			return d.errorAt(KindNotEnoughData, v, sub.off, path, "missing end-of-contents")
		}
		c.advance(sub.off + len(tlv.EndOfContents) - c.off)
	}
	return nil
}
