// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// NamedBits sets the names of the bits of a BIT STRING.
func NamedBits(names map[string]int) Option {
	return func(v Value) {
		x, ok := v.(*BitString)
		if !ok {
			panic(fmt.Sprintf("ber: %s has no named bits", v.typeName()))
		}
		x.names = maps.Clone(names)
	}
}

//region [UNIVERSAL 3] BIT STRING

// BitString implements the ASN.1 BIT STRING type. The number of bits may be
// restricted using [Bounds]. Padding bits are encoded as zero bits. A
// BitString can be the target of [Defines], its bytes are then decoded as the
// defined type.
type BitString struct {
	base
	definable
	val   asn1.BitString
	set   bool
	names map[string]int
}

// NewBitString returns a BIT STRING holding bs.
func NewBitString(bs asn1.BitString) *BitString {
	return &BitString{base: base{tag: asn1.Universal(asn1.TagBitString)}, val: bs, set: true}
}

// Of returns a copy of x holding bs. An error is returned if bs is invalid or
// its length is outside the bounds of x.
func (x *BitString) Of(bs asn1.BitString) (*BitString, error) {
	if !bs.IsValid() {
		return nil, newError(KindInvalidValueType, x, "invalid bit string")
	}
	if !x.bounds.contains(int64(bs.BitLength)) {
		return nil, newError(KindBounds, x, "%d bits out of bounds [%d, %d]", bs.BitLength, x.bounds.lo, x.bounds.hi)
	}
	c := x.clone().(*BitString)
	c.val = asn1.BitString{Bytes: slices.Clone(bs.Bytes[:(bs.BitLength+7)/8]), BitLength: bs.BitLength}
	c.set, c.defined = true, nil
	return c, nil
}

// OfBools returns a copy of x holding bits. Trailing zero bits are removed as
// long as the lower bound of x permits it.
func (x *BitString) OfBools(bits []bool) (*BitString, error) {
	minLen := 0
	if x.bounds != nil && x.bounds.lo > 0 {
		minLen = int(x.bounds.lo)
	}
	return x.Of(asn1.BitStringFromBools(bits).TrimRight(minLen))
}

// OfNames returns a copy of x with the named bits set. An error of kind
// [KindObjUnknown] is returned if a name is not known.
func (x *BitString) OfNames(names ...string) (*BitString, error) {
	var bits []bool
	for _, name := range names {
		i, ok := x.names[name]
		if !ok {
			return nil, newError(KindObjUnknown, x, "unknown bit %q", name)
		}
		if i >= len(bits) {
			bits = append(bits, make([]bool, i+1-len(bits))...)
		}
		bits[i] = true
	}
	return x.OfBools(bits)
}

// Value returns the value of x. The result must not be modified.
func (x *BitString) Value() asn1.BitString { return x.val }

// At reports whether bit i is set. Bits outside of x are reported as unset.
func (x *BitString) At(i int) bool { return x.val.At(i) }

// Names returns the names of the set bits in ascending bit order.
func (x *BitString) Names() []string {
	var ret []string
	for _, name := range slices.Sorted(maps.Keys(x.names)) {
		if x.val.At(x.names[name]) {
			ret = append(ret, name)
		}
	}
	slices.SortStableFunc(ret, func(a, b string) int { return x.names[a] - x.names[b] })
	return ret
}

func (x *BitString) Ready() bool                { return x.set }
func (x *BitString) Encode() ([]byte, error)    { return encode(x, false) }
func (x *BitString) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *BitString) typeName() string           { return "BIT STRING" }

func (x *BitString) String() string {
	if !x.set {
		return "BIT STRING"
	}
	if names := x.Names(); len(names) > 0 {
		return strings.Join(names, ", ")
	}
	if x.val.BitLength > 64 {
		return fmt.Sprintf("%d bits", x.val.BitLength)
	}
	return "'" + strings.ReplaceAll(x.val.String(), " ", "") + "'B"
}

func (x *BitString) clone() Value {
	c := *x
	c.init(asn1.TagBitString)
	return &c
}

func (x *BitString) adopt(v Value) (Value, error) {
	src, ok := v.(*BitString)
	if !ok || !src.set {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

// payload returns the bytes of x with zeroed padding bits and the number of
// padding bits.
func (x *BitString) payload() ([]byte, byte) {
	padding := byte((8 - x.val.BitLength%8) % 8)
	bs := x.val.Bytes[:(x.val.BitLength+7)/8]
	if padding == 0 || bs[len(bs)-1]&(1<<padding-1) == 0 {
		return bs, padding
	}
	bs = slices.Clone(bs)
	bs[len(bs)-1] &^= 1<<padding - 1
	return bs, padding
}

func (x *BitString) content(cer bool) (bool, int, io.WriterTo, error) {
	if !x.bounds.contains(int64(x.val.BitLength)) {
		return false, 0, nil, newError(KindBounds, x, "%d bits out of bounds [%d, %d]", x.val.BitLength, x.bounds.lo, x.bounds.hi)
	}
	bs, padding := x.payload()
	if !cer || len(bs) < cerChunkSize {
		return false, 1 + len(bs), bytesWriter([]byte{padding}, bs), nil
	}
	// Every chunk holds cerChunkSize-1 bytes and one byte for the padding.
	var parts [][]byte
	l := 0
	for len(bs) > 0 {
		n := min(len(bs), cerChunkSize-1)
		p := byte(0)
		if n == len(bs) {
			p = padding
		}
		h := tlv.Header{Tag: asn1.Universal(asn1.TagBitString), Length: 1 + n}
		hb := append(h.Append(nil), p)
		parts = append(parts, hb, bs[:n])
		l += len(hb) + n
		bs = bs[n:]
	}
	return true, l, bytesWriter(parts...), nil
}

func (x *BitString) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	x.payloadOff = c.off + 1
	var buf []byte
	var padding byte
	parse := func(chunk []byte, off int) error {
		if padding != 0 {
			return d.errorAt(KindDecode, x, off, path, "BIT STRING chunk is not a multiple of 8 bits")
		}
		if len(chunk) == 0 {
			return d.errorAt(KindDecode, x, off, path, "zero length BIT STRING")
		}
		padding = chunk[0]
		if padding > 7 || len(chunk) == 1 && padding > 0 {
			return d.errorAt(KindDecode, x, off, path, "invalid padding %d", padding)
		}
		buf = append(buf, chunk[1:]...)
		return nil
	}
	if !h.Constructed {
		if err := parse(c.rest(), c.off); err != nil {
			return err
		}
	} else {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "constructed encoding requires BER")
		}
		if err := d.chunks(x, c, asn1.TagBitString, path, parse); err != nil {
			return err
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "constructed BIT STRING")
	}
	if buf == nil {
		buf = []byte{}
	}
	if mask := byte(1<<padding - 1); len(buf) > 0 && buf[len(buf)-1]&mask != 0 {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "nonzero padding bits")
		}
		buf[len(buf)-1] &^= mask
		x.meta.BEREncoded = true
		d.lenient(x, path, "nonzero padding bits")
	}
	x.val = asn1.BitString{Bytes: buf, BitLength: len(buf)*8 - int(padding)}
	if !x.bounds.contains(int64(x.val.BitLength)) {
		return d.errorf(KindDecode, x, path, "bounds")
	}
	x.set = true
	return nil
}

func (x *BitString) definedData() ([]byte, int) {
	return x.val.Bytes, x.payloadOff
}

//endregion
