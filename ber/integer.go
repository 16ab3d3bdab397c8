// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"math/big"
	"slices"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// Named sets the named values of an INTEGER or ENUMERATED.
func Named(names map[string]int64) Option {
	return func(v Value) {
		switch x := v.(type) {
		case *Integer:
			x.names = maps.Clone(names)
		case *Enumerated:
			x.names = maps.Clone(names)
		default:
			panic(fmt.Sprintf("ber: %s has no named values", v.typeName()))
		}
	}
}

//region [UNIVERSAL 2] INTEGER

// Integer implements the ASN.1 INTEGER type. The size of the value is not
// limited. Values may be restricted using [Bounds] and aliased using [Named].
// The zero value is an INTEGER without a value.
type Integer struct {
	base
	val   *big.Int
	names map[string]int64
}

// NewInteger returns an INTEGER holding i.
func NewInteger(i int64) *Integer {
	return &Integer{base: base{tag: asn1.Universal(asn1.TagInteger)}, val: big.NewInt(i)}
}

// NewBigInteger returns an INTEGER holding a copy of i.
func NewBigInteger(i *big.Int) *Integer {
	return &Integer{base: base{tag: asn1.Universal(asn1.TagInteger)}, val: new(big.Int).Set(i)}
}

// Of returns a copy of x holding i. An error of kind [KindBounds] is returned
// if i is outside the bounds of x.
func (x *Integer) Of(i int64) (*Integer, error) {
	return x.OfBig(big.NewInt(i))
}

// OfBig works like [Integer.Of] for big integers.
func (x *Integer) OfBig(i *big.Int) (*Integer, error) {
	if !x.bounds.containsBig(i) {
		return nil, newError(KindBounds, x, "%s out of bounds [%d, %d]", i, x.bounds.lo, x.bounds.hi)
	}
	c := x.clone().(*Integer)
	c.val = new(big.Int).Set(i)
	return c, nil
}

// OfName returns a copy of x holding the named value name. An error of kind
// [KindObjUnknown] is returned if name is not known.
func (x *Integer) OfName(name string) (*Integer, error) {
	i, ok := x.names[name]
	if !ok {
		return nil, newError(KindObjUnknown, x, "unknown name %q", name)
	}
	return x.Of(i)
}

// Int64 returns the value of x and whether it fits into an int64.
func (x *Integer) Int64() (int64, bool) {
	if x.val == nil || !x.val.IsInt64() {
		return 0, false
	}
	return x.val.Int64(), true
}

// Big returns a copy of the value of x or nil.
func (x *Integer) Big() *big.Int {
	if x.val == nil {
		return nil
	}
	return new(big.Int).Set(x.val)
}

// Name returns the name of the value of x or an empty string.
func (x *Integer) Name() string {
	return nameOf(x.names, x.val)
}

func (x *Integer) Ready() bool                { return x.val != nil }
func (x *Integer) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Integer) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Integer) typeName() string           { return "INTEGER" }

func (x *Integer) String() string {
	if x.val == nil {
		return "INTEGER"
	}
	if name := x.Name(); name != "" {
		return name + " (" + x.val.String() + ")"
	}
	return x.val.String()
}

func (x *Integer) clone() Value {
	c := *x
	c.init(asn1.TagInteger)
	return &c
}

func (x *Integer) adopt(v Value) (Value, error) {
	src, ok := v.(*Integer)
	if !ok || src.val == nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.OfBig(src.val)
}

func (x *Integer) content(bool) (bool, int, io.WriterTo, error) {
	if !x.bounds.containsBig(x.val) {
		return false, 0, nil, newError(KindBounds, x, "%s out of bounds [%d, %d]", x.val, x.bounds.lo, x.bounds.hi)
	}
	bs := appendInteger(nil, x.val)
	return false, len(bs), bytesWriter(bs), nil
}

func (x *Integer) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	i, err := parseInteger(c.rest())
	if err != nil {
		return d.errorf(KindDecode, x, path, "%s", err)
	}
	if !x.bounds.containsBig(i) {
		return d.errorf(KindDecode, x, path, "bounds")
	}
	x.val = i
	return nil
}

//endregion

//region [UNIVERSAL 10] ENUMERATED

// Enumerated implements the ASN.1 ENUMERATED type. Only the values given to
// [NewEnumerated] are valid.
type Enumerated struct {
	base
	val   *big.Int
	names map[string]int64
}

// NewEnumerated returns an ENUMERATED without a value that accepts the values
// of names.
func NewEnumerated(names map[string]int64) *Enumerated {
	return &Enumerated{base: base{tag: asn1.Universal(asn1.TagEnumerated)}, names: maps.Clone(names)}
}

// Of returns a copy of x holding the value called name. An error of kind
// [KindObjUnknown] is returned if name is not known.
func (x *Enumerated) Of(name string) (*Enumerated, error) {
	i, ok := x.names[name]
	if !ok {
		return nil, newError(KindObjUnknown, x, "unknown name %q", name)
	}
	c := x.clone().(*Enumerated)
	c.val = big.NewInt(i)
	return c, nil
}

// OfInt returns a copy of x holding i. An error of kind
// [KindInvalidValueType] is returned if i is not a known value.
func (x *Enumerated) OfInt(i int64) (*Enumerated, error) {
	if nameOf(x.names, big.NewInt(i)) == "" {
		return nil, newError(KindInvalidValueType, x, "unknown value %d", i)
	}
	c := x.clone().(*Enumerated)
	c.val = big.NewInt(i)
	return c, nil
}

// Int64 returns the value of x. The second return value is false if x has no
// value or the value does not fit.
func (x *Enumerated) Int64() (int64, bool) {
	if x.val == nil || !x.val.IsInt64() {
		return 0, false
	}
	return x.val.Int64(), true
}

// Name returns the name of the value of x.
func (x *Enumerated) Name() string {
	return nameOf(x.names, x.val)
}

func (x *Enumerated) Ready() bool                { return x.val != nil }
func (x *Enumerated) Encode() ([]byte, error)    { return encode(x, false) }
func (x *Enumerated) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *Enumerated) typeName() string           { return "ENUMERATED" }

func (x *Enumerated) String() string {
	if x.val == nil {
		return "ENUMERATED"
	}
	return x.Name() + " (" + x.val.String() + ")"
}

func (x *Enumerated) clone() Value {
	c := *x
	c.init(asn1.TagEnumerated)
	return &c
}

func (x *Enumerated) adopt(v Value) (Value, error) {
	src, ok := v.(*Enumerated)
	if !ok || src.val == nil || !src.val.IsInt64() {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.OfInt(src.val.Int64())
}

func (x *Enumerated) content(bool) (bool, int, io.WriterTo, error) {
	bs := appendInteger(nil, x.val)
	return false, len(bs), bytesWriter(bs), nil
}

func (x *Enumerated) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.primitive(x, h, path); err != nil {
		return err
	}
	i, err := parseInteger(c.rest())
	if err != nil {
		return d.errorf(KindDecode, x, path, "%s", err)
	}
	if nameOf(x.names, i) == "" {
		return d.errorf(KindDecode, x, path, "unknown ENUMERATED value %s", i)
	}
	x.val = i
	return nil
}

//endregion

// nameOf returns the name of i in names. If multiple names share a value the
// alphabetically first is returned.
func nameOf(names map[string]int64, i *big.Int) string {
	if i == nil || !i.IsInt64() {
		return ""
	}
	for _, name := range slices.Sorted(maps.Keys(names)) {
		if names[name] == i.Int64() {
			return name
		}
	}
	return ""
}

func (b *bounds) containsBig(i *big.Int) bool {
	if b == nil {
		return true
	}
	return i.IsInt64() && b.contains(i.Int64())
}

var bigOne = big.NewInt(1)

// appendInteger appends the minimal two's complement representation of i.
func appendInteger(b []byte, i *big.Int) []byte {
	switch i.Sign() {
	case 0:
		// Zero is written as a single 0 zero rather than no bytes.
		return append(b, 0x00)
	case -1:
		// A negative number has to be converted to two's-complement
		// form. So we'll invert and subtract 1. If the
		// most-significant-bit isn't set then we'll need to pad the
		// beginning with 0xff in order to keep the number negative.
		nMinus1 := new(big.Int).Neg(i)
		nMinus1.Sub(nMinus1, bigOne)
		bs := nMinus1.Bytes()
		for j := range bs {
			bs[j] ^= 0xff
		}
		if len(bs) == 0 || bs[0]&0x80 == 0 {
			b = append(b, 0xff)
		}
		return append(b, bs...)
	default:
		bs := i.Bytes()
		if bs[0]&0x80 != 0 {
			// We'll have to pad this with 0x00 in order to stop it
			// looking like a negative number.
			b = append(b, 0x00)
		}
		return append(b, bs...)
	}
}

// parseInteger parses a minimally encoded two's complement integer.
func parseInteger(bs []byte) (*big.Int, error) {
	if len(bs) == 0 {
		return nil, errors.New("zero length INTEGER")
	}
	if len(bs) > 1 && (bs[0] == 0x00 && bs[1]&0x80 == 0x00 || bs[0] == 0xFF && bs[1]&0x80 == 0x80) {
		return nil, errors.New("non normalized INTEGER")
	}
	i := new(big.Int)
	if bs[0]&0x80 == 0 {
		return i.SetBytes(bs), nil
	}
	// negative integer, calculate 2s complement
	inv := make([]byte, len(bs))
	for j := range bs {
		inv[j] = ^bs[j]
	}
	i.SetBytes(inv)
	i.Add(i, bigOne)
	return i.Neg(i), nil
}
