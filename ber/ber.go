// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ber implements the ASN.1 Basic Encoding Rules (BER) together with
// their canonical subsets, the Distinguished Encoding Rules (DER) and the
// Canonical Encoding Rules (CER). The encoding rules are defined in
// [Rec. ITU-T X.690].
// See also “[A Layman's Guide to a Subset of ASN.1, BER, and DER]”.
//
// # Values
//
// Every ASN.1 value is represented by a node implementing [Value]. A node
// carries its schema (tag, OPTIONAL, DEFAULT, bounds and type specific
// options) and optionally a value. Nodes without a value are not ready and act
// as decoding targets:
//
//	spec := ber.NewSequence([]ber.Field{
//		{"version", ber.With(new(ber.Integer), ber.Default(ber.NewInteger(0)))},
//		{"serial", new(ber.Integer)},
//	})
//	v, rest, err := ber.Decode(spec, data, nil)
//
// Nodes are immutable. Options are applied with [With] and values are set
// with the Of method of each type, both of which return new nodes.
//
// # Encoding
//
// Encode produces the DER encoding of a value and EncodeCER its CER encoding.
// Encoding uses a two-step process: first the size of every data value is
// computed and then the bytes are written. Components of a SEQUENCE or SET
// equal to their DEFAULT are omitted.
//
// # Decoding
//
// [Decode] validates the input according to DER unless a [Context] enables
// leniencies. Values decoded through a lenient path report Bered and carry
// their positions in the input via [Value.Meta]. [Events] decodes
// incrementally and yields every decoded value as soon as it is complete.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
// [A Layman's Guide to a Subset of ASN.1, BER, and DER]: http://luca.ntop.org/Teaching/Appunti/asn1.html
package ber

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/internal"
	"codello.dev/x/asn1/tlv"
)

// Value is the interface implemented by all ASN.1 value nodes of this
// package. The set of implementations is closed.
type Value interface {
	// Tag returns the outermost tag of the encoding of the value. This is the
	// explicit tag if one is used.
	Tag() asn1.Tag

	// Ready reports whether the value can be encoded.
	Ready() bool

	// Optional reports whether the value may be absent in a SEQUENCE or SET.
	// Values with a DEFAULT are always optional.
	Optional() bool

	// Default returns the DEFAULT value or nil.
	Default() Value

	// Meta returns information about the encoding the value was decoded
	// from. The zero Meta is returned for values that were not decoded.
	Meta() Meta

	// Bered reports whether the value or any of its components was decoded
	// using an encoding that is not valid DER.
	Bered() bool

	// Encode returns the DER encoding of the value.
	Encode() ([]byte, error)

	// EncodeCER returns the CER encoding of the value.
	EncodeCER() ([]byte, error)

	// String returns a short human-readable representation of the value.
	String() string

	node() *base
	clone() Value
	adopt(v Value) (Value, error)
	typeName() string
	content(cer bool) (constructed bool, l int, wt io.WriterTo, err error)
	decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error
}

// tlvEncoder is implemented by values without an own tag. They produce their
// complete TLV encoding instead of contents.
type tlvEncoder interface {
	encodeTLV(cer bool) (int, io.WriterTo, error)
}

// tlvDecoder is implemented by values without an own tag. They decode a
// complete TLV instead of contents.
type tlvDecoder interface {
	matchTag(t asn1.Tag) bool
	decodeTLV(d *decoder, data []byte, off int, path Path) (int, error)
}

// Field is a named component of a [Sequence], a SET or a [Choice].
type Field struct {
	Name  string
	Value Value
}

// Meta describes the position of a decoded value in its input.
type Meta struct {
	Offset   int  // absolute offset of the TLV, not including an explicit tag
	TagLen   int  // length of the identifier octets
	LenLen   int  // length of the length octets
	ValueLen int  // length of the contents, including end-of-contents if LenIndef
	LenIndef bool // the indefinite length form was used

	ExplTagLen   int  // length of the identifier octets of the explicit tag
	ExplLenLen   int  // length of the length octets of the explicit tag
	ExplValueLen int  // length of the contents of the explicit tag
	ExplLenIndef bool // the explicit tag used the indefinite length form

	// BEREncoded is set if the value itself used an encoding that is valid
	// BER but not valid DER.
	BEREncoded bool

	// Bered is set if BEREncoded, LenIndef or ExplLenIndef is set on the value
	// or any of its components, or if a lenient decoding rule applied to it.
	Bered bool
}

// TLVLen returns the length of the encoding without an explicit tag.
func (m Meta) TLVLen() int {
	return m.TagLen + m.LenLen + m.ValueLen
}

// ExplTLVLen returns the length of the encoding including an explicit tag. If
// no explicit tag is used, it equals TLVLen.
func (m Meta) ExplTLVLen() int {
	if m.ExplTagLen == 0 {
		return m.TLVLen()
	}
	return m.ExplTagLen + m.ExplLenLen + m.ExplValueLen
}

// ExplOffset returns the offset of the encoding including an explicit tag.
func (m Meta) ExplOffset() int {
	return m.Offset - m.ExplTagLen - m.ExplLenLen
}

//region type base

// base holds the schema and the decoding metadata shared by all values.
type base struct {
	tag      asn1.Tag
	expl     asn1.Tag
	explicit bool
	optional bool
	def      Value
	bounds   *bounds
	meta     Meta
}

type bounds struct {
	lo, hi int64
}

func (b *bounds) contains(n int64) bool {
	return b == nil || b.lo <= n && n <= b.hi
}

func (b *base) node() *base { return b }

// init sets the tag to [UNIVERSAL n] unless a tag has been set already. The
// zero Tag is reserved for end-of-contents and never used by a value.
func (b *base) init(n uint) {
	if b.tag == (asn1.Tag{}) {
		b.tag = asn1.Universal(n)
	}
}

func (b *base) Tag() asn1.Tag {
	if b.explicit {
		return b.expl
	}
	return b.tag
}

// Explicit returns the explicit tag of the value and whether one is used.
func (b *base) Explicit() (asn1.Tag, bool) {
	return b.expl, b.explicit
}

func (b *base) Optional() bool { return b.optional || b.def != nil }

func (b *base) Default() Value { return b.def }

func (b *base) Meta() Meta { return b.meta }

func (b *base) Bered() bool { return b.meta.Bered }

//endregion

//region options

// An Option modifies the schema of a value. Options are applied using [With].
// Applying an option to a value of a type it is not meant for panics.
type Option func(v Value)

// With returns a copy of v with opts applied. If a DEFAULT is set and v has
// no value, the result takes the value of the DEFAULT.
func With[V Value](v V, opts ...Option) V {
	c := v.clone()
	for _, opt := range opts {
		opt(c)
	}
	if b := c.node(); b.def != nil && !c.Ready() {
		nv, err := c.adopt(b.def)
		if err != nil {
			panic(err)
		}
		c = nv
	}
	return c.(V)
}

// Impl sets the implicit tag of a value.
func Impl(t asn1.Tag) Option {
	return func(v Value) {
		if _, ok := v.(tlvDecoder); ok {
			panic(fmt.Sprintf("ber: %s cannot be tagged implicitly", v.typeName()))
		}
		b := v.node()
		b.tag = t
		b.explicit = false
	}
}

// Expl wraps a value in an explicit tag.
func Expl(t asn1.Tag) Option {
	return func(v Value) {
		b := v.node()
		b.expl = t
		b.explicit = true
	}
}

// Optional marks a value as OPTIONAL.
func Optional() Option {
	return func(v Value) { v.node().optional = true }
}

// Default sets the DEFAULT value of a value. def must be of the same type as
// the value it is applied to. A value with a DEFAULT is optional.
func Default(def Value) Option {
	return func(v Value) {
		if reflect.TypeOf(v) != reflect.TypeOf(def) {
			panic(fmt.Sprintf("ber: DEFAULT of type %T for %T", def, v))
		}
		if !def.Ready() {
			panic("ber: DEFAULT value is not ready")
		}
		v.node().def = def
	}
}

// Bounds restricts a value to the inclusive range [lo, hi]. For INTEGER
// values this is the range of the value, for strings the number of
// characters, for BIT STRING values the number of bits, for OCTET STRING
// values the number of bytes and for SEQUENCE OF and SET OF values the number
// of elements.
func Bounds(lo, hi int64) Option {
	return func(v Value) {
		switch v.(type) {
		case *Integer, *OctetString, *BitString, *String, *SequenceOf:
		default:
			panic(fmt.Sprintf("ber: %s has no bounds", v.typeName()))
		}
		v.node().bounds = &bounds{lo, hi}
	}
}

// Params applies a tag parameter string like "application,tag:5,explicit,optional".
// A tag number without a class keyword is context-specific. Without "explicit"
// the tag is applied implicitly. Params panics if s is malformed.
func Params(s string) Option {
	p, err := internal.ParseFieldParameters(s)
	if err != nil {
		panic("ber: " + err.Error())
	}
	return func(v Value) {
		switch {
		case p.Explicit:
			Expl(p.Tag)(v)
		case p.HasTag:
			Impl(p.Tag)(v)
		}
		if p.Optional {
			Optional()(v)
		}
	}
}

//endregion

//region encoding

// writerFunc wraps a function and implements the [io.WriterTo] interface.
type writerFunc func(io.Writer) (int64, error)

func (fn writerFunc) WriteTo(w io.Writer) (int64, error) {
	return fn(w)
}

// bytesWriter returns an [io.WriterTo] that writes bs.
func bytesWriter(bs ...[]byte) io.WriterTo {
	return writerFunc(func(w io.Writer) (n int64, err error) {
		for _, b := range bs {
			m, err := w.Write(b)
			n += int64(m)
			if err != nil {
				return n, err
			}
		}
		return n, nil
	})
}

// encode returns the DER or CER encoding of v.
func encode(v Value, cer bool) ([]byte, error) {
	n, wt, err := encodeValue(v, cer)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, n))
	_, err = wt.WriteTo(buf)
	return buf.Bytes(), err
}

// encodeValue computes the size of the complete encoding of v and returns a
// writer that writes it.
func encodeValue(v Value, cer bool) (n int, wt io.WriterTo, err error) {
	if !v.Ready() {
		return 0, nil, newError(KindObjNotReady, v, "value is not ready")
	}
	b := v.node()
	if t, ok := v.(tlvEncoder); ok {
		n, wt, err = t.encodeTLV(cer)
	} else {
		var constructed bool
		var l int
		constructed, l, wt, err = v.content(cer)
		if err == nil {
			n, wt = frame(tlv.Header{Tag: b.tag, Constructed: constructed, Length: l}, wt, cer && constructed)
		}
	}
	if err != nil || !b.explicit {
		return n, wt, err
	}
	n, wt = frame(tlv.Header{Tag: b.expl, Constructed: true, Length: n}, wt, cer)
	return n, wt, nil
}

// frame prefixes the contents written by wt with h. If indef is true, the
// indefinite length form is used and an end-of-contents marker is appended.
// The returned size is the size of the complete encoding.
func frame(h tlv.Header, wt io.WriterTo, indef bool) (int, io.WriterTo) {
	l := h.Length
	if indef {
		h.Length = tlv.LengthIndefinite
		l += len(tlv.EndOfContents)
	}
	return h.Size() + l, writerFunc(func(w io.Writer) (n int64, err error) {
		if n, err = h.WriteTo(w); err != nil {
			return n, err
		}
		m, err := wt.WriteTo(w)
		n += m
		if err != nil || !indef {
			return n, err
		}
		k, err := w.Write(tlv.EndOfContents)
		return n + int64(k), err
	})
}

// valueBytes returns the contents of v or, for values without an own tag,
// their complete encoding. Two values of the same type are considered equal if
// their value bytes are equal.
func valueBytes(v Value) ([]byte, error) {
	if !v.Ready() {
		return nil, newError(KindObjNotReady, v, "value is not ready")
	}
	var l int
	var wt io.WriterTo
	var err error
	if t, ok := v.(tlvEncoder); ok {
		l, wt, err = t.encodeTLV(false)
	} else {
		_, l, wt, err = v.content(false)
	}
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, l))
	_, err = wt.WriteTo(buf)
	return buf.Bytes(), err
}

// equalValues reports whether a and b hold the same value.
func equalValues(a, b Value) bool {
	if a == nil || b == nil || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if streamed(a) || streamed(b) {
		return false
	}
	ab, err := valueBytes(a)
	if err != nil {
		return false
	}
	bb, err := valueBytes(b)
	return err == nil && bytes.Equal(ab, bb)
}

// Equal reports whether a and b are of the same type and hold the same value.
// Tags and other schema options are not compared.
func Equal(a, b Value) bool {
	return equalValues(a, b)
}

//endregion

// matchesTag reports whether an encoding with tag t can be decoded by v.
func matchesTag(v Value, t asn1.Tag) bool {
	b := v.node()
	if b.explicit {
		return b.expl == t
	}
	if m, ok := v.(tlvDecoder); ok {
		return m.matchTag(t)
	}
	return b.tag == t
}

// sortTag returns the tag that determines the position of v in a canonical
// SET. Values without an own tag use the tag of their value.
func sortTag(v Value) asn1.Tag {
	return v.Tag()
}
