// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"codello.dev/x/asn1/tlv"
)

// Decode decodes the first value in data according to spec. It returns the
// decoded value and the bytes following it. Bytes following the value are not
// an error, see [Unmarshal]. A nil ctx decodes strictly according to DER.
//
// The returned value is a new node with the schema of spec. spec itself is not
// modified.
func Decode[V Value](spec V, data []byte, ctx *Context) (V, []byte, error) {
	return DecodeAt(spec, data, 0, nil, ctx)
}

// DecodeAt works like [Decode] but reports offsets relative to offset and
// paths relative to path. This is useful when data is part of a larger
// structure.
func DecodeAt[V Value](spec V, data []byte, offset int, path Path, ctx *Context) (V, []byte, error) {
	d := newDecoder(ctx)
	v, n, err := d.decodeValue(spec, data, offset, path)
	if err != nil {
		var zero V
		return zero, data, err
	}
	return v.(V), data[n:], nil
}

// Unmarshal works like [Decode] but data must contain exactly one value.
// Trailing bytes cause an error of kind [KindExceedingData].
func Unmarshal[V Value](spec V, data []byte, ctx *Context) (V, error) {
	v, rest, err := Decode(spec, data, ctx)
	if err == nil && len(rest) > 0 {
		err = &Error{
			Kind:   KindExceedingData,
			Type:   spec.typeName(),
			Offset: len(data) - len(rest),
			Msg:    fmt.Sprintf("%d trailing bytes", len(rest)),
		}
	}
	return v, err
}

// An Event is produced by [Events] for every decoded value. Value may contain
// SEQUENCE OF and SET OF nodes without their elements, see [Events].
type Event struct {
	Path  Path
	Value Value
	Tail  []byte // input following the value
}

// Events decodes data according to spec and yields an event for every value as
// soon as it is decoded. Components are yielded before the values containing
// them, the last event holds the top-level value and the remaining input.
//
// Elements of SEQUENCE OF and SET OF values are not retained by their
// containers, so that large inputs can be inspected with bounded memory. Such
// containers report their element count but are not ready and cannot be
// encoded, neither can values containing them. If
// decoding fails, the error is yielded once and the sequence ends. The
// sequence can only be iterated once per call.
func Events(spec Value, data []byte, ctx *Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		d := newDecoder(ctx)
		d.yield = func(e Event) bool {
			return yield(e, nil)
		}
		if _, _, err := d.decodeValue(spec, data, 0, nil); err != nil && !errors.Is(err, errStop) {
			yield(Event{}, err)
		}
	}
}

// decoder holds the state of a single decoding call.
type decoder struct {
	ctx   *Context
	log   *zerolog.Logger
	yield func(Event) bool

	// bered collects the Bered flag of the values decoded since the current
	// value began.
	bered bool

	// pending holds open types resolved by an OBJECT IDENTIFIER that were not
	// decoded yet, keyed by their absolute path.
	pending map[string]definedBy
}

func newDecoder(ctx *Context) *decoder {
	return &decoder{ctx: ctx, log: ctx.logger()}
}

// streaming reports whether containers should drop their elements.
func (d *decoder) streaming() bool {
	return d.yield != nil
}

// errorf returns an error located at the start of v.
func (d *decoder) errorf(k Kind, v Value, path Path, format string, args ...any) *Error {
	return d.errorAt(k, v, v.node().meta.Offset, path, format, args...)
}

// errorAt returns an error located at off.
func (d *decoder) errorAt(k Kind, v Value, off int, path Path, format string, args ...any) *Error {
	return &Error{Kind: k, Type: v.typeName(), Offset: off, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// lenient records that a BER-only rule was applied to v.
func (d *decoder) lenient(v Value, path Path, msg string) {
	d.bered = true
	d.log.Debug().
		Int("offset", v.node().meta.Offset).
		Str("path", path.String()).
		Str("type", v.typeName()).
		Msg(msg)
}

// cursor walks the contents of a constructed encoding.
type cursor struct {
	data  []byte
	off   int // absolute offset of data[0]
	indef bool
}

// more reports whether another value follows in the contents.
func (c *cursor) more() bool {
	if c.indef {
		return len(c.data) > 0 && !tlv.IsEndOfContents(c.data)
	}
	return len(c.data) > 0
}

func (c *cursor) advance(n int) {
	c.data = c.data[n:]
	c.off += n
}

// rest consumes and returns the remaining contents.
func (c *cursor) rest() []byte {
	b := c.data
	c.advance(len(b))
	return b
}

// decodeValue decodes a clone of spec from the start of data. off is the
// absolute offset of data. It returns the decoded value and the number of
// bytes consumed.
func (d *decoder) decodeValue(spec Value, data []byte, off int, path Path) (Value, int, error) {
	v := spec.clone()
	b := v.node()
	b.meta = Meta{}
	outer := d.bered
	d.bered = false

	var n int
	var err error
	if b.explicit {
		n, err = d.decodeExplicit(v, data, off, path)
	} else {
		n, err = d.decodeInner(v, data, off, path)
	}
	if err == nil {
		err = d.resolve(v, path)
	}
	if err != nil {
		d.bered = outer
		return nil, 0, err
	}
	m := &b.meta
	m.Bered = d.bered || m.BEREncoded || m.LenIndef || m.ExplLenIndef
	d.bered = outer || m.Bered

	if d.yield != nil && !d.yield(Event{Path: path, Value: v, Tail: data[n:]}) {
		return nil, 0, errStop
	}
	return v, n, nil
}

// decodeExplicit decodes v wrapped in its explicit tag.
func (d *decoder) decodeExplicit(v Value, data []byte, off int, path Path) (int, error) {
	b := v.node()
	h, tl, ll, err := tlv.DecodeHeader(data)
	if err != nil {
		return 0, headerError(v, off, path, err)
	}
	if h.Tag != b.expl {
		return 0, d.errorAt(KindTagMismatch, v, off, path, "expected %s, got %s", b.expl, h.Tag)
	}
	if !h.Constructed {
		return 0, d.errorAt(KindDecode, v, off, path, "explicit tag %s is primitive", h.Tag)
	}
	hl := tl + ll
	b.meta.ExplTagLen, b.meta.ExplLenLen = tl, ll
	if h.Length == tlv.LengthIndefinite {
		if !d.ctx.bered() {
			return 0, d.errorAt(KindLenIndefForm, v, off, path, "indefinite length of explicit tag")
		}
		n, err := d.decodeInner(v, data[hl:], off+hl, path)
		if err != nil {
			return 0, err
		}
		rest := data[hl+n:]
		if len(rest) < len(tlv.EndOfContents) {
			return 0, d.errorAt(KindNotEnoughData, v, off+hl+n, path, "missing end-of-contents")
		}
		if !tlv.IsEndOfContents(rest) {
			return 0, d.errorAt(KindDecode, v, off+hl+n, path, "remaining data in explicit tag")
		}
		b.meta.ExplLenIndef = true
		b.meta.ExplValueLen = n + len(tlv.EndOfContents)
		d.log.Debug().Int("offset", off).Str("path", path.String()).Msg("indefinite length explicit tag")
		return hl + b.meta.ExplValueLen, nil
	}
	if len(data)-hl < h.Length {
		return 0, d.errorAt(KindNotEnoughData, v, off, path, "explicit tag needs %d bytes, have %d", h.Length, len(data)-hl)
	}
	n, err := d.decodeInner(v, data[hl:hl+h.Length], off+hl, path)
	if err != nil {
		return 0, err
	}
	if n < h.Length {
		if !d.ctx.allowExplOOB() {
			return 0, d.errorAt(KindDecode, v, off, path, "explicit tag out-of-bound, longer than data")
		}
		d.lenient(v, path, "explicit tag longer than its value")
	}
	b.meta.ExplValueLen = h.Length
	return hl + h.Length, nil
}

// decodeInner decodes the TLV of v without an explicit tag.
func (d *decoder) decodeInner(v Value, data []byte, off int, path Path) (int, error) {
	if t, ok := v.(tlvDecoder); ok {
		return t.decodeTLV(d, data, off, path)
	}
	b := v.node()
	h, tl, ll, err := tlv.DecodeHeader(data)
	if err != nil {
		return 0, headerError(v, off, path, err)
	}
	if h.Tag != b.tag {
		return 0, d.errorAt(KindTagMismatch, v, off, path, "expected %s, got %s", b.tag, h.Tag)
	}
	hl := tl + ll
	b.meta.Offset, b.meta.TagLen, b.meta.LenLen = off, tl, ll
	c := &cursor{off: off + hl}
	if h.Length == tlv.LengthIndefinite {
		if !d.ctx.bered() {
			return 0, d.errorAt(KindLenIndefForm, v, off, path, "indefinite length")
		}
		c.data, c.indef = data[hl:], true
	} else {
		if len(data)-hl < h.Length {
			return 0, d.errorAt(KindNotEnoughData, v, off, path, "need %d bytes, have %d", h.Length, len(data)-hl)
		}
		c.data = data[hl : hl+h.Length]
	}
	if err = v.decodeContent(d, h, c, path); err != nil {
		return 0, err
	}

	n := hl + h.Length
	if c.indef {
		if len(c.data) < len(tlv.EndOfContents) {
			return 0, d.errorAt(KindNotEnoughData, v, c.off, path, "missing end-of-contents")
		}
		if !tlv.IsEndOfContents(c.data) {
			return 0, d.errorAt(KindDecode, v, c.off, path, "remaining data")
		}
		n = c.off + len(tlv.EndOfContents) - off
		b.meta.LenIndef = true
		d.log.Debug().Int("offset", off).Str("path", path.String()).Str("type", v.typeName()).Msg("indefinite length")
	} else if len(c.data) > 0 {
		return 0, d.errorAt(KindDecode, v, c.off, path, "remaining data")
	}
	b.meta.ValueLen = n - hl
	return n, nil
}

// primitive returns an error if h is a constructed encoding.
func (d *decoder) primitive(v Value, h tlv.Header, path Path) error {
	if h.Constructed {
		return d.errorf(KindDecode, v, path, "constructed encoding of primitive type")
	}
	return nil
}

// constructed returns an error if h is a primitive encoding.
func (d *decoder) constructed(v Value, h tlv.Header, path Path) error {
	if !h.Constructed {
		return d.errorf(KindDecode, v, path, "primitive encoding of constructed type")
	}
	return nil
}
