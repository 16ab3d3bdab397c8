// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// SequenceOf implements the ASN.1 SEQUENCE OF and SET OF types. All elements
// share the schema given to [NewSequenceOf] or [NewSetOf]. The number of
// elements may be restricted using [Bounds].
//
// Elements of a SET OF are encoded in ascending order of their encodings.
type SequenceOf struct {
	base
	schema Value
	vals   []Value
	src    iter.Seq[Value]
	set    bool
	count  int
	isSet  bool

	// consumed is shared by all copies reading from src.
	consumed *atomic.Bool
	// dropped is set if the elements were not retained while decoding.
	dropped bool
}

// NewSequenceOf returns an empty SEQUENCE OF schema with elements of type
// schema. The result is not ready.
func NewSequenceOf(schema Value) *SequenceOf {
	return newSequenceOf(schema, false)
}

// NewSetOf returns an empty SET OF schema with elements of type schema. The
// result is not ready.
func NewSetOf(schema Value) *SequenceOf {
	return newSequenceOf(schema, true)
}

func newSequenceOf(schema Value, isSet bool) *SequenceOf {
	if schema == nil {
		panic("ber: SEQUENCE OF without element schema")
	}
	x := &SequenceOf{schema: schema.clone(), isSet: isSet}
	if isSet {
		x.init(asn1.TagSet)
	} else {
		x.init(asn1.TagSequence)
	}
	return x
}

// Of returns a copy of x holding values. Every value is converted to the
// element schema of x. An error of kind [KindBounds] is returned if the number
// of values is outside the bounds of x.
func (x *SequenceOf) Of(values ...Value) (*SequenceOf, error) {
	if !x.bounds.contains(int64(len(values))) {
		return nil, newError(KindBounds, x, "%d elements out of bounds [%d, %d]", len(values), x.bounds.lo, x.bounds.hi)
	}
	vals := make([]Value, len(values))
	for i, v := range values {
		nv, err := x.schema.adopt(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		vals[i] = nv
	}
	c := x.clone().(*SequenceOf)
	c.vals, c.src, c.set, c.count = vals, nil, true, len(vals)
	c.consumed, c.dropped = nil, false
	return c, nil
}

// FromSeq returns a copy of x whose elements are produced by seq when x is
// encoded. The elements are converted to the element schema of x.
//
// The result can be encoded once. Afterwards it is no longer ready and
// encoding it again returns an error of kind [KindObjNotReady]. Use
// [SequenceOf.Prepare] to learn the size of the encoding before writing it.
func (x *SequenceOf) FromSeq(seq iter.Seq[Value]) *SequenceOf {
	c := x.clone().(*SequenceOf)
	c.vals, c.src, c.set, c.count = nil, seq, true, 0
	c.consumed, c.dropped = new(atomic.Bool), false
	return c
}

// Len returns the number of elements of x. For decoded values this is the
// number of decoded elements, even if they were not retained (see [Events]).
func (x *SequenceOf) Len() int { return x.count }

// At returns the i-th element of x.
func (x *SequenceOf) At(i int) Value { return x.vals[i] }

// All iterates over the retained elements of x.
func (x *SequenceOf) All() iter.Seq2[int, Value] {
	return slices.All(x.vals)
}

// Schema returns the element schema of x.
func (x *SequenceOf) Schema() Value { return x.schema }

// Ready reports whether x can be encoded. Values produced by [Events] and
// values created by [SequenceOf.FromSeq] that were encoded before are not
// ready.
func (x *SequenceOf) Ready() bool {
	return x.set && !x.dropped && (x.consumed == nil || !x.consumed.Load())
}

func (x *SequenceOf) Encode() ([]byte, error)    { return encode(x, false) }
func (x *SequenceOf) EncodeCER() ([]byte, error) { return encode(x, true) }

func (x *SequenceOf) typeName() string {
	if x.isSet {
		return "SET OF"
	}
	return "SEQUENCE OF"
}

func (x *SequenceOf) String() string {
	if !x.set {
		return x.typeName()
	}
	if x.src != nil {
		return x.typeName() + " (streamed)"
	}
	if x.dropped {
		return x.typeName() + " (" + strconv.Itoa(x.count) + " elements, not retained)"
	}
	return x.typeName() + " (" + strconv.Itoa(x.count) + " elements)"
}

func (x *SequenceOf) clone() Value {
	c := *x
	if x.isSet {
		c.init(asn1.TagSet)
	} else {
		c.init(asn1.TagSequence)
	}
	return &c
}

func (x *SequenceOf) adopt(v Value) (Value, error) {
	src, ok := v.(*SequenceOf)
	if !ok || !src.Ready() || src.isSet != x.isSet {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	if src.src != nil {
		c := x.FromSeq(src.src)
		c.consumed = src.consumed
		return c, nil
	}
	return x.Of(src.vals...)
}

// streamed reports whether v is a SEQUENCE OF or SET OF whose elements are
// produced by an iterator.
func streamed(v Value) bool {
	x, ok := v.(*SequenceOf)
	return ok && x.src != nil
}

// elements returns the element values of x in the order they are produced.
func (x *SequenceOf) elements() iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		if x.src == nil {
			for _, v := range x.vals {
				if !yield(v, nil) {
					return
				}
			}
			return
		}
		i := 0
		for v := range x.src {
			nv, err := x.schema.adopt(v)
			if err != nil {
				yield(nil, fmt.Errorf("element %d: %w", i, err))
				return
			}
			if !yield(nv, nil) {
				return
			}
			i++
		}
	}
}

func (x *SequenceOf) content(cer bool) (bool, int, io.WriterTo, error) {
	if x.dropped {
		return false, 0, nil, newError(KindObjNotReady, x, "elements were not retained")
	}
	if x.consumed != nil && x.consumed.Swap(true) {
		return false, 0, nil, newError(KindObjNotReady, x, "element source already consumed")
	}
	var wts []io.WriterTo
	var encs [][]byte
	l, count := 0, 0
	for v, err := range x.elements() {
		if err != nil {
			return false, 0, nil, err
		}
		n, wt, err := encodeValue(v, cer)
		if err != nil {
			return false, 0, nil, fmt.Errorf("element %d: %w", count, err)
		}
		l += n
		count++
		if !x.isSet {
			wts = append(wts, wt)
			continue
		}
		buf := bytes.NewBuffer(make([]byte, 0, n))
		if _, err = wt.WriteTo(buf); err != nil {
			return false, 0, nil, err
		}
		encs = append(encs, buf.Bytes())
	}
	if !x.bounds.contains(int64(count)) {
		return false, 0, nil, newError(KindBounds, x, "%d elements out of bounds [%d, %d]", count, x.bounds.lo, x.bounds.hi)
	}
	if x.isSet {
		slices.SortFunc(encs, bytes.Compare)
		return true, l, bytesWriter(encs...), nil
	}
	return true, l, writerFunc(func(w io.Writer) (n int64, err error) {
		for _, wt := range wts {
			m, err := wt.WriteTo(w)
			n += m
			if err != nil {
				return n, err
			}
		}
		return n, nil
	}), nil
}

func (x *SequenceOf) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	if err := d.constructed(x, h, path); err != nil {
		return err
	}
	x.vals, x.src, x.count = nil, nil, 0
	x.consumed, x.dropped = nil, d.streaming()
	var prev []byte
	for c.more() {
		v, n, err := d.decodeValue(x.schema, c.data, c.off, path.Append(strconv.Itoa(x.count)))
		if err != nil {
			return err
		}
		if x.isSet {
			enc := c.data[:n]
			if prev != nil && bytes.Compare(prev, enc) > 0 {
				if !d.ctx.allowUnorderedSet() {
					return d.errorAt(KindDecode, x, c.off, path, "unordered SET OF")
				}
				d.lenient(x, path, "unordered SET OF")
			}
			prev = enc
		}
		if !d.streaming() {
			x.vals = append(x.vals, v)
		}
		x.count++
		c.advance(n)
	}
	if !x.bounds.contains(int64(x.count)) {
		return d.errorf(KindDecode, x, path, "bounds")
	}
	x.set = true
	return nil
}

// PreparedEncoding is an encoding whose size is known. It can be written
// exactly once. It is safe to call WriteTo from multiple goroutines, all but
// the first call fail.
type PreparedEncoding struct {
	n    int
	wt   io.WriterTo
	once sync.Once
}

// Prepare computes the DER or CER encoding of x and returns it as a
// [PreparedEncoding]. The element source of x is consumed by this call, x is
// not ready afterwards if it was created by [SequenceOf.FromSeq].
func (x *SequenceOf) Prepare(cer bool) (*PreparedEncoding, error) {
	n, wt, err := encodeValue(x, cer)
	if err != nil {
		return nil, err
	}
	return &PreparedEncoding{n: n, wt: wt}, nil
}

// Len returns the size of the encoding in bytes.
func (p *PreparedEncoding) Len() int { return p.n }

// WriteTo writes the encoding to w. An error of kind [KindObjNotReady] is
// returned if the encoding was written before.
func (p *PreparedEncoding) WriteTo(w io.Writer) (n int64, err error) {
	err = newError(KindObjNotReady, nil, "prepared encoding already consumed")
	p.once.Do(func() {
		n, err = p.wt.WriteTo(w)
		p.wt = nil
	})
	return n, err
}
