// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// A PrettyOption configures [Pretty].
type PrettyOption func(p *printer)

// WithPaths appends the decode path to every line.
func WithPaths() PrettyOption {
	return func(p *printer) { p.paths = true }
}

// WithOffsets prefixes every line with the offset and the length of the
// encoding of the value.
func WithOffsets() PrettyOption {
	return func(p *printer) { p.offsets = true }
}

// ExpandAny prints the contents of [Any] values without a defined type as a
// tree of generically decoded values.
func ExpandAny() PrettyOption {
	return func(p *printer) { p.expand = true }
}

// WithOIDNames prints the name of known object identifiers next to their
// value. names maps object identifiers in dotted notation to names.
func WithOIDNames(names map[string]string) PrettyOption {
	return func(p *printer) { p.oidNames = names }
}

type printer struct {
	w   io.Writer
	err error

	paths    bool
	offsets  bool
	expand   bool
	oidNames map[string]string
}

// Pretty writes a human-readable dump of v to w. Every value is printed on its
// own line, components are indented below their containers. Values that were
// decoded using BER rules are marked with "BER".
func Pretty(w io.Writer, v Value, opts ...PrettyOption) error {
	p := &printer{w: w}
	for _, opt := range opts {
		opt(p)
	}
	p.value("", v, nil, 0)
	return p.err
}

// PrettyString returns the output of [Pretty] as a string.
func PrettyString(v Value, opts ...PrettyOption) string {
	var b strings.Builder
	_ = Pretty(&b, v, opts...)
	return b.String()
}

func (p *printer) line(m Meta, decoded bool, depth int, label, desc string, path Path) {
	if p.err != nil {
		return
	}
	var b strings.Builder
	if p.offsets {
		if decoded {
			fmt.Fprintf(&b, "%6d %5d ", m.ExplOffset(), m.ExplTLVLen())
		} else {
			b.WriteString("     -     - ")
		}
	}
	b.WriteString(strings.Repeat("  ", depth))
	if label != "" {
		b.WriteString(label)
		b.WriteString(": ")
	}
	b.WriteString(desc)
	if m.Bered {
		b.WriteString(" BER")
	}
	if p.paths {
		b.WriteString("  /")
		b.WriteString(path.String())
	}
	b.WriteByte('\n')
	_, p.err = io.WriteString(p.w, b.String())
}

// tagPrefix describes the tagging of v if it differs from the universal tag
// of its type.
func tagPrefix(v Value) string {
	b := v.node()
	var s string
	if _, ok := v.(tlvDecoder); !ok && b.tag.Class != asn1.ClassUniversal {
		s = b.tag.String() + " IMPLICIT "
	}
	if b.explicit {
		s = b.expl.String() + " EXPLICIT " + s
	}
	return s
}

func (p *printer) value(label string, v Value, path Path, depth int) {
	m := v.Meta()
	decoded := m.TagLen > 0
	desc := tagPrefix(v) + v.typeName()
	switch x := v.(type) {
	case *Sequence:
		p.line(m, decoded, depth, label, desc, path)
		for name, c := range x.All() {
			p.value(name, c, path.Append(name), depth+1)
		}
	case *SequenceOf:
		p.line(m, decoded, depth, label, desc+" ("+strconv.Itoa(x.Len())+" elements)", path)
		for i, c := range x.All() {
			name := strconv.Itoa(i)
			p.value(name, c, path.Append(name), depth+1)
		}
	case *Choice:
		alt, c := x.Chosen()
		if c == nil {
			p.line(m, decoded, depth, label, desc, path)
			return
		}
		name := alt
		if label != "" {
			name = label + "." + alt
		}
		p.value(name, c, path.Append(alt), depth)
	case *ObjectIdentifier:
		s := x.String()
		if n, ok := p.oidNames[s]; ok {
			s += " (" + n + ")"
		}
		p.line(m, decoded, depth, label, desc+" "+s, path)
	case *Any:
		oid, def := x.Defined()
		if def == nil && p.expand && x.raw != nil {
			p.genericTLV(label, x.raw, m.Offset, decoded, path, depth)
			return
		}
		if def == nil {
			p.line(m, decoded, depth, label, desc+" "+x.String(), path)
			return
		}
		p.line(m, decoded, depth, label, desc, path)
		p.defined(oid, def, path, depth+1)
	case *OctetString, *BitString:
		p.line(m, decoded, depth, label, desc+" "+v.String(), path)
		if oid, def := x.(interface {
			Defined() (asn1.ObjectIdentifier, Value)
		}).Defined(); def != nil {
			p.defined(oid, def, path, depth+1)
		}
	case *Null:
		p.line(m, decoded, depth, label, desc, path)
	default:
		if v.Ready() {
			desc += " " + v.String()
		}
		p.line(m, decoded, depth, label, desc, path)
	}
}

func (p *printer) defined(oid asn1.ObjectIdentifier, v Value, path Path, depth int) {
	label := definedByLabel(oid)
	if n, ok := p.oidNames[oid.String()]; ok {
		label += " " + n
	}
	p.value(label, v, path.Append(definedByLabel(oid)), depth)
}

// genericSchemas holds the schemas used to interpret universal primitive
// values without a schema.
var genericSchemas = map[uint]Value{
	asn1.TagBoolean:          new(Boolean),
	asn1.TagInteger:          new(Integer),
	asn1.TagBitString:        new(BitString),
	asn1.TagOctetString:      new(OctetString),
	asn1.TagNull:             NewNull(),
	asn1.TagOID:              new(ObjectIdentifier),
	asn1.TagObjectDescriptor: ObjectDescriptor(),
	asn1.TagUTF8String:       UTF8String(),
	asn1.TagRelativeOID:      new(RelativeOID),
	asn1.TagNumericString:    NumericString(),
	asn1.TagPrintableString:  PrintableString(),
	asn1.TagTeletexString:    TeletexString(),
	asn1.TagVideotexString:   VideotexString(),
	asn1.TagIA5String:        IA5String(),
	asn1.TagUTCTime:          new(UTCTime),
	asn1.TagGeneralizedTime:  new(GeneralizedTime),
	asn1.TagGraphicString:    GraphicString(),
	asn1.TagVisibleString:    VisibleString(),
	asn1.TagGeneralString:    GeneralString(),
	asn1.TagUniversalString:  UniversalString(),
	asn1.TagBMPString:        BMPString(),
}

var genericContext = &Context{BERed: true, AllowExplOOB: true}

// generic prints the TLVs in data without a schema. Universal values are
// decoded with the matching type, all other primitive values are printed as
// hex. off is the absolute offset of data.
func (p *printer) generic(data []byte, off int, decoded bool, path Path, depth int) {
	for i := 0; len(data) > 0 && !tlv.IsEndOfContents(data); i++ {
		label := strconv.Itoa(i)
		n := p.genericTLV(label, data, off, decoded, path.Append(label), depth)
		if n == 0 {
			return
		}
		data, off = data[n:], off+n
	}
}

// genericTLV prints the first TLV of data and returns its length. It returns
// 0 if data does not start with a valid TLV.
func (p *printer) genericTLV(label string, data []byte, off int, decoded bool, path Path, depth int) int {
	h, tl, ll, err := tlv.DecodeHeader(data)
	if err != nil {
		p.line(Meta{}, false, depth, label, "invalid TLV: "+err.Error(), path)
		return 0
	}
	d := newDecoder(genericContext)
	n, _, err := d.extent(new(Any), data, off, path)
	if err != nil {
		p.line(Meta{}, false, depth, label, "invalid TLV: "+err.Error(), path)
		return 0
	}
	m := Meta{Offset: off, TagLen: tl, LenLen: ll, ValueLen: n - tl - ll, LenIndef: h.Length == tlv.LengthIndefinite}
	m.Bered = m.LenIndef
	if !decoded {
		m = Meta{}
	}
	if schema, ok := genericSchemas[h.Tag.Number]; ok && h.Tag.Class == asn1.ClassUniversal {
		if v, _, err := DecodeAt(schema, data[:n], off, path, genericContext); err == nil {
			if !decoded {
				v.node().meta = Meta{}
			}
			p.value(label, v, path, depth)
			return n
		}
	}
	if !h.Constructed {
		p.line(m, decoded, depth, label, fmt.Sprintf("%s % X", h.Tag, data[tl+ll:n]), path)
		return n
	}
	desc := h.Tag.String()
	switch h.Tag {
	case asn1.Universal(asn1.TagSequence):
		desc = "SEQUENCE"
	case asn1.Universal(asn1.TagSet):
		desc = "SET"
	}
	p.line(m, decoded, depth, label, desc, path)
	end := n
	if h.Length == tlv.LengthIndefinite {
		end -= len(tlv.EndOfContents)
	}
	p.generic(data[tl+ll:end], off+tl+ll, decoded, path, depth+1)
	return n
}
