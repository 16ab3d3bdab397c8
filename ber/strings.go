// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

// stringKind describes one of the restricted character string types.
type stringKind struct {
	tag  uint
	name string

	// valid reports whether s can be represented. The options of the
	// PrintableString type are passed through x.
	valid func(x *String, s string) bool

	// encode converts a valid string to its contents. A nil encode function
	// uses the UTF-8 bytes of the string.
	encode func(s string) ([]byte, error)

	// decode converts contents to a string. A nil decode function requires
	// valid UTF-8.
	decode func(b []byte) (string, error)
}

var (
	utf8Kind = &stringKind{
		tag: asn1.TagUTF8String, name: "UTF8String",
		valid: func(_ *String, s string) bool { return asn1.UTF8String(s).IsValid() },
	}
	numericKind = &stringKind{
		tag: asn1.TagNumericString, name: "NumericString",
		valid: func(_ *String, s string) bool { return asn1.NumericString(s).IsValid() },
	}
	printableKind = &stringKind{
		tag: asn1.TagPrintableString, name: "PrintableString",
		valid: func(x *String, s string) bool {
			return asn1.PrintableString(s).IsValidWith(x.asterisk, x.ampersand)
		},
	}
	ia5Kind = &stringKind{
		tag: asn1.TagIA5String, name: "IA5String",
		valid: func(_ *String, s string) bool { return asn1.IA5String(s).IsValid() },
	}
	visibleKind = &stringKind{
		tag: asn1.TagVisibleString, name: "VisibleString",
		valid: func(_ *String, s string) bool { return asn1.VisibleString(s).IsValid() },
	}
	teletexKind          = latin1Kind(asn1.TagTeletexString, "TeletexString")
	videotexKind         = latin1Kind(asn1.TagVideotexString, "VideotexString")
	graphicKind          = latin1Kind(asn1.TagGraphicString, "GraphicString")
	generalKind          = latin1Kind(asn1.TagGeneralString, "GeneralString")
	objectDescriptorKind = latin1Kind(asn1.TagObjectDescriptor, "ObjectDescriptor")
	universalKind        = &stringKind{
		tag: asn1.TagUniversalString, name: "UniversalString",
		valid: func(_ *String, s string) bool { return asn1.UniversalString(s).IsValid() },
		encode: func(s string) ([]byte, error) {
			return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewEncoder().Bytes([]byte(s))
		},
		decode: decodeUTF32,
	}
	bmpKind = &stringKind{
		tag: asn1.TagBMPString, name: "BMPString",
		valid: func(_ *String, s string) bool { return asn1.BMPString(s).IsValid() },
		encode: func(s string) ([]byte, error) {
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
		},
		decode: decodeUCS2,
	}
)

// latin1Kind returns a string kind whose characters are mapped to ISO 8859-1.
func latin1Kind(tag uint, name string) *stringKind {
	return &stringKind{
		tag: tag, name: name,
		valid: func(_ *String, s string) bool {
			for _, r := range s {
				if _, ok := charmap.ISO8859_1.EncodeRune(r); !ok || r == utf8.RuneError {
					return false
				}
			}
			return true
		},
		encode: func(s string) ([]byte, error) {
			return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		},
		decode: func(b []byte) (string, error) {
			s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
			return string(s), err
		},
	}
}

// decodeUTF32 decodes UTF-32BE. The decoder of x/text replaces invalid code
// points, so they are rejected before decoding.
func decodeUTF32(b []byte) (string, error) {
	if len(b)%4 != 0 {
		return "", errors.New("length is not a multiple of 4")
	}
	for i := 0; i < len(b); i += 4 {
		if r := binary.BigEndian.Uint32(b[i:]); r > utf8.MaxRune || 0xD800 <= r && r < 0xE000 {
			return "", fmt.Errorf("invalid code point U+%X", r)
		}
	}
	s, err := utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder().Bytes(b)
	return string(s), err
}

// decodeUCS2 decodes UTF-16BE without surrogate pairs.
func decodeUCS2(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.New("length is not a multiple of 2")
	}
	for i := 0; i < len(b); i += 2 {
		if r := binary.BigEndian.Uint16(b[i:]); 0xD800 <= r && r < 0xE000 {
			return "", fmt.Errorf("surrogate U+%X", r)
		}
	}
	s, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	return string(s), err
}

// String implements the ASN.1 restricted character string types. The type is
// chosen by the function creating the String. The number of characters may be
// restricted using [Bounds].
//
// The zero value is a UTF8String without a value.
type String struct {
	base
	kind      *stringKind
	val       string
	set       bool
	asterisk  bool
	ampersand bool
}

func newString(k *stringKind) *String {
	return &String{base: base{tag: asn1.Universal(k.tag)}, kind: k}
}

// UTF8String returns a UTF8String without a value.
func UTF8String() *String { return newString(utf8Kind) }

// NumericString returns a NumericString without a value.
func NumericString() *String { return newString(numericKind) }

// PrintableString returns a PrintableString without a value. See also
// [AllowAsterisk] and [AllowAmpersand].
func PrintableString() *String { return newString(printableKind) }

// IA5String returns an IA5String without a value.
func IA5String() *String { return newString(ia5Kind) }

// VisibleString returns a VisibleString without a value.
func VisibleString() *String { return newString(visibleKind) }

// TeletexString returns a TeletexString without a value. Its characters are
// limited to ISO 8859-1.
func TeletexString() *String { return newString(teletexKind) }

// VideotexString returns a VideotexString without a value. Its characters are
// limited to ISO 8859-1.
func VideotexString() *String { return newString(videotexKind) }

// GraphicString returns a GraphicString without a value. Its characters are
// limited to ISO 8859-1.
func GraphicString() *String { return newString(graphicKind) }

// GeneralString returns a GeneralString without a value. Its characters are
// limited to ISO 8859-1.
func GeneralString() *String { return newString(generalKind) }

// ObjectDescriptor returns an ObjectDescriptor without a value. Its
// characters are limited to ISO 8859-1.
func ObjectDescriptor() *String { return newString(objectDescriptorKind) }

// UniversalString returns a UniversalString without a value. It is encoded
// as UTF-32BE.
func UniversalString() *String { return newString(universalKind) }

// BMPString returns a BMPString without a value. It is encoded as UTF-16BE
// and limited to the Basic Multilingual Plane.
func BMPString() *String { return newString(bmpKind) }

// AllowAsterisk permits '*' in a PrintableString.
func AllowAsterisk() Option {
	return func(v Value) { printable(v).asterisk = true }
}

// AllowAmpersand permits '&' in a PrintableString.
func AllowAmpersand() Option {
	return func(v Value) { printable(v).ampersand = true }
}

func printable(v Value) *String {
	x, ok := v.(*String)
	if !ok || x.kind != printableKind {
		panic(fmt.Sprintf("ber: %s is not a PrintableString", v.typeName()))
	}
	return x
}

// Of returns a copy of x holding s. An error of kind [KindInvalidValueType] is
// returned if s contains characters outside the alphabet of x, an error of
// kind [KindBounds] if the number of characters is outside the bounds of x.
func (x *String) Of(s string) (*String, error) {
	c := x.clone().(*String)
	if !c.kind.valid(c, s) {
		return nil, newError(KindInvalidValueType, c, "invalid characters in %q", s)
	}
	if n := utf8.RuneCountInString(s); !c.bounds.contains(int64(n)) {
		return nil, newError(KindBounds, c, "%d characters out of bounds [%d, %d]", n, c.bounds.lo, c.bounds.hi)
	}
	c.val, c.set = s, true
	return c, nil
}

// Value returns the value of x.
func (x *String) Value() string { return x.val }

func (x *String) Ready() bool                { return x.set }
func (x *String) Encode() ([]byte, error)    { return encode(x, false) }
func (x *String) EncodeCER() ([]byte, error) { return encode(x, true) }

func (x *String) typeName() string {
	if x.kind == nil {
		return utf8Kind.name
	}
	return x.kind.name
}

func (x *String) String() string {
	if !x.set {
		return x.typeName()
	}
	return strconv.Quote(x.val)
}

func (x *String) clone() Value {
	c := *x
	if c.kind == nil {
		c.kind = utf8Kind
	}
	c.init(c.kind.tag)
	return &c
}

func (x *String) adopt(v Value) (Value, error) {
	src, ok := v.(*String)
	if !ok || !src.set || src.kind != x.kind && x.kind != nil {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

func (x *String) content(cer bool) (bool, int, io.WriterTo, error) {
	b := []byte(x.val)
	if x.kind.encode != nil {
		var err error
		if b, err = x.kind.encode(x.val); err != nil {
			return false, 0, nil, &Error{Kind: KindInvalidValueType, Type: x.typeName(), Offset: -1, Err: err}
		}
	}
	return stringContent(b, cer)
}

func (x *String) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	b, err := d.stringBytes(x, h, c, path)
	if err != nil {
		return err
	}
	var s string
	if x.kind.decode != nil {
		if s, err = x.kind.decode(b); err != nil {
			return d.errorf(KindDecode, x, path, "alphabet value: %s", err)
		}
	} else {
		s = string(b)
	}
	if !x.kind.valid(x, s) {
		return d.errorf(KindDecode, x, path, "alphabet value")
	}
	if !x.bounds.contains(int64(utf8.RuneCountInString(s))) {
		return d.errorf(KindDecode, x, path, "bounds")
	}
	x.val, x.set = s, true
	return nil
}
