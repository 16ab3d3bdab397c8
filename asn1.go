// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asn1 implements types for ASN.1 encoded data-structures as defined in
// [Rec. ITU-T X.680]. This package defines tags and the Go representations of
// some ASN.1 values. Encoding and decoding using the Basic, Canonical and
// Distinguished Encoding Rules is implemented in the ber subpackage. The tlv
// subpackage implements the tag and length octets shared by these rules.
//
// # Mapping of ASN.1 Types to Go Types
//
// The ber package models every ASN.1 value as a node that knows its own tag
// and schema. The value held by a node uses the following Go types:
//
//   - BOOLEAN values are Go bool values.
//   - INTEGER and ENUMERATED values are [math/big.Int] values. Accessors for
//     int64 are provided for convenience.
//   - BIT STRING values are [BitString] values.
//   - OCTET STRING values are byte slices.
//   - OBJECT IDENTIFIER and RELATIVE-OID values are [ObjectIdentifier] and
//     [RelativeOID] values. Object identifiers can be parsed from dotted or
//     ASN.1 value notation using [ParseObjectIdentifier].
//   - Restricted character strings are Go strings. The alphabet of each string
//     type can be validated using the corresponding type in this package, for
//     example [PrintableString].
//   - UTCTime and GeneralizedTime values are [time.Time] values. Their
//     canonical textual forms are provided by [UTCTime] and [GeneralizedTime].
//
// [Rec. ITU-T X.680]: https://www.itu.int/rec/T-REC-X.680
package asn1

import (
	"cmp"
	"strconv"
	"strings"
)

// Tag constitutes an ASN.1 tag, consisting of its class and number. For
// details, see Section 8 of Rec. ITU-T X.680.
type Tag struct {
	Class  Class
	Number uint
}

// Class holds the class part of an ASN.1 tag. The class acts as a namespace for
// the tag number. A Class value is an unsigned 2-bit integer. Class values
// whose value exceeds 2 bits are invalid.
//
//go:generate stringer -type=Class -trimprefix=Class
type Class uint8

// IsValid reports whether c is a valid Class value.
func (c Class) IsValid() bool {
	return c <= 3
}

// Predefined [Class] constants. These are all the possible values that can be
// encoded in the [Class] type.
const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// Universal returns the tag with the given number in the [ClassUniversal]
// namespace.
func Universal(n uint) Tag { return Tag{ClassUniversal, n} }

// Application returns the tag with the given number in the [ClassApplication]
// namespace.
func Application(n uint) Tag { return Tag{ClassApplication, n} }

// Context returns the tag with the given number in the [ClassContextSpecific]
// namespace.
func Context(n uint) Tag { return Tag{ClassContextSpecific, n} }

// Private returns the tag with the given number in the [ClassPrivate]
// namespace.
func Private(n uint) Tag { return Tag{ClassPrivate, n} }

// Compare orders tags first by class and then by number. This is the canonical
// order of SET components in Rec. ITU-T X.690, Section 10.3. The result is
// negative if t sorts before u, zero if both are equal and positive otherwise.
func (t Tag) Compare(u Tag) int {
	if c := cmp.Compare(t.Class, u.Class); c != 0 {
		return c
	}
	return cmp.Compare(t.Number, u.Number)
}

// String returns a string representation t in a format similar to the one used
// in ASN.1 notation. The tag number is enclosed by square brackets and prefixed
// with the class used. To avoid ambiguity the UNIVERSAL word is used for
// universal tags, although this is not valid ASN.1 syntax.
func (t Tag) String() string {
	if t.Class == ClassContextSpecific {
		return "[" + strconv.FormatUint(uint64(t.Number), 10) + "]"
	}
	return "[" + strings.ToUpper(t.Class.String()) + " " + strconv.FormatUint(uint64(t.Number), 10) + "]"
}

// TagReserved is a reserved tag number in the [ClassUniversal] namespace to be
// used by encoding rules. This assignment is defined in Rec. ITU-T X.680,
// Section 8, Table 1.
const TagReserved = 0

// These are some ASN.1 tag numbers are defined in the [ClassUniversal]
// namespace. These assignments are defined in Rec. ITU-T X.680, Section 8, Table
// 1.
const (
	TagBoolean          uint = 1
	TagInteger          uint = 2
	TagBitString        uint = 3
	TagOctetString      uint = 4
	TagNull             uint = 5
	TagOID              uint = 6
	TagObjectDescriptor uint = 7
	TagExternal         uint = 8
	TagReal             uint = 9
	TagEnumerated       uint = 10
	TagEmbeddedPDV      uint = 11
	TagUTF8String       uint = 12
	TagRelativeOID      uint = 13
	TagTime             uint = 14
	TagSequence         uint = 16
	TagSet              uint = 17
	TagNumericString    uint = 18
	TagPrintableString  uint = 19
	TagTeletexString    uint = 20
	TagT61String             = TagTeletexString
	TagVideotexString   uint = 21
	TagIA5String        uint = 22
	TagUTCTime          uint = 23
	TagGeneralizedTime  uint = 24
	TagGraphicString    uint = 25
	TagVisibleString    uint = 26
	TagISO646String          = TagVisibleString
	TagGeneralString    uint = 27
	TagUniversalString  uint = 28
	TagCharacterString  uint = 29
	TagBMPString        uint = 30
	TagDate             uint = 31
	TagTimeOfDay        uint = 32
	TagDateTime         uint = 33
	TagDuration         uint = 34
)
