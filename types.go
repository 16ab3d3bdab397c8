// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
	"unsafe"
)

//region [UNIVERSAL 3] BIT STRING

// BitString implements the ASN.1 BIT STRING type. A bit string is padded up to
// the nearest byte in memory and the number of valid bits is recorded. Padding
// bits will be encoded and decoded as zero bits.
//
// See also section 22 of Rec. ITU-T X.680.
type BitString struct {
	Bytes     []byte // bits packed into bytes.
	BitLength int    // length in bits.
}

// BitStringFromBools packs bits into a BitString of exactly len(bits) bits.
func BitStringFromBools(bits []bool) BitString {
	s := BitString{Bytes: make([]byte, (len(bits)+7)/8), BitLength: len(bits)}
	for i, b := range bits {
		if b {
			s.Bytes[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return s
}

// IsValid reports whether there are enough bytes in s for the indicated
// BitLength.
func (s BitString) IsValid() bool {
	return s.BitLength >= 0 && len(s.Bytes) >= (s.BitLength+8-1)/8
}

// Len returns the number of bits in s.
func (s BitString) Len() int {
	return s.BitLength
}

// At reports whether the bit at index i is set. Bits outside of s are reported
// as unset.
func (s BitString) At(i int) bool {
	if i < 0 || i >= s.BitLength {
		return false
	}
	return s.Bytes[i/8]>>(7-uint(i%8))&1 == 1
}

// Bools returns the bits of s as a slice.
func (s BitString) Bools() []bool {
	bits := make([]bool, s.BitLength)
	for i := range bits {
		bits[i] = s.At(i)
	}
	return bits
}

// TrimRight removes trailing zero bits from s but keeps at least minLen bits.
// The result may share memory with s.
func (s BitString) TrimRight(minLen int) BitString {
	n := s.BitLength
	for n > minLen && !s.At(n-1) {
		n--
	}
	return BitString{Bytes: s.Bytes[:(n+7)/8], BitLength: n}
}

// String formats s into a readable binary representation. Bits will be grouped
// into bytes. The last group may have fewer than 8 characters.
func (s BitString) String() string {
	var sb strings.Builder
	sb.Grow(s.BitLength + s.BitLength/8)
	for i := 0; i < s.BitLength; i++ {
		if i > 0 && i%8 == 0 {
			sb.WriteByte(' ')
		}
		if s.At(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

//endregion

//region [UNIVERSAL 6] OBJECT IDENTIFIER

// An ObjectIdentifier represents an ASN.1 OBJECT IDENTIFIER. The semantics of an object identifier are specified in [Rec. ITU-T X.660].
//
// See also section 32 of Rec. ITU-T X.680.
//
// [Rec. ITU-T X.660]: https://www.itu.int/rec/T-REC-X.660
type ObjectIdentifier []uint

// IsValid reports whether oid can be encoded. An encodable identifier has at
// least two arcs, the first arc is 0, 1 or 2 and the second arc is less than
// 40. If the first arc is 2, the second arc must leave room for the combined
// first subidentifier 80+arc in a uint.
func (oid ObjectIdentifier) IsValid() bool {
	if len(oid) < 2 || oid[0] > 2 {
		return false
	}
	if oid[0] == 2 {
		return oid[1] <= math.MaxUint-80
	}
	return oid[1] < 40
}

// Equal reports whether oid and other represent the same identifier.
func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	return slices.Equal(oid, other)
}

// String returns the dot-separated notation of oid.
func (oid ObjectIdentifier) String() string {
	return formatArcs(oid)
}

//endregion

//region [UNIVERSAL 13] RELATIVE-OID

// RelativeOID represents the ASN.1 RELATIVE OID type. This is similar to the
// [ObjectIdentifier] type, but a RelativeOID is only a suffix of an OID.
//
// See also section 32 of Rec. ITU-T X.680.
type RelativeOID []uint

// Equal reports whether oid and other represent the same identifier.
func (oid RelativeOID) Equal(other RelativeOID) bool {
	return slices.Equal(oid, other)
}

// String returns the dot-separated notation of oid.
func (oid RelativeOID) String() string {
	return formatArcs(oid)
}

func formatArcs(arcs []uint) string {
	var s strings.Builder
	s.Grow(32)

	buf := make([]byte, 0, 20)
	for i, v := range arcs {
		if i > 0 {
			s.WriteByte('.')
		}
		s.Write(strconv.AppendUint(buf, uint64(v), 10))
	}

	return s.String()
}

//endregion

//region [UNIVERSAL 12] UTF8String

// UTF8String represents the ASN.1 UTF8String type. It can only hold valid UTF-8
// values.
//
// See also section 41 of Rec. ITU-T X.680.
type UTF8String string

// IsValid reports whether s is a valid UTF-8 string.
func (s UTF8String) IsValid() bool {
	return utf8.ValidString(string(s))
}

//endregion

//region [UNIVERSAL 18] NumericString

// NumericString corresponds to the ASN.1 NumericString type. A NumericString
// can only consist of the digits 0-9 and space. Note that it is possible to
// create NumericString values in Go that violate this constraint. Use the
// IsValid method to check whether a string's contents are numeric.
//
// See also section 41 of Rec. ITU-T X.680.
type NumericString string

// IsValid reports whether s consists only of allowed numeric characters.
func (s NumericString) IsValid() bool {
	for i := 0; i < len(s); i++ {
		if !isNumeric(s[i]) {
			return false
		}
	}
	return true
}

// isNumeric reports whether b can appear in an ASN.1 NumericString.
func isNumeric(b byte) bool {
	return '0' <= b && b <= '9' || b == ' '
}

//endregion

//region [UNIVERSAL 19] PrintableString

// PrintableString represents the ASN.1 type PrintableString. A printable string
// can only contain the following ASCII characters:
//
//	A-Z	// upper case letters
//	a-z	// lower case letters
//	0-9	// digits
//	 	// space
//	'	// apostrophe
//	()	// Parenthesis
//	+-/	// plus, hyphen, solidus
//	.,:	// fill stop, comma, colon
//	=	// equals sign
//	?	// question mark
//
// See also section 41 of Rec. ITU-T X.680.
type PrintableString string

// IsValid reports whether s consists only of printable characters.
func (s PrintableString) IsValid() bool {
	return s.IsValidWith(false, false)
}

// IsValidWith works like IsValid but additionally permits '*' if asterisk is
// true and '&' if ampersand is true. Both characters are frequently found in
// X.509 certificates.
func (s PrintableString) IsValidWith(asterisk, ampersand bool) bool {
	for i := 0; i < len(s); i++ {
		if !isPrintable(s[i], asterisk, ampersand) {
			return false
		}
	}
	return true
}

// isPrintable reports whether the given b is in the ASN.1 PrintableString set.
// If asterisk is true then '*' is also allowed, reflecting existing practice.
// If ampersand is true then '&' is allowed as well.
func isPrintable(b byte, asterisk, ampersand bool) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?' ||
		// This is technically not allowed in a PrintableString.
		// However, x509 certificates with wildcard strings don't
		// always use the correct string type so we permit it.
		(asterisk && b == '*') ||
		// This is not technically allowed either. However, not
		// only is it relatively common, but there are also a
		// handful of CA certificates that contain it. At least
		// one of which will not expire until 2027.
		(ampersand && b == '&')
}

//endregion

//region [UNIVERSAL 22] IA5String

// IA5String represents the ASN.1 type IA5String. An IA5String must consist on
// ASCII characters only. Note that it is possible to create IA5String values in
// Go that violate this constraint. Use the IsValid method to check whether a
// string's contents are ASCII only.
//
// See also section 41 of Rec. ITU-T X.680.
type IA5String string

// IsValid reports whether the contents of s consist only of ASCII characters.
func (s IA5String) IsValid() bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

//endregion

//region [UNIVERSAL 26] VisibleString

// VisibleString represents the corresponding ASN.1 type. It is limited to
// visible ASCII characters. In particular this does not include ASCII control
// characters. Note that it is possible to create VisibleString values in
// Go that violate this constraint. Use the IsValid method to check whether a
// string's contents are visible ASCII only.
//
// See also section 41 of Rec. ITU-T X.680.
type VisibleString string

// IsValid reports whether s only consists of visible ASCII characters.
func (s VisibleString) IsValid() bool {
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || s[i] >= 0x7F {
			return false
		}
	}
	return true
}

//endregion

//region [UNIVERSAL 28] UniversalString

// UniversalString represents the ASN.1 UniversalString type. Its characters
// are encoded as UTF-32.
type UniversalString string

// IsValid reports whether s is valid UTF-8 and thereby consists only of
// characters representable in UTF-32.
func (s UniversalString) IsValid() bool {
	return utf8.ValidString(string(s))
}

//endregion

//region [UNIVERSAL 30] BMPString

// BMPString represents the ASN.1 BMPString type. Only characters of the Basic
// Multilingual Plane can be represented, each encoded as two bytes.
type BMPString string

// IsValid reports whether s only contains characters from the Basic
// Multilingual Plane.
func (s BMPString) IsValid() bool {
	for _, r := range string(s) {
		if r == utf8.RuneError || r > 0xFFFF || 0xD800 <= r && r < 0xE000 {
			return false
		}
	}
	return true
}

//endregion

//region [UNIVERSAL 23] UTCTime

// UTCTime represents the corresponding ASN.1 type. Only dates between
// 1950 and 2049 can be represented by this type.
//
// See also section 47 of Rec. ITU-T X.680.
type UTCTime time.Time

// IsValid reports whether the year of t is between 1950 and 2049.
func (t UTCTime) IsValid() bool {
	year := time.Time(t).UTC().Year()
	return year >= 1950 && year < 2050
}

// String returns the time of t in the canonical format YYMMDDhhmmssZ. The time
// is converted to UTC.
func (t UTCTime) String() string {
	tt := time.Time(t).UTC()
	b := strings.Builder{}
	b.Grow(13)
	b.WriteString(itoaN(tt.Year()%100, 2))
	b.WriteString(itoaN(tt.Month(), 2))
	b.WriteString(itoaN(tt.Day(), 2))
	b.WriteString(itoaN(tt.Hour(), 2))
	b.WriteString(itoaN(tt.Minute(), 2))
	b.WriteString(itoaN(tt.Second(), 2))
	b.WriteByte('Z')
	return b.String()
}

// itoaN returns the base 10 string representation of the absolute value of i,
// truncated or zero padded to exactly n digits.
func itoaN[T ~int](i T, n int) string {
	if i < 0 {
		i = -i
	}
	bs := make([]byte, n)
	for ; n > 0; n-- {
		bs[n-1] = '0' + byte(i%10)
		i /= 10
	}
	return unsafe.String(unsafe.SliceData(bs), len(bs))
}

//endregion

//region [UNIVERSAL 24] GeneralizedTime

// GeneralizedTime represents the corresponding ASN.1 type. This type can
// represent dates between years 1 and 9999 with microsecond precision.
//
// See also section 46 of Rec. ITU-T X.680.
type GeneralizedTime time.Time

// IsValid reports if the year of t is between 1 and 9999.
func (t GeneralizedTime) IsValid() bool {
	year := time.Time(t).UTC().Year()
	return year >= 1 && year <= 9999
}

// String returns the time of t in the canonical format
// YYYYMMDDhhmmss[.ffffff]Z. The time is converted to UTC, sub-microsecond
// precision is discarded and trailing zeros of the fraction are omitted.
func (t GeneralizedTime) String() string {
	tt := time.Time(t).UTC()
	b := strings.Builder{}
	b.Grow(22)
	b.WriteString(itoaN(tt.Year()%10000, 4))
	b.WriteString(itoaN(tt.Month(), 2))
	b.WriteString(itoaN(tt.Day(), 2))
	b.WriteString(itoaN(tt.Hour(), 2))
	b.WriteString(itoaN(tt.Minute(), 2))
	b.WriteString(itoaN(tt.Second(), 2))
	if us := tt.Nanosecond() / 1000; us > 0 {
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(itoaN(us, 6), "0"))
	}
	b.WriteByte('Z')
	return b.String()
}

//endregion
