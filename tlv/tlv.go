// Package tlv implements the identifier and length octets of the
// tag-length-value (TLV) format used by the Basic Encoding Rules (BER) and
// related encoding rules as specified in [Rec. ITU-T X.690].
// See also “[A Layman's Guide to a Subset of ASN.1, BER, and DER]”.
//
// This package deals with the syntactic layer of TLV-encoding while the
// [codello.dev/x/asn1/ber] package deals with the semantic layer of BER.
//
// # Headers
//
// In BER each value is encoded using a tag-length-value format. The tag and
// length (we call them a header) are represented by the [Header] type. Tags
// are encoded in a single byte if their number is less than 31, otherwise as a
// base-128 number following the first byte. Lengths are encoded in the short
// form if less than 128, in the minimal long form otherwise, or as the
// indefinite-length marker 0x80 for constructed encodings terminated by an
// end-of-contents marker.
//
// All decoding functions in this package operate on byte slices. They report
// the number of bytes they consumed and never complain about bytes following
// the decoded element.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
// [A Layman's Guide to a Subset of ASN.1, BER, and DER]: http://luca.ntop.org/Teaching/Appunti/asn1.html
package tlv

import (
	"io"
	"math"
	"strconv"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/internal/vlq"
)

// TagEndOfContents is the tag that signifies the end of a constructed element.
const TagEndOfContents = asn1.TagReserved

// EndOfContents holds the encoding of the end-of-contents marker that
// terminates indefinite-length encodings.
var EndOfContents = []byte{0x00, 0x00}

// LengthIndefinite when used as a magic number for the length of a [Header]
// indicates that the data value is encoded using the constructed
// indefinite-length format.
const LengthIndefinite = -1

// CombinedLength returns the length of a data value encoding (not including its
// header) consisting of data value encodings of the specified lengths. If any
// of the passed lengths are [LengthIndefinite] or the result does not fit into
// the int type, the result is [LengthIndefinite].
func CombinedLength(ls ...int) int {
	sum := 0
	for _, l := range ls {
		if l == LengthIndefinite {
			return LengthIndefinite
		}
		if l > math.MaxInt-sum { // overflow
			return LengthIndefinite
		}
		sum += l
	}
	return sum
}

// IsEndOfContents reports whether b starts with an end-of-contents marker.
func IsEndOfContents(b []byte) bool {
	return len(b) >= 2 && b[0] == 0 && b[1] == 0
}

// Header represents a TLV header. The [Header.Length] may be [LengthIndefinite]
// if an indefinite-length encoding is used. It is invalid to use the
// indefinite-length encoding when [Header.Constructed] = false.
type Header struct {
	Tag         asn1.Tag
	Constructed bool
	Length      int
}

// String returns a string representation of h.
func (h Header) String() string {
	if h == (Header{}) {
		return "EndOfContents"
	}
	s := h.Tag.String()
	if h.Constructed {
		s += "/c"
	} else {
		s += "/p"
	}
	if h.Length == LengthIndefinite {
		return s + ":indefinite"
	}
	return s + ":" + strconv.Itoa(h.Length)
}

// Size computes the number of bytes required to encode h.
func (h Header) Size() int {
	return TagSize(h.Tag) + LengthSize(h.Length)
}

// Append appends the encoding of h to b and returns the extended slice.
func (h Header) Append(b []byte) []byte {
	b = AppendTag(b, h.Tag, h.Constructed)
	return AppendLength(b, h.Length)
}

// WriteTo writes the encoding of h to w. It returns the number of bytes
// written as well as any error that occurs during writing.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var buf [16]byte
	n, err := w.Write(h.Append(buf[:0]))
	return int64(n), err
}

// DecodeHeader decodes the identifier and length octets at the start of b. It
// returns the header and the number of bytes occupied by the tag and by the
// length respectively.
func DecodeHeader(b []byte) (h Header, tagLen, lenLen int, err error) {
	h.Tag, h.Constructed, tagLen, err = DecodeTag(b)
	if err != nil {
		return h, tagLen, 0, err
	}
	h.Length, lenLen, err = DecodeLength(b[tagLen:])
	if err == nil && h.Length == LengthIndefinite && !h.Constructed {
		err = ErrIndefinitePrimitive
	}
	return h, tagLen, lenLen, err
}

//region Tags

// TagSize returns the number of bytes required to encode t.
func TagSize(t asn1.Tag) int {
	if t.Number < 31 {
		return 1
	}
	return 1 + vlq.Length(t.Number)
}

// EncodeTag returns the identifier octets for t.
func EncodeTag(t asn1.Tag, constructed bool) []byte {
	return AppendTag(make([]byte, 0, TagSize(t)), t, constructed)
}

// AppendTag appends the identifier octets for t to b and returns the extended
// slice. Tag numbers less than 31 use the single byte form, other numbers use
// the minimal multi-byte form.
func AppendTag(b []byte, t asn1.Tag, constructed bool) []byte {
	c := byte(t.Class&0b11) << 6
	if constructed {
		c |= 0x20
	}
	if t.Number < 31 {
		return append(b, c|byte(t.Number))
	}
	return vlq.Append(append(b, c|0x1f), t.Number)
}

// DecodeTag decodes the identifier octets at the start of b. It returns the
// tag, whether the constructed encoding is used and the number of bytes
// consumed.
//
// A multi-byte tag number starting with a 0x80 byte is rejected with
// [ErrLeadingZero].
func DecodeTag(b []byte) (t asn1.Tag, constructed bool, n int, err error) {
	if len(b) == 0 {
		return t, false, 0, ErrTruncated
	}
	t.Class = asn1.Class(b[0] >> 6)
	constructed = b[0]&0x20 == 0x20
	if b[0]&0x1f != 0x1f {
		t.Number = uint(b[0] & 0x1f)
		return t, constructed, 1, nil
	}
	num, l, err := vlq.DecodeMinimal[uint](b[1:])
	switch err {
	case nil:
	case vlq.ErrNotMinimal:
		return t, constructed, 1, ErrLeadingZero
	case vlq.ErrTruncated:
		return t, constructed, 1 + l, ErrTruncated
	default:
		return t, constructed, 1 + l, ErrTagOverflow
	}
	t.Number = num
	return t, constructed, 1 + l, nil
}

//endregion

//region Lengths

// LengthSize returns the number of bytes required to encode the length l.
func LengthSize(l int) int {
	if l == LengthIndefinite || l < 128 {
		return 1
	}
	n := 1
	for ; l > 255; l >>= 8 {
		n++
	}
	return 1 + n
}

// EncodeLength returns the length octets for l.
func EncodeLength(l int) []byte {
	return AppendLength(make([]byte, 0, LengthSize(l)), l)
}

// AppendLength appends the length octets for l to b and returns the extended
// slice. Lengths less than 128 use the short form, other lengths the minimal
// long form. [LengthIndefinite] produces the indefinite-length marker.
func AppendLength(b []byte, l int) []byte {
	if l == LengthIndefinite {
		return append(b, 0x80)
	}
	if l < 128 {
		return append(b, byte(l))
	}
	numBytes := LengthSize(l) - 1
	b = append(b, 0x80|byte(numBytes))
	for ; numBytes > 0; numBytes-- {
		b = append(b, byte(l>>uint((numBytes-1)*8)))
	}
	return b
}

// DecodeLength decodes the length octets at the start of b. It returns the
// length (or [LengthIndefinite]) and the number of bytes consumed.
//
// Only minimal encodings are accepted: a long form length below 128 or with a
// leading zero byte is rejected with [ErrNonMinimalLength]. The reserved
// value 0xFF is rejected with [ErrReservedLength].
func DecodeLength(b []byte) (l int, n int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	first := b[0]
	switch {
	case first < 0x80:
		return int(first), 1, nil
	case first == 0x80:
		return LengthIndefinite, 1, nil
	case first == 0xFF:
		return 0, 1, ErrReservedLength
	}
	numBytes := int(first & 0x7f)
	if len(b) < 1+numBytes {
		return 0, len(b), ErrTruncated
	}
	if b[1] == 0 {
		return 0, 1 + numBytes, ErrNonMinimalLength
	}
	for _, c := range b[1 : 1+numBytes] {
		if l > (math.MaxInt-int(c))>>8 {
			return 0, 1 + numBytes, ErrLengthOverflow
		}
		l = l<<8 | int(c)
	}
	if l < 128 {
		return 0, 1 + numBytes, ErrNonMinimalLength
	}
	return l, 1 + numBytes, nil
}

//endregion
