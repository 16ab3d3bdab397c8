// Package vlq implements [Variable-length quantity] encoding as used in MIDI or
// BER. A VLQ is essentially a base-128 representation of an unsigned integer
// with the addition of the eighth bit to mark continuation of bytes. VLQ is
// identical to [LEB128] except in endianness.
//
// BER uses VLQs for long-form tag numbers and for the arcs of OBJECT IDENTIFIER
// and RELATIVE-OID values.
//
// [Variable-length quantity]: https://en.wikipedia.org/wiki/Variable-length_quantity
// [LEB128]: https://en.wikipedia.org/wiki/LEB128
package vlq

import (
	"errors"
	"math/bits"
	"unsafe"
)

var (
	ErrNotMinimal = errors.New("vlq is not minimally encoded")
	ErrOverflow   = errors.New("vlq too large for target type")
	ErrTruncated  = errors.New("vlq is truncated")
)

// Unsigned is the set of types a VLQ can be decoded into.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Decode parses an unsigned VLQ from the start of b and returns it together
// with the number of bytes it occupies. The maximum allowed value is limited by
// the size of T. Bytes after the VLQ are not inspected.
//
// Decode ignores an arbitrary amount of leading zeros (encoded as 0x80 bytes).
// Use [DecodeMinimal] to parse a minimally-encoded VLQ or [IsMinimal] to check
// the encoding afterward.
func Decode[T Unsigned](b []byte) (T, int, error) {
	return decode[T](b, false)
}

// DecodeMinimal works like [Decode] but returns [ErrNotMinimal] if the VLQ is
// not minimally encoded (i.e. if it starts with a 0x80 byte).
func DecodeMinimal[T Unsigned](b []byte) (T, int, error) {
	return decode[T](b, true)
}

// IsMinimal reports whether the VLQ at the start of b is minimally encoded.
func IsMinimal(b []byte) bool {
	return len(b) == 0 || b[0] != 0x80
}

// decode implements [Decode] and [DecodeMinimal]. If minimal is true, the
// encoded VLQ must be minimally encoded.
func decode[T Unsigned](b []byte, minimal bool) (ret T, n int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	if b[0] == 0x80 && minimal {
		return 0, 0, ErrNotMinimal
	}

	numBits := 0
	for n < len(b) {
		c := b[n]
		n++
		if numBits == 0 {
			numBits = bits.Len8(c & 0x7f)
		} else {
			numBits += 7
		}
		if numBits > int(unsafe.Sizeof(ret)*8) {
			return 0, n, ErrOverflow
		}
		ret <<= 7
		ret |= T(c & 0x7f)
		if c&0x80 == 0 {
			return ret, n, nil
		}
	}
	return 0, n, ErrTruncated
}

// Length returns the number of bytes needed to encode n as a VLQ.
func Length[T Unsigned](n T) int {
	if n == 0 {
		return 1
	}
	l := 0
	for i := n; i > 0; i >>= 7 {
		l++
	}
	return l
}

// Append appends the minimal VLQ encoding of i to b and returns the extended
// slice.
func Append[T Unsigned](b []byte, i T) []byte {
	for j := Length(i) - 1; j >= 0; j-- {
		c := byte(i>>(j*7)) & 0x7f
		if j > 0 {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}
