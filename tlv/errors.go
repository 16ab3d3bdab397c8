package tlv

import "errors"

// Errors returned by the decoding functions of this package. Callers in the
// ber package translate them into their own error taxonomy, the sentinels
// remain accessible via errors.Is.
var (
	ErrTruncated           = errors.New("truncated header")
	ErrLeadingZero         = errors.New("leading zero byte")
	ErrTagOverflow         = errors.New("tag number too large")
	ErrNonMinimalLength    = errors.New("non-minimal length encoding")
	ErrReservedLength      = errors.New("reserved length octet")
	ErrLengthOverflow      = errors.New("length too large")
	ErrIndefinitePrimitive = errors.New("indefinite length in primitive encoding")
)
