package tlv

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

var errUnexpectedEOC = errors.New("unexpected end-of-contents")

// A SyntaxError is returned by [Reader.Next] if the input does not consist of
// valid TLV encodings.
type SyntaxError struct {
	ByteOffset int64 // offset in the input at which the error was detected
	Err        error
}

func (e *SyntaxError) Error() string {
	return "tlv: syntax error at offset " + strconv.FormatInt(e.ByteOffset, 10) + ": " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// A Reader splits a stream into its top-level TLV encodings. Only the headers
// are interpreted, contents are passed through unchanged. Indefinite-length
// encodings are followed to their end-of-contents marker.
//
// A Reader buffers at most one top-level encoding in addition to the buffering
// of the underlying reader.
type Reader struct {
	br interface {
		io.Reader
		io.ByteReader
	}
	offset int64
	buf    bytes.Buffer
}

// NewReader returns a Reader reading from r. If r does not implement
// [io.ByteReader], the Reader does its own buffering and may read past the
// last encoding returned.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{}
	if br, ok := r.(interface {
		io.Reader
		io.ByteReader
	}); ok {
		rd.br = br
	} else {
		rd.br = bufio.NewReader(r)
	}
	return rd
}

// InputOffset returns the number of bytes consumed from the input.
func (r *Reader) InputOffset() int64 {
	return r.offset
}

// Next returns the next top-level encoding and its offset in the input. The
// returned slice is only valid until the next call of Next. At the end of the
// input Next returns [io.EOF]. If the input ends within an encoding, the
// returned [*SyntaxError] wraps [ErrTruncated]. Errors of the underlying reader
// are returned unchanged.
func (r *Reader) Next() (int64, []byte, error) {
	off := r.offset
	r.buf.Reset()
	h, err := r.readTLV()
	if err == nil && h == (Header{}) {
		err = errUnexpectedEOC
	}
	switch {
	case err == io.EOF && r.buf.Len() == 0:
		return off, nil, io.EOF
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		err = ErrTruncated
	}
	if err != nil {
		if isSyntax(err) {
			err = &SyntaxError{ByteOffset: r.offset, Err: err}
		}
		return off, nil, err
	}
	return off, r.buf.Bytes(), nil
}

func isSyntax(err error) bool {
	for _, e := range []error{
		ErrTruncated, ErrLeadingZero, ErrTagOverflow, ErrNonMinimalLength,
		ErrReservedLength, ErrLengthOverflow, ErrIndefinitePrimitive, errUnexpectedEOC,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// readTLV appends the next complete encoding to r.buf and returns its header.
// An end-of-contents marker is returned as the zero Header.
func (r *Reader) readTLV() (Header, error) {
	start := r.buf.Len()
	if err := r.readHeader(); err != nil {
		return Header{}, err
	}
	h, _, _, err := DecodeHeader(r.buf.Bytes()[start:])
	if err != nil {
		return h, err
	}
	if h.Length != LengthIndefinite {
		n, err := io.CopyN(&r.buf, r.br, int64(h.Length))
		r.offset += n
		return h, err
	}
	for {
		c, err := r.readTLV()
		if err != nil {
			return h, err
		}
		if c == (Header{}) {
			return h, nil
		}
	}
}

// readHeader copies the identifier and length octets of the next header to
// r.buf.
func (r *Reader) readHeader() error {
	b, err := r.readByte()
	if err != nil {
		return err
	}
	if b&0x1f == 0x1f {
		for n := 0; ; n++ {
			if b, err = r.readByte(); err != nil {
				return err
			}
			if b&0x80 == 0 || n == 10 {
				break
			}
		}
	}
	if b, err = r.readByte(); err != nil {
		return err
	}
	if b <= 0x80 || b == 0xff {
		return nil
	}
	for range b & 0x7f {
		if _, err = r.readByte(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		if err == io.EOF && r.buf.Len() > 0 {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	r.buf.WriteByte(b)
	r.offset++
	return b, nil
}
