package tlv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDataReader produces bytes (or ints converted to bytes) and errors in the
// order given by data.
type testDataReader struct {
	data []any
}

func (r *testDataReader) Read(p []byte) (n int, err error) {
	for n < len(p) && len(r.data) > 0 && err == nil {
		switch v := r.data[0].(type) {
		case byte:
			p[n] = v
			n++
		case int:
			p[n] = byte(v)
			n++
		case error:
			err = v
		default:
			panic(fmt.Sprintf("invalid data value: %v", v))
		}
		r.data = r.data[1:]
	}
	if len(r.data) == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

func TestReader_Next(t *testing.T) {
	tests := map[string]struct {
		input   []byte
		want    [][]byte
		offsets []int64
		err     error
	}{
		"Empty":  {input: []byte{}},
		"Single": {[]byte{0x02, 0x01, 0x15}, [][]byte{{0x02, 0x01, 0x15}}, []int64{0}, nil},
		"Multiple": {
			[]byte{0x02, 0x01, 0x15, 0x30, 0x00, 0x05, 0x00},
			[][]byte{{0x02, 0x01, 0x15}, {0x30, 0x00}, {0x05, 0x00}},
			[]int64{0, 3, 5}, nil,
		},
		"LongTag":    {[]byte{0x9f, 0x81, 0x00, 0x01, 0xaa}, [][]byte{{0x9f, 0x81, 0x00, 0x01, 0xaa}}, []int64{0}, nil},
		"LongLength": {append([]byte{0x04, 0x81, 0x80}, make([]byte, 128)...), [][]byte{append([]byte{0x04, 0x81, 0x80}, make([]byte, 128)...)}, []int64{0}, nil},
		"Indefinite": {
			[]byte{0x30, 0x80, 0x24, 0x80, 0x04, 0x01, 0xaa, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0xff},
			[][]byte{{0x30, 0x80, 0x24, 0x80, 0x04, 0x01, 0xaa, 0x00, 0x00, 0x00, 0x00}, {0x01, 0x01, 0xff}},
			[]int64{0, 11}, nil,
		},
		"TruncatedValue":  {input: []byte{0x04, 0x05, 0xaa}, err: ErrTruncated},
		"TruncatedHeader": {input: []byte{0x1f, 0x81}, err: ErrTruncated},
		"TruncatedLength": {input: []byte{0x04, 0x82, 0x01}, err: ErrTruncated},
		"MissingEOC":      {input: []byte{0x30, 0x80, 0x05, 0x00}, err: ErrTruncated},
		"TopLevelEOC":     {input: []byte{0x00, 0x00}, err: errUnexpectedEOC},
		"Reserved":        {input: []byte{0x04, 0xff}, err: ErrReservedLength},
		"NonMinimal":      {input: []byte{0x04, 0x81, 0x01, 0xaa}, err: ErrNonMinimalLength},
		"Primitive":       {input: []byte{0x04, 0x80, 0x00, 0x00}, err: ErrIndefinitePrimitive},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for _, wrap := range []func(io.Reader) io.Reader{
				func(r io.Reader) io.Reader { return r },
				iotest.OneByteReader,
				iotest.DataErrReader,
			} {
				r := NewReader(wrap(bytes.NewReader(tt.input)))
				var got [][]byte
				var offsets []int64
				var err error
				for {
					var off int64
					var b []byte
					off, b, err = r.Next()
					if err != nil {
						break
					}
					got = append(got, bytes.Clone(b))
					offsets = append(offsets, off)
				}
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.offsets, offsets)
				if tt.err == nil {
					assert.Equal(t, io.EOF, err)
					assert.Equal(t, int64(len(tt.input)), r.InputOffset())
					continue
				}
				var syntaxErr *SyntaxError
				require.ErrorAs(t, err, &syntaxErr)
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestReader_SyntaxErrorOffset(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x05, 0x00, 0x04, 0x03, 0xaa}))
	_, _, err := r.Next()
	require.NoError(t, err)
	_, _, err = r.Next()
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, int64(5), syntaxErr.ByteOffset)
	assert.Equal(t, "tlv: syntax error at offset 5: truncated header", err.Error())
}

func TestReader_ReadError(t *testing.T) {
	errRead := errors.New("read failed")
	r := NewReader(&testDataReader{[]any{0x02, 0x01, 0x15, 0x30, errRead}})
	_, b, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0x15}, b)
	_, _, err = r.Next()
	assert.Equal(t, errRead, err)
}
