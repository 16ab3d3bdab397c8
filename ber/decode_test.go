// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

func TestEvents(t *testing.T) {
	spec := NewSequence([]Field{
		{"a", new(Integer)},
		{"list", NewSequenceOf(new(Boolean))},
	})
	data := mustHex("30 0b 02 01 01 30 06 01 01 ff 01 01 00 05 00")

	var paths []string
	var last Event
	for e, err := range Events(spec, data, nil) {
		require.NoError(t, err)
		paths = append(paths, "/"+e.Path.String())
		last = e
	}
	assert.Equal(t, []string{"/a", "/list/0", "/list/1", "/list", "/"}, paths)
	assert.Equal(t, mustHex("05 00"), last.Tail)

	seq := last.Value.(*Sequence)
	list, err := Get[*SequenceOf](seq, "list")
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
	assert.Empty(t, list.vals)
	assert.False(t, list.Ready())
	assert.Equal(t, "SEQUENCE OF (2 elements, not retained)", list.String())

	_, err = seq.Encode()
	assert.ErrorIs(t, err, ErrObjNotReady)
}

func TestEvents_SequenceOfNotRetained(t *testing.T) {
	spec := NewSequenceOf(new(Integer))
	var last Event
	for e, err := range Events(spec, mustHex("30 06 02 01 01 02 01 02"), nil) {
		require.NoError(t, err)
		last = e
	}
	list := last.Value.(*SequenceOf)
	assert.Equal(t, 2, list.Len())
	assert.False(t, list.Ready())
	_, err := list.Encode()
	assert.ErrorIs(t, err, ErrObjNotReady)

	// a regular decode keeps the elements
	full, err := Unmarshal(spec, mustHex("30 06 02 01 01 02 01 02"), nil)
	require.NoError(t, err)
	assert.True(t, full.Ready())
	got, err := full.Encode()
	require.NoError(t, err)
	assert.Equal(t, mustHex("30 06 02 01 01 02 01 02"), got)
}

func TestEvents_Stop(t *testing.T) {
	spec := NewSequenceOf(new(Integer))
	data := mustHex("30 09 02 01 01 02 01 02 02 01 03")
	n := 0
	for _, err := range Events(spec, data, nil) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestEvents_Error(t *testing.T) {
	spec := NewSequenceOf(new(Integer))
	data := mustHex("30 06 02 01 01 01 01 ff")
	var events int
	var errs []error
	for e, err := range Events(spec, data, nil) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assert.Equal(t, Path{"0"}, e.Path)
		events++
	}
	assert.Equal(t, 1, events)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTagMismatch)
}

func TestDecodeAt(t *testing.T) {
	spec := NewSequence([]Field{{"flag", new(Boolean)}})
	_, _, err := DecodeAt(spec, mustHex("30 03 01 01 07"), 100, Path{"outer"}, nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 102, e.Offset)
	assert.Equal(t, Path{"outer", "flag"}, e.Path)
	assert.Contains(t, e.Error(), "at offset 102 (outer/flag)")

	v, rest, err := DecodeAt(spec, mustHex("30 03 01 01 ff 00"), 100, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, rest)
	assert.Equal(t, 102, v.Get("flag").Meta().Offset)
}

func TestDecode_Truncated(t *testing.T) {
	tests := map[string]struct {
		data string
	}{
		"Empty":        {""},
		"TagOnly":      {"30"},
		"LongTag":      {"1f 81"},
		"LongLength":   {"04 82 01"},
		"ShortContent": {"04 05 01 02"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(new(OctetString), mustHex(tt.data), nil)
			assert.ErrorIs(t, err, ErrNotEnoughData)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestDecode_HeaderErrors(t *testing.T) {
	tests := map[string]struct {
		data    string
		wantErr error
	}{
		"LeadingZeroTag":   {"1f 80 01 00", tlv.ErrLeadingZero},
		"NonMinimalLength": {"04 81 01 00", tlv.ErrNonMinimalLength},
		"ReservedLength":   {"04 ff", tlv.ErrReservedLength},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(new(OctetString), mustHex(tt.data), &Context{BERed: true})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestError_Is(t *testing.T) {
	err := error(&Error{Kind: KindTagMismatch, Offset: 3})
	assert.ErrorIs(t, err, ErrTagMismatch)
	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrNotEnoughData)

	err = newError(KindBounds, NewInteger(1), "too large")
	assert.ErrorIs(t, err, ErrBounds)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.Equal(t, "ber: INTEGER: Bounds: too large", err.Error())

	wrapped := &Error{Kind: KindDecode, Offset: 0, Err: tlv.ErrTruncated}
	assert.True(t, errors.Is(wrapped, tlv.ErrTruncated))
}

func TestContext_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := &Context{BERed: true, Logger: &log}

	spec := NewSequence([]Field{{"flag", new(Boolean)}})
	got, err := Unmarshal(spec, mustHex("30 80 01 01 01 00 00"), ctx)
	require.NoError(t, err)
	assert.True(t, got.Bered())
	assert.True(t, got.Get("flag").Meta().BEREncoded)

	out := buf.String()
	assert.Contains(t, out, `"message":"non-canonical BOOLEAN"`)
	assert.Contains(t, out, `"path":"flag"`)
	assert.Contains(t, out, `"message":"indefinite length"`)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestDecode_DERNeverBered(t *testing.T) {
	v := NewSequence([]Field{
		{"a", new(Integer)},
		{"b", NewSetOf(UTF8String())},
		{"c", With(new(BitString), Expl(asn1.Application(1)))},
	}).
		MustSet("a", NewInteger(-300)).
		MustSet("b", must(NewSetOf(UTF8String()).Of(must(UTF8String().Of("b")), must(UTF8String().Of("a"))))).
		MustSet("c", NewBitString(asn1.BitString{Bytes: []byte{0xF0}, BitLength: 4}))
	der, err := v.Encode()
	require.NoError(t, err)
	cer, err := v.EncodeCER()
	require.NoError(t, err)
	assert.NotEqual(t, der, cer)

	got, err := Unmarshal(v, der, nil)
	require.NoError(t, err)
	assert.False(t, got.Bered())

	_, err = Unmarshal(v, cer, nil)
	assert.ErrorIs(t, err, ErrLenIndefForm)
	got, err = Unmarshal(v, cer, &Context{BERed: true})
	require.NoError(t, err)
	assert.True(t, got.Bered())
	redone, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, der, redone)
}
