// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/x/asn1"
)

func TestSequence_Encode(t *testing.T) {
	spec := NewSequence([]Field{
		{"erste", new(Integer)},
		{"zweite", With(new(Integer), Optional())},
	})
	tests := map[string]struct {
		set  map[string]int64
		want string
	}{
		"OnlyRequired": {map[string]int64{"erste": 64}, "30 03 02 01 40"},
		"Both":         {map[string]int64{"erste": 64, "zweite": 1}, "30 06 02 01 40 02 01 01"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := spec
			for _, f := range []string{"erste", "zweite"} {
				if i, ok := tt.set[f]; ok {
					v = v.MustSet(f, NewInteger(i))
				}
			}
			b, err := v.Encode()
			require.NoError(t, err)
			assert.Equal(t, mustHex(tt.want), b)

			got, err := Unmarshal(spec, b, nil)
			require.NoError(t, err)
			assert.True(t, Equal(v, got))
			assert.False(t, got.Bered())
		})
	}
}

func TestSequence_Default(t *testing.T) {
	spec := NewSequence([]Field{
		{"version", With(new(Integer), Expl(asn1.Context(0)), Default(NewInteger(0)))},
		{"serial", new(Integer)},
	})

	t.Run("Elided", func(t *testing.T) {
		v := spec.MustSet("version", NewInteger(0)).MustSet("serial", NewInteger(7))
		assert.False(t, v.Has("version"))
		ver, err := Get[*Integer](v, "version")
		require.NoError(t, err)
		i, _ := ver.Int64()
		assert.Equal(t, int64(0), i)

		b, err := v.Encode()
		require.NoError(t, err)
		assert.Equal(t, mustHex("30 03 02 01 07"), b)
		cer, err := v.EncodeCER()
		require.NoError(t, err)
		assert.Equal(t, mustHex("30 80 02 01 07 00 00"), cer)
	})
	t.Run("Present", func(t *testing.T) {
		v := spec.MustSet("version", NewInteger(2)).MustSet("serial", NewInteger(7))
		b, err := v.Encode()
		require.NoError(t, err)
		assert.Equal(t, mustHex("30 08 a0 03 02 01 02 02 01 07"), b)
	})
	t.Run("DefaultMet", func(t *testing.T) {
		data := mustHex("30 08 a0 03 02 01 00 02 01 07")
		_, err := Unmarshal(spec, data, nil)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, KindDecode, e.Kind)
		assert.Equal(t, "DEFAULT value met", e.Msg)
		assert.Equal(t, Path{"version"}, e.Path)
		assert.Equal(t, 2, e.Offset)

		for name, ctx := range map[string]*Context{"BERed": {BERed: true}, "AllowDefaultValues": {AllowDefaultValues: true}} {
			got, err := Unmarshal(spec, data, ctx)
			require.NoError(t, err, name)
			assert.True(t, got.Bered(), name)
			assert.True(t, got.Has("version"), name)
			redone, err := got.Encode()
			require.NoError(t, err)
			assert.Equal(t, mustHex("30 03 02 01 07"), redone)
		}
	})
}

func TestSequence_Decode(t *testing.T) {
	spec := NewSequence([]Field{
		{"a", With(new(Integer), Optional())},
		{"b", With(new(Boolean), Impl(asn1.Context(1)), Optional())},
		{"c", new(OctetString)},
	})
	tests := map[string]struct {
		data    string
		want    []string
		wantErr error
	}{
		"All":              {"30 09 02 01 01 81 01 ff 04 01 aa", []string{"a", "b", "c"}, nil},
		"SkipA":            {"30 06 81 01 ff 04 01 aa", []string{"b", "c"}, nil},
		"OnlyRequired":     {"30 03 04 01 aa", []string{"c"}, nil},
		"MissingRequired":  {"30 03 02 01 01", nil, ErrDecode},
		"WrongTag":         {"30 03 05 00 00", nil, ErrTagMismatch},
		"RemainingData":    {"30 05 04 01 aa 05 00", nil, ErrDecode},
		"Primitive":        {"10 03 04 01 aa", nil, ErrDecode},
		"ChildTruncated":   {"30 03 04 02 aa", nil, ErrNotEnoughData},
		"ChildExceeds":     {"30 03 04 03 aa bb cc", nil, ErrNotEnoughData},
		"IndefiniteStrict": {"30 80 04 01 aa 00 00", nil, ErrLenIndefForm},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Unmarshal(spec, mustHex(tt.data), nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			var names []string
			for name := range got.All() {
				names = append(names, name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSequence_ErrorPath(t *testing.T) {
	spec := NewSequence([]Field{
		{"inner", NewSequence([]Field{
			{"flag", new(Boolean)},
		})},
	})
	_, err := Unmarshal(spec, mustHex("30 05 30 03 01 01 05"), nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindDecode, e.Kind)
	assert.Equal(t, Path{"inner", "flag"}, e.Path)
	assert.Equal(t, 4, e.Offset)
}

func TestSequence_Set(t *testing.T) {
	spec := NewSequence([]Field{{"a", new(Integer)}})
	_, err := spec.Set("b", NewInteger(1))
	assert.ErrorIs(t, err, ErrObjUnknown)
	_, err = spec.Set("a", NewBoolean(true))
	assert.ErrorIs(t, err, ErrInvalidValueType)

	v := spec.MustSet("a", NewInteger(1))
	assert.False(t, spec.Has("a"))
	assert.True(t, v.Has("a"))
	assert.False(t, spec.Ready())
	assert.True(t, v.Ready())

	_, err = Get[*Boolean](v, "a")
	assert.ErrorIs(t, err, ErrInvalidValueType)
	_, err = Get[*Integer](v, "x")
	assert.ErrorIs(t, err, ErrObjUnknown)
}

func TestSet(t *testing.T) {
	spec := NewSet([]Field{
		{"z", With(new(Integer), Impl(asn1.Context(2)))},
		{"y", new(Boolean)},
		{"x", With(new(OctetString), Impl(asn1.Context(0)), Optional())},
	})
	v := spec.MustSet("z", NewInteger(1)).MustSet("y", NewBoolean(true)).MustSet("x", NewOctetString([]byte{0xAA}))
	b, err := v.Encode()
	require.NoError(t, err)
	// universal before context-specific, then by number
	want := mustHex("31 09 01 01 ff 80 01 aa 82 01 01")
	assert.Equal(t, want, b)

	got, err := Unmarshal(spec, want, nil)
	require.NoError(t, err)
	assert.True(t, Equal(v, got))
	assert.False(t, got.Bered())

	unordered := mustHex("31 09 82 01 01 01 01 ff 80 01 aa")
	_, err = Unmarshal(spec, unordered, nil)
	assert.ErrorIs(t, err, ErrDecode)

	for name, ctx := range map[string]*Context{"BERed": {BERed: true}, "AllowUnorderedSet": {AllowUnorderedSet: true}} {
		got, err = Unmarshal(spec, unordered, ctx)
		require.NoError(t, err, name)
		assert.True(t, got.Bered(), name)
		redone, err := got.Encode()
		require.NoError(t, err)
		assert.Equal(t, want, redone, name)
	}

	_, err = Unmarshal(spec, mustHex("31 06 01 01 ff 01 01 00"), &Context{BERed: true})
	assert.ErrorIs(t, err, ErrDecode)
	_, err = Unmarshal(spec, mustHex("31 03 01 01 ff"), nil)
	assert.ErrorIs(t, err, ErrDecode)

	assert.Panics(t, func() { NewSet([]Field{{"a", new(Integer)}, {"b", new(Integer)}}) })
}

func TestChoice(t *testing.T) {
	spec := NewChoice([]Field{
		{"num", new(Integer)},
		{"text", UTF8String()},
		{"tagged", With(new(Integer), Impl(asn1.Context(0)))},
	})
	tests := map[string]struct {
		alt  string
		val  Value
		want string
	}{
		"Num":    {"num", NewInteger(5), "02 01 05"},
		"Text":   {"text", must(UTF8String().Of("hi")), "0c 02 68 69"},
		"Tagged": {"tagged", NewInteger(5), "80 01 05"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := spec.Set(tt.alt, tt.val)
			require.NoError(t, err)
			b, err := v.Encode()
			require.NoError(t, err)
			assert.Equal(t, mustHex(tt.want), b)

			got, err := Unmarshal(spec, b, nil)
			require.NoError(t, err)
			alt, val := got.Chosen()
			assert.Equal(t, tt.alt, alt)
			assert.True(t, Equal(tt.val, val))
			assert.Equal(t, len(b), got.Meta().TLVLen())
		})
	}

	_, err := Unmarshal(spec, mustHex("01 01 ff"), nil)
	assert.ErrorIs(t, err, ErrTagMismatch)
	_, err = spec.Set("other", NewInteger(1))
	assert.ErrorIs(t, err, ErrObjUnknown)
	_, err = spec.Encode()
	assert.ErrorIs(t, err, ErrObjNotReady)
	assert.Panics(t, func() { NewChoice([]Field{{"a", new(Integer)}, {"b", NewInteger(1)}}) })
}

func TestChoice_InSequence(t *testing.T) {
	time := NewChoice([]Field{
		{"utcTime", new(UTCTime)},
		{"generalTime", new(GeneralizedTime)},
	})
	spec := NewSequence([]Field{
		{"id", new(Integer)},
		{"when", With(time, Optional())},
		{"tagged", With(time, Expl(asn1.Context(3)), Optional())},
	})
	data := mustHex("30 14 02 01 01 a3 0f 17 0d 31 39 31 32 31 35 31 39 30 32 31 30 5a")
	got, err := Unmarshal(spec, data, nil)
	require.NoError(t, err)
	assert.False(t, got.Has("when"))
	c, err := Get[*Choice](got, "tagged")
	require.NoError(t, err)
	alt, _ := c.Chosen()
	assert.Equal(t, "utcTime", alt)
	assert.Equal(t, 5, c.Meta().ExplOffset())
	redone, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, redone)
}

func TestSequenceOf(t *testing.T) {
	spec := With(NewSequenceOf(new(Integer)), Bounds(1, 3))
	v, err := spec.Of(NewInteger(1), NewInteger(2))
	require.NoError(t, err)
	b, err := v.Encode()
	require.NoError(t, err)
	assert.Equal(t, mustHex("30 06 02 01 01 02 01 02"), b)

	got, err := Unmarshal(spec, b, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, "2", got.At(1).String())

	_, err = spec.Of()
	assert.ErrorIs(t, err, ErrBounds)
	_, err = spec.Of(NewBoolean(true))
	assert.ErrorIs(t, err, ErrInvalidValueType)
	_, err = Unmarshal(spec, mustHex("30 00"), nil)
	assert.ErrorIs(t, err, ErrDecode)
	_, err = Unmarshal(spec, mustHex("30 06 02 01 01 01 01 ff"), nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Path{"1"}, e.Path)
}

func TestSetOf(t *testing.T) {
	spec := NewSetOf(new(OctetString))
	v, err := spec.Of(NewOctetString([]byte{0x02, 0x01}), NewOctetString([]byte{0x01}), NewOctetString([]byte{0x02}))
	require.NoError(t, err)
	b, err := v.Encode()
	require.NoError(t, err)
	want := mustHex("31 0a 04 01 01 04 01 02 04 02 02 01")
	assert.Equal(t, want, b)
	cer, err := v.EncodeCER()
	require.NoError(t, err)
	assert.Equal(t, mustHex("31 80 04 01 01 04 01 02 04 02 02 01 00 00"), cer)

	unordered := mustHex("31 0a 04 02 02 01 04 01 01 04 01 02")
	_, err = Unmarshal(spec, unordered, nil)
	assert.ErrorIs(t, err, ErrDecode)
	got, err := Unmarshal(spec, unordered, &Context{BERed: true})
	require.NoError(t, err)
	assert.True(t, got.Bered())
	redone, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, want, redone)
}

func TestSequenceOf_FromSeq(t *testing.T) {
	spec := NewSequenceOf(new(Integer))
	count := 0
	seq := func(yield func(Value) bool) {
		for i := range 3 {
			count++
			if !yield(NewInteger(int64(i))) {
				return
			}
		}
	}
	v := spec.FromSeq(iter.Seq[Value](seq))
	assert.True(t, v.Ready())
	p, err := v.Prepare(false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 11, p.Len())

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, 11, n)
	assert.Equal(t, mustHex("30 09 02 01 00 02 01 01 02 01 02"), buf.Bytes())

	_, err = p.WriteTo(&buf)
	assert.ErrorIs(t, err, ErrObjNotReady)
}

func TestSequenceOf_FromSeqOnce(t *testing.T) {
	channelSeq := func() iter.Seq[Value] {
		ch := make(chan Value, 3)
		for i := range 3 {
			ch <- NewInteger(int64(i))
		}
		close(ch)
		return func(yield func(Value) bool) {
			for v := range ch {
				if !yield(v) {
					return
				}
			}
		}
	}
	tests := map[string]func(v *SequenceOf) error{
		"Encode": func(v *SequenceOf) error {
			_, err := v.Encode()
			return err
		},
		"EncodeCER": func(v *SequenceOf) error {
			_, err := v.EncodeCER()
			return err
		},
		"Prepare": func(v *SequenceOf) error {
			_, err := v.Prepare(false)
			return err
		},
	}
	for name, again := range tests {
		t.Run(name, func(t *testing.T) {
			v := NewSequenceOf(new(Integer)).FromSeq(channelSeq())
			require.True(t, v.Ready())
			got, err := v.Encode()
			require.NoError(t, err)
			assert.Equal(t, mustHex("30 09 02 01 00 02 01 01 02 01 02"), got)

			assert.False(t, v.Ready())
			assert.ErrorIs(t, again(v), ErrObjNotReady)
		})
	}
}

func TestSequenceOf_FromSeqField(t *testing.T) {
	spec := NewSequence([]Field{{"list", NewSequenceOf(new(Integer))}})
	list := NewSequenceOf(new(Integer)).FromSeq(func(yield func(Value) bool) {
		yield(NewInteger(7))
	})
	seq, err := spec.Set("list", list)
	require.NoError(t, err)
	got, err := seq.Encode()
	require.NoError(t, err)
	assert.Equal(t, mustHex("30 05 30 03 02 01 07"), got)

	// the field shares the element source with list
	assert.False(t, list.Ready())
	_, err = seq.Encode()
	assert.ErrorIs(t, err, ErrObjNotReady)
}

func TestSequenceOf_FromSeqBounds(t *testing.T) {
	spec := With(NewSequenceOf(new(Integer)), Bounds(0, 1))
	v := spec.FromSeq(func(yield func(Value) bool) {
		_ = yield(NewInteger(1)) && yield(NewInteger(2))
	})
	_, err := v.Prepare(false)
	assert.ErrorIs(t, err, ErrBounds)
}
