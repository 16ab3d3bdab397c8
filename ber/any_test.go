// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/x/asn1"
)

func TestAny_Decode(t *testing.T) {
	tests := map[string]struct {
		data  string
		ctx   *Context
		want  asn1.Tag
		bered bool
		kind  Kind
	}{
		"Primitive":  {data: "04 02 aa bb", want: asn1.Universal(asn1.TagOctetString)},
		"Context":    {data: "9f 1f 00", want: asn1.Context(31)},
		"Sequence":   {data: "30 03 02 01 05", want: asn1.Universal(asn1.TagSequence)},
		"Indefinite": {data: "30 80 02 01 05 00 00", ctx: &Context{BERed: true}, want: asn1.Universal(asn1.TagSequence), bered: true},
		"Opaque":     {data: "30 06 24 80 04 00 00 00", ctx: &Context{BERed: true}, want: asn1.Universal(asn1.TagSequence)},
		"Strict":     {data: "30 80 02 01 05 00 00", kind: KindLenIndefForm},
		"Truncated":  {data: "04 05 aa", kind: KindNotEnoughData},
		"NoEOC":      {data: "30 80 02 01 05", ctx: &Context{BERed: true}, kind: KindNotEnoughData},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			data := mustHex(tt.data)
			got, err := Unmarshal(new(Any), data, tt.ctx)
			if tt.kind != 0 {
				var e *Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.kind, e.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, data, got.Raw())
			assert.Equal(t, tt.want, got.Tag())
			assert.Equal(t, tt.bered, got.Bered())
			assert.Equal(t, len(data), got.Meta().TLVLen())
		})
	}
}

func TestAny_Explicit(t *testing.T) {
	spec := With(new(Any), Expl(asn1.Context(1)))
	v := With(NewAny(mustHex("02 01 05")), Expl(asn1.Context(1)))
	assert.Equal(t, asn1.Context(1), v.Tag())

	der, err := v.Encode()
	require.NoError(t, err)
	assert.Equal(t, mustHex("a1 03 02 01 05"), der)
	cer, err := v.EncodeCER()
	require.NoError(t, err)
	assert.Equal(t, mustHex("a1 80 02 01 05 00 00"), cer)

	got, err := Unmarshal(spec, der, nil)
	require.NoError(t, err)
	assert.Equal(t, mustHex("02 01 05"), got.Raw())
	m := got.Meta()
	assert.Equal(t, 2, m.Offset)
	assert.Equal(t, 0, m.ExplOffset())
	assert.Equal(t, 5, m.ExplTLVLen())
}

func TestAny_Of(t *testing.T) {
	v, err := AnyOf(NewInteger(5))
	require.NoError(t, err)
	assert.Equal(t, mustHex("02 01 05"), v.Raw())
	assert.Equal(t, "[UNIVERSAL 2] 3 bytes", v.String())

	_, err = new(Any).Of(mustHex("02 01 05 00"))
	assert.ErrorIs(t, err, ErrInvalidValueType)
	_, err = new(Any).Of(mustHex("02 05"))
	assert.ErrorIs(t, err, ErrInvalidValueType)
	_, err = AnyOf(new(Integer))
	assert.ErrorIs(t, err, ErrObjNotReady)

	assert.Panics(t, func() { NewAny(mustHex("02")) })
	assert.Panics(t, func() { With(new(Any), Impl(asn1.Context(0))) })
	assert.False(t, new(Any).Ready())
}
