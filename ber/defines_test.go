// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func algorithmIdentifier(rules ...Rule) *Sequence {
	return NewSequence([]Field{
		{"algorithm", With(new(ObjectIdentifier), Defines(rules...))},
		{"parameters", With(new(Any), Optional())},
	})
}

func TestDefines_Any(t *testing.T) {
	spec := algorithmIdentifier(Rule{
		Target:  ParsePath("parameters"),
		Schemas: map[string]Value{"1.2.3": new(Integer)},
	})
	tests := map[string]struct {
		data    string
		wantOID string
		want    string
	}{
		"Known":   {"30 07 06 02 2a 03 02 01 05", "1.2.3", "5"},
		"Unknown": {"30 07 06 02 2a 04 02 01 05", "", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Unmarshal(spec, mustHex(tt.data), nil)
			require.NoError(t, err)
			params, err := Get[*Any](got, "parameters")
			require.NoError(t, err)
			assert.Equal(t, mustHex("02 01 05"), params.Raw())

			oid, v := params.Defined()
			if tt.wantOID == "" {
				assert.Nil(t, oid)
				assert.Nil(t, v)
				return
			}
			assert.Equal(t, tt.wantOID, oid.String())
			require.NotNil(t, v)
			assert.Equal(t, tt.want, v.String())
			assert.Equal(t, 6, v.Meta().Offset)
		})
	}
}

func TestDefines_Target(t *testing.T) {
	integer := map[string]Value{"1.2.3": new(Integer)}
	tests := map[string]struct {
		spec Value
		data string
		path string
		off  int
	}{
		"Sibling": {
			algorithmIdentifier(Rule{Target: ParsePath("parameters"), Schemas: integer}),
			"30 07 06 02 2a 03 02 01 05", "parameters", 6,
		},
		"Parent": {
			NewSequence([]Field{
				{"header", NewSequence([]Field{
					{"id", With(new(ObjectIdentifier), Defines(Rule{Target: ParsePath("../body"), Schemas: integer}))},
				})},
				{"body", new(Any)},
			}),
			"30 09 30 04 06 02 2a 03 02 01 05", "body", 8,
		},
		"Root": {
			algorithmIdentifier(Rule{Target: ParsePath("/parameters"), Schemas: integer}),
			"30 07 06 02 2a 03 02 01 05", "parameters", 6,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var defined []Value
			for e, err := range Events(tt.spec, mustHex(tt.data), nil) {
				require.NoError(t, err)
				if e.Path.String() == tt.path+"/defined-by(1.2.3)" {
					defined = append(defined, e.Value)
				}
			}
			require.Len(t, defined, 1)
			assert.Equal(t, "5", defined[0].String())
			assert.Equal(t, tt.off, defined[0].Meta().Offset)
		})
	}
}

func TestDefines_RemainingData(t *testing.T) {
	spec := NewSequence([]Field{
		{"id", With(new(ObjectIdentifier), Defines(Rule{
			Target:  Path{"value"},
			Schemas: map[string]Value{"1.2.3": new(Integer)},
		}))},
		{"value", new(OctetString)},
	})
	_, err := Unmarshal(spec, mustHex("30 0a 06 02 2a 03 04 04 02 01 05 00"), nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindDecode, e.Kind)
	assert.Equal(t, Path{"value"}, e.Path)
	assert.Equal(t, 11, e.Offset)
}

func TestDefines_ByPath(t *testing.T) {
	basicConstraints := NewSequence([]Field{
		{"cA", With(new(Boolean), Default(NewBoolean(false)))},
		{"pathLenConstraint", With(new(Integer), Optional())},
	})
	extension := NewSequence([]Field{
		{"extnID", new(ObjectIdentifier)},
		{"critical", With(new(Boolean), Default(NewBoolean(false)))},
		{"extnValue", new(OctetString)},
	})
	spec := NewSequenceOf(extension)
	ctx := &Context{DefinesByPath: []PathRules{{
		Pattern: Path{"*", "extnID"},
		Rules: []Rule{{
			Target:  Path{"extnValue"},
			Schemas: map[string]Value{"2.5.29.19": basicConstraints},
		}},
	}}}
	data := mustHex("30 0e 30 0c 06 03 55 1d 13 04 05 30 03 01 01 ff")

	got, err := Unmarshal(spec, data, ctx)
	require.NoError(t, err)
	ext := got.At(0).(*Sequence)
	value, err := Get[*OctetString](ext, "extnValue")
	require.NoError(t, err)
	oid, v := value.Defined()
	assert.Equal(t, "2.5.29.19", oid.String())
	bc, ok := v.(*Sequence)
	require.True(t, ok)
	ca, err := Get[*Boolean](bc, "cA")
	require.NoError(t, err)
	assert.True(t, ca.Bool())
	assert.Equal(t, 11, bc.Meta().Offset)

	var paths []string
	for e, err := range Events(spec, data, ctx) {
		require.NoError(t, err)
		paths = append(paths, e.Path.String())
	}
	assert.Contains(t, paths, "0/extnValue/defined-by(2.5.29.19)/cA")
	assert.Contains(t, paths, "0/extnValue/defined-by(2.5.29.19)")

	got, err = Unmarshal(spec, data, nil)
	require.NoError(t, err)
	_, v = got.At(0).(*Sequence).Get("extnValue").(*OctetString).Defined()
	assert.Nil(t, v)
}

func TestDefines_Precedence(t *testing.T) {
	data := mustHex("30 07 06 02 2a 03 02 01 05")
	byInteger := Rule{Target: Path{"parameters"}, Schemas: map[string]Value{"1.2.3": new(Integer)}}
	byAny := Rule{Target: Path{"/", "parameters"}, Schemas: map[string]Value{"1.2.3": new(Any)}}

	tests := map[string]struct {
		spec *Sequence
		ctx  *Context
		want string
	}{
		"FieldOverContext": {
			algorithmIdentifier(byInteger),
			&Context{DefinesByPath: []PathRules{{Pattern: Path{"algorithm"}, Rules: []Rule{byAny}}}},
			"INTEGER",
		},
		"LiteralOverWildcard": {
			algorithmIdentifier(),
			&Context{DefinesByPath: []PathRules{
				{Pattern: Path{"*"}, Rules: []Rule{byAny}},
				{Pattern: Path{"algorithm"}, Rules: []Rule{byInteger}},
			}},
			"INTEGER",
		},
		"DeclarationOrder": {
			algorithmIdentifier(),
			&Context{DefinesByPath: []PathRules{
				{Pattern: Path{"*"}, Rules: []Rule{byAny}},
				{Pattern: Path{"*"}, Rules: []Rule{byInteger}},
			}},
			"ANY",
		},
		"OnlyMatchingOID": {
			algorithmIdentifier(Rule{Target: Path{"parameters"}, Schemas: map[string]Value{"1.2.4": new(Any)}}),
			&Context{DefinesByPath: []PathRules{{Pattern: Path{"*"}, Rules: []Rule{byInteger}}}},
			"INTEGER",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Unmarshal(tt.spec, data, tt.ctx)
			require.NoError(t, err)
			_, v := got.Get("parameters").(*Any).Defined()
			require.NotNil(t, v)
			assert.Equal(t, tt.want, v.typeName())
		})
	}
}

func TestDefines_Panics(t *testing.T) {
	assert.Panics(t, func() { With(new(Integer), Defines()) })
}
