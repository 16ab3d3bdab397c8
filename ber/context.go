// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"github.com/rs/zerolog"
)

// Context configures decoding. A nil *Context decodes strictly according to
// the Distinguished Encoding Rules.
type Context struct {
	// BERed enables all leniencies of the Basic Encoding Rules: indefinite
	// lengths, constructed strings, non-canonical BOOLEAN values, non-minimal
	// object identifier arcs, non-canonical times, unordered sets and
	// explicitly encoded DEFAULT values. Every value decoded through a lenient
	// path reports Bered.
	BERed bool

	// AllowUnorderedSet accepts SET and SET OF encodings whose components are
	// not in canonical order.
	AllowUnorderedSet bool

	// AllowDefaultValues accepts explicitly encoded components whose value
	// equals their DEFAULT.
	AllowDefaultValues bool

	// AllowExplOOB accepts explicit tags whose length exceeds the length of the
	// wrapped value. The excess bytes are skipped.
	AllowExplOOB bool

	// DefinesByPath attaches defines rules to OBJECT IDENTIFIER values at the
	// given decode paths. See [Defines].
	DefinesByPath []PathRules

	// Logger receives debug messages for every lenient acceptance and trace
	// messages for every resolved open type. A nil Logger disables logging.
	Logger *zerolog.Logger
}

func (c *Context) bered() bool {
	return c != nil && c.BERed
}

func (c *Context) allowUnorderedSet() bool {
	return c != nil && (c.BERed || c.AllowUnorderedSet)
}

func (c *Context) allowDefaultValues() bool {
	return c != nil && (c.BERed || c.AllowDefaultValues)
}

func (c *Context) allowExplOOB() bool {
	return c != nil && c.AllowExplOOB
}

func (c *Context) logger() *zerolog.Logger {
	if c == nil || c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}
