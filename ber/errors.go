// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codello.dev/x/asn1/tlv"
)

// Kind classifies an [Error].
//
//go:generate stringer -type=Kind -trimprefix=Kind
type Kind uint8

// These are the possible error kinds. Kinds up to and including
// [KindLenIndefForm] are raised while decoding and match [ErrDecode].
const (
	KindDecode        Kind = iota // general decoding error
	KindNotEnoughData             // input shorter than a declared or implied length
	KindTagMismatch               // an expected tag did not match the encoded tag
	KindInvalidLength             // a type specific length rule is violated
	KindLenIndefForm              // indefinite length where only definite lengths are accepted

	KindBounds           // value or element count outside the declared bounds
	KindInvalidValueType // value not acceptable for the type
	KindInvalidOID       // malformed object identifier
	KindObjNotReady      // value has no value to encode
	KindObjUnknown       // unknown field or alternative name
	KindExceedingData    // trailing bytes after a complete top-level value
)

func (k Kind) decoding() bool {
	return k <= KindLenIndefForm
}

// kindError is the type of the sentinel errors below.
type kindError Kind

func (e kindError) Error() string {
	return "ber: " + Kind(e).String()
}

// Sentinel errors for use with [errors.Is]. Every [*Error] matches the sentinel
// of its kind. [ErrDecode] additionally matches all errors raised during
// decoding.
var (
	ErrDecode           error = kindError(KindDecode)
	ErrNotEnoughData    error = kindError(KindNotEnoughData)
	ErrTagMismatch      error = kindError(KindTagMismatch)
	ErrInvalidLength    error = kindError(KindInvalidLength)
	ErrLenIndefForm     error = kindError(KindLenIndefForm)
	ErrBounds           error = kindError(KindBounds)
	ErrInvalidValueType error = kindError(KindInvalidValueType)
	ErrInvalidOID       error = kindError(KindInvalidOID)
	ErrObjNotReady      error = kindError(KindObjNotReady)
	ErrObjUnknown       error = kindError(KindObjUnknown)
	ErrExceedingData    error = kindError(KindExceedingData)
)

// Error is the error type of this package. Errors raised during decoding carry
// the absolute offset and the decode path of the value that failed. Other
// errors have an Offset of -1.
type Error struct {
	Kind   Kind
	Type   string // ASN.1 type name of the value involved, if known
	Offset int
	Path   Path
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var s strings.Builder
	s.WriteString("ber: ")
	if e.Type != "" {
		s.WriteString(e.Type)
		s.WriteString(": ")
	}
	s.WriteString(e.Kind.String())
	if e.Offset >= 0 {
		s.WriteString(" at offset ")
		s.WriteString(strconv.Itoa(e.Offset))
	}
	if len(e.Path) > 0 {
		s.WriteString(" (")
		s.WriteString(e.Path.String())
		s.WriteByte(')')
	}
	if e.Msg != "" {
		s.WriteString(": ")
		s.WriteString(e.Msg)
	}
	if e.Err != nil {
		s.WriteString(": ")
		s.WriteString(e.Err.Error())
	}
	return s.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows an Error to match the sentinel of its kind with errors.Is.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindError)
	if !ok {
		return false
	}
	return Kind(k) == e.Kind || Kind(k) == KindDecode && e.Kind.decoding()
}

// newError creates an error that is not related to a position in the input.
func newError(k Kind, v Value, format string, args ...any) *Error {
	e := &Error{Kind: k, Offset: -1, Msg: fmt.Sprintf(format, args...)}
	if v != nil {
		e.Type = v.typeName()
	}
	return e
}

// errStop is returned internally when the consumer of [Events] stops early.
var errStop = errors.New("ber: iteration stopped")

// headerError translates errors from the tlv package.
func headerError(v Value, off int, path Path, err error) error {
	k := KindDecode
	switch {
	case errors.Is(err, tlv.ErrTruncated):
		k = KindNotEnoughData
	case errors.Is(err, tlv.ErrIndefinitePrimitive):
		k = KindLenIndefForm
	}
	e := &Error{Kind: k, Offset: off, Path: path, Err: err}
	if v != nil {
		e.Type = v.typeName()
	}
	return e
}
