// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"io"
	"time"

	"codello.dev/x/asn1"
	"codello.dev/x/asn1/tlv"
)

var errInvalidTime = errors.New("invalid time")

//region [UNIVERSAL 23] UTCTime

// UTCTime implements the ASN.1 UTCTime type. Values are encoded in UTC with
// second precision. Only years between 1950 and 2049 can be represented.
type UTCTime struct {
	base
	val time.Time
	set bool
}

// NewUTCTime returns a UTCTime holding t truncated to seconds.
func NewUTCTime(t time.Time) (*UTCTime, error) {
	return (&UTCTime{}).Of(t)
}

// Of returns a copy of x holding t truncated to seconds. An error of kind
// [KindInvalidValueType] is returned if t cannot be represented.
func (x *UTCTime) Of(t time.Time) (*UTCTime, error) {
	if !asn1.UTCTime(t).IsValid() {
		return nil, newError(KindInvalidValueType, x, "year %d out of range", t.UTC().Year())
	}
	c := x.clone().(*UTCTime)
	c.val, c.set = t.UTC().Truncate(time.Second), true
	return c, nil
}

// Time returns the value of x.
func (x *UTCTime) Time() time.Time { return x.val }

func (x *UTCTime) Ready() bool                { return x.set }
func (x *UTCTime) Encode() ([]byte, error)    { return encode(x, false) }
func (x *UTCTime) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *UTCTime) typeName() string           { return "UTCTime" }

func (x *UTCTime) String() string {
	if !x.set {
		return "UTCTime"
	}
	return x.val.Format(time.RFC3339)
}

func (x *UTCTime) clone() Value {
	c := *x
	c.init(asn1.TagUTCTime)
	return &c
}

func (x *UTCTime) adopt(v Value) (Value, error) {
	src, ok := v.(*UTCTime)
	if !ok || !src.set {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

func (x *UTCTime) content(bool) (bool, int, io.WriterTo, error) {
	s := asn1.UTCTime(x.val).String()
	return false, len(s), bytesWriter([]byte(s)), nil
}

func (x *UTCTime) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	b, err := d.stringBytes(x, h, c, path)
	if err != nil {
		return err
	}
	t, canonical, err := parseUTCTime(string(b))
	if err != nil {
		return d.errorf(KindDecode, x, path, "invalid UTCTime %q", b)
	}
	if !canonical {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "non-canonical UTCTime %q", b)
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "non-canonical UTCTime")
	}
	x.val, x.set = t.UTC(), true
	return nil
}

// parseUTCTime parses YYMMDDhhmm[ss] followed by Z or a UTC offset. The
// result is canonical if it was encoded as YYMMDDhhmmssZ.
func parseUTCTime(s string) (t time.Time, canonical bool, err error) {
	if len(s) < 11 {
		return t, false, errInvalidTime
	}
	year := atoiN[int](s, 2)
	month := atoiN[time.Month](s[2:], 2)
	day := atoiN[int](s[4:], 2)
	hour := atoiN[int](s[6:], 2)
	minute := atoiN[int](s[8:], 2)
	s = s[10:]
	second := 0
	canonical = true
	if len(s) >= 2 && isDigit(s[0]) {
		second = atoiN[int](s, 2)
		s = s[2:]
	} else {
		canonical = false
	}
	loc, utc := parseLocation(s)
	if loc == nil || year < 0 || month < 0 || day < 0 || hour < 0 || minute < 0 || second < 0 {
		return t, false, errInvalidTime
	}
	canonical = canonical && utc

	// UTCTime only encodes times prior to 2050. See https://tools.ietf.org/html/rfc5280#section-4.1.2.5.1
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	t = time.Date(year, month, day, hour, minute, second, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return t, false, errInvalidTime
	}
	return t, canonical, nil
}

//endregion

//region [UNIVERSAL 24] GeneralizedTime

// GeneralizedTime implements the ASN.1 GeneralizedTime type. Values are
// encoded in UTC with microsecond precision. Only years between 1 and 9999
// can be represented.
type GeneralizedTime struct {
	base
	val time.Time
	set bool
}

// NewGeneralizedTime returns a GeneralizedTime holding t truncated to
// microseconds.
func NewGeneralizedTime(t time.Time) (*GeneralizedTime, error) {
	return (&GeneralizedTime{}).Of(t)
}

// Of returns a copy of x holding t truncated to microseconds. An error of
// kind [KindInvalidValueType] is returned if t cannot be represented.
func (x *GeneralizedTime) Of(t time.Time) (*GeneralizedTime, error) {
	if !asn1.GeneralizedTime(t).IsValid() {
		return nil, newError(KindInvalidValueType, x, "year %d out of range", t.UTC().Year())
	}
	c := x.clone().(*GeneralizedTime)
	c.val, c.set = t.UTC().Truncate(time.Microsecond), true
	return c, nil
}

// Time returns the value of x.
func (x *GeneralizedTime) Time() time.Time { return x.val }

func (x *GeneralizedTime) Ready() bool                { return x.set }
func (x *GeneralizedTime) Encode() ([]byte, error)    { return encode(x, false) }
func (x *GeneralizedTime) EncodeCER() ([]byte, error) { return encode(x, true) }
func (x *GeneralizedTime) typeName() string           { return "GeneralizedTime" }

func (x *GeneralizedTime) String() string {
	if !x.set {
		return "GeneralizedTime"
	}
	return x.val.Format(time.RFC3339Nano)
}

func (x *GeneralizedTime) clone() Value {
	c := *x
	c.init(asn1.TagGeneralizedTime)
	return &c
}

func (x *GeneralizedTime) adopt(v Value) (Value, error) {
	src, ok := v.(*GeneralizedTime)
	if !ok || !src.set {
		return nil, newError(KindInvalidValueType, x, "cannot use %s", v)
	}
	return x.Of(src.val)
}

func (x *GeneralizedTime) content(bool) (bool, int, io.WriterTo, error) {
	s := asn1.GeneralizedTime(x.val).String()
	return false, len(s), bytesWriter([]byte(s)), nil
}

func (x *GeneralizedTime) decodeContent(d *decoder, h tlv.Header, c *cursor, path Path) error {
	b, err := d.stringBytes(x, h, c, path)
	if err != nil {
		return err
	}
	t, canonical, err := parseGeneralizedTime(string(b))
	if err != nil {
		return d.errorf(KindDecode, x, path, "invalid GeneralizedTime %q", b)
	}
	if !canonical {
		if !d.ctx.bered() {
			return d.errorf(KindDecode, x, path, "non-canonical GeneralizedTime %q", b)
		}
		x.meta.BEREncoded = true
		d.lenient(x, path, "non-canonical GeneralizedTime")
	}
	x.val, x.set = t.UTC(), true
	return nil
}

// parseGeneralizedTime parses YYYYMMDDhh[mm[ss]][(.|,)fraction] followed by Z
// or a UTC offset. The fraction applies to the last time unit present and
// may have up to 9 digits. The result is canonical if it was encoded as
// YYYYMMDDhhmmss[.ffffff]Z without trailing zeros in the fraction.
func parseGeneralizedTime(s string) (t time.Time, canonical bool, err error) {
	if len(s) < 11 {
		return t, false, errInvalidTime
	}
	year := atoiN[int](s, 4)
	month := atoiN[time.Month](s[4:], 2)
	day := atoiN[int](s[6:], 2)
	hour := atoiN[time.Duration](s[8:], 2)
	if year < 0 || month < 0 || day < 0 || hour < 0 || 23 < hour {
		return t, false, errInvalidTime
	}
	s = s[10:]
	dur := hour * time.Hour
	unit := time.Hour // unit for fractional time
	canonical = true
	for _, next := range []time.Duration{time.Minute, time.Second} {
		if len(s) < 2 || !isDigit(s[0]) {
			canonical = false
			break
		}
		v := atoiN[time.Duration](s, 2)
		if v < 0 || 59 < v {
			return t, false, errInvalidTime
		}
		dur += v * next
		unit = next
		s = s[2:]
	}
	if len(s) > 0 && (s[0] == '.' || s[0] == ',') {
		canonical = canonical && s[0] == '.'
		i := 1
		for ; i < len(s) && isDigit(s[i]); i++ {
			unit /= 10
			dur += time.Duration(s[i]-'0') * unit
		}
		digits := i - 1
		if digits == 0 || digits > 9 {
			return t, false, errInvalidTime
		}
		canonical = canonical && digits <= 6 && s[i-1] != '0'
		s = s[i:]
	}
	loc, utc := parseLocation(s)
	if loc == nil {
		return t, false, errInvalidTime
	}
	canonical = canonical && utc
	t = time.Date(year, month, day, 0, 0, 0, 0, loc).Add(dur)
	if d := time.Date(year, month, day, 0, 0, 0, 0, loc); d.Year() != year || d.Month() != month || d.Day() != day {
		return t, false, errInvalidTime
	}
	return t, canonical, nil
}

//endregion

// parseLocation parses the time zone of a time string. The zone is either Z
// or an offset of the form +hh, +hhmm or +hh:mm (or with a minus sign). utc
// reports whether Z was used.
func parseLocation(s string) (loc *time.Location, utc bool) {
	if s == "Z" {
		return time.UTC, true
	}
	if len(s) != 3 && len(s) != 5 && len(s) != 6 || s[0] != '+' && s[0] != '-' {
		return nil, false
	}
	mul := 44 - int(s[0]) // '+' is 43, '-' is 45
	locHour := atoiN[int](s[1:], 2)
	locMinute := 0
	switch len(s) {
	case 5:
		locMinute = atoiN[int](s[3:], 2)
	case 6:
		if s[3] != ':' {
			return nil, false
		}
		locMinute = atoiN[int](s[4:], 2)
	}
	if locHour < 0 || locHour > 23 || locMinute < 0 || locMinute > 59 {
		return nil, false
	}
	return time.FixedZone("", mul*(locHour*3600+locMinute*60)), false
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

// atoiN parses exactly n decimal digits at the start of s. It returns -1 if s
// does not start with n digits.
func atoiN[T ~int | ~int64](s string, n int) (i T) {
	if len(s) < n {
		return -1
	}
	for j := 0; j < n; j++ {
		if !isDigit(s[j]) {
			return -1
		}
		i = i*10 + T(s[j]-'0')
	}
	return i
}
