// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package internal holds helpers shared by the packages of this module.
package internal

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"codello.dev/x/asn1"
)

// FieldParameters is the parsed representation of a tag parameter string such
// as "application,tag:5,explicit,optional".
type FieldParameters struct {
	Tag      asn1.Tag // the EXPLICIT or IMPLICIT class and tag number
	HasTag   bool     // true iff a tag number was given
	Optional bool     // true iff the field is OPTIONAL
	Explicit bool     // true iff an EXPLICIT tag is in use.
}

// ParseFieldParameters parses a comma separated tag parameter string. Without a
// class keyword the tag is context-specific. Empty parts are skipped, unknown
// parts are an error.
func ParseFieldParameters(str string) (ret FieldParameters, err error) {
	ret.Tag.Class = asn1.ClassContextSpecific
	for part := range strings.SplitSeq(str, ",") {
		switch part = strings.TrimSpace(part); {
		case part == "":
		case part == "optional":
			ret.Optional = true
		case part == "explicit":
			ret.Explicit = true
		case strings.HasPrefix(part, "tag:"):
			i, err := strconv.ParseUint(part[4:], 10, bits.UintSize)
			if err != nil {
				return ret, fmt.Errorf("invalid tag number %q: %w", part[4:], err)
			}
			ret.Tag.Number = uint(i)
			ret.HasTag = true
		case part == "application":
			ret.Tag.Class = asn1.ClassApplication
		case part == "private":
			ret.Tag.Class = asn1.ClassPrivate
		case part == "universal":
			ret.Tag.Class = asn1.ClassUniversal
		case part == "context":
			ret.Tag.Class = asn1.ClassContextSpecific
		default:
			return ret, fmt.Errorf("unknown tag parameter %q", part)
		}
	}
	if ret.Explicit && !ret.HasTag {
		return ret, fmt.Errorf("explicit without tag number")
	}
	return ret, nil
}
