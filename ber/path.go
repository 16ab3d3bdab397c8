// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"slices"
	"strings"
)

// A Path identifies the position of a value inside a decoded structure. Each
// label is the name of a SEQUENCE, SET or CHOICE component, the index of a
// SEQUENCE OF or SET OF element or the label of a resolved open type (see
// [Defines]). The top-level value has an empty path.
type Path []string

// ParsePath splits s at slashes. A leading slash is kept as a separate "/"
// label so that the result is an absolute path when used with [Path.Join].
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	var p Path
	if strings.HasPrefix(s, "/") {
		p = append(p, "/")
		s = strings.TrimLeft(s, "/")
	}
	for label := range strings.SplitSeq(s, "/") {
		if label != "" {
			p = append(p, label)
		}
	}
	return p
}

// String returns the labels of p separated by slashes.
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Append returns a new path with labels appended to p. The result never
// shares memory with p.
func (p Path) Append(labels ...string) Path {
	ret := make(Path, len(p), len(p)+len(labels))
	copy(ret, p)
	return append(ret, labels...)
}

// Join resolves rel relative to p. A "/" label resets the path to the root and
// each ".." label removes the last label. All other labels are appended.
func (p Path) Join(rel Path) Path {
	ret := slices.Clone(p)
	for _, label := range rel {
		switch label {
		case "/":
			ret = ret[:0]
		case "..":
			if len(ret) > 0 {
				ret = ret[:len(ret)-1]
			}
		default:
			ret = append(ret, label)
		}
	}
	return ret
}

// Match reports whether p is matched by pattern. Pattern labels equal to "*"
// match any single label.
func (p Path) Match(pattern Path) bool {
	if len(p) != len(pattern) {
		return false
	}
	for i, label := range pattern {
		if label != "*" && label != p[i] {
			return false
		}
	}
	return true
}

// literals returns the number of labels in p that are not wildcards.
func (p Path) literals() int {
	n := 0
	for _, label := range p {
		if label != "*" {
			n++
		}
	}
	return n
}

// Equal reports whether p and q consist of the same labels.
func (p Path) Equal(q Path) bool {
	return slices.Equal(p, q)
}
