// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns a human readable representation of the value, in the same
// syntax that ParseKGObject accepts.
func (o KGObject) String() string {
	var b strings.Builder
	o.string(&b)
	return b.String()
}

func (o KGObject) string(b *strings.Builder) {
	switch o.ValueType() {
	case KtBool:
		b.WriteString(strconv.FormatBool(o.ValBool()))

	case KtFloat64:
		s := strconv.FormatFloat(o.ValFloat64(), 'g', -1, 64)
		b.WriteString(s)
		// Add a .0 to floats that would otherwise read as integers.
		if strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0 ||
			(s[0] == '-' && strings.IndexFunc(s[1:], func(r rune) bool { return r < '0' || r > '9' }) < 0) {
			b.WriteString(".0")
		}

	case KtInt64:
		b.WriteString(strconv.FormatInt(o.ValInt64(), 10))

	case KtKID:
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(o.ValKID(), 10))

	case KtString:
		b.WriteString(strconv.Quote(o.ValString()))

	case KtNil:
		b.WriteString("(nil)")

	default:
		panic(fmt.Sprintf("Unknown KGObject value type: %v", o.ValueType()))
	}
}

// Key implements cmp.Key. Two KGObjects are equal if and only if their Key
// output is equal.
func (o KGObject) Key(b *strings.Builder) {
	switch o.ValueType() {
	case KtBool:
		b.WriteString("bool:")
	case KtFloat64:
		b.WriteString("float64:")
	case KtInt64:
		b.WriteString("int64:")
	case KtKID:
		b.WriteString("kid:")
	case KtString:
		b.WriteString("string:")
	case KtNil:
		b.WriteString("nil")
		return
	}
	o.string(b)
}

// ParseKGObject parses the text form of a value:
//
//   ""                   nil
//   true, false          bool
//   #123                 KID
//   -12, 42              int64
//   1.5, 2e10, 3.0       float64
//   "quoted"             string, with Go escapes
//
// Anything else is taken as an unquoted string.
func ParseKGObject(s string) (KGObject, error) {
	switch {
	case s == "":
		return KGObject{}, nil
	case s == "true":
		return ABool(true), nil
	case s == "false":
		return ABool(false), nil
	case s[0] == '#':
		kid, err := strconv.ParseUint(s[1:], 10, 64)
		if err != nil {
			return KGObject{}, fmt.Errorf("invalid KID %q: %v", s, err)
		}
		return AKID(kid), nil
	case s[0] == '"':
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return KGObject{}, fmt.Errorf("invalid quoted string %s: %v", s, err)
		}
		return AString(unquoted), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return AInt64(i), nil
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return AFloat64(f), nil
		}
	}
	return AString(s), nil
}

// looksNumeric rules out words like "Inf" and "NaN" that ParseFloat accepts.
func looksNumeric(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	return len(s) > 0 && (s[0] == '.' || (s[0] >= '0' && s[0] <= '9'))
}
