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

// Package rpc contains the value types shared between query plans and the
// executor: KGObject, a typed value that is bound to a variable, and Operator,
// a comparison.
package rpc

import (
	"encoding/binary"
	"math"
)

// KGObject is a typed value: a KID (a node in the graph) or a literal string,
// float64, int64 or bool. KGObject is safe to use as a map key. The zero value
// is the KtNil type, which the executor treats as "unbound".
type KGObject struct {
	// value holds an encoding of the object whose byte order matches the
	// value order within each type; values of different types are ordered by
	// their type. The first byte is the type, and the rest is per type:
	//
	//  String:  the UTF8 bytes of the string then a 0x00 byte, so that a
	//           string sorts before any longer string it's a prefix of.
	//  Float64: the raw bits big endian, with all the bits flipped if the
	//           value is negative, or just the sign bit otherwise.
	//  Int64:   8 bytes big endian with the sign bit flipped.
	//  Bool:    1 byte, 1 for true, 0 for false.
	//  KID:     8 bytes big endian.
	//
	// KtNil is the empty string.
	value string
}

// KGObjectType describes the type contained in a KGObject. The values are
// part of the encoding, so existing values must not change.
type KGObjectType uint8

const (
	// KtNil indicates the KGObject has no value.
	KtNil KGObjectType = 0
	// KtString indicates the KGObject contains a unicode string.
	KtString KGObjectType = 1
	// KtFloat64 indicates the KGObject contains a double precision float.
	KtFloat64 KGObjectType = 2
	// KtInt64 indicates the KGObject contains a signed 64 bit integer.
	KtInt64 KGObjectType = 3
	// KtBool indicates the KGObject contains a boolean.
	KtBool KGObjectType = 5
	// KtKID indicates the KGObject contains a KID, a node in the graph rather
	// than a literal value.
	KtKID KGObjectType = 6
)

// maskMsbOnly has just the sign bit set.
const maskMsbOnly = uint64(1 << 63)

// maskAllBits has all 64 bits set.
const maskAllBits = uint64(0xFFFFFFFFFFFFFFFF)

// AString returns a KGObject containing the string s.
func AString(s string) KGObject {
	b := make([]byte, 0, len(s)+2)
	b = append(b, byte(KtString))
	b = append(b, s...)
	b = append(b, 0)
	return KGObject{string(b)}
}

// AFloat64 returns a KGObject containing the float f.
func AFloat64(f float64) KGObject {
	u := math.Float64bits(f)
	if f < 0 || (f == 0 && math.Signbit(f)) {
		u ^= maskAllBits
	} else {
		u ^= maskMsbOnly
	}
	return withUint64(KtFloat64, u)
}

// AInt64 returns a KGObject containing the integer v.
func AInt64(v int64) KGObject {
	return withUint64(KtInt64, uint64(v)^maskMsbOnly)
}

// ABool returns a KGObject containing the boolean v.
func ABool(v bool) KGObject {
	if v {
		return KGObject{string([]byte{byte(KtBool), 1})}
	}
	return KGObject{string([]byte{byte(KtBool), 0})}
}

// AKID returns a KGObject containing the graph node ID kid.
func AKID(kid uint64) KGObject {
	return withUint64(KtKID, kid)
}

func withUint64(t KGObjectType, v uint64) KGObject {
	var b [9]byte
	b[0] = byte(t)
	binary.BigEndian.PutUint64(b[1:], v)
	return KGObject{string(b[:])}
}

// ValueType returns the type contained in the KGObject.
func (o KGObject) ValueType() KGObjectType {
	if len(o.value) > 0 {
		return KGObjectType(o.value[0])
	}
	return KtNil
}

// IsType returns true if the KGObject contains the given type.
func (o KGObject) IsType(t KGObjectType) bool {
	return o.ValueType() == t
}

// IsNil returns true if the KGObject holds no value.
func (o KGObject) IsNil() bool {
	return len(o.value) == 0
}

// IsNumeric returns true for int64 and float64 values.
func (o KGObject) IsNumeric() bool {
	t := o.ValueType()
	return t == KtInt64 || t == KtFloat64
}

// Equal returns true if 'other' and 'o' contain the same type and value.
func (o KGObject) Equal(other KGObject) bool {
	return o.value == other.value
}

// Less returns true if 'o' sorts before 'right' in the encoded order. Values
// of different types are ordered by their type.
func (o KGObject) Less(right KGObject) bool {
	return o.value < right.value
}

// AsString returns the encoded form of the object. Two objects have the same
// encoding if and only if they are Equal.
func (o KGObject) AsString() string {
	return o.value
}

// Size returns the length of the encoded form of the object in bytes.
func (o KGObject) Size() int {
	return len(o.value)
}

// ValString returns the contained string if the type is KtString, otherwise
// "". Don't confuse this with String, which is for humans.
func (o KGObject) ValString() string {
	if o.ValueType() == KtString {
		return o.value[1 : len(o.value)-1]
	}
	return ""
}

// ValInt64 returns the contained integer if the type is KtInt64, otherwise 0.
func (o KGObject) ValInt64() int64 {
	if o.ValueType() == KtInt64 {
		return int64(o.uint64() ^ maskMsbOnly)
	}
	return 0
}

// ValFloat64 returns the contained float if the type is KtFloat64, otherwise
// 0.
func (o KGObject) ValFloat64() float64 {
	if o.ValueType() == KtFloat64 {
		u := o.uint64()
		if u&maskMsbOnly != 0 {
			u ^= maskMsbOnly
		} else {
			u ^= maskAllBits
		}
		return math.Float64frombits(u)
	}
	return 0
}

// ValBool returns the contained boolean if the type is KtBool, otherwise
// false.
func (o KGObject) ValBool() bool {
	if o.ValueType() == KtBool {
		return o.value[1] > 0
	}
	return false
}

// ValKID returns the contained KID if the type is KtKID, otherwise 0.
func (o KGObject) ValKID() uint64 {
	if o.ValueType() == KtKID {
		return o.uint64()
	}
	return 0
}

// AsFloat64 returns the numeric value of an int64 or float64 object as a
// float64. The second result is false for other types.
func (o KGObject) AsFloat64() (float64, bool) {
	switch o.ValueType() {
	case KtInt64:
		return float64(o.ValInt64()), true
	case KtFloat64:
		return o.ValFloat64(), true
	}
	return 0, false
}

func (o KGObject) uint64() uint64 {
	return binary.BigEndian.Uint64([]byte(o.value[1:9]))
}
