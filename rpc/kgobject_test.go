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
	"math"
	"testing"

	"github.com/ebay/chunkflow/util/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedVals is in the expected sort order; add new cases in value order.
var orderedVals = []KGObject{
	{},
	AString(""),
	AString("Bob"),
	AString("Bob's House"),
	AString("Bob's Housf"),
	AString("Hello World 日本語"),
	AString("a"),
	AString("ab"),
	AString("b"),
	AFloat64(math.Inf(-1)),
	AFloat64(-math.MaxFloat64),
	AFloat64(-100),
	AFloat64(-0.00000000001),
	AFloat64(0),
	AFloat64(math.SmallestNonzeroFloat64),
	AFloat64(0.5),
	AFloat64(100),
	AFloat64(math.MaxFloat64),
	AFloat64(math.Inf(1)),
	AInt64(math.MinInt64),
	AInt64(-2),
	AInt64(-1),
	AInt64(0),
	AInt64(1),
	AInt64(math.MaxInt32),
	AInt64(math.MaxInt64),
	ABool(false),
	ABool(true),
	AKID(0),
	AKID(1),
	AKID(math.MaxUint64),
}

func Test_KGObjectOrder(t *testing.T) {
	for i := 1; i < len(orderedVals); i++ {
		prev, cur := orderedVals[i-1], orderedVals[i]
		assert.True(t, prev.Less(cur), "%v should be less than %v", prev, cur)
		assert.False(t, cur.Less(prev), "%v should not be less than %v", cur, prev)
		assert.False(t, cur.Equal(prev))
		assert.True(t, cur.Equal(cur))
	}
}

func Test_KGObjectRoundTrip(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("Bob's House", AString("Bob's House").ValString())
	assert.Equal(KtString, AString("").ValueType())
	assert.Equal(int64(math.MinInt64), AInt64(math.MinInt64).ValInt64())
	assert.Equal(int64(-42), AInt64(-42).ValInt64())
	assert.Equal(-0.25, AFloat64(-0.25).ValFloat64())
	assert.Equal(math.MaxFloat64, AFloat64(math.MaxFloat64).ValFloat64())
	assert.True(ABool(true).ValBool())
	assert.False(ABool(false).ValBool())
	assert.Equal(uint64(12345), AKID(12345).ValKID())

	// Accessors for other types return the zero value.
	assert.Equal("", AInt64(4).ValString())
	assert.Equal(int64(0), AString("4").ValInt64())
	assert.Equal(uint64(0), AInt64(4).ValKID())
	assert.True(KGObject{}.IsNil())
	assert.False(AInt64(0).IsNil())
}

func Test_AsFloat64(t *testing.T) {
	f, ok := AInt64(3).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	f, ok = AFloat64(2.5).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
	_, ok = AString("3").AsFloat64()
	assert.False(t, ok)
	assert.True(t, AInt64(1).IsNumeric())
	assert.False(t, AKID(1).IsNumeric())
}

func Test_StringAndKey(t *testing.T) {
	tests := []struct {
		obj KGObject
		str string
		key string
	}{
		{KGObject{}, "(nil)", "nil"},
		{AString("bob"), `"bob"`, `string:"bob"`},
		{AInt64(-5), "-5", "int64:-5"},
		{AFloat64(5), "5.0", "float64:5.0"},
		{AFloat64(-5), "-5.0", "float64:-5.0"},
		{AFloat64(1.25), "1.25", "float64:1.25"},
		{ABool(true), "true", "bool:true"},
		{AKID(42), "#42", "kid:#42"},
	}
	for _, test := range tests {
		t.Run(test.str, func(t *testing.T) {
			assert.Equal(t, test.str, test.obj.String())
			assert.Equal(t, test.key, cmp.GetKey(test.obj))
		})
	}
}

func Test_ParseKGObject(t *testing.T) {
	tests := []struct {
		in  string
		exp KGObject
	}{
		{"", KGObject{}},
		{"true", ABool(true)},
		{"false", ABool(false)},
		{"#7", AKID(7)},
		{"42", AInt64(42)},
		{"-3", AInt64(-3)},
		{"1.5", AFloat64(1.5)},
		{"-2e3", AFloat64(-2000)},
		{`"42"`, AString("42")},
		{`"tab\there"`, AString("tab\there")},
		{"Inf", AString("Inf")},
		{"hello world", AString("hello world")},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			act, err := ParseKGObject(test.in)
			require.NoError(t, err)
			assert.Equal(t, test.exp, act)
		})
	}
	_, err := ParseKGObject("#abc")
	assert.Error(t, err)
	_, err = ParseKGObject(`"unterminated`)
	assert.Error(t, err)
}

func Test_Operator(t *testing.T) {
	for o := OpEqual; o <= OpPrefix; o++ {
		parsed, err := ParseOperator(o.String())
		assert.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
	assert.Equal(t, "unknown(99)", Operator(99).String())
	_, err := ParseOperator("~")
	assert.Error(t, err)
	assert.True(t, OpRangeExcInc.IsRange())
	assert.False(t, OpLess.IsRange())
}
