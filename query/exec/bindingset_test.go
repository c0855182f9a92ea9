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

package exec

import (
	"strings"
	"testing"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/cmp"
	"github.com/stretchr/testify/assert"
)

func Test_NewBindingSet(t *testing.T) {
	row := NewBindingSet(
		Binding{Var: varX, Value: rpc.AInt64(1)},
		Binding{Var: varG, Value: rpc.AString("a")},
		Binding{Var: varX, Value: rpc.AInt64(2)},
		Binding{Var: varV, Value: rpc.KGObject{}},
	)
	assert.Equal(t, 2, row.Len())
	assert.Equal(t, `{?g="a" ?x=2}`, row.String())
	assert.False(t, row.Bound(varV))
	assert.True(t, row.Get(varV).IsNil())
	assert.Equal(t, plandef.NewVarSet(varG, varX), row.Vars())
}

func Test_BindingSetWithWithout(t *testing.T) {
	orig := bs(varX, 1)
	withV := orig.With(varV, obj(5))
	assert.Equal(t, "{?v=5 ?x=1}", withV.String())
	assert.Equal(t, "{?x=1}", orig.String(), "With must not modify the original")

	replaced := withV.With(varX, obj(7))
	assert.Equal(t, "{?v=5 ?x=7}", replaced.String())
	assert.Equal(t, "{?v=5 ?x=1}", withV.String())

	assert.Equal(t, "{?x=7}", replaced.Without(varV).String())
	assert.Equal(t, "{?x=7}", replaced.With(varV, rpc.KGObject{}).String())
	assert.Equal(t, "{?v=5 ?x=7}", replaced.Without(varG).String())
}

func Test_BindingSetProjectMerge(t *testing.T) {
	row := bs(varX, 1, varY, 2, varG, "a")
	assert.Equal(t, `{?g="a" ?y=2}`, row.Project(plandef.NewVarSet(varG, varY, varV)).String())

	merged := bs(varX, 1, varY, 2).Merge(bs(varY, 3, varV, 4))
	assert.Equal(t, "{?v=4 ?x=1 ?y=3}", merged.String())
	assert.Equal(t, "{?x=1}", bs(varX, 1).Merge(BindingSet{}).String())
}

func Test_BindingSetCloneEqual(t *testing.T) {
	row := bs(varX, 1, varY, "b")
	clone := row.Clone()
	assert.True(t, row.Equal(clone))
	clone.bindings[0].Value = rpc.AInt64(100)
	assert.Equal(t, `{?x=1 ?y="b"}`, row.String())
	assert.False(t, row.Equal(clone))
	assert.False(t, row.Equal(bs(varX, 1)))
	assert.False(t, bs(varX, 1).Equal(bs(varY, 1)))
	assert.True(t, BindingSet{}.Equal(BindingSet{}.Clone()))
}

func Test_BindingSetKey(t *testing.T) {
	assert.Equal(t, cmp.GetKey(bs(varX, 1, varY, "b")), cmp.GetKey(bs(varY, "b", varX, 1)))
	assert.NotEqual(t, cmp.GetKey(bs(varX, 1)), cmp.GetKey(bs(varX, "1")))
	assert.NotEqual(t, cmp.GetKey(bs(varX, 1)), cmp.GetKey(bs(varY, 1)))
}

func Test_ChunkToTable(t *testing.T) {
	c := Chunk{Rows: []BindingSet{
		bs(varX, 1, varG, "a"),
		bs(varX, 22),
	}}
	assert.Equal(t, 2, c.Len())
	var out strings.Builder
	c.ToTable(&out)
	assert.Equal(t, `
 ?g  | ?x |
 --- | -- |
 "a" | 1  |
     | 22 |
`[1:], out.String())
}
