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

package plandef

import (
	"fmt"
	"io"
	"strconv"
)

// Graphviz writes the plan as a Graphviz dot digraph, with an edge from each
// node to the node that consumes its output. Alternate edges are dashed. It
// ignores errors from w.
func (plan *Plan) Graphviz(w io.Writer) {
	fmt.Fprintln(w, "digraph plan {")
	fmt.Fprintln(w, "\trankdir=BT;")
	fmt.Fprintln(w, "\tnode [shape=box fontname=\"Helvetica\"];")
	ids := make(map[*Plan]int)
	var visit func(node *Plan) int
	visit = func(node *Plan) int {
		if id, ok := ids[node]; ok {
			return id
		}
		id := len(ids)
		ids[node] = id
		label := "<nil>"
		if node.Operator != nil {
			label = node.Operator.String()
		}
		if a := node.Annotations.String(); a != "" {
			label += "\n[" + a + "]"
		}
		fmt.Fprintf(w, "\tn%d [label=%s];\n", id, strconv.Quote(label))
		for _, input := range node.Inputs {
			from := visit(input.From)
			var attrs string
			switch {
			case input.Alt && input.Port != 0:
				attrs = fmt.Sprintf(" [style=dashed label=\"%d: alt\"]", input.Port)
			case input.Alt:
				attrs = " [style=dashed label=\"alt\"]"
			case input.Port != 0:
				attrs = fmt.Sprintf(" [label=\"%d\"]", input.Port)
			}
			fmt.Fprintf(w, "\tn%d -> n%d%s;\n", from, id, attrs)
		}
		return id
	}
	visit(plan)
	fmt.Fprintln(w, "}")
}
