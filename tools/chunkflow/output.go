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

package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/ebay/chunkflow/query"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/table"
)

// resultWriter writes result chunks in the selected format.
type resultWriter struct {
	out     io.Writer
	format  string
	columns []*plandef.Variable
}

func newResultWriter(out io.Writer, format string, columns []*plandef.Variable) *resultWriter {
	return &resultWriter{out: out, format: format, columns: columns}
}

// row returns the values of the columns in c.Rows[i], leaving unbound values
// empty.
func (w *resultWriter) row(c query.Chunk, i int) []string {
	row := make([]string, len(w.columns))
	for j, v := range w.columns {
		if val := c.Rows[i].Get(v); !val.IsNil() {
			row[j] = val.String()
		}
	}
	return row
}

func (w *resultWriter) header() []string {
	header := make([]string, len(w.columns))
	for i, v := range w.columns {
		header[i] = v.String()
	}
	return header
}

// writeAll writes every chunk from resCh until it's closed. It always drains
// resCh, even after a write error, and returns the first error.
func (w *resultWriter) writeAll(resCh <-chan query.Chunk) error {
	if w.format == "table" {
		t := [][]string{w.header()}
		for c := range resCh {
			for i := range c.Rows {
				t = append(t, w.row(c, i))
			}
		}
		table.PrettyPrint(w.out, t, table.HeaderRow)
		return nil
	}
	bw := bufio.NewWriter(w.out)
	var err error
	write := func(fields []string) {
		if err == nil {
			_, err = io.WriteString(bw, strings.Join(fields, "\t")+"\n")
		}
	}
	write(w.header())
	for c := range resCh {
		for i := range c.Rows {
			write(w.row(c, i))
		}
	}
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	return err
}
