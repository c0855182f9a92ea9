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

// Package table formats data into a text-based table for human consumption.
package table

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ebay/chunkflow/util/cmp"
	"golang.org/x/text/unicode/norm"
)

// Options control how PrettyPrint lays out the table.
type Options int

const (
	// HeaderRow puts a divider after the first row.
	HeaderRow Options = 1 << iota
	// FooterRow puts a divider before the last row.
	FooterRow
	// SkipEmpty writes nothing when the table has no rows other than the
	// header and footer rows.
	SkipEmpty
	// RightJustify pads cells on the left rather than on the right.
	RightJustify
)

func (o Options) has(flag Options) bool {
	return o&flag != 0
}

// PrettyPrint writes 't' as a table to dest. Rows may have different numbers
// of cells; short rows are padded with empty cells. Newlines inside a cell are
// shown as spaces.
func PrettyPrint(dest io.Writer, t [][]string, opts Options) {
	chrome := 0
	if opts.has(HeaderRow) {
		chrome++
	}
	if opts.has(FooterRow) {
		chrome++
	}
	if len(t) == 0 || (opts.has(SkipEmpty) && len(t) <= chrome) {
		return
	}
	numCols := 0
	for _, row := range t {
		numCols = cmp.MaxInt(numCols, len(row))
	}
	widths := make([]int, numCols)
	cells := make([][]string, len(t))
	for ridx, row := range t {
		cells[ridx] = make([]string, numCols)
		for cidx, c := range row {
			c = strings.Replace(c, "\n", " ", -1)
			cells[ridx][cidx] = c
			widths[cidx] = cmp.MaxInt(widths[cidx], charsWide(c))
		}
	}
	w := bufio.NewWriterSize(dest, 256)
	defer w.Flush()
	divider := func() {
		for _, width := range widths {
			w.WriteByte(' ')
			w.WriteString(strings.Repeat("-", width))
			w.WriteString(" |")
		}
		w.WriteByte('\n')
	}
	for ridx, row := range cells {
		for cidx, c := range row {
			pad := strings.Repeat(" ", widths[cidx]-charsWide(c))
			w.WriteByte(' ')
			if opts.has(RightJustify) {
				w.WriteString(pad)
				w.WriteString(c)
			} else {
				w.WriteString(c)
				w.WriteString(pad)
			}
			w.WriteString(" |")
		}
		w.WriteByte('\n')
		if (opts.has(HeaderRow) && ridx == 0) || (opts.has(FooterRow) && ridx == len(cells)-2) {
			divider()
		}
	}
}

// charsWide estimates how wide a string will be on a typical terminal. Combining
// sequences are normalized first so that "e" plus an accent counts once.
func charsWide(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
