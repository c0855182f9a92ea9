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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cheggaaa/pb"
	"github.com/ebay/chunkflow/query/exec"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
)

// openInput opens the named file, or standard input if filename is empty or
// "-". It returns the size of the input in bytes, or 0 if that's unknown,
// and a short name for the input.
func openInput(filename string) (io.ReadCloser, int64, string, error) {
	if filename == "" || filename == "-" {
		return os.Stdin, 0, "stdin", nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, "", err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", err
	}
	return f, info.Size(), filename, nil
}

// tsvProducer is an exec.ChunkProducer that reads binding sets from
// tab-separated text. The first line names the variables.
type tsvProducer struct {
	in        io.Closer
	scanner   *bufio.Scanner
	vars      []*plandef.Variable
	chunkCap  int
	line      int
	bar       *pb.ProgressBar
	closeOnce sync.Once
	closeErr  error
}

// newTSVProducer reads the header line of 'in' and returns a producer for the
// rest of it. Each chunk holds up to chunkCap binding sets. If progress is
// set, a progress bar tracking the bytes read is written to stderr; size is
// the total number of bytes expected, or 0 if unknown.
func newTSVProducer(in io.ReadCloser, size int64, chunkCap int, progress bool, label string) (*tsvProducer, error) {
	p := &tsvProducer{
		in:       in,
		chunkCap: chunkCap,
	}
	var r io.Reader = in
	if progress {
		p.bar = pb.New64(size).SetUnits(pb.U_BYTES).Prefix(label + " ")
		p.bar.Output = os.Stderr
		p.bar.SetMaxWidth(100)
		p.bar.ShowPercent = size > 0
		p.bar.Start()
		r = p.bar.NewProxyReader(in)
	}
	p.scanner = bufio.NewScanner(r)
	p.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !p.scanner.Scan() {
		err := p.scanner.Err()
		if err == nil {
			err = fmt.Errorf("input is empty, expecting a header line of variables")
		}
		p.Close()
		return nil, err
	}
	p.line = 1
	vars, err := parseHeader(p.scanner.Text())
	if err != nil {
		p.Close()
		return nil, err
	}
	p.vars = vars
	return p, nil
}

func parseHeader(line string) ([]*plandef.Variable, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	vars := make([]*plandef.Variable, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		m := varName.FindStringSubmatch(strings.TrimSpace(field))
		if m == nil {
			return nil, fmt.Errorf("header column %d: invalid variable name %q", i+1, field)
		}
		if seen[m[1]] {
			return nil, fmt.Errorf("header column %d: variable ?%s appears twice", i+1, m[1])
		}
		seen[m[1]] = true
		vars[i] = &plandef.Variable{Name: m[1]}
	}
	return vars, nil
}

// Variables returns the variables named in the header, in column order.
func (p *tsvProducer) Variables() []*plandef.Variable {
	return p.vars
}

// Next implements exec.ChunkProducer.
func (p *tsvProducer) Next(ctx context.Context) (exec.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return exec.Chunk{}, err
	}
	var chunk exec.Chunk
	for len(chunk.Rows) < p.chunkCap && p.scanner.Scan() {
		p.line++
		line := strings.TrimRight(p.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		row, err := p.parseRow(line)
		if err != nil {
			return exec.Chunk{}, err
		}
		chunk.Rows = append(chunk.Rows, row)
	}
	if err := p.scanner.Err(); err != nil {
		return exec.Chunk{}, err
	}
	if len(chunk.Rows) == 0 {
		return exec.Chunk{}, io.EOF
	}
	return chunk, nil
}

func (p *tsvProducer) parseRow(line string) (exec.BindingSet, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != len(p.vars) {
		return exec.BindingSet{}, fmt.Errorf("line %d has %d fields, expecting %d",
			p.line, len(fields), len(p.vars))
	}
	bindings := make([]exec.Binding, 0, len(fields))
	for i, field := range fields {
		val, err := rpc.ParseKGObject(field)
		if err != nil {
			return exec.BindingSet{}, fmt.Errorf("line %d, column %v: %v", p.line, p.vars[i], err)
		}
		if val.IsNil() {
			continue
		}
		bindings = append(bindings, exec.Binding{Var: p.vars[i], Value: val})
	}
	return exec.NewBindingSet(bindings...), nil
}

// Close implements exec.ChunkProducer. It may be called more than once.
func (p *tsvProducer) Close() error {
	p.closeOnce.Do(func() {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.closeErr = p.in.Close()
	})
	return p.closeErr
}
