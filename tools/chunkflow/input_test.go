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
	"context"
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func readAll(t *testing.T, p *tsvProducer) [][]string {
	var chunks [][]string
	for {
		c, err := p.Next(context.Background())
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		var rows []string
		for _, row := range c.Rows {
			rows = append(rows, row.String())
		}
		chunks = append(chunks, rows)
	}
}

func Test_tsvProducer(t *testing.T) {
	in := &closeCounter{Reader: strings.NewReader(
		"?a\tb\r\n1\tx\r\n\r\n2.0\t\"y z\"\n\t#7\ntrue\t\n")}
	p, err := newTSVProducer(in, 0, 2, false, "test")
	require.NoError(t, err)
	assert.Equal(t, "?a ?b", varsString(p))
	assert.Equal(t, [][]string{
		{`{?a=1 ?b="x"}`, `{?a=2.0 ?b="y z"}`},
		{`{?b=#7}`, `{?a=true}`},
	}, readAll(t, p))
	_, err = p.Next(context.Background())
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, in.closes)
}

func varsString(p *tsvProducer) string {
	names := make([]string, len(p.Variables()))
	for i, v := range p.Variables() {
		names[i] = v.String()
	}
	return strings.Join(names, " ")
}

func Test_tsvProducerErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expErr string
	}{
		{"empty", "", "input is empty, expecting a header line of variables"},
		{"bad_header", "?a\t1b\n", `header column 2: invalid variable name "1b"`},
		{"dup_header", "?a\ta\n", "header column 2: variable ?a appears twice"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			in := &closeCounter{Reader: strings.NewReader(test.input)}
			_, err := newTSVProducer(in, 0, 10, false, "test")
			assert.EqualError(t, err, test.expErr)
			assert.Equal(t, 1, in.closes)
		})
	}

	p, err := newTSVProducer(ioutil.NopCloser(strings.NewReader("?a\n\"open\n")), 0, 10, false, "test")
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	assert.Contains(t, err.Error(), "line 2, column ?a: invalid quoted string")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Next(ctx)
	assert.Equal(t, context.Canceled, err)
}

func Test_tsvProducerProgress(t *testing.T) {
	input := "?a\n1\n2\n"
	p, err := newTSVProducer(ioutil.NopCloser(strings.NewReader(input)), int64(len(input)), 10, true, "test")
	require.NoError(t, err)
	assert.Len(t, readAll(t, p), 1)
	assert.NoError(t, p.Close())
	assert.Equal(t, int64(len(input)), p.bar.Get())
}
