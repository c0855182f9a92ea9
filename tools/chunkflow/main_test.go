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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/chunkflow/config"
	"github.com/ebay/chunkflow/query"
	"github.com/ebay/chunkflow/query/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	helpHandler = docopt.NoHelpHandler
}

func Test_parseArgs(t *testing.T) {
	var tests = []struct {
		name      string
		inputArgv []string
		expErr    string
		check     func(t *testing.T, o *options)
	}{
		{
			name:      "route",
			inputArgv: []string{"-i", "sales.tsv", "route", "?price", ">", "20"},
			check: func(t *testing.T, o *options) {
				assert.True(t, o.Route)
				assert.False(t, o.Group)
				assert.Equal(t, "?price", o.Var)
				assert.Equal(t, ">", o.Op)
				assert.Equal(t, "20", o.Value)
				assert.Equal(t, "sales.tsv", o.Filename)
				assert.Equal(t, "tsv", o.Format)
				assert.Equal(t, 0, o.Parallel)
				assert.Equal(t, time.Duration(0), o.Timeout)
			},
		}, {
			name:      "route_stdin",
			inputArgv: []string{"-p", "4", "--timeout=5s", "route", "x", "=", "a"},
			check: func(t *testing.T, o *options) {
				assert.Equal(t, "", o.Filename)
				assert.Equal(t, 4, o.Parallel)
				assert.Equal(t, 5*time.Second, o.Timeout)
			},
		}, {
			name: "group",
			inputArgv: []string{"--format=table", "--order=-?total", "--limit=3", "group",
				"--by=?region", "?total=sum(?price)", "count(*)", "--input=sales.tsv"},
			check: func(t *testing.T, o *options) {
				assert.True(t, o.Group)
				assert.Equal(t, "?region", o.By)
				assert.Equal(t, []string{"?total=sum(?price)", "count(*)"}, o.Aggs)
				assert.Equal(t, "sales.tsv", o.Filename)
				assert.Equal(t, "table", o.Format)
				assert.Equal(t, "-?total", o.Order)
				assert.Equal(t, "3", o.Limit)
			},
		}, {
			name:      "group_stdin",
			inputArgv: []string{"group", "count(*)", "sum(?v)"},
			check: func(t *testing.T, o *options) {
				assert.Equal(t, []string{"count(*)", "sum(?v)"}, o.Aggs)
				assert.Equal(t, "", o.Filename)
			},
		}, {
			name:      "bad_format",
			inputArgv: []string{"--format=xml", "route", "x", "=", "a"},
			expErr:    `--format must be tsv or table, got "xml"`,
		}, {
			name:      "bad_timeout",
			inputArgv: []string{"--timeout=soon", "route", "x", "=", "a"},
			expErr:    "unable to parse timeout value",
		}, {
			name:      "negative_parallel",
			inputArgv: []string{"--parallel=-1", "route", "x", "=", "a"},
			expErr:    "--parallel must not be negative",
		}, {
			name:      "no_command",
			inputArgv: []string{"sales.tsv"},
			expErr:    "error parsing command-line arguments",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			o, err := parseArgs(test.inputArgv)
			if test.expErr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), test.expErr)
				}
				return
			}
			require.NoError(t, err)
			test.check(t, o)
		})
	}
}

const salesTSV = "?region\t?price\n" +
	"\"east\"\t10\n" +
	"west\t25\n" +
	"\n" +
	"east\t30\n" +
	"\t5\n" +
	"west\t2.5\n"

func writeInput(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "input.tsv")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func runCommand(t *testing.T, argv ...string) (string, error) {
	options, err := parseArgs(argv)
	require.NoError(t, err)
	cfg := &config.Pipeline{ChunkCapacity: 2}
	engine := query.New(cfg, 0)
	out := new(bytes.Buffer)
	err = run(context.Background(), engine, cfg, options, out)
	return out.String(), err
}

func Test_runRoute(t *testing.T) {
	input := writeInput(t, salesTSV)
	out, err := runCommand(t, "-i", input, "route", "?price", ">", "20")
	require.NoError(t, err)
	assert.Equal(t, "?region\t?price\n"+
		"\"west\"\t25\n"+
		"\"east\"\t30\n", out)

	out, err = runCommand(t, "--parallel=3", "--order=?price", "-i", input, "route", "region", "=", "east")
	require.NoError(t, err)
	assert.Equal(t, "?region\t?price\n"+
		"\"east\"\t10\n"+
		"\"east\"\t30\n", out)
}

func Test_runGroup(t *testing.T) {
	input := writeInput(t, salesTSV)
	out, err := runCommand(t, "-p", "2", "--input="+input, "group", "--by=?region", "sum(?price)", "count(*)")
	require.NoError(t, err)
	assert.Equal(t, "?region\t?sum_price\t?count\n"+
		"\t5\t1\n"+
		"\"east\"\t40\t2\n"+
		"\"west\"\t27.5\t2\n", out)

	out, err = runCommand(t, "--order=-?n", "--limit=1", "-i", input, "group", "--by=region", "?n=max(?price)")
	require.NoError(t, err)
	assert.Equal(t, "?region\t?n\n"+
		"\"east\"\t30\n", out)

	out, err = runCommand(t, "--format=table", "-i", input, "group", "avg(?price)")
	require.NoError(t, err)
	assert.Contains(t, out, "?avg_price")
	assert.Contains(t, out, "14.5")
}

func Test_runErrors(t *testing.T) {
	input := writeInput(t, salesTSV)
	_, err := runCommand(t, "-i", input, "route", "?cost", ">", "20")
	assert.EqualError(t, err, "unknown variable ?cost, expecting one of: ?region ?price")

	_, err = runCommand(t, "-i", filepath.Join(filepath.Dir(input), "missing.tsv"), "route", "?price", ">", "20")
	assert.True(t, os.IsNotExist(err), "got %v", err)

	bad := writeInput(t, "?x\t?y\n1\t2\n3\n")
	_, err = runCommand(t, "-i", bad, "group", "count(?x)")
	var resErr *exec.ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Contains(t, err.Error(), "line 3 has 1 fields, expecting 2")
}
