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

// Package graphviz draws diagrams from dot input using the Graphviz "dot"
// program.
package graphviz

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Filetype is the file format of output image.
type Filetype int

// Supported Filetypes.
const (
	PDF Filetype = 1
	PNG Filetype = 2
	SVG Filetype = 3
)

// flag returns the dot command-line flag that selects the format.
func (t Filetype) flag() string {
	switch t {
	case PDF:
		return "-Tpdf"
	case PNG:
		return "-Tpng"
	case SVG:
		return "-Tsvg"
	}
	return ""
}

// FiletypeOf returns the Filetype matching the extension of filename.
func FiletypeOf(filename string) (Filetype, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return PDF, nil
	case "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return 0, fmt.Errorf("could not determine filetype from filename: %v", filename)
}

// Options to Create.
type Options struct {
	// Unless provided, Create will detect this from the filename.
	Filetype Filetype
	// The dot program to run. Defaults to "dot" from $PATH.
	Command string
}

// Create writes an image file from dot input. 'generate' should write
// the dot input into the given writer; it may safely ignore errors from
// the writer.
func Create(filename string, generate func(io.Writer), options Options) error {
	if options.Filetype == 0 {
		var err error
		options.Filetype, err = FiletypeOf(filename)
		if err != nil {
			return err
		}
	}
	flag := options.Filetype.flag()
	if flag == "" {
		return fmt.Errorf("unknown file type: %d", int(options.Filetype))
	}
	if options.Command == "" {
		options.Command = "dot"
	}
	path, err := exec.LookPath(options.Command)
	if err != nil {
		return fmt.Errorf("graphviz is not installed: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	cmd := exec.Command(path, flag)
	cmd.Stdout = file
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	go func() {
		defer stdin.Close()
		generate(stdin)
	}()
	var errOut strings.Builder
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error executing dot: %v. Stderr: %v", err, errOut.String())
	}
	return file.Close()
}
