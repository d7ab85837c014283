//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config implements the configuration analyzer for spatch. All
// user-facing knobs are flags on this analyzer so that every driver
// (singlechecker, golangci-lint plugin, nogo) shares one config surface.
package config

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"golang.org/x/tools/go/analysis"
)

const _doc = "Read the flags and assemble the patch configuration shared by the other analyzers"

// Config is the result of the config analyzer: the patch source to compile
// and reporting preferences.
type Config struct {
	// PatchSource is the full SmPL patch text to compile and match.
	PatchSource string
	// PrettyPrint records the pretty-print flag. The spatch analyzer does not
	// read it: match reports have a single format.
	PrettyPrint bool
}

// Analyzer reads the flags and assembles the shared configuration.
var Analyzer = &analysis.Analyzer{
	Name:       "spatch_config",
	Doc:        _doc,
	Run:        run,
	Flags:      newFlagSet(),
	ResultType: reflect.TypeOf((*Config)(nil)),
}

var (
	_patch       string
	_patchFile   string
	_prettyPrint bool
)

func newFlagSet() flag.FlagSet {
	fs := flag.NewFlagSet("spatch", flag.ExitOnError)
	fs.StringVar(&_patch, "patch", "", "inline semantic patch text")
	fs.StringVar(&_patchFile, "patch-file", "", "path to a file containing the semantic patch")
	fs.BoolVar(&_prettyPrint, "pretty-print", true, "recorded in the config; match reports have a single format")
	return *fs
}

func run(_ *analysis.Pass) (any, error) {
	source := _patch
	if _patchFile != "" {
		if source != "" {
			return nil, fmt.Errorf("flags -patch and -patch-file are mutually exclusive")
		}
		b, err := os.ReadFile(_patchFile)
		if err != nil {
			return nil, fmt.Errorf("read patch file %q: %w", _patchFile, err)
		}
		source = string(b)
	}

	return &Config{PatchSource: source, PrettyPrint: _prettyPrint}, nil
}
