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

// Package separate splits the rewritten rule source into the deletions view
// and the additions view and reparses each with the host parser. Both views
// keep the exact line numbering of the rewritten source so that "same source
// line" identifies common statements across views.
package separate

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"go.uber.org/spatch/config"
	"go.uber.org/spatch/diagnostic"
	"go.uber.org/spatch/rewrite"
)

// Views bundles the two parsed view ASTs together with the line-classifying
// sets the anchor resolver consumes.
type Views struct {
	Fset *token.FileSet
	// Dels is the deletions view: `-` lines kept, `+` lines blanked.
	Dels *ast.File
	// Adds is the additions view: `+` lines kept, `-` lines replaced by the
	// deletion marker (or blanked for dots / method-header lines).
	Adds *ast.File
	// DelsText and AddsText are the per-view sources the ASTs were parsed
	// from.
	DelsText, AddsText string
	// CommonLines holds the (1-based) lines present in both views.
	CommonLines map[int]bool
	// DelLines holds the lines carrying a `-` marker.
	DelLines map[int]bool
	// AddLines holds the lines carrying a `+` marker.
	AddLines map[int]bool
}

var funcHeaderPattern = regexp.MustCompile(`^func\s+[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)[^{]*\{\s*$`)

// Split derives the two views from the rewritten source and parses them.
func Split(src *rewrite.Source, sink *diagnostic.Sink) (*Views, error) {
	lines := strings.Split(src.Text, "\n")
	v := &Views{
		Fset:        token.NewFileSet(),
		CommonLines: make(map[int]bool),
		DelLines:    make(map[int]bool),
		AddLines:    make(map[int]bool),
	}

	dels := make([]string, len(lines))
	adds := make([]string, len(lines))
	for i, line := range lines {
		n := i + 1
		switch {
		case strings.HasPrefix(line, "+"):
			v.AddLines[n] = true
			dels[i] = ""
			adds[i] = line[1:]
		case strings.HasPrefix(line, "-"):
			v.DelLines[n] = true
			dels[i] = line[1:]
			adds[i] = deletionPlaceholder(line[1:])
		default:
			if strings.TrimSpace(line) != "" {
				v.CommonLines[n] = true
			}
			dels[i] = line
			adds[i] = line
		}
	}
	v.DelsText = strings.Join(dels, "\n")
	v.AddsText = strings.Join(adds, "\n")

	var err error
	if v.Dels, err = parseView(v.Fset, "dels.go", v.DelsText); err != nil {
		return nil, sink.Errorf(0, "parse deletions view: %v", err)
	}
	if v.Adds, err = parseView(v.Fset, "adds.go", v.AddsText); err != nil {
		return nil, sink.Errorf(0, "parse additions view: %v", err)
	}
	return v, nil
}

// deletionPlaceholder renders the additions-view replacement for a deleted
// line: the deletion marker for ordinary statements, a blank line for dots
// statements and method headers (neither can anchor additions).
func deletionPlaceholder(code string) string {
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, config.DotsMarker) || funcHeaderPattern.MatchString(trimmed) {
		return ""
	}
	return indentOf(code) + config.DeletionMarker + "()"
}

func parseView(fset *token.FileSet, name, text string) (*ast.File, error) {
	return parser.ParseFile(fset, name, text, parser.SkipObjectResolution)
}

// Line returns the 1-based source line of a node in either view.
func (v *Views) Line(n ast.Node) int {
	return v.Fset.Position(n.Pos()).Line
}

// DelsRuleMethod locates the unique rule method in the deletions view: the
// single function declaration that is not the metavariable method.
func (v *Views) DelsRuleMethod() (*ast.FuncDecl, error) {
	var found *ast.FuncDecl
	for _, fn := range functions(v.Dels) {
		if fn.Name.Name == config.MetavarsFunc {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: multiple rule methods in deletions view", diagnostic.ErrUnrecoverable)
		}
		found = fn
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no rule method in deletions view", diagnostic.ErrUnrecoverable)
	}
	return found, nil
}

// AddsRuleMethod locates the rule method in the additions view: the first
// function declaration that is not the metavariable method and not an added
// method (added methods sit entirely on `+` lines).
func (v *Views) AddsRuleMethod() (*ast.FuncDecl, error) {
	for _, fn := range functions(v.Adds) {
		if fn.Name.Name == config.MetavarsFunc || v.entirelyAdded(fn) {
			continue
		}
		return fn, nil
	}
	return nil, fmt.Errorf("%w: failed to locate additions rule method", diagnostic.ErrUnrecoverable)
}

// AddedMethods returns the whole functions contributed by `+` lines outside
// the rule method.
func (v *Views) AddedMethods() []*ast.FuncDecl {
	var added []*ast.FuncDecl
	for _, fn := range functions(v.Adds) {
		if fn.Name.Name != config.MetavarsFunc && v.entirelyAdded(fn) {
			added = append(added, fn)
		}
	}
	return added
}

// MetavarsMethod returns the metavariable method of the deletions view, or
// nil when the view has none. The rewriter always emits one, with an empty
// body when the patch declared no metavariables.
func (v *Views) MetavarsMethod() *ast.FuncDecl {
	for _, fn := range functions(v.Dels) {
		if fn.Name.Name == config.MetavarsFunc {
			return fn
		}
	}
	return nil
}

func (v *Views) entirelyAdded(fn *ast.FuncDecl) bool {
	start := v.Fset.Position(fn.Pos()).Line
	end := v.Fset.Position(fn.End()).Line
	for n := start; n <= end; n++ {
		if !v.AddLines[n] {
			return false
		}
	}
	return true
}

func functions(file *ast.File) []*ast.FuncDecl {
	var fns []*ast.FuncDecl
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func indentOf(s string) string {
	for i, c := range s {
		if c != ' ' && c != '\t' {
			return s[:i]
		}
	}
	return s
}
