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

// Package spatch implements the top-level analyzer: it compiles the
// configured semantic patch into a rule and reports every method of the
// analyzed package the rule matches, together with the edits the rule would
// perform there.
package spatch

import (
	"fmt"
	"go/ast"
	"go/token"
	"runtime/debug"
	"slices"
	"strings"

	"go.uber.org/spatch/anchor"
	"go.uber.org/spatch/cfg"
	"go.uber.org/spatch/checker"
	"go.uber.org/spatch/compiler"
	"go.uber.org/spatch/config"
	"go.uber.org/spatch/diagnostic"
	"go.uber.org/spatch/lexer"
	"go.uber.org/spatch/rewrite"
	"go.uber.org/spatch/rule"
	"go.uber.org/spatch/separate"
	"golang.org/x/tools/go/analysis"
)

const _doc = "Apply the configured semantic patch to this package and report every matching method" +
	" together with the edits the patch would perform"

// Analyzer is the top-level instance - it compiles the configured patch and
// matches it against every method of the package.
var Analyzer = &analysis.Analyzer{
	Name:     "spatch",
	Doc:      _doc,
	Run:      run,
	Requires: []*analysis.Analyzer{config.Analyzer},
}

// Compile runs the full compilation pipeline on one patch text: lex,
// rewrite, separate, anchor, CFG construction and formula compilation. The
// collected problems are returned alongside the rule; an error carries no
// partial result.
func Compile(source string) (*rule.Rule, []*diagnostic.Problem, error) {
	sink := &diagnostic.Sink{}

	tokens, err := lexer.Lex(source)
	if err != nil {
		return nil, sink.Problems(), err
	}
	rw, err := rewrite.Rewrite(tokens, sink)
	if err != nil {
		return nil, sink.Problems(), err
	}
	views, err := separate.Split(rw, sink)
	if err != nil {
		return nil, sink.Problems(), err
	}

	metavars, err := rule.ParseMetavars(views.MetavarsMethod())
	if err != nil {
		return nil, sink.Problems(), err
	}
	delsFn, err := views.DelsRuleMethod()
	if err != nil {
		return nil, sink.Problems(), err
	}
	anchored, err := anchor.Resolve(views)
	if err != nil {
		return nil, sink.Problems(), err
	}

	g, err := cfg.NewBuilder(views.Fset).Build(delsFn)
	if err != nil {
		return nil, sink.Problems(), err
	}
	if g, err = cfg.Adapt(g); err != nil {
		return nil, sink.Problems(), err
	}
	formula, err := compiler.Compile(g, anchored, metavars, views.Fset)
	if err != nil {
		return nil, sink.Problems(), err
	}

	return &rule.Rule{
		Name:                  rw.RuleName,
		Source:                source,
		RuleMethod:            delsFn,
		MatchesOnMethodHeader: rw.MatchesOnMethodHeader,
		Formula:               formula,
		Metavars:              metavars,
		AddedMethods:          views.AddedMethods(),
		Fset:                  views.Fset,
	}, sink.Problems(), nil
}

// CompileCached recompiles a rule from its cached payload.
func CompileCached(data []byte) (*rule.Rule, []*diagnostic.Problem, error) {
	cached, err := rule.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode cached rule: %w", err)
	}
	r, problems, err := Compile(cached.Source)
	if err != nil {
		return nil, problems, err
	}
	var kinds []string
	for _, p := range r.Metavars.Pairs {
		kinds = append(kinds, p.Value.Kind())
	}
	if !slices.Equal(kinds, cached.MetavarKinds) {
		return nil, problems, fmt.Errorf("cached rule metavariable kinds %v differ from recompiled %v", cached.MetavarKinds, kinds)
	}
	return r, problems, nil
}

func run(pass *analysis.Pass) (result any, err error) {
	// The analysis must never panic on a malformed patch or an internal
	// invariant violation; convert panics into errors with stack traces.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("INTERNAL PANIC: %s\n%s", r, string(debug.Stack()))
		}
	}()

	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	if conf.PatchSource == "" {
		return nil, nil
	}

	r, problems, err := Compile(conf.PatchSource)
	if err != nil {
		return nil, fmt.Errorf("compile patch: %w", err)
	}
	for _, p := range problems {
		if len(pass.Files) > 0 {
			pass.Report(analysis.Diagnostic{Pos: pass.Files[0].Pos(), Message: "patch " + p.Error()})
		}
	}

	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			matches, err := checker.Run(r, fn, pass.Fset)
			if err != nil {
				return nil, fmt.Errorf("match %s: %w", fn.Name.Name, err)
			}
			for _, m := range matches {
				pass.Report(analysis.Diagnostic{Pos: matchPos(fn, m), Message: matchMessage(r, fn, m)})
			}
		}
	}
	return nil, nil
}

func matchPos(fn *ast.FuncDecl, m checker.Match) token.Pos {
	if m.Stmt != nil {
		return m.Stmt.Pos()
	}
	return fn.Pos()
}

func matchMessage(r *rule.Rule, fn *ast.FuncDecl, m checker.Match) string {
	name := r.Name
	if name == "" {
		name = "<anonymous>"
	}
	var ops []string
	for _, op := range m.Operations {
		ops = append(ops, op.String())
	}
	msg := fmt.Sprintf("rule %q matches `%s`", name, fn.Name.Name)
	if len(ops) > 0 {
		msg += fmt.Sprintf(" with edits [%s]", strings.Join(ops, ", "))
	}
	return msg
}
