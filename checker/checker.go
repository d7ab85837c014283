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

// Package checker evaluates a compiled rule's CTL-VW formula against the
// control-flow graph of one target method. Satisfying states become match
// sites; the witness trees carry the metavariable bindings and the edit
// operations to perform there.
package checker

import (
	"go/ast"
	"go/token"
	"sort"

	"go.uber.org/spatch/cfg"
	"go.uber.org/spatch/config"
	"go.uber.org/spatch/constraint"
	"go.uber.org/spatch/ctlvw"
	"go.uber.org/spatch/operation"
	"go.uber.org/spatch/rule"
	"go.uber.org/spatch/util/asthelper"
	"go.uber.org/spatch/util/orderedmap"
)

// Match is one match site of a rule within a target method.
type Match struct {
	// Fn is the matched method.
	Fn *ast.FuncDecl
	// State is the node id of the match site in the target graph.
	State int
	// Stmt is the statement at the match site, if the site is a statement.
	Stmt ast.Stmt
	// Bindings maps each metavariable to the element it bound.
	Bindings map[string]ast.Node
	// Operations are the edits to perform at this site, in witness order.
	Operations []operation.Op
	// Witnesses is the full proof tree.
	Witnesses []*ctlvw.Witness
}

type evaluator struct {
	g        *cfg.Graph
	metavars *orderedmap.OrderedMap[string, constraint.Constraint]
	fset     *token.FileSet
}

// Run matches the rule against one target method.
func Run(r *rule.Rule, fn *ast.FuncDecl, fset *token.FileSet) ([]Match, error) {
	if r.MatchesOnMethodHeader && !headerMatches(r, fn) {
		return nil, nil
	}

	g, err := cfg.NewBuilder(fset).Build(fn)
	if err != nil {
		return nil, err
	}
	if g, err = cfg.Adapt(g); err != nil {
		return nil, err
	}

	e := &evaluator{g: g, metavars: r.Metavars, fset: fset}
	results := e.eval(r.Formula)
	sort.SliceStable(results, func(i, j int) bool { return results[i].state < results[j].state })

	var matches []Match
	for _, res := range results {
		m := Match{Fn: fn, State: res.state, Stmt: g.Node(res.state).Stmt, Bindings: make(map[string]ast.Node), Witnesses: res.wits}
		ctlvw.CollectBindings(res.wits, func(_ int, metavar string, binding any) {
			if metavar == config.OperationsVar {
				if ops, ok := binding.([]operation.Op); ok {
					m.Operations = append(m.Operations, ops...)
				}
				return
			}
			if node, ok := binding.(ast.Node); ok {
				m.Bindings[metavar] = node
			}
		})
		matches = append(matches, m)
	}
	return matches, nil
}

// headerMatches checks a header-matching rule against the target method's
// name: equal names match, and a metavariable name matches any method.
func headerMatches(r *rule.Rule, fn *ast.FuncDecl) bool {
	name := r.RuleMethod.Name.Name
	if _, ok := r.Metavars.Load(name); ok {
		return true
	}
	return name == fn.Name.Name
}

func (e *evaluator) statementAtoms(p *ctlvw.StatementPattern) []result {
	var out []result
	for _, n := range e.states() {
		if n.Kind != cfg.Statement || n.Stmt == nil {
			continue
		}
		for _, env := range e.matchNode(p.Pattern, n.Stmt, e.emptyEnv()) {
			out = append(out, result{state: n.ID, env: env})
		}
	}
	return out
}

func (e *evaluator) branchAtoms(p *ctlvw.BranchPattern) []result {
	var out []result
	for _, n := range e.states() {
		if n.Kind != cfg.Branch {
			continue
		}
		ifStmt, ok := n.Stmt.(*ast.IfStmt)
		if !ok {
			continue
		}
		for _, env := range e.matchNode(p.Pattern, ifStmt.Cond, e.emptyEnv()) {
			out = append(out, result{state: n.ID, env: env})
		}
	}
	return out
}

// matchNode structurally unifies a pattern node against a target node under
// the environment, returning the extended environments (empty slice: no
// match). A pattern identifier naming a metavariable binds per its
// constraint; a pattern subtree without metavariables matches by printed
// equality.
func (e *evaluator) matchNode(pat, tgt ast.Node, env *ctlvw.Env) []*ctlvw.Env {
	if pat == nil || tgt == nil {
		if pat == nil && tgt == nil {
			return []*ctlvw.Env{env}
		}
		return nil
	}

	// Parentheses are transparent: `if (cond)` in a patch unifies with
	// `if cond` in a target.
	if p, ok := pat.(*ast.ParenExpr); ok {
		return e.matchNode(p.X, tgt, env)
	}
	if t, ok := tgt.(*ast.ParenExpr); ok {
		return e.matchNode(pat, t.X, env)
	}

	if id, ok := pat.(*ast.Ident); ok {
		if c, isMeta := e.metavars.Load(id.Name); isMeta {
			return e.bindMetavar(id.Name, c, tgt, env)
		}
	}

	if !e.hasMetavars(pat) {
		if asthelper.EqualNode(e.fset, pat, tgt) {
			return []*ctlvw.Env{env}
		}
		return nil
	}

	switch p := pat.(type) {
	case *ast.ExprStmt:
		t, ok := tgt.(*ast.ExprStmt)
		if !ok {
			return nil
		}
		return e.matchNode(p.X, t.X, env)
	case *ast.ReturnStmt:
		t, ok := tgt.(*ast.ReturnStmt)
		if !ok || len(p.Results) != len(t.Results) {
			return nil
		}
		return e.matchAll(exprNodes(p.Results), exprNodes(t.Results), env)
	case *ast.AssignStmt:
		t, ok := tgt.(*ast.AssignStmt)
		if !ok || p.Tok != t.Tok || len(p.Lhs) != len(t.Lhs) || len(p.Rhs) != len(t.Rhs) {
			return nil
		}
		return e.matchAll(append(exprNodes(p.Lhs), exprNodes(p.Rhs)...), append(exprNodes(t.Lhs), exprNodes(t.Rhs)...), env)
	case *ast.CallExpr:
		t, ok := tgt.(*ast.CallExpr)
		if !ok || len(p.Args) != len(t.Args) {
			return nil
		}
		return e.matchAll(append([]ast.Node{p.Fun}, exprNodes(p.Args)...), append([]ast.Node{t.Fun}, exprNodes(t.Args)...), env)
	case *ast.BinaryExpr:
		t, ok := tgt.(*ast.BinaryExpr)
		if !ok || p.Op != t.Op {
			return nil
		}
		return e.matchAll([]ast.Node{p.X, p.Y}, []ast.Node{t.X, t.Y}, env)
	case *ast.UnaryExpr:
		t, ok := tgt.(*ast.UnaryExpr)
		if !ok || p.Op != t.Op {
			return nil
		}
		return e.matchNode(p.X, t.X, env)
	case *ast.SelectorExpr:
		t, ok := tgt.(*ast.SelectorExpr)
		if !ok {
			return nil
		}
		return e.matchAll([]ast.Node{p.X, p.Sel}, []ast.Node{t.X, t.Sel}, env)
	case *ast.IndexExpr:
		t, ok := tgt.(*ast.IndexExpr)
		if !ok {
			return nil
		}
		return e.matchAll([]ast.Node{p.X, p.Index}, []ast.Node{t.X, t.Index}, env)
	case *ast.StarExpr:
		t, ok := tgt.(*ast.StarExpr)
		if !ok {
			return nil
		}
		return e.matchNode(p.X, t.X, env)
	case *ast.BasicLit:
		t, ok := tgt.(*ast.BasicLit)
		if !ok || p.Kind != t.Kind || p.Value != t.Value {
			return nil
		}
		return []*ctlvw.Env{env}
	case *ast.Ident:
		t, ok := tgt.(*ast.Ident)
		if !ok || p.Name != t.Name {
			return nil
		}
		return []*ctlvw.Env{env}
	default:
		// Remaining forms are compared by printed equality, which fails
		// when a metavariable embedded in them would have to bind.
		if asthelper.EqualNode(e.fset, pat, tgt) {
			return []*ctlvw.Env{env}
		}
		return nil
	}
}

func (e *evaluator) bindMetavar(name string, c constraint.Constraint, tgt ast.Node, env *ctlvw.Env) []*ctlvw.Env {
	if existing, ok := env.Lookup(name); ok && existing.Value != nil {
		if !c.Merge(existing.Value, tgt) {
			return nil
		}
		return []*ctlvw.Env{env}
	}
	binding, ok := c.Matches(tgt)
	if !ok {
		return nil
	}
	next, ok := env.Bind(name, binding)
	if !ok {
		return nil
	}
	return []*ctlvw.Env{next}
}

func (e *evaluator) matchAll(pats, tgts []ast.Node, env *ctlvw.Env) []*ctlvw.Env {
	envs := []*ctlvw.Env{env}
	for i := range pats {
		var next []*ctlvw.Env
		for _, cur := range envs {
			next = append(next, e.matchNode(pats[i], tgts[i], cur)...)
		}
		if len(next) == 0 {
			return nil
		}
		envs = next
	}
	return envs
}

func (e *evaluator) hasMetavars(node ast.Node) bool {
	for _, name := range asthelper.Idents(node) {
		if _, ok := e.metavars.Load(name); ok {
			return true
		}
	}
	return false
}

func exprNodes(exprs []ast.Expr) []ast.Node {
	nodes := make([]ast.Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}
