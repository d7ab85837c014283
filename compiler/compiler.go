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

// Package compiler walks the deletions-view CFG of a rule method and emits
// the CTL-VW match obligation. Each anchorable atom is conjoined with an
// operations slot carrying the edits resolved for its source line; every
// metavariable is quantified exactly once per path, at its first use.
package compiler

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"go.uber.org/spatch/cfg"
	"go.uber.org/spatch/config"
	"go.uber.org/spatch/constraint"
	"go.uber.org/spatch/ctlvw"
	"go.uber.org/spatch/diagnostic"
	"go.uber.org/spatch/operation"
	"go.uber.org/spatch/util/asthelper"
	"go.uber.org/spatch/util/orderedmap"
)

// Compile emits the optimized CTL-VW formula for the adapted deletions-view
// graph, consulting the anchored-operations map and the metavariable table.
func Compile(
	g *cfg.Graph,
	anchored *operation.AnchoredMap,
	metavars *orderedmap.OrderedMap[string, constraint.Constraint],
	fset *token.FileSet,
) (ctlvw.Formula, error) {
	c := &compiler{
		g:            g,
		anchored:     anchored,
		metavars:     metavars,
		fset:         fset,
		stopConverge: -1,
	}
	// Operations anchored to the method body ride along until the first
	// emitted slot.
	c.queued = append(c.queued, anchored.MethodBodyOps()...)

	begin := g.Node(g.EntryID)
	if len(begin.Succs) != 1 {
		return nil, fmt.Errorf("%w: BEGIN node has %d successors, want 1", diagnostic.ErrInternal, len(begin.Succs))
	}

	f, err := c.compile(begin.Succs[0], map[int]bool{}, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = &ctlvw.Not{F: &ctlvw.True{}}
	}
	return ctlvw.Optimize(f), nil
}

type compiler struct {
	g        *cfg.Graph
	anchored *operation.AnchoredMap
	metavars *orderedmap.OrderedMap[string, constraint.Constraint]
	fset     *token.FileSet
	// queued holds operations waiting for the next emitted slot.
	queued []operation.Op
	// stopConverge is the convergence node of the implicit-dots wrapper;
	// compilation of the wrapped body ends there.
	stopConverge int
}

// compile emits the sub-formula rooted at the given node. A nil formula
// means the node contributes no obligation (EXIT, or the wrapper edge).
// visited guards against cycles along the current path; quantified tracks
// the metavariables already bound on it.
func (c *compiler) compile(id int, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	if visited[id] {
		return nil, nil
	}
	visited[id] = true
	n := c.g.Node(id)

	switch n.Kind {
	case cfg.Exit:
		return nil, nil
	case cfg.Statement:
		return c.statement(n, visited, quantified)
	case cfg.Branch:
		return c.branch(n, visited, quantified)
	case cfg.BlockBegin:
		return c.blockBegin(n, visited, quantified)
	case cfg.Converge:
		return c.converge(n, visited, quantified)
	default:
		return nil, fmt.Errorf("%w: unexpected %s node %d in compiler walk", diagnostic.ErrInternal, n.Kind, n.ID)
	}
}

func (c *compiler) successor(n *cfg.Node) (int, error) {
	if len(n.Succs) != 1 {
		return 0, fmt.Errorf("%w: %s node %d has %d successors, want 1", diagnostic.ErrInternal, n.Kind, n.ID, len(n.Succs))
	}
	return n.Succs[0], nil
}

func (c *compiler) statement(n *cfg.Node, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	next, err := c.successor(n)
	if err != nil {
		return nil, err
	}

	if call := asthelper.CallTo(n.Stmt, config.DotsMarker); call != nil {
		return c.dots(call, next, visited, quantified)
	}

	pattern := n.Stmt
	if call := asthelper.CallTo(n.Stmt, config.ExpressionMatchMarker); call != nil && len(call.Args) == 1 {
		pattern = &ast.ExprStmt{X: call.Args[0]}
	}

	used, newVars := c.referenced(pattern, quantified)
	atom := &ctlvw.StatementPattern{
		Pattern:  pattern,
		Source:   asthelper.Print(c.fset, pattern),
		Metavars: used,
	}
	ops := c.takeOps(c.g.Line(n))

	inner, err := c.compile(next, visited, quantified)
	if err != nil {
		return nil, err
	}
	f := conjoin(withSlot(atom, ops), wrapNext(inner))
	return quantify(f, newVars), nil
}

// dots compiles a statement-level dots marker. With no constraints the
// obligation is "every path eventually reaches the continuation"; `when !=`
// arguments guard the intervening states, and `when exists` weakens the
// path quantifier.
func (c *compiler) dots(call *ast.CallExpr, next int, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	guard, exists, err := c.dotsConstraints(call)
	if err != nil {
		return nil, err
	}
	inner, err := c.compile(next, visited, quantified)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return &ctlvw.True{}, nil
	}
	if exists {
		return &ctlvw.ExistsUntil{L: guard, R: inner}, nil
	}
	return &ctlvw.AllUntil{L: guard, R: inner}, nil
}

// dotsConstraints folds the marker-call arguments into the until guard.
func (c *compiler) dotsConstraints(call *ast.CallExpr) (guard ctlvw.Formula, exists bool, err error) {
	guard = &ctlvw.True{}
	whenAny := false
	var notEquals []ctlvw.Formula
	for _, arg := range call.Args {
		inner, ok := arg.(*ast.CallExpr)
		if !ok {
			return nil, false, fmt.Errorf("%w: malformed dots constraint %s", diagnostic.ErrUnrecoverable, asthelper.Print(c.fset, arg))
		}
		name, _ := inner.Fun.(*ast.Ident)
		switch {
		case name != nil && name.Name == config.WhenAnyMarker:
			whenAny = true
		case name != nil && name.Name == config.WhenExistsMarker:
			exists = true
		case name != nil && name.Name == config.WhenNotEqualMarker && len(inner.Args) == 1:
			pattern := &ast.ExprStmt{X: inner.Args[0]}
			used, _ := c.referenced(pattern, map[string]bool{})
			notEquals = append(notEquals, &ctlvw.Not{F: &ctlvw.StatementPattern{
				Pattern:  pattern,
				Source:   asthelper.Print(c.fset, pattern),
				Metavars: used,
			}})
		default:
			return nil, false, fmt.Errorf("%w: unknown dots constraint %s", diagnostic.ErrUnrecoverable, asthelper.Print(c.fset, inner))
		}
	}
	if !whenAny {
		for _, ne := range notEquals {
			guard = conjoin(guard, ne)
		}
	}
	return guard, exists, nil
}

func (c *compiler) branch(n *cfg.Node, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	ifStmt, ok := n.Stmt.(*ast.IfStmt)
	if !ok {
		return nil, fmt.Errorf("%w: BRANCH node %d does not anchor an if statement", diagnostic.ErrInternal, n.ID)
	}
	if len(n.Succs) != 2 {
		return nil, fmt.Errorf("%w: BRANCH node %d has %d successors, want 2", diagnostic.ErrInternal, n.ID, len(n.Succs))
	}

	if id, ok := ifStmt.Cond.(*ast.Ident); ok && id.Name == config.ImplicitDotsMarker {
		return c.implicitDots(n, visited, quantified)
	}

	used, newVars := c.referenced(ifStmt.Cond, quantified)
	atom := &ctlvw.BranchPattern{
		Pattern:    ifStmt.Cond,
		BranchKind: "if",
		Source:     asthelper.Print(c.fset, ifStmt.Cond),
		Metavars:   used,
	}
	ops := c.takeOps(c.g.Line(n))

	lhs, err := c.compile(n.Succs[0], clone(visited), clone(quantified))
	if err != nil {
		return nil, err
	}
	rhs, err := c.compile(n.Succs[1], clone(visited), clone(quantified))
	if err != nil {
		return nil, err
	}
	if lhs == nil || rhs == nil {
		return nil, fmt.Errorf("%w: BRANCH node %d has an empty path", diagnostic.ErrInternal, n.ID)
	}

	f := conjoin(withSlot(atom, ops), &ctlvw.AllNext{F: &ctlvw.Or{L: lhs, R: rhs}})
	return quantify(f, newVars), nil
}

// implicitDots unwraps the synthesized wrapper branch: the formula is the
// wrapped body's own obligation, checked at every state by the matcher. An
// empty body yields the unsatisfiable formula.
func (c *compiler) implicitDots(n *cfg.Node, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	if conv, ok := c.g.ConvergeOf(n); ok {
		c.stopConverge = conv.ID
	}
	ifStmt := n.Stmt.(*ast.IfStmt)
	for _, id := range n.Succs {
		succ := c.g.Node(id)
		if succ.Kind == cfg.BlockBegin && succ.Block == ifStmt.Body {
			next, err := c.successor(succ)
			if err != nil {
				return nil, err
			}
			inner, err := c.compile(next, visited, quantified)
			if err != nil {
				return nil, err
			}
			if inner == nil {
				return &ctlvw.Not{F: &ctlvw.True{}}, nil
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("%w: implicit-dots wrapper without a body path", diagnostic.ErrInternal)
}

func (c *compiler) blockBegin(n *cfg.Node, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	if n.Tag == nil {
		return nil, fmt.Errorf("%w: untagged BLOCK_BEGIN node %d survived adaptation", diagnostic.ErrInternal, n.ID)
	}
	next, err := c.successor(n)
	if err != nil {
		return nil, err
	}

	prop := &ctlvw.Proposition{Label: n.Tag.Label}
	ops := append([]operation.Op(nil), c.queued...)
	c.queued = nil

	inner, err := c.compile(next, visited, quantified)
	if err != nil {
		return nil, err
	}

	// The after-slot carries the block-edge insertions anchored at the
	// branch's line.
	afterOps := c.blockInsertions(n)

	f := withSlot(prop, ops)
	f = conjoin(f, wrapNext(inner))
	return withSlot(f, afterOps), nil
}

func (c *compiler) converge(n *cfg.Node, visited map[int]bool, quantified map[string]bool) (ctlvw.Formula, error) {
	if n.ID == c.stopConverge {
		return nil, nil
	}
	next, err := c.successor(n)
	if err != nil {
		return nil, err
	}
	prop := &ctlvw.Proposition{Label: cfg.TagAfter}
	ops := append([]operation.Op(nil), c.queued...)
	c.queued = nil

	inner, err := c.compile(next, visited, quantified)
	if err != nil {
		return nil, err
	}
	return conjoin(withSlot(prop, ops), wrapNext(inner)), nil
}

// takeOps drains the queued operations plus the line's anchored operations.
// Block-edge insertions stay behind for the corresponding BLOCK_BEGIN slot.
func (c *compiler) takeOps(line int) []operation.Op {
	ops := c.queued
	c.queued = nil
	if line == config.MethodBodyAnchor {
		return ops
	}
	for _, op := range c.anchored.Ops(line) {
		if _, ok := op.(operation.InsertIntoBlock); ok {
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

// blockInsertions selects the InsertIntoBlock operations targeting this
// block, anchored at its branch's line.
func (c *compiler) blockInsertions(n *cfg.Node) []operation.Op {
	ifStmt, ok := n.Tag.Anchor.(*ast.IfStmt)
	if !ok {
		return nil
	}
	line := c.fset.Position(ifStmt.Pos()).Line
	want := operation.TrueBranch
	if n.Tag.Label == cfg.TagFalseBranch {
		want = operation.FalseBranch
	}
	var ops []operation.Op
	for _, op := range c.anchored.Ops(line) {
		if ins, ok := op.(operation.InsertIntoBlock); ok && ins.Block == want {
			ops = append(ops, ins)
		}
	}
	return ops
}

// referenced returns the metavariables used by the node and the subset not
// yet quantified on this path; the latter are added to the quantified set.
func (c *compiler) referenced(node ast.Node, quantified map[string]bool) (used, newVars []string) {
	for _, name := range asthelper.Idents(node) {
		if _, ok := c.metavars.Load(name); !ok {
			continue
		}
		used = append(used, name)
		if !quantified[name] {
			quantified[name] = true
			newVars = append(newVars, name)
		}
	}
	return used, newVars
}

// withSlot conjoins a formula with its operations slot. Empty slots are
// still emitted; the optimizer eliminates them.
func withSlot(f ctlvw.Formula, ops []operation.Op) ctlvw.Formula {
	slot := &ctlvw.ExistsVar{
		Name: config.OperationsVar,
		F:    &ctlvw.SetEnv{Name: config.OperationsVar, Value: ops},
	}
	return &ctlvw.And{L: f, R: slot}
}

// quantify wraps the formula in ExistsVar binders, in reverse sort order of
// the newly used metavariables so the first-sorted name binds outermost.
func quantify(f ctlvw.Formula, newVars []string) ctlvw.Formula {
	sorted := append([]string(nil), newVars...)
	sort.Strings(sorted)
	for i := len(sorted) - 1; i >= 0; i-- {
		f = &ctlvw.ExistsVar{Name: sorted[i], F: f}
	}
	return f
}

func clone[K comparable](m map[K]bool) map[K]bool {
	out := make(map[K]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func conjoin(l, r ctlvw.Formula) ctlvw.Formula {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return &ctlvw.And{L: l, R: r}
}

func wrapNext(inner ctlvw.Formula) ctlvw.Formula {
	if inner == nil {
		return nil
	}
	return &ctlvw.AllNext{F: inner}
}
