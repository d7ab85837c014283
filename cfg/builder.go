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

package cfg

import (
	"fmt"
	"go/ast"
	"go/token"

	"go.uber.org/spatch/diagnostic"
)

// Builder constructs un-simplified graphs. The node-id counter is scoped to
// one Build invocation rather than the process, so ids are deterministic:
// constructing a fresh Builder (or graph) is all a test needs to reset them.
type Builder struct {
	fset     *token.FileSet
	strategy PanicStrategy
}

// Option customizes a Builder.
type Option func(*Builder)

// WithPanicStrategy installs the panic-edge strategy applied after the
// structural graph is built.
func WithPanicStrategy(s PanicStrategy) Option {
	return func(b *Builder) { b.strategy = s }
}

// NewBuilder returns a Builder; each of its Build calls numbers nodes from 0.
func NewBuilder(fset *token.FileSet, opts ...Option) *Builder {
	b := &Builder{fset: fset, strategy: NoPanicEdges{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs the un-simplified graph of the function body.
func (b *Builder) Build(fn *ast.FuncDecl) (*Graph, error) {
	if fn.Body == nil {
		return nil, fmt.Errorf("%w: function %s has no body", diagnostic.ErrUnrecoverable, fn.Name.Name)
	}

	w := &walker{g: &Graph{Fset: b.fset, converge: make(map[int]int)}}
	begin := w.add(Begin)
	w.g.EntryID = begin

	entry, outs := w.block(fn.Body)
	w.g.connect(begin, entry)

	exit := w.add(Exit)
	w.g.ExitID = exit
	for _, out := range outs {
		w.g.connect(out, exit)
	}
	for _, ret := range w.returns {
		w.g.connect(ret, exit)
	}

	if err := b.strategy.AddEdges(w.g, fn); err != nil {
		return nil, err
	}
	return w.g, nil
}

type walker struct {
	g       *Graph
	next    int
	returns []int
}

func (w *walker) add(kind Kind) int {
	n := &Node{ID: w.next, Kind: kind}
	w.next++
	w.g.Nodes = append(w.g.Nodes, n)
	return n.ID
}

// block lays out a block between a BLOCK_BEGIN and a BLOCK_END node and
// returns the entry id plus the dangling exits to connect onward.
func (w *walker) block(blk *ast.BlockStmt) (entry int, outs []int) {
	bb := w.add(BlockBegin)
	w.g.Nodes[bb].Block = blk

	cur := []int{bb}
	for _, s := range blk.List {
		sEntry, sOuts := w.stmt(s)
		for _, c := range cur {
			w.g.connect(c, sEntry)
		}
		cur = sOuts
	}

	be := w.add(BlockEnd)
	w.g.Nodes[be].Block = blk
	for _, c := range cur {
		w.g.connect(c, be)
	}
	return bb, []int{be}
}

// stmt lays out one statement and returns its entry plus dangling exits.
// Statements that terminate flow (return) report no exits.
func (w *walker) stmt(s ast.Stmt) (entry int, outs []int) {
	switch stmt := s.(type) {
	case *ast.IfStmt:
		return w.branch(stmt)
	case *ast.BlockStmt:
		return w.block(stmt)
	case *ast.ReturnStmt:
		n := w.add(Statement)
		w.g.Nodes[n].Stmt = s
		w.returns = append(w.returns, n)
		return n, nil
	default:
		// Loops and switches are kept opaque: the whole statement is one
		// node, matched (or skipped by dots) as a unit.
		n := w.add(Statement)
		w.g.Nodes[n].Stmt = s
		return n, []int{n}
	}
}

// branch lays out an if statement: the Branch node, the two block paths and
// the Converge node joining them. A missing else path gets a synthetic empty
// block so that the branch always has exactly two BLOCK_BEGIN successors.
func (w *walker) branch(stmt *ast.IfStmt) (entry int, outs []int) {
	br := w.add(Branch)
	w.g.Nodes[br].Stmt = stmt

	tEntry, tOuts := w.block(stmt.Body)
	w.g.connect(br, tEntry)

	// Synthetic else blocks exist only to give the branch its second
	// BLOCK_BEGIN path; they are classified by pointer identity against the
	// if's body and must never be compared structurally (an empty synthetic
	// block prints identically to any other).
	var elseBlock *ast.BlockStmt
	switch e := stmt.Else.(type) {
	case *ast.BlockStmt:
		elseBlock = e
	case *ast.IfStmt:
		elseBlock = &ast.BlockStmt{Lbrace: e.Pos(), List: []ast.Stmt{e}, Rbrace: e.End()}
	default:
		elseBlock = &ast.BlockStmt{Lbrace: stmt.End(), Rbrace: stmt.End()}
	}
	fEntry, fOuts := w.block(elseBlock)
	w.g.connect(br, fEntry)

	conv := w.add(Converge)
	w.g.converge[br] = conv
	for _, out := range append(tOuts, fOuts...) {
		w.g.connect(out, conv)
	}
	return br, []int{conv}
}
