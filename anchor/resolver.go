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

// Package anchor resolves each addition of a patch to the anchor it attaches
// to: an existing statement (Prepend/Append), or a block edge
// (InsertIntoBlock) when no statement can carry it. Deletions and the
// Replace collapse are resolved in the same pass, producing the complete
// anchored-operations map.
package anchor

import (
	"fmt"
	"go/ast"
	"regexp"
	"strings"

	"go.uber.org/spatch/config"
	"go.uber.org/spatch/diagnostic"
	"go.uber.org/spatch/operation"
	"go.uber.org/spatch/separate"
	"go.uber.org/spatch/util/asthelper"
)

var funcHeaderPattern = regexp.MustCompile(`^func\s`)

// Resolve walks the additions-view rule method and builds the
// anchored-operations map for the patch.
func Resolve(v *separate.Views) (*operation.AnchoredMap, error) {
	addsFn, err := v.AddsRuleMethod()
	if err != nil {
		return nil, err
	}
	delsFn, err := v.DelsRuleMethod()
	if err != nil {
		return nil, err
	}

	r := &resolver{v: v, m: operation.NewAnchoredMap()}

	body := addsFn.Body
	if addsFn.Name.Name == config.RuleFunc {
		// The synthesized wrapper nests the patch body inside the
		// implicit-dots branch; the walk starts there.
		if inner, ok := implicitDotsBody(addsFn); ok {
			body = inner
		}
	}
	if err := r.walkBlock(body, operation.MethodBody, config.MethodBodyAnchor); err != nil {
		return nil, err
	}

	r.appendDeletes()
	r.collapseReplaces()

	if headerDiffers(v, delsFn, addsFn) {
		r.m.Add(config.MethodBodyAnchor, operation.MethodHeaderReplace{Method: addsFn})
	}
	return r.m, nil
}

type pending struct {
	pos  operation.BlockAnchor
	stmt ast.Stmt
}

type resolver struct {
	v *separate.Views
	m *operation.AnchoredMap
}

// walkBlock resolves the additions of one block, recursing into branch
// blocks. Additions seen after an anchor append to it; additions at block
// top (before any anchor) insert at the block's top edge; additions after a
// dots statement prepend to the next anchor or, failing one, insert at the
// block's bottom edge.
func (r *resolver) walkBlock(block *ast.BlockStmt, btype operation.BlockType, blockAnchor int) error {
	elementAnchor := config.MethodBodyAnchor
	var unanchored, committed []pending
	isAfterDots := false

	for _, s := range block.List {
		line := r.v.Line(s)
		switch {
		case r.isAnchorable(s, line):
			if isDots(s) {
				for _, p := range unanchored {
					if p.pos == operation.Bottom {
						return fmt.Errorf("%w: unanchorable statement at line %d", diagnostic.ErrUnrecoverable, r.v.Line(p.stmt))
					}
				}
				committed = append(committed, unanchored...)
				unanchored = nil
				isAfterDots = true
				elementAnchor = config.MethodBodyAnchor
				continue
			}

			elementAnchor = line
			for _, p := range unanchored {
				if p.pos == operation.Bottom {
					r.m.Add(line, operation.Prepend{Stmt: p.stmt})
				} else {
					committed = append(committed, p)
				}
			}
			unanchored = nil
			isAfterDots = false

			if err := r.walkBranches(s, line); err != nil {
				return err
			}
		default:
			if elementAnchor != config.MethodBodyAnchor {
				r.m.Add(elementAnchor, operation.Append{Stmt: s})
				continue
			}
			pos := operation.Top
			if isAfterDots {
				pos = operation.Bottom
			}
			unanchored = append(unanchored, pending{pos: pos, stmt: s})
		}
	}

	for _, p := range append(committed, unanchored...) {
		r.m.Add(blockAnchor, operation.InsertIntoBlock{Block: btype, Anchor: p.pos, Stmt: p.stmt})
	}
	return nil
}

// walkBranches recurses into the branch blocks of an if statement, using
// the if's own line as the block anchor.
func (r *resolver) walkBranches(s ast.Stmt, line int) error {
	ifStmt, ok := s.(*ast.IfStmt)
	if !ok {
		return nil
	}
	if err := r.walkBlock(ifStmt.Body, operation.TrueBranch, line); err != nil {
		return err
	}
	switch e := ifStmt.Else.(type) {
	case *ast.BlockStmt:
		return r.walkBlock(e, operation.FalseBranch, line)
	case *ast.IfStmt:
		return r.walkBranches(e, r.v.Line(e))
	}
	return nil
}

// isAnchorable reports whether the statement can carry an anchor: a
// deletion placeholder or a statement on a common line.
func (r *resolver) isAnchorable(s ast.Stmt, line int) bool {
	if asthelper.CallTo(s, config.DeletionMarker) != nil {
		return true
	}
	return r.v.CommonLines[line]
}

func isDots(s ast.Stmt) bool {
	return asthelper.CallTo(s, config.DotsMarker) != nil
}

// appendDeletes attaches a Delete at every `-` line of the deletions view,
// excluding dots statements and method headers (the former dissolve, the
// latter are handled by MethodHeaderReplace).
func (r *resolver) appendDeletes() {
	lines := strings.Split(r.v.DelsText, "\n")
	for n := 1; n <= len(lines); n++ {
		if !r.v.DelLines[n] {
			continue
		}
		content := strings.TrimSpace(lines[n-1])
		if content == "" || strings.HasPrefix(content, config.DotsMarker) || funcHeaderPattern.MatchString(content) {
			continue
		}
		r.m.Add(n, operation.Delete{})
	}
}

// collapseReplaces rewrites every anchored pair {Delete, Append(x)} or
// {Delete, Prepend(x)}, in either order, into a single Replace(x).
func (r *resolver) collapseReplaces() {
	for _, line := range r.m.Lines() {
		ops := r.m.Ops(line)
		if len(ops) != 2 {
			continue
		}
		var stmt ast.Stmt
		deletes := 0
		for _, op := range ops {
			switch o := op.(type) {
			case operation.Delete:
				deletes++
			case operation.Append:
				stmt = o.Stmt
			case operation.Prepend:
				stmt = o.Stmt
			}
		}
		if deletes == 1 && stmt != nil {
			r.m.Set(line, []operation.Op{operation.Replace{Stmt: stmt}})
		}
	}
}

// implicitDotsBody unwraps the synthesized `if __SmPLImplicitDots__` wrapper.
func implicitDotsBody(fn *ast.FuncDecl) (*ast.BlockStmt, bool) {
	if fn.Body == nil || len(fn.Body.List) != 1 {
		return nil, false
	}
	ifStmt, ok := fn.Body.List[0].(*ast.IfStmt)
	if !ok {
		return nil, false
	}
	if id, ok := ifStmt.Cond.(*ast.Ident); !ok || id.Name != config.ImplicitDotsMarker {
		return nil, false
	}
	return ifStmt.Body, true
}

// headerDiffers reports whether the rule-method signatures of the two views
// differ, which requires a MethodHeaderReplace operation.
func headerDiffers(v *separate.Views, delsFn, addsFn *ast.FuncDecl) bool {
	if delsFn.Name.Name != addsFn.Name.Name {
		return true
	}
	return asthelper.Print(v.Fset, delsFn.Type) != asthelper.Print(v.Fset, addsFn.Type)
}
