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
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func parseFunc(t *testing.T, src string) (*ast.FuncDecl, *token.FileSet) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "target.go", "package p\n"+src, parser.SkipObjectResolution)
	require.NoError(t, err)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			return fn, fset
		}
	}
	t.Fatal("no function declaration in source")
	return nil, nil
}

func build(t *testing.T, src string) (*Graph, *token.FileSet) {
	t.Helper()
	fn, fset := parseFunc(t, src)
	g, err := NewBuilder(fset).Build(fn)
	require.NoError(t, err)
	return g, fset
}

func kindsByID(g *Graph) []Kind {
	ks := make([]Kind, len(g.Nodes))
	for i, n := range g.Nodes {
		ks[i] = n.Kind
	}
	return ks
}

func TestBuildStraightLine(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\ta()\n\tb()\n}\n")
	require.Equal(t,
		[]Kind{Begin, BlockBegin, Statement, Statement, BlockEnd, Exit},
		kindsByID(g))
	require.Equal(t, []int{1}, g.Node(g.EntryID).Succs)
}

func TestBuildDeterministicIDs(t *testing.T) {
	t.Parallel()

	// Two independent builders assign identical ids to identical inputs:
	// the id counter is per Build call, not per process.
	src := "func f() {\n\tif cond {\n\t\ta()\n\t}\n\tb()\n}\n"
	g1, _ := build(t, src)
	g2, _ := build(t, src)
	require.Equal(t, kindsByID(g1), kindsByID(g2))
	for i := range g1.Nodes {
		require.Equal(t, g1.Nodes[i].Succs, g2.Nodes[i].Succs)
	}
}

func TestBuildBranchShape(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\tif cond {\n\t\ta()\n\t} else {\n\t\tb()\n\t}\n}\n")

	var branch *Node
	for _, n := range g.Nodes {
		if n.Kind == Branch {
			branch = n
		}
	}
	require.NotNil(t, branch)
	require.Len(t, branch.Succs, 2)
	for _, succ := range branch.Succs {
		require.Equal(t, BlockBegin, g.Node(succ).Kind)
	}

	conv, ok := g.ConvergeOf(branch)
	require.True(t, ok)
	require.Equal(t, Converge, conv.Kind)
}

func TestBuildReturnConnectsToExit(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\tif cond {\n\t\treturn\n\t}\n\ta()\n}\n")
	var ret *Node
	for _, n := range g.Nodes {
		if n.Kind == Statement {
			if _, ok := n.Stmt.(*ast.ReturnStmt); ok {
				ret = n
			}
		}
	}
	require.NotNil(t, ret)
	require.Equal(t, []int{g.ExitID}, ret.Succs)
}

func TestAdaptElidesBlocks(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\ta()\n\tb()\n}\n")
	g, err := Adapt(g)
	require.NoError(t, err)

	for _, n := range g.Nodes {
		if n.Dead {
			require.Contains(t, []Kind{BlockBegin, BlockEnd}, n.Kind)
			continue
		}
		require.NotEqual(t, BlockEnd, n.Kind)
	}

	// BEGIN now connects straight to the first statement, which connects to
	// the second, which connects to EXIT.
	begin := g.Node(g.EntryID)
	require.Len(t, begin.Succs, 1)
	first := g.Node(begin.Succs[0])
	require.Equal(t, Statement, first.Kind)
	second := g.Node(first.Succs[0])
	require.Equal(t, Statement, second.Kind)
	require.Equal(t, []int{g.ExitID}, second.Succs)
}

func TestAdaptTagsBranch(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\tif cond {\n\t\ta()\n\t} else {\n\t\tb()\n\t}\n\tc()\n}\n")
	g, err := Adapt(g)
	require.NoError(t, err)

	var branch *Node
	for _, n := range g.Nodes {
		if n.Kind == Branch {
			branch = n
		}
	}
	require.NotNil(t, branch)
	require.NotNil(t, branch.Tag)
	require.Equal(t, TagBranch, branch.Tag.Label)

	ifStmt := branch.Tag.Anchor.(*ast.IfStmt)
	labels := make(map[string]bool)
	for _, succ := range branch.Succs {
		n := g.Node(succ)
		require.NotNil(t, n.Tag)
		labels[n.Tag.Label] = true
		require.Same(t, ifStmt, n.Tag.Anchor)
		if n.Tag.Label == TagTrueBranch {
			require.Same(t, ifStmt.Body, n.Block)
		}
	}
	require.Equal(t, map[string]bool{TagTrueBranch: true, TagFalseBranch: true}, labels)

	conv, ok := g.ConvergeOf(branch)
	require.True(t, ok)
	require.NotNil(t, conv.Tag)
	require.Equal(t, TagAfter, conv.Tag.Label)
}

func TestAdaptMissingElseGetsTwoSuccessors(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\tif cond {\n\t\ta()\n\t}\n\tb()\n}\n")
	g, err := Adapt(g)
	require.NoError(t, err)

	for _, n := range g.Nodes {
		if n.Kind == Branch {
			require.Len(t, n.Succs, 2)
		}
	}
}

func TestAdaptRejectsAdapted(t *testing.T) {
	t.Parallel()

	g, _ := build(t, "func f() {\n\ta()\n}\n")
	g, err := Adapt(g)
	require.NoError(t, err)
	_, err = Adapt(g)
	require.Error(t, err)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
