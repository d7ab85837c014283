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

	"go.uber.org/spatch/diagnostic"
)

// Adapt prepares a freshly built graph for the formula compiler and the
// model checker:
//
//  1. the outermost BLOCK_BEGIN (sole successor of BEGIN) is removed,
//  2. every BLOCK_END is removed, with incoming x outgoing edges preserving
//     reachability,
//  3. every BRANCH is tagged together with its convergence node and the
//     BLOCK_BEGIN of each branch path.
//
// Adapt rejects graphs that do not carry BLOCK_BEGIN nodes (i.e. graphs that
// were already simplified). It modifies the graph in place and returns it.
func Adapt(g *Graph) (*Graph, error) {
	if g.adapted {
		return nil, fmt.Errorf("%w: graph already adapted", diagnostic.ErrInternal)
	}

	begin := g.Node(g.EntryID)
	if len(begin.Succs) != 1 || g.Node(begin.Succs[0]).Kind != BlockBegin {
		return nil, fmt.Errorf("%w: expected an un-simplified CFG with a method body BLOCK_BEGIN", diagnostic.ErrUnrecoverable)
	}

	// 1. Elide the method-body BLOCK_BEGIN.
	elide(g, g.Node(begin.Succs[0]))

	// 2. Elide every BLOCK_END.
	for _, n := range g.Nodes {
		if n.Kind == BlockEnd && !n.Dead {
			elide(g, n)
		}
	}

	// 3. Tag branches, their join nodes, and their block paths.
	for _, n := range g.Nodes {
		if n.Kind != Branch || n.Dead {
			continue
		}
		if err := tagBranch(g, n); err != nil {
			return nil, err
		}
	}

	g.adapted = true
	return g, nil
}

// elide removes a node, bridging every incoming edge to every outgoing edge.
func elide(g *Graph, n *Node) {
	preds := append([]int(nil), n.Preds...)
	succs := append([]int(nil), n.Succs...)
	for _, p := range preds {
		g.disconnect(p, n.ID)
	}
	for _, s := range succs {
		g.disconnect(n.ID, s)
	}
	for _, p := range preds {
		for _, s := range succs {
			g.connect(p, s)
		}
	}
	n.Dead = true
}

// tagBranch attaches the branch tag set for one BRANCH node: the node
// itself, its convergence node, and the BLOCK_BEGIN of each path classified
// as trueBranch or falseBranch by comparing the path's block against the if
// statement's body.
func tagBranch(g *Graph, n *Node) error {
	ifStmt, ok := n.Stmt.(*ast.IfStmt)
	if !ok {
		return fmt.Errorf("%w: BRANCH node %d does not anchor an if statement", diagnostic.ErrInternal, n.ID)
	}
	if len(n.Succs) != 2 {
		return fmt.Errorf("%w: BRANCH node %d has %d successors, want 2", diagnostic.ErrInternal, n.ID, len(n.Succs))
	}

	n.Tag = &Tag{Label: TagBranch, Anchor: ifStmt}

	conv, ok := g.ConvergeOf(n)
	if !ok || conv.Kind != Converge {
		return fmt.Errorf("%w: BRANCH node %d has no convergence node", diagnostic.ErrInternal, n.ID)
	}
	conv.Tag = &Tag{Label: TagAfter, Anchor: ifStmt}

	seenTrue := false
	for _, id := range n.Succs {
		succ := g.Node(id)
		if succ.Kind != BlockBegin {
			return fmt.Errorf("%w: BRANCH successor %d is %s, want BLOCK_BEGIN", diagnostic.ErrInternal, id, succ.Kind)
		}
		label := TagFalseBranch
		if succ.Block == ifStmt.Body && !seenTrue {
			label = TagTrueBranch
			seenTrue = true
		}
		succ.Tag = &Tag{Label: label, Anchor: ifStmt}
	}
	return nil
}
