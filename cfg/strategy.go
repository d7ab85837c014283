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

import "go/ast"

// PanicStrategy adds abnormal-control-flow edges to a freshly built graph.
// The matcher treats these edges like any other successor edge, so a
// strategy can make dots traverse (or callers exclude) panic paths.
type PanicStrategy interface {
	AddEdges(g *Graph, fn *ast.FuncDecl) error
}

// NoPanicEdges is the default strategy: panics are not modeled.
type NoPanicEdges struct{}

// AddEdges implements PanicStrategy.
func (NoPanicEdges) AddEdges(*Graph, *ast.FuncDecl) error { return nil }
