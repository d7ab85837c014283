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

// Package asthelper implements utility functions for AST patterns: printing,
// position-insensitive structural equality, and identifier collection.
package asthelper

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
)

// Print renders a node to source text using the `printer` package. A nil
// fset is accepted for nodes whose positions are irrelevant.
func Print(fset *token.FileSet, node ast.Node) string {
	if fset == nil {
		fset = token.NewFileSet()
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, node); err != nil {
		panic(fmt.Sprintf("failed to print AST node: %v", err))
	}
	return buf.String()
}

// EqualNode reports position-insensitive structural equality of two AST
// nodes. Two nodes are equal iff they print to the same source text; this is
// the semantic equality used when merging metavariable bindings.
func EqualNode(fset *token.FileSet, a, b ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return Print(fset, a) == Print(fset, b)
}

// Idents collects the distinct identifier names referenced anywhere in the
// node, in first-occurrence order.
func Idents(node ast.Node) []string {
	var names []string
	seen := make(map[string]bool)
	ast.Inspect(node, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			names = append(names, id.Name)
		}
		return true
	})
	return names
}

// CallTo returns the call expression of an expression statement calling the
// named function, or nil if the statement is anything else.
func CallTo(stmt ast.Stmt, name string) *ast.CallExpr {
	expr, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	call, ok := expr.X.(*ast.CallExpr)
	if !ok {
		return nil
	}
	if id, ok := call.Fun.(*ast.Ident); ok && id.Name == name {
		return call
	}
	return nil
}

// CalledName returns the name of the called function of an expression
// statement, or "" if the statement is not a simple call.
func CalledName(stmt ast.Stmt) string {
	expr, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return ""
	}
	call, ok := expr.X.(*ast.CallExpr)
	if !ok {
		return ""
	}
	if id, ok := call.Fun.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}
