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

// Package constraint implements the per-kind unification predicates for
// metavariables. A constraint decides whether a target element can bind the
// metavariable and whether a candidate agrees with an existing binding.
package constraint

import (
	"go/ast"
	"regexp"

	"go.uber.org/spatch/util/asthelper"
)

// Constraint is the unification predicate of one metavariable.
type Constraint interface {
	// Kind names the constraint for rendering and serialization.
	Kind() string
	// Matches returns the binding produced by the element, or false when the
	// element cannot bind this metavariable.
	Matches(node ast.Node) (any, bool)
	// Merge reports whether the element agrees with an existing binding.
	Merge(existing any, node ast.Node) bool
}

// equalBinding is the shared semantic equality: position-insensitive
// structural equality of the printed elements.
func equalBinding(existing any, node ast.Node) bool {
	prev, ok := existing.(ast.Node)
	if !ok {
		return false
	}
	return asthelper.EqualNode(nil, prev, node)
}

// Identifier binds any name reference.
type Identifier struct{}

// Kind implements Constraint.
func (Identifier) Kind() string { return "identifier" }

// Matches implements Constraint.
func (Identifier) Matches(node ast.Node) (any, bool) {
	if id, ok := node.(*ast.Ident); ok {
		return id, true
	}
	return nil, false
}

// Merge implements Constraint.
func (Identifier) Merge(existing any, node ast.Node) bool { return equalBinding(existing, node) }

// Type binds a type reference.
type Type struct{}

// Kind implements Constraint.
func (Type) Kind() string { return "type" }

// Matches implements Constraint.
func (Type) Matches(node ast.Node) (any, bool) {
	switch node.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.StarExpr, *ast.ArrayType,
		*ast.MapType, *ast.ChanType, *ast.FuncType, *ast.InterfaceType, *ast.StructType:
		return node, true
	}
	return nil, false
}

// Merge implements Constraint.
func (Type) Merge(existing any, node ast.Node) bool { return equalBinding(existing, node) }

// Constant binds literals only.
type Constant struct{}

// Kind implements Constraint.
func (Constant) Kind() string { return "constant" }

// Matches implements Constraint.
func (Constant) Matches(node ast.Node) (any, bool) {
	if lit, ok := node.(*ast.BasicLit); ok {
		return lit, true
	}
	return nil, false
}

// Merge implements Constraint.
func (Constant) Merge(existing any, node ast.Node) bool { return equalBinding(existing, node) }

// Expression binds any expression.
type Expression struct{}

// Kind implements Constraint.
func (Expression) Kind() string { return "expression" }

// Matches implements Constraint.
func (Expression) Matches(node ast.Node) (any, bool) {
	if expr, ok := node.(ast.Expr); ok {
		return expr, true
	}
	return nil, false
}

// Merge implements Constraint.
func (Expression) Merge(existing any, node ast.Node) bool { return equalBinding(existing, node) }

// TypedIdentifier binds any identifier. The type name is carried only in
// Kind; Matches does not check the identifier's declared or referenced type.
type TypedIdentifier struct{ TypeName string }

// Kind implements Constraint.
func (t TypedIdentifier) Kind() string { return "identifier:" + t.TypeName }

// Matches implements Constraint.
func (t TypedIdentifier) Matches(node ast.Node) (any, bool) {
	if id, ok := node.(*ast.Ident); ok {
		return id, true
	}
	return nil, false
}

// Merge implements Constraint.
func (t TypedIdentifier) Merge(existing any, node ast.Node) bool {
	return equalBinding(existing, node)
}

// Regex wraps another constraint, additionally requiring the stringified
// binding to match the pattern.
type Regex struct {
	Pattern *regexp.Regexp
	Inner   Constraint
}

// NewRegex compiles the pattern and wraps the inner constraint.
func NewRegex(pattern string, inner Constraint) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, err
	}
	return Regex{Pattern: re, Inner: inner}, nil
}

// Kind implements Constraint.
func (r Regex) Kind() string { return "regex(" + r.Pattern.String() + ", " + r.Inner.Kind() + ")" }

// Matches implements Constraint.
func (r Regex) Matches(node ast.Node) (any, bool) {
	binding, ok := r.Inner.Matches(node)
	if !ok {
		return nil, false
	}
	bound, ok := binding.(ast.Node)
	if !ok || !r.Pattern.MatchString(asthelper.Print(nil, bound)) {
		return nil, false
	}
	return binding, true
}

// Merge implements Constraint.
func (r Regex) Merge(existing any, node ast.Node) bool { return r.Inner.Merge(existing, node) }
