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

// Package rule bundles the artifacts of one compiled semantic patch: the
// match formula, the metavariable table, the added methods and the source
// text. The bundle is what the model checker evaluates against target
// methods.
package rule

import (
	"go/ast"
	"go/token"

	"go.uber.org/spatch/constraint"
	"go.uber.org/spatch/ctlvw"
	"go.uber.org/spatch/util/orderedmap"
)

// Rule is one compiled semantic patch.
type Rule struct {
	// Name is the rule name from the patch header, or "".
	Name string
	// Source is the original patch text.
	Source string
	// RuleMethod is the deletions-view rule method the formula was compiled
	// from.
	RuleMethod *ast.FuncDecl
	// MatchesOnMethodHeader is true when the patch declared its own method
	// header, restricting matches to methods with that name (a metavariable
	// name matches any method); parameters and results are not compared.
	MatchesOnMethodHeader bool
	// Formula is the compiled CTL-VW match obligation with embedded edit
	// operations.
	Formula ctlvw.Formula
	// Metavars maps each metavariable to its unification constraint, in
	// declaration order.
	Metavars *orderedmap.OrderedMap[string, constraint.Constraint]
	// AddedMethods are whole methods contributed by `+` lines outside the
	// rule method.
	AddedMethods []*ast.FuncDecl
	// Fset resolves positions of RuleMethod and AddedMethods.
	Fset *token.FileSet
}
