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

// Package ctlvw models CTL-VW: computation-tree logic extended with
// variable quantification and witness collection. Formulas are a closed sum
// type so the optimizer and the model checker match exhaustively.
package ctlvw

import (
	"fmt"
	"go/ast"
	"strings"
)

// Formula is the closed interface over all formula variants.
type Formula interface {
	formula()
	fmt.Stringer
}

// True is satisfied by every state.
type True struct{}

// Not negates its operand.
type Not struct{ F Formula }

// And is satisfied where both operands are, under a compatible environment
// union.
type And struct{ L, R Formula }

// Or is satisfied where either operand is.
type Or struct{ L, R Formula }

// AllNext requires F on every successor.
type AllNext struct{ F Formula }

// ExistsNext requires F on some successor.
type ExistsNext struct{ F Formula }

// AllUntil requires L to hold along every path until R holds.
type AllUntil struct{ L, R Formula }

// ExistsUntil requires L to hold along some path until R holds.
type ExistsUntil struct{ L, R Formula }

// ExistsVar quantifies the metavariable Name over F; satisfying bindings
// surface as witnesses.
type ExistsVar struct {
	Name string
	F    Formula
}

// SetEnv unconditionally binds Name to the literal Value in the current
// environment; the compiler uses it to inject operation lists as witness
// payloads.
type SetEnv struct {
	Name  string
	Value any
}

// Proposition is satisfied by states carrying the given label.
type Proposition struct{ Label string }

// StatementPattern is satisfied by statement states matching the pattern
// under consistent metavariable bindings.
type StatementPattern struct {
	Pattern ast.Stmt
	// Source is the printed pattern, used for rendering and equality.
	Source string
	// Metavars lists the metavariable names referenced by the pattern.
	Metavars []string
}

// BranchPattern is satisfied by branch states whose condition matches the
// pattern.
type BranchPattern struct {
	Pattern ast.Expr
	// BranchKind distinguishes branch statement forms; "if" is the only kind
	// currently produced.
	BranchKind string
	Source     string
	Metavars   []string
}

func (*True) formula()             {}
func (*Not) formula()              {}
func (*And) formula()              {}
func (*Or) formula()               {}
func (*AllNext) formula()          {}
func (*ExistsNext) formula()       {}
func (*AllUntil) formula()         {}
func (*ExistsUntil) formula()      {}
func (*ExistsVar) formula()        {}
func (*SetEnv) formula()           {}
func (*Proposition) formula()      {}
func (*StatementPattern) formula() {}
func (*BranchPattern) formula()    {}

// String renders the formula in a compact prefix syntax used by tests and
// debugging output.
func (*True) String() string          { return "True" }
func (f *Not) String() string         { return fmt.Sprintf("!%s", f.F) }
func (f *And) String() string         { return fmt.Sprintf("(%s & %s)", f.L, f.R) }
func (f *Or) String() string          { return fmt.Sprintf("(%s | %s)", f.L, f.R) }
func (f *AllNext) String() string     { return fmt.Sprintf("AX%s", f.F) }
func (f *ExistsNext) String() string  { return fmt.Sprintf("EX%s", f.F) }
func (f *AllUntil) String() string    { return fmt.Sprintf("AU(%s, %s)", f.L, f.R) }
func (f *ExistsUntil) String() string { return fmt.Sprintf("EU(%s, %s)", f.L, f.R) }
func (f *ExistsVar) String() string   { return fmt.Sprintf("E %s . %s", f.Name, f.F) }
func (f *SetEnv) String() string      { return fmt.Sprintf("set(%s, %v)", f.Name, f.Value) }
func (f *Proposition) String() string { return f.Label }
func (f *StatementPattern) String() string {
	return fmt.Sprintf("stmt(%s)", strings.TrimSpace(f.Source))
}
func (f *BranchPattern) String() string {
	return fmt.Sprintf("branch-%s(%s)", f.BranchKind, strings.TrimSpace(f.Source))
}
