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

package checker

import (
	"fmt"
	"go/ast"
	"reflect"

	"go.uber.org/spatch/cfg"
	"go.uber.org/spatch/ctlvw"
	"go.uber.org/spatch/util/asthelper"
)

// result is one satisfying assignment: a state, the environment required
// there, and the witnesses collected below it.
type result struct {
	state int
	env   *ctlvw.Env
	wits  []*ctlvw.Witness
}

// eval returns every satisfying (state, environment) pair of the formula
// over the adapted target graph. Until operators run to their fixpoint;
// next operators at states without successors are unsatisfiable, which
// pins "eventually" to finite paths.
func (e *evaluator) eval(f ctlvw.Formula) []result {
	switch v := f.(type) {
	case *ctlvw.True:
		return e.allStates()
	case *ctlvw.Not:
		return e.complement(e.eval(v.F))
	case *ctlvw.And:
		return e.conjoin(e.eval(v.L), e.eval(v.R))
	case *ctlvw.Or:
		return append(e.eval(v.L), e.eval(v.R)...)
	case *ctlvw.AllNext:
		return e.next(e.eval(v.F), true)
	case *ctlvw.ExistsNext:
		return e.next(e.eval(v.F), false)
	case *ctlvw.AllUntil:
		return e.until(v.L, v.R, true)
	case *ctlvw.ExistsUntil:
		return e.until(v.L, v.R, false)
	case *ctlvw.ExistsVar:
		return e.existsVar(v)
	case *ctlvw.SetEnv:
		return e.setEnv(v)
	case *ctlvw.Proposition:
		return e.proposition(v.Label)
	case *ctlvw.StatementPattern:
		return e.statementAtoms(v)
	case *ctlvw.BranchPattern:
		return e.branchAtoms(v)
	default:
		panic(fmt.Sprintf("unexpected formula variant %T", f))
	}
}

func (e *evaluator) states() []*cfg.Node {
	var live []*cfg.Node
	for _, n := range e.g.Nodes {
		if !n.Dead {
			live = append(live, n)
		}
	}
	return live
}

func (e *evaluator) allStates() []result {
	var rs []result
	for _, n := range e.states() {
		rs = append(rs, result{state: n.ID, env: e.emptyEnv()})
	}
	return rs
}

func (e *evaluator) complement(rs []result) []result {
	sat := make(map[int]bool)
	for _, r := range rs {
		sat[r.state] = true
	}
	var out []result
	for _, n := range e.states() {
		if !sat[n.ID] {
			out = append(out, result{state: n.ID, env: e.emptyEnv()})
		}
	}
	return out
}

func (e *evaluator) conjoin(ls, rs []result) []result {
	var out []result
	for _, l := range ls {
		for _, r := range rs {
			if l.state != r.state {
				continue
			}
			env, ok := l.env.Compose(r.env)
			if !ok {
				continue
			}
			out = append(out, result{state: l.state, env: env, wits: append(append([]*ctlvw.Witness(nil), l.wits...), r.wits...)})
		}
	}
	return out
}

// next lifts results one transition backwards: a state satisfies AX/EX when
// all/some successors satisfy the operand under one compatible environment.
func (e *evaluator) next(rs []result, all bool) []result {
	byState := make(map[int][]result)
	for _, r := range rs {
		byState[r.state] = append(byState[r.state], r)
	}

	var out []result
	for _, n := range e.states() {
		if len(n.Succs) == 0 {
			continue
		}
		if all {
			out = append(out, e.combineAll(n, byState)...)
		} else {
			for _, succ := range n.Succs {
				for _, r := range byState[succ] {
					out = append(out, result{state: n.ID, env: r.env, wits: r.wits})
				}
			}
		}
	}
	return out
}

// combineAll builds the compatible combinations choosing one result per
// successor of n.
func (e *evaluator) combineAll(n *cfg.Node, byState map[int][]result) []result {
	combos := []result{{state: n.ID, env: e.emptyEnv()}}
	for _, succ := range n.Succs {
		options := byState[succ]
		if len(options) == 0 {
			return nil
		}
		var extended []result
		for _, c := range combos {
			for _, opt := range options {
				env, ok := c.env.Compose(opt.env)
				if !ok {
					continue
				}
				extended = append(extended, result{state: n.ID, env: env, wits: append(append([]*ctlvw.Witness(nil), c.wits...), opt.wits...)})
			}
		}
		if len(extended) == 0 {
			return nil
		}
		combos = extended
	}
	return combos
}

// until computes the least fixpoint of AU/EU.
func (e *evaluator) until(l, r ctlvw.Formula, all bool) []result {
	current := e.eval(r)
	left := e.eval(l)
	seen := make(map[string]bool)
	for _, c := range current {
		seen[e.key(c)] = true
	}

	for {
		step := e.conjoin(left, e.next(current, all))
		grew := false
		for _, s := range step {
			k := e.key(s)
			if !seen[k] {
				seen[k] = true
				current = append(current, s)
				grew = true
			}
		}
		if !grew {
			return current
		}
	}
}

func (e *evaluator) existsVar(v *ctlvw.ExistsVar) []result {
	var out []result
	for _, r := range e.eval(v.F) {
		b, ok := r.env.Lookup(v.Name)
		if !ok || b.Value == nil {
			// The quantifier is vacuous on this result; drop any residual
			// negative bindings of the variable.
			out = append(out, result{state: r.state, env: r.env.Drop(v.Name), wits: r.wits})
			continue
		}
		wit := &ctlvw.Witness{State: r.state, Metavar: v.Name, Binding: b.Value, Nested: r.wits}
		out = append(out, result{state: r.state, env: r.env.Drop(v.Name), wits: []*ctlvw.Witness{wit}})
	}
	return out
}

func (e *evaluator) setEnv(v *ctlvw.SetEnv) []result {
	var out []result
	for _, n := range e.states() {
		env, ok := e.emptyEnv().Bind(v.Name, v.Value)
		if !ok {
			continue
		}
		out = append(out, result{state: n.ID, env: env})
	}
	return out
}

func (e *evaluator) proposition(label string) []result {
	var out []result
	for _, n := range e.states() {
		if n.Tag != nil && n.Tag.Label == label {
			out = append(out, result{state: n.ID, env: e.emptyEnv()})
		}
	}
	return out
}

func (e *evaluator) key(r result) string {
	return fmt.Sprintf("%d|%s", r.state, r.env.Key(e.render))
}

func (e *evaluator) render(v any) string {
	if n, ok := v.(ast.Node); ok {
		return asthelper.Print(e.fset, n)
	}
	return fmt.Sprintf("%v", v)
}

func (e *evaluator) emptyEnv() *ctlvw.Env {
	return ctlvw.NewEnv(e.equal)
}

// equal is the semantic equality for bindings: structural for AST nodes,
// deep equality otherwise.
func (e *evaluator) equal(a, b any) bool {
	an, aok := a.(ast.Node)
	bn, bok := b.(ast.Node)
	if aok && bok {
		return asthelper.EqualNode(e.fset, an, bn)
	}
	return reflect.DeepEqual(a, b)
}
