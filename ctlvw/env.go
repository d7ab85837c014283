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

package ctlvw

import (
	"fmt"
	"strings"

	"go.uber.org/spatch/util/orderedmap"
)

// Equal decides semantic equality of two binding values. The checker
// supplies one appropriate to the element kind (structural equality for AST
// nodes).
type Equal func(a, b any) bool

// Binding is the value bound to one metavariable: a positive value, a set of
// negative values the variable must not take, or both.
type Binding struct {
	// Value is the positive binding; nil when the variable only carries
	// negative constraints.
	Value any
	// Negatives are values the variable must never equal.
	Negatives []any
}

// Env is an ordered metavariable environment. Envs are persistent: mutating
// operations return a fresh Env and leave the receiver untouched.
type Env struct {
	pairs *orderedmap.OrderedMap[string, Binding]
	eq    Equal
}

// NewEnv returns an empty environment using the given equality.
func NewEnv(eq Equal) *Env {
	return &Env{pairs: orderedmap.New[string, Binding](), eq: eq}
}

// Lookup returns the binding for the metavariable, if any.
func (e *Env) Lookup(name string) (Binding, bool) {
	return e.pairs.Load(name)
}

// Names returns the bound metavariable names in insertion order.
func (e *Env) Names() []string {
	names := make([]string, 0, e.pairs.Len())
	for _, p := range e.pairs.Pairs {
		names = append(names, p.Key)
	}
	return names
}

// Bind extends the environment with a positive binding. It fails when the
// variable is already bound to a different value or when the value hits a
// negative binding.
func (e *Env) Bind(name string, value any) (*Env, bool) {
	if existing, ok := e.pairs.Load(name); ok {
		for _, neg := range existing.Negatives {
			if e.eq(neg, value) {
				return nil, false
			}
		}
		if existing.Value != nil && !e.eq(existing.Value, value) {
			return nil, false
		}
		out := e.copy()
		out.pairs.Store(name, Binding{Value: value, Negatives: existing.Negatives})
		return out, true
	}
	out := e.copy()
	out.pairs.Store(name, Binding{Value: value})
	return out, true
}

// BindNegative extends the environment with a negative binding. It fails
// when the variable is already positively bound to the excluded value.
func (e *Env) BindNegative(name string, value any) (*Env, bool) {
	existing, _ := e.pairs.Load(name)
	if existing.Value != nil && e.eq(existing.Value, value) {
		return nil, false
	}
	out := e.copy()
	out.pairs.Store(name, Binding{Value: existing.Value, Negatives: append(append([]any(nil), existing.Negatives...), value)})
	return out, true
}

// Drop removes the binding for the metavariable.
func (e *Env) Drop(name string) *Env {
	out := NewEnv(e.eq)
	for _, p := range e.pairs.Pairs {
		if p.Key != name {
			out.pairs.Store(p.Key, p.Value)
		}
	}
	return out
}

// Compose merges two environments by compatible union: they must agree on
// every metavariable bound by both, and positive bindings must clear the
// other side's negative bindings.
func (e *Env) Compose(other *Env) (*Env, bool) {
	out := e.copy()
	for _, p := range other.pairs.Pairs {
		b := p.Value
		if b.Value != nil {
			var ok bool
			if out, ok = out.Bind(p.Key, b.Value); !ok {
				return nil, false
			}
		}
		for _, neg := range b.Negatives {
			var ok bool
			if out, ok = out.BindNegative(p.Key, neg); !ok {
				return nil, false
			}
		}
	}
	return out, true
}

// Key renders a deterministic identity for fixpoint bookkeeping.
func (e *Env) Key(render func(any) string) string {
	var b strings.Builder
	for _, p := range e.pairs.Pairs {
		b.WriteString(p.Key)
		b.WriteByte('=')
		if p.Value.Value != nil {
			b.WriteString(render(p.Value.Value))
		}
		for _, neg := range p.Value.Negatives {
			b.WriteString("!" + render(neg))
		}
		b.WriteByte(';')
	}
	return b.String()
}

// String implements fmt.Stringer for debugging output.
func (e *Env) String() string {
	return e.Key(func(v any) string { return fmt.Sprintf("%v", v) })
}

func (e *Env) copy() *Env {
	return &Env{pairs: e.pairs.Copy(), eq: e.eq}
}
