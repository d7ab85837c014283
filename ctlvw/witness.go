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
)

// Witness is the proof object recording the binding that satisfied one
// ExistsVar quantifier: the state where the quantifier was discharged, the
// metavariable and its binding, and the nested witnesses of inner
// quantifiers.
type Witness struct {
	State   int
	Metavar string
	Binding any
	Nested  []*Witness
}

// String implements fmt.Stringer for debugging output.
func (w *Witness) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<%d, %s, %v", w.State, w.Metavar, w.Binding))
	if len(w.Nested) > 0 {
		parts := make([]string, len(w.Nested))
		for i, n := range w.Nested {
			parts[i] = n.String()
		}
		b.WriteString(", {" + strings.Join(parts, ", ") + "}")
	}
	b.WriteString(">")
	return b.String()
}

// CollectBindings walks the witness tree and calls visit for every
// (metavar, binding, state) it records, outermost first.
func CollectBindings(witnesses []*Witness, visit func(state int, metavar string, binding any)) {
	for _, w := range witnesses {
		visit(w.State, w.Metavar, w.Binding)
		CollectBindings(w.Nested, visit)
	}
}
