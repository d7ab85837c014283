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
	"go.uber.org/spatch/config"
	"go.uber.org/spatch/operation"
)

// Optimize rewrites the formula to a fixed point, eliminating operations
// slots that carry no operations:
//
//	And(L, ExistsVar("_v", SetEnv("_v", []))) -> L
//
// Children are rewritten bottom-up, so one pass reaches the fixed point and
// Optimize is idempotent.
func Optimize(f Formula) Formula {
	switch v := f.(type) {
	case *Not:
		return &Not{F: Optimize(v.F)}
	case *And:
		l, r := Optimize(v.L), Optimize(v.R)
		if isEmptyOperationsSlot(r) {
			return l
		}
		if isEmptyOperationsSlot(l) {
			return r
		}
		return &And{L: l, R: r}
	case *Or:
		return &Or{L: Optimize(v.L), R: Optimize(v.R)}
	case *AllNext:
		return &AllNext{F: Optimize(v.F)}
	case *ExistsNext:
		return &ExistsNext{F: Optimize(v.F)}
	case *AllUntil:
		return &AllUntil{L: Optimize(v.L), R: Optimize(v.R)}
	case *ExistsUntil:
		return &ExistsUntil{L: Optimize(v.L), R: Optimize(v.R)}
	case *ExistsVar:
		return &ExistsVar{Name: v.Name, F: Optimize(v.F)}
	default:
		// True, SetEnv, Proposition, StatementPattern, BranchPattern are
		// leaves.
		return f
	}
}

// isEmptyOperationsSlot recognizes ExistsVar("_v", SetEnv("_v", ops)) with
// an empty operation list.
func isEmptyOperationsSlot(f Formula) bool {
	ev, ok := f.(*ExistsVar)
	if !ok || ev.Name != config.OperationsVar {
		return false
	}
	se, ok := ev.F.(*SetEnv)
	if !ok || se.Name != config.OperationsVar {
		return false
	}
	ops, ok := se.Value.([]operation.Op)
	return ok && len(ops) == 0
}
