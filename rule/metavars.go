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

package rule

import (
	"fmt"
	"go/ast"
	"strconv"

	"go.uber.org/spatch/config"
	"go.uber.org/spatch/constraint"
	"go.uber.org/spatch/diagnostic"
	"go.uber.org/spatch/util/asthelper"
	"go.uber.org/spatch/util/orderedmap"
)

// ParseMetavars builds the metavariable table from the declaration method of
// the rewritten rule. A nil method yields an empty table.
func ParseMetavars(fn *ast.FuncDecl) (*orderedmap.OrderedMap[string, constraint.Constraint], error) {
	table := orderedmap.New[string, constraint.Constraint]()
	if fn == nil || fn.Body == nil {
		return table, nil
	}

	// lastName remembers the most recent declaration so a constraint marker
	// can attach to it.
	lastName := ""
	for _, stmt := range fn.Body.List {
		if decl, ok := stmt.(*ast.DeclStmt); ok {
			name, c, err := typedDecl(decl)
			if err != nil {
				return nil, err
			}
			table.Store(name, c)
			lastName = name
			continue
		}

		marker := asthelper.CalledName(stmt)
		call := asthelper.CallTo(stmt, marker)
		if call == nil {
			return nil, fmt.Errorf("%w: unexpected statement in metavariable declarations", diagnostic.ErrUnrecoverable)
		}
		switch marker {
		case config.IdentifierMarker, config.TypenameMarker, config.ConstantMarker, config.ExpressionMarker:
			name, err := argName(call)
			if err != nil {
				return nil, err
			}
			table.Store(name, genericConstraint(marker))
			lastName = name
		case config.ConstraintMarker:
			if err := attachConstraint(table, lastName, call); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown metavariable kind %q", diagnostic.ErrUnrecoverable, marker)
		}
	}
	return table, nil
}

func genericConstraint(marker string) constraint.Constraint {
	switch marker {
	case config.IdentifierMarker:
		return constraint.Identifier{}
	case config.TypenameMarker:
		return constraint.Type{}
	case config.ConstantMarker:
		return constraint.Constant{}
	default:
		return constraint.Expression{}
	}
}

func typedDecl(decl *ast.DeclStmt) (string, constraint.Constraint, error) {
	gen, ok := decl.Decl.(*ast.GenDecl)
	if !ok || len(gen.Specs) != 1 {
		return "", nil, fmt.Errorf("%w: malformed typed metavariable declaration", diagnostic.ErrUnrecoverable)
	}
	spec, ok := gen.Specs[0].(*ast.ValueSpec)
	if !ok || len(spec.Names) != 1 || spec.Type == nil {
		return "", nil, fmt.Errorf("%w: malformed typed metavariable declaration", diagnostic.ErrUnrecoverable)
	}
	return spec.Names[0].Name, constraint.TypedIdentifier{TypeName: asthelper.Print(nil, spec.Type)}, nil
}

func argName(call *ast.CallExpr) (string, error) {
	if len(call.Args) != 1 {
		return "", fmt.Errorf("%w: metavariable declaration takes exactly one name", diagnostic.ErrUnrecoverable)
	}
	id, ok := call.Args[0].(*ast.Ident)
	if !ok {
		return "", fmt.Errorf("%w: metavariable name must be an identifier", diagnostic.ErrUnrecoverable)
	}
	return id.Name, nil
}

// attachConstraint wraps the most recent declaration with a constraint
// marker; `regex-match` is the only recognized form.
func attachConstraint(table *orderedmap.OrderedMap[string, constraint.Constraint], lastName string, call *ast.CallExpr) error {
	if lastName == "" {
		return fmt.Errorf("%w: constraint with no preceding metavariable", diagnostic.ErrUnrecoverable)
	}
	if len(call.Args) != 2 {
		return fmt.Errorf("%w: constraint marker takes a kind and an argument", diagnostic.ErrUnrecoverable)
	}
	kind, err := stringArg(call.Args[0])
	if err != nil {
		return err
	}
	if kind != config.RegexConstraintName {
		return fmt.Errorf("%w: unknown constraint kind %q", diagnostic.ErrUnrecoverable, kind)
	}
	pattern, err := stringArg(call.Args[1])
	if err != nil {
		return err
	}
	inner, _ := table.Load(lastName)
	re, err := constraint.NewRegex(pattern, inner)
	if err != nil {
		return fmt.Errorf("compile constraint regex %q: %w", pattern, err)
	}
	table.Store(lastName, re)
	return nil
}

func stringArg(arg ast.Expr) (string, error) {
	lit, ok := arg.(*ast.BasicLit)
	if !ok {
		return "", fmt.Errorf("%w: constraint argument must be a string literal", diagnostic.ErrUnrecoverable)
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", fmt.Errorf("%w: constraint argument must be a string literal", diagnostic.ErrUnrecoverable)
	}
	return s, nil
}
