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

package constraint

import (
	"go/ast"
	"go/parser"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func expr(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return e
}

func TestIdentifier(t *testing.T) {
	t.Parallel()

	c := Identifier{}
	binding, ok := c.Matches(expr(t, "getValue"))
	require.True(t, ok)
	require.IsType(t, &ast.Ident{}, binding)

	_, ok = c.Matches(expr(t, "a + b"))
	require.False(t, ok)

	// Merging requires structurally equal bindings.
	require.True(t, c.Merge(binding, expr(t, "getValue")))
	require.False(t, c.Merge(binding, expr(t, "other")))
}

func TestConstant(t *testing.T) {
	t.Parallel()

	c := Constant{}
	_, ok := c.Matches(expr(t, "42"))
	require.True(t, ok)
	_, ok = c.Matches(expr(t, `"s"`))
	require.True(t, ok)
	_, ok = c.Matches(expr(t, "x"))
	require.False(t, ok)
}

func TestExpression(t *testing.T) {
	t.Parallel()

	c := Expression{}
	for _, src := range []string{"x", "42", "a + b", "f(x)"} {
		_, ok := c.Matches(expr(t, src))
		require.True(t, ok, "expected %q to bind an expression metavariable", src)
	}

	// Structural equality ignores positions but not structure.
	binding, _ := c.Matches(expr(t, "a + b"))
	require.True(t, c.Merge(binding, expr(t, "a + b")))
	require.False(t, c.Merge(binding, expr(t, "a + c")))
}

func TestType(t *testing.T) {
	t.Parallel()

	c := Type{}
	for _, src := range []string{"T", "pkg.T", "*T", "[]T", "map[K]V"} {
		_, ok := c.Matches(expr(t, src))
		require.True(t, ok, "expected %q to bind a type metavariable", src)
	}
	_, ok := c.Matches(expr(t, "42"))
	require.False(t, ok)
}

func TestTypedIdentifier(t *testing.T) {
	t.Parallel()

	c := TypedIdentifier{TypeName: "int"}
	require.Equal(t, "identifier:int", c.Kind())
	_, ok := c.Matches(expr(t, "counter"))
	require.True(t, ok)
	_, ok = c.Matches(expr(t, "f(x)"))
	require.False(t, ok)
}

func TestRegex(t *testing.T) {
	t.Parallel()

	c, err := NewRegex("^get.*", Identifier{})
	require.NoError(t, err)

	_, ok := c.Matches(expr(t, "getValue"))
	require.True(t, ok)
	_, ok = c.Matches(expr(t, "setValue"))
	require.False(t, ok)
	// The inner constraint still applies.
	_, ok = c.Matches(expr(t, "a + b"))
	require.False(t, ok)
}

func TestRegexInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewRegex("(", Identifier{})
	require.Error(t, err)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
