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

package asthelper

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPrint(t *testing.T) {
	t.Parallel()

	e, err := parser.ParseExpr("foo(x, y)")
	require.NoError(t, err)
	require.Equal(t, "foo(x, y)", Print(nil, e))
}

func TestEqualNode(t *testing.T) {
	t.Parallel()

	// The same expression parsed twice has different positions but is
	// structurally equal.
	a, err := parser.ParseExpr("f(x) + 1")
	require.NoError(t, err)
	b, err := parser.ParseExpr("  f(x) + 1")
	require.NoError(t, err)
	require.True(t, EqualNode(nil, a, b))

	c, err := parser.ParseExpr("f(y) + 1")
	require.NoError(t, err)
	require.False(t, EqualNode(nil, a, c))
}

func TestIdents(t *testing.T) {
	t.Parallel()

	e, err := parser.ParseExpr("f(x, g(x, y))")
	require.NoError(t, err)
	require.Equal(t, []string{"f", "x", "g", "y"}, Idents(e))
}

func TestCallHelpers(t *testing.T) {
	t.Parallel()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "x.go", "package p\nfunc f() {\n\tfoo(1)\n\tx := 1\n}\n", parser.SkipObjectResolution)
	require.NoError(t, err)
	body := file.Decls[0].(*ast.FuncDecl).Body

	require.Equal(t, "foo", CalledName(body.List[0]))
	require.NotNil(t, CallTo(body.List[0], "foo"))
	require.Nil(t, CallTo(body.List[0], "bar"))

	require.Equal(t, "", CalledName(body.List[1]))
	require.Nil(t, CallTo(body.List[1], "foo"))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
