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

package checker_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/spatch"
	"go.uber.org/spatch/checker"
	"go.uber.org/spatch/operation"
	"go.uber.org/spatch/util/asthelper"
)

func target(t *testing.T, src string) (*ast.FuncDecl, *token.FileSet) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "target.go", "package p\n"+src, parser.SkipObjectResolution)
	require.NoError(t, err)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			return fn, fset
		}
	}
	t.Fatal("no function in target source")
	return nil, nil
}

func match(t *testing.T, patch, src string) []checker.Match {
	t.Helper()
	r, _, err := spatch.Compile(patch)
	require.NoError(t, err)
	fn, fset := target(t, src)
	matches, err := checker.Run(r, fn, fset)
	require.NoError(t, err)
	return matches
}

func TestRunSimpleReplace(t *testing.T) {
	t.Parallel()

	matches := match(t,
		"@@ identifier x; @@\n- foo(x);\n+ bar(x);\n",
		"func f() {\n\tfoo(a)\n\tother()\n}\n")

	require.Len(t, matches, 1)
	m := matches[0]
	require.Equal(t, "foo(a)", asthelper.Print(nil, m.Stmt))
	require.Equal(t, "a", asthelper.Print(nil, m.Bindings["x"]))
	require.Len(t, m.Operations, 1)
	require.IsType(t, operation.Replace{}, m.Operations[0])
}

func TestRunConsistentBindings(t *testing.T) {
	t.Parallel()

	patch := "@@ identifier f; @@\n  f(1);\n  f(2);\n"

	// Consecutive calls through the same identifier match...
	matches := match(t, patch, "func g() {\n\twork(1)\n\twork(2)\n}\n")
	require.Len(t, matches, 1)
	require.Equal(t, "work", asthelper.Print(nil, matches[0].Bindings["f"]))

	// ...but inconsistent identifiers do not.
	matches = match(t, patch, "func g() {\n\twork(1)\n\tother(2)\n}\n")
	require.Empty(t, matches)
}

func TestRunDots(t *testing.T) {
	t.Parallel()

	patch := "@@ @@\n  a();\n...\n+ b();\n  c();\n"

	// Dots skip any number of intervening statements.
	for _, src := range []string{
		"func f() {\n\ta()\n\tc()\n}\n",
		"func f() {\n\ta()\n\tx()\n\ty()\n\tc()\n}\n",
	} {
		matches := match(t, patch, src)
		require.Len(t, matches, 1, "source %q", src)
		require.Len(t, matches[0].Operations, 1)
		require.IsType(t, operation.Prepend{}, matches[0].Operations[0])
	}

	// Without the trailing anchor there is no match.
	matches := match(t, patch, "func f() {\n\ta()\n\tx()\n}\n")
	require.Empty(t, matches)
}

func TestRunNoMatch(t *testing.T) {
	t.Parallel()

	matches := match(t,
		"@@ identifier x; @@\n- foo(x);\n",
		"func f() {\n\tbar(a)\n}\n")
	require.Empty(t, matches)
}

func TestRunConstantMetavar(t *testing.T) {
	t.Parallel()

	patch := "@@ constant c; @@\n- sleep(c);\n"

	matches := match(t, patch, "func f() {\n\tsleep(100)\n}\n")
	require.Len(t, matches, 1)
	require.Equal(t, "100", asthelper.Print(nil, matches[0].Bindings["c"]))

	// A non-literal argument does not bind a constant metavariable.
	matches = match(t, patch, "func f() {\n\tsleep(n)\n}\n")
	require.Empty(t, matches)
}

func TestRunRegexMetavar(t *testing.T) {
	t.Parallel()

	patch := "@@ identifier x; x when matches \"^get.*\" @@\n- use(x);\n"

	matches := match(t, patch, "func f() {\n\tuse(getValue)\n}\n")
	require.Len(t, matches, 1)

	matches = match(t, patch, "func f() {\n\tuse(setValue)\n}\n")
	require.Empty(t, matches)
}

func TestRunBranch(t *testing.T) {
	t.Parallel()

	patch := "@@ @@\n  if (cond) {\n+   log();\n    work();\n  }\n"

	matches := match(t, patch, "func f() {\n\tif cond {\n\t\twork()\n\t}\n}\n")
	require.NotEmpty(t, matches)
	var ops []operation.Op
	for _, m := range matches {
		ops = append(ops, m.Operations...)
	}
	require.NotEmpty(t, ops)
	ins, ok := ops[0].(operation.InsertIntoBlock)
	require.True(t, ok)
	require.Equal(t, operation.TrueBranch, ins.Block)
	require.Equal(t, operation.Top, ins.Anchor)
}

func TestRunEmptyPatchMatchesNothing(t *testing.T) {
	t.Parallel()

	matches := match(t, "@@ @@\n", "func f() {\n\twork()\n}\n")
	require.Empty(t, matches)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
