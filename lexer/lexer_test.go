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

package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func kinds(tokens []Token) []Kind {
	ks := make([]Kind, len(tokens))
	for i, t := range tokens {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexEmptyInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\n\n"} {
		_, err := Lex(input)
		require.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestLexBadHeader(t *testing.T) {
	t.Parallel()

	_, err := Lex("not a header\nfoo();\n")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 1, perr.Pos.Line)
	require.Contains(t, perr.Expected, "@@")
}

func TestLexNamedRule(t *testing.T) {
	t.Parallel()

	tokens, err := Lex("@ fix-foo @\nidentifier x;\n@@\nfoo(x);\n")
	require.NoError(t, err)
	require.Equal(t, Rulename, tokens[0].Kind)
	require.Equal(t, "fix-foo", tokens[0].Text)
	require.Equal(t,
		[]Kind{Rulename, MetavarType, MetavarIdentifier, Newline, Code, Newline},
		kinds(tokens))
}

func TestLexInlineHeader(t *testing.T) {
	t.Parallel()

	tokens, err := Lex("@@ identifier x; @@\n- foo(x);\n+ bar(x);\n")
	require.NoError(t, err)
	require.Equal(t,
		[]Kind{MetavarType, MetavarIdentifier, Newline, Deletion, Code, Newline, Addition, Code, Newline},
		kinds(tokens))
	require.Equal(t, "identifier", tokens[0].Text)
	require.Equal(t, "x", tokens[1].Text)
}

func TestLexMetavarDeclarations(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		line     string
		expected []Token
	}{
		{
			name: "MultipleNames",
			line: "expression e1, e2;",
			expected: []Token{
				{Kind: MetavarType, Text: "expression"},
				{Kind: MetavarIdentifier, Text: "e1"},
				{Kind: MetavarIdentifier, Text: "e2"},
			},
		},
		{
			name: "TypedIdentifier",
			line: "int counter;",
			expected: []Token{
				{Kind: MetavarType, Text: "int"},
				{Kind: MetavarIdentifier, Text: "counter"},
			},
		},
		{
			name: "WhenMatches",
			line: `identifier x; x when matches "^get.*"`,
			expected: []Token{
				{Kind: MetavarType, Text: "identifier"},
				{Kind: MetavarIdentifier, Text: "x"},
				{Kind: MetavarIdentifier, Text: "x"},
				{Kind: WhenMatches, Text: "^get.*"},
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tokens, err := Lex("@@\n" + tc.line + "\n@@\nfoo();\n")
			require.NoError(t, err)
			for i, want := range tc.expected {
				require.Equal(t, want.Kind, tokens[i].Kind)
				require.Equal(t, want.Text, tokens[i].Text)
			}
		})
	}
}

func TestLexBodyMarkers(t *testing.T) {
	t.Parallel()

	tokens, err := Lex("@@ @@\n  a();\n...\n+ b();\n- c();\n")
	require.NoError(t, err)
	require.Equal(t,
		[]Kind{Code, Newline, Dots, Newline, Addition, Code, Newline, Deletion, Code, Newline},
		kinds(tokens))
	// The marker is blanked out of the code text, preserving columns.
	require.Equal(t, "  b();", tokens[5].Text)
}

func TestLexDisjunctionAndOptDots(t *testing.T) {
	t.Parallel()

	tokens, err := Lex("@@ @@\n(\nfoo();\n|\nbar();\n)\n<...\nbaz();\n...>\n")
	require.NoError(t, err)
	var special []Kind
	for _, tok := range tokens {
		switch tok.Kind {
		case DisjunctionBegin, DisjunctionContinue, DisjunctionEnd, OptDotsBegin, OptDotsEnd:
			special = append(special, tok.Kind)
		}
	}
	require.Equal(t,
		[]Kind{DisjunctionBegin, DisjunctionContinue, DisjunctionEnd, OptDotsBegin, OptDotsEnd},
		special)
}

func TestLexMissingBodySection(t *testing.T) {
	t.Parallel()

	_, err := Lex("@@\nidentifier x;\n")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Expected, "@@")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
