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

import "fmt"

// Kind enumerates the token kinds produced by the patch lexer.
type Kind int

// The complete set of token kinds. The disjunction and optional-dots kinds
// are recognized by the lexer but rejected later in the pipeline since their
// semantics are not supported yet.
const (
	// Rulename is the trimmed name between the `@` markers of a named header.
	Rulename Kind = iota
	// MetavarType is the declared kind (or type name) opening a metavariable
	// declaration in the header section.
	MetavarType
	// MetavarIdentifier is one declared metavariable name.
	MetavarIdentifier
	// WhenMatches carries the regex literal of a `when matches "..."` clause.
	WhenMatches
	// Code is a run of raw patch-body code terminated by Newline.
	Code
	// Addition marks a body line prefixed with `+`.
	Addition
	// Deletion marks a body line prefixed with `-`.
	Deletion
	// Dots is a statement-level `...` line.
	Dots
	// OptDotsBegin and OptDotsEnd delimit an optional-dots `<... ...>` region.
	OptDotsBegin
	OptDotsEnd
	// DisjunctionBegin, DisjunctionContinue and DisjunctionEnd are the
	// `(` / `|` / `)` lines of pattern disjunction syntax.
	DisjunctionBegin
	DisjunctionContinue
	DisjunctionEnd
	// Newline terminates each body line.
	Newline
)

var kindNames = map[Kind]string{
	Rulename:            "Rulename",
	MetavarType:         "MetavarType",
	MetavarIdentifier:   "MetavarIdentifier",
	WhenMatches:         "WhenMatches",
	Code:                "Code",
	Addition:            "Addition",
	Deletion:            "Deletion",
	Dots:                "Dots",
	OptDotsBegin:        "OptDotsBegin",
	OptDotsEnd:          "OptDotsEnd",
	DisjunctionBegin:    "DisjunctionBegin",
	DisjunctionContinue: "DisjunctionContinue",
	DisjunctionEnd:      "DisjunctionEnd",
	Newline:             "Newline",
}

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Position locates a token in the patch text (1-based line, 0-based column).
type Position struct {
	Line   int
	Column int
}

// String implements fmt.Stringer for Position.
func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Token is one lexed element of the patch text.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

// String implements fmt.Stringer for Token.
func (t Token) String() string {
	if t.Text == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// ParseError reports a lexing failure with the offending position and the
// set of inputs that would have been accepted there.
type ParseError struct {
	Pos      Position
	Expected []string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected one of %v", e.Pos, e.Expected)
}
