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

// Package lexer tokenizes semantic-patch (SmPL) text. The grammar is
// line-oriented: a header section declaring the rule name and metavariables
// between `@@` markers, followed by the patch body where each line carries an
// optional `+`/`-` prefix.
package lexer

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when the patch text contains no non-blank lines.
var ErrEmptyInput = errors.New("empty patch input")

var (
	headerOpenPattern  = regexp.MustCompile(`^@(.*)@$`)
	whenMatchesPattern = regexp.MustCompile(`^(\pL[\pL\pN_]*)\s+when\s+matches\s+"((?:[^"\\]|\\.)*)"$`)
	metavarDeclPattern = regexp.MustCompile(`^(\pL[\pL\pN_.]*)\s+(.+)$`)
)

type section int

const (
	sectionHeaderOpen section = iota
	sectionMetavars
	sectionBody
)

// Lex tokenizes the given patch text. The returned token stream is fully
// materialized; the first syntax problem aborts lexing with a *ParseError.
func Lex(input string) ([]Token, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	l := &lexer{}
	lines := strings.Split(input, "\n")
	state := sectionHeaderOpen
	for i, line := range lines {
		l.line = i + 1
		trimmed := strings.TrimSpace(line)
		switch state {
		case sectionHeaderOpen:
			if trimmed == "" {
				continue
			}
			switch {
			case trimmed == "@@":
				state = sectionMetavars
			case len(trimmed) >= 4 && strings.HasPrefix(trimmed, "@@") && strings.HasSuffix(trimmed, "@@"):
				// Inline header: `@@ <metavar-decls> @@` on a single line.
				inner := strings.TrimSpace(trimmed[2 : len(trimmed)-2])
				if inner != "" {
					if err := l.lexMetavarLine(inner); err != nil {
						return nil, err
					}
				}
				state = sectionBody
			case headerOpenPattern.MatchString(trimmed):
				m := headerOpenPattern.FindStringSubmatch(trimmed)
				if name := strings.TrimSpace(m[1]); name != "" {
					l.emit(Rulename, name, 0)
				}
				state = sectionMetavars
			default:
				return nil, &ParseError{Pos: Position{Line: l.line}, Expected: []string{"@@", "@ name @"}}
			}
		case sectionMetavars:
			if trimmed == "" {
				continue
			}
			if trimmed == "@@" {
				state = sectionBody
				continue
			}
			if err := l.lexMetavarLine(trimmed); err != nil {
				return nil, err
			}
		case sectionBody:
			// Blank lines carry no pattern content.
			if trimmed == "" {
				continue
			}
			l.lexBodyLine(line)
		}
	}
	if state != sectionBody {
		return nil, &ParseError{Pos: Position{Line: l.line}, Expected: []string{"@@"}}
	}
	return l.tokens, nil
}

type lexer struct {
	tokens []Token
	line   int
}

func (l *lexer) emit(kind Kind, text string, col int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Pos: Position{Line: l.line, Column: col}})
}

// lexMetavarLine handles one header-section line. A line holds one or more
// `;`-separated clauses, each either a declaration `kind a, b, c` or a
// constraint `x when matches "re"`.
func (l *lexer) lexMetavarLine(line string) error {
	for _, clause := range strings.Split(line, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if m := whenMatchesPattern.FindStringSubmatch(clause); m != nil {
			l.emit(MetavarIdentifier, m[1], 0)
			l.emit(WhenMatches, m[2], 0)
			continue
		}
		m := metavarDeclPattern.FindStringSubmatch(clause)
		if m == nil {
			return &ParseError{Pos: Position{Line: l.line}, Expected: []string{"metavariable declaration", `when matches "..."`, "@@"}}
		}
		l.emit(MetavarType, m[1], 0)
		for _, name := range strings.Split(m[2], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				return &ParseError{Pos: Position{Line: l.line}, Expected: []string{"metavariable name"}}
			}
			l.emit(MetavarIdentifier, name, 0)
		}
	}
	l.emit(Newline, "", len(line))
	return nil
}

// lexBodyLine handles one body line. The `+`/`-` prefix, dots, optional-dots
// and disjunction markers are recognized at statement position; everything
// else accumulates into a single Code token terminated by Newline.
func (l *lexer) lexBodyLine(line string) {
	rest := line
	col := 0
	trimmed := strings.TrimSpace(rest)
	if strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "-") {
		idx := strings.IndexAny(rest, "+-")
		kind := Addition
		if rest[idx] == '-' {
			kind = Deletion
		}
		l.emit(kind, string(rest[idx]), idx)
		rest = rest[:idx] + " " + rest[idx+1:]
		col = idx + 1
		trimmed = strings.TrimSpace(rest)
	}

	switch trimmed {
	case "...":
		l.emit(Dots, trimmed, col)
	case "<...":
		l.emit(OptDotsBegin, trimmed, col)
	case "...>":
		l.emit(OptDotsEnd, trimmed, col)
	case "(":
		l.emit(DisjunctionBegin, trimmed, col)
	case "|":
		l.emit(DisjunctionContinue, trimmed, col)
	case ")":
		l.emit(DisjunctionEnd, trimmed, col)
	default:
		l.emit(Code, rest, col)
	}
	l.emit(Newline, "", len(line))
}
