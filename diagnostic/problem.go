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

// Package diagnostic hosts the structured problems collected while compiling
// a patch. Warnings accumulate in a sink and flow to the analysis driver;
// errors abort compilation before CFG construction.
package diagnostic

import (
	"errors"
	"fmt"
)

// Severity classifies a problem.
type Severity int

const (
	// Warn problems are reported but do not abort compilation.
	Warn Severity = iota
	// Error problems abort compilation before CFG construction.
	Error
)

// String implements fmt.Stringer for Severity.
func (s Severity) String() string {
	if s == Warn {
		return "warning"
	}
	return "error"
}

// Problem is one structured diagnostic attached to a patch position. Line is
// 1-based in the original patch text; 0 means the problem has no position.
type Problem struct {
	Severity Severity
	Message  string
	Line     int
}

// Error implements the error interface so that an Error-severity problem can
// propagate as an exceptional failure.
func (p *Problem) Error() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", p.Severity, p.Line, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.Severity, p.Message)
}

// ErrUnrecoverable marks failures of patch structure that no later stage can
// compensate for (missing rule method, unanchorable additions, unknown
// metavariable kinds or dots constraints).
var ErrUnrecoverable = errors.New("unrecoverable patch structure")

// ErrInternal marks violations of internal invariants (malformed CFG shapes,
// unexpected node kinds). Hitting it is a bug in the engine, not the patch.
var ErrInternal = errors.New("internal invariant violation")

// Sink collects problems during one compilation.
type Sink struct {
	problems []*Problem
}

// Warnf records a Warn-severity problem.
func (s *Sink) Warnf(line int, format string, args ...any) {
	s.problems = append(s.problems, &Problem{Severity: Warn, Message: fmt.Sprintf(format, args...), Line: line})
}

// Errorf records an Error-severity problem and returns it as an error.
func (s *Sink) Errorf(line int, format string, args ...any) error {
	p := &Problem{Severity: Error, Message: fmt.Sprintf(format, args...), Line: line}
	s.problems = append(s.problems, p)
	return p
}

// Problems returns all collected problems in recording order.
func (s *Sink) Problems() []*Problem { return s.problems }

// HasErrors reports whether any Error-severity problem was recorded.
func (s *Sink) HasErrors() bool {
	for _, p := range s.problems {
		if p.Severity == Error {
			return true
		}
	}
	return false
}
