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

package config

// This file hosts the marker identifiers embedded into rewritten rule source.
// The rewriter emits them and the separator / anchor resolver / compiler
// recognize them; they are collected here so every stage agrees on spelling.

// RewrittenPackageName is the package clause of every rewritten rule source.
const RewrittenPackageName = "rule"

// RuleNameConst is the constant holding the rule name in rewritten source.
const RuleNameConst = "__SmPLRuleName__"

// MetavarsFunc is the function whose body declares the rule's metavariables.
const MetavarsFunc = "__SmPLMetavars__"

// RuleFunc is the synthesized rule-method name used when the patch body does
// not declare its own method header.
const RuleFunc = "__SmPLRule__"

// DotsMarker is the statement-level dots marker call.
const DotsMarker = "__SmPLDots__"

// DeletionMarker replaces deleted lines in the additions view; it exists
// purely as an anchor for surrounding additions.
const DeletionMarker = "__SmPLDeletion__"

// ExpressionMatchMarker wraps bare-expression patch fragments so the host
// parser accepts them at statement position.
const ExpressionMatchMarker = "__SmPLExpressionMatch__"

// ImplicitDotsMarker is the condition of the synthesized wrapper branch; the
// formula compiler unwraps it instead of emitting a branch obligation.
const ImplicitDotsMarker = "__SmPLImplicitDots__"

// DotsParamMarker is the parameter-list dots marker.
const DotsParamMarker = "__SmPLDotsParam__"

// Dots constraint marker calls, rewritten from `when any` / `when exists` /
// `when != x` clauses following a dots line.
const (
	WhenAnyMarker      = "whenAny"
	WhenExistsMarker   = "whenExists"
	WhenNotEqualMarker = "whenNotEqual"
)

// Metavariable declaration marker calls inside MetavarsFunc. The `type` kind
// of the patch surface becomes TypenameMarker because `type` cannot head a
// call expression in rewritten source.
const (
	IdentifierMarker = "identifier"
	TypenameMarker   = "typename"
	ConstantMarker   = "constant"
	ExpressionMarker = "expression"
	ConstraintMarker = "constraint"
)

// RegexConstraintName is the first argument of a ConstraintMarker call
// produced from a `when matches` clause.
const RegexConstraintName = "regex-match"

// MethodBodyAnchor is the sentinel anchor line for operations attached to
// the method body itself rather than to a concrete statement.
const MethodBodyAnchor = 0

// OperationsVar is the reserved metavariable name carrying the edit-operation
// list of one anchorable atom through the model checker's witnesses.
const OperationsVar = "_v"
