// Copyright 2024 The pmml2lua Authors
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

// Package ast defines the target-language-agnostic AST that every model
// compiler builds and the optimiser/emitter consume. It is a tagged
// variant over a closed set of node shapes (spec.md §3, §9) rather than
// a polymorphic class hierarchy: a single Node struct carries a Kind tag
// and dispatches by switching on it, the way cuelang.org/go's
// internal/core/adt represents its expression tree as a small closed set
// of struct kinds rather than an interface per node type.
package ast

import (
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

// Kind tags the shape of a Node.
type Kind int

const (
	KindFieldRef Kind = iota
	KindConstant
	KindCall
	KindDeclaration
	KindAssignment
	KindIndirectAssignment // table write: t[k] = v
	KindIndirectField      // table read: t[k]
	KindBlock
	KindIfChain
	KindReturn
	KindLambda
	KindDefaultValue // missing-coalesce: default(x, fallback)
	KindSentinel     // placeholder pushed after a reported error
)

func (k Kind) String() string {
	names := [...]string{
		"field-ref", "constant", "call", "declaration", "assignment",
		"indirect-assignment", "indirect-field", "block", "if-chain",
		"return", "lambda", "default-value", "sentinel",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Node is the single AST representation. Which fields are meaningful
// depends on Kind; see the constructors below for the contract each kind
// honours.
type Node struct {
	Kind Kind
	Type pmml.ValueType

	// KindFieldRef, KindIndirectAssignment LHS, KindDeclaration.
	Field *pmml.FieldDescription

	// KindConstant.
	ConstVal pmml.ValueType
	Str      string
	Num      string // decimal literal text, parsed lazily by the emitter/analyser
	Bool     bool

	// KindCall: catalogue id. KindIfChain: condition/body are paired up
	// in Children as (cond0, body0, cond1, body1, ..., [elseBody]).
	CallName string

	Children []*Node

	// KindLambda: parameter fields, in order.
	Params []*pmml.FieldDescription

	// KindReturn in table output mode: the table key for each child, same
	// length and order as Children. Empty for multi-value return.
	Names []string
}

// Field builds a field-ref node.
func Field(f *pmml.FieldDescription) *Node {
	return &Node{Kind: KindFieldRef, Type: f.Field.Type, Field: f}
}

// StringConst builds a string literal node.
func StringConst(s string) *Node {
	return &Node{Kind: KindConstant, Type: pmml.TypeString, Str: s}
}

// NumberConst builds a numeric literal node from decimal text.
func NumberConst(num string) *Node {
	return &Node{Kind: KindConstant, Type: pmml.TypeNumber, Num: num}
}

// BoolConst builds a boolean literal node.
func BoolConst(b bool) *Node {
	return &Node{Kind: KindConstant, Type: pmml.TypeBool, Bool: b}
}

// VoidConst builds the "no value" constant (PMML missing/nil).
func VoidConst() *Node {
	return &Node{Kind: KindConstant, Type: pmml.TypeVoid}
}

// Call builds an n-ary function-call node. typ is the coerced return
// type the catalogue assigned after argument coercion.
func Call(name string, typ pmml.ValueType, args ...*Node) *Node {
	return &Node{Kind: KindCall, Type: typ, CallName: name, Children: args}
}

// Declare builds a local-variable declaration with an initialiser.
func Declare(f *pmml.FieldDescription, init *Node) *Node {
	return &Node{Kind: KindDeclaration, Type: pmml.TypeVoid, Field: f, Children: []*Node{init}}
}

// Assign builds a plain assignment to a field.
func Assign(f *pmml.FieldDescription, value *Node) *Node {
	return &Node{Kind: KindAssignment, Type: pmml.TypeVoid, Field: f, Children: []*Node{value}}
}

// AssignIndirect builds t[key] = value.
func AssignIndirect(table *Node, key *Node, value *Node) *Node {
	return &Node{Kind: KindIndirectAssignment, Type: pmml.TypeVoid, Children: []*Node{table, key, value}}
}

// IndirectField builds t[key].
func IndirectField(table *Node, key *Node, typ pmml.ValueType) *Node {
	return &Node{Kind: KindIndirectField, Type: typ, Children: []*Node{table, key}}
}

// Block builds a statement sequence.
func Block(stmts ...*Node) *Node {
	return &Node{Kind: KindBlock, Type: pmml.TypeVoid, Children: stmts}
}

// IfChain builds a conditional chain from (cond, body) pairs plus an
// optional trailing else body (an unpaired last child).
func IfChain(pairs []*Node, elseBody *Node) *Node {
	children := append([]*Node{}, pairs...)
	if elseBody != nil {
		children = append(children, elseBody)
	}
	return &Node{Kind: KindIfChain, Type: pmml.TypeVoid, Children: children}
}

// HasElse reports whether an if-chain has a trailing unconditional else,
// i.e. an odd number of children.
func (n *Node) HasElse() bool {
	return n.Kind == KindIfChain && len(n.Children)%2 == 1
}

// Return builds a return statement over the given values.
func Return(values ...*Node) *Node {
	return &Node{Kind: KindReturn, Type: pmml.TypeVoid, Children: values}
}

// ReturnTable builds a return statement that packages values into a
// single table keyed by names (output-format "table", spec.md §6), one
// name per value in the same order.
func ReturnTable(names []string, values []*Node) *Node {
	return &Node{Kind: KindReturn, Type: pmml.TypeVoid, Children: values, Names: names}
}

// Lambda builds a nested function value.
func Lambda(params []*pmml.FieldDescription, body *Node) *Node {
	return &Node{Kind: KindLambda, Type: pmml.TypeLambda, Params: params, Children: []*Node{body}}
}

// Default builds a missing-coalesce: evaluates primary, falls back to
// alt if primary is missing.
func Default(primary, alt *Node) *Node {
	typ := primary.Type
	if alt.Type != typ {
		typ = pmml.TypeInvalid
	}
	return &Node{Kind: KindDefaultValue, Type: typ, Children: []*Node{primary, alt}}
}

// Sentinel builds the placeholder pushed after a reported error, so
// compilation can continue far enough to surface further diagnostics.
func Sentinel() *Node {
	return &Node{Kind: KindSentinel, Type: pmml.TypeInvalid}
}
