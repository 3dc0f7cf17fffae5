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

package compile

import (
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
)

// PredicateKind is one of the five predicate shapes from spec.md §4.4.
type PredicateKind int

const (
	PredicateTrue PredicateKind = iota
	PredicateFalse
	PredicateSimple
	PredicateCompound
	PredicateSurrogate
)

// CompilePredicate translates a PMML predicate element into an AST
// expression of type bool. field resolves a FieldValue name to its
// FieldDescription; it is supplied by the caller (a model compiler)
// because resolution rules (mining fields, derived fields) differ
// slightly between model kinds.
func (b *Builder) CompilePredicate(el *xmldom.Element, resolve func(name string) (*pmml.FieldDescription, bool)) *ast.Node {
	switch el.Name {
	case "True":
		return ast.BoolConst(true)
	case "False":
		return ast.BoolConst(false)
	case "SimplePredicate":
		return b.compileSimplePredicate(el, resolve)
	case "SimpleSetPredicate":
		return b.compileSetPredicate(el, resolve)
	case "CompoundPredicate":
		return b.compileCompoundPredicate(el, resolve)
	default:
		b.Ctx.Sink.Add(pmmlerr.ParseError, el.Pos, "unknown predicate element", el.Name)
		return ast.Sentinel()
	}
}

func (b *Builder) compileSimplePredicate(el *xmldom.Element, resolve func(string) (*pmml.FieldDescription, bool)) *ast.Node {
	name, _ := el.Attr("field")
	op, _ := el.Attr("operator")
	fd, ok := resolve(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in SimplePredicate", name)
		return ast.Sentinel()
	}
	lhs := ast.Field(fd)

	if op == "isMissing" {
		return ast.Call("is-missing", pmml.TypeBool, lhs)
	}
	if op == "isNotMissing" {
		return ast.Call("is-not-missing", pmml.TypeBool, lhs)
	}

	valueStr, _ := el.Attr("value")
	var rhs *ast.Node
	switch fd.Field.Type {
	case pmml.TypeNumber:
		rhs = ast.NumberConst(valueStr)
	case pmml.TypeBool:
		rhs = ast.BoolConst(valueStr == "true" || valueStr == "1")
	default:
		rhs = ast.StringConst(valueStr)
	}

	opName := catalogueOpFor(op)
	if opName == "" {
		b.Ctx.Sink.Add(pmmlerr.UnknownAttributeValue, el.Pos, "unknown SimplePredicate operator", op)
		return ast.Sentinel()
	}
	return b.binaryOp(opName, lhs, rhs)
}

func catalogueOpFor(pmmlOp string) string {
	switch pmmlOp {
	case "equal":
		return "=="
	case "notEqual":
		return "~="
	case "lessThan":
		return "<"
	case "lessOrEqual":
		return "<="
	case "greaterThan":
		return ">"
	case "greaterOrEqual":
		return ">="
	default:
		return ""
	}
}

func (b *Builder) binaryOp(op string, lhs, rhs *ast.Node) *ast.Node {
	b.push(lhs)
	b.push(rhs)
	b.Call(op, 2)
	return b.Pop()
}

// compileSetPredicate handles SimpleSetPredicate. Whatever the array's
// size, the categories are hoisted into a constant string-table and the
// predicate reduces to a single membership test, per spec.md §4.4.
func (b *Builder) compileSetPredicate(el *xmldom.Element, resolve func(string) (*pmml.FieldDescription, bool)) *ast.Node {
	name, _ := el.Attr("field")
	boolOp, _ := el.Attr("booleanOperator")
	fd, ok := resolve(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in SimpleSetPredicate", name)
		return ast.Sentinel()
	}
	arrayEl := el.FirstChildNamed("Array")
	values := splitArray(arrayEl)

	table := &ast.Node{Kind: ast.KindConstant, Type: pmml.TypeStringTable, Str: joinValues(values)}
	member := ast.Call("in-string-table", pmml.TypeBool, ast.Field(fd), table)
	if boolOp == "isNotIn" {
		return ast.Call("not", pmml.TypeBool, member)
	}
	return member
}

func splitArray(el *xmldom.Element) []string {
	if el == nil {
		return nil
	}
	return fieldTokens(el.Text)
}

// Tokens splits the whitespace/quote-delimited text content of an Array
// or similar PMML element into individual values, exported for model
// compilers that need to parse numeric vectors (e.g. SVM support
// vectors, cluster centers) the same way SimpleSetPredicate's category
// array is parsed.
func Tokens(s string) []string { return fieldTokens(s) }

func fieldTokens(s string) []string {
	var out []string
	var cur []rune
	inQuote := false
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case (r == ' ' || r == '\t' || r == '\n') && !inQuote:
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

func joinValues(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += "\x00"
		}
		out += v
	}
	return out
}

func (b *Builder) compileCompoundPredicate(el *xmldom.Element, resolve func(string) (*pmml.FieldDescription, bool)) *ast.Node {
	boolOp, _ := el.Attr("booleanOperator")
	children := el.NonExtensionChildren()

	if boolOp == "surrogate" {
		args := make([]*ast.Node, 0, len(children))
		for _, c := range children {
			args = append(args, b.CompilePredicate(c, resolve))
		}
		return ast.Call("surrogate", pmml.TypeBool, args...)
	}

	var op string
	switch boolOp {
	case "and":
		op = "and"
	case "or":
		op = "or"
	case "xor":
		op = "xor"
	default:
		b.Ctx.Sink.Add(pmmlerr.UnknownAttributeValue, el.Pos, "unknown CompoundPredicate operator", boolOp)
		return ast.Sentinel()
	}

	operands := make([]*ast.Node, 0, len(children))
	for _, c := range children {
		operands = append(operands, b.CompilePredicate(c, resolve))
	}
	if len(operands) == 0 {
		return ast.BoolConst(op == "and")
	}
	result := operands[0]
	for _, next := range operands[1:] {
		if op == "xor" {
			result = b.binaryOp("xor", result, next)
		} else {
			b.push(result)
			b.push(next)
			b.Call(op, 2)
			result = b.Pop()
		}
	}
	return result
}
