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

package model

import (
	"strconv"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

// rawResolver builds a Resolver that only consults ctx's raw dictionary
// (data-dictionary and already-declared fields), for model compilers
// that have no mining-field preamble to layer on top.
func rawResolver(ctx *compile.Context) compile.Resolver {
	return func(name string) (*pmml.FieldDescription, bool) { return ctx.Lookup(name) }
}

// firstPredicateChild returns the first non-Extension child of a Node
// element, which PMML requires to be exactly one predicate element.
func firstPredicateChild(node *xmldom.Element) *xmldom.Element {
	children := node.NonExtensionChildren()
	for _, c := range children {
		switch c.Name {
		case "True", "False", "SimplePredicate", "SimpleSetPredicate", "CompoundPredicate":
			return c
		}
	}
	return nil
}

// collectFieldRefs walks n and returns every distinct FieldDescription
// referenced by a field-ref node, in first-encountered order.
func collectFieldRefs(n *ast.Node) []*pmml.FieldDescription {
	seen := map[int]bool{}
	var out []*pmml.FieldDescription
	var walk func(*ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Kind == ast.KindFieldRef && !seen[n.Field.ID] {
			seen[n.Field.ID] = true
			out = append(out, n.Field)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// missingGuard builds a boolean expression that is true when any field
// pred directly reads might be missing: OR(is-missing(f) for f in
// pred's field refs). Used by the tree compiler's lastPrediction,
// nullPrediction and defaultChild missing-value strategies (spec.md
// §4.5.1) to approximate "this predicate's evaluation is unknown".
func missingGuard(pred *ast.Node) *ast.Node {
	fields := collectFieldRefs(pred)
	if len(fields) == 0 {
		return ast.BoolConst(false)
	}
	var out *ast.Node
	for _, f := range fields {
		g := ast.Call("is-missing", pmml.TypeBool, ast.Field(f))
		if out == nil {
			out = g
		} else {
			out = ast.Call("or", pmml.TypeBool, out, g)
		}
	}
	return out
}

// orNode / andNode / notNode build boolean combinators directly, for
// model compilers assembling control flow outside the builder's stack
// discipline (both operands are already bool-typed, so no coercion is
// needed).
func orNode(a, b *ast.Node) *ast.Node  { return ast.Call("or", pmml.TypeBool, a, b) }
func andNode(a, b *ast.Node) *ast.Node { return ast.Call("and", pmml.TypeBool, a, b) }
func notNode(a *ast.Node) *ast.Node    { return ast.Call("not", pmml.TypeBool, a) }

// isSurrogatePredicateElement reports whether el is a surrogate
// CompoundPredicate (spec.md §4.4/§4.5.1's missingValuePenalty trigger).
func isSurrogatePredicateElement(el *xmldom.Element) bool {
	return el != nil && el.Name == "CompoundPredicate" && el.AttrOr("booleanOperator", "") == "surrogate"
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// declarationsToBlock wraps a list of statements in a single block, the
// common shape a model compiler hands back to CompileDocument as its
// body.
func declarationsToBlock(stmts ...*ast.Node) *ast.Node {
	var out []*ast.Node
	for _, s := range stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	return ast.Block(out...)
}

// zeroLiteralFor builds the type-appropriate "nothing yet" initialiser
// for a local that every control-flow path may not reach: "" for
// string, 0 for number, false for bool.
func zeroLiteralFor(typ pmml.ValueType) *ast.Node {
	switch typ {
	case pmml.TypeNumber:
		return ast.NumberConst("0")
	case pmml.TypeBool:
		return ast.BoolConst(false)
	default:
		return ast.StringConst("")
	}
}

// sumConstant folds a list of numeric literal text values at compile
// time (record counts, weights), returning the formatted sum.
func sumConstant(values []string) string {
	total := 0.0
	for _, v := range values {
		total += parseFloat(v)
	}
	return formatFloat(total)
}
