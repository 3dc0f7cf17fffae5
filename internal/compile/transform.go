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

// Resolver looks up a named field visible at the current point of
// compilation (mining fields, derived fields, or raw data fields).
type Resolver func(name string) (*pmml.FieldDescription, bool)

// CompileExpression translates one Expression element (spec.md §4.4):
// constants, field references, Apply (arithmetic/catalogue calls),
// MapValues (piecewise mapping), Discretize, NormContinuous/NormDiscrete.
func (b *Builder) CompileExpression(el *xmldom.Element, resolve Resolver) *ast.Node {
	switch el.Name {
	case "Constant":
		return b.compileConstant(el)
	case "FieldRef":
		name, _ := el.Attr("field")
		fd, ok := resolve(name)
		if !ok {
			b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in FieldRef", name)
			return ast.Sentinel()
		}
		return ast.Field(fd)
	case "Apply":
		return b.compileApply(el, resolve)
	case "MapValues":
		return b.compileMapValues(el, resolve)
	case "Discretize":
		return b.compileDiscretize(el, resolve)
	case "NormContinuous":
		return b.compileNormContinuous(el, resolve)
	case "NormDiscrete":
		return b.compileNormDiscrete(el, resolve)
	default:
		b.Ctx.Sink.Add(pmmlerr.ParseError, el.Pos, "unknown expression element", el.Name)
		return ast.Sentinel()
	}
}

func (b *Builder) compileConstant(el *xmldom.Element) *ast.Node {
	dataType := el.AttrOr("dataType", "")
	switch dataType {
	case "boolean":
		return ast.BoolConst(el.Text == "true" || el.Text == "1")
	case "integer", "float", "double":
		return ast.NumberConst(el.Text)
	default:
		return ast.StringConst(el.Text)
	}
}

// applyCatalogueName maps a PMML Apply function name to the catalogue
// entry that implements it.
func applyCatalogueName(fn string) string {
	switch fn {
	case "+", "-", "*", "/":
		return fn
	case "min", "max", "abs", "exp", "ln", "log10", "sqrt", "round", "ceiling", "floor":
		return fn
	case "isMissing":
		return "is-missing"
	case "isNotMissing":
		return "is-not-missing"
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
	case "and":
		return "and"
	case "or":
		return "or"
	case "not":
		return "not"
	default:
		return ""
	}
}

func (b *Builder) compileApply(el *xmldom.Element, resolve Resolver) *ast.Node {
	fn, _ := el.Attr("function")
	name := applyCatalogueName(fn)
	if name == "" {
		b.Ctx.Sink.Add(pmmlerr.UnknownAttributeValue, el.Pos, "unknown Apply function", fn)
		return ast.Sentinel()
	}
	children := el.NonExtensionChildren()
	for _, c := range children {
		b.push(b.CompileExpression(c, resolve))
	}
	b.Call(name, len(children))
	return b.Pop()
}

// compileMapValues translates a piecewise category->value mapping into
// an if-chain keyed on the input field(s), falling back to the
// element's mapMissingTo/defaultValue.
func (b *Builder) compileMapValues(el *xmldom.Element, resolve Resolver) *ast.Node {
	outputType := pmml.DataTypeFromString(el.AttrOr("dataType", "string"))
	fieldColumnPairs := el.ChildrenNamed("FieldColumnPair")
	fields := make([]*pmml.FieldDescription, 0, len(fieldColumnPairs))
	columns := make([]string, 0, len(fieldColumnPairs))
	for _, fc := range fieldColumnPairs {
		name, _ := fc.Attr("field")
		fd, ok := resolve(name)
		if !ok {
			b.Ctx.Sink.Add(pmmlerr.BindingFailure, fc.Pos, "unknown field in MapValues", name)
			continue
		}
		fields = append(fields, fd)
		col, _ := fc.Attr("column")
		columns = append(columns, col)
	}

	outCol, _ := el.Attr("outputColumn")
	table := el.FirstChildNamed("InlineTable")
	var pairs []*ast.Node
	if table != nil {
		for _, row := range table.ChildrenNamed("row") {
			var cond *ast.Node
			for i, col := range columns {
				cell := row.FirstChildNamed(col)
				if cell == nil {
					continue
				}
				cmp := b.binaryOp("==", ast.Field(fields[i]), literalFor(fields[i].Field.Type, cell.Text))
				if cond == nil {
					cond = cmp
				} else {
					cond = b.binaryOp("and", cond, cmp)
				}
			}
			outCell := row.FirstChildNamed(outCol)
			var outVal *ast.Node
			if outCell != nil {
				outVal = literalFor(outputType, outCell.Text)
			} else {
				outVal = ast.VoidConst()
			}
			if cond != nil {
				pairs = append(pairs, cond, outVal)
			}
		}
	}
	var elseBody *ast.Node
	if mm, ok := el.Attr("mapMissingTo"); ok {
		elseBody = literalFor(outputType, mm)
	} else if dv, ok := el.Attr("defaultValue"); ok {
		elseBody = literalFor(outputType, dv)
	} else {
		elseBody = ast.VoidConst()
	}
	if len(pairs) == 0 {
		return elseBody
	}
	return ast.IfChain(pairs, elseBody)
}

// LiteralFor builds a typed constant node from raw PMML attribute/text
// content, the same conversion CompileExpression's Constant handling and
// every piecewise-mapping compiler uses. Exported so model compilers
// (spec.md §4.5) can build literals (leaf scores, scorecard points, rule
// weights) with the same rules.
func LiteralFor(typ pmml.ValueType, text string) *ast.Node { return literalFor(typ, text) }

func literalFor(typ pmml.ValueType, text string) *ast.Node {
	switch typ {
	case pmml.TypeNumber:
		return ast.NumberConst(text)
	case pmml.TypeBool:
		return ast.BoolConst(text == "true" || text == "1")
	default:
		return ast.StringConst(text)
	}
}

// compileDiscretize translates a Discretize element's DiscretizeBin
// children (each an interval [leftMargin, rightMargin)) into an
// if-chain.
func (b *Builder) compileDiscretize(el *xmldom.Element, resolve Resolver) *ast.Node {
	name, _ := el.Attr("field")
	fd, ok := resolve(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in Discretize", name)
		return ast.Sentinel()
	}
	outputType := pmml.DataTypeFromString(el.AttrOr("dataType", "string"))

	var pairs []*ast.Node
	for _, bin := range el.ChildrenNamed("DiscretizeBin") {
		interval := bin.FirstChildNamed("Interval")
		var cond *ast.Node
		if interval != nil {
			if left, ok := interval.Attr("leftMargin"); ok {
				closure := interval.AttrOr("closure", "closedOpen")
				op := ">="
				if closure == "openOpen" || closure == "openClosed" {
					op = ">"
				}
				c := b.binaryOp(op, ast.Field(fd), ast.NumberConst(left))
				cond = c
			}
			if right, ok := interval.Attr("rightMargin"); ok {
				closure := interval.AttrOr("closure", "closedOpen")
				op := "<"
				if closure == "openClosed" || closure == "closedClosed" {
					op = "<="
				}
				c := b.binaryOp(op, ast.Field(fd), ast.NumberConst(right))
				if cond == nil {
					cond = c
				} else {
					cond = b.binaryOp("and", cond, c)
				}
			}
		}
		binValue, _ := bin.Attr("binValue")
		if cond != nil {
			pairs = append(pairs, cond, literalFor(outputType, binValue))
		}
	}
	var elseBody *ast.Node
	if mm, ok := el.Attr("mapMissingTo"); ok {
		elseBody = literalFor(outputType, mm)
	} else if dv, ok := el.Attr("defaultValue"); ok {
		elseBody = literalFor(outputType, dv)
	} else {
		elseBody = ast.VoidConst()
	}
	if len(pairs) == 0 {
		return elseBody
	}
	return ast.IfChain(pairs, elseBody)
}

// compileNormContinuous translates piecewise-linear normalisation over
// LinearNorm control points into nested scaling arithmetic.
func (b *Builder) compileNormContinuous(el *xmldom.Element, resolve Resolver) *ast.Node {
	name, _ := el.Attr("field")
	fd, ok := resolve(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in NormContinuous", name)
		return ast.Sentinel()
	}
	points := el.ChildrenNamed("LinearNorm")
	if len(points) < 2 {
		b.Ctx.Sink.Add(pmmlerr.ParseError, el.Pos, "NormContinuous needs at least two LinearNorm points", "")
		return ast.Sentinel()
	}
	var pairs []*ast.Node
	for i := 0; i+1 < len(points); i++ {
		x1, _ := points[i].Attr("orig")
		y1, _ := points[i].Attr("norm")
		x2, _ := points[i+1].Attr("orig")
		y2, _ := points[i+1].Attr("norm")
		cond := b.binaryOp("<=", ast.Field(fd), ast.NumberConst(x2))
		value := linearInterp(ast.Field(fd), x1, y1, x2, y2)
		pairs = append(pairs, cond, value)
	}
	last := points[len(points)-1]
	lastY, _ := last.Attr("norm")
	return ast.IfChain(pairs, ast.NumberConst(lastY))
}

func linearInterp(x *ast.Node, x1, y1, x2, y2 string) *ast.Node {
	num := ast.Call("-", pmml.TypeNumber, x, ast.NumberConst(x1))
	denom := ast.Call("-", pmml.TypeNumber, ast.NumberConst(x2), ast.NumberConst(x1))
	slope := ast.Call("-", pmml.TypeNumber, ast.NumberConst(y2), ast.NumberConst(y1))
	scaled := ast.Call("*", pmml.TypeNumber, ast.Call("/", pmml.TypeNumber, num, denom), slope)
	return ast.Call("+", pmml.TypeNumber, ast.NumberConst(y1), scaled)
}

// compileNormDiscrete translates a one-hot indicator (field==value) into
// a 0/1 numeric expression.
func (b *Builder) compileNormDiscrete(el *xmldom.Element, resolve Resolver) *ast.Node {
	name, _ := el.Attr("field")
	fd, ok := resolve(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.BindingFailure, el.Pos, "unknown field in NormDiscrete", name)
		return ast.Sentinel()
	}
	value, _ := el.Attr("value")
	cond := b.binaryOp("==", ast.Field(fd), literalFor(fd.Field.Type, value))
	return ast.IfChain([]*ast.Node{cond, ast.NumberConst("1")}, ast.NumberConst("0"))
}
