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
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

// compileRegressionTableInto accumulates one RegressionTable's linear
// score into acc: intercept first, then each NumericPredictor's
// coefficient * (field ^ exponent), each CategoricalPredictor's
// coefficient gated on the field matching its declared value, and each
// PredictorTerm's coefficient * product of referenced fields.
func compileRegressionTableInto(acc *pmml.FieldDescription, table *xmldom.Element, resolve compile.Resolver) []*ast.Node {
	stmts := []*ast.Node{ast.Declare(acc, ast.NumberConst(table.AttrOr("intercept", "0")))}

	for _, np := range table.ChildrenNamed("NumericPredictor") {
		name, _ := np.Attr("name")
		fd, ok := resolve(name)
		if !ok {
			continue
		}
		coeff := np.AttrOr("coefficient", "1")
		term := ast.Field(fd)
		if exp := np.AttrOr("exponent", "1"); exp != "1" {
			term = ast.Call("^", pmml.TypeNumber, term, ast.NumberConst(exp))
		}
		term = ast.Call("*", pmml.TypeNumber, ast.NumberConst(coeff), term)
		stmts = append(stmts, ast.Assign(acc, ast.Call("+", pmml.TypeNumber, ast.Field(acc), term)))
	}

	for _, cp := range table.ChildrenNamed("CategoricalPredictor") {
		name, _ := cp.Attr("name")
		fd, ok := resolve(name)
		if !ok {
			continue
		}
		value := cp.AttrOr("value", "")
		coeff := cp.AttrOr("coefficient", "1")
		cond := ast.Call("==", pmml.TypeBool, ast.Field(fd), compile.LiteralFor(fd.Field.Type, value))
		body := ast.Assign(acc, ast.Call("+", pmml.TypeNumber, ast.Field(acc), ast.NumberConst(coeff)))
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, body}, nil))
	}

	for _, pt := range table.ChildrenNamed("PredictorTerm") {
		coeff := pt.AttrOr("coefficient", "1")
		product := ast.NumberConst(coeff)
		for _, fr := range pt.ChildrenNamed("FieldRef") {
			name, _ := fr.Attr("field")
			fd, ok := resolve(name)
			if !ok {
				continue
			}
			product = ast.Call("*", pmml.TypeNumber, product, ast.Field(fd))
		}
		stmts = append(stmts, ast.Assign(acc, ast.Call("+", pmml.TypeNumber, ast.Field(acc), product)))
	}

	return stmts
}

// applyNormalization maps a RegressionModel/RegressionTable's raw linear
// score through its declared normalizationMethod (spec.md §4.5.4).
func applyNormalization(method string, raw *ast.Node) *ast.Node {
	switch method {
	case "logit", "softmax":
		return ast.Call("logistic", pmml.TypeNumber, raw)
	case "exp":
		return ast.Call("exp", pmml.TypeNumber, raw)
	case "cloglog":
		return ast.Call("-", pmml.TypeNumber, ast.NumberConst("1"),
			ast.Call("exp", pmml.TypeNumber, ast.Call("unary-minus", pmml.TypeNumber, ast.Call("exp", pmml.TypeNumber, raw))))
	default:
		return raw
	}
}

// CompileRegression compiles a RegressionModel (spec.md §4.5.4): one
// RegressionTable for a numeric target, or one per category for a
// classification target, normalised and reduced by PickWinner exactly
// as every other classifier.
func CompileRegression(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, target := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	switch modelEl.AttrOr("functionName", "regression") {
	case "classification":
		config.Function = pmml.FunctionClassification
	default:
		config.Function = pmml.FunctionRegression
	}

	preamble := append([]*ast.Node{}, prepared.Preamble...)
	tables := modelEl.ChildrenNamed("RegressionTable")
	normMethod := modelEl.AttrOr("normalizationMethod", "none")

	if config.Function == pmml.FunctionRegression {
		config.OutputType = pmml.TypeNumber
		config.OutputValueName = ctx.Fresh("predicted", pmml.TypeNumber)
		config.TargetField = config.OutputValueName
		if len(tables) == 0 {
			preamble = append(preamble, ast.Declare(config.OutputValueName, ast.NumberConst("0")))
			return ast.Block(preamble...), config
		}
		acc := ctx.Fresh("reg_raw", pmml.TypeNumber)
		preamble = append(preamble, compileRegressionTableInto(acc, tables[0], resolve)...)
		preamble = append(preamble, ast.Declare(config.OutputValueName, applyNormalization(normMethod, ast.Field(acc))))
		return ast.Block(preamble...), config
	}

	outType := pmml.TypeString
	if target != nil {
		outType = target.Field.Type
	}
	config.OutputType = outType
	config.OutputValueName = ctx.Fresh("predicted", outType)
	config.TargetField = config.OutputValueName
	preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))

	if len(tables) == 0 {
		return ast.Block(preamble...), config
	}

	var categories []string
	for _, t := range tables {
		categories = append(categories, t.AttrOr("targetCategory", ""))
	}
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("reg_prob", pmml.TypeNumber, categories)

	// Softmax across categories is exp per table, then the division by
	// the total below.
	tableMethod := normMethod
	if tableMethod == "softmax" {
		tableMethod = "exp"
	}
	for i, t := range tables {
		fd, _ := config.ProbabilityValueName.Get(categories[i])
		acc := ctx.Fresh("reg_raw", pmml.TypeNumber)
		preamble = append(preamble, compileRegressionTableInto(acc, t, resolve)...)
		preamble = append(preamble, ast.Declare(fd, applyNormalization(tableMethod, ast.Field(acc))))
	}

	if normMethod == "softmax" || len(tables) > 2 {
		var total *ast.Node
		for _, cat := range config.ProbabilityValueName.Order() {
			fd, _ := config.ProbabilityValueName.Get(cat)
			if total == nil {
				total = ast.Field(fd)
			} else {
				total = ast.Call("+", pmml.TypeNumber, total, ast.Field(fd))
			}
		}
		totalVar := ctx.Fresh("reg_total", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(totalVar, total))
		preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(totalVar))...)
	} else {
		preamble = append(preamble, b.PickWinner(config)...)
	}

	return ast.Block(preamble...), config
}
