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

// characteristicResult is one Characteristic's selected Attrib: the
// points it contributed, its reason code, and how far its points sit
// from the characteristic's own baselineScore (what ranks it as a
// reason).
type characteristicResult struct {
	points    *pmml.FieldDescription
	reasonVar *pmml.FieldDescription
	diffVar   *pmml.FieldDescription
}

func compileCharacteristic(b *compile.Builder, ch *xmldom.Element, resolve compile.Resolver) ([]*ast.Node, characteristicResult) {
	ctx := b.Ctx
	points := ctx.Fresh("char_points", pmml.TypeNumber)
	reasonVar := ctx.Fresh("char_reason", pmml.TypeString)
	diffVar := ctx.Fresh("char_diff", pmml.TypeNumber)
	baseline := ch.AttrOr("baselineScore", "0")
	charReason := ch.AttrOr("reasonCode", "")

	var stmts []*ast.Node
	stmts = append(stmts, ast.Declare(points, ast.NumberConst(baseline)))
	stmts = append(stmts, ast.Declare(reasonVar, ast.StringConst(charReason)))

	var pairs []*ast.Node
	for _, attr := range ch.ChildrenNamed("Attribute") {
		predEl := firstPredicateChild(attr)
		pred := b.CompilePredicate(predEl, resolve)
		score := attr.AttrOr("partialScore", "0")
		reason := attr.AttrOr("reasonCode", charReason)
		body := ast.Block(
			ast.Assign(points, ast.NumberConst(score)),
			ast.Assign(reasonVar, ast.StringConst(reason)),
		)
		pairs = append(pairs, pred, body)
	}
	if len(pairs) > 0 {
		stmts = append(stmts, ast.IfChain(pairs, nil))
	}
	stmts = append(stmts, ast.Declare(diffVar, ast.Call("-", pmml.TypeNumber, ast.Field(points), ast.NumberConst(baseline))))

	return stmts, characteristicResult{points: points, reasonVar: reasonVar, diffVar: diffVar}
}

// rankReasonCodes sorts the characteristics' diff/reason pairs by
// points-from-baseline, via the same compile-time bubble-sort network
// an ensemble's median combiner uses, and returns the reason fields in
// ranked order (rank 1 first).
func rankReasonCodes(ctx *compile.Context, results []characteristicResult, ascending bool) ([]*ast.Node, []*pmml.FieldDescription) {
	n := len(results)
	if n == 0 {
		return nil, nil
	}
	diffs := make([]*pmml.FieldDescription, n)
	codes := make([]*pmml.FieldDescription, n)
	var stmts []*ast.Node
	for i, r := range results {
		diffs[i] = ctx.Fresh("rank_diff", pmml.TypeNumber)
		codes[i] = ctx.Fresh("rank_code", pmml.TypeString)
		stmts = append(stmts, ast.Declare(diffs[i], ast.Field(r.diffVar)))
		stmts = append(stmts, ast.Declare(codes[i], ast.Field(r.reasonVar)))
	}
	if n > 1 {
		swapDiff := ctx.Fresh("rank_swap_diff", pmml.TypeNumber)
		swapCode := ctx.Fresh("rank_swap_code", pmml.TypeString)
		stmts = append(stmts, ast.Declare(swapDiff, ast.NumberConst("0")), ast.Declare(swapCode, ast.StringConst("")))
		op := ">"
		if ascending {
			op = "<"
		}
		for i := 0; i < n-1; i++ {
			for j := 0; j < n-1-i; j++ {
				cond := ast.Call(op, pmml.TypeBool, ast.Field(diffs[j+1]), ast.Field(diffs[j]))
				body := ast.Block(
					ast.Assign(swapDiff, ast.Field(diffs[j])),
					ast.Assign(diffs[j], ast.Field(diffs[j+1])),
					ast.Assign(diffs[j+1], ast.Field(swapDiff)),
					ast.Assign(swapCode, ast.Field(codes[j])),
					ast.Assign(codes[j], ast.Field(codes[j+1])),
					ast.Assign(codes[j+1], ast.Field(swapCode)),
				)
				stmts = append(stmts, ast.IfChain([]*ast.Node{cond, body}, nil))
			}
		}
	}
	return stmts, codes
}

// CompileScorecard compiles a Scorecard model (spec.md §4.5.4): every
// Characteristic contributes the partialScore of its first matching
// Attribute (falling back to the characteristic's baselineScore if none
// match), the final score is their sum plus the model's initialScore,
// and reason codes rank the characteristics by how far their
// contribution sits from its own baseline.
func CompileScorecard(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, _ := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	config.Function = pmml.FunctionRegression
	config.OutputType = pmml.TypeNumber
	config.OutputValueName = ctx.Fresh("predicted", pmml.TypeNumber)
	config.TargetField = config.OutputValueName

	preamble := append([]*ast.Node{}, prepared.Preamble...)

	charsEl := modelEl.FirstChildNamed("Characteristics")
	initialScore := modelEl.AttrOr("initialScore", "0")
	if charsEl == nil {
		preamble = append(preamble, ast.Declare(config.OutputValueName, ast.NumberConst(initialScore)))
		return ast.Block(preamble...), config
	}
	algorithm := charsEl.AttrOr("reasonCodeAlgorithm", "pointsBelow")

	var results []characteristicResult
	for _, ch := range charsEl.ChildrenNamed("Characteristic") {
		stmts, res := compileCharacteristic(b, ch, resolve)
		preamble = append(preamble, stmts...)
		results = append(results, res)
	}

	total := ast.NumberConst(initialScore)
	for _, r := range results {
		total = ast.Call("+", pmml.TypeNumber, total, ast.Field(r.points))
	}
	preamble = append(preamble, ast.Declare(config.OutputValueName, total))

	if modelEl.AttrOr("useReasonCodes", "true") == "true" && len(results) > 0 {
		rankStmts, codes := rankReasonCodes(ctx, results, algorithm == "pointsBelow")
		preamble = append(preamble, rankStmts...)
		config.ReasonCodes = codes
		config.ReasonCodeCount = len(codes)
	}

	return ast.Block(preamble...), config
}
