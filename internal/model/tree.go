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

// treeConfig threads the decisions a TreeModel's attributes make across
// the whole recursive walk: which missing-value strategy governs
// unmatched predicates, whether a fall-off-the-chain returns the
// enclosing node's own score, and the shared penalty/accumulator
// variables the aggregating strategies need.
type treeConfig struct {
	resolve              compile.Resolver
	returnLastPrediction bool
	strategy             string
	penaltyConst         string
	penaltyVar           *pmml.FieldDescription
	aggregating          bool
	totalRecords         *pmml.FieldDescription
	config               *pmml.ModelConfig
}

// CompileTree compiles a TreeModel (spec.md §4.5.1): a recursive
// predicate tree whose traversal strategy is governed by
// noTrueChildStrategy and missingValueStrategy.
func CompileTree(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, target := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))

	config := pmml.NewModelConfig()
	switch modelEl.AttrOr("functionName", "classification") {
	case "regression":
		config.Function = pmml.FunctionRegression
	default:
		config.Function = pmml.FunctionClassification
	}

	outType := pmml.TypeString
	if config.Function == pmml.FunctionRegression {
		outType = pmml.TypeNumber
	} else if target != nil {
		outType = target.Field.Type
	}
	config.OutputType = outType
	config.OutputValueName = ctx.Fresh("predicted", outType)
	config.TargetField = config.OutputValueName
	config.IDValueName = ctx.Fresh("node_id", pmml.TypeString)
	idInit := ast.Declare(config.IDValueName, ast.StringConst(""))

	if config.Function == pmml.FunctionClassification && target != nil && len(target.Field.Values) > 0 {
		config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("prob", pmml.TypeNumber, target.Field.Values)
		config.ConfidenceValues = ctx.BuildProbabilityOutputMap("conf", pmml.TypeNumber, target.Field.Values)
	}

	tc := &treeConfig{
		resolve:              prepared.Resolve,
		returnLastPrediction: modelEl.AttrOr("noTrueChildStrategy", "returnNullPrediction") == "returnLastPrediction",
		strategy:             modelEl.AttrOr("missingValueStrategy", "none"),
		config:               config,
	}

	preamble := append([]*ast.Node{}, prepared.Preamble...)
	preamble = append(preamble, idInit)

	// Every enumerated category gets a zero-initialised local up front:
	// whichever leaf fires only overwrites the categories it mentions, so
	// categories the firing leaf is silent about correctly read back as
	// zero instead of an undeclared name.
	if config.ProbabilityValueName != nil {
		for _, cat := range config.ProbabilityValueName.Order() {
			fd, _ := config.ProbabilityValueName.Get(cat)
			preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
		}
	}
	if config.ConfidenceValues != nil {
		for _, cat := range config.ConfidenceValues.Order() {
			fd, _ := config.ConfidenceValues.Get(cat)
			preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
		}
	}

	if tc.strategy == "aggregateNodes" || tc.strategy == "weightedConfidence" {
		tc.aggregating = true
		tc.totalRecords = ctx.Fresh("tree_total", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(tc.totalRecords, ast.NumberConst("0")))
	}

	if penalty, ok := modelEl.Attr("missingValuePenalty"); ok {
		tc.penaltyConst = penalty
		tc.penaltyVar = ctx.Fresh("tree_penalty", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(tc.penaltyVar, ast.NumberConst("1")))
	}

	rootNode := modelEl.FirstChildNamed("Node")
	if rootNode == nil {
		return ast.Block(preamble...), config
	}
	preamble = append(preamble, compileTreeNode(b, rootNode, tc))

	if tc.aggregating && config.ProbabilityValueName != nil {
		preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(tc.totalRecords))...)
	}

	if tc.penaltyVar != nil && config.ConfidenceValues != nil {
		for _, cat := range config.ConfidenceValues.Order() {
			fd, _ := config.ConfidenceValues.Get(cat)
			preamble = append(preamble, ast.Assign(fd, ast.Call("*", pmml.TypeNumber, ast.Field(fd), ast.Field(tc.penaltyVar))))
		}
	}

	return ast.Block(preamble...), config
}

func compileTreeNode(b *compile.Builder, node *xmldom.Element, tc *treeConfig) *ast.Node {
	children := node.ChildrenNamed("Node")
	if len(children) == 0 {
		return writeLeafScore(b, node, tc)
	}
	switch tc.strategy {
	case "defaultChild":
		return compileDefaultChildChildren(b, node, children, tc)
	case "aggregateNodes", "weightedConfidence":
		return compileAggregateChildren(b, children, tc)
	default:
		return compileChainChildren(b, node, children, tc)
	}
}

// compileChainChildren handles none/lastPrediction/nullPrediction: a
// plain if/elseif chain, with an extra missing-value arm ahead of a
// lastPrediction/nullPrediction child when its predicate's fields might
// be missing.
func compileChainChildren(b *compile.Builder, parent *xmldom.Element, children []*xmldom.Element, tc *treeConfig) *ast.Node {
	var pairs []*ast.Node
	for _, c := range children {
		predEl := firstPredicateChild(c)
		pred := b.CompilePredicate(predEl, tc.resolve)
		childBody := compileTreeNode(b, c, tc)
		if isSurrogatePredicateElement(predEl) && tc.penaltyVar != nil {
			childBody = ast.Block(applyPenalty(tc), childBody)
		}
		if tc.strategy == "lastPrediction" || tc.strategy == "nullPrediction" {
			var missingBody *ast.Node
			if tc.strategy == "lastPrediction" {
				missingBody = writeLeafScore(b, parent, tc)
			} else {
				missingBody = ast.Block()
			}
			pairs = append(pairs, missingGuard(pred), missingBody)
		}
		pairs = append(pairs, pred, childBody)
	}
	var elseBody *ast.Node
	if tc.returnLastPrediction {
		elseBody = writeLeafScore(b, parent, tc)
	}
	return ast.IfChain(pairs, elseBody)
}

// compileDefaultChildChildren handles the defaultChild strategy: the
// designated default fires on its own predicate OR when any sibling's
// predicate fields might be missing; every other child additionally
// requires that no earlier sibling's predicate was itself ambiguous
// (spec.md §4.5.1).
func compileDefaultChildChildren(b *compile.Builder, parent *xmldom.Element, children []*xmldom.Element, tc *treeConfig) *ast.Node {
	defaultID := parent.AttrOr("defaultChild", "")

	type childInfo struct {
		pred      *ast.Node
		guard     *ast.Node
		body      *ast.Node
		isDefault bool
	}
	infos := make([]childInfo, 0, len(children))
	for _, c := range children {
		predEl := firstPredicateChild(c)
		pred := b.CompilePredicate(predEl, tc.resolve)
		body := compileTreeNode(b, c, tc)
		id := c.AttrOr("id", "")
		isDefault := defaultID != "" && id == defaultID
		if (isDefault || isSurrogatePredicateElement(predEl)) && tc.penaltyVar != nil {
			body = ast.Block(applyPenalty(tc), body)
		}
		infos = append(infos, childInfo{pred: pred, guard: missingGuard(pred), body: body, isDefault: isDefault})
	}

	var anyMissing *ast.Node
	for _, ci := range infos {
		if ci.isDefault {
			continue
		}
		if anyMissing == nil {
			anyMissing = ci.guard
		} else {
			anyMissing = orNode(anyMissing, ci.guard)
		}
	}

	var pairs []*ast.Node
	var earlierGuards []*ast.Node
	for _, ci := range infos {
		cond := ci.pred
		if ci.isDefault {
			if anyMissing != nil {
				cond = orNode(cond, anyMissing)
			}
		} else {
			for _, g := range earlierGuards {
				cond = andNode(cond, notNode(g))
			}
			earlierGuards = append(earlierGuards, ci.guard)
		}
		pairs = append(pairs, cond, ci.body)
	}

	var elseBody *ast.Node
	if tc.returnLastPrediction {
		elseBody = writeLeafScore(b, parent, tc)
	}
	return ast.IfChain(pairs, elseBody)
}

// compileAggregateChildren handles aggregateNodes/weightedConfidence:
// every child is tested independently (a block of plain ifs, not a
// chain) and contributes its leaves' distributions into the running
// accumulators regardless of what its siblings did.
func compileAggregateChildren(b *compile.Builder, children []*xmldom.Element, tc *treeConfig) *ast.Node {
	var stmts []*ast.Node
	for _, c := range children {
		predEl := firstPredicateChild(c)
		pred := b.CompilePredicate(predEl, tc.resolve)
		body := compileTreeNode(b, c, tc)
		if isSurrogatePredicateElement(predEl) && tc.penaltyVar != nil {
			body = ast.Block(applyPenalty(tc), body)
		}
		stmts = append(stmts, ast.IfChain([]*ast.Node{pred, body}, nil))
	}
	return ast.Block(stmts...)
}

func applyPenalty(tc *treeConfig) *ast.Node {
	return ast.Assign(tc.penaltyVar, ast.Call("*", pmml.TypeNumber, ast.Field(tc.penaltyVar), ast.NumberConst(tc.penaltyConst)))
}

// writeLeafScore renders one Node's own score/ScoreDistribution: a
// direct assignment for the single-path strategies, or a running
// accumulation for aggregateNodes/weightedConfidence.
func writeLeafScore(b *compile.Builder, node *xmldom.Element, tc *treeConfig) *ast.Node {
	ctx := b.Ctx
	config := tc.config
	dists := node.ChildrenNamed("ScoreDistribution")
	var stmts []*ast.Node

	if !tc.aggregating {
		if scoreText, ok := node.Attr("score"); ok {
			stmts = append(stmts, ast.Assign(config.OutputValueName, compile.LiteralFor(config.OutputType, scoreText)))
		} else if best, ok := argMaxCategory(dists); ok {
			stmts = append(stmts, ast.Assign(config.OutputValueName, compile.LiteralFor(config.OutputType, best)))
		}
		if config.IDValueName != nil {
			if id, ok := node.Attr("id"); ok {
				stmts = append(stmts, ast.Assign(config.IDValueName, ast.StringConst(id)))
			}
		}
		if len(dists) > 0 && config.ProbabilityValueName != nil {
			total := sumConstant(recordCounts(dists))
			for _, d := range dists {
				cat, _ := d.Attr("value")
				rc := d.AttrOr("recordCount", "0")
				fd := ctx.GetOrAddCategory(config.ProbabilityValueName, "prob", pmml.TypeNumber, cat)
				var probText string
				switch {
				case hasAttr(d, "probability"):
					probText, _ = d.Attr("probability")
				case parseFloat(total) != 0:
					probText = formatFloat(parseFloat(rc) / parseFloat(total))
				default:
					probText = "0"
				}
				stmts = append(stmts, ast.Assign(fd, ast.NumberConst(probText)))
				if config.ConfidenceValues != nil {
					confFd := ctx.GetOrAddCategory(config.ConfidenceValues, "conf", pmml.TypeNumber, cat)
					confText := d.AttrOr("confidence", probText)
					stmts = append(stmts, ast.Assign(confFd, ast.NumberConst(confText)))
				}
			}
		}
		return ast.Block(stmts...)
	}

	total := sumConstant(recordCounts(dists))
	if tc.totalRecords != nil && total != "0" {
		stmts = append(stmts, ast.Assign(tc.totalRecords, ast.Call("+", pmml.TypeNumber, ast.Field(tc.totalRecords), ast.NumberConst(total))))
	}
	for _, d := range dists {
		cat, _ := d.Attr("value")
		rc := d.AttrOr("recordCount", "0")
		if config.ProbabilityValueName != nil {
			fd := ctx.GetOrAddCategory(config.ProbabilityValueName, "prob", pmml.TypeNumber, cat)
			stmts = append(stmts, ast.Assign(fd, ast.Call("+", pmml.TypeNumber, ast.Field(fd), ast.NumberConst(rc))))
		}
		if config.ConfidenceValues != nil {
			weight := rc
			if tc.strategy == "weightedConfidence" {
				weight = d.AttrOr("confidence", rc)
			}
			fd := ctx.GetOrAddCategory(config.ConfidenceValues, "conf", pmml.TypeNumber, cat)
			stmts = append(stmts, ast.Assign(fd, ast.Call("+", pmml.TypeNumber, ast.Field(fd), ast.NumberConst(weight))))
		}
	}
	return ast.Block(stmts...)
}

func hasAttr(el *xmldom.Element, name string) bool {
	_, ok := el.Attr(name)
	return ok
}

// argMaxCategory picks the ScoreDistribution entry with the highest
// recordCount for a leaf that declares no explicit score attribute,
// ties resolved to the first-seen category by strict greater-than
// comparison (spec.md §4.5.1; original_source/model/treemodel.cpp's
// bestValue/bestRecordCount loop).
func argMaxCategory(dists []*xmldom.Element) (string, bool) {
	if len(dists) == 0 {
		return "", false
	}
	bestCat, _ := dists[0].Attr("value")
	bestCount := parseFloat(dists[0].AttrOr("recordCount", "0"))
	for _, d := range dists[1:] {
		count := parseFloat(d.AttrOr("recordCount", "0"))
		if count > bestCount {
			bestCount = count
			bestCat, _ = d.Attr("value")
		}
	}
	return bestCat, true
}

func recordCounts(dists []*xmldom.Element) []string {
	out := make([]string, len(dists))
	for i, d := range dists {
		out[i] = d.AttrOr("recordCount", "0")
	}
	return out
}
