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

// ruleInfo is one flattened SimpleRule: a CompoundRule's predicate is
// folded into every rule nested beneath it, so the whole RuleSet
// reduces to a flat ordered list (spec.md §4.5.2).
type ruleInfo struct {
	pred       *ast.Node
	score      string
	weight     string
	confidence string
}

func flattenRules(b *compile.Builder, el *xmldom.Element, parentPred *ast.Node, resolve compile.Resolver, out *[]ruleInfo) {
	for _, c := range el.NonExtensionChildren() {
		switch c.Name {
		case "SimpleRule":
			predEl := firstPredicateChild(c)
			pred := b.CompilePredicate(predEl, resolve)
			if parentPred != nil {
				pred = andNode(parentPred, pred)
			}
			*out = append(*out, ruleInfo{
				pred:       pred,
				score:      c.AttrOr("score", ""),
				weight:     c.AttrOr("weight", "1"),
				confidence: c.AttrOr("confidence", "1"),
			})
		case "CompoundRule":
			predEl := firstPredicateChild(c)
			pred := b.CompilePredicate(predEl, resolve)
			if parentPred != nil {
				pred = andNode(parentPred, pred)
			}
			flattenRules(b, c, pred, resolve, out)
		}
	}
}

// CompileRuleSet compiles a RuleSetModel (spec.md §4.5.2). The
// RuleSelectionMethod criterion picks the control-flow shape: firstHit
// is a conditional chain, weightedMax keeps a running best-weight
// comparison, weightedSum accumulates per-category weight and picks
// the arg-max category at the end.
func CompileRuleSet(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, target := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	config.Function = pmml.FunctionClassification

	outType := pmml.TypeString
	if target != nil {
		outType = target.Field.Type
	}
	config.OutputType = outType
	config.OutputValueName = ctx.Fresh("predicted", outType)
	config.TargetField = config.OutputValueName

	preamble := append([]*ast.Node{}, prepared.Preamble...)

	ruleSetEl := modelEl.FirstChildNamed("RuleSet")
	if ruleSetEl == nil {
		return ast.Block(preamble...), config
	}

	criterion := "firstHit"
	if rsm := ruleSetEl.FirstChildNamed("RuleSelectionMethod"); rsm != nil {
		criterion = rsm.AttrOr("criterion", "firstHit")
	}

	hasTargetValues := target != nil && len(target.Field.Values) > 0
	if hasTargetValues && criterion != "weightedSum" {
		config.ConfidenceValues = ctx.BuildProbabilityOutputMap("conf", pmml.TypeNumber, target.Field.Values)
		for _, cat := range config.ConfidenceValues.Order() {
			fd, _ := config.ConfidenceValues.Get(cat)
			preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
		}
	}

	var rules []ruleInfo
	flattenRules(b, ruleSetEl, nil, resolve, &rules)

	switch {
	case criterion == "weightedMax":
		preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))
		preamble = append(preamble, compileWeightedMaxRules(ctx, config, rules)...)
	case criterion == "weightedSum" && hasTargetValues:
		config.ConfidenceValues = ctx.BuildProbabilityOutputMap("conf", pmml.TypeNumber, target.Field.Values)
		preamble = append(preamble, compileWeightedSumRules(b, config, rules)...)
	default:
		preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))
		preamble = append(preamble, compileFirstHitRules(config, ruleSetEl, outType, rules))
	}

	return ast.Block(preamble...), config
}

func compileFirstHitRules(config *pmml.ModelConfig, ruleSetEl *xmldom.Element, outType pmml.ValueType, rules []ruleInfo) *ast.Node {
	var pairs []*ast.Node
	for _, r := range rules {
		if r.score == "" {
			continue
		}
		body := []*ast.Node{ast.Assign(config.OutputValueName, compile.LiteralFor(outType, r.score))}
		if config.ConfidenceValues != nil {
			if fd, ok := config.ConfidenceValues.Get(r.score); ok {
				body = append(body, ast.Assign(fd, ast.NumberConst(r.confidence)))
			}
		}
		pairs = append(pairs, r.pred, ast.Block(body...))
	}
	var elseBody *ast.Node
	if def, ok := ruleSetEl.Attr("defaultScore"); ok {
		elseBody = ast.Assign(config.OutputValueName, compile.LiteralFor(outType, def))
	}
	return ast.IfChain(pairs, elseBody)
}

func compileWeightedMaxRules(ctx *compile.Context, config *pmml.ModelConfig, rules []ruleInfo) []*ast.Node {
	bestWeight := ctx.Fresh("best_weight", pmml.TypeNumber)
	stmts := []*ast.Node{ast.Declare(bestWeight, ast.NumberConst("-1"))}
	for _, r := range rules {
		if r.score == "" {
			continue
		}
		weightBeats := ast.Call(">", pmml.TypeBool, ast.NumberConst(r.weight), ast.Field(bestWeight))
		cond := andNode(r.pred, weightBeats)
		body := []*ast.Node{
			ast.Assign(bestWeight, ast.NumberConst(r.weight)),
			ast.Assign(config.OutputValueName, compile.LiteralFor(config.OutputType, r.score)),
		}
		if config.ConfidenceValues != nil {
			if fd, ok := config.ConfidenceValues.Get(r.score); ok {
				body = append(body, ast.Assign(fd, ast.NumberConst(r.confidence)))
			}
		}
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, ast.Block(body...)}, nil))
	}
	return stmts
}

// compileWeightedSumRules accumulates each rule's weight into a running
// per-category sum, then picks the arg-max category exactly as a
// classification tree's aggregateNodes strategy does.
func compileWeightedSumRules(b *compile.Builder, config *pmml.ModelConfig, rules []ruleInfo) []*ast.Node {
	ctx := b.Ctx
	sums := config.ConfidenceValues
	categories := sums.Order()
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("rule_sum", pmml.TypeNumber, categories)

	var stmts []*ast.Node
	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		stmts = append(stmts, ast.Declare(fd, ast.NumberConst("0")))
	}
	for _, r := range rules {
		if r.score == "" {
			continue
		}
		fd := ctx.GetOrAddCategory(config.ProbabilityValueName, "rule_sum", pmml.TypeNumber, r.score)
		body := ast.Assign(fd, ast.Call("+", pmml.TypeNumber, ast.Field(fd), ast.NumberConst(r.weight)))
		stmts = append(stmts, ast.IfChain([]*ast.Node{r.pred, body}, nil))
	}
	stmts = append(stmts, b.PickWinner(config)...)
	return stmts
}
