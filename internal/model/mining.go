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
	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
)

// compiledSegment is one Segmentation/Segment after its sub-model has
// been compiled: the segment's own predicate, its compiled body, the
// sub-model's element (needed to read its own Output, for modelChain),
// the sub-model's ModelConfig, and its declared weight.
//
// Every segment's body runs unconditionally, one after another, in the
// same block as the combination code that follows: PMML predicates
// gate which output(s) get forwarded or combined, not whether a
// sub-model's locals are declared. Nesting each sub-model's body inside
// an "if predicate then ... end" would scope its declared locals to
// that block alone, putting them out of reach of the combination code
// that reads them afterwards — this is the decision recorded in
// DESIGN.md resolving that hazard.
type compiledSegment struct {
	pred    *ast.Node
	body    *ast.Node
	modelEl *xmldom.Element
	cfg     *pmml.ModelConfig
	weight  string
}

// findSegmentModel returns a Segment's sub-model element: its only
// non-predicate, non-Extension child.
func findSegmentModel(seg *xmldom.Element) *xmldom.Element {
	for _, c := range seg.NonExtensionChildren() {
		if _, ok := modelCompilers[c.Name]; ok {
			return c
		}
	}
	return nil
}

// CompileMining compiles a MiningModel (spec.md §4.5.3): a Segmentation
// of predicate-gated sub-models combined by multipleModelMethod.
func CompileMining(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, target := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

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

	preamble := append([]*ast.Node{}, prepared.Preamble...)
	preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))

	if config.Function == pmml.FunctionClassification && target != nil && len(target.Field.Values) > 0 {
		config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("ens_prob", pmml.TypeNumber, target.Field.Values)
		for _, cat := range config.ProbabilityValueName.Order() {
			fd, _ := config.ProbabilityValueName.Get(cat)
			preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
		}
	}

	segEl := modelEl.FirstChildNamed("Segmentation")
	if segEl == nil {
		return ast.Block(preamble...), config
	}
	method := segEl.AttrOr("multipleModelMethod", "selectFirst")

	var segs []*compiledSegment
	for _, se := range segEl.ChildrenNamed("Segment") {
		predEl := firstPredicateChild(se)
		pred := b.CompilePredicate(predEl, resolve)
		subModelEl := findSegmentModel(se)
		if subModelEl == nil {
			continue
		}
		compileFn := modelCompilers[subModelEl.Name]
		subBody, subCfg := compileFn(b, subModelEl)

		preamble = append(preamble, subBody)
		if method == "modelChain" {
			if outEl := subModelEl.FirstChildNamed("Output"); outEl != nil {
				specs := parseOutputFields(ctx, subModelEl, subCfg)
				preamble = append(preamble, b.AssembleOutputFields(specs, subCfg, subCfg.ReasonCodes)...)
			}
		}

		segs = append(segs, &compiledSegment{
			pred:    pred,
			body:    subBody,
			modelEl: subModelEl,
			cfg:     subCfg,
			weight:  se.AttrOr("weight", "1"),
		})
	}

	if config.Function == pmml.FunctionClassification && (method == "sum" || method == "median") {
		ctx.Sink.Add(pmmlerr.UnsupportedCombination, segEl.Pos, "multipleModelMethod not valid for classification", method)
		return ast.Block(preamble...), config
	}

	switch method {
	case "selectFirst":
		preamble = append(preamble, compileSelectFirst(b, config, segs))
	case "selectAll", "modelChain":
		preamble = append(preamble, compileLastWins(b, config, segs)...)
	case "sum":
		preamble = append(preamble, compileSum(config, segs))
	case "average", "weightedAverage":
		preamble = append(preamble, compileAverage(b, config, segs, method == "weightedAverage")...)
	case "median":
		preamble = append(preamble, compileMedian(ctx, config, segs)...)
	case "max":
		preamble = append(preamble, compileMax(b, config, segs)...)
	case "majorityVote", "weightedMajorityVote":
		preamble = append(preamble, compileMajorityVote(b, config, segs, method == "weightedMajorityVote")...)
	default:
		preamble = append(preamble, compileSelectFirst(b, config, segs))
	}

	return ast.Block(preamble...), config
}

// forwardOutputs copies a sub-model's immediate results into the
// ensemble's own output fields.
func forwardOutputs(b *compile.Builder, config *pmml.ModelConfig, sub *pmml.ModelConfig) []*ast.Node {
	var stmts []*ast.Node
	if sub.OutputValueName != nil && config.OutputValueName != nil {
		stmts = append(stmts, ast.Assign(config.OutputValueName, b.CoerceToType(ast.Field(sub.OutputValueName), config.OutputValueName.Field.Type)))
	}
	if config.ProbabilityValueName != nil && sub.ProbabilityValueName != nil {
		for _, cat := range config.ProbabilityValueName.Order() {
			fd, ok := sub.ProbabilityValueName.Get(cat)
			if !ok {
				continue
			}
			topFd, _ := config.ProbabilityValueName.Get(cat)
			stmts = append(stmts, ast.Assign(topFd, ast.Field(fd)))
		}
	}
	return stmts
}

// compileSelectFirst picks the first segment whose predicate holds and
// forwards its outputs (spec.md §4.5.3 "selectFirst").
func compileSelectFirst(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment) *ast.Node {
	var pairs []*ast.Node
	for _, s := range segs {
		pairs = append(pairs, s.pred, ast.Block(forwardOutputs(b, config, s.cfg)...))
	}
	return ast.IfChain(pairs, nil)
}

// compileLastWins handles selectAll/modelChain: every segment already
// ran in document order above; the final segment's outputs are the
// ensemble's outputs (spec.md §4.5.3).
func compileLastWins(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment) []*ast.Node {
	if len(segs) == 0 {
		return nil
	}
	return forwardOutputs(b, config, segs[len(segs)-1].cfg)
}

func compileSum(config *pmml.ModelConfig, segs []*compiledSegment) *ast.Node {
	var sum *ast.Node
	for _, s := range segs {
		if s.cfg.OutputValueName == nil {
			continue
		}
		term := ast.Field(s.cfg.OutputValueName)
		if sum == nil {
			sum = term
		} else {
			sum = ast.Call("+", pmml.TypeNumber, sum, term)
		}
	}
	if sum == nil {
		sum = ast.NumberConst("0")
	}
	return ast.Assign(config.OutputValueName, sum)
}

// compileAverage handles average/weightedAverage: a compile-time-
// constant denominator (segment count or weight sum), applied to a
// numeric sum for regression or to every category of a summed
// probability map for classification (spec.md §4.5.3).
func compileAverage(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment, weighted bool) []*ast.Node {
	if config.Function == pmml.FunctionClassification {
		return compileProbabilityAverage(b, config, segs, weighted)
	}
	var sum *ast.Node
	var weights []string
	n := 0
	for _, s := range segs {
		if s.cfg.OutputValueName == nil {
			continue
		}
		n++
		weights = append(weights, s.weight)
		term := ast.Field(s.cfg.OutputValueName)
		if weighted {
			term = ast.Call("*", pmml.TypeNumber, term, ast.NumberConst(s.weight))
		}
		if sum == nil {
			sum = term
		} else {
			sum = ast.Call("+", pmml.TypeNumber, sum, term)
		}
	}
	if sum == nil {
		return []*ast.Node{ast.Assign(config.OutputValueName, ast.NumberConst("0"))}
	}
	denom := formatFloat(float64(n))
	if weighted {
		denom = sumConstant(weights)
	}
	avg := ast.Call("/", pmml.TypeNumber, sum, ast.NumberConst(denom))
	return []*ast.Node{ast.Assign(config.OutputValueName, avg)}
}

func compileProbabilityAverage(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment, weighted bool) []*ast.Node {
	var stmts []*ast.Node
	var weights []string
	for _, s := range segs {
		if s.cfg.ProbabilityValueName == nil {
			continue
		}
		weights = append(weights, s.weight)
		for _, cat := range config.ProbabilityValueName.Order() {
			fd, ok := s.cfg.ProbabilityValueName.Get(cat)
			if !ok {
				continue
			}
			topFd, _ := config.ProbabilityValueName.Get(cat)
			term := ast.Field(fd)
			if weighted {
				term = ast.Call("*", pmml.TypeNumber, term, ast.NumberConst(s.weight))
			}
			stmts = append(stmts, ast.Assign(topFd, ast.Call("+", pmml.TypeNumber, ast.Field(topFd), term)))
		}
	}
	if len(weights) == 0 {
		return stmts
	}
	total := formatFloat(float64(len(weights)))
	if weighted {
		total = sumConstant(weights)
	}
	stmts = append(stmts, b.NormalizeAndPickWinner(config, ast.NumberConst(total))...)
	return stmts
}

// compileMedian sorts the sub-outputs with a compile-time-generated
// bubble-sort network (the segment count is known at compile time) and
// reads off the centre element(s), per spec.md §4.5.3 "median".
func compileMedian(ctx *compile.Context, config *pmml.ModelConfig, segs []*compiledSegment) []*ast.Node {
	var vals []*pmml.FieldDescription
	for _, s := range segs {
		if s.cfg.OutputValueName != nil {
			vals = append(vals, s.cfg.OutputValueName)
		}
	}
	n := len(vals)
	if n == 0 {
		return []*ast.Node{ast.Assign(config.OutputValueName, ast.NumberConst("0"))}
	}

	temps := make([]*pmml.FieldDescription, n)
	var stmts []*ast.Node
	for i, v := range vals {
		temps[i] = ctx.Fresh("median_v", pmml.TypeNumber)
		stmts = append(stmts, ast.Declare(temps[i], ast.Field(v)))
	}
	if n > 1 {
		swapTmp := ctx.Fresh("median_swap", pmml.TypeNumber)
		stmts = append(stmts, ast.Declare(swapTmp, ast.NumberConst("0")))
		for i := 0; i < n-1; i++ {
			for j := 0; j < n-1-i; j++ {
				cond := ast.Call(">", pmml.TypeBool, ast.Field(temps[j]), ast.Field(temps[j+1]))
				body := ast.Block(
					ast.Assign(swapTmp, ast.Field(temps[j])),
					ast.Assign(temps[j], ast.Field(temps[j+1])),
					ast.Assign(temps[j+1], ast.Field(swapTmp)),
				)
				stmts = append(stmts, ast.IfChain([]*ast.Node{cond, body}, nil))
			}
		}
	}

	var median *ast.Node
	if n%2 == 1 {
		median = ast.Field(temps[n/2])
	} else {
		median = ast.Call("/", pmml.TypeNumber,
			ast.Call("+", pmml.TypeNumber, ast.Field(temps[n/2-1]), ast.Field(temps[n/2])),
			ast.NumberConst("2"))
	}
	stmts = append(stmts, ast.Assign(config.OutputValueName, median))
	return stmts
}

// compileMax dispatches regression's plain numeric max against
// classification's "highest best-probability wins, ties split 1/k"
// rule (spec.md §4.5.3 "max").
func compileMax(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment) []*ast.Node {
	if config.Function == pmml.FunctionRegression {
		var vals []*ast.Node
		for _, s := range segs {
			if s.cfg.OutputValueName != nil {
				vals = append(vals, ast.Field(s.cfg.OutputValueName))
			}
		}
		if len(vals) == 0 {
			return []*ast.Node{ast.Assign(config.OutputValueName, ast.NumberConst("0"))}
		}
		return []*ast.Node{ast.Assign(config.OutputValueName, ast.Call("max", pmml.TypeNumber, vals...))}
	}
	return compileMaxClassification(b, config, segs)
}

// maxProbability emits code computing the highest category probability
// within one probability map, mirroring PickWinner's comparison chain
// but returning only the value (winner-selection across segments needs
// the value, not the category name).
func maxProbability(ctx *compile.Context, m *pmml.ProbabilityMap) (*pmml.FieldDescription, []*ast.Node) {
	order := m.Order()
	best := ctx.Fresh("seg_best_prob", pmml.TypeNumber)
	first, _ := m.Get(order[0])
	stmts := []*ast.Node{ast.Declare(best, ast.Field(first))}
	for _, cat := range order[1:] {
		fd, _ := m.Get(cat)
		cond := ast.Call(">", pmml.TypeBool, ast.Field(fd), ast.Field(best))
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, ast.Assign(best, ast.Field(fd))}, nil))
	}
	return best, stmts
}

func compileMaxClassification(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment) []*ast.Node {
	ctx := b.Ctx
	var stmts []*ast.Node

	type segBest struct {
		seg  *compiledSegment
		best *pmml.FieldDescription
	}
	var bests []segBest
	for _, s := range segs {
		if s.cfg.ProbabilityValueName == nil {
			continue
		}
		best, bstmts := maxProbability(ctx, s.cfg.ProbabilityValueName)
		stmts = append(stmts, bstmts...)
		bests = append(bests, segBest{seg: s, best: best})
	}
	if len(bests) == 0 {
		return stmts
	}

	globalBest := ctx.Fresh("ens_best_prob", pmml.TypeNumber)
	stmts = append(stmts, ast.Declare(globalBest, ast.Field(bests[0].best)))
	for _, sb := range bests[1:] {
		cond := ast.Call(">", pmml.TypeBool, ast.Field(sb.best), ast.Field(globalBest))
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, ast.Assign(globalBest, ast.Field(sb.best))}, nil))
	}

	tieCount := ctx.Fresh("ens_tie_count", pmml.TypeNumber)
	stmts = append(stmts, ast.Declare(tieCount, ast.NumberConst("0")))
	for _, sb := range bests {
		cond := ast.Call("==", pmml.TypeBool, ast.Field(sb.best), ast.Field(globalBest))
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, ast.Assign(tieCount, ast.Call("+", pmml.TypeNumber, ast.Field(tieCount), ast.NumberConst("1")))}, nil))
	}

	for _, sb := range bests {
		cond := ast.Call("==", pmml.TypeBool, ast.Field(sb.best), ast.Field(globalBest))
		body := forwardOutputs(b, config, sb.seg.cfg)
		if config.ProbabilityValueName != nil {
			share := ast.Call("/", pmml.TypeNumber, ast.NumberConst("1"), ast.Field(tieCount))
			for _, cat := range config.ProbabilityValueName.Order() {
				topFd, _ := config.ProbabilityValueName.Get(cat)
				body = append(body, ast.Assign(topFd, ast.Call("+", pmml.TypeNumber, ast.Field(topFd), share)))
			}
		}
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, ast.Block(body...)}, nil))
	}
	return stmts
}

// compileMajorityVote increments a per-category count whenever a
// sub-model predicts that category, then normalises and picks the
// winner exactly as a tree's aggregateNodes strategy does (spec.md
// §4.5.3 "majorityVote"/"weightedMajorityVote").
func compileMajorityVote(b *compile.Builder, config *pmml.ModelConfig, segs []*compiledSegment, weighted bool) []*ast.Node {
	if config.ProbabilityValueName == nil {
		return nil
	}
	var stmts []*ast.Node
	var weights []string
	for _, s := range segs {
		if s.cfg.OutputValueName == nil {
			continue
		}
		weights = append(weights, s.weight)
		increment := ast.NumberConst("1")
		if weighted {
			increment = ast.NumberConst(s.weight)
		}
		for _, cat := range config.ProbabilityValueName.Order() {
			topFd, _ := config.ProbabilityValueName.Get(cat)
			cond := ast.Call("==", pmml.TypeBool, ast.Field(s.cfg.OutputValueName), ast.StringConst(cat))
			body := ast.Assign(topFd, ast.Call("+", pmml.TypeNumber, ast.Field(topFd), increment))
			stmts = append(stmts, ast.IfChain([]*ast.Node{cond, body}, nil))
		}
	}
	if len(weights) == 0 {
		return stmts
	}
	total := formatFloat(float64(len(weights)))
	if weighted {
		total = sumConstant(weights)
	}
	stmts = append(stmts, b.NormalizeAndPickWinner(config, ast.NumberConst(total))...)
	return stmts
}
