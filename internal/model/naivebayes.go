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
	"math"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

// gaussianDensity builds the normal probability density of x given a
// continuous BayesInput's per-class mean/variance.
func gaussianDensity(x *ast.Node, mean, variance string) *ast.Node {
	diff := ast.Call("-", pmml.TypeNumber, x, ast.NumberConst(mean))
	exponent := ast.Call("unary-minus", pmml.TypeNumber,
		ast.Call("/", pmml.TypeNumber,
			ast.Call("^", pmml.TypeNumber, diff, ast.NumberConst("2")),
			ast.NumberConst(formatFloat(2*parseFloat(variance)))))
	numerator := ast.Call("exp", pmml.TypeNumber, exponent)
	denom := ast.Call("sqrt", pmml.TypeNumber, ast.NumberConst(formatFloat(2*math.Pi*parseFloat(variance))))
	return ast.Call("/", pmml.TypeNumber, numerator, denom)
}

// CompileNaiveBayes compiles a NaiveBayesModel (spec.md §4.5.4): each
// target category starts at its prior count and is multiplied, per
// BayesInput, by a discrete field's conditional frequency or a
// continuous field's Gaussian density; the resulting likelihoods are
// then normalised and reduced the same way every classifier's
// probability map is.
func CompileNaiveBayes(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
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

	var categories []string
	priorCounts := map[string]string{}
	if bo := modelEl.FirstChildNamed("BayesOutput"); bo != nil {
		if tvc := bo.FirstChildNamed("TargetValueCounts"); tvc != nil {
			for _, c := range tvc.ChildrenNamed("TargetValueCount") {
				val, _ := c.Attr("value")
				categories = append(categories, val)
				priorCounts[val] = c.AttrOr("count", "0")
			}
		}
	}
	if len(categories) == 0 && target != nil {
		categories = target.Field.Values
	}
	if len(categories) == 0 {
		return ast.Block(preamble...), config
	}
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("nb_lik", pmml.TypeNumber, categories)

	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		prior := priorCounts[cat]
		if prior == "" {
			prior = "1"
		}
		preamble = append(preamble, ast.Declare(fd, ast.NumberConst(prior)))
	}

	threshold := modelEl.AttrOr("threshold", "0.001")

	if bi := modelEl.FirstChildNamed("BayesInputs"); bi != nil {
		for _, input := range bi.ChildrenNamed("BayesInput") {
			name := input.AttrOr("fieldName", "")
			fd, ok := resolve(name)
			if !ok {
				continue
			}
			if tvs := input.FirstChildNamed("TargetValueStats"); tvs != nil {
				for _, s := range tvs.ChildrenNamed("TargetValueStat") {
					catVal, _ := s.Attr("value")
					catFd, ok := config.ProbabilityValueName.Get(catVal)
					if !ok {
						continue
					}
					gd := s.FirstChildNamed("GaussianDistribution")
					if gd == nil {
						continue
					}
					density := gaussianDensity(ast.Field(fd), gd.AttrOr("mean", "0"), gd.AttrOr("variance", "1"))
					preamble = append(preamble, ast.Assign(catFd, ast.Call("*", pmml.TypeNumber, ast.Field(catFd), density)))
				}
				continue
			}

			for _, pc := range input.ChildrenNamed("PairCounts") {
				value, _ := pc.Attr("value")
				tvc := pc.FirstChildNamed("TargetValueCounts")
				if tvc == nil {
					continue
				}
				counts := map[string]string{}
				var total float64
				for _, c := range tvc.ChildrenNamed("TargetValueCount") {
					v, _ := c.Attr("value")
					cnt := c.AttrOr("count", "0")
					counts[v] = cnt
					total += parseFloat(cnt)
				}
				cond := ast.Call("==", pmml.TypeBool, ast.Field(fd), compile.LiteralFor(fd.Field.Type, value))
				var body []*ast.Node
				for _, cat := range categories {
					catFd, _ := config.ProbabilityValueName.Get(cat)
					likelihood := threshold
					if cnt, ok := counts[cat]; ok && total != 0 {
						likelihood = formatFloat(parseFloat(cnt) / total)
					}
					body = append(body, ast.Assign(catFd, ast.Call("*", pmml.TypeNumber, ast.Field(catFd), ast.NumberConst(likelihood))))
				}
				preamble = append(preamble, ast.IfChain([]*ast.Node{cond, ast.Block(body...)}, nil))
			}
		}
	}

	var total *ast.Node
	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		if total == nil {
			total = ast.Field(fd)
		} else {
			total = ast.Call("+", pmml.TypeNumber, total, ast.Field(fd))
		}
	}
	totalVar := ctx.Fresh("nb_total", pmml.TypeNumber)
	preamble = append(preamble, ast.Declare(totalVar, total))
	preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(totalVar))...)

	return ast.Block(preamble...), config
}
