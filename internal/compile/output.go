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
)

// BuildProbabilityOutputMap creates a fresh field description
// for every observed category of a classification target, per spec.md
// §4.5 "Probability map construction".
func (c *Context) BuildProbabilityOutputMap(prefix string, typ pmml.ValueType, values []string) *pmml.ProbabilityMap {
	m := pmml.NewProbabilityMap()
	for _, v := range values {
		fd := c.Fresh(prefix+"_"+v, typ)
		m.Set(v, fd)
	}
	return m
}

// GetOrAddCategory returns the field for category, creating a fresh
// temporary field if this is the first time the category is seen (used
// when an ensemble segment contributes a category the top-level target
// declaration did not enumerate).
func (c *Context) GetOrAddCategory(m *pmml.ProbabilityMap, prefix string, typ pmml.ValueType, category string) *pmml.FieldDescription {
	if fd, ok := m.Get(category); ok {
		return fd
	}
	fd := c.Fresh(prefix+"_"+category, typ)
	m.Set(category, fd)
	return fd
}

// ApplyTargetPostProcessing applies default value, min/max clipping,
// rescaling and optional integer casting to a numeric regression target,
// per spec.md §4.5 "Target post-processing".
type TargetSpec struct {
	HasDefault     bool
	Default        string
	HasMin, HasMax bool
	Min, Max       string
	RescaleFactor  string // "" means 1
	RescaleConst   string // "" means 0
	CastInteger    string // "", "round", "ceiling", "floor"
}

func (b *Builder) ApplyTargetPostProcessing(value *ast.Node, spec TargetSpec) *ast.Node {
	out := value
	if spec.HasDefault {
		out = ast.Default(out, ast.NumberConst(spec.Default))
	}
	if spec.RescaleFactor != "" || spec.RescaleConst != "" {
		factor := spec.RescaleFactor
		if factor == "" {
			factor = "1"
		}
		scaled := ast.Call("*", pmml.TypeNumber, out, ast.NumberConst(factor))
		if spec.RescaleConst != "" {
			scaled = ast.Call("+", pmml.TypeNumber, scaled, ast.NumberConst(spec.RescaleConst))
		}
		out = scaled
	}
	if spec.HasMin {
		out = ast.Call("max", pmml.TypeNumber, out, ast.NumberConst(spec.Min))
	}
	if spec.HasMax {
		out = ast.Call("min", pmml.TypeNumber, out, ast.NumberConst(spec.Max))
	}
	if spec.CastInteger != "" {
		out = ast.Call(spec.CastInteger, pmml.TypeNumber, out)
	}
	return out
}

// DisplayValueMap maps a predicted category to a human-readable display
// string via a surrogate-style lookup chain, per spec.md §4.5
// "Display-value mapping".
func (b *Builder) DisplayValueMap(predicted *ast.Node, displayValues map[string]string, order []string) *ast.Node {
	if len(order) == 0 {
		return predicted
	}
	var pairs []*ast.Node
	for _, cat := range order {
		cond := b.binaryOp("==", predicted, ast.StringConst(cat))
		pairs = append(pairs, cond, ast.StringConst(displayValues[cat]))
	}
	return ast.IfChain(pairs, predicted)
}

// OutputFeature is the "feature" attribute of an OutputField element.
type OutputFeature int

const (
	FeaturePredictedValue OutputFeature = iota
	FeaturePredictedDisplayValue
	FeatureEntityID
	FeatureProbability
	FeatureConfidence
	FeatureReasonCode
	FeatureTransformedValue
)

// OutputFieldSpec describes one <OutputField> to be assembled.
type OutputFieldSpec struct {
	Target   *pmml.FieldDescription
	Feature  OutputFeature
	Value    string // category key for probability/confidence features
	RankOrig int    // 1-based rank for reasonCode features
}

// AssembleOutputFields walks the declared output fields and emits an
// assignment from the appropriate intermediate into each, per spec.md
// §4.5 "Output field assembly".
func (b *Builder) AssembleOutputFields(specs []OutputFieldSpec, config *pmml.ModelConfig, reasonCodes []*pmml.FieldDescription) []*ast.Node {
	var stmts []*ast.Node
	for _, spec := range specs {
		var src *ast.Node
		switch spec.Feature {
		case FeaturePredictedValue, FeaturePredictedDisplayValue:
			if config.OutputValueName == nil {
				continue
			}
			src = ast.Field(config.OutputValueName)
		case FeatureEntityID:
			if config.IDValueName == nil {
				continue
			}
			src = ast.Field(config.IDValueName)
		case FeatureProbability:
			if config.ProbabilityValueName == nil {
				continue
			}
			fd, ok := config.ProbabilityValueName.Get(spec.Value)
			if !ok {
				continue
			}
			src = ast.Field(fd)
		case FeatureConfidence:
			if config.ConfidenceValues == nil {
				continue
			}
			fd, ok := config.ConfidenceValues.Get(spec.Value)
			if !ok {
				continue
			}
			src = ast.Field(fd)
		case FeatureReasonCode:
			idx := spec.RankOrig - 1
			if idx < 0 || idx >= len(reasonCodes) {
				continue
			}
			src = ast.Field(reasonCodes[idx])
		case FeatureTransformedValue:
			if config.TargetField == nil {
				continue
			}
			src = ast.Field(config.TargetField)
		default:
			continue
		}
		stmts = append(stmts, ast.Assign(spec.Target, b.CoerceToType(src, spec.Target.Field.Type)))
	}
	return stmts
}

// PickWinner emits code that finds the arg-max over probabilitiesOutputMap
// (ties resolve to the earliest key in insertion order) and stores it in
// config.OutputValueName and its probability in config.BestProbabilityName,
// per spec.md §4.5 "Winner selection" and §8 property 5.
func (b *Builder) PickWinner(config *pmml.ModelConfig) []*ast.Node {
	if config.ProbabilityValueName == nil || config.ProbabilityValueName.Len() == 0 {
		return nil
	}
	order := config.ProbabilityValueName.Order()

	bestVar := b.Ctx.Fresh("best_prob", pmml.TypeNumber)
	winVar := b.Ctx.Fresh("winner", pmml.TypeString)

	first, _ := config.ProbabilityValueName.Get(order[0])
	stmts := []*ast.Node{
		ast.Declare(bestVar, ast.Field(first)),
		ast.Declare(winVar, ast.StringConst(order[0])),
	}
	for _, cat := range order[1:] {
		fd, _ := config.ProbabilityValueName.Get(cat)
		cond := b.binaryOp(">", ast.Field(fd), ast.Field(bestVar))
		body := ast.Block(
			ast.Assign(bestVar, ast.Field(fd)),
			ast.Assign(winVar, ast.StringConst(cat)),
		)
		stmts = append(stmts, ast.IfChain([]*ast.Node{cond, body}, nil))
	}
	if config.OutputValueName != nil {
		stmts = append(stmts, ast.Assign(config.OutputValueName, ast.Field(winVar)))
	}
	if config.BestProbabilityName != nil {
		stmts = append(stmts, ast.Assign(config.BestProbabilityName, ast.Field(bestVar)))
	}
	return stmts
}

// NormalizeProbabilities emits code dividing each probability field by
// total so the map sums to 1, per spec.md §4.5 "Probability
// normalisation".
func (b *Builder) NormalizeProbabilities(m *pmml.ProbabilityMap, total *ast.Node) []*ast.Node {
	var stmts []*ast.Node
	for _, cat := range m.Order() {
		fd, _ := m.Get(cat)
		stmts = append(stmts, ast.Assign(fd, ast.Call("/", pmml.TypeNumber, ast.Field(fd), total)))
	}
	return stmts
}

// NormalizeAndPickWinner composes NormalizeProbabilities and PickWinner,
// the combined helper spec.md §4.5 calls
// "normaliseProbabilitiesAndPickWinner".
func (b *Builder) NormalizeAndPickWinner(config *pmml.ModelConfig, total *ast.Node) []*ast.Node {
	var stmts []*ast.Node
	if total != nil {
		stmts = append(stmts, b.NormalizeProbabilities(config.ProbabilityValueName, total)...)
	}
	stmts = append(stmts, b.PickWinner(config)...)
	return stmts
}

// FindPredictedValueOutput scans a model element's declared output
// fields for the name bound to the "predictedValue" feature; used by
// callers assembling a ModelConfig before the model body is compiled.
func FindPredictedValueOutput(outputEl *xmldom.Element) string {
	if outputEl == nil {
		return ""
	}
	for _, f := range outputEl.ChildrenNamed("OutputField") {
		if f.AttrOr("feature", "predictedValue") == "predictedValue" {
			name, _ := f.Attr("name")
			return name
		}
	}
	return ""
}
