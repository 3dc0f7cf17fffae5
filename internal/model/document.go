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

// Package model holds one compiler per PMML model kind (spec.md §4.5,
// component C6) plus the root document driver that ties the whole
// pipeline together: it discovers output fields, initialises the
// conversion context's data dictionary, selects a model compiler, and
// appends the final return-statement packager (spec.md §2).
package model

import (
	"strconv"
	"strings"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
)

// OutputPackaging selects how the top-level return statement packages
// its values, mirroring luaemit.OutputFormat without introducing a
// dependency from this package on the emitter.
type OutputPackaging int

const (
	ReturnMultiValue OutputPackaging = iota
	ReturnTable
)

// modelCompilers is the closed set of top-level PMML model elements
// this compiler recognises (spec.md §1's list of model kinds).
var modelCompilers = map[string]func(b *compile.Builder, el *xmldom.Element) (*ast.Node, *pmml.ModelConfig){
	"TreeModel":                 CompileTree,
	"RuleSetModel":              CompileRuleSet,
	"MiningModel":               CompileMining,
	"RegressionModel":           CompileRegression,
	"NaiveBayesModel":           CompileNaiveBayes,
	"SupportVectorMachineModel": CompileSVM,
	"Scorecard":                 CompileScorecard,
	"NeuralNetwork":             CompileNeuralNetwork,
	"ClusteringModel":           CompileClustering,
	"NearestNeighborModel":      CompileNearestNeighbor,
	"AssociationModel":          CompileAssociationRules,
}

// findModelElement returns the first direct child of root that is one of
// the recognised model elements.
func findModelElement(root *xmldom.Element) *xmldom.Element {
	for _, c := range root.NonExtensionChildren() {
		if _, ok := modelCompilers[c.Name]; ok {
			return c
		}
	}
	return nil
}

// CompileDocument is the root compiler (spec.md §2). It walks the
// top-level PMML document, populates ctx's input dictionary from
// DataDictionary, selects the model compiler matching the document's
// model element, and packages the model's outputs into a return
// statement.
func CompileDocument(root *xmldom.Element, ctx *compile.Context, cat *catalogue.Catalogue, packaging OutputPackaging) (*ast.Node, error) {
	b := compile.NewBuilder(ctx, cat)

	dict := root.FirstChildNamed("DataDictionary")
	if dict == nil {
		ctx.Sink.Add(pmmlerr.ParseError, root.Pos, "document has no DataDictionary", "")
		return nil, ctx.Sink.Err()
	}
	parseDataDictionary(ctx, dict)

	modelEl := findModelElement(root)
	if modelEl == nil {
		ctx.Sink.Add(pmmlerr.ParseError, root.Pos, "document has no supported model element", "")
		return nil, ctx.Sink.Err()
	}

	compileFn := modelCompilers[modelEl.Name]
	body, config := compileFn(b, modelEl)
	if body == nil {
		body = ast.Block()
	}
	if config == nil {
		config = pmml.NewModelConfig()
	}

	outputSpecs := parseOutputFields(ctx, modelEl, config)
	assembly := b.AssembleOutputFields(outputSpecs, config, config.ReasonCodes)

	stmts := []*ast.Node{body}
	stmts = append(stmts, assembly...)
	stmts = append(stmts, packageReturn(ctx, packaging))

	if ctx.Sink.Failed() {
		return nil, ctx.Sink.Err()
	}
	return ast.Block(stmts...), nil
}

// packageReturn builds the final return statement over the declared
// output fields, in declaration order, either as multiple values or as
// a single table keyed by each output's emitted name (spec.md §6).
func packageReturn(ctx *compile.Context, packaging OutputPackaging) *ast.Node {
	outputs := ctx.OutputsInOrder()
	values := make([]*ast.Node, len(outputs))
	names := make([]string, len(outputs))
	for i, o := range outputs {
		values[i] = ast.Field(o)
		names[i] = o.LuaName
	}
	if packaging == ReturnTable {
		return ast.ReturnTable(names, values)
	}
	return ast.Return(values...)
}

// parseDataDictionary declares every DataField as a data-dictionary
// input (spec.md §3). Categorical/ordinal fields carry their observed
// Value list in declaration order, which winner-selection and set-
// membership predicates rely on later.
func parseDataDictionary(ctx *compile.Context, dict *xmldom.Element) {
	for _, df := range dict.ChildrenNamed("DataField") {
		name, _ := df.Attr("name")
		valueType := pmml.DataTypeFromString(df.AttrOr("dataType", "string"))
		opType := pmml.OpTypeFromString(df.AttrOr("optype", "categorical"))
		var values []string
		for _, v := range df.ChildrenNamed("Value") {
			if v.AttrOr("property", "valid") != "valid" {
				continue
			}
			val, _ := v.Attr("value")
			values = append(values, val)
		}
		ctx.Declare(name, pmml.DataField{Type: valueType, OpType: opType, Values: values}, pmml.OriginDataDictionary, df.Pos)
	}
}

// parseMiningSchema reads a model element's MiningSchema into mining
// field annotations (spec.md §3) plus a lookup to the target field, if
// declared. Active/predicted fields not found in the raw dictionary are
// reported as binding failures.
func parseMiningSchema(ctx *compile.Context, modelEl *xmldom.Element) (fields []pmml.MiningField, names []string, target *pmml.FieldDescription) {
	schema := modelEl.FirstChildNamed("MiningSchema")
	if schema == nil {
		return nil, nil, nil
	}
	for _, mf := range schema.ChildrenNamed("MiningField") {
		name, _ := mf.Attr("name")
		fd, ok := ctx.Lookup(name)
		if !ok {
			ctx.Sink.Add(pmmlerr.BindingFailure, mf.Pos, "unknown field in MiningSchema", name)
			continue
		}
		usage := mf.AttrOr("usageType", "active")
		if usage == "predicted" || usage == "target" {
			target = fd
		}
		m := pmml.NewMiningField(fd)
		if rv, ok := mf.Attr("missingValueReplacement"); ok {
			m.HasReplacement = true
			m.ReplacementValue = rv
		}
		m.Outlier = pmml.OutlierTreatmentFromString(mf.AttrOr("outliers", "asIs"))
		if lv, ok := mf.Attr("lowValue"); ok {
			m.HasMin = true
			m.Min = parseFloatOr(lv, 0)
		}
		if hv, ok := mf.Attr("highValue"); ok {
			m.HasMax = true
			m.Max = parseFloatOr(hv, 0)
		}
		fields = append(fields, m)
		names = append(names, name)
	}
	return fields, names, target
}

func parseFloatOr(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// OutputFeatureOf parses the feature attribute of an OutputField,
// defaulting to predictedValue the way the PMML spec does for an
// unspecified attribute.
func OutputFeatureOf(el *xmldom.Element) compile.OutputFeature {
	switch el.AttrOr("feature", "predictedValue") {
	case "predictedValue":
		return compile.FeaturePredictedValue
	case "predictedDisplayValue":
		return compile.FeaturePredictedDisplayValue
	case "entityId":
		return compile.FeatureEntityID
	case "probability":
		return compile.FeatureProbability
	case "confidence":
		return compile.FeatureConfidence
	case "reasonCode":
		return compile.FeatureReasonCode
	case "transformedValue":
		return compile.FeatureTransformedValue
	default:
		return compile.FeaturePredictedValue
	}
}

// parseOutputFields declares every <Output><OutputField> as an output-
// origin field and builds the spec list AssembleOutputFields consumes.
func parseOutputFields(ctx *compile.Context, modelEl *xmldom.Element, config *pmml.ModelConfig) []compile.OutputFieldSpec {
	outEl := modelEl.FirstChildNamed("Output")
	if outEl == nil {
		return nil
	}
	var specs []compile.OutputFieldSpec
	for _, f := range outEl.ChildrenNamed("OutputField") {
		name, _ := f.Attr("name")
		valueType := pmml.DataTypeFromString(f.AttrOr("dataType", "string"))
		fd := ctx.Declare(name, pmml.DataField{Type: valueType, OpType: pmml.OpInvalid}, pmml.OriginOutput, f.Pos)
		feature := OutputFeatureOf(f)
		spec := compile.OutputFieldSpec{Target: fd, Feature: feature}
		if v, ok := f.Attr("value"); ok {
			spec.Value = v
		}
		if r, ok := f.Attr("rank"); ok {
			spec.RankOrig = int(parseFloatOr(r, 1))
		} else if feature == compile.FeatureReasonCode {
			spec.RankOrig = 1
		}
		specs = append(specs, spec)
	}
	return specs
}

// splitWhitespace is a thin readability wrapper over strings.Fields used
// by several model compilers parsing numeric vectors.
func splitWhitespace(s string) []string { return strings.Fields(s) }
