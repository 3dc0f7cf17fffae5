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

// firstExpressionChild returns the first child of el that is a
// recognised Expression element (spec.md §4.4), the shape a DerivedField
// always wraps exactly one of.
func firstExpressionChild(el *xmldom.Element) *xmldom.Element {
	for _, c := range el.NonExtensionChildren() {
		switch c.Name {
		case "Constant", "FieldRef", "Apply", "MapValues", "Discretize", "NormContinuous", "NormDiscrete":
			return c
		}
	}
	return nil
}

// neuronOutputResolver resolves every field name a NeuralOutput's
// DerivedField references to the neuron's own activation: PMML's
// convention is that this DerivedField has exactly one field reference,
// and it always means "this neuron's raw value".
func neuronOutputResolver(fd *pmml.FieldDescription) compile.Resolver {
	return func(string) (*pmml.FieldDescription, bool) { return fd, true }
}

func applyActivation(fn string, raw *ast.Node) *ast.Node {
	switch fn {
	case "tanh":
		return ast.Call("tanh", pmml.TypeNumber, raw)
	case "identity", "linear":
		return raw
	case "gaussian", "radialBasis":
		return ast.Call("gauss", pmml.TypeNumber, raw)
	default:
		return ast.Call("logistic", pmml.TypeNumber, raw)
	}
}

// compileNeuron declares one Neuron's activation: bias plus each Con's
// weight times its source neuron's already-declared value, squashed
// through the layer's activation function.
func compileNeuron(ctx *compile.Context, neuronEl *xmldom.Element, activation string) []*ast.Node {
	id, _ := neuronEl.Attr("id")
	sum := ast.NumberConst(neuronEl.AttrOr("bias", "0"))
	for _, con := range neuronEl.ChildrenNamed("Con") {
		from, _ := con.Attr("from")
		fromFd, ok := ctx.FindNeuron(from)
		if !ok {
			continue
		}
		term := ast.Call("*", pmml.TypeNumber, ast.NumberConst(con.AttrOr("weight", "1")), ast.Field(fromFd))
		sum = ast.Call("+", pmml.TypeNumber, sum, term)
	}
	fd := ctx.Fresh("neuron_"+id, pmml.TypeNumber)
	ctx.RegisterNeuron(id, fd)
	return []*ast.Node{ast.Declare(fd, applyActivation(activation, sum))}
}

// CompileNeuralNetwork compiles a NeuralNetwork model (spec.md §4.5.4):
// NeuralInputs become neurons holding their DerivedField's value,
// NeuralLayers feed forward neuron by neuron, and NeuralOutputs read
// back either a single regression value or one probability per category
// (each output neuron's activation read directly as that category's
// probability, per its NormDiscrete value).
func CompileNeuralNetwork(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
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

	preamble := append([]*ast.Node{}, prepared.Preamble...)

	if inputsEl := modelEl.FirstChildNamed("NeuralInputs"); inputsEl != nil {
		for _, ni := range inputsEl.ChildrenNamed("NeuralInput") {
			id, _ := ni.Attr("id")
			df := ni.FirstChildNamed("DerivedField")
			if df == nil {
				continue
			}
			exprEl := firstExpressionChild(df)
			if exprEl == nil {
				continue
			}
			val := b.CompileExpression(exprEl, resolve)
			fd := ctx.Fresh("neuron_in_"+id, pmml.TypeNumber)
			ctx.RegisterNeuron(id, fd)
			preamble = append(preamble, ast.Declare(fd, val))
		}
	}

	modelActivation := modelEl.AttrOr("activationFunction", "logistic")
	if layersEl := modelEl.FirstChildNamed("NeuralLayers"); layersEl != nil {
		for _, layer := range layersEl.ChildrenNamed("NeuralLayer") {
			layerActivation := layer.AttrOr("activationFunction", modelActivation)
			for _, neuron := range layer.ChildrenNamed("Neuron") {
				preamble = append(preamble, compileNeuron(ctx, neuron, layerActivation)...)
			}
		}
	}

	outputsEl := modelEl.FirstChildNamed("NeuralOutputs")

	if config.Function == pmml.FunctionRegression {
		config.OutputType = pmml.TypeNumber
		config.OutputValueName = ctx.Fresh("predicted", pmml.TypeNumber)
		config.TargetField = config.OutputValueName
		if outputsEl == nil {
			preamble = append(preamble, ast.Declare(config.OutputValueName, ast.NumberConst("0")))
			return ast.Block(preamble...), config
		}
		for _, no := range outputsEl.ChildrenNamed("NeuralOutput") {
			neuronFd, ok := ctx.FindNeuron(no.AttrOr("outputNeuron", ""))
			if !ok {
				continue
			}
			df := no.FirstChildNamed("DerivedField")
			if df == nil {
				continue
			}
			exprEl := firstExpressionChild(df)
			if exprEl == nil {
				continue
			}
			val := b.CompileExpression(exprEl, neuronOutputResolver(neuronFd))
			preamble = append(preamble, ast.Declare(config.OutputValueName, val))
			return ast.Block(preamble...), config
		}
		preamble = append(preamble, ast.Declare(config.OutputValueName, ast.NumberConst("0")))
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

	if outputsEl == nil {
		return ast.Block(preamble...), config
	}

	var categories []string
	categoryNeurons := map[string]*pmml.FieldDescription{}
	for _, no := range outputsEl.ChildrenNamed("NeuralOutput") {
		neuronFd, ok := ctx.FindNeuron(no.AttrOr("outputNeuron", ""))
		if !ok {
			continue
		}
		df := no.FirstChildNamed("DerivedField")
		if df == nil {
			continue
		}
		nd := df.FirstChildNamed("NormDiscrete")
		if nd == nil {
			continue
		}
		value := nd.AttrOr("value", "")
		if value == "" {
			continue
		}
		categories = append(categories, value)
		categoryNeurons[value] = neuronFd
	}
	if len(categories) == 0 {
		return ast.Block(preamble...), config
	}
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("nn_prob", pmml.TypeNumber, categories)
	var total *ast.Node
	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		preamble = append(preamble, ast.Declare(fd, ast.Field(categoryNeurons[cat])))
		if total == nil {
			total = ast.Field(fd)
		} else {
			total = ast.Call("+", pmml.TypeNumber, total, ast.Field(fd))
		}
	}
	totalVar := ctx.Fresh("nn_total", pmml.TypeNumber)
	preamble = append(preamble, ast.Declare(totalVar, total))
	preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(totalVar))...)

	return ast.Block(preamble...), config
}
