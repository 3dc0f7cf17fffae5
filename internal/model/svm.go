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

type svmKernel struct {
	kind   string
	gamma  string
	coef0  string
	degree string
}

func parseSVMKernel(modelEl *xmldom.Element) svmKernel {
	if k := modelEl.FirstChildNamed("PolynomialKernelType"); k != nil {
		return svmKernel{kind: "polynomial", gamma: k.AttrOr("gamma", "1"), coef0: k.AttrOr("coef0", "1"), degree: k.AttrOr("degree", "1")}
	}
	if k := modelEl.FirstChildNamed("RadialBasisKernelType"); k != nil {
		return svmKernel{kind: "rbf", gamma: k.AttrOr("gamma", "1")}
	}
	if k := modelEl.FirstChildNamed("SigmoidKernelType"); k != nil {
		return svmKernel{kind: "sigmoid", gamma: k.AttrOr("gamma", "1"), coef0: k.AttrOr("coef0", "1")}
	}
	return svmKernel{kind: "linear"}
}

func parseVectorFields(dict *xmldom.Element, resolve compile.Resolver) []*pmml.FieldDescription {
	vf := dict.FirstChildNamed("VectorFields")
	if vf == nil {
		return nil
	}
	var out []*pmml.FieldDescription
	for _, fr := range vf.ChildrenNamed("FieldRef") {
		name, _ := fr.Attr("field")
		if fd, ok := resolve(name); ok {
			out = append(out, fd)
		}
	}
	return out
}

func parseSparseArray(arr *xmldom.Element) []string {
	n := int(parseFloat(arr.AttrOr("n", "0")))
	out := make([]string, n)
	for i := range out {
		out[i] = "0"
	}
	idxEl := arr.FirstChildNamed("Indices")
	valEl := arr.FirstChildNamed("REAL-Entries")
	if idxEl == nil || valEl == nil {
		return out
	}
	idxs := splitWhitespace(idxEl.Text)
	vals := splitWhitespace(valEl.Text)
	for i, idxStr := range idxs {
		if i >= len(vals) {
			break
		}
		idx := int(parseFloat(idxStr)) - 1
		if idx >= 0 && idx < n {
			out[idx] = vals[i]
		}
	}
	return out
}

func parseVectorInstances(dict *xmldom.Element) map[string][]string {
	out := map[string][]string{}
	for _, vi := range dict.ChildrenNamed("VectorInstance") {
		id, _ := vi.Attr("id")
		if arr := vi.FirstChildNamed("Array"); arr != nil {
			out[id] = splitWhitespace(arr.Text)
			continue
		}
		if arr := vi.FirstChildNamed("REAL-SparseArray"); arr != nil {
			out[id] = parseSparseArray(arr)
		}
	}
	return out
}

func dotProduct(fields []*pmml.FieldDescription, values []string) *ast.Node {
	var sum *ast.Node
	for i, fd := range fields {
		if i >= len(values) {
			break
		}
		term := ast.Call("*", pmml.TypeNumber, ast.Field(fd), ast.NumberConst(values[i]))
		if sum == nil {
			sum = term
		} else {
			sum = ast.Call("+", pmml.TypeNumber, sum, term)
		}
	}
	if sum == nil {
		return ast.NumberConst("0")
	}
	return sum
}

func squaredDistance(fields []*pmml.FieldDescription, values []string) *ast.Node {
	var sum *ast.Node
	for i, fd := range fields {
		if i >= len(values) {
			break
		}
		diff := ast.Call("-", pmml.TypeNumber, ast.Field(fd), ast.NumberConst(values[i]))
		sq := ast.Call("*", pmml.TypeNumber, diff, diff)
		if sum == nil {
			sum = sq
		} else {
			sum = ast.Call("+", pmml.TypeNumber, sum, sq)
		}
	}
	if sum == nil {
		return ast.NumberConst("0")
	}
	return sum
}

// applyKernel builds the kernel function K(x, supportVector) for one of
// the four standard PMML kernel types.
func applyKernel(k svmKernel, fields []*pmml.FieldDescription, values []string) *ast.Node {
	switch k.kind {
	case "polynomial":
		base := ast.Call("+", pmml.TypeNumber,
			ast.Call("*", pmml.TypeNumber, ast.NumberConst(k.gamma), dotProduct(fields, values)),
			ast.NumberConst(k.coef0))
		return ast.Call("^", pmml.TypeNumber, base, ast.NumberConst(k.degree))
	case "rbf":
		return ast.Call("exp", pmml.TypeNumber,
			ast.Call("unary-minus", pmml.TypeNumber, ast.Call("*", pmml.TypeNumber, ast.NumberConst(k.gamma), squaredDistance(fields, values))))
	case "sigmoid":
		return ast.Call("tanh", pmml.TypeNumber,
			ast.Call("+", pmml.TypeNumber,
				ast.Call("*", pmml.TypeNumber, ast.NumberConst(k.gamma), dotProduct(fields, values)),
				ast.NumberConst(k.coef0)))
	default:
		return dotProduct(fields, values)
	}
}

// compileSVMDecision builds one SupportVectorMachine's decision value:
// the intercept plus each support vector's coefficient times its kernel
// evaluation against the input vector.
func compileSVMDecision(kernel svmKernel, fields []*pmml.FieldDescription, instances map[string][]string, svmEl *xmldom.Element) *ast.Node {
	coeffsEl := svmEl.FirstChildNamed("Coefficients")
	if coeffsEl == nil {
		return ast.NumberConst("0")
	}
	sum := ast.NumberConst(coeffsEl.AttrOr("absoluteValue", "0"))
	svsEl := svmEl.FirstChildNamed("SupportVectors")
	if svsEl == nil {
		return sum
	}
	svs := svsEl.ChildrenNamed("SupportVector")
	coeffs := coeffsEl.ChildrenNamed("Coefficient")
	for i, sv := range svs {
		if i >= len(coeffs) {
			break
		}
		id, _ := sv.Attr("vectorId")
		values := instances[id]
		coeff := coeffs[i].AttrOr("value", "0")
		term := ast.Call("*", pmml.TypeNumber, ast.NumberConst(coeff), applyKernel(kernel, fields, values))
		sum = ast.Call("+", pmml.TypeNumber, sum, term)
	}
	return sum
}

// CompileSVM compiles a SupportVectorMachineModel (spec.md §4.5.4). A
// regression model has exactly one SupportVectorMachine whose decision
// value is the prediction. A classification model votes: each machine's
// decision sign selects its targetCategory or alternateTargetCategory,
// incrementing that category's count, which is then normalised and
// reduced to a winner exactly as every other classifier.
func CompileSVM(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
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

	dict := modelEl.FirstChildNamed("VectorDictionary")
	if dict == nil {
		return ast.Block(preamble...), config
	}
	vectorFields := parseVectorFields(dict, resolve)
	instances := parseVectorInstances(dict)
	kernel := parseSVMKernel(modelEl)
	threshold := modelEl.AttrOr("threshold", "0")

	svmEls := modelEl.ChildrenNamed("SupportVectorMachine")

	if config.Function == pmml.FunctionRegression {
		config.OutputType = pmml.TypeNumber
		config.OutputValueName = ctx.Fresh("predicted", pmml.TypeNumber)
		config.TargetField = config.OutputValueName
		if len(svmEls) == 0 {
			preamble = append(preamble, ast.Declare(config.OutputValueName, ast.NumberConst("0")))
			return ast.Block(preamble...), config
		}
		decision := compileSVMDecision(kernel, vectorFields, instances, svmEls[0])
		preamble = append(preamble, ast.Declare(config.OutputValueName, decision))
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

	var categories []string
	seen := map[string]bool{}
	for _, sv := range svmEls {
		for _, cat := range []string{sv.AttrOr("targetCategory", ""), sv.AttrOr("alternateTargetCategory", "")} {
			if cat != "" && !seen[cat] {
				seen[cat] = true
				categories = append(categories, cat)
			}
		}
	}
	if len(categories) == 0 {
		return ast.Block(preamble...), config
	}
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("svm_votes", pmml.TypeNumber, categories)
	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
	}

	for _, sv := range svmEls {
		decisionVar := ctx.Fresh("svm_decision", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(decisionVar, compileSVMDecision(kernel, vectorFields, instances, sv)))

		target := sv.AttrOr("targetCategory", "")
		alt := sv.AttrOr("alternateTargetCategory", "")
		targetFd, _ := config.ProbabilityValueName.Get(target)
		altFd, altOk := config.ProbabilityValueName.Get(alt)

		cond := ast.Call(">=", pmml.TypeBool, ast.Field(decisionVar), ast.NumberConst(threshold))
		thenBody := ast.Assign(targetFd, ast.Call("+", pmml.TypeNumber, ast.Field(targetFd), ast.NumberConst("1")))
		var elseBody *ast.Node
		if altOk {
			elseBody = ast.Assign(altFd, ast.Call("+", pmml.TypeNumber, ast.Field(altFd), ast.NumberConst("1")))
		}
		preamble = append(preamble, ast.IfChain([]*ast.Node{cond, thenBody}, elseBody))
	}

	totalVar := ctx.Fresh("svm_total", pmml.TypeNumber)
	preamble = append(preamble, ast.Declare(totalVar, ast.NumberConst(formatFloat(float64(len(svmEls))))))
	preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(totalVar))...)

	return ast.Block(preamble...), config
}
