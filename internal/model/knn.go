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

type knnField struct {
	fd     *pmml.FieldDescription
	column string
	weight string
}

func parseInstanceColumns(ti *xmldom.Element) map[string]string {
	out := map[string]string{}
	ifs := ti.FirstChildNamed("InstanceFields")
	if ifs == nil {
		return out
	}
	for _, f := range ifs.ChildrenNamed("InstanceField") {
		field, _ := f.Attr("field")
		out[field] = f.AttrOr("column", field)
	}
	return out
}

func rowValue(row *xmldom.Element, column string) (string, bool) {
	c := row.FirstChildNamed(column)
	if c == nil {
		return "", false
	}
	return c.Text, true
}

func parseKNNInputs(modelEl *xmldom.Element, columns map[string]string, resolve compile.Resolver) []knnField {
	ki := modelEl.FirstChildNamed("KNNInputs")
	if ki == nil {
		return nil
	}
	var out []knnField
	for _, in := range ki.ChildrenNamed("KNNInput") {
		name, _ := in.Attr("field")
		fd, ok := resolve(name)
		if !ok {
			continue
		}
		column := name
		if c, ok := columns[name]; ok {
			column = c
		}
		out = append(out, knnField{fd: fd, column: column, weight: in.AttrOr("fieldWeight", "1")})
	}
	return out
}

func compileRowDistance(kind string, inputs []knnField, row *xmldom.Element) *ast.Node {
	var sum *ast.Node
	for _, in := range inputs {
		text, ok := rowValue(row, in.column)
		if !ok {
			continue
		}
		diff := ast.Call("-", pmml.TypeNumber, ast.Field(in.fd), ast.NumberConst(text))
		var term *ast.Node
		if kind == "cityBlock" {
			term = ast.Call("abs", pmml.TypeNumber, diff)
		} else {
			term = ast.Call("*", pmml.TypeNumber, diff, diff)
		}
		term = ast.Call("*", pmml.TypeNumber, ast.NumberConst(in.weight), term)
		if sum == nil {
			sum = term
		} else {
			sum = ast.Call("+", pmml.TypeNumber, sum, term)
		}
	}
	if sum == nil {
		sum = ast.NumberConst("0")
	}
	if kind == "euclidean" {
		sum = ast.Call("sqrt", pmml.TypeNumber, sum)
	}
	return sum
}

// findTargetName returns the MiningSchema field name marked predicted/
// target, the way parseMiningSchema identifies it, but as the raw PMML
// name rather than a resolved field (needed to look up its training
// column, which is keyed by that name).
func findTargetName(modelEl *xmldom.Element) string {
	schema := modelEl.FirstChildNamed("MiningSchema")
	if schema == nil {
		return ""
	}
	for _, mf := range schema.ChildrenNamed("MiningField") {
		usage := mf.AttrOr("usageType", "active")
		if usage == "predicted" || usage == "target" {
			name, _ := mf.Attr("name")
			return name
		}
	}
	return ""
}

// CompileNearestNeighbor compiles a NearestNeighborModel (spec.md
// §4.5.4). Every training row's distance from the input is computed up
// front; numberOfNeighbors selection rounds then repeatedly pull the
// closest not-yet-picked row (an unrolled partial selection sort, since
// every row count here is fixed at compile time), and the selected
// rows' target values are averaged (regression) or voted on
// (classification) exactly as an ensemble's combination stage does.
func CompileNearestNeighbor(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, target := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	outType := pmml.TypeString
	isRegression := target != nil && target.Field.Type == pmml.TypeNumber
	if isRegression {
		config.Function = pmml.FunctionRegression
		outType = pmml.TypeNumber
	} else {
		config.Function = pmml.FunctionClassification
		if target != nil {
			outType = target.Field.Type
		}
	}
	config.OutputType = outType
	config.OutputValueName = ctx.Fresh("predicted", outType)
	config.TargetField = config.OutputValueName

	preamble := append([]*ast.Node{}, prepared.Preamble...)

	ti := modelEl.FirstChildNamed("TrainingInstances")
	if ti == nil || target == nil {
		preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))
		return ast.Block(preamble...), config
	}

	columns := parseInstanceColumns(ti)
	inputs := parseKNNInputs(modelEl, columns, resolve)
	kind := comparisonMeasureKind(modelEl)

	var rows []*xmldom.Element
	if inline := ti.FirstChildNamed("InlineTable"); inline != nil {
		rows = inline.ChildrenNamed("row")
	}
	if len(inputs) == 0 || len(rows) == 0 {
		preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))
		return ast.Block(preamble...), config
	}

	targetName := findTargetName(modelEl)
	targetColumn := targetName
	if c, ok := columns[targetName]; ok {
		targetColumn = c
	}

	k := int(parseFloat(modelEl.AttrOr("numberOfNeighbors", "1")))
	if k < 1 {
		k = 1
	}
	if k > len(rows) {
		k = len(rows)
	}

	distFields := make([]*pmml.FieldDescription, len(rows))
	usedFields := make([]*pmml.FieldDescription, len(rows))
	targetLiterals := make([]string, len(rows))
	for i, row := range rows {
		distFields[i] = ctx.Fresh("knn_dist", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(distFields[i], compileRowDistance(kind, inputs, row)))
		usedFields[i] = ctx.Fresh("knn_used", pmml.TypeBool)
		preamble = append(preamble, ast.Declare(usedFields[i], ast.BoolConst(false)))
		text, _ := rowValue(row, targetColumn)
		targetLiterals[i] = text
	}

	selected := make([]*pmml.FieldDescription, k)
	for j := 0; j < k; j++ {
		roundBest := ctx.Fresh("knn_round_best", pmml.TypeNumber)
		roundVal := ctx.Fresh("knn_round_val", outType)
		preamble = append(preamble,
			ast.Declare(roundBest, ast.NumberConst("1e308")),
			ast.Declare(roundVal, zeroLiteralFor(outType)),
		)
		for i := range rows {
			cond := andNode(
				notNode(ast.Field(usedFields[i])),
				ast.Call("<", pmml.TypeBool, ast.Field(distFields[i]), ast.Field(roundBest)),
			)
			body := ast.Block(
				ast.Assign(roundBest, ast.Field(distFields[i])),
				ast.Assign(roundVal, compile.LiteralFor(outType, targetLiterals[i])),
			)
			preamble = append(preamble, ast.IfChain([]*ast.Node{cond, body}, nil))
		}
		marked := ctx.Fresh("knn_marked", pmml.TypeBool)
		preamble = append(preamble, ast.Declare(marked, ast.BoolConst(false)))
		for i := range rows {
			cond := andNode(
				andNode(notNode(ast.Field(usedFields[i])), ast.Call("==", pmml.TypeBool, ast.Field(distFields[i]), ast.Field(roundBest))),
				notNode(ast.Field(marked)),
			)
			body := ast.Block(
				ast.Assign(usedFields[i], ast.BoolConst(true)),
				ast.Assign(marked, ast.BoolConst(true)),
			)
			preamble = append(preamble, ast.IfChain([]*ast.Node{cond, body}, nil))
		}
		selected[j] = roundVal
	}

	if isRegression {
		var sum *ast.Node
		for _, s := range selected {
			if sum == nil {
				sum = ast.Field(s)
			} else {
				sum = ast.Call("+", pmml.TypeNumber, sum, ast.Field(s))
			}
		}
		avg := ast.Call("/", pmml.TypeNumber, sum, ast.NumberConst(formatFloat(float64(k))))
		preamble = append(preamble, ast.Declare(config.OutputValueName, avg))
		return ast.Block(preamble...), config
	}

	var categories []string
	seen := map[string]bool{}
	for _, t := range targetLiterals {
		if !seen[t] {
			seen[t] = true
			categories = append(categories, t)
		}
	}
	config.ProbabilityValueName = ctx.BuildProbabilityOutputMap("knn_votes", pmml.TypeNumber, categories)
	for _, cat := range categories {
		fd, _ := config.ProbabilityValueName.Get(cat)
		preamble = append(preamble, ast.Declare(fd, ast.NumberConst("0")))
	}
	preamble = append(preamble, ast.Declare(config.OutputValueName, zeroLiteralFor(outType)))
	for _, s := range selected {
		for _, cat := range categories {
			fd, _ := config.ProbabilityValueName.Get(cat)
			cond := ast.Call("==", pmml.TypeBool, ast.Field(s), ast.StringConst(cat))
			body := ast.Assign(fd, ast.Call("+", pmml.TypeNumber, ast.Field(fd), ast.NumberConst("1")))
			preamble = append(preamble, ast.IfChain([]*ast.Node{cond, body}, nil))
		}
	}
	totalVar := ctx.Fresh("knn_total", pmml.TypeNumber)
	preamble = append(preamble, ast.Declare(totalVar, ast.NumberConst(formatFloat(float64(k)))))
	preamble = append(preamble, b.NormalizeAndPickWinner(config, ast.Field(totalVar))...)

	return ast.Block(preamble...), config
}
