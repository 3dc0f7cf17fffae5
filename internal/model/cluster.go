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

// clusteringField is one ClusteringField: the field it compares plus its
// weight in the distance sum.
type clusteringField struct {
	fd     *pmml.FieldDescription
	weight string
}

func parseClusteringFields(modelEl *xmldom.Element, resolve compile.Resolver) []clusteringField {
	var out []clusteringField
	for _, cf := range modelEl.ChildrenNamed("ClusteringField") {
		if cf.AttrOr("isCenterField", "true") == "false" {
			continue
		}
		name, _ := cf.Attr("field")
		fd, ok := resolve(name)
		if !ok {
			continue
		}
		out = append(out, clusteringField{fd: fd, weight: cf.AttrOr("fieldWeight", "1")})
	}
	return out
}

func comparisonMeasureKind(modelEl *xmldom.Element) string {
	cm := modelEl.FirstChildNamed("ComparisonMeasure")
	if cm == nil {
		return "squaredEuclidean"
	}
	for _, c := range cm.NonExtensionChildren() {
		return c.Name
	}
	return "squaredEuclidean"
}

// compileClusterDistance builds the distance from the input vector to
// one Cluster's center, per spec.md §4.5.4's clustering measure.
func compileClusterDistance(kind string, fields []clusteringField, center []string) *ast.Node {
	var sum *ast.Node
	for i, cf := range fields {
		if i >= len(center) {
			break
		}
		diff := ast.Call("-", pmml.TypeNumber, ast.Field(cf.fd), ast.NumberConst(center[i]))
		var term *ast.Node
		switch kind {
		case "cityBlock":
			term = ast.Call("abs", pmml.TypeNumber, diff)
		default:
			term = ast.Call("*", pmml.TypeNumber, diff, diff)
		}
		term = ast.Call("*", pmml.TypeNumber, ast.NumberConst(cf.weight), term)
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

// CompileClustering compiles a ClusteringModel (spec.md §4.5.4): each
// Cluster's distance from the input vector is computed, and the
// predicted entity is the cluster with the smallest distance.
func CompileClustering(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, _ := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	config.Function = pmml.FunctionClassification
	config.OutputType = pmml.TypeString
	config.OutputValueName = ctx.Fresh("predicted", pmml.TypeString)
	config.TargetField = config.OutputValueName
	config.IDValueName = config.OutputValueName

	preamble := append([]*ast.Node{}, prepared.Preamble...)

	clusterFields := parseClusteringFields(modelEl, resolve)
	kind := comparisonMeasureKind(modelEl)
	clusters := modelEl.ChildrenNamed("Cluster")
	if len(clusterFields) == 0 || len(clusters) == 0 {
		preamble = append(preamble, ast.Declare(config.OutputValueName, ast.StringConst("")))
		return ast.Block(preamble...), config
	}

	type clusterDist struct {
		id   string
		dist *pmml.FieldDescription
	}
	var dists []clusterDist
	for i, cl := range clusters {
		id := cl.AttrOr("id", "")
		if id == "" {
			if name, ok := cl.Attr("name"); ok {
				id = name
			} else {
				id = formatFloat(float64(i + 1))
			}
		}
		arr := cl.FirstChildNamed("Array")
		var center []string
		if arr != nil {
			center = splitWhitespace(arr.Text)
		}
		distFd := ctx.Fresh("cluster_dist", pmml.TypeNumber)
		preamble = append(preamble, ast.Declare(distFd, compileClusterDistance(kind, clusterFields, center)))
		dists = append(dists, clusterDist{id: id, dist: distFd})
	}

	bestDist := ctx.Fresh("cluster_best_dist", pmml.TypeNumber)
	preamble = append(preamble,
		ast.Declare(bestDist, ast.Field(dists[0].dist)),
		ast.Declare(config.OutputValueName, ast.StringConst(dists[0].id)),
	)
	for _, d := range dists[1:] {
		cond := ast.Call("<", pmml.TypeBool, ast.Field(d.dist), ast.Field(bestDist))
		body := ast.Block(
			ast.Assign(bestDist, ast.Field(d.dist)),
			ast.Assign(config.OutputValueName, ast.StringConst(d.id)),
		)
		preamble = append(preamble, ast.IfChain([]*ast.Node{cond, body}, nil))
	}

	return ast.Block(preamble...), config
}
