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
	"sort"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

// parseItemsets resolves each Itemset's Items to the boolean data field
// their value names: this compiler targets the common non-transactional
// encoding where every possible item is its own boolean DataField,
// rather than a single multi-valued items column.
func parseItemsets(modelEl *xmldom.Element, resolve compile.Resolver) map[string][]*pmml.FieldDescription {
	out := map[string][]*pmml.FieldDescription{}
	for _, is := range modelEl.ChildrenNamed("Itemset") {
		id, _ := is.Attr("id")
		var fds []*pmml.FieldDescription
		for _, item := range is.ChildrenNamed("Item") {
			if fd, ok := resolve(item.AttrOr("value", "")); ok {
				fds = append(fds, fd)
			}
		}
		out[id] = fds
	}
	return out
}

// itemsetLabel returns a consequent Itemset's item value, used as the
// rule's predicted label. Multi-item consequents are reduced to their
// first item.
func itemsetLabel(modelEl *xmldom.Element, id string) string {
	for _, is := range modelEl.ChildrenNamed("Itemset") {
		if isID, _ := is.Attr("id"); isID == id {
			for _, item := range is.ChildrenNamed("Item") {
				return item.AttrOr("value", "")
			}
		}
	}
	return ""
}

type assocRuleEntry struct {
	pred       *ast.Node
	consequent string
	confidence float64
	confText   string
}

// CompileAssociationRules compiles an AssociationModel (spec.md
// §4.5.4): each rule's antecedent becomes an AND of its items' boolean
// fields, and the rules are evaluated highest-confidence first, exactly
// the way a RuleSetModel's firstHit chain evaluates its rules in
// declaration order - here the order is confidence instead.
func CompileAssociationRules(b *compile.Builder, modelEl *xmldom.Element) (*ast.Node, *pmml.ModelConfig) {
	ctx := b.Ctx
	fields, names, _ := parseMiningSchema(ctx, modelEl)
	prepared := b.PrepareMiningFields(fields, names, rawResolver(ctx))
	resolve := prepared.Resolve

	config := pmml.NewModelConfig()
	config.Function = pmml.FunctionClassification
	config.OutputType = pmml.TypeString
	config.OutputValueName = ctx.Fresh("predicted", pmml.TypeString)
	config.TargetField = config.OutputValueName
	config.BestProbabilityName = ctx.Fresh("confidence", pmml.TypeNumber)

	preamble := append([]*ast.Node{}, prepared.Preamble...)
	preamble = append(preamble, ast.Declare(config.OutputValueName, ast.StringConst("")))
	preamble = append(preamble, ast.Declare(config.BestProbabilityName, ast.NumberConst("0")))

	itemsets := parseItemsets(modelEl, resolve)

	var rules []assocRuleEntry
	for _, r := range modelEl.ChildrenNamed("AssociationRule") {
		antItems := itemsets[r.AttrOr("antecedent", "")]
		if len(antItems) == 0 {
			continue
		}
		consequent := itemsetLabel(modelEl, r.AttrOr("consequent", ""))
		if consequent == "" {
			continue
		}
		var pred *ast.Node
		for _, fd := range antItems {
			if pred == nil {
				pred = ast.Field(fd)
			} else {
				pred = andNode(pred, ast.Field(fd))
			}
		}
		confText := r.AttrOr("confidence", "0")
		rules = append(rules, assocRuleEntry{pred: pred, consequent: consequent, confidence: parseFloat(confText), confText: confText})
	}

	sort.SliceStable(rules, func(i, j int) bool { return rules[i].confidence > rules[j].confidence })

	var pairs []*ast.Node
	for _, r := range rules {
		body := ast.Block(
			ast.Assign(config.OutputValueName, ast.StringConst(r.consequent)),
			ast.Assign(config.BestProbabilityName, ast.NumberConst(r.confText)),
		)
		pairs = append(pairs, r.pred, body)
	}
	if len(pairs) > 0 {
		preamble = append(preamble, ast.IfChain(pairs, nil))
	}

	return ast.Block(preamble...), config
}
