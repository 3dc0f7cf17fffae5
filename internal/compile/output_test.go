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
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

func TestApplyTargetPostProcessingClipsAndRescales(t *testing.T) {
	b := newBuilder()
	spec := TargetSpec{
		HasMin:        true,
		Min:           "0",
		HasMax:        true,
		Max:           "1",
		RescaleFactor: "2",
		RescaleConst:  "1",
	}
	out := b.ApplyTargetPostProcessing(ast.NumberConst("0.5"), spec)
	qt.Assert(t, qt.Equals(out.Kind, ast.KindCall))
	qt.Assert(t, qt.Equals(out.CallName, "min"))
}

func TestApplyTargetPostProcessingDefaultValue(t *testing.T) {
	b := newBuilder()
	spec := TargetSpec{HasDefault: true, Default: "0"}
	out := b.ApplyTargetPostProcessing(ast.NumberConst("1"), spec)
	qt.Assert(t, qt.Equals(out.Kind, ast.KindDefaultValue))
}

func TestPickWinnerProducesDeclarationsAndComparisons(t *testing.T) {
	ctx := NewContext()
	b := NewBuilder(ctx, catalogue.New())

	config := pmml.NewModelConfig()
	config.ProbabilityValueName = pmml.NewProbabilityMap()
	fdYes := ctx.Fresh("p_yes", pmml.TypeNumber)
	fdNo := ctx.Fresh("p_no", pmml.TypeNumber)
	config.ProbabilityValueName.Set("yes", fdYes)
	config.ProbabilityValueName.Set("no", fdNo)
	config.OutputValueName = ctx.Fresh("predicted", pmml.TypeString)
	config.BestProbabilityName = ctx.Fresh("confidence", pmml.TypeNumber)

	stmts := b.PickWinner(config)
	qt.Assert(t, qt.Equals(stmts[0].Kind, ast.KindDeclaration))
	qt.Assert(t, qt.Equals(stmts[1].Kind, ast.KindDeclaration))

	var sawIf, sawOutputAssign bool
	for _, s := range stmts {
		if s.Kind == ast.KindIfChain {
			sawIf = true
		}
		if s.Kind == ast.KindAssignment && s.Field == config.OutputValueName {
			sawOutputAssign = true
		}
	}
	qt.Assert(t, qt.Equals(sawIf, true))
	qt.Assert(t, qt.Equals(sawOutputAssign, true))
}

func TestPickWinnerEmptyMapReturnsNil(t *testing.T) {
	ctx := NewContext()
	b := NewBuilder(ctx, catalogue.New())
	config := pmml.NewModelConfig()
	config.ProbabilityValueName = pmml.NewProbabilityMap()
	stmts := b.PickWinner(config)
	qt.Assert(t, qt.IsNil(stmts))
}

func TestNormalizeProbabilitiesDividesEachEntry(t *testing.T) {
	ctx := NewContext()
	b := NewBuilder(ctx, catalogue.New())
	m := pmml.NewProbabilityMap()
	m.Set("yes", ctx.Fresh("p_yes", pmml.TypeNumber))
	m.Set("no", ctx.Fresh("p_no", pmml.TypeNumber))

	total := ast.NumberConst("2")
	stmts := b.NormalizeProbabilities(m, total)
	qt.Assert(t, qt.Equals(len(stmts), 2))
	for _, s := range stmts {
		qt.Assert(t, qt.Equals(s.Kind, ast.KindAssignment))
		qt.Assert(t, qt.Equals(s.Children[0].CallName, "/"))
	}
}

func TestDisplayValueMapBuildsIfChain(t *testing.T) {
	b := newBuilder()
	predicted := ast.StringConst("good")
	displays := map[string]string{"good": "Good", "bad": "Bad"}
	order := []string{"good", "bad"}
	out := b.DisplayValueMap(predicted, displays, order)
	qt.Assert(t, qt.Equals(out.Kind, ast.KindIfChain))
	qt.Assert(t, qt.Equals(len(out.Children), 5))
}

func TestDisplayValueMapNoOrderReturnsPredictedUnchanged(t *testing.T) {
	b := newBuilder()
	predicted := ast.StringConst("good")
	out := b.DisplayValueMap(predicted, nil, nil)
	qt.Assert(t, qt.Equals(out, predicted))
}
