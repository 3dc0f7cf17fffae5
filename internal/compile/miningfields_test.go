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
	"github.com/lnrisk/pmml2lua/internal/token"
)

func TestPrepareMiningFieldsNoAnnotationPassesThrough(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())

	mf := pmml.NewMiningField(fd)
	prepared := b.PrepareMiningFields([]pmml.MiningField{mf}, []string{"age"}, nil)
	qt.Assert(t, qt.Equals(len(prepared.Preamble), 0))

	got, ok := prepared.Resolve("age")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(got, fd))
}

func TestPrepareMiningFieldsReplacementValue(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())

	mf := pmml.NewMiningField(fd)
	mf.HasReplacement = true
	mf.ReplacementValue = "0"
	prepared := b.PrepareMiningFields([]pmml.MiningField{mf}, []string{"age"}, nil)
	qt.Assert(t, qt.Equals(len(prepared.Preamble), 1))
	qt.Assert(t, qt.Equals(prepared.Preamble[0].Kind, ast.KindDeclaration))

	got, ok := prepared.Resolve("age")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Not(qt.Equals(got, fd)))
}

func TestPrepareMiningFieldsOutlierAsExtremeClips(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())

	mf := pmml.NewMiningField(fd)
	mf.Outlier = pmml.OutlierAsExtreme
	mf.HasMin = true
	mf.Min = 0
	mf.HasMax = true
	mf.Max = 100
	prepared := b.PrepareMiningFields([]pmml.MiningField{mf}, []string{"age"}, nil)
	qt.Assert(t, qt.Equals(len(prepared.Preamble), 1))
	init := prepared.Preamble[0].Children[0]
	qt.Assert(t, qt.Equals(init.CallName, "min"))
}

func TestPrepareMiningFieldsFallsBackToRawResolver(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("other", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())

	prepared := b.PrepareMiningFields(nil, nil, fieldResolver(map[string]*pmml.FieldDescription{"other": fd}))
	got, ok := prepared.Resolve("other")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(got, fd))
}
