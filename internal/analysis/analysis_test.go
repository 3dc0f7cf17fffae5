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

package analysis

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

func TestMightBeMissingDataDictionaryField(t *testing.T) {
	an := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 1, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginDataDictionary}
	node := ast.Field(fd)
	qt.Assert(t, qt.Equals(an.MightBeMissing(node, nil), true))
}

func TestMightBeMissingAssertedFieldIsKnownPresent(t *testing.T) {
	an := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 1, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginDataDictionary}
	node := ast.Field(fd)

	assertions := NewAssertions()
	guard := assertions.Assert(1)
	defer guard.Release()

	qt.Assert(t, qt.Equals(an.MightBeMissing(node, assertions), false))
}

func TestMightBeMissingConstantNeverMissingUnlessVoid(t *testing.T) {
	an := New(catalogue.New())
	qt.Assert(t, qt.Equals(an.MightBeMissing(ast.NumberConst("1"), nil), false))
	qt.Assert(t, qt.Equals(an.MightBeMissing(ast.VoidConst(), nil), true))
}

func TestMightBeMissingAnyArgCall(t *testing.T) {
	an := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 2, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginDataDictionary}
	call := ast.Call("+", pmml.TypeNumber, ast.NumberConst("1"), ast.Field(fd))
	qt.Assert(t, qt.Equals(an.MightBeMissing(call, nil), true))
}

func TestAssertionsGuardReleaseRestoresPriorState(t *testing.T) {
	assertions := NewAssertions()
	qt.Assert(t, qt.Equals(assertions.IsAsserted(5), false))

	outer := assertions.Assert(5)
	qt.Assert(t, qt.Equals(assertions.IsAsserted(5), true))

	inner := assertions.Assert(5)
	inner.Release()
	qt.Assert(t, qt.Equals(assertions.IsAsserted(5), true))

	outer.Release()
	qt.Assert(t, qt.Equals(assertions.IsAsserted(5), false))
}

func TestCheckIfTrivialConstants(t *testing.T) {
	an := New(catalogue.New())
	qt.Assert(t, qt.Equals(an.CheckIfTrivial(ast.BoolConst(true)), AlwaysTrue))
	qt.Assert(t, qt.Equals(an.CheckIfTrivial(ast.BoolConst(false)), AlwaysFalse))
}

func TestCheckIfTrivialAndShortCircuits(t *testing.T) {
	an := New(catalogue.New())
	call := ast.Call("and", pmml.TypeBool, ast.BoolConst(true), ast.BoolConst(false))
	qt.Assert(t, qt.Equals(an.CheckIfTrivial(call), AlwaysFalse))
}

func TestCheckIfTrivialComparisonOfConstants(t *testing.T) {
	an := New(catalogue.New())
	call := ast.Call("<", pmml.TypeBool, ast.NumberConst("1"), ast.NumberConst("2"))
	qt.Assert(t, qt.Equals(an.CheckIfTrivial(call), AlwaysTrue))
}

func TestCheckIfTrivialRuntimeNeeded(t *testing.T) {
	an := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 3, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginDataDictionary}
	call := ast.Call("<", pmml.TypeBool, ast.Field(fd), ast.NumberConst("2"))
	qt.Assert(t, qt.Equals(an.CheckIfTrivial(call), RuntimeEvaluationNeeded))
}
