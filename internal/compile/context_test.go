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

	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/token"
)

func TestDeclareRegistersByOrigin(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	qt.Assert(t, qt.Equals(fd.Field.Type, pmml.TypeNumber))

	got, ok := ctx.Lookup("age")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(got, fd))

	inputs := ctx.InputsInOrder()
	qt.Assert(t, qt.Equals(len(inputs), 1))
	qt.Assert(t, qt.Equals(inputs[0], fd))
}

func TestDeclareDuplicateNameReportsError(t *testing.T) {
	ctx := NewContext()
	ctx.Declare("score", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginOutput, token.NoPos)
	ctx.Declare("score", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginOutput, token.NoPos)
	qt.Assert(t, qt.Equals(ctx.Sink.Failed(), true))
}

func TestScopeGuardHidesInnerBindings(t *testing.T) {
	ctx := NewContext()
	ctx.Declare("outer", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)

	func() {
		guard := ctx.EnterScope()
		defer guard.Leave()
		ctx.Declare("inner", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
		_, ok := ctx.Lookup("inner")
		qt.Assert(t, qt.Equals(ok, true))
	}()

	_, ok := ctx.Lookup("inner")
	qt.Assert(t, qt.Equals(ok, false))
	_, ok = ctx.Lookup("outer")
	qt.Assert(t, qt.Equals(ok, true))
}

func TestFreshNamesNeverCollide(t *testing.T) {
	ctx := NewContext()
	a := ctx.Fresh("tmp", pmml.TypeNumber)
	b := ctx.Fresh("tmp", pmml.TypeNumber)
	qt.Assert(t, qt.Not(qt.Equals(a.LuaName, b.LuaName)))
}

func TestUniqueLuaNameSanitizesIllegalCharacters(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("my field!", pmml.DataField{Type: pmml.TypeString}, pmml.OriginDataDictionary, token.NoPos)
	for _, r := range fd.LuaName {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		qt.Assert(t, qt.Equals(ok, true))
	}
}

func TestNeuronRegistry(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Fresh("neuron", pmml.TypeNumber)
	ctx.RegisterNeuron("3", fd)

	got, ok := ctx.FindNeuron("3")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(got, fd))

	_, ok = ctx.FindNeuron("missing")
	qt.Assert(t, qt.Equals(ok, false))
}
