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

package ast

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/pmml"
)

func TestConstants(t *testing.T) {
	s := StringConst("hello")
	qt.Assert(t, qt.Equals(s.Kind, KindConstant))
	qt.Assert(t, qt.Equals(s.Type, pmml.TypeString))
	qt.Assert(t, qt.Equals(s.Str, "hello"))

	n := NumberConst("3.5")
	qt.Assert(t, qt.Equals(n.Type, pmml.TypeNumber))
	qt.Assert(t, qt.Equals(n.Num, "3.5"))

	b := BoolConst(true)
	qt.Assert(t, qt.Equals(b.Type, pmml.TypeBool))
	qt.Assert(t, qt.Equals(b.Bool, true))

	v := VoidConst()
	qt.Assert(t, qt.Equals(v.Type, pmml.TypeVoid))
}

func TestIfChainHasElse(t *testing.T) {
	cond := BoolConst(true)
	then := Block(NumberConst("1"))
	withoutElse := IfChain([]*Node{cond, then}, nil)
	qt.Assert(t, qt.Equals(withoutElse.HasElse(), false))
	qt.Assert(t, qt.Equals(len(withoutElse.Children), 2))

	withElse := IfChain([]*Node{cond, then}, Block(NumberConst("2")))
	qt.Assert(t, qt.Equals(withElse.HasElse(), true))
	qt.Assert(t, qt.Equals(len(withElse.Children), 3))
}

func TestReturnTableCarriesNames(t *testing.T) {
	values := []*Node{NumberConst("1"), StringConst("a")}
	names := []string{"score", "label"}
	ret := ReturnTable(names, values)
	qt.Assert(t, qt.Equals(ret.Kind, KindReturn))
	qt.Assert(t, qt.DeepEquals(ret.Names, names))
	qt.Assert(t, qt.Equals(len(ret.Children), 2))
}

func TestDefaultTypeMismatchIsInvalid(t *testing.T) {
	d := Default(NumberConst("1"), StringConst("x"))
	qt.Assert(t, qt.Equals(d.Type, pmml.TypeInvalid))

	ok := Default(NumberConst("1"), NumberConst("2"))
	qt.Assert(t, qt.Equals(ok.Type, pmml.TypeNumber))
}

func TestCallCarriesChildren(t *testing.T) {
	c := Call("+", pmml.TypeNumber, NumberConst("1"), NumberConst("2"))
	qt.Assert(t, qt.Equals(c.Kind, KindCall))
	qt.Assert(t, qt.Equals(c.CallName, "+"))
	qt.Assert(t, qt.Equals(len(c.Children), 2))
}
