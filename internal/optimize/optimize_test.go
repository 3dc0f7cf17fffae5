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

package optimize

import (
	"strconv"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

func TestRunFoldsConstantArithmetic(t *testing.T) {
	cat := catalogue.New()
	o := New(cat)
	call := ast.Call("+", pmml.TypeNumber, ast.NumberConst("1"), ast.NumberConst("2"))
	out := o.Run(call)
	qt.Assert(t, qt.Equals(out.Kind, ast.KindConstant))
	got, err := strconv.ParseFloat(out.Num, 64)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, 3.0))
}

func TestRunDropsAlwaysFalseIfArm(t *testing.T) {
	cat := catalogue.New()
	o := New(cat)
	cond := ast.BoolConst(false)
	body := ast.Block(ast.NumberConst("1"))
	elseBody := ast.Block(ast.NumberConst("2"))
	chain := ast.IfChain([]*ast.Node{cond, body}, elseBody)

	out := o.Run(chain)
	qt.Assert(t, qt.Equals(out.Kind, ast.KindBlock))
	qt.Assert(t, qt.Equals(out.Children[0].Num, "2"))
}

func TestShortCircuitAndDropsAlwaysTrueOperand(t *testing.T) {
	o := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 1, Field: pmml.DataField{Type: pmml.TypeBool}, Origin: pmml.OriginDataDictionary}
	call := ast.Call("and", pmml.TypeBool, ast.BoolConst(true), ast.Field(fd))
	out, changed := o.shortCircuit(call)
	qt.Assert(t, qt.Equals(changed, true))
	qt.Assert(t, qt.Equals(out.Kind, ast.KindFieldRef))
}

func TestShortCircuitOrAlwaysTrueCollapses(t *testing.T) {
	o := New(catalogue.New())
	call := ast.Call("or", pmml.TypeBool, ast.BoolConst(false), ast.BoolConst(true))
	out, changed := o.shortCircuit(call)
	qt.Assert(t, qt.Equals(changed, true))
	qt.Assert(t, qt.Equals(out.Bool, true))
}

func TestFlattenBlockMergesNestedBlocks(t *testing.T) {
	o := New(catalogue.New())
	inner := ast.Block(ast.NumberConst("1"), ast.NumberConst("2"))
	outer := ast.Block(inner, ast.NumberConst("3"))
	out, changed := o.flattenBlock(outer)
	qt.Assert(t, qt.Equals(changed, true))
	qt.Assert(t, qt.Equals(len(out.Children), 3))
}

func TestEliminateDeadCodeDropsUnreadDeclaration(t *testing.T) {
	o := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 7, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginTemporary}
	decl := ast.Declare(fd, ast.NumberConst("1"))
	block := ast.Block(decl, ast.Return(ast.NumberConst("9")))

	out := o.EliminateDeadCode(block)
	qt.Assert(t, qt.Equals(len(out.Children), 1))
	qt.Assert(t, qt.Equals(out.Children[0].Kind, ast.KindReturn))
}

func TestEliminateDeadCodeInlinesSingleUse(t *testing.T) {
	o := New(catalogue.New())
	fd := &pmml.FieldDescription{ID: 8, Field: pmml.DataField{Type: pmml.TypeNumber}, Origin: pmml.OriginTemporary}
	decl := ast.Declare(fd, ast.NumberConst("5"))
	use := ast.Return(ast.Field(fd))
	block := ast.Block(decl, use)

	out := o.EliminateDeadCode(block)
	qt.Assert(t, qt.Equals(len(out.Children), 1))
	qt.Assert(t, qt.Equals(out.Children[0].Kind, ast.KindReturn))
	qt.Assert(t, qt.Equals(out.Children[0].Children[0].Num, "5"))
}
