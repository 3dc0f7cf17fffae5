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

func TestCompileExpressionConstant(t *testing.T) {
	b := newBuilder()
	node := b.CompileExpression(parsePredicate(t, `<Constant dataType="double">3.5</Constant>`), fieldResolver(nil))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindConstant))
	qt.Assert(t, qt.Equals(node.Num, "3.5"))
}

func TestCompileExpressionFieldRef(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("x", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	node := b.CompileExpression(parsePredicate(t, `<FieldRef field="x"/>`), fieldResolver(map[string]*pmml.FieldDescription{"x": fd}))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindFieldRef))
	qt.Assert(t, qt.Equals(node.Field, fd))
}

func TestCompileExpressionApplyArithmetic(t *testing.T) {
	b := newBuilder()
	xml := `<Apply function="+">
		<Constant dataType="double">1</Constant>
		<Constant dataType="double">2</Constant>
	</Apply>`
	node := b.CompileExpression(parsePredicate(t, xml), fieldResolver(nil))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindCall))
	qt.Assert(t, qt.Equals(node.CallName, "+"))
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), false))
}

func TestCompileExpressionApplyUnknownFunction(t *testing.T) {
	b := newBuilder()
	xml := `<Apply function="not-a-real-fn"><Constant dataType="double">1</Constant></Apply>`
	b.CompileExpression(parsePredicate(t, xml), fieldResolver(nil))
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), true))
}

func TestCompileDiscretizeBuildsIfChain(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	xml := `<Discretize field="age" dataType="string">
		<DiscretizeBin binValue="young"><Interval closure="closedOpen" leftMargin="0" rightMargin="30"/></DiscretizeBin>
		<DiscretizeBin binValue="old"><Interval closure="closedOpen" leftMargin="30" rightMargin="200"/></DiscretizeBin>
	</Discretize>`
	node := b.CompileExpression(parsePredicate(t, xml), fieldResolver(map[string]*pmml.FieldDescription{"age": fd}))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindIfChain))
}

func TestCompileNormDiscreteIndicator(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("color", pmml.DataField{Type: pmml.TypeString}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	xml := `<NormDiscrete field="color" value="red"/>`
	node := b.CompileExpression(parsePredicate(t, xml), fieldResolver(map[string]*pmml.FieldDescription{"color": fd}))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindIfChain))
	qt.Assert(t, qt.Equals(len(node.Children), 3))
}

func TestCompileNormContinuousInterpolates(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("x", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	xml := `<NormContinuous field="x">
		<LinearNorm orig="0" norm="0"/>
		<LinearNorm orig="10" norm="1"/>
	</NormContinuous>`
	node := b.CompileExpression(parsePredicate(t, xml), fieldResolver(map[string]*pmml.FieldDescription{"x": fd}))
	qt.Assert(t, qt.Equals(node.Kind, ast.KindIfChain))
}

func TestLiteralForTypes(t *testing.T) {
	qt.Assert(t, qt.Equals(LiteralFor(pmml.TypeNumber, "4").Num, "4"))
	qt.Assert(t, qt.Equals(LiteralFor(pmml.TypeBool, "true").Bool, true))
	qt.Assert(t, qt.Equals(LiteralFor(pmml.TypeString, "x").Str, "x"))
}
