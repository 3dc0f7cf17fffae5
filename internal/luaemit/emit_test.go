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

package luaemit

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/token"
)

func TestEmitMultiArgSignature(t *testing.T) {
	ctx := compile.NewContext()
	age := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	score := ctx.Declare("score", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginOutput, token.NoPos)

	body := ast.Block(ast.Assign(score, ast.Field(age)), ast.Return(ast.Field(score)))

	cat := catalogue.New()
	e := New(cat, Options{FuncName: "score"})
	out := e.Emit(ctx, body)

	qt.Assert(t, qt.Equals(strings.HasPrefix(out, "local function score("), true))
	qt.Assert(t, qt.Equals(strings.Contains(out, age.LuaName), true))
	qt.Assert(t, qt.Equals(strings.HasSuffix(strings.TrimRight(out, "\n"), "end"), true))
}

func TestEmitInputTableDestructures(t *testing.T) {
	ctx := compile.NewContext()
	age := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	body := ast.Return(ast.Field(age))

	cat := catalogue.New()
	e := New(cat, Options{FuncName: "score", InputFormat: InputTable})
	out := e.Emit(ctx, body)

	qt.Assert(t, qt.Equals(strings.Contains(out, "local function score(input)"), true))
	qt.Assert(t, qt.Equals(strings.Contains(out, "input["), true))
}

func TestEmitInfixCall(t *testing.T) {
	cat := catalogue.New()
	e := New(cat, Options{})
	call := ast.Call("+", pmml.TypeNumber, ast.NumberConst("1"), ast.NumberConst("2"))
	out := e.expr(call, catalogue.PrecStatement)
	qt.Assert(t, qt.Equals(out, "1 + 2"))
}

func TestEmitNonInfixCallUsesPrelude(t *testing.T) {
	cat := catalogue.New()
	e := New(cat, Options{})
	call := ast.Call("sqrt", pmml.TypeNumber, ast.NumberConst("4"))
	out := e.expr(call, catalogue.PrecStatement)
	qt.Assert(t, qt.Equals(out, "pmml_sqrt(4)"))
}

func TestEmitIfChainWithElse(t *testing.T) {
	cat := catalogue.New()
	e := New(cat, Options{})
	cond := ast.BoolConst(true)
	then := ast.Return(ast.NumberConst("1"))
	elseBody := ast.Return(ast.NumberConst("2"))
	chain := ast.IfChain([]*ast.Node{cond, then}, elseBody)

	e.indent = 0
	e.emitStatement(chain)
	out := e.buf.String()
	qt.Assert(t, qt.Equals(strings.Contains(out, "if true then"), true))
	qt.Assert(t, qt.Equals(strings.Contains(out, "else"), true))
	qt.Assert(t, qt.Equals(strings.Contains(out, "end"), true))
}

func TestEmitDefaultValueOrExpression(t *testing.T) {
	cat := catalogue.New()
	e := New(cat, Options{})
	def := ast.Default(ast.NumberConst("1"), ast.NumberConst("0"))
	out := e.expr(def, catalogue.PrecStatement)
	qt.Assert(t, qt.Equals(out, "(1 or 0)"))
}

func TestLuaQuoteEscapesSpecialCharacters(t *testing.T) {
	out := luaQuote("a\"b\\c\nd")
	qt.Assert(t, qt.Equals(out, `"a\"b\\c\nd"`))
}

func TestEmitStringConstantLowercasesWhenConfigured(t *testing.T) {
	cat := catalogue.New()
	e := New(cat, Options{Lowercase: true})
	out := e.expr(ast.StringConst("HELLO"), catalogue.PrecStatement)
	qt.Assert(t, qt.Equals(out, `"hello"`))
}
