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

func newBuilder() *Builder {
	return NewBuilder(NewContext(), catalogue.New())
}

func TestBuilderCallReducesArguments(t *testing.T) {
	b := newBuilder()
	b.PushNumber("1")
	b.PushNumber("2")
	b.Call("+", 2)

	node := b.Finish()
	qt.Assert(t, qt.Equals(node.Kind, ast.KindCall))
	qt.Assert(t, qt.Equals(node.Type, pmml.TypeNumber))
	qt.Assert(t, qt.Equals(len(node.Children), 2))
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), false))
}

func TestBuilderCallUnknownNameReportsInvariant(t *testing.T) {
	b := newBuilder()
	b.PushNumber("1")
	b.Call("not-a-real-op", 1)
	b.Finish()
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), true))
}

func TestBuilderPopUnderflowIsRecoverable(t *testing.T) {
	b := newBuilder()
	n := b.Pop()
	qt.Assert(t, qt.Equals(n.Kind, ast.KindSentinel))
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), true))
}

func TestBuilderIfChainWithElse(t *testing.T) {
	b := newBuilder()
	b.PushBool(true)
	b.Block(0)
	b.PushBool(false)
	b.Block(0)
	b.Block(0)
	b.IfChain(2, true)

	node := b.Finish()
	qt.Assert(t, qt.Equals(node.Kind, ast.KindIfChain))
	qt.Assert(t, qt.Equals(node.HasElse(), true))
}

func TestBuilderCoerceToTypeStringToNumber(t *testing.T) {
	b := newBuilder()
	n := ast.StringConst("3")
	coerced := b.CoerceToType(n, pmml.TypeNumber)
	qt.Assert(t, qt.Equals(coerced.Kind, ast.KindCall))
	qt.Assert(t, qt.Equals(coerced.CallName, "to-number"))
}

func TestBuilderCoerceToTypeIncompatibleReportsError(t *testing.T) {
	b := newBuilder()
	n := ast.BoolConst(true)
	coerced := b.CoerceToType(n, pmml.TypeString)
	_ = coerced
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), true))
}

func TestBuilderFinishReportsInvariantOnMultipleLeftover(t *testing.T) {
	b := newBuilder()
	b.PushNumber("1")
	b.PushNumber("2")
	b.Finish()
	qt.Assert(t, qt.Equals(b.Ctx.Sink.Failed(), true))
}
