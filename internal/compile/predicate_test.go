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
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
	"github.com/lnrisk/pmml2lua/internal/token"
)

func parsePredicate(t *testing.T, xml string) *xmldom.Element {
	t.Helper()
	el, err := xmldom.Parse(strings.NewReader(xml), "<test>")
	qt.Assert(t, qt.IsNil(err))
	return el
}

func fieldResolver(fds map[string]*pmml.FieldDescription) func(string) (*pmml.FieldDescription, bool) {
	return func(name string) (*pmml.FieldDescription, bool) {
		fd, ok := fds[name]
		return fd, ok
	}
}

func TestCompilePredicateTrueFalse(t *testing.T) {
	b := NewBuilder(NewContext(), catalogue.New())
	resolve := fieldResolver(nil)

	tr := b.CompilePredicate(parsePredicate(t, `<True/>`), resolve)
	qt.Assert(t, qt.Equals(tr.Kind, ast.KindConstant))
	qt.Assert(t, qt.Equals(tr.Bool, true))

	fl := b.CompilePredicate(parsePredicate(t, `<False/>`), resolve)
	qt.Assert(t, qt.Equals(fl.Bool, false))
}

func TestCompileSimplePredicateEqual(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(map[string]*pmml.FieldDescription{"age": fd})

	node := b.CompilePredicate(parsePredicate(t, `<SimplePredicate field="age" operator="equal" value="21"/>`), resolve)
	qt.Assert(t, qt.Equals(node.Kind, ast.KindCall))
	qt.Assert(t, qt.Equals(node.CallName, "=="))
	qt.Assert(t, qt.Equals(ctx.Sink.Failed(), false))
}

func TestCompileSimplePredicateIsMissing(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(map[string]*pmml.FieldDescription{"age": fd})

	node := b.CompilePredicate(parsePredicate(t, `<SimplePredicate field="age" operator="isMissing"/>`), resolve)
	qt.Assert(t, qt.Equals(node.CallName, "is-missing"))
}

func TestCompileSimplePredicateUnknownFieldReportsError(t *testing.T) {
	ctx := NewContext()
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(nil)

	b.CompilePredicate(parsePredicate(t, `<SimplePredicate field="missing" operator="equal" value="1"/>`), resolve)
	qt.Assert(t, qt.Equals(ctx.Sink.Failed(), true))
}

func TestCompileSetPredicateIsIn(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("color", pmml.DataField{Type: pmml.TypeString}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(map[string]*pmml.FieldDescription{"color": fd})

	node := b.CompilePredicate(parsePredicate(t, `<SimpleSetPredicate field="color" booleanOperator="isIn"><Array type="string">red green blue</Array></SimpleSetPredicate>`), resolve)
	qt.Assert(t, qt.Equals(node.CallName, "in-string-table"))
}

func TestCompileCompoundPredicateAnd(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(map[string]*pmml.FieldDescription{"age": fd})

	xml := `<CompoundPredicate booleanOperator="and">
		<SimplePredicate field="age" operator="greaterThan" value="18"/>
		<SimplePredicate field="age" operator="lessThan" value="65"/>
	</CompoundPredicate>`
	node := b.CompilePredicate(parsePredicate(t, xml), resolve)
	qt.Assert(t, qt.Equals(node.CallName, "and"))
	qt.Assert(t, qt.Equals(ctx.Sink.Failed(), false))
}

func TestCompileCompoundPredicateSurrogate(t *testing.T) {
	ctx := NewContext()
	fd := ctx.Declare("age", pmml.DataField{Type: pmml.TypeNumber}, pmml.OriginDataDictionary, token.NoPos)
	b := NewBuilder(ctx, catalogue.New())
	resolve := fieldResolver(map[string]*pmml.FieldDescription{"age": fd})

	xml := `<CompoundPredicate booleanOperator="surrogate">
		<SimplePredicate field="age" operator="isMissing"/>
		<True/>
	</CompoundPredicate>`
	node := b.CompilePredicate(parsePredicate(t, xml), resolve)
	qt.Assert(t, qt.Equals(node.CallName, "surrogate"))
	qt.Assert(t, qt.Equals(len(node.Children), 2))
}
