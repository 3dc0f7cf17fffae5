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

package model

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

func parseDocument(t *testing.T, xml string) *xmldom.Element {
	t.Helper()
	root, err := xmldom.Parse(strings.NewReader(xml), "<test>")
	qt.Assert(t, qt.IsNil(err))
	return root
}

const simpleTreePMML = `<PMML version="4.4">
	<DataDictionary>
		<DataField name="age" optype="continuous" dataType="double"/>
		<DataField name="outcome" optype="categorical" dataType="string">
			<Value value="yes"/>
			<Value value="no"/>
		</DataField>
	</DataDictionary>
	<TreeModel functionName="classification">
		<MiningSchema>
			<MiningField name="age" usageType="active"/>
			<MiningField name="outcome" usageType="predicted"/>
		</MiningSchema>
		<Node score="no">
			<True/>
			<Node score="yes">
				<SimplePredicate field="age" operator="greaterThan" value="40"/>
			</Node>
			<Node score="no">
				<SimplePredicate field="age" operator="lessOrEqual" value="40"/>
			</Node>
		</Node>
		<Output>
			<OutputField name="predicted_outcome" dataType="string" feature="predictedValue"/>
		</Output>
	</TreeModel>
</PMML>`

func TestCompileDocumentTreeModel(t *testing.T) {
	root := parseDocument(t, simpleTreePMML)
	ctx := compile.NewContext()
	cat := catalogue.New()

	body, err := CompileDocument(root, ctx, cat, ReturnMultiValue)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(body.Kind, ast.KindBlock))

	outputs := ctx.OutputsInOrder()
	qt.Assert(t, qt.Equals(len(outputs), 1))
	qt.Assert(t, qt.Equals(outputs[0].Field.Type.String(), "string"))

	inputs := ctx.InputsInOrder()
	qt.Assert(t, qt.Equals(len(inputs), 2))
}

func TestCompileDocumentMissingDataDictionary(t *testing.T) {
	root := parseDocument(t, `<PMML version="4.4"><TreeModel/></PMML>`)
	ctx := compile.NewContext()
	cat := catalogue.New()

	_, err := CompileDocument(root, ctx, cat, ReturnMultiValue)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileDocumentUnsupportedModelElement(t *testing.T) {
	root := parseDocument(t, `<PMML version="4.4"><DataDictionary/><NotAModel/></PMML>`)
	ctx := compile.NewContext()
	cat := catalogue.New()

	_, err := CompileDocument(root, ctx, cat, ReturnMultiValue)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileDocumentReturnTablePackaging(t *testing.T) {
	root := parseDocument(t, simpleTreePMML)
	ctx := compile.NewContext()
	cat := catalogue.New()

	body, err := CompileDocument(root, ctx, cat, ReturnTable)
	qt.Assert(t, qt.IsNil(err))

	var last *ast.Node
	for _, s := range body.Children {
		last = s
	}
	qt.Assert(t, qt.Equals(last.Kind, ast.KindReturn))
	qt.Assert(t, qt.Equals(len(last.Names) > 0, true))
}
