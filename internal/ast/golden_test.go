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
	"github.com/google/go-cmp/cmp"
	"github.com/kr/pretty"

	"github.com/lnrisk/pmml2lua/internal/pmml"
)

func sampleExpr(rhs string) *Node {
	cond := Call("==", pmml.TypeBool, StringConst("a"), StringConst(rhs))
	then := Block(Return(NumberConst("1")))
	elseBody := Block(Return(NumberConst("0")))
	return IfChain([]*Node{cond, then}, elseBody)
}

// TestPrettyDumpIsDeterministic checks that kr/pretty's structural dump
// of an AST subtree is a pure function of its shape: two independently
// built but identical trees dump to the same text, and a tree that
// differs in one leaf dumps to different text.
func TestPrettyDumpIsDeterministic(t *testing.T) {
	a, b, c := sampleExpr("x"), sampleExpr("x"), sampleExpr("y")

	dumpA := pretty.Sprint(a)
	dumpB := pretty.Sprint(b)
	dumpC := pretty.Sprint(c)

	qt.Assert(t, qt.Equals(dumpA, dumpB))
	qt.Assert(t, qt.Not(qt.Equals(dumpA, dumpC)))
}

// TestStructuralDiffOverNodes exercises go-cmp the way the teacher's
// adt tests compare values structurally: identical trees diff to
// nothing, a tree differing in one operand diffs to something.
func TestStructuralDiffOverNodes(t *testing.T) {
	a, b, c := sampleExpr("x"), sampleExpr("x"), sampleExpr("y")

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("identical trees diverged:\n%s", diff)
	}
	if diff := cmp.Diff(a, c); diff == "" {
		t.Fatal("expected a diff between trees with different operands")
	}
}
