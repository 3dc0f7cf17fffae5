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
	"strconv"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/lnrisk/pmml2lua/internal/ast"
)

func TestFoldCompareNumbers(t *testing.T) {
	ok, result := foldCompare("<", ast.NumberConst("1"), ast.NumberConst("2"))
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(result, true))
}

func TestFoldCompareStrings(t *testing.T) {
	ok, result := foldCompare("==", ast.StringConst("a"), ast.StringConst("a"))
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(result, true))
}

func TestFoldCompareMismatchedTypesIsNotFoldable(t *testing.T) {
	ok, _ := foldCompare("==", ast.NumberConst("1"), ast.StringConst("1"))
	qt.Assert(t, qt.Equals(ok, false))
}

func TestFoldArithmeticAddition(t *testing.T) {
	node, ok := FoldArithmetic("+", ast.NumberConst("1.5"), ast.NumberConst("2.5"))
	qt.Assert(t, qt.Equals(ok, true))
	got, err := strconv.ParseFloat(node.Num, 64)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, 4.0))
}

func TestFoldArithmeticDivisionByZeroIsNotFoldable(t *testing.T) {
	_, ok := FoldArithmetic("/", ast.NumberConst("1"), ast.NumberConst("0"))
	qt.Assert(t, qt.Equals(ok, false))
}

func TestFoldArithmeticNonConstantIsNotFoldable(t *testing.T) {
	field := &ast.Node{Kind: ast.KindFieldRef}
	_, ok := FoldArithmetic("+", field, ast.NumberConst("1"))
	qt.Assert(t, qt.Equals(ok, false))
}

func TestFoldArithmeticUnaryMinus(t *testing.T) {
	node, ok := FoldArithmetic("unary-minus", ast.NumberConst("3"), nil)
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(node.Num, "-3"))
}
