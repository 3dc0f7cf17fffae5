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
	"github.com/cockroachdb/apd/v3"
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

var decCtx = apd.BaseContext.WithPrecision(40)

// foldCompare evaluates a comparison between two literal constants at
// compile time, used by both the trivial-predicate check and the
// optimiser's constant-folding pass.
func foldCompare(op string, a, b *ast.Node) (ok bool, result bool) {
	if a.Type == pmml.TypeNumber && b.Type == pmml.TypeNumber {
		x, _, err1 := apd.NewFromString(a.Num)
		y, _, err2 := apd.NewFromString(b.Num)
		if err1 != nil || err2 != nil {
			return false, false
		}
		cmp := x.Cmp(y)
		return true, compareResult(op, cmp)
	}
	if a.Type == pmml.TypeString && b.Type == pmml.TypeString {
		var cmp int
		switch {
		case a.Str < b.Str:
			cmp = -1
		case a.Str > b.Str:
			cmp = 1
		}
		return true, compareResult(op, cmp)
	}
	if a.Type == pmml.TypeBool && b.Type == pmml.TypeBool {
		if op == "==" {
			return true, a.Bool == b.Bool
		}
		if op == "~=" {
			return true, a.Bool != b.Bool
		}
	}
	return false, false
}

func compareResult(op string, cmp int) bool {
	switch op {
	case "==":
		return cmp == 0
	case "~=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

// FoldArithmetic evaluates a pure arithmetic catalogue call over two
// literal numeric constants, returning the folded constant node and
// true, or (nil, false) if it cannot be folded at compile time.
func FoldArithmetic(op string, a, b *ast.Node) (*ast.Node, bool) {
	if a.Kind != ast.KindConstant || a.Type != pmml.TypeNumber {
		return nil, false
	}
	x, _, err := apd.NewFromString(a.Num)
	if err != nil {
		return nil, false
	}
	if b == nil {
		var res apd.Decimal
		if op == "unary-minus" {
			if _, err := decCtx.Neg(&res, x); err != nil {
				return nil, false
			}
			return ast.NumberConst(res.Text('f')), true
		}
		return nil, false
	}
	if b.Kind != ast.KindConstant || b.Type != pmml.TypeNumber {
		return nil, false
	}
	y, _, err := apd.NewFromString(b.Num)
	if err != nil {
		return nil, false
	}
	var res apd.Decimal
	var opErr error
	switch op {
	case "+":
		_, opErr = decCtx.Add(&res, x, y)
	case "-":
		_, opErr = decCtx.Sub(&res, x, y)
	case "*":
		_, opErr = decCtx.Mul(&res, x, y)
	case "/":
		if y.IsZero() {
			return nil, false
		}
		_, opErr = decCtx.Quo(&res, x, y)
	default:
		return nil, false
	}
	if opErr != nil {
		return nil, false
	}
	return ast.NumberConst(res.Text('f')), true
}
