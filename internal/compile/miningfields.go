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
	"strconv"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

// PreparedFields is the result of applying mining-field pre-processing:
// a block of declarations plus a resolver that hands model compilers
// the processed (replaced/clamped) temporary instead of the raw field,
// per spec.md §3 "Missing-value treatment rules apply before the field
// is read by the model body."
type PreparedFields struct {
	Preamble []*ast.Node
	resolved map[string]*pmml.FieldDescription
	fallback Resolver
}

// Resolve looks up name among the processed mining fields first, then
// falls back to the raw resolver (for derived/transformed fields that
// never had a MiningField entry).
func (p *PreparedFields) Resolve(name string) (*pmml.FieldDescription, bool) {
	if fd, ok := p.resolved[name]; ok {
		return fd, ok
	}
	if p.fallback != nil {
		return p.fallback(name)
	}
	return nil, false
}

// PrepareMiningFields compiles the preamble that applies each mining
// field's replacement value, outlier treatment, and min/max bounds,
// binding name -> the resulting processed field description.
func (b *Builder) PrepareMiningFields(fields []pmml.MiningField, names []string, rawResolve Resolver) *PreparedFields {
	out := &PreparedFields{resolved: map[string]*pmml.FieldDescription{}}
	for i, mf := range fields {
		name := names[i]
		raw := ast.Field(mf.Variable)
		value := raw

		if mf.HasReplacement {
			replacement := literalFor(mf.Variable.Field.Type, mf.ReplacementValue)
			value = ast.Call("is-missing", pmml.TypeBool, raw)
			value = ast.IfChain([]*ast.Node{value, replacement}, raw)
		}

		if mf.Variable.Field.Type == pmml.TypeNumber {
			switch mf.Outlier {
			case pmml.OutlierAsMissing:
				var cond *ast.Node
				if mf.HasMin {
					cond = b.binaryOp("<", value, ast.NumberConst(formatFloat(mf.Min)))
				}
				if mf.HasMax {
					c := b.binaryOp(">", value, ast.NumberConst(formatFloat(mf.Max)))
					if cond == nil {
						cond = c
					} else {
						cond = b.binaryOp("or", cond, c)
					}
				}
				if cond != nil {
					value = ast.IfChain([]*ast.Node{cond, ast.VoidConst()}, value)
				}
			case pmml.OutlierAsExtreme:
				if mf.HasMin {
					value = ast.Call("max", pmml.TypeNumber, value, ast.NumberConst(formatFloat(mf.Min)))
				}
				if mf.HasMax {
					value = ast.Call("min", pmml.TypeNumber, value, ast.NumberConst(formatFloat(mf.Max)))
				}
			}
		}

		if value == raw {
			out.resolved[name] = mf.Variable
			continue
		}
		temp := b.Ctx.Fresh(name, mf.Variable.Field.Type)
		out.Preamble = append(out.Preamble, ast.Declare(temp, value))
		out.resolved[name] = temp
	}

	// Fields with no mining-field annotation resolve straight through
	// to the raw dictionary/derived field.
	out.fallback = rawResolve
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
