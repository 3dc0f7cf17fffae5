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

// Package catalogue is the closed registry of every scalar operator,
// arithmetic built-in, and statement-shaped macro used by compiled code
// (spec.md §4.3). It is consulted by the builder for argument coercion,
// by the emitter for parenthesisation, and by the analyser for
// missing-value propagation.
package catalogue

import "github.com/lnrisk/pmml2lua/internal/pmml"

// Missingness classifies how a function call's result depends on
// whether its arguments might be missing.
type Missingness int

const (
	NeverMissing Missingness = iota
	MissingIfAnyArgMissing
	MissingIfAllArgsMissing
	SurrogateMacro // tries arguments in order; first non-missing wins
	IsMissing
	IsNotMissing
	DefaultValueClass // right-hand side substitutes when left is missing
)

// Precedence classes, lowest to highest binding, used by the emitter to
// decide when to parenthesise a child expression. Statement-shaped
// entries use PrecStatement and are never nested inside an expression.
type Precedence int

const (
	PrecStatement Precedence = iota
	PrecOr
	PrecAnd
	PrecNot
	PrecCompare
	PrecConcat
	PrecAdd
	PrecMul
	PrecUnary
	PrecPow
	PrecCall
	PrecAtom
)

// Entry describes one catalogue member.
type Entry struct {
	Name        string
	Variadic    bool
	ArgCount    int // meaningful only when !Variadic
	ArgTypes    []pmml.ValueType
	ReturnType  pmml.ValueType
	Prec        Precedence
	Missingness Missingness
	// Infix, when non-empty, is the Lua operator/spelling the emitter
	// renders for a 2-arg call instead of a function-call syntax.
	Infix string
}

// Catalogue is the closed set of entries, keyed by stable identifier.
type Catalogue struct {
	entries map[string]Entry
}

// New builds the standard catalogue used by every compilation.
func New() *Catalogue {
	c := &Catalogue{entries: map[string]Entry{}}
	for _, e := range standardEntries {
		c.entries[e.Name] = e
	}
	return c
}

// Lookup finds a catalogue entry by name.
func (c *Catalogue) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// MustLookup is a convenience for call sites that only ever ask for
// catalogue members known to exist (a programming error otherwise).
func (c *Catalogue) MustLookup(name string) Entry {
	e, ok := c.entries[name]
	if !ok {
		panic("pmml2lua: unknown catalogue entry " + name)
	}
	return e
}

var number = pmml.TypeNumber
var str = pmml.TypeString
var boolean = pmml.TypeBool
var void = pmml.TypeVoid

func args(n int, t pmml.ValueType) []pmml.ValueType {
	out := make([]pmml.ValueType, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// standardEntries is the closed registry. Arithmetic and comparison
// operators render infix in the emitter; everything else renders as a
// Lua function call (arithmetic helpers live in a small runtime prelude
// the emitted program requires, e.g. pmml_missing, pmml_round).
var standardEntries = []Entry{
	{Name: "+", ArgCount: 2, ArgTypes: args(2, number), ReturnType: number, Prec: PrecAdd, Missingness: MissingIfAnyArgMissing, Infix: "+"},
	{Name: "-", ArgCount: 2, ArgTypes: args(2, number), ReturnType: number, Prec: PrecAdd, Missingness: MissingIfAnyArgMissing, Infix: "-"},
	{Name: "*", ArgCount: 2, ArgTypes: args(2, number), ReturnType: number, Prec: PrecMul, Missingness: MissingIfAnyArgMissing, Infix: "*"},
	{Name: "/", ArgCount: 2, ArgTypes: args(2, number), ReturnType: number, Prec: PrecMul, Missingness: MissingIfAnyArgMissing, Infix: "/"},
	{Name: "^", ArgCount: 2, ArgTypes: args(2, number), ReturnType: number, Prec: PrecPow, Missingness: MissingIfAnyArgMissing, Infix: "^"},
	{Name: "unary-minus", ArgCount: 1, ArgTypes: args(1, number), ReturnType: number, Prec: PrecUnary, Missingness: MissingIfAnyArgMissing, Infix: "-"},
	{Name: "..", ArgCount: 2, ArgTypes: []pmml.ValueType{str, str}, ReturnType: str, Prec: PrecConcat, Missingness: MissingIfAnyArgMissing, Infix: ".."},

	{Name: "==", ArgCount: 2, ArgTypes: args(2, str), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: "=="},
	{Name: "~=", ArgCount: 2, ArgTypes: args(2, str), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: "~="},
	{Name: "<", ArgCount: 2, ArgTypes: args(2, number), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: "<"},
	{Name: "<=", ArgCount: 2, ArgTypes: args(2, number), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: "<="},
	{Name: ">", ArgCount: 2, ArgTypes: args(2, number), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: ">"},
	{Name: ">=", ArgCount: 2, ArgTypes: args(2, number), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing, Infix: ">="},

	{Name: "and", Variadic: true, ArgTypes: nil, ReturnType: boolean, Prec: PrecAnd, Missingness: MissingIfAnyArgMissing, Infix: "and"},
	{Name: "or", Variadic: true, ArgTypes: nil, ReturnType: boolean, Prec: PrecOr, Missingness: MissingIfAllArgsMissing, Infix: "or"},
	{Name: "not", ArgCount: 1, ArgTypes: []pmml.ValueType{boolean}, ReturnType: boolean, Prec: PrecNot, Missingness: MissingIfAnyArgMissing, Infix: "not"},
	{Name: "xor", ArgCount: 2, ArgTypes: args(2, boolean), ReturnType: boolean, Prec: PrecCompare, Missingness: MissingIfAnyArgMissing},

	{Name: "is-missing", ArgCount: 1, ArgTypes: []pmml.ValueType{str}, ReturnType: boolean, Prec: PrecCall, Missingness: IsMissing},
	{Name: "is-not-missing", ArgCount: 1, ArgTypes: []pmml.ValueType{str}, ReturnType: boolean, Prec: PrecCall, Missingness: IsNotMissing},
	{Name: "default", ArgCount: 2, ArgTypes: []pmml.ValueType{str, str}, ReturnType: str, Prec: PrecCall, Missingness: DefaultValueClass},
	{Name: "surrogate", Variadic: true, ReturnType: str, Prec: PrecCall, Missingness: SurrogateMacro},

	{Name: "min", Variadic: true, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "max", Variadic: true, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "abs", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "sqrt", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "exp", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "ln", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "log10", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "round", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "ceiling", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "floor", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},

	// Neural-network/regression activation and link functions (spec.md
	// §4.5.4): these render as pmml_* runtime-prelude calls, the same as
	// every other non-infix entry.
	{Name: "logistic", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "tanh", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "gauss", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "softmax-normalize", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},

	{Name: "to-string", ArgCount: 1, ArgTypes: []pmml.ValueType{number}, ReturnType: str, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "to-number", ArgCount: 1, ArgTypes: []pmml.ValueType{str}, ReturnType: number, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},
	{Name: "in-string-table", ArgCount: 2, ArgTypes: []pmml.ValueType{str, pmml.TypeStringTable}, ReturnType: boolean, Prec: PrecCall, Missingness: MissingIfAnyArgMissing},

	{Name: "return", Variadic: true, ReturnType: void, Prec: PrecStatement, Missingness: NeverMissing},
	{Name: "assign", ArgCount: 2, ReturnType: void, Prec: PrecStatement, Missingness: NeverMissing},
	{Name: "declare", ArgCount: 2, ReturnType: void, Prec: PrecStatement, Missingness: NeverMissing},
	{Name: "if-chain", Variadic: true, ReturnType: void, Prec: PrecStatement, Missingness: NeverMissing},
	{Name: "block", Variadic: true, ReturnType: void, Prec: PrecStatement, Missingness: NeverMissing},
}
