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

// Package analysis implements the static reasoning the optimiser drives
// (spec.md §4.6): conservative might-be-missing analysis, trivial
// predicate detection, and the non-missing assertion stack.
package analysis

import (
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

// Trivial is the result of checkIfTrivial.
type Trivial int

const (
	AlwaysTrue Trivial = iota
	AlwaysFalse
	RuntimeEvaluationNeeded
)

// Assertions is the scoped stack of "this field is known non-missing"
// facts, matching the lexical shape of conditional branches: entering a
// branch that tests field f non-missing pushes an assertion; leaving the
// branch pops it. It is itself a scoped resource in the sense of spec.md
// §9: callers push on entry and must pop on exit, including error exits.
type Assertions struct {
	known map[int]bool // field id -> non-missing
	stack []int
}

func NewAssertions() *Assertions { return &Assertions{known: map[int]bool{}} }

// Guard is returned by Assert; calling Release pops the assertion.
type Guard struct {
	a  *Assertions
	id int
	had bool
}

func (g Guard) Release() {
	if g.had {
		return
	}
	delete(g.a.known, g.id)
}

// Assert records that field id is known non-missing for the remainder
// of the current lexical region.
func (a *Assertions) Assert(id int) Guard {
	had := a.known[id]
	a.known[id] = true
	return Guard{a: a, id: id, had: had}
}

// IsAsserted reports whether id is currently known non-missing.
func (a *Assertions) IsAsserted(id int) bool { return a.known[id] }

// Analyser bundles the catalogue lookup the missingness analysis needs.
type Analyser struct {
	Cat *catalogue.Catalogue
}

func New(cat *catalogue.Catalogue) *Analyser { return &Analyser{Cat: cat} }

// MightBeMissing is a conservative predicate over the AST: it returns
// true unless the node's shape and the current assertions prove the
// value cannot be missing. Conservatism means false negatives are a bug
// (an optimisation could change behaviour) but false positives are only
// a missed optimisation.
func (an *Analyser) MightBeMissing(n *ast.Node, assertions *Assertions) bool {
	switch n.Kind {
	case ast.KindConstant:
		return n.Type == pmml.TypeVoid
	case ast.KindFieldRef:
		if assertions != nil && assertions.IsAsserted(n.Field.ID) {
			return false
		}
		return n.Field.Origin == pmml.OriginDataDictionary || n.Field.Origin == pmml.OriginTransformedValue
	case ast.KindCall:
		entry, ok := an.Cat.Lookup(n.CallName)
		if !ok {
			return true
		}
		switch entry.Missingness {
		case catalogue.NeverMissing, catalogue.IsMissing, catalogue.IsNotMissing:
			return false
		case catalogue.MissingIfAnyArgMissing:
			for _, c := range n.Children {
				if an.MightBeMissing(c, assertions) {
					return true
				}
			}
			return false
		case catalogue.MissingIfAllArgsMissing, catalogue.SurrogateMacro:
			for _, c := range n.Children {
				if !an.MightBeMissing(c, assertions) {
					return false
				}
			}
			return len(n.Children) > 0
		case catalogue.DefaultValueClass:
			if len(n.Children) != 2 {
				return true
			}
			return an.MightBeMissing(n.Children[1], assertions)
		default:
			return true
		}
	case ast.KindDefaultValue:
		if len(n.Children) != 2 {
			return true
		}
		return an.MightBeMissing(n.Children[1], assertions)
	case ast.KindSentinel:
		return true
	default:
		return false
	}
}

// CheckIfTrivial decides whether n (assumed boolean-typed) is a compile-
// time constant. Constants and tautological catalogue applications
// fold; everything else needs runtime evaluation.
func (an *Analyser) CheckIfTrivial(n *ast.Node) Trivial {
	switch n.Kind {
	case ast.KindConstant:
		if n.Type == pmml.TypeBool {
			if n.Bool {
				return AlwaysTrue
			}
			return AlwaysFalse
		}
		return RuntimeEvaluationNeeded
	case ast.KindCall:
		switch n.CallName {
		case "not":
			if len(n.Children) == 1 {
				switch an.CheckIfTrivial(n.Children[0]) {
				case AlwaysTrue:
					return AlwaysFalse
				case AlwaysFalse:
					return AlwaysTrue
				}
			}
		case "and":
			allTrue := true
			for _, c := range n.Children {
				t := an.CheckIfTrivial(c)
				if t == AlwaysFalse {
					return AlwaysFalse
				}
				if t != AlwaysTrue {
					allTrue = false
				}
			}
			if allTrue {
				return AlwaysTrue
			}
		case "or":
			allFalse := true
			for _, c := range n.Children {
				t := an.CheckIfTrivial(c)
				if t == AlwaysTrue {
					return AlwaysTrue
				}
				if t != AlwaysFalse {
					allFalse = false
				}
			}
			if allFalse {
				return AlwaysFalse
			}
		case "==", "<", "<=", ">", ">=", "~=":
			if len(n.Children) == 2 && n.Children[0].Kind == ast.KindConstant && n.Children[1].Kind == ast.KindConstant {
				if ok, val := foldCompare(n.CallName, n.Children[0], n.Children[1]); ok {
					if val {
						return AlwaysTrue
					}
					return AlwaysFalse
				}
			}
		}
	}
	return RuntimeEvaluationNeeded
}
