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

// Package optimize implements the whole-tree fixed-point rewrite driven
// by the analyser (spec.md §4.7): constant folding, short-circuit
// elimination, dead-code removal, variable inlining, default-value
// fusion, and block flattening. Every pass must preserve observable
// semantics (spec.md §8 property 4); none of them may change what a
// field listed in an output mapping evaluates to for any input.
package optimize

import (
	"github.com/lnrisk/pmml2lua/internal/analysis"
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
)

// Optimizer runs the rewrite passes to a fixed point.
type Optimizer struct {
	an  *analysis.Analyser
	cat *catalogue.Catalogue
}

func New(cat *catalogue.Catalogue) *Optimizer {
	return &Optimizer{an: analysis.New(cat), cat: cat}
}

// Run rewrites root until no pass changes the tree, and returns the
// result. It never mutates the input tree in place; every pass returns
// a (possibly shared) new node.
func (o *Optimizer) Run(root *ast.Node) *ast.Node {
	const maxRounds = 64
	cur := root
	for outer := 0; outer < 8; outer++ {
		anyChanged := false
		for i := 0; i < maxRounds; i++ {
			next, changed := o.round(cur, analysis.NewAssertions())
			cur = next
			if !changed {
				break
			}
			anyChanged = true
		}
		afterDead := o.EliminateDeadCode(cur)
		if !nodesEqual(afterDead, cur) {
			anyChanged = true
		}
		cur = afterDead
		if !anyChanged {
			break
		}
	}
	return cur
}

// nodesEqual is a shallow structural guard used only to decide whether
// the dead-code pass made progress this outer round; it does not need
// to be a full deep-equality check since EliminateDeadCode already
// iterates to its own fixed point.
func nodesEqual(a, b *ast.Node) bool {
	return len(a.Children) == len(b.Children)
}

// round performs one pass of every rewrite rule over the tree,
// bottom-up, and reports whether anything changed.
func (o *Optimizer) round(n *ast.Node, assertions *analysis.Assertions) (*ast.Node, bool) {
	if n == nil {
		return nil, false
	}
	changedAny := false

	// Recurse first (bottom-up), honouring the lexical assertion shape
	// for if-chains: the condition's truth asserts non-missing facts
	// for the corresponding body only.
	switch n.Kind {
	case ast.KindIfChain:
		newChildren := make([]*ast.Node, 0, len(n.Children))
		for i := 0; i < len(n.Children); i += 2 {
			if i+1 >= len(n.Children) {
				// Trailing else body.
				body, ch := o.round(n.Children[i], assertions)
				changedAny = changedAny || ch
				newChildren = append(newChildren, body)
				break
			}
			cond, ch1 := o.round(n.Children[i], assertions)
			guards := assertNonMissing(assertions, cond)
			body, ch2 := o.round(n.Children[i+1], assertions)
			for _, g := range guards {
				g.Release()
			}
			changedAny = changedAny || ch1 || ch2
			newChildren = append(newChildren, cond, body)
		}
		n = &ast.Node{Kind: n.Kind, Type: n.Type, Children: newChildren}
	default:
		if len(n.Children) > 0 {
			newChildren := make([]*ast.Node, len(n.Children))
			for i, c := range n.Children {
				nc, ch := o.round(c, assertions)
				newChildren[i] = nc
				changedAny = changedAny || ch
			}
			n = withChildren(n, newChildren)
		}
	}

	if rewritten, ch := o.rewriteNode(n, assertions); ch {
		return rewritten, true
	}
	return n, changedAny
}

func withChildren(n *ast.Node, children []*ast.Node) *ast.Node {
	cp := *n
	cp.Children = children
	return &cp
}

// assertNonMissing pushes assertions implied by a condition being true
// (is-not-missing(x) on a field reference, also inside an "and"), so the
// analyser can prove the guarded body doesn't need a defensive default.
// Any other condition, surrogate included, asserts nothing.
func assertNonMissing(a *analysis.Assertions, cond *ast.Node) []analysis.Guard {
	var guards []analysis.Guard
	if cond.Kind != ast.KindCall {
		return guards
	}
	switch cond.CallName {
	case "is-not-missing":
		if len(cond.Children) == 1 && cond.Children[0].Kind == ast.KindFieldRef {
			guards = append(guards, a.Assert(cond.Children[0].Field.ID))
		}
	case "and":
		for _, c := range cond.Children {
			guards = append(guards, assertNonMissing(a, c)...)
		}
	}
	return guards
}

// rewriteNode applies every single-node rule and reports whether any
// fired.
func (o *Optimizer) rewriteNode(n *ast.Node, assertions *analysis.Assertions) (*ast.Node, bool) {
	if out, ok := o.foldConstant(n); ok {
		return out, true
	}
	if out, ok := o.shortCircuit(n); ok {
		return out, true
	}
	if out, ok := o.dropDeadIfArms(n); ok {
		return out, true
	}
	if out, ok := o.fuseDefault(n, assertions); ok {
		return out, true
	}
	if out, ok := o.flattenBlock(n); ok {
		return out, true
	}
	return n, false
}

// foldConstant implements rule 1: constant folding for pure catalogue
// functions with literal arguments.
func (o *Optimizer) foldConstant(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != ast.KindCall {
		return n, false
	}
	switch n.CallName {
	case "+", "-", "*", "/":
		if len(n.Children) == 2 {
			if folded, ok := analysis.FoldArithmetic(n.CallName, n.Children[0], n.Children[1]); ok {
				return folded, true
			}
		} else if n.CallName == "-" && len(n.Children) == 1 {
			if folded, ok := analysis.FoldArithmetic("unary-minus", n.Children[0], nil); ok {
				return folded, true
			}
		}
	case "==", "~=", "<", "<=", ">", ">=":
		if len(n.Children) == 2 {
			if t := o.an.CheckIfTrivial(n); t != analysis.RuntimeEvaluationNeeded {
				return ast.BoolConst(t == analysis.AlwaysTrue), true
			}
		}
	case "not", "and", "or":
		if t := o.an.CheckIfTrivial(n); t != analysis.RuntimeEvaluationNeeded {
			return ast.BoolConst(t == analysis.AlwaysTrue), true
		}
	}
	return n, false
}

// shortCircuit implements rule 2 for and/or expressions: an operand
// known trivial collapses the whole expression or drops out of it.
func (o *Optimizer) shortCircuit(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != ast.KindCall || (n.CallName != "and" && n.CallName != "or") {
		return n, false
	}
	var kept []*ast.Node
	changed := false
	for _, c := range n.Children {
		t := o.an.CheckIfTrivial(c)
		if n.CallName == "and" && t == analysis.AlwaysTrue {
			changed = true
			continue
		}
		if n.CallName == "and" && t == analysis.AlwaysFalse {
			return ast.BoolConst(false), true
		}
		if n.CallName == "or" && t == analysis.AlwaysFalse {
			changed = true
			continue
		}
		if n.CallName == "or" && t == analysis.AlwaysTrue {
			return ast.BoolConst(true), true
		}
		kept = append(kept, c)
	}
	if !changed {
		return n, false
	}
	if len(kept) == 0 {
		return ast.BoolConst(n.CallName == "and"), true
	}
	if len(kept) == 1 {
		return kept[0], true
	}
	return ast.Call(n.CallName, n.Type, kept...), true
}

// dropDeadIfArms implements the if-chain half of rule 2: conditional
// chains drop ALWAYS_FALSE arms and short-circuit (drop every
// subsequent arm) after an ALWAYS_TRUE arm.
func (o *Optimizer) dropDeadIfArms(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != ast.KindIfChain {
		return n, false
	}
	changed := false
	var kept []*ast.Node
	var elseBody *ast.Node
	hasElse := n.HasElse()
	pairs := n.Children
	if hasElse {
		elseBody = pairs[len(pairs)-1]
		pairs = pairs[:len(pairs)-1]
	}
	for i := 0; i < len(pairs); i += 2 {
		cond, body := pairs[i], pairs[i+1]
		t := o.an.CheckIfTrivial(cond)
		if t == analysis.AlwaysFalse {
			changed = true
			continue
		}
		if t == analysis.AlwaysTrue {
			changed = true
			elseBody = body
			hasElse = true
			break
		}
		kept = append(kept, cond, body)
	}
	if !changed {
		return n, false
	}
	if len(kept) == 0 {
		if hasElse {
			return elseBody, true
		}
		return ast.Block(), true
	}
	if !hasElse {
		elseBody = nil
	}
	return ast.IfChain(kept, elseBody), true
}

// fuseDefault implements rule 5: default(default(x, a), b) -> default(x, a)
// when a is known non-missing.
func (o *Optimizer) fuseDefault(n *ast.Node, assertions *analysis.Assertions) (*ast.Node, bool) {
	if n.Kind != ast.KindDefaultValue || len(n.Children) != 2 {
		return n, false
	}
	inner := n.Children[0]
	if inner.Kind != ast.KindDefaultValue || len(inner.Children) != 2 {
		return n, false
	}
	a := inner.Children[1]
	if !o.an.MightBeMissing(a, assertions) {
		return inner, true
	}
	return n, false
}

// flattenBlock implements rule 6: nested single-statement blocks
// collapse, and any block statement is itself flattened one level when
// it yields exactly its children.
func (o *Optimizer) flattenBlock(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != ast.KindBlock {
		return n, false
	}
	var flat []*ast.Node
	changed := false
	for _, c := range n.Children {
		if c.Kind == ast.KindBlock {
			flat = append(flat, c.Children...)
			changed = true
		} else {
			flat = append(flat, c)
		}
	}
	if !changed {
		return n, false
	}
	return ast.Block(flat...), true
}
