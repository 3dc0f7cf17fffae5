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

package optimize

import "github.com/lnrisk/pmml2lua/internal/ast"

// EliminateDeadCode implements rule 3 (declarations never read are
// dropped) and rule 4 (a declaration used at most once, with a cheap
// initialiser, is inlined at its use site respecting evaluation order).
// Reads are counted across the whole tree, per spec.md §4.7.
func (o *Optimizer) EliminateDeadCode(root *ast.Node) *ast.Node {
	for {
		counts := countReads(root, map[int]int{})
		next, changed := dropAndInline(root, counts)
		if !changed {
			return next
		}
		root = next
	}
}

func countReads(n *ast.Node, counts map[int]int) map[int]int {
	if n == nil {
		return counts
	}
	if n.Kind == ast.KindFieldRef {
		counts[n.Field.ID]++
	}
	for _, c := range n.Children {
		countReads(c, counts)
	}
	return counts
}

// isCheap reports whether an initialiser is cheap enough to duplicate
// at an inlined use site (a single field reference or literal).
func isCheap(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindConstant, ast.KindFieldRef:
		return true
	default:
		return false
	}
}

func dropAndInline(n *ast.Node, counts map[int]int) (*ast.Node, bool) {
	if n == nil {
		return nil, false
	}
	changed := false

	if n.Kind == ast.KindBlock {
		var out []*ast.Node
		i := 0
		for i < len(n.Children) {
			stmt := n.Children[i]
			if stmt.Kind == ast.KindDeclaration {
				reads := counts[stmt.Field.ID]
				if reads == 0 {
					changed = true
					i++
					continue
				}
				if reads == 1 && isCheap(stmt.Children[0]) && i+1 < len(n.Children) {
					rest := n.Children[i+1:]
					inlined, ok := inlineFirstUse(rest, stmt.Field.ID, stmt.Children[0])
					if ok {
						changed = true
						out = append(out, inlined...)
						i = len(n.Children)
						continue
					}
				}
			}
			rewritten, ch := dropAndInline(stmt, counts)
			changed = changed || ch
			out = append(out, rewritten)
			i++
		}
		return ast.Block(out...), changed
	}

	if len(n.Children) == 0 {
		return n, false
	}
	newChildren := make([]*ast.Node, len(n.Children))
	for i, c := range n.Children {
		nc, ch := dropAndInline(c, counts)
		newChildren[i] = nc
		changed = changed || ch
	}
	cp := *n
	cp.Children = newChildren
	return &cp, changed
}

// inlineFirstUse replaces the first field-ref to fieldID found (in
// evaluation order) within stmts with replacement, returning the new
// statement list. It only fires when exactly one use exists, matching
// the caller's precondition (reads==1).
func inlineFirstUse(stmts []*ast.Node, fieldID int, replacement *ast.Node) ([]*ast.Node, bool) {
	out := make([]*ast.Node, len(stmts))
	done := false
	for i, s := range stmts {
		out[i], done = substituteOnce(s, fieldID, replacement, done)
	}
	return out, done
}

func substituteOnce(n *ast.Node, fieldID int, replacement *ast.Node, done bool) (*ast.Node, bool) {
	if n == nil || done {
		return n, done
	}
	if n.Kind == ast.KindFieldRef && n.Field.ID == fieldID {
		return replacement, true
	}
	if len(n.Children) == 0 {
		return n, false
	}
	newChildren := make([]*ast.Node, len(n.Children))
	for i, c := range n.Children {
		newChildren[i], done = substituteOnce(c, fieldID, replacement, done)
	}
	cp := *n
	cp.Children = newChildren
	return &cp, done
}
