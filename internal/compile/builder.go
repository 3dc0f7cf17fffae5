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
	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
	"github.com/lnrisk/pmml2lua/internal/token"
)

// Builder is the stack-based AST constructor model compilers push nodes
// through (spec.md §4.2, §9). Model compilers push leaves (PushField,
// PushConstant) and call, e.g., Call/Block/IfChain to pop and reduce the
// top n entries into a compound node which is itself pushed back.
//
// Errors never panic: a reported error still leaves a sentinel node on
// the stack so a caller that expects one value back always gets one,
// letting compilation continue far enough to surface further
// diagnostics (spec.md §4.2, §7).
type Builder struct {
	Ctx   *Context
	Cat   *catalogue.Catalogue
	stack []*ast.Node
}

func NewBuilder(ctx *Context, cat *catalogue.Catalogue) *Builder {
	return &Builder{Ctx: ctx, Cat: cat}
}

func (b *Builder) push(n *ast.Node) { b.stack = append(b.stack, n) }

// Pop removes and returns the top of the working stack. It is an
// internal-invariant error to pop an empty stack; a sentinel is pushed
// and returned so callers can continue.
func (b *Builder) Pop() *ast.Node {
	if len(b.stack) == 0 {
		b.Ctx.Sink.Add(pmmlerr.InternalInvariant, token.NoPos, "builder stack underflow", "")
		return ast.Sentinel()
	}
	n := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return n
}

// PopN pops and returns the top n entries in original (bottom-to-top)
// order.
func (b *Builder) PopN(n int) []*ast.Node {
	out := make([]*ast.Node, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = b.Pop()
	}
	return out
}

// Len reports the current depth of the working stack (used by model
// compilers that push a variable number of leaves before reducing).
func (b *Builder) Len() int { return len(b.stack) }

// PushField pushes a field-ref node.
func (b *Builder) PushField(f *pmml.FieldDescription) { b.push(ast.Field(f)) }

// PushString, PushNumber, PushBool, PushVoid push literal nodes.
func (b *Builder) PushString(s string) { b.push(ast.StringConst(s)) }
func (b *Builder) PushNumber(n string) { b.push(ast.NumberConst(n)) }
func (b *Builder) PushBool(v bool)     { b.push(ast.BoolConst(v)) }
func (b *Builder) PushVoid()           { b.push(ast.VoidConst()) }

// CoerceToType inserts an explicit conversion call if necessary and
// returns the (possibly wrapped) node, now carrying the requested type.
// Model compilers call this explicitly whenever a downward coercion
// (e.g. number -> string) is required, per spec.md §4.2 "explicit
// coercion is requested via coerce-to-types".
func (b *Builder) CoerceToType(n *ast.Node, want pmml.ValueType) *ast.Node {
	if n.Type == want {
		return n
	}
	if n.Type.CanCoerceTo(want) {
		// Implicit coercions still need a concrete conversion call in
		// the emitted Lua, but no diagnostic: widen only.
		switch {
		case n.Type == pmml.TypeString && want == pmml.TypeNumber:
			return ast.Call("to-number", want, n)
		case want == pmml.TypeBool:
			return &ast.Node{Kind: n.Kind, Type: want, Field: n.Field, ConstVal: n.ConstVal,
				Str: n.Str, Num: n.Num, Bool: n.Bool, CallName: n.CallName, Children: n.Children, Params: n.Params}
		}
		return n
	}
	if want == pmml.TypeString && n.Type == pmml.TypeNumber {
		return ast.Call("to-string", want, n)
	}
	b.Ctx.Sink.Add(pmmlerr.TypeMismatch, token.NoPos, "cannot coerce type", n.Type.String()+" to "+want.String())
	return ast.Sentinel()
}

// Call pops n arguments (or the entry's fixed ArgCount when n<0 and the
// entry is not variadic) and pushes the coerced, type-checked call node
// for name.
func (b *Builder) Call(name string, n int) {
	entry, ok := b.Cat.Lookup(name)
	if !ok {
		b.Ctx.Sink.Add(pmmlerr.InternalInvariant, token.NoPos, "unknown catalogue entry", name)
		b.push(ast.Sentinel())
		return
	}
	count := n
	if !entry.Variadic && count < 0 {
		count = entry.ArgCount
	}
	argNodes := b.PopN(count)
	for i, a := range argNodes {
		if !entry.Variadic && i < len(entry.ArgTypes) {
			argNodes[i] = b.CoerceToType(a, entry.ArgTypes[i])
		}
	}
	node := ast.Call(name, entry.ReturnType, argNodes...)
	if entry.Infix != "" {
		node.CallName = entry.Infix
	}
	b.push(node)
}

// Declare pops an initialiser and pushes a declaration statement for f.
func (b *Builder) Declare(f *pmml.FieldDescription) {
	init := b.Pop()
	b.push(ast.Declare(f, b.CoerceToType(init, f.Field.Type)))
}

// Assign pops a value and pushes a plain assignment statement to f.
func (b *Builder) Assign(f *pmml.FieldDescription) {
	val := b.Pop()
	b.push(ast.Assign(f, b.CoerceToType(val, f.Field.Type)))
}

// AssignIndirect pops (table, key, value) and pushes t[key] = value.
func (b *Builder) AssignIndirect() {
	v := b.Pop()
	k := b.Pop()
	t := b.Pop()
	b.push(ast.AssignIndirect(t, k, v))
}

// Block pops n statements and pushes a block.
func (b *Builder) Block(n int) { b.push(ast.Block(b.PopN(n)...)) }

// IfChain pops n (cond,body) pairs [+1 optional else body] and pushes an
// if-chain. hasElse distinguishes an odd final entry being an else body
// from a trailing condition with no body (never legal).
func (b *Builder) IfChain(pairs int, hasElse bool) {
	total := pairs * 2
	if hasElse {
		total++
	}
	entries := b.PopN(total)
	var elseBody *ast.Node
	if hasElse {
		elseBody = entries[len(entries)-1]
		entries = entries[:len(entries)-1]
	}
	b.push(ast.IfChain(entries, elseBody))
}

// Return pops n values and pushes a return statement.
func (b *Builder) Return(n int) { b.push(ast.Return(b.PopN(n)...)) }

// Default pops (primary, alt) and pushes a missing-coalesce node.
func (b *Builder) Default() {
	alt := b.Pop()
	primary := b.Pop()
	b.push(ast.Default(primary, alt))
}

// Peek returns the top of stack without popping it; used by callers
// that build a node then want to inspect it before deciding on a
// further reduction.
func (b *Builder) Peek() *ast.Node {
	if len(b.stack) == 0 {
		return ast.Sentinel()
	}
	return b.stack[len(b.stack)-1]
}

// Finish returns the top node, the model body, without popping it, and
// reports an internal-invariant error if the stack does not hold exactly
// one node.
func (b *Builder) Finish() *ast.Node {
	if len(b.stack) != 1 {
		b.Ctx.Sink.Add(pmmlerr.InternalInvariant, token.NoPos, "builder stack did not reduce to one node", "")
	}
	if len(b.stack) == 0 {
		return ast.Sentinel()
	}
	return b.stack[len(b.stack)-1]
}
