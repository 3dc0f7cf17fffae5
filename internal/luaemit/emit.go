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

// Package luaemit renders an optimised AST as Lua source text (spec.md
// §4.8). The emitter never rewrites; every decision it makes (when to
// parenthesise, when a variable must be relocated into the overflow
// table) is derived purely from what is already encoded on the AST.
package luaemit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lnrisk/pmml2lua/internal/ast"
	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/pmml"
)

// InputFormat/OutputFormat select the calling convention of the emitted
// function, per spec.md §6.
type InputFormat int

const (
	InputMultiArg InputFormat = iota
	InputTable
)

type OutputFormat int

const (
	OutputMultiArg OutputFormat = iota
	OutputTable
)

// localVarBudget is the target script's per-function local budget that
// triggers overflow packing once exceeded (spec.md §4.8, §6). Lua 5.1's
// real register limit is 200; a conservative smaller number keeps the
// overflow mechanism exercised by realistically sized models.
const localVarBudget = 180

// sentinelInfinity is the identifier the emitted program uses for the
// PMML invalid/infinite sentinel value, passed as an extra parameter
// when the body references it (spec.md §4.8, §6).
const sentinelInfinity = "PMML_INFINITY"

// Options configures one emission.
type Options struct {
	Lowercase    bool
	InputFormat  InputFormat
	OutputFormat OutputFormat
	FuncName     string // defaults to "func"
}

// Emitter walks one optimised AST and produces Lua source.
type Emitter struct {
	opts Options
	cat  *catalogue.Catalogue
	buf  strings.Builder
	indent int
	usesInfinity bool
}

func New(cat *catalogue.Catalogue, opts Options) *Emitter {
	if opts.FuncName == "" {
		opts.FuncName = "func"
	}
	return &Emitter{opts: opts, cat: cat}
}

// Emit renders the function body for ctx/root as complete Lua source,
// including the function signature, whose first parameter is the
// overflow table when any local overflowed.
func (e *Emitter) Emit(ctx *compile.Context, root *ast.Node) string {
	e.assignOverflowSlots(ctx, root)
	e.usesInfinity = usesInfinitySentinel(root)

	var sig strings.Builder
	sig.WriteString("local function ")
	sig.WriteString(e.opts.FuncName)
	sig.WriteString("(")

	var params []string
	overflowParam := e.overflowTableName(root)
	if overflowParam != "" {
		params = append(params, overflowParam)
	}
	switch e.opts.InputFormat {
	case InputTable:
		params = append(params, "input")
	default:
		for _, in := range ctx.InputsInOrder() {
			params = append(params, e.ident(in.LuaName))
		}
	}
	if e.usesInfinity {
		params = append(params, sentinelInfinity)
	}
	sig.WriteString(strings.Join(params, ", "))
	sig.WriteString(")\n")

	e.buf.Reset()
	e.indent = 1

	if e.opts.InputFormat == InputTable {
		for _, in := range ctx.InputsInOrder() {
			e.writeIndent()
			fmt.Fprintf(&e.buf, "local %s = input[%q]\n", e.ident(in.LuaName), e.lowerIfNeeded(in.LuaName))
		}
	}

	e.emitBlockStatements(root)

	body := e.buf.String()
	return sig.String() + body + "end\n"
}

// overflowTableName returns the Lua name of the overflow-table
// parameter, or "" if no field in this compilation overflowed.
func (e *Emitter) overflowTableName(root *ast.Node) string {
	overflowed := false
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil || overflowed {
			return
		}
		if n.Kind == ast.KindDeclaration && n.Field.OverflowSlot() != 0 {
			overflowed = true
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	if overflowed {
		return "overflow"
	}
	return ""
}

// assignOverflowSlots counts distinct locals declared in the tree and,
// once the count exceeds localVarBudget, assigns every declaration past
// the budget an overflow slot (spec.md §4.8 "Overflow variable").
func (e *Emitter) assignOverflowSlots(ctx *compile.Context, root *ast.Node) {
	var decls []*pmml.FieldDescription
	seen := map[int]bool{}
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Kind == ast.KindDeclaration && !seen[n.Field.ID] {
			seen[n.Field.ID] = true
			decls = append(decls, n.Field)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	if len(decls) <= localVarBudget {
		return
	}
	slot := 1
	for _, fd := range decls[localVarBudget:] {
		fd.SetOverflowSlot(slot)
		slot++
	}
}

func usesInfinitySentinel(root *ast.Node) bool {
	found := false
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil || found {
			return
		}
		if n.Kind == ast.KindConstant && n.Num == "Infinity" {
			found = true
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return found
}

func (e *Emitter) writeIndent() {
	e.buf.WriteString(strings.Repeat("  ", e.indent))
}

func (e *Emitter) lowerIfNeeded(s string) string {
	if e.opts.Lowercase {
		return strings.ToLower(s)
	}
	return s
}

func (e *Emitter) ident(name string) string {
	// Identifiers (Lua variable names) never get the case-insensitive
	// treatment: only string-literal comparisons do, per spec.md §9's
	// open question on lowercasing.
	return name
}

// emitBlockStatements renders n's statements without an enclosing
// "do...end", used for the top-level function body.
func (e *Emitter) emitBlockStatements(n *ast.Node) {
	if n.Kind != ast.KindBlock {
		e.emitStatement(n)
		return
	}
	for _, stmt := range n.Children {
		e.emitStatement(stmt)
	}
}

func (e *Emitter) emitStatement(n *ast.Node) {
	switch n.Kind {
	case ast.KindBlock:
		for _, c := range n.Children {
			e.emitStatement(c)
		}
	case ast.KindDeclaration:
		e.writeIndent()
		if n.Field.OverflowSlot() != 0 {
			fmt.Fprintf(&e.buf, "%s = %s\n", e.lvalue(n.Field), e.expr(n.Children[0], catalogue.PrecStatement))
		} else {
			fmt.Fprintf(&e.buf, "local %s = %s\n", e.lvalue(n.Field), e.expr(n.Children[0], catalogue.PrecStatement))
		}
	case ast.KindAssignment:
		e.writeIndent()
		fmt.Fprintf(&e.buf, "%s = %s\n", e.lvalue(n.Field), e.expr(n.Children[0], catalogue.PrecStatement))
	case ast.KindIndirectAssignment:
		e.writeIndent()
		fmt.Fprintf(&e.buf, "%s[%s] = %s\n", e.expr(n.Children[0], catalogue.PrecCall), e.expr(n.Children[1], catalogue.PrecStatement), e.expr(n.Children[2], catalogue.PrecStatement))
	case ast.KindIfChain:
		e.emitIfChain(n)
	case ast.KindReturn:
		e.writeIndent()
		e.buf.WriteString("return")
		switch {
		case len(n.Names) == len(n.Children) && len(n.Names) > 0:
			parts := make([]string, len(n.Children))
			for i, c := range n.Children {
				parts[i] = fmt.Sprintf("%s = %s", e.lowerIfNeeded(n.Names[i]), e.expr(c, catalogue.PrecStatement))
			}
			fmt.Fprintf(&e.buf, " {%s}", strings.Join(parts, ", "))
		case len(n.Children) > 0:
			parts := make([]string, len(n.Children))
			for i, c := range n.Children {
				parts[i] = e.expr(c, catalogue.PrecStatement)
			}
			e.buf.WriteString(" " + strings.Join(parts, ", "))
		}
		e.buf.WriteString("\n")
	case ast.KindSentinel:
		e.writeIndent()
		e.buf.WriteString("-- <error>\n")
	default:
		e.writeIndent()
		e.buf.WriteString(e.expr(n, catalogue.PrecStatement))
		e.buf.WriteString("\n")
	}
}

// lvalue renders the target of a declaration/assignment, honouring the
// overflow relocation: a field whose overflow slot is set is written
// through the overflow table instead of as a bare local.
func (e *Emitter) lvalue(fd *pmml.FieldDescription) string {
	if slot := fd.OverflowSlot(); slot != 0 {
		return fmt.Sprintf("overflow[%d]", slot)
	}
	prefix := ""
	return prefix + fd.LuaName
}

func (e *Emitter) fieldRefExpr(fd *pmml.FieldDescription) string {
	if slot := fd.OverflowSlot(); slot != 0 {
		return fmt.Sprintf("overflow[%d]", slot)
	}
	return fd.LuaName
}

func (e *Emitter) emitIfChain(n *ast.Node) {
	pairs := n.Children
	hasElse := n.HasElse()
	if hasElse {
		pairs = pairs[:len(pairs)-1]
	}
	if len(pairs) == 0 {
		if hasElse {
			e.emitStatement(n.Children[len(n.Children)-1])
		}
		return
	}
	for i := 0; i < len(pairs); i += 2 {
		cond, body := pairs[i], pairs[i+1]
		e.writeIndent()
		if i == 0 {
			fmt.Fprintf(&e.buf, "if %s then\n", e.expr(cond, catalogue.PrecStatement))
		} else {
			fmt.Fprintf(&e.buf, "elseif %s then\n", e.expr(cond, catalogue.PrecStatement))
		}
		e.indent++
		e.emitStatement(body)
		e.indent--
	}
	if hasElse {
		e.writeIndent()
		e.buf.WriteString("else\n")
		e.indent++
		e.emitStatement(n.Children[len(n.Children)-1])
		e.indent--
	}
	e.writeIndent()
	e.buf.WriteString("end\n")
}

// expr renders n as an expression, parenthesising when n's catalogue
// precedence binds looser than the surrounding context requires.
func (e *Emitter) expr(n *ast.Node, ctxPrec catalogue.Precedence) string {
	switch n.Kind {
	case ast.KindConstant:
		return e.constant(n)
	case ast.KindFieldRef:
		return e.fieldRefExpr(n.Field)
	case ast.KindCall:
		return e.call(n, ctxPrec)
	case ast.KindIndirectField:
		return fmt.Sprintf("%s[%s]", e.expr(n.Children[0], catalogue.PrecCall), e.expr(n.Children[1], catalogue.PrecStatement))
	case ast.KindDefaultValue:
		return e.defaultValue(n)
	case ast.KindLambda:
		return e.lambda(n)
	case ast.KindSentinel:
		return "nil --[[ error ]]"
	default:
		return "nil"
	}
}

func (e *Emitter) constant(n *ast.Node) string {
	switch n.Type {
	case pmml.TypeString:
		return luaQuote(e.lowerIfNeeded(n.Str))
	case pmml.TypeStringTable:
		parts := strings.Split(n.Str, "\x00")
		quoted := make([]string, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				continue
			}
			quoted = append(quoted, fmt.Sprintf("[%s] = true", luaQuote(e.lowerIfNeeded(p))))
		}
		sort.Strings(quoted)
		return "{" + strings.Join(quoted, ", ") + "}"
	case pmml.TypeNumber:
		if n.Num == "Infinity" {
			return sentinelInfinity
		}
		return n.Num
	case pmml.TypeBool:
		return strconv.FormatBool(n.Bool)
	case pmml.TypeVoid:
		return "nil"
	default:
		return "nil"
	}
}

func luaQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (e *Emitter) call(n *ast.Node, ctxPrec catalogue.Precedence) string {
	entry, ok := e.cat.Lookup(n.CallName)
	if !ok {
		// Infix-rendered entries are looked up by their catalogue key,
		// which equals CallName except where Call() substituted the
		// infix spelling; fall back to treating it as already-infix.
		entry = catalogue.Entry{Prec: catalogue.PrecCall}
	}

	var out string
	switch {
	case entry.Infix != "" && len(n.Children) == 2:
		out = fmt.Sprintf("%s %s %s", e.expr(n.Children[0], entry.Prec), entry.Infix, e.expr(n.Children[1], entry.Prec+1))
	case n.CallName == "-" && len(n.Children) == 1:
		out = "-" + e.expr(n.Children[0], catalogue.PrecUnary)
	case n.CallName == "not" && len(n.Children) == 1:
		out = "not " + e.expr(n.Children[0], catalogue.PrecNot)
	case n.CallName == "and" || n.CallName == "or":
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = e.expr(c, entry.Prec)
		}
		out = strings.Join(parts, " "+n.CallName+" ")
	default:
		args := make([]string, len(n.Children))
		for i, c := range n.Children {
			args[i] = e.expr(c, catalogue.PrecStatement)
		}
		out = fmt.Sprintf("pmml_%s(%s)", luaFunctionName(n.CallName), strings.Join(args, ", "))
	}

	if entry.Prec != 0 && entry.Prec < ctxPrec {
		return "(" + out + ")"
	}
	return out
}

// luaFunctionName maps a catalogue identifier that has no infix
// spelling to the Lua runtime-prelude function name the emitted program
// calls (the prelude is the small, fixed set of helpers `pmml_*` every
// emitted program requires; it is an external runtime contract, not
// generated by this package).
func luaFunctionName(name string) string {
	return strings.NewReplacer("-", "_").Replace(name)
}

func (e *Emitter) defaultValue(n *ast.Node) string {
	primary := e.expr(n.Children[0], catalogue.PrecOr)
	alt := e.expr(n.Children[1], catalogue.PrecOr+1)
	return fmt.Sprintf("(%s or %s)", primary, alt)
}

func (e *Emitter) lambda(n *ast.Node) string {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.LuaName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "function(%s)\n", strings.Join(params, ", "))
	inner := New(e.cat, e.opts)
	inner.indent = e.indent + 1
	if len(n.Children) > 0 {
		inner.emitBlockStatements(n.Children[0])
	}
	b.WriteString(inner.buf.String())
	b.WriteString(strings.Repeat("  ", e.indent))
	b.WriteString("end")
	return b.String()
}
