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

// Package compile holds the conversion context (spec.md §4.1) and the
// stack-based AST builder (spec.md §4.2) that every model compiler uses
// to push nodes.
package compile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
	"github.com/lnrisk/pmml2lua/internal/token"
)

// scope is one lexical level of named bindings.
type scope struct {
	names map[string]*pmml.FieldDescription
}

func newScope() *scope { return &scope{names: map[string]*pmml.FieldDescription{}} }

// Context is the compile-time symbol table: the input dictionary, the
// output dictionary, the neuron registry, a stack of lexical scopes, and
// the id counter. Per spec.md §5, the id counter is instance-local here
// (not a package-level global) so independent compilations produce
// deterministic, non-interfering ids — the "latent hazard" spec.md §9
// calls out is avoided by construction.
type Context struct {
	RunID string

	inputs     map[string]*pmml.FieldDescription
	outputs    map[string]*pmml.FieldDescription
	neurons    map[string]*pmml.FieldDescription
	inputOrder []*pmml.FieldDescription
	outputOrder []*pmml.FieldDescription

	scopes []*scope
	nextID int

	Sink pmmlerr.Sink
}

// NewContext creates an empty conversion context for one compilation.
func NewContext() *Context {
	return &Context{
		RunID:   uuid.NewString(),
		inputs:  map[string]*pmml.FieldDescription{},
		outputs: map[string]*pmml.FieldDescription{},
		neurons: map[string]*pmml.FieldDescription{},
		scopes:  []*scope{newScope()},
	}
}

func (c *Context) allocID() int {
	id := c.nextID
	c.nextID++
	return id
}

// EnterScope pushes a new lexical scope and returns a guard; calling the
// guard's Leave method (or deferring it) pops the scope and discards
// every binding added within it, per the "scope guards are scoped
// resources" discipline in spec.md §4.1/§9.
type ScopeGuard struct{ ctx *Context }

func (g ScopeGuard) Leave() {
	g.ctx.scopes = g.ctx.scopes[:len(g.ctx.scopes)-1]
}

func (c *Context) EnterScope() ScopeGuard {
	c.scopes = append(c.scopes, newScope())
	return ScopeGuard{ctx: c}
}

func (c *Context) currentScope() *scope { return c.scopes[len(c.scopes)-1] }

// Declare creates a named field in the current scope. It reports
// pmmlerr.DuplicateName through pos if name collides within the same
// scope; lookups in enclosing scopes never collide.
func (c *Context) Declare(name string, field pmml.DataField, origin pmml.Origin, pos token.Pos) *pmml.FieldDescription {
	s := c.currentScope()
	if _, ok := s.names[name]; ok {
		c.Sink.Add(pmmlerr.DuplicateName, pos, "duplicate name in scope", name)
	}
	fd := &pmml.FieldDescription{Field: field, Origin: origin, LuaName: c.uniqueLuaName(name), ID: c.allocID()}
	s.names[name] = fd
	switch origin {
	case pmml.OriginDataDictionary:
		c.inputs[name] = fd
		c.inputOrder = append(c.inputOrder, fd)
	case pmml.OriginOutput:
		c.outputs[name] = fd
		c.outputOrder = append(c.outputOrder, fd)
	}
	return fd
}

// Fresh creates an un-named temporary of the given type in the current
// scope, with a legal, collision-free emitted identifier.
func (c *Context) Fresh(candidate string, typ pmml.ValueType) *pmml.FieldDescription {
	id := c.allocID()
	fd := &pmml.FieldDescription{
		Field:   pmml.DataField{Type: typ, OpType: pmml.OpInvalid},
		Origin:  pmml.OriginTemporary,
		LuaName: fmt.Sprintf("%s_%d", sanitizeIdent(candidate), id),
		ID:      id,
	}
	c.currentScope().names[fd.LuaName] = fd
	return fd
}

// uniqueLuaName guarantees a legal, collision-free Lua identifier: the
// candidate name is sanitised, and always suffixed with the field's id
// so that two data fields with names differing only by characters Lua
// can't represent never collide once sanitised.
func (c *Context) uniqueLuaName(name string) string {
	return fmt.Sprintf("%s_%d", sanitizeIdent(name), c.nextID)
}

func sanitizeIdent(s string) string {
	out := make([]rune, 0, len(s))
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			out = append(out, r)
		case r >= '0' && r <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}

// Lookup resolves name, searching the current scope first then each
// enclosing scope in turn.
func (c *Context) Lookup(name string) (*pmml.FieldDescription, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if fd, ok := c.scopes[i].names[name]; ok {
			return fd, true
		}
	}
	return nil, false
}

// RegisterNeuron records a neural-network neuron as addressable by id.
func (c *Context) RegisterNeuron(id string, fd *pmml.FieldDescription) { c.neurons[id] = fd }

// FindNeuron looks up a neuron by id.
func (c *Context) FindNeuron(id string) (*pmml.FieldDescription, bool) {
	fd, ok := c.neurons[id]
	return fd, ok
}

// Inputs, Outputs iterate the data and output dictionaries.
func (c *Context) Inputs() map[string]*pmml.FieldDescription  { return c.inputs }
func (c *Context) Outputs() map[string]*pmml.FieldDescription { return c.outputs }

// InputsInOrder, OutputsInOrder return data/output fields in declaration
// order, which the emitter uses for the multi-arg parameter/return list.
func (c *Context) InputsInOrder() []*pmml.FieldDescription  { return append([]*pmml.FieldDescription{}, c.inputOrder...) }
func (c *Context) OutputsInOrder() []*pmml.FieldDescription { return append([]*pmml.FieldDescription{}, c.outputOrder...) }

// GetOutput looks up an already-discovered output field by name.
func (c *Context) GetOutput(name string) (*pmml.FieldDescription, bool) {
	fd, ok := c.outputs[name]
	return fd, ok
}
