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

// Package pmml2lua is the public facade over the compiler's internal
// packages, the way cuelang.org/go's root cue package sits over
// internal/core/... : everything here is wiring, not logic.
package pmml2lua

import (
	"fmt"
	"io"

	"github.com/lnrisk/pmml2lua/internal/catalogue"
	"github.com/lnrisk/pmml2lua/internal/compile"
	"github.com/lnrisk/pmml2lua/internal/luaemit"
	"github.com/lnrisk/pmml2lua/internal/model"
	"github.com/lnrisk/pmml2lua/internal/optimize"
	"github.com/lnrisk/pmml2lua/internal/pmml"
	"github.com/lnrisk/pmml2lua/internal/pmml/xmldom"
)

// InputFormat/OutputFormat re-export the emitter's calling-convention
// choice (spec.md §6) so callers never need to import internal/luaemit.
type InputFormat = luaemit.InputFormat
type OutputFormat = luaemit.OutputFormat

const (
	InputMultiArg  = luaemit.InputMultiArg
	InputTable     = luaemit.InputTable
	OutputMultiArg = luaemit.OutputMultiArg
	OutputTable    = luaemit.OutputTable
)

// Options configures one PMML-to-Lua compilation.
type Options struct {
	// Lowercase lowercases every emitted string literal and every
	// input/output table key (spec.md §9's lowercase-consistency
	// decision). Lua identifiers keep their case.
	Lowercase bool

	// InputFormat/OutputFormat select the emitted function's calling
	// convention. They default to InputMultiArg/OutputMultiArg.
	InputFormat  InputFormat
	OutputFormat OutputFormat

	// FuncName names the emitted Lua function; defaults to "func".
	FuncName string

	// SkipVersionCheck disables the PMML document version range check,
	// for fixtures that predate or postdate the supported range but are
	// otherwise well-formed.
	SkipVersionCheck bool
}

// Result carries the compiled source plus the bindable field names a
// caller can hand to a "fields"-style introspection command.
type Result struct {
	Source string
	Inputs []string
	Outputs []string
}

// Compile reads a PMML document from r and returns the Lua source
// implementing its scoring logic, per spec.md §2's pipeline: parse,
// build the conversion context, compile the model, analyse and
// optimise, emit.
func Compile(r io.Reader, opts Options) (*Result, error) {
	root, err := xmldom.Parse(r, "<input>")
	if err != nil {
		return nil, fmt.Errorf("parsing PMML: %w", err)
	}
	if root == nil || root.Name != "PMML" {
		return nil, fmt.Errorf("input is not a PMML document")
	}
	if !opts.SkipVersionCheck {
		if v, ok := root.Attr("version"); ok {
			if err := pmml.ValidateVersion(v); err != nil {
				return nil, err
			}
		}
	}

	ctx := compile.NewContext()
	cat := catalogue.New()

	packaging := model.ReturnMultiValue
	if opts.OutputFormat == OutputTable {
		packaging = model.ReturnTable
	}

	body, err := model.CompileDocument(root, ctx, cat, packaging)
	if err != nil {
		return nil, err
	}

	body = optimize.New(cat).Run(body)

	emitOpts := luaemit.Options{
		Lowercase:    opts.Lowercase,
		InputFormat:  opts.InputFormat,
		OutputFormat: opts.OutputFormat,
		FuncName:     opts.FuncName,
	}
	emitter := luaemit.New(cat, emitOpts)
	source := emitter.Emit(ctx, body)

	return &Result{
		Source:  source,
		Inputs:  fieldNames(ctx.InputsInOrder()),
		Outputs: fieldNames(ctx.OutputsInOrder()),
	}, nil
}

func fieldNames(fds []*pmml.FieldDescription) []string {
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.LuaName
	}
	return names
}
