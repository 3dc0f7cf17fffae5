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

// Package pmmlerr defines the shared error type for compiler diagnostics.
//
// It is intentionally shaped like cuelang.org/go/cue/errors: an Error
// type with a position and an optional argument, and a List that
// collects multiple diagnostics so a compilation can report everything
// wrong with a document instead of stopping at the first problem.
package pmmlerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lnrisk/pmml2lua/internal/token"
)

// Kind enumerates the diagnostic kinds from spec.md §7.
type Kind int

const (
	ParseError Kind = iota
	UnknownAttributeValue
	TypeMismatch
	BindingFailure
	DuplicateName
	UnsupportedCombination
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "parse-error"
	case UnknownAttributeValue:
		return "unknown-attribute-value"
	case TypeMismatch:
		return "type-mismatch"
	case BindingFailure:
		return "binding-failure"
	case DuplicateName:
		return "duplicate-name"
	case UnsupportedCombination:
		return "unsupported-combination"
	case InternalInvariant:
		return "internal-invariant"
	default:
		return "unknown"
	}
}

// Error is a single compiler diagnostic.
type Error struct {
	Kind Kind
	Pos  token.Pos
	Msg  string
	Arg  string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s: ", e.Pos)
	}
	b.WriteString(e.Msg)
	if e.Arg != "" {
		fmt.Fprintf(&b, ": %s", e.Arg)
	}
	fmt.Fprintf(&b, " (%s)", e.Kind)
	return b.String()
}

// List is an ordered collection of diagnostics, in the style of
// cue/errors.List: it is itself an error so a sink's accumulated errors
// can be returned and printed as one value.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Sink accumulates diagnostics during one compilation. It never panics or
// throws: the builder reports through a Sink and keeps going so multiple
// errors can surface from a single run, per spec.md §7.
type Sink struct {
	errs List
}

// Add reports one diagnostic.
func (s *Sink) Add(kind Kind, pos token.Pos, msg string, arg string) {
	s.errs = append(s.errs, &Error{Kind: kind, Pos: pos, Msg: msg, Arg: arg})
}

// Failed reports whether any diagnostic has been added.
func (s *Sink) Failed() bool { return len(s.errs) > 0 }

// Errors returns the accumulated diagnostics in stable, deterministic
// order: by line number, then by message, matching property 1
// (determinism) from spec.md §8.
func (s *Sink) Errors() List {
	out := make(List, len(s.errs))
	copy(out, s.errs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.Line != out[j].Pos.Line {
			return out[i].Pos.Line < out[j].Pos.Line
		}
		return out[i].Msg < out[j].Msg
	})
	return out
}

// Err returns the accumulated diagnostics as an error, or nil if there
// were none.
func (s *Sink) Err() error {
	if !s.Failed() {
		return nil
	}
	return s.Errors()
}
