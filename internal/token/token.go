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

// Package token defines the source-position type threaded through the
// compiler's diagnostics, mirroring cuelang.org/go/cue/token in shape but
// scoped to what an XML-derived AST needs: a file name, a line number,
// and an optional column (printed only when set).
package token

import "fmt"

// Pos identifies a location within an input PMML document.
type Pos struct {
	Filename string
	Line     int
	Column   int
}

// NoPos is the zero value of Pos; it is used when no position is known.
var NoPos = Pos{}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	name := p.Filename
	if name == "" {
		name = "<input>"
	}
	if p.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d", name, p.Line)
}
