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

// Package diag formats compiler diagnostics for the command line,
// grounded on cmd/cue/cmd's use of golang.org/x/text/message for
// width-aware printer output.
package diag

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lnrisk/pmml2lua/internal/pmmlerr"
)

// Printer wraps a message.Printer the way cmd/cue/cmd does for CLI
// output, defaulting to English.
type Printer struct {
	p *message.Printer
}

func NewPrinter() *Printer {
	return &Printer{p: message.NewPrinter(language.English)}
}

// PrintErrors writes every diagnostic in list to w, one per line,
// prefixed with its source position when known.
func (p *Printer) PrintErrors(w io.Writer, list pmmlerr.List) {
	for _, e := range list {
		p.p.Fprintf(w, "%s\n", e.Error())
	}
}

// Tracef prints one trace/debug line to w unconditionally; deciding
// whether verbose output is enabled is left to the caller. A no-op sink
// is just as valid a target for it.
func (p *Printer) Tracef(w io.Writer, format string, args ...any) {
	p.p.Fprintf(w, format+"\n", args...)
}
