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

package catalogue

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestLookupKnownEntries(t *testing.T) {
	cat := New()
	tests := []struct {
		name  string
		infix string
		prec  Precedence
	}{
		{name: "+", infix: "+", prec: PrecAdd},
		{name: "==", infix: "==", prec: PrecCompare},
		{name: "and", infix: "and", prec: PrecAnd},
		{name: "sqrt", infix: "", prec: PrecCall},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, ok := cat.Lookup(test.name)
			qt.Assert(t, qt.Equals(ok, true))
			qt.Assert(t, qt.Equals(e.Infix, test.infix))
			qt.Assert(t, qt.Equals(e.Prec, test.prec))
		})
	}
}

func TestLookupUnknownEntry(t *testing.T) {
	cat := New()
	_, ok := cat.Lookup("not-a-real-function")
	qt.Assert(t, qt.Equals(ok, false))
}

func TestMustLookupPanicsOnUnknown(t *testing.T) {
	cat := New()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected MustLookup to panic on an unknown entry")
		}
	}()
	cat.MustLookup("not-a-real-function")
}
