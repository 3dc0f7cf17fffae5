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

package binding

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestParseOutputNameNoSuffix(t *testing.T) {
	known := map[string]bool{"score": true}
	bound, xform, ok := ParseOutputName("score", func(c string) bool { return known[c] })
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(bound, "score"))
	qt.Assert(t, qt.Equals(xform.Factor, 1.0))
	qt.Assert(t, qt.Equals(xform.Coefficient, 0.0))
	qt.Assert(t, qt.Equals(xform.HasPrecision, false))
}

func TestParseOutputNameAdditiveSuffix(t *testing.T) {
	known := map[string]bool{"score": true}
	bound, xform, ok := ParseOutputName("score+10", func(c string) bool { return known[c] })
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(bound, "score"))
	qt.Assert(t, qt.Equals(xform.Factor, 1.0))
	qt.Assert(t, qt.Equals(xform.Coefficient, 10.0))
}

func TestParseOutputNameMultiplicativeSuffix(t *testing.T) {
	known := map[string]bool{"score": true}
	bound, xform, ok := ParseOutputName("score*2", func(c string) bool { return known[c] })
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(bound, "score"))
	qt.Assert(t, qt.Equals(xform.Factor, 2.0))
	qt.Assert(t, qt.Equals(xform.Coefficient, 0.0))
}

func TestParseOutputNamePrecisionSuffix(t *testing.T) {
	known := map[string]bool{"prob": true}
	bound, xform, ok := ParseOutputName("prob,3", func(c string) bool { return known[c] })
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(bound, "prob"))
	qt.Assert(t, qt.Equals(xform.HasPrecision, true))
	qt.Assert(t, qt.Equals(xform.Precision, 3))
}

func TestParseOutputNameNeverBinds(t *testing.T) {
	_, _, ok := ParseOutputName("unknown+1", func(string) bool { return false })
	qt.Assert(t, qt.Equals(ok, false))
}

func TestIsNeuronRef(t *testing.T) {
	id, ok := IsNeuronRef("neuron:7")
	qt.Assert(t, qt.Equals(ok, true))
	qt.Assert(t, qt.Equals(id, "7"))

	_, ok = IsNeuronRef("score")
	qt.Assert(t, qt.Equals(ok, false))
}
