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

// Package binding implements the field-binding suffix language from
// spec.md §6 and SPEC_FULL.md §3: a caller-requested output name may
// carry trailing "+n", "-n", "*n", "/n" (linear transform) and ",n"
// (display precision) modifiers, stripped right-to-left the way the
// original app/modeloutput.cpp's bindToModel does, re-attempting the
// bind after each strip.
package binding

import (
	"strconv"
	"strings"
)

const neuronPrefix = "neuron:"

// Transform accumulates the linear transform and display precision
// parsed off the end of a requested output name.
type Transform struct {
	Factor      float64
	Coefficient float64
	HasPrecision bool
	Precision   int
}

// NewTransform returns the identity transform (factor 1, coefficient 0).
func NewTransform() Transform { return Transform{Factor: 1} }

// ParseOutputName repeatedly strips one trailing [+-*/,]<number> suffix
// from name, folding it into the running Transform, until try(remaining)
// succeeds or no further suffix can be parsed. It returns the bound name
// and the accumulated transform, or ok=false if no prefix of name ever
// bound.
func ParseOutputName(name string, try func(candidate string) bool) (bound string, xform Transform, ok bool) {
	xform = NewTransform()
	candidate := name

	if try(candidate) {
		return candidate, xform, true
	}

	for {
		opPos := lastIndexAny(candidate, "+-*/,")
		if opPos < 0 {
			return "", xform, false
		}
		numText := candidate[opPos+1:]
		newTerm, err := strconv.ParseFloat(numText, 64)
		if err != nil {
			return "", xform, false
		}
		switch candidate[opPos] {
		case '+':
			xform.Coefficient += newTerm * xform.Factor
			xform.Factor = 1
		case '-':
			xform.Coefficient -= newTerm * xform.Factor
			xform.Factor = 1
		case '/':
			xform.Factor /= newTerm
		case '*':
			xform.Factor *= newTerm
		case ',':
			xform.HasPrecision = true
			xform.Precision = int(newTerm)
		}
		candidate = candidate[:opPos]
		if try(candidate) {
			return candidate, xform, true
		}
	}
}

func lastIndexAny(s, chars string) int {
	return strings.LastIndexAny(s, chars)
}

// IsNeuronRef reports whether name addresses a neural-network neuron
// activation ("neuron:<id>"), returning the bare id.
func IsNeuronRef(name string) (id string, ok bool) {
	if strings.HasPrefix(name, neuronPrefix) {
		return name[len(neuronPrefix):], true
	}
	return "", false
}
