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

package pmml

// ProbabilityMap is an insertion-ordered category -> field map. Map
// iteration order in Go is randomized, so this type pairs a map with the
// slice of keys in the order they were first inserted: winner selection
// breaks ties by "earliest key in insertion order" (spec.md §8 property
// 5), which a plain map cannot express.
type ProbabilityMap struct {
	fields map[string]*FieldDescription
	order  []string
}

func NewProbabilityMap() *ProbabilityMap {
	return &ProbabilityMap{fields: map[string]*FieldDescription{}}
}

// Get returns the field for category, and whether it was present.
func (m *ProbabilityMap) Get(category string) (*FieldDescription, bool) {
	f, ok := m.fields[category]
	return f, ok
}

// Set inserts or overwrites category's field; insertion order is
// preserved across overwrites.
func (m *ProbabilityMap) Set(category string, f *FieldDescription) {
	if _, ok := m.fields[category]; !ok {
		m.order = append(m.order, category)
	}
	m.fields[category] = f
}

// Order returns the categories in insertion order.
func (m *ProbabilityMap) Order() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *ProbabilityMap) Len() int { return len(m.order) }

// ModelConfig specifies where a model compiler should write its
// immediate results. Every field is optional: a nil/empty entry means
// the caller does not require that output.
type ModelConfig struct {
	Function MiningFunction

	OutputValueName      *FieldDescription
	ProbabilityValueName *ProbabilityMap
	ConfidenceValues     *ProbabilityMap
	IDValueName          *FieldDescription
	ReasonCodeValueName  *FieldDescription
	BestProbabilityName  *FieldDescription

	OutputType ValueType
	TargetField *FieldDescription

	// ReasonCodeCount is the number of ranked reason codes a scorecard
	// produced (one per characteristic; zero when ranking is off). It
	// caps nothing: which ranks reach the output is decided by the
	// Output block's reasonCode fields.
	ReasonCodeCount int

	// ReasonCodes holds the ranked reason-code fields (rank 1 first),
	// all ReasonCodeCount of them, for AssembleOutputFields to read from.
	ReasonCodes []*FieldDescription
}

func NewModelConfig() *ModelConfig {
	return &ModelConfig{Function: FunctionAny, OutputType: TypeInvalid}
}
