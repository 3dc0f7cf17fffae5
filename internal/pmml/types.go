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

// Package pmml holds the small, closed type system shared by every part
// of the compiler: value types, field origins, op types, data fields and
// the field descriptions that AST nodes reference by shared pointer.
package pmml

import "fmt"

// ValueType is the closed set of value types a compiled expression can
// have, ordered from most permissive to least permissive. Implicit
// coercion is only ever performed downward in this list (string can
// stand in for number, number for bool); the reverse needs an explicit
// conversion call.
type ValueType int

const (
	TypeString ValueType = iota
	TypeNumber
	TypeBool
	TypeInvalid
	TypeVoid
	TypeLambda
	TypeTable
	TypeStringTable
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeLambda:
		return "lambda"
	case TypeTable:
		return "table"
	case TypeStringTable:
		return "string-table"
	default:
		return "invalid"
	}
}

// CanCoerceTo reports whether a value of type t may be used where want is
// expected without an explicit conversion call. Only string -> number and
// number -> bool (and string -> bool transitively) are implicit; anything
// else, including every upward direction (bool -> number, number ->
// string), needs an explicit coercion.
func (t ValueType) CanCoerceTo(want ValueType) bool {
	if t == want {
		return true
	}
	switch want {
	case TypeBool:
		return t == TypeNumber || t == TypeString
	case TypeNumber:
		return t == TypeString
	}
	return false
}

// Origin records where a field came from; the emitter and the analyser
// both use it to decide how a field may be read or written.
type Origin int

const (
	OriginDataDictionary Origin = iota
	OriginOutput
	OriginTransformedValue
	OriginTemporary
	OriginParameter
	OriginSpecial
)

func (o Origin) String() string {
	switch o {
	case OriginDataDictionary:
		return "data-dictionary"
	case OriginOutput:
		return "output"
	case OriginTransformedValue:
		return "transformed-value"
	case OriginTemporary:
		return "temporary"
	case OriginParameter:
		return "parameter"
	default:
		return "special"
	}
}

// OpType is a field's declared operational type.
type OpType int

const (
	OpCategorical OpType = iota
	OpContinuous
	OpOrdinal
	OpInvalid
)

func OpTypeFromString(s string) OpType {
	switch s {
	case "categorical":
		return OpCategorical
	case "continuous":
		return OpContinuous
	case "ordinal":
		return OpOrdinal
	default:
		return OpInvalid
	}
}

func (o OpType) String() string {
	switch o {
	case OpCategorical:
		return "categorical"
	case OpContinuous:
		return "continuous"
	case OpOrdinal:
		return "ordinal"
	default:
		return "invalid"
	}
}

// MiningFunction is the model-level task declared by a model element's
// functionName attribute.
type MiningFunction int

const (
	FunctionRegression MiningFunction = iota
	FunctionClassification
	FunctionAny
)

// DataField is the immutable (value-type, op-type) pair plus, for
// categorical/ordinal fields, the ordered list of observed category
// values (insertion order matters: it is the tie-break order for winner
// selection, spec.md §8 property 5).
type DataField struct {
	Type   ValueType
	OpType OpType
	Values []string
}

// DataTypeFromString parses a PMML dataType attribute value.
func DataTypeFromString(s string) ValueType {
	switch s {
	case "string":
		return TypeString
	case "boolean":
		return TypeBool
	case "integer", "float", "double":
		return TypeNumber
	default:
		return TypeInvalid
	}
}

// FieldDescription is the shared, immutable record every AST field-ref
// points to. Two references to the same field in different scopes are
// the same *FieldDescription: scope correctness (spec.md §8 property 3)
// depends on this sharing, not on name comparison.
//
// OverflowSlot is the single mutable slot: the emitter assigns it when a
// function's local-variable count would exceed the target language's
// per-call budget (spec.md §4.8).
type FieldDescription struct {
	Field    DataField
	Origin   Origin
	LuaName  string
	ID       int
	Overflow int // 0 means "not overflowed"; see OverflowSlot/SetOverflowSlot.
}

func (f *FieldDescription) String() string {
	return fmt.Sprintf("%s#%d(%s)", f.LuaName, f.ID, f.Field.Type)
}

// OverflowSlot returns the 1-based overflow array index, or 0 if the
// field has not been relocated into the overflow table.
func (f *FieldDescription) OverflowSlot() int { return f.Overflow }

// SetOverflowSlot is called exactly once by the emitter's overflow pass.
func (f *FieldDescription) SetOverflowSlot(slot int) { f.Overflow = slot }

// OutlierTreatment controls how a mining field clamps or rejects values
// outside [Min, Max].
type OutlierTreatment int

const (
	OutlierAsExtreme OutlierTreatment = iota
	OutlierAsIs
	OutlierAsMissing
	OutlierInvalid
)

func OutlierTreatmentFromString(s string) OutlierTreatment {
	switch s {
	case "asExtremeValues":
		return OutlierAsExtreme
	case "asIs":
		return OutlierAsIs
	case "asMissingValues":
		return OutlierAsMissing
	default:
		return OutlierInvalid
	}
}

// MiningField is a use-site annotation over a field description:
// optional replacement value, outlier treatment, and optional bounds.
// Missing-value treatment from a MiningField is applied before the
// field is read anywhere in the model body.
type MiningField struct {
	Variable         *FieldDescription
	HasReplacement   bool
	ReplacementValue string
	Outlier          OutlierTreatment
	HasMin, HasMax   bool
	Min, Max         float64
}

func NewMiningField(v *FieldDescription) MiningField {
	return MiningField{Variable: v, Outlier: OutlierAsIs}
}

// Usage is the mining field's usageType attribute.
type Usage int

const (
	UsageIn Usage = iota
	UsageOut
	UsageIgnored
)
