// Copyright 2025 EngFlow Inc. All rights reserved.
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

package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EngFlow/nullc/internal/collections"
)

type ValueKind int

const (
	ValueKind_Void ValueKind = iota
	ValueKind_Bool
	ValueKind_Int
	ValueKind_Float
	ValueKind_String
	ValueKind_Array
	ValueKind_Struct
)

// Value is the tagged runtime variant of the evaluator. Strings and arrays
// are owned; struct values keep their fields in declaration order.
type Value struct {
	Kind       ValueKind
	Bool       bool
	Int        int64
	Float      float64
	Str        string
	Elems      []Value
	Fields     []FieldValue
	StructName string
}

type FieldValue struct {
	Name  string
	Value Value
}

var Void = Value{Kind: ValueKind_Void}

func BoolValue(b bool) Value      { return Value{Kind: ValueKind_Bool, Bool: b} }
func IntValue(n int64) Value      { return Value{Kind: ValueKind_Int, Int: n} }
func FloatValue(f float64) Value  { return Value{Kind: ValueKind_Float, Float: f} }
func StringValue(s string) Value  { return Value{Kind: ValueKind_String, Str: s} }
func ArrayValue(vs []Value) Value { return Value{Kind: ValueKind_Array, Elems: vs} }

// Clone deep-copies the value. Arrays and structs have value semantics in
// the language; without the copy, two bindings would share one backing
// slice and diverge from the compiled code.
func (v Value) Clone() Value {
	switch v.Kind {
	case ValueKind_Array:
		elems := make([]Value, len(v.Elems))
		for i, elem := range v.Elems {
			elems[i] = elem.Clone()
		}
		v.Elems = elems
	case ValueKind_Struct:
		fields := make([]FieldValue, len(v.Fields))
		for i, field := range v.Fields {
			fields[i] = FieldValue{Name: field.Name, Value: field.Value.Clone()}
		}
		v.Fields = fields
	}
	return v
}

// FieldIndex returns the position of the named field, or -1.
func (v Value) FieldIndex(name string) int {
	for i, f := range v.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IsNumeric reports whether the value participates in arithmetic.
func (v Value) IsNumeric() bool {
	return v.Kind == ValueKind_Int || v.Kind == ValueKind_Float
}

// AsFloat widens ints for mixed arithmetic.
func (v Value) AsFloat() float64 {
	if v.Kind == ValueKind_Int {
		return float64(v.Int)
	}
	return v.Float
}

func (v Value) String() string {
	switch v.Kind {
	case ValueKind_Void:
		return "void"
	case ValueKind_Bool:
		return strconv.FormatBool(v.Bool)
	case ValueKind_Int:
		return strconv.FormatInt(v.Int, 10)
	case ValueKind_Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueKind_String:
		return v.Str
	case ValueKind_Array:
		parts := collections.MapSlice(v.Elems, Value.String)
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueKind_Struct:
		parts := collections.MapSlice(v.Fields, func(f FieldValue) string {
			return fmt.Sprintf("%s = %s", f.Name, f.Value)
		})
		return v.StructName + " { " + strings.Join(parts, ", ") + " }"
	default:
		return "<invalid>"
	}
}
