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

package ast

import (
	"fmt"
	"strings"

	"github.com/EngFlow/nullc/internal/collections"
)

type TypeKind int

const (
	// Sentinel used only during error recovery. It never participates in a
	// successful type check.
	TypeKind_Unknown TypeKind = iota

	TypeKind_Void
	TypeKind_Bool
	TypeKind_I8
	TypeKind_I16
	TypeKind_I32
	TypeKind_I64
	TypeKind_U8
	TypeKind_U16
	TypeKind_U32
	TypeKind_U64
	TypeKind_F32
	TypeKind_F64
	TypeKind_Ptr
	TypeKind_Array
	TypeKind_Slice
	TypeKind_Struct
	TypeKind_Enum
	TypeKind_Function

	// Nominal reference produced by the type grammar before the analyzer has
	// resolved it to the declared struct or enum type.
	TypeKind_Named
)

// Type is a tagged variant over the language's types. Only the fields
// relevant to the Kind are populated. Struct and enum types compare by
// declared name (nominal); everything else compares structurally.
type Type struct {
	Kind     TypeKind
	Inner    *Type         // Ptr: pointee
	Elem     *Type         // Array/Slice: element type
	Size     int           // Array: element count, part of the type
	Name     string        // Struct/Enum: declared name
	Fields   []StructField // Struct: ordered fields
	Variants []EnumVariant // Enum: ordered variants
	Return   *Type         // Function: return type
	Params   []*Type       // Function: ordered parameter types
}

type StructField struct {
	Name string
	Type *Type
}

type EnumVariant struct {
	Name  string
	Value int64
}

// Primitive singletons. Composite types are built with the constructors below.
var (
	TypeUnknown = &Type{Kind: TypeKind_Unknown}
	TypeVoid    = &Type{Kind: TypeKind_Void}
	TypeBool    = &Type{Kind: TypeKind_Bool}
	TypeI8      = &Type{Kind: TypeKind_I8}
	TypeI16     = &Type{Kind: TypeKind_I16}
	TypeI32     = &Type{Kind: TypeKind_I32}
	TypeI64     = &Type{Kind: TypeKind_I64}
	TypeU8      = &Type{Kind: TypeKind_U8}
	TypeU16     = &Type{Kind: TypeKind_U16}
	TypeU32     = &Type{Kind: TypeKind_U32}
	TypeU64     = &Type{Kind: TypeKind_U64}
	TypeF32     = &Type{Kind: TypeKind_F32}
	TypeF64     = &Type{Kind: TypeKind_F64}
)

func PtrTo(inner *Type) *Type { return &Type{Kind: TypeKind_Ptr, Inner: inner} }

func ArrayOf(elem *Type, size int) *Type {
	return &Type{Kind: TypeKind_Array, Elem: elem, Size: size}
}

func SliceOf(elem *Type) *Type { return &Type{Kind: TypeKind_Slice, Elem: elem} }

func StructOf(name string, fields []StructField) *Type {
	return &Type{Kind: TypeKind_Struct, Name: name, Fields: fields}
}

func EnumOf(name string, variants []EnumVariant) *Type {
	return &Type{Kind: TypeKind_Enum, Name: name, Variants: variants}
}

func FunctionOf(ret *Type, params []*Type) *Type {
	return &Type{Kind: TypeKind_Function, Return: ret, Params: params}
}

// NamedRef is an unresolved nominal reference to a struct or enum type.
func NamedRef(name string) *Type { return &Type{Kind: TypeKind_Named, Name: name} }

// FieldIndex returns the declared index of the named struct field, or -1.
func (t *Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// VariantValue returns the value of the named enum variant.
func (t *Type) VariantValue(name string) (int64, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

func (t *Type) IsInteger() bool {
	switch t.Kind {
	case TypeKind_I8, TypeKind_I16, TypeKind_I32, TypeKind_I64,
		TypeKind_U8, TypeKind_U16, TypeKind_U32, TypeKind_U64:
		return true
	default:
		return false
	}
}

func (t *Type) IsFloat() bool {
	return t.Kind == TypeKind_F32 || t.Kind == TypeKind_F64
}

func (t *Type) IsNumeric() bool { return t.IsInteger() || t.IsFloat() }

func (t *Type) IsUnknown() bool { return t == nil || t.Kind == TypeKind_Unknown }

// Equal reports whether two types are the same. Struct and enum equality is
// nominal; array size is part of the type; unknown compares equal to nothing,
// including itself.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil || t.IsUnknown() || other.IsUnknown() {
		return false
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TypeKind_Ptr:
		return t.Inner.Equal(other.Inner)
	case TypeKind_Array:
		return t.Size == other.Size && t.Elem.Equal(other.Elem)
	case TypeKind_Slice:
		return t.Elem.Equal(other.Elem)
	case TypeKind_Struct, TypeKind_Enum, TypeKind_Named:
		return t.Name == other.Name
	case TypeKind_Function:
		if !t.Return.Equal(other.Return) || len(t.Params) != len(other.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(other.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeKind_Unknown:
		return "unknown"
	case TypeKind_Void:
		return "void"
	case TypeKind_Bool:
		return "bool"
	case TypeKind_I8:
		return "i8"
	case TypeKind_I16:
		return "i16"
	case TypeKind_I32:
		return "i32"
	case TypeKind_I64:
		return "i64"
	case TypeKind_U8:
		return "u8"
	case TypeKind_U16:
		return "u16"
	case TypeKind_U32:
		return "u32"
	case TypeKind_U64:
		return "u64"
	case TypeKind_F32:
		return "f32"
	case TypeKind_F64:
		return "f64"
	case TypeKind_Ptr:
		return fmt.Sprintf("ptr<%s>", t.Inner)
	case TypeKind_Array:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Size)
	case TypeKind_Slice:
		return fmt.Sprintf("[%s]", t.Elem)
	case TypeKind_Struct, TypeKind_Enum, TypeKind_Named:
		return t.Name
	case TypeKind_Function:
		params := collections.MapSlice(t.Params, (*Type).String)
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(params, ", "), t.Return)
	default:
		return "<invalid>"
	}
}
