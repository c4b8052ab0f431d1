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

// Package ast defines the abstract syntax tree shared by the parser, the
// analyzer and both back ends. Each node kind owns its payload; nodes carry
// their source position and an optional resolved Type filled in by the
// analyzer and consumed unchanged downstream.
//
// The Program node transitively owns every other node and every child type;
// the analyzer and the back ends hold only borrowed references.
package ast

import "github.com/EngFlow/nullc/internal/lexer"

// Node is implemented by every AST node.
type Node interface {
	Pos() lexer.Cursor
	// ResolvedType returns the type the analyzer attached to this node, or
	// nil when the node has not been analyzed (or carries no type).
	ResolvedType() *Type
	SetResolvedType(*Type)
}

// Expr is an alias documenting positions where only expression nodes appear.
type Expr = Node

// NodeBase carries the position and resolved-type slots common to all nodes.
type NodeBase struct {
	Location lexer.Cursor
	Type     *Type
}

func At(location lexer.Cursor) NodeBase { return NodeBase{Location: location} }

func (b *NodeBase) Pos() lexer.Cursor        { return b.Location }
func (b *NodeBase) ResolvedType() *Type      { return b.Type }
func (b *NodeBase) SetResolvedType(t *Type)  { b.Type = t }

type (
	// Program is the root of a translation unit.
	Program struct {
		NodeBase
		Decls []Node
	}

	// FnDecl declares a function. Body is nil for functions declared inside
	// an @extern block.
	FnDecl struct {
		NodeBase
		Name       string
		Params     []*Param
		ReturnType *Type
		Body       *Block
		Extern     bool
	}

	Param struct {
		NodeBase
		Name         string
		DeclaredType *Type
	}

	StructDecl struct {
		NodeBase
		Name   string
		Fields []*FieldDecl
	}

	FieldDecl struct {
		NodeBase
		Name         string
		DeclaredType *Type
	}

	EnumDecl struct {
		NodeBase
		Name     string
		Variants []*VariantDecl
	}

	// VariantDecl declares one enum variant. HasValue distinguishes an
	// explicit `= value` from auto-increment.
	VariantDecl struct {
		NodeBase
		Name     string
		Value    int64
		HasValue bool
	}

	// VarDecl declares a binding. Mutable is true for `mut`; `let` and
	// `const` both produce immutable bindings. DeclaredType is nil when the
	// type is inferred from the initializer.
	VarDecl struct {
		NodeBase
		Name         string
		Mutable      bool
		Const        bool
		DeclaredType *Type
		Init         Expr
	}

	Block struct {
		NodeBase
		Stmts []Node
	}

	Return struct {
		NodeBase
		Value Expr // nil for a bare `ret`
	}

	Break struct{ NodeBase }

	Continue struct{ NodeBase }

	If struct {
		NodeBase
		Cond Expr
		Then *Block
		// Else is nil, a *Block for `else`, or an *If for an `elif` chain.
		Else Node
	}

	While struct {
		NodeBase
		Cond Expr
		Body *Block
	}

	// For iterates the half-open range [Start, End).
	For struct {
		NodeBase
		Var   string
		Start Expr
		End   Expr
		Body  *Block
	}

	ExprStmt struct {
		NodeBase
		X Expr
	}

	// Assign writes Value into Target. Target is one of Identifier, Member
	// or Index; the parser rejects anything else.
	Assign struct {
		NodeBase
		Target Expr
		Value  Expr
	}

	Binary struct {
		NodeBase
		Op    BinaryOp
		Left  Expr
		Right Expr
	}

	Unary struct {
		NodeBase
		Op      UnaryOp
		Operand Expr
	}

	// Cast is an `expr as type` conversion between numeric types.
	Cast struct {
		NodeBase
		X      Expr
		Target *Type
	}

	Call struct {
		NodeBase
		Callee Expr
		Args   []Expr
	}

	Member struct {
		NodeBase
		Object Expr
		Name   string
	}

	Index struct {
		NodeBase
		Object Expr
		Idx    Expr
	}

	IntLiteral struct {
		NodeBase
		Value int64
	}

	FloatLiteral struct {
		NodeBase
		Value float64
	}

	// StringLiteral holds the value with escape sequences already translated.
	StringLiteral struct {
		NodeBase
		Value string
	}

	BoolLiteral struct {
		NodeBase
		Value bool
	}

	Identifier struct {
		NodeBase
		Name string
	}

	// StructInit is a `Name { field = expr, … }` literal. Field order in the
	// literal is not significant; the back ends match by name.
	StructInit struct {
		NodeBase
		Name   string
		Fields []*StructInitField
	}

	StructInitField struct {
		NodeBase
		Name  string
		Value Expr
	}

	ArrayInit struct {
		NodeBase
		Elems []Expr
	}

	// EnumVariantExpr is an `EnumName::VariantName` access.
	EnumVariantExpr struct {
		NodeBase
		EnumName    string
		VariantName string
	}

	// Use records a @use directive that survived preprocessing (the REPL
	// path); it carries no semantics past the parser.
	Use struct {
		NodeBase
		Path string
	}

	// Extern is an `@extern "abi" do … end` block of foreign declarations.
	Extern struct {
		NodeBase
		ABI   string
		Decls []*FnDecl
	}
)

type BinaryOp int

const (
	BinaryOp_Add BinaryOp = iota
	BinaryOp_Sub
	BinaryOp_Mul
	BinaryOp_Div
	BinaryOp_Mod
	BinaryOp_Eq
	BinaryOp_NotEq
	BinaryOp_Less
	BinaryOp_LessEq
	BinaryOp_Greater
	BinaryOp_GreaterEq
	BinaryOp_And
	BinaryOp_Or
	BinaryOp_BitAnd
	BinaryOp_BitOr
	BinaryOp_BitXor
	BinaryOp_ShiftLeft
	BinaryOp_ShiftRight
)

func (op BinaryOp) String() string {
	switch op {
	case BinaryOp_Add:
		return "+"
	case BinaryOp_Sub:
		return "-"
	case BinaryOp_Mul:
		return "*"
	case BinaryOp_Div:
		return "/"
	case BinaryOp_Mod:
		return "%"
	case BinaryOp_Eq:
		return "=="
	case BinaryOp_NotEq:
		return "!="
	case BinaryOp_Less:
		return "<"
	case BinaryOp_LessEq:
		return "<="
	case BinaryOp_Greater:
		return ">"
	case BinaryOp_GreaterEq:
		return ">="
	case BinaryOp_And:
		return "and"
	case BinaryOp_Or:
		return "or"
	case BinaryOp_BitAnd:
		return "&"
	case BinaryOp_BitOr:
		return "|"
	case BinaryOp_BitXor:
		return "^"
	case BinaryOp_ShiftLeft:
		return "<<"
	case BinaryOp_ShiftRight:
		return ">>"
	default:
		return "<invalid>"
	}
}

// IsComparison reports whether the operator yields a bool from two operands
// of the same kind.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case BinaryOp_Eq, BinaryOp_NotEq, BinaryOp_Less, BinaryOp_LessEq, BinaryOp_Greater, BinaryOp_GreaterEq:
		return true
	default:
		return false
	}
}

type UnaryOp int

const (
	UnaryOp_Neg UnaryOp = iota
	UnaryOp_Not
	UnaryOp_BitNot
	UnaryOp_AddrOf
	UnaryOp_Deref
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryOp_Neg:
		return "-"
	case UnaryOp_Not:
		return "not"
	case UnaryOp_BitNot:
		return "~"
	case UnaryOp_AddrOf:
		return "&"
	case UnaryOp_Deref:
		return "*"
	default:
		return "<invalid>"
	}
}
