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

package analyzer

import "github.com/EngFlow/nullc/internal/ast"

// analyzeExpr resolves an expression subtree, decorates every node with its
// type and returns the type of the root. Errors install the unknown sentinel
// so later checks on the same subtree stay quiet.
func (a *Analyzer) analyzeExpr(node ast.Expr) *ast.Type {
	if node == nil {
		return ast.TypeUnknown
	}
	resultType := a.analyzeExprInner(node)
	node.SetResolvedType(resultType)
	return resultType
}

func (a *Analyzer) analyzeExprInner(node ast.Expr) *ast.Type {
	switch expr := node.(type) {
	case *ast.IntLiteral:
		return ast.TypeI64
	case *ast.FloatLiteral:
		return ast.TypeF64
	case *ast.BoolLiteral:
		return ast.TypeBool
	case *ast.StringLiteral:
		return ast.SliceOf(ast.TypeU8)

	case *ast.Identifier:
		sym := a.current.Lookup(expr.Name)
		if sym == nil {
			a.errorAt(expr, "variable '%s' not found", expr.Name)
			return ast.TypeUnknown
		}
		return sym.Type

	case *ast.Binary:
		return a.analyzeBinary(expr)

	case *ast.Unary:
		return a.analyzeUnary(expr)

	case *ast.Cast:
		return a.analyzeCast(expr)

	case *ast.Call:
		return a.analyzeCall(expr)

	case *ast.Member:
		return a.analyzeMember(expr)

	case *ast.Index:
		return a.analyzeIndex(expr)

	case *ast.StructInit:
		return a.analyzeStructInit(expr)

	case *ast.ArrayInit:
		return a.analyzeArrayInit(expr)

	case *ast.EnumVariantExpr:
		return a.analyzeEnumVariant(expr)

	case *ast.Assign:
		// Assignment used in expression position yields the assigned value.
		a.analyzeAssign(expr)
		return expr.ResolvedType()

	default:
		return ast.TypeUnknown
	}
}

func (a *Analyzer) analyzeBinary(expr *ast.Binary) *ast.Type {
	leftType := a.analyzeExpr(expr.Left)
	rightType := a.analyzeExpr(expr.Right)

	// Unknown operand types suppress the compatibility check to avoid
	// cascaded errors.
	known := !leftType.IsUnknown() && !rightType.IsUnknown()

	switch expr.Op {
	case ast.BinaryOp_Add, ast.BinaryOp_Sub, ast.BinaryOp_Mul, ast.BinaryOp_Div:
		if known && (!leftType.IsNumeric() || !rightType.IsNumeric()) {
			a.errorAt(expr, "operator '%s' requires numeric operands, found %s and %s", expr.Op, leftType, rightType)
			return ast.TypeUnknown
		}
		return arithmeticResult(leftType, rightType)

	case ast.BinaryOp_Mod, ast.BinaryOp_BitAnd, ast.BinaryOp_BitOr, ast.BinaryOp_BitXor,
		ast.BinaryOp_ShiftLeft, ast.BinaryOp_ShiftRight:
		if known && (!leftType.IsInteger() || !rightType.IsInteger()) {
			a.errorAt(expr, "operator '%s' requires integer operands, found %s and %s", expr.Op, leftType, rightType)
			return ast.TypeUnknown
		}
		return arithmeticResult(leftType, rightType)

	case ast.BinaryOp_And, ast.BinaryOp_Or:
		if known && (leftType.Kind != ast.TypeKind_Bool || rightType.Kind != ast.TypeKind_Bool) {
			a.errorAt(expr, "operator '%s' requires boolean operands, found %s and %s", expr.Op, leftType, rightType)
		}
		return ast.TypeBool

	default: // comparisons
		if known && !leftType.Equal(rightType) && !(leftType.IsNumeric() && rightType.IsNumeric()) {
			a.errorAt(expr, "cannot compare %s with %s", leftType, rightType)
		}
		return ast.TypeBool
	}
}

// arithmeticResult picks the result type of an arithmetic operator: the left
// operand's type when known, otherwise the right's.
func arithmeticResult(leftType, rightType *ast.Type) *ast.Type {
	if leftType != nil && !leftType.IsUnknown() {
		return leftType
	}
	if rightType != nil && !rightType.IsUnknown() {
		return rightType
	}
	return ast.TypeUnknown
}

func (a *Analyzer) analyzeUnary(expr *ast.Unary) *ast.Type {
	operandType := a.analyzeExpr(expr.Operand)
	if operandType.IsUnknown() {
		return ast.TypeUnknown
	}

	switch expr.Op {
	case ast.UnaryOp_Neg:
		if !operandType.IsNumeric() {
			a.errorAt(expr, "unary '-' requires a numeric operand, found %s", operandType)
			return ast.TypeUnknown
		}
		return operandType
	case ast.UnaryOp_Not:
		if operandType.Kind != ast.TypeKind_Bool {
			a.errorAt(expr, "'not' requires a boolean operand, found %s", operandType)
		}
		return ast.TypeBool
	case ast.UnaryOp_BitNot:
		if !operandType.IsInteger() {
			a.errorAt(expr, "unary '~' requires an integer operand, found %s", operandType)
			return ast.TypeUnknown
		}
		return operandType
	case ast.UnaryOp_AddrOf:
		return ast.PtrTo(operandType)
	case ast.UnaryOp_Deref:
		if operandType.Kind != ast.TypeKind_Ptr {
			a.errorAt(expr, "cannot dereference %s", operandType)
			return ast.TypeUnknown
		}
		return operandType.Inner
	default:
		return ast.TypeUnknown
	}
}

func (a *Analyzer) analyzeCast(expr *ast.Cast) *ast.Type {
	sourceType := a.analyzeExpr(expr.X)
	expr.Target = a.resolveType(expr, expr.Target)
	if !sourceType.IsUnknown() && !expr.Target.IsUnknown() {
		if !sourceType.IsNumeric() || !expr.Target.IsNumeric() {
			a.errorAt(expr, "cannot cast %s to %s", sourceType, expr.Target)
			return ast.TypeUnknown
		}
	}
	return expr.Target
}

func (a *Analyzer) analyzeCall(call *ast.Call) *ast.Type {
	for _, arg := range call.Args {
		a.analyzeExpr(arg)
	}

	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		sym := a.current.Lookup(callee.Name)
		if sym == nil {
			a.errorAt(call, "function '%s' not found", callee.Name)
			return ast.TypeUnknown
		}
		if sym.Kind != SymbolKind_Function {
			a.errorAt(call, "'%s' is a %s, not a function", callee.Name, sym.Kind)
			return ast.TypeUnknown
		}
		callee.SetResolvedType(sym.Type)
		return sym.Type.Return

	case *ast.Member:
		// Module-qualified calls stay unresolved here; the IR builder binds
		// them by mangled name.
		if _, objectIsIdentifier := callee.Object.(*ast.Identifier); objectIsIdentifier {
			return ast.TypeUnknown
		}
		a.analyzeExpr(callee)
		return ast.TypeUnknown

	default:
		a.analyzeExpr(callee)
		a.errorAt(call, "expression is not callable")
		return ast.TypeUnknown
	}
}

func (a *Analyzer) analyzeMember(expr *ast.Member) *ast.Type {
	objectType := a.analyzeExpr(expr.Object)
	if objectType.IsUnknown() {
		return ast.TypeUnknown
	}
	if objectType.Kind == ast.TypeKind_Ptr && objectType.Inner.Kind == ast.TypeKind_Struct {
		objectType = objectType.Inner
	}
	if objectType.Kind != ast.TypeKind_Struct {
		a.errorAt(expr, "member access on non-struct type %s", objectType)
		return ast.TypeUnknown
	}
	index := objectType.FieldIndex(expr.Name)
	if index < 0 {
		a.errorAt(expr, "unknown field '%s' in struct '%s'", expr.Name, objectType.Name)
		return ast.TypeUnknown
	}
	return objectType.Fields[index].Type
}

func (a *Analyzer) analyzeIndex(expr *ast.Index) *ast.Type {
	objectType := a.analyzeExpr(expr.Object)
	indexType := a.analyzeExpr(expr.Idx)
	if !indexType.IsUnknown() && !indexType.IsInteger() {
		a.errorAt(expr, "array index must be an integer, found %s", indexType)
	}
	if objectType.IsUnknown() {
		return ast.TypeUnknown
	}
	switch objectType.Kind {
	case ast.TypeKind_Array, ast.TypeKind_Slice:
		return objectType.Elem
	case ast.TypeKind_Ptr:
		return objectType.Inner
	default:
		a.errorAt(expr, "cannot index %s", objectType)
		return ast.TypeUnknown
	}
}

func (a *Analyzer) analyzeStructInit(expr *ast.StructInit) *ast.Type {
	sym := a.global.Lookup(expr.Name)
	if sym == nil || sym.Kind != SymbolKind_Struct {
		a.errorAt(expr, "unknown struct '%s'", expr.Name)
		for _, field := range expr.Fields {
			a.analyzeExpr(field.Value)
		}
		return ast.TypeUnknown
	}

	structType := sym.Type
	for _, field := range expr.Fields {
		valueType := a.analyzeExpr(field.Value)
		index := structType.FieldIndex(field.Name)
		if index < 0 {
			a.errorAt(field, "unknown field '%s' in struct '%s'", field.Name, expr.Name)
			continue
		}
		field.SetResolvedType(structType.Fields[index].Type)
		a.requireCompatible(field, structType.Fields[index].Type, valueType, "field initializer")
	}
	return structType
}

func (a *Analyzer) analyzeArrayInit(expr *ast.ArrayInit) *ast.Type {
	elemType := ast.TypeUnknown
	for _, elem := range expr.Elems {
		t := a.analyzeExpr(elem)
		if elemType.IsUnknown() {
			elemType = t
		}
	}
	return ast.ArrayOf(elemType, len(expr.Elems))
}

func (a *Analyzer) analyzeEnumVariant(expr *ast.EnumVariantExpr) *ast.Type {
	sym := a.global.Lookup(expr.EnumName)
	if sym == nil || sym.Kind != SymbolKind_Enum {
		a.errorAt(expr, "unknown enum '%s'", expr.EnumName)
		return ast.TypeUnknown
	}
	if _, exists := sym.Type.VariantValue(expr.VariantName); !exists {
		a.errorAt(expr, "unknown variant '%s' in enum '%s'", expr.VariantName, expr.EnumName)
		return ast.TypeUnknown
	}
	return sym.Type
}
