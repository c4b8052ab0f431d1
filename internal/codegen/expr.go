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

package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/EngFlow/nullc/internal/ast"
)

// emitExpr lowers an expression into the current block and returns its SSA
// value, or nil after a codegen error.
func (b *Builder) emitExpr(node ast.Expr) value.Value {
	switch expr := node.(type) {
	case *ast.IntLiteral:
		return constant.NewInt(types.I64, expr.Value)
	case *ast.FloatLiteral:
		return constant.NewFloat(types.Double, expr.Value)
	case *ast.BoolLiteral:
		return constant.NewBool(expr.Value)
	case *ast.StringLiteral:
		return b.stringConstant(expr.Value)

	case *ast.Identifier:
		sym := b.lookupSymbol(expr.Name)
		if sym == nil {
			b.errorAt(expr, "unknown identifier '%s'", expr.Name)
			return nil
		}
		if sym.isPointerBacked {
			return b.block.NewLoad(sym.elemType, sym.value)
		}
		return sym.value

	case *ast.Binary:
		return b.emitBinary(expr)

	case *ast.Unary:
		return b.emitUnary(expr)

	case *ast.Cast:
		source := b.emitExpr(expr.X)
		if source == nil {
			return nil
		}
		return b.coerce(expr, source, expr.Target)

	case *ast.Call:
		return b.emitCall(expr)

	case *ast.Member, *ast.Index:
		return b.emitLoadOf(expr)

	case *ast.StructInit:
		slot, _, ok := b.emitStructInitSlot(expr)
		if !ok {
			return nil
		}
		return b.block.NewLoad(slot.ElemType, slot)

	case *ast.ArrayInit:
		slot, _, ok := b.emitArrayInitSlot(expr)
		if !ok {
			return nil
		}
		return b.block.NewLoad(slot.ElemType, slot)

	case *ast.EnumVariantExpr:
		return b.emitEnumVariant(expr)

	case *ast.Assign:
		return b.emitAssign(expr)

	case nil:
		return nil
	default:
		b.errorAt(node, "expression cannot be lowered")
		return nil
	}
}

func (b *Builder) emitEnumVariant(expr *ast.EnumVariantExpr) value.Value {
	enumType := expr.ResolvedType()
	if enumType == nil || enumType.Kind != ast.TypeKind_Enum {
		b.errorAt(expr, "unknown identifier '%s'", expr.EnumName)
		return nil
	}
	variantValue, exists := enumType.VariantValue(expr.VariantName)
	if !exists {
		b.errorAt(expr, "unknown identifier '%s::%s'", expr.EnumName, expr.VariantName)
		return nil
	}
	return constant.NewInt(types.I64, variantValue)
}

// --- binary operators ---

func (b *Builder) emitBinary(expr *ast.Binary) value.Value {
	if expr.Op == ast.BinaryOp_And || expr.Op == ast.BinaryOp_Or {
		return b.emitShortCircuit(expr)
	}

	left := b.emitExpr(expr.Left)
	if left == nil {
		return nil
	}
	right := b.emitExpr(expr.Right)
	if right == nil {
		return nil
	}
	left, right = b.promotePair(left, right)

	if expr.Op.IsComparison() {
		return b.emitComparison(expr.Op, left, right)
	}

	if isFloatValue(left) {
		switch expr.Op {
		case ast.BinaryOp_Add:
			return b.block.NewFAdd(left, right)
		case ast.BinaryOp_Sub:
			return b.block.NewFSub(left, right)
		case ast.BinaryOp_Mul:
			return b.block.NewFMul(left, right)
		case ast.BinaryOp_Div:
			return b.block.NewFDiv(left, right)
		default:
			b.errorAt(expr, "operator '%s' cannot be applied to floats", expr.Op)
			return nil
		}
	}

	switch expr.Op {
	case ast.BinaryOp_Add:
		return b.block.NewAdd(left, right)
	case ast.BinaryOp_Sub:
		return b.block.NewSub(left, right)
	case ast.BinaryOp_Mul:
		return b.block.NewMul(left, right)
	case ast.BinaryOp_Div:
		return b.block.NewSDiv(left, right)
	case ast.BinaryOp_Mod:
		return b.block.NewSRem(left, right)
	case ast.BinaryOp_BitAnd:
		return b.block.NewAnd(left, right)
	case ast.BinaryOp_BitOr:
		return b.block.NewOr(left, right)
	case ast.BinaryOp_BitXor:
		return b.block.NewXor(left, right)
	case ast.BinaryOp_ShiftLeft:
		return b.block.NewShl(left, right)
	case ast.BinaryOp_ShiftRight:
		return b.block.NewAShr(left, right)
	default:
		b.errorAt(expr, "operator '%s' cannot be lowered", expr.Op)
		return nil
	}
}

var intPredicates = map[ast.BinaryOp]enum.IPred{
	ast.BinaryOp_Eq:        enum.IPredEQ,
	ast.BinaryOp_NotEq:     enum.IPredNE,
	ast.BinaryOp_Less:      enum.IPredSLT,
	ast.BinaryOp_LessEq:    enum.IPredSLE,
	ast.BinaryOp_Greater:   enum.IPredSGT,
	ast.BinaryOp_GreaterEq: enum.IPredSGE,
}

var floatPredicates = map[ast.BinaryOp]enum.FPred{
	ast.BinaryOp_Eq:        enum.FPredOEQ,
	ast.BinaryOp_NotEq:     enum.FPredONE,
	ast.BinaryOp_Less:      enum.FPredOLT,
	ast.BinaryOp_LessEq:    enum.FPredOLE,
	ast.BinaryOp_Greater:   enum.FPredOGT,
	ast.BinaryOp_GreaterEq: enum.FPredOGE,
}

func (b *Builder) emitComparison(op ast.BinaryOp, left, right value.Value) value.Value {
	if isFloatValue(left) {
		return b.block.NewFCmp(floatPredicates[op], left, right)
	}
	return b.block.NewICmp(intPredicates[op], left, right)
}

// emitShortCircuit lowers `and`/`or` with control flow, never a bitwise
// instruction: the right operand runs in its own block and a phi merges the
// evaluated result with the constant from the skipped path, so
// `false and crash()` never calls crash.
func (b *Builder) emitShortCircuit(expr *ast.Binary) value.Value {
	left := b.emitExpr(expr.Left)
	if left == nil {
		return nil
	}
	leftExit := b.block

	rhsBlock := b.fn.NewBlock("")
	mergeBlock := b.fn.NewBlock("")

	var skipped *constant.Int
	if expr.Op == ast.BinaryOp_And {
		leftExit.NewCondBr(left, rhsBlock, mergeBlock)
		skipped = constant.False
	} else {
		leftExit.NewCondBr(left, mergeBlock, rhsBlock)
		skipped = constant.True
	}

	b.block = rhsBlock
	right := b.emitExpr(expr.Right)
	if right == nil {
		return nil
	}
	rhsExit := b.block
	rhsExit.NewBr(mergeBlock)

	b.block = mergeBlock
	return mergeBlock.NewPhi(ir.NewIncoming(skipped, leftExit), ir.NewIncoming(right, rhsExit))
}

// --- unary operators ---

func (b *Builder) emitUnary(expr *ast.Unary) value.Value {
	if expr.Op == ast.UnaryOp_AddrOf {
		address, _, ok := b.emitAddress(expr.Operand)
		if !ok {
			b.errorAt(expr, "cannot take the address of this expression")
			return nil
		}
		return address
	}

	operand := b.emitExpr(expr.Operand)
	if operand == nil {
		return nil
	}

	switch expr.Op {
	case ast.UnaryOp_Neg:
		if isFloatValue(operand) {
			return b.block.NewFNeg(operand)
		}
		return b.block.NewSub(zeroValue(operand.Type()), operand)
	case ast.UnaryOp_Not:
		return b.block.NewXor(operand, constant.True)
	case ast.UnaryOp_BitNot:
		intType, isInt := operand.Type().(*types.IntType)
		if !isInt {
			b.errorAt(expr, "unary '~' requires an integer operand")
			return nil
		}
		return b.block.NewXor(operand, constant.NewInt(intType, -1))
	case ast.UnaryOp_Deref:
		operandType := expr.Operand.ResolvedType()
		if operandType == nil || operandType.Kind != ast.TypeKind_Ptr {
			b.errorAt(expr, "cannot dereference this expression")
			return nil
		}
		return b.block.NewLoad(b.lowerType(expr, operandType.Inner), operand)
	default:
		b.errorAt(expr, "unary operator cannot be lowered")
		return nil
	}
}

// --- calls ---

// emitCall resolves the callee by identifier against the scope, falling back
// to the module's named-function table (and the lazily declared C runtime).
// `Module.name` member calls resolve by the mangled name Module_name.
func (b *Builder) emitCall(call *ast.Call) value.Value {
	var callee value.Value
	switch calleeExpr := call.Callee.(type) {
	case *ast.Identifier:
		if sym := b.lookupSymbol(calleeExpr.Name); sym != nil && sym.astType != nil && sym.astType.Kind == ast.TypeKind_Function {
			callee = sym.value
			if sym.isPointerBacked {
				callee = b.block.NewLoad(sym.elemType, sym.value)
			}
		} else if fn := b.runtimeFunction(calleeExpr.Name); fn != nil {
			callee = fn
		} else {
			b.errorAt(call, "unknown identifier '%s'", calleeExpr.Name)
			return nil
		}

	case *ast.Member:
		module, objectIsIdentifier := calleeExpr.Object.(*ast.Identifier)
		if !objectIsIdentifier {
			b.errorAt(call, "expression is not callable")
			return nil
		}
		mangled := module.Name + "_" + calleeExpr.Name
		fn, exists := b.functions[mangled]
		if !exists {
			b.errorAt(call, "unknown identifier '%s.%s'", module.Name, calleeExpr.Name)
			return nil
		}
		callee = fn

	default:
		b.errorAt(call, "expression is not callable")
		return nil
	}

	var paramTypes []types.Type
	if fn, isFunc := callee.(*ir.Func); isFunc {
		paramTypes = fn.Sig.Params
	}

	args := make([]value.Value, 0, len(call.Args))
	for i, argExpr := range call.Args {
		arg := b.emitExpr(argExpr)
		if arg == nil {
			return nil
		}
		if i < len(paramTypes) {
			arg = b.coerceToType(arg, paramTypes[i])
		}
		args = append(args, arg)
	}
	return b.block.NewCall(callee, args...)
}

// --- aggregate access ---

// emitLoadOf reads a member or index expression: through the address path
// when the base is addressable, otherwise by extracting from the SSA value.
func (b *Builder) emitLoadOf(expr ast.Expr) value.Value {
	if address, elemAst, ok := b.emitAddress(expr); ok {
		return b.block.NewLoad(b.lowerType(expr, elemAst), address)
	}

	switch access := expr.(type) {
	case *ast.Member:
		object := b.emitExpr(access.Object)
		if object == nil {
			return nil
		}
		objectType := access.Object.ResolvedType()
		if objectType == nil || objectType.Kind != ast.TypeKind_Struct {
			b.errorAt(access, "invalid member access")
			return nil
		}
		index := objectType.FieldIndex(access.Name)
		if index < 0 {
			b.errorAt(access, "unknown identifier '%s'", access.Name)
			return nil
		}
		return b.block.NewExtractValue(object, uint64(index))

	default:
		b.errorAt(expr, "expression cannot be lowered")
		return nil
	}
}

// emitAddress resolves an assignable expression to a pointer plus the source
// type of the pointee. ok is false when the expression has no address.
func (b *Builder) emitAddress(expr ast.Expr) (value.Value, *ast.Type, bool) {
	switch target := expr.(type) {
	case *ast.Identifier:
		sym := b.lookupSymbol(target.Name)
		if sym == nil || !sym.isPointerBacked {
			return nil, nil, false
		}
		return sym.value, sym.astType, true

	case *ast.Member:
		baseAddress, baseType, ok := b.emitAddress(target.Object)
		if !ok {
			return nil, nil, false
		}
		if baseType != nil && baseType.Kind == ast.TypeKind_Ptr && baseType.Inner.Kind == ast.TypeKind_Struct {
			baseAddress = b.block.NewLoad(b.lowerType(target, baseType), baseAddress)
			baseType = baseType.Inner
		}
		if baseType == nil || baseType.Kind != ast.TypeKind_Struct {
			return nil, nil, false
		}
		index := baseType.FieldIndex(target.Name)
		if index < 0 {
			b.errorAt(target, "unknown identifier '%s'", target.Name)
			return nil, nil, false
		}
		fieldPtr := b.block.NewGetElementPtr(b.lowerType(target, baseType), baseAddress,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
		return fieldPtr, baseType.Fields[index].Type, true

	case *ast.Index:
		baseAddress, baseType, ok := b.emitAddress(target.Object)
		if !ok {
			return nil, nil, false
		}
		index := b.emitExpr(target.Idx)
		if index == nil {
			return nil, nil, false
		}
		index = b.coerceToIntType(index, types.I64)

		switch {
		case baseType != nil && baseType.Kind == ast.TypeKind_Array:
			elemPtr := b.block.NewGetElementPtr(b.lowerType(target, baseType), baseAddress,
				constant.NewInt(types.I32, 0), index)
			return elemPtr, baseType.Elem, true
		case baseType != nil && (baseType.Kind == ast.TypeKind_Slice || baseType.Kind == ast.TypeKind_Ptr):
			elem := baseType.Elem
			if baseType.Kind == ast.TypeKind_Ptr {
				elem = baseType.Inner
			}
			pointer := b.block.NewLoad(b.lowerType(target, baseType), baseAddress)
			elemPtr := b.block.NewGetElementPtr(b.lowerType(target, elem), pointer, index)
			return elemPtr, elem, true
		default:
			return nil, nil, false
		}

	case *ast.StructInit:
		slot, structType, ok := b.emitStructInitSlot(target)
		return slot, structType, ok

	case *ast.ArrayInit:
		slot, arrayType, ok := b.emitArrayInitSlot(target)
		return slot, arrayType, ok

	case *ast.Unary:
		if target.Op != ast.UnaryOp_Deref {
			return nil, nil, false
		}
		operandType := target.Operand.ResolvedType()
		if operandType == nil || operandType.Kind != ast.TypeKind_Ptr {
			return nil, nil, false
		}
		pointer := b.emitExpr(target.Operand)
		if pointer == nil {
			return nil, nil, false
		}
		return pointer, operandType.Inner, true

	default:
		return nil, nil, false
	}
}

// emitStructInitSlot allocates a stack slot for the literal and stores each
// initializer field at its declared index, not its position in the literal.
func (b *Builder) emitStructInitSlot(expr *ast.StructInit) (*ir.InstAlloca, *ast.Type, bool) {
	structType := expr.ResolvedType()
	if structType == nil || structType.Kind != ast.TypeKind_Struct {
		structType = b.structTypes[expr.Name]
	}
	if structType == nil {
		b.errorAt(expr, "unknown struct type '%s'", expr.Name)
		return nil, nil, false
	}

	lowered := b.lowerType(expr, structType)
	slot := b.block.NewAlloca(lowered)
	b.block.NewStore(zeroValue(lowered), slot)

	for _, field := range expr.Fields {
		index := structType.FieldIndex(field.Name)
		if index < 0 {
			b.errorAt(field, "unknown identifier '%s'", field.Name)
			return nil, nil, false
		}
		fieldValue := b.emitExpr(field.Value)
		if fieldValue == nil {
			return nil, nil, false
		}
		fieldValue = b.coerce(field, fieldValue, structType.Fields[index].Type)
		fieldPtr := b.block.NewGetElementPtr(lowered, slot,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
		b.block.NewStore(fieldValue, fieldPtr)
	}
	return slot, structType, true
}

func (b *Builder) emitArrayInitSlot(expr *ast.ArrayInit) (*ir.InstAlloca, *ast.Type, bool) {
	arrayType := expr.ResolvedType()
	if arrayType == nil || arrayType.Kind != ast.TypeKind_Array {
		arrayType = ast.ArrayOf(ast.TypeI64, len(expr.Elems))
	}

	lowered := b.lowerType(expr, arrayType)
	slot := b.block.NewAlloca(lowered)
	b.block.NewStore(zeroValue(lowered), slot)

	for i, elemExpr := range expr.Elems {
		elem := b.emitExpr(elemExpr)
		if elem == nil {
			return nil, nil, false
		}
		elem = b.coerce(elemExpr, elem, arrayType.Elem)
		elemPtr := b.block.NewGetElementPtr(lowered, slot,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)))
		b.block.NewStore(elem, elemPtr)
	}
	return slot, arrayType, true
}

// emitAssign stores through the target's address and yields the stored
// value, so member and index writes work as statements and as expressions.
func (b *Builder) emitAssign(assign *ast.Assign) value.Value {
	address, elemAst, ok := b.emitAddress(assign.Target)
	if !ok {
		b.errorAt(assign, "invalid assignment target")
		return nil
	}
	stored := b.emitExpr(assign.Value)
	if stored == nil {
		return nil
	}
	stored = b.coerce(assign, stored, elemAst)
	b.block.NewStore(stored, address)
	return stored
}

// --- numeric coercion ---

func isFloatValue(v value.Value) bool {
	_, isFloat := v.Type().(*types.FloatType)
	return isFloat
}

// promotePair unifies the operand types of a binary operator: mixed
// int/float widens to float, mixed widths sign-extend to the wider type.
func (b *Builder) promotePair(left, right value.Value) (value.Value, value.Value) {
	leftInt, leftIsInt := left.Type().(*types.IntType)
	rightInt, rightIsInt := right.Type().(*types.IntType)

	switch {
	case leftIsInt && rightIsInt:
		if leftInt.BitSize < rightInt.BitSize {
			left = b.block.NewSExt(left, rightInt)
		} else if rightInt.BitSize < leftInt.BitSize {
			right = b.block.NewSExt(right, leftInt)
		}
	case leftIsInt && !rightIsInt:
		left = b.block.NewSIToFP(left, right.Type())
	case !leftIsInt && rightIsInt:
		right = b.block.NewSIToFP(right, left.Type())
	default:
		leftFloat := left.Type().(*types.FloatType)
		rightFloat := right.Type().(*types.FloatType)
		if leftFloat.Kind == types.FloatKindFloat && rightFloat.Kind == types.FloatKindDouble {
			left = b.block.NewFPExt(left, rightFloat)
		} else if rightFloat.Kind == types.FloatKindFloat && leftFloat.Kind == types.FloatKindDouble {
			right = b.block.NewFPExt(right, leftFloat)
		}
	}
	return left, right
}

// coerce inserts a numeric cast when the value's type does not match the
// expected source type: integer↔integer via sign-extend/truncate,
// integer→float via signed conversion, float↔float via fp casts.
func (b *Builder) coerce(node ast.Node, v value.Value, expected *ast.Type) value.Value {
	if expected == nil || expected.IsUnknown() {
		return v
	}
	return b.coerceToType(v, b.lowerType(node, expected))
}

func (b *Builder) coerceToType(v value.Value, target types.Type) value.Value {
	if v.Type().Equal(target) {
		return v
	}

	switch targetType := target.(type) {
	case *types.IntType:
		return b.coerceToIntType(v, targetType)
	case *types.FloatType:
		switch sourceType := v.Type().(type) {
		case *types.IntType:
			return b.block.NewSIToFP(v, targetType)
		case *types.FloatType:
			if sourceType.Kind == types.FloatKindFloat {
				return b.block.NewFPExt(v, targetType)
			}
			return b.block.NewFPTrunc(v, targetType)
		}
	case *types.PointerType:
		if _, sourceIsPointer := v.Type().(*types.PointerType); sourceIsPointer {
			return b.block.NewBitCast(v, targetType)
		}
	}
	return v
}

func (b *Builder) coerceToIntType(v value.Value, target *types.IntType) value.Value {
	switch sourceType := v.Type().(type) {
	case *types.IntType:
		if sourceType.BitSize == target.BitSize {
			return v
		}
		if sourceType.BitSize == 1 {
			return b.block.NewZExt(v, target)
		}
		if sourceType.BitSize < target.BitSize {
			return b.block.NewSExt(v, target)
		}
		return b.block.NewTrunc(v, target)
	case *types.FloatType:
		return b.block.NewFPToSI(v, target)
	default:
		return v
	}
}
