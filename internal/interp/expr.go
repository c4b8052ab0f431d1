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
	"github.com/EngFlow/nullc/internal/ast"
)

func (in *Interp) evalExpr(node ast.Expr) Value {
	switch expr := node.(type) {
	case *ast.IntLiteral:
		return IntValue(expr.Value)
	case *ast.FloatLiteral:
		return FloatValue(expr.Value)
	case *ast.BoolLiteral:
		return BoolValue(expr.Value)
	case *ast.StringLiteral:
		return StringValue(expr.Value)

	case *ast.Identifier:
		if b := in.env.lookup(expr.Name); b != nil {
			return b.value
		}
		return in.runtimeError(expr, "undefined variable '%s'", expr.Name)

	case *ast.Binary:
		return in.evalBinary(expr)

	case *ast.Unary:
		return in.evalUnary(expr)

	case *ast.Cast:
		return in.evalCast(expr)

	case *ast.Call:
		return in.evalCall(expr)

	case *ast.Member:
		return in.evalMember(expr)

	case *ast.Index:
		return in.evalIndex(expr)

	case *ast.StructInit:
		return in.evalStructInit(expr)

	case *ast.ArrayInit:
		elems := make([]Value, 0, len(expr.Elems))
		for _, elemExpr := range expr.Elems {
			elem := in.evalExpr(elemExpr)
			if in.stopped() {
				return Void
			}
			elems = append(elems, elem)
		}
		return ArrayValue(elems)

	case *ast.EnumVariantExpr:
		enumType, exists := in.enums[expr.EnumName]
		if !exists {
			return in.runtimeError(expr, "undefined enum '%s'", expr.EnumName)
		}
		value, exists := enumType.VariantValue(expr.VariantName)
		if !exists {
			return in.runtimeError(expr, "undefined variant '%s::%s'", expr.EnumName, expr.VariantName)
		}
		return IntValue(value)

	case *ast.Assign:
		return in.evalAssign(expr)

	case nil:
		return Void
	default:
		return in.runtimeError(node, "expression cannot be evaluated")
	}
}

// evalBinary implements binary operators. `and`/`or` are short-circuit: the
// right operand is only evaluated when the left one does not decide the
// result.
func (in *Interp) evalBinary(expr *ast.Binary) Value {
	left := in.evalExpr(expr.Left)
	if in.stopped() {
		return Void
	}

	switch expr.Op {
	case ast.BinaryOp_And:
		if left.Kind != ValueKind_Bool {
			return in.runtimeError(expr, "'and' requires boolean operands")
		}
		if !left.Bool {
			return BoolValue(false)
		}
		return in.requireBool(expr, in.evalExpr(expr.Right))
	case ast.BinaryOp_Or:
		if left.Kind != ValueKind_Bool {
			return in.runtimeError(expr, "'or' requires boolean operands")
		}
		if left.Bool {
			return BoolValue(true)
		}
		return in.requireBool(expr, in.evalExpr(expr.Right))
	}

	right := in.evalExpr(expr.Right)
	if in.stopped() {
		return Void
	}

	if expr.Op.IsComparison() {
		return in.evalComparison(expr, left, right)
	}

	// Mixed int/float arithmetic widens to float.
	if left.Kind == ValueKind_Float || right.Kind == ValueKind_Float {
		return in.evalFloatArithmetic(expr, left, right)
	}
	if left.Kind != ValueKind_Int || right.Kind != ValueKind_Int {
		return in.runtimeError(expr, "operator '%s' requires numeric operands", expr.Op)
	}

	l, r := left.Int, right.Int
	switch expr.Op {
	case ast.BinaryOp_Add:
		return IntValue(l + r)
	case ast.BinaryOp_Sub:
		return IntValue(l - r)
	case ast.BinaryOp_Mul:
		return IntValue(l * r)
	case ast.BinaryOp_Div:
		if r == 0 {
			return in.runtimeError(expr, "division by zero")
		}
		return IntValue(l / r)
	case ast.BinaryOp_Mod:
		if r == 0 {
			return in.runtimeError(expr, "division by zero")
		}
		return IntValue(l % r)
	case ast.BinaryOp_BitAnd:
		return IntValue(l & r)
	case ast.BinaryOp_BitOr:
		return IntValue(l | r)
	case ast.BinaryOp_BitXor:
		return IntValue(l ^ r)
	case ast.BinaryOp_ShiftLeft:
		return IntValue(l << uint64(r))
	case ast.BinaryOp_ShiftRight:
		return IntValue(l >> uint64(r))
	default:
		return in.runtimeError(expr, "operator '%s' cannot be applied to integers", expr.Op)
	}
}

func (in *Interp) evalFloatArithmetic(expr *ast.Binary, left, right Value) Value {
	if !left.IsNumeric() || !right.IsNumeric() {
		return in.runtimeError(expr, "operator '%s' requires numeric operands", expr.Op)
	}
	l, r := left.AsFloat(), right.AsFloat()
	switch expr.Op {
	case ast.BinaryOp_Add:
		return FloatValue(l + r)
	case ast.BinaryOp_Sub:
		return FloatValue(l - r)
	case ast.BinaryOp_Mul:
		return FloatValue(l * r)
	case ast.BinaryOp_Div:
		return FloatValue(l / r)
	default:
		return in.runtimeError(expr, "operator '%s' cannot be applied to floats", expr.Op)
	}
}

func (in *Interp) evalComparison(expr *ast.Binary, left, right Value) Value {
	// Numeric comparison widens mixed operands to float.
	if left.IsNumeric() && right.IsNumeric() {
		if left.Kind == ValueKind_Float || right.Kind == ValueKind_Float {
			return compareOrdered(expr.Op, left.AsFloat(), right.AsFloat())
		}
		return compareOrdered(expr.Op, left.Int, right.Int)
	}
	if left.Kind == ValueKind_String && right.Kind == ValueKind_String {
		return compareOrdered(expr.Op, left.Str, right.Str)
	}
	if left.Kind == ValueKind_Bool && right.Kind == ValueKind_Bool {
		switch expr.Op {
		case ast.BinaryOp_Eq:
			return BoolValue(left.Bool == right.Bool)
		case ast.BinaryOp_NotEq:
			return BoolValue(left.Bool != right.Bool)
		}
	}
	return in.runtimeError(expr, "cannot compare these operands")
}

func compareOrdered[T int64 | float64 | string](op ast.BinaryOp, l, r T) Value {
	switch op {
	case ast.BinaryOp_Eq:
		return BoolValue(l == r)
	case ast.BinaryOp_NotEq:
		return BoolValue(l != r)
	case ast.BinaryOp_Less:
		return BoolValue(l < r)
	case ast.BinaryOp_LessEq:
		return BoolValue(l <= r)
	case ast.BinaryOp_Greater:
		return BoolValue(l > r)
	default:
		return BoolValue(l >= r)
	}
}

func (in *Interp) requireBool(node ast.Node, v Value) Value {
	if in.stopped() {
		return Void
	}
	if v.Kind != ValueKind_Bool {
		return in.runtimeError(node, "expected a boolean operand")
	}
	return v
}

func (in *Interp) evalUnary(expr *ast.Unary) Value {
	operand := in.evalExpr(expr.Operand)
	if in.stopped() {
		return Void
	}
	switch expr.Op {
	case ast.UnaryOp_Neg:
		switch operand.Kind {
		case ValueKind_Int:
			return IntValue(-operand.Int)
		case ValueKind_Float:
			return FloatValue(-operand.Float)
		}
		return in.runtimeError(expr, "unary '-' requires a numeric operand")
	case ast.UnaryOp_Not:
		if operand.Kind != ValueKind_Bool {
			return in.runtimeError(expr, "'not' requires a boolean operand")
		}
		return BoolValue(!operand.Bool)
	case ast.UnaryOp_BitNot:
		if operand.Kind != ValueKind_Int {
			return in.runtimeError(expr, "unary '~' requires an integer operand")
		}
		return IntValue(^operand.Int)
	default:
		// The interpreter has no raw memory model.
		return in.runtimeError(expr, "pointer operations are not supported by the interpreter")
	}
}

func (in *Interp) evalCast(expr *ast.Cast) Value {
	source := in.evalExpr(expr.X)
	if in.stopped() {
		return Void
	}
	target := expr.Target
	if target == nil {
		return source
	}
	switch {
	case target.IsInteger():
		switch source.Kind {
		case ValueKind_Int:
			return source
		case ValueKind_Float:
			return IntValue(int64(source.Float))
		case ValueKind_Bool:
			if source.Bool {
				return IntValue(1)
			}
			return IntValue(0)
		}
	case target.IsFloat():
		if source.IsNumeric() {
			return FloatValue(source.AsFloat())
		}
	case target.Kind == ast.TypeKind_Bool:
		if source.Kind == ValueKind_Int {
			return BoolValue(source.Int != 0)
		}
	}
	return in.runtimeError(expr, "unsupported cast")
}

func (in *Interp) evalCall(call *ast.Call) Value {
	var name string
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		name = callee.Name
	case *ast.Member:
		// Module-qualified call: resolve by mangled name, mirroring the IR
		// back end.
		if module, objectIsIdentifier := callee.Object.(*ast.Identifier); objectIsIdentifier {
			name = module.Name + "_" + callee.Name
		} else {
			return in.runtimeError(call, "expression is not callable")
		}
	default:
		return in.runtimeError(call, "expression is not callable")
	}

	// Host bindings take precedence over user functions.
	if builtin, isBuiltin := builtins[name]; isBuiltin {
		args, ok := in.evalArgs(call.Args)
		if !ok {
			return Void
		}
		return builtin(in, call, args)
	}

	fn, exists := in.functions[name]
	if !exists {
		return in.runtimeError(call, "undefined function '%s'", name)
	}
	args, ok := in.evalArgs(call.Args)
	if !ok {
		return Void
	}
	return in.callFunction(fn, args, name)
}

func (in *Interp) evalArgs(argExprs []ast.Expr) ([]Value, bool) {
	args := make([]Value, 0, len(argExprs))
	for _, argExpr := range argExprs {
		arg := in.evalExpr(argExpr)
		if in.stopped() {
			return nil, false
		}
		args = append(args, arg)
	}
	return args, true
}

func (in *Interp) evalMember(expr *ast.Member) Value {
	object := in.evalExpr(expr.Object)
	if in.stopped() {
		return Void
	}
	if object.Kind != ValueKind_Struct {
		return in.runtimeError(expr, "invalid member access: not a struct value")
	}
	index := object.FieldIndex(expr.Name)
	if index < 0 {
		return in.runtimeError(expr, "invalid member access: no field '%s'", expr.Name)
	}
	return object.Fields[index].Value
}

func (in *Interp) evalIndex(expr *ast.Index) Value {
	object := in.evalExpr(expr.Object)
	if in.stopped() {
		return Void
	}
	index := in.evalExpr(expr.Idx)
	if in.stopped() {
		return Void
	}
	if index.Kind != ValueKind_Int {
		return in.runtimeError(expr, "invalid array index: not an integer")
	}
	switch object.Kind {
	case ValueKind_Array:
		if index.Int < 0 || index.Int >= int64(len(object.Elems)) {
			return in.runtimeError(expr, "invalid array index %d (length %d)", index.Int, len(object.Elems))
		}
		return object.Elems[index.Int]
	case ValueKind_String:
		if index.Int < 0 || index.Int >= int64(len(object.Str)) {
			return in.runtimeError(expr, "invalid string index %d (length %d)", index.Int, len(object.Str))
		}
		return IntValue(int64(object.Str[index.Int]))
	default:
		return in.runtimeError(expr, "invalid array index: value is not indexable")
	}
}

// evalStructInit builds a struct value with fields in declaration order,
// regardless of the order used in the initializer.
func (in *Interp) evalStructInit(expr *ast.StructInit) Value {
	structType, exists := in.structs[expr.Name]
	if !exists {
		return in.runtimeError(expr, "undefined struct '%s'", expr.Name)
	}

	result := in.zeroValue(structType)
	for _, field := range expr.Fields {
		value := in.evalExpr(field.Value)
		if in.stopped() {
			return Void
		}
		index := result.FieldIndex(field.Name)
		if index < 0 {
			return in.runtimeError(field, "invalid member access: no field '%s'", field.Name)
		}
		result.Fields[index].Value = value
	}
	return result
}

// evalAssign writes into the storage slot named by the target and yields the
// assigned value, so assignments work as statements and as expressions.
func (in *Interp) evalAssign(assign *ast.Assign) Value {
	value := in.evalExpr(assign.Value)
	if in.stopped() {
		return Void
	}
	slot := in.lvalue(assign.Target, true)
	if slot == nil {
		return Void
	}
	*slot = value.Clone()
	return value
}

// lvalue resolves an assignable expression to the value slot it names.
// enforceMutability applies to the base binding of the chain.
func (in *Interp) lvalue(target ast.Expr, enforceMutability bool) *Value {
	switch t := target.(type) {
	case *ast.Identifier:
		b := in.env.lookup(t.Name)
		if b == nil {
			in.runtimeError(t, "undefined variable '%s'", t.Name)
			return nil
		}
		if enforceMutability && !b.mutable {
			in.runtimeError(t, "cannot assign to immutable variable '%s'", t.Name)
			return nil
		}
		return &b.value

	case *ast.Member:
		object := in.lvalue(t.Object, enforceMutability)
		if object == nil {
			return nil
		}
		if object.Kind != ValueKind_Struct {
			in.runtimeError(t, "invalid member access: not a struct value")
			return nil
		}
		index := object.FieldIndex(t.Name)
		if index < 0 {
			in.runtimeError(t, "invalid member access: no field '%s'", t.Name)
			return nil
		}
		return &object.Fields[index].Value

	case *ast.Index:
		object := in.lvalue(t.Object, enforceMutability)
		if object == nil {
			return nil
		}
		index := in.evalExpr(t.Idx)
		if in.stopped() {
			return nil
		}
		if index.Kind != ValueKind_Int {
			in.runtimeError(t, "invalid array index: not an integer")
			return nil
		}
		if object.Kind != ValueKind_Array {
			in.runtimeError(t, "invalid array index: value is not indexable")
			return nil
		}
		if index.Int < 0 || index.Int >= int64(len(object.Elems)) {
			in.runtimeError(t, "invalid array index %d (length %d)", index.Int, len(object.Elems))
			return nil
		}
		return &object.Elems[index.Int]

	default:
		in.runtimeError(target, "invalid assignment target")
		return nil
	}
}
