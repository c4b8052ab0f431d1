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

// Package codegen lowers the typed AST into an LLVM SSA module built with
// llir/llvm. Three passes run over the program: named struct types are
// declared first, then every function signature (including @extern ones), and
// finally function bodies are emitted block by block.
//
// Codegen errors (unknown identifier, unknown struct type, a block left
// without a terminator) are reported and flagged, but emission continues best
// effort; the driver refuses to hand a flagged module to the JIT or the
// object emitter.
package codegen

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/EngFlow/nullc/internal/ast"
)

type Builder struct {
	module *ir.Module
	errOut io.Writer

	structs     map[string]*types.StructType
	structTypes map[string]*ast.Type
	functions   map[string]*ir.Func

	fn        *ir.Func
	fnReturn  *ast.Type
	block     *ir.Block
	scopes    []map[string]*symbolValue
	loops     []loopTargets
	strCount  int
	hadError  bool
}

// symbolValue binds a source identifier to an IR value. Pointer-backed
// bindings hold a stack slot; every read emits a load.
type symbolValue struct {
	value           value.Value
	elemType        types.Type // pointee type of a pointer-backed slot
	astType         *ast.Type
	isPointerBacked bool
}

type loopTargets struct {
	breakTarget    *ir.Block
	continueTarget *ir.Block
}

func New(moduleName string, errOut io.Writer) *Builder {
	module := ir.NewModule()
	module.SourceFilename = moduleName
	return &Builder{
		module:      module,
		errOut:      errOut,
		structs:     map[string]*types.StructType{},
		structTypes: map[string]*ast.Type{},
		functions:   map[string]*ir.Func{},
	}
}

// Build lowers the program and returns the IR module. ok is false when any
// codegen error was reported or module verification failed; the module must
// not be emitted in that case.
func (b *Builder) Build(program *ast.Program) (*ir.Module, bool) {
	b.pushScope() // module-level bindings
	b.declareStructs(program)
	b.declareFunctions(program)
	b.declareGlobalVars(program)
	b.emitBodies(program)
	b.popScope()
	b.verify()
	return b.module, !b.hadError
}

// declareGlobalVars lowers top-level variable declarations to module globals.
// Only constant initializers survive lowering; anything else starts zeroed.
func (b *Builder) declareGlobalVars(program *ast.Program) {
	for _, decl := range program.Decls {
		d, isVar := decl.(*ast.VarDecl)
		if !isVar {
			continue
		}
		lowered := b.lowerType(d, d.ResolvedType())
		init := zeroValue(lowered)
		switch literal := d.Init.(type) {
		case *ast.IntLiteral:
			if intType, isInt := lowered.(*types.IntType); isInt {
				init = constant.NewInt(intType, literal.Value)
			}
		case *ast.FloatLiteral:
			if floatType, isFloat := lowered.(*types.FloatType); isFloat {
				init = constant.NewFloat(floatType, literal.Value)
			}
		case *ast.BoolLiteral:
			init = constant.NewBool(literal.Value)
		}
		global := b.module.NewGlobalDef(d.Name, init)
		b.defineSymbol(d.Name, &symbolValue{
			value:           global,
			elemType:        lowered,
			astType:         d.ResolvedType(),
			isPointerBacked: true,
		})
	}
}

func (b *Builder) errorAt(node ast.Node, format string, args ...any) {
	b.hadError = true
	pos := node.Pos()
	fmt.Fprintf(b.errOut, "Error at line %d, column %d: %s\n", pos.Line, pos.Column, fmt.Sprintf(format, args...))
}

// --- pass 1: struct declarations ---

// declareStructs creates a named opaque struct type per declaration, then
// sets every body by lowering the field types, so mutually recursive structs
// resolve.
func (b *Builder) declareStructs(program *ast.Program) {
	for _, decl := range program.Decls {
		if d, isStruct := decl.(*ast.StructDecl); isStruct {
			st := types.NewStruct()
			st.Opaque = true
			b.module.NewTypeDef(d.Name, st)
			b.structs[d.Name] = st
			if t := d.ResolvedType(); t != nil {
				b.structTypes[d.Name] = t
			}
		}
	}
	for _, decl := range program.Decls {
		if d, isStruct := decl.(*ast.StructDecl); isStruct {
			st := b.structs[d.Name]
			astType := b.structTypes[d.Name]
			if astType == nil {
				continue
			}
			fields := make([]types.Type, 0, len(astType.Fields))
			for _, field := range astType.Fields {
				fields = append(fields, b.lowerType(d, field.Type))
			}
			st.Fields = fields
			st.Opaque = false
		}
	}
}

// --- pass 2: function signatures ---

func (b *Builder) declareFunctions(program *ast.Program) {
	for _, decl := range program.Decls {
		switch d := decl.(type) {
		case *ast.FnDecl:
			b.declareFunction(d)
		case *ast.Extern:
			for _, fn := range d.Decls {
				b.declareFunction(fn)
			}
		}
	}
}

func (b *Builder) declareFunction(d *ast.FnDecl) {
	params := make([]*ir.Param, 0, len(d.Params))
	for _, param := range d.Params {
		params = append(params, ir.NewParam(param.Name, b.lowerType(param, param.ResolvedType())))
	}
	fn := b.module.NewFunc(d.Name, b.lowerType(d, d.ReturnType), params...)
	if d.Extern && d.Name == "printf" {
		fn.Sig.Variadic = true
	}
	b.functions[d.Name] = fn
}

// runtimeSignatures lazily declares the host runtime bindings the evaluator
// recognizes, so programs that rely on them without an @extern block still
// link against the C runtime.
var runtimeSignatures = map[string]struct {
	ret      types.Type
	params   []types.Type
	variadic bool
}{
	"puts":      {ret: types.I64, params: []types.Type{types.NewPointer(types.I8)}},
	"print":     {ret: types.Void, params: []types.Type{types.NewPointer(types.I8)}},
	"io_print":  {ret: types.Void, params: []types.Type{types.NewPointer(types.I8)}},
	"print_raw": {ret: types.Void, params: []types.Type{types.NewPointer(types.I8)}},
	"printf":    {ret: types.I64, params: []types.Type{types.NewPointer(types.I8)}, variadic: true},
	"print_int": {ret: types.Void, params: []types.Type{types.I64}},
	"println":   {ret: types.Void, params: []types.Type{types.NewPointer(types.I8)}},
	"putchar":   {ret: types.I32, params: []types.Type{types.I32}},
	"getchar":   {ret: types.I32},
	"exit":      {ret: types.Void, params: []types.Type{types.I32}},
}

func (b *Builder) runtimeFunction(name string) *ir.Func {
	if fn, declared := b.functions[name]; declared {
		return fn
	}
	sig, isRuntime := runtimeSignatures[name]
	if !isRuntime {
		return nil
	}
	params := make([]*ir.Param, 0, len(sig.params))
	for i, paramType := range sig.params {
		params = append(params, ir.NewParam(fmt.Sprintf("arg%d", i), paramType))
	}
	fn := b.module.NewFunc(name, sig.ret, params...)
	fn.Sig.Variadic = sig.variadic
	b.functions[name] = fn
	return fn
}

// --- type lowering ---

// lowerType maps a source type onto the target type system. Primitives map
// 1:1, ptr and slice become pointers, enums become i64, and named structs
// resolve against the pass-1 declarations (declare-and-fill on demand for
// structs that only appear through function types).
func (b *Builder) lowerType(node ast.Node, t *ast.Type) types.Type {
	if t == nil {
		return types.I64
	}
	switch t.Kind {
	case ast.TypeKind_Void:
		return types.Void
	case ast.TypeKind_Bool:
		return types.I1
	case ast.TypeKind_I8, ast.TypeKind_U8:
		return types.I8
	case ast.TypeKind_I16, ast.TypeKind_U16:
		return types.I16
	case ast.TypeKind_I32, ast.TypeKind_U32:
		return types.I32
	case ast.TypeKind_I64, ast.TypeKind_U64:
		return types.I64
	case ast.TypeKind_F32:
		return types.Float
	case ast.TypeKind_F64:
		return types.Double
	case ast.TypeKind_Ptr:
		return types.NewPointer(b.lowerType(node, t.Inner))
	case ast.TypeKind_Slice:
		return types.NewPointer(b.lowerType(node, t.Elem))
	case ast.TypeKind_Array:
		return types.NewArray(uint64(t.Size), b.lowerType(node, t.Elem))
	case ast.TypeKind_Enum:
		return types.I64
	case ast.TypeKind_Struct:
		if st, declared := b.structs[t.Name]; declared {
			return st
		}
		st := types.NewStruct()
		b.module.NewTypeDef(t.Name, st)
		b.structs[t.Name] = st
		b.structTypes[t.Name] = t
		fields := make([]types.Type, 0, len(t.Fields))
		for _, field := range t.Fields {
			fields = append(fields, b.lowerType(node, field.Type))
		}
		st.Fields = fields
		return st
	case ast.TypeKind_Function:
		params := make([]types.Type, 0, len(t.Params))
		for _, param := range t.Params {
			params = append(params, b.lowerType(node, param))
		}
		return types.NewFunc(b.lowerType(node, t.Return), params...)
	default:
		b.errorAt(node, "unknown struct type '%s'", t.Name)
		return types.I64
	}
}

// zeroValue returns the zero constant of a lowered type.
func zeroValue(t types.Type) constant.Constant {
	switch lowered := t.(type) {
	case *types.IntType:
		return constant.NewInt(lowered, 0)
	case *types.FloatType:
		return constant.NewFloat(lowered, 0)
	case *types.PointerType:
		return constant.NewNull(lowered)
	default:
		return constant.NewZeroInitializer(t)
	}
}

// --- scopes ---

func (b *Builder) pushScope() { b.scopes = append(b.scopes, map[string]*symbolValue{}) }
func (b *Builder) popScope()  { b.scopes = b.scopes[:len(b.scopes)-1] }

func (b *Builder) defineSymbol(name string, sym *symbolValue) {
	b.scopes[len(b.scopes)-1][name] = sym
}

func (b *Builder) lookupSymbol(name string) *symbolValue {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if sym, exists := b.scopes[i][name]; exists {
			return sym
		}
	}
	return nil
}

// --- string constants ---

// stringConstant lowers a literal to a private global null-terminated byte
// array and returns a pointer to its first byte.
func (b *Builder) stringConstant(text string) value.Value {
	name := fmt.Sprintf("str.%d", b.strCount)
	b.strCount++

	global := b.module.NewGlobalDef(name, constant.NewCharArrayFromString(text+"\x00"))
	global.Linkage = enum.LinkagePrivate
	global.Immutable = true

	zero := constant.NewInt(types.I32, 0)
	return constant.NewGetElementPtr(global.ContentType, global, zero, zero)
}

// --- verification ---

// verify checks structural invariants llir does not enforce on its own:
// every block of every defined function must end in a terminator.
func (b *Builder) verify() {
	for _, fn := range b.module.Funcs {
		for _, block := range fn.Blocks {
			if block.Term == nil {
				b.hadError = true
				fmt.Fprintf(b.errOut, "module verification failed: function '%s' has a block without terminator\n", fn.Name())
			}
		}
	}
}
