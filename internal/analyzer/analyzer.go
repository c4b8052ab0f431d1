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

// Package analyzer performs two-pass name and type resolution over the AST.
//
// Pass 1 registers every top-level declaration (functions — including those
// inside @extern blocks — structs and enums) in the global scope. Pass 2
// walks function bodies, collecting declarations into nested scopes,
// enforcing mutability and checking operator compatibility. Nodes are
// decorated in place with their resolved Type; the back ends consume those
// types unchanged.
//
// Analysis is best effort: one error marks the run as failed but the walk
// continues, using the unknown type sentinel to suppress cascaded
// diagnostics on subtrees that already failed.
package analyzer

import (
	"fmt"
	"io"

	"github.com/EngFlow/nullc/internal/ast"
	"github.com/EngFlow/nullc/internal/collections"
)

type Analyzer struct {
	global  *Scope
	current *Scope
	// Every scope created during this run. Scopes are popped during analysis
	// but only released together when the analyzer is torn down.
	scopes []*Scope

	errOut        io.Writer
	hadError      bool
	currentReturn *ast.Type
}

func New(errOut io.Writer) *Analyzer {
	return &Analyzer{errOut: errOut}
}

// Analyze resolves the whole program. It returns true when no error was
// reported; on false the AST is still decorated best effort, but the driver
// must not hand it to codegen or the evaluator.
func (a *Analyzer) Analyze(program *ast.Program) bool {
	a.hadError = false
	a.scopes = nil
	a.global = a.pushScope()

	a.declareBuiltins()
	a.declareGlobals(program)
	a.analyzeBodies(program)

	a.current = nil
	return !a.hadError
}

// Teardown releases every scope created by the last run. Symbols must not be
// used past this point.
func (a *Analyzer) Teardown() {
	a.scopes = nil
	a.global = nil
	a.current = nil
}

func (a *Analyzer) pushScope() *Scope {
	scope := newScope(a.current)
	a.scopes = append(a.scopes, scope)
	a.current = scope
	return scope
}

// popScope moves the current pointer to the parent; the scope itself stays
// alive until Teardown.
func (a *Analyzer) popScope() {
	a.current = a.current.parent
}

func (a *Analyzer) errorAt(node ast.Node, format string, args ...any) {
	a.hadError = true
	pos := node.Pos()
	fmt.Fprintf(a.errOut, "Error at line %d, column %d: %s\n", pos.Line, pos.Column, fmt.Sprintf(format, args...))
}

// Host runtime bindings the evaluator and the C runtime both provide. They
// resolve like extern functions. Call arguments are analyzed but not checked
// against any signature, so variadic printf needs no special case here.
var builtinSignatures = map[string]*ast.Type{
	"puts":      ast.FunctionOf(ast.TypeI64, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"print":     ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"io_print":  ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"printf":    ast.FunctionOf(ast.TypeI64, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"print_raw": ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"print_int": ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.TypeI64}),
	"println":   ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.PtrTo(ast.TypeU8)}),
	"putchar":   ast.FunctionOf(ast.TypeI32, []*ast.Type{ast.TypeI32}),
	"getchar":   ast.FunctionOf(ast.TypeI32, nil),
	"exit":      ast.FunctionOf(ast.TypeVoid, []*ast.Type{ast.TypeI32}),
}

func (a *Analyzer) declareBuiltins() {
	for name, signature := range builtinSignatures {
		a.global.Define(&Symbol{Name: name, Kind: SymbolKind_Function, Type: signature, Extern: true})
	}
}

// --- pass 1: global declarations ---

func (a *Analyzer) declareGlobals(program *ast.Program) {
	// Struct and enum shells first, so function signatures and field types
	// can reference them regardless of declaration order.
	for _, decl := range program.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			shell := ast.StructOf(d.Name, nil)
			d.SetResolvedType(shell)
			a.define(d, &Symbol{Name: d.Name, Kind: SymbolKind_Struct, Type: shell, Decl: d})
		case *ast.EnumDecl:
			a.declareEnum(d)
		}
	}

	for _, decl := range program.Decls {
		if d, isStruct := decl.(*ast.StructDecl); isStruct {
			a.fillStructFields(d)
		}
	}

	for _, decl := range program.Decls {
		switch d := decl.(type) {
		case *ast.FnDecl:
			a.declareFunction(d)
		case *ast.Extern:
			for _, fn := range d.Decls {
				a.declareFunction(fn)
			}
		}
	}
}

func (a *Analyzer) define(node ast.Node, sym *Symbol) {
	if existing := a.current.LookupLocal(sym.Name); existing != nil {
		// An @extern block may give a host builtin an explicit signature;
		// the declared one wins.
		if existing.Kind == SymbolKind_Function && existing.Decl == nil && sym.Kind == SymbolKind_Function {
			a.current.symbols[sym.Name] = sym
			return
		}
		a.errorAt(node, "duplicate declaration of '%s'", sym.Name)
		return
	}
	a.current.Define(sym)
}

func (a *Analyzer) declareEnum(d *ast.EnumDecl) {
	names := collections.MapSlice(d.Variants, func(v *ast.VariantDecl) string { return v.Name })
	for _, dup := range collections.FindDuplicates(names) {
		a.errorAt(d, "duplicate variant '%s' in enum '%s'", dup, d.Name)
	}

	variants := make([]ast.EnumVariant, 0, len(d.Variants))
	next := int64(0)
	for _, v := range d.Variants {
		if v.HasValue {
			next = v.Value
		}
		v.Value = next
		variants = append(variants, ast.EnumVariant{Name: v.Name, Value: next})
		next++
	}

	enumType := ast.EnumOf(d.Name, variants)
	d.SetResolvedType(enumType)
	a.define(d, &Symbol{Name: d.Name, Kind: SymbolKind_Enum, Type: enumType, Decl: d})
}

func (a *Analyzer) fillStructFields(d *ast.StructDecl) {
	names := collections.MapSlice(d.Fields, func(f *ast.FieldDecl) string { return f.Name })
	for _, dup := range collections.FindDuplicates(names) {
		a.errorAt(d, "duplicate field '%s' in struct '%s'", dup, d.Name)
	}

	structType := d.ResolvedType()
	for _, field := range d.Fields {
		fieldType := a.resolveType(field, field.DeclaredType)
		field.SetResolvedType(fieldType)
		structType.Fields = append(structType.Fields, ast.StructField{Name: field.Name, Type: fieldType})
	}
}

func (a *Analyzer) declareFunction(d *ast.FnDecl) {
	names := collections.MapSlice(d.Params, func(p *ast.Param) string { return p.Name })
	for _, dup := range collections.FindDuplicates(names) {
		a.errorAt(d, "duplicate parameter '%s' in function '%s'", dup, d.Name)
	}

	params := make([]*ast.Type, 0, len(d.Params))
	for _, param := range d.Params {
		paramType := a.resolveType(param, param.DeclaredType)
		param.SetResolvedType(paramType)
		params = append(params, paramType)
	}
	d.ReturnType = a.resolveType(d, d.ReturnType)

	fnType := ast.FunctionOf(d.ReturnType, params)
	d.SetResolvedType(fnType)
	a.define(d, &Symbol{Name: d.Name, Kind: SymbolKind_Function, Type: fnType, Extern: d.Extern, Decl: d})
}

// resolveType replaces nominal references in a parsed type with the declared
// struct or enum type. Unknown names are reported once and yield the unknown
// sentinel.
func (a *Analyzer) resolveType(node ast.Node, t *ast.Type) *ast.Type {
	if t == nil {
		return ast.TypeUnknown
	}
	switch t.Kind {
	case ast.TypeKind_Named:
		sym := a.global.Lookup(t.Name)
		if sym == nil || (sym.Kind != SymbolKind_Struct && sym.Kind != SymbolKind_Enum) {
			a.errorAt(node, "unknown type '%s'", t.Name)
			return ast.TypeUnknown
		}
		return sym.Type
	case ast.TypeKind_Ptr:
		return ast.PtrTo(a.resolveType(node, t.Inner))
	case ast.TypeKind_Array:
		return ast.ArrayOf(a.resolveType(node, t.Elem), t.Size)
	case ast.TypeKind_Slice:
		return ast.SliceOf(a.resolveType(node, t.Elem))
	case ast.TypeKind_Function:
		params := collections.MapSlice(t.Params, func(p *ast.Type) *ast.Type { return a.resolveType(node, p) })
		return ast.FunctionOf(a.resolveType(node, t.Return), params)
	default:
		return t
	}
}

// --- pass 2: function bodies ---

func (a *Analyzer) analyzeBodies(program *ast.Program) {
	for _, decl := range program.Decls {
		switch d := decl.(type) {
		case *ast.FnDecl:
			a.analyzeFunctionBody(d)
		case *ast.StructDecl, *ast.EnumDecl, *ast.Extern, *ast.Use:
		default:
			// Top-level statements (REPL fragments, scripts).
			a.analyzeStmt(decl)
		}
	}
}

func (a *Analyzer) analyzeFunctionBody(d *ast.FnDecl) {
	if d.Body == nil {
		return
	}
	previousReturn := a.currentReturn
	a.currentReturn = d.ReturnType
	defer func() { a.currentReturn = previousReturn }()

	a.pushScope()
	defer a.popScope()
	for _, param := range d.Params {
		a.define(param, &Symbol{
			Name:    param.Name,
			Kind:    SymbolKind_Param,
			Type:    param.ResolvedType(),
			Mutable: true,
			Decl:    param,
		})
	}
	a.analyzeBlockInCurrentScope(d.Body)
}

func (a *Analyzer) analyzeBlock(block *ast.Block) {
	a.pushScope()
	defer a.popScope()
	a.analyzeBlockInCurrentScope(block)
}

func (a *Analyzer) analyzeBlockInCurrentScope(block *ast.Block) {
	for _, stmt := range block.Stmts {
		a.analyzeStmt(stmt)
	}
}

func (a *Analyzer) analyzeStmt(node ast.Node) {
	switch stmt := node.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(stmt)
	case *ast.Assign:
		a.analyzeAssign(stmt)
	case *ast.ExprStmt:
		stmt.SetResolvedType(a.analyzeExpr(stmt.X))
	case *ast.Return:
		a.analyzeReturn(stmt)
	case *ast.Break, *ast.Continue:
	case *ast.If:
		a.analyzeIf(stmt)
	case *ast.While:
		a.requireBool(stmt.Cond, a.analyzeExpr(stmt.Cond))
		a.analyzeBlock(stmt.Body)
	case *ast.For:
		a.analyzeFor(stmt)
	case *ast.Block:
		a.analyzeBlock(stmt)
	case nil:
	default:
		// Malformed subtree from panic-mode recovery.
	}
}

func (a *Analyzer) analyzeVarDecl(d *ast.VarDecl) {
	if a.current.LookupLocal(d.Name) != nil {
		a.errorAt(d, "duplicate declaration of '%s'", d.Name)
	}

	var initType *ast.Type
	if d.Init != nil {
		initType = a.analyzeExpr(d.Init)
	}

	varType := ast.TypeUnknown
	switch {
	case d.DeclaredType != nil:
		varType = a.resolveType(d, d.DeclaredType)
		if d.Init != nil {
			a.requireCompatible(d, varType, initType, "initializer")
		}
	case d.Init == nil:
		a.errorAt(d, "cannot infer type of '%s'", d.Name)
	case !initType.IsUnknown():
		varType = initType
	default:
		// The initializer already failed to analyze; stay quiet and install
		// the unknown sentinel so later uses do not cascade.
	}

	d.SetResolvedType(varType)
	a.current.Define(&Symbol{
		Name:    d.Name,
		Kind:    SymbolKind_Var,
		Type:    varType,
		Mutable: d.Mutable,
		Decl:    d,
	})
}

func (a *Analyzer) analyzeAssign(assign *ast.Assign) {
	targetType := a.analyzeExpr(assign.Target)
	valueType := a.analyzeExpr(assign.Value)

	// A plain identifier target must be a mutable binding; member and index
	// writes require the base identifier to be mutable.
	if name, baseIsIdentifier := assignmentBase(assign.Target); baseIsIdentifier {
		if sym := a.current.Lookup(name); sym != nil && !sym.Mutable && sym.Kind == SymbolKind_Var {
			a.errorAt(assign, "cannot assign to immutable variable '%s'", name)
		}
	}

	a.requireCompatible(assign, targetType, valueType, "assignment")
	assign.SetResolvedType(targetType)
}

// assignmentBase walks member/index chains down to the base identifier.
func assignmentBase(target ast.Expr) (string, bool) {
	for {
		switch t := target.(type) {
		case *ast.Identifier:
			return t.Name, true
		case *ast.Member:
			target = t.Object
		case *ast.Index:
			target = t.Object
		default:
			return "", false
		}
	}
}

func (a *Analyzer) analyzeReturn(stmt *ast.Return) {
	if stmt.Value == nil {
		stmt.SetResolvedType(ast.TypeVoid)
		return
	}
	valueType := a.analyzeExpr(stmt.Value)
	stmt.SetResolvedType(valueType)
	if a.currentReturn != nil {
		a.requireCompatible(stmt, a.currentReturn, valueType, "return value")
	}
}

func (a *Analyzer) analyzeIf(stmt *ast.If) {
	a.requireBool(stmt.Cond, a.analyzeExpr(stmt.Cond))
	a.analyzeBlock(stmt.Then)
	switch elseNode := stmt.Else.(type) {
	case *ast.If:
		a.analyzeIf(elseNode)
	case *ast.Block:
		a.analyzeBlock(elseNode)
	}
}

func (a *Analyzer) analyzeFor(stmt *ast.For) {
	startType := a.analyzeExpr(stmt.Start)
	endType := a.analyzeExpr(stmt.End)
	if startType != nil && !startType.IsUnknown() && !startType.IsInteger() {
		a.errorAt(stmt, "range bounds must be integers")
	}
	if endType != nil && !endType.IsUnknown() && !endType.IsInteger() {
		a.errorAt(stmt, "range bounds must be integers")
	}

	// The iterator's type is inferred from the start expression, i64 by default.
	iterType := ast.TypeI64
	if startType != nil && startType.IsInteger() {
		iterType = startType
	}

	a.pushScope()
	defer a.popScope()
	a.current.Define(&Symbol{
		Name:    stmt.Var,
		Kind:    SymbolKind_Var,
		Type:    iterType,
		Mutable: true,
		Decl:    stmt,
	})
	stmt.SetResolvedType(iterType)
	a.analyzeBlockInCurrentScope(stmt.Body)
}

// requireCompatible reports a type incompatibility unless both sides are
// known and either equal or both numeric (numeric mismatches are coerced by
// the back ends). Unknown types suppress the check.
func (a *Analyzer) requireCompatible(node ast.Node, expected, actual *ast.Type, what string) {
	if expected == nil || actual == nil || expected.IsUnknown() || actual.IsUnknown() {
		return
	}
	if expected.Equal(actual) || (expected.IsNumeric() && actual.IsNumeric()) {
		return
	}
	// An empty array literal has no element type of its own; it takes the
	// declared one.
	if expected.Kind == ast.TypeKind_Array && actual.Kind == ast.TypeKind_Array &&
		actual.Size == 0 && actual.Elem.IsUnknown() {
		return
	}
	a.errorAt(node, "type mismatch in %s: expected %s, found %s", what, expected, actual)
}

func (a *Analyzer) requireBool(node ast.Node, t *ast.Type) {
	if t == nil || t.IsUnknown() || t.Kind == ast.TypeKind_Bool {
		return
	}
	a.errorAt(node, "condition must be a boolean, found %s", t)
}
