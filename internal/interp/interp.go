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

// Package interp is a tree-walking evaluator over the typed AST, used for
// fast iteration and as a differential oracle for the IR back end.
//
// Control flow unwinds through three flags (hasReturn, hasBreak,
// hasContinue) checked at every statement-list boundary. Short-circuit
// evaluation of `and`/`or` is mandatory and mirrors the compiled code.
// Runtime errors are printed to stderr; the evaluator unwinds and Run
// reports failure.
package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/EngFlow/nullc/internal/ast"
)

// MaxCallDepth bounds recursion so a runaway program fails with a diagnostic
// instead of exhausting the Go stack.
const MaxCallDepth = 4096

type Interp struct {
	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader

	functions map[string]*ast.FnDecl
	structs   map[string]*ast.Type
	enums     map[string]*ast.Type

	global *environment
	env    *environment

	hasReturn   bool
	hasBreak    bool
	hasContinue bool
	returnValue Value

	exited    bool
	exitCode  int
	hadError  bool
	loopDepth int
	callDepth int
}

// binding is a named slot holding a value; mutability is enforced at the
// evaluator level as well as by the analyzer.
type binding struct {
	value   Value
	mutable bool
}

type environment struct {
	parent   *environment
	bindings map[string]*binding
}

func newEnvironment(parent *environment) *environment {
	return &environment{parent: parent, bindings: map[string]*binding{}}
}

func (e *environment) lookup(name string) *binding {
	for env := e; env != nil; env = env.parent {
		if b, exists := env.bindings[name]; exists {
			return b
		}
	}
	return nil
}

func (e *environment) define(name string, value Value, mutable bool) {
	e.bindings[name] = &binding{value: value.Clone(), mutable: mutable}
}

func New() *Interp {
	return NewWithIO(os.Stdout, os.Stderr, os.Stdin)
}

func NewWithIO(stdout, stderr io.Writer, stdin io.Reader) *Interp {
	return &Interp{
		stdout:    stdout,
		stderr:    stderr,
		stdin:     bufio.NewReader(stdin),
		functions: map[string]*ast.FnDecl{},
		structs:   map[string]*ast.Type{},
		enums:     map[string]*ast.Type{},
	}
}

// Run registers every declaration, resolves the entry point (main, falling
// back to __repl_main__) and executes it. The returned exit code is the
// integer result of the entry function, 0 when it returns a non-integer.
// ok is false on any runtime error or when no entry point exists.
func (in *Interp) Run(program *ast.Program) (exitCode int, ok bool) {
	in.global = newEnvironment(nil)
	in.env = in.global

	for _, decl := range program.Decls {
		in.registerDecl(decl)
	}
	// Top-level statements run before the entry point (REPL fragments).
topLevel:
	for _, decl := range program.Decls {
		switch decl.(type) {
		case *ast.FnDecl, *ast.StructDecl, *ast.EnumDecl, *ast.Extern, *ast.Use:
		default:
			in.execStmt(decl)
			if in.stopped() {
				break topLevel
			}
		}
	}
	if in.hadError {
		return 1, false
	}
	if in.exited {
		return in.exitCode, true
	}

	entry := in.functions["main"]
	if entry == nil {
		entry = in.functions["__repl_main__"]
	}
	if entry == nil {
		fmt.Fprintln(in.stderr, "Runtime error: no entry point: expected 'main'")
		return 1, false
	}

	result := in.callFunction(entry, nil, entry.Name)
	if in.hadError {
		return 1, false
	}
	if in.exited {
		return in.exitCode, true
	}
	if result.Kind == ValueKind_Int {
		return int(result.Int), true
	}
	return 0, true
}

func (in *Interp) registerDecl(decl ast.Node) {
	switch d := decl.(type) {
	case *ast.FnDecl:
		in.functions[d.Name] = d
	case *ast.Extern:
		for _, fn := range d.Decls {
			in.functions[fn.Name] = fn
		}
	case *ast.StructDecl:
		if t := d.ResolvedType(); t != nil {
			in.structs[d.Name] = t
		}
	case *ast.EnumDecl:
		if t := d.ResolvedType(); t != nil {
			in.enums[d.Name] = t
		}
	}
}

// stopped reports whether statement execution must unwind right now.
func (in *Interp) stopped() bool {
	return in.hasReturn || in.hasBreak || in.hasContinue || in.hadError || in.exited
}

func (in *Interp) runtimeError(node ast.Node, format string, args ...any) Value {
	if in.hadError {
		return Void
	}
	in.hadError = true
	pos := node.Pos()
	fmt.Fprintf(in.stderr, "Runtime error at line %d, column %d: %s\n", pos.Line, pos.Column, fmt.Sprintf(format, args...))
	return Void
}

// --- statements ---

func (in *Interp) execBlock(block *ast.Block) {
	previous := in.env
	in.env = newEnvironment(previous)
	defer func() { in.env = previous }()

	for _, stmt := range block.Stmts {
		in.execStmt(stmt)
		if in.stopped() {
			return
		}
	}
}

func (in *Interp) execStmt(node ast.Node) {
	switch stmt := node.(type) {
	case *ast.VarDecl:
		var value Value
		if stmt.Init != nil {
			value = in.evalExpr(stmt.Init)
			if in.stopped() {
				return
			}
		} else {
			value = in.zeroValue(stmt.ResolvedType())
		}
		in.env.define(stmt.Name, value, stmt.Mutable)

	case *ast.Assign:
		in.evalAssign(stmt)

	case *ast.ExprStmt:
		in.evalExpr(stmt.X)

	case *ast.Return:
		if stmt.Value != nil {
			in.returnValue = in.evalExpr(stmt.Value)
			if in.stopped() {
				return
			}
		} else {
			in.returnValue = Void
		}
		in.hasReturn = true

	case *ast.Break:
		if in.loopDepth == 0 {
			in.runtimeError(stmt, "'break' outside of a loop")
			return
		}
		in.hasBreak = true

	case *ast.Continue:
		if in.loopDepth == 0 {
			in.runtimeError(stmt, "'continue' outside of a loop")
			return
		}
		in.hasContinue = true

	case *ast.If:
		in.execIf(stmt)

	case *ast.While:
		in.execWhile(stmt)

	case *ast.For:
		in.execFor(stmt)

	case *ast.Block:
		in.execBlock(stmt)

	case nil:
	default:
		// Declarations nested in statement position carry no runtime effect.
	}
}

func (in *Interp) execIf(stmt *ast.If) {
	cond := in.evalExpr(stmt.Cond)
	if in.stopped() {
		return
	}
	if cond.Kind != ValueKind_Bool {
		in.runtimeError(stmt.Cond, "condition did not evaluate to a boolean")
		return
	}
	if cond.Bool {
		in.execBlock(stmt.Then)
		return
	}
	switch elseNode := stmt.Else.(type) {
	case *ast.If:
		in.execIf(elseNode)
	case *ast.Block:
		in.execBlock(elseNode)
	}
}

func (in *Interp) execWhile(stmt *ast.While) {
	in.loopDepth++
	defer func() { in.loopDepth-- }()

	for {
		cond := in.evalExpr(stmt.Cond)
		if in.stopped() || cond.Kind != ValueKind_Bool || !cond.Bool {
			return
		}
		in.execBlock(stmt.Body)
		if in.hasBreak {
			in.hasBreak = false
			return
		}
		in.hasContinue = false
		if in.hasReturn || in.hadError || in.exited {
			return
		}
	}
}

// execFor iterates the half-open range [start, end).
func (in *Interp) execFor(stmt *ast.For) {
	start := in.evalExpr(stmt.Start)
	if in.stopped() {
		return
	}
	end := in.evalExpr(stmt.End)
	if in.stopped() {
		return
	}
	if start.Kind != ValueKind_Int || end.Kind != ValueKind_Int {
		in.runtimeError(stmt, "range bounds did not evaluate to integers")
		return
	}

	in.loopDepth++
	defer func() { in.loopDepth-- }()

	previous := in.env
	in.env = newEnvironment(previous)
	defer func() { in.env = previous }()
	in.env.define(stmt.Var, IntValue(start.Int), true)
	iterator := in.env.lookup(stmt.Var)

	for i := start.Int; i < end.Int; i++ {
		iterator.value = IntValue(i)
		in.execBlock(stmt.Body)
		if in.hasBreak {
			in.hasBreak = false
			return
		}
		in.hasContinue = false
		if in.hasReturn || in.hadError || in.exited {
			return
		}
		// The body may have assigned the iterator; the loop continues from
		// that value, as the compiled code does with its shared iterator slot.
		i = iterator.value.Int
	}
}

// callFunction executes a user function in a fresh environment rooted at the
// global scope.
func (in *Interp) callFunction(fn *ast.FnDecl, args []Value, name string) Value {
	if fn.Body == nil {
		return in.runtimeError(fn, "extern function '%s' is not available in the interpreter", name)
	}
	if len(args) != len(fn.Params) {
		return in.runtimeError(fn, "function '%s' expects %d arguments, got %d", name, len(fn.Params), len(args))
	}
	if in.callDepth >= MaxCallDepth {
		return in.runtimeError(fn, "call depth limit exceeded in '%s'", name)
	}

	previousEnv := in.env
	in.env = newEnvironment(in.global)
	in.callDepth++
	defer func() {
		in.env = previousEnv
		in.callDepth--
	}()

	for i, param := range fn.Params {
		in.env.define(param.Name, args[i], true)
	}

	for _, stmt := range fn.Body.Stmts {
		in.execStmt(stmt)
		if in.stopped() {
			break
		}
	}

	if in.hasReturn {
		in.hasReturn = false
		result := in.returnValue
		in.returnValue = Void
		return result
	}
	return Void
}

// zeroValue builds the default value of a type for uninitialized bindings.
func (in *Interp) zeroValue(t *ast.Type) Value {
	if t == nil {
		return Void
	}
	switch t.Kind {
	case ast.TypeKind_Bool:
		return BoolValue(false)
	case ast.TypeKind_F32, ast.TypeKind_F64:
		return FloatValue(0)
	case ast.TypeKind_Slice:
		if t.Elem != nil && t.Elem.Kind == ast.TypeKind_U8 {
			return StringValue("")
		}
		return ArrayValue(nil)
	case ast.TypeKind_Array:
		elems := make([]Value, t.Size)
		for i := range elems {
			elems[i] = in.zeroValue(t.Elem)
		}
		return ArrayValue(elems)
	case ast.TypeKind_Struct:
		fields := make([]FieldValue, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, FieldValue{Name: f.Name, Value: in.zeroValue(f.Type)})
		}
		return Value{Kind: ValueKind_Struct, StructName: t.Name, Fields: fields}
	case ast.TypeKind_Void:
		return Void
	default:
		return IntValue(0)
	}
}
