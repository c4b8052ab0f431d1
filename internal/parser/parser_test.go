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

package parser

import (
	"strings"
	"testing"

	"github.com/EngFlow/nullc/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, source string) (*ast.Program, string, bool) {
	t.Helper()
	var stderr strings.Builder
	program, ok := New([]byte(source), &stderr).Parse()
	require.NotNil(t, program)
	return program, stderr.String(), ok
}

func parseExpression(t *testing.T, source string) ast.Expr {
	t.Helper()
	program, stderr, ok := parseProgram(t, "let r = "+source)
	require.True(t, ok, "unexpected parse error: %s", stderr)
	require.Len(t, program.Decls, 1)
	decl, isVarDecl := program.Decls[0].(*ast.VarDecl)
	require.True(t, isVarDecl)
	require.NotNil(t, decl.Init)
	return decl.Init
}

func TestOperatorPrecedencePairs(t *testing.T) {
	// For every operator pair, `a low b high c` must parse as `a low (b high c)`.
	testCases := []struct {
		low, high string
	}{
		{"or", "and"},
		{"and", "=="},
		{"==", "<"},
		{"<", "|"},
		{"|", "^"},
		{"^", "&"},
		{"&", "<<"},
		{"<<", "+"},
		{"+", "*"},
		{"or", "+"},
		{"==", ">>"},
		{"!=", "%"},
	}

	for _, tc := range testCases {
		expr := parseExpression(t, "a "+tc.low+" b "+tc.high+" c")
		root, isBinary := expr.(*ast.Binary)
		require.True(t, isBinary, "%s/%s", tc.low, tc.high)
		assert.Equal(t, tc.low, root.Op.String(), "root operator for %s/%s", tc.low, tc.high)

		left, isIdent := root.Left.(*ast.Identifier)
		require.True(t, isIdent)
		assert.Equal(t, "a", left.Name)

		right, isBinary := root.Right.(*ast.Binary)
		require.True(t, isBinary, "right subtree for %s/%s", tc.low, tc.high)
		assert.Equal(t, tc.high, right.Op.String())
	}
}

func TestLeftAssociativity(t *testing.T) {
	expr := parseExpression(t, "a - b - c")
	root, isBinary := expr.(*ast.Binary)
	require.True(t, isBinary)
	assert.Equal(t, ast.BinaryOp_Sub, root.Op)

	left, isBinary := root.Left.(*ast.Binary)
	require.True(t, isBinary)
	assert.Equal(t, ast.BinaryOp_Sub, left.Op)
}

func TestUnaryBindsTighterThanBinary(t *testing.T) {
	expr := parseExpression(t, "-a + b")
	root, isBinary := expr.(*ast.Binary)
	require.True(t, isBinary)
	assert.Equal(t, ast.BinaryOp_Add, root.Op)
	_, isUnary := root.Left.(*ast.Unary)
	assert.True(t, isUnary)
}

func TestPipeOperatorDesugarsToCall(t *testing.T) {
	expr := parseExpression(t, "x |> f")
	call, isCall := expr.(*ast.Call)
	require.True(t, isCall)
	callee, isIdent := call.Callee.(*ast.Identifier)
	require.True(t, isIdent)
	assert.Equal(t, "f", callee.Name)
	require.Len(t, call.Args, 1)

	expr = parseExpression(t, "x |> f(y)")
	call, isCall = expr.(*ast.Call)
	require.True(t, isCall)
	require.Len(t, call.Args, 2)
	first, isIdent := call.Args[0].(*ast.Identifier)
	require.True(t, isIdent)
	assert.Equal(t, "x", first.Name)

	// Chained pipes apply left to right: (x |> f) |> g == g(f(x)).
	expr = parseExpression(t, "x |> f |> g")
	outer, isCall := expr.(*ast.Call)
	require.True(t, isCall)
	outerCallee, isIdent := outer.Callee.(*ast.Identifier)
	require.True(t, isIdent)
	assert.Equal(t, "g", outerCallee.Name)
	require.Len(t, outer.Args, 1)
	_, isCall = outer.Args[0].(*ast.Call)
	assert.True(t, isCall)
}

func TestStructInitOutOfOrderFields(t *testing.T) {
	expr := parseExpression(t, "Point { y = 10, x = 5 }")
	init, isInit := expr.(*ast.StructInit)
	require.True(t, isInit)
	assert.Equal(t, "Point", init.Name)
	require.Len(t, init.Fields, 2)
	assert.Equal(t, "y", init.Fields[0].Name)
	assert.Equal(t, "x", init.Fields[1].Name)
}

func TestEnumVariantAccess(t *testing.T) {
	expr := parseExpression(t, "Color::Red")
	variant, isVariant := expr.(*ast.EnumVariantExpr)
	require.True(t, isVariant)
	assert.Equal(t, "Color", variant.EnumName)
	assert.Equal(t, "Red", variant.VariantName)
}

func TestEscapeTranslationInStringLiterals(t *testing.T) {
	expr := parseExpression(t, `"a\nb\tc\\d\"e"`)
	literal, isString := expr.(*ast.StringLiteral)
	require.True(t, isString)
	assert.Equal(t, "a\nb\tc\\d\"e", literal.Value)
	assert.Len(t, literal.Value, 9)
}

func TestFunctionDeclaration(t *testing.T) {
	program, stderr, ok := parseProgram(t, `
fn add(a :: i64, b :: i64) -> i64 do
  ret a + b
end
`)
	require.True(t, ok, stderr)
	require.Len(t, program.Decls, 1)
	fn, isFn := program.Decls[0].(*ast.FnDecl)
	require.True(t, isFn)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, ast.TypeI64, fn.Params[0].DeclaredType)
	assert.Equal(t, ast.TypeI64, fn.ReturnType)
	require.NotNil(t, fn.Body)
	require.Len(t, fn.Body.Stmts, 1)
	_, isReturn := fn.Body.Stmts[0].(*ast.Return)
	assert.True(t, isReturn)
}

func TestExternBlock(t *testing.T) {
	program, stderr, ok := parseProgram(t, `
@extern "C" do
  fn puts(s :: ptr<u8>) -> i64
  fn getchar() -> i32
end
`)
	require.True(t, ok, stderr)
	require.Len(t, program.Decls, 1)
	extern, isExtern := program.Decls[0].(*ast.Extern)
	require.True(t, isExtern)
	assert.Equal(t, "C", extern.ABI)
	require.Len(t, extern.Decls, 2)
	assert.True(t, extern.Decls[0].Extern)
	assert.Nil(t, extern.Decls[0].Body)
	require.NotNil(t, extern.Decls[0].Params[0].DeclaredType)
	assert.Equal(t, ast.TypeKind_Ptr, extern.Decls[0].Params[0].DeclaredType.Kind)
}

func TestStructAndEnumDeclarations(t *testing.T) {
	program, stderr, ok := parseProgram(t, `
struct Point do
  x :: i64
  y :: i64
end

enum Color do
  Red
  Green = 5
  Blue
end
`)
	require.True(t, ok, stderr)
	require.Len(t, program.Decls, 2)

	structDecl, isStruct := program.Decls[0].(*ast.StructDecl)
	require.True(t, isStruct)
	require.Len(t, structDecl.Fields, 2)
	assert.Equal(t, "x", structDecl.Fields[0].Name)

	enumDecl, isEnum := program.Decls[1].(*ast.EnumDecl)
	require.True(t, isEnum)
	require.Len(t, enumDecl.Variants, 3)
	assert.False(t, enumDecl.Variants[0].HasValue)
	assert.True(t, enumDecl.Variants[1].HasValue)
	assert.Equal(t, int64(5), enumDecl.Variants[1].Value)
}

func TestIfElifElseChain(t *testing.T) {
	program, stderr, ok := parseProgram(t, `
fn classify(n :: i64) -> i64 do
  if n < 0 do
    ret -1
  elif n == 0 do
    ret 0
  else
    ret 1
  end
end
`)
	require.True(t, ok, stderr)
	fn := program.Decls[0].(*ast.FnDecl)
	ifStmt, isIf := fn.Body.Stmts[0].(*ast.If)
	require.True(t, isIf)
	elif, isIf := ifStmt.Else.(*ast.If)
	require.True(t, isIf, "elif chains unroll into nested if nodes")
	_, isBlock := elif.Else.(*ast.Block)
	assert.True(t, isBlock)
}

func TestForRange(t *testing.T) {
	program, stderr, ok := parseProgram(t, `
fn main() -> i32 do
  mut s :: i64 = 0
  for i in 0..5 do
    s = s + i
  end
  ret s as i32
end
`)
	require.True(t, ok, stderr)
	fn := program.Decls[0].(*ast.FnDecl)
	forStmt, isFor := fn.Body.Stmts[1].(*ast.For)
	require.True(t, isFor)
	assert.Equal(t, "i", forStmt.Var)
	_, isAssign := forStmt.Body.Stmts[0].(*ast.Assign)
	assert.True(t, isAssign)
}

func TestArrayTypeBounds(t *testing.T) {
	_, _, ok := parseProgram(t, "let a :: [i64; 0] = [ ]")
	assert.True(t, ok, "zero-size arrays are accepted")

	_, stderr, ok := parseProgram(t, "let a :: [i64; 2147483647] = [ ]")
	assert.False(t, ok, "INT32_MAX-sized arrays are rejected at parse time")
	assert.Contains(t, stderr, "array size out of range")

	_, _, ok = parseProgram(t, "let a :: [i64; 3] = [1, 2, 3]")
	assert.True(t, ok)
}

func TestAssignmentTargets(t *testing.T) {
	_, _, ok := parseProgram(t, "x = 1")
	assert.True(t, ok)

	_, _, ok = parseProgram(t, "p.x = 1")
	assert.True(t, ok)

	_, _, ok = parseProgram(t, "a[0] = 1")
	assert.True(t, ok)

	_, stderr, ok := parseProgram(t, "f() = 1")
	assert.False(t, ok)
	assert.Contains(t, stderr, "invalid assignment target")
}

func TestDiagnosticFormat(t *testing.T) {
	_, stderr, ok := parseProgram(t, "fn broken() -> i64 do\n  ret 1\n")
	require.False(t, ok)
	assert.Contains(t, stderr, "Error at line")
	assert.Contains(t, stderr, "|")
	assert.Contains(t, stderr, "^")
	assert.Contains(t, stderr, "expected 'end'")
	assert.Contains(t, stderr, "Hint: every 'do' block must be closed")
}

func TestPanicModeSuppressesCascades(t *testing.T) {
	_, stderr, ok := parseProgram(t, "fn broken( do end\n\nfn fine() -> i64 do\n  ret 1\nend\n")
	require.False(t, ok)
	// Exactly one full diagnostic for the broken declaration.
	assert.Equal(t, 1, strings.Count(stderr, "Error at line"))
}

func TestRecoveryAtDeclarationBoundary(t *testing.T) {
	program, _, ok := parseProgram(t, "fn broken( do end\n\nfn fine() -> i64 do\n  ret 1\nend\n")
	require.False(t, ok)
	// The parser keeps going and still produces the later declaration.
	var names []string
	for _, decl := range program.Decls {
		if fn, isFn := decl.(*ast.FnDecl); isFn {
			names = append(names, fn.Name)
		}
	}
	assert.Contains(t, names, "fine")
}

func TestDeeplyNestedParentheses(t *testing.T) {
	const depth = 1200
	source := "let x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth)
	_, stderr, ok := parseProgram(t, source)
	assert.True(t, ok, stderr)
}

func TestUseAndIgnoredDirectives(t *testing.T) {
	program, stderr, ok := parseProgram(t, "@use \"std/io.null\"\n@alloc arena\nlet x = 1\n")
	require.True(t, ok, stderr)
	require.Len(t, program.Decls, 2)
	use, isUse := program.Decls[0].(*ast.Use)
	require.True(t, isUse)
	assert.Equal(t, "std/io.null", use.Path)
}

func TestSingleLineProgram(t *testing.T) {
	// Statements may sit back to back on one line; newlines are terminators
	// the parser may skip where it chooses.
	program, stderr, ok := parseProgram(t,
		`@extern "C" do fn puts(s :: ptr<u8>) -> i64 end  fn main() -> i32 do puts("Hello, world!")  ret 0 end`)
	require.True(t, ok, stderr)
	require.Len(t, program.Decls, 2)
	fn, isFn := program.Decls[1].(*ast.FnDecl)
	require.True(t, isFn)
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Body.Stmts, 2)
}

func TestCastExpression(t *testing.T) {
	expr := parseExpression(t, "x as i32 + 1")
	root, isBinary := expr.(*ast.Binary)
	require.True(t, isBinary, "'as' binds tighter than '+'")
	cast, isCast := root.Left.(*ast.Cast)
	require.True(t, isCast)
	assert.Equal(t, ast.TypeI32, cast.Target)
}
