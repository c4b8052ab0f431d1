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
	"strings"
	"testing"

	"github.com/EngFlow/nullc/internal/analyzer"
	"github.com/EngFlow/nullc/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lower runs the front end and the IR builder, returning the printed module.
func lower(t *testing.T, source string) (string, string, bool) {
	t.Helper()
	var stderr strings.Builder
	program, parsed := parser.New([]byte(source), &stderr).Parse()
	require.True(t, parsed, "parse failed: %s", stderr.String())
	require.True(t, analyzer.New(&stderr).Analyze(program), "analysis failed: %s", stderr.String())

	module, ok := New("test", &stderr).Build(program)
	return module.String(), stderr.String(), ok
}

func TestHelloWorldModule(t *testing.T) {
	irText, stderr, ok := lower(t, `
@extern "C" do
  fn puts(s :: ptr<u8>) -> i64
end

fn main() -> i32 do
  puts("Hello, world!")
  ret 0
end
`)
	require.True(t, ok, stderr)

	assert.Contains(t, irText, "declare i64 @puts(i8*")
	assert.Contains(t, irText, "define i32 @main()")
	assert.Contains(t, irText, "Hello, world!")
	assert.Contains(t, irText, "call i64 @puts")
	assert.Contains(t, irText, "ret i32")
	// String constants are private null-terminated globals.
	assert.Contains(t, irText, "private")
	assert.Contains(t, irText, `\00`)
}

func TestShortCircuitUsesControlFlowAndPhi(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn check(a :: bool, b :: bool) -> bool do
  ret a and b
end

fn either(a :: bool, b :: bool) -> bool do
  ret a or b
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "phi i1")
	assert.Contains(t, irText, "br i1")
	// A single bitwise and/or of the two parameters would skip the branch.
	assert.GreaterOrEqual(t, strings.Count(irText, "phi i1"), 2)
}

func TestStructFieldsStoreAtDeclaredIndex(t *testing.T) {
	irText, stderr, ok := lower(t, `
struct Point do
  x :: i64
  y :: i64
end

fn main() -> i32 do
  let p = Point { y = 10, x = 5 }
  ret (p.x - 5 + p.y - 10) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "%Point = type { i64, i64 }")
	// Initializer order must not matter: y (index 1) is stored where the
	// declaration puts it.
	assert.Contains(t, irText, "getelementptr %Point")

	yStore := strings.Index(irText, "i32 0, i32 1")
	xStore := strings.Index(irText, "i32 0, i32 0")
	require.Positive(t, yStore)
	require.Positive(t, xStore)
	assert.Less(t, yStore, xStore, "the y field (declared index 1) is stored first, at its declared index")
}

func TestForLoopShape(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn main() -> i32 do
  mut s :: i64 = 0
  for i in 0..5 do
    s = s + i
  end
  ret s as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "icmp slt i64")
	assert.Contains(t, irText, "add i64")
	assert.Contains(t, irText, "store i64")
	// The explicit `as i32` cast truncates the i64 accumulator.
	assert.Contains(t, irText, "trunc i64")
}

func TestWhileLoopShape(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn main() -> i32 do
  mut n :: i64 = 0
  while n < 10 do
    n = n + 1
  end
  ret n as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "icmp slt i64")
	assert.Contains(t, irText, "br i1")
}

func TestImplicitReturns(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn nothing() -> void do
end

fn fallthrough() -> i64 do
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "ret void")
	assert.Contains(t, irText, "ret i64 0")
}

func TestParametersArePointerBacked(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn add(a :: i64, b :: i64) -> i64 do
  ret a + b
end
`)
	require.True(t, ok, stderr)
	// Each parameter is spilled to a slot and loaded at every use.
	assert.GreaterOrEqual(t, strings.Count(irText, "alloca i64"), 2)
	assert.GreaterOrEqual(t, strings.Count(irText, "load i64"), 2)
}

func TestModuleQualifiedCallUsesMangledName(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn Math_abs(x :: i64) -> i64 do
  if x < 0 do
    ret -x
  end
  ret x
end

fn main() -> i32 do
  ret (Math.abs(-4) - 4) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "call i64 @Math_abs")
}

func TestRuntimeBindingsAreLazilyDeclared(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn main() -> i32 do
  print_int(42)
  ret 0
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "declare void @print_int(i64")
	assert.Contains(t, irText, "call void @print_int")
}

func TestFloatArithmetic(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn area(r :: f64) -> f64 do
  ret r * r * 3.14159
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "fmul double")
	assert.Contains(t, irText, "ret double")
}

func TestMixedIntFloatPromotes(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn scale(n :: i64) -> f64 do
  ret n * 1.5
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "sitofp i64")
	assert.Contains(t, irText, "fmul double")
}

func TestEnumVariantsLowerToConstants(t *testing.T) {
	irText, stderr, ok := lower(t, `
enum Color do
  Red
  Green = 5
end

fn main() -> i32 do
  ret Color::Green as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "i64 5", "the variant lowers to its declared constant")
}

func TestArrayIndexing(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn main() -> i32 do
  mut xs = [1, 2, 3]
  xs[1] = 20
  ret xs[1] as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "alloca [3 x i64]")
	assert.Contains(t, irText, "getelementptr [3 x i64]")
}

func TestUnknownIdentifierFlagsError(t *testing.T) {
	var stderr strings.Builder
	program, parsed := parser.New([]byte(`
fn main() -> i32 do
  nope()
  ret 0
end
`), &stderr).Parse()
	require.True(t, parsed)
	// Skip the analyzer on purpose: codegen must flag the error on its own.
	_, ok := New("test", &stderr).Build(program)
	assert.False(t, ok)
	assert.Contains(t, stderr.String(), "unknown identifier 'nope'")
}

func TestTopLevelVariablesBecomeGlobals(t *testing.T) {
	irText, stderr, ok := lower(t, `
let answer = 42

fn main() -> i32 do
  ret answer as i32
end
`)
	require.True(t, ok, stderr)
	assert.Contains(t, irText, "@answer = global i64 42")
	assert.Contains(t, irText, "load i64, i64* @answer")
}

func TestBreakAndContinueTargets(t *testing.T) {
	irText, stderr, ok := lower(t, `
fn main() -> i32 do
  mut n :: i64 = 0
  for i in 0..10 do
    if i == 3 do
      continue
    end
    if i == 7 do
      break
    end
    n = n + 1
  end
  ret n as i32
end
`)
	require.True(t, ok, stderr)
	// continue jumps to the increment block, break to the loop end; both are
	// plain branches, alongside entry→cond, body→inc and inc→cond.
	assert.GreaterOrEqual(t, strings.Count(irText, "br label"), 5)
}
