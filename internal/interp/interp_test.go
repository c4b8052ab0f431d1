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
	"strings"
	"testing"

	"github.com/EngFlow/nullc/internal/analyzer"
	"github.com/EngFlow/nullc/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (exitCode int, stdout, stderr string, ok bool) {
	t.Helper()
	var errBuf strings.Builder
	program, parsed := parser.New([]byte(source), &errBuf).Parse()
	require.True(t, parsed, "parse failed: %s", errBuf.String())
	require.True(t, analyzer.New(&errBuf).Analyze(program), "analysis failed: %s", errBuf.String())

	var outBuf strings.Builder
	in := NewWithIO(&outBuf, &errBuf, strings.NewReader(""))
	exitCode, ok = in.Run(program)
	return exitCode, outBuf.String(), errBuf.String(), ok
}

// runUnanalyzed exercises the evaluator's own enforcement, without the
// analyzer catching the problem first.
func runUnanalyzed(t *testing.T, source string) (int, string, bool) {
	t.Helper()
	var errBuf strings.Builder
	program, parsed := parser.New([]byte(source), &errBuf).Parse()
	require.True(t, parsed, "parse failed: %s", errBuf.String())

	var outBuf strings.Builder
	in := NewWithIO(&outBuf, &errBuf, strings.NewReader(""))
	exitCode, ok := in.Run(program)
	return exitCode, errBuf.String(), ok
}

func TestHelloWorld(t *testing.T) {
	exitCode, stdout, stderr, ok := run(t, `
@extern "C" do
  fn puts(s :: ptr<u8>) -> i64
end

fn main() -> i32 do
  puts("Hello, world!")
  ret 0
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "Hello, world!\n", stdout)
}

func TestOutOfOrderStructInit(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
struct Point do
  x :: i64
  y :: i64
end

fn main() -> i32 do
  let p = Point { y = 10, x = 5 }
  ret (p.x - 5) + (p.y - 10)
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
}

func TestShortCircuitSafety(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn trap() -> bool do
  ret (1/0) == 0
end

fn main() -> i32 do
  if false and trap() do
    ret 1
  end
  if true or trap() do
    ret 0
  end
  ret 2
end
`)
	require.True(t, ok, "trap must never run: %s", stderr)
	assert.Equal(t, 0, exitCode)
	assert.NotContains(t, stderr, "division by zero")
}

func TestForRangeHalfOpen(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  mut s :: i64 = 0
  for i in 0..5 do
    s = s + i
  end
  ret s as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 10, exitCode)
}

func TestEvaluatorEnforcesMutability(t *testing.T) {
	_, stderr, ok := runUnanalyzed(t, `
fn main() -> i32 do
  let x = 1
  x = 2
  ret 0
end
`)
	assert.False(t, ok)
	assert.Contains(t, stderr, "immutable")
}

func TestWhileWithBreakAndContinue(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  mut n :: i64 = 0
  mut s :: i64 = 0
  while true do
    n = n + 1
    if n > 10 do
      break
    end
    if n % 2 == 0 do
      continue
    end
    s = s + n
  end
  ret s as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 25, exitCode, "1+3+5+7+9")
}

func TestBreakOutsideLoopIsRuntimeError(t *testing.T) {
	_, _, stderr, ok := run(t, `
fn main() -> i32 do
  break
  ret 0
end
`)
	assert.False(t, ok)
	assert.Contains(t, stderr, "'break' outside of a loop")
}

func TestNestedLoops(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  mut total :: i64 = 0
  for i in 0..3 do
    for j in 0..3 do
      if j == 2 do
        break
      end
      total = total + 1
    end
  end
  ret total as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 6, exitCode, "inner break only exits the inner loop")
}

func TestRecursion(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn fib(n :: i64) -> i64 do
  if n < 2 do
    ret n
  end
  ret fib(n - 1) + fib(n - 2)
end

fn main() -> i32 do
  ret fib(10) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 55, exitCode)
}

func TestMemberAndIndexAssignment(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
struct Pair do
  a :: i64
  b :: i64
end

fn main() -> i32 do
  mut p = Pair { a = 1, b = 2 }
  p.a = 10
  mut xs = [1, 2, 3]
  xs[1] = 20
  ret (p.a + xs[1] - 30) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
}

func TestAssignmentYieldsValue(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  mut a :: i64 = 0
  mut b :: i64 = 0
  a = b = 7
  ret (a + b - 14) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
}

func TestEnumVariantValues(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
enum Color do
  Red
  Green = 5
  Blue
end

fn main() -> i32 do
  let g = Color::Green
  let b = Color::Blue
  if g == Color::Green and b == Color::Blue do
    ret 0
  end
  ret 1
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
}

func TestStringEscapes(t *testing.T) {
	_, stdout, stderr, ok := run(t, `
fn main() -> i32 do
  print("a\nb\tc\\d\"e")
  ret 0
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, "a\nb\tc\\d\"e", stdout)
}

func TestPrintf(t *testing.T) {
	_, stdout, stderr, ok := run(t, `
fn main() -> i32 do
  printf("%d-%s-%c%%\n", 42, "mid", 88)
  ret 0
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, "42-mid-X%\n", stdout)
}

func TestPipeOperator(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn double(x :: i64) -> i64 do
  ret x * 2
end

fn add(x :: i64, y :: i64) -> i64 do
  ret x + y
end

fn main() -> i32 do
  ret (3 |> double |> add(4)) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 10, exitCode)
}

func TestExitBuiltin(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  exit(42)
  ret 0
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 42, exitCode)
}

func TestReplEntryPoint(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn __repl_main__() -> i64 do
  ret 7
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 7, exitCode)
}

func TestMissingEntryPoint(t *testing.T) {
	_, _, stderr, ok := run(t, `
fn helper() -> i64 do
  ret 1
end
`)
	assert.False(t, ok)
	assert.Contains(t, stderr, "no entry point")
}

func TestInt64Boundaries(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  let max = 9223372036854775807
  let min = -9223372036854775808
  if max > 9223372036854775806 and min < -9223372036854775807 do
    ret 0
  end
  ret 1
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode, "INT64_MIN and INT64_MAX round-trip without loss")
}

func TestModuleQualifiedCallByMangledName(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
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
	assert.Equal(t, 0, exitCode)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, _, stderr, ok := run(t, `
fn main() -> i32 do
  mut z :: i64 = 0
  ret (1 / z) as i32
end
`)
	assert.False(t, ok)
	assert.Contains(t, stderr, "division by zero")
}

func TestInvalidIndexIsRuntimeError(t *testing.T) {
	_, _, stderr, ok := run(t, `
fn main() -> i32 do
  let xs = [1, 2, 3]
  ret xs[3] as i32
end
`)
	assert.False(t, ok)
	assert.Contains(t, stderr, "invalid array index")
}

func TestAggregatesHaveValueSemantics(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
struct Pair do
  a :: i64
  b :: i64
end

fn main() -> i32 do
  let p = Pair { a = 1, b = 2 }
  mut q = p
  q.a = 99
  mut xs = [1, 2]
  mut ys = xs
  ys[0] = 50
  ret (p.a - 1 + xs[0] - 1) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode, "copies must not alias their source")
}

func TestScopeShadowingRestoredOnExit(t *testing.T) {
	exitCode, _, stderr, ok := run(t, `
fn main() -> i32 do
  let x = 1
  mut seen :: i64 = 0
  if true do
    let x = 2
    seen = x
  end
  ret (seen - 2 + x - 1) as i32
end
`)
	require.True(t, ok, stderr)
	assert.Equal(t, 0, exitCode)
}
