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

package preproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExpandFileSplicesImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.null", "fn helper() -> i64 do ret 1 end\n")
	main := writeFile(t, dir, "main.null", "@use \"./lib.null\"\nfn main() -> i32 do ret 0 end\n")

	out, err := New(dir).ExpandFile(main)
	require.NoError(t, err)
	assert.Contains(t, string(out), "fn helper()")
	assert.Contains(t, string(out), "fn main()")
	assert.NotContains(t, string(out), "@use")
}

func TestCyclicImportsTerminate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.null", "@use \"./b.null\"\nfn from_a() -> i64 do ret 1 end\n")
	a := filepath.Join(dir, "a.null")
	writeFile(t, dir, "b.null", "@use \"./a.null\"\nfn from_b() -> i64 do ret 2 end\n")

	out, err := New(dir).ExpandFile(a)
	require.NoError(t, err)

	// Each distinct module is included exactly once.
	assert.Equal(t, 1, strings.Count(string(out), "fn from_a"))
	assert.Equal(t, 1, strings.Count(string(out), "fn from_b"))
}

func TestDiamondImportsIncludeOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.null", "fn base() -> i64 do ret 0 end\n")
	writeFile(t, dir, "left.null", "@use \"./base.null\"\nfn left() -> i64 do ret 1 end\n")
	writeFile(t, dir, "right.null", "@use \"./base.null\"\nfn right() -> i64 do ret 2 end\n")
	top := writeFile(t, dir, "top.null", "@use \"./left.null\"\n@use \"./right.null\"\n")

	out, err := New(dir).ExpandFile(top)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "fn base"))
}

func TestStdPathResolvesAgainstStdRoot(t *testing.T) {
	stdRoot := t.TempDir()
	writeFile(t, stdRoot, "io.null", "fn io_print() -> void do end\n")
	srcDir := t.TempDir()
	main := writeFile(t, srcDir, "main.null", "@use \"std/io.null\"\n")

	out, err := New(stdRoot).ExpandFile(main)
	require.NoError(t, err)
	assert.Contains(t, string(out), "fn io_print")
}

func TestUseInsideStringLiteralIsNotExpanded(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.null", "let s = \"@use \\\"./missing.null\\\"\"\n")

	out, err := New(dir).ExpandFile(main)
	require.NoError(t, err)
	assert.Contains(t, string(out), "@use")
}

func TestNewlinesArePreserved(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.null", "-- two\n-- lines\n")
	main := writeFile(t, dir, "main.null", "@use \"./lib.null\"\nfn main() -> i32 do ret 0 end\n")

	out, err := New(dir).ExpandFile(main)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(out), "\n"))
}

func TestMissingModuleFails(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.null", "@use \"./nowhere.null\"\n")

	_, err := New(dir).ExpandFile(main)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere.null")
}

func TestMalformedUseDirective(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.null", "@use not_quoted\n")

	_, err := New(dir).ExpandFile(main)
	assert.ErrorIs(t, err, ErrMalformedUsePath)
}

func TestModuleCountLimit(t *testing.T) {
	dir := t.TempDir()
	var imports strings.Builder
	for i := 0; i < MaxImportedModules+1; i++ {
		name := fmt.Sprintf("mod%d.null", i)
		writeFile(t, dir, name, fmt.Sprintf("fn f%d() -> i64 do ret %d end\n", i, i))
		fmt.Fprintf(&imports, "@use \"./%s\"\n", name)
	}
	main := writeFile(t, dir, "main.null", imports.String())

	_, err := New(dir).ExpandFile(main)
	assert.ErrorIs(t, err, ErrTooManyModules)
}

func TestResetBetweenCompilations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.null", "fn lib() -> i64 do ret 1 end\n")
	main := writeFile(t, dir, "main.null", "@use \"./lib.null\"\n")

	pp := New(dir)
	first, err := pp.ExpandFile(main)
	require.NoError(t, err)
	second, err := pp.ExpandFile(main)
	require.NoError(t, err)

	// The imported-module set is reset, so the second run sees the module again.
	assert.Equal(t, string(first), string(second))
}
