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

// Package compiler orchestrates the pipeline from source file to typed AST:
// preprocess (@use expansion) → lex → parse → analyze. Each stage reports its
// own diagnostics. A preprocessing failure stops the pipeline; a parse error
// does not stop the analyzer from running on the recovered AST, but the run
// is reported as failed and the driver refuses to hand a failed AST to
// codegen or the evaluator.
package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/EngFlow/nullc/internal/analyzer"
	"github.com/EngFlow/nullc/internal/ast"
	"github.com/EngFlow/nullc/internal/parser"
	"github.com/EngFlow/nullc/internal/preproc"
)

type Compiler struct {
	errOut  io.Writer
	stdRoot string
	// The analyzer owns every scope created during a run and releases them
	// in bulk; keeping it here pins symbols for the AST's lifetime.
	analyzer *analyzer.Analyzer
}

func New(errOut io.Writer) *Compiler {
	return &Compiler{
		errOut:   errOut,
		stdRoot:  ResolveStdRoot(),
		analyzer: analyzer.New(errOut),
	}
}

// ResolveStdRoot locates the standard-library root. Attempted in order:
// ./std, <dirname(executable)>/std, <dirname(executable)>/../std; the
// fallback is ./std.
func ResolveStdRoot() string {
	if isDir("./std") {
		return "./std"
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, candidate := range []string{filepath.Join(exeDir, "std"), filepath.Join(exeDir, "..", "std")} {
			if isDir(candidate) {
				return candidate
			}
		}
	}
	return "./std"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CompileFile runs the full front end on a source file. ok is false when any
// stage reported an error.
func (c *Compiler) CompileFile(path string) (*ast.Program, bool) {
	expanded, err := preproc.New(c.stdRoot).ExpandFile(path)
	if err != nil {
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
		return nil, false
	}
	return c.frontEnd(expanded)
}

// CompileSource runs the front end on an in-memory buffer whose relative
// imports resolve against baseDir. Used by the REPL.
func (c *Compiler) CompileSource(source []byte, baseDir string) (*ast.Program, bool) {
	expanded, err := preproc.New(c.stdRoot).Expand(source, baseDir)
	if err != nil {
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
		return nil, false
	}
	return c.frontEnd(expanded)
}

func (c *Compiler) frontEnd(source []byte) (*ast.Program, bool) {
	program, parsed := parser.New(source, c.errOut).Parse()
	analyzed := c.analyzer.Analyze(program)
	return program, parsed && analyzed
}
