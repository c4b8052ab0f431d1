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

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/EngFlow/nullc/internal/ast"
	"github.com/EngFlow/nullc/internal/compiler"
	"github.com/EngFlow/nullc/internal/interp"
)

// runRepl reads lines from stdin and evaluates them with the tree-walking
// interpreter. Declarations (fn, struct, enum, directives) accumulate for
// the rest of the session; anything else is wrapped into __repl_main__ and
// executed immediately.
func runRepl() int {
	fmt.Println("null repl — :quit to exit")
	scanner := bufio.NewScanner(os.Stdin)
	var declarations []string

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return 0
		}

		block, ok := readBalanced(scanner, line)
		if !ok {
			return 0
		}

		if isDeclaration(line) {
			// Validate before keeping it for the session.
			candidate := append(append([]string{}, declarations...), block)
			if _, ok := compileSession(candidate, ""); ok {
				declarations = candidate
			}
			continue
		}

		program, ok := compileSession(declarations, block)
		if !ok {
			continue
		}
		interp.New().Run(program)
	}
}

// compileSession assembles the session's declarations plus an optional
// statement body wrapped in __repl_main__, and runs the front end on it.
func compileSession(declarations []string, body string) (*ast.Program, bool) {
	var source strings.Builder
	for _, decl := range declarations {
		source.WriteString(decl)
		source.WriteString("\n")
	}
	if body != "" {
		fmt.Fprintf(&source, "fn __repl_main__() -> void do\n%s\nend\n", body)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return compiler.New(os.Stderr).CompileSource([]byte(source.String()), cwd)
}

func isDeclaration(line string) bool {
	for _, prefix := range []string{"fn ", "struct ", "enum ", "@use", "@extern"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// readBalanced accumulates input lines until every 'do' has a matching
// 'end', prompting with a continuation marker in between.
func readBalanced(scanner *bufio.Scanner, first string) (string, bool) {
	lines := []string{first}
	for depth := blockDepth(first); depth > 0; {
		fmt.Print(". ")
		if !scanner.Scan() {
			return "", false
		}
		line := scanner.Text()
		lines = append(lines, line)
		depth += blockDepth(line)
	}
	return strings.Join(lines, "\n"), true
}

// blockDepth counts do/end nesting on one line.
func blockDepth(line string) int {
	depth := 0
	for _, field := range strings.Fields(line) {
		switch field {
		case "do":
			depth++
		case "end":
			depth--
		}
	}
	return depth
}
