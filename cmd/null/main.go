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

// Command null is the driver for the null compiler: it compiles and runs
// programs natively, interprets them, builds standalone executables, runs
// test directories and serves an interactive REPL.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/llir/llvm/ir"

	"github.com/EngFlow/nullc/internal/codegen"
	"github.com/EngFlow/nullc/internal/compiler"
	"github.com/EngFlow/nullc/internal/interp"
)

const usage = `Usage:
  null <file>            Compile and execute main, exit with its return value
  null run <file>        Same as above
  null interp <file>     Run the tree-walking interpreter
  null build <file> -o <out>
                         Emit a native executable
  null test <dir>        Build and run every *.null file under <dir>
  null repl              Interactive mode
  null --help | -h       This message
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("null: ")
	compiler.ApplyResourceLimits()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch args[0] {
	case "--help", "-h":
		fmt.Print(usage)
	case "run":
		requireFileArg(args[1:])
		os.Exit(runNative(args[1]))
	case "interp":
		requireFileArg(args[1:])
		os.Exit(runInterpreted(args[1]))
	case "build":
		os.Exit(runBuild(args[1:]))
	case "test":
		requireFileArg(args[1:])
		os.Exit(runTests(args[1]))
	case "repl":
		os.Exit(runRepl())
	default:
		os.Exit(runNative(args[0]))
	}
}

func requireFileArg(rest []string) {
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// buildModule runs the front end and the IR builder, refusing to go further
// when any stage failed.
func buildModule(path string) (*ir.Module, bool) {
	c := compiler.New(os.Stderr)
	program, ok := c.CompileFile(path)
	if !ok {
		return nil, false
	}
	return codegen.New(filepath.Base(path), os.Stderr).Build(program)
}

func runNative(path string) int {
	module, ok := buildModule(path)
	if !ok {
		return 1
	}
	exitCode, err := compiler.BuildAndRun(module, nil)
	if err != nil {
		log.Print(err)
		return 1
	}
	return exitCode
}

func runInterpreted(path string) int {
	c := compiler.New(os.Stderr)
	program, ok := c.CompileFile(path)
	if !ok {
		return 1
	}
	exitCode, ok := interp.New().Run(program)
	if !ok {
		return 1
	}
	return exitCode
}

func runBuild(rest []string) int {
	file, output := "", "a.out"
	for i := 0; i < len(rest); i++ {
		if rest[i] == "-o" && i+1 < len(rest) {
			output = rest[i+1]
			i++
			continue
		}
		file = rest[i]
	}
	if file == "" {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	module, ok := buildModule(file)
	if !ok {
		return 1
	}
	if err := compiler.Link(module, output); err != nil {
		log.Print(err)
		return 1
	}
	return 0
}

// runTests builds and runs every *.null file under dir and prints a summary.
func runTests(dir string) int {
	pattern := filepath.Join(dir, "**", "*.null")
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		log.Printf("invalid test pattern: %v", err)
		return 1
	}

	passed, failed := 0, 0
	for _, file := range files {
		status := 1
		if module, ok := buildModule(file); ok {
			exitCode, err := compiler.BuildAndRun(module, nil)
			if err != nil {
				log.Print(err)
			} else {
				status = exitCode
			}
		}
		if status == 0 {
			passed++
		} else {
			failed++
			fmt.Printf("FAIL %s\n", file)
		}
	}

	fmt.Printf("%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}
