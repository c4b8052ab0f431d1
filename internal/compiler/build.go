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

package compiler

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/llir/llvm/ir"
)

// Link writes the IR module as LLVM assembly to a temporary file and invokes
// a C compiler to produce the output binary. The compiler is exec'd with an
// argument vector — no shell is involved, so user input never flows into
// one. The temporary file is removed regardless of success, and a failed
// link leaves no partial output behind.
func Link(module *ir.Module, output string) error {
	temp, err := os.CreateTemp("", "nullc-*.ll")
	if err != nil {
		return fmt.Errorf("cannot create temporary file: %w", err)
	}
	defer os.Remove(temp.Name())

	if _, err := temp.WriteString(module.String()); err != nil {
		temp.Close()
		return fmt.Errorf("cannot write IR: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("cannot write IR: %w", err)
	}

	cmd := exec.Command("clang", temp.Name(), "-o", output, "-lm", "-Wno-override-module")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.Remove(output)
		return fmt.Errorf("linking failed: %w", err)
	}
	return nil
}

// BuildAndRun links the module into a temporary executable, runs it and
// returns its exit code. The executable is removed afterwards.
func BuildAndRun(module *ir.Module, args []string) (int, error) {
	temp, err := os.CreateTemp("", "nullc-run-*")
	if err != nil {
		return 1, fmt.Errorf("cannot create temporary file: %w", err)
	}
	binary := temp.Name()
	temp.Close()
	defer os.Remove(binary)

	if err := Link(module, binary); err != nil {
		return 1, err
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, isExit := err.(*exec.ExitError); isExit {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("cannot run %s: %w", binary, err)
	}
	return 0, nil
}
