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
	"fmt"
	"io"
	"strings"

	"github.com/EngFlow/nullc/internal/ast"
)

// builtins is the evaluator's minimal runtime: a small table of host
// bindings recognized before resolving against user functions. The IR back
// end handles the same names by linking against the C runtime.
var builtins map[string]func(in *Interp, call *ast.Call, args []Value) Value

func init() {
	builtins = map[string]func(in *Interp, call *ast.Call, args []Value) Value{
		"puts":      builtinPuts,
		"print":     builtinPrint,
		"io_print":  builtinPrint,
		"print_raw": builtinPrint,
		"printf":    builtinPrintf,
		"print_int": builtinPrintInt,
		"println":   builtinPrintln,
		"putchar":   builtinPutchar,
		"getchar":   builtinGetchar,
		"exit":      builtinExit,
	}
}

func (in *Interp) requireArgs(call *ast.Call, args []Value, count int, name string) bool {
	if len(args) != count {
		in.runtimeError(call, "'%s' expects %d arguments, got %d", name, count, len(args))
		return false
	}
	return true
}

func builtinPuts(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "puts") {
		return Void
	}
	fmt.Fprintln(in.stdout, args[0].Str)
	return IntValue(0)
}

func builtinPrint(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "print") {
		return Void
	}
	fmt.Fprint(in.stdout, args[0].String())
	return Void
}

func builtinPrintln(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "println") {
		return Void
	}
	fmt.Fprintln(in.stdout, args[0].String())
	return Void
}

func builtinPrintInt(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "print_int") {
		return Void
	}
	if args[0].Kind != ValueKind_Int {
		return in.runtimeError(call, "'print_int' expects an integer")
	}
	fmt.Fprintf(in.stdout, "%d\n", args[0].Int)
	return Void
}

// builtinPrintf implements the printf subset the C runtime provides:
// %d, %f, %s, %c and %%. Other directives pass through unchanged.
func builtinPrintf(in *Interp, call *ast.Call, args []Value) Value {
	if len(args) == 0 {
		return in.runtimeError(call, "'printf' expects a format string")
	}
	format := args[0].Str
	varargs := args[1:]

	var sb strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			sb.WriteByte(format[i])
			continue
		}
		i++
		if format[i] == '%' {
			sb.WriteByte('%')
			continue
		}
		if next >= len(varargs) {
			sb.WriteByte('%')
			sb.WriteByte(format[i])
			continue
		}
		arg := varargs[next]
		next++
		switch format[i] {
		case 'd':
			fmt.Fprintf(&sb, "%d", arg.Int)
		case 'f':
			fmt.Fprintf(&sb, "%f", arg.AsFloat())
		case 's':
			sb.WriteString(arg.Str)
		case 'c':
			sb.WriteByte(byte(arg.Int))
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	io.WriteString(in.stdout, sb.String())
	return IntValue(int64(sb.Len()))
}

func builtinPutchar(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "putchar") {
		return Void
	}
	if args[0].Kind != ValueKind_Int {
		return in.runtimeError(call, "'putchar' expects an integer")
	}
	in.stdout.Write([]byte{byte(args[0].Int)})
	return args[0]
}

func builtinGetchar(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 0, "getchar") {
		return Void
	}
	b, err := in.stdin.ReadByte()
	if err != nil {
		return IntValue(-1)
	}
	return IntValue(int64(b))
}

func builtinExit(in *Interp, call *ast.Call, args []Value) Value {
	if !in.requireArgs(call, args, 1, "exit") {
		return Void
	}
	in.exited = true
	in.exitCode = int(args[0].Int)
	return Void
}
