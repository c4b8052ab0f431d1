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
	"fmt"
	"strings"

	"github.com/EngFlow/nullc/internal/lexer"
)

func (p *Parser) errorAtCurrent(format string, args ...any) {
	p.errorAt(p.current(), format, args...)
}

// errorAt reports a syntax error at the given token. The first error of a
// run prints a full diagnostic; while the parser is in panic mode further
// diagnostics are suppressed until it resynchronizes.
func (p *Parser) errorAt(token lexer.Token, format string, args ...any) {
	p.hadError = true
	if p.panicMode {
		return
	}
	p.panicMode = true

	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.errOut, "Error at line %d, column %d near %s\n",
		token.Location.Line, token.Location.Column, describeToken(token))
	p.printSourceContext(token)
	fmt.Fprintln(p.errOut, message)
	if hint := hintFor(message); hint != "" {
		fmt.Fprintf(p.errOut, "Hint: %s\n", hint)
	}
}

func describeToken(token lexer.Token) string {
	switch token.Type {
	case lexer.TokenType_EOF:
		return "end of file"
	case lexer.TokenType_Newline:
		return "end of line"
	case lexer.TokenType_Error:
		return "invalid token"
	default:
		return "'" + token.Content + "'"
	}
}

// printSourceContext renders the offending source line with a caret underline
// spanning the token. Tabs are expanded to four spaces so the caret aligns.
func (p *Parser) printSourceContext(token lexer.Token) {
	line, ok := p.lineIndex.Line(token.Location.Line)
	if !ok {
		return
	}

	column := token.Location.Column
	if column < 1 {
		column = 1
	}
	if column > len(line)+1 {
		column = len(line) + 1
	}

	expanded := strings.ReplaceAll(line, "\t", "    ")
	padding := len(strings.ReplaceAll(line[:column-1], "\t", "    "))

	span := len(token.Content)
	if token.Type == lexer.TokenType_Error || token.Type == lexer.TokenType_EOF ||
		token.Type == lexer.TokenType_Newline || span < 1 {
		span = 1
	}

	fmt.Fprintf(p.errOut, "  %4d | %s\n", token.Location.Line, expanded)
	fmt.Fprintf(p.errOut, "       | %s^%s\n", strings.Repeat(" ", padding), strings.Repeat("~", span-1))
}

// hintFor maps well-known diagnostic messages to a usage hint appended to the
// report.
func hintFor(message string) string {
	switch {
	case strings.Contains(message, "expected 'end'"):
		return "every 'do' block must be closed with a matching 'end'"
	case strings.Contains(message, "']'"):
		return "add the missing ']'"
	case strings.Contains(message, "expected type"):
		return "a type follows '::', for example 'x :: i64'"
	case strings.Contains(message, "expected 'do'"):
		return "blocks open with 'do'"
	default:
		return ""
	}
}
