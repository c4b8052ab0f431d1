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

package lexer

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextToken(t *testing.T) {
	testCases := []struct {
		input           string
		expectedType    TokenType
		expectedContent string
	}{
		{input: "", expectedType: TokenType_EOF},
		{input: "   \t ", expectedType: TokenType_EOF},
		{input: "\n", expectedType: TokenType_Newline, expectedContent: "\n"},
		{input: "fn main", expectedType: TokenType_KeywordFn, expectedContent: "fn"},
		{input: "format", expectedType: TokenType_Identifier, expectedContent: "format"},
		{input: "_tmp1", expectedType: TokenType_Identifier, expectedContent: "_tmp1"},
		{input: "ret 0", expectedType: TokenType_KeywordRet, expectedContent: "ret"},
		{input: "@use \"std/io.null\"", expectedType: TokenType_DirectiveUse, expectedContent: "@use"},
		{input: "@extern \"C\"", expectedType: TokenType_DirectiveExtern, expectedContent: "@extern"},
		{input: "@alloc", expectedType: TokenType_DirectiveAlloc, expectedContent: "@alloc"},
		{input: "@free", expectedType: TokenType_DirectiveFree, expectedContent: "@free"},
		{input: "@wat", expectedType: TokenType_Error, expectedContent: "unknown directive '@wat'"},
		{input: "->", expectedType: TokenType_Arrow, expectedContent: "->"},
		{input: "- 1", expectedType: TokenType_OperatorMinus, expectedContent: "-"},
		{input: "..", expectedType: TokenType_DotDot, expectedContent: ".."},
		{input: ".x", expectedType: TokenType_Dot, expectedContent: "."},
		{input: "::", expectedType: TokenType_ColonColon, expectedContent: "::"},
		{input: ":", expectedType: TokenType_Error, expectedContent: "unexpected character ':'"},
		{input: "|> f", expectedType: TokenType_OperatorPipe, expectedContent: "|>"},
		{input: "| 1", expectedType: TokenType_OperatorBitOr, expectedContent: "|"},
		{input: "<<", expectedType: TokenType_OperatorShiftLeft, expectedContent: "<<"},
		{input: "<=", expectedType: TokenType_OperatorLessOrEqual, expectedContent: "<="},
		{input: "< 1", expectedType: TokenType_OperatorLess, expectedContent: "<"},
		{input: ">>", expectedType: TokenType_OperatorShiftRight, expectedContent: ">>"},
		{input: "!=", expectedType: TokenType_OperatorNotEqual, expectedContent: "!="},
		{input: "! x", expectedType: TokenType_Error, expectedContent: "'!' must be followed by '='"},
		{input: "==", expectedType: TokenType_OperatorEqual, expectedContent: "=="},
		{input: "= 1", expectedType: TokenType_OperatorAssign, expectedContent: "="},
		{input: "-- comment\nident", expectedType: TokenType_Newline, expectedContent: "\n"},
		{input: "--- block\nstill comment --- after", expectedType: TokenType_Identifier, expectedContent: "after"},
		{input: "--- never closed", expectedType: TokenType_EOF},
		{input: `"hello"`, expectedType: TokenType_LiteralString, expectedContent: "hello"},
		{input: `"a\"b"`, expectedType: TokenType_LiteralString, expectedContent: `a\"b`},
		{input: `"oops`, expectedType: TokenType_Error, expectedContent: "unterminated string literal"},
		{input: "$", expectedType: TokenType_Error, expectedContent: `unexpected character "$"`},
	}

	for _, tc := range testCases {
		lx := NewLexer([]byte(tc.input))
		token := lx.NextToken()
		assert.Equal(t, tc.expectedType, token.Type, "unexpected type for input: %q", tc.input)
		assert.Equal(t, tc.expectedContent, token.Content, "unexpected content for input: %q", tc.input)
	}
}

func TestNumericLiterals(t *testing.T) {
	testCases := []struct {
		input         string
		expectedType  TokenType
		expectedInt   int64
		expectedFloat float64
	}{
		{input: "0", expectedType: TokenType_LiteralInteger, expectedInt: 0},
		{input: "42", expectedType: TokenType_LiteralInteger, expectedInt: 42},
		{input: "9223372036854775807", expectedType: TokenType_LiteralInteger, expectedInt: math.MaxInt64},
		// INT64_MIN is spelled as unary minus applied to this literal; the
		// value wraps through two's complement so the negation restores it.
		{input: "9223372036854775808", expectedType: TokenType_LiteralInteger, expectedInt: math.MinInt64},
		{input: "3.25", expectedType: TokenType_LiteralFloat, expectedFloat: 3.25},
		{input: "0.5", expectedType: TokenType_LiteralFloat, expectedFloat: 0.5},
	}

	for _, tc := range testCases {
		lx := NewLexer([]byte(tc.input))
		token := lx.NextToken()
		require.Equal(t, tc.expectedType, token.Type, "input: %q", tc.input)
		assert.Equal(t, tc.expectedInt, token.IntValue, "input: %q", tc.input)
		assert.Equal(t, tc.expectedFloat, token.FloatValue, "input: %q", tc.input)
	}
}

func TestRangeLexesAsIntegerDotDotInteger(t *testing.T) {
	lx := NewLexer([]byte("0..5"))
	first := lx.NextToken()
	second := lx.NextToken()
	third := lx.NextToken()

	assert.Equal(t, TokenType_LiteralInteger, first.Type)
	assert.Equal(t, int64(0), first.IntValue)
	assert.Equal(t, TokenType_DotDot, second.Type)
	assert.Equal(t, TokenType_LiteralInteger, third.Type)
	assert.Equal(t, int64(5), third.IntValue)
}

func TestCursorTracking(t *testing.T) {
	lx := NewLexer([]byte("fn main\n  ret 0"))

	expected := []struct {
		tokenType TokenType
		location  Cursor
	}{
		{TokenType_KeywordFn, Cursor{Line: 1, Column: 1}},
		{TokenType_Identifier, Cursor{Line: 1, Column: 4}},
		{TokenType_Newline, Cursor{Line: 1, Column: 8}},
		{TokenType_KeywordRet, Cursor{Line: 2, Column: 3}},
		{TokenType_LiteralInteger, Cursor{Line: 2, Column: 7}},
		{TokenType_EOF, Cursor{Line: 2, Column: 8}},
	}
	for _, exp := range expected {
		token := lx.NextToken()
		assert.Equal(t, exp.tokenType, token.Type)
		assert.Equal(t, exp.location, token.Location)
	}
}

// Every input produces a finite token sequence ending in EOF, and every token
// with a line number is contained in the indexed text of that line.
func TestAllTokensTerminatesAndMatchesLineIndex(t *testing.T) {
	inputs := []string{
		"",
		"fn main() -> i32 do ret 0 end",
		"let x :: i64 = 1\nmut y = x + 2\n",
		"@use \"std/io.null\"\n--- comment\nwith lines ---\nif a and b do end",
		"\"unterminated\n@bad ! $ :",
		strings.Repeat("((", 500) + "1" + strings.Repeat("))", 500),
	}

	for _, input := range inputs {
		index := NewLineIndex([]byte(input))
		count := 0
		var last Token
		for token := range NewLexer([]byte(input)).AllTokens() {
			last = token
			count++
			require.Less(t, count, 1+2*len(input)+16, "lexer does not terminate on %q", input)

			if token.Type == TokenType_EOF || token.Type == TokenType_Error || token.Type == TokenType_Newline {
				continue
			}
			line, ok := index.Line(token.Location.Line)
			require.True(t, ok, "line %d missing from index for %q", token.Location.Line, input)
			if token.Type != TokenType_LiteralString {
				assert.Contains(t, line, token.Content)
			}
		}
		assert.Equal(t, TokenType_EOF, last.Type)
	}
}

func TestUnescapeString(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{raw: `a\nb\tc\\d\"e`, expected: "a\nb\tc\\d\"e"},
		{raw: `col1\tcol2\r\n`, expected: "col1\tcol2\r\n"},
		{raw: `zero\0byte`, expected: "zero\x00byte"},
		{raw: `plain`, expected: "plain"},
		{raw: `unknown \q escape`, expected: `unknown \q escape`},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, UnescapeString(tc.raw), "input: %q", tc.raw)
	}
}

func TestCommentClosure(t *testing.T) {
	// No byte inside a comment may produce a non-comment token.
	input := "--- fn if \"str\" @use 123 ---\n-- let mut $$$ !\nident"
	var kinds []TokenType
	for token := range NewLexer([]byte(input)).AllTokens() {
		kinds = append(kinds, token.Type)
	}
	assert.Equal(t, []TokenType{
		TokenType_Newline,
		TokenType_Newline,
		TokenType_Identifier,
		TokenType_EOF,
	}, kinds)
}

func TestLineIndex(t *testing.T) {
	index := NewLineIndex([]byte("first\nsecond\n\nfourth"))
	require.Equal(t, 4, index.Count())

	line, ok := index.Line(1)
	require.True(t, ok)
	assert.Equal(t, "first", line)

	line, ok = index.Line(3)
	require.True(t, ok)
	assert.Equal(t, "", line)

	line, ok = index.Line(4)
	require.True(t, ok)
	assert.Equal(t, "fourth", line)

	_, ok = index.Line(0)
	assert.False(t, ok)
	_, ok = index.Line(5)
	assert.False(t, ok)
}
