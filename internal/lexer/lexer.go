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

// Package lexer provides a lexical analyzer for null source code. It breaks
// the input into a sequence of tokens, which can then be processed by a
// parser.
//
// Lexer classifies tokens into several types and tracks their location in the
// source code (for accurate error reporting). Whitespace and comments are
// consumed internally and never surface as tokens; newlines do surface,
// because they terminate statements.
package lexer

import (
	"bytes"
	"fmt"
	"iter"
	"math"
	"strconv"
)

type (
	Lexer struct {
		dataLeft []byte
		cursor   Cursor
	}
	lexeme struct {
		tokenType TokenType
		length    int
	}
)

func NewLexer(sourceCode []byte) *Lexer {
	return &Lexer{dataLeft: sourceCode, cursor: CursorInit}
}

// Find the index of the first byte that cannot continue a whitespace run.
// Newlines are not whitespace here; they form their own tokens.
func findNonWhitespace(data []byte) int {
	for i, b := range data {
		switch b {
		case ' ', '\t', '\v', '\f', '\r':
		default:
			return i
		}
	}
	return len(data)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentifierStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentifierPart(b byte) bool { return isIdentifierStart(b) || isDigit(b) }

// Find the length of the identifier at the beginning of data. Assumes
// isIdentifierStart(data[0]).
func findIdentifierEnd(data []byte) int {
	for i := 1; i < len(data); i++ {
		if !isIdentifierPart(data[i]) {
			return i
		}
	}
	return len(data)
}

// Update the lexer state accordingly to the extracted token content.
func (lx *Lexer) consume(lxm lexeme) Token {
	token := Token{
		Type:     lxm.tokenType,
		Location: lx.cursor,
		Content:  string(lx.dataLeft[:lxm.length]),
	}
	lx.dataLeft = lx.dataLeft[lxm.length:]
	lx.cursor = lx.cursor.AdvancedBy(token.Content)
	return token
}

// Discard length bytes of input without producing a token. Used for
// whitespace and comments.
func (lx *Lexer) skip(length int) {
	skipped := string(lx.dataLeft[:length])
	lx.dataLeft = lx.dataLeft[length:]
	lx.cursor = lx.cursor.AdvancedBy(skipped)
}

// Produce an error token carrying a human-readable message and consume the
// offending length bytes of input.
func (lx *Lexer) errorToken(length int, format string, args ...any) Token {
	token := Token{
		Type:     TokenType_Error,
		Location: lx.cursor,
		Content:  fmt.Sprintf(format, args...),
	}
	lx.skip(length)
	return token
}

// Parse the value of a base-10 integer literal. Literals above the int64
// range wrap through uint64 two's-complement conversion, so the INT64_MIN
// spelling (unary minus applied to 9223372036854775808) survives unchanged.
func parseIntegerValue(text string) int64 {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		return int64(u)
	}
	return math.MaxInt64
}

// Return the next token extracted from the beginning of the input data left
// to process. Returns a TokenType_EOF token once no more input is left; the
// token sequence for any input is finite and always ends with it.
func (lx *Lexer) NextToken() Token {
	for {
		if len(lx.dataLeft) == 0 {
			return Token{Type: TokenType_EOF, Location: lx.cursor}
		}

		switch b := lx.dataLeft[0]; b {
		case ' ', '\t', '\v', '\f', '\r':
			lx.skip(findNonWhitespace(lx.dataLeft))
			continue

		case '\n':
			return lx.consume(lexeme{tokenType: TokenType_Newline, length: 1})

		case '-':
			if bytes.HasPrefix(lx.dataLeft, []byte("---")) {
				// Multi-line comment. An unterminated one runs to the end of
				// the input; nothing inside it may surface as a token.
				if end := bytes.Index(lx.dataLeft[3:], []byte("---")); end >= 0 {
					lx.skip(3 + end + 3)
				} else {
					lx.skip(len(lx.dataLeft))
				}
				continue
			}
			if bytes.HasPrefix(lx.dataLeft, []byte("--")) {
				if end := bytes.IndexByte(lx.dataLeft, '\n'); end >= 0 {
					lx.skip(end)
				} else {
					lx.skip(len(lx.dataLeft))
				}
				continue
			}
			if bytes.HasPrefix(lx.dataLeft, []byte("->")) {
				return lx.consume(lexeme{tokenType: TokenType_Arrow, length: 2})
			}
			return lx.consume(lexeme{tokenType: TokenType_OperatorMinus, length: 1})

		case '"':
			return lx.stringLiteralToken()

		case '@':
			return lx.directiveToken()

		case '!':
			if bytes.HasPrefix(lx.dataLeft, []byte("!=")) {
				return lx.consume(lexeme{tokenType: TokenType_OperatorNotEqual, length: 2})
			}
			return lx.errorToken(1, "'!' must be followed by '='")

		case '=':
			if bytes.HasPrefix(lx.dataLeft, []byte("==")) {
				return lx.consume(lexeme{tokenType: TokenType_OperatorEqual, length: 2})
			}
			return lx.consume(lexeme{tokenType: TokenType_OperatorAssign, length: 1})

		case '<':
			switch {
			case bytes.HasPrefix(lx.dataLeft, []byte("<=")):
				return lx.consume(lexeme{tokenType: TokenType_OperatorLessOrEqual, length: 2})
			case bytes.HasPrefix(lx.dataLeft, []byte("<<")):
				return lx.consume(lexeme{tokenType: TokenType_OperatorShiftLeft, length: 2})
			default:
				return lx.consume(lexeme{tokenType: TokenType_OperatorLess, length: 1})
			}

		case '>':
			switch {
			case bytes.HasPrefix(lx.dataLeft, []byte(">=")):
				return lx.consume(lexeme{tokenType: TokenType_OperatorGreaterOrEqual, length: 2})
			case bytes.HasPrefix(lx.dataLeft, []byte(">>")):
				return lx.consume(lexeme{tokenType: TokenType_OperatorShiftRight, length: 2})
			default:
				return lx.consume(lexeme{tokenType: TokenType_OperatorGreater, length: 1})
			}

		case '|':
			if bytes.HasPrefix(lx.dataLeft, []byte("|>")) {
				return lx.consume(lexeme{tokenType: TokenType_OperatorPipe, length: 2})
			}
			return lx.consume(lexeme{tokenType: TokenType_OperatorBitOr, length: 1})

		case '.':
			if bytes.HasPrefix(lx.dataLeft, []byte("..")) {
				return lx.consume(lexeme{tokenType: TokenType_DotDot, length: 2})
			}
			return lx.consume(lexeme{tokenType: TokenType_Dot, length: 1})

		case ':':
			if bytes.HasPrefix(lx.dataLeft, []byte("::")) {
				return lx.consume(lexeme{tokenType: TokenType_ColonColon, length: 2})
			}
			return lx.errorToken(1, "unexpected character ':'")

		case '+':
			return lx.consume(lexeme{tokenType: TokenType_OperatorPlus, length: 1})
		case '*':
			return lx.consume(lexeme{tokenType: TokenType_OperatorStar, length: 1})
		case '/':
			return lx.consume(lexeme{tokenType: TokenType_OperatorSlash, length: 1})
		case '%':
			return lx.consume(lexeme{tokenType: TokenType_OperatorPercent, length: 1})
		case '&':
			return lx.consume(lexeme{tokenType: TokenType_OperatorAmpersand, length: 1})
		case '^':
			return lx.consume(lexeme{tokenType: TokenType_OperatorBitXor, length: 1})
		case '~':
			return lx.consume(lexeme{tokenType: TokenType_OperatorBitNot, length: 1})
		case ';':
			return lx.consume(lexeme{tokenType: TokenType_Semicolon, length: 1})
		case ',':
			return lx.consume(lexeme{tokenType: TokenType_Comma, length: 1})
		case '(':
			return lx.consume(lexeme{tokenType: TokenType_ParenthesisLeft, length: 1})
		case ')':
			return lx.consume(lexeme{tokenType: TokenType_ParenthesisRight, length: 1})
		case '{':
			return lx.consume(lexeme{tokenType: TokenType_BraceLeft, length: 1})
		case '}':
			return lx.consume(lexeme{tokenType: TokenType_BraceRight, length: 1})
		case '[':
			return lx.consume(lexeme{tokenType: TokenType_BracketLeft, length: 1})
		case ']':
			return lx.consume(lexeme{tokenType: TokenType_BracketRight, length: 1})

		default:
			switch {
			case isIdentifierStart(b):
				return lx.identifierToken()
			case isDigit(b):
				return lx.numberToken()
			default:
				return lx.errorToken(1, "unexpected character %q", string(b))
			}
		}
	}
}

func (lx *Lexer) identifierToken() Token {
	length := findIdentifierEnd(lx.dataLeft)
	tokenType := TokenType_Identifier
	if kw, isKeyword := keywords[string(lx.dataLeft[:length])]; isKeyword {
		tokenType = kw
	}
	return lx.consume(lexeme{tokenType: tokenType, length: length})
}

func (lx *Lexer) numberToken() Token {
	end := 0
	for end < len(lx.dataLeft) && isDigit(lx.dataLeft[end]) {
		end++
	}

	// A float needs a '.' with a digit on both sides; '0..5' stays an integer
	// followed by a range operator.
	isFloat := end+1 < len(lx.dataLeft) && lx.dataLeft[end] == '.' && isDigit(lx.dataLeft[end+1])
	if isFloat {
		end++
		for end < len(lx.dataLeft) && isDigit(lx.dataLeft[end]) {
			end++
		}
		token := lx.consume(lexeme{tokenType: TokenType_LiteralFloat, length: end})
		token.FloatValue, _ = strconv.ParseFloat(token.Content, 64)
		return token
	}

	token := lx.consume(lexeme{tokenType: TokenType_LiteralInteger, length: end})
	token.IntValue = parseIntegerValue(token.Content)
	return token
}

func (lx *Lexer) stringLiteralToken() Token {
	// A backslash escapes the next character during scanning, so \" does not
	// terminate the literal. Escape translation happens later, when the
	// parser constructs string-literal nodes.
	for i := 1; i < len(lx.dataLeft); i++ {
		switch lx.dataLeft[i] {
		case '\\':
			i++
		case '"':
			token := lx.consume(lexeme{tokenType: TokenType_LiteralString, length: i + 1})
			token.Content = token.Content[1 : len(token.Content)-1]
			return token
		}
	}
	return lx.errorToken(len(lx.dataLeft), "unterminated string literal")
}

func (lx *Lexer) directiveToken() Token {
	if len(lx.dataLeft) < 2 || !isIdentifierStart(lx.dataLeft[1]) {
		return lx.errorToken(1, "unknown directive '@'")
	}
	nameLength := findIdentifierEnd(lx.dataLeft[1:])
	name := string(lx.dataLeft[1 : 1+nameLength])
	directive, known := directives[name]
	if !known {
		return lx.errorToken(1+nameLength, "unknown directive '@%s'", name)
	}
	return lx.consume(lexeme{tokenType: directive, length: 1 + nameLength})
}

// Iterate through the all tokens extracted from the input data, ending with
// the TokenType_EOF token.
func (lx *Lexer) AllTokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			token := lx.NextToken()
			if !yield(token) || token.Type == TokenType_EOF {
				return
			}
		}
	}
}
