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

// Package parser implements a recursive-descent parser for null source code
// with explicit operator-precedence climbing for expressions. It consumes the
// lexer's token stream and produces the shared AST.
//
// The parser is in one of two states: normal or panic. The first syntax error
// prints a full diagnostic (source line, caret underline, optional hint);
// further diagnostics are suppressed until the parser resynchronizes: at a
// declaration boundary at top level, at the end of the offending line inside
// a block. Parsing always completes and returns an AST so the
// analyzer can run, but HadError reports whether the result may contain
// malformed subtrees.
package parser

import (
	"io"
	"math"
	"slices"

	"github.com/EngFlow/nullc/internal/ast"
	"github.com/EngFlow/nullc/internal/lexer"
)

type Parser struct {
	tokens    []lexer.Token
	pos       int
	lineIndex *lexer.LineIndex
	errOut    io.Writer

	hadError  bool
	panicMode bool
}

// New lexes the full source buffer up-front and prepares a parser over the
// resulting token stream. Diagnostics are written to errOut.
func New(sourceCode []byte, errOut io.Writer) *Parser {
	tokens := slices.Collect(lexer.NewLexer(sourceCode).AllTokens())
	return &Parser{
		tokens:    tokens,
		lineIndex: lexer.NewLineIndex(sourceCode),
		errOut:    errOut,
	}
}

// Parse consumes the whole token stream and returns the program node. The
// boolean result is false when any syntax error was reported; the driver must
// not hand such an AST to codegen or the evaluator.
func (p *Parser) Parse() (*ast.Program, bool) {
	program := &ast.Program{NodeBase: ast.At(p.current().Location)}

	p.skipNewlines()
	for !p.atEnd() {
		if decl := p.declaration(); decl != nil {
			program.Decls = append(program.Decls, decl)
		}
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	return program, !p.hadError
}

// HadError reports whether any diagnostic has been emitted.
func (p *Parser) HadError() bool { return p.hadError }

// --- token stream primitives ---

func (p *Parser) current() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) atEnd() bool { return p.current().Type == lexer.TokenType_EOF }

// advance consumes and returns the current token. The EOF token is sticky.
func (p *Parser) advance() lexer.Token {
	token := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return token
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	return p.current().Type == tokenType
}

func (p *Parser) match(tokenType lexer.TokenType) bool {
	if !p.check(tokenType) {
		return false
	}
	p.advance()
	return true
}

// expect consumes a token of the given type or reports a syntax error.
func (p *Parser) expect(tokenType lexer.TokenType, format string, args ...any) (lexer.Token, bool) {
	if p.check(tokenType) {
		return p.advance(), true
	}
	p.errorAtCurrent(format, args...)
	return p.current(), false
}

func (p *Parser) skipNewlines() {
	for {
		switch p.current().Type {
		case lexer.TokenType_Newline:
			p.advance()
		case lexer.TokenType_Error:
			p.errorAtCurrent("%s", p.current().Content)
			p.advance()
		default:
			return
		}
	}
}

// endStatement consumes a trailing newline when present. Statements may also
// sit back to back on one line; the expression grammar already found the
// boundary, so nothing else is required.
func (p *Parser) endStatement() {
	p.match(lexer.TokenType_Newline)
}

// synchronize discards tokens until a declaration boundary so that one syntax
// error does not cascade. Panic mode ends here.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.atEnd() {
		if p.previous().Type == lexer.TokenType_Newline {
			switch p.current().Type {
			case lexer.TokenType_KeywordFn, lexer.TokenType_KeywordStruct, lexer.TokenType_KeywordEnum,
				lexer.TokenType_KeywordLet, lexer.TokenType_KeywordMut, lexer.TokenType_KeywordConst,
				lexer.TokenType_DirectiveUse, lexer.TokenType_DirectiveExtern:
				return
			}
		}
		p.advance()
	}
}

// --- declarations ---

func (p *Parser) declaration() ast.Node {
	switch p.current().Type {
	case lexer.TokenType_Error:
		p.errorAtCurrent("%s", p.current().Content)
		p.advance()
		return nil
	case lexer.TokenType_DirectiveUse:
		return p.useDirective()
	case lexer.TokenType_DirectiveExtern:
		return p.externBlock()
	case lexer.TokenType_DirectiveAlloc, lexer.TokenType_DirectiveFree:
		// Reserved directives; accepted and discarded with the rest of the line.
		p.advance()
		p.skipLine()
		return nil
	case lexer.TokenType_KeywordFn:
		return p.fnDecl(false)
	case lexer.TokenType_KeywordStruct:
		return p.structDecl()
	case lexer.TokenType_KeywordEnum:
		return p.enumDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) skipLine() {
	for !p.atEnd() && !p.check(lexer.TokenType_Newline) {
		p.advance()
	}
}

func (p *Parser) useDirective() ast.Node {
	directive := p.advance()
	path, ok := p.expect(lexer.TokenType_LiteralString, "expected quoted path after '@use'")
	if !ok {
		return nil
	}
	return &ast.Use{NodeBase: ast.At(directive.Location), Path: path.Content}
}

func (p *Parser) externBlock() ast.Node {
	directive := p.advance()
	node := &ast.Extern{NodeBase: ast.At(directive.Location), ABI: "C"}
	if p.check(lexer.TokenType_LiteralString) {
		node.ABI = p.advance().Content
	}
	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after '@extern'"); !ok {
		return node
	}
	p.skipNewlines()
	for !p.check(lexer.TokenType_KeywordEnd) && !p.atEnd() {
		if !p.check(lexer.TokenType_KeywordFn) {
			p.errorAtCurrent("expected 'fn' declaration inside '@extern' block")
			p.skipLine()
			p.skipNewlines()
			continue
		}
		if fn, ok := p.fnDecl(true).(*ast.FnDecl); ok && fn != nil {
			node.Decls = append(node.Decls, fn)
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing '@extern' block")
	return node
}

func (p *Parser) fnDecl(extern bool) ast.Node {
	keyword := p.advance()
	name, ok := p.expect(lexer.TokenType_Identifier, "expected function name after 'fn'")
	if !ok {
		return nil
	}
	node := &ast.FnDecl{NodeBase: ast.At(keyword.Location), Name: name.Content, Extern: extern}

	if _, ok := p.expect(lexer.TokenType_ParenthesisLeft, "expected '(' after function name"); !ok {
		return node
	}
	p.skipNewlines()
	for !p.check(lexer.TokenType_ParenthesisRight) && !p.atEnd() {
		param := p.param()
		if param == nil {
			break
		}
		node.Params = append(node.Params, param)
		p.skipNewlines()
		if !p.match(lexer.TokenType_Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_ParenthesisRight, "expected ')' after parameters")

	node.ReturnType = ast.TypeVoid
	if p.match(lexer.TokenType_Arrow) {
		node.ReturnType = p.parseType()
	}

	if extern {
		return node
	}
	node.Body = p.blockAfterDo("expected 'do' before function body")
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing function body")
	return node
}

func (p *Parser) param() *ast.Param {
	name, ok := p.expect(lexer.TokenType_Identifier, "expected parameter name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokenType_ColonColon, "expected '::' after parameter name"); !ok {
		return nil
	}
	return &ast.Param{
		NodeBase:     ast.At(name.Location),
		Name:         name.Content,
		DeclaredType: p.parseType(),
	}
}

func (p *Parser) structDecl() ast.Node {
	keyword := p.advance()
	name, ok := p.expect(lexer.TokenType_Identifier, "expected struct name after 'struct'")
	if !ok {
		return nil
	}
	node := &ast.StructDecl{NodeBase: ast.At(keyword.Location), Name: name.Content}

	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after struct name"); !ok {
		return node
	}
	p.skipNewlines()
	for !p.check(lexer.TokenType_KeywordEnd) && !p.atEnd() {
		fieldName, ok := p.expect(lexer.TokenType_Identifier, "expected field name")
		if !ok {
			break
		}
		if _, ok := p.expect(lexer.TokenType_ColonColon, "expected '::' after field name"); !ok {
			break
		}
		node.Fields = append(node.Fields, &ast.FieldDecl{
			NodeBase:     ast.At(fieldName.Location),
			Name:         fieldName.Content,
			DeclaredType: p.parseType(),
		})
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing struct declaration")
	return node
}

func (p *Parser) enumDecl() ast.Node {
	keyword := p.advance()
	name, ok := p.expect(lexer.TokenType_Identifier, "expected enum name after 'enum'")
	if !ok {
		return nil
	}
	node := &ast.EnumDecl{NodeBase: ast.At(keyword.Location), Name: name.Content}

	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after enum name"); !ok {
		return node
	}
	p.skipNewlines()
	for !p.check(lexer.TokenType_KeywordEnd) && !p.atEnd() {
		variantName, ok := p.expect(lexer.TokenType_Identifier, "expected variant name")
		if !ok {
			break
		}
		variant := &ast.VariantDecl{NodeBase: ast.At(variantName.Location), Name: variantName.Content}
		if p.match(lexer.TokenType_OperatorAssign) {
			negative := p.match(lexer.TokenType_OperatorMinus)
			value, ok := p.expect(lexer.TokenType_LiteralInteger, "expected integer value for enum variant")
			if !ok {
				break
			}
			variant.Value = value.IntValue
			if negative {
				variant.Value = -variant.Value
			}
			variant.HasValue = true
		}
		node.Variants = append(node.Variants, variant)
		p.match(lexer.TokenType_Comma)
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing enum declaration")
	return node
}

// --- statements ---

func (p *Parser) statement() ast.Node {
	switch p.current().Type {
	case lexer.TokenType_KeywordLet, lexer.TokenType_KeywordMut, lexer.TokenType_KeywordConst:
		return p.varDecl()
	case lexer.TokenType_KeywordRet:
		return p.returnStatement()
	case lexer.TokenType_KeywordBreak:
		return &ast.Break{NodeBase: ast.At(p.advance().Location)}
	case lexer.TokenType_KeywordContinue:
		return &ast.Continue{NodeBase: ast.At(p.advance().Location)}
	case lexer.TokenType_KeywordIf:
		return p.ifStatement()
	case lexer.TokenType_KeywordWhile:
		return p.whileStatement()
	case lexer.TokenType_KeywordFor:
		return p.forStatement()
	case lexer.TokenType_Error:
		p.errorAtCurrent("%s", p.current().Content)
		p.advance()
		return nil
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) varDecl() ast.Node {
	keyword := p.advance()
	name, ok := p.expect(lexer.TokenType_Identifier, "expected variable name")
	if !ok {
		return nil
	}
	node := &ast.VarDecl{
		NodeBase: ast.At(keyword.Location),
		Name:     name.Content,
		Mutable:  keyword.Type == lexer.TokenType_KeywordMut,
		Const:    keyword.Type == lexer.TokenType_KeywordConst,
	}
	if p.match(lexer.TokenType_ColonColon) {
		node.DeclaredType = p.parseType()
	}
	if p.match(lexer.TokenType_OperatorAssign) {
		node.Init = p.expression()
	}
	return node
}

func (p *Parser) returnStatement() ast.Node {
	keyword := p.advance()
	node := &ast.Return{NodeBase: ast.At(keyword.Location)}
	switch p.current().Type {
	case lexer.TokenType_Newline, lexer.TokenType_EOF, lexer.TokenType_KeywordEnd,
		lexer.TokenType_KeywordElif, lexer.TokenType_KeywordElse:
	default:
		node.Value = p.expression()
	}
	return node
}

func (p *Parser) ifStatement() ast.Node {
	node := p.ifChain()
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing 'if' statement")
	return node
}

// ifChain parses one if/elif branch and recurses on elif. The single closing
// 'end' of the whole chain is consumed by ifStatement.
func (p *Parser) ifChain() *ast.If {
	keyword := p.advance() // 'if' or 'elif'
	node := &ast.If{NodeBase: ast.At(keyword.Location)}
	node.Cond = p.expression()
	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after condition"); !ok {
		return node
	}
	node.Then = p.blockUntil(lexer.TokenType_KeywordElif, lexer.TokenType_KeywordElse, lexer.TokenType_KeywordEnd)

	switch p.current().Type {
	case lexer.TokenType_KeywordElif:
		node.Else = p.ifChain()
	case lexer.TokenType_KeywordElse:
		p.advance()
		node.Else = p.blockUntil(lexer.TokenType_KeywordEnd)
	}
	return node
}

func (p *Parser) whileStatement() ast.Node {
	keyword := p.advance()
	node := &ast.While{NodeBase: ast.At(keyword.Location)}
	node.Cond = p.expression()
	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after condition"); !ok {
		return node
	}
	node.Body = p.blockUntil(lexer.TokenType_KeywordEnd)
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing 'while' loop")
	return node
}

func (p *Parser) forStatement() ast.Node {
	keyword := p.advance()
	node := &ast.For{NodeBase: ast.At(keyword.Location)}
	name, ok := p.expect(lexer.TokenType_Identifier, "expected iterator name after 'for'")
	if !ok {
		return node
	}
	node.Var = name.Content
	if _, ok := p.expect(lexer.TokenType_KeywordIn, "expected 'in' after iterator name"); !ok {
		return node
	}
	node.Start = p.expression()
	if _, ok := p.expect(lexer.TokenType_DotDot, "expected '..' in range"); !ok {
		return node
	}
	node.End = p.expression()
	if _, ok := p.expect(lexer.TokenType_KeywordDo, "expected 'do' after range"); !ok {
		return node
	}
	node.Body = p.blockUntil(lexer.TokenType_KeywordEnd)
	p.expect(lexer.TokenType_KeywordEnd, "expected 'end' closing 'for' loop")
	return node
}

func (p *Parser) expressionStatement() ast.Node {
	expr := p.expression()
	if expr == nil {
		return nil
	}
	// Assignments are statements in their own right.
	if assign, isAssign := expr.(*ast.Assign); isAssign {
		return assign
	}
	return &ast.ExprStmt{NodeBase: ast.At(expr.Pos()), X: expr}
}

func (p *Parser) blockAfterDo(message string) *ast.Block {
	if _, ok := p.expect(lexer.TokenType_KeywordDo, "%s", message); !ok {
		return &ast.Block{NodeBase: ast.At(p.current().Location)}
	}
	block := p.blockUntil(lexer.TokenType_KeywordEnd)
	return block
}

// blockUntil collects statements until one of the stop tokens (or EOF) is
// reached. The stop token itself is left for the caller.
func (p *Parser) blockUntil(stops ...lexer.TokenType) *ast.Block {
	block := &ast.Block{NodeBase: ast.At(p.current().Location)}
	p.skipNewlines()
	for !p.atEnd() && !slices.Contains(stops, p.current().Type) {
		if stmt := p.statement(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		if p.panicMode {
			// Resynchronize locally: drop the rest of the line.
			p.panicMode = false
			p.skipLine()
		}
		p.endStatement()
		p.skipNewlines()
	}
	if p.atEnd() && len(stops) > 0 {
		p.errorAtCurrent("expected 'end'")
	}
	return block
}

// --- type grammar ---

var primitiveTypes = map[lexer.TokenType]*ast.Type{
	lexer.TokenType_KeywordVoid: ast.TypeVoid,
	lexer.TokenType_KeywordBool: ast.TypeBool,
	lexer.TokenType_KeywordI8:   ast.TypeI8,
	lexer.TokenType_KeywordI16:  ast.TypeI16,
	lexer.TokenType_KeywordI32:  ast.TypeI32,
	lexer.TokenType_KeywordI64:  ast.TypeI64,
	lexer.TokenType_KeywordU8:   ast.TypeU8,
	lexer.TokenType_KeywordU16:  ast.TypeU16,
	lexer.TokenType_KeywordU32:  ast.TypeU32,
	lexer.TokenType_KeywordU64:  ast.TypeU64,
	lexer.TokenType_KeywordF32:  ast.TypeF32,
	lexer.TokenType_KeywordF64:  ast.TypeF64,
}

// parseType parses the type grammar: keyword primitives, ptr<T>, [T; N]
// arrays, [T] slices and bare identifiers as nominal struct/enum references.
// On error it reports a diagnostic and returns the unknown sentinel.
func (p *Parser) parseType() *ast.Type {
	if primitive, isPrimitive := primitiveTypes[p.current().Type]; isPrimitive {
		p.advance()
		return primitive
	}

	switch p.current().Type {
	case lexer.TokenType_KeywordPtr:
		p.advance()
		if _, ok := p.expect(lexer.TokenType_OperatorLess, "expected '<' after 'ptr'"); !ok {
			return ast.TypeUnknown
		}
		inner := p.parseType()
		if _, ok := p.expect(lexer.TokenType_OperatorGreater, "expected '>' closing 'ptr<'"); !ok {
			return ast.TypeUnknown
		}
		return ast.PtrTo(inner)

	case lexer.TokenType_BracketLeft:
		p.advance()
		elem := p.parseType()
		if p.match(lexer.TokenType_Semicolon) {
			size, ok := p.expect(lexer.TokenType_LiteralInteger, "expected array size")
			if !ok {
				return ast.TypeUnknown
			}
			if size.IntValue < 0 || size.IntValue >= math.MaxInt32 {
				p.errorAt(size, "array size out of range")
				return ast.TypeUnknown
			}
			if _, ok := p.expect(lexer.TokenType_BracketRight, "expected ']' closing array type"); !ok {
				return ast.TypeUnknown
			}
			return ast.ArrayOf(elem, int(size.IntValue))
		}
		if _, ok := p.expect(lexer.TokenType_BracketRight, "expected ']' closing slice type"); !ok {
			return ast.TypeUnknown
		}
		return ast.SliceOf(elem)

	case lexer.TokenType_Identifier:
		name := p.advance()
		return ast.NamedRef(name.Content)

	default:
		p.errorAtCurrent("expected type")
		return ast.TypeUnknown
	}
}
