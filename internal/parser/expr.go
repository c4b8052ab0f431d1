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
	"github.com/EngFlow/nullc/internal/ast"
	"github.com/EngFlow/nullc/internal/lexer"
)

type (
	parseRule struct {
		precedence   precedence
		rightAssoc   bool
		prefixParser prefixParseFn
		infixParser  infixParserFn
	}
	prefixParseFn func(p *Parser, token lexer.Token) ast.Expr
	infixParserFn func(p *Parser, token lexer.Token, left ast.Expr) ast.Expr
	precedence    int
)

const (
	precedenceNone       precedence = iota
	precedenceAssignment            // =
	precedenceOr                    // or
	precedenceAnd                   // and
	precedenceEquality              // ==, !=
	precedenceComparison            // <, <=, >, >=
	precedenceBitOr                 // |
	precedenceBitXor                // ^
	precedenceBitAnd                // &
	precedenceShift                 // <<, >>
	precedenceTerm                  // +, -
	precedenceFactor                // *, /, %
	precedenceUnary                 // unary -, not, ~, & (address), * (deref)
	precedencePostfix               // (), ., [], |>
)

// exprRules maps token types to their precedence and parser functions.
// This is initialized in init() to avoid cyclic reference errors at package init time.
var exprRules map[lexer.TokenType]parseRule

func init() {
	exprRules = map[lexer.TokenType]parseRule{
		lexer.TokenType_LiteralInteger: {prefixParser: parseIntLiteral},
		lexer.TokenType_LiteralFloat:   {prefixParser: parseFloatLiteral},
		lexer.TokenType_LiteralString:  {prefixParser: parseStringLiteral},
		lexer.TokenType_KeywordTrue:    {prefixParser: parseBoolLiteral},
		lexer.TokenType_KeywordFalse:   {prefixParser: parseBoolLiteral},
		lexer.TokenType_Identifier:     {prefixParser: parseIdentifier},
		lexer.TokenType_BracketLeft:    {precedence: precedencePostfix, prefixParser: parseArrayLiteral, infixParser: parseIndexOperator},
		lexer.TokenType_KeywordNot:     {prefixParser: parseUnaryOperator},
		lexer.TokenType_OperatorBitNot: {prefixParser: parseUnaryOperator},

		lexer.TokenType_OperatorAssign: {precedence: precedenceAssignment, rightAssoc: true, infixParser: parseAssignOperator},
		lexer.TokenType_KeywordOr:      {precedence: precedenceOr, infixParser: parseBinaryOperator},
		lexer.TokenType_KeywordAnd:     {precedence: precedenceAnd, infixParser: parseBinaryOperator},

		lexer.TokenType_OperatorEqual:          {precedence: precedenceEquality, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorNotEqual:       {precedence: precedenceEquality, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorLess:           {precedence: precedenceComparison, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorLessOrEqual:    {precedence: precedenceComparison, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorGreater:        {precedence: precedenceComparison, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorGreaterOrEqual: {precedence: precedenceComparison, infixParser: parseBinaryOperator},

		lexer.TokenType_OperatorBitOr:      {precedence: precedenceBitOr, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorBitXor:     {precedence: precedenceBitXor, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorShiftLeft:  {precedence: precedenceShift, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorShiftRight: {precedence: precedenceShift, infixParser: parseBinaryOperator},

		lexer.TokenType_OperatorPlus:  {precedence: precedenceTerm, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorMinus: {precedence: precedenceTerm, prefixParser: parseUnaryOperator, infixParser: parseBinaryOperator},

		lexer.TokenType_OperatorSlash:   {precedence: precedenceFactor, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorPercent: {precedence: precedenceFactor, infixParser: parseBinaryOperator},

		// '&' is both the address-of prefix and the bitwise-and infix; '*' is
		// both the dereference prefix and the multiplication infix.
		lexer.TokenType_OperatorAmpersand: {precedence: precedenceBitAnd, prefixParser: parseUnaryOperator, infixParser: parseBinaryOperator},
		lexer.TokenType_OperatorStar:      {precedence: precedenceFactor, prefixParser: parseUnaryOperator, infixParser: parseBinaryOperator},

		lexer.TokenType_KeywordAs: {precedence: precedenceUnary, infixParser: parseCastOperator},

		lexer.TokenType_ParenthesisLeft: {precedence: precedencePostfix, prefixParser: parseGrouping, infixParser: parseCallOperator},
		lexer.TokenType_Dot:             {precedence: precedencePostfix, infixParser: parseMemberOperator},
		lexer.TokenType_OperatorPipe:    {precedence: precedencePostfix, infixParser: parsePipeOperator},
	}
}

// expression parses a full expression, including assignments.
func (p *Parser) expression() ast.Expr {
	return p.parsePrecedence(precedenceAssignment)
}

// parsePrecedence implements precedence climbing over exprRules.
// minPrecedence controls operator binding.
func (p *Parser) parsePrecedence(minPrecedence precedence) ast.Expr {
	token := p.advance()
	if token.Type == lexer.TokenType_Error {
		p.errorAt(token, "%s", token.Content)
		return nil
	}
	rule, known := exprRules[token.Type]
	if !known || rule.prefixParser == nil {
		p.errorAt(token, "unexpected token")
		return nil
	}
	left := rule.prefixParser(p, token)

	for left != nil {
		rule, known := exprRules[p.current().Type]
		if !known || rule.infixParser == nil || rule.precedence < minPrecedence {
			return left
		}
		operator := p.advance()
		left = rule.infixParser(p, operator, left)
	}
	return left
}

// rhsPrecedence returns the minimum precedence for the right operand of an
// infix rule: one above for left-associative operators, the same level for
// right-associative ones.
func (r parseRule) rhsPrecedence() precedence {
	if r.rightAssoc {
		return r.precedence
	}
	return r.precedence + 1
}

// --- prefix parsers ---

func parseIntLiteral(p *Parser, token lexer.Token) ast.Expr {
	return &ast.IntLiteral{NodeBase: ast.At(token.Location), Value: token.IntValue}
}

func parseFloatLiteral(p *Parser, token lexer.Token) ast.Expr {
	return &ast.FloatLiteral{NodeBase: ast.At(token.Location), Value: token.FloatValue}
}

func parseStringLiteral(p *Parser, token lexer.Token) ast.Expr {
	return &ast.StringLiteral{
		NodeBase: ast.At(token.Location),
		Value:    lexer.UnescapeString(token.Content),
	}
}

func parseBoolLiteral(p *Parser, token lexer.Token) ast.Expr {
	return &ast.BoolLiteral{
		NodeBase: ast.At(token.Location),
		Value:    token.Type == lexer.TokenType_KeywordTrue,
	}
}

func parseIdentifier(p *Parser, token lexer.Token) ast.Expr {
	switch p.current().Type {
	case lexer.TokenType_ColonColon:
		p.advance()
		variant, ok := p.expect(lexer.TokenType_Identifier, "expected variant name after '::'")
		if !ok {
			return nil
		}
		return &ast.EnumVariantExpr{
			NodeBase:    ast.At(token.Location),
			EnumName:    token.Content,
			VariantName: variant.Content,
		}
	case lexer.TokenType_BraceLeft:
		return p.structInit(token)
	default:
		return &ast.Identifier{NodeBase: ast.At(token.Location), Name: token.Content}
	}
}

// structInit parses `Name { field = expr, … }`. Field order in the literal is
// not significant.
func (p *Parser) structInit(name lexer.Token) ast.Expr {
	node := &ast.StructInit{NodeBase: ast.At(name.Location), Name: name.Content}
	p.advance() // '{'
	p.skipNewlines()
	for !p.check(lexer.TokenType_BraceRight) && !p.atEnd() {
		fieldName, ok := p.expect(lexer.TokenType_Identifier, "expected field name in struct initializer")
		if !ok {
			return node
		}
		if _, ok := p.expect(lexer.TokenType_OperatorAssign, "expected '=' after field name"); !ok {
			return node
		}
		node.Fields = append(node.Fields, &ast.StructInitField{
			NodeBase: ast.At(fieldName.Location),
			Name:     fieldName.Content,
			Value:    p.expression(),
		})
		p.skipNewlines()
		if !p.match(lexer.TokenType_Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_BraceRight, "expected '}' closing struct initializer")
	return node
}

func parseArrayLiteral(p *Parser, token lexer.Token) ast.Expr {
	node := &ast.ArrayInit{NodeBase: ast.At(token.Location)}
	p.skipNewlines()
	for !p.check(lexer.TokenType_BracketRight) && !p.atEnd() {
		node.Elems = append(node.Elems, p.expression())
		p.skipNewlines()
		if !p.match(lexer.TokenType_Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_BracketRight, "expected ']' closing array literal")
	return node
}

func parseGrouping(p *Parser, token lexer.Token) ast.Expr {
	p.skipNewlines()
	expr := p.expression()
	p.skipNewlines()
	p.expect(lexer.TokenType_ParenthesisRight, "expected ')' closing expression")
	return expr
}

func parseUnaryOperator(p *Parser, token lexer.Token) ast.Expr {
	var op ast.UnaryOp
	switch token.Type {
	case lexer.TokenType_OperatorMinus:
		op = ast.UnaryOp_Neg
	case lexer.TokenType_KeywordNot:
		op = ast.UnaryOp_Not
	case lexer.TokenType_OperatorBitNot:
		op = ast.UnaryOp_BitNot
	case lexer.TokenType_OperatorAmpersand:
		op = ast.UnaryOp_AddrOf
	case lexer.TokenType_OperatorStar:
		op = ast.UnaryOp_Deref
	}
	operand := p.parsePrecedence(precedenceUnary)
	if operand == nil {
		return nil
	}
	return &ast.Unary{NodeBase: ast.At(token.Location), Op: op, Operand: operand}
}

// --- infix parsers ---

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenType_OperatorPlus:           ast.BinaryOp_Add,
	lexer.TokenType_OperatorMinus:          ast.BinaryOp_Sub,
	lexer.TokenType_OperatorStar:           ast.BinaryOp_Mul,
	lexer.TokenType_OperatorSlash:          ast.BinaryOp_Div,
	lexer.TokenType_OperatorPercent:        ast.BinaryOp_Mod,
	lexer.TokenType_OperatorEqual:          ast.BinaryOp_Eq,
	lexer.TokenType_OperatorNotEqual:       ast.BinaryOp_NotEq,
	lexer.TokenType_OperatorLess:           ast.BinaryOp_Less,
	lexer.TokenType_OperatorLessOrEqual:    ast.BinaryOp_LessEq,
	lexer.TokenType_OperatorGreater:        ast.BinaryOp_Greater,
	lexer.TokenType_OperatorGreaterOrEqual: ast.BinaryOp_GreaterEq,
	lexer.TokenType_KeywordAnd:             ast.BinaryOp_And,
	lexer.TokenType_KeywordOr:              ast.BinaryOp_Or,
	lexer.TokenType_OperatorAmpersand:      ast.BinaryOp_BitAnd,
	lexer.TokenType_OperatorBitOr:          ast.BinaryOp_BitOr,
	lexer.TokenType_OperatorBitXor:         ast.BinaryOp_BitXor,
	lexer.TokenType_OperatorShiftLeft:      ast.BinaryOp_ShiftLeft,
	lexer.TokenType_OperatorShiftRight:     ast.BinaryOp_ShiftRight,
}

func parseBinaryOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	right := p.parsePrecedence(exprRules[token.Type].rhsPrecedence())
	if right == nil {
		return nil
	}
	return &ast.Binary{
		NodeBase: ast.At(token.Location),
		Op:       binaryOps[token.Type],
		Left:     left,
		Right:    right,
	}
}

func parseAssignOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	switch left.(type) {
	case *ast.Identifier, *ast.Member, *ast.Index:
	default:
		p.errorAt(token, "invalid assignment target")
		return nil
	}
	value := p.parsePrecedence(exprRules[token.Type].rhsPrecedence())
	if value == nil {
		return nil
	}
	return &ast.Assign{NodeBase: ast.At(token.Location), Target: left, Value: value}
}

func parseCastOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	return &ast.Cast{NodeBase: ast.At(token.Location), X: left, Target: p.parseType()}
}

func parseCallOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	node := &ast.Call{NodeBase: ast.At(token.Location), Callee: left}
	node.Args = p.argumentList()
	return node
}

// argumentList parses call arguments after the opening parenthesis, up to
// and including the closing one. Newlines inside the list are insignificant.
func (p *Parser) argumentList() []ast.Expr {
	var args []ast.Expr
	p.skipNewlines()
	for !p.check(lexer.TokenType_ParenthesisRight) && !p.atEnd() {
		args = append(args, p.expression())
		p.skipNewlines()
		if !p.match(lexer.TokenType_Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenType_ParenthesisRight, "expected ')' closing argument list")
	return args
}

func parseMemberOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	name, ok := p.expect(lexer.TokenType_Identifier, "expected member name after '.'")
	if !ok {
		return nil
	}
	return &ast.Member{NodeBase: ast.At(token.Location), Object: left, Name: name.Content}
}

func parseIndexOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	index := p.expression()
	p.expect(lexer.TokenType_BracketRight, "expected ']' closing index expression")
	if index == nil {
		return nil
	}
	return &ast.Index{NodeBase: ast.At(token.Location), Object: left, Idx: index}
}

// parsePipeOperator desugars `x |> f(a, b)` into `f(x, a, b)` and a bare
// `x |> f` into `f(x)`. The pipe chains left-to-right.
func parsePipeOperator(p *Parser, token lexer.Token, left ast.Expr) ast.Expr {
	callee := p.parsePrecedence(precedencePostfix + 1)
	if callee == nil {
		return nil
	}
	for p.match(lexer.TokenType_Dot) {
		name, ok := p.expect(lexer.TokenType_Identifier, "expected member name after '.'")
		if !ok {
			return nil
		}
		callee = &ast.Member{NodeBase: ast.At(name.Location), Object: callee, Name: name.Content}
	}

	call := &ast.Call{NodeBase: ast.At(token.Location), Callee: callee, Args: []ast.Expr{left}}
	if p.match(lexer.TokenType_ParenthesisLeft) {
		call.Args = append(call.Args, p.argumentList()...)
	}
	return call
}
