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

package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/EngFlow/nullc/internal/ast"
)

// --- pass 3: function bodies ---

func (b *Builder) emitBodies(program *ast.Program) {
	for _, decl := range program.Decls {
		if d, isFn := decl.(*ast.FnDecl); isFn && d.Body != nil {
			b.emitFunction(d)
		}
	}
}

// emitFunction creates the entry block, spills every parameter into a stack
// slot (loads are inserted at each use) and emits the body. A fall-through
// end of function gets an implicit return.
func (b *Builder) emitFunction(d *ast.FnDecl) {
	b.fn = b.functions[d.Name]
	b.fnReturn = d.ReturnType
	b.block = b.fn.NewBlock("")
	b.loops = nil
	b.pushScope()
	defer func() {
		b.popScope()
		b.fn = nil
		b.block = nil
	}()

	for i, param := range d.Params {
		irParam := b.fn.Params[i]
		slot := b.block.NewAlloca(irParam.Type())
		b.block.NewStore(irParam, slot)
		b.defineSymbol(param.Name, &symbolValue{
			value:           slot,
			elemType:        irParam.Type(),
			astType:         param.ResolvedType(),
			isPointerBacked: true,
		})
	}

	b.emitStmts(d.Body.Stmts)

	// Implicit return on fall-through.
	if b.block != nil && b.block.Term == nil {
		if d.ReturnType == nil || d.ReturnType.Kind == ast.TypeKind_Void {
			b.block.NewRet(nil)
		} else {
			b.block.NewRet(zeroValue(b.lowerType(d, d.ReturnType)))
		}
	}
}

// emitStmts stops at the first statement that terminated the current block;
// code after a return/break/continue is unreachable and dropped.
func (b *Builder) emitStmts(stmts []ast.Node) {
	for _, stmt := range stmts {
		if b.block == nil {
			return
		}
		b.emitStmt(stmt)
	}
}

func (b *Builder) emitStmt(node ast.Node) {
	switch stmt := node.(type) {
	case *ast.VarDecl:
		b.emitVarDecl(stmt)

	case *ast.Assign:
		b.emitAssign(stmt)

	case *ast.ExprStmt:
		b.emitExpr(stmt.X)

	case *ast.Return:
		b.emitReturn(stmt)

	case *ast.Break:
		if len(b.loops) == 0 {
			b.errorAt(stmt, "'break' outside of a loop")
			return
		}
		b.block.NewBr(b.loops[len(b.loops)-1].breakTarget)
		b.block = nil

	case *ast.Continue:
		if len(b.loops) == 0 {
			b.errorAt(stmt, "'continue' outside of a loop")
			return
		}
		b.block.NewBr(b.loops[len(b.loops)-1].continueTarget)
		b.block = nil

	case *ast.If:
		b.emitIf(stmt)

	case *ast.While:
		b.emitWhile(stmt)

	case *ast.For:
		b.emitFor(stmt)

	case *ast.Block:
		b.pushScope()
		b.emitStmts(stmt.Stmts)
		b.popScope()

	case nil:
	default:
	}
}

func (b *Builder) emitVarDecl(d *ast.VarDecl) {
	varType := d.ResolvedType()
	lowered := b.lowerType(d, varType)
	slot := b.block.NewAlloca(lowered)

	if d.Init != nil {
		init := b.emitExpr(d.Init)
		if init == nil {
			return
		}
		init = b.coerce(d, init, varType)
		b.block.NewStore(init, slot)
	} else {
		b.block.NewStore(zeroValue(lowered), slot)
	}

	b.defineSymbol(d.Name, &symbolValue{
		value:           slot,
		elemType:        lowered,
		astType:         varType,
		isPointerBacked: true,
	})
}

func (b *Builder) emitReturn(stmt *ast.Return) {
	if stmt.Value == nil {
		b.block.NewRet(nil)
		b.block = nil
		return
	}
	result := b.emitExpr(stmt.Value)
	if result == nil {
		return
	}
	result = b.coerce(stmt, result, b.fnReturn)
	b.block.NewRet(result)
	b.block = nil
}

// emitIf lowers the then/else/merge diamond; elif chains arrive as nested if
// nodes in the else slot and unroll into a cascade.
func (b *Builder) emitIf(stmt *ast.If) {
	cond := b.emitExpr(stmt.Cond)
	if cond == nil {
		return
	}

	thenBlock := b.fn.NewBlock("")
	mergeBlock := b.fn.NewBlock("")
	elseBlock := mergeBlock
	if stmt.Else != nil {
		elseBlock = b.fn.NewBlock("")
	}
	b.block.NewCondBr(cond, thenBlock, elseBlock)

	b.block = thenBlock
	b.pushScope()
	b.emitStmts(stmt.Then.Stmts)
	b.popScope()
	if b.block != nil && b.block.Term == nil {
		b.block.NewBr(mergeBlock)
	}

	if stmt.Else != nil {
		b.block = elseBlock
		b.pushScope()
		switch elseNode := stmt.Else.(type) {
		case *ast.If:
			b.emitIf(elseNode)
		case *ast.Block:
			b.emitStmts(elseNode.Stmts)
		}
		b.popScope()
		if b.block != nil && b.block.Term == nil {
			b.block.NewBr(mergeBlock)
		}
	}

	b.block = mergeBlock
}

func (b *Builder) emitWhile(stmt *ast.While) {
	condBlock := b.fn.NewBlock("")
	bodyBlock := b.fn.NewBlock("")
	endBlock := b.fn.NewBlock("")

	b.block.NewBr(condBlock)

	b.block = condBlock
	cond := b.emitExpr(stmt.Cond)
	if cond == nil {
		return
	}
	b.block.NewCondBr(cond, bodyBlock, endBlock)

	b.loops = append(b.loops, loopTargets{breakTarget: endBlock, continueTarget: condBlock})
	b.block = bodyBlock
	b.pushScope()
	b.emitStmts(stmt.Body.Stmts)
	b.popScope()
	if b.block != nil && b.block.Term == nil {
		b.block.NewBr(condBlock)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.block = endBlock
}

// emitFor lowers `for i in start..end` over cond/body/inc/end blocks; the
// iterator lives in a stack slot, `continue` targets the increment block.
func (b *Builder) emitFor(stmt *ast.For) {
	start := b.emitExpr(stmt.Start)
	if start == nil {
		return
	}
	end := b.emitExpr(stmt.End)
	if end == nil {
		return
	}

	iterType := b.lowerType(stmt, stmt.ResolvedType())
	intType, isInt := iterType.(*types.IntType)
	if !isInt {
		intType = types.I64
	}
	start = b.coerceToIntType(start, intType)
	end = b.coerceToIntType(end, intType)

	slot := b.block.NewAlloca(intType)
	b.block.NewStore(start, slot)

	condBlock := b.fn.NewBlock("")
	bodyBlock := b.fn.NewBlock("")
	incBlock := b.fn.NewBlock("")
	endBlock := b.fn.NewBlock("")

	b.block.NewBr(condBlock)

	b.block = condBlock
	current := b.block.NewLoad(intType, slot)
	cond := b.block.NewICmp(enum.IPredSLT, current, end)
	b.block.NewCondBr(cond, bodyBlock, endBlock)

	b.loops = append(b.loops, loopTargets{breakTarget: endBlock, continueTarget: incBlock})
	b.block = bodyBlock
	b.pushScope()
	b.defineSymbol(stmt.Var, &symbolValue{
		value:           slot,
		elemType:        intType,
		astType:         stmt.ResolvedType(),
		isPointerBacked: true,
	})
	b.emitStmts(stmt.Body.Stmts)
	b.popScope()
	if b.block != nil && b.block.Term == nil {
		b.block.NewBr(incBlock)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.block = incBlock
	loaded := b.block.NewLoad(intType, slot)
	next := b.block.NewAdd(loaded, constant.NewInt(intType, 1))
	b.block.NewStore(next, slot)
	b.block.NewBr(condBlock)

	b.block = endBlock
}
