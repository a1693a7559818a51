package parser

import (
	"math"
	"strconv"

	"poliz/diag"
	"poliz/poliz"
	"poliz/symtab"
	"poliz/token"
)

// finalizeRValue commits a pending deferred lvalue as a genuinely
// realized runtime value: it emits the LOAD instruction the lvalue's
// own parse deferred, and clears the buffer. Called at every
// sub-expression boundary that actually consumes a value: the end of
// a binary operator's left-hand side, the end of an argument, the end
// of a statement.
func (p *Parser) finalizeRValue() {
	if p.lastLValue == nil {
		return
	}
	p.emitLoad(p.lastLValue)
	p.lastLValue = nil
}

// discardPending drops a pending deferred lvalue without emitting the
// load finalizeRValue would: used at statement boundaries where the
// expression's value (a bare variable reference, or the destination
// re-armed after a store) is never actually consumed, so materializing
// it would only waste a stack slot.
func (p *Parser) discardPending() {
	p.lastLValue = nil
}

func (p *Parser) emitLoad(desc *LValueDesc) {
	switch desc.Kind {
	case VarLValue:
		p.code.Emit(poliz.LoadVar, desc.Symbol.Slot)
	case ArrayElemLValue:
		p.code.Emit(poliz.LoadElem, desc.Symbol.Slot)
	}
}

func (p *Parser) emitStore(desc *LValueDesc) {
	switch desc.Kind {
	case VarLValue:
		p.code.Emit(poliz.StoreVar, desc.Symbol.Slot)
	case ArrayElemLValue:
		p.code.Emit(poliz.StoreElem, desc.Symbol.Slot)
	}
}

// parseExpr parses expr := assign { "," assign }. Each comma operand
// but the last is discarded without a load: its pending lvalue is
// dropped via discardPending and its type popped (the comma
// operator's value is its last operand); the final operand is left
// pending exactly as parseAssign leaves it, for the caller's own
// boundary to finalize.
func (p *Parser) parseExpr() error {
	if err := p.parseAssign(); err != nil {
		return err
	}
	for p.cur().Kind == token.Comma {
		p.discardPending()
		p.sem.PopType()
		p.advance()
		if err := p.parseAssign(); err != nil {
			return err
		}
	}
	return nil
}

// parseAssign parses assign := logicalOr [ "=" assign ], right
// associative. It must NOT finalize its left operand before checking
// for "=" — that finalize would emit a load and destroy the pending
// lvalue an assignment needs as its store target.
func (p *Parser) parseAssign() error {
	if err := p.parseLogicalOr(); err != nil {
		return err
	}
	if p.cur().Kind != token.Assign {
		return nil
	}
	if p.lastLValue == nil {
		tok := p.cur()
		return &diag.SemanticError{Line: tok.Line, Column: tok.Column, Kind: diag.InvalidLValue, Message: "left-hand side of '=' is not assignable"}
	}
	desc := p.lastLValue
	p.lastLValue = nil
	line, col := p.cur().Line, p.cur().Column
	p.advance()
	if err := p.parseAssign(); err != nil {
		return err
	}
	p.finalizeRValue()
	if err := p.sem.CheckAssignment(line, col); err != nil {
		return err
	}
	p.emitStore(desc)
	// The assignment's value is the just-stored destination; leave it
	// pending so an enclosing context that actually needs it (chained
	// assignment, a call argument) reloads it via finalizeRValue. A
	// bare assignment statement never finalizes it, so no reload is
	// ever emitted for the common `x = expr;` case.
	p.lastLValue = desc
	return nil
}

func (p *Parser) parseLogicalOr() error {
	if err := p.parseLogicalAnd(); err != nil {
		return err
	}
	for p.cur().Kind == token.PipePipe {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseLogicalAnd(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		p.code.Emit(poliz.LogOr)
	}
	return nil
}

func (p *Parser) parseLogicalAnd() error {
	if err := p.parseBitOr(); err != nil {
		return err
	}
	for p.cur().Kind == token.AmpAmp {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseBitOr(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		p.code.Emit(poliz.LogAnd)
	}
	return nil
}

func (p *Parser) parseBitOr() error {
	if err := p.parseBitXor(); err != nil {
		return err
	}
	for p.cur().Kind == token.Pipe {
		p.finalizeRValue()
		line, col := p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseBitXor(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(token.Pipe, line, col); err != nil {
			return err
		}
		p.code.Emit(poliz.Or)
	}
	return nil
}

func (p *Parser) parseBitXor() error {
	if err := p.parseBitAnd(); err != nil {
		return err
	}
	for p.cur().Kind == token.Caret {
		p.finalizeRValue()
		line, col := p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseBitAnd(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(token.Caret, line, col); err != nil {
			return err
		}
		p.code.Emit(poliz.Xor)
	}
	return nil
}

func (p *Parser) parseBitAnd() error {
	if err := p.parseEquality(); err != nil {
		return err
	}
	for p.cur().Kind == token.Amp {
		p.finalizeRValue()
		line, col := p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseEquality(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(token.Amp, line, col); err != nil {
			return err
		}
		p.code.Emit(poliz.And)
	}
	return nil
}

func (p *Parser) parseEquality() error {
	if err := p.parseRelational(); err != nil {
		return err
	}
	for p.cur().Kind == token.EqualEqual || p.cur().Kind == token.NotEqual {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseRelational(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		p.emitCompareOp(op)
	}
	return nil
}

func (p *Parser) parseRelational() error {
	if err := p.parseShift(); err != nil {
		return err
	}
	for isRelOp(p.cur().Kind) {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseShift(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		p.emitCompareOp(op)
	}
	return nil
}

func isRelOp(k token.Kind) bool {
	return k == token.Less || k == token.Greater || k == token.LessEqual || k == token.GreaterEqual
}

func (p *Parser) parseShift() error {
	if err := p.parseAdditive(); err != nil {
		return err
	}
	for p.cur().Kind == token.Shl || p.cur().Kind == token.Shr {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseAdditive(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		if op == token.Shl {
			p.code.Emit(poliz.Shl)
		} else {
			p.code.Emit(poliz.Shr)
		}
	}
	return nil
}

func (p *Parser) parseAdditive() error {
	if err := p.parseMultiplicative(); err != nil {
		return err
	}
	for p.cur().Kind == token.Plus || p.cur().Kind == token.Minus {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseMultiplicative(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		if op == token.Plus {
			p.code.Emit(poliz.Add)
		} else {
			p.code.Emit(poliz.Sub)
		}
	}
	return nil
}

func (p *Parser) parseMultiplicative() error {
	if err := p.parseUnary(); err != nil {
		return err
	}
	for p.cur().Kind == token.Star || p.cur().Kind == token.Slash || p.cur().Kind == token.Percent {
		p.finalizeRValue()
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckBinaryOp(op, line, col); err != nil {
			return err
		}
		switch op {
		case token.Star:
			p.code.Emit(poliz.Mul)
		case token.Slash:
			p.code.Emit(poliz.Div)
		case token.Percent:
			p.code.Emit(poliz.Mod)
		}
	}
	return nil
}

func (p *Parser) emitCompareOp(op token.Kind) {
	switch op {
	case token.EqualEqual:
		p.code.Emit(poliz.CmpEq)
	case token.NotEqual:
		p.code.Emit(poliz.CmpNe)
	case token.Less:
		p.code.Emit(poliz.CmpLt)
	case token.Greater:
		p.code.Emit(poliz.CmpGt)
	case token.LessEqual:
		p.code.Emit(poliz.CmpLe)
	case token.GreaterEqual:
		p.code.Emit(poliz.CmpGe)
	}
}

// parseUnary parses unary := ("-"|"!"|"~") unary | ("++"|"--") unary
// | primary.
func (p *Parser) parseUnary() error {
	switch p.cur().Kind {
	case token.Minus, token.Bang, token.Tilde:
		op, line, col := p.cur().Kind, p.cur().Line, p.cur().Column
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.finalizeRValue()
		if err := p.sem.CheckUnaryOp(op, line, col); err != nil {
			return err
		}
		switch op {
		case token.Minus:
			p.code.Emit(poliz.Neg)
		case token.Bang:
			p.code.Emit(poliz.Not)
		case token.Tilde:
			p.code.Emit(poliz.BNot)
		}
		return nil
	case token.PlusPlus, token.MinusMinus:
		return p.parsePrefixIncDec()
	default:
		return p.parsePrimary()
	}
}

// parsePrefixIncDec implements ++x/--x as a read-modify-write: the
// operand must be a pending lvalue (not yet loaded); it is loaded,
// incremented/decremented, and stored back, then left pending so an
// enclosing context that needs the new value can reload it.
func (p *Parser) parsePrefixIncDec() error {
	isInc := p.cur().Kind == token.PlusPlus
	line, col := p.cur().Line, p.cur().Column
	p.advance()
	if err := p.parseUnary(); err != nil {
		return err
	}
	if p.lastLValue == nil {
		return &diag.SemanticError{Line: line, Column: col, Kind: diag.InvalidLValue, Message: "++/-- requires an assignable operand"}
	}
	desc := p.lastLValue
	p.lastLValue = nil
	if err := p.sem.CheckUnaryOp(tokenForIncDec(isInc), line, col); err != nil {
		return err
	}
	p.emitLoad(desc)
	p.code.Emit(poliz.PushInt, 1)
	if isInc {
		p.code.Emit(poliz.Add)
	} else {
		p.code.Emit(poliz.Sub)
	}
	p.emitStore(desc)
	p.lastLValue = desc
	return nil
}

func tokenForIncDec(isInc bool) token.Kind {
	if isInc {
		return token.PlusPlus
	}
	return token.MinusMinus
}

// parsePrimary parses primary := "(" expr ")" | literal | ident
// ["(" args ")"] | ident ["[" expr "]"].
func (p *Parser) parsePrimary() error {
	tok := p.cur()
	switch tok.Kind {
	case token.LParen:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		_, err := p.expect(token.RParen)
		return err

	case token.IntLit, token.FloatLit, token.CharLit, token.StringLit, token.KwTrue, token.KwFalse:
		return p.parseLiteral()

	case token.Identifier:
		p.advance()
		if p.cur().Kind == token.LParen {
			return p.parseCall(tok)
		}
		sym, err := p.sem.LookupVariable(tok.Lexeme, tok.Line, tok.Column)
		if err != nil {
			return err
		}
		if p.cur().Kind == token.LBracket {
			return p.parseArrayIndex(tok, sym)
		}
		p.sem.PushType(sym.Type)
		p.lastLValue = &LValueDesc{Kind: VarLValue, Symbol: sym}
		return nil

	default:
		return p.syntaxErrorHere("an expression")
	}
}

// parseArrayIndex parses the "[" expr "]" suffix of an lvalue. If the
// index is syntactically a bare integer literal and the array's size
// is statically known, its range is checked at compile time.
func (p *Parser) parseArrayIndex(baseTok token.Token, sym *symtab.Symbol) error {
	line, col := p.cur().Line, p.cur().Column
	p.advance() // consume "["

	idxTok := p.cur()
	literalIdx := idxTok.Kind == token.IntLit && p.lex.PeekNextLexeme().Kind == token.RBracket

	if err := p.parseExpr(); err != nil {
		return err
	}
	p.finalizeRValue()

	if literalIdx && sym.Type.IsArray && sym.Type.ArraySize > 0 {
		v, err := strconv.Atoi(idxTok.Lexeme)
		if err == nil {
			if err := p.sem.CheckArrayIndexLiteral(sym.Type.ArraySize, v, idxTok.Line, idxTok.Column); err != nil {
				return err
			}
		}
	}

	elemType, err := p.sem.CheckArrayAccess(sym.Type, line, col)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return err
	}
	p.sem.PushType(elemType)
	p.lastLValue = &LValueDesc{Kind: ArrayElemLValue, Symbol: sym}
	return nil
}

func (p *Parser) parseLiteral() error {
	tok := p.cur()
	p.advance()
	switch tok.Kind {
	case token.IntLit:
		v, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			return &diag.SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "a valid integer literal", Got: tok.Lexeme}
		}
		p.code.Emit(poliz.PushInt, int(v))
	case token.FloatLit:
		v, err := strconv.ParseFloat(tok.Lexeme, 32)
		if err != nil {
			return &diag.SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "a valid float literal", Got: tok.Lexeme}
		}
		bits := int(math.Float32bits(float32(v)))
		p.code.Emit(poliz.PushFloat, bits)
	case token.CharLit:
		p.code.Emit(poliz.PushChar, int(tok.Lexeme[0]))
	case token.StringLit:
		idx := p.code.AddString(tok.Lexeme)
		p.code.Emit(poliz.PushString, idx)
	case token.KwTrue:
		p.code.Emit(poliz.PushBool, 1)
	case token.KwFalse:
		p.code.Emit(poliz.PushBool, 0)
	}
	p.sem.PushType(p.sem.GetLiteralType(tok.Kind))
	return nil
}

// parseCall parses call := ident "(" [ assign { "," assign } ] ")"
// and emits CALL against the resolved overload's registry index.
func (p *Parser) parseCall(nameTok token.Token) error {
	if err := p.sem.LookupFunctionDeclared(nameTok.Lexeme, nameTok.Line, nameTok.Column); err != nil {
		return err
	}
	p.sem.BeginFunctionCall(nameTok.Lexeme)
	p.advance() // consume "("
	if p.cur().Kind != token.RParen {
		for {
			if err := p.parseAssign(); err != nil {
				return err
			}
			p.finalizeRValue()
			p.sem.AddCallArg()
			if p.cur().Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	fn, err := p.sem.EndFunctionCall(nameTok.Line, nameTok.Column)
	if err != nil {
		return err
	}
	p.code.Emit(poliz.Call, fn.PolizIndex)
	return nil
}
