package parser

import (
	"strconv"

	"poliz/diag"
	"poliz/poliz"
	"poliz/token"
	"poliz/types"
)

// parseBraceStatements parses "{" stmt* "}" without opening a fresh
// scope of its own — used both for a bare block statement (which
// pushes its own scope first) and for a function body (whose scope IS
// the function's activation scope, entered by the caller).
func (p *Parser) parseBraceStatements() error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}
	for p.cur().Kind != token.RBrace {
		if err := p.parseStmt(); err != nil {
			return err
		}
	}
	_, err := p.expect(token.RBrace)
	return err
}

func (p *Parser) parseStmt() error {
	switch p.cur().Kind {
	case token.KwInt, token.KwFloat, token.KwChar, token.KwBool:
		return p.parseDeclStmt()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwReturn:
		return p.parseReturnStmt()
	case token.KwPrint:
		return p.parsePrintStmt()
	case token.KwRead:
		return p.parseReadStmt()
	case token.KwBreak:
		return p.parseBreakStmt()
	case token.KwContinue:
		return p.parseContinueStmt()
	case token.KwElif:
		return p.syntaxErrorHere("'if' (elif is reserved but not a statement form)")
	case token.LBrace:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseBlock() error {
	p.sem.EnterScope()
	err := p.parseBraceStatements()
	p.sem.LeaveScope()
	return err
}

// parseDeclStmt parses declStmt := type ident ["[" intLit "]"] ";".
// No bytecode is emitted: a declared slot only becomes live on its
// first store.
func (p *Parser) parseDeclStmt() error {
	typ, err := p.parseTypeToken()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	if p.cur().Kind == token.LBracket {
		p.advance()
		sizeTok, err := p.expect(token.IntLit)
		if err != nil {
			return err
		}
		size, convErr := strconv.Atoi(sizeTok.Lexeme)
		if convErr != nil {
			return &diag.SyntaxError{Line: sizeTok.Line, Column: sizeTok.Column, Expected: "an integer array size", Got: sizeTok.Lexeme}
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return err
		}
		if _, err := p.sem.DeclareArray(nameTok.Lexeme, typ, size, nameTok.Line, nameTok.Column); err != nil {
			return err
		}
	} else {
		if _, err := p.sem.DeclareVariable(nameTok.Lexeme, typ, nameTok.Line, nameTok.Column); err != nil {
			return err
		}
	}
	_, err = p.expect(token.Semicolon)
	return err
}

// parseExprStmt parses exprStmt := expr ";". The expression's value
// is left unconsumed by design (the closed opcode set has no POP): a
// pending lvalue (a bare reference, or a destination re-armed after a
// store) is dropped rather than finalized, so a plain "x = expr;"
// statement emits no load beyond its store. The type stack is
// rebalanced regardless, since PushType/PopType is compile-time only.
func (p *Parser) parseExprStmt() error {
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.discardPending()
	p.sem.PopType()
	_, err := p.expect(token.Semicolon)
	return err
}

func (p *Parser) parseCondition() error {
	line, col := p.cur().Line, p.cur().Column
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.finalizeRValue()
	return p.sem.CheckCondition(line, col)
}

// parseIfStmt parses ifStmt := "if" "(" expr ")" stmt [ "else" stmt ].
func (p *Parser) parseIfStmt() error {
	p.advance() // consume "if"
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if err := p.parseCondition(); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	jFalse := p.code.EmitJump(poliz.JumpIfFalse)
	if err := p.parseStmt(); err != nil {
		return err
	}
	if p.cur().Kind == token.KwElse {
		p.advance()
		jEnd := p.code.EmitJump(poliz.Jump)
		p.code.PatchJump(jFalse, p.code.CurrentIP())
		if err := p.parseStmt(); err != nil {
			return err
		}
		p.code.PatchJump(jEnd, p.code.CurrentIP())
	} else {
		p.code.PatchJump(jFalse, p.code.CurrentIP())
	}
	return nil
}

// parseWhileStmt parses whileStmt := "while" "(" expr ")" stmt.
func (p *Parser) parseWhileStmt() error {
	p.advance() // consume "while"
	lStart := p.code.CurrentIP()
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if err := p.parseCondition(); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	jEnd := p.code.EmitJump(poliz.JumpIfFalse)

	loop := &loopFrame{continueTarget: lStart}
	p.loops = append(p.loops, loop)
	if err := p.parseStmt(); err != nil {
		return err
	}
	p.loops = p.loops[:len(p.loops)-1]

	p.code.Emit(poliz.Jump, lStart)
	lEnd := p.code.CurrentIP()
	p.code.PatchJump(jEnd, lEnd)
	for _, j := range loop.breakJumps {
		p.code.PatchJump(j, lEnd)
	}
	return nil
}

// parseForStmt parses forStmt := "for" "(" [expr] ";" [expr] ";"
// [expr] ")" stmt. The classic three-jump layout evaluates the
// condition, jumps into the body (skipping the step on the first
// pass), then loops step -> condition -> body.
func (p *Parser) parseForStmt() error {
	p.advance() // consume "for"
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}

	if p.cur().Kind != token.Semicolon {
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.discardPending()
		p.sem.PopType()
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	lCond := p.code.CurrentIP()
	if p.cur().Kind != token.Semicolon {
		if err := p.parseCondition(); err != nil {
			return err
		}
	} else {
		p.code.Emit(poliz.PushBool, 1)
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}
	jEnd := p.code.EmitJump(poliz.JumpIfFalse)
	jToBody := p.code.EmitJump(poliz.Jump)

	lStep := p.code.CurrentIP()
	if p.cur().Kind != token.RParen {
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.discardPending()
		p.sem.PopType()
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	p.code.Emit(poliz.Jump, lCond)

	lBody := p.code.CurrentIP()
	p.code.PatchJump(jToBody, lBody)

	loop := &loopFrame{continueTarget: lStep}
	p.loops = append(p.loops, loop)
	if err := p.parseStmt(); err != nil {
		return err
	}
	p.loops = p.loops[:len(p.loops)-1]

	p.code.Emit(poliz.Jump, lStep)
	lEnd := p.code.CurrentIP()
	p.code.PatchJump(jEnd, lEnd)
	for _, j := range loop.breakJumps {
		p.code.PatchJump(j, lEnd)
	}
	return nil
}

func (p *Parser) parseBreakStmt() error {
	tok := p.cur()
	p.advance()
	if len(p.loops) == 0 {
		return &diag.SemanticError{Line: tok.Line, Column: tok.Column, Kind: diag.BreakOrContinueOutsideLoop, Message: "'break' outside a loop"}
	}
	j := p.code.EmitJump(poliz.Jump)
	loop := p.loops[len(p.loops)-1]
	loop.breakJumps = append(loop.breakJumps, j)
	_, err := p.expect(token.Semicolon)
	return err
}

func (p *Parser) parseContinueStmt() error {
	tok := p.cur()
	p.advance()
	if len(p.loops) == 0 {
		return &diag.SemanticError{Line: tok.Line, Column: tok.Column, Kind: diag.BreakOrContinueOutsideLoop, Message: "'continue' outside a loop"}
	}
	loop := p.loops[len(p.loops)-1]
	p.code.Emit(poliz.Jump, loop.continueTarget)
	_, err := p.expect(token.Semicolon)
	return err
}

// parseReturnStmt parses returnStmt := "return" [expr] ";".
func (p *Parser) parseReturnStmt() error {
	tok := p.cur()
	p.advance()
	if p.cur().Kind == token.Semicolon {
		if err := p.sem.CheckReturn(false, tok.Line, tok.Column); err != nil {
			return err
		}
		p.code.Emit(poliz.RetVoid)
		p.advance()
		return nil
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.finalizeRValue()
	if err := p.sem.CheckReturn(true, tok.Line, tok.Column); err != nil {
		return err
	}
	p.code.Emit(poliz.RetValue)
	_, err := p.expect(token.Semicolon)
	return err
}

// parsePrintStmt parses printStmt := "print" "(" expr ")" ";".
func (p *Parser) parsePrintStmt() error {
	tok := p.cur()
	p.advance()
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.finalizeRValue()
	if err := p.sem.CheckPrint(tok.Line, tok.Column); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	p.code.Emit(poliz.Print)
	_, err := p.expect(token.Semicolon)
	return err
}

// parseReadStmt parses readStmt := "read" "(" ident ")" ";" — the
// target must be a bare scalar variable, never an array element.
func (p *Parser) parseReadStmt() error {
	p.advance() // consume "read"
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	sym, err := p.sem.LookupVariable(nameTok.Lexeme, nameTok.Line, nameTok.Column)
	if err != nil {
		return err
	}
	if err := p.sem.CheckRead(sym.Type, nameTok.Line, nameTok.Column); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	p.code.Emit(readOpFor(sym.Type))
	p.code.Emit(poliz.StoreVar, sym.Slot)
	_, err = p.expect(token.Semicolon)
	return err
}

func readOpFor(t types.Type) poliz.Op {
	switch t.Base {
	case types.Float:
		return poliz.ReadFloat
	case types.Bool:
		return poliz.ReadBool
	case types.Char:
		return poliz.ReadChar
	default:
		return poliz.ReadInt
	}
}
