// Package parser implements the recursive-descent Parser / Code
// Emitter: it drives the Semantic Analyzer and the Bytecode module
// inline as it recognizes constructs, per the single-pass pipeline.
// Helper-method naming (expect/advance/current, syntax error
// construction) is grounded on the teacher's compiler/parser.go;
// the grammar itself and the deferred-lvalue/backpatching mechanics
// follow original_source/parser.cpp and the semantic analyzer design.
package parser

import (
	"poliz/diag"
	"poliz/poliz"
	"poliz/semantic"
	"poliz/symtab"
	"poliz/token"
	"poliz/types"
)

// Lexer is the external collaborator contract the parser consumes:
// inspect the current token, advance, and look one token ahead.
type Lexer interface {
	CurrentLexeme() token.Token
	NextLexeme() token.Token
	PeekNextLexeme() token.Token
}

// LValueKind distinguishes the two forms a deferred lvalue can take.
type LValueKind int

const (
	VarLValue LValueKind = iota
	ArrayElemLValue
)

// LValueDesc defers load/store emission until assignment context is
// known: kind, and the symbol it refers to.
type LValueDesc struct {
	Kind   LValueKind
	Symbol *symtab.Symbol
}

type loopFrame struct {
	breakJumps     []int
	continueTarget int
}

// Parser owns everything it mutates: the semantic analyzer, the
// bytecode being built, the single-slot deferred-lvalue buffer, and
// the loop stack for break/continue. No global state, no singletons.
type Parser struct {
	lex  Lexer
	sem  *semantic.Analyzer
	code *poliz.Bytecode

	lastLValue *LValueDesc
	loops      []*loopFrame
}

func New(lex Lexer, sem *semantic.Analyzer, code *poliz.Bytecode) *Parser {
	return &Parser{lex: lex, sem: sem, code: code}
}

func (p *Parser) cur() token.Token { return p.lex.CurrentLexeme() }

func (p *Parser) advance() token.Token { return p.lex.NextLexeme() }

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok := p.cur()
	if tok.Kind != kind {
		return token.Token{}, p.syntaxErrorHere(kind.String())
	}
	p.advance()
	return tok, nil
}

func (p *Parser) syntaxErrorHere(expected string) error {
	tok := p.cur()
	return &diag.SyntaxError{Line: tok.Line, Column: tok.Column, Expected: expected, Got: tok.Kind.String()}
}

// ParseProgram parses program := { fnDecl } { fnDef } mainFn. The
// program's own JUMP is emitted first and patched to main's entry
// point once main's position is known; declarations and definitions
// are laid out in between, and a HALT closes the program.
func (p *Parser) ParseProgram() error {
	programSkip := p.code.EmitJump(poliz.Jump)

	for p.cur().Kind == token.KwDeclare {
		if err := p.parseFnDecl(); err != nil {
			return err
		}
	}
	for p.isFuncDefStart() {
		if err := p.parseFnDef(); err != nil {
			return err
		}
	}

	if _, err := p.expect(token.KwMain); err != nil {
		return err
	}
	mainEntry := p.code.CurrentIP()
	p.code.PatchJump(programSkip, mainEntry)

	p.sem.EnterFunctionScope(types.Scalar(types.Void))
	if err := p.parseBraceStatements(); err != nil {
		return err
	}
	p.sem.LeaveFunctionScope()

	p.code.Emit(poliz.Halt)

	if p.cur().Kind != token.EOF {
		return p.syntaxErrorHere("end of input")
	}
	return nil
}

// isFuncDefStart reports whether the current position begins a fnDef
// by checking only that the current token is a return-type keyword;
// the identifier and '(' that follow are checked by parseFnDef. This
// disambiguates it from the mainFn production, which starts with the
// "main" keyword rather than a type.
func (p *Parser) isFuncDefStart() bool {
	_, ok := p.sem.GetTypeFromToken(p.cur().Kind)
	return ok
}

func (p *Parser) parseTypeToken() (types.Type, error) {
	typ, ok := p.sem.GetTypeFromToken(p.cur().Kind)
	if !ok {
		return types.Type{}, p.syntaxErrorHere("a type")
	}
	p.advance()
	return typ, nil
}

// parseFnDecl parses fnDecl := "declare" type ident "(" [ type { ","
// type } ] ")" ";" and registers a forward declaration.
func (p *Parser) parseFnDecl() error {
	p.advance() // consume "declare"
	ret, err := p.parseTypeToken()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	var params []types.Type
	if p.cur().Kind != token.RParen {
		for {
			pt, err := p.parseTypeToken()
			if err != nil {
				return err
			}
			params = append(params, pt)
			if p.cur().Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}
	fn, err := p.sem.DeclareFunction(nameTok.Lexeme, ret, params, false, nameTok.Line, nameTok.Column)
	if err != nil {
		return err
	}
	if fn.PolizIndex < 0 {
		fn.PolizIndex = p.code.RegisterFunction(nameTok.Lexeme)
	}
	return nil
}

// parseFnDef parses fnDef := type ident "(" [ param { "," param } ]
// ")" block, per the function definition emission strategy: resolve
// or create the function symbol, emit a skip jump over the body,
// enter function scope, declare parameters as locals occupying slots
// 0..n-1, emit the body, emit a safety-net RET_VOID for void
// functions, then patch the skip jump.
func (p *Parser) parseFnDef() error {
	ret, err := p.parseTypeToken()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	var paramTypes []types.Type
	var paramNames []string
	if p.cur().Kind != token.RParen {
		for {
			pt, err := p.parseTypeToken()
			if err != nil {
				return err
			}
			pnTok, err := p.expect(token.Identifier)
			if err != nil {
				return err
			}
			paramTypes = append(paramTypes, pt)
			paramNames = append(paramNames, pnTok.Lexeme)
			if p.cur().Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}

	fn, err := p.sem.DeclareFunction(nameTok.Lexeme, ret, paramTypes, true, nameTok.Line, nameTok.Column)
	if err != nil {
		return err
	}
	if fn.PolizIndex < 0 {
		fn.PolizIndex = p.code.RegisterFunction(nameTok.Lexeme)
	}

	skip := p.code.EmitJump(poliz.Jump)
	entryIP := p.code.CurrentIP()

	p.sem.EnterFunctionScope(ret)
	for i, name := range paramNames {
		if _, err := p.sem.DeclareVariable(name, paramTypes[i], nameTok.Line, nameTok.Column); err != nil {
			return err
		}
	}
	if err := p.parseBraceStatements(); err != nil {
		return err
	}
	p.sem.LeaveFunctionScope()

	if ret.IsVoid() {
		p.code.Emit(poliz.RetVoid)
	}

	p.code.SetFunctionEntry(fn.PolizIndex, entryIP, len(paramTypes))
	p.code.PatchJump(skip, p.code.CurrentIP())
	return nil
}
