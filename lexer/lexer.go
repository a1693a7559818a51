// Package lexer implements the external-collaborator Lexer contract
// consumed by the parser: CurrentLexeme/NextLexeme/PeekNextLexeme over
// a stream of tokens with position info and one-token lookahead.
// Scanning style (line-by-line position tracking, byte-classification
// helpers) is grounded on the teacher's Tokenizer.
package lexer

import (
	"fmt"
	"strings"

	"poliz/diag"
	"poliz/token"
	"poliz/util"
)

// Lexer tokenizes source text eagerly into a token stream and exposes
// a one-token-lookahead cursor over it.
type Lexer struct {
	src      string
	pos      int
	line     int
	col      int
	keywords map[string]token.Kind

	tokens []token.Token
	cursor int
}

// New tokenizes src using the canonical keyword set.
func New(src string) (*Lexer, error) {
	return NewWithKeywords(src, token.Keywords)
}

// NewWithKeywords tokenizes src using a caller-supplied keyword set,
// for the optional keyword-file CLI feature.
func NewWithKeywords(src string, keywords map[string]token.Kind) (*Lexer, error) {
	l := &Lexer{src: src, line: 1, col: 1, keywords: keywords}
	if err := l.scanAll(); err != nil {
		return nil, err
	}
	return l, nil
}

// CurrentLexeme inspects the current token without advancing.
func (l *Lexer) CurrentLexeme() token.Token {
	if l.cursor >= len(l.tokens) {
		return l.tokens[len(l.tokens)-1]
	}
	return l.tokens[l.cursor]
}

// NextLexeme advances and returns the new current token.
func (l *Lexer) NextLexeme() token.Token {
	if l.cursor < len(l.tokens)-1 {
		l.cursor++
	}
	return l.CurrentLexeme()
}

// PeekNextLexeme looks one token ahead without advancing.
func (l *Lexer) PeekNextLexeme() token.Token {
	if l.cursor+1 >= len(l.tokens) {
		return l.tokens[len(l.tokens)-1]
	}
	return l.tokens[l.cursor+1]
}

func (l *Lexer) hasMore() bool { return l.pos < len(l.src) }

func (l *Lexer) peekByte() byte {
	if !l.hasMore() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *Lexer) errf(format string, args ...interface{}) error {
	return &diag.LexError{Line: l.line, Column: l.col, Message: fmt.Sprintf(format, args...)}
}

func (l *Lexer) scanAll() error {
	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return err
		}
		if !l.hasMore() {
			l.tokens = append(l.tokens, token.Token{Kind: token.EOF, Line: l.line, Column: l.col})
			return nil
		}
		tok, err := l.scanOne()
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, tok)
	}
}

func (l *Lexer) skipSpaceAndComments() error {
	for l.hasMore() {
		b := l.peekByte()
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			l.advance()
		case b == '/' && l.peekByteAt(1) == '/':
			for l.hasMore() && l.peekByte() != '\n' {
				l.advance()
			}
		case b == '/' && l.peekByteAt(1) == '*':
			l.advance()
			l.advance()
			depth := 1
			for l.hasMore() && depth > 0 {
				if l.peekByte() == '/' && l.peekByteAt(1) == '*' {
					l.advance()
					l.advance()
					depth++
					continue
				}
				if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
					l.advance()
					l.advance()
					depth--
					continue
				}
				l.advance()
			}
			if depth > 0 {
				return l.errf("unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) scanOne() (token.Token, error) {
	startLine, startCol := l.line, l.col
	b := l.peekByte()

	switch {
	case util.IsLetterOrUnderscore(b):
		return l.scanIdentifierOrKeyword(startLine, startCol), nil
	case util.IsNumber(b):
		return l.scanNumber(startLine, startCol)
	case b == '"':
		return l.scanString(startLine, startCol)
	case b == '\'':
		return l.scanChar(startLine, startCol)
	default:
		return l.scanOperatorOrPunct(startLine, startCol)
	}
}

func (l *Lexer) scanIdentifierOrKeyword(line, col int) token.Token {
	start := l.pos
	for l.hasMore() && util.IsLetterOrUnderscoreOrNumber(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	if kind, ok := l.keywords[text]; ok {
		return token.Token{Kind: kind, Lexeme: text, Line: line, Column: col}
	}
	return token.Token{Kind: token.Identifier, Lexeme: text, Line: line, Column: col}
}

func (l *Lexer) scanNumber(line, col int) (token.Token, error) {
	start := l.pos
	for l.hasMore() && util.IsNumber(l.peekByte()) {
		l.advance()
	}
	isFloat := false
	if l.peekByte() == '.' && util.IsNumber(l.peekByteAt(1)) {
		isFloat = true
		l.advance()
		for l.hasMore() && util.IsNumber(l.peekByte()) {
			l.advance()
		}
	}
	text := l.src[start:l.pos]
	if l.hasMore() && (util.IsLetter(l.peekByte()) || l.peekByte() == '.') {
		l.advance()
		return token.Token{}, l.errf("malformed numeric literal near %q", text)
	}
	kind := token.IntLit
	if isFloat {
		kind = token.FloatLit
	}
	return token.Token{Kind: kind, Lexeme: text, Line: line, Column: col}, nil
}

func (l *Lexer) scanString(line, col int) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if !l.hasMore() {
			return token.Token{}, l.errf("unterminated string literal")
		}
		b := l.peekByte()
		if b == '"' {
			l.advance()
			break
		}
		if b == '\n' {
			return token.Token{}, l.errf("unterminated string literal")
		}
		if b == '\\' {
			l.advance()
			sb.WriteByte(unescape(l.advance()))
			continue
		}
		sb.WriteByte(l.advance())
	}
	return token.Token{Kind: token.StringLit, Lexeme: sb.String(), Line: line, Column: col}, nil
}

func (l *Lexer) scanChar(line, col int) (token.Token, error) {
	l.advance() // opening quote
	if !l.hasMore() {
		return token.Token{}, l.errf("unterminated char literal")
	}
	var c byte
	if l.peekByte() == '\\' {
		l.advance()
		c = unescape(l.advance())
	} else {
		c = l.advance()
	}
	if !l.hasMore() || l.peekByte() != '\'' {
		return token.Token{}, l.errf("char literal must contain exactly one character")
	}
	l.advance()
	return token.Token{Kind: token.CharLit, Lexeme: string(c), Line: line, Column: col}, nil
}

func unescape(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return b
	}
}

type opEntry struct {
	text string
	kind token.Kind
}

// ordered longest-first so compound operators are matched before
// their single-character prefixes.
var operators = []opEntry{
	{"==", token.EqualEqual}, {"!=", token.NotEqual},
	{"<=", token.LessEqual}, {">=", token.GreaterEqual},
	{"&&", token.AmpAmp}, {"||", token.PipePipe},
	{"++", token.PlusPlus}, {"--", token.MinusMinus},
	{"<<", token.Shl}, {">>", token.Shr},
	{"(", token.LParen}, {")", token.RParen},
	{"{", token.LBrace}, {"}", token.RBrace},
	{"[", token.LBracket}, {"]", token.RBracket},
	{",", token.Comma}, {";", token.Semicolon},
	{"=", token.Assign}, {"+", token.Plus}, {"-", token.Minus},
	{"*", token.Star}, {"/", token.Slash}, {"%", token.Percent},
	{"&", token.Amp}, {"|", token.Pipe}, {"^", token.Caret}, {"~", token.Tilde},
	{"<", token.Less}, {">", token.Greater}, {"!", token.Bang},
}

func (l *Lexer) scanOperatorOrPunct(line, col int) (token.Token, error) {
	for _, e := range operators {
		if strings.HasPrefix(l.src[l.pos:], e.text) {
			for range e.text {
				l.advance()
			}
			return token.Token{Kind: e.kind, Lexeme: e.text, Line: line, Column: col}, nil
		}
	}
	bad := l.advance()
	return token.Token{}, l.errf("unknown character %q", bad)
}
