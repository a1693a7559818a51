package lexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"poliz/token"
)

func kindsOf(t *testing.T, src string) []token.Kind {
	t.Helper()
	lx, err := New(src)
	assert.NoError(t, err)

	var kinds []token.Kind
	for {
		kinds = append(kinds, lx.CurrentLexeme().Kind)
		if lx.CurrentLexeme().Kind == token.EOF {
			break
		}
		lx.NextLexeme()
	}
	return kinds
}

func TestScanIdentifiersAndKeywords(t *testing.T) {
	kinds := kindsOf(t, "int x while")
	assert.Equal(t, []token.Kind{token.KwInt, token.Identifier, token.KwWhile, token.EOF}, kinds)
}

func TestScanIntAndFloatLiterals(t *testing.T) {
	lx, err := New("42 3.14")
	assert.NoError(t, err)
	assert.Equal(t, "42", lx.CurrentLexeme().Lexeme)
	assert.Equal(t, token.IntLit, lx.CurrentLexeme().Kind)
	lx.NextLexeme()
	assert.Equal(t, token.FloatLit, lx.CurrentLexeme().Kind)
	assert.Equal(t, "3.14", lx.CurrentLexeme().Lexeme)
}

func TestScanMalformedNumberErrors(t *testing.T) {
	_, err := New("3.14.15")
	assert.Error(t, err)
}

func TestScanStringWithEscapes(t *testing.T) {
	lx, err := New(`"a\nb"`)
	assert.NoError(t, err)
	assert.Equal(t, token.StringLit, lx.CurrentLexeme().Kind)
	assert.Equal(t, "a\nb", lx.CurrentLexeme().Lexeme)
}

func TestScanUnterminatedStringErrors(t *testing.T) {
	_, err := New(`"abc`)
	assert.Error(t, err)
}

func TestScanCharLiteral(t *testing.T) {
	lx, err := New(`'x'`)
	assert.NoError(t, err)
	assert.Equal(t, token.CharLit, lx.CurrentLexeme().Kind)
	assert.Equal(t, "x", lx.CurrentLexeme().Lexeme)
}

func TestScanCharLiteralTooLongErrors(t *testing.T) {
	_, err := New(`'xy'`)
	assert.Error(t, err)
}

func TestOperatorsPreferLongestMatch(t *testing.T) {
	kinds := kindsOf(t, "== != <= >= && || ++ -- << >> = < >")
	want := []token.Kind{
		token.EqualEqual, token.NotEqual, token.LessEqual, token.GreaterEqual,
		token.AmpAmp, token.PipePipe, token.PlusPlus, token.MinusMinus,
		token.Shl, token.Shr, token.Assign, token.Less, token.Greater, token.EOF,
	}
	assert.Equal(t, want, kinds)
}

func TestSkipsLineAndBlockComments(t *testing.T) {
	kinds := kindsOf(t, "int // trailing comment\nfloat /* block\ncomment */ bool")
	assert.Equal(t, []token.Kind{token.KwInt, token.KwFloat, token.KwBool, token.EOF}, kinds)
}

func TestNestedBlockComments(t *testing.T) {
	kinds := kindsOf(t, "int /* outer /* inner */ still-outer */ float")
	assert.Equal(t, []token.Kind{token.KwInt, token.KwFloat, token.EOF}, kinds)
}

func TestUnterminatedBlockCommentErrors(t *testing.T) {
	_, err := New("int /* unterminated")
	assert.Error(t, err)
}

func TestUnknownCharacterErrors(t *testing.T) {
	_, err := New("int x @ y")
	assert.Error(t, err)
}

func TestPeekNextLexemeDoesNotAdvance(t *testing.T) {
	lx, err := New("int x")
	assert.NoError(t, err)
	assert.Equal(t, token.KwInt, lx.CurrentLexeme().Kind)
	assert.Equal(t, token.Identifier, lx.PeekNextLexeme().Kind)
	assert.Equal(t, token.KwInt, lx.CurrentLexeme().Kind)
}

func TestCursorClampsAtEOF(t *testing.T) {
	lx, err := New("x")
	assert.NoError(t, err)
	lx.NextLexeme()
	assert.Equal(t, token.EOF, lx.CurrentLexeme().Kind)
	lx.NextLexeme()
	assert.Equal(t, token.EOF, lx.CurrentLexeme().Kind)
	assert.Equal(t, token.EOF, lx.PeekNextLexeme().Kind)
}

func TestLoadKeywordsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.txt")
	// mixes canonical spellings with unrelated words; only the
	// canonical ones are picked up, order and surrounding noise don't
	// matter since matching is by name, not by position.
	content := "int main\nsome unrelated prose here\nwhile print\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	keywords, err := LoadKeywords(path)
	assert.NoError(t, err)
	assert.Equal(t, token.KwInt, keywords["int"])
	assert.Equal(t, token.KwMain, keywords["main"])
	assert.Equal(t, token.KwWhile, keywords["while"])
	assert.Equal(t, token.KwPrint, keywords["print"])
	assert.NotContains(t, keywords, "unrelated")
	assert.NotContains(t, keywords, "prose")

	lx, err := NewWithKeywords("int x", keywords)
	assert.NoError(t, err)
	assert.Equal(t, token.KwInt, lx.CurrentLexeme().Kind)
}

func TestLoadKeywordsSkipsUnmatchedWordsWithoutError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.txt")
	assert.NoError(t, os.WriteFile(path, []byte("notakeyword\nalsonot\n"), 0o644))

	keywords, err := LoadKeywords(path)
	assert.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestLoadKeywordsMissingFileFails(t *testing.T) {
	_, err := LoadKeywords(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Error(t, err)
}
