package diag

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIncludesPositionWhenAvailable(t *testing.T) {
	err := &SyntaxError{Line: 3, Column: 7, Expected: "';'", Got: "'}'"}
	assert.Equal(t, "Error at 3:7: expected ';' but got '}'", Format(err))
}

func TestFormatFallsBackWithoutPosition(t *testing.T) {
	err := &RuntimeError{Kind: DivisionByZero, Message: "division by zero"}
	assert.Equal(t, "Error: division by zero", Format(err))
}

func TestFormatColorPlainFileIsUncolored(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "diag")
	assert.NoError(t, err)
	defer f.Close()

	line := FormatColor(&LexError{Line: 1, Column: 1, Message: "bad"}, f)
	assert.Equal(t, "Error at 1:1: bad", line)
}

func TestSemanticErrorPos(t *testing.T) {
	err := &SemanticError{Line: 2, Column: 5, Kind: TypeMismatch, Message: "boom"}
	line, col := err.Pos()
	assert.Equal(t, 2, line)
	assert.Equal(t, 5, col)
}
