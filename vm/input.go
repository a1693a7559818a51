package vm

import (
	"bufio"
	"io"

	"poliz/diag"
)

// InputBuffer reads whitespace-delimited tokens from an underlying
// reader, matching the external-collaborator contract consumed by
// READ_*: next() -> String, fatal on exhaustion. Grounded on the
// original InputBuffer, which uses istream's >> operator; here that
// is bufio.Scanner in ScanWords mode.
type InputBuffer struct {
	scanner *bufio.Scanner
}

func NewInputBuffer(r io.Reader) *InputBuffer {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &InputBuffer{scanner: s}
}

// Next reads and returns the next whitespace-delimited token. It is
// fatal (a RuntimeError) if the input is exhausted.
func (b *InputBuffer) Next() (string, error) {
	if !b.scanner.Scan() {
		if err := b.scanner.Err(); err != nil {
			return "", &diag.RuntimeError{Kind: diag.InvalidInput, Message: err.Error()}
		}
		return "", &diag.RuntimeError{Kind: diag.InvalidInput, Message: "input exhausted"}
	}
	return b.scanner.Text(), nil
}
