package lexer

import (
	"bufio"
	"fmt"
	"os"

	"poliz/token"
)

// LoadKeywords reads whitespace-delimited words from path and builds a
// keyword table from scratch: a word that exactly matches one of the
// canonical keyword spellings is added to the table under that same
// spelling, and any other word is skipped silently. Grounded on the
// original Lexer::loadKeywordsFromFile, which clears its keyword map
// and repopulates it word-by-word against a fixed if/else-if allowlist
// rather than renaming keywords by position — there is no positional
// or count requirement on the file's contents.
func LoadKeywords(path string) (map[string]token.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading keyword file: %w", err)
	}
	defer f.Close()

	result := make(map[string]token.Kind, len(token.Keywords))
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		word := scanner.Text()
		if kind, ok := token.Keywords[word]; ok {
			result[word] = kind
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}
	return result, nil
}
