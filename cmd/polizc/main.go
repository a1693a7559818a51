// Command polizc compiles and runs one or more poliz source files, in
// the same "thin main, real logic in packages" shape as the teacher's
// compiler/main.go, assembler/main.go and vmtranslator/main.go.
package main

import (
	"os"

	"github.com/rs/zerolog"

	"poliz/config"
)

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isTerminal(os.Stderr)}).With().Timestamp().Logger()

	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		logger.Error().Err(err).Msg("invalid invocation")
		os.Exit(2)
	}

	os.Exit(run(opts, logger))
}
