package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"poliz/config"
	"poliz/diag"
	"poliz/lexer"
	"poliz/parser"
	"poliz/poliz"
	"poliz/semantic"
	"poliz/token"
	"poliz/vm"
)

// run compiles and executes every source path in turn, printing a
// per-file banner and continuing to the next file on failure, per the
// original multi-file driver loop. It returns the process exit code:
// 0 if every file succeeded, 1 if any failed, 2 if the keyword file
// could not be loaded (no file is run in that case).
func run(opts config.Options, logger zerolog.Logger) int {
	keywords, err := loadKeywords(opts.KeywordFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load keyword file")
		return 2
	}

	exitCode := 0
	for _, path := range opts.SourcePaths {
		logger.Info().Str("file", path).Msg("running")
		if err := runFile(path, keywords, opts, logger); err != nil {
			fmt.Fprintln(os.Stderr, diag.FormatColor(err, os.Stderr))
			exitCode = 1
			continue
		}
	}
	return exitCode
}

func loadKeywords(path string) (map[string]token.Kind, error) {
	if path == "" {
		return token.Keywords, nil
	}
	return lexer.LoadKeywords(path)
}

func runFile(path string, keywords map[string]token.Kind, opts config.Options, logger zerolog.Logger) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	logger.Debug().Str("file", path).Msg("lexing")
	lx, err := lexer.NewWithKeywords(string(src), keywords)
	if err != nil {
		return err
	}

	logger.Debug().Str("file", path).Msg("parsing and emitting")
	sem := semantic.New()
	code := poliz.New()
	p := parser.New(lx, sem, code)
	if err := p.ParseProgram(); err != nil {
		return err
	}

	if opts.Dump {
		code.Dump(os.Stdout)
	}

	logger.Debug().Str("file", path).Msg("executing")
	machine := vm.New(code, vm.NewInputBuffer(os.Stdin), os.Stdout)
	if opts.Trace {
		machine.SetTrace(func(ip int, instr poliz.Instr) {
			logger.Debug().Int("ip", ip).Str("op", instr.Op.String()).Int("arg1", instr.Arg1).Msg("step")
		})
	}
	return machine.Run()
}
