// Package config parses the command-line surface into run options,
// using the standard library flag package the same way the teacher's
// three command-line entry points do (compiler/main.go,
// assembler/main.go, vmtranslator/main.go), rather than adopting a CLI
// framework for a surface this small.
package config

import (
	"flag"
	"fmt"
)

// Options holds one invocation's configuration: the source files to
// compile and run, an optional external keyword file (see
// lexer.LoadKeywords), and the two diagnostic flags.
type Options struct {
	SourcePaths []string
	KeywordFile string
	Dump        bool
	Trace       bool
}

// Parse builds Options from args (typically os.Args[1:]). At least
// one source path is required.
func Parse(args []string) (Options, error) {
	fs := flag.NewFlagSet("polizc", flag.ContinueOnError)
	keywordFile := fs.String("keywords", "", "path to a keyword file: whitespace-delimited words, matched by name against the builtin keywords")
	dump := fs.Bool("dump", false, "print the bytecode dump after a successful parse")
	trace := fs.Bool("trace", false, "log every VM instruction as it executes")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	paths := fs.Args()
	if len(paths) == 0 {
		return Options{}, fmt.Errorf("usage: polizc [-keywords file] [-dump] [-trace] source.pz [more...]")
	}

	return Options{
		SourcePaths: paths,
		KeywordFile: *keywordFile,
		Dump:        *dump,
		Trace:       *trace,
	}, nil
}
