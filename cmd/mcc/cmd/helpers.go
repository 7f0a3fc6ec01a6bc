package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gomcc/go-mcc/internal/codegen"
	"github.com/gomcc/go-mcc/internal/errors"
	"github.com/gomcc/go-mcc/internal/lexer"
	"github.com/gomcc/go-mcc/internal/parser"
)

// compileSource runs the full lex/parse/generate pipeline over src,
// writing the assembly translation unit to out. Errors come back as
// *errors.CompilerError carrying the source for context rendering.
func compileSource(src string, out io.Writer) error {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return errors.FromError(err, src)
	}

	prog, err := parser.New(tokens).ParseProgram()
	if err != nil {
		return errors.FromError(err, src)
	}

	if err := codegen.New(out).Generate(prog); err != nil {
		return errors.FromError(err, src)
	}
	return nil
}

// readInput resolves a subcommand's input: an inline -e expression
// wins, otherwise the single positional argument names a file.
func readInput(args []string, inline string) (src string, name string, err error) {
	if inline != "" {
		return inline, "<eval>", nil
	}
	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), args[0], nil
	}
	return "", "", fmt.Errorf("either provide a file path or use -e flag for inline code")
}

// reportCompilerError pretty-prints a pipeline error to stderr, with
// source context when the error carries one.
func reportCompilerError(err error) {
	if cerr, ok := err.(*errors.CompilerError); ok {
		fmt.Fprintln(os.Stderr, cerr.Format(true))
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}
