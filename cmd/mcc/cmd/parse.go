package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gomcc/go-mcc/internal/ast"
	"github.com/gomcc/go-mcc/internal/errors"
	"github.com/gomcc/go-mcc/internal/parser"
)

var parseExpr string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a source file and dump the typed AST",
	Long: `Parse a program and print an indented rendering of the typed
abstract syntax tree.

This command is useful for debugging the parser and inspecting the
types the inference pass assigns.

Examples:
  # Parse a file
  mcc parse prog.c

  # Parse an inline expression
  mcc parse -e 'int main(){ return 1+2*3; }'`,
	Args: cobra.MaximumNArgs(1),
	RunE: parseSource,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseExpr, "eval", "e", "", "parse inline code instead of reading from file")
}

func parseSource(_ *cobra.Command, args []string) error {
	src, name, err := readInput(args, parseExpr)
	if err != nil {
		return err
	}

	prog, err := parser.Parse(src)
	if err != nil {
		reportCompilerError(errors.FromError(err, src))
		return fmt.Errorf("parsing %s failed", name)
	}

	ast.Fdump(os.Stdout, prog)
	return nil
}
