package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gomcc/go-mcc/internal/errors"
	"github.com/gomcc/go-mcc/internal/lexer"
)

var (
	lexExpr  string
	showPos  bool
	showType bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a source file or expression",
	Long: `Tokenize (lex) a program and print the resulting tokens.

This command is useful for debugging the lexer and understanding how
source code is tokenized.

Examples:
  # Tokenize a file
  mcc lex prog.c

  # Tokenize an inline expression
  mcc lex -e 'int main(){ return 1+2; }'

  # Show token types and positions
  mcc lex --show-type --show-pos prog.c`,
	Args: cobra.MaximumNArgs(1),
	RunE: lexSource,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&lexExpr, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&showType, "show-type", false, "show token type names")
}

func lexSource(_ *cobra.Command, args []string) error {
	src, name, err := readInput(args, lexExpr)
	if err != nil {
		return err
	}

	tokens, err := lexer.Tokenize(src)
	if err != nil {
		reportCompilerError(errors.FromError(err, src))
		return fmt.Errorf("tokenizing %s failed", name)
	}

	for _, tok := range tokens {
		printToken(tok)
	}
	return nil
}

func printToken(tok lexer.Token) {
	var output string

	if showType {
		output = fmt.Sprintf("[%-8s]", tok.Type)
	}

	if tok.Type == lexer.EOF {
		output += " EOF"
	} else {
		output += fmt.Sprintf(" %q", tok.Literal)
	}

	if showPos {
		output += fmt.Sprintf(" @%s", tok.Pos)
	}

	fmt.Println(output)
}
