package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	compileExpr    string
	outputFile     string
	compileVerbose bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a source file to x86-64 assembly",
	Long: `Compile a program to x86-64 assembly in Intel syntax.

The assembly is written to standard output unless -o is given. The
result is a complete translation unit ready for a host assembler:

  mcc compile prog.c > prog.s
  cc -o prog prog.s

Examples:
  # Compile a file
  mcc compile prog.c

  # Compile inline code
  mcc compile -e 'int main(){ return 0; }'

  # Compile to a file
  mcc compile prog.c -o prog.s`,
	Args: cobra.MaximumNArgs(1),
	RunE: compileFile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileExpr, "eval", "e", "", "compile inline code instead of reading from file")
	compileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	compileCmd.Flags().BoolVarP(&compileVerbose, "verbose", "v", false, "verbose output")
}

func compileFile(_ *cobra.Command, args []string) error {
	src, name, err := readInput(args, compileExpr)
	if err != nil {
		return err
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", name)
	}

	var buf bytes.Buffer
	if err := compileSource(src, &buf); err != nil {
		reportCompilerError(err)
		return fmt.Errorf("compilation of %s failed", name)
	}

	if outputFile == "" {
		fmt.Print(buf.String())
		return nil
	}
	if err := os.WriteFile(outputFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outputFile, err)
	}
	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Assembly written to %s (%d bytes)\n", outputFile, buf.Len())
	}
	return nil
}
