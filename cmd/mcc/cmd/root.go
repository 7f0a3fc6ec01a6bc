package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mcc [source]",
	Short: "A small C compiler targeting x86-64",
	Long: `mcc compiles a strict subset of C to x86-64 assembly in Intel syntax.

The accepted subset covers integer and pointer types (with sizeof,
address-of, and dereference), local variables, arithmetic and comparison
operators, assignment, control flow (if/else, while, for, blocks,
return), and function definitions and calls of up to six parameters.

Invoked with a single argument, mcc treats the argument as the program
text and writes the assembly translation unit to standard output:

  mcc 'int main(){ return 42; }' > tmp.s
  cc -o tmp tmp.s && ./tmp`,
	Version:      Version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	Run:          compileArgv,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))
}

// compileArgv is the classic driver surface: exactly one positional
// argument holding the whole program text, assembly on stdout.
func compileArgv(_ *cobra.Command, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "wrong the number of arguments")
		os.Exit(1)
	}

	var buf bytes.Buffer
	if err := compileSource(args[0], &buf); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Print(buf.String())
}
