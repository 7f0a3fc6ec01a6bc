package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gomcc/go-mcc/internal/errors"
)

var (
	promptColor = color.New(color.FgGreen)
	asmColor    = color.New(color.FgYellow)
	infoColor   = color.New(color.FgCyan)
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive compile loop",
	Long: `Start an interactive loop that compiles one program per line and
prints the generated assembly (or the diagnostic) immediately.

Line editing and history navigation are available. Exit with "exit",
"quit", or Ctrl-D.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(_ *cobra.Command, _ []string) error {
	rl, err := readline.New(promptColor.Sprint("mcc> "))
	if err != nil {
		return fmt.Errorf("failed to start repl: %w", err)
	}
	defer rl.Close()

	infoColor.Printf("mcc %s interactive mode\n", Version)
	infoColor.Println("Type a whole program on one line, e.g.  int main(){ return 42; }")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		var buf bytes.Buffer
		if err := compileSource(input, &buf); err != nil {
			if cerr, ok := err.(*errors.CompilerError); ok {
				fmt.Println(cerr.Format(true))
			} else {
				fmt.Println(err.Error())
			}
			continue
		}
		asmColor.Print(buf.String())
	}
}
