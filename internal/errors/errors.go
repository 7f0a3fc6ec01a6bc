// Package errors renders compiler diagnostics. The compiler itself
// reports single-line errors; this package classifies them and can
// additionally format them with source context and a caret pointing at
// the offending lexeme for terminal output.
package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gomcc/go-mcc/internal/codegen"
	"github.com/gomcc/go-mcc/internal/lexer"
	"github.com/gomcc/go-mcc/internal/parser"
)

// Kind classifies a diagnostic by the phase that produced it.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindSemantic
	KindArg
)

// String returns the kind's display name.
func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindParse:
		return "parse error"
	case KindSemantic:
		return "semantic error"
	case KindArg:
		return "argument error"
	default:
		return "error"
	}
}

// CompilerError is a single fatal compilation error with optional
// position and source context.
type CompilerError struct {
	Kind    Kind
	Message string
	Source  string
	Pos     lexer.Position // zero when the error has no location
}

// New creates a compiler error with position and source context.
func New(kind Kind, pos lexer.Position, message, source string) *CompilerError {
	return &CompilerError{Kind: kind, Pos: pos, Message: message, Source: source}
}

// FromError classifies a phase error into a CompilerError, attaching
// the source text for context rendering. Unknown error values are
// wrapped as semantic errors without a position.
func FromError(err error, source string) *CompilerError {
	switch e := err.(type) {
	case *lexer.Error:
		return New(KindLex, e.Pos, fmt.Sprintf("%s %q", e.Message, e.Lexeme), source)
	case *parser.ParseError:
		return New(KindParse, e.Pos, e.Message, source)
	case *codegen.SemanticError:
		return New(KindSemantic, lexer.Position{}, e.Message, source)
	default:
		return New(KindSemantic, lexer.Position{}, err.Error(), source)
	}
}

// Error implements the error interface with the single stderr line the
// compiler's contract requires.
func (e *CompilerError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s at %s", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Format renders the error with the offending source line and a caret
// under the offending column. With colorize set, the caret and message
// are highlighted for terminals.
func (e *CompilerError) Format(colorize bool) string {
	caret := color.New(color.FgRed, color.Bold)
	bold := color.New(color.Bold)
	if !colorize {
		caret.DisableColor()
		bold.DisableColor()
	}

	var sb strings.Builder

	if e.Pos.Line > 0 {
		fmt.Fprintf(&sb, "%s at line %s\n", e.Kind, e.Pos)
		if line := e.sourceLine(e.Pos.Line); line != "" {
			prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", len(prefix)+e.Pos.Column-1))
			sb.WriteString(caret.Sprint("^"))
			sb.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&sb, "%s\n", e.Kind)
	}

	sb.WriteString(bold.Sprint(e.Message))
	return sb.String()
}

// sourceLine extracts a 1-indexed line from the source text.
func (e *CompilerError) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}
