// Package parser implements the recursive-descent parser and type
// checker. It turns the lexer's token vector into a typed ast.Program.
//
// The grammar is layered lowest-precedence first:
//
//	program    = function*
//	function   = type ident "(" (type ident ("," type ident)*)? ")" "{" stmt* "}"
//	stmt       = "{" stmt* "}"
//	           | type ident ";"
//	           | "return" expr ";"
//	           | "if" "(" expr ")" stmt ("else" stmt)?
//	           | "while" "(" expr ")" stmt
//	           | "for" "(" expr? ";" expr? ";" expr? ")" stmt
//	           | expr ";"
//	expr       = assign
//	assign     = equality ("=" assign)?
//	equality   = relational (("==" | "!=") mul)*
//	relational = add ((">" | "<" | ">=" | "<=") add)*
//	add        = mul (("+" | "-") mul)*
//	mul        = unary (("*" | "/") unary)*
//	unary      = "+" unary | "-" unary | "&" unary | "*" unary
//	           | "sizeof" unary
//	           | primary
//	primary    = "(" expr ")" | ident ("(" args? ")")? | num
//	args       = add ("," add)*
//	type       = "int" "*"*
//
// Parsing is single-pass; the first error aborts with a *ParseError.
package parser

import (
	"fmt"

	"github.com/gomcc/go-mcc/internal/ast"
	"github.com/gomcc/go-mcc/internal/lexer"
	"github.com/gomcc/go-mcc/internal/types"
)

// maxCallArgs is the number of integer argument registers in the
// System V AMD64 calling convention; calls and definitions beyond it
// are rejected.
const maxCallArgs = 6

// ParseError is a fatal parse error. It quotes the offending token.
type ParseError struct {
	Message string
	Lexeme  string
	Pos     lexer.Position
}

// Error implements the error interface with a single-line message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Pos)
}

// Parser holds the cursor into the token vector and the per-function
// scratch state accumulated while a function body is being parsed.
type Parser struct {
	tokens []lexer.Token
	pos    int

	// tempLocals collects the parameters and declared variables of the
	// function currently being parsed. It is drained into the finished
	// ast.Function and cleared at every function boundary.
	tempLocals []*ast.LVar
}

// New creates a Parser over a token vector. The vector must be
// terminated by an EOF token, as produced by lexer.Tokenize.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse is a convenience that tokenizes and parses src in one step.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).ParseProgram()
}

// ParseProgram parses the whole token stream as a list of function
// definitions.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.current().Type != lexer.EOF {
		fn, err := p.function()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// current returns the token under the cursor.
func (p *Parser) current() lexer.Token {
	return p.tokens[p.pos]
}

// consume advances past the current token if its lexeme equals op.
func (p *Parser) consume(op string) bool {
	if p.current().Type != lexer.NUM && p.current().Literal == op {
		p.pos++
		return true
	}
	return false
}

// expect advances past the current token if its lexeme equals op and
// fails otherwise.
func (p *Parser) expect(op string) error {
	if !p.consume(op) {
		return p.errorf("expected %s but got %s", op, lexemeOf(p.current()))
	}
	return nil
}

// expectIdent consumes an identifier token and returns its name.
func (p *Parser) expectIdent() (string, error) {
	tok := p.current()
	if tok.Type != lexer.IDENT {
		return "", p.errorf("expected identifier but got %s", lexemeOf(tok))
	}
	p.pos++
	return tok.Literal, nil
}

// consumeType reads an optional type: "int" followed by any number of
// "*". When no type is present the None sentinel is returned and no
// token is consumed, so a leading "*" still parses as a dereference.
func (p *Parser) consumeType() *types.Type {
	if !p.consume("int") {
		return types.NewNone()
	}
	ty := types.NewInt()
	for p.consume("*") {
		ty = types.PointerTo(ty)
	}
	return ty
}

// findLVar resolves a bare identifier against the current function's
// locals. Referencing an undeclared name is fatal.
func (p *Parser) findLVar(name string) (*ast.LVar, error) {
	for _, lv := range p.tempLocals {
		if lv.Name == name {
			return lv, nil
		}
	}
	return nil, p.errorf("undefined variable %s", name)
}

// declareLVar appends a new local to the current function's scratch
// list and returns it.
func (p *Parser) declareLVar(ty *types.Type, name string) *ast.LVar {
	lv := &ast.LVar{Name: name, Type: ty, Index: len(p.tempLocals)}
	p.tempLocals = append(p.tempLocals, lv)
	return lv
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	tok := p.current()
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Lexeme:  tok.Literal,
		Pos:     tok.Pos,
	}
}

// lexemeOf renders a token for an error message.
func lexemeOf(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.NUM:
		return tok.Literal
	default:
		return tok.Literal
	}
}

// function parses one function definition.
func (p *Parser) function() (*ast.Function, error) {
	ty := p.consumeType()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	fn := &ast.Function{ReturnType: ty, Name: name}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	if !p.consume(")") {
		for {
			paramType := p.consumeType()
			paramName, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			p.declareLVar(paramType, paramName)
			if !p.consume(",") {
				break
			}
		}
		if len(p.tempLocals) > maxCallArgs {
			return nil, p.errorf("too many parameters in definition of %s", name)
		}
		fn.ParamNum = len(p.tempLocals)
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	for !p.consume("}") {
		if p.current().Type == lexer.EOF {
			return nil, p.errorf("expected } but got %s", lexemeOf(p.current()))
		}
		stmt, err := p.stmt()
		if err != nil {
			return nil, err
		}
		typeStmt(stmt)
		fn.Body = append(fn.Body, stmt)
	}

	fn.Locals = p.tempLocals
	p.tempLocals = nil

	return fn, nil
}

// stmt parses a single statement.
func (p *Parser) stmt() (ast.Statement, error) {
	if p.consume("{") {
		block := &ast.BlockStmt{}
		for !p.consume("}") {
			if p.current().Type == lexer.EOF {
				return nil, p.errorf("expected } but got %s", lexemeOf(p.current()))
			}
			inner, err := p.stmt()
			if err != nil {
				return nil, err
			}
			typeStmt(inner)
			block.Statements = append(block.Statements, inner)
		}
		return block, nil
	}

	// A leading type starts a declaration. The declaration flows through
	// the statement stream as a plain reference to the new local.
	if ty := p.consumeType(); ty.Kind != types.None {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		lv := p.declareLVar(ty, name)
		return &ast.ExprStmt{Expr: newVarRef(lv)}, nil
	}

	if p.consume("return") {
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Value: value}, nil
	}

	if p.consume("if") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		then, err := p.stmt()
		if err != nil {
			return nil, err
		}
		node := &ast.IfStmt{Cond: cond, Then: then}
		if p.consume("else") {
			els, err := p.stmt()
			if err != nil {
				return nil, err
			}
			node.Else = els
		}
		return node, nil
	}

	if p.consume("while") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		body, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil
	}

	if p.consume("for") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		node := &ast.ForStmt{}
		if p.current().Literal != ";" {
			init, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Init = init
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		if p.current().Literal != ";" {
			cond, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Cond = cond
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		if p.current().Literal != ")" {
			post, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Post = post
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		body, err := p.stmt()
		if err != nil {
			return nil, err
		}
		node.Body = body
		return node, nil
	}

	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr}, nil
}

// expr parses a full expression.
func (p *Parser) expr() (ast.Expression, error) {
	return p.assign()
}

// assign parses a right-associative assignment chain.
func (p *Parser) assign() (ast.Expression, error) {
	lhs, err := p.equality()
	if err != nil {
		return nil, err
	}
	if p.consume("=") {
		rhs, err := p.assign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

// equality parses == and != chains.
//
// NOTE: the right operand descends to mul, not relational, so parsing
// of an expression like `a == b < c` or `a == b + 1` stops after `b`
// and the enclosing statement fails on the leftover operator.
func (p *Parser) equality() (ast.Expression, error) {
	lhs, err := p.relational()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.consume("=="):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = &ast.BinaryExpr{Op: ast.OpEQ, Lhs: lhs, Rhs: rhs}
		case p.consume("!="):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = &ast.BinaryExpr{Op: ast.OpNE, Lhs: lhs, Rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

// relational parses < > <= >= chains.
func (p *Parser) relational() (ast.Expression, error) {
	lhs, err := p.add()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.consume(">"):
			op = ast.OpGT
		case p.consume("<"):
			op = ast.OpLT
		case p.consume(">="):
			op = ast.OpGE
		case p.consume("<="):
			op = ast.OpLE
		default:
			return lhs, nil
		}
		rhs, err := p.add()
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinaryExpr{Op: op, Lhs: lhs, Rhs: rhs}
	}
}

// add parses + and - chains with the pointer-aware node constructors.
func (p *Parser) add() (ast.Expression, error) {
	lhs, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.consume("+"):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = newAdd(lhs, rhs)
		case p.consume("-"):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = newSub(lhs, rhs)
		default:
			return lhs, nil
		}
	}
}

// mul parses * and / chains.
func (p *Parser) mul() (ast.Expression, error) {
	lhs, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.consume("*"):
			op = ast.OpMul
		case p.consume("/"):
			op = ast.OpDiv
		default:
			return lhs, nil
		}
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinaryExpr{Op: op, Lhs: lhs, Rhs: rhs}
	}
}

// unary parses prefix operators. Unary minus lowers to `0 - operand`.
func (p *Parser) unary() (ast.Expression, error) {
	if p.consume("+") {
		return p.unary()
	}
	if p.consume("-") {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: ast.OpSub, Lhs: newNum(0), Rhs: operand}, nil
	}
	if p.consume("&") {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.AddrExpr{Operand: operand}, nil
	}
	if p.consume("*") {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.DerefExpr{Operand: operand}, nil
	}
	if p.consume("sizeof") {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		addType(operand)
		if operand.Type().IsInteger() {
			return newNum(4), nil
		}
		return newNum(8), nil
	}
	return p.primary()
}

// primary parses a parenthesized expression, a variable reference, a
// function call, or a number literal.
func (p *Parser) primary() (ast.Expression, error) {
	if p.consume("(") {
		node, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return node, nil
	}

	tok := p.current()
	if tok.Type == lexer.IDENT {
		p.pos++
		if p.consume("(") {
			args, err := p.funcArgs(tok.Literal)
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Name: tok.Literal, Args: args}, nil
		}
		lv, err := p.findLVar(tok.Literal)
		if err != nil {
			return nil, err
		}
		return newVarRef(lv), nil
	}

	if tok.Type == lexer.NUM {
		p.pos++
		return newNum(tok.Val), nil
	}

	return nil, p.errorf("expected an expression but got %s", lexemeOf(tok))
}

// funcArgs parses the argument list of a call, the opening parenthesis
// already consumed. Arguments parse at the add level, so an assignment
// in argument position must be parenthesized.
func (p *Parser) funcArgs(name string) ([]ast.Expression, error) {
	var args []ast.Expression
	if p.consume(")") {
		return args, nil
	}
	for {
		arg, err := p.add()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.consume(",") {
			break
		}
	}
	if len(args) > maxCallArgs {
		return nil, p.errorf("too many arguments in call to %s", name)
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}
