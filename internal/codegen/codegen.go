// Package codegen lowers a typed ast.Program to x86-64 assembly in
// Intel syntax for the System V AMD64 calling convention.
//
// Evaluation follows a strict stack-machine discipline: every
// expression pushes exactly one 8-byte value on the machine stack and
// its consumer pops it. Statement lists pop and discard the stack top
// after every statement.
package codegen

import (
	"fmt"
	"io"

	"github.com/gomcc/go-mcc/internal/ast"
	"github.com/gomcc/go-mcc/internal/types"
)

// Argument registers of the System V AMD64 ABI, in declaration order,
// with their 4-byte siblings.
var (
	argRegs64 = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	argRegs32 = []string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
)

// SemanticError is a fatal code generation error, raised when an
// expression that must denote a memory location does not.
type SemanticError struct {
	Message string
}

// Error implements the error interface with a single-line message.
func (e *SemanticError) Error() string {
	return e.Message
}

// Generator emits assembly for one program. The label counter is
// shared across the whole program so that labels never collide; the
// offsets table is rebuilt at every function boundary.
type Generator struct {
	w     io.Writer
	label int

	// offsets maps each local's frame index to its positive byte
	// offset from rbp in the current function.
	offsets []int
}

// New creates a Generator writing to w.
func New(w io.Writer) *Generator {
	return &Generator{w: w}
}

// Generate emits the whole translation unit: the syntax directive
// followed by every function.
func (g *Generator) Generate(prog *ast.Program) error {
	g.printf(".intel_syntax noprefix")
	for _, fn := range prog.Functions {
		if err := g.genFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) printf(format string, args ...any) {
	fmt.Fprintf(g.w, format+"\n", args...)
}

// newLabel returns the next program-wide label number.
func (g *Generator) newLabel() int {
	label := g.label
	g.label++
	return label
}

// assignOffsets lays out the current function's frame. Locals are
// walked in reverse declaration order, each taking the running byte
// total as its offset, so earlier-declared locals (parameters first)
// get the largest offsets, furthest below rbp. The returned total is the raw frame size
// before alignment.
func (g *Generator) assignOffsets(fn *ast.Function) int {
	g.offsets = make([]int, len(fn.Locals))
	stackSize := 0
	for i := len(fn.Locals) - 1; i >= 0; i-- {
		stackSize += fn.Locals[i].Type.Size
		g.offsets[i] = stackSize
	}
	return stackSize
}

func (g *Generator) genFunction(fn *ast.Function) error {
	stackSize := g.assignOffsets(fn)

	g.printf(".global %s", fn.Name)
	g.printf("%s:", fn.Name)

	// Prologue. The frame is 16-byte aligned so that rsp is correctly
	// aligned at every call site below.
	g.printf("  push rbp")
	g.printf("  mov rbp, rsp")
	g.printf("  sub rsp, %d", alignTo(stackSize, 16))

	// Spill incoming argument registers into the parameter slots.
	for i := 0; i < fn.ParamNum; i++ {
		reg := argRegs64[i]
		if fn.Locals[i].Type.Size == 4 {
			reg = argRegs32[i]
		}
		g.printf("  mov [rbp-%d], %s", g.offsets[i], reg)
	}

	for _, stmt := range fn.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
		g.printf("  pop rax")
	}

	g.epilogue()
	return nil
}

// epilogue tears down the frame and returns. Emitted at the natural
// end of every function and at every return statement.
func (g *Generator) epilogue() {
	g.printf("  mov rsp, rbp")
	g.printf("  pop rbp")
	g.printf("  ret")
}

func (g *Generator) genStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return g.genExpr(s.Expr)

	case *ast.ReturnStmt:
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.printf("  pop rax")
		g.epilogue()
		return nil

	case *ast.IfStmt:
		label := g.newLabel()
		if err := g.genExpr(s.Cond); err != nil {
			return err
		}
		g.printf("  pop rax")
		g.printf("  cmp rax, 0")
		if s.Else != nil {
			g.printf("  je .L.else.%d", label)
			if err := g.genStmt(s.Then); err != nil {
				return err
			}
			g.printf("  jmp .L.end.%d", label)
			g.printf(".L.else.%d:", label)
			if err := g.genStmt(s.Else); err != nil {
				return err
			}
			g.printf(".L.end.%d:", label)
		} else {
			g.printf("  je .L.end.%d", label)
			if err := g.genStmt(s.Then); err != nil {
				return err
			}
			g.printf(".L.end.%d:", label)
		}
		return nil

	case *ast.WhileStmt:
		label := g.newLabel()
		g.printf(".L.begin.%d:", label)
		if err := g.genExpr(s.Cond); err != nil {
			return err
		}
		g.printf("  pop rax")
		g.printf("  cmp rax, 0")
		g.printf("  je .L.end.%d", label)
		if err := g.genStmt(s.Body); err != nil {
			return err
		}
		g.printf("  jmp .L.begin.%d", label)
		g.printf(".L.end.%d:", label)
		return nil

	case *ast.ForStmt:
		label := g.newLabel()
		if s.Init != nil {
			if err := g.genExpr(s.Init); err != nil {
				return err
			}
		}
		g.printf(".L.begin.%d:", label)
		if s.Cond != nil {
			if err := g.genExpr(s.Cond); err != nil {
				return err
			}
			g.printf("  pop rax")
			g.printf("  cmp rax, 0")
			g.printf("  je .L.end.%d", label)
		}
		if err := g.genStmt(s.Body); err != nil {
			return err
		}
		if s.Post != nil {
			if err := g.genExpr(s.Post); err != nil {
				return err
			}
		}
		g.printf("  jmp .L.begin.%d", label)
		g.printf(".L.end.%d:", label)
		return nil

	case *ast.BlockStmt:
		for _, inner := range s.Statements {
			if err := g.genStmt(inner); err != nil {
				return err
			}
			g.printf("  pop rax")
		}
		return nil

	default:
		return &SemanticError{Message: fmt.Sprintf("cannot generate statement %T", stmt)}
	}
}

// genLval pushes the address denoted by an lvalue expression.
func (g *Generator) genLval(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.VarRef:
		g.printf("  mov rax, rbp")
		g.printf("  sub rax, %d", g.offsets[e.Var.Index])
		g.printf("  push rax")
		return nil
	case *ast.DerefExpr:
		// The operand's value is the address.
		return g.genExpr(e.Operand)
	default:
		return &SemanticError{Message: fmt.Sprintf("lvalue required but got %s", expr)}
	}
}

// load pops an address off the stack and pushes the sized value read
// from it. 4-byte loads sign-extend to the full register.
func (g *Generator) load(ty *types.Type) {
	g.printf("  pop rax")
	if ty != nil && ty.Size == 4 {
		g.printf("  movsxd rax, dword ptr [rax]")
	} else {
		g.printf("  mov rax, [rax]")
	}
	g.printf("  push rax")
}

func (g *Generator) genExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		g.printf("  push %d", e.Val)
		return nil

	case *ast.VarRef:
		if err := g.genLval(e); err != nil {
			return err
		}
		// An array decays to the address of its first element.
		if e.Var.Type.Kind == types.Arr {
			return nil
		}
		g.load(e.Var.Type)
		return nil

	case *ast.AddrExpr:
		return g.genLval(e.Operand)

	case *ast.DerefExpr:
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		if e.Typ != nil && e.Typ.Kind == types.Arr {
			return nil
		}
		g.load(e.Typ)
		return nil

	case *ast.AssignExpr:
		if err := g.genLval(e.Lhs); err != nil {
			return err
		}
		if err := g.genExpr(e.Rhs); err != nil {
			return err
		}
		g.printf("  pop rdi")
		g.printf("  pop rax")
		if e.Typ != nil && e.Typ.Size == 4 {
			g.printf("  mov [rax], edi")
		} else {
			g.printf("  mov [rax], rdi")
		}
		// The stored value is the value of the whole expression.
		g.printf("  push rdi")
		return nil

	case *ast.CallExpr:
		for _, arg := range e.Args {
			if err := g.genExpr(arg); err != nil {
				return err
			}
		}
		for i := len(e.Args) - 1; i >= 0; i-- {
			g.printf("  pop %s", argRegs64[i])
		}
		g.printf("  call %s", e.Name)
		g.printf("  push rax")
		return nil

	case *ast.BinaryExpr:
		if err := g.genExpr(e.Lhs); err != nil {
			return err
		}
		if err := g.genExpr(e.Rhs); err != nil {
			return err
		}
		g.printf("  pop rdi")
		g.printf("  pop rax")
		g.genBinaryOp(e.Op)
		g.printf("  push rax")
		return nil

	default:
		return &SemanticError{Message: fmt.Sprintf("cannot generate expression %T", expr)}
	}
}

// genBinaryOp emits the operation with both operands already in
// registers: lhs in rax, rhs in rdi. The comparisons are asymmetric on
// purpose — > and >= swap the compare operands instead of using setg.
func (g *Generator) genBinaryOp(op ast.BinaryOp) {
	switch op {
	case ast.OpAdd:
		g.printf("  add rax, rdi")
	case ast.OpSub:
		g.printf("  sub rax, rdi")
	case ast.OpMul:
		g.printf("  imul rax, rdi")
	case ast.OpDiv:
		g.printf("  cqo")
		g.printf("  idiv rdi")
	case ast.OpEQ:
		g.printf("  cmp rax, rdi")
		g.printf("  sete al")
		g.printf("  movzb rax, al")
	case ast.OpNE:
		g.printf("  cmp rax, rdi")
		g.printf("  setne al")
		g.printf("  movzb rax, al")
	case ast.OpLT:
		g.printf("  cmp rax, rdi")
		g.printf("  setl al")
		g.printf("  movzb rax, al")
	case ast.OpLE:
		g.printf("  cmp rax, rdi")
		g.printf("  setle al")
		g.printf("  movzb rax, al")
	case ast.OpGT:
		g.printf("  cmp rdi, rax")
		g.printf("  setl al")
		g.printf("  movzb rax, al")
	case ast.OpGE:
		g.printf("  cmp rdi, rax")
		g.printf("  setle al")
		g.printf("  movzb rax, al")
	}
}

// alignTo returns the smallest multiple of align that is at least
// max(n, align): alignTo(0,16)=16, alignTo(16,16)=16, alignTo(17,16)=32.
func alignTo(n, align int) int {
	if n < align {
		return align
	}
	for n%align != 0 {
		n++
	}
	return n
}
