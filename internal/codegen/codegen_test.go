package codegen

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomcc/go-mcc/internal/parser"
)

// compile runs the full pipeline over src and returns the assembly.
func compile(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, New(&sb).Generate(prog))
	return sb.String()
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	var sb strings.Builder
	genErr := New(&sb).Generate(prog)
	require.Error(t, genErr)
	return genErr
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		n, align, want int
	}{
		{0, 16, 16},
		{1, 16, 16},
		{8, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{31, 16, 32},
		{32, 16, 32},
		{33, 16, 48},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alignTo(tt.n, tt.align), "alignTo(%d, %d)", tt.n, tt.align)
	}
}

func TestReturnZero(t *testing.T) {
	want := `.intel_syntax noprefix
.global main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  push 0
  pop rax
  mov rsp, rbp
  pop rbp
  ret
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`
	assert.Equal(t, want, compile(t, "int main(){ return 0; }"))
}

func TestEmptyFunctionBody(t *testing.T) {
	want := `.intel_syntax noprefix
.global nop
nop:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  mov rsp, rbp
  pop rbp
  ret
`
	assert.Equal(t, want, compile(t, "int nop(){}"))
}

func TestPointerReadWrite(t *testing.T) {
	want := `.intel_syntax noprefix
.global main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  mov rax, rbp
  sub rax, 12
  push rax
  pop rax
  movsxd rax, dword ptr [rax]
  push rax
  pop rax
  mov rax, rbp
  sub rax, 8
  push rax
  pop rax
  mov rax, [rax]
  push rax
  pop rax
  mov rax, rbp
  sub rax, 12
  push rax
  push 3
  pop rdi
  pop rax
  mov [rax], edi
  push rdi
  pop rax
  mov rax, rbp
  sub rax, 8
  push rax
  mov rax, rbp
  sub rax, 12
  push rax
  pop rdi
  pop rax
  mov [rax], rdi
  push rdi
  pop rax
  mov rax, rbp
  sub rax, 8
  push rax
  pop rax
  mov rax, [rax]
  push rax
  push 5
  pop rdi
  pop rax
  mov [rax], edi
  push rdi
  pop rax
  mov rax, rbp
  sub rax, 12
  push rax
  pop rax
  movsxd rax, dword ptr [rax]
  push rax
  pop rax
  mov rsp, rbp
  pop rbp
  ret
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`
	assert.Equal(t, want, compile(t, "int main(){ int x; int *y; x=3; y=&x; *y=5; return x; }"))
}

func TestIfElseLabels(t *testing.T) {
	want := `.intel_syntax noprefix
.global main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  push 1
  pop rax
  cmp rax, 0
  je .L.else.0
  push 2
  pop rax
  mov rsp, rbp
  pop rbp
  ret
  jmp .L.end.0
.L.else.0:
  push 3
  pop rax
  mov rsp, rbp
  pop rbp
  ret
.L.end.0:
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`
	assert.Equal(t, want, compile(t, "int main(){ if (1) return 2; else return 3; }"))
}

func TestIfWithoutElseUsesEndLabelOnly(t *testing.T) {
	asm := compile(t, "int main(){ if (0) return 1; return 2; }")
	assert.Contains(t, asm, "je .L.end.0")
	assert.NotContains(t, asm, ".L.else.")
}

func TestWhileShape(t *testing.T) {
	asm := compile(t, "int main(){ int i; i=0; while(i<10) i=i+1; return i; }")
	begin := strings.Index(asm, ".L.begin.0:")
	cond := strings.Index(asm, "je .L.end.0")
	back := strings.Index(asm, "jmp .L.begin.0")
	end := strings.Index(asm, ".L.end.0:")

	require.GreaterOrEqual(t, begin, 0)
	assert.Greater(t, cond, begin)
	assert.Greater(t, back, cond)
	assert.Greater(t, end, back)
}

func TestForShape(t *testing.T) {
	asm := compile(t, "int main(){ int i; int s; s=0; for(i=0;i<=10;i=i+1) s=s+i; return s; }")
	assert.Contains(t, asm, ".L.begin.0:")
	assert.Contains(t, asm, "je .L.end.0")
	assert.Contains(t, asm, "jmp .L.begin.0")
	assert.Contains(t, asm, ".L.end.0:")
	assert.Contains(t, asm, "setle al")
}

func TestForWithoutClauses(t *testing.T) {
	asm := compile(t, "int main(){ for(;;) return 1; }")
	assert.Contains(t, asm, ".L.begin.0:")
	assert.Contains(t, asm, "jmp .L.begin.0")
	// No condition, no exit test.
	assert.NotContains(t, asm, "je .L.end.0")
	assert.Contains(t, asm, ".L.end.0:")
}

// labelDefs collects the label definition lines of an assembly text.
func labelDefs(asm string) []string {
	var defs []string
	for _, line := range strings.Split(asm, "\n") {
		if strings.HasPrefix(line, ".L.") && strings.HasSuffix(line, ":") {
			defs = append(defs, line)
		}
	}
	return defs
}

func TestNestedLabelsNeverCollide(t *testing.T) {
	asm := compile(t, `int main(){
		if (1) if (2) if (3) 4;
		while (0) 1;
		for (;;) return 0;
	}`)

	defs := labelDefs(asm)
	require.NotEmpty(t, defs)

	seen := map[string]bool{}
	for _, def := range defs {
		require.False(t, seen[def], "duplicate label %s", def)
		seen[def] = true
	}

	// Of the three nested ifs, the innermost gets the highest number.
	assert.Contains(t, asm, ".L.end.2:")
}

func TestSequentialConstructsCountUp(t *testing.T) {
	asm := compile(t, "int main(){ if (1) 2; while (0) 1; for (;;) return 0; }")

	var nums []int
	for _, def := range labelDefs(asm) {
		dot := strings.LastIndex(def, ".")
		n, err := strconv.Atoi(strings.TrimSuffix(def[dot+1:], ":"))
		require.NoError(t, err, "label %s", def)
		nums = append(nums, n)
	}
	require.NotEmpty(t, nums)
	assert.IsNonDecreasing(t, nums)

	// if -> 0, while -> 1, for -> 2.
	assert.Contains(t, asm, ".L.end.0:")
	assert.Contains(t, asm, ".L.begin.1:")
	assert.Contains(t, asm, ".L.begin.2:")
}

func TestLabelCounterSpansFunctions(t *testing.T) {
	asm := compile(t, "int f(){ if (1) 2; return 0; } int main(){ if (1) 2; return 0; }")
	assert.Contains(t, asm, ".L.end.0:")
	assert.Contains(t, asm, ".L.end.1:")
}

func TestStackLayoutReverseOrder(t *testing.T) {
	// Two int locals: the later-declared sits at the smaller offset.
	asm := compile(t, "int main(){ int a; int b; a=1; b=2; return 0; }")
	// a=1 writes through offset 8, b=2 through offset 4.
	aStore := strings.Index(asm, "sub rax, 8\n  push rax\n  push 1")
	bStore := strings.Index(asm, "sub rax, 4\n  push rax\n  push 2")
	assert.GreaterOrEqual(t, aStore, 0)
	assert.GreaterOrEqual(t, bStore, 0)
}

func TestFrameSizeIsAligned(t *testing.T) {
	// 3 ints = 12 bytes -> 16.
	asm := compile(t, "int main(){ int a; int b; int c; return 0; }")
	assert.Contains(t, asm, "sub rsp, 16")

	// 4 ints + 1 pointer = 24 bytes -> 32.
	asm = compile(t, "int main(){ int a; int b; int c; int d; int *p; return 0; }")
	assert.Contains(t, asm, "sub rsp, 32")
}

func TestParameterSpill(t *testing.T) {
	asm := compile(t, "int f(int a,int b,int c,int d,int e,int g){ return 0; }")
	wantOrder := []string{
		"  mov [rbp-24], edi",
		"  mov [rbp-20], esi",
		"  mov [rbp-16], edx",
		"  mov [rbp-12], ecx",
		"  mov [rbp-8], r8d",
		"  mov [rbp-4], r9d",
	}
	last := -1
	for _, line := range wantOrder {
		idx := strings.Index(asm, line)
		require.GreaterOrEqual(t, idx, 0, "missing %q", line)
		assert.Greater(t, idx, last, "%q out of order", line)
		last = idx
	}
	assert.Contains(t, asm, "sub rsp, 32")
}

func TestPointerParameterSpills8Bytes(t *testing.T) {
	asm := compile(t, "int f(int *p){ return *p; }")
	assert.Contains(t, asm, "mov [rbp-8], rdi")
	assert.NotContains(t, asm, "mov [rbp-8], edi")
}

func TestCallArgumentRegisters(t *testing.T) {
	asm := compile(t, "int main(){ return foo(1, 2, 3); }")
	idx := strings.Index(asm, "  push 1\n  push 2\n  push 3\n  pop rdx\n  pop rsi\n  pop rdi\n  call foo\n  push rax")
	assert.GreaterOrEqual(t, idx, 0)
}

func TestCallNoArguments(t *testing.T) {
	asm := compile(t, "int main(){ return ret3()+ret3(); }")
	assert.Contains(t, asm, "  call ret3\n  push rax\n  call ret3\n  push rax\n  pop rdi\n  pop rax\n  add rax, rdi")
}

func TestBinaryOperatorTable(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int main(){ return 1+2; }", "  add rax, rdi"},
		{"int main(){ return 1-2; }", "  sub rax, rdi"},
		{"int main(){ return 2*3; }", "  imul rax, rdi"},
		{"int main(){ return 6/2; }", "  cqo\n  idiv rdi"},
		{"int main(){ return 1==2; }", "  cmp rax, rdi\n  sete al\n  movzb rax, al"},
		{"int main(){ return 1!=2; }", "  cmp rax, rdi\n  setne al\n  movzb rax, al"},
		{"int main(){ return 1<2; }", "  cmp rax, rdi\n  setl al\n  movzb rax, al"},
		{"int main(){ return 1<=2; }", "  cmp rax, rdi\n  setle al\n  movzb rax, al"},
		{"int main(){ return 1>2; }", "  cmp rdi, rax\n  setl al\n  movzb rax, al"},
		{"int main(){ return 1>=2; }", "  cmp rdi, rax\n  setle al\n  movzb rax, al"},
	}
	for _, tt := range tests {
		assert.Contains(t, compile(t, tt.src), tt.want, tt.src)
	}
}

func TestUnaryMinus(t *testing.T) {
	asm := compile(t, "int main(){ return -5; }")
	assert.Contains(t, asm, "  push 0\n  push 5\n  pop rdi\n  pop rax\n  sub rax, rdi")
}

func TestAddressOfAndDeref(t *testing.T) {
	asm := compile(t, "int main(){ int x; x=7; return *(&x); }")
	// &x pushes the slot address; * loads through it with a 4-byte
	// sign-extending read.
	assert.Contains(t, asm, "movsxd rax, dword ptr [rax]")
}

func TestBlockPopsBetweenStatements(t *testing.T) {
	asm := compile(t, "int main(){ { 1; 2; } return 0; }")
	assert.Contains(t, asm, "  push 1\n  pop rax\n  push 2\n  pop rax")
}

func TestLvalueErrors(t *testing.T) {
	err := compileErr(t, "int main(){ 1 = 2; }")
	var serr *SemanticError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message, "lvalue required")

	err = compileErr(t, "int main(){ return &1; }")
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message, "lvalue required")

	err = compileErr(t, "int main(){ int x; (x+1) = 2; }")
	require.ErrorAs(t, err, &serr)
}
