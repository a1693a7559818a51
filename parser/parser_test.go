package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"poliz/lexer"
	"poliz/poliz"
	"poliz/semantic"
	"poliz/vm"
)

// compileAndRun parses src end to end and executes it, returning
// stdout. It fails the test immediately on a compile error so callers
// only assert on output.
func compileAndRun(t *testing.T, src, stdin string) string {
	t.Helper()
	lx, err := lexer.New(src)
	assert.NoError(t, err)

	sem := semantic.New()
	code := poliz.New()
	p := New(lx, sem, code)
	assert.NoError(t, p.ParseProgram())

	var out bytes.Buffer
	machine := vm.New(code, vm.NewInputBuffer(strings.NewReader(stdin)), &out)
	assert.NoError(t, machine.Run())
	return out.String()
}

func compileError(t *testing.T, src string) error {
	t.Helper()
	lx, err := lexer.New(src)
	assert.NoError(t, err)
	p := New(lx, semantic.New(), poliz.New())
	return p.ParseProgram()
}

func TestArithmeticExpressionAndPrint(t *testing.T) {
	out := compileAndRun(t, `main { print(2 + 3 * 4); }`, "")
	assert.Equal(t, "14\n", out)
}

func TestVariableDeclarationAssignmentAndIfElse(t *testing.T) {
	src := `main {
		int x;
		x = 10;
		if (x > 5) {
			print(1);
		} else {
			print(0);
		}
	}`
	assert.Equal(t, "1\n", compileAndRun(t, src, ""))
}

func TestWhileLoopWithBreak(t *testing.T) {
	src := `main {
		int i;
		i = 0;
		while (i < 10) {
			if (i == 3) {
				break;
			}
			print(i);
			i = i + 1;
		}
	}`
	assert.Equal(t, "0\n1\n2\n", compileAndRun(t, src, ""))
}

func TestForLoopSum(t *testing.T) {
	src := `main {
		int i;
		int total;
		total = 0;
		for (i = 0; i < 5; i = i + 1) {
			total = total + i;
		}
		print(total);
	}`
	assert.Equal(t, "10\n", compileAndRun(t, src, ""))
}

func TestFunctionOverloadResolution(t *testing.T) {
	src := `
	declare int add(int, int);
	declare float add(float, float);

	int add(int a, int b) {
		return a + b;
	}

	float add(float a, float b) {
		return a + b;
	}

	main {
		print(add(2, 3));
	}
	`
	assert.Equal(t, "5\n", compileAndRun(t, src, ""))
}

// TestFunctionDefinitionRegistersInPolizFunctionTable exercises
// parseFnDef against a real poliz.Bytecode and inspects the resulting
// function registry directly, rather than only observing correct
// output: a bad PolizIndex sentinel would either panic during parsing
// (poliz.Bytecode.Function/SetFunctionEntry on an unregistered index)
// or silently alias every function onto registry slot 0.
func TestFunctionDefinitionRegistersInPolizFunctionTable(t *testing.T) {
	src := `
	int inc(int x) {
		return x + 1;
	}

	int dec(int x) {
		return x - 1;
	}

	main {
		print(inc(4));
		print(dec(4));
	}
	`
	lx, err := lexer.New(src)
	assert.NoError(t, err)

	sem := semantic.New()
	code := poliz.New()
	p := New(lx, sem, code)
	assert.NoError(t, p.ParseProgram())

	inc := sem.Overloads("inc")
	assert.Len(t, inc, 1)
	dec := sem.Overloads("dec")
	assert.Len(t, dec, 1)

	assert.NotEqual(t, inc[0].PolizIndex, dec[0].PolizIndex)

	incMeta := code.Function(inc[0].PolizIndex)
	assert.Equal(t, "inc", incMeta.Name)
	assert.Equal(t, 1, incMeta.ParamCount)
	assert.GreaterOrEqual(t, incMeta.EntryIP, 0)

	decMeta := code.Function(dec[0].PolizIndex)
	assert.Equal(t, "dec", decMeta.Name)
	assert.Equal(t, 1, decMeta.ParamCount)
	assert.NotEqual(t, incMeta.EntryIP, decMeta.EntryIP)

	var out bytes.Buffer
	machine := vm.New(code, vm.NewInputBuffer(strings.NewReader("")), &out)
	assert.NoError(t, machine.Run())
	assert.Equal(t, "5\n3\n", out.String())
}

func TestReadAndEcho(t *testing.T) {
	src := `main {
		int x;
		read(x);
		print(x * 2);
	}`
	assert.Equal(t, "84\n", compileAndRun(t, src, "42"))
}

func TestArrayDeclarationAndIndexing(t *testing.T) {
	src := `main {
		int arr[3];
		arr[0] = 10;
		arr[1] = 20;
		arr[2] = arr[0] + arr[1];
		print(arr[2]);
	}`
	assert.Equal(t, "30\n", compileAndRun(t, src, ""))
}

func TestArrayLiteralIndexOutOfRangeIsCompileError(t *testing.T) {
	err := compileError(t, `main { int arr[3]; arr[5] = 1; }`)
	assert.Error(t, err)
}

func TestChainedAssignmentReloadsStoredValue(t *testing.T) {
	src := `main {
		int a;
		int b;
		a = b = 7;
		print(a);
		print(b);
	}`
	assert.Equal(t, "7\n7\n", compileAndRun(t, src, ""))
}

func TestPrefixIncrementAndDecrement(t *testing.T) {
	src := `main {
		int x;
		x = 5;
		print(++x);
		print(--x);
	}`
	assert.Equal(t, "6\n5\n", compileAndRun(t, src, ""))
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	err := compileError(t, `main { break; }`)
	assert.Error(t, err)
}

func TestAssignmentTypeMismatchIsCompileError(t *testing.T) {
	err := compileError(t, `main { bool b; b = 3.5; }`)
	assert.Error(t, err)
}

func TestElifIsRejectedAsAStatement(t *testing.T) {
	err := compileError(t, `main { if (1) { } elif (0) { } }`)
	assert.Error(t, err)
}

func TestUndeclaredVariableIsCompileError(t *testing.T) {
	err := compileError(t, `main { x = 1; }`)
	assert.Error(t, err)
}

func TestReadIntoArrayElementIsCompileError(t *testing.T) {
	err := compileError(t, `main { int arr[3]; read(arr[0]); }`)
	assert.Error(t, err)
}
