package poliz

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitReturnsSequentialIPs(t *testing.T) {
	code := New()
	ip0 := code.Emit(PushInt, 1)
	ip1 := code.Emit(Add)
	assert.Equal(t, 0, ip0)
	assert.Equal(t, 1, ip1)
	assert.Equal(t, 2, code.Len())
	assert.Equal(t, Instr{Op: PushInt, Arg1: 1}, code.At(0))
}

func TestEmitJumpAndPatchJump(t *testing.T) {
	code := New()
	placeholder := code.EmitJump(Jump)
	assert.Equal(t, -1, code.At(placeholder).Arg1)

	target := code.Emit(Nop)
	code.PatchJump(placeholder, target)
	assert.Equal(t, target, code.At(placeholder).Arg1)
}

func TestStringPoolInterning(t *testing.T) {
	code := New()
	idx := code.AddString("hello")
	assert.Equal(t, 0, idx)
	assert.Equal(t, "hello", code.GetString(idx))

	idx2 := code.AddString("world")
	assert.Equal(t, 1, idx2)
}

func TestFunctionRegistryRoundTrip(t *testing.T) {
	code := New()
	idx := code.RegisterFunction("add")
	assert.Equal(t, -1, code.Function(idx).EntryIP)

	entry := code.CurrentIP()
	code.SetFunctionEntry(idx, entry, 2)

	meta := code.Function(idx)
	assert.Equal(t, entry, meta.EntryIP)
	assert.Equal(t, 2, meta.ParamCount)
	assert.Equal(t, "add", meta.Name)
}

func TestOpNumArgs(t *testing.T) {
	assert.Equal(t, 1, PushInt.NumArgs())
	assert.Equal(t, 1, Call.NumArgs())
	assert.Equal(t, 0, Add.NumArgs())
	assert.Equal(t, 0, Halt.NumArgs())
}

func TestDumpFormat(t *testing.T) {
	code := New()
	code.Emit(PushInt, 42)
	code.Emit(Halt)
	code.AddString("hi")

	var buf bytes.Buffer
	code.Dump(&buf)
	out := buf.String()
	assert.Contains(t, out, "PUSH_INT 42")
	assert.Contains(t, out, "HALT")
	assert.Contains(t, out, "--- String pool ---")
	assert.Contains(t, out, `0: "hi"`)
}
