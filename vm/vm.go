// Package vm implements the stack virtual machine that executes
// finished bytecode: a single value stack, call frames sharing that
// stack with no separate locals area, arithmetic promotion, and I/O.
// Grounded on the original VM's struct shape (Frame, Value, base,
// callStack) and struct-grouping style from the pack's other bytecode
// VM examples.
package vm

import (
	"fmt"
	"io"
	"strconv"

	"poliz/diag"
	"poliz/poliz"
)

type frame struct {
	returnIP       int
	savedBase      int
	savedStackSize int
}

// VM executes a finished Bytecode program against a value stack and
// an external InputBuffer. It owns everything it mutates.
type VM struct {
	code  *poliz.Bytecode
	input *InputBuffer
	out   io.Writer

	stack     []Value
	ip        int
	base      int
	callStack []frame

	trace func(ip int, instr poliz.Instr)
}

// New creates a VM ready to run code, reading READ_* input from input
// and writing PRINT output to out.
func New(code *poliz.Bytecode, input *InputBuffer, out io.Writer) *VM {
	return &VM{code: code, input: input, out: out, stack: make([]Value, 0, 64)}
}

// SetTrace installs an optional per-instruction trace hook, used by
// the driver's -trace flag.
func (v *VM) SetTrace(fn func(ip int, instr poliz.Instr)) {
	v.trace = fn
}

func (v *VM) push(val Value) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() (Value, error) {
	if len(v.stack) == 0 {
		return Value{}, &diag.RuntimeError{Kind: diag.StackUnderflow, Message: "value stack underflow"}
	}
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val, nil
}

func (v *VM) slot(idx int) (int, error) {
	pos := v.base + idx
	if pos < 0 || pos >= len(v.stack) {
		return 0, &diag.RuntimeError{Kind: diag.UninitializedSlot, Message: fmt.Sprintf("slot %d is not initialized", idx)}
	}
	return pos, nil
}

// Run executes the program starting at IP 0 until HALT or a fatal
// error.
func (v *VM) Run() error {
	for {
		if v.ip < 0 || v.ip >= v.code.Len() {
			return &diag.RuntimeError{Kind: diag.OpcodeNotImplemented, Message: "instruction pointer ran off the end of the program"}
		}
		instr := v.code.At(v.ip)
		if v.trace != nil {
			v.trace(v.ip, instr)
		}
		halt, err := v.step(instr)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

func (v *VM) step(instr poliz.Instr) (halted bool, err error) {
	switch instr.Op {
	case poliz.PushInt:
		v.push(MakeInt(int32(instr.Arg1)))
	case poliz.PushFloat:
		v.push(MakeFloat(PushFloatBits(int32(instr.Arg1))))
	case poliz.PushChar:
		v.push(MakeChar(byte(instr.Arg1)))
	case poliz.PushBool:
		v.push(MakeBool(instr.Arg1 != 0))
	case poliz.PushString:
		v.push(MakeString(v.code.GetString(instr.Arg1)))

	case poliz.LoadVar:
		pos, err := v.slot(instr.Arg1)
		if err != nil {
			return false, err
		}
		v.push(v.stack[pos])
	case poliz.StoreVar:
		val, err := v.pop()
		if err != nil {
			return false, err
		}
		if err := v.storeSlot(instr.Arg1, val); err != nil {
			return false, err
		}
	case poliz.LoadElem:
		if err := v.execLoadElem(instr.Arg1); err != nil {
			return false, err
		}
	case poliz.StoreElem:
		if err := v.execStoreElem(instr.Arg1); err != nil {
			return false, err
		}

	case poliz.Add, poliz.Sub, poliz.Mul, poliz.Div, poliz.Mod:
		if err := v.execArith(instr.Op); err != nil {
			return false, err
		}
	case poliz.Neg:
		if err := v.execNeg(); err != nil {
			return false, err
		}
	case poliz.Not:
		if err := v.execNot(); err != nil {
			return false, err
		}
	case poliz.BNot:
		if err := v.execBNot(); err != nil {
			return false, err
		}

	case poliz.And, poliz.Or, poliz.Xor, poliz.Shl, poliz.Shr:
		if err := v.execBitwise(instr.Op); err != nil {
			return false, err
		}

	case poliz.CmpEq, poliz.CmpNe, poliz.CmpLt, poliz.CmpLe, poliz.CmpGt, poliz.CmpGe:
		if err := v.execCompare(instr.Op); err != nil {
			return false, err
		}

	case poliz.LogAnd, poliz.LogOr:
		if err := v.execLogical(instr.Op); err != nil {
			return false, err
		}

	case poliz.Jump:
		v.ip = instr.Arg1
		return false, nil
	case poliz.JumpIfFalse:
		cond, err := v.pop()
		if err != nil {
			return false, err
		}
		v.ip++
		if !truthy(cond) {
			v.ip = instr.Arg1
		}
		return false, nil

	case poliz.Call:
		if err := v.execCall(instr.Arg1); err != nil {
			return false, err
		}
		return false, nil
	case poliz.RetValue:
		if err := v.execReturn(true); err != nil {
			return false, err
		}
		return false, nil
	case poliz.RetVoid:
		if err := v.execReturn(false); err != nil {
			return false, err
		}
		return false, nil

	case poliz.Print:
		val, err := v.pop()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(v.out, val.Print())
	case poliz.ReadInt, poliz.ReadFloat, poliz.ReadBool, poliz.ReadChar, poliz.ReadString:
		if err := v.execRead(instr.Op); err != nil {
			return false, err
		}

	case poliz.Nop:
		// no-op
	case poliz.Halt:
		v.ip++
		return true, nil

	default:
		return false, &diag.RuntimeError{Kind: diag.OpcodeNotImplemented, Message: fmt.Sprintf("opcode %s not implemented", instr.Op)}
	}

	v.ip++
	return false, nil
}

func (v *VM) storeSlot(slot int, val Value) error {
	pos := v.base + slot
	for pos >= len(v.stack) {
		v.stack = append(v.stack, Value{})
	}
	v.stack[pos] = val
	return nil
}

func truthy(v Value) bool {
	switch v.Kind {
	case KindBool:
		return v.B
	default:
		return v.AsInt() != 0
	}
}

func (v *VM) execArith(op poliz.Op) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	if op == poliz.Mod {
		if a.Kind != KindInt && a.Kind != KindChar && a.Kind != KindBool {
			return &diag.RuntimeError{Kind: diag.OpcodeNotImplemented, Message: "MOD requires integral operands"}
		}
		bi, ai := b.AsInt(), a.AsInt()
		if bi == 0 {
			return &diag.RuntimeError{Kind: diag.DivisionByZero, Message: "division by zero"}
		}
		v.push(MakeInt(ai % bi))
		return nil
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		ai, bi := a.I, b.I
		switch op {
		case poliz.Add:
			v.push(MakeInt(ai + bi))
		case poliz.Sub:
			v.push(MakeInt(ai - bi))
		case poliz.Mul:
			v.push(MakeInt(ai * bi))
		case poliz.Div:
			if bi == 0 {
				return &diag.RuntimeError{Kind: diag.DivisionByZero, Message: "division by zero"}
			}
			v.push(MakeInt(ai / bi))
		}
		return nil
	}
	af, bf := a.AsFloat(), b.AsFloat()
	switch op {
	case poliz.Add:
		v.push(MakeFloat(af + bf))
	case poliz.Sub:
		v.push(MakeFloat(af - bf))
	case poliz.Mul:
		v.push(MakeFloat(af * bf))
	case poliz.Div:
		if bf == 0 {
			return &diag.RuntimeError{Kind: diag.DivisionByZero, Message: "division by zero"}
		}
		v.push(MakeFloat(af / bf))
	}
	return nil
}

func (v *VM) execNeg() error {
	a, err := v.pop()
	if err != nil {
		return err
	}
	if a.Kind == KindFloat {
		v.push(MakeFloat(-a.F))
		return nil
	}
	v.push(MakeInt(-a.AsInt()))
	return nil
}

func (v *VM) execNot() error {
	a, err := v.pop()
	if err != nil {
		return err
	}
	v.push(MakeBool(!truthy(a)))
	return nil
}

func (v *VM) execBNot() error {
	a, err := v.pop()
	if err != nil {
		return err
	}
	v.push(MakeInt(^a.AsInt()))
	return nil
}

func (v *VM) execBitwise(op poliz.Op) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	ai, bi := a.AsInt(), b.AsInt()
	switch op {
	case poliz.And:
		v.push(MakeInt(ai & bi))
	case poliz.Or:
		v.push(MakeInt(ai | bi))
	case poliz.Xor:
		v.push(MakeInt(ai ^ bi))
	case poliz.Shl:
		v.push(MakeInt(ai << uint32(bi)))
	case poliz.Shr:
		v.push(MakeInt(ai >> uint32(bi)))
	}
	return nil
}

func (v *VM) execCompare(op poliz.Op) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	af, bf := a.AsFloat(), b.AsFloat()
	var result bool
	switch op {
	case poliz.CmpEq:
		result = af == bf
	case poliz.CmpNe:
		result = af != bf
	case poliz.CmpLt:
		result = af < bf
	case poliz.CmpLe:
		result = af <= bf
	case poliz.CmpGt:
		result = af > bf
	case poliz.CmpGe:
		result = af >= bf
	}
	v.push(MakeBool(result))
	return nil
}

// execLogical is non-short-circuiting: both operands are already on
// the stack (both were evaluated by the emitted code) by the time
// this executes.
func (v *VM) execLogical(op poliz.Op) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case poliz.LogAnd:
		v.push(MakeBool(truthy(a) && truthy(b)))
	case poliz.LogOr:
		v.push(MakeBool(truthy(a) || truthy(b)))
	}
	return nil
}

// Array elements occupy the `size` contiguous slots starting at the
// array's own base slot (see symtab.Table.DeclareArray), so element i
// lives at base+baseSlot+i.
func (v *VM) execLoadElem(baseSlot int) error {
	idx, err := v.pop()
	if err != nil {
		return err
	}
	pos, err := v.slot(baseSlot + int(idx.AsInt()))
	if err != nil {
		return err
	}
	v.push(v.stack[pos])
	return nil
}

func (v *VM) execStoreElem(baseSlot int) error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	idx, err := v.pop()
	if err != nil {
		return err
	}
	return v.storeSlot(baseSlot+int(idx.AsInt()), val)
}

func (v *VM) execCall(fnIndex int) error {
	meta := v.code.Function(fnIndex)
	n := meta.ParamCount
	if len(v.stack) < n {
		return &diag.RuntimeError{Kind: diag.StackUnderflow, Message: "not enough arguments on the stack for CALL"}
	}
	v.callStack = append(v.callStack, frame{
		returnIP:       v.ip + 1,
		savedBase:      v.base,
		savedStackSize: len(v.stack) - n,
	})
	v.base = len(v.stack) - n
	v.ip = meta.EntryIP
	return nil
}

func (v *VM) execReturn(hasValue bool) error {
	var retVal Value
	if hasValue {
		val, err := v.pop()
		if err != nil {
			return err
		}
		retVal = val
	}
	if len(v.callStack) == 0 {
		return &diag.RuntimeError{Kind: diag.StackUnderflow, Message: "return with no active call frame"}
	}
	top := v.callStack[len(v.callStack)-1]
	v.callStack = v.callStack[:len(v.callStack)-1]

	v.stack = v.stack[:top.savedStackSize]
	v.base = top.savedBase
	v.ip = top.returnIP
	if hasValue {
		v.push(retVal)
	}
	return nil
}

func (v *VM) execRead(op poliz.Op) error {
	tok, err := v.input.Next()
	if err != nil {
		return err
	}
	switch op {
	case poliz.ReadInt:
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return &diag.RuntimeError{Kind: diag.InvalidInput, Message: fmt.Sprintf("expected an int, got %q", tok)}
		}
		v.push(MakeInt(int32(n)))
	case poliz.ReadFloat:
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return &diag.RuntimeError{Kind: diag.InvalidInput, Message: fmt.Sprintf("expected a float, got %q", tok)}
		}
		v.push(MakeFloat(float32(f)))
	case poliz.ReadBool:
		if tok != "true" && tok != "false" {
			return &diag.RuntimeError{Kind: diag.InvalidInput, Message: fmt.Sprintf("expected true or false, got %q", tok)}
		}
		v.push(MakeBool(tok == "true"))
	case poliz.ReadChar:
		if len(tok) != 1 {
			return &diag.RuntimeError{Kind: diag.InvalidInput, Message: fmt.Sprintf("expected a single character, got %q", tok)}
		}
		v.push(MakeChar(tok[0]))
	case poliz.ReadString:
		v.push(MakeString(tok))
	}
	return nil
}
