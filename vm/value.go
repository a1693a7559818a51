package vm

import (
	"fmt"
	"math"

	"poliz/types"
)

// ValueKind tags a Value's active field, per the tagged-union guidance
// for polymorphic value carriers.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindBool
	KindChar
	KindString
)

// Value is a tagged union of Int(i32), Float(f32), Bool, Char(u8) and
// String, mirroring the Value carried on the VM's stack. Grounded on
// the original vm.hpp Value struct.
type Value struct {
	Kind ValueKind
	I    int32
	F    float32
	B    bool
	C    byte
	S    string
}

func MakeInt(i int32) Value    { return Value{Kind: KindInt, I: i} }
func MakeFloat(f float32) Value { return Value{Kind: KindFloat, F: f} }
func MakeBool(b bool) Value    { return Value{Kind: KindBool, B: b} }
func MakeChar(c byte) Value    { return Value{Kind: KindChar, C: c} }
func MakeString(s string) Value { return Value{Kind: KindString, S: s} }

// AsFloat widens the value to float32, used by comparisons and
// mixed-type arithmetic.
func (v Value) AsFloat() float32 {
	switch v.Kind {
	case KindInt:
		return float32(v.I)
	case KindFloat:
		return v.F
	case KindChar:
		return float32(v.C)
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	default:
		panic("vm: value is not numeric")
	}
}

// AsInt widens integral kinds to int32.
func (v Value) AsInt() int32 {
	switch v.Kind {
	case KindInt:
		return v.I
	case KindChar:
		return int32(v.C)
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	default:
		panic("vm: value is not integral")
	}
}

// Type returns the static Type corresponding to this value's kind.
func (v Value) Type() types.Type {
	switch v.Kind {
	case KindInt:
		return types.Scalar(types.Int)
	case KindFloat:
		return types.Scalar(types.Float)
	case KindBool:
		return types.Scalar(types.Bool)
	case KindChar:
		return types.Scalar(types.Char)
	default:
		return types.Scalar(types.String)
	}
}

// Print renders v the way PRINT does: bool as true/false, char as the
// single character, others in natural decimal/textual form.
func (v Value) Print() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return formatFloat(v.F)
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindChar:
		return string(v.C)
	default:
		return v.S
	}
}

func formatFloat(f float32) string {
	if f == float32(math.Trunc(float64(f))) && !math.IsInf(float64(f), 0) {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}

// PushFloatBits reinterprets bits as an IEEE-754 f32, per PUSH_FLOAT's
// argument encoding.
func PushFloatBits(bits int32) float32 {
	return math.Float32frombits(uint32(bits))
}

// FloatBits is the inverse encoding used by the emitter for PUSH_FLOAT.
func FloatBits(f float32) int32 {
	return int32(math.Float32bits(f))
}
