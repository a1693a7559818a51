// Package types implements the Type model: base kinds, arrays, and
// the promotion/compatibility rules the semantic analyzer and VM both
// depend on.
package types

// BaseKind is the closed set of base type kinds.
type BaseKind int

const (
	Int BaseKind = iota
	Float
	Char
	Bool
	Void
	String
)

func (b BaseKind) String() string {
	switch b {
	case Int:
		return "int"
	case Float:
		return "float"
	case Char:
		return "char"
	case Bool:
		return "bool"
	case Void:
		return "void"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Type is a structural record: (baseKind, isArray, arraySize, elementType).
// string exists only as the type of string literals; arrays are
// one-dimensional and fixed-size.
type Type struct {
	Base        BaseKind
	IsArray     bool
	ArraySize   int
	ElementType *Type
}

func Scalar(b BaseKind) Type { return Type{Base: b} }

func Array(elem Type, size int) Type {
	e := elem
	return Type{Base: elem.Base, IsArray: true, ArraySize: size, ElementType: &e}
}

// Equal is structural equality.
func (t Type) Equal(o Type) bool {
	if t.Base != o.Base || t.IsArray != o.IsArray {
		return false
	}
	if !t.IsArray {
		return true
	}
	if t.ArraySize != o.ArraySize {
		return false
	}
	if t.ElementType == nil || o.ElementType == nil {
		return t.ElementType == o.ElementType
	}
	return t.ElementType.Equal(*o.ElementType)
}

func (t Type) String() string {
	if !t.IsArray {
		return t.Base.String()
	}
	return t.ElementType.String() + "[]"
}

// Numeric = {int, float, char, bool}.
func (t Type) Numeric() bool {
	if t.IsArray {
		return false
	}
	switch t.Base {
	case Int, Float, Char, Bool:
		return true
	default:
		return false
	}
}

// Integral = {int, char, bool}.
func (t Type) Integral() bool {
	if t.IsArray {
		return false
	}
	switch t.Base {
	case Int, Char, Bool:
		return true
	default:
		return false
	}
}

func (t Type) IsVoid() bool { return !t.IsArray && t.Base == Void }

func (t Type) Bool() bool { return !t.IsArray && t.Base == Bool }

// AssignableTo reports whether a value of type t may be assigned to a
// destination of type dst: exact match, char->int, bool->int,
// int->float. Arrays must match exactly.
func (t Type) AssignableTo(dst Type) bool {
	if t.Equal(dst) {
		return true
	}
	if t.IsArray || dst.IsArray {
		return false
	}
	switch {
	case t.Base == Char && dst.Base == Int:
		return true
	case t.Base == Bool && dst.Base == Int:
		return true
	case t.Base == Int && dst.Base == Float:
		return true
	default:
		return false
	}
}

// ArithResult computes the result type of a binary arithmetic op
// (+ - * /) given two numeric operand types: int+int->int, any float
// operand widens to float, otherwise (char/bool mixes) promotes to int.
func ArithResult(a, b Type) Type {
	if a.Base == Float || b.Base == Float {
		return Scalar(Float)
	}
	if a.Base == Int && b.Base == Int {
		return Scalar(Int)
	}
	return Scalar(Int)
}
