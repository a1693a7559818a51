// Package semantic implements the Semantic Analyzer: scope
// management, the operand type stack, operator/assignment/condition
// checking and overload resolution. Method names and responsibilities
// are grounded on the original Semanter: EnterScope/LeaveScope,
// DeclareVariable/LookupVariable, PushType/PopType/PeekType,
// CheckBinaryOp/CheckUnaryOp/CheckAssignment, Begin/Add/EndFunctionCall.
package semantic

import (
	"fmt"

	"poliz/diag"
	"poliz/symtab"
	"poliz/token"
	"poliz/types"
)

// Analyzer owns everything it mutates: no global state, no
// singletons. One Analyzer is created per compilation.
type Analyzer struct {
	table      *symtab.Table
	typeStack  []types.Type
	returnType types.Type
	inFunction bool
	callStack  []callContext
}

type callContext struct {
	name string
	args []types.Type
}

func New() *Analyzer {
	return &Analyzer{table: symtab.New()}
}

func semErr(line, col int, kind diag.SemanticKind, format string, args ...interface{}) *diag.SemanticError {
	return &diag.SemanticError{Line: line, Column: col, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// --- Scopes ---

func (a *Analyzer) EnterScope() { a.table.EnterScope() }
func (a *Analyzer) LeaveScope() { a.table.LeaveScope() }

// EnterFunctionScope clears the scope stack, resets slot allocation,
// records the expected return type, and pushes one fresh scope.
func (a *Analyzer) EnterFunctionScope(returnType types.Type) {
	a.table.EnterFunctionScope()
	a.returnType = returnType
	a.inFunction = true
}

func (a *Analyzer) LeaveFunctionScope() {
	a.inFunction = false
}

func (a *Analyzer) CurrentReturnType() types.Type { return a.returnType }

// --- Declarations ---

func (a *Analyzer) DeclareVariable(name string, typ types.Type, line, col int) (*symtab.Symbol, error) {
	sym, ok := a.table.DeclareVariable(name, typ)
	if !ok {
		return nil, semErr(line, col, diag.DuplicateSymbol, "'%s' is already declared in this scope", name)
	}
	return sym, nil
}

func (a *Analyzer) DeclareArray(name string, elem types.Type, size int, line, col int) (*symtab.Symbol, error) {
	if size <= 0 {
		return nil, semErr(line, col, diag.ArrayIndexOutOfRange, "array '%s' must have a positive size", name)
	}
	sym, ok := a.table.DeclareArray(name, elem, size)
	if !ok {
		return nil, semErr(line, col, diag.DuplicateSymbol, "'%s' is already declared in this scope", name)
	}
	return sym, nil
}

func (a *Analyzer) LookupVariable(name string, line, col int) (*symtab.Symbol, error) {
	sym, ok := a.table.LookupVariable(name)
	if !ok {
		return nil, semErr(line, col, diag.UnknownSymbol, "'%s' is not declared", name)
	}
	return sym, nil
}

// DeclareFunction registers a forward declaration (isDefinition=false)
// or a definition. Redeclaring an already-declared/defined signature
// with a different return type, or defining an already-defined
// signature, is FunctionRedefinition.
func (a *Analyzer) DeclareFunction(name string, ret types.Type, params []types.Type, isDefinition bool, line, col int) (*symtab.FunctionSymbol, error) {
	fn, created, alreadyDefined := a.table.DeclareFunction(name, ret, params, isDefinition)
	if alreadyDefined {
		return nil, semErr(line, col, diag.FunctionRedefinition, "function '%s' is already defined", name)
	}
	if !created {
		if !fn.ReturnType.Equal(ret) {
			return nil, semErr(line, col, diag.FunctionRedefinition, "function '%s' redeclared with a different return type", name)
		}
		if isDefinition {
			fn.Defined = true
		} else {
			fn.Declared = true
		}
	}
	return fn, nil
}

// LookupFunctionDeclared requires the overload set for name to be
// non-empty, used when a call site references an undeclared function.
func (a *Analyzer) LookupFunctionDeclared(name string, line, col int) error {
	if len(a.table.Overloads(name)) == 0 {
		return semErr(line, col, diag.FunctionNotDeclared, "function '%s' is not declared", name)
	}
	return nil
}

// Overloads exposes name's registered overload set, for callers (such
// as tests) that need to inspect a function symbol's PolizIndex after
// parsing rather than during it.
func (a *Analyzer) Overloads(name string) []*symtab.FunctionSymbol {
	return a.table.Overloads(name)
}

// --- Type stack ---

func (a *Analyzer) PushType(t types.Type)  { a.typeStack = append(a.typeStack, t) }
func (a *Analyzer) IsTypeStackEmpty() bool { return len(a.typeStack) == 0 }
func (a *Analyzer) ClearTypeStack()        { a.typeStack = a.typeStack[:0] }

func (a *Analyzer) PopType() types.Type {
	if len(a.typeStack) == 0 {
		panic("semantic: type stack underflow")
	}
	t := a.typeStack[len(a.typeStack)-1]
	a.typeStack = a.typeStack[:len(a.typeStack)-1]
	return t
}

func (a *Analyzer) PeekType() types.Type {
	return a.typeStack[len(a.typeStack)-1]
}

func (a *Analyzer) TypeStackDepth() int { return len(a.typeStack) }

// --- Literal typing ---

func (a *Analyzer) GetLiteralType(kind token.Kind) types.Type {
	switch kind {
	case token.IntLit:
		return types.Scalar(types.Int)
	case token.FloatLit:
		return types.Scalar(types.Float)
	case token.CharLit:
		return types.Scalar(types.Char)
	case token.StringLit:
		return types.Scalar(types.String)
	case token.KwTrue, token.KwFalse:
		return types.Scalar(types.Bool)
	default:
		panic("semantic: not a literal token kind")
	}
}

// GetTypeFromToken maps a type keyword token to its base Type.
func (a *Analyzer) GetTypeFromToken(kind token.Kind) (types.Type, bool) {
	switch kind {
	case token.KwInt:
		return types.Scalar(types.Int), true
	case token.KwFloat:
		return types.Scalar(types.Float), true
	case token.KwChar:
		return types.Scalar(types.Char), true
	case token.KwBool:
		return types.Scalar(types.Bool), true
	case token.KwVoid:
		return types.Scalar(types.Void), true
	default:
		return types.Type{}, false
	}
}

// --- Operators ---

func isArithOp(k token.Kind) bool {
	switch k {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent:
		return true
	default:
		return false
	}
}

func isBitwiseShiftOp(k token.Kind) bool {
	switch k {
	case token.Amp, token.Pipe, token.Caret, token.Shl, token.Shr:
		return true
	default:
		return false
	}
}

func isCompareOp(k token.Kind) bool {
	switch k {
	case token.Less, token.Greater, token.LessEqual, token.GreaterEqual, token.EqualEqual, token.NotEqual:
		return true
	default:
		return false
	}
}

func isLogicalOp(k token.Kind) bool {
	return k == token.AmpAmp || k == token.PipePipe
}

// CheckBinaryOp pops two operand types (right then left), validates
// them against op's requirements, and pushes the result type.
func (a *Analyzer) CheckBinaryOp(op token.Kind, line, col int) error {
	right := a.PopType()
	left := a.PopType()

	switch {
	case isArithOp(op):
		if !left.Numeric() || !right.Numeric() {
			return semErr(line, col, diag.TypeMismatch, "operator %s requires numeric operands, got %s and %s", op, left, right)
		}
		if op == token.Percent {
			if !left.Integral() || !right.Integral() {
				return semErr(line, col, diag.TypeMismatch, "%% requires integral operands, got %s and %s", left, right)
			}
			a.PushType(types.Scalar(types.Int))
			return nil
		}
		a.PushType(types.ArithResult(left, right))
		return nil

	case isBitwiseShiftOp(op):
		if !left.Integral() || !right.Integral() {
			return semErr(line, col, diag.TypeMismatch, "operator %s requires integral operands, got %s and %s", op, left, right)
		}
		a.PushType(types.ArithResult(left, right))
		return nil

	case isCompareOp(op):
		if !left.Numeric() || !right.Numeric() {
			return semErr(line, col, diag.TypeMismatch, "operator %s requires numeric operands, got %s and %s", op, left, right)
		}
		a.PushType(types.Scalar(types.Bool))
		return nil

	case isLogicalOp(op):
		if !(left.Bool() || left.Integral()) || !(right.Bool() || right.Integral()) {
			return semErr(line, col, diag.TypeMismatch, "operator %s requires bool or integral operands, got %s and %s", op, left, right)
		}
		a.PushType(types.Scalar(types.Bool))
		return nil

	default:
		return semErr(line, col, diag.TypeMismatch, "unknown binary operator")
	}
}

// CheckUnaryOp pops one operand type, validates it, and pushes the
// result type.
func (a *Analyzer) CheckUnaryOp(op token.Kind, line, col int) error {
	operand := a.PopType()
	switch op {
	case token.Minus, token.PlusPlus, token.MinusMinus:
		if !operand.Numeric() {
			return semErr(line, col, diag.TypeMismatch, "unary %s requires a numeric operand, got %s", op, operand)
		}
		a.PushType(operand)
		return nil
	case token.Bang:
		if !(operand.Bool() || operand.Integral()) {
			return semErr(line, col, diag.TypeMismatch, "unary ! requires bool or integral, got %s", operand)
		}
		a.PushType(types.Scalar(types.Bool))
		return nil
	case token.Tilde:
		if !operand.Integral() {
			return semErr(line, col, diag.TypeMismatch, "unary ~ requires an integral operand, got %s", operand)
		}
		a.PushType(operand)
		return nil
	default:
		return semErr(line, col, diag.TypeMismatch, "unknown unary operator")
	}
}

// CheckAssignment pops the source (rvalue) type and the destination
// (lvalue) type, in that order, checks compatibility and pushes the
// destination type as the assignment expression's result.
func (a *Analyzer) CheckAssignment(line, col int) error {
	src := a.PopType()
	dst := a.PopType()
	if !src.AssignableTo(dst) {
		return semErr(line, col, diag.TypeMismatch, "cannot assign %s to %s", src, dst)
	}
	a.PushType(dst)
	return nil
}

// CheckCondition validates a condition type (if/while/for): bool or
// integral. Pops the condition type; conditions are consumed by
// control flow, not left as an expression result.
func (a *Analyzer) CheckCondition(line, col int) error {
	t := a.PopType()
	if !(t.Bool() || t.Integral()) {
		return semErr(line, col, diag.TypeMismatch, "condition must be bool or integral, got %s", t)
	}
	return nil
}

// CheckReturn validates a return statement's value type (or void)
// against the enclosing function's declared return type.
func (a *Analyzer) CheckReturn(hasValue bool, line, col int) error {
	if a.returnType.IsVoid() {
		if hasValue {
			return semErr(line, col, diag.TypeMismatch, "return with a value in a void function")
		}
		return nil
	}
	if !hasValue {
		return semErr(line, col, diag.TypeMismatch, "return with no value in a non-void function")
	}
	t := a.PopType()
	if !t.AssignableTo(a.returnType) {
		return semErr(line, col, diag.TypeMismatch, "cannot return %s from a function returning %s", t, a.returnType)
	}
	return nil
}

// CheckPrint pops the printed expression's type; anything non-void is
// allowed.
func (a *Analyzer) CheckPrint(line, col int) error {
	t := a.PopType()
	if t.IsVoid() {
		return semErr(line, col, diag.TypeMismatch, "cannot print a void expression")
	}
	return nil
}

// CheckRead validates that a read target is a scalar of int, float,
// bool, or char.
func (a *Analyzer) CheckRead(t types.Type, line, col int) error {
	if t.IsArray || !(t.Base == types.Int || t.Base == types.Float || t.Base == types.Bool || t.Base == types.Char) {
		return semErr(line, col, diag.InvalidLValue, "read target must be int, float, bool or char, got %s", t)
	}
	return nil
}

// --- Function calls ---

func (a *Analyzer) BeginFunctionCall(name string) {
	a.callStack = append(a.callStack, callContext{name: name})
}

// AddCallArg pops the top type off the type stack and appends it to
// the innermost pending call's argument list.
func (a *Analyzer) AddCallArg() {
	t := a.PopType()
	top := len(a.callStack) - 1
	a.callStack[top].args = append(a.callStack[top].args, t)
}

// EndFunctionCall resolves the overload, pushes its return type onto
// the type stack, and returns the resolved function symbol.
func (a *Analyzer) EndFunctionCall(line, col int) (*symtab.FunctionSymbol, error) {
	top := len(a.callStack) - 1
	ctx := a.callStack[top]
	a.callStack = a.callStack[:top]

	fn, ambiguous := a.table.Resolve(ctx.name, ctx.args)
	if ambiguous {
		return nil, semErr(line, col, diag.OverloadAmbiguous, "call to '%s' is ambiguous among its overloads", ctx.name)
	}
	if fn == nil {
		return nil, semErr(line, col, diag.OverloadNoMatch, "no overload of '%s' matches the given argument types", ctx.name)
	}
	a.PushType(fn.ReturnType)
	return fn, nil
}

// --- Arrays ---

// CheckArrayAccess pops the index type, validates the base is an
// array and the index is integral, and pushes the element type.
func (a *Analyzer) CheckArrayAccess(base types.Type, line, col int) (types.Type, error) {
	idx := a.PopType()
	if !base.IsArray {
		return types.Type{}, semErr(line, col, diag.InvalidLValue, "indexed value is not an array")
	}
	if !idx.Integral() {
		return types.Type{}, semErr(line, col, diag.TypeMismatch, "array index must be integral, got %s", idx)
	}
	return *base.ElementType, nil
}

// CheckArrayIndexLiteral validates a compile-time-known literal index
// against a known, positive array size.
func (a *Analyzer) CheckArrayIndexLiteral(size, index, line, col int) error {
	if index < 0 || index >= size {
		return semErr(line, col, diag.ArrayIndexOutOfRange, "array index %d out of range [0, %d)", index, size)
	}
	return nil
}

// Reset clears all analyzer state for reuse.
func (a *Analyzer) Reset() {
	*a = Analyzer{table: symtab.New()}
}
