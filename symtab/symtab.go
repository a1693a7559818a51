// Package symtab implements the symbol table as an ordered sequence
// of hash maps (a stack of scopes), per the pattern re-architecture
// guidance: lookup walks from the tail, avoiding a linked chain of
// scope objects and its back-pointer cycles.
package symtab

import "poliz/types"

// Symbol is a declared variable or parameter: (name, type, slot).
// Slot is assigned in declaration order within the current function
// and is reset on function entry.
type Symbol struct {
	Name string
	Type types.Type
	Slot int
}

// FunctionSymbol is (name, returnType, paramTypes, declared?,
// defined?, entryIp, polizIndex). Overloading is by (name,
// paramTypes); return type participates in matching declarations to
// definitions but never disambiguates a call. PolizIndex is -1 until
// the parser registers the function with the bytecode module; callers
// gate their one-time registration on that sentinel, not on the zero
// value.
type FunctionSymbol struct {
	Name       string
	ReturnType types.Type
	ParamTypes []types.Type
	Declared   bool
	Defined    bool
	EntryIP    int
	PolizIndex int
}

func (f *FunctionSymbol) sameSignature(params []types.Type) bool {
	if len(f.ParamTypes) != len(params) {
		return false
	}
	for i := range params {
		if !f.ParamTypes[i].Equal(params[i]) {
			return false
		}
	}
	return true
}

// Table is the Semantic Analyzer's symbol table: a scope stack of
// variable maps plus one flat overload-set map for functions
// (functions are not block-scoped in this language).
type Table struct {
	scopes    []map[string]*Symbol
	functions map[string][]*FunctionSymbol
	nextSlot  int
}

func New() *Table {
	return &Table{functions: make(map[string][]*FunctionSymbol)}
}

// EnterScope pushes an empty map onto the scope stack.
func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, make(map[string]*Symbol))
}

// LeaveScope pops the innermost scope.
func (t *Table) LeaveScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// EnterFunctionScope clears the entire scope stack, resets slot
// allocation, and pushes one fresh scope — isolating locals per
// function activation.
func (t *Table) EnterFunctionScope() {
	t.scopes = t.scopes[:0]
	t.nextSlot = 0
	t.EnterScope()
}

// DeclareVariable assigns the next slot and inserts into the
// innermost scope. ok is false if the innermost scope already
// contains name (DuplicateSymbol).
func (t *Table) DeclareVariable(name string, typ types.Type) (*Symbol, bool) {
	innermost := t.scopes[len(t.scopes)-1]
	if _, exists := innermost[name]; exists {
		return nil, false
	}
	sym := &Symbol{Name: name, Type: typ, Slot: t.nextSlot}
	t.nextSlot++
	innermost[name] = sym
	return sym, true
}

// DeclareArray builds an array type from elem/size and declares it,
// reserving `size` contiguous slots starting at the returned symbol's
// Slot so LOAD_ELEM/STORE_ELEM can index directly off the base slot.
func (t *Table) DeclareArray(name string, elem types.Type, size int) (*Symbol, bool) {
	innermost := t.scopes[len(t.scopes)-1]
	if _, exists := innermost[name]; exists {
		return nil, false
	}
	sym := &Symbol{Name: name, Type: types.Array(elem, size), Slot: t.nextSlot}
	t.nextSlot += size
	innermost[name] = sym
	return sym, true
}

// LookupVariable walks scopes from innermost outward.
func (t *Table) LookupVariable(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// DeclareFunction registers a forward declaration or a definition.
// If a matching signature already exists as a bare declaration and
// isDefinition is true, it is upgraded in place. Defining an
// already-defined signature is reported through the third result and
// left to the caller (semantic package) to turn into a diagnostic.
func (t *Table) DeclareFunction(name string, ret types.Type, params []types.Type, isDefinition bool) (*FunctionSymbol, bool, bool) {
	set := t.functions[name]
	for _, f := range set {
		if f.sameSignature(params) {
			if isDefinition && f.Defined {
				return f, false, true
			}
			if isDefinition {
				f.Defined = true
			}
			return f, false, false
		}
	}
	fn := &FunctionSymbol{Name: name, ReturnType: ret, ParamTypes: params, PolizIndex: -1}
	if isDefinition {
		fn.Defined = true
	} else {
		fn.Declared = true
	}
	t.functions[name] = append(t.functions[name], fn)
	return fn, true, false
}

// Overloads returns every function symbol registered under name.
func (t *Table) Overloads(name string) []*FunctionSymbol {
	return t.functions[name]
}

// Resolve finds the function in name's overload set that best matches
// argTypes: an exact parameter-type match wins outright over a match
// reached only through widening (char/bool -> int, int -> float), so
// that declaring both f(int) and f(float) still lets a call passing an
// int literal resolve to f(int) rather than being rejected as
// ambiguous. Only when no exact match exists do multiple
// widening-compatible candidates count as OverloadAmbiguous. When no
// single candidate is found fn is nil, and ambiguous distinguishes
// OverloadAmbiguous from OverloadNoMatch for the caller's diagnostic.
func (t *Table) Resolve(name string, argTypes []types.Type) (fn *FunctionSymbol, ambiguous bool) {
	var exact, widened []*FunctionSymbol
	for _, f := range t.functions[name] {
		if len(f.ParamTypes) != len(argTypes) {
			continue
		}
		isExact, isCompatible := true, true
		for i, want := range f.ParamTypes {
			if !argTypes[i].Equal(want) {
				isExact = false
			}
			if !argTypes[i].AssignableTo(want) {
				isCompatible = false
				break
			}
		}
		if !isCompatible {
			continue
		}
		if isExact {
			exact = append(exact, f)
		} else {
			widened = append(widened, f)
		}
	}
	if len(exact) == 1 {
		return exact[0], false
	}
	if len(exact) > 1 {
		return nil, true
	}
	if len(widened) == 1 {
		return widened[0], false
	}
	if len(widened) > 1 {
		return nil, true
	}
	return nil, false
}
