package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"poliz/types"
)

func TestDeclareVariableAssignsSequentialSlots(t *testing.T) {
	table := New()
	table.EnterFunctionScope()

	a, ok := table.DeclareVariable("a", types.Scalar(types.Int))
	assert.True(t, ok)
	assert.Equal(t, 0, a.Slot)

	b, ok := table.DeclareVariable("b", types.Scalar(types.Float))
	assert.True(t, ok)
	assert.Equal(t, 1, b.Slot)
}

func TestDeclareVariableDuplicateInSameScopeFails(t *testing.T) {
	table := New()
	table.EnterFunctionScope()
	_, ok := table.DeclareVariable("x", types.Scalar(types.Int))
	assert.True(t, ok)
	_, ok = table.DeclareVariable("x", types.Scalar(types.Int))
	assert.False(t, ok)
}

func TestDeclareArrayReservesContiguousSlots(t *testing.T) {
	table := New()
	table.EnterFunctionScope()

	arr, ok := table.DeclareArray("arr", types.Scalar(types.Int), 5)
	assert.True(t, ok)
	assert.Equal(t, 0, arr.Slot)

	next, ok := table.DeclareVariable("next", types.Scalar(types.Int))
	assert.True(t, ok)
	assert.Equal(t, 5, next.Slot)
}

func TestScopeShadowingAndLookup(t *testing.T) {
	table := New()
	table.EnterFunctionScope()
	outer, _ := table.DeclareVariable("x", types.Scalar(types.Int))

	table.EnterScope()
	inner, _ := table.DeclareVariable("x", types.Scalar(types.Float))
	found, ok := table.LookupVariable("x")
	assert.True(t, ok)
	assert.Same(t, inner, found)
	table.LeaveScope()

	found, ok = table.LookupVariable("x")
	assert.True(t, ok)
	assert.Same(t, outer, found)
}

func TestEnterFunctionScopeResetsSlots(t *testing.T) {
	table := New()
	table.EnterFunctionScope()
	table.DeclareVariable("a", types.Scalar(types.Int))
	table.DeclareVariable("b", types.Scalar(types.Int))

	table.EnterFunctionScope()
	fresh, ok := table.DeclareVariable("c", types.Scalar(types.Int))
	assert.True(t, ok)
	assert.Equal(t, 0, fresh.Slot)
}

func TestResolveOverloadsWithDisjointDomains(t *testing.T) {
	table := New()
	table.DeclareFunction("f", types.Scalar(types.Int), []types.Type{types.Scalar(types.Int)}, true)
	table.DeclareFunction("f", types.Scalar(types.String), []types.Type{types.Scalar(types.String)}, true)

	fn, ambiguous := table.Resolve("f", []types.Type{types.Scalar(types.Char)})
	assert.False(t, ambiguous)
	assert.Equal(t, types.Scalar(types.Int), fn.ReturnType)

	fn, ambiguous = table.Resolve("f", []types.Type{types.Scalar(types.String)})
	assert.False(t, ambiguous)
	assert.Equal(t, types.Scalar(types.String), fn.ReturnType)

	fn, ambiguous = table.Resolve("g", nil)
	assert.False(t, ambiguous)
	assert.Nil(t, fn)
}

// A single-argument call resolves to the exact match over a widening
// one: declaring both f(int) and f(float) still lets f(2) pick f(int)
// rather than being rejected as ambiguous.
func TestResolveExactMatchWinsOverWidening(t *testing.T) {
	table := New()
	table.DeclareFunction("f", types.Scalar(types.Int), []types.Type{types.Scalar(types.Int)}, true)
	table.DeclareFunction("f", types.Scalar(types.Float), []types.Type{types.Scalar(types.Float)}, true)

	fn, ambiguous := table.Resolve("f", []types.Type{types.Scalar(types.Int)})
	assert.False(t, ambiguous)
	assert.Equal(t, types.Scalar(types.Int), fn.ReturnType)

	fn, ambiguous = table.Resolve("f", []types.Type{types.Scalar(types.Float)})
	assert.False(t, ambiguous)
	assert.Equal(t, types.Scalar(types.Float), fn.ReturnType)
}

// Two overloads that each require widening exactly one of two
// arguments, with neither an exact match, are genuinely ambiguous:
// there is no ranking between different widening candidates, only
// between widening and exact.
func TestResolveAmbiguousAcrossWideningOverloads(t *testing.T) {
	table := New()
	table.DeclareFunction("f", types.Scalar(types.Int),
		[]types.Type{types.Scalar(types.Float), types.Scalar(types.Int)}, true)
	table.DeclareFunction("f", types.Scalar(types.Float),
		[]types.Type{types.Scalar(types.Int), types.Scalar(types.Float)}, true)

	_, ambiguous := table.Resolve("f", []types.Type{types.Scalar(types.Int), types.Scalar(types.Int)})
	assert.True(t, ambiguous)
}

func TestDeclareFunctionUpgradesDeclarationToDefinition(t *testing.T) {
	table := New()
	fn, created, alreadyDefined := table.DeclareFunction("h", types.Scalar(types.Void), nil, false)
	assert.True(t, created)
	assert.False(t, alreadyDefined)
	assert.True(t, fn.Declared)
	// zero value would be 0, a valid registry index; callers gate
	// one-time RegisterFunction calls on this sentinel.
	assert.Equal(t, -1, fn.PolizIndex)

	fn2, created, alreadyDefined := table.DeclareFunction("h", types.Scalar(types.Void), nil, true)
	assert.False(t, created)
	assert.False(t, alreadyDefined)
	assert.Same(t, fn, fn2)
	assert.True(t, fn2.Defined)

	_, _, alreadyDefined = table.DeclareFunction("h", types.Scalar(types.Void), nil, true)
	assert.True(t, alreadyDefined)
}
