package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minicc/src/diag"
	"minicc/src/frontend"
	"minicc/src/types"
)

func checkSrc(t *testing.T, src string) (*frontend.Node, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	prog := frontend.Parse(src, sink)
	require.False(t, sink.HasErrors(), "parse errors: %v", sink.Diagnostics())
	Check(prog, sink)
	return prog, sink
}

func TestMutualRecursionResolvesForwardReference(t *testing.T) {
	_, sink := checkSrc(t, `
	bool isEven(int n) { if (n == 0) return true; return isOdd(n - 1); }
	bool isOdd(int n) { if (n == 0) return false; return isEven(n - 1); }
	`)
	assert.False(t, sink.HasErrors())
}

func TestIntWidensToFloatOnReturn(t *testing.T) {
	prog, sink := checkSrc(t, `float half(int n) { return n; }`)
	require.False(t, sink.HasErrors())
	body := prog.Children[0].Children[len(prog.Children[0].Children)-1]
	ret := body.Children[0]
	assert.Equal(t, frontend.NCoerce, ret.Children[0].Kind)
	assert.Equal(t, frontend.IntToFloat, ret.Children[0].Data.(frontend.CoerceKind))
}

func TestFloatNarrowingToIntIsRejected(t *testing.T) {
	_, sink := checkSrc(t, `
	int f() {
		int x;
		float y;
		x = y;
		return x;
	}`)
	require.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.NarrowingError {
			found = true
		}
	}
	assert.True(t, found)
}

func TestModuloOnFloatsIsRejected(t *testing.T) {
	_, sink := checkSrc(t, `
	int f() {
		float a;
		float b;
		return a % b;
	}`)
	require.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.NonIntegerModulo {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUndeclaredIdentifierIsReported(t *testing.T) {
	_, sink := checkSrc(t, `int f() { return y; }`)
	require.True(t, sink.HasErrors())
	assert.Equal(t, diag.Undefined, sink.Diagnostics()[0].Kind)
}

func TestDuplicateGlobalIsReported(t *testing.T) {
	_, sink := checkSrc(t, `int x; int x;`)
	require.True(t, sink.HasErrors())
	assert.Equal(t, diag.Duplicate, sink.Diagnostics()[0].Kind)
}

func TestShadowingAcrossNestedBlocksIsAllowed(t *testing.T) {
	_, sink := checkSrc(t, `
	int f() {
		int x;
		{
			int x;
			x = 1;
		}
		x = 2;
		return x;
	}`)
	assert.False(t, sink.HasErrors())
}

func TestNonVoidFunctionGetsSynthesizedTerminalReturn(t *testing.T) {
	prog, sink := checkSrc(t, `int f() { int x; x = 1; }`)
	require.False(t, sink.HasErrors())
	body := prog.Children[0].Children[len(prog.Children[0].Children)-1]
	last := body.Children[len(body.Children)-1]
	require.Equal(t, frontend.NReturn, last.Kind)
	require.Len(t, last.Children, 1)
	assert.Equal(t, types.TInt, last.Children[0].Ty)
}

func TestShortCircuitOperandsCoerceToBool(t *testing.T) {
	prog, sink := checkSrc(t, `
	bool f(int a, int b) {
		return a && b;
	}`)
	require.False(t, sink.HasErrors())
	body := prog.Children[0].Children[len(prog.Children[0].Children)-1]
	ret := body.Children[0].Children[0]
	assert.Equal(t, frontend.NCoerce, ret.Children[0].Kind)
	assert.Equal(t, frontend.IntToBool, ret.Children[0].Data.(frontend.CoerceKind))
	assert.Equal(t, frontend.NCoerce, ret.Children[1].Kind)
}

func TestArgCountMismatchIsReported(t *testing.T) {
	_, sink := checkSrc(t, `
	int add(int a, int b) { return a + b; }
	int f() { return add(1); }
	`)
	require.True(t, sink.HasErrors())
	assert.Equal(t, diag.ArgCountMismatch, sink.Diagnostics()[0].Kind)
}

func TestArrayIndexMustBeInteger(t *testing.T) {
	_, sink := checkSrc(t, `
	int a[4];
	int f() {
		float x;
		return a[x];
	}`)
	require.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.NonIntegerIndex {
			found = true
		}
	}
	assert.True(t, found)
}
