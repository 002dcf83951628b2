package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minicc/src/diag"
)

func parseOK(t *testing.T, src string) *Node {
	t.Helper()
	sink := diag.NewSink()
	prog := Parse(src, sink)
	require.False(t, sink.HasErrors(), "unexpected diagnostics: %v", sink.Diagnostics())
	require.NotNil(t, prog)
	return prog
}

func TestParseGlobalVarVsFuncDef(t *testing.T) {
	prog := parseOK(t, `int x; int add(int a, int b) { return a + b; }`)
	require.Len(t, prog.Children, 2)
	assert.Equal(t, NGlobalVar, prog.Children[0].Kind)
	assert.Equal(t, "x", prog.Children[0].Name())
	assert.Equal(t, NFuncDef, prog.Children[1].Kind)
	assert.Equal(t, "add", prog.Children[1].Name())
}

func TestParseArrayGlobal(t *testing.T) {
	prog := parseOK(t, `int a[3][4];`)
	v := prog.Children[0]
	require.Equal(t, NGlobalVar, v.Kind)
	assert.Equal(t, []int{3, 4}, v.Ty.Dims)
}

func TestParseArrayDimsOverLimitIsError(t *testing.T) {
	sink := diag.NewSink()
	Parse(`int a[1][2][3][4];`, sink)
	assert.True(t, sink.HasErrors())
}

func TestParseExternDecl(t *testing.T) {
	prog := parseOK(t, `extern int puts(int s); int main() { return puts(1); }`)
	require.Len(t, prog.Children, 2)
	assert.Equal(t, NExternDecl, prog.Children[0].Kind)
	assert.Equal(t, "puts", prog.Children[0].Name())
}

func TestParseDanglingElseBindsToNearestIf(t *testing.T) {
	prog := parseOK(t, `
	int f() {
		if (true)
			if (false)
				return 1;
			else
				return 2;
		return 3;
	}`)
	body := prog.Children[0].Children[len(prog.Children[0].Children)-1]
	outerIf := body.Children[0]
	require.Equal(t, NIf, outerIf.Kind)
	require.Len(t, outerIf.Children, 2) // no else on the outer if
	innerIf := outerIf.Children[1]
	require.Equal(t, NIf, innerIf.Kind)
	assert.Len(t, innerIf.Children, 3) // else binds to the inner if
}

func TestParseAssignRequiresLValue(t *testing.T) {
	sink := diag.NewSink()
	Parse(`int f() { 1 + 2 = 3; }`, sink)
	assert.True(t, sink.HasErrors())
}

func TestParseIndexAndCall(t *testing.T) {
	prog := parseOK(t, `
	int a[10];
	int f(int n) { return a[n] + g(n, 1); }
	`)
	ret := prog.Children[1].Children[len(prog.Children[1].Children)-1].Children[0]
	require.Equal(t, NReturn, ret.Kind)
	add := ret.Children[0]
	require.Equal(t, NBinary, add.Kind)
	assert.Equal(t, NIndex, add.Children[0].Kind)
	assert.Equal(t, NCall, add.Children[1].Kind)
}

func TestParseRecoversAfterError(t *testing.T) {
	sink := diag.NewSink()
	prog := Parse(`int bad( ; int good() { return 1; }`, sink)
	require.NotNil(t, prog)
	assert.True(t, sink.HasErrors())
}

func TestParseNestedBlocks(t *testing.T) {
	prog := parseOK(t, `
	int f() {
		int x;
		{
			int x;
			x = 1;
		}
		return x;
	}`)
	body := prog.Children[0].Children[len(prog.Children[0].Children)-1]
	require.Len(t, body.Children, 3)
	assert.Equal(t, NLocalDecl, body.Children[0].Kind)
	assert.Equal(t, NBlock, body.Children[1].Kind)
	assert.Equal(t, NReturn, body.Children[2].Kind)
}
