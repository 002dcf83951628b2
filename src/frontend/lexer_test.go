package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLexBasic mirrors the reference lexer test's approach: compare a
// hand-written expected token slice against the real lexer's output for a
// small source snippet covering keywords, operators and literals.
func TestLexBasic(t *testing.T) {
	src := `int add(int a, int b) {
		return a + b;
	}`

	toks, err := Lex(src)
	require.Nil(t, err)

	want := []Kind{
		KwInt, Identifier, LParen, KwInt, Identifier, Comma, KwInt, Identifier, RParen, LBrace,
		KwReturn, Identifier, Plus, Identifier, Semicolon,
		RBrace, EOF,
	}
	got := make([]Kind, len(toks))
	for i, tok := range toks {
		got[i] = tok.Kind
	}
	assert.Equal(t, want, got)
}

func TestLexTwoCharOperators(t *testing.T) {
	src := `== != <= >= && ||`
	toks, err := Lex(src)
	require.Nil(t, err)
	want := []Kind{Eq, Ne, Le, Ge, AndAnd, OrOr, EOF}
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind)
	}
}

func TestLexFloatRequiresDigitsOnBothSides(t *testing.T) {
	toks, err := Lex("3.14 3")
	require.Nil(t, err)

	require.True(t, len(toks) >= 3)
	assert.Equal(t, FloatLit, toks[0].Kind)
	assert.InDelta(t, float32(3.14), toks[0].FloatVal, 1e-6)
	assert.Equal(t, IntLit, toks[1].Kind)
	assert.Equal(t, int32(3), toks[1].IntVal)

	// "3." is not a float literal: the digits are emitted as IntLit(3) and
	// the lone '.' after them, which the lexer has no token for, fails as an
	// unexpected byte at column 2.
	_, err = Lex("3.")
	require.NotNil(t, err)
	assert.Equal(t, 2, err.Primary.Col)
}

func TestLexDotWithNoLeadingDigitIsAnError(t *testing.T) {
	_, err := Lex(".5")
	require.NotNil(t, err)
}

func TestLexLineComment(t *testing.T) {
	toks, err := Lex("int x; // trailing comment\nint y;")
	require.Nil(t, err)
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, KwInt)
	assert.NotContains(t, kinds, Error)
}

func TestLexBlockCommentUnterminated(t *testing.T) {
	_, err := Lex("int x; /* never closed")
	require.NotNil(t, err)
	assert.Equal(t, "lex error", err.Kind.String())
}

func TestLexIntOverflowTruncates(t *testing.T) {
	toks, err := Lex("99999999999")
	require.Nil(t, err)
	require.Equal(t, IntLit, toks[0].Kind)
	// 99999999999 mod 2^32 = 1215752191, which fits in an int32.
	assert.Equal(t, int32(1215752191), toks[0].IntVal)
}
