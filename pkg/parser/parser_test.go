package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/iasmc/pkg/ast"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/token"
)

// ignorePos compares trees by shape and values only
var ignorePos = cmp.Options{
	cmpopts.IgnoreFields(ast.Factor{}, "Tok"),
	cmpopts.IgnoreFields(ast.TermOp{}, "Tok"),
	cmpopts.IgnoreFields(ast.ExprOp{}, "Tok"),
	cmpopts.EquateEmpty(),
}

var noTok token.Token

func lit(v int64) ast.Factor      { return ast.NewInteger(noTok, v) }
func flt(v float64) ast.Factor    { return ast.NewFloat(noTok, v) }
func ident(n string) ast.Factor   { return ast.NewIdentifier(noTok, n) }
func paren(e ast.Expr) ast.Factor { return ast.NewParenthesized(noTok, e) }
func single(f ast.Factor) ast.Expr {
	return ast.NewExpr(ast.NewTerm(f))
}

func TestFactor(t *testing.T) {
	tests := []struct {
		src  string
		want ast.Factor
		rest string
	}{
		{"3", lit(3), ""},
		{"-3", lit(-3), ""},
		{"3.2", flt(3.2), ""},
		{"-3.2", flt(-3.2), ""},
		{"abc", ident("abc"), ""},
		{"abc1", ident("abc"), "1"},
		{"12.", lit(12), "."},
		{"7 + 1", lit(7), " + 1"},
		{"(7)", paren(single(lit(7))), ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			rest, got, err := ParseFactor(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.rest, rest)
			if diff := cmp.Diff(tt.want, got, ignorePos); diff != "" {
				t.Errorf("factor mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOperator(t *testing.T) {
	for src, want := range map[string]ast.Operator{"+": ast.Add, "-": ast.Sub, "*": ast.Mul, "/": ast.Div} {
		rest, op, err := ParseOperator(src + "1")
		require.NoError(t, err)
		assert.Equal(t, want, op)
		assert.Equal(t, "1", rest)
	}
	_, _, err := ParseOperator("%")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"Operator"}, pe.Context)
}

func TestParenthesizedAllowsInnerSpaces(t *testing.T) {
	rest, f, err := ParseFactor("( -9 * 8 )")
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, ast.Parenthesized, f.Kind)

	_, want, err := ParseExpr("-9 * 8")
	require.NoError(t, err)
	if diff := cmp.Diff(want, *f.Expr, ignorePos); diff != "" {
		t.Errorf("parenthesized body mismatch (-want +got):\n%s", diff)
	}
}

func TestTermChain(t *testing.T) {
	rest, term, err := ParseTerm("(3*4)*2 + 1")
	require.NoError(t, err)
	assert.Equal(t, " + 1", rest)
	want := ast.NewTerm(
		paren(ast.NewExpr(ast.NewTerm(lit(3), ast.TermOp{Op: ast.Mul, Right: lit(4)}))),
		ast.TermOp{Op: ast.Mul, Right: lit(2)},
	)
	if diff := cmp.Diff(want, term, ignorePos); diff != "" {
		t.Errorf("term mismatch (-want +got):\n%s", diff)
	}

	_, _, err = ParseTerm("4*(3-4)")
	assert.NoError(t, err)
}

func TestExpressionIsLeftAssociative(t *testing.T) {
	_, e, err := ParseExpr("8-3-2")
	require.NoError(t, err)
	want := ast.NewExpr(ast.NewTerm(lit(8)),
		ast.ExprOp{Op: ast.Sub, Right: ast.NewTerm(lit(3))},
		ast.ExprOp{Op: ast.Sub, Right: ast.NewTerm(lit(2))},
	)
	if diff := cmp.Diff(want, e, ignorePos); diff != "" {
		t.Errorf("expr mismatch (-want +got):\n%s", diff)
	}
}

func TestExpressionPrecedence(t *testing.T) {
	_, e, err := ParseExpr("-1 +9 * -8 - (3*1)")
	require.NoError(t, err)
	want := ast.NewExpr(ast.NewTerm(lit(-1)),
		ast.ExprOp{Op: ast.Add, Right: ast.NewTerm(lit(9), ast.TermOp{Op: ast.Mul, Right: lit(-8)})},
		ast.ExprOp{Op: ast.Sub, Right: ast.NewTerm(paren(ast.NewExpr(ast.NewTerm(lit(3), ast.TermOp{Op: ast.Mul, Right: lit(1)}))))},
	)
	if diff := cmp.Diff(want, e, ignorePos); diff != "" {
		t.Errorf("expr mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, e.Leaves())
	assert.Equal(t, 4, e.Operators())
}

func TestProgram(t *testing.T) {
	rest, prog, err := ParseProgram("(-9- 8)\n(-9.8  - 8 ) + (2.0*x)")
	require.NoError(t, err)
	assert.Empty(t, rest)

	want := ast.NewProgram(
		single(paren(ast.NewExpr(ast.NewTerm(lit(-9)), ast.ExprOp{Op: ast.Sub, Right: ast.NewTerm(lit(8))}))),
		ast.NewExpr(
			ast.NewTerm(paren(ast.NewExpr(ast.NewTerm(flt(-9.8)), ast.ExprOp{Op: ast.Sub, Right: ast.NewTerm(lit(8))}))),
			ast.ExprOp{Op: ast.Add, Right: ast.NewTerm(paren(ast.NewExpr(ast.NewTerm(flt(2.0), ast.TermOp{Op: ast.Mul, Right: ident("x")}))))},
		),
	)
	if diff := cmp.Diff(want, prog, ignorePos); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "(-9 - 8)\n(-9.8 - 8) + (2.0 * x)", prog.Format())
}

func TestProgramStrictSeparator(t *testing.T) {
	rest, prog, err := ParseProgram("1\n\n2")
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 1)
	assert.Equal(t, "\n2", rest)

	// statements may abut without a newline
	rest, prog, err = ParseProgram("1(2)")
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Len(t, prog.Stmts, 2)
}

func TestParseBlankLines(t *testing.T) {
	prog, err := Parse("\n1 + 2  \n\n   \n3\n\n", 0, config.NewConfig())
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 2)

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatBlankLines, false)
	_, err = Parse("1\n\n2", 0, cfg)
	require.Error(t, err)
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		"1",
		"-1 +9 * -8 - (3*1)",
		"( -9 * 8 )",
		"a * (b - 2.5) / c",
		"((1))",
		"1 - -2",
		"10 / 2 / 5",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			_, first, err := ParseExpr(src)
			require.NoError(t, err)
			rest, second, err := ParseExpr(first.Format())
			require.NoError(t, err)
			assert.Empty(t, rest)
			if diff := cmp.Diff(first, second, ignorePos); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		msg     string
		context []string
	}{
		{
			name:    "missing operator",
			src:     "1 2",
			msg:     "1:3: expected operator or newline, found '2' [Program]",
			context: []string{"Program"},
		},
		{
			name:    "dangling operator",
			src:     "8 *",
			msg:     "1:4: expected identifier, number or '(', found end of input [Factor < Term < Expression < Program]",
			context: []string{"Factor", "Term", "Expression", "Program"},
		},
		{
			name:    "unclosed parenthesis",
			src:     "(1 + 2",
			msg:     "1:7: expected ')', found end of input [Parenthesized Expression < Factor < Term < Expression < Program]",
			context: []string{"Parenthesized Expression", "Factor", "Term", "Expression", "Program"},
		},
		{
			name:    "empty input",
			src:     "",
			msg:     "1:1: expected identifier, number or '(', found end of input [Factor < Term < Expression < Program]",
			context: []string{"Factor", "Term", "Expression", "Program"},
		},
		{
			name:    "bad statement after newline",
			src:     "1\n)",
			msg:     "2:1: expected identifier, number or '(', found ')' [Factor < Term < Expression < Program]",
			context: []string{"Factor", "Term", "Expression", "Program"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse(tt.src, 0, config.NewConfig())
			assert.Nil(t, prog)
			require.Error(t, err)
			assert.EqualError(t, err, tt.msg)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.context, pe.Context)
		})
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	_, _, err := ParseFactor("99999999999999999999")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "integer in 64-bit range", pe.Expected)
	assert.Equal(t, "99999999999999999999", pe.Found)
	assert.Equal(t, []string{"Integer", "Factor"}, pe.Context)
}

func TestTokenPositions(t *testing.T) {
	prog, err := Parse("1\n  22 * 3", 4, config.NewConfig())
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	tok := prog.Stmts[1].Left.Left.Tok
	assert.Equal(t, token.Integer, tok.Type)
	assert.Equal(t, "22", tok.Value)
	assert.Equal(t, 4, tok.FileIndex)
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 3, tok.Column)
	assert.Equal(t, 2, tok.Len)

	opTok := prog.Stmts[1].Left.Rest[0].Tok
	assert.Equal(t, token.Star, opTok.Type)
	assert.Equal(t, 6, opTok.Column)
}

func TestForeignErrorKeepsRuleContext(t *testing.T) {
	pe := asParseError(errors.New("boom"))
	assert.Equal(t, []string{"Program"}, pe.Context)
	assert.Equal(t, "boom", pe.Expected)

	wrapped := &ParseError{Context: []string{"Factor"}}
	assert.Same(t, wrapped, asParseError(wrapped))
}
