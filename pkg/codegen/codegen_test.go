package codegen

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/iasmc/pkg/ast"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
	"github.com/xplshn/iasmc/pkg/parser"
	"github.com/xplshn/iasmc/pkg/util"
)

func init() { util.SetOutput(io.Discard) }

func compile(t *testing.T, cfg *config.Config, src string) (*Context, *ir.Program) {
	t.Helper()
	prog, err := parser.Parse(src, -1, cfg)
	require.NoError(t, err)
	ctx := NewContext(cfg)
	out, err := ctx.GenerateIR(prog)
	require.NoError(t, err)
	return ctx, out
}

func compileExpr(t *testing.T, src string) (*Context, []string) {
	t.Helper()
	rest, expr, err := parser.ParseExpr(src)
	require.NoError(t, err)
	require.Empty(t, rest)
	ctx := NewContext(config.NewConfig())
	_, err = ctx.CompileStatement(&expr)
	require.NoError(t, err)
	return ctx, ctx.Allocator().Lines()
}

func TestSingleLiteral(t *testing.T) {
	ctx, lines := compileExpr(t, "-9")
	assert.Equal(t, []string{"LOAD $0 #-9"}, lines)
	assert.Equal(t, 30, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestParenthesizedSubtraction(t *testing.T) {
	ctx, lines := compileExpr(t, "(-9- 8)")
	assert.Equal(t, []string{
		"LOAD $0 #-9",
		"LOAD $1 #8",
		"SUB $0 $1 $2",
	}, lines)
	assert.Equal(t, 30, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestExpressionRegisterReuse(t *testing.T) {
	ctx, lines := compileExpr(t, "(-9 - 8) + 8 * 1")
	assert.Equal(t, []string{
		"LOAD $0 #-9",
		"LOAD $1 #8",
		"SUB $0 $1 $2",
		"LOAD $0 #8",
		"LOAD $1 #1",
		"MUL $0 $1 $3",
		"ADD $2 $3 $0",
	}, lines)
	assert.Equal(t, 30, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestProgramKeepsResultsLive(t *testing.T) {
	src := "(-9 - 8) + 8 * 1\n(-9 - 8) + 8 * 1"
	ctx, out := compile(t, config.NewConfig(), src)

	want := []string{
		"LOAD $0 #-9",
		"LOAD $1 #8",
		"SUB $0 $1 $2",
		"LOAD $0 #8",
		"LOAD $1 #1",
		"MUL $0 $1 $3",
		"ADD $2 $3 $0",
		"LOAD $2 #-9",
		"LOAD $3 #8",
		"SUB $2 $3 $1",
		"LOAD $2 #8",
		"LOAD $3 #1",
		"MUL $2 $3 $4",
		"ADD $1 $4 $2",
	}
	if diff := cmp.Diff(want, out.Lines()); diff != "" {
		t.Errorf("program lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 29, ctx.Allocator().Free())
	assert.Equal(t, 2, ctx.Allocator().Used())

	require.Len(t, out.Stmts, 2)
	assert.Equal(t, ir.Reg(0), out.Stmts[0].Result)
	assert.Equal(t, ir.Reg(2), out.Stmts[1].Result)
	assert.Equal(t, "(-9 - 8) + 8 * 1", out.Stmts[0].Source)
	assert.Equal(t, 31, out.PoolSize)
}

func TestMixedPrecedence(t *testing.T) {
	ctx, lines := compileExpr(t, "-1 +9 * -8 - (3*1)")
	assert.Equal(t, []string{
		"LOAD $0 #-1",
		"LOAD $1 #9",
		"LOAD $2 #-8",
		"MUL $1 $2 $3",
		"ADD $0 $3 $1",
		"LOAD $0 #3",
		"LOAD $3 #1",
		"MUL $0 $3 $2",
		"SUB $1 $2 $0",
	}, lines)
	assert.Equal(t, 30, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestLeftAssociativity(t *testing.T) {
	_, lines := compileExpr(t, "8-3-2")
	assert.Equal(t, []string{
		"LOAD $0 #8",
		"LOAD $1 #3",
		"SUB $0 $1 $2",
		"LOAD $0 #2",
		"SUB $2 $0 $1",
	}, lines)
}

func TestTermWithParenthesizedRight(t *testing.T) {
	ctx, lines := compileExpr(t, "-9*(8-2)")
	assert.Len(t, lines, 5)
	assert.Equal(t, 30, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestRegisterBalanceAndPostOrder(t *testing.T) {
	sources := []string{
		"1",
		"1 + 2",
		"1 * 2 * 3 * 4",
		"1 - 2 + 3 - 4 + 5",
		"((((7))))",
		"(1 + 2) * (3 - 4) / (5 + 6 * 7)",
		"1 + 2 * 3 - 4 / 5 + (6 - (7 * (8 + 9)))",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			rest, expr, err := parser.ParseExpr(src)
			require.NoError(t, err)
			require.Empty(t, rest)

			ctx := NewContext(config.NewConfig())
			stmt, err := ctx.CompileStatement(&expr)
			require.NoError(t, err)
			assert.Equal(t, 30, ctx.Allocator().Free())
			assert.Equal(t, 1, ctx.Allocator().Used())

			var loads []int64
			var binOps []ir.Op
			for _, in := range stmt.Instrs {
				if in.Op == ir.OpLoad {
					loads = append(loads, in.Imm.Int)
				} else {
					binOps = append(binOps, in.Op)
				}
			}
			assert.Len(t, loads, expr.Leaves())
			assert.Len(t, binOps, expr.Operators())
			assert.Equal(t, exprLiterals(&expr), loads)
		})
	}
}

// exprLiterals lists the integer literals of e from left to right
func exprLiterals(e *ast.Expr) []int64 {
	var out []int64
	var factor func(f *ast.Factor)
	term := func(t *ast.Term) {
		factor(&t.Left)
		for i := range t.Rest {
			factor(&t.Rest[i].Right)
		}
	}
	factor = func(f *ast.Factor) {
		if f.Kind == ast.Parenthesized {
			out = append(out, exprLiterals(f.Expr)...)
			return
		}
		out = append(out, f.Int)
	}
	term(&e.Left)
	for i := range e.Rest {
		term(&e.Rest[i].Right)
	}
	return out
}

func TestPoolExhaustionRollsBack(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.SetPoolSize(3))

	// right-nested parentheses keep one more result live per level
	prog, err := parser.Parse("1 + 2\n1 + (2 + (3 + 4))", -1, cfg)
	require.NoError(t, err)

	ctx := NewContext(cfg)
	out, err := ctx.GenerateIR(prog)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegisterPoolExhausted))
	assert.True(t, IsPoolExhausted(err))

	var cgErr *Error
	require.True(t, errors.As(err, &cgErr))
	assert.Equal(t, 2, cgErr.Tok.Line)

	// only the first statement survives the rollback
	assert.Equal(t, []string{"LOAD $0 #1", "LOAD $1 #2", "ADD $0 $1 $2"}, ctx.Allocator().Lines())
	assert.Equal(t, 2, ctx.Allocator().Free())
	assert.Equal(t, 1, ctx.Allocator().Used())
}

func TestUnsupportedOperands(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x", "unsupported operand: identifier 'x' is not bound to any storage"},
		{"1 + 2.5", "unsupported operand: float literal 2.5 has no lowering (enable -Ffloat-imm)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			cfg := config.NewConfig()
			prog, err := parser.Parse(tt.src, -1, cfg)
			require.NoError(t, err)

			ctx := NewContext(cfg)
			_, err = ctx.GenerateIR(prog)
			require.Error(t, err)
			assert.True(t, IsUnsupported(err))

			var cgErr *Error
			require.True(t, errors.As(err, &cgErr))
			assert.Equal(t, tt.want, cgErr.Detail())
			assert.Empty(t, ctx.Allocator().Log())
			assert.Equal(t, 31, ctx.Allocator().Free())
			assert.Equal(t, 0, ctx.Allocator().Used())
		})
	}
}

func TestFloatImmediates(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatFloatImm, true)
	_, out := compile(t, cfg, "-9.8 - 8")
	assert.Equal(t, []string{
		"LOAD $0 #-9.8",
		"LOAD $1 #8",
		"SUB $0 $1 $2",
	}, out.Lines())
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero(&ast.Factor{Kind: ast.IntegerLiteral}))
	assert.True(t, isZero(&ast.Factor{Kind: ast.FloatLiteral}))
	assert.False(t, isZero(&ast.Factor{Kind: ast.IntegerLiteral, Int: 3}))
	assert.False(t, isZero(&ast.Factor{Kind: ast.Identifier, Name: "zero"}))
}

func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	util.SetOutput(&buf)
	t.Cleanup(func() { util.SetOutput(io.Discard) })
	return &buf
}

func TestRegisterPressureCountsOnlyOwnRegisters(t *testing.T) {
	buf := captureWarnings(t)

	// every statement leaves one result live but only ever takes one register
	_, out := compile(t, config.NewConfig(), strings.Repeat("1\n", 24))
	require.Len(t, out.Stmts, 24)
	assert.NotContains(t, buf.String(), "register-pressure")

	cfg := config.NewConfig()
	require.NoError(t, cfg.SetPoolSize(8))
	compile(t, cfg, "1 + (2 + (3 + (4 + (5 + 6))))")
	assert.Contains(t, buf.String(), "statement needs 7 of 8 registers at once [-Wregister-pressure]")
}

func TestDivZeroWarning(t *testing.T) {
	buf := captureWarnings(t)
	compile(t, config.NewConfig(), "12 / 0")
	assert.Contains(t, buf.String(), "division by zero [-Wdiv-zero]")
}

func TestRolledBackStatementPrintsNoWarnings(t *testing.T) {
	buf := captureWarnings(t)
	cfg := config.NewConfig()
	prog, err := parser.Parse("1 / 0 + x", -1, cfg)
	require.NoError(t, err)

	ctx := NewContext(cfg)
	_, err = ctx.GenerateIR(prog)
	require.True(t, IsUnsupported(err))
	assert.NotContains(t, buf.String(), "division by zero")
	assert.Empty(t, ctx.Allocator().Log())
}
