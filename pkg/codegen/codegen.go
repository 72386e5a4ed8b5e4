package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/iasmc/pkg/ast"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
	"github.com/xplshn/iasmc/pkg/token"
	"github.com/xplshn/iasmc/pkg/util"
)

// Error is a code generation failure tied to the node that caused it
type Error struct {
	Tok token.Token
	Err error
	msg string
}

func (e *Error) Token() token.Token { return e.Tok }
func (e *Error) Unwrap() error      { return e.Err }
func (e *Error) Detail() string     { return e.msg }

func (e *Error) Error() string {
	if e.Tok.Line == 0 {
		return e.msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.msg)
}

func newError(tok token.Token, err error, format string, args ...any) *Error {
	return &Error{Tok: tok, Err: err, msg: fmt.Sprintf(format, args...)}
}

// Context generates IASM for one compilation unit
type Context struct {
	cfg   *config.Config
	alloc *Allocator

	// warnings raised by the statement being compiled, printed only once it
	// has been committed
	pending []pendingWarning
}

type pendingWarning struct {
	wt  config.Warning
	tok token.Token
	msg string
}

func (ctx *Context) warn(wt config.Warning, tok token.Token, format string, args ...any) {
	ctx.pending = append(ctx.pending, pendingWarning{wt: wt, tok: tok, msg: fmt.Sprintf(format, args...)})
}

func (ctx *Context) flushWarnings() {
	for _, w := range ctx.pending {
		util.Warn(ctx.cfg, w.wt, w.tok, "%s", w.msg)
	}
	ctx.pending = ctx.pending[:0]
}

func NewContext(cfg *config.Config) *Context {
	return &Context{cfg: cfg, alloc: NewAllocator(cfg.PoolSize)}
}

func (ctx *Context) Allocator() *Allocator { return ctx.alloc }

// GenerateIR compiles every statement of prog in order. The first failure
// aborts the whole program and no partial result is returned; the allocator
// is left as it was before the failing statement.
func (ctx *Context) GenerateIR(prog *ast.Program) (*ir.Program, error) {
	out := &ir.Program{PoolSize: ctx.alloc.Size()}
	for i := range prog.Stmts {
		stmt, err := ctx.CompileStatement(&prog.Stmts[i])
		if err != nil {
			return nil, err
		}
		out.Stmts = append(out.Stmts, stmt)
	}
	return out, nil
}

// CompileStatement generates code for one top-level expression. On success
// exactly one more register is live, holding the result. On failure the
// allocator and log are rolled back and the statement's warnings dropped.
func (ctx *Context) CompileStatement(e *ast.Expr) (ir.Statement, error) {
	cp := ctx.alloc.Checkpoint()
	ctx.alloc.ResetPeak()
	baseline := ctx.alloc.Peak()
	ctx.pending = ctx.pending[:0]

	if err := ctx.codegenExpr(e); err != nil {
		ctx.alloc.Restore(cp)
		ctx.pending = ctx.pending[:0]
		return ir.Statement{}, err
	}

	used := ctx.alloc.UsedRegs()
	stmt := ir.Statement{
		Source: e.Format(),
		Instrs: append([]ir.Instruction(nil), ctx.alloc.Log()[cp.logLen:]...),
		Result: used[len(used)-1],
	}

	// only registers taken by this statement count
	if own, limit := ctx.alloc.Peak()-baseline, ctx.alloc.Size()*3/4; limit > 0 && own >= limit {
		ctx.warn(config.WarnRegisterPressure, e.Left.Left.Tok,
			"statement needs %d of %d registers at once", own, ctx.alloc.Size())
	}
	ctx.flushWarnings()
	return stmt, nil
}

func (ctx *Context) codegenExpr(e *ast.Expr) error {
	if err := ctx.codegenTerm(&e.Left); err != nil {
		return err
	}
	for i := range e.Rest {
		step := &e.Rest[i]
		if err := ctx.codegenTerm(&step.Right); err != nil {
			return err
		}
		if err := ctx.codegenBinary(step.Op, step.Tok); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) codegenTerm(t *ast.Term) error {
	if err := ctx.codegenFactor(&t.Left); err != nil {
		return err
	}
	for i := range t.Rest {
		step := &t.Rest[i]
		if err := ctx.codegenFactor(&step.Right); err != nil {
			return err
		}
		if err := ctx.codegenBinary(step.Op, step.Tok); err != nil {
			return err
		}
		if step.Op == ast.Div && isZero(&step.Right) {
			ctx.warn(config.WarnDivZero, step.Right.Tok, "division by zero")
		}
	}
	return nil
}

func (ctx *Context) codegenFactor(f *ast.Factor) error {
	switch f.Kind {
	case ast.IntegerLiteral:
		return ctx.codegenLoad(f.Tok, ir.IntImm(f.Int))
	case ast.FloatLiteral:
		if !ctx.cfg.IsFeatureEnabled(config.FeatFloatImm) {
			return newError(f.Tok, ErrUnsupportedOperand,
				"unsupported operand: float literal %s has no lowering (enable -Ffloat-imm)", ast.FormatFloat(f.Float))
		}
		return ctx.codegenLoad(f.Tok, ir.FloatImm(f.Float))
	case ast.Identifier:
		return newError(f.Tok, ErrUnsupportedOperand,
			"unsupported operand: identifier '%s' is not bound to any storage", f.Name)
	case ast.Parenthesized:
		return ctx.codegenExpr(f.Expr)
	}
	return newError(f.Tok, ErrUnsupportedOperand, "unsupported operand: unknown factor kind %d", int(f.Kind))
}

// codegenLoad allocates a register for an immediate and leaves it live
func (ctx *Context) codegenLoad(tok token.Token, imm ir.Immediate) error {
	dst, err := ctx.alloc.Alloc()
	if err != nil {
		return newError(tok, err, "cannot load %s: %v", imm, err)
	}
	ctx.alloc.Emit(ir.Load(dst, imm))
	ctx.alloc.Push(dst)
	return nil
}

// codegenBinary combines the two most recent live results. The destination
// is allocated while both operands are still held, then the operands are
// released right first so the left register is the next one reused.
func (ctx *Context) codegenBinary(op ast.Operator, tok token.Token) error {
	right, err := ctx.alloc.Pop()
	if err != nil {
		return newError(tok, err, "internal error: %s has no right operand", op.Mnemonic())
	}
	left, err := ctx.alloc.Pop()
	if err != nil {
		return newError(tok, err, "internal error: %s has no left operand", op.Mnemonic())
	}
	dst, err := ctx.alloc.Alloc()
	if err != nil {
		return newError(tok, err, "cannot compute %s: %v", op.Mnemonic(), err)
	}
	ctx.alloc.Emit(ir.Binary(ir.OpFor(op), left, right, dst))
	ctx.alloc.Release(right)
	ctx.alloc.Release(left)
	ctx.alloc.Push(dst)
	return nil
}

func isZero(f *ast.Factor) bool {
	switch f.Kind {
	case ast.IntegerLiteral:
		return f.Int == 0
	case ast.FloatLiteral:
		return f.Float == 0
	}
	return false
}

// IsUnsupported reports whether err stems from a node kind without lowering
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupportedOperand) }

// IsPoolExhausted reports whether err stems from running out of registers
func IsPoolExhausted(err error) bool { return errors.Is(err, ErrRegisterPoolExhausted) }
