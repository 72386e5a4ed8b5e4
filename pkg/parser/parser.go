package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/xplshn/iasmc/pkg/ast"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/token"
)

// Rule names reported in ParseError.Context
const (
	ctxInteger    = "Integer"
	ctxFloat      = "Float"
	ctxIdentifier = "Identifier"
	ctxOperator   = "Operator"
	ctxFactor     = "Factor"
	ctxTerm       = "Term"
	ctxExpression = "Expression"
	ctxParen      = "Parenthesized Expression"
	ctxProgram    = "Program"
)

// Integer := '-'? digit+
func Integer(in Input) (Input, ast.Factor, error) {
	start := in
	rest, _ := tag(in, "-")
	rest, _, ok := digit1(rest)
	if !ok {
		return in, ast.Factor{}, newError(rest, ctxInteger, "digit")
	}
	val, err := strconv.ParseInt(start.text(rest), 10, 64)
	if err != nil {
		pe := newError(start, ctxInteger, "integer in 64-bit range")
		pe.Tok = start.Token(token.Integer, rest)
		pe.Found = start.text(rest)
		return in, ast.Factor{}, pe.commit()
	}
	return rest, ast.NewInteger(start.Token(token.Integer, rest), val), nil
}

// Float := '-'? digit+ '.' digit+
func Float(in Input) (Input, ast.Factor, error) {
	start := in
	rest, _ := tag(in, "-")
	rest, _, ok := digit1(rest)
	if !ok {
		return in, ast.Factor{}, newError(rest, ctxFloat, "digit")
	}
	if rest, ok = tag(rest, "."); !ok {
		return in, ast.Factor{}, newError(rest, ctxFloat, "'.'")
	}
	if rest, _, ok = digit1(rest); !ok {
		return in, ast.Factor{}, newError(rest, ctxFloat, "digit")
	}
	val, err := strconv.ParseFloat(start.text(rest), 64)
	if err != nil {
		pe := newError(start, ctxFloat, "float in 64-bit range")
		pe.Tok = start.Token(token.Float, rest)
		pe.Found = start.text(rest)
		return in, ast.Factor{}, pe.commit()
	}
	return rest, ast.NewFloat(start.Token(token.Float, rest), val), nil
}

// Identifier := alpha+
func Identifier(in Input) (Input, ast.Factor, error) {
	rest, name, ok := alpha1(in)
	if !ok {
		return in, ast.Factor{}, newError(in, ctxIdentifier, "letter")
	}
	return rest, ast.NewIdentifier(in.Token(token.Ident, rest), name), nil
}

// Parenthesized := '(' ' '* Expr ' '* ')'
func Parenthesized(in Input) (Input, ast.Factor, error) {
	rest, ok := tag(in, "(")
	if !ok {
		return in, ast.Factor{}, newError(in, ctxParen, "'('")
	}
	rest, expr, err := Expression(space0(rest))
	if err != nil {
		return in, ast.Factor{}, asParseError(err).in(ctxParen).commit()
	}
	rest = space0(rest)
	end, ok := tag(rest, ")")
	if !ok {
		return in, ast.Factor{}, newError(rest, ctxParen, "')'").commit()
	}
	return end, ast.NewParenthesized(in.Token(token.LParen, end), expr), nil
}

type factorRule func(Input) (Input, ast.Factor, error)

// Factor := Identifier | Float | Integer | '(' Expr ')'
//
// When every alternative fails, the one that got farthest is reported (the
// later one on ties). If none consumed anything the error names the rule as
// a whole.
func Factor(in Input) (Input, ast.Factor, error) {
	// ordered choice; the first match wins
	rules := [...]factorRule{Identifier, Float, Integer, Parenthesized}
	var best *ParseError
	for _, rule := range rules {
		rest, f, err := rule(in)
		if err == nil {
			return rest, f, nil
		}
		pe := asParseError(err)
		if pe.cut {
			return in, ast.Factor{}, pe.in(ctxFactor)
		}
		if best == nil || pe.Offset() >= best.Offset() {
			best = pe
		}
	}
	if best.Offset() == in.Offset() {
		return in, ast.Factor{}, newError(in, ctxFactor, "identifier, number or '('")
	}
	return in, ast.Factor{}, best.in(ctxFactor)
}

// Operator := '+' | '-' | '*' | '/'
func Operator(in Input) (Input, ast.Operator, error) {
	if op, ok := ast.OperatorFromToken(token.Classify(in.peek())); ok {
		return in.advance(1), op, nil
	}
	return in, 0, newError(in, ctxOperator, "'+', '-', '*' or '/'")
}

// chainOperator matches ' '* op where op satisfies accept. On a miss the
// original input is returned so the leading spaces are not consumed.
func chainOperator(in Input, accept func(ast.Operator) bool) (Input, ast.Operator, token.Token, bool) {
	start := space0(in)
	rest, op, err := Operator(start)
	if err != nil || !accept(op) {
		return in, 0, token.Token{}, false
	}
	return space0(rest), op, start.Token(token.Classify(start.peek()), rest), true
}

// Term := Factor ( ' '* ('*'|'/') ' '* Factor )*
func Term(in Input) (Input, ast.Term, error) {
	rest, left, err := Factor(in)
	if err != nil {
		return in, ast.Term{}, asParseError(err).in(ctxTerm)
	}
	var chain []ast.TermOp
	for {
		next, op, opTok, ok := chainOperator(rest, ast.Operator.IsMultiplicative)
		if !ok {
			break
		}
		next, right, err := Factor(next)
		if err != nil {
			return in, ast.Term{}, asParseError(err).in(ctxTerm).commit()
		}
		chain = append(chain, ast.TermOp{Op: op, Tok: opTok, Right: right})
		rest = next
	}
	return rest, ast.NewTerm(left, chain...), nil
}

// Expression := Term ( ' '* ('+'|'-') ' '* Term )*
func Expression(in Input) (Input, ast.Expr, error) {
	rest, left, err := Term(in)
	if err != nil {
		return in, ast.Expr{}, asParseError(err).in(ctxExpression)
	}
	var chain []ast.ExprOp
	for {
		next, op, opTok, ok := chainOperator(rest, ast.Operator.IsAdditive)
		if !ok {
			break
		}
		next, right, err := Term(next)
		if err != nil {
			return in, ast.Expr{}, asParseError(err).in(ctxExpression).commit()
		}
		chain = append(chain, ast.ExprOp{Op: op, Tok: opTok, Right: right})
		rest = next
	}
	return rest, ast.NewExpr(left, chain...), nil
}

// separator skips what may appear between two statements. Strictly that is
// at most one newline; with blank lines allowed it is any number of lines
// that hold nothing but spaces, plus the indentation of the next statement.
func separator(in Input, blankLines bool) Input {
	if !blankLines {
		rest, _ := newline(in)
		return rest
	}
	start := in
	for {
		rest, ok := newline(space0(in))
		if !ok {
			break
		}
		in = rest
	}
	if in.Offset() == start.Offset() {
		return in
	}
	return space0(in)
}

// Program := Expr (newline? Expr)*
//
// The statement list ends at the first statement that fails without
// committing; that failure is returned as stop so callers that require the
// whole input to be consumed can report it.
func Program(in Input, blankLines bool) (rest Input, prog ast.Program, stop *ParseError, err error) {
	rest = in
	if blankLines {
		rest = space0(separator(rest, true))
	}
	for {
		next, expr, err := Expression(rest)
		if err != nil {
			pe := asParseError(err).in(ctxProgram)
			if pe.cut || len(prog.Stmts) == 0 {
				return in, ast.Program{}, nil, pe
			}
			return rest, prog, pe, nil
		}
		prog.Stmts = append(prog.Stmts, expr)
		// newline? is optional, so statements may also abut, e.g. "1(2)"
		rest = separator(next, blankLines)
	}
}

// Parse parses a whole compilation unit. Unlike the rule functions it fails
// unless every statement is consumed; trailing spaces and newlines are
// ignored.
func Parse(src string, fileIndex int, cfg *config.Config) (*ast.Program, error) {
	blankLines := cfg == nil || cfg.IsFeatureEnabled(config.FeatBlankLines)
	rest, prog, stop, err := Program(NewInput(src, fileIndex), blankLines)
	if err != nil {
		return nil, err
	}
	end := separator(rest, true)
	end = space0(end)
	if end.AtEnd() {
		return &prog, nil
	}
	afterNewline := strings.HasSuffix(strings.TrimRight(src[:rest.Offset()], " "), "\n")
	if stop != nil && (stop.Offset() > rest.Offset() || afterNewline) {
		return nil, stop
	}
	return nil, newError(space0(rest), ctxProgram, "operator or newline")
}

func asParseError(err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ParseError{Context: []string{ctxProgram}, Expected: err.Error()}
}

// --- string entry points ---
//
// These mirror the rule functions on plain strings and return the unconsumed
// remainder alongside the node.

func ParseFactor(src string) (string, ast.Factor, error) {
	rest, f, err := Factor(NewInput(src, 0))
	return rest.Rest(), f, err
}

func ParseTerm(src string) (string, ast.Term, error) {
	rest, t, err := Term(NewInput(src, 0))
	return rest.Rest(), t, err
}

func ParseExpr(src string) (string, ast.Expr, error) {
	rest, e, err := Expression(NewInput(src, 0))
	return rest.Rest(), e, err
}

func ParseOperator(src string) (string, ast.Operator, error) {
	rest, op, err := Operator(NewInput(src, 0))
	return rest.Rest(), op, err
}

// ParseProgram applies the Program rule with the strict statement separator
func ParseProgram(src string) (string, ast.Program, error) {
	rest, prog, _, err := Program(NewInput(src, 0), false)
	return rest.Rest(), prog, err
}
