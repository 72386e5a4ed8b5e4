// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
// of an IASM source program
package ast

import (
	"github.com/xplshn/iasmc/pkg/token"
)

// Operator is one of the four binary arithmetic operators
type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
)

var operatorSymbols = [...]string{Add: "+", Sub: "-", Mul: "*", Div: "/"}
var operatorMnemonics = [...]string{Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV"}

func (op Operator) String() string {
	if op < Add || op > Div {
		return "?"
	}
	return operatorSymbols[op]
}

// Mnemonic returns the IASM instruction name for the operator
func (op Operator) Mnemonic() string {
	if op < Add || op > Div {
		return "???"
	}
	return operatorMnemonics[op]
}

// IsMultiplicative reports whether op belongs in a Term chain
func (op Operator) IsMultiplicative() bool { return op == Mul || op == Div }

// IsAdditive reports whether op belongs in an Expr chain
func (op Operator) IsAdditive() bool { return op == Add || op == Sub }

// OperatorFromToken maps an operator token to its Operator
func OperatorFromToken(t token.Type) (Operator, bool) {
	switch t {
	case token.Plus:
		return Add, true
	case token.Minus:
		return Sub, true
	case token.Star:
		return Mul, true
	case token.Slash:
		return Div, true
	}
	return 0, false
}

// FactorKind defines the kind of a Factor
type FactorKind int

const (
	IntegerLiteral FactorKind = iota
	FloatLiteral
	Identifier
	Parenthesized
)

func (k FactorKind) String() string {
	switch k {
	case IntegerLiteral:
		return "Integer"
	case FloatLiteral:
		return "Float"
	case Identifier:
		return "Identifier"
	case Parenthesized:
		return "Parenthesized"
	}
	return "Unknown"
}

// Factor is the smallest syntactic unit. Only the field matching Kind is
// meaningful; Tok records where the factor started and plays no part in
// its meaning.
type Factor struct {
	Kind  FactorKind
	Tok   token.Token
	Int   int64
	Float float64
	Name  string
	Expr  *Expr
}

// TermOp is one (operator, operand) element of a Term chain
type TermOp struct {
	Op    Operator
	Tok   token.Token
	Right Factor
}

// ExprOp is one (operator, operand) element of an Expr chain
type ExprOp struct {
	Op    Operator
	Tok   token.Token
	Right Term
}

// Term is a left-associative chain of factors joined by '*' and '/'
type Term struct {
	Left Factor
	Rest []TermOp
}

// Expr is a left-associative chain of terms joined by '+' and '-'
type Expr struct {
	Left Term
	Rest []ExprOp
}

// Program is an ordered list of top-level statements
type Program struct {
	Stmts []Expr
}

// --- Node Constructors ---

func NewInteger(tok token.Token, value int64) Factor {
	return Factor{Kind: IntegerLiteral, Tok: tok, Int: value}
}
func NewFloat(tok token.Token, value float64) Factor {
	return Factor{Kind: FloatLiteral, Tok: tok, Float: value}
}
func NewIdentifier(tok token.Token, name string) Factor {
	return Factor{Kind: Identifier, Tok: tok, Name: name}
}
func NewParenthesized(tok token.Token, expr Expr) Factor {
	return Factor{Kind: Parenthesized, Tok: tok, Expr: &expr}
}

// NewTerm builds a Term. Callers must only chain Mul and Div.
func NewTerm(left Factor, rest ...TermOp) Term {
	if len(rest) == 0 {
		rest = nil
	}
	return Term{Left: left, Rest: rest}
}

// NewExpr builds an Expr. Callers must only chain Add and Sub.
func NewExpr(left Term, rest ...ExprOp) Expr {
	if len(rest) == 0 {
		rest = nil
	}
	return Expr{Left: left, Rest: rest}
}

func NewProgram(stmts ...Expr) Program { return Program{Stmts: stmts} }

// Leaves returns the number of literal and identifier factors in e,
// descending into parenthesized sub-expressions.
func (e *Expr) Leaves() int {
	n := e.Left.Leaves()
	for _, r := range e.Rest {
		n += r.Right.Leaves()
	}
	return n
}

func (t *Term) Leaves() int {
	n := t.Left.Leaves()
	for _, r := range t.Rest {
		n += r.Right.Leaves()
	}
	return n
}

func (f *Factor) Leaves() int {
	if f.Kind == Parenthesized {
		return f.Expr.Leaves()
	}
	return 1
}

// Operators returns the number of binary operators in e, including those in
// parenthesized sub-expressions.
func (e *Expr) Operators() int { return e.Leaves() - 1 }

