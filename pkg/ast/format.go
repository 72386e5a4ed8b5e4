package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatFloat renders a float literal so that it reads back as a float:
// the result always contains a '.' and never an exponent.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Format renders a Program back into source text, one statement per line
func (p *Program) Format() string {
	lines := make([]string, len(p.Stmts))
	for i := range p.Stmts {
		lines[i] = p.Stmts[i].Format()
	}
	return strings.Join(lines, "\n")
}

func (e *Expr) Format() string {
	var sb strings.Builder
	e.format(&sb)
	return sb.String()
}

func (t *Term) Format() string {
	var sb strings.Builder
	t.format(&sb)
	return sb.String()
}

func (f *Factor) Format() string {
	var sb strings.Builder
	f.format(&sb)
	return sb.String()
}

func (e *Expr) format(sb *strings.Builder) {
	e.Left.format(sb)
	for _, r := range e.Rest {
		fmt.Fprintf(sb, " %s ", r.Op)
		r.Right.format(sb)
	}
}

func (t *Term) format(sb *strings.Builder) {
	t.Left.format(sb)
	for _, r := range t.Rest {
		fmt.Fprintf(sb, " %s ", r.Op)
		r.Right.format(sb)
	}
}

func (f *Factor) format(sb *strings.Builder) {
	switch f.Kind {
	case IntegerLiteral:
		sb.WriteString(strconv.FormatInt(f.Int, 10))
	case FloatLiteral:
		sb.WriteString(FormatFloat(f.Float))
	case Identifier:
		sb.WriteString(f.Name)
	case Parenthesized:
		sb.WriteByte('(')
		f.Expr.format(sb)
		sb.WriteByte(')')
	}
}

// Dump renders the tree structure of a Program, one node per line
func (p *Program) Dump() string {
	var sb strings.Builder
	for i := range p.Stmts {
		fmt.Fprintf(&sb, "Stmt %d\n", i)
		p.Stmts[i].dump(&sb, 1)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) { sb.WriteString(strings.Repeat("  ", depth)) }

func (e *Expr) dump(sb *strings.Builder, depth int) {
	indent(sb, depth)
	sb.WriteString("Expr\n")
	e.Left.dump(sb, depth+1)
	for _, r := range e.Rest {
		indent(sb, depth+1)
		fmt.Fprintf(sb, "%s\n", r.Op.Mnemonic())
		r.Right.dump(sb, depth+1)
	}
}

func (t *Term) dump(sb *strings.Builder, depth int) {
	indent(sb, depth)
	sb.WriteString("Term\n")
	t.Left.dump(sb, depth+1)
	for _, r := range t.Rest {
		indent(sb, depth+1)
		fmt.Fprintf(sb, "%s\n", r.Op.Mnemonic())
		r.Right.dump(sb, depth+1)
	}
}

func (f *Factor) dump(sb *strings.Builder, depth int) {
	indent(sb, depth)
	switch f.Kind {
	case Parenthesized:
		sb.WriteString("Parenthesized\n")
		f.Expr.dump(sb, depth+1)
	default:
		fmt.Fprintf(sb, "%s %s\n", f.Kind, f.Format())
	}
}
