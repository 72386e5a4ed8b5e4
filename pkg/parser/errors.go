package parser

import (
	"fmt"
	"strings"

	"github.com/xplshn/iasmc/pkg/token"
)

// ParseError reports that no grammar alternative matched. Context lists the
// rules that were active when the failure happened, innermost first.
type ParseError struct {
	Context  []string
	Tok      token.Token
	Expected string
	Found    string

	// cut is set once a rule has committed past its required prefix;
	// ordered choice and repetition must not try anything else after it.
	cut bool
}

func newError(in Input, rule, expected string) *ParseError {
	return &ParseError{
		Context:  []string{rule},
		Tok:      in.Token(token.Classify(in.peek()), in.advance(1)),
		Expected: expected,
		Found:    in.describe(),
	}
}

// Token returns the position of the offending input
func (e *ParseError) Token() token.Token { return e.Tok }

// Offset returns the byte offset of the offending input
func (e *ParseError) Offset() int { return e.Tok.Offset }

func (e *ParseError) Detail() string {
	return fmt.Sprintf("expected %s, found %s [%s]", e.Expected, e.Found, strings.Join(e.Context, " < "))
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Detail())
}

// in appends an enclosing rule name to the context stack
func (e *ParseError) in(rule string) *ParseError {
	if len(e.Context) == 0 || e.Context[len(e.Context)-1] != rule {
		e.Context = append(e.Context, rule)
	}
	return e
}

func (e *ParseError) commit() *ParseError {
	e.cut = true
	return e
}
