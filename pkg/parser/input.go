package parser

import (
	"fmt"
	"sort"

	"github.com/xplshn/iasmc/pkg/token"
)

// unit is one compilation unit shared by every Input derived from it
type unit struct {
	src        string
	fileIndex  int
	lineStarts []int
}

// Input is an immutable cursor into a compilation unit. Rules take an Input
// and return the Input positioned after what they consumed; the original is
// never modified, so backtracking is just reusing an older value.
type Input struct {
	u   *unit
	off int
}

// NewInput starts a cursor at the beginning of src
func NewInput(src string, fileIndex int) Input {
	u := &unit{src: src, fileIndex: fileIndex, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			u.lineStarts = append(u.lineStarts, i+1)
		}
	}
	return Input{u: u}
}

// Rest returns the unconsumed text
func (in Input) Rest() string { return in.u.src[in.off:] }

// Offset returns the byte offset of the cursor within the unit
func (in Input) Offset() int { return in.off }

func (in Input) AtEnd() bool { return in.off >= len(in.u.src) }

func (in Input) peek() byte {
	if in.AtEnd() {
		return 0
	}
	return in.u.src[in.off]
}

func (in Input) advance(n int) Input {
	return Input{u: in.u, off: min(in.off+n, len(in.u.src))}
}

// text returns the source between in and end
func (in Input) text(end Input) string { return in.u.src[in.off:end.off] }

// Token describes the source span [in, end) as a token of type t
func (in Input) Token(t token.Type, end Input) token.Token {
	line := sort.Search(len(in.u.lineStarts), func(i int) bool { return in.u.lineStarts[i] > in.off })
	return token.Token{
		Type:      t,
		Value:     in.text(end),
		FileIndex: in.u.fileIndex,
		Offset:    in.off,
		Line:      line,
		Column:    in.off - in.u.lineStarts[line-1] + 1,
		Len:       end.off - in.off,
	}
}

// describe names the character under the cursor for error messages
func (in Input) describe() string {
	if in.AtEnd() {
		return token.EOF.String()
	}
	c := in.peek()
	switch t := token.Classify(c); t {
	case token.Newline, token.Space:
		return t.String()
	case token.Invalid:
		if c < 0x20 || c >= 0x7f {
			return fmt.Sprintf("byte 0x%02x", c)
		}
	}
	return fmt.Sprintf("'%c'", c)
}

// --- scanning primitives ---

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// tag consumes s if the input starts with it
func tag(in Input, s string) (Input, bool) {
	if len(in.Rest()) < len(s) || in.Rest()[:len(s)] != s {
		return in, false
	}
	return in.advance(len(s)), true
}

// space0 consumes zero or more ' ' characters
func space0(in Input) Input {
	for in.peek() == ' ' {
		in = in.advance(1)
	}
	return in
}

// takeWhile1 consumes a non-empty run of characters matching pred
func takeWhile1(in Input, pred func(byte) bool) (Input, string, bool) {
	end := in
	for !end.AtEnd() && pred(end.peek()) {
		end = end.advance(1)
	}
	if end.off == in.off {
		return in, "", false
	}
	return end, in.text(end), true
}

func digit1(in Input) (Input, string, bool) { return takeWhile1(in, isDigit) }
func alpha1(in Input) (Input, string, bool) { return takeWhile1(in, isAlpha) }

// newline consumes "\n" or "\r\n"
func newline(in Input) (Input, bool) {
	if rest, ok := tag(in, "\n"); ok {
		return rest, true
	}
	return tag(in, "\r\n")
}
