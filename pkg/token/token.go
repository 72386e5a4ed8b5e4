package token

type Type int

const (
	EOF Type = iota
	Ident
	Integer
	Float
	Plus
	Minus
	Star
	Slash
	LParen
	RParen
	Newline
	Space
	Invalid
)

var typeStrings = map[Type]string{
	EOF:     "end of input",
	Ident:   "identifier",
	Integer: "integer",
	Float:   "float",
	Plus:    "'+'",
	Minus:   "'-'",
	Star:    "'*'",
	Slash:   "'/'",
	LParen:  "'('",
	RParen:  "')'",
	Newline: "newline",
	Space:   "' '",
	Invalid: "invalid character",
}

// PunctMap maps single-character punctuation to its token type
var PunctMap = map[byte]Type{
	'+':  Plus,
	'-':  Minus,
	'*':  Star,
	'/':  Slash,
	'(':  LParen,
	')':  RParen,
	'\n': Newline,
	' ':  Space,
}

func (t Type) String() string {
	if s, ok := typeStrings[t]; ok {
		return s
	}
	return "unknown"
}

// Token locates a piece of source text. Offset is a byte offset into the
// compilation unit; Line and Column are 1-based.
type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Offset    int
	Line      int
	Column    int
	Len       int
}

// Classify returns the token type a character starts
func Classify(c byte) Type {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return Ident
	case c >= '0' && c <= '9':
		return Integer
	}
	if t, ok := PunctMap[c]; ok {
		return t
	}
	return Invalid
}
