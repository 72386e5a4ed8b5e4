package util

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/token"
)

type positioned struct {
	tok token.Token
	msg string
}

func (p positioned) Token() token.Token { return p.tok }
func (p positioned) Detail() string     { return p.msg }
func (p positioned) Error() string      { return p.msg }

// capture redirects diagnostics and exit codes for the duration of a test
func capture(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var buf bytes.Buffer
	code := -1
	SetOutput(&buf)
	exit = func(c int) { code = c }
	SetSourceFiles([]SourceFileRecord{{Name: "main.expr", Content: []rune("1 + 2\n8 * foo\n")}})
	t.Cleanup(func() {
		SetSourceFiles(nil)
		SetOutput(os.Stderr)
		exit = os.Exit
	})
	return &buf, &code
}

func TestErrorPrintsCaret(t *testing.T) {
	buf, code := capture(t)
	Error(token.Token{FileIndex: 0, Line: 2, Column: 5, Len: 3}, "unknown '%s'", "foo")

	assert.Equal(t, 1, *code)
	assert.Equal(t, "main.expr:2:5: error: unknown 'foo'\n  8 * foo\n      ^~~\n", buf.String())
}

func TestErrorWithoutSource(t *testing.T) {
	buf, code := capture(t)
	Error(token.Token{FileIndex: -1}, "no input files specified")
	assert.Equal(t, 1, *code)
	assert.Equal(t, "<input>:0:0: error: no input files specified\n", buf.String())
}

func TestFatal(t *testing.T) {
	buf, code := capture(t)
	Fatal(positioned{tok: token.Token{FileIndex: 0, Line: 1, Column: 5, Len: 1}, msg: "bad operand"})
	assert.Equal(t, 1, *code)
	assert.Contains(t, buf.String(), "main.expr:1:5: error: bad operand\n  1 + 2\n      ^\n")

	buf.Reset()
	Fatal(fmt.Errorf("wrapped: %w", positioned{tok: token.Token{FileIndex: 0, Line: 2, Column: 1, Len: 1}, msg: "inner"}))
	assert.Contains(t, buf.String(), "main.expr:2:1: error: inner")

	buf.Reset()
	Fatal(fmt.Errorf("plain failure"))
	assert.Equal(t, "iasmc: error: plain failure\n", buf.String())
}

func TestWarnRespectsConfig(t *testing.T) {
	buf, _ := capture(t)
	cfg := config.NewConfig()
	tok := token.Token{FileIndex: 0, Line: 1, Column: 5, Len: 1}

	Warn(cfg, config.WarnDivZero, tok, "division by zero")
	require.Contains(t, buf.String(), "main.expr:1:5: warning: division by zero [-Wdiv-zero]\n")

	buf.Reset()
	cfg.SetWarning(config.WarnDivZero, false)
	Warn(cfg, config.WarnDivZero, tok, "division by zero")
	assert.Empty(t, buf.String())
}

func TestInfoOnlyWhenVerbose(t *testing.T) {
	buf, _ := capture(t)
	cfg := config.NewConfig()
	Info(cfg, "parsing '%s'", "a.expr")
	assert.Empty(t, buf.String())

	cfg.Verbose = true
	Info(cfg, "parsing '%s'", "a.expr")
	assert.Equal(t, "iasmc: info: parsing 'a.expr'\n", buf.String())
}
