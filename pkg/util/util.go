package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single source file
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	output      io.Writer = os.Stderr
	colors                = term.IsTerminal(int(os.Stderr.Fd()))
	exit                  = os.Exit
)

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// SetOutput redirects diagnostics. Colour escapes are only written when the
// destination is a terminal.
func SetOutput(w io.Writer) {
	output = w
	f, ok := w.(*os.File)
	colors = ok && term.IsTerminal(int(f.Fd()))
}

func paint(code, s string) string {
	if !colors {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Positioned is implemented by errors that know where in the source they
// happened. Detail is the message without the position prefix.
type Positioned interface {
	Token() token.Token
	Detail() string
}

// findFileAndLine converts a token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<input>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	underline := "^"
	if tok.Len > 1 {
		underline += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), paint("32", underline))
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(output, "%s:%d:%d: %s ", filename, line, col, paint("31", "error:"))
	fmt.Fprintf(output, format, args...)
	fmt.Fprintln(output)
	printErrorLine(output, tok)
	exit(1)
}

// Fatal reports err, at its source position when it carries one, and exits
func Fatal(err error) {
	var p Positioned
	if errors.As(err, &p) {
		Error(p.Token(), "%s", p.Detail())
		return
	}
	fmt.Fprintf(output, "iasmc: %s %v\n", paint("31", "error:"), err)
	exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(output, "%s:%d:%d: %s ", filename, line, col, paint("33", "warning:"))
	fmt.Fprintf(output, format, args...)
	fmt.Fprintf(output, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(output, tok)
}

// Info prints a progress message when the configuration is verbose
func Info(cfg *config.Config, format string, args ...interface{}) {
	if cfg == nil || !cfg.Verbose {
		return
	}
	fmt.Fprintf(output, "iasmc: info: "+format+"\n", args...)
}
