// Package compiler ties the parser and code generator together for whole
// compilation units.
package compiler

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/xplshn/iasmc/pkg/ast"
	"github.com/xplshn/iasmc/pkg/codegen"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
	"github.com/xplshn/iasmc/pkg/parser"
	"github.com/xplshn/iasmc/pkg/util"
	"golang.org/x/sync/errgroup"
)

// Unit is the result of compiling one source
type Unit struct {
	Name string
	AST  *ast.Program
	IR   *ir.Program
}

// ParseSource parses src strictly without generating code. The returned
// Unit has no IR, so it also accepts programs the code generator rejects.
func ParseSource(name, src string, fileIndex int, cfg *config.Config) (*Unit, error) {
	util.Info(cfg, "parsing '%s'", name)
	prog, err := parser.Parse(src, fileIndex, cfg)
	if err != nil {
		return nil, err
	}
	checkLayout(src, prog, cfg)
	return &Unit{Name: name, AST: prog}, nil
}

// CompileSource parses src strictly and generates code for it with a fresh
// register pool
func CompileSource(name, src string, fileIndex int, cfg *config.Config) (*Unit, error) {
	unit, err := ParseSource(name, src, fileIndex, cfg)
	if err != nil {
		return nil, err
	}

	util.Info(cfg, "generating code for %d statement(s) with %d registers", len(unit.AST.Stmts), cfg.PoolSize)
	ctx := codegen.NewContext(cfg)
	irProg, err := ctx.GenerateIR(unit.AST)
	if err != nil {
		return nil, err
	}
	util.Info(cfg, "'%s': %d instruction(s), %d register(s) still free", name, len(irProg.Instructions()), ctx.Allocator().Free())
	unit.IR = irProg
	return unit, nil
}

// ParseFiles is ParseSource over every file in paths
func ParseFiles(paths []string, cfg *config.Config) ([]*Unit, error) {
	return eachFile(paths, cfg, ParseSource)
}

// CompileFiles reads and compiles every file in paths, in order
func CompileFiles(paths []string, cfg *config.Config) ([]*Unit, error) {
	return eachFile(paths, cfg, CompileSource)
}

type unitFunc func(name, src string, fileIndex int, cfg *config.Config) (*Unit, error)

// eachFile reads all of paths, registering them for source-line diagnostics,
// before handing any of them to fn
func eachFile(paths []string, cfg *config.Config, fn unitFunc) ([]*Unit, error) {
	sources := make([]string, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("could not read file '%s': %w", path, err)
			}
			sources[i] = string(content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]util.SourceFileRecord, len(paths))
	for i, path := range paths {
		util.Info(cfg, "read '%s' (%s)", path, humanize.Bytes(uint64(len(sources[i]))))
		records[i] = util.SourceFileRecord{Name: path, Content: []rune(sources[i])}
	}
	util.SetSourceFiles(records)

	units := make([]*Unit, 0, len(paths))
	for i, path := range paths {
		unit, err := fn(path, sources[i], i, cfg)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// checkLayout warns about statements that start on the same line as the one
// before them, e.g. "1(2)"
func checkLayout(src string, prog *ast.Program, cfg *config.Config) {
	for i := 1; i < len(prog.Stmts); i++ {
		tok := prog.Stmts[i].Left.Left.Tok
		if tok.Offset > len(src) {
			continue
		}
		before := strings.TrimRight(src[:tok.Offset], " ")
		if !strings.HasSuffix(before, "\n") {
			util.Warn(cfg, config.WarnExtra, tok, "statement %d starts on the same line as the previous one", i+1)
		}
	}
}
