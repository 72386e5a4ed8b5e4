package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/xplshn/iasmc/pkg/cli"
	"github.com/xplshn/iasmc/pkg/codegen"
	"github.com/xplshn/iasmc/pkg/compiler"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/token"
	"github.com/xplshn/iasmc/pkg/util"
)

func main() {
	app := cli.NewApp("iasmc")
	app.Synopsis = "[options] <input.expr> ..."
	app.Description = "A compiler from arithmetic expressions to three-address pseudo-assembly over a fixed pool of virtual registers."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/iasmc>"
	app.Since = 2025

	var (
		outFile   string
		target    string
		evalSrcs  []string
		registers int
		dumpIR    bool
		dumpAST   bool
		verbose   bool
		wall      bool
		wnoall    bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file> instead of stdout.", "file")
	fs.String(&target, "target", "t", "iasm", "Set the backend and target ABI.", "backend/target")
	fs.List(&evalSrcs, "eval", "e", []string{}, "Compile <source> given on the command line; repeat for more units.", "source")
	fs.Int(&registers, "registers", "r", config.DefaultPoolSize, "Size of the virtual register pool.", "n")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the backend's input and exit.")
	fs.Bool(&dumpAST, "dump-ast", "a", false, "Dump the syntax tree and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage on stderr.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoall, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.Verbose = verbose

		// -Wall/-Wno-all set the baseline; an explicit -Wno-<name> still wins
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if wnoall {
			cfg.SetAllWarnings(false)
		}
		if wall {
			cfg.SetAllWarnings(true)
			for i, entry := range warningFlags {
				if entry.Disabled != nil && *entry.Disabled {
					cfg.SetWarning(config.Warning(i), false)
				}
			}
		}

		if err := cfg.SetPoolSize(registers); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}

		units, err := compileInputs(inputFiles, evalSrcs, dumpAST, cfg)
		if err != nil {
			util.Fatal(err)
		}

		out := os.Stdout
		if outFile != "" {
			f, err := os.Create(outFile)
			if err != nil {
				util.Error(token.Token{FileIndex: -1}, "could not create '%s': %v", outFile, err)
			}
			defer f.Close()
			out = f
		}

		if dumpAST {
			for _, u := range units {
				fmt.Fprint(out, u.AST.Dump())
			}
			return nil
		}

		backend, err := codegen.SelectBackend(cfg.BackendName)
		if err != nil {
			util.Fatal(err)
		}

		for _, u := range units {
			if dumpIR {
				util.Info(cfg, "dumping IR for '%s' backend", cfg.BackendName)
				irText, err := backend.GenerateIR(u.IR, cfg)
				if err != nil {
					util.Fatal(fmt.Errorf("backend IR generation failed: %w", err))
				}
				fmt.Fprint(out, irText)
				continue
			}
			util.Info(cfg, "generating code with '%s' backend", cfg.BackendName)
			buf, err := backend.Generate(u.IR, cfg)
			if err != nil {
				util.Fatal(fmt.Errorf("backend code generation failed: %w", err))
			}
			if _, err := buf.WriteTo(out); err != nil {
				util.Fatal(err)
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// compileInputs stops after parsing when parseOnly is set, so trees the code
// generator rejects can still be dumped
func compileInputs(inputFiles, evalSrcs []string, parseOnly bool, cfg *config.Config) ([]*compiler.Unit, error) {
	unitFn, filesFn := compiler.CompileSource, compiler.CompileFiles
	if parseOnly {
		unitFn, filesFn = compiler.ParseSource, compiler.ParseFiles
	}
	if len(evalSrcs) > 0 {
		if len(inputFiles) > 0 {
			return nil, fmt.Errorf("--eval cannot be combined with input files")
		}
		records := make([]util.SourceFileRecord, len(evalSrcs))
		for i, src := range evalSrcs {
			records[i] = util.SourceFileRecord{Name: evalName(i, len(evalSrcs)), Content: []rune(src)}
		}
		util.SetSourceFiles(records)

		units := make([]*compiler.Unit, 0, len(evalSrcs))
		for i, src := range evalSrcs {
			u, err := unitFn(records[i].Name, src, i, cfg)
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		}
		return units, nil
	}
	if len(inputFiles) == 0 {
		return nil, fmt.Errorf("no input files specified")
	}
	return filesFn(inputFiles, cfg)
}

func evalName(i, n int) string {
	if n == 1 {
		return "<eval>"
	}
	return fmt.Sprintf("<eval:%d>", i+1)
}
