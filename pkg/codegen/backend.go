package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the target
	// assembly or intermediate language as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
	// GenerateIR returns the backend's textual input before any assembly step
	GenerateIR(prog *ir.Program, cfg *config.Config) (string, error)
}

// SelectBackend returns the backend registered under name
func SelectBackend(name string) (Backend, error) {
	switch name {
	case "", "iasm":
		return NewIASMBackend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", name)
}
