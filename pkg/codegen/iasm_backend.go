package codegen

import (
	"bytes"
	"strings"

	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
)

type iasmBackend struct{}

func NewIASMBackend() Backend { return iasmBackend{} }

func (iasmBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	for _, line := range prog.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (b iasmBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	text, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString(text), nil
}
