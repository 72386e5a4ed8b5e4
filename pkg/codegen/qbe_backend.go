package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/ir"
)

// ErrFloatImmediate is returned by the qbe backend, which only lowers
// integer arithmetic
var ErrFloatImmediate = fmt.Errorf("%w: float immediates are not supported by the qbe backend", ErrUnsupportedOperand)

type qbeBackend struct {
	out *strings.Builder
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR lowers every statement to an exported function returning its
// value as a long. Register $k becomes temporary %r<k>.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out = &sb
	for i, stmt := range prog.Stmts {
		if err := b.genStatement(i, stmt); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (b *qbeBackend) genStatement(index int, stmt ir.Statement) error {
	if index > 0 {
		b.out.WriteString("\n")
	}
	if stmt.Source != "" {
		fmt.Fprintf(b.out, "# %s\n", stmt.Source)
	}
	fmt.Fprintf(b.out, "export function l $stmt%d() {\n@start\n", index)
	for _, in := range stmt.Instrs {
		if err := b.genInstr(in); err != nil {
			return err
		}
	}
	fmt.Fprintf(b.out, "\tret %s\n}\n", b.formatReg(stmt.Result))
	return nil
}

func (b *qbeBackend) genInstr(in ir.Instruction) error {
	if in.Op == ir.OpLoad {
		if in.Imm.IsFloat {
			return ErrFloatImmediate
		}
		fmt.Fprintf(b.out, "\t%s =l copy %d\n", b.formatReg(in.Dst), in.Imm.Int)
		return nil
	}
	opStr, err := b.formatOp(in.Op)
	if err != nil {
		return err
	}
	fmt.Fprintf(b.out, "\t%s =l %s %s, %s\n", b.formatReg(in.Dst), opStr, b.formatReg(in.Left), b.formatReg(in.Right))
	return nil
}

func (b *qbeBackend) formatReg(r ir.Reg) string { return fmt.Sprintf("%%r%d", int(r)) }

func (b *qbeBackend) formatOp(op ir.Op) (string, error) {
	switch op {
	case ir.OpAdd:
		return "add", nil
	case ir.OpSub:
		return "sub", nil
	case ir.OpMul:
		return "mul", nil
	case ir.OpDiv:
		return "div", nil
	}
	return "", fmt.Errorf("qbe backend: no lowering for %s", op)
}
