package ir

import (
	"fmt"
	"strconv"

	"github.com/xplshn/iasmc/pkg/ast"
)

type Op int

const (
	OpLoad Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var opMnemonics = [...]string{OpLoad: "LOAD", OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV"}

func (op Op) String() string {
	if op < OpLoad || op > OpDiv {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opMnemonics[op]
}

// OpFor returns the instruction that implements a binary operator
func OpFor(op ast.Operator) Op {
	switch op {
	case ast.Add:
		return OpAdd
	case ast.Sub:
		return OpSub
	case ast.Mul:
		return OpMul
	default:
		return OpDiv
	}
}

// Reg is a virtual register number
type Reg int

func (r Reg) String() string { return "$" + strconv.Itoa(int(r)) }

// Immediate is the literal operand of a LOAD
type Immediate struct {
	IsFloat bool
	Int     int64
	Float   float64
}

func IntImm(v int64) Immediate     { return Immediate{Int: v} }
func FloatImm(v float64) Immediate { return Immediate{IsFloat: true, Float: v} }

func (i Immediate) String() string {
	if i.IsFloat {
		return "#" + ast.FormatFloat(i.Float)
	}
	return "#" + strconv.FormatInt(i.Int, 10)
}

// Instruction is one three-address instruction. LOAD uses Dst and Imm; the
// arithmetic ops use Left, Right and Dst.
type Instruction struct {
	Op    Op
	Dst   Reg
	Left  Reg
	Right Reg
	Imm   Immediate
}

func Load(dst Reg, imm Immediate) Instruction {
	return Instruction{Op: OpLoad, Dst: dst, Imm: imm}
}

func Binary(op Op, left, right, dst Reg) Instruction {
	return Instruction{Op: op, Left: left, Right: right, Dst: dst}
}

// String renders the instruction in its textual form:
//
//	LOAD $<reg> #<literal>
//	<OP> $<regL> $<regR> $<regDst>
func (in Instruction) String() string {
	if in.Op == OpLoad {
		return fmt.Sprintf("%s %s %s", in.Op, in.Dst, in.Imm)
	}
	return fmt.Sprintf("%s %s %s %s", in.Op, in.Left, in.Right, in.Dst)
}

// Statement is the code for one top-level expression. Result is the register
// left holding its value.
type Statement struct {
	Source string
	Instrs []Instruction
	Result Reg
}

type Program struct {
	Stmts    []Statement
	PoolSize int
}

// Instructions returns every instruction in program order
func (p *Program) Instructions() []Instruction {
	var all []Instruction
	for _, s := range p.Stmts {
		all = append(all, s.Instrs...)
	}
	return all
}

// Lines returns the textual form of every instruction in program order
func (p *Program) Lines() []string {
	instrs := p.Instructions()
	lines := make([]string, len(instrs))
	for i, in := range instrs {
		lines[i] = in.String()
	}
	return lines
}
