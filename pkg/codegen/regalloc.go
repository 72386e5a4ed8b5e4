package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/iasmc/pkg/ir"
)

var (
	ErrRegisterPoolExhausted = errors.New("register pool exhausted")
	ErrUnsupportedOperand    = errors.New("unsupported operand")
	errStackUnderflow        = errors.New("register stack underflow")
)

// Allocator owns the register pools and the instruction log of one
// compilation unit.
//
// free is a stack: it starts as size-1..0 so registers are first handed out
// in ascending order, and a released register is the next one reused. used
// is the stack of live intermediate results. Operands are always pushed left
// then right and a binary step consumes both before anything else runs, so
// popping used yields the right operand first.
type Allocator struct {
	size int
	free []ir.Reg
	used []ir.Reg
	log  []ir.Instruction
	peak int
}

// Checkpoint is a saved allocator state
type Checkpoint struct {
	free   []ir.Reg
	used   []ir.Reg
	logLen int
	peak   int
}

func NewAllocator(size int) *Allocator {
	a := &Allocator{size: size, free: make([]ir.Reg, 0, size)}
	for r := size - 1; r >= 0; r-- {
		a.free = append(a.free, ir.Reg(r))
	}
	return a
}

func (a *Allocator) Size() int { return a.size }

// Free returns the number of registers available for allocation
func (a *Allocator) Free() int { return len(a.free) }

// Used returns the number of live results on the used stack
func (a *Allocator) Used() int { return len(a.used) }

// UsedRegs returns a copy of the used stack, bottom first
func (a *Allocator) UsedRegs() []ir.Reg { return append([]ir.Reg(nil), a.used...) }

// Peak returns the largest number of registers held at once since the last
// ResetPeak
func (a *Allocator) Peak() int { return a.peak }

func (a *Allocator) ResetPeak() { a.peak = a.size - len(a.free) }

// Alloc takes the register on top of the free stack
func (a *Allocator) Alloc() (ir.Reg, error) {
	if len(a.free) == 0 {
		return 0, fmt.Errorf("%w: all %d registers are live", ErrRegisterPoolExhausted, a.size)
	}
	r := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.peak = max(a.peak, a.size-len(a.free))
	return r, nil
}

// Release returns r to the free stack
func (a *Allocator) Release(r ir.Reg) { a.free = append(a.free, r) }

// Push records r as holding a live result
func (a *Allocator) Push(r ir.Reg) { a.used = append(a.used, r) }

// Pop removes the most recently pushed live result
func (a *Allocator) Pop() (ir.Reg, error) {
	if len(a.used) == 0 {
		return 0, errStackUnderflow
	}
	r := a.used[len(a.used)-1]
	a.used = a.used[:len(a.used)-1]
	return r, nil
}

// Emit appends an instruction to the log
func (a *Allocator) Emit(in ir.Instruction) { a.log = append(a.log, in) }

// Log returns the instructions emitted so far. The slice must not be modified.
func (a *Allocator) Log() []ir.Instruction { return a.log }

// Lines returns the textual form of the log
func (a *Allocator) Lines() []string {
	lines := make([]string, len(a.log))
	for i, in := range a.log {
		lines[i] = in.String()
	}
	return lines
}

func (a *Allocator) Checkpoint() Checkpoint {
	return Checkpoint{
		free:   append([]ir.Reg(nil), a.free...),
		used:   append([]ir.Reg(nil), a.used...),
		logLen: len(a.log),
		peak:   a.peak,
	}
}

// Restore rolls the pools and the log back to cp, discarding everything
// emitted since
func (a *Allocator) Restore(cp Checkpoint) {
	a.free = append(a.free[:0], cp.free...)
	a.used = append(a.used[:0], cp.used...)
	a.log = a.log[:cp.logLen]
	a.peak = cp.peak
}
