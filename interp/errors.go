package interp

import (
	"fmt"

	"github.com/kestrelvm/bbx/isa"
)

// Fault is a fatal runtime error: every error class in spec's runtime
// taxonomy (invalid register, stack underflow, out-of-range index, ...)
// surfaces as one of these, carrying the opcode and PC so the driver's
// diagnostic matches "opcode and PC" per the failure-semantics contract.
type Fault struct {
	PC  uint32
	Op  isa.Opcode
	Msg string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("pc=0x%08X %s: %s", f.PC, f.Op, f.Msg)
}

func fault(pc uint32, op isa.Opcode, format string, args ...any) *Fault {
	return &Fault{PC: pc, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ErrBadMagic and friends from the container/loader layer are reported
// as plain errors; only the fetch-decode-execute loop's runtime errors
// are Faults, since only they need an opcode+PC to be useful.
