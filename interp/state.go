// Package interp is the interpreter: the register file, growable value
// stack, call stack, file-descriptor table, and the fetch/decode/execute
// loop that drives them. It decodes exactly what asmx/isa encodes; the
// two packages never drift because both sit on the single isa.Size/
// isa.Encode/isa.Decode contract.
package interp

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/kestrelvm/bbx/container"
)

// Options configures a VM's tunables, loaded from config.Config by the
// caller.
type Options struct {
	Registers            int
	FileDescriptors      int
	StackInitialCapacity int
	StackGrowthFactor    float64
	MaxCallDepth         int
}

// DefaultOptions mirrors config.DefaultConfig's interpreter section, for
// callers (tests, REPL-style embedders) that don't go through config.
func DefaultOptions() Options {
	return Options{
		Registers:            16,
		FileDescriptors:      16,
		StackInitialCapacity: 256,
		StackGrowthFactor:    1.5,
		MaxCallDepth:         4096,
	}
}

// fileSlot is one entry of the FD table: an open handle plus the mode it
// was opened with. FREAD/FWRITE do not consult the mode; an operation the
// handle was not opened for fails in the underlying read or write call.
type fileSlot struct {
	f    *os.File
	mode byte // matches isa.FOpenMode
}

// VM owns every piece of run-time state the interpreter touches:
// registers, the value stack, the call stack, and the file-descriptor
// table. It does not own the container buffer's backing file, only the
// bytes themselves.
type VM struct {
	opts Options

	container []byte
	dataBase  uint32 // offset of the data table (== container.FixedHeaderSize)
	codeBase  uint32 // offset of the first code byte
	pc        uint32

	registers []int64
	stack     []int64
	sp        int

	calls []Frame

	fds []fileSlot

	stdin  *bufio.Reader
	stdout *bufio.Writer
	stderr *bufio.Writer

	halted   bool
	exitCode int
}

// Load parses a container file from disk and returns a VM positioned at
// its entry point.
func Load(path string, opts Options) (*VM, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI-provided bytecode path
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, opts)
}

// LoadBytes parses a container already held in memory. This is the
// "interpreter loader" component: validate magic, parse the data table
// bounds, and position the program counter at the code base.
func LoadBytes(data []byte, opts Options) (*VM, error) {
	hdr, err := container.ReadHeader(data)
	if err != nil {
		return nil, err
	}
	dataBase := uint32(container.FixedHeaderSize)
	codeBase := container.CodeBase(hdr.DataTableSize)
	if uint64(dataBase)+uint64(hdr.DataTableSize) > uint64(len(data)) {
		return nil, errors.New("container truncated: data table declared length exceeds file")
	}
	if codeBase > uint32(len(data)) {
		return nil, errors.New("container truncated: no code after data table")
	}

	if opts.Registers <= 0 {
		opts.Registers = DefaultOptions().Registers
	}
	if opts.FileDescriptors <= 0 {
		opts.FileDescriptors = DefaultOptions().FileDescriptors
	}
	if opts.StackInitialCapacity <= 0 {
		opts.StackInitialCapacity = DefaultOptions().StackInitialCapacity
	}
	if opts.StackGrowthFactor <= 1 {
		opts.StackGrowthFactor = DefaultOptions().StackGrowthFactor
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultOptions().MaxCallDepth
	}

	vm := &VM{
		opts:      opts,
		container: data,
		dataBase:  dataBase,
		codeBase:  codeBase,
		pc:        codeBase,
		registers: make([]int64, opts.Registers),
		stack:     make([]int64, opts.StackInitialCapacity),
		fds:       make([]fileSlot, opts.FileDescriptors),
		stdin:     bufio.NewReader(os.Stdin),
		stdout:    bufio.NewWriter(os.Stdout),
		stderr:    bufio.NewWriter(os.Stderr),
	}
	return vm, nil
}

// SetStdin lets callers (tests, embedders) redirect console input away
// from the process's real stdin.
func (vm *VM) SetStdin(r io.Reader) {
	vm.stdin = bufio.NewReader(r)
}

// SetStdout lets callers capture PRINT/WRITE/PRINTREG/PRINTSTR output.
func (vm *VM) SetStdout(w io.Writer) {
	vm.stdout = bufio.NewWriter(w)
}

// flagsReg is the index of the last register, written by CMP and read by
// the conditional jumps.
func (vm *VM) flagsReg() int {
	return len(vm.registers) - 1
}

func (vm *VM) validReg(r int) bool {
	return r >= 0 && r < len(vm.registers)
}

func (vm *VM) validFD(fd int) bool {
	return fd >= 0 && fd < len(vm.fds)
}

// capacity is the value stack's current allocated size; sp <= capacity
// always holds.
func (vm *VM) capacity() int {
	return len(vm.stack)
}

// setCapacity resizes the stack to exactly n slots, zeroing any newly
// exposed slots so a later ALLOC/GROW never exposes stale data.
func (vm *VM) setCapacity(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(vm.stack) {
		for i := n; i < len(vm.stack); i++ {
			vm.stack[i] = 0
		}
		vm.stack = vm.stack[:n]
		return
	}
	grown := make([]int64, n)
	copy(grown, vm.stack)
	vm.stack = grown
}

// growForPush implements the ≈1.5x (minimum +1) auto-growth policy used
// when a push finds sp == capacity.
func (vm *VM) growForPush() {
	cur := vm.capacity()
	next := int(float64(cur) * vm.opts.StackGrowthFactor)
	if next <= cur {
		next = cur + 1
	}
	vm.setCapacity(next)
}

func (vm *VM) push(v int64) {
	if vm.sp == vm.capacity() {
		vm.growForPush()
	}
	vm.stack[vm.sp] = v
	vm.sp++
}
