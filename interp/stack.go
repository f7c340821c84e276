package interp

import "github.com/kestrelvm/bbx/isa"

// stackStrTag is the top-bit discriminator described in spec's
// addressing-modes section: set means the low 31 bits are a stack
// index, clear means an offset into the data table. Internally we
// prefer a StrRef variant and only serialise to this tagged form at the
// register boundary (READSTR's result, PRINTSTR's operand).
const stackStrTag = 0x80000000

// StrRef is the untagged internal representation of a "string" operand:
// either a byte range in the data table or a run of stack cells.
type StrRef struct {
	OnStack bool
	Offset  uint32
}

func decodeStrRef(tagged int64) StrRef {
	u := uint32(tagged)
	if u&stackStrTag != 0 {
		return StrRef{OnStack: true, Offset: u &^ stackStrTag}
	}
	return StrRef{OnStack: false, Offset: u}
}

func encodeStackRef(offset uint32) int64 {
	return int64(offset | stackStrTag)
}

func (vm *VM) pop() (int64, error) {
	if vm.sp == 0 {
		return 0, fault(vm.pc, isa.OpPop, "stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

// alloc implements ALLOC n: ensure capacity >= n, never shrinking.
func (vm *VM) alloc(n int) {
	if n > vm.capacity() {
		vm.setCapacity(n)
	}
}

// grow implements GROW n: add n to capacity.
func (vm *VM) grow(n int) error {
	if n < 0 {
		return fault(vm.pc, isa.OpGrow, "negative grow amount %d", n)
	}
	vm.setCapacity(vm.capacity() + n)
	return nil
}

// resize implements RESIZE n: set capacity to exactly n, clamping sp.
func (vm *VM) resize(n int) error {
	if n < 0 {
		return fault(vm.pc, isa.OpResize, "negative capacity %d", n)
	}
	vm.setCapacity(n)
	if vm.sp > vm.capacity() {
		vm.sp = vm.capacity()
	}
	return nil
}

// free implements FREE n: shrink capacity by n, fatal if n exceeds it.
func (vm *VM) free(n int) error {
	if n < 0 || n > vm.capacity() {
		return fault(vm.pc, isa.OpFree, "cannot free %d slots from a stack of capacity %d", n, vm.capacity())
	}
	vm.setCapacity(vm.capacity() - n)
	if vm.sp > vm.capacity() {
		vm.sp = vm.capacity()
	}
	return nil
}

func (vm *VM) loadIdx(op isa.Opcode, idx int) (int64, error) {
	if idx < 0 || idx >= vm.capacity() {
		return 0, fault(vm.pc, op, "stack index %d out of range (capacity %d)", idx, vm.capacity())
	}
	return vm.stack[idx], nil
}

func (vm *VM) storeIdx(op isa.Opcode, idx int, v int64) error {
	if idx < 0 || idx >= vm.capacity() {
		return fault(vm.pc, op, "stack index %d out of range (capacity %d)", idx, vm.capacity())
	}
	vm.stack[idx] = v
	return nil
}

// currentFrame returns the top call frame, or nil if the call stack is
// empty (LOADVAR/STOREVAR then treat base=0 per spec).
func (vm *VM) currentFrame() *Frame {
	if len(vm.calls) == 0 {
		return nil
	}
	return &vm.calls[len(vm.calls)-1]
}

func (vm *VM) frameSlot(op isa.Opcode, slot int) (int, error) {
	f := vm.currentFrame()
	base := 0
	if f != nil {
		base = f.Base
		if slot < 0 || slot >= f.SlotCount {
			return 0, fault(vm.pc, op, "frame slot %d out of range (frame has %d slots)", slot, f.SlotCount)
		}
	}
	idx := base + slot
	if idx < 0 || idx >= vm.capacity() {
		return 0, fault(vm.pc, op, "frame slot %d resolves to out-of-range stack index %d", slot, idx)
	}
	return idx, nil
}
