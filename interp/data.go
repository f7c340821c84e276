package interp

import (
	"encoding/binary"

	"github.com/kestrelvm/bbx/isa"
)

// dataAt returns n bytes of the data table starting at offset, bounds
// checked against the code base (the data table's end).
func (vm *VM) dataAt(op isa.Opcode, offset uint32, n int) ([]byte, error) {
	start := uint64(vm.dataBase) + uint64(offset)
	end := start + uint64(n)
	if end > uint64(vm.codeBase) {
		return nil, fault(vm.pc, op, "data-table offset %d+%d out of range", offset, n)
	}
	return vm.container[start:end], nil
}

// loadDataInt implements LOADBYTE/LOADWORD/LOADDWORD/LOADQWORD: decode
// a little-endian integer of the opcode's natural width.
func (vm *VM) loadDataInt(op isa.Opcode, offset uint32) (int64, error) {
	width := map[isa.Opcode]int{
		isa.OpLoadByte: 1, isa.OpLoadWord: 2, isa.OpLoadDword: 4, isa.OpLoadQword: 8,
	}[op]
	b, err := vm.dataAt(op, offset, width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return int64(b[0]), nil
	case 2:
		return int64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return int64(binary.LittleEndian.Uint32(b)), nil
	default:
		return int64(binary.LittleEndian.Uint64(b)), nil
	}
}

// printStr implements PRINTSTR: the top bit of r selects between a
// stack-resident and a data-table-resident null-terminated byte run.
func (vm *VM) printStr(tagged int64) error {
	ref := decodeStrRef(tagged)
	if ref.OnStack {
		for i := int(ref.Offset); i < vm.capacity(); i++ {
			if vm.stack[i] == 0 {
				vm.stdout.Flush() //nolint:errcheck
				return nil
			}
			vm.stdout.WriteByte(byte(vm.stack[i])) //nolint:errcheck
		}
		vm.stdout.Flush() //nolint:errcheck
		return nil
	}

	start := uint64(vm.dataBase) + uint64(ref.Offset)
	for i := start; i < uint64(vm.codeBase); i++ {
		if vm.container[i] == 0 {
			break
		}
		vm.stdout.WriteByte(vm.container[i]) //nolint:errcheck
	}
	vm.stdout.Flush() //nolint:errcheck
	return nil
}

// readStr implements READSTR: read a line from stdin onto the value
// stack (one cell per character), terminate with a zero cell, and leave
// a tagged stack reference to its start in the destination register.
func (vm *VM) readStr(reg int) error {
	start := vm.sp
	for {
		b, err := vm.stdin.ReadByte()
		if err != nil || b == '\n' {
			break
		}
		if b == '\r' {
			continue
		}
		vm.push(int64(b))
	}
	vm.push(0)
	vm.registers[reg] = encodeStackRef(uint32(start))
	return nil
}
