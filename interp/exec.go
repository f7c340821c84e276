package interp

import (
	"fmt"
	"os"
	"time"

	"github.com/kestrelvm/bbx/isa"
)

// Interpret loads the container at path and runs it to completion,
// returning the process exit code (HALT's exit code, 0 on an
// implicit/argumentless HALT, or a non-zero code on a runtime fault).
func Interpret(path string, opts Options) (int, error) {
	vm, err := Load(path, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbx: %v\n", err)
		return 1, err
	}
	return vm.Run()
}

// Run drives the fetch/decode/execute loop until HALT or a fault.
func (vm *VM) Run() (int, error) {
	defer vm.closeAllFiles()
	defer vm.stdout.Flush() //nolint:errcheck
	defer vm.stderr.Flush() //nolint:errcheck

	for !vm.halted {
		inst, next, err := isa.Decode(vm.container, vm.pc)
		if err != nil {
			return 1, err
		}
		if err := vm.step(inst, next); err != nil {
			vm.stdout.Flush() //nolint:errcheck
			fmt.Fprintf(vm.stderr, "bbx: runtime error: %v\n", err)
			vm.stderr.Flush() //nolint:errcheck
			return 1, err
		}
	}
	return vm.exitCode, nil
}

// step executes one decoded instruction. next is the PC isa.Decode
// already computed for the instruction immediately following inst;
// every non-branching opcode falls through to it, branches/calls/RET
// override vm.pc explicitly.
func (vm *VM) step(inst isa.Instruction, next uint32) error {
	pc := vm.pc
	op := inst.Op

	advance := true
	defer func() {
		if advance {
			vm.pc = next
		}
	}()

	switch op {
	case isa.OpHalt:
		vm.halted = true
		vm.exitCode = 0
		return nil
	case isa.OpHaltCode:
		vm.halted = true
		vm.exitCode = int(byte(inst.Imm32) % 256)
		return nil

	case isa.OpPrint:
		vm.stdout.WriteByte(inst.Char) //nolint:errcheck
		vm.stdout.Flush()              //nolint:errcheck
		return nil
	case isa.OpNewline:
		vm.stdout.WriteByte('\n') //nolint:errcheck
		vm.stdout.Flush()         //nolint:errcheck
		return nil
	case isa.OpClrscr:
		vm.stdout.WriteString("\x1b[2J\x1b[H") //nolint:errcheck
		vm.stdout.Flush()                      //nolint:errcheck
		return nil
	case isa.OpPrintStackSize:
		fmt.Fprintf(vm.stdout, "%d", vm.sp)
		vm.stdout.Flush() //nolint:errcheck
		return nil
	case isa.OpContinue, isa.OpBreak:
		// Recognised mnemonics with no core-level execution semantics:
		// the assembler encodes them as their own one-byte opcodes and
		// the interpreter executes them as no-ops.
		return nil
	case isa.OpRet:
		if len(vm.calls) == 0 {
			return fault(pc, op, "RET with no active call frame")
		}
		f := vm.calls[len(vm.calls)-1]
		vm.calls = vm.calls[:len(vm.calls)-1]
		vm.sp = f.Base
		vm.pc = f.ReturnPC
		advance = false
		return nil
	case isa.OpPrintReg:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		fmt.Fprintf(vm.stdout, "%d", vm.registers[inst.Reg])
		vm.stdout.Flush() //nolint:errcheck
		return nil

	case isa.OpWrite:
		n := len(inst.Str)
		if n > 255 {
			n = 255
		}
		switch inst.FD {
		case 1:
			vm.stdout.Write(inst.Str[:n]) //nolint:errcheck
			vm.stdout.Flush()             //nolint:errcheck
		case 2:
			vm.stderr.Write(inst.Str[:n]) //nolint:errcheck
			vm.stderr.Flush()             //nolint:errcheck
		default:
			return fault(pc, op, "WRITE: file descriptor must be 1 or 2, got %d", inst.FD)
		}
		return nil

	case isa.OpMovReg:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		vm.registers[inst.Reg] = vm.registers[inst.Reg2]
		return nil
	case isa.OpMovImm:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.registers[inst.Reg] = int64(inst.Imm32)
		return nil

	case isa.OpPushReg:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.push(vm.registers[inst.Reg])
		return nil
	case isa.OpPushImm:
		vm.push(int64(inst.Imm32))
		return nil
	case isa.OpPop:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = v
		return nil

	case isa.OpAdd, isa.OpSub, isa.OpMul, isa.OpDiv, isa.OpMod,
		isa.OpAnd, isa.OpOr, isa.OpXor, isa.OpCmp:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		return vm.arith(op, inst.Reg, inst.Reg2)

	case isa.OpNot:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.registers[inst.Reg] = ^vm.registers[inst.Reg]
		return nil
	case isa.OpInc:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.registers[inst.Reg]++
		return nil
	case isa.OpDec:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.registers[inst.Reg]--
		return nil

	case isa.OpJmp:
		vm.pc = inst.Addr
		advance = false
		return nil
	case isa.OpJe, isa.OpJl, isa.OpJb:
		if vm.flagsTrue() {
			vm.pc = inst.Addr
			advance = false
		}
		return nil
	case isa.OpJne, isa.OpJge, isa.OpJae:
		if !vm.flagsTrue() {
			vm.pc = inst.Addr
			advance = false
		}
		return nil

	case isa.OpCall:
		return vm.call(inst, next, &advance)

	case isa.OpAlloc:
		vm.alloc(int(inst.Imm32))
		return nil
	case isa.OpGrow:
		return vm.grow(int(inst.Imm32))
	case isa.OpResize:
		return vm.resize(int(inst.Imm32))
	case isa.OpFree:
		return vm.free(int(inst.Imm32))

	case isa.OpLoadImm:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		v, err := vm.loadIdx(op, int(inst.Imm32))
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = v
		return nil
	case isa.OpLoadReg:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		v, err := vm.loadIdx(op, int(vm.registers[inst.Reg2]))
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = v
		return nil
	case isa.OpStoreImm:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		return vm.storeIdx(op, int(inst.Imm32), vm.registers[inst.Reg])
	case isa.OpStoreReg:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		return vm.storeIdx(op, int(vm.registers[inst.Reg2]), vm.registers[inst.Reg])

	case isa.OpLoadVarImm:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		idx, err := vm.frameSlot(op, int(inst.Imm32))
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = vm.stack[idx]
		return nil
	case isa.OpLoadVarReg:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		idx, err := vm.frameSlot(op, int(vm.registers[inst.Reg2]))
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = vm.stack[idx]
		return nil
	case isa.OpStoreVarImm:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		idx, err := vm.frameSlot(op, int(inst.Imm32))
		if err != nil {
			return err
		}
		vm.stack[idx] = vm.registers[inst.Reg]
		return nil
	case isa.OpStoreVarReg:
		if !vm.validReg(inst.Reg) || !vm.validReg(inst.Reg2) {
			return fault(pc, op, "invalid register operand")
		}
		idx, err := vm.frameSlot(op, int(vm.registers[inst.Reg2]))
		if err != nil {
			return err
		}
		vm.stack[idx] = vm.registers[inst.Reg]
		return nil

	case isa.OpLoadStr:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		vm.registers[inst.Reg] = int64(inst.DataOffset)
		return nil
	case isa.OpLoadByte, isa.OpLoadWord, isa.OpLoadDword, isa.OpLoadQword:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		v, err := vm.loadDataInt(op, inst.DataOffset)
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = v
		return nil

	case isa.OpPrintStr:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		return vm.printStr(vm.registers[inst.Reg])
	case isa.OpReadStr:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		return vm.readStr(inst.Reg)
	case isa.OpReadChar:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		b, err := vm.stdin.ReadByte()
		if err != nil {
			vm.registers[inst.Reg] = -1
			return nil
		}
		vm.registers[inst.Reg] = int64(b)
		return nil
	case isa.OpRead:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		line, err := vm.stdin.ReadString('\n')
		if err != nil && line == "" {
			vm.registers[inst.Reg] = -1
			return nil
		}
		var n int64
		fmt.Sscanf(line, "%d", &n) //nolint:errcheck
		vm.registers[inst.Reg] = n
		return nil

	case isa.OpSleep:
		time.Sleep(time.Duration(inst.Imm32) * time.Millisecond)
		return nil

	case isa.OpRand:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		v, err := vm.rollRand(inst.Imm64A, inst.Imm64B)
		if err != nil {
			return fault(pc, op, "%v", err)
		}
		vm.registers[inst.Reg] = v
		return nil

	case isa.OpGetKey:
		if !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid register %d", inst.Reg)
		}
		k, err := getKey()
		if err != nil {
			return fault(pc, op, "%v", err)
		}
		vm.registers[inst.Reg] = k
		return nil

	case isa.OpFopen:
		if !vm.validFD(inst.FD) {
			return fault(pc, op, "invalid file descriptor %d", inst.FD)
		}
		return vm.fopen(isa.FOpenMode(inst.Imm32), inst.FD, string(inst.Str))
	case isa.OpFclose:
		if !vm.validFD(inst.FD) {
			return fault(pc, op, "invalid file descriptor %d", inst.FD)
		}
		return vm.fclose(inst.FD)
	case isa.OpFread:
		if !vm.validFD(inst.FD) || !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid operand")
		}
		v, err := vm.fread(inst.FD)
		if err != nil {
			return err
		}
		vm.registers[inst.Reg] = v
		return nil
	case isa.OpFwriteReg:
		if !vm.validFD(inst.FD) || !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid operand")
		}
		return vm.fwrite(inst.FD, byte(vm.registers[inst.Reg]))
	case isa.OpFwriteImm:
		if !vm.validFD(inst.FD) {
			return fault(pc, op, "invalid file descriptor %d", inst.FD)
		}
		return vm.fwrite(inst.FD, byte(inst.Imm32))
	case isa.OpFseekReg:
		if !vm.validFD(inst.FD) || !vm.validReg(inst.Reg) {
			return fault(pc, op, "invalid operand")
		}
		return vm.fseek(inst.FD, vm.registers[inst.Reg])
	case isa.OpFseekImm:
		if !vm.validFD(inst.FD) {
			return fault(pc, op, "invalid file descriptor %d", inst.FD)
		}
		return vm.fseek(inst.FD, int64(inst.Imm32))

	default:
		return fault(pc, op, "unimplemented opcode")
	}
}

// arith dispatches the two-register ALU family. All arithmetic is
// 64-bit signed; DIV/MOD by zero is fatal.
func (vm *VM) arith(op isa.Opcode, dst, src int) error {
	a, b := vm.registers[dst], vm.registers[src]
	switch op {
	case isa.OpAdd:
		vm.registers[dst] = a + b
	case isa.OpSub:
		vm.registers[dst] = a - b
	case isa.OpMul:
		vm.registers[dst] = a * b
	case isa.OpDiv:
		if b == 0 {
			return fault(vm.pc, op, "division by zero")
		}
		vm.registers[dst] = a / b
	case isa.OpMod:
		if b == 0 {
			return fault(vm.pc, op, "modulus by zero")
		}
		vm.registers[dst] = a % b
	case isa.OpAnd:
		vm.registers[dst] = a & b
	case isa.OpOr:
		vm.registers[dst] = a | b
	case isa.OpXor:
		vm.registers[dst] = a ^ b
	case isa.OpCmp:
		vm.cmp(dst, src)
	}
	return nil
}

// call implements CALL addr, frame_size: push a frame, reserve and
// zero its variable slots above the current sp, and branch. next is
// the PC decode already computed for the instruction after this CALL,
// which is what RET must return to.
func (vm *VM) call(inst isa.Instruction, next uint32, advance *bool) error {
	if len(vm.calls) >= vm.opts.MaxCallDepth {
		return fault(vm.pc, isa.OpCall, "call stack exceeded max depth %d", vm.opts.MaxCallDepth)
	}
	base := vm.sp
	slots := int(inst.FrameSize)
	need := base + slots
	if need > vm.capacity() {
		vm.setCapacity(need)
	}
	for i := base; i < need; i++ {
		vm.stack[i] = 0
	}
	vm.calls = append(vm.calls, Frame{ReturnPC: next, Base: base, SlotCount: slots})
	vm.sp = need
	vm.pc = inst.Addr
	*advance = false
	return nil
}
