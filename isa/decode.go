package isa

import (
	"encoding/binary"
	"fmt"
)

// ErrTruncated indicates an instruction's operands run past the end of
// the container buffer.
type ErrTruncated struct {
	PC   uint32
	Op   Opcode
	Need int
	Have int
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("truncated instruction %s at pc=0x%08X: need %d operand bytes, have %d", e.Op, e.PC, e.Need, e.Have)
}

func need(data []byte, pc uint32, op Opcode, n int) ([]byte, error) {
	avail := len(data) - int(pc)
	if avail < n {
		return nil, &ErrTruncated{PC: pc, Op: op, Need: n, Have: avail}
	}
	return data[pc : pc+uint32(n)], nil
}

func u32(b []byte) uint32  { return binary.LittleEndian.Uint32(b) }
func i32(b []byte) int32   { return int32(binary.LittleEndian.Uint32(b)) }
func i64(b []byte) int64   { return int64(binary.LittleEndian.Uint64(b)) }

// Decode reads one instruction from data starting at pc (an absolute
// offset into the full container, including header and data table). It
// returns the decoded instruction and the pc of the next instruction.
func Decode(data []byte, pc uint32) (Instruction, uint32, error) {
	if int(pc) >= len(data) {
		return Instruction{}, pc, fmt.Errorf("pc 0x%08X out of bounds (container size %d)", pc, len(data))
	}
	opByte := data[pc]
	if !Valid(opByte) {
		return Instruction{}, pc, fmt.Errorf("invalid opcode 0x%02X at pc=0x%08X", opByte, pc)
	}
	op := Opcode(opByte)
	cur := pc + 1
	inst := Instruction{Op: op}

	readReg := func() (int, error) {
		b, err := need(data, cur, op, 1)
		if err != nil {
			return 0, err
		}
		cur++
		return int(b[0]), nil
	}
	readFD := readReg
	readI32 := func() (int32, error) {
		b, err := need(data, cur, op, 4)
		if err != nil {
			return 0, err
		}
		cur += 4
		return i32(b), nil
	}
	readU32 := func() (uint32, error) {
		b, err := need(data, cur, op, 4)
		if err != nil {
			return 0, err
		}
		cur += 4
		return u32(b), nil
	}
	readI64 := func() (int64, error) {
		b, err := need(data, cur, op, 8)
		if err != nil {
			return 0, err
		}
		cur += 8
		return i64(b), nil
	}
	readByte := func() (byte, error) {
		b, err := need(data, cur, op, 1)
		if err != nil {
			return 0, err
		}
		cur++
		return b[0], nil
	}

	var err error
	switch op {
	case OpHalt:
		return inst, cur, nil
	case OpHaltCode:
		var code byte
		code, err = readByte()
		inst.Imm32 = int32(code)
	case OpPrint:
		inst.Char, err = readByte()
	case OpNewline, OpClrscr, OpPrintStackSize, OpContinue, OpBreak, OpRet:
	case OpPrintReg:
		inst.Reg, err = readReg()
	case OpWrite:
		inst.FD, err = readFD()
		if err == nil {
			var n byte
			n, err = readByte()
			if err == nil {
				var b []byte
				b, err = need(data, cur, op, int(n))
				if err == nil {
					inst.Str = append([]byte(nil), b...)
					cur += uint32(n)
				}
			}
		}
	case OpMovReg:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Reg2, err = readReg()
		}
	case OpMovImm:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Imm32, err = readI32()
		}
	case OpPushReg:
		inst.Reg, err = readReg()
	case OpPushImm:
		inst.Imm32, err = readI32()
	case OpPop, OpNot, OpInc, OpDec:
		inst.Reg, err = readReg()
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAnd, OpOr, OpXor, OpCmp:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Reg2, err = readReg()
		}
	case OpJmp, OpJe, OpJne, OpJl, OpJge, OpJb, OpJae:
		inst.Addr, err = readU32()
	case OpCall:
		inst.Addr, err = readU32()
		if err == nil {
			inst.FrameSize, err = readU32()
		}
	case OpAlloc, OpGrow, OpResize, OpFree:
		inst.Imm32, err = readI32()
	case OpLoadImm, OpStoreImm, OpLoadVarImm, OpStoreVarImm:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Imm32, err = readI32()
		}
	case OpLoadReg, OpStoreReg, OpLoadVarReg, OpStoreVarReg:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Reg2, err = readReg()
		}
	case OpLoadStr, OpLoadByte, OpLoadWord, OpLoadDword, OpLoadQword:
		inst.Reg, err = readReg()
		if err == nil {
			inst.DataOffset, err = readU32()
		}
	case OpPrintStr, OpReadStr, OpReadChar, OpRead, OpGetKey:
		inst.Reg, err = readReg()
	case OpSleep:
		inst.Imm32, err = readI32()
	case OpRand:
		inst.Reg, err = readReg()
		if err == nil {
			inst.Imm64A, err = readI64()
		}
		if err == nil {
			inst.Imm64B, err = readI64()
		}
	case OpFopen:
		var mode byte
		mode, err = readByte()
		if err == nil {
			inst.Imm32 = int32(mode)
			inst.FD, err = readFD()
		}
		if err == nil {
			var n byte
			n, err = readByte()
			if err == nil {
				var b []byte
				b, err = need(data, cur, op, int(n))
				if err == nil {
					inst.Str = append([]byte(nil), b...)
					cur += uint32(n)
				}
			}
		}
	case OpFclose:
		inst.FD, err = readFD()
	case OpFread:
		inst.FD, err = readFD()
		if err == nil {
			inst.Reg, err = readReg()
		}
	case OpFwriteReg, OpFseekReg:
		inst.FD, err = readFD()
		if err == nil {
			inst.Reg, err = readReg()
		}
	case OpFwriteImm, OpFseekImm:
		inst.FD, err = readFD()
		if err == nil {
			inst.Imm32, err = readI32()
		}
	default:
		return Instruction{}, pc, fmt.Errorf("isa: unknown opcode %d", op)
	}
	if err != nil {
		return Instruction{}, pc, err
	}
	return inst, cur, nil
}
