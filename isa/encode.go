package isa

import (
	"encoding/binary"
	"fmt"
	"io"
)

func putU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func putI32(w io.Writer, v int32) error {
	return putU32(w, uint32(v))
}

func putI64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

func putByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// Encode writes inst's bytecode encoding (opcode byte followed by its
// operands) to w. The byte count written always equals Size(inst); see
// the invariant test in isa/isa_test.go.
func Encode(w io.Writer, inst Instruction) error {
	if err := putByte(w, byte(inst.Op)); err != nil {
		return err
	}
	switch inst.Op {
	case OpHalt:
		return nil
	case OpHaltCode:
		return putByte(w, byte(inst.Imm32))
	case OpPrint:
		return putByte(w, inst.Char)
	case OpNewline, OpClrscr, OpPrintStackSize, OpContinue, OpBreak, OpRet:
		return nil
	case OpPrintReg:
		return putByte(w, byte(inst.Reg))
	case OpWrite:
		n := clippedStrLen(inst.Str)
		if err := putByte(w, byte(inst.FD)); err != nil {
			return err
		}
		if err := putByte(w, byte(n)); err != nil {
			return err
		}
		_, err := w.Write(inst.Str[:n])
		return err
	case OpMovReg:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putByte(w, byte(inst.Reg2))
	case OpMovImm:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putI32(w, inst.Imm32)
	case OpPushReg:
		return putByte(w, byte(inst.Reg))
	case OpPushImm:
		return putI32(w, inst.Imm32)
	case OpPop, OpNot, OpInc, OpDec:
		return putByte(w, byte(inst.Reg))
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAnd, OpOr, OpXor, OpCmp:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putByte(w, byte(inst.Reg2))
	case OpJmp, OpJe, OpJne, OpJl, OpJge, OpJb, OpJae:
		return putU32(w, inst.Addr)
	case OpCall:
		if err := putU32(w, inst.Addr); err != nil {
			return err
		}
		return putU32(w, inst.FrameSize)
	case OpAlloc, OpGrow, OpResize, OpFree:
		return putI32(w, inst.Imm32)
	case OpLoadImm, OpStoreImm, OpLoadVarImm, OpStoreVarImm:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putI32(w, inst.Imm32)
	case OpLoadReg, OpStoreReg, OpLoadVarReg, OpStoreVarReg:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putByte(w, byte(inst.Reg2))
	case OpLoadStr, OpLoadByte, OpLoadWord, OpLoadDword, OpLoadQword:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		return putU32(w, inst.DataOffset)
	case OpPrintStr, OpReadStr, OpReadChar, OpRead, OpGetKey:
		return putByte(w, byte(inst.Reg))
	case OpSleep:
		return putI32(w, inst.Imm32)
	case OpRand:
		if err := putByte(w, byte(inst.Reg)); err != nil {
			return err
		}
		if err := putI64(w, inst.Imm64A); err != nil {
			return err
		}
		return putI64(w, inst.Imm64B)
	case OpFopen:
		n := clippedStrLen(inst.Str)
		if err := putByte(w, byte(inst.Imm32)); err != nil { // mode flag
			return err
		}
		if err := putByte(w, byte(inst.FD)); err != nil {
			return err
		}
		if err := putByte(w, byte(n)); err != nil {
			return err
		}
		_, err := w.Write(inst.Str[:n])
		return err
	case OpFclose:
		return putByte(w, byte(inst.FD))
	case OpFread:
		if err := putByte(w, byte(inst.FD)); err != nil {
			return err
		}
		return putByte(w, byte(inst.Reg))
	case OpFwriteReg, OpFseekReg:
		if err := putByte(w, byte(inst.FD)); err != nil {
			return err
		}
		return putByte(w, byte(inst.Reg))
	case OpFwriteImm, OpFseekImm:
		if err := putByte(w, byte(inst.FD)); err != nil {
			return err
		}
		return putI32(w, inst.Imm32)
	default:
		return fmt.Errorf("isa: unknown opcode %d", inst.Op)
	}
}
