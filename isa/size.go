package isa

import "fmt"

// clippedStrLen returns the number of payload bytes that will actually be
// emitted for a WRITE/FOPEN string operand: length is stored in a single
// byte, so anything beyond 255 is silently clipped.
func clippedStrLen(s []byte) int {
	if len(s) > 255 {
		return 255
	}
	return len(s)
}

// Size returns the number of bytes (including the opcode byte) that
// Encode will emit for inst. Used by assembler pass 1 to advance the
// program counter; pass 2 must emit exactly this many bytes for the
// identical Instruction value, which Encode guarantees since both read
// off the same Op switch.
func Size(inst Instruction) (int, error) {
	const (
		op   = 1
		reg  = 1
		fd   = 1
		i32  = 4
		i64  = 8
		addr = 4
	)
	switch inst.Op {
	case OpHalt:
		return op, nil
	case OpHaltCode:
		return op + 1, nil
	case OpPrint:
		return op + 1, nil
	case OpNewline, OpClrscr, OpPrintStackSize, OpContinue, OpBreak, OpRet:
		return op, nil
	case OpPrintReg:
		return op + reg, nil
	case OpWrite:
		return op + fd + 1 + clippedStrLen(inst.Str), nil
	case OpMovReg:
		return op + reg + reg, nil
	case OpMovImm:
		return op + reg + i32, nil
	case OpPushReg:
		return op + reg, nil
	case OpPushImm:
		return op + i32, nil
	case OpPop, OpNot, OpInc, OpDec:
		return op + reg, nil
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAnd, OpOr, OpXor, OpCmp:
		return op + reg + reg, nil
	case OpJmp, OpJe, OpJne, OpJl, OpJge, OpJb, OpJae:
		return op + addr, nil
	case OpCall:
		return op + addr + 4, nil
	case OpAlloc, OpGrow, OpResize, OpFree:
		return op + i32, nil
	case OpLoadImm, OpStoreImm, OpLoadVarImm, OpStoreVarImm:
		return op + reg + i32, nil
	case OpLoadReg, OpStoreReg, OpLoadVarReg, OpStoreVarReg:
		return op + reg + reg, nil
	case OpLoadStr, OpLoadByte, OpLoadWord, OpLoadDword, OpLoadQword:
		return op + reg + 4, nil
	case OpPrintStr, OpReadStr, OpReadChar, OpRead, OpGetKey:
		return op + reg, nil
	case OpSleep:
		return op + i32, nil
	case OpRand:
		return op + reg + i64 + i64, nil
	case OpFopen:
		return op + 1 + fd + 1 + clippedStrLen(inst.Str), nil
	case OpFclose:
		return op + fd, nil
	case OpFread:
		return op + fd + reg, nil
	case OpFwriteReg, OpFseekReg:
		return op + fd + reg, nil
	case OpFwriteImm, OpFseekImm:
		return op + fd + i32, nil
	default:
		return 0, fmt.Errorf("isa: unknown opcode %d", inst.Op)
	}
}
