package isa

import "testing"

// sampleInstructions builds one representative, fully-populated Instruction for
// every defined opcode, so the round-trip test below walks the entire
// instruction set rather than a hand-picked subset.
func sampleInstructions() []Instruction {
	str := []byte("hi")
	return []Instruction{
		{Op: OpHalt},
		{Op: OpHaltCode, Imm32: 7},
		{Op: OpPrint, Char: 'x'},
		{Op: OpNewline},
		{Op: OpClrscr},
		{Op: OpPrintStackSize},
		{Op: OpContinue},
		{Op: OpBreak},
		{Op: OpRet},
		{Op: OpPrintReg, Reg: 3},
		{Op: OpWrite, FD: 1, Str: str},
		{Op: OpMovReg, Reg: 1, Reg2: 2},
		{Op: OpMovImm, Reg: 1, Imm32: -5},
		{Op: OpPushReg, Reg: 4},
		{Op: OpPushImm, Imm32: 99},
		{Op: OpPop, Reg: 2},
		{Op: OpAdd, Reg: 1, Reg2: 2},
		{Op: OpSub, Reg: 1, Reg2: 2},
		{Op: OpMul, Reg: 1, Reg2: 2},
		{Op: OpDiv, Reg: 1, Reg2: 2},
		{Op: OpMod, Reg: 1, Reg2: 2},
		{Op: OpAnd, Reg: 1, Reg2: 2},
		{Op: OpOr, Reg: 1, Reg2: 2},
		{Op: OpXor, Reg: 1, Reg2: 2},
		{Op: OpNot, Reg: 1},
		{Op: OpInc, Reg: 1},
		{Op: OpDec, Reg: 1},
		{Op: OpCmp, Reg: 1, Reg2: 2},
		{Op: OpJmp, Addr: 0x1000},
		{Op: OpJe, Addr: 0x1000},
		{Op: OpJne, Addr: 0x1000},
		{Op: OpJl, Addr: 0x1000},
		{Op: OpJge, Addr: 0x1000},
		{Op: OpJb, Addr: 0x1000},
		{Op: OpJae, Addr: 0x1000},
		{Op: OpCall, Addr: 0x2000, FrameSize: 3},
		{Op: OpAlloc, Imm32: 16},
		{Op: OpGrow, Imm32: 16},
		{Op: OpResize, Imm32: 16},
		{Op: OpFree, Imm32: 16},
		{Op: OpLoadImm, Reg: 1, Imm32: 4},
		{Op: OpLoadReg, Reg: 1, Reg2: 2},
		{Op: OpStoreImm, Reg: 1, Imm32: 4},
		{Op: OpStoreReg, Reg: 1, Reg2: 2},
		{Op: OpLoadVarImm, Reg: 1, Imm32: 4},
		{Op: OpLoadVarReg, Reg: 1, Reg2: 2},
		{Op: OpStoreVarImm, Reg: 1, Imm32: 4},
		{Op: OpStoreVarReg, Reg: 1, Reg2: 2},
		{Op: OpLoadStr, Reg: 1, DataOffset: 12},
		{Op: OpLoadByte, Reg: 1, DataOffset: 12},
		{Op: OpLoadWord, Reg: 1, DataOffset: 12},
		{Op: OpLoadDword, Reg: 1, DataOffset: 12},
		{Op: OpLoadQword, Reg: 1, DataOffset: 12},
		{Op: OpPrintStr, Reg: 1},
		{Op: OpReadStr, Reg: 1},
		{Op: OpReadChar, Reg: 1},
		{Op: OpRead, Reg: 1},
		{Op: OpSleep, Imm32: 250},
		{Op: OpRand, Reg: 1, Imm64A: -10, Imm64B: 10},
		{Op: OpGetKey, Reg: 1},
		{Op: OpFopen, Imm32: int32(FOpenWrite), FD: 2, Str: str},
		{Op: OpFclose, FD: 2},
		{Op: OpFread, FD: 2, Reg: 1},
		{Op: OpFwriteReg, FD: 2, Reg: 1},
		{Op: OpFwriteImm, FD: 2, Imm32: 42},
		{Op: OpFseekReg, FD: 2, Reg: 1},
		{Op: OpFseekImm, FD: 2, Imm32: 0},
	}
}

// TestSizeEncodeDecodeAgree is the instruction-set-wide invariant test:
// for every opcode, Size's prediction, Encode's actual byte count and
// Decode's consumed byte count must all agree, and decoding must
// reproduce the original operand values.
func TestSizeEncodeDecodeAgree(t *testing.T) {
	seen := make(map[Opcode]bool)
	for _, inst := range sampleInstructions() {
		seen[inst.Op] = true

		wantSize, err := Size(inst)
		if err != nil {
			t.Fatalf("Size(%s): %v", inst.Op, err)
		}

		var buf []byte
		bw := &byteWriter{&buf}
		if err := Encode(bw, inst); err != nil {
			t.Fatalf("Encode(%s): %v", inst.Op, err)
		}
		if len(buf) != wantSize {
			t.Fatalf("%s: Size=%d but Encode wrote %d bytes", inst.Op, wantSize, len(buf))
		}

		padded := append(append([]byte(nil), buf...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		got, next, err := Decode(padded, 0)
		if err != nil {
			t.Fatalf("Decode(%s): %v", inst.Op, err)
		}
		if int(next) != len(buf) {
			t.Fatalf("%s: Decode consumed %d bytes, want %d", inst.Op, next, len(buf))
		}
		if !instructionsEqual(got, inst) {
			t.Fatalf("%s: round trip mismatch: got %+v, want %+v", inst.Op, got, inst)
		}
	}

	for op := Opcode(0); op < opCount; op++ {
		if !seen[op] {
			t.Errorf("opcode %s (%d) has no sample instruction in this test", op, op)
		}
	}
}

func instructionsEqual(a, b Instruction) bool {
	if a.Op != b.Op || a.Reg != b.Reg || a.Reg2 != b.Reg2 ||
		a.Imm32 != b.Imm32 || a.Imm64A != b.Imm64A || a.Imm64B != b.Imm64B ||
		a.Addr != b.Addr || a.FrameSize != b.FrameSize || a.DataOffset != b.DataOffset ||
		a.FD != b.FD || a.Char != b.Char {
		return false
	}
	if len(a.Str) != len(b.Str) {
		return false
	}
	for i := range a.Str {
		if a.Str[i] != b.Str[i] {
			return false
		}
	}
	return true
}

// byteWriter is a minimal io.Writer over a *[]byte, avoiding a
// bytes.Buffer import for this single use.
type byteWriter struct {
	buf *[]byte
}

func (w *byteWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func TestOpcodeStringUnknown(t *testing.T) {
	if got := Opcode(255).String(); got != "INVALID" {
		t.Errorf("Opcode(255).String() = %q, want INVALID", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid(byte(OpHalt)) {
		t.Error("OpHalt should be valid")
	}
	if Valid(255) {
		t.Error("255 should not be a valid opcode")
	}
}

func TestDecodeTruncated(t *testing.T) {
	// OpMovReg needs two operand bytes; give it none.
	data := []byte{byte(OpMovReg)}
	if _, _, err := Decode(data, 0); err == nil {
		t.Fatal("expected a truncation error")
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	data := []byte{0xFF}
	if _, _, err := Decode(data, 0); err == nil {
		t.Fatal("expected an error for an invalid opcode byte")
	}
}
