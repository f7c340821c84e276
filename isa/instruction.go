package isa

// Instruction is a decoded or to-be-encoded bytecode instruction. It is
// the single shared representation between the assembler's size
// accounting (pass 1), its emission (pass 2), and the interpreter's
// decoder: whichever fields a given Op actually uses is fixed by the
// switch in Size/Encode/Decode, so a change to one automatically has to
// be mirrored in the others.
//
// Not every field applies to every Op; the per-Op cases of the switch in
// Size/Encode/Decode show which ones are read.
type Instruction struct {
	Op Opcode

	Reg  int // primary register operand (dst, or the only register)
	Reg2 int // secondary register operand (src)

	HasImm bool  // not set or read by Size/Encode/Decode; HALT's optional exit code is carried by OpHaltCode instead
	Imm32  int32 // 32-bit immediate: MOV/PUSH imm, ALLOC/GROW/RESIZE/FREE n, SLEEP ms, LOAD/STORE/LOADVAR/STOREVAR immediate index
	Imm64A int64 // RAND min
	Imm64B int64 // RAND max

	Addr      uint32 // resolved absolute branch/call target
	FrameSize uint32 // CALL's frame_size operand

	DataOffset uint32 // resolved data-table offset (LOADSTR/LOADBYTE/LOADWORD/LOADDWORD/LOADQWORD)

	FD   int // WRITE/FOPEN/FCLOSE/FREAD/FWRITE/FSEEK file descriptor
	Char byte

	Str []byte // WRITE string payload, FOPEN filename bytes (length clipped to 255 by Size/Encode)
}
