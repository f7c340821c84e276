package asmx

import (
	"strings"

	"github.com/kestrelvm/bbx/isa"
	"github.com/kestrelvm/bbx/lex"
)

// ctx carries everything classifyLine needs to turn one instruction line
// into an isa.Instruction: the register/FD counts that bound operand
// parsing, and the label/data tables used to resolve symbolic operands.
// resolve is false during pass 1 (label/data values aren't final yet and
// Size doesn't need them) and true during pass 2.
type ctx struct {
	numRegisters int
	numFDs       int
	labels       *LabelTable
	data         *DataTable
	resolve      bool
}

func (c *ctx) labelAddr(name string, pos Position) (uint32, error) {
	if !c.resolve {
		return 0, nil
	}
	return c.labels.Get(name, pos)
}

func (c *ctx) dataOffset(name string, pos Position) (uint32, error) {
	if !c.resolve {
		return 0, nil
	}
	return c.data.Get(name, pos)
}

// classifyLine parses one code-section instruction line (mnemonic plus
// comma-separated operands) into an isa.Instruction. It is called once
// per line in both passes; only resolved addresses differ between them.
func classifyLine(mnemonic string, operandStr string, pos Position, c *ctx) (isa.Instruction, error) {
	ops := splitOperands(operandStr)
	reg := func(i int) (int, error) {
		if i >= len(ops) {
			return 0, newErr(pos, ErrorSyntax, "", "%s: missing register operand", mnemonic)
		}
		return lexRegister(ops[i], c.numRegisters, mnemonic, pos)
	}
	fd := func(i int) (int, error) {
		if i >= len(ops) {
			return 0, newErr(pos, ErrorSyntax, "", "%s: missing file descriptor operand", mnemonic)
		}
		n, err := lex.ParseFD(ops[i], c.numFDs)
		if err != nil {
			return 0, newErr(pos, ErrorSyntax, "", "%s: %v", mnemonic, err)
		}
		return n, nil
	}

	switch {
	case lex.EqualFold(mnemonic, "HALT"):
		if len(ops) == 0 {
			return isa.Instruction{Op: isa.OpHalt}, nil
		}
		code, err := parseHaltCode(ops[0])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "HALT: %v", err)
		}
		return isa.Instruction{Op: isa.OpHaltCode, Imm32: int32(code)}, nil

	case lex.EqualFold(mnemonic, "PRINT"):
		if len(ops) != 1 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "PRINT expects a single character literal")
		}
		ch, ok := parseQuotedChar(ops[0])
		if !ok {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "PRINT: malformed character literal %q", ops[0])
		}
		return isa.Instruction{Op: isa.OpPrint, Char: ch}, nil

	case lex.EqualFold(mnemonic, "NEWLINE"):
		return isa.Instruction{Op: isa.OpNewline}, nil
	case lex.EqualFold(mnemonic, "CLRSCR"):
		return isa.Instruction{Op: isa.OpClrscr}, nil
	case lex.EqualFold(mnemonic, "PRINT_STACKSIZE"):
		return isa.Instruction{Op: isa.OpPrintStackSize}, nil
	case lex.EqualFold(mnemonic, "CONTINUE"):
		return isa.Instruction{Op: isa.OpContinue}, nil
	case lex.EqualFold(mnemonic, "BREAK"):
		return isa.Instruction{Op: isa.OpBreak}, nil
	case lex.EqualFold(mnemonic, "RET"):
		return isa.Instruction{Op: isa.OpRet}, nil
	case lex.EqualFold(mnemonic, "PRINTREG"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpPrintReg, Reg: r}, err

	case lex.EqualFold(mnemonic, "WRITE"):
		if len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "WRITE expects <fd>, \"<string>\"")
		}
		fdNum, err := parseWriteFD(ops[0], pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		str, ok := parseQuotedString(ops[1])
		if !ok {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "WRITE: expected a quoted string operand")
		}
		return isa.Instruction{Op: isa.OpWrite, FD: fdNum, Str: []byte(str)}, nil

	case lex.EqualFold(mnemonic, "MOV"):
		if len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "MOV expects <dst-reg>, <src-reg-or-imm>")
		}
		dst, err := lexRegister(ops[0], c.numRegisters, mnemonic, pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		if lex.IsRegisterToken(ops[1]) {
			src, err := lexRegister(ops[1], c.numRegisters, mnemonic, pos)
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.Instruction{Op: isa.OpMovReg, Reg: dst, Reg2: src}, nil
		}
		imm, err := parseInt32(ops[1])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "MOV: invalid immediate %q", ops[1])
		}
		return isa.Instruction{Op: isa.OpMovImm, Reg: dst, Imm32: imm}, nil

	case lex.EqualFold(mnemonic, "PUSH"):
		if len(ops) != 1 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "PUSH expects one operand")
		}
		if lex.IsRegisterToken(ops[0]) {
			r, err := lexRegister(ops[0], c.numRegisters, mnemonic, pos)
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.Instruction{Op: isa.OpPushReg, Reg: r}, nil
		}
		imm, err := parseInt32(ops[0])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "PUSH: invalid immediate %q", ops[0])
		}
		return isa.Instruction{Op: isa.OpPushImm, Imm32: imm}, nil

	case lex.EqualFold(mnemonic, "POP"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpPop, Reg: r}, err
	case lex.EqualFold(mnemonic, "NOT"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpNot, Reg: r}, err
	case lex.EqualFold(mnemonic, "INC"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpInc, Reg: r}, err
	case lex.EqualFold(mnemonic, "DEC"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpDec, Reg: r}, err

	case lex.EqualFold(mnemonic, "ADD"), lex.EqualFold(mnemonic, "SUB"),
		lex.EqualFold(mnemonic, "MUL"), lex.EqualFold(mnemonic, "DIV"),
		lex.EqualFold(mnemonic, "MOD"), lex.EqualFold(mnemonic, "AND"),
		lex.EqualFold(mnemonic, "OR"), lex.EqualFold(mnemonic, "XOR"),
		lex.EqualFold(mnemonic, "CMP"):
		dst, err := reg(0)
		if err != nil {
			return isa.Instruction{}, err
		}
		src, err := reg(1)
		if err != nil {
			return isa.Instruction{}, err
		}
		op := map[string]isa.Opcode{
			"ADD": isa.OpAdd, "SUB": isa.OpSub, "MUL": isa.OpMul, "DIV": isa.OpDiv,
			"MOD": isa.OpMod, "AND": isa.OpAnd, "OR": isa.OpOr, "XOR": isa.OpXor, "CMP": isa.OpCmp,
		}[strings.ToUpper(mnemonic)]
		return isa.Instruction{Op: op, Reg: dst, Reg2: src}, nil

	case lex.EqualFold(mnemonic, "JMP"), lex.EqualFold(mnemonic, "JE"),
		lex.EqualFold(mnemonic, "JNE"), lex.EqualFold(mnemonic, "JL"),
		lex.EqualFold(mnemonic, "JGE"), lex.EqualFold(mnemonic, "JB"),
		lex.EqualFold(mnemonic, "JAE"):
		if len(ops) != 1 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s expects a single label operand", mnemonic)
		}
		addr, err := c.labelAddr(ops[0], pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		op := map[string]isa.Opcode{
			"JMP": isa.OpJmp, "JE": isa.OpJe, "JNE": isa.OpJne,
			"JL": isa.OpJl, "JGE": isa.OpJge, "JB": isa.OpJb, "JAE": isa.OpJae,
		}[strings.ToUpper(mnemonic)]
		return isa.Instruction{Op: op, Addr: addr}, nil

	case lex.EqualFold(mnemonic, "CALL"):
		if len(ops) != 1 && len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "CALL expects <label>[, <frame-size>]")
		}
		addr, err := c.labelAddr(ops[0], pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		var frame uint32
		if len(ops) == 2 {
			n, err := parseInt32(ops[1])
			if err != nil {
				return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "CALL: invalid frame size %q", ops[1])
			}
			frame = uint32(n)
		} else if c.resolve {
			frame, err = c.labels.FrameHint(ops[0], pos)
			if err != nil {
				return isa.Instruction{}, err
			}
		}
		return isa.Instruction{Op: isa.OpCall, Addr: addr, FrameSize: frame}, nil

	case lex.EqualFold(mnemonic, "ALLOC"), lex.EqualFold(mnemonic, "GROW"),
		lex.EqualFold(mnemonic, "RESIZE"), lex.EqualFold(mnemonic, "FREE"):
		if len(ops) != 1 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s expects one operand", mnemonic)
		}
		imm, err := parseInt32(ops[0])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s: invalid operand %q", mnemonic, ops[0])
		}
		op := map[string]isa.Opcode{
			"ALLOC": isa.OpAlloc, "GROW": isa.OpGrow, "RESIZE": isa.OpResize, "FREE": isa.OpFree,
		}[strings.ToUpper(mnemonic)]
		return isa.Instruction{Op: op, Imm32: imm}, nil

	case lex.EqualFold(mnemonic, "LOAD"), lex.EqualFold(mnemonic, "STORE"),
		lex.EqualFold(mnemonic, "LOADVAR"), lex.EqualFold(mnemonic, "STOREVAR"):
		if len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s expects <reg>, <reg-or-imm>", mnemonic)
		}
		r, err := lexRegister(ops[0], c.numRegisters, mnemonic, pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		immOp, regOp := immRegPair(strings.ToUpper(mnemonic))
		if lex.IsRegisterToken(ops[1]) {
			r2, err := lexRegister(ops[1], c.numRegisters, mnemonic, pos)
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.Instruction{Op: regOp, Reg: r, Reg2: r2}, nil
		}
		imm, err := parseInt32(ops[1])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s: invalid operand %q", mnemonic, ops[1])
		}
		return isa.Instruction{Op: immOp, Reg: r, Imm32: imm}, nil

	case lex.EqualFold(mnemonic, "LOADSTR"), lex.EqualFold(mnemonic, "LOADBYTE"),
		lex.EqualFold(mnemonic, "LOADWORD"), lex.EqualFold(mnemonic, "LOADDWORD"),
		lex.EqualFold(mnemonic, "LOADQWORD"):
		if len(ops) != 2 || !isDataRef(ops[0]) {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s expects $<name>, <reg>", mnemonic)
		}
		off, err := c.dataOffset(dataRefName(ops[0]), pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		r, err := lexRegister(ops[1], c.numRegisters, mnemonic, pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		op := map[string]isa.Opcode{
			"LOADSTR": isa.OpLoadStr, "LOADBYTE": isa.OpLoadByte, "LOADWORD": isa.OpLoadWord,
			"LOADDWORD": isa.OpLoadDword, "LOADQWORD": isa.OpLoadQword,
		}[strings.ToUpper(mnemonic)]
		return isa.Instruction{Op: op, Reg: r, DataOffset: off}, nil

	case lex.EqualFold(mnemonic, "PRINTSTR"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpPrintStr, Reg: r}, err
	case lex.EqualFold(mnemonic, "READSTR"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpReadStr, Reg: r}, err
	case lex.EqualFold(mnemonic, "READCHAR"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpReadChar, Reg: r}, err
	case lex.EqualFold(mnemonic, "READ"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpRead, Reg: r}, err
	case lex.EqualFold(mnemonic, "GETKEY"):
		r, err := reg(0)
		return isa.Instruction{Op: isa.OpGetKey, Reg: r}, err

	case lex.EqualFold(mnemonic, "SLEEP"):
		if len(ops) != 1 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "SLEEP expects one operand")
		}
		imm, err := parseInt32(ops[0])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "SLEEP: invalid operand %q", ops[0])
		}
		return isa.Instruction{Op: isa.OpSleep, Imm32: imm}, nil

	case lex.EqualFold(mnemonic, "RAND"):
		if len(ops) != 3 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "RAND expects <reg>, <min>, <max>")
		}
		r, err := lexRegister(ops[0], c.numRegisters, mnemonic, pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		lo, err := parseInt64(ops[1])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "RAND: invalid min %q", ops[1])
		}
		hi, err := parseInt64(ops[2])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "RAND: invalid max %q", ops[2])
		}
		return isa.Instruction{Op: isa.OpRand, Reg: r, Imm64A: lo, Imm64B: hi}, nil

	case lex.EqualFold(mnemonic, "FOPEN"):
		if len(ops) != 3 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "FOPEN expects <mode>, <fd>, \"<filename>\"")
		}
		mode, err := parseFopenMode(ops[0], pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		fdNum, err := lex.ParseFD(ops[1], c.numFDs)
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "FOPEN: %v", err)
		}
		name, ok := parseQuotedString(ops[2])
		if !ok {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "FOPEN: expected a quoted filename")
		}
		return isa.Instruction{Op: isa.OpFopen, Imm32: int32(mode), FD: fdNum, Str: []byte(name)}, nil

	case lex.EqualFold(mnemonic, "FCLOSE"):
		n, err := fd(0)
		return isa.Instruction{Op: isa.OpFclose, FD: n}, err

	case lex.EqualFold(mnemonic, "FREAD"):
		if len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "FREAD expects <fd>, <reg>")
		}
		fdNum, err := lex.ParseFD(ops[0], c.numFDs)
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "FREAD: %v", err)
		}
		r, err := lexRegister(ops[1], c.numRegisters, mnemonic, pos)
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.OpFread, FD: fdNum, Reg: r}, nil

	case lex.EqualFold(mnemonic, "FWRITE"), lex.EqualFold(mnemonic, "FSEEK"):
		if len(ops) != 2 {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s expects <fd>, <reg-or-imm>", mnemonic)
		}
		fdNum, err := lex.ParseFD(ops[0], c.numFDs)
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s: %v", mnemonic, err)
		}
		regOp, immOp := fwriteFseekOps(strings.ToUpper(mnemonic))
		if lex.IsRegisterToken(ops[1]) {
			r, err := lexRegister(ops[1], c.numRegisters, mnemonic, pos)
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.Instruction{Op: regOp, FD: fdNum, Reg: r}, nil
		}
		imm, err := parseInt32(ops[1])
		if err != nil {
			return isa.Instruction{}, newErr(pos, ErrorSyntax, "", "%s: invalid operand %q", mnemonic, ops[1])
		}
		return isa.Instruction{Op: immOp, FD: fdNum, Imm32: imm}, nil

	default:
		return isa.Instruction{}, newErr(pos, ErrorUnknownMnemonic, "", "unknown instruction %q", mnemonic)
	}
}

func lexRegister(tok string, numRegisters int, mnemonic string, pos Position) (int, error) {
	n, err := lex.ParseRegister(tok, numRegisters)
	if err != nil {
		return 0, newErr(pos, ErrorSyntax, "", "%s: %v", mnemonic, err)
	}
	return n, nil
}

func parseHaltCode(tok string) (byte, error) {
	switch strings.ToUpper(tok) {
	case "OK":
		return 0, nil
	case "BAD":
		return 1, nil
	}
	n, err := parseInt32(tok)
	if err != nil {
		return 0, err
	}
	return byte(n % 256), nil
}

func parseWriteFD(tok string, pos Position) (int, error) {
	switch strings.ToLower(tok) {
	case "stdout":
		return 1, nil
	case "stderr":
		return 2, nil
	}
	n, err := parseInt32(tok)
	if err != nil || (n != 1 && n != 2) {
		return 0, newErr(pos, ErrorSyntax, "", "WRITE: file descriptor must be stdout, stderr, 1, or 2")
	}
	return int(n), nil
}

func parseFopenMode(tok string, pos Position) (isa.FOpenMode, error) {
	switch strings.ToLower(tok) {
	case "r":
		return isa.FOpenRead, nil
	case "w":
		return isa.FOpenWrite, nil
	case "a":
		return isa.FOpenAppend, nil
	}
	return 0, newErr(pos, ErrorSyntax, "", "FOPEN: invalid mode %q (expected r, w, or a)", tok)
}

func immRegPair(mnemonic string) (immOp, regOp isa.Opcode) {
	switch mnemonic {
	case "LOAD":
		return isa.OpLoadImm, isa.OpLoadReg
	case "STORE":
		return isa.OpStoreImm, isa.OpStoreReg
	case "LOADVAR":
		return isa.OpLoadVarImm, isa.OpLoadVarReg
	case "STOREVAR":
		return isa.OpStoreVarImm, isa.OpStoreVarReg
	}
	panic("asmx: unreachable mnemonic " + mnemonic)
}

func fwriteFseekOps(mnemonic string) (regOp, immOp isa.Opcode) {
	if mnemonic == "FWRITE" {
		return isa.OpFwriteReg, isa.OpFwriteImm
	}
	return isa.OpFseekReg, isa.OpFseekImm
}
