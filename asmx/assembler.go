// Package asmx implements the two-pass assembler: a macro-expanded line
// stream is first walked to lay out label and data addresses (pass 1),
// then walked again to emit the final container bytes (pass 2). Because
// every instruction's encoded size comes from isa.Size, which switches
// on the same Opcode tag isa.Encode does, the two passes can never
// disagree about how many bytes an instruction occupies.
package asmx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kestrelvm/bbx/container"
	"github.com/kestrelvm/bbx/isa"
	"github.com/kestrelvm/bbx/lex"
	"github.com/kestrelvm/bbx/macro"
)

type section int

const (
	sectionNone section = iota
	sectionData
	sectionCode
)

// Options configures one Assemble call.
type Options struct {
	Registers       int
	FileDescriptors int
	MaxMacroDepth   int
	MaxLabels       int
	Debug           bool
}

// codeLine is one instruction line that survived macro expansion and
// section bookkeeping, kept around so pass 2 can re-classify it without
// re-scanning the raw source.
type codeLine struct {
	pos       Position
	mnemonic  string
	operands  string
	pc        uint32 // code-relative PC, before the data-table base shift
}

// Assemble reads bbx assembly from input, assembles it, and writes the
// resulting container to output.
func Assemble(filename string, input io.Reader, output io.Writer, opts Options) error {
	raw, err := readLines(input)
	if err != nil {
		return err
	}

	bodyStart, err := requireAsmHeader(raw, filename)
	if err != nil {
		return err
	}

	macroFree, table, err := macro.Collect(raw[bodyStart:])
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	depth := opts.MaxMacroDepth
	if depth <= 0 {
		depth = macro.MaxDepth
	}
	expanded, err := macro.NewExpander(table, depth).Expand(macroFree)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	labels := newLabelTable(opts.MaxLabels)
	data := newDataTable()

	c := &ctx{numRegisters: opts.Registers, numFDs: opts.FileDescriptors, labels: labels, data: data}

	lines, errs := layout(filename, expanded, bodyStart, labels, data, c, opts)
	if errs.HasErrors() {
		return errs
	}

	base := container.CodeBase(data.Size())
	labels.Shift(base)
	c.resolve = true

	return emit(output, lines, data, c, opts)
}

// AssembleFile is the CLI-facing convenience wrapper around Assemble.
func AssembleFile(inputPath, outputPath string, opts Options) error {
	in, err := os.Open(inputPath) // #nosec G304 -- CLI-provided source path
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outputPath) // #nosec G304 -- CLI-provided output path
	if err != nil {
		return err
	}
	defer out.Close()

	return Assemble(inputPath, in, out, opts)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// requireAsmHeader confirms the first non-blank, non-comment line is
// exactly "%asm" and returns the index of the line after it, so the
// caller knows where the macro/section body begins.
func requireAsmHeader(lines []string, filename string) (int, error) {
	for i, raw := range lines {
		s := lex.Trim(raw)
		if s == "" || strings.HasPrefix(s, ";") {
			continue
		}
		if lex.EqualFold(s, "%asm") {
			return i + 1, nil
		}
		return 0, &Error{Pos: Position{Filename: filename, Line: i + 1}, Kind: ErrorBadSection,
			Message: fmt.Sprintf("file must start with %%asm, found %q", s)}
	}
	return 0, &Error{Pos: Position{Filename: filename, Line: 1}, Kind: ErrorBadSection, Message: "empty input"}
}

func isLabelDecl(s string) (string, bool) {
	if len(s) < 3 || s[0] != '.' || s[len(s)-1] != ':' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// layout is pass 1: it walks the expanded line stream tracking the
// current section, building the label and data tables, and accumulating
// every code-section instruction's PC so pass 2 never has to guess.
func layout(filename string, expanded []string, lineOffset int, labels *LabelTable, data *DataTable, c *ctx, opts Options) ([]codeLine, *ErrorList) {
	errs := &ErrorList{}
	sec := sectionNone
	sawCode := false
	var pc uint32
	var lines []codeLine
	lastLabel := ""

	for i, raw := range expanded {
		pos := Position{Filename: filename, Line: lineOffset + i + 1}
		s := lex.Trim(raw)
		if s == "" || strings.HasPrefix(s, ";") {
			continue
		}

		switch {
		case lex.EqualFold(s, "%data"), lex.EqualFold(s, "%string"), lex.EqualFold(s, "%strings"):
			if sawCode {
				errs.Add(newErr(pos, ErrorBadSection, "", "%%data must come before %%main/%%entry"))
				continue
			}
			sec = sectionData
			continue
		case lex.EqualFold(s, "%main"), lex.EqualFold(s, "%entry"):
			sec = sectionCode
			sawCode = true
			continue
		}

		if sec == sectionData {
			if err := parseDataDirective(s, pos, data); err != nil {
				errs.Add(err.(*Error))
			}
			continue
		}

		if sec != sectionCode {
			errs.Add(newErr(pos, ErrorBadSection, "", "instruction outside of a section; start with %%data or %%main"))
			continue
		}

		if name, ok := isLabelDecl(s); ok {
			if err := labels.Define(name, pc, pos); err != nil {
				errs.Add(err.(*Error))
			}
			lastLabel = name
			continue
		}

		mnemonic, operandStr := splitMnemonic(s)

		if lex.EqualFold(mnemonic, "FRAME") {
			if lastLabel == "" {
				errs.Add(newErr(pos, ErrorSyntax, "", "FRAME must immediately follow a label"))
				continue
			}
			n, err := parseInt32(lex.Trim(operandStr))
			if err != nil {
				errs.Add(newErr(pos, ErrorSyntax, "", "FRAME: invalid slot count %q", operandStr))
				continue
			}
			labels.SetFrameHint(lastLabel, uint32(n))
			lastLabel = ""
			continue
		}
		lastLabel = ""

		inst, err := classifyLine(mnemonic, operandStr, pos, c)
		if err != nil {
			errs.Add(err.(*Error))
			continue
		}
		size, err := isa.Size(inst)
		if err != nil {
			errs.Add(newErr(pos, ErrorSyntax, "", "%v", err))
			continue
		}
		lines = append(lines, codeLine{pos: pos, mnemonic: mnemonic, operands: operandStr, pc: pc})
		pc += uint32(size)
	}

	if !sawCode {
		errs.Add(newErr(Position{Filename: filename, Line: lineOffset + len(expanded)}, ErrorBadSection, "", "missing %%main or %%entry section"))
	}

	return lines, errs
}

// emit is pass 2: it re-classifies each recorded line (now with labels
// and data offsets fully resolved) and writes the container.
func emit(w io.Writer, lines []codeLine, data *DataTable, c *ctx, opts Options) error {
	if err := container.WriteHeader(w, container.Header{
		DataEntryCount: uint8(data.EntryCount()),
		DataTableSize:  data.Size(),
	}); err != nil {
		return err
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return err
	}

	for _, cl := range lines {
		inst, err := classifyLine(cl.mnemonic, cl.operands, cl.pos, c)
		if err != nil {
			return err
		}
		if opts.Debug {
			fmt.Fprintf(os.Stderr, "[asmx] %s pc=%#x %s %s\n", cl.pos, cl.pc, cl.mnemonic, cl.operands)
		}
		if err := isa.Encode(w, inst); err != nil {
			return fmt.Errorf("%s: %w", cl.pos, err)
		}
	}
	return nil
}

func splitMnemonic(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], lex.Trim(s[i+1:])
}

func parseDataDirective(s string, pos Position, data *DataTable) error {
	mnemonic, rest := splitMnemonic(s)
	ops := splitOperands(rest)
	if len(ops) != 2 || !isDataRef(ops[0]) {
		return newErr(pos, ErrorSyntax, "", "data directive expects $<name>, <value>")
	}
	name := dataRefName(ops[0])

	switch strings.ToUpper(mnemonic) {
	case "STR":
		str, ok := parseQuotedString(ops[1])
		if !ok {
			return newErr(pos, ErrorSyntax, "", "STR: expected a quoted string value")
		}
		return data.DefineString(name, str, pos)
	case "BYTE":
		return data.DefineInt(name, 1, ops[1], pos)
	case "WORD":
		return data.DefineInt(name, 2, ops[1], pos)
	case "DWORD":
		return data.DefineInt(name, 4, ops[1], pos)
	case "QWORD":
		return data.DefineInt(name, 8, ops[1], pos)
	}
	return newErr(pos, ErrorUnknownDirective, "", "unknown data directive %q", mnemonic)
}
