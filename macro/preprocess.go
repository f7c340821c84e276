package macro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kestrelvm/bbx/lex"
)

// MaxDepth is the default nested-expansion recursion limit.
const MaxDepth = 32

var hygieneIdent = regexp.MustCompile(`@@([A-Za-z0-9_]+)`)

// Collect scans raw source lines for %macro NAME P1 P2 ... / %endmacro
// blocks, registers each as a Macro in a fresh Table, and returns the
// remaining lines with those blocks stripped from the output stream.
func Collect(lines []string) ([]string, *Table, error) {
	table := NewTable()
	out := make([]string, 0, len(lines))

	var cur *Macro
	for i, raw := range lines {
		lineNo := i + 1
		trimmed := lex.Trim(raw)

		if cur != nil {
			if lex.EqualFold(trimmed, "%endmacro") {
				if err := table.Define(cur); err != nil {
					return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				cur = nil
				continue
			}
			cur.Body = append(cur.Body, raw)
			continue
		}

		if lex.HasPrefixFold(trimmed, "%macro") {
			fields := lex.SplitFields(trimmed)
			if len(fields) < 2 {
				return nil, nil, fmt.Errorf("line %d: %%macro requires a name", lineNo)
			}
			cur = &Macro{Name: fields[1], Params: append([]string(nil), fields[2:]...)}
			continue
		}

		out = append(out, raw)
	}
	if cur != nil {
		return nil, nil, fmt.Errorf("unterminated %%macro %q (missing %%endmacro)", cur.Name)
	}
	return out, table, nil
}

// Expander expands macro invocations found in a line stream, rewriting
// @@ labels for hygiene and recursing into expansions that themselves
// invoke a macro, bounded by maxDepth.
type Expander struct {
	table    *Table
	maxDepth int
	counter  uint64
}

// NewExpander builds an Expander over table with the given recursion
// limit (use MaxDepth for the default).
func NewExpander(table *Table, maxDepth int) *Expander {
	return &Expander{table: table, maxDepth: maxDepth}
}

// Expand runs the full macro pass over lines, returning the fully
// expanded stream that assembler pass 1 consumes.
func (e *Expander) Expand(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := e.expandLine(line, 0, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func invocationName(trimmed string) (string, []string, bool) {
	if !strings.HasPrefix(trimmed, "%") {
		return "", nil, false
	}
	fields := lex.SplitFields(trimmed[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

func (e *Expander) expandLine(line string, depth int, out *[]string) error {
	trimmed := lex.Trim(line)

	name, args, looksLikeInvocation := invocationName(trimmed)
	if !looksLikeInvocation || IsReserved(name) {
		*out = append(*out, line)
		return nil
	}

	m, ok := e.table.Lookup(name)
	if !ok {
		// Not a recognised macro: leave the line for the assembler to
		// report as whatever error class fits (unknown section marker,
		// unknown instruction, ...).
		*out = append(*out, line)
		return nil
	}

	if depth >= e.maxDepth {
		return fmt.Errorf("macro expansion too deep (limit %d) expanding %%%s", e.maxDepth, name)
	}

	e.counter++
	id := "M" + strconv.FormatUint(e.counter, 10)

	for _, bodyLine := range m.Body {
		expanded := substituteParams(bodyLine, m.Params, args)
		expanded = rewriteHygiene(expanded, id)

		if err := e.expandLine(expanded, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// substituteParams replaces $PARAM occurrences with their argument
// value (empty string if the caller omitted that argument), then
// replaces $1..$N positional references, in that order.
func substituteParams(line string, params, args []string) string {
	for i, p := range params {
		val := ""
		if i < len(args) {
			val = args[i]
		}
		line = strings.ReplaceAll(line, "$"+p, val)
	}
	for i, a := range args {
		line = strings.ReplaceAll(line, "$"+strconv.Itoa(i+1), a)
	}
	return line
}

// rewriteHygiene replaces every @@IDENT occurrence with M<k>_IDENT so
// that each macro expansion's local labels are unique. An occurrence
// immediately followed by ':' at the start of the line is a label
// declaration and must come out as ".M<k>_IDENT" to satisfy the
// assembler's ".NAME:" label grammar; any other occurrence is a
// reference and is rewritten bare, matching the name pass 1 will have
// stored for that declaration.
func rewriteHygiene(line, id string) string {
	matches := hygieneIdent.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		ident := line[m[2]:m[3]]

		sb.WriteString(line[last:start])
		isDecl := end < len(line) && line[end] == ':' && strings.TrimSpace(line[:start]) == ""
		if isDecl {
			sb.WriteString(".")
		}
		sb.WriteString(id + "_" + ident)
		last = end
	}
	sb.WriteString(line[last:])
	return sb.String()
}
