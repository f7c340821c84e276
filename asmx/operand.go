package asmx

import (
	"strconv"
	"strings"

	"github.com/kestrelvm/bbx/lex"
)

// splitOperands splits an operand list on top-level commas. Quoted
// string operands may themselves contain commas, so we track quote
// state rather than doing a bare strings.Split.
func splitOperands(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			out = append(out, lex.Trim(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if strings.TrimSpace(cur.String()) != "" || len(out) > 0 {
		out = append(out, lex.Trim(cur.String()))
	}
	return out
}

func parseQuotedString(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", false
	}
	return tok[1 : len(tok)-1], true
}

func parseQuotedChar(tok string) (byte, bool) {
	if len(tok) < 3 || tok[0] != '\'' || tok[len(tok)-1] != '\'' {
		return 0, false
	}
	inner := tok[1 : len(tok)-1]
	if inner == `\n` {
		return '\n', true
	}
	if inner == `\t` {
		return '\t', true
	}
	if inner == `\\` {
		return '\\', true
	}
	if len(inner) != 1 {
		return 0, false
	}
	return inner[0], true
}

func parseInt32(tok string) (int32, error) {
	n, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

func parseInt64(tok string) (int64, error) {
	return strconv.ParseInt(tok, 0, 64)
}

func isDataRef(tok string) bool {
	return strings.HasPrefix(tok, "$")
}

func dataRefName(tok string) string {
	return strings.TrimPrefix(tok, "$")
}
