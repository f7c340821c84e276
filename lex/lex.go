// Package lex provides the small set of text-lexical helpers shared by
// the macro preprocessor and the assembler: case-insensitive comparison,
// whitespace trimming, and register/file-descriptor token parsing. All
// mnemonic and directive matching in this toolchain is case-insensitive.
package lex

import (
	"fmt"
	"strconv"
	"strings"
)

// EqualFold reports whether a and b are equal ignoring ASCII case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// HasPrefixFold reports whether s begins with prefix, ignoring ASCII case.
func HasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

// Trim drops leading/trailing whitespace, including bare CR and LF, the
// same way the original toolchain's trim() does.
func Trim(s string) string {
	return strings.TrimRight(strings.TrimLeft(s, " \t\r\n"), " \t\r\n")
}

// ParseRegister parses a register token of the form R<index>/r<index>.
// numRegisters bounds the valid index range.
func ParseRegister(tok string, numRegisters int) (int, error) {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return 0, fmt.Errorf("invalid register token %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= numRegisters {
		return 0, fmt.Errorf("invalid register token %q", tok)
	}
	return n, nil
}

// ParseFD parses a file-descriptor token of the form F<index>/f<index>.
// numFDs bounds the valid index range.
func ParseFD(tok string, numFDs int) (int, error) {
	if len(tok) < 2 || (tok[0] != 'F' && tok[0] != 'f') {
		return 0, fmt.Errorf("invalid file descriptor token %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= numFDs {
		return 0, fmt.Errorf("invalid file descriptor token %q", tok)
	}
	return n, nil
}

// IsRegisterToken reports whether tok looks like a register reference
// (leading R/r followed by at least one digit), without bounds-checking
// the index. Used by the assembler to distinguish the register-operand
// form of an instruction from its immediate form before parsing the
// operand fully.
func IsRegisterToken(tok string) bool {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return false
	}
	for _, c := range tok[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SplitFields splits s on runs of whitespace, same semantics as
// strings.Fields.
func SplitFields(s string) []string {
	return strings.Fields(s)
}
