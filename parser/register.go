package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Conventional names for the 32 general purpose registers, in index order.
var registerNames = []string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// AssemblerTemp is the register index reserved for compiler-generated
// expansion intermediates ($at).
const AssemblerTemp = 1

// LinkRegister is the index of the link register ($ra).
const LinkRegister = 31

// ParseRegister parses a register operand ($t0, $8, $f12, ...) and returns
// its index in [0,31]. Floating point registers ($fN) share the same index
// space; the builder for each mnemonic knows which bank an operand lives in.
func ParseRegister(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '$' {
		return 0, fmt.Errorf("invalid register: %s", s)
	}
	name := strings.ToLower(s[1:])

	// Floating point bank: $f0..$f31
	if len(name) > 1 && name[0] == 'f' && name[1] >= '0' && name[1] <= '9' {
		num, err := strconv.ParseUint(name[1:], 10, 8)
		if err != nil || num > 31 {
			return 0, fmt.Errorf("invalid register: %s", s)
		}
		return int(num), nil
	}

	// Numeric form: $0..$31
	if name[0] >= '0' && name[0] <= '9' {
		num, err := strconv.ParseUint(name, 10, 8)
		if err != nil || num > 31 {
			return 0, fmt.Errorf("invalid register: %s", s)
		}
		return int(num), nil
	}

	for i, n := range registerNames {
		if n == name {
			return i, nil
		}
	}
	// $s8 is an alias for $fp
	if name == "s8" {
		return 30, nil
	}
	return 0, fmt.Errorf("invalid register: %s", s)
}

// RegisterName returns the conventional name for a register index.
func RegisterName(index int) string {
	if index < 0 || index > 31 {
		return fmt.Sprintf("$?%d", index)
	}
	return "$" + registerNames[index]
}
