package encoder

import (
	"strings"

	"github.com/ngc6302h/neomips/isa"
	"github.com/ngc6302h/neomips/parser"
)

func fmtCode(suffix string) (uint32, bool) {
	switch suffix {
	case "s":
		return isa.FmtS, true
	case "d":
		return isa.FmtD, true
	case "w":
		return isa.FmtW, true
	}
	return 0, false
}

// encodeFloat handles the COP1 family: arithmetic and unary forms,
// conversions, compares, condition branches and register moves. The boolean
// result reports whether the mnemonic belongs to this family.
func (e *Encoder) encodeFloat(tok *parser.Token) (uint32, bool, error) {
	name := tok.Mnemonic
	ops := tok.Operands

	switch name {
	case "mfc1":
		return isa.OpCop1<<26 | isa.Cop1Mf<<21 | reg(ops.Reg1)<<16 | reg(ops.Reg2)<<11, true, nil
	case "mtc1":
		return isa.OpCop1<<26 | isa.Cop1Mt<<21 | reg(ops.Reg1)<<16 | reg(ops.Reg2)<<11, true, nil
	case "bc1f", "bc1t":
		var tf uint32
		if name == "bc1t" {
			tf = 1
		}
		cc := uint32(ops.Imm) & 7
		return isa.OpCop1<<26 | isa.Cop1Bc<<21 | cc<<18 | tf<<16 | e.branchField(tok), true, nil
	}

	parts := strings.Split(name, ".")

	// cvt.<to>.<from>: the format field carries the source format.
	if len(parts) == 3 && parts[0] == "cvt" {
		var funct uint32
		switch parts[1] {
		case "s":
			funct = isa.FnCvtS
		case "d":
			funct = isa.FnCvtD
		case "w":
			funct = isa.FnCvtW
		default:
			return 0, false, nil
		}
		fmt, ok := fmtCode(parts[2])
		if !ok {
			return 0, false, nil
		}
		return isa.EncodeFR(fmt, 0, reg(ops.Reg2), reg(ops.Reg1), funct), true, nil
	}

	// c.<cond>.<fmt>: fs, ft with the condition flag in bits 10..8.
	if len(parts) == 3 && parts[0] == "c" {
		funct, ok := isa.FPCompareFunct[parts[1]]
		if !ok {
			return 0, false, nil
		}
		fmt, ok := fmtCode(parts[2])
		if !ok {
			return 0, false, nil
		}
		cc := uint32(ops.Imm) & 7
		return isa.EncodeFR(fmt, reg(ops.Reg2), reg(ops.Reg1), cc<<2, funct), true, nil
	}

	// <op>.<fmt> arithmetic and unary forms.
	if len(parts) == 2 {
		funct, ok := isa.FPArithFunct[parts[0]]
		if !ok {
			return 0, false, nil
		}
		fmt, ok := fmtCode(parts[1])
		if !ok {
			return 0, false, nil
		}
		switch parts[0] {
		case "abs", "mov", "neg":
			return isa.EncodeFR(fmt, 0, reg(ops.Reg2), reg(ops.Reg1), funct), true, nil
		default:
			return isa.EncodeFR(fmt, reg(ops.Reg3), reg(ops.Reg2), reg(ops.Reg1), funct), true, nil
		}
	}

	return 0, false, nil
}
