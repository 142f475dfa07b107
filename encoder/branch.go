package encoder

import (
	"fmt"

	"github.com/ngc6302h/neomips/isa"
	"github.com/ngc6302h/neomips/parser"
)

// encodeBranch handles the conditional branch, REGIMM and jump families.
// The boolean result reports whether the mnemonic belongs to this family.
func (e *Encoder) encodeBranch(tok *parser.Token) (uint32, bool, error) {
	ops := tok.Operands

	switch tok.Mnemonic {
	case "beq":
		return isa.EncodeI(isa.OpBeq, reg(ops.Reg1), reg(ops.Reg2), e.branchField(tok)), true, nil
	case "bne":
		return isa.EncodeI(isa.OpBne, reg(ops.Reg1), reg(ops.Reg2), e.branchField(tok)), true, nil
	case "blez":
		return isa.EncodeI(isa.OpBlez, reg(ops.Reg1), 0, e.branchField(tok)), true, nil
	case "bgtz":
		return isa.EncodeI(isa.OpBgtz, reg(ops.Reg1), 0, e.branchField(tok)), true, nil
	case "j", "jal":
		op := uint32(isa.OpJ)
		if tok.Mnemonic == "jal" {
			op = isa.OpJal
		}
		// The low 2 bits of the target are required to be zero; they are
		// discarded and the word address packed into 26 bits.
		target := uint32(ops.Imm)
		if ops.Label != "" {
			target = ops.LabelAddr
		}
		if target&3 != 0 {
			return 0, true, NewEncodingError(tok, fmt.Sprintf("jump target 0x%08X is not word aligned", target))
		}
		return isa.EncodeJ(op, target>>2), true, nil
	}

	if code, ok := isa.RegimmCode[tok.Mnemonic]; ok {
		return isa.EncodeI(isa.OpRegimm, reg(ops.Reg1), code, e.branchField(tok)), true, nil
	}

	return 0, false, nil
}
