package encoder

import (
	"github.com/ngc6302h/neomips/isa"
	"github.com/ngc6302h/neomips/parser"
)

// encodeMemory emits a load or store: op | base | rt | offset16. The
// displacement is the resolved label's low half when a fixup is attached,
// the literal offset otherwise.
func (e *Encoder) encodeMemory(op uint32, tok *parser.Token) (uint32, error) {
	ops := tok.Operands

	disp := uint32(ops.Offset) & 0xFFFF
	if ops.Label != "" && tok.Fixup == parser.FixupLo16 {
		disp = ops.LabelAddr & 0xFFFF
	}

	return isa.EncodeI(op, reg(ops.Reg2), reg(ops.Reg1), disp), nil
}
