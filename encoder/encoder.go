// Package encoder implements pass 2 of the assembler: resolving label
// references against the pass-1 symbol table and emitting the final 32-bit
// instruction words.
package encoder

import (
	"fmt"

	"github.com/ngc6302h/neomips/isa"
	"github.com/ngc6302h/neomips/parser"
)

// Encoder converts addressed instruction tokens into MIPS32 machine code.
type Encoder struct {
	symbols *parser.SymbolTable
}

// New creates an encoder reading the given symbol table. The table must be
// fully populated; it is treated as an immutable snapshot.
func New(symbols *parser.SymbolTable) *Encoder {
	return &Encoder{symbols: symbols}
}

// Resolve computes a token's resolved-label field from the symbol table and
// the token's own address. Tokens without a label reference pass through
// unchanged. A token must be addressed (pass 1) before it can be resolved.
func (e *Encoder) Resolve(tok *parser.Token) error {
	if tok.Kind != parser.TokenInstruction || tok.Operands == nil || tok.Operands.Label == "" {
		return nil
	}
	ops := tok.Operands

	addr, err := e.symbols.Get(ops.Label)
	if err != nil {
		return parser.NewError(tok.Pos(), parser.ErrorUndefinedSymbol, err.Error())
	}

	switch tok.Fixup {
	case parser.FixupBranch:
		// Signed word offset relative to the next instruction.
		off := (int64(addr) - int64(tok.Address) - 4) >> 2
		if off < -0x8000 || off > 0x7FFF {
			return parser.NewError(tok.Pos(), parser.ErrorBranchOutOfRange,
				fmt.Sprintf("branch to %q spans %d words", ops.Label, off))
		}
		ops.LabelAddr = uint32(int32(off))
	case parser.FixupLo16, parser.FixupHi16:
		// Absolute address plus the attached constant offset.
		ops.LabelAddr = addr + uint32(int32(ops.Imm))
	default:
		ops.LabelAddr = addr
	}
	return nil
}

// Encode emits the 32-bit word for a resolved instruction token. It is a
// pure function of the operand bundle; Resolve must have run first for
// tokens that carry a label.
func (e *Encoder) Encode(tok *parser.Token) (uint32, error) {
	if tok.Kind == parser.TokenPseudo {
		return 0, NewEncodingError(tok, "cannot encode unexpanded pseudo-instruction")
	}
	if tok.Kind != parser.TokenInstruction {
		return 0, NewEncodingError(tok, "token is not an instruction")
	}

	name := tok.Mnemonic
	ops := tok.Operands

	if name == "nop" {
		return 0, nil
	}

	if fn, ok := isa.RFunct[name]; ok {
		return isa.EncodeR(reg(ops.Reg2), reg(ops.Reg3), reg(ops.Reg1), 0, fn), nil
	}
	if fn, ok := isa.ShiftFunct[name]; ok {
		return isa.EncodeR(0, reg(ops.Reg2), reg(ops.Reg1), uint32(ops.Imm)&31, fn), nil
	}
	if fn, ok := isa.ShiftVarFunct[name]; ok {
		return isa.EncodeR(reg(ops.Reg3), reg(ops.Reg2), reg(ops.Reg1), 0, fn), nil
	}
	if op, ok := isa.IOpcode[name]; ok {
		return isa.EncodeI(op, reg(ops.Reg2), reg(ops.Reg1), e.immField(tok)), nil
	}
	if fn, ok := isa.MulDivFunct[name]; ok {
		return isa.EncodeR(reg(ops.Reg1), reg(ops.Reg2), 0, 0, fn), nil
	}
	if op, ok := isa.MemOpcode[name]; ok {
		return e.encodeMemory(op, tok)
	}

	switch name {
	case "lui":
		return isa.EncodeI(isa.OpLui, 0, reg(ops.Reg1), e.immField(tok)), nil
	case "mfhi":
		return isa.EncodeR(0, 0, reg(ops.Reg1), 0, isa.FnMfhi), nil
	case "mflo":
		return isa.EncodeR(0, 0, reg(ops.Reg1), 0, isa.FnMflo), nil
	case "mthi":
		return isa.EncodeR(reg(ops.Reg1), 0, 0, 0, isa.FnMthi), nil
	case "mtlo":
		return isa.EncodeR(reg(ops.Reg1), 0, 0, 0, isa.FnMtlo), nil
	case "jr":
		return isa.EncodeR(reg(ops.Reg1), 0, 0, 0, isa.FnJr), nil
	case "jalr":
		return isa.EncodeR(reg(ops.Reg2), 0, reg(ops.Reg1), 0, isa.FnJalr), nil
	case "syscall":
		return isa.EncodeR(0, 0, 0, 0, isa.FnSyscall), nil
	case "break":
		return uint32(ops.Imm)<<6&0x03FFFFC0 | isa.FnBreak, nil
	}

	if word, ok, err := e.encodeBranch(tok); ok {
		return word, err
	}
	if word, ok, err := e.encodeFloat(tok); ok {
		return word, err
	}

	return 0, NewEncodingError(tok, fmt.Sprintf("no encoding for mnemonic %q", name))
}

func reg(r int) uint32 {
	return uint32(r) & 31
}

// immField selects the 16-bit immediate for I-type encodings: the resolved
// label's low or high half when a fixup is attached, the literal immediate
// otherwise.
func (e *Encoder) immField(tok *parser.Token) uint32 {
	ops := tok.Operands
	if ops.Label != "" {
		switch tok.Fixup {
		case parser.FixupLo16:
			return ops.LabelAddr & 0xFFFF
		case parser.FixupHi16:
			return ops.LabelAddr >> 16 & 0xFFFF
		}
	}
	return uint32(ops.Imm) & 0xFFFF
}

// branchField selects the 16-bit signed word offset: the resolved offset
// for label branches, the literal offset carried by expansion-internal
// branches otherwise.
func (e *Encoder) branchField(tok *parser.Token) uint32 {
	if tok.Operands.Label != "" {
		return tok.Operands.LabelAddr & 0xFFFF
	}
	return uint32(tok.Operands.Imm) & 0xFFFF
}
