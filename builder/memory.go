package builder

import (
	"github.com/ngc6302h/neomips/parser"
)

// memMask is the full addressing archetype set accepted by the memory
// pseudo-operations.
const memMask = parser.RegMemReg | parser.RegImm | parser.RegOffsetForReg |
	parser.RegLabel | parser.RegLabelAsOffsetReg | parser.RegLabelPlusImm |
	parser.RegLabelPlusImmOffsetForReg

func init() {
	for _, m := range []string{
		"lb", "lbu", "lh", "lhu", "lw", "lwl", "lwr", "ll",
		"sb", "sc", "sh", "sw", "swl", "swr",
		"lwc1", "swc1", "ldc1", "sdc1",
	} {
		register(m, memMask, buildMem)
	}

	register("la", parser.RegImm|parser.RegLabel|parser.RegLabelPlusImm|
		parser.RegLabelAsOffsetReg|parser.RegLabelPlusImmOffsetForReg, buildLa)
	register("li", parser.RegImm, buildLi)

	register("ld", memMask, buildDoubleword)
	register("sd", memMask, buildDoubleword)

	register("ulh", memMask, buildUnalignedHalf)
	register("ulhu", memMask, buildUnalignedHalf)
	register("ulw", memMask, buildUnalignedWord)
	register("usw", memMask, buildUnalignedWord)
}

// memRef is an effective address reduced to base register + 16-bit
// displacement, with the prologue instructions that compute it.
type memRef struct {
	prologue []parser.Token
	base     int
	off      int32
	label    string
	attached int64
}

// access emits one transfer at the reference plus a byte delta.
func (m memRef) access(name string, rt int, delta int64, line int) parser.Token {
	if m.label != "" {
		return genMemLabel(name, rt, m.base, m.label, m.attached+delta, line)
	}
	return genMemOff(name, rt, m.base, m.off+int32(delta), line)
}

// memRefFor reduces any accepted addressing archetype to base+disp16,
// synthesizing lui/addu prologues when the effective address exceeds
// 16 bits.
func memRefFor(ops *parser.Operands, line int) memRef {
	at := parser.AssemblerTemp

	switch ops.Archetype {
	case parser.RegMemReg:
		return memRef{base: ops.Reg2}

	case parser.RegOffsetForReg:
		if parser.FitsSigned16(int64(ops.Offset)) {
			return memRef{base: ops.Reg2, off: ops.Offset}
		}
		off := int64(ops.Offset)
		return memRef{
			prologue: []parser.Token{
				genLuiImm(at, hi16(off), line),
				genR("addu", at, at, ops.Reg2, line),
			},
			base: at,
			off:  int32(int16(off)),
		}

	case parser.RegImm:
		if parser.FitsSigned16(ops.Imm) {
			return memRef{base: 0, off: int32(ops.Imm)}
		}
		// The absolute-constant form loads only the high half; the low
		// half rides in the displacement field unadjusted.
		return memRef{
			prologue: []parser.Token{genLuiImm(at, hi16(ops.Imm), line)},
			base:     at,
			off:      int32(int16(ops.Imm)),
		}

	case parser.RegLabel:
		return memRef{
			prologue: []parser.Token{genLuiLabel(at, ops.Label, 0, line)},
			base:     at,
			label:    ops.Label,
		}

	case parser.RegLabelPlusImm:
		return memRef{
			prologue: []parser.Token{genLuiLabel(at, ops.Label, ops.Imm, line)},
			base:     at,
			label:    ops.Label,
			attached: ops.Imm,
		}

	case parser.RegLabelAsOffsetReg:
		return memRef{
			prologue: []parser.Token{
				genLuiLabel(at, ops.Label, 0, line),
				genR("addu", at, at, ops.Reg2, line),
			},
			base:  at,
			label: ops.Label,
		}

	case parser.RegLabelPlusImmOffsetForReg:
		return memRef{
			prologue: []parser.Token{
				genLuiLabel(at, ops.Label, ops.Imm, line),
				genR("addu", at, at, ops.Reg2, line),
			},
			base:     at,
			label:    ops.Label,
			attached: ops.Imm,
		}
	}

	return memRef{}
}

// buildMem lowers a load/store with any accepted addressing form to a real
// transfer with a 16-bit displacement.
func buildMem(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	switch ops.Archetype {
	case parser.RegMemReg:
		o := *ops
		o.Offset = 0
		return single(instTok(name, o, parser.FixupNone, line)), nil
	case parser.RegOffsetForReg:
		if parser.FitsSigned16(int64(ops.Offset)) {
			return single(instTok(name, *ops, parser.FixupNone, line)), nil
		}
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	m := memRefFor(ops, line)
	return append(m.prologue, m.access(name, ops.Reg1, 0, line)), nil
}

// buildLa computes an address into a register: lui/ori of the label plus an
// optional attached constant, plus the base register when one is present.
func buildLa(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	if ops.Archetype == parser.RegImm {
		return loadImmediate(ops.Reg1, ops.Imm, line), nil
	}

	at := parser.AssemblerTemp
	rd := ops.Reg1
	toks := []parser.Token{
		genLuiLabel(at, ops.Label, ops.Imm, line),
		genOriLabel(rd, at, ops.Label, ops.Imm, line),
	}
	switch ops.Archetype {
	case parser.RegLabelAsOffsetReg, parser.RegLabelPlusImmOffsetForReg:
		toks = append(toks, genR("add", rd, rd, ops.Reg2, line))
	}
	return toks, nil
}

func buildLi(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	return loadImmediate(ops.Reg1, ops.Imm, line), nil
}

// buildDoubleword lowers ld/sd into two word transfers at +0 and +4.
func buildDoubleword(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Reg1 == parser.LinkRegister {
		return nil, errInstruction(line, "%s destination cannot be %s", name, parser.RegisterName(parser.LinkRegister))
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	real := "lw"
	if name == "sd" {
		real = "sw"
	}
	m := memRefFor(ops, line)
	toks := m.prologue
	toks = append(toks,
		m.access(real, ops.Reg1, 0, line),
		m.access(real, ops.Reg1+1, 4, line),
	)
	return toks, nil
}

// buildUnalignedHalf lowers ulh/ulhu: sign- or zero-extending byte load of
// the high byte, zero-extending load of the low byte, shift and OR.
func buildUnalignedHalf(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	at := parser.AssemblerTemp
	high := "lb"
	if name == "ulhu" {
		high = "lbu"
	}
	rd := ops.Reg1
	m := memRefFor(ops, line)
	toks := m.prologue

	if m.base == at {
		// The temporary holds the base; read through it before clobbering.
		toks = append(toks,
			m.access("lbu", rd, 0, line),
			m.access(high, at, 1, line),
			genShift("sll", at, at, 8, line),
			genR("or", rd, rd, at, line),
		)
		return toks, nil
	}

	toks = append(toks,
		m.access(high, at, 1, line),
		genShift("sll", at, at, 8, line),
		m.access("lbu", rd, 0, line),
		genR("or", rd, rd, at, line),
	)
	return toks, nil
}

// buildUnalignedWord lowers ulw/usw to an lwl/lwr or swl/swr pair.
func buildUnalignedWord(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	left, right := "lwl", "lwr"
	if name == "usw" {
		left, right = "swl", "swr"
	}
	m := memRefFor(ops, line)
	toks := m.prologue
	toks = append(toks,
		m.access(left, ops.Reg1, 3, line),
		m.access(right, ops.Reg1, 0, line),
	)
	return toks, nil
}
