package builder

import (
	"github.com/ngc6302h/neomips/parser"
)

func init() {
	threeReg := parser.RegRegReg | parser.RegRegImm
	for _, m := range []string{"add", "addu", "sub", "subu", "and", "or", "xor", "nor", "slt", "sltu"} {
		register(m, threeReg, buildRType)
	}
	for _, m := range []string{"addi", "addiu", "slti", "sltiu", "andi", "ori", "xori"} {
		register(m, parser.RegRegImm, buildIType)
	}
	register("lui", parser.RegImm, buildLui)

	for _, m := range []string{"sll", "srl", "sra"} {
		register(m, parser.RegRegImm, buildShift)
	}
	for _, m := range []string{"sllv", "srlv", "srav"} {
		register(m, parser.RegRegReg, buildSingleReal)
	}

	register("mult", parser.RegReg, buildSingleReal)
	register("multu", parser.RegReg, buildSingleReal)
	register("div", parser.RegReg|parser.RegRegReg|parser.RegRegImm, buildDiv)
	register("divu", parser.RegReg|parser.RegRegReg|parser.RegRegImm, buildDiv)

	for _, m := range []string{"mfhi", "mflo", "mthi", "mtlo"} {
		register(m, parser.Reg, buildSingleReal)
	}

	register("syscall", parser.NoParams, buildSingleReal)
	register("break", parser.NoParams|parser.Imm, buildSingleReal)
	register("nop", parser.NoParams, buildSingleReal)
}

// rTypeToI maps an R-type mnemonic to the I-type counterpart used when its
// third operand is a fitting immediate.
var rTypeToI = map[string]string{
	"add":  "addi",
	"addu": "addiu",
	"slt":  "slti",
	"sltu": "sltiu",
	"and":  "andi",
	"or":   "ori",
	"xor":  "xori",
}

func immFits(name string, imm int64) bool {
	switch name {
	case "andi", "ori", "xori":
		return parser.FitsUnsigned16(imm)
	default:
		return parser.FitsSigned16(imm)
	}
}

// buildSingleReal emits exactly the parsed instruction.
func buildSingleReal(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

// buildRType handles the three-register SPECIAL mnemonics. An immediate
// third operand lowers to the I-type counterpart when it fits, or to a
// constant-load prologue and the register form when it does not.
func buildRType(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Archetype == parser.RegRegReg {
		return single(instTok(name, *ops, parser.FixupNone, line)), nil
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	at := parser.AssemblerTemp
	rd, rs, imm := ops.Reg1, ops.Reg2, ops.Imm

	switch name {
	case "sub", "subu":
		// Negate and use the addition immediate when it fits.
		addIName := "addi"
		if name == "subu" {
			addIName = "addiu"
		}
		if parser.FitsSigned16(-imm) {
			return single(genI(addIName, rd, rs, -imm, line)), nil
		}
	case "nor":
		// no immediate counterpart
	default:
		if iName := rTypeToI[name]; immFits(iName, imm) {
			return single(genI(iName, rd, rs, imm, line)), nil
		}
	}

	toks := materialize(imm, line)
	toks = append(toks, genR(name, rd, rs, at, line))
	return toks, nil
}

// buildIType handles the immediate-arithmetic mnemonics. An out-of-range
// immediate synthesizes the canonical 32-bit constant load into the
// assembler temporary and replaces the operation with its register form.
func buildIType(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if immFits(name, ops.Imm) || b.KeepPseudoinstructions {
		return single(instTok(name, *ops, parser.FixupNone, line)), nil
	}

	at := parser.AssemblerTemp
	toks := []parser.Token{
		genLuiImm(at, hi16(ops.Imm), line),
		genI("ori", at, at, lo16(ops.Imm), line),
	}
	regName := map[string]string{
		"addi": "add", "addiu": "addu", "slti": "slt", "sltiu": "sltu",
		"andi": "and", "ori": "or", "xori": "xor",
	}[name]
	toks = append(toks, genR(regName, ops.Reg1, ops.Reg2, at, line))
	return toks, nil
}

func buildLui(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if !parser.FitsSigned16(ops.Imm) && !parser.FitsUnsigned16(ops.Imm) {
		return nil, errInstruction(line, "lui immediate %d does not fit 16 bits", ops.Imm)
	}
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

func buildShift(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Imm < 0 || ops.Imm > 31 {
		return nil, errInstruction(line, "shift amount %d out of range [0,31]", ops.Imm)
	}
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

// buildDiv covers both the real two-operand form and the three-operand
// pseudo form with its divide-by-zero guard.
func buildDiv(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Archetype == parser.RegReg {
		return single(instTok(name, *ops, parser.FixupNone, line)), nil
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	var toks []parser.Token
	rt := ops.Reg3
	if ops.Archetype == parser.RegRegImm {
		toks = materialize(ops.Imm, line)
		rt = parser.AssemblerTemp
	}
	toks = append(toks,
		genBrOff("bne", rt, 0, 1, line),
		genBreak(line),
		genMulDiv(name, ops.Reg2, rt, line),
		genHiLo("mflo", ops.Reg1, line),
	)
	return toks, nil
}
