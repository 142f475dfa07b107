package builder

import (
	"github.com/ngc6302h/neomips/parser"
)

func init() {
	register("move", parser.RegReg, buildMove)
	register("not", parser.RegReg, buildNot)
	register("neg", parser.RegReg, buildNeg)
	register("negu", parser.RegReg, buildNeg)
	register("abs", parser.RegReg, buildAbs)

	threeOp := parser.RegRegReg | parser.RegRegImm
	register("mul", threeOp, buildMul)
	register("mulo", threeOp, buildMulOverflow)
	register("mulou", threeOp, buildMulOverflow)
	register("rem", threeOp, buildRem)
	register("remu", threeOp, buildRem)
	register("rol", threeOp, buildRotate)
	register("ror", threeOp, buildRotate)

	for _, m := range []string{"seq", "sne", "sge", "sgeu", "sgt", "sgtu", "sle", "sleu"} {
		register(m, threeOp, buildSetCompare)
	}
}

func buildMove(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	return single(genR("addu", ops.Reg1, 0, ops.Reg2, line)), nil
}

func buildNot(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	return single(genR("nor", ops.Reg1, ops.Reg2, 0, line)), nil
}

func buildNeg(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	real := "sub"
	if name == "negu" {
		real = "subu"
	}
	return single(genR(real, ops.Reg1, 0, ops.Reg2, line)), nil
}

// buildAbs copies the source and conditionally negates it: the branch skips
// the negation for non-negative values.
func buildAbs(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	rd, rs := ops.Reg1, ops.Reg2
	return []parser.Token{
		genR("addu", rd, 0, rs, line),
		genRegimmOff("bgez", rs, 1, line),
		genR("sub", rd, 0, rs, line),
	}, nil
}

// rtOperand resolves the third operand of a three-operand pseudo, emitting
// a constant load into the assembler temporary when it is an immediate.
func rtOperand(ops *parser.Operands, line int) (int, []parser.Token) {
	if ops.Archetype != parser.RegRegImm {
		return ops.Reg3, nil
	}
	if ops.Imm == 0 {
		return 0, nil
	}
	return parser.AssemblerTemp, materialize(ops.Imm, line)
}

func buildMul(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	rt, toks := rtOperand(ops, line)
	toks = append(toks,
		genMulDiv("mult", ops.Reg2, rt, line),
		genHiLo("mflo", ops.Reg1, line),
	)
	return toks, nil
}

// buildMulOverflow lowers mulo/mulou: multiply, move the low word into the
// destination, and trap when HI disagrees with the sign extension of LO
// (signed) or is nonzero (unsigned). The signed form restores LO after the
// sign-extension check destroys the destination.
func buildMulOverflow(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	at := parser.AssemblerTemp
	rd := ops.Reg1
	rt, toks := rtOperand(ops, line)

	if name == "mulou" {
		toks = append(toks,
			genMulDiv("multu", ops.Reg2, rt, line),
			genHiLo("mfhi", at, line),
			genHiLo("mflo", rd, line),
			genBrOff("beq", at, 0, 1, line),
			genBreak(line),
		)
		return toks, nil
	}

	toks = append(toks,
		genMulDiv("mult", ops.Reg2, rt, line),
		genHiLo("mfhi", at, line),
		genHiLo("mflo", rd, line),
		genShift("sra", rd, rd, 31, line),
		genBrOff("beq", at, rd, 1, line),
		genBreak(line),
		genHiLo("mflo", rd, line),
	)
	return toks, nil
}

func buildRem(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	real := "div"
	if name == "remu" {
		real = "divu"
	}
	rt, toks := rtOperand(ops, line)
	toks = append(toks,
		genBrOff("bne", rt, 0, 1, line),
		genBreak(line),
		genMulDiv(real, ops.Reg2, rt, line),
		genHiLo("mfhi", ops.Reg1, line),
	)
	return toks, nil
}

// buildRotate lowers rol/ror with either a constant or a register count to
// the complementary shift pair and an OR.
func buildRotate(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	at := parser.AssemblerTemp
	rd, rs := ops.Reg1, ops.Reg2

	if ops.Archetype == parser.RegRegImm {
		sa := ops.Imm & 31
		if sa == 0 {
			return single(genR("addu", rd, 0, rs, line)), nil
		}
		main, counter := "sll", "srl"
		if name == "ror" {
			main, counter = "srl", "sll"
		}
		return []parser.Token{
			genShift(counter, at, rs, 32-sa, line),
			genShift(main, rd, rs, sa, line),
			genR("or", rd, rd, at, line),
		}, nil
	}

	rt := ops.Reg3
	main, counter := "sllv", "srlv"
	if name == "ror" {
		main, counter = "srlv", "sllv"
	}
	return []parser.Token{
		genR("subu", at, 0, rt, line),
		genR(counter, at, rs, at, line),
		genR(main, rd, rs, rt, line),
		genR("or", rd, rd, at, line),
	}, nil
}

// buildSetCompare lowers the set-on-comparison pseudo-ops onto slt/sltu,
// subu and xori.
func buildSetCompare(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	rd, rs := ops.Reg1, ops.Reg2
	rt, toks := rtOperand(ops, line)
	slt := "slt"
	if name == "sgeu" || name == "sgtu" || name == "sleu" {
		slt = "sltu"
	}

	switch name {
	case "seq":
		toks = append(toks,
			genR("subu", rd, rs, rt, line),
			genI("sltiu", rd, rd, 1, line),
		)
	case "sne":
		toks = append(toks,
			genR("subu", rd, rs, rt, line),
			genR("sltu", rd, 0, rd, line),
		)
	case "sgt", "sgtu":
		toks = append(toks, genR(slt, rd, rt, rs, line))
	case "sge", "sgeu":
		toks = append(toks,
			genR(slt, rd, rs, rt, line),
			genI("xori", rd, rd, 1, line),
		)
	case "sle", "sleu":
		toks = append(toks,
			genR(slt, rd, rt, rs, line),
			genI("xori", rd, rd, 1, line),
		)
	}
	return toks, nil
}
