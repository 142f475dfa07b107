package builder

import (
	"github.com/ngc6302h/neomips/parser"
)

func init() {
	register("beq", parser.RegRegLabel|parser.RegImmLabel, buildEqBranch)
	register("bne", parser.RegRegLabel|parser.RegImmLabel, buildEqBranch)

	for _, m := range []string{"blez", "bgtz", "bltz", "bgez", "bltzal", "bgezal"} {
		register(m, parser.RegLabel, buildZeroBranch)
	}

	register("b", parser.Label, buildB)
	register("beqz", parser.RegLabel, buildZeroCompare)
	register("bnez", parser.RegLabel, buildZeroCompare)

	cmpMask := parser.RegRegLabel | parser.RegImmLabel
	for _, m := range []string{"bge", "bgeu", "bgt", "bgtu", "ble", "bleu", "blt", "bltu"} {
		register(m, cmpMask, buildCompareBranch)
	}

	register("j", parser.Label|parser.Imm, buildJump)
	register("jal", parser.Label|parser.Imm, buildJump)
	register("jr", parser.Reg, buildSingleReal)
	register("jalr", parser.Reg|parser.RegReg, buildJalr)
}

// buildEqBranch handles beq/bne. The register form is real; comparing
// against a nonzero immediate materializes it into the assembler temporary.
func buildEqBranch(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Archetype == parser.RegRegLabel {
		return single(instTok(name, *ops, parser.FixupBranch, line)), nil
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	if ops.Imm == 0 {
		return single(genBrLabel(name, ops.Reg1, 0, ops.Label, line)), nil
	}
	toks := materialize(ops.Imm, line)
	toks = append(toks, genBrLabel(name, ops.Reg1, parser.AssemblerTemp, ops.Label, line))
	return toks, nil
}

func buildZeroBranch(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	return single(instTok(name, *ops, parser.FixupBranch, line)), nil
}

// b is the unconditional relative branch.
func buildB(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	return single(genRegimmLabel("bgez", 0, ops.Label, line)), nil
}

func buildZeroCompare(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	real := "beq"
	if name == "bnez" {
		real = "bne"
	}
	return single(genBrLabel(real, ops.Reg1, 0, ops.Label, line)), nil
}

// comparePlan describes how a two-register comparison branch lowers to a
// slt/sltu followed by beq/bne against the temporary.
type comparePlan struct {
	swap     bool   // compare rt,rs instead of rs,rt
	branch   string // beq or bne on the slt result
	unsigned bool
}

var comparePlans = map[string]comparePlan{
	"blt":  {swap: false, branch: "bne"},
	"bge":  {swap: false, branch: "beq"},
	"bgt":  {swap: true, branch: "bne"},
	"ble":  {swap: true, branch: "beq"},
	"bltu": {swap: false, branch: "bne", unsigned: true},
	"bgeu": {swap: false, branch: "beq", unsigned: true},
	"bgtu": {swap: true, branch: "bne", unsigned: true},
	"bleu": {swap: true, branch: "beq", unsigned: true},
}

// buildCompareBranch lowers bge/bgt/ble/blt and their unsigned variants.
func buildCompareBranch(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	plan := comparePlans[name]
	slt := "slt"
	if plan.unsigned {
		slt = "sltu"
	}
	at := parser.AssemblerTemp

	var toks []parser.Token
	rt := ops.Reg2
	if ops.Archetype == parser.RegImmLabel {
		if ops.Imm == 0 {
			rt = 0
		} else {
			toks = materialize(ops.Imm, line)
			rt = at
		}
	}

	rs := ops.Reg1
	if plan.swap {
		rs, rt = rt, rs
	}
	toks = append(toks,
		genR(slt, at, rs, rt, line),
		genBrLabel(plan.branch, at, 0, ops.Label, line),
	)
	return toks, nil
}

func buildJump(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	return single(instTok(name, *ops, parser.FixupJump, line)), nil
}

// buildJalr normalizes the single-operand form to the link register.
func buildJalr(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	o := *ops
	if ops.Archetype == parser.Reg {
		o.Reg2 = ops.Reg1
		o.Reg1 = parser.LinkRegister
	}
	return single(instTok(name, o, parser.FixupNone, line)), nil
}
