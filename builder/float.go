package builder

import (
	"strings"

	"github.com/ngc6302h/neomips/parser"
)

func init() {
	for _, m := range []string{"add.s", "add.d", "sub.s", "sub.d", "mul.s", "mul.d", "div.s", "div.d"} {
		register(m, parser.RegRegReg, buildFPArith)
	}
	for _, m := range []string{"abs.s", "abs.d", "neg.s", "neg.d", "mov.s", "mov.d"} {
		register(m, parser.RegReg, buildFPUnary)
	}
	for _, m := range []string{"cvt.s.d", "cvt.s.w", "cvt.d.s", "cvt.d.w", "cvt.w.s", "cvt.w.d"} {
		register(m, parser.RegReg, buildFPUnary)
	}
	for _, m := range []string{"c.eq.s", "c.eq.d", "c.lt.s", "c.lt.d", "c.le.s", "c.le.d"} {
		register(m, parser.RegReg|parser.ImmRegReg, buildFPCompare)
	}

	register("bc1f", parser.Label|parser.ImmLabel, buildFPBranch)
	register("bc1t", parser.Label|parser.ImmLabel, buildFPBranch)

	register("mfc1", parser.RegReg, buildFPMove)
	register("mtc1", parser.RegReg, buildFPMove)
	register("mfc1.d", parser.RegReg, buildFPMoveDouble)
	register("mtc1.d", parser.RegReg, buildFPMoveDouble)

	register("l.s", memMask, buildFPLoadStore)
	register("s.s", memMask, buildFPLoadStore)
	register("l.d", memMask, buildFPLoadStore)
	register("s.d", memMask, buildFPLoadStore)
}

// requireEven enforces the even-register rule for double-precision forms.
func requireEven(line int, name string, regs ...int) error {
	for _, r := range regs {
		if r%2 != 0 {
			return errInstruction(line, "%s requires even floating point registers, got $f%d", name, r)
		}
	}
	return nil
}

func isDouble(name string) bool {
	return strings.HasSuffix(name, ".d")
}

func buildFPArith(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if isDouble(name) {
		if err := requireEven(line, name, ops.Reg1, ops.Reg2, ops.Reg3); err != nil {
			return nil, err
		}
	}
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

func buildFPUnary(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if isDouble(name) {
		if err := requireEven(line, name, ops.Reg1, ops.Reg2); err != nil {
			return nil, err
		}
	}
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

// buildFPCompare normalizes both accepted forms to cc in the immediate
// field with fs and ft in the register slots.
func buildFPCompare(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Archetype == parser.ImmRegReg && (ops.Imm < 0 || ops.Imm > 7) {
		return nil, errInstruction(line, "condition flag %d out of range [0,7]", ops.Imm)
	}
	if isDouble(name) {
		if err := requireEven(line, name, ops.Reg1, ops.Reg2); err != nil {
			return nil, err
		}
	}
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

func buildFPBranch(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if ops.Archetype == parser.ImmLabel && (ops.Imm < 0 || ops.Imm > 7) {
		return nil, errInstruction(line, "condition flag %d out of range [0,7]", ops.Imm)
	}
	return single(instTok(name, *ops, parser.FixupBranch, line)), nil
}

func buildFPMove(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	return single(instTok(name, *ops, parser.FixupNone, line)), nil
}

// buildFPMoveDouble expands mfc1.d/mtc1.d into a word-move pair at +1/+1.
// Both banks must be aligned for the pair to address the full double.
func buildFPMoveDouble(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	if err := requireEven(line, name, ops.Reg1, ops.Reg2); err != nil {
		return nil, err
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}
	real := strings.TrimSuffix(name, ".d")
	return []parser.Token{
		genFP(real, ops.Reg1, ops.Reg2, 0, line),
		genFP(real, ops.Reg1+1, ops.Reg2+1, 0, line),
	}, nil
}

// buildFPLoadStore lowers the l.s/s.s/l.d/s.d aliases onto the COP1
// transfers with the full addressing archetype set.
func buildFPLoadStore(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error) {
	real := map[string]string{
		"l.s": "lwc1", "s.s": "swc1",
		"l.d": "ldc1", "s.d": "sdc1",
	}[name]

	if isDouble(name) {
		if err := requireEven(line, name, ops.Reg1); err != nil {
			return nil, err
		}
	}

	switch ops.Archetype {
	case parser.RegMemReg:
		o := *ops
		o.Offset = 0
		return single(instTok(real, o, parser.FixupNone, line)), nil
	case parser.RegOffsetForReg:
		if parser.FitsSigned16(int64(ops.Offset)) {
			return single(instTok(real, *ops, parser.FixupNone, line)), nil
		}
	}
	if b.KeepPseudoinstructions {
		return single(pseudoTok(name, *ops, line)), nil
	}

	m := memRefFor(ops, line)
	return append(m.prologue, m.access(real, ops.Reg1, 0, line)), nil
}
