package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngc6302h/neomips/parser"
)

func build(t *testing.T, mnemonic, operands string) []parser.Token {
	t.Helper()
	toks, err := New().Build(mnemonic, operands, 1)
	require.NoError(t, err)
	return toks
}

func mnemonics(toks []parser.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Mnemonic
	}
	return out
}

func TestRealInstructionPassthrough(t *testing.T) {
	toks := build(t, "add", "$t0, $t1, $t2")
	require.Len(t, toks, 1)
	assert.Equal(t, parser.TokenInstruction, toks[0].Kind)
	assert.Equal(t, parser.RegRegReg, toks[0].Operands.Archetype)
}

func TestLiExpansion(t *testing.T) {
	tests := []struct {
		imm  string
		want []string
	}{
		{"42", []string{"addiu"}},
		{"-100", []string{"addiu"}},
		{"0xABCD", []string{"ori"}},
		{"0x12345678", []string{"lui", "ori"}},
	}
	for _, tt := range tests {
		toks := build(t, "li", "$t0, "+tt.imm)
		assert.Equal(t, tt.want, mnemonics(toks), "li $t0, %s", tt.imm)
		for _, tok := range toks {
			assert.Equal(t, parser.CompilerGenerated, tok.Operands.Archetype)
		}
	}

	// The canonical 32-bit load splits through the assembler temporary.
	toks := build(t, "li", "$t0, 0x12345678")
	require.Len(t, toks, 2)
	lui, ori := toks[0], toks[1]
	assert.Equal(t, parser.AssemblerTemp, lui.Operands.Reg1)
	assert.Equal(t, int64(0x1234), lui.Operands.Imm)
	assert.Equal(t, 8, ori.Operands.Reg1)
	assert.Equal(t, parser.AssemblerTemp, ori.Operands.Reg2)
	assert.Equal(t, int64(0x5678), ori.Operands.Imm)
}

func TestLaExpansion(t *testing.T) {
	toks := build(t, "la", "$a0, msg")
	require.Equal(t, []string{"lui", "ori"}, mnemonics(toks))
	assert.Equal(t, parser.FixupHi16, toks[0].Fixup)
	assert.Equal(t, parser.FixupLo16, toks[1].Fixup)
	assert.Equal(t, "msg", toks[0].Operands.Label)
	assert.Equal(t, 4, toks[1].Operands.Reg1)

	// Base register appends an add.
	toks = build(t, "la", "$a0, buf+8($t1)")
	require.Equal(t, []string{"lui", "ori", "add"}, mnemonics(toks))
	assert.Equal(t, int64(8), toks[0].Operands.Imm)
}

func TestDivExpansion(t *testing.T) {
	toks := build(t, "div", "$t0, $t1, $t2")
	require.Equal(t, []string{"bne", "break", "div", "mflo"}, mnemonics(toks))

	guard := toks[0]
	assert.Equal(t, 10, guard.Operands.Reg1, "guard tests the divisor")
	assert.Equal(t, 0, guard.Operands.Reg2)
	assert.Equal(t, int64(1), guard.Operands.Imm, "guard skips the break")
	assert.Empty(t, guard.Operands.Label)

	assert.Equal(t, 9, toks[2].Operands.Reg1)
	assert.Equal(t, 10, toks[2].Operands.Reg2)
	assert.Equal(t, 8, toks[3].Operands.Reg1)

	// Two-operand form is the real instruction.
	toks = build(t, "div", "$t1, $t2")
	require.Len(t, toks, 1)
	assert.Equal(t, parser.RegReg, toks[0].Operands.Archetype)
}

func TestRemExpansion(t *testing.T) {
	toks := build(t, "rem", "$t0, $t1, $t2")
	require.Equal(t, []string{"bne", "break", "div", "mfhi"}, mnemonics(toks))
}

func TestSimpleAliases(t *testing.T) {
	tests := []struct {
		mnemonic, operands string
		want               string
		reg1, reg2, reg3   int
	}{
		{"move", "$t0, $t1", "addu", 8, 0, 9},
		{"not", "$t0, $t1", "nor", 8, 9, 0},
		{"neg", "$t0, $t1", "sub", 8, 0, 9},
		{"negu", "$t0, $t1", "subu", 8, 0, 9},
	}
	for _, tt := range tests {
		toks := build(t, tt.mnemonic, tt.operands)
		require.Len(t, toks, 1, tt.mnemonic)
		assert.Equal(t, tt.want, toks[0].Mnemonic)
		assert.Equal(t, tt.reg1, toks[0].Operands.Reg1)
		assert.Equal(t, tt.reg2, toks[0].Operands.Reg2)
		assert.Equal(t, tt.reg3, toks[0].Operands.Reg3)
	}
}

func TestBranchAliases(t *testing.T) {
	toks := build(t, "b", "done")
	require.Equal(t, []string{"bgez"}, mnemonics(toks))
	assert.Equal(t, 0, toks[0].Operands.Reg1)

	toks = build(t, "beqz", "$t0, done")
	require.Equal(t, []string{"beq"}, mnemonics(toks))
	assert.Equal(t, 0, toks[0].Operands.Reg2)

	toks = build(t, "bnez", "$t0, done")
	require.Equal(t, []string{"bne"}, mnemonics(toks))
}

func TestCompareBranches(t *testing.T) {
	tests := []struct {
		mnemonic string
		slt      string
		branch   string
		rs, rt   int
	}{
		{"blt", "slt", "bne", 8, 9},
		{"bge", "slt", "beq", 8, 9},
		{"bgt", "slt", "bne", 9, 8},
		{"ble", "slt", "beq", 9, 8},
		{"bltu", "sltu", "bne", 8, 9},
		{"bgeu", "sltu", "beq", 8, 9},
	}
	for _, tt := range tests {
		toks := build(t, tt.mnemonic, "$t0, $t1, loop")
		require.Equal(t, []string{tt.slt, tt.branch}, mnemonics(toks), tt.mnemonic)

		slt := toks[0]
		assert.Equal(t, parser.AssemblerTemp, slt.Operands.Reg1)
		assert.Equal(t, tt.rs, slt.Operands.Reg2, tt.mnemonic)
		assert.Equal(t, tt.rt, slt.Operands.Reg3, tt.mnemonic)

		br := toks[1]
		assert.Equal(t, parser.AssemblerTemp, br.Operands.Reg1)
		assert.Equal(t, "loop", br.Operands.Label)
	}
}

func TestMulOverflowExpansion(t *testing.T) {
	toks := build(t, "mulo", "$t0, $t1, $t2")
	require.Equal(t, []string{"mult", "mfhi", "mflo", "sra", "beq", "break", "mflo"}, mnemonics(toks))

	toks = build(t, "mulou", "$t0, $t1, $t2")
	require.Equal(t, []string{"multu", "mfhi", "mflo", "beq", "break"}, mnemonics(toks))
}

func TestRotateExpansion(t *testing.T) {
	toks := build(t, "rol", "$t0, $t1, 4")
	require.Equal(t, []string{"srl", "sll", "or"}, mnemonics(toks))
	assert.Equal(t, int64(28), toks[0].Operands.Imm)
	assert.Equal(t, int64(4), toks[1].Operands.Imm)

	toks = build(t, "ror", "$t0, $t1, $t2")
	require.Equal(t, []string{"subu", "sllv", "srlv", "or"}, mnemonics(toks))
}

func TestImmediateRangePolicy(t *testing.T) {
	// In range: single instruction.
	toks := build(t, "addi", "$t0, $t1, 42")
	require.Len(t, toks, 1)
	assert.Equal(t, "addi", toks[0].Mnemonic)

	// Out of range: lui/ori prologue plus the register form.
	toks = build(t, "addi", "$t0, $t1, 0x12345678")
	require.Equal(t, []string{"lui", "ori", "add"}, mnemonics(toks))
	last := toks[2]
	assert.Equal(t, 8, last.Operands.Reg1)
	assert.Equal(t, 9, last.Operands.Reg2)
	assert.Equal(t, parser.AssemblerTemp, last.Operands.Reg3)

	// R-type mnemonic with a fitting immediate lowers to its I-type form.
	toks = build(t, "add", "$t0, $t1, 42")
	require.Equal(t, []string{"addi"}, mnemonics(toks))
}

func TestMemoryArchetypes(t *testing.T) {
	// Bare base register.
	toks := build(t, "lw", "$t0, ($t1)")
	require.Len(t, toks, 1)
	assert.Equal(t, int32(0), toks[0].Operands.Offset)

	// Fitting offset stays a single real transfer.
	toks = build(t, "lw", "$t0, 8($sp)")
	require.Len(t, toks, 1)

	// Label address goes through the temporary.
	toks = build(t, "lw", "$t0, buf")
	require.Equal(t, []string{"lui", "lw"}, mnemonics(toks))
	assert.Equal(t, parser.FixupHi16, toks[0].Fixup)
	assert.Equal(t, parser.FixupLo16, toks[1].Fixup)
	assert.Equal(t, parser.AssemblerTemp, toks[1].Operands.Reg2)

	// Label plus base register needs an addu.
	toks = build(t, "sw", "$t0, buf+4($t1)")
	require.Equal(t, []string{"lui", "addu", "sw"}, mnemonics(toks))
	assert.Equal(t, int64(4), toks[2].Operands.Imm)
}

func TestMemoryAbsoluteOmitsOri(t *testing.T) {
	// The 32-bit absolute form carries only the high half in a lui; the
	// low half rides in the displacement unadjusted.
	toks := build(t, "lw", "$t0, 0x12345678")
	require.Equal(t, []string{"lui", "lw"}, mnemonics(toks))
	assert.Equal(t, int64(0x1234), toks[0].Operands.Imm)
	assert.Equal(t, int32(0x5678), toks[1].Operands.Offset)

	// A 16-bit absolute address loads straight off the zero register.
	toks = build(t, "lw", "$t0, 0x100")
	require.Len(t, toks, 1)
	assert.Equal(t, 0, toks[0].Operands.Reg2)
	assert.Equal(t, int32(0x100), toks[0].Operands.Offset)
}

func TestDoublewordExpansion(t *testing.T) {
	toks := build(t, "ld", "$t0, 8($sp)")
	require.Equal(t, []string{"lw", "lw"}, mnemonics(toks))
	assert.Equal(t, int32(8), toks[0].Operands.Offset)
	assert.Equal(t, int32(12), toks[1].Operands.Offset)
	assert.Equal(t, 8, toks[0].Operands.Reg1)
	assert.Equal(t, 9, toks[1].Operands.Reg1)

	_, err := New().Build("ld", "$ra, 0($sp)", 1)
	require.Error(t, err, "ld destination cannot be the link register")
}

func TestUnalignedExpansion(t *testing.T) {
	toks := build(t, "ulh", "$t0, 0($t1)")
	require.Equal(t, []string{"lb", "sll", "lbu", "or"}, mnemonics(toks))
	assert.Equal(t, int32(1), toks[0].Operands.Offset, "high byte")
	assert.Equal(t, int32(0), toks[2].Operands.Offset, "low byte")

	toks = build(t, "ulhu", "$t0, 0($t1)")
	assert.Equal(t, "lbu", toks[0].Mnemonic)

	toks = build(t, "ulw", "$t0, 0($t1)")
	require.Equal(t, []string{"lwl", "lwr"}, mnemonics(toks))
	assert.Equal(t, int32(3), toks[0].Operands.Offset)
}

func TestFloatConstraints(t *testing.T) {
	_, err := New().Build("add.d", "$f1, $f2, $f4", 1)
	require.Error(t, err, "odd register in a .d form")

	_, err = New().Build("bc1f", "9, done", 1)
	require.Error(t, err, "condition flag out of range")

	toks := build(t, "mfc1.d", "$t0, $f2")
	require.Equal(t, []string{"mfc1", "mfc1"}, mnemonics(toks))
	assert.Equal(t, 9, toks[1].Operands.Reg1)
	assert.Equal(t, 3, toks[1].Operands.Reg2)

	_, err = New().Build("mfc1.d", "$t1, $f2", 1)
	require.Error(t, err, "odd general register in mfc1.d")
}

func TestFloatLoadStoreAliases(t *testing.T) {
	toks := build(t, "l.s", "$f0, 4($sp)")
	require.Equal(t, []string{"lwc1"}, mnemonics(toks))

	toks = build(t, "s.d", "$f2, buf")
	require.Equal(t, []string{"lui", "sdc1"}, mnemonics(toks))
}

func TestKeepPseudoinstructions(t *testing.T) {
	b := New()
	b.KeepPseudoinstructions = true

	toks, err := b.Build("li", "$t0, 0x12345678", 1)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, parser.TokenPseudo, toks[0].Kind)
	assert.Equal(t, "li", toks[0].Mnemonic)
	assert.Equal(t, int64(0x12345678), toks[0].Operands.Imm)

	// Real instructions stay real.
	toks, err = b.Build("add", "$t0, $t1, $t2", 1)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, parser.TokenInstruction, toks[0].Kind)

	// ISA validation still runs with expansion disabled.
	_, err = b.Build("ld", "$ra, 0($sp)", 1)
	require.Error(t, err)
}

func TestShiftRange(t *testing.T) {
	_, err := New().Build("sll", "$t0, $t1, 32", 1)
	require.Error(t, err)
}

func TestUnknownMnemonic(t *testing.T) {
	_, err := New().Build("bogus", "$t0", 1)
	require.Error(t, err)
}

func TestInvalidSyntaxKind(t *testing.T) {
	_, err := New().Build("add", "$t0, $t1", 1)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.ErrorInvalidSyntax, perr.Kind)
}

func TestSetCompareExpansion(t *testing.T) {
	toks := build(t, "seq", "$t0, $t1, $t2")
	require.Equal(t, []string{"subu", "sltiu"}, mnemonics(toks))

	toks = build(t, "sgt", "$t0, $t1, $t2")
	require.Equal(t, []string{"slt"}, mnemonics(toks))
	assert.Equal(t, 10, toks[0].Operands.Reg2)
	assert.Equal(t, 9, toks[0].Operands.Reg3)

	toks = build(t, "sge", "$t0, $t1, $t2")
	require.Equal(t, []string{"slt", "xori"}, mnemonics(toks))
}

func TestDirectives(t *testing.T) {
	tok, err := BuildDirective(".asciiz", `"Hi\n"`, 1)
	require.NoError(t, err)
	assert.Equal(t, parser.DirAsciiz, tok.Directive.Kind)
	assert.Equal(t, []string{"Hi\n"}, tok.Directive.Strs)
	assert.Equal(t, uint32(4), tok.Directive.Size)

	// Comma-separated string lists; each asciiz string is null-terminated.
	tok, err = BuildDirective(".asciiz", `"A, B", "C"`, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A, B", "C"}, tok.Directive.Strs)
	assert.Equal(t, uint32(7), tok.Directive.Size)

	tok, err = BuildDirective(".ascii", `"ab", "cd"`, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "cd"}, tok.Directive.Strs)
	assert.Equal(t, uint32(4), tok.Directive.Size)

	tok, err = BuildDirective(".word", "1, 2, 3", 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), tok.Directive.Size)

	tok, err = BuildDirective(".half", "0xFFFF", 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tok.Directive.Size)

	tok, err = BuildDirective(".data", "0x10010000", 1)
	require.NoError(t, err)
	assert.True(t, tok.Directive.HasAddr)
	assert.Equal(t, uint32(0x10010000), tok.Directive.Addr)

	tok, err = BuildDirective(".align", "2", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, tok.Directive.Align)
}

func TestDirectiveErrors(t *testing.T) {
	tests := []struct {
		name, args string
		kind       parser.ErrorKind
	}{
		{".align", "5", parser.ErrorInvalidDirective},
		{".space", "-1", parser.ErrorInvalidDirective},
		{".half", "0x10000", parser.ErrorInvalidDirective},
		{".byte", "", parser.ErrorInvalidDirective},
		{".asciiz", `"bad\q"`, parser.ErrorInvalidEscapeSequence},
		{".bogus", "", parser.ErrorInvalidDirective},
	}
	for _, tt := range tests {
		_, err := BuildDirective(tt.name, tt.args, 1)
		require.Error(t, err, "%s %s", tt.name, tt.args)
		var perr *parser.Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.kind, perr.Kind, "%s %s", tt.name, tt.args)
	}
}
