// Package builder turns parsed mnemonics and operand text into the typed
// token stream consumed by the layout engine and encoder. Each mnemonic is
// realized by a table entry that declares the archetypes it accepts and a
// build function that validates ISA constraints and, for pseudo-instructions,
// expands into real instructions when expansion is enabled.
package builder

import (
	"fmt"
	"strings"

	"github.com/ngc6302h/neomips/parser"
)

// Builder builds instruction and directive tokens. The zero value expands
// pseudo-instructions; set KeepPseudoinstructions to carry them through to
// emission as opaque records instead.
type Builder struct {
	KeepPseudoinstructions bool
}

// New creates a builder with pseudo-instruction expansion enabled.
func New() *Builder {
	return &Builder{}
}

type buildFunc func(b *Builder, name string, ops *parser.Operands, line int) ([]parser.Token, error)

type entry struct {
	mask  parser.Archetype
	build buildFunc
}

var instructions = map[string]*entry{}

func register(name string, mask parser.Archetype, build buildFunc) {
	if _, dup := instructions[name]; dup {
		panic("duplicate mnemonic: " + name)
	}
	instructions[name] = &entry{mask: mask, build: build}
}

// Known reports whether a mnemonic has a registered builder.
func Known(mnemonic string) bool {
	_, ok := instructions[strings.ToLower(mnemonic)]
	return ok
}

// Build parses the operand text of one instruction against the mnemonic's
// accepted archetypes and returns the resulting token sequence: a single
// token when the operands need no expansion (and for pseudos when expansion
// is off), or the ordered expansion into real instructions otherwise. Real
// mnemonics expand too when an immediate or address does not fit 16 bits.
func (b *Builder) Build(mnemonic, operands string, line int) ([]parser.Token, error) {
	name := strings.ToLower(strings.TrimSpace(mnemonic))
	e, ok := instructions[name]
	if !ok {
		return nil, parser.NewError(pos(line), parser.ErrorInvalidInstruction,
			fmt.Sprintf("unknown mnemonic %q", mnemonic))
	}

	ops, err := parser.ParseOperands(operands, e.mask)
	if err != nil {
		return nil, parser.NewError(pos(line), parser.ErrorInvalidSyntax, err.Error())
	}

	return e.build(b, name, ops, line)
}

func pos(line int) parser.Position {
	return parser.Position{Line: line}
}

func errInstruction(line int, format string, args ...any) *parser.Error {
	return parser.NewError(pos(line), parser.ErrorInvalidInstruction, fmt.Sprintf(format, args...))
}

// hi16 and lo16 split a 32-bit constant for the canonical lui/ori load.
func hi16(v int64) int64 { return (v >> 16) & 0xFFFF }
func lo16(v int64) int64 { return v & 0xFFFF }

// single wraps one token.
func single(t parser.Token) []parser.Token {
	return []parser.Token{t}
}

// instTok builds a real-instruction token carrying the parsed bundle.
func instTok(name string, ops parser.Operands, fix parser.FixupKind, line int) parser.Token {
	o := ops
	return parser.Token{Kind: parser.TokenInstruction, Mnemonic: name, Operands: &o, Fixup: fix, Line: line}
}

// pseudoTok builds the unexpanded pseudo token emitted when expansion is off.
func pseudoTok(name string, ops parser.Operands, line int) parser.Token {
	o := ops
	return parser.Token{Kind: parser.TokenPseudo, Mnemonic: name, Operands: &o, Line: line}
}

// Compiler-generated token constructors. Every synthesized token carries the
// CompilerGenerated archetype; field positions follow the conventions the
// encoder expects (Reg1 = destination/rt, Reg2 = rs/base, Reg3 = rt).

func genTok(name string, line int, fix parser.FixupKind, o parser.Operands) parser.Token {
	o.Archetype = parser.CompilerGenerated
	return parser.Token{Kind: parser.TokenInstruction, Mnemonic: name, Operands: &o, Fixup: fix, Line: line}
}

// genR: three-register SPECIAL form, rd, rs, rt.
func genR(name string, rd, rs, rt, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: rd, Reg2: rs, Reg3: rt})
}

// genShift: constant shift, rd, rt, sa.
func genShift(name string, rd, rt int, sa int64, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: rd, Reg2: rt, Imm: sa})
}

// genI: immediate arithmetic, rt, rs, imm.
func genI(name string, rt, rs int, imm int64, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: rt, Reg2: rs, Imm: imm})
}

// genLuiImm: lui rt, imm with the 16-bit value already computed.
func genLuiImm(rt int, imm int64, line int) parser.Token {
	return genTok("lui", line, parser.FixupNone, parser.Operands{Reg1: rt, Imm: imm})
}

// genLuiLabel: lui rt, hi16(label+attached) resolved during pass 2.
func genLuiLabel(rt int, label string, attached int64, line int) parser.Token {
	return genTok("lui", line, parser.FixupHi16, parser.Operands{Reg1: rt, Label: label, Imm: attached})
}

// genOriLabel: ori rt, rs, lo16(label+attached) resolved during pass 2.
func genOriLabel(rt, rs int, label string, attached int64, line int) parser.Token {
	return genTok("ori", line, parser.FixupLo16, parser.Operands{Reg1: rt, Reg2: rs, Label: label, Imm: attached})
}

// genMemOff: load/store with a literal 16-bit displacement.
func genMemOff(name string, rt, base int, off int32, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: rt, Reg2: base, Offset: off})
}

// genMemLabel: load/store whose displacement is lo16(label+attached).
func genMemLabel(name string, rt, base int, label string, attached int64, line int) parser.Token {
	return genTok(name, line, parser.FixupLo16, parser.Operands{Reg1: rt, Reg2: base, Label: label, Imm: attached})
}

// genBrLabel: two-register conditional branch to a label.
func genBrLabel(name string, rs, rt int, label string, line int) parser.Token {
	return genTok(name, line, parser.FixupBranch, parser.Operands{Reg1: rs, Reg2: rt, Label: label})
}

// genBrOff: two-register conditional branch with a literal word offset,
// used by expansions that skip over their own instructions.
func genBrOff(name string, rs, rt int, words int64, line int) parser.Token {
	return genTok(name, line, parser.FixupBranch, parser.Operands{Reg1: rs, Reg2: rt, Imm: words})
}

// genRegimmLabel: single-register REGIMM branch to a label.
func genRegimmLabel(name string, rs int, label string, line int) parser.Token {
	return genTok(name, line, parser.FixupBranch, parser.Operands{Reg1: rs, Label: label})
}

// genRegimmOff: single-register REGIMM branch with a literal word offset.
func genRegimmOff(name string, rs int, words int64, line int) parser.Token {
	return genTok(name, line, parser.FixupBranch, parser.Operands{Reg1: rs, Imm: words})
}

// genMulDiv: rs, rt pair feeding HI/LO.
func genMulDiv(name string, rs, rt, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: rs, Reg2: rt})
}

// genHiLo: mfhi/mflo/mthi/mtlo with a single register.
func genHiLo(name string, reg, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: reg})
}

// genBreak: trap used by expansion guards.
func genBreak(line int) parser.Token {
	return genTok("break", line, parser.FixupNone, parser.Operands{})
}

// genFP: COP1 token with up to three FP registers.
func genFP(name string, r1, r2, r3, line int) parser.Token {
	return genTok(name, line, parser.FixupNone, parser.Operands{Reg1: r1, Reg2: r2, Reg3: r3})
}

// materialize loads a 32-bit constant into the assembler temporary using the
// shortest real-instruction sequence.
func materialize(imm int64, line int) []parser.Token {
	at := parser.AssemblerTemp
	switch {
	case parser.FitsSigned16(imm):
		return single(genI("addiu", at, 0, imm, line))
	case parser.FitsUnsigned16(imm):
		return single(genI("ori", at, 0, imm, line))
	default:
		return []parser.Token{
			genLuiImm(at, hi16(imm), line),
			genI("ori", at, at, lo16(imm), line),
		}
	}
}

// loadImmediate is the li expansion: the same policy as materialize but
// targeting an arbitrary destination register.
func loadImmediate(rd int, imm int64, line int) []parser.Token {
	at := parser.AssemblerTemp
	switch {
	case parser.FitsSigned16(imm):
		return single(genI("addiu", rd, 0, imm, line))
	case parser.FitsUnsigned16(imm):
		return single(genI("ori", rd, 0, imm, line))
	default:
		return []parser.Token{
			genLuiImm(at, hi16(imm), line),
			genI("ori", rd, at, lo16(imm), line),
		}
	}
}
