package asm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngc6302h/neomips/builder"
	"github.com/ngc6302h/neomips/parser"
)

func assemble(t *testing.T, source string) *Program {
	t.Helper()
	tokens, errs := Tokenize(source, builder.New())
	require.False(t, errs.HasErrors(), "tokenize: %v", errs)

	program, err := NewAssembler(Options{}).Assemble(tokens)
	require.NoError(t, err)
	return program
}

func textWords(p *Program) []uint32 {
	image := p.Image(SegText)
	words := make([]uint32, len(image)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(image[4*i:])
	}
	return words
}

func TestAssembleSingleInstruction(t *testing.T) {
	p := assemble(t, "addi $t0, $t1, 42\n")
	require.Equal(t, []uint32{0x2128002A}, textWords(p))
	assert.Equal(t, uint32(DefaultTextBase), p.Segments[SegText].Origin())
}

func TestAssembleLoop(t *testing.T) {
	source := `
loop:	addi $t0, $t0, -1
	bne $t0, $zero, loop
`
	p := assemble(t, source)
	require.Equal(t, []uint32{0x2108FFFF, 0x1500FFFE}, textWords(p))

	addr, err := p.Symbols.Get("loop")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04000000), addr)
}

func TestAssembleDataSegment(t *testing.T) {
	source := `
.data 0x10010000
msg:	.asciiz "Hi\n"
`
	p := assemble(t, source)

	assert.Equal(t, []byte{0x48, 0x69, 0x0A, 0x00}, p.Image(SegData))
	assert.Equal(t, uint32(0x10010000), p.Segments[SegData].Origin())

	addr, err := p.Symbols.Get("msg")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10010000), addr)
}

func TestAssembleStringList(t *testing.T) {
	source := `
.data
strs:	.asciiz "Hi", "yo"
raw:	.ascii "a", "b"
`
	p := assemble(t, source)
	assert.Equal(t, []byte("Hi\x00yo\x00ab"), p.Image(SegData))

	addr, err := p.Symbols.Get("raw")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10000006), addr)
}

func TestAssembleLaAgainstData(t *testing.T) {
	source := `
.data 0x10010000
msg:	.asciiz "Hi\n"
.text
main:	la $a0, msg
`
	p := assemble(t, source)
	require.Equal(t, []uint32{0x3C011001, 0x34240000}, textWords(p))
}

func TestAddressMonotonicity(t *testing.T) {
	source := `
main:	li $t0, 0x12345678
	add $t1, $t0, $t0
	sw $t1, buf
.data
buf:	.word 0
`
	p := assemble(t, source)

	var last uint32
	count := 0
	for i := range p.Tokens {
		tok := &p.Tokens[i]
		if tok.Kind != parser.TokenInstruction || p.segOf[i] != SegText {
			continue
		}
		if count > 0 {
			assert.Equal(t, last+4, tok.Address, "instruction addresses advance by 4")
		}
		last = tok.Address
		count++
	}
	assert.Equal(t, 5, count, "li and sw each expand to two instructions")
}

func TestDataLayout(t *testing.T) {
	source := `
.data
a:	.byte 1, 2
.align 2
b:	.word 0x11223344
c:	.half 0x5566
d:	.space 2
e:	.byte 0x77
`
	p := assemble(t, source)

	addrOf := func(name string) uint32 {
		addr, err := p.Symbols.Get(name)
		require.NoError(t, err)
		return addr
	}
	assert.Equal(t, uint32(0x10000000), addrOf("a"))
	assert.Equal(t, uint32(0x10000004), addrOf("b"), "aligned to 4")
	assert.Equal(t, uint32(0x10000008), addrOf("c"))
	assert.Equal(t, uint32(0x1000000A), addrOf("d"))
	assert.Equal(t, uint32(0x1000000C), addrOf("e"))

	image := p.Image(SegData)
	require.Len(t, image, 13)
	assert.Equal(t, []byte{1, 2, 0, 0, 0x44, 0x33, 0x22, 0x11, 0x66, 0x55, 0, 0, 0x77}, image)
}

func TestFloatData(t *testing.T) {
	source := `
.data
f:	.float 1.5
d:	.double -2.25
`
	p := assemble(t, source)
	image := p.Image(SegData)
	require.Len(t, image, 12)

	assert.Equal(t, uint32(0x3FC00000), binary.LittleEndian.Uint32(image[0:4]))
	assert.Equal(t, uint64(0xC002000000000000), binary.LittleEndian.Uint64(image[4:12]))
}

func TestKernelSegments(t *testing.T) {
	source := `
.ktext
handler: nop
.kdata
kmsg:	.byte 0xFF
`
	p := assemble(t, source)

	addr, err := p.Symbols.Get("handler")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultKTextBase), addr)

	addr, err = p.Symbols.Get("kmsg")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultKDataBase), addr)

	assert.Equal(t, []uint32{0}, func() []uint32 {
		image := p.Image(SegKText)
		return []uint32{binary.LittleEndian.Uint32(image)}
	}())
}

func TestDuplicateSymbol(t *testing.T) {
	source := "x: nop\nx: nop\n"
	tokens, errs := Tokenize(source, builder.New())
	require.False(t, errs.HasErrors())

	_, err := NewAssembler(Options{}).Assemble(tokens)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.ErrorDuplicateSymbol, perr.Kind)
}

func TestInstructionInDataSegment(t *testing.T) {
	source := ".data\nadd $t0, $t1, $t2\n"
	tokens, errs := Tokenize(source, builder.New())
	require.False(t, errs.HasErrors())

	_, err := NewAssembler(Options{}).Assemble(tokens)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.ErrorSegmentMisuse, perr.Kind)
}

func TestUndefinedLabelFails(t *testing.T) {
	source := "beq $t0, $t1, nowhere\n"
	tokens, errs := Tokenize(source, builder.New())
	require.False(t, errs.HasErrors())

	_, err := NewAssembler(Options{}).Assemble(tokens)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.ErrorUndefinedSymbol, perr.Kind)
}

func TestKeepPseudoCarriedThrough(t *testing.T) {
	b := builder.New()
	b.KeepPseudoinstructions = true

	tokens, errs := Tokenize("li $t0, 0x12345678\nadd $t1, $t0, $t0\n", b)
	require.False(t, errs.HasErrors())

	p, err := NewAssembler(Options{}).Assemble(tokens)
	require.NoError(t, err)

	require.Len(t, p.Tokens, 2)
	assert.Equal(t, parser.TokenPseudo, p.Tokens[0].Kind)
	assert.Equal(t, uint32(0x04000000), p.Tokens[0].Address, "pseudo keeps its address slot")
	assert.Equal(t, uint32(0x04000004), p.Tokens[1].Address)

	// Only the real instruction contributes image bytes; the image
	// therefore starts at the real instruction's address.
	image := p.Image(SegText)
	require.Len(t, image, 4)
	assert.Equal(t, uint32(0x04000004), p.Segments[SegText].Origin())
	assert.Equal(t, uint32(0x01084820), binary.LittleEndian.Uint32(image))
}

func TestGlobl(t *testing.T) {
	source := `
.globl main
main:	nop
`
	p := assemble(t, source)
	sym, ok := p.Symbols.Lookup("main")
	require.True(t, ok)
	assert.True(t, sym.Global)
}

func TestConfiguredBases(t *testing.T) {
	tokens, errs := Tokenize("nop\n", builder.New())
	require.False(t, errs.HasErrors())

	p, err := NewAssembler(Options{TextBase: 0x04000100}).Assemble(tokens)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04000100), p.Tokens[0].Address)
}

func TestTokenizeBatchErrors(t *testing.T) {
	source := "bogus $t0\nadd $t0, $t1\nnop\n"
	tokens, errs := Tokenize(source, builder.New())
	require.True(t, errs.HasErrors())
	assert.Len(t, errs.Errors, 2, "both faulty lines reported")
	assert.Len(t, tokens, 1, "the valid line still tokenizes")
	assert.Equal(t, 1, errs.Errors[0].Pos.Line)
	assert.Equal(t, 2, errs.Errors[1].Pos.Line)
}

func TestTokenizeComments(t *testing.T) {
	source := `
# full line comment
start:	nop	# trailing comment
.data
s:	.asciiz "has # inside"	# not part of the string
`
	tokens, errs := Tokenize(source, builder.New())
	require.False(t, errs.HasErrors(), "%v", errs)

	p, err := NewAssembler(Options{}).Assemble(tokens)
	require.NoError(t, err)
	assert.Equal(t, []byte("has # inside\x00"), p.Image(SegData))
}
