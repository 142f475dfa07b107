package asm

import (
	"encoding/binary"
	"math"

	"github.com/ngc6302h/neomips/encoder"
	"github.com/ngc6302h/neomips/parser"
)

// Options configures an Assembler. Zero-valued bases fall back to the
// architectural defaults.
type Options struct {
	TextBase  uint32
	DataBase  uint32
	KTextBase uint32
	KDataBase uint32
}

// Assembler runs the two-pass assembly over a token stream.
type Assembler struct {
	opts Options
}

// NewAssembler creates an assembler with the given options.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{opts: opts}
}

func (a *Assembler) base(id SegmentID) uint32 {
	var configured uint32
	switch id {
	case SegText:
		configured = a.opts.TextBase
	case SegData:
		configured = a.opts.DataBase
	case SegKText:
		configured = a.opts.KTextBase
	case SegKData:
		configured = a.opts.KDataBase
	}
	if configured != 0 {
		return configured
	}
	switch id {
	case SegText:
		return DefaultTextBase
	case SegData:
		return DefaultDataBase
	case SegKText:
		return DefaultKTextBase
	default:
		return DefaultKDataBase
	}
}

// Assemble runs pass 1 (layout and symbol binding) and pass 2 (label
// resolution, encoding and image emission) over the token stream. All
// references are resolved before any emission begins. Pseudo tokens kept
// unexpanded occupy their address slot but contribute no image bytes.
func (a *Assembler) Assemble(tokens []parser.Token) (*Program, error) {
	p, err := a.layout(tokens)
	if err != nil {
		return nil, err
	}

	enc := encoder.New(p.Symbols)

	for i := range p.Tokens {
		if err := enc.Resolve(&p.Tokens[i]); err != nil {
			return nil, err
		}
	}

	for i := range p.Tokens {
		tok := &p.Tokens[i]
		seg := p.Segments[p.segOf[i]]

		switch tok.Kind {
		case parser.TokenDirective:
			emitDirective(seg, tok)
		case parser.TokenInstruction:
			word, err := enc.Encode(tok)
			if err != nil {
				return nil, encoder.WrapEncodingError(tok, err)
			}
			seg.writeWord(tok.Address, word)
		}
	}

	return p, nil
}

// emitDirective appends a data directive's bytes to its segment image in
// little-endian layout, masked to the declared storage width.
func emitDirective(seg *Segment, tok *parser.Token) {
	d := tok.Directive
	addr := tok.Address

	switch d.Kind {
	case parser.DirByte:
		buf := make([]byte, len(d.Ints))
		for i, v := range d.Ints {
			buf[i] = byte(v)
		}
		seg.writeAt(addr, buf)

	case parser.DirHalf:
		buf := make([]byte, 2*len(d.Ints))
		for i, v := range d.Ints {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
		}
		seg.writeAt(addr, buf)

	case parser.DirWord:
		buf := make([]byte, 4*len(d.Ints))
		for i, v := range d.Ints {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
		}
		seg.writeAt(addr, buf)

	case parser.DirFloat:
		buf := make([]byte, 4*len(d.Floats))
		for i, v := range d.Floats {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
		}
		seg.writeAt(addr, buf)

	case parser.DirDouble:
		buf := make([]byte, 8*len(d.Floats))
		for i, v := range d.Floats {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		seg.writeAt(addr, buf)

	case parser.DirAscii, parser.DirAsciiz:
		buf := make([]byte, 0, d.Size)
		for _, s := range d.Strs {
			buf = append(buf, s...)
			if d.Kind == parser.DirAsciiz {
				buf = append(buf, 0)
			}
		}
		seg.writeAt(addr, buf)

	case parser.DirSpace:
		seg.writeAt(addr, make([]byte, d.Size))
	}
}
