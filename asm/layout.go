package asm

import (
	"fmt"

	"github.com/ngc6302h/neomips/parser"
)

// Program is the result of assembly: the addressed token stream, the
// symbol table built during pass 1, and the four segment images filled
// during pass 2.
type Program struct {
	Tokens   []parser.Token
	Symbols  *parser.SymbolTable
	Segments [4]*Segment

	segOf []SegmentID // segment each token was laid out in
}

// Image returns one segment's byte image.
func (p *Program) Image(id SegmentID) []byte {
	return p.Segments[id].Image()
}

func segForDirective(kind parser.DirectiveKind) (SegmentID, bool) {
	switch kind {
	case parser.DirText:
		return SegText, true
	case parser.DirData:
		return SegData, true
	case parser.DirKText:
		return SegKText, true
	case parser.DirKData:
		return SegKData, true
	}
	return 0, false
}

// layout is pass 1: it walks the token stream in emission order, tracks the
// active segment and its cursor, assigns every encodable token an address,
// and binds every tag to the symbol table.
func (a *Assembler) layout(tokens []parser.Token) (*Program, error) {
	p := &Program{
		Tokens:  tokens,
		Symbols: parser.NewSymbolTable(),
		segOf:   make([]SegmentID, len(tokens)),
	}
	p.Segments[SegText] = newSegment(SegText, a.base(SegText))
	p.Segments[SegData] = newSegment(SegData, a.base(SegData))
	p.Segments[SegKText] = newSegment(SegKText, a.base(SegKText))
	p.Segments[SegKData] = newSegment(SegKData, a.base(SegKData))

	active := SegText

	for i := range p.Tokens {
		tok := &p.Tokens[i]
		seg := p.Segments[active]

		switch tok.Kind {
		case parser.TokenDirective:
			d := tok.Directive

			if id, ok := segForDirective(d.Kind); ok {
				active = id
				seg = p.Segments[active]
				if d.HasAddr {
					seg.Cursor = d.Addr
				} else {
					seg.Cursor = seg.Base
				}
				p.segOf[i] = active
				continue
			}

			switch d.Kind {
			case parser.DirAlign:
				mask := uint32(1)<<d.Align - 1
				seg.Cursor = (seg.Cursor + mask) &^ mask
			case parser.DirGlobl:
				p.Symbols.MarkGlobal(d.Symbol)
			default:
				if !seg.contains(seg.Cursor, d.Size) {
					return nil, parser.NewError(tok.Pos(), parser.ErrorSegmentMisuse,
						fmt.Sprintf("data at 0x%08X exceeds the %s segment", seg.Cursor, seg.ID))
				}
				tok.Address = seg.Cursor
				seg.Cursor += d.Size
			}
			p.segOf[i] = active

		case parser.TokenTag:
			if err := p.Symbols.Define(tok.Label, seg.Cursor, tok.Pos()); err != nil {
				return nil, parser.NewError(tok.Pos(), parser.ErrorDuplicateSymbol, err.Error())
			}
			tok.Address = seg.Cursor
			p.segOf[i] = active

		case parser.TokenInstruction, parser.TokenPseudo:
			if active != SegText && active != SegKText {
				return nil, parser.NewError(tok.Pos(), parser.ErrorSegmentMisuse,
					fmt.Sprintf("instruction in %s segment", seg.ID))
			}
			if seg.Cursor%4 != 0 {
				return nil, parser.NewError(tok.Pos(), parser.ErrorSegmentMisuse,
					fmt.Sprintf("instruction address 0x%08X is not 4-byte aligned", seg.Cursor))
			}
			if !seg.contains(seg.Cursor, 4) {
				return nil, parser.NewError(tok.Pos(), parser.ErrorSegmentMisuse,
					fmt.Sprintf("instruction at 0x%08X exceeds the %s segment", seg.Cursor, seg.ID))
			}
			tok.Address = seg.Cursor
			seg.Cursor += 4
			p.segOf[i] = active
		}
	}

	return p, nil
}
