// Package asm ties the assembler passes together: the layout engine that
// assigns addresses and builds the symbol table (pass 1), and the driver
// that resolves labels, encodes instructions and writes the per-segment
// byte images (pass 2).
package asm

import (
	"encoding/binary"
	"fmt"
)

// SegmentID identifies one of the four memory segments.
type SegmentID int

const (
	SegText SegmentID = iota
	SegData
	SegKText
	SegKData
)

func (id SegmentID) String() string {
	switch id {
	case SegText:
		return "text"
	case SegData:
		return "data"
	case SegKText:
		return "ktext"
	case SegKData:
		return "kdata"
	}
	return fmt.Sprintf("segment(%d)", int(id))
}

// Architectural default base addresses.
const (
	DefaultTextBase  = 0x04000000
	DefaultDataBase  = 0x10000000
	DefaultKTextBase = 0x80000000
	DefaultKDataBase = 0x90000000
)

// segmentWindow is the legal address range of each segment; emitting
// outside it is a segment misuse.
var segmentWindow = map[SegmentID][2]uint32{
	SegText:  {DefaultTextBase, DefaultDataBase},
	SegData:  {DefaultDataBase, DefaultKTextBase},
	SegKText: {DefaultKTextBase, DefaultKDataBase},
	SegKData: {DefaultKDataBase, 0xFFFFFFFF},
}

// Segment is a byte image paired with a base-address register and a cursor.
// The image starts at the lowest address written into the segment; gaps
// between writes are zero-filled and a later write to an address already
// covered overwrites those bytes.
type Segment struct {
	ID     SegmentID
	Base   uint32 // default or configured base
	Cursor uint32

	image     []byte
	origin    uint32
	originSet bool
}

func newSegment(id SegmentID, base uint32) *Segment {
	return &Segment{ID: id, Base: base, Cursor: base}
}

// Origin returns the address of the first image byte.
func (s *Segment) Origin() uint32 {
	if !s.originSet {
		return s.Base
	}
	return s.origin
}

// Image returns the segment's emitted bytes in address order.
func (s *Segment) Image() []byte {
	return s.image
}

// contains reports whether [addr, addr+size) lies inside the segment's
// legal window.
func (s *Segment) contains(addr uint32, size uint32) bool {
	w := segmentWindow[s.ID]
	if addr < w[0] || addr > w[1] {
		return false
	}
	return size == 0 || w[1]-addr >= size-1
}

// writeAt places data at an absolute address, zero-padding any gap between
// the current image end and the target.
func (s *Segment) writeAt(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if !s.originSet {
		s.origin = addr
		s.originSet = true
	}
	if addr < s.origin {
		// An explicit segment directive moved the cursor backwards;
		// re-base the image.
		pad := make([]byte, s.origin-addr)
		s.image = append(pad, s.image...)
		s.origin = addr
	}
	off := int(addr - s.origin)
	if need := off + len(data); need > len(s.image) {
		s.image = append(s.image, make([]byte, need-len(s.image))...)
	}
	copy(s.image[off:], data)
}

// writeWord emits one little-endian instruction word.
func (s *Segment) writeWord(addr uint32, word uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	s.writeAt(addr, buf[:])
}
