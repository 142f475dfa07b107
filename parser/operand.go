package parser

import (
	"fmt"
	"strings"
)

// Archetype identifies the syntactic shape of an instruction's operand list.
// Values are bit flags so that a mnemonic can declare the set of shapes it
// accepts as a mask.
type Archetype uint32

const (
	NoParams Archetype = 1 << iota
	Reg
	Imm
	RegReg
	RegImm
	RegRegReg
	RegRegImm
	ImmRegReg
	Label
	ImmLabel
	RegLabel
	RegRegLabel
	RegImmLabel
	RegMemReg
	RegOffsetForReg
	RegLabelAsOffsetReg
	RegLabelPlusImm
	RegLabelPlusImmOffsetForReg
	CompilerGenerated
)

// matchOrder is the canonical matching order: the parser selects the first
// archetype in this order that both fits the operand shape and is present
// in the mnemonic's mask.
var matchOrder = []Archetype{
	NoParams, Reg, Imm, RegReg, RegImm, RegRegReg, RegRegImm, ImmRegReg,
	Label, ImmLabel, RegLabel, RegRegLabel, RegImmLabel,
	RegMemReg, RegOffsetForReg, RegLabelAsOffsetReg,
	RegLabelPlusImm, RegLabelPlusImmOffsetForReg,
}

func (a Archetype) String() string {
	switch a {
	case NoParams:
		return "NoParams"
	case Reg:
		return "Reg"
	case Imm:
		return "Imm"
	case RegReg:
		return "RegReg"
	case RegImm:
		return "RegImm"
	case RegRegReg:
		return "RegRegReg"
	case RegRegImm:
		return "RegRegImm"
	case ImmRegReg:
		return "ImmRegReg"
	case Label:
		return "Label"
	case ImmLabel:
		return "ImmLabel"
	case RegLabel:
		return "RegLabel"
	case RegRegLabel:
		return "RegRegLabel"
	case RegImmLabel:
		return "RegImmLabel"
	case RegMemReg:
		return "RegMemReg"
	case RegOffsetForReg:
		return "RegOffsetForReg"
	case RegLabelAsOffsetReg:
		return "RegLabelAsOffsetReg"
	case RegLabelPlusImm:
		return "RegLabelPlusImm"
	case RegLabelPlusImmOffsetForReg:
		return "RegLabelPlusImmOffsetForReg"
	case CompilerGenerated:
		return "CompilerGenerated"
	}
	return fmt.Sprintf("Archetype(%d)", uint32(a))
}

// Operands is the decoded operand bundle for one instruction.
type Operands struct {
	Archetype Archetype
	Reg1      int
	Reg2      int
	Reg3      int
	Imm       int64
	Offset    int32
	Label     string
	LabelAddr uint32 // resolved during pass 2
}

// operand field classification
type fieldKind int

const (
	fieldReg fieldKind = iota
	fieldNum
	fieldLabel
	fieldLabelPlusImm
	fieldMemBare     // (rs)
	fieldMemOffset   // off(rs)
	fieldMemLabel    // lbl(rs)
	fieldMemLabelImm // lbl+imm(rs)
)

type field struct {
	kind  fieldKind
	reg   int
	num   int64
	label string
	base  int
}

// ParseOperands tokenizes the operand text of one instruction, classifies
// each comma-separated field, and selects the first archetype in canonical
// order that is present in mask and fits the observed shape.
func ParseOperands(text string, mask Archetype) (*Operands, error) {
	fields, err := splitFields(text)
	if err != nil {
		return nil, err
	}

	for _, arch := range matchOrder {
		if mask&arch == 0 {
			continue
		}
		if ops, ok := matchArchetype(arch, fields); ok {
			return ops, nil
		}
	}
	return nil, fmt.Errorf("operands %q do not match any accepted form", strings.TrimSpace(text))
}

// splitFields splits the operand text on top-level commas and classifies
// each piece by its leading character and structure.
func splitFields(text string) ([]field, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var fields []field
	for _, piece := range strings.Split(text, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return nil, fmt.Errorf("empty operand field")
		}
		f, err := classifyField(piece)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func classifyField(s string) (field, error) {
	// Memory form: anything containing a parenthesized base register.
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return field{}, fmt.Errorf("unterminated memory operand: %s", s)
		}
		base, err := ParseRegister(s[open+1 : len(s)-1])
		if err != nil {
			return field{}, err
		}
		disp := strings.TrimSpace(s[:open])
		switch {
		case disp == "":
			return field{kind: fieldMemBare, base: base}, nil
		case IsNumberStart(disp[0]):
			n, err := ParseNumber(disp)
			if err != nil {
				return field{}, err
			}
			return field{kind: fieldMemOffset, num: n, base: base}, nil
		default:
			label, imm, hasImm, err := splitLabelImm(disp)
			if err != nil {
				return field{}, err
			}
			if hasImm {
				return field{kind: fieldMemLabelImm, label: label, num: imm, base: base}, nil
			}
			return field{kind: fieldMemLabel, label: label, base: base}, nil
		}
	}

	switch {
	case s[0] == '$':
		reg, err := ParseRegister(s)
		if err != nil {
			return field{}, err
		}
		return field{kind: fieldReg, reg: reg}, nil
	case IsNumberStart(s[0]):
		n, err := ParseNumber(s)
		if err != nil {
			return field{}, err
		}
		return field{kind: fieldNum, num: n}, nil
	default:
		label, imm, hasImm, err := splitLabelImm(s)
		if err != nil {
			return field{}, err
		}
		if hasImm {
			return field{kind: fieldLabelPlusImm, label: label, num: imm}, nil
		}
		return field{kind: fieldLabel, label: label}, nil
	}
}

// splitLabelImm splits "lbl", "lbl+imm" or "lbl-imm" forms.
func splitLabelImm(s string) (label string, imm int64, hasImm bool, err error) {
	idx := strings.IndexAny(s, "+-")
	if idx < 0 {
		if !isIdentifier(s) {
			return "", 0, false, fmt.Errorf("invalid label: %s", s)
		}
		return s, 0, false, nil
	}
	label = strings.TrimSpace(s[:idx])
	if !isIdentifier(label) {
		return "", 0, false, fmt.Errorf("invalid label: %s", label)
	}
	imm, err = ParseNumber(s[idx:])
	if err != nil {
		return "", 0, false, err
	}
	return label, imm, true, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		alpha := c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// matchArchetype attempts to fill an operand bundle for one archetype from
// the classified fields. It returns false when the shape does not fit.
func matchArchetype(arch Archetype, fields []field) (*Operands, bool) {
	ops := &Operands{Archetype: arch}

	kinds := func(want ...fieldKind) bool {
		if len(fields) != len(want) {
			return false
		}
		for i, k := range want {
			if fields[i].kind != k {
				return false
			}
		}
		return true
	}

	switch arch {
	case NoParams:
		return ops, len(fields) == 0

	case Reg:
		if !kinds(fieldReg) {
			return nil, false
		}
		ops.Reg1 = fields[0].reg
		return ops, true

	case Imm:
		if !kinds(fieldNum) {
			return nil, false
		}
		ops.Imm = fields[0].num
		return ops, true

	case RegReg:
		if !kinds(fieldReg, fieldReg) {
			return nil, false
		}
		ops.Reg1, ops.Reg2 = fields[0].reg, fields[1].reg
		return ops, true

	case RegImm:
		if !kinds(fieldReg, fieldNum) {
			return nil, false
		}
		ops.Reg1, ops.Imm = fields[0].reg, fields[1].num
		return ops, true

	case RegRegReg:
		if !kinds(fieldReg, fieldReg, fieldReg) {
			return nil, false
		}
		ops.Reg1, ops.Reg2, ops.Reg3 = fields[0].reg, fields[1].reg, fields[2].reg
		return ops, true

	case RegRegImm:
		if !kinds(fieldReg, fieldReg, fieldNum) {
			return nil, false
		}
		ops.Reg1, ops.Reg2, ops.Imm = fields[0].reg, fields[1].reg, fields[2].num
		return ops, true

	case ImmRegReg:
		if !kinds(fieldNum, fieldReg, fieldReg) {
			return nil, false
		}
		ops.Imm, ops.Reg1, ops.Reg2 = fields[0].num, fields[1].reg, fields[2].reg
		return ops, true

	case Label:
		if !kinds(fieldLabel) {
			return nil, false
		}
		ops.Label = fields[0].label
		return ops, true

	case ImmLabel:
		if !kinds(fieldNum, fieldLabel) {
			return nil, false
		}
		ops.Imm, ops.Label = fields[0].num, fields[1].label
		return ops, true

	case RegLabel:
		if !kinds(fieldReg, fieldLabel) {
			return nil, false
		}
		ops.Reg1, ops.Label = fields[0].reg, fields[1].label
		return ops, true

	case RegRegLabel:
		if !kinds(fieldReg, fieldReg, fieldLabel) {
			return nil, false
		}
		ops.Reg1, ops.Reg2, ops.Label = fields[0].reg, fields[1].reg, fields[2].label
		return ops, true

	case RegImmLabel:
		if !kinds(fieldReg, fieldNum, fieldLabel) {
			return nil, false
		}
		ops.Reg1, ops.Imm, ops.Label = fields[0].reg, fields[1].num, fields[2].label
		return ops, true

	case RegMemReg:
		if !kinds(fieldReg, fieldMemBare) {
			return nil, false
		}
		ops.Reg1, ops.Reg2 = fields[0].reg, fields[1].base
		return ops, true

	case RegOffsetForReg:
		if !kinds(fieldReg, fieldMemOffset) {
			return nil, false
		}
		ops.Reg1, ops.Reg2 = fields[0].reg, fields[1].base
		ops.Offset = int32(fields[1].num)
		return ops, true

	case RegLabelAsOffsetReg:
		if !kinds(fieldReg, fieldMemLabel) {
			return nil, false
		}
		ops.Reg1, ops.Reg2, ops.Label = fields[0].reg, fields[1].base, fields[1].label
		return ops, true

	case RegLabelPlusImm:
		if !kinds(fieldReg, fieldLabelPlusImm) {
			return nil, false
		}
		ops.Reg1, ops.Label, ops.Imm = fields[0].reg, fields[1].label, fields[1].num
		return ops, true

	case RegLabelPlusImmOffsetForReg:
		if !kinds(fieldReg, fieldMemLabelImm) {
			return nil, false
		}
		ops.Reg1, ops.Reg2 = fields[0].reg, fields[1].base
		ops.Label, ops.Imm = fields[1].label, fields[1].num
		return ops, true
	}

	return nil, false
}
