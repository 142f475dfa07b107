package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ngc6302h/neomips/parser"
)

func errDirective(line int, format string, args ...any) *parser.Error {
	return parser.NewError(pos(line), parser.ErrorInvalidDirective, fmt.Sprintf(format, args...))
}

// directiveKinds maps the surface keyword (without the leading dot) to its
// directive kind.
var directiveKinds = map[string]parser.DirectiveKind{
	"byte":   parser.DirByte,
	"half":   parser.DirHalf,
	"word":   parser.DirWord,
	"float":  parser.DirFloat,
	"double": parser.DirDouble,
	"ascii":  parser.DirAscii,
	"asciiz": parser.DirAsciiz,
	"space":  parser.DirSpace,
	"align":  parser.DirAlign,
	"text":   parser.DirText,
	"data":   parser.DirData,
	"ktext":  parser.DirKText,
	"kdata":  parser.DirKData,
	"globl":  parser.DirGlobl,
}

// KnownDirective reports whether a directive keyword is recognized.
// The name may carry its leading dot.
func KnownDirective(name string) bool {
	_, ok := directiveKinds[strings.TrimPrefix(strings.ToLower(name), ".")]
	return ok
}

// BuildDirective parses a directive's arguments and returns its token.
func BuildDirective(name, args string, line int) (parser.Token, error) {
	kind, ok := directiveKinds[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")]
	if !ok {
		return parser.Token{}, errDirective(line, "unknown directive %q", name)
	}

	d := &parser.Directive{Kind: kind}
	args = strings.TrimSpace(args)

	var err error
	switch kind {
	case parser.DirByte, parser.DirHalf, parser.DirWord:
		err = parseIntList(d, args, line)
	case parser.DirFloat, parser.DirDouble:
		err = parseFloatList(d, args, line)
	case parser.DirAscii, parser.DirAsciiz:
		err = parseString(d, args, line)
	case parser.DirSpace:
		err = parseSpace(d, args, line)
	case parser.DirAlign:
		err = parseAlign(d, args, line)
	case parser.DirText, parser.DirData, parser.DirKText, parser.DirKData:
		err = parseSegment(d, args, line)
	case parser.DirGlobl:
		err = parseGlobl(d, args, line)
	}
	if err != nil {
		return parser.Token{}, err
	}

	return parser.Token{Kind: parser.TokenDirective, Directive: d, Line: line}, nil
}

// intRange holds the accepted literal range for one storage width. Values
// parse at full width and are masked to the declared width when emitted.
type intRange struct {
	min, max int64
	width    uint32
}

var intRanges = map[parser.DirectiveKind]intRange{
	parser.DirByte: {min: -0x80, max: 0xFF, width: 1},
	parser.DirHalf: {min: -0x8000, max: 0xFFFF, width: 2},
	parser.DirWord: {min: -0x80000000, max: 0xFFFFFFFF, width: 4},
}

func parseIntList(d *parser.Directive, args string, line int) error {
	if args == "" {
		return errDirective(line, "directive requires at least one value")
	}
	r := intRanges[d.Kind]
	for _, piece := range strings.Split(args, ",") {
		v, err := parser.ParseNumber(piece)
		if err != nil {
			return errDirective(line, "%v", err)
		}
		if v < r.min || v > r.max {
			return errDirective(line, "value %d out of range for %d-byte storage", v, r.width)
		}
		d.Ints = append(d.Ints, v)
	}
	d.Size = r.width * uint32(len(d.Ints))
	return nil
}

func parseFloatList(d *parser.Directive, args string, line int) error {
	if args == "" {
		return errDirective(line, "directive requires at least one value")
	}
	width := uint32(4)
	bits := 32
	if d.Kind == parser.DirDouble {
		width = 8
		bits = 64
	}
	for _, piece := range strings.Split(args, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(piece), bits)
		if err != nil {
			return errDirective(line, "invalid floating point value %q", strings.TrimSpace(piece))
		}
		d.Floats = append(d.Floats, v)
	}
	d.Size = width * uint32(len(d.Floats))
	return nil
}

func parseString(d *parser.Directive, args string, line int) error {
	if args == "" {
		return errDirective(line, "directive requires at least one string")
	}
	pieces, err := splitStringList(args)
	if err != nil {
		return errDirective(line, "%v", err)
	}
	for _, piece := range pieces {
		if len(piece) < 2 || piece[0] != '"' || piece[len(piece)-1] != '"' {
			return errDirective(line, "expected a quoted string, got %q", piece)
		}
		str, err := parser.ProcessEscapeSequences(piece[1 : len(piece)-1])
		if err != nil {
			return parser.NewError(pos(line), parser.ErrorInvalidEscapeSequence, err.Error())
		}
		d.Strs = append(d.Strs, str)
		d.Size += uint32(len(str))
		if d.Kind == parser.DirAsciiz {
			d.Size++ // each string gets its own terminating null
		}
	}
	return nil
}

// splitStringList splits a comma-separated list of string literals on the
// commas between them, leaving commas inside quotes alone.
func splitStringList(args string) ([]string, error) {
	var pieces []string
	inString := false
	start := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '\\':
			if inString {
				i++ // skip the escaped character
			}
		case '"':
			inString = !inString
		case ',':
			if !inString {
				pieces = append(pieces, strings.TrimSpace(args[start:i]))
				start = i + 1
			}
		}
	}
	if inString {
		return nil, fmt.Errorf("unterminated string literal: %s", args)
	}
	pieces = append(pieces, strings.TrimSpace(args[start:]))
	return pieces, nil
}

func parseSpace(d *parser.Directive, args string, line int) error {
	v, err := parser.ParseNumber(args)
	if err != nil {
		return errDirective(line, "%v", err)
	}
	if v < 0 {
		return errDirective(line, "space size %d cannot be negative", v)
	}
	d.Ints = []int64{v}
	d.Size = uint32(v)
	return nil
}

func parseAlign(d *parser.Directive, args string, line int) error {
	v, err := parser.ParseNumber(args)
	if err != nil {
		return errDirective(line, "%v", err)
	}
	if v < 0 || v > 3 {
		return errDirective(line, "alignment %d out of range [0,3]", v)
	}
	d.Align = int(v)
	return nil
}

func parseSegment(d *parser.Directive, args string, line int) error {
	if args == "" {
		return nil
	}
	v, err := parser.ParseNumber(args)
	if err != nil {
		return errDirective(line, "invalid segment address: %v", err)
	}
	d.Addr = uint32(v)
	d.HasAddr = true
	return nil
}

func parseGlobl(d *parser.Directive, args string, line int) error {
	if args == "" || strings.ContainsAny(args, " \t,") {
		return errDirective(line, "expected a single symbol name, got %q", args)
	}
	d.Symbol = args
	return nil
}
