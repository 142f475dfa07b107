package asm

import (
	"strings"

	"github.com/ngc6302h/neomips/builder"
	"github.com/ngc6302h/neomips/parser"
)

// Tokenize converts assembly source text into the flat token stream the
// core consumes: one statement per line, optional leading labels, "#"
// comments. Builder errors are collected so a batch driver can report
// every faulty line at once.
func Tokenize(source string, b *builder.Builder) ([]parser.Token, *parser.ErrorList) {
	var tokens []parser.Token
	errs := &parser.ErrorList{}

	for num, raw := range strings.Split(source, "\n") {
		line := num + 1
		text := strings.TrimSpace(stripComment(raw))

		// Leading labels, possibly followed by a statement on the same line.
		for {
			idx := labelPrefix(text)
			if idx < 0 {
				break
			}
			tokens = append(tokens, parser.Token{
				Kind:  parser.TokenTag,
				Label: strings.TrimSpace(text[:idx]),
				Line:  line,
			})
			text = strings.TrimSpace(text[idx+1:])
		}
		if text == "" {
			continue
		}

		keyword, rest := splitStatement(text)
		if strings.HasPrefix(keyword, ".") {
			tok, err := builder.BuildDirective(keyword, rest, line)
			if err != nil {
				errs.Add(parser.Position{Line: line}, parser.ErrorInvalidDirective, err)
				continue
			}
			tokens = append(tokens, tok)
			continue
		}

		built, err := b.Build(keyword, rest, line)
		if err != nil {
			errs.Add(parser.Position{Line: line}, parser.ErrorInvalidSyntax, err)
			continue
		}
		tokens = append(tokens, built...)
	}

	return tokens, errs
}

// stripComment removes a "#" comment, ignoring hashes inside string
// literals.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			if i == 0 || line[i-1] != '\\' {
				inString = !inString
			}
		case '#':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

// labelPrefix returns the index of the colon ending a leading label, or -1.
func labelPrefix(text string) int {
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == ':':
			if i == 0 {
				return -1
			}
			return i
		case c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return -1
			}
		default:
			return -1
		}
	}
	return -1
}

// splitStatement separates the mnemonic or directive keyword from its
// argument text.
func splitStatement(text string) (keyword, rest string) {
	idx := strings.IndexAny(text, " \t")
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx+1:])
}
